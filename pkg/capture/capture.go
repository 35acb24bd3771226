// Package capture defines the interfaces and types for microphone capture
// within speaklab, and the [Engine] that drives one recording session at a
// time: acquiring the device, accumulating the recording into a replayable
// [Asset], and sampling a live waveform for display.
//
// The capability abstractions are:
//
//   - [Microphone] — acquires an exclusive [Stream] to a live audio device.
//   - [Stream] — the acquired device handle, exposing its [Analyzer] and
//     recording [Sink]; released with Close.
//   - [Analyzer] — a signal-analysis node reading the current time-domain
//     window of the stream.
//   - [Sink] — delivers the ordered raw fragments of the in-progress
//     recording and flushes the trailing fragment on Stop.
//
// Implementations of these interfaces are provided by host-specific adapter
// packages (capture/portaudio for a local device, capture/wsmic for a remote
// browser microphone). The interfaces are intentionally narrow to keep the
// practice orchestrator decoupled from device details.
//
// This package lives under pkg/ because external code (alternative microphone
// adapters) is expected to implement [Microphone] and [Stream].
package capture

import (
	"context"
	"errors"
)

// Capture failure taxonomy. Adapter packages wrap their platform errors in
// one of these sentinels so the orchestrator can surface a meaningful note.
var (
	// ErrUnsupported indicates the host has no usable capture capability at
	// all. Fatal for the session; probed once at engine construction.
	ErrUnsupported = errors.New("capture: not supported on this host")

	// ErrPermissionDenied indicates the platform declined microphone access.
	// Recoverable; the user may retry.
	ErrPermissionDenied = errors.New("capture: microphone permission denied")

	// ErrDeviceUnavailable indicates no audio input device exists or the
	// device could not be opened. Recoverable; the user may retry.
	ErrDeviceUnavailable = errors.New("capture: no audio input device available")
)

// Analyzer is a signal-analysis node derived from an acquired stream. It
// exposes the most recent time-domain window of the live signal for waveform
// visualisation.
//
// Implementations must be safe for concurrent use.
type Analyzer interface {
	// ReadTimeDomain returns the current fixed-size window of unsigned 8-bit
	// samples centered at 128 (silence). The returned slice is a snapshot
	// owned by the caller. An empty slice means no data is available yet.
	ReadTimeDomain() []byte
}

// Sink delivers the ordered binary fragments of the in-progress recording.
//
// Fragment delivery order is arrival order. Stop flushes any buffered
// trailing fragment through the callback before it returns, so a caller that
// stops the sink and then reads its accumulated fragments sees the complete
// recording.
type Sink interface {
	// Start begins fragment delivery. onFragment is invoked for every raw
	// fragment, in order; it must not block. Returns an error if delivery
	// cannot begin (e.g. the sink was already started).
	Start(onFragment func(fragment []byte)) error

	// Stop ends delivery, flushing buffered fragments first. Calling Stop on
	// a sink that was never started is a no-op.
	Stop() error
}

// Stream is an exclusively owned handle to an acquired microphone device.
// The stream, its analyzer, and its sink share one lifetime: all three are
// released together by Close.
type Stream interface {
	// Analyzer returns the signal-analysis node for this stream.
	Analyzer() Analyzer

	// Sink returns the recording sink for this stream.
	Sink() Sink

	// Close releases the device handle and the analysis pipeline. It is safe
	// to call Close more than once; subsequent calls are no-ops.
	Close() error
}

// Microphone is the entry point for a capture capability. Implementations
// wrap host-specific audio APIs and expose a uniform [Stream] abstraction.
//
// Implementations must be safe for concurrent use.
type Microphone interface {
	// Supported reports whether the capability is usable on this host. The
	// result is fixed for the lifetime of the process.
	Supported() bool

	// Acquire requests exclusive access to the audio input device. The
	// supplied ctx governs the acquisition attempt only; once acquired, the
	// Stream remains live until Close.
	//
	// Returns an error wrapping [ErrPermissionDenied] or
	// [ErrDeviceUnavailable] when the host declines. On failure no resources
	// remain acquired.
	Acquire(ctx context.Context) (Stream, error)
}
