package capture

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/speaklab/speaklab/pkg/types"
)

// defaultSampleInterval is the cadence of the waveform sampling loop,
// matching a display refresh tick.
const defaultSampleInterval = 16 * time.Millisecond

// Engine drives microphone capture for one practice session at a time. It
// owns the acquired [Stream] between Start and Stop, accumulates recording
// fragments, refreshes a live waveform snapshot on a fixed cadence, and
// finalizes the recording into an [Asset] on Stop.
//
// All exported methods are safe for concurrent use. At most one capture
// session is live at any moment; Start while recording is a no-op (the
// orchestrator stops the engine first when it wants a fresh session).
type Engine struct {
	mic       Microphone
	supported bool

	waveSamples    int
	sampleInterval time.Duration
	observer       func(types.AudioFrame)

	// cmd serializes Start/Stop so a concurrent command pair cannot
	// interleave around the blocking device acquisition.
	cmd sync.Mutex

	mu        sync.Mutex
	stream    Stream
	analyzer  Analyzer
	sink      Sink
	chunks    [][]byte
	waveform  []float64
	asset     *Asset
	recording bool
	recorded  time.Duration // running length of the in-progress recording

	// generation invalidates stale sampling loops: the loop captures the
	// value at start and stops writing once it no longer matches.
	generation uint64
	stopTick   chan struct{}
}

// Option configures an [Engine] during construction.
type Option func(*Engine)

// WithWaveformSamples sets the fixed target length of waveform snapshots.
// The default is [DefaultWaveformSamples].
func WithWaveformSamples(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.waveSamples = n
		}
	}
}

// WithSampleInterval sets the cadence of the waveform sampling loop.
// The default is 16 ms.
func WithSampleInterval(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.sampleInterval = d
		}
	}
}

// WithFragmentObserver registers a tap that receives every recording fragment
// as an audio frame while capture runs. The hosting shell uses this to bridge
// live audio into a recognizer capability; the engine itself attaches no
// meaning to it. The observer is invoked outside the engine lock and must not
// block.
func WithFragmentObserver(fn func(types.AudioFrame)) Option {
	return func(e *Engine) {
		e.observer = fn
	}
}

// NewEngine creates a capture engine backed by mic. The capability support
// probe is evaluated once here and fixed for the engine's lifetime.
func NewEngine(mic Microphone, opts ...Option) *Engine {
	e := &Engine{
		mic:            mic,
		supported:      mic != nil && mic.Supported(),
		waveSamples:    DefaultWaveformSamples,
		sampleInterval: defaultSampleInterval,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Supported reports whether capture is available on this host. The result is
// fixed at construction.
func (e *Engine) Supported() bool { return e.supported }

// IsRecording reports whether a capture session is currently live.
func (e *Engine) IsRecording() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.recording
}

// Start acquires the microphone, builds the analysis pipeline, begins
// recording, and launches the waveform sampling loop.
//
// On any failure every resource acquired so far is released before Start
// returns; no partial acquisition survives the error path. Start on an
// already-recording engine is a no-op.
func (e *Engine) Start(ctx context.Context) error {
	if !e.supported {
		return ErrUnsupported
	}

	e.cmd.Lock()
	defer e.cmd.Unlock()

	e.mu.Lock()
	if e.recording {
		e.mu.Unlock()
		return nil
	}
	e.mu.Unlock()

	stream, err := e.mic.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("capture: acquire microphone: %w", err)
	}

	sink := stream.Sink()
	if err := sink.Start(e.onFragment); err != nil {
		// Release the partially acquired session.
		if cerr := stream.Close(); cerr != nil {
			slog.Warn("capture: release after failed sink start", "err", cerr)
		}
		return fmt.Errorf("capture: start recording sink: %w", err)
	}

	e.mu.Lock()
	e.stream = stream
	e.analyzer = stream.Analyzer()
	e.sink = sink
	e.recording = true
	e.recorded = 0
	e.generation++
	e.stopTick = make(chan struct{})
	gen, stop := e.generation, e.stopTick
	e.mu.Unlock()

	go e.sampleLoop(gen, stop)
	return nil
}

// Stop finalizes the in-progress recording into a new [Asset] (invalidating
// any prior asset first), captures one final waveform snapshot, and releases
// the stream, analyzer, and sink. Stop on an engine that is not recording is
// a no-op.
func (e *Engine) Stop() {
	e.cmd.Lock()
	defer e.cmd.Unlock()

	e.mu.Lock()
	if !e.recording {
		e.mu.Unlock()
		return
	}
	e.recording = false
	e.generation++
	close(e.stopTick)
	e.stopTick = nil
	stream, analyzer, sink := e.stream, e.analyzer, e.sink
	e.stream, e.analyzer, e.sink = nil, nil, nil
	e.mu.Unlock()

	// Flush trailing fragments into chunks before materializing.
	if err := sink.Stop(); err != nil {
		slog.Warn("capture: stop recording sink", "err", err)
	}

	e.mu.Lock()
	if analyzer != nil {
		if snap := Downsample(analyzer.ReadTimeDomain(), e.waveSamples); snap != nil {
			e.waveform = snap
		}
	}
	chunks := e.chunks
	e.chunks = nil
	old := e.asset
	e.asset = nil
	e.mu.Unlock()

	// Invalidate-then-replace: the previous asset is revoked before the new
	// one exists, so no two live assets overlap.
	if old != nil {
		old.Invalidate()
	}
	asset, err := newAsset(chunks)
	if err != nil {
		slog.Warn("capture: asset encoding degraded to raw PCM", "err", err)
	}

	e.mu.Lock()
	e.asset = asset
	e.mu.Unlock()

	if err := stream.Close(); err != nil {
		slog.Warn("capture: release stream", "err", err)
	}
}

// Reset invalidates the current asset (if any) and clears accumulated chunks
// and the waveform snapshot. An in-progress recording keeps running.
func (e *Engine) Reset() {
	e.mu.Lock()
	old := e.asset
	e.asset = nil
	e.chunks = nil
	e.waveform = nil
	e.mu.Unlock()

	if old != nil {
		old.Invalidate()
	}
}

// Waveform returns a copy of the latest waveform snapshot: up to the
// configured number of amplitude samples in [-1, 1]. Nil when no snapshot
// has been taken since the last Reset.
func (e *Engine) Waveform() []float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.waveform == nil {
		return nil
	}
	out := make([]float64, len(e.waveform))
	copy(out, e.waveform)
	return out
}

// Asset returns the materialized recording of the last completed session, or
// nil when none exists. The asset stays valid until the next Stop or Reset.
func (e *Engine) Asset() *Asset {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.asset
}

// onFragment is the sink callback: it appends the fragment to the session's
// chunk sequence and forwards it to the fragment observer, if any.
func (e *Engine) onFragment(fragment []byte) {
	buf := make([]byte, len(fragment))
	copy(buf, fragment)

	e.mu.Lock()
	e.chunks = append(e.chunks, buf)
	ts := e.recorded
	frame := types.AudioFrame{
		Data:       buf,
		SampleRate: assetSampleRate,
		Channels:   assetChannels,
		Timestamp:  ts,
	}
	e.recorded += frame.Duration()
	observer := e.observer
	e.mu.Unlock()

	if observer != nil {
		observer(frame)
	}
}

// sampleLoop refreshes the waveform snapshot on the configured cadence until
// cancelled. The generation token guarantees a stale loop never writes the
// waveform after Stop or a restart.
func (e *Engine) sampleLoop(gen uint64, stop <-chan struct{}) {
	ticker := time.NewTicker(e.sampleInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			e.mu.Lock()
			if !e.recording || e.generation != gen || e.analyzer == nil {
				e.mu.Unlock()
				return
			}
			if snap := Downsample(e.analyzer.ReadTimeDomain(), e.waveSamples); snap != nil {
				e.waveform = snap
			}
			e.mu.Unlock()
		}
	}
}
