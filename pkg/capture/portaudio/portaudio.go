// Package portaudio implements the capture interfaces on top of the
// PortAudio CGO bindings, recording 16 kHz mono PCM from the host's default
// input device. The PortAudio library must be available at link time.
package portaudio

import (
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gordonklaus/portaudio"

	"github.com/speaklab/speaklab/pkg/capture"
)

const (
	// sampleRate matches the recognizer's native rate.
	sampleRate = 16000
	channels   = 1
	// framesPerBuffer is the device read size; at 16 kHz this is 64 ms of
	// audio per fragment.
	framesPerBuffer = 1024
)

// Compile-time assertion that Microphone satisfies capture.Microphone.
var _ capture.Microphone = (*Microphone)(nil)

// Microphone acquires recording streams from the default PortAudio input
// device. New initializes the PortAudio runtime; Close must be called when
// the microphone is no longer needed.
type Microphone struct {
	mu          sync.Mutex
	initialized bool
}

// New initializes the PortAudio runtime and returns a Microphone.
func New() (*Microphone, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("portaudio: initialize: %w", err)
	}
	return &Microphone{initialized: true}, nil
}

// Close terminates the PortAudio runtime.
func (m *Microphone) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.initialized {
		return nil
	}
	m.initialized = false
	if err := portaudio.Terminate(); err != nil {
		return fmt.Errorf("portaudio: terminate: %w", err)
	}
	return nil
}

// Supported implements [capture.Microphone]. It reports whether the host has
// a default input device.
func (m *Microphone) Supported() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.initialized {
		return false
	}
	dev, err := portaudio.DefaultInputDevice()
	return err == nil && dev != nil
}

// Acquire implements [capture.Microphone]. It opens the default input device
// for 16 kHz mono capture. The stream starts flowing when its sink is
// started.
func (m *Microphone) Acquire(ctx context.Context) (capture.Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("portaudio: acquire: %w", err)
	}
	m.mu.Lock()
	initialized := m.initialized
	m.mu.Unlock()
	if !initialized {
		return nil, fmt.Errorf("portaudio: acquire: %w", capture.ErrUnsupported)
	}

	s := &stream{buffer: make([]float32, framesPerBuffer)}
	pa, err := portaudio.OpenDefaultStream(channels, 0, sampleRate, framesPerBuffer, s.buffer)
	if err != nil {
		return nil, fmt.Errorf("portaudio: open default stream: %w: %w",
			capture.ErrDeviceUnavailable, err)
	}
	s.pa = pa
	s.analyzer = &analyzer{}
	s.sink = &sink{stream: s}
	return s, nil
}

// ---- stream -----------------------------------------------------------------

type stream struct {
	pa     *portaudio.Stream
	buffer []float32

	analyzer *analyzer
	sink     *sink

	mu      sync.Mutex
	running bool
	done    chan struct{}
}

func (s *stream) Analyzer() capture.Analyzer { return s.analyzer }
func (s *stream) Sink() capture.Sink         { return s.sink }

// Close implements [capture.Stream]. It stops any live capture first.
func (s *stream) Close() error {
	s.stopLoop()
	if err := s.pa.Close(); err != nil {
		return fmt.Errorf("portaudio: close stream: %w", err)
	}
	return nil
}

// startLoop starts the device and the read loop delivering fragments to
// onFragment.
func (s *stream) startLoop(onFragment func([]byte)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return fmt.Errorf("portaudio: stream already capturing")
	}
	if err := s.pa.Start(); err != nil {
		return fmt.Errorf("portaudio: start stream: %w: %w",
			capture.ErrDeviceUnavailable, err)
	}
	s.running = true
	s.done = make(chan struct{})
	go s.readLoop(onFragment, s.done)
	return nil
}

// stopLoop stops the read loop and the device. Safe to call repeatedly.
func (s *stream) stopLoop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	done := s.done
	s.mu.Unlock()

	// The loop polls running every device read, so this bound is generous.
	select {
	case <-done:
	case <-time.After(250 * time.Millisecond):
		slog.Warn("portaudio: read loop did not drain in time")
	}

	if err := s.pa.Stop(); err != nil {
		slog.Warn("portaudio: stop stream", "error", err)
	}
}

// readLoop pulls device buffers, publishes the analyzer window, and delivers
// int16 PCM fragments until stopLoop flips running off.
func (s *stream) readLoop(onFragment func([]byte), done chan struct{}) {
	defer close(done)

	for {
		s.mu.Lock()
		running := s.running
		s.mu.Unlock()
		if !running {
			return
		}

		available, err := s.pa.AvailableToRead()
		if err != nil || available == 0 {
			time.Sleep(10 * time.Millisecond)
			continue
		}
		if err := s.pa.Read(); err != nil {
			time.Sleep(10 * time.Millisecond)
			continue
		}

		s.analyzer.publish(s.buffer)
		onFragment(floatToPCM(s.buffer))
	}
}

// ---- analyzer ---------------------------------------------------------------

// analyzer exposes the most recent device buffer as an unsigned 8-bit
// time-domain window, midpoint 128.
type analyzer struct {
	mu     sync.Mutex
	window []byte
}

func (a *analyzer) publish(samples []float32) {
	window := make([]byte, len(samples))
	for i, v := range samples {
		if v > 1 {
			v = 1
		} else if v < -1 {
			v = -1
		}
		window[i] = byte(128 + v*127)
	}
	a.mu.Lock()
	a.window = window
	a.mu.Unlock()
}

// ReadTimeDomain implements [capture.Analyzer].
func (a *analyzer) ReadTimeDomain() []byte {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]byte, len(a.window))
	copy(out, a.window)
	return out
}

// ---- sink -------------------------------------------------------------------

// sink starts and stops the stream's read loop.
type sink struct {
	stream *stream
}

// Start implements [capture.Sink].
func (s *sink) Start(onFragment func([]byte)) error {
	return s.stream.startLoop(onFragment)
}

// Stop implements [capture.Sink]. The read loop delivers every buffer as it
// is read, so there is no trailing flush beyond draining the loop.
func (s *sink) Stop() error {
	s.stream.stopLoop()
	return nil
}

// floatToPCM converts float32 samples in [-1, 1] to 16-bit signed
// little-endian PCM.
func floatToPCM(samples []float32) []byte {
	out := make([]byte, len(samples)*2)
	for i, v := range samples {
		if v > 1 {
			v = 1
		} else if v < -1 {
			v = -1
		}
		binary.LittleEndian.PutUint16(out[i*2:], uint16(int16(v*32767)))
	}
	return out
}
