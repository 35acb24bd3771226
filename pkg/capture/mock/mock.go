// Package mock provides in-memory mock implementations of the
// [capture.Microphone], [capture.Stream], [capture.Analyzer], and
// [capture.Sink] interfaces for use in unit tests.
//
// All mocks are safe for concurrent use. They record every method call so
// that tests can assert on acquire/release accounting, and they expose
// exported fields the test can set to control return values.
//
// Typical usage:
//
//	mic := &mock.Microphone{}
//	eng := capture.NewEngine(mic)
//	if err := eng.Start(ctx); err != nil { ... }
//	mic.Streams[0].EmitFragment([]byte{...})
//	eng.Stop()
//	if mic.CallCountAcquire != mic.Streams[0].CallCountClose { ... }
package mock

import (
	"context"
	"sync"

	"github.com/speaklab/speaklab/pkg/capture"
)

// ─── Microphone ───────────────────────────────────────────────────────────────

// Microphone is a mock implementation of [capture.Microphone]. The zero value
// is a supported microphone whose Acquire succeeds with a fresh [Stream].
type Microphone struct {
	mu sync.Mutex

	// Unsupported makes Supported report false.
	Unsupported bool

	// AcquireErr, when non-nil, is returned by Acquire instead of a stream.
	AcquireErr error

	// AnalyzerBuffer seeds the analyzer buffer of every acquired stream.
	// Defaults to a 256-byte silent buffer (all samples at the midpoint).
	AnalyzerBuffer []byte

	// CallCountAcquire records how many times Acquire was called.
	CallCountAcquire int

	// Streams holds every stream handed out by Acquire, in order.
	Streams []*Stream
}

// Supported implements [capture.Microphone].
func (m *Microphone) Supported() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.Unsupported
}

// Acquire implements [capture.Microphone]. It returns AcquireErr when set,
// otherwise a new [Stream] which is also appended to Streams.
func (m *Microphone) Acquire(_ context.Context) (capture.Stream, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CallCountAcquire++
	if m.AcquireErr != nil {
		return nil, m.AcquireErr
	}

	buf := m.AnalyzerBuffer
	if buf == nil {
		buf = make([]byte, 256)
		for i := range buf {
			buf[i] = 128
		}
	}
	s := &Stream{}
	s.analyzer = &Analyzer{Buffer: buf}
	s.sink = &Sink{}
	m.Streams = append(m.Streams, s)
	return s, nil
}

// LiveStreams returns how many acquired streams have not been closed yet.
// A clean teardown leaves this at zero.
func (m *Microphone) LiveStreams() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	live := 0
	for _, s := range m.Streams {
		if s.CloseCount() == 0 {
			live++
		}
	}
	return live
}

// ─── Stream ───────────────────────────────────────────────────────────────────

// Stream is a mock implementation of [capture.Stream].
type Stream struct {
	mu sync.Mutex

	// CloseErr is returned by Close.
	CloseErr error

	// CallCountClose records how many times Close was called.
	CallCountClose int

	analyzer *Analyzer
	sink     *Sink
}

// Analyzer implements [capture.Stream].
func (s *Stream) Analyzer() capture.Analyzer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.analyzer
}

// Sink implements [capture.Stream].
func (s *Stream) Sink() capture.Sink {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sink
}

// Close implements [capture.Stream].
func (s *Stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CallCountClose++
	return s.CloseErr
}

// CloseCount returns how many times Close was called.
func (s *Stream) CloseCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.CallCountClose
}

// SetAnalyzerBuffer replaces the analyzer's current time-domain buffer,
// simulating fresh signal data.
func (s *Stream) SetAnalyzerBuffer(buf []byte) {
	s.mu.Lock()
	a := s.analyzer
	s.mu.Unlock()
	a.SetBuffer(buf)
}

// EmitFragment delivers a recording fragment through the sink callback, as a
// live device would while recording.
func (s *Stream) EmitFragment(fragment []byte) {
	s.mu.Lock()
	sk := s.sink
	s.mu.Unlock()
	sk.Emit(fragment)
}

// ─── Analyzer ─────────────────────────────────────────────────────────────────

// Analyzer is a mock implementation of [capture.Analyzer].
type Analyzer struct {
	mu sync.Mutex

	// Buffer is the time-domain window returned by ReadTimeDomain.
	Buffer []byte

	// CallCountRead records how many times ReadTimeDomain was called.
	CallCountRead int
}

// ReadTimeDomain implements [capture.Analyzer]. It returns a copy of Buffer.
func (a *Analyzer) ReadTimeDomain() []byte {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.CallCountRead++
	out := make([]byte, len(a.Buffer))
	copy(out, a.Buffer)
	return out
}

// SetBuffer replaces the buffer returned by subsequent reads.
func (a *Analyzer) SetBuffer(buf []byte) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.Buffer = buf
}

// ReadCount returns how many times ReadTimeDomain was called.
func (a *Analyzer) ReadCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.CallCountRead
}

// ─── Sink ─────────────────────────────────────────────────────────────────────

// Sink is a mock implementation of [capture.Sink].
type Sink struct {
	mu sync.Mutex

	// StartErr, when non-nil, is returned by Start. Used to exercise the
	// engine's partial-acquisition error path.
	StartErr error

	// FlushFragments are delivered through the callback during Stop, as a
	// real sink flushes its trailing buffer.
	FlushFragments [][]byte

	// CallCountStart and CallCountStop record lifecycle calls.
	CallCountStart int
	CallCountStop  int

	onFragment func([]byte)
}

// Start implements [capture.Sink].
func (s *Sink) Start(onFragment func([]byte)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CallCountStart++
	if s.StartErr != nil {
		return s.StartErr
	}
	s.onFragment = onFragment
	return nil
}

// Stop implements [capture.Sink]. It flushes FlushFragments through the
// callback, then detaches it.
func (s *Sink) Stop() error {
	s.mu.Lock()
	cb := s.onFragment
	flush := s.FlushFragments
	s.onFragment = nil
	s.CallCountStop++
	s.mu.Unlock()

	if cb != nil {
		for _, f := range flush {
			cb(f)
		}
	}
	return nil
}

// Emit delivers one fragment through the registered callback. A no-op when
// the sink is not started.
func (s *Sink) Emit(fragment []byte) {
	s.mu.Lock()
	cb := s.onFragment
	s.mu.Unlock()
	if cb != nil {
		cb(fragment)
	}
}
