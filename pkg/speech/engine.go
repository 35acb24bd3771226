package speech

import (
	"context"
	"strings"
	"sync"
)

// Engine wraps a [Recognizer] into one listening session at a time and
// maintains the aggregate transcript.
//
// Every result event replaces the transcript with the whitespace-trimmed
// join of all fragments received so far (interim included) — later events
// fully replace the aggregate, they never append to a growing log. An error
// event is stored on the engine ([Engine.LastErr]) and forces listening off;
// it is never propagated as a panic or return value across the session
// boundary. All exported methods are safe for concurrent use.
type Engine struct {
	rec Recognizer

	mu         sync.Mutex
	listening  bool
	transcript string
	lastErr    error

	// session identifies the current recognizer run; events delivered by a
	// superseded run are discarded.
	session uint64
}

// NewEngine creates a recognition engine backed by rec.
func NewEngine(rec Recognizer) *Engine {
	return &Engine{rec: rec}
}

// Supported reports whether recognition is available on this host.
func (e *Engine) Supported() bool {
	return e.rec != nil && e.rec.Supported()
}

// Language returns the recognizer's fixed BCP-47 language tag.
func (e *Engine) Language() string {
	if e.rec == nil {
		return ""
	}
	return e.rec.Language()
}

// Start clears the last error and the transcript, then begins listening.
// A rejected start (capability already running, unavailable) lands in
// [Engine.LastErr] rather than being returned: callers observe the failure
// at transition time, matching the event-driven error model.
func (e *Engine) Start(ctx context.Context) {
	if !e.Supported() {
		return
	}

	e.mu.Lock()
	if e.listening {
		e.mu.Unlock()
		return
	}
	e.lastErr = nil
	e.transcript = ""
	e.session++
	e.listening = true
	sink := sessionSink{engine: e, id: e.session}
	e.mu.Unlock()

	if err := e.rec.Start(ctx, sink); err != nil {
		e.mu.Lock()
		e.lastErr = err
		e.listening = false
		e.mu.Unlock()
	}
}

// Stop requests a graceful end of the session. Listening transitions to
// false asynchronously when the recognizer reports its end or error event.
// Stop while not listening is a no-op.
func (e *Engine) Stop() {
	e.mu.Lock()
	listening := e.listening
	e.mu.Unlock()
	if !listening {
		return
	}
	e.rec.Stop()
}

// ResetTranscript clears the aggregate transcript without affecting the
// listening state.
func (e *Engine) ResetTranscript() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.transcript = ""
}

// Transcript returns the current aggregate transcript, trimmed.
func (e *Engine) Transcript() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.transcript
}

// IsListening reports whether a recognition session is live.
func (e *Engine) IsListening() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.listening
}

// LastErr returns the most recent recognizer failure, cleared on the next
// Start. Nil while the session is healthy.
func (e *Engine) LastErr() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastErr
}

// sessionSink is the [EventSink] handed to the recognizer for one session.
// It pins the session id so events from a superseded run cannot touch the
// engine after a restart.
type sessionSink struct {
	engine *Engine
	id     uint64
}

// Compile-time check that sessionSink satisfies [EventSink].
var _ EventSink = sessionSink{}

// OnResult implements [EventSink].
func (s sessionSink) OnResult(r Result) {
	e := s.engine
	e.mu.Lock()
	defer e.mu.Unlock()
	if s.id != e.session {
		return
	}

	if r.Fragments != nil {
		parts := make([]string, 0, len(r.Fragments))
		for _, f := range r.Fragments {
			parts = append(parts, f.Text)
		}
		e.transcript = strings.TrimSpace(strings.Join(parts, " "))
	}
	if r.IsLast {
		e.listening = false
	}
}

// OnError implements [EventSink].
func (s sessionSink) OnError(err error) {
	e := s.engine
	e.mu.Lock()
	defer e.mu.Unlock()
	if s.id != e.session {
		return
	}
	e.lastErr = err
	e.listening = false
}
