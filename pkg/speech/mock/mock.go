// Package mock provides a scripted in-memory implementation of the
// [speech.Recognizer] interface for use in unit tests.
//
// The zero value is a supported recognizer whose Start succeeds. Tests drive
// it by calling [Recognizer.EmitResult] and [Recognizer.EmitError] between
// Start and Stop; Stop synchronously delivers the scripted final result
// before returning, so a caller that reads the transcript right after Stop
// sees the finished session.
package mock

import (
	"context"
	"sync"

	"github.com/speaklab/speaklab/pkg/speech"
)

// Recognizer is a mock implementation of [speech.Recognizer].
type Recognizer struct {
	mu sync.Mutex

	// Unsupported makes Supported report false.
	Unsupported bool

	// StartErr, when non-nil, is returned by Start.
	StartErr error

	// Lang is the value returned by Language. Defaults to "en-GB".
	Lang string

	// FinalFragments is the cumulative fragment list delivered with the final
	// result on Stop. When nil, Stop delivers a bare end-of-session result
	// carrying no text.
	FinalFragments []speech.Fragment

	// CallCountStart and CallCountStop record lifecycle calls.
	CallCountStart int
	CallCountStop  int

	sink speech.EventSink
}

var _ speech.Recognizer = (*Recognizer)(nil)

// Supported implements [speech.Recognizer].
func (r *Recognizer) Supported() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return !r.Unsupported
}

// Start implements [speech.Recognizer]. It captures the sink for later
// EmitResult/EmitError calls.
func (r *Recognizer) Start(_ context.Context, sink speech.EventSink) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.CallCountStart++
	if r.StartErr != nil {
		return r.StartErr
	}
	r.sink = sink
	return nil
}

// Stop implements [speech.Recognizer]. It synchronously delivers the final
// result (FinalFragments, IsLast set) through the captured sink, then
// detaches it. A no-op when no session is live.
func (r *Recognizer) Stop() {
	r.mu.Lock()
	sink := r.sink
	final := r.FinalFragments
	r.sink = nil
	r.CallCountStop++
	r.mu.Unlock()

	if sink != nil {
		sink.OnResult(speech.Result{Fragments: final, IsLast: true})
	}
}

// Language implements [speech.Recognizer].
func (r *Recognizer) Language() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Lang == "" {
		return "en-GB"
	}
	return r.Lang
}

// EmitResult delivers an interim result through the captured sink, as the
// live recognizer would mid-session. A no-op when no session is live.
func (r *Recognizer) EmitResult(res speech.Result) {
	r.mu.Lock()
	sink := r.sink
	if res.IsLast {
		r.sink = nil
	}
	r.mu.Unlock()
	if sink != nil {
		sink.OnResult(res)
	}
}

// EmitError delivers a recognizer failure through the captured sink and ends
// the session. A no-op when no session is live.
func (r *Recognizer) EmitError(err error) {
	r.mu.Lock()
	sink := r.sink
	r.sink = nil
	r.mu.Unlock()
	if sink != nil {
		sink.OnError(err)
	}
}

// Listening reports whether a session is live (Start succeeded and no end or
// error has been delivered yet).
func (r *Recognizer) Listening() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sink != nil
}
