// Package speech defines the continuous speech-to-text capability contract
// and the [Engine] that wraps it into one listening session at a time,
// maintaining the live aggregate transcript the practice orchestrator reads.
//
// The capability abstraction is [Recognizer]: a host-provided continuous
// recognizer that pushes [Result] events into an [EventSink] between Start
// and its own end-of-session or error event. Implementations are provided by
// adapter packages (speech/whisper for a local whisper.cpp model,
// speech/mock for tests).
//
// This package lives under pkg/ because external code (alternative
// recognizer adapters) is expected to implement [Recognizer].
package speech

import "context"

// Fragment is one candidate text piece of a recognition result.
type Fragment struct {
	// Text is the recognized text of this fragment.
	Text string

	// IsFinal indicates whether the recognizer has committed to this
	// fragment (final) or may still revise it (interim).
	IsFinal bool
}

// Result is an incremental recognition event. Fragments carries the full
// cumulative fragment list for the session so far — interim fragments
// included — so every event fully describes the recognizer's current best
// transcript. IsLast marks the recognizer's own end of session; a Result
// with IsLast set and nil Fragments is a bare end signal carrying no new
// text.
type Result struct {
	Fragments []Fragment
	IsLast    bool
}

// EventSink receives recognizer events. The [Engine] implements EventSink;
// recognizer adapters call it from whatever goroutine delivers their events.
//
// Implementations must be safe for concurrent use.
type EventSink interface {
	// OnResult delivers an incremental recognition result.
	OnResult(r Result)

	// OnError reports a recognizer failure. The session is over: no further
	// events follow for it.
	OnError(err error)
}

// Recognizer is the continuous speech-to-text capability. One session is
// live between a successful Start and the recognizer's end or error event.
//
// Implementations must be safe for concurrent use.
type Recognizer interface {
	// Supported reports whether the capability is available on this host.
	// The result is fixed for the lifetime of the process.
	Supported() bool

	// Start begins a listening session delivering events to sink. Returns an
	// error when the session cannot begin (already running, capability
	// rejected). The supplied ctx bounds the session's background work.
	Start(ctx context.Context, sink EventSink) error

	// Stop requests a graceful end of the session. The recognizer finishes
	// asynchronously: its last Result (IsLast set) or error arrives through
	// the sink, not from Stop itself. Stop on an idle recognizer is a no-op.
	Stop()

	// Language returns the BCP-47 tag the recognizer was built for
	// (e.g. "en-GB"). Fixed at construction.
	Language() string
}
