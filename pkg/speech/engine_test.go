package speech_test

import (
	"context"
	"errors"
	"testing"

	"github.com/speaklab/speaklab/pkg/speech"
	"github.com/speaklab/speaklab/pkg/speech/mock"
)

func frags(texts ...string) []speech.Fragment {
	out := make([]speech.Fragment, 0, len(texts))
	for _, t := range texts {
		out = append(out, speech.Fragment{Text: t})
	}
	return out
}

func TestEngine_AggregateReplacesNotAppends(t *testing.T) {
	t.Parallel()

	rec := &mock.Recognizer{}
	eng := speech.NewEngine(rec)

	eng.Start(context.Background())
	if !eng.IsListening() {
		t.Fatal("IsListening() = false after Start")
	}

	rec.EmitResult(speech.Result{Fragments: frags("good")})
	rec.EmitResult(speech.Result{Fragments: frags("good", "morning")})
	if got := eng.Transcript(); got != "good morning" {
		t.Errorf("Transcript = %q, want %q", got, "good morning")
	}

	// A revised cumulative list replaces the aggregate outright.
	rec.EmitResult(speech.Result{Fragments: frags("good", "evening")})
	if got := eng.Transcript(); got != "good evening" {
		t.Errorf("Transcript = %q, want %q (replace, not append)", got, "good evening")
	}
}

func TestEngine_StopDeliversFinalResult(t *testing.T) {
	t.Parallel()

	rec := &mock.Recognizer{
		FinalFragments: frags("good", "morning", "everyone"),
	}
	eng := speech.NewEngine(rec)

	eng.Start(context.Background())
	rec.EmitResult(speech.Result{Fragments: frags("good", "morn")})

	eng.Stop()

	if eng.IsListening() {
		t.Error("IsListening() = true after final result")
	}
	if got := eng.Transcript(); got != "good morning everyone" {
		t.Errorf("Transcript = %q, want final aggregate", got)
	}
	if rec.CallCountStop != 1 {
		t.Errorf("recognizer Stop calls = %d, want 1", rec.CallCountStop)
	}
}

func TestEngine_BareEndSignalKeepsTranscript(t *testing.T) {
	t.Parallel()

	rec := &mock.Recognizer{}
	eng := speech.NewEngine(rec)

	eng.Start(context.Background())
	rec.EmitResult(speech.Result{Fragments: frags("hello", "there")})

	// End of session without new text: listening drops, the aggregate stays.
	eng.Stop()

	if eng.IsListening() {
		t.Error("IsListening() = true after bare end signal")
	}
	if got := eng.Transcript(); got != "hello there" {
		t.Errorf("Transcript = %q, want %q", got, "hello there")
	}
}

func TestEngine_ErrorEventStopsListening(t *testing.T) {
	t.Parallel()

	rec := &mock.Recognizer{}
	eng := speech.NewEngine(rec)

	eng.Start(context.Background())
	recErr := errors.New("audio route lost")
	rec.EmitError(recErr)

	if eng.IsListening() {
		t.Error("IsListening() = true after error event")
	}
	if !errors.Is(eng.LastErr(), recErr) {
		t.Errorf("LastErr = %v, want %v", eng.LastErr(), recErr)
	}

	// The next Start clears the stored error.
	eng.Start(context.Background())
	if eng.LastErr() != nil {
		t.Errorf("LastErr after restart = %v, want nil", eng.LastErr())
	}
}

func TestEngine_StartRejectionStoredNotReturned(t *testing.T) {
	t.Parallel()

	startErr := errors.New("recognizer busy")
	rec := &mock.Recognizer{StartErr: startErr}
	eng := speech.NewEngine(rec)

	eng.Start(context.Background())

	if eng.IsListening() {
		t.Error("IsListening() = true after rejected Start")
	}
	if !errors.Is(eng.LastErr(), startErr) {
		t.Errorf("LastErr = %v, want %v", eng.LastErr(), startErr)
	}
}

func TestEngine_StartClearsPreviousTranscript(t *testing.T) {
	t.Parallel()

	rec := &mock.Recognizer{}
	eng := speech.NewEngine(rec)
	ctx := context.Background()

	eng.Start(ctx)
	rec.EmitResult(speech.Result{Fragments: frags("first", "attempt")})
	eng.Stop()

	eng.Start(ctx)
	if got := eng.Transcript(); got != "" {
		t.Errorf("Transcript after restart = %q, want empty", got)
	}
}

func TestEngine_StaleSessionEventsDiscarded(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	rec := &replayRecognizer{}
	eng2 := speech.NewEngine(rec)
	eng2.Start(ctx)
	oldSink := rec.lastSink()

	eng2.Stop()
	oldSink.OnResult(speech.Result{IsLast: true})
	eng2.Start(ctx)

	// The pre-restart sink must no longer reach the engine.
	oldSink.OnResult(speech.Result{Fragments: frags("stale", "text")})
	oldSink.OnError(errors.New("stale failure"))

	if got := eng2.Transcript(); got != "" {
		t.Errorf("Transcript = %q, stale result mutated the new session", got)
	}
	if eng2.LastErr() != nil {
		t.Errorf("LastErr = %v, stale error mutated the new session", eng2.LastErr())
	}
	if !eng2.IsListening() {
		t.Error("IsListening() = false, stale event ended the new session")
	}
}

// replayRecognizer keeps every sink it is handed so tests can replay events
// from superseded sessions.
type replayRecognizer struct {
	sinks []speech.EventSink
}

func (r *replayRecognizer) Supported() bool { return true }

func (r *replayRecognizer) Start(_ context.Context, sink speech.EventSink) error {
	r.sinks = append(r.sinks, sink)
	return nil
}

func (r *replayRecognizer) Stop()            {}
func (r *replayRecognizer) Language() string { return "en-GB" }

func (r *replayRecognizer) lastSink() speech.EventSink {
	return r.sinks[len(r.sinks)-1]
}

func TestEngine_ResetTranscript(t *testing.T) {
	t.Parallel()

	rec := &mock.Recognizer{}
	eng := speech.NewEngine(rec)

	eng.Start(context.Background())
	rec.EmitResult(speech.Result{Fragments: frags("something")})

	eng.ResetTranscript()

	if got := eng.Transcript(); got != "" {
		t.Errorf("Transcript after reset = %q, want empty", got)
	}
	if !eng.IsListening() {
		t.Error("ResetTranscript ended the session")
	}
}

func TestEngine_StopWhenIdleIsNoop(t *testing.T) {
	t.Parallel()

	rec := &mock.Recognizer{}
	eng := speech.NewEngine(rec)

	eng.Stop()
	eng.Stop()

	if rec.CallCountStop != 0 {
		t.Errorf("recognizer Stop calls = %d, want 0", rec.CallCountStop)
	}
}

func TestEngine_Unsupported(t *testing.T) {
	t.Parallel()

	rec := &mock.Recognizer{Unsupported: true}
	eng := speech.NewEngine(rec)

	if eng.Supported() {
		t.Error("Supported() = true for unsupported recognizer")
	}

	eng.Start(context.Background())
	if eng.IsListening() {
		t.Error("IsListening() = true on unsupported recognizer")
	}
	if rec.CallCountStart != 0 {
		t.Errorf("recognizer Start calls = %d, want 0", rec.CallCountStart)
	}
}

func TestEngine_Language(t *testing.T) {
	t.Parallel()

	eng := speech.NewEngine(&mock.Recognizer{Lang: "en-GB"})
	if got := eng.Language(); got != "en-GB" {
		t.Errorf("Language = %q, want en-GB", got)
	}
}
