package app_test

import (
	"context"
	"errors"
	"testing"

	"github.com/speaklab/speaklab/internal/app"
	"github.com/speaklab/speaklab/internal/content"
	"github.com/speaklab/speaklab/pkg/capture/mock"
	"github.com/speaklab/speaklab/pkg/speech"
	specmock "github.com/speaklab/speaklab/pkg/speech/mock"
	"github.com/speaklab/speaklab/pkg/speech/synth"
)

// managerFixture bundles a PracticeManager with its injected mocks.
type managerFixture struct {
	mic   *mock.Microphone
	rec   *specmock.Recognizer
	voice *synth.Mock
	store *content.MemStore
	mgr   *app.PracticeManager
}

func newManagerFixture(t *testing.T) *managerFixture {
	t.Helper()
	f := &managerFixture{
		mic:   &mock.Microphone{},
		rec:   &specmock.Recognizer{},
		voice: &synth.Mock{},
		store: content.NewSeededMemStore(),
	}
	f.mgr = app.NewPracticeManager(app.PracticeManagerConfig{
		Microphone:  f.mic,
		Recognizer:  f.rec,
		Synthesizer: f.voice,
		Articles:    f.store,
	})
	return f
}

// firstSentence returns the first practice sentence of the given seeded article.
func (f *managerFixture) firstSentence(t *testing.T, articleID int64) string {
	t.Helper()
	art, err := f.store.Get(context.Background(), articleID)
	if err != nil {
		t.Fatalf("Get(%d): %v", articleID, err)
	}
	sentences := content.SplitSentences(art.PlainText())
	if len(sentences) == 0 {
		t.Fatalf("article %d has no sentences", articleID)
	}
	return sentences[0]
}

func TestPracticeManager_SelectBeginEnd(t *testing.T) {
	t.Parallel()
	f := newManagerFixture(t)

	target := f.firstSentence(t, 1)
	info, err := f.mgr.Select(context.Background(), 1, 0)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if info.Sentence != target {
		t.Errorf("selected sentence = %q, want %q", info.Sentence, target)
	}

	// The user repeats the sentence verbatim.
	f.rec.FinalFragments = []speech.Fragment{{Text: target, IsFinal: true}}

	if err := f.mgr.Begin(context.Background()); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	snap, ok := f.mgr.Snapshot()
	if !ok {
		t.Fatal("Snapshot: no selection after Begin")
	}
	if snap.Status != "listening" {
		t.Errorf("status = %q, want %q", snap.Status, "listening")
	}

	if err := f.mgr.End(); err != nil {
		t.Fatalf("End: %v", err)
	}
	snap, _ = f.mgr.Snapshot()
	if snap.Status != "result" {
		t.Errorf("status = %q, want %q", snap.Status, "result")
	}
	if snap.Score == nil || *snap.Score != 100 {
		t.Errorf("score = %v, want 100", snap.Score)
	}
	if len(snap.Reference) == 0 {
		t.Error("snapshot is missing the reference waveform")
	}
}

func TestPracticeManager_SelectUnknownArticle(t *testing.T) {
	t.Parallel()
	f := newManagerFixture(t)

	_, err := f.mgr.Select(context.Background(), 999, 0)
	if !errors.Is(err, content.ErrNotFound) {
		t.Errorf("Select error = %v, want content.ErrNotFound", err)
	}
}

func TestPracticeManager_SelectIndexOutOfRange(t *testing.T) {
	t.Parallel()
	f := newManagerFixture(t)

	if _, err := f.mgr.Select(context.Background(), 1, 10000); err == nil {
		t.Error("Select with out-of-range index did not fail")
	}
	if _, err := f.mgr.Select(context.Background(), 1, -1); err == nil {
		t.Error("Select with negative index did not fail")
	}
}

func TestPracticeManager_ReselectReleasesLiveAttempt(t *testing.T) {
	t.Parallel()
	f := newManagerFixture(t)

	if _, err := f.mgr.Select(context.Background(), 1, 0); err != nil {
		t.Fatalf("Select: %v", err)
	}
	if err := f.mgr.Begin(context.Background()); err != nil {
		t.Fatalf("Begin: %v", err)
	}

	if _, err := f.mgr.Select(context.Background(), 2, 0); err != nil {
		t.Fatalf("re-Select: %v", err)
	}
	if got := f.mic.LiveStreams(); got != 0 {
		t.Errorf("live streams after re-select = %d, want 0", got)
	}
	snap, _ := f.mgr.Snapshot()
	if snap.Status != "idle" {
		t.Errorf("status after re-select = %q, want %q", snap.Status, "idle")
	}
	if snap.ArticleID != 2 {
		t.Errorf("article id = %d, want 2", snap.ArticleID)
	}
}

func TestPracticeManager_NoSelection(t *testing.T) {
	t.Parallel()
	f := newManagerFixture(t)

	if err := f.mgr.Begin(context.Background()); err == nil {
		t.Error("Begin without selection did not fail")
	}
	if err := f.mgr.End(); err == nil {
		t.Error("End without selection did not fail")
	}
	if err := f.mgr.SpeakReference(context.Background()); err == nil {
		t.Error("SpeakReference without selection did not fail")
	}
	if _, ok := f.mgr.Snapshot(); ok {
		t.Error("Snapshot without selection reported a selection")
	}
}

func TestPracticeManager_ClearReleasesAttempt(t *testing.T) {
	t.Parallel()
	f := newManagerFixture(t)

	if _, err := f.mgr.Select(context.Background(), 1, 0); err != nil {
		t.Fatalf("Select: %v", err)
	}
	if err := f.mgr.Begin(context.Background()); err != nil {
		t.Fatalf("Begin: %v", err)
	}

	f.mgr.Clear()

	if got := f.mic.LiveStreams(); got != 0 {
		t.Errorf("live streams after Clear = %d, want 0", got)
	}
	if _, ok := f.mgr.Snapshot(); ok {
		t.Error("Snapshot after Clear reported a selection")
	}
	// Clear on an empty manager is a no-op.
	f.mgr.Clear()
}

func TestPracticeManager_SpeakReference(t *testing.T) {
	t.Parallel()
	f := newManagerFixture(t)

	info, err := f.mgr.Select(context.Background(), 1, 0)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if err := f.mgr.SpeakReference(context.Background()); err != nil {
		t.Fatalf("SpeakReference: %v", err)
	}
	if f.voice.CallCountSpeak != 1 {
		t.Errorf("Speak call count = %d, want 1", f.voice.CallCountSpeak)
	}
	if len(f.voice.Spoken) != 1 || f.voice.Spoken[0] != info.Sentence {
		t.Errorf("spoken = %v, want [%q]", f.voice.Spoken, info.Sentence)
	}
}
