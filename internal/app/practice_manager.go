package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/speaklab/speaklab/internal/content"
	"github.com/speaklab/speaklab/internal/practice"
	"github.com/speaklab/speaklab/pkg/capture"
	"github.com/speaklab/speaklab/pkg/speech"
	"github.com/speaklab/speaklab/pkg/speech/synth"
	"github.com/speaklab/speaklab/pkg/types"
)

// frameFeeder is implemented by recognizers that consume raw audio pushed
// from the capture side (the whisper recognizer does; browser-native ones
// would not).
type frameFeeder interface {
	Feed(types.AudioFrame)
}

// PracticeInfo holds metadata about the sentence currently under practice.
type PracticeInfo struct {
	// ArticleID identifies the article the sentence was taken from.
	ArticleID int64 `json:"article_id"`

	// Index is the zero-based sentence index within the article.
	Index int `json:"index"`

	// Sentence is the plain-text target sentence.
	Sentence string `json:"sentence"`

	// SelectedAt is when this sentence was selected for practice.
	SelectedAt time.Time `json:"selected_at"`
}

// PracticeSnapshot is a point-in-time view of the active practice attempt,
// shaped for the HTTP API.
type PracticeSnapshot struct {
	PracticeInfo

	Status     string    `json:"status"`
	Note       string    `json:"note,omitempty"`
	Transcript string    `json:"transcript,omitempty"`
	Score      *int      `json:"score,omitempty"`
	Waveform   []float64 `json:"waveform,omitempty"`
	Reference  []float64 `json:"reference,omitempty"`
}

// PracticeManagerConfig holds all dependencies for a [PracticeManager].
type PracticeManagerConfig struct {
	Microphone  capture.Microphone
	Recognizer  speech.Recognizer
	Synthesizer synth.Synthesizer
	Articles    content.Store
	Telemetry   practice.Telemetry

	// WaveformSamples and SampleInterval tune the capture engines created
	// for each practice session. Zero values keep the engine defaults.
	WaveformSamples int
	SampleInterval  time.Duration
}

// PracticeManager manages the lifecycle of practice attempts. Only one
// sentence is under practice at a time; selecting a new sentence discards
// the previous attempt. All exported methods are safe for concurrent use.
type PracticeManager struct {
	mu      sync.Mutex
	session *practice.Session
	info    PracticeInfo

	mic       capture.Microphone
	rec       speech.Recognizer
	voice     synth.Synthesizer
	articles  content.Store
	telemetry practice.Telemetry

	waveformSamples int
	sampleInterval  time.Duration
}

// NewPracticeManager creates a PracticeManager with the given dependencies.
func NewPracticeManager(cfg PracticeManagerConfig) *PracticeManager {
	return &PracticeManager{
		mic:             cfg.Microphone,
		rec:             cfg.Recognizer,
		voice:           cfg.Synthesizer,
		articles:        cfg.Articles,
		telemetry:       cfg.Telemetry,
		waveformSamples: cfg.WaveformSamples,
		sampleInterval:  cfg.SampleInterval,
	}
}

// Select loads the article, picks the sentence at index, and replaces any
// previous practice session with a fresh one targeting that sentence. A live
// attempt on the previous sentence is stopped and released first.
func (pm *PracticeManager) Select(ctx context.Context, articleID int64, index int) (PracticeInfo, error) {
	art, err := pm.articles.Get(ctx, articleID)
	if err != nil {
		return PracticeInfo{}, fmt.Errorf("app: load article %d: %w", articleID, err)
	}

	sentences := content.SplitSentences(art.PlainText())
	if index < 0 || index >= len(sentences) {
		return PracticeInfo{}, fmt.Errorf("app: sentence index %d out of range for article %d (%d sentences)",
			index, articleID, len(sentences))
	}
	target := sentences[index]

	pm.mu.Lock()
	defer pm.mu.Unlock()

	if pm.session != nil {
		pm.session.Close()
	}
	pm.session = pm.newSession(target)
	pm.info = PracticeInfo{
		ArticleID:  articleID,
		Index:      index,
		Sentence:   target,
		SelectedAt: time.Now().UTC(),
	}

	slog.Info("sentence selected for practice",
		"article_id", articleID,
		"index", index,
		"sentence", target,
	)
	return pm.info, nil
}

// newSession builds a practice session with fresh capture and recognition
// engines. Recognizers that consume pushed audio are wired to the capture
// engine's fragment observer.
func (pm *PracticeManager) newSession(target string) *practice.Session {
	var capOpts []capture.Option
	if pm.waveformSamples > 0 {
		capOpts = append(capOpts, capture.WithWaveformSamples(pm.waveformSamples))
	}
	if pm.sampleInterval > 0 {
		capOpts = append(capOpts, capture.WithSampleInterval(pm.sampleInterval))
	}
	if feeder, ok := pm.rec.(frameFeeder); ok {
		capOpts = append(capOpts, capture.WithFragmentObserver(feeder.Feed))
	}

	opts := []practice.Option{}
	if pm.voice != nil {
		opts = append(opts, practice.WithSynthesizer(pm.voice))
	}
	if pm.telemetry != nil {
		opts = append(opts, practice.WithTelemetry(pm.telemetry))
	}

	return practice.NewSession(target,
		capture.NewEngine(pm.mic, capOpts...),
		speech.NewEngine(pm.rec),
		opts...,
	)
}

// Begin starts listening on the current sentence.
func (pm *PracticeManager) Begin(ctx context.Context) error {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	if pm.session == nil {
		return fmt.Errorf("app: no sentence selected")
	}
	pm.session.Begin(ctx)
	return nil
}

// End stops listening and scores the attempt.
func (pm *PracticeManager) End() error {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	if pm.session == nil {
		return fmt.Errorf("app: no sentence selected")
	}
	pm.session.End()
	return nil
}

// SpeakReference plays the target sentence through the synthesizer.
func (pm *PracticeManager) SpeakReference(ctx context.Context) error {
	pm.mu.Lock()
	ses := pm.session
	pm.mu.Unlock()
	if ses == nil {
		return fmt.Errorf("app: no sentence selected")
	}
	return ses.SpeakReference(ctx)
}

// Snapshot returns the current practice state. The second return value is
// false when no sentence has been selected yet.
func (pm *PracticeManager) Snapshot() (PracticeSnapshot, bool) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	if pm.session == nil {
		return PracticeSnapshot{}, false
	}

	snap := PracticeSnapshot{
		PracticeInfo: pm.info,
		Status:       pm.session.Status().String(),
		Note:         pm.session.Note(),
		Transcript:   pm.session.Transcript(),
		Waveform:     pm.session.Waveform(),
		Reference:    pm.session.ReferenceWaveform(),
	}
	if score, ok := pm.session.Score(); ok {
		snap.Score = &score
	}
	return snap, true
}

// Clear discards the current selection, releasing any live attempt.
func (pm *PracticeManager) Clear() {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	if pm.session == nil {
		return
	}
	pm.session.Close()
	pm.session = nil
	pm.info = PracticeInfo{}
	slog.Info("practice selection cleared")
}
