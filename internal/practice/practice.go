// Package practice implements the per-sentence practice session: the state
// machine that drives the capture and recognition engines together, invokes
// the similarity scorer once both have settled, and exposes a single status
// surface to the presentation layer.
//
// Commands flow one way (session to engines) and events flow the other
// (engines to session state read at transition time). The session never
// propagates engine failures as errors across its boundary: every failure
// completes the state transition and surfaces through the note string.
package practice

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/speaklab/speaklab/pkg/capture"
	"github.com/speaklab/speaklab/pkg/score"
	"github.com/speaklab/speaklab/pkg/speech/synth"
)

// Status is the practice session state.
type Status int

const (
	// StatusIdle means no practice attempt is in progress.
	StatusIdle Status = iota
	// StatusListening means both engines are live and consuming the user's
	// speech.
	StatusListening
	// StatusScoring is the synchronous window between the end command and the
	// committed result.
	StatusScoring
	// StatusResult means the attempt is finished; the score, when speech was
	// detected, is committed.
	StatusResult
	// StatusUnsupported means a capability probe failed; practice cannot run
	// on this host.
	StatusUnsupported
)

// String returns the lowercase status name.
func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusListening:
		return "listening"
	case StatusScoring:
		return "scoring"
	case StatusResult:
		return "result"
	case StatusUnsupported:
		return "unsupported"
	default:
		return "unknown"
	}
}

// CaptureEngine is the slice of the capture engine the session drives.
type CaptureEngine interface {
	Supported() bool
	Start(ctx context.Context) error
	Stop()
	Reset()
	Waveform() []float64
	Asset() *capture.Asset
}

// RecognitionEngine is the slice of the recognition engine the session
// drives. Start failures land in LastErr rather than being returned.
type RecognitionEngine interface {
	Supported() bool
	Start(ctx context.Context)
	Stop()
	ResetTranscript()
	Transcript() string
	LastErr() error
	Language() string
}

// Telemetry receives session lifecycle signals. The [internal/observe]
// metrics implement it; the zero session uses a no-op.
type Telemetry interface {
	SessionStarted()
	SessionEnded(status string)
	RecordScore(score int)
	ObserveListenDuration(d time.Duration)
	EngineError(engine string)
}

type nopTelemetry struct{}

func (nopTelemetry) SessionStarted()                     {}
func (nopTelemetry) SessionEnded(string)                 {}
func (nopTelemetry) RecordScore(int)                     {}
func (nopTelemetry) ObserveListenDuration(time.Duration) {}
func (nopTelemetry) EngineError(string)                  {}

// Session owns one sentence under practice. It is created when the sentence
// is presented and closed when it is dismissed; each begin command opens a
// fresh capture/recognition attempt. All methods are safe for concurrent
// use.
type Session struct {
	target     string
	normalized string
	reference  []float64

	cap   CaptureEngine
	rec   RecognitionEngine
	voice synth.Synthesizer
	tel   Telemetry

	mu       sync.Mutex
	status   Status
	score    int
	hasScore bool
	note     string
	listenAt time.Time
}

// Option is a functional option for configuring a Session.
type Option func(*Session)

// WithSynthesizer injects the reference-pronunciation synthesizer used by
// SpeakReference. Without one, SpeakReference is a no-op.
func WithSynthesizer(s synth.Synthesizer) Option {
	return func(p *Session) { p.voice = s }
}

// WithTelemetry injects the metrics sink for session lifecycle signals.
func WithTelemetry(t Telemetry) Option {
	return func(p *Session) { p.tel = t }
}

// NewSession creates a practice session for target, driving the given
// engines. The normalized target and the reference waveform are derived once
// here; target is immutable afterwards.
func NewSession(target string, cap CaptureEngine, rec RecognitionEngine, opts ...Option) *Session {
	s := &Session{
		target:     target,
		normalized: score.Normalize(target),
		reference:  ReferenceWaveform(target),
		cap:        cap,
		rec:        rec,
		tel:        nopTelemetry{},
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Begin opens a practice attempt. When either capability probe fails the
// session lands in Unsupported with a blocking note. Otherwise the previous
// attempt's artifacts are discarded, both engines are started (capture
// first, recognition second, both attempted even when the first fails), and
// any start failure surfaces in the note with the session back at Idle and
// nothing left acquired.
//
// Begin while already Listening performs a full stop-and-restart: the live
// attempt is torn down, then the fresh one opens through the same reset
// path.
func (s *Session) Begin(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.cap.Supported() || !s.rec.Supported() {
		s.status = StatusUnsupported
		s.note = "audio capture or speech recognition is not available on this host"
		return
	}

	if s.status == StatusListening {
		slog.Debug("practice: restarting live attempt", "target", s.target)
		s.cap.Stop()
		s.rec.Stop()
		s.tel.SessionEnded("restarted")
	}

	s.cap.Reset()
	s.rec.ResetTranscript()
	s.hasScore = false
	s.score = 0
	s.note = "Listening..."

	capErr := s.cap.Start(ctx)
	s.rec.Start(ctx)
	recErr := s.rec.LastErr()

	if capErr != nil || recErr != nil {
		// Release whichever side did come up.
		s.cap.Stop()
		s.rec.Stop()
		s.status = StatusIdle
		switch {
		case capErr != nil:
			s.tel.EngineError("capture")
			s.note = "could not start the microphone: " + capErr.Error()
			slog.Warn("practice: capture start failed", "error", capErr)
		default:
			s.tel.EngineError("recognition")
			s.note = "could not start speech recognition: " + recErr.Error()
			slog.Warn("practice: recognition start failed", "error", recErr)
		}
		return
	}

	s.status = StatusListening
	s.listenAt = time.Now()
	s.tel.SessionStarted()
	slog.Info("practice: attempt started", "target", s.target, "language", s.rec.Language())
}

// End closes the live attempt: capture stops first so the recorded asset is
// finalized before recognition teardown, then the score is computed
// synchronously from whatever transcript has settled by now. Recognition
// events arriving after the scoring step cannot change the committed score.
// End while Idle, Result, or Unsupported is a no-op.
func (s *Session) End() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != StatusListening {
		return
	}

	s.cap.Stop()
	s.rec.Stop()
	s.status = StatusScoring
	s.note = "Processing your speech..."
	s.tel.ObserveListenDuration(time.Since(s.listenAt))

	transcript := score.Normalize(s.rec.Transcript())
	recErr := s.rec.LastErr()

	switch {
	case transcript != "":
		s.score = score.Similarity(s.normalized, transcript)
		s.hasScore = true
		s.note = ""
		s.tel.RecordScore(s.score)
		slog.Info("practice: attempt scored", "score", s.score, "transcript", transcript)
	case recErr != nil:
		s.tel.EngineError("recognition")
		s.note = "speech recognition failed: " + recErr.Error()
		slog.Warn("practice: attempt ended with recognition failure", "error", recErr)
	default:
		s.note = "no speech detected"
		slog.Info("practice: attempt ended without speech")
	}

	s.status = StatusResult
	s.tel.SessionEnded(s.status.String())
}

// Close tears the session down regardless of state: any live engines are
// stopped and the recorded asset is invalidated. The session returns to Idle
// and may be reused, but callers normally discard it.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status == StatusListening || s.status == StatusScoring {
		s.cap.Stop()
		s.rec.Stop()
		s.tel.SessionEnded("closed")
	}
	s.cap.Reset()
	s.hasScore = false
	s.score = 0
	s.note = ""
	if s.status != StatusUnsupported {
		s.status = StatusIdle
	}
}

// SpeakReference plays the target sentence through the injected synthesizer
// in the recognizer's language. A no-op when no synthesizer is available.
func (s *Session) SpeakReference(ctx context.Context) error {
	if s.voice == nil || !s.voice.Supported() {
		return nil
	}
	return s.voice.Speak(ctx, s.target, s.rec.Language())
}

// Target returns the sentence under practice.
func (s *Session) Target() string { return s.target }

// Status returns the current session state.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Score returns the committed score and whether one exists. The score is
// present only in Result, and only when speech was detected.
func (s *Session) Score() (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.score, s.hasScore
}

// Note returns the user-facing status string. Purely derivational of recent
// transitions, never authoritative state.
func (s *Session) Note() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.note
}

// Transcript returns the recognition engine's current aggregate transcript.
func (s *Session) Transcript() string {
	return s.rec.Transcript()
}

// Waveform returns the capture engine's latest waveform snapshot.
func (s *Session) Waveform() []float64 {
	return s.cap.Waveform()
}

// Asset returns the recorded audio of the last finished attempt, nil when
// none exists.
func (s *Session) Asset() *capture.Asset {
	return s.cap.Asset()
}

// ReferenceWaveform returns the deterministic pseudo-waveform derived from
// the target sentence, for display next to the live one.
func (s *Session) ReferenceWaveform() []float64 {
	out := make([]float64, len(s.reference))
	copy(out, s.reference)
	return out
}
