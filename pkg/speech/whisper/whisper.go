// Package whisper implements [speech.Recognizer] on top of the whisper.cpp
// CGO bindings. The whisper.cpp static library (libwhisper.a) and headers
// (whisper.h) must be available at link time via LIBRARY_PATH and
// C_INCLUDE_PATH environment variables.
//
// The recognizer runs continuous recognition over audio pushed into it with
// [Recognizer.Feed]: interim results are produced on a fixed cadence over
// the accumulated session audio, and a final result is produced when the
// session is stopped. The model is loaded once at construction and shared
// across sessions; each inference uses a fresh whisper context because
// contexts are not thread-safe.
package whisper

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	whisperlib "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"github.com/speaklab/speaklab/pkg/speech"
	"github.com/speaklab/speaklab/pkg/types"
)

const (
	defaultLanguageTag     = "en-GB"
	defaultSampleRate      = 16000
	defaultInterimInterval = 2 * time.Second
)

// Compile-time assertion that Recognizer satisfies speech.Recognizer.
var _ speech.Recognizer = (*Recognizer)(nil)

// Recognizer is a continuous speech recognizer backed by a local whisper.cpp
// model. One session is live at a time.
type Recognizer struct {
	model      whisperlib.Model
	language   string
	sampleRate int
	interim    time.Duration

	mu      sync.Mutex
	session *session
}

// Option is a functional option for configuring a Recognizer.
type Option func(*Recognizer)

// WithLanguage sets the BCP-47 language tag recognition runs in
// (e.g. "en-GB"). Defaults to "en-GB". Whisper itself only consumes the
// primary subtag; the full tag is what Language reports.
func WithLanguage(tag string) Option {
	return func(r *Recognizer) { r.language = tag }
}

// WithSampleRate sets the sample rate in Hz of the PCM audio delivered via
// Feed. Defaults to 16000, whisper's native rate.
func WithSampleRate(rate int) Option {
	return func(r *Recognizer) { r.sampleRate = rate }
}

// WithInterimInterval sets the cadence at which interim results are produced
// while a session is live. Defaults to 2 s.
func WithInterimInterval(d time.Duration) Option {
	return func(r *Recognizer) { r.interim = d }
}

// New creates a Recognizer that loads the whisper.cpp model from the given
// file path. The caller must call Close when the recognizer is no longer
// needed.
func New(modelPath string, opts ...Option) (*Recognizer, error) {
	if modelPath == "" {
		return nil, errors.New("whisper: modelPath must not be empty")
	}
	model, err := whisperlib.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("whisper: load model %q: %w", modelPath, err)
	}

	r := &Recognizer{
		model:      model,
		language:   defaultLanguageTag,
		sampleRate: defaultSampleRate,
		interim:    defaultInterimInterval,
	}
	for _, o := range opts {
		o(r)
	}
	return r, nil
}

// Close releases the whisper model. Any live session is stopped first.
func (r *Recognizer) Close() error {
	r.Stop()
	if r.model != nil {
		return r.model.Close()
	}
	return nil
}

// Supported implements [speech.Recognizer].
func (r *Recognizer) Supported() bool {
	return r.model != nil
}

// Language implements [speech.Recognizer].
func (r *Recognizer) Language() string {
	return r.language
}

// Start implements [speech.Recognizer]. It begins a session that consumes
// audio from Feed and delivers interim and final results to sink.
func (r *Recognizer) Start(ctx context.Context, sink speech.EventSink) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.session != nil {
		return errors.New("whisper: session already running")
	}

	s := &session{
		rec:     r,
		sink:    sink,
		audioCh: make(chan []byte, 256),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	r.session = s
	go s.run(ctx)
	return nil
}

// Stop implements [speech.Recognizer]. It requests a graceful end: the final
// result arrives through the sink once the session's last inference finishes.
func (r *Recognizer) Stop() {
	r.mu.Lock()
	s := r.session
	r.mu.Unlock()
	if s == nil {
		return
	}
	s.once.Do(func() { close(s.stop) })
}

// Feed pushes one captured audio frame into the live session. Frames fed
// while no session is live are dropped. Feed never blocks: when the session
// cannot keep up the frame is discarded.
func (r *Recognizer) Feed(frame types.AudioFrame) {
	r.mu.Lock()
	s := r.session
	r.mu.Unlock()
	if s == nil {
		return
	}

	chunk := make([]byte, len(frame.Data))
	copy(chunk, frame.Data)
	select {
	case s.audioCh <- chunk:
	case <-s.stop:
	default:
		slog.Warn("whisper: dropping audio frame, session backlogged",
			"bytes", len(chunk))
	}
}

// detach clears the recognizer's session pointer if it still points at s.
func (r *Recognizer) detach(s *session) {
	r.mu.Lock()
	if r.session == s {
		r.session = nil
	}
	r.mu.Unlock()
}

// ---- session ----------------------------------------------------------------

// session is one live recognition run. All buffering state is confined to
// the run goroutine.
type session struct {
	rec  *Recognizer
	sink speech.EventSink

	audioCh chan []byte
	stop    chan struct{}
	done    chan struct{}
	once    sync.Once
}

// run accumulates session audio, emits an interim result on every cadence
// tick, and emits the final result on stop or context cancellation.
func (s *session) run(ctx context.Context) {
	defer close(s.done)
	defer s.rec.detach(s)

	ticker := time.NewTicker(s.rec.interim)
	defer ticker.Stop()

	var buffer []byte

	drain := func() {
		for {
			select {
			case chunk := <-s.audioCh:
				buffer = append(buffer, chunk...)
			default:
				return
			}
		}
	}

	finish := func() {
		drain()
		frags, err := s.infer(buffer, true)
		if err != nil {
			s.sink.OnError(err)
			return
		}
		s.sink.OnResult(speech.Result{Fragments: frags, IsLast: true})
	}

	for {
		select {
		case <-ctx.Done():
			finish()
			return

		case <-s.stop:
			finish()
			return

		case chunk := <-s.audioCh:
			buffer = append(buffer, chunk...)

		case <-ticker.C:
			drain()
			if len(buffer) == 0 {
				continue
			}
			frags, err := s.infer(buffer, false)
			if err != nil {
				slog.Error("whisper interim inference failed", "error", err)
				continue
			}
			if frags != nil {
				s.sink.OnResult(speech.Result{Fragments: frags})
			}
		}
	}
}

// infer runs whisper.cpp over the whole session buffer and returns the
// cumulative fragment list. On the final pass segments are marked committed.
// An empty buffer or empty transcription yields nil fragments, which on the
// final pass becomes a bare end signal.
func (s *session) infer(pcm []byte, final bool) ([]speech.Fragment, error) {
	if len(pcm) == 0 {
		return nil, nil
	}
	samples := pcmToFloat32(pcm)

	wctx, err := s.rec.model.NewContext()
	if err != nil {
		return nil, fmt.Errorf("whisper: create context: %w", err)
	}

	if err := wctx.SetLanguage(primarySubtag(s.rec.language)); err != nil {
		slog.Warn("whisper: failed to set language, using default",
			"language", s.rec.language, "error", err)
	}

	if err := wctx.Process(samples, nil, nil, nil); err != nil {
		return nil, fmt.Errorf("whisper: process audio: %w", err)
	}

	var frags []speech.Fragment
	for {
		segment, err := wctx.NextSegment()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("whisper: read segment: %w", err)
		}
		text := strings.TrimSpace(segment.Text)
		if text == "" {
			continue
		}
		frags = append(frags, speech.Fragment{Text: text, IsFinal: final})
	}
	return frags, nil
}

// primarySubtag reduces a BCP-47 tag to the primary language subtag whisper
// understands ("en-GB" -> "en").
func primarySubtag(tag string) string {
	if i := strings.IndexByte(tag, '-'); i > 0 {
		return tag[:i]
	}
	return tag
}

// pcmToFloat32 converts 16-bit signed little-endian PCM audio to float32
// samples normalised to the range [-1.0, 1.0]. Any trailing odd byte is
// silently ignored.
func pcmToFloat32(pcm []byte) []float32 {
	n := len(pcm) / 2
	samples := make([]float32, n)
	for i := range n {
		sample := int16(binary.LittleEndian.Uint16(pcm[i*2 : i*2+2]))
		samples[i] = float32(sample) / 32768.0
	}
	return samples
}
