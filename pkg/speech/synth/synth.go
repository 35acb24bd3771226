// Package synth defines the text-to-speech capability contract used to play
// back reference pronunciations. Implementations are host-provided; this
// package ships only the contract and a scripted [Mock] for tests.
package synth

import (
	"context"
	"sync"
)

// Synthesizer speaks a piece of text aloud in the given BCP-47 language.
//
// Implementations must be safe for concurrent use.
type Synthesizer interface {
	// Supported reports whether synthesis is available on this host. The
	// result is fixed for the lifetime of the process.
	Supported() bool

	// Speak utters text in the given language, blocking until playback has
	// been handed off to the audio device. The supplied ctx bounds the
	// hand-off, not the playback itself.
	Speak(ctx context.Context, text, language string) error
}

// Mock is a scripted implementation of [Synthesizer] for tests. The zero
// value is a supported synthesizer whose Speak succeeds.
type Mock struct {
	mu sync.Mutex

	// Unsupported makes Supported report false.
	Unsupported bool

	// SpeakErr, when non-nil, is returned by Speak.
	SpeakErr error

	// CallCountSpeak records how many times Speak was called.
	CallCountSpeak int

	// Spoken holds every text passed to Speak, in order.
	Spoken []string
}

var _ Synthesizer = (*Mock)(nil)

// Supported implements [Synthesizer].
func (m *Mock) Supported() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.Unsupported
}

// Speak implements [Synthesizer]. It records text and returns SpeakErr.
func (m *Mock) Speak(_ context.Context, text, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CallCountSpeak++
	if m.SpeakErr != nil {
		return m.SpeakErr
	}
	m.Spoken = append(m.Spoken, text)
	return nil
}
