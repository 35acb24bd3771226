// Package types defines the shared types used across all speaklab packages.
//
// Each package defines its own domain types; the cross-cutting data
// structures that would otherwise create circular imports live here.
package types

import "time"

// AudioFrame represents a single frame of audio data flowing through the
// capture pipeline. Frames are the atomic unit of audio transport — captured
// from the microphone, recorded into the session asset, and forwarded to
// recognizer capabilities that consume raw audio.
type AudioFrame struct {
	// Data is raw 16-bit signed little-endian PCM.
	Data []byte

	// SampleRate in Hz (16000 for the recognition-optimised capture format).
	SampleRate int

	// Channels is the number of interleaved channels. 1 for microphone capture.
	Channels int

	// Timestamp marks when this frame was captured, relative to stream start.
	Timestamp time.Duration
}

// Duration returns the playback duration of the frame, derived from its
// PCM length and format. Returns zero for a malformed format.
func (f AudioFrame) Duration() time.Duration {
	if f.SampleRate <= 0 || f.Channels <= 0 {
		return 0
	}
	samples := len(f.Data) / (2 * f.Channels)
	return time.Duration(samples) * time.Second / time.Duration(f.SampleRate)
}
