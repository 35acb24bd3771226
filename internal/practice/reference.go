package practice

import (
	"math"
	"strings"

	"github.com/speaklab/speaklab/pkg/score"
)

// referenceSamples matches the live waveform's fixed sample count.
const referenceSamples = 64

// ReferenceWaveform derives a deterministic pseudo-waveform from text: a
// sine envelope offset per sample by a hash of the sentence's words (word
// length plus first rune), clamped to [-1, 1]. It is a stand-in shape shown
// next to the live waveform, not an acoustic rendering. Empty or
// letter-free text yields nil.
func ReferenceWaveform(text string) []float64 {
	clean := score.Normalize(text)
	if clean == "" {
		return nil
	}

	words := strings.Fields(clean)
	hashes := make([]int, len(words))
	for i, w := range words {
		r := []rune(w)
		hashes[i] = len(r) + int(r[0])
	}

	out := make([]float64, referenceSamples)
	for i := range out {
		seed := hashes[i%len(hashes)]
		if seed == 0 {
			seed = 1
		}
		v := math.Sin(float64(i)/referenceSamples*2*math.Pi)*0.6 + float64(seed%7)/14
		out[i] = math.Max(-1, math.Min(1, v))
	}
	return out
}
