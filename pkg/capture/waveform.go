package capture

// midpoint is the silence level of the unsigned 8-bit time-domain samples
// produced by an [Analyzer].
const midpoint = 128

// DefaultWaveformSamples is the fixed target length of a waveform snapshot.
const DefaultWaveformSamples = 64

// Downsample maps a raw time-domain buffer of unsigned samples centered at
// 128 into amplitude values in [-1, 1], selecting samples at a fixed stride
// of floor(len(raw)/target) (minimum 1) to produce at most target values.
//
// When the raw buffer is shorter than target the snapshot is shorter too —
// accepted truncation, not an error. A nil or empty buffer yields nil.
func Downsample(raw []byte, target int) []float64 {
	if len(raw) == 0 || target <= 0 {
		return nil
	}

	step := len(raw) / target
	if step < 1 {
		step = 1
	}

	out := make([]float64, 0, target)
	for i := 0; i < len(raw) && len(out) < target; i += step {
		out = append(out, (float64(raw[i])-midpoint)/midpoint)
	}
	return out
}
