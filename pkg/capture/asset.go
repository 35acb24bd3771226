package capture

import (
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"layeh.com/gopus"
)

// Asset encoding parameters. Capture runs at 16 kHz mono (the
// recognition-optimised format) and Opus frames are 20 ms.
const (
	assetSampleRate  = 16000
	assetChannels    = 1
	assetFrameSizeMs = 20
	// assetFrameSize is the number of samples per channel per 20 ms frame.
	assetFrameSize = assetSampleRate * assetFrameSizeMs / 1000 // 320
	// assetMaxPacketBytes bounds a single encoded Opus packet.
	assetMaxPacketBytes = 4000
)

// Asset is a materialized, replayable recording produced by [Engine.Stop].
// It holds the raw PCM of the finished recording together with its
// Opus-encoded packet sequence, and can be invalidated exactly once.
//
// An invalidated asset releases its underlying buffers and returns nil from
// all accessors; it never exposes a revoked buffer. Safe for concurrent use.
type Asset struct {
	mu      sync.Mutex
	pcm     []byte
	packets [][]byte
	dur     time.Duration
	valid   bool
}

// Valid reports whether the asset still references live audio data.
func (a *Asset) Valid() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.valid
}

// PCM returns the raw 16-bit little-endian mono PCM of the recording, or nil
// after invalidation. The returned slice must be treated as read-only.
func (a *Asset) PCM() []byte {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.valid {
		return nil
	}
	return a.pcm
}

// Packets returns the ordered Opus packets of the recording, or nil after
// invalidation. Each packet covers one 20 ms frame.
func (a *Asset) Packets() [][]byte {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.valid {
		return nil
	}
	return a.packets
}

// Duration returns the playback length of the recording. Zero after
// invalidation.
func (a *Asset) Duration() time.Duration {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.valid {
		return 0
	}
	return a.dur
}

// Invalidate revokes the asset and releases its buffers. Safe to call more
// than once; subsequent calls are no-ops.
func (a *Asset) Invalidate() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.valid = false
	a.pcm = nil
	a.packets = nil
	a.dur = 0
}

// newAsset materializes the ordered recording fragments into an [Asset],
// encoding the concatenated PCM into Opus packets. An encoding failure
// degrades to a PCM-only asset rather than losing the recording.
func newAsset(fragments [][]byte) (*Asset, error) {
	var total int
	for _, f := range fragments {
		total += len(f)
	}
	pcm := make([]byte, 0, total)
	for _, f := range fragments {
		pcm = append(pcm, f...)
	}

	samples := len(pcm) / 2
	a := &Asset{
		pcm:   pcm,
		dur:   time.Duration(samples) * time.Second / assetSampleRate,
		valid: true,
	}

	packets, err := encodeOpus(pcm)
	if err != nil {
		return a, err
	}
	a.packets = packets
	return a, nil
}

// encodeOpus chops 16 kHz mono PCM into 20 ms frames and encodes each with
// Opus. The trailing partial frame is zero-padded to a full frame.
func encodeOpus(pcm []byte) ([][]byte, error) {
	if len(pcm) == 0 {
		return nil, nil
	}

	enc, err := gopus.NewEncoder(assetSampleRate, assetChannels, gopus.Voip)
	if err != nil {
		return nil, fmt.Errorf("capture: create opus encoder: %w", err)
	}

	samples := bytesToInt16s(pcm)
	var packets [][]byte
	for off := 0; off < len(samples); off += assetFrameSize {
		frame := samples[off:min(off+assetFrameSize, len(samples))]
		if len(frame) < assetFrameSize {
			padded := make([]int16, assetFrameSize)
			copy(padded, frame)
			frame = padded
		}
		pkt, err := enc.Encode(frame, assetFrameSize, assetMaxPacketBytes)
		if err != nil {
			return nil, fmt.Errorf("capture: opus encode: %w", err)
		}
		packets = append(packets, pkt)
	}
	return packets, nil
}

// bytesToInt16s converts little-endian PCM bytes to int16 samples. A trailing
// odd byte is ignored.
func bytesToInt16s(b []byte) []int16 {
	n := len(b) / 2
	out := make([]int16, n)
	for i := range n {
		out[i] = int16(binary.LittleEndian.Uint16(b[i*2 : i*2+2]))
	}
	return out
}
