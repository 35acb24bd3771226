// Package wsmic implements the capture interfaces over a WebSocket bridge:
// a companion client (typically a browser page with getUserMedia access)
// connects and streams 16-bit little-endian mono PCM as binary messages.
// This serves hosts without a local input device, keeping the capture engine
// unchanged.
//
// One client is served at a time; a second connection is rejected with a
// policy-violation close. Text messages are ignored.
package wsmic

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/coder/websocket"

	"github.com/speaklab/speaklab/pkg/capture"
)

// Compile-time assertion that Microphone satisfies capture.Microphone.
var _ capture.Microphone = (*Microphone)(nil)

// Microphone bridges a remote WebSocket client into the capture engine.
// Supported reports true while a client is connected; Acquire fails with
// [capture.ErrDeviceUnavailable] when none is.
type Microphone struct {
	mu       sync.Mutex
	conn     *websocket.Conn
	window   []byte
	delivery func([]byte)
	owner    *sink
}

// New creates a Microphone with no client connected yet.
func New() *Microphone {
	return &Microphone{}
}

// Handler returns the HTTP handler that accepts the companion client's
// WebSocket connection and pumps its audio into the bridge. Mount it on the
// server's mux (e.g. at /mic).
func (m *Microphone) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, nil)
		if err != nil {
			slog.Warn("wsmic: accept failed", "error", err)
			return
		}

		if !m.register(c) {
			c.Close(websocket.StatusPolicyViolation, "microphone client already connected")
			return
		}
		defer m.unregister(c)

		slog.Info("wsmic: microphone client connected", "remote", r.RemoteAddr)
		m.readLoop(r.Context(), c)
	})
}

// register installs c as the active client. It reports false when another
// client is already connected.
func (m *Microphone) register(c *websocket.Conn) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conn != nil {
		return false
	}
	m.conn = c
	return true
}

// unregister clears c if it is still the active client.
func (m *Microphone) unregister(c *websocket.Conn) {
	m.mu.Lock()
	if m.conn == c {
		m.conn = nil
		m.window = nil
	}
	m.mu.Unlock()
}

// readLoop consumes client messages until the connection ends. Binary
// messages carry PCM fragments; everything else is dropped.
func (m *Microphone) readLoop(ctx context.Context, c *websocket.Conn) {
	for {
		typ, data, err := c.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway && ctx.Err() == nil {
				slog.Warn("wsmic: client connection lost", "error", err)
			}
			c.Close(websocket.StatusNormalClosure, "")
			return
		}
		if typ != websocket.MessageBinary || len(data) == 0 {
			continue
		}
		m.deliver(data)
	}
}

// deliver publishes the analyzer window from the fragment and forwards the
// fragment to the live recording session, if any.
func (m *Microphone) deliver(pcm []byte) {
	window := pcmWindow(pcm)

	m.mu.Lock()
	m.window = window
	cb := m.delivery
	m.mu.Unlock()

	if cb != nil {
		frag := make([]byte, len(pcm))
		copy(frag, pcm)
		cb(frag)
	}
}

// Supported implements [capture.Microphone]. True while a client is
// connected.
func (m *Microphone) Supported() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.conn != nil
}

// Acquire implements [capture.Microphone].
func (m *Microphone) Acquire(ctx context.Context) (capture.Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("wsmic: acquire: %w", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conn == nil {
		return nil, fmt.Errorf("wsmic: no microphone client connected: %w",
			capture.ErrDeviceUnavailable)
	}
	s := &stream{mic: m}
	s.analyzer = &analyzer{mic: m}
	s.sink = &sink{mic: m}
	return s, nil
}

// attach installs the recording callback on behalf of s. An error is
// returned when another session already consumes the bridge.
func (m *Microphone) attach(s *sink, onFragment func([]byte)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.delivery != nil {
		return fmt.Errorf("wsmic: bridge already recording")
	}
	m.delivery = onFragment
	m.owner = s
	return nil
}

// detach removes the recording callback if s still owns it. A rejected
// session releasing its stream must not sever the live session's feed.
func (m *Microphone) detach(s *sink) {
	m.mu.Lock()
	if m.owner == s {
		m.delivery = nil
		m.owner = nil
	}
	m.mu.Unlock()
}

// ---- stream -----------------------------------------------------------------

type stream struct {
	mic      *Microphone
	analyzer *analyzer
	sink     *sink
}

func (s *stream) Analyzer() capture.Analyzer { return s.analyzer }
func (s *stream) Sink() capture.Sink         { return s.sink }

// Close implements [capture.Stream]. The client connection outlives the
// stream; only the recording attachment is released.
func (s *stream) Close() error {
	s.mic.detach(s.sink)
	return nil
}

type analyzer struct {
	mic *Microphone
}

// ReadTimeDomain implements [capture.Analyzer]. It returns the window derived
// from the most recent client fragment.
func (a *analyzer) ReadTimeDomain() []byte {
	a.mic.mu.Lock()
	defer a.mic.mu.Unlock()
	out := make([]byte, len(a.mic.window))
	copy(out, a.mic.window)
	return out
}

type sink struct {
	mic *Microphone
}

// Start implements [capture.Sink].
func (s *sink) Start(onFragment func([]byte)) error {
	return s.mic.attach(s, onFragment)
}

// Stop implements [capture.Sink]. The bridge delivers fragments as they
// arrive, so there is nothing to flush.
func (s *sink) Stop() error {
	s.mic.detach(s)
	return nil
}

// pcmWindow converts int16 little-endian PCM to the unsigned 8-bit
// time-domain representation the waveform sampler expects, midpoint 128.
func pcmWindow(pcm []byte) []byte {
	n := len(pcm) / 2
	window := make([]byte, n)
	for i := range n {
		sample := int16(uint16(pcm[i*2]) | uint16(pcm[i*2+1])<<8)
		window[i] = byte(128 + int(sample>>8))
	}
	return window
}
