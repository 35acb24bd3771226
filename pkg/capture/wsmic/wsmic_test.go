package wsmic_test

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/speaklab/speaklab/pkg/capture"
	"github.com/speaklab/speaklab/pkg/capture/wsmic"
)

func TestMicrophone_AcquireWithoutClient(t *testing.T) {
	t.Parallel()

	mic := wsmic.New()
	if mic.Supported() {
		t.Error("Supported() = true without a connected client")
	}
	if _, err := mic.Acquire(context.Background()); !errors.Is(err, capture.ErrDeviceUnavailable) {
		t.Errorf("Acquire error = %v, want ErrDeviceUnavailable", err)
	}
}

func TestMicrophone_ClientStreamsFragments(t *testing.T) {
	t.Parallel()

	mic := wsmic.New()
	srv := httptest.NewServer(mic.Handler())
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := strings.Replace(srv.URL, "http", "ws", 1)
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	// Registration happens on the server side of the handshake.
	deadline := time.Now().Add(2 * time.Second)
	for !mic.Supported() && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if !mic.Supported() {
		t.Fatal("Supported() = false after client connected")
	}

	stream, err := mic.Acquire(ctx)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer stream.Close()

	var (
		mu    sync.Mutex
		frags [][]byte
	)
	if err := stream.Sink().Start(func(f []byte) {
		mu.Lock()
		frags = append(frags, f)
		mu.Unlock()
	}); err != nil {
		t.Fatalf("sink Start: %v", err)
	}

	pcm := []byte{0, 0, 0, 64, 0, 192, 255, 127} // int16 LE samples
	if err := conn.Write(ctx, websocket.MessageBinary, pcm); err != nil {
		t.Fatalf("write: %v", err)
	}

	for time.Now().Before(deadline) {
		mu.Lock()
		n := len(frags)
		mu.Unlock()
		if n > 0 {
			break
		}
		time.Sleep(time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(frags) == 0 {
		t.Fatal("no fragment delivered from client audio")
	}
	if got := frags[0]; len(got) != len(pcm) {
		t.Errorf("fragment length = %d, want %d", len(got), len(pcm))
	}

	window := stream.Analyzer().ReadTimeDomain()
	if len(window) != len(pcm)/2 {
		t.Errorf("analyzer window length = %d, want %d", len(window), len(pcm)/2)
	}
}

func TestMicrophone_SecondRecordingSessionRejected(t *testing.T) {
	t.Parallel()

	mic := wsmic.New()
	srv := httptest.NewServer(mic.Handler())
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := strings.Replace(srv.URL, "http", "ws", 1)
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	deadline := time.Now().Add(2 * time.Second)
	for !mic.Supported() && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	first, err := mic.Acquire(ctx)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	var (
		mu    sync.Mutex
		frags int
	)
	if err := first.Sink().Start(func([]byte) {
		mu.Lock()
		frags++
		mu.Unlock()
	}); err != nil {
		t.Fatalf("first sink Start: %v", err)
	}

	second, err := mic.Acquire(ctx)
	if err != nil {
		t.Fatalf("second Acquire: %v", err)
	}
	if err := second.Sink().Start(func([]byte) {}); err == nil {
		t.Error("second concurrent recording session accepted, want error")
	}

	// Closing the rejected stream must not sever the live session's feed.
	if err := second.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if err := conn.Write(ctx, websocket.MessageBinary, []byte{0, 64, 0, 192}); err != nil {
		t.Fatalf("write: %v", err)
	}
	for time.Now().Before(deadline) {
		mu.Lock()
		n := frags
		mu.Unlock()
		if n > 0 {
			break
		}
		time.Sleep(time.Millisecond)
	}
	mu.Lock()
	if frags == 0 {
		t.Error("first session received no fragments after rejected stream closed")
	}
	mu.Unlock()

	// Releasing the first session frees the bridge for the next one.
	if err := first.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := second.Sink().Start(func([]byte) {}); err != nil {
		t.Errorf("sink Start after release: %v", err)
	}
	second.Close()
}
