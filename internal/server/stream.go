package server

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// FrameStream serves the latest published camera frame as MJPEG.
type FrameStream struct {
	mu     sync.RWMutex
	latest []byte
	seq    int
}

// NewFrameStream creates an empty stream.
func NewFrameStream() *FrameStream {
	return &FrameStream{}
}

// Publish encodes frame as JPEG and makes it the latest frame.
func (s *FrameStream) Publish(frame *gocv.Mat) error {
	buf, err := gocv.IMEncode(".jpg", *frame)
	if err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}
	data := append([]byte(nil), buf.GetBytes()...)
	buf.Close()

	s.mu.Lock()
	s.latest = data
	s.seq++
	s.mu.Unlock()
	return nil
}

func (s *FrameStream) snapshot() ([]byte, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest, s.seq
}

// ServeHTTP streams MJPEG frames to connected clients.
func (s *FrameStream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	sent := 0
	for {
		select {
		case <-r.Context().Done():
			return
		default:
		}

		data, seq := s.snapshot()
		if data == nil || seq == sent {
			time.Sleep(66 * time.Millisecond)
			continue
		}
		sent = seq

		// Write MJPEG frame
		fmt.Fprintf(w, "--frame\r\n")
		fmt.Fprintf(w, "Content-Type: image/jpeg\r\n")
		fmt.Fprintf(w, "Content-Length: %d\r\n\r\n", len(data))
		w.Write(data)
		fmt.Fprintf(w, "\r\n")

		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}

		time.Sleep(66 * time.Millisecond) // ~15 FPS
	}
}
