// Package stream turns the latest ingested frame into a multipart JPEG feed.
package stream

import (
	"context"
	"encoding/base64"
	"log"
	"net/http"
	"time"
)

const (
	// DefaultInterval is the cadence of the feed, about 30 frames per second.
	DefaultInterval = 33 * time.Millisecond

	// Boundary separates parts of the multipart response.
	Boundary = "frame"

	// ContentType is the response content type of the feed.
	ContentType = "multipart/x-mixed-replace; boundary=" + Boundary
)

// FrameSource provides the latest frame in its base64 transport encoding.
type FrameSource interface {
	Frame() (string, bool)
}

// Streamer produces multipart chunks from a FrameSource at a fixed cadence,
// independent of how often frames are ingested.
type Streamer struct {
	source   FrameSource
	interval time.Duration
}

// NewStreamer creates a Streamer. A non-positive interval uses DefaultInterval.
func NewStreamer(source FrameSource, interval time.Duration) *Streamer {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Streamer{
		source:   source,
		interval: interval,
	}
}

// Interval returns the cadence of the feed.
func (s *Streamer) Interval() time.Duration {
	return s.interval
}

// Chunk wraps raw JPEG bytes in the multipart part header.
func Chunk(jpeg []byte) []byte {
	header := "--" + Boundary + "\r\nContent-Type: image/jpeg\r\n\r\n"
	chunk := make([]byte, 0, len(header)+len(jpeg)+2)
	chunk = append(chunk, header...)
	chunk = append(chunk, jpeg...)
	chunk = append(chunk, '\r', '\n')
	return chunk
}

// Frames returns a lazy, infinite sequence of chunks. On every tick the
// current frame, if any, is decoded and sent; ticks without a frame send
// nothing. The channel is closed only after ctx is done.
//
// The channel is unbuffered, so a slow consumer delays the next tick rather
// than queueing stale frames.
func (s *Streamer) Frames(ctx context.Context) <-chan []byte {
	out := make(chan []byte)

	go func() {
		defer close(out)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			frame, ok := s.source.Frame()
			if !ok || frame == "" {
				continue
			}

			jpeg, err := base64.StdEncoding.DecodeString(frame)
			if err != nil {
				// Raw fallback frames need not be base64; skip the tick.
				continue
			}

			select {
			case out <- Chunk(jpeg):
			case <-ctx.Done():
				return
			}
		}
	}()

	return out
}

// ServeHTTP writes the feed until the client goes away.
func (s *Streamer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", ContentType)
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for chunk := range s.Frames(r.Context()) {
		if _, err := w.Write(chunk); err != nil {
			log.Printf("Video feed write failed: %v", err)
			return
		}
		flusher.Flush()
	}
}
