// Package devicesim emulates a pick-and-place rig. It publishes images over
// the device socket, reacts to operator commands and streams camera frames and
// telemetry over the ingestion socket.
package devicesim

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nikhathmuzawar/pickplace-app/internal/model"
	"github.com/nikhathmuzawar/pickplace-app/internal/ws"
)

// ErrNoImages is returned when the image directory holds no usable files.
var ErrNoImages = errors.New("no .png or .jpg images found")

// suggestedPoints are proposed to the operator while in auto mode.
var suggestedPoints = []model.Point{{X: 0.564, Y: 0.317}, {X: 0.75, Y: 0.6}}

// Options configures a Simulator.
type Options struct {
	// ServerURL is the relay base URL, e.g. ws://localhost:8000.
	ServerURL string
	ImageDir  string

	// FrameInterval paces the camera stream.
	FrameInterval time.Duration

	// ReconnectDelay is the wait between connection attempts.
	ReconnectDelay time.Duration

	Dialer *websocket.Dialer
}

// DefaultOptions returns the options used by the simulator command.
func DefaultOptions() Options {
	return Options{
		ServerURL:      "ws://localhost:8000",
		ImageDir:       "images",
		FrameInterval:  33 * time.Millisecond,
		ReconnectDelay: 5 * time.Second,
	}
}

// Simulator is a fake device.
type Simulator struct {
	opts   Options
	images []string

	mu     sync.Mutex
	index  int
	mode   model.Mode
	status model.Status
	coords model.Coordinates
}

// New loads the image list and returns a Simulator in auto mode, stopped.
func New(opts Options) (*Simulator, error) {
	defaults := DefaultOptions()
	if opts.FrameInterval <= 0 {
		opts.FrameInterval = defaults.FrameInterval
	}
	if opts.ReconnectDelay <= 0 {
		opts.ReconnectDelay = defaults.ReconnectDelay
	}
	if opts.Dialer == nil {
		opts.Dialer = websocket.DefaultDialer
	}

	images, err := LoadImages(opts.ImageDir)
	if err != nil {
		return nil, err
	}

	return &Simulator{
		opts:   opts,
		images: images,
		mode:   model.ModeAuto,
		status: model.StatusStop,
	}, nil
}

// LoadImages returns the sorted .png and .jpg files in dir.
func LoadImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read image dir: %w", err)
	}

	var images []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext == ".png" || ext == ".jpg" {
			images = append(images, filepath.Join(dir, e.Name()))
		}
	}
	if len(images) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoImages, dir)
	}
	sort.Strings(images)
	return images, nil
}

// Mode returns the current mode.
func (s *Simulator) Mode() model.Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// Status returns the current status.
func (s *Simulator) Status() model.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// CurrentImage returns the path of the image on offer.
func (s *Simulator) CurrentImage() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.images[s.index]
}

// ImageUpdate builds an image_update for the current image. Points are only
// suggested in auto mode.
func (s *Simulator) ImageUpdate() (*ws.Message, error) {
	s.mu.Lock()
	path := s.images[s.index]
	mode := s.mode
	s.mu.Unlock()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load image: %w", err)
	}

	var points []model.Point
	if mode == model.ModeAuto {
		points = append(points, suggestedPoints...)
	}
	return ws.NewImageUpdateMessage(model.ImageUpdate{
		Image:  base64.StdEncoding.EncodeToString(data),
		Points: points,
	}), nil
}

// Handle applies a command and returns the image update to publish in
// response, if any.
func (s *Simulator) Handle(msg *ws.Message) (*ws.Message, error) {
	switch msg.Type {
	case ws.MessageTypeConfirmPoints:
		for i, p := range msg.Points {
			log.Printf("Confirmed point %d: X: %.3f, Y: %.3f", i+1, p.X, p.Y)
		}
		s.mu.Lock()
		s.index = (s.index + 1) % len(s.images)
		s.mu.Unlock()
		return s.ImageUpdate()
	case ws.MessageTypeModeChange:
		s.mu.Lock()
		s.mode = msg.Mode
		s.mu.Unlock()
		log.Printf("Mode changed to %s", msg.Mode)
		return nil, nil
	case ws.MessageTypeStatusChange:
		s.mu.Lock()
		s.status = msg.Status
		s.mu.Unlock()
		log.Printf("Status changed to %s", msg.Status)
		return s.ImageUpdate()
	default:
		return nil, nil
	}
}

// RunDevice keeps a device session open until ctx is done, reconnecting after
// every failure.
func (s *Simulator) RunDevice(ctx context.Context) error {
	return s.reconnectLoop(ctx, "/ws/device", s.serveDevice)
}

// RunCamera streams frames and telemetry until ctx is done, reconnecting after
// every failure.
func (s *Simulator) RunCamera(ctx context.Context) error {
	return s.reconnectLoop(ctx, "/ws", s.serveCamera)
}

func (s *Simulator) reconnectLoop(ctx context.Context, path string, serve func(context.Context, *websocket.Conn) error) error {
	url := strings.TrimRight(s.opts.ServerURL, "/") + path
	for {
		conn, _, err := s.opts.Dialer.DialContext(ctx, url, nil)
		if err != nil {
			log.Printf("Connection to %s failed: %v", url, err)
		} else {
			log.Printf("Connected to %s", url)
			err = serve(ctx, conn)
			conn.Close()
			if ctx.Err() == nil {
				log.Printf("Connection to %s closed: %v", url, err)
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.opts.ReconnectDelay):
		}
	}
}

func (s *Simulator) serveDevice(ctx context.Context, conn *websocket.Conn) error {
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	update, err := s.ImageUpdate()
	if err != nil {
		return err
	}
	if err := conn.WriteJSON(update); err != nil {
		return err
	}
	log.Printf("Sent image %s", filepath.Base(s.CurrentImage()))

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		msg, err := ws.DecodeMessage(data)
		if err != nil {
			log.Printf("Received invalid message: %v", err)
			continue
		}

		reply, err := s.Handle(msg)
		if err != nil {
			log.Printf("Failed to handle %s: %v", msg.Type, err)
			continue
		}
		if reply == nil {
			continue
		}
		if err := conn.WriteJSON(reply); err != nil {
			return err
		}
	}
}

// cameraPacket is one ingestion payload.
type cameraPacket struct {
	Frame       string            `json:"frame"`
	StringData  string            `json:"string_data"`
	Coordinates model.Coordinates `json:"coordinates"`
}

func (s *Simulator) serveCamera(ctx context.Context, conn *websocket.Conn) error {
	ticker := time.NewTicker(s.opts.FrameInterval)
	defer ticker.Stop()

	frame := 0
	for {
		select {
		case <-ctx.Done():
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return ctx.Err()
		case <-ticker.C:
		}

		pkt, err := s.cameraPacket(frame)
		if err != nil {
			return err
		}
		frame++

		data, err := json.Marshal(pkt)
		if err != nil {
			return err
		}
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return err
		}
	}
}

func (s *Simulator) cameraPacket(frame int) (*cameraPacket, error) {
	path := s.images[frame%len(s.images)]
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load frame: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status == model.StatusStart {
		s.coords.X += 0.1
		s.coords.Y += 0.05
	}
	return &cameraPacket{
		Frame:       base64.StdEncoding.EncodeToString(data),
		StringData:  fmt.Sprintf("%s/%s", s.mode, s.status),
		Coordinates: s.coords,
	}, nil
}
