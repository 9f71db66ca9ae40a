package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/nikhathmuzawar/pickplace-app/internal/buffer"
	"github.com/nikhathmuzawar/pickplace-app/internal/command"
	"github.com/nikhathmuzawar/pickplace-app/internal/db"
	"github.com/nikhathmuzawar/pickplace-app/internal/inventory"
	"github.com/nikhathmuzawar/pickplace-app/internal/model"
	"github.com/nikhathmuzawar/pickplace-app/internal/repository"
	"github.com/nikhathmuzawar/pickplace-app/internal/ws"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type deviceTransport struct {
	mu   sync.Mutex
	fail bool
	sent [][]byte
}

func (t *deviceTransport) Send(data []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.fail {
		return errors.New("broken pipe")
	}
	t.sent = append(t.sent, append([]byte(nil), data...))
	return nil
}

func (t *deviceTransport) Close() error { return nil }

func (t *deviceTransport) messages() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, len(t.sent))
	for i, m := range t.sent {
		out[i] = string(m)
	}
	return out
}

type testServer struct {
	router   *gin.Engine
	registry *ws.Registry
	cache    *ws.StateCache
	frames   *buffer.FrameBuffer
}

func setupTestServer(t *testing.T) *testServer {
	t.Helper()

	cache := ws.NewStateCache()
	registry := ws.NewRegistry(cache)
	relay := ws.NewRelay(registry, cache)
	frames := buffer.NewFrameBuffer()
	gateway := command.NewGateway(relay, cache)

	database, err := db.NewTestDB()
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	manager := inventory.NewManager(repository.NewDeviceRepository(database), inventory.Config{})

	video := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	})

	r := gin.New()
	api := r.Group("/api")
	NewCommandHandler(gateway, frames, video).RegisterRoutes(api)
	NewDeviceHandler(manager).RegisterRoutes(api)

	return &testServer{router: r, registry: registry, cache: cache, frames: frames}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("Failed to encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode error response %q: %v", w.Body.String(), err)
	}
	return resp.Error.Code
}

func TestConfirmPoints(t *testing.T) {
	t.Run("device not connected", func(t *testing.T) {
		s := setupTestServer(t)
		w := s.do(t, http.MethodPost, "/api/confirm-points", gin.H{"points": []gin.H{{"x": 0.5, "y": 0.5}}})
		if w.Code != http.StatusServiceUnavailable {
			t.Fatalf("Expected 503, got %d", w.Code)
		}
		if code := errorCode(t, w); code != "DEVICE_NOT_CONNECTED" {
			t.Errorf("Expected DEVICE_NOT_CONNECTED, got %s", code)
		}
	})

	t.Run("out of range points", func(t *testing.T) {
		s := setupTestServer(t)
		device := &deviceTransport{}
		s.registry.RegisterDevice(device)

		w := s.do(t, http.MethodPost, "/api/confirm-points", gin.H{"points": []gin.H{{"x": 1.2, "y": 0.5}}})
		if w.Code != http.StatusBadRequest {
			t.Fatalf("Expected 400, got %d", w.Code)
		}
		if len(device.messages()) != 0 {
			t.Error("Invalid points must not reach the device")
		}
	})

	t.Run("missing body", func(t *testing.T) {
		s := setupTestServer(t)
		w := s.do(t, http.MethodPost, "/api/confirm-points", gin.H{})
		if w.Code != http.StatusBadRequest {
			t.Fatalf("Expected 400, got %d", w.Code)
		}
	})

	t.Run("forwarded to device", func(t *testing.T) {
		s := setupTestServer(t)
		device := &deviceTransport{}
		s.registry.RegisterDevice(device)

		w := s.do(t, http.MethodPost, "/api/confirm-points", gin.H{"points": []gin.H{{"x": 0.5, "y": 0.5}}})
		if w.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
		}

		sent := device.messages()
		want := `{"type":"confirm_points","points":[{"x":0.5,"y":0.5}]}`
		if len(sent) != 1 || sent[0] != want {
			t.Errorf("Expected %s, got %v", want, sent)
		}
	})

	t.Run("delivery failure", func(t *testing.T) {
		s := setupTestServer(t)
		s.registry.RegisterDevice(&deviceTransport{fail: true})

		w := s.do(t, http.MethodPost, "/api/confirm-points", gin.H{"points": []gin.H{}})
		if w.Code != http.StatusInternalServerError {
			t.Fatalf("Expected 500, got %d", w.Code)
		}
		if !s.registry.HasDevice() {
			t.Error("Device should stay registered after a failed send")
		}
	})
}

func TestModeAndStatus(t *testing.T) {
	s := setupTestServer(t)

	w := s.do(t, http.MethodPost, "/api/mode", gin.H{"mode": "turbo"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for invalid mode, got %d", w.Code)
	}

	w = s.do(t, http.MethodPost, "/api/status", gin.H{"status": "start"})
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503 without device, got %d", w.Code)
	}

	device := &deviceTransport{}
	s.registry.RegisterDevice(device)

	w = s.do(t, http.MethodPost, "/api/mode", gin.H{"mode": "manual"})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	var ack MessageResponse
	json.Unmarshal(w.Body.Bytes(), &ack)
	if ack.Message != "Mode changed to manual" {
		t.Errorf("Unexpected ack: %q", ack.Message)
	}

	w = s.do(t, http.MethodPost, "/api/status", gin.H{"status": "start"})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	w = s.do(t, http.MethodGet, "/api/mode", nil)
	var state StateResponse
	if err := json.Unmarshal(w.Body.Bytes(), &state); err != nil {
		t.Fatalf("Failed to decode state: %v", err)
	}
	if state.Mode != model.ModeManual || state.Status != model.StatusStart {
		t.Errorf("Unexpected state: %+v", state)
	}

	sent := device.messages()
	if len(sent) != 2 || sent[0] != `{"type":"mode_change","mode":"manual"}` || sent[1] != `{"type":"status_change","status":"start"}` {
		t.Errorf("Unexpected device messages: %v", sent)
	}
}

func TestImageData(t *testing.T) {
	s := setupTestServer(t)

	w := s.do(t, http.MethodGet, "/api/image-data", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("Expected 404, got %d", w.Code)
	}
	if code := errorCode(t, w); code != "IMAGE_NOT_FOUND" {
		t.Errorf("Expected IMAGE_NOT_FOUND, got %s", code)
	}

	s.cache.Set(model.ImageUpdate{Image: "aGVsbG8=", Points: []model.Point{{X: 0.1, Y: 0.2}}})
	w = s.do(t, http.MethodGet, "/api/image-data", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	var resp ImageDataResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.Image != "aGVsbG8=" || len(resp.Points) != 1 {
		t.Errorf("Unexpected image data: %+v", resp)
	}
}

func TestImageDataEmptyImage(t *testing.T) {
	s := setupTestServer(t)

	s.cache.Set(model.ImageUpdate{Points: []model.Point{{X: 0.1, Y: 0.2}}})
	w := s.do(t, http.MethodGet, "/api/image-data", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("Expected 404 for an image-less update, got %d", w.Code)
	}
	if code := errorCode(t, w); code != "IMAGE_NOT_FOUND" {
		t.Errorf("Expected IMAGE_NOT_FOUND, got %s", code)
	}
}

func TestReadings(t *testing.T) {
	s := setupTestServer(t)

	w := s.do(t, http.MethodGet, "/api/get-latest-string", nil)
	if w.Body.String() != `{"latest_string":null}` {
		t.Errorf("Expected null latest string, got %s", w.Body.String())
	}
	w = s.do(t, http.MethodGet, "/api/get-coordinates-string", nil)
	if w.Body.String() != `{"coordinates_string":"x:0 y:0 z:0"}` {
		t.Errorf("Unexpected default coordinates: %s", w.Body.String())
	}

	s.frames.Ingest([]byte(`{"string_data":"picking","coordinates":{"x":1,"y":2.5,"z":-3}}`))

	w = s.do(t, http.MethodGet, "/api/get-latest-string", nil)
	if w.Body.String() != `{"latest_string":"picking"}` {
		t.Errorf("Unexpected latest string: %s", w.Body.String())
	}
	w = s.do(t, http.MethodGet, "/api/get-coordinates-string", nil)
	if w.Body.String() != `{"coordinates_string":"x:1.00 y:2.50 z:-3.00"}` {
		t.Errorf("Unexpected coordinates: %s", w.Body.String())
	}
}

func TestVideoFeedDelegates(t *testing.T) {
	s := setupTestServer(t)
	w := s.do(t, http.MethodGet, "/api/video_feed", nil)
	if ct := w.Header().Get("Content-Type"); ct != "multipart/x-mixed-replace; boundary=frame" {
		t.Errorf("Unexpected content type %q", ct)
	}
}

func TestDeviceCRUD(t *testing.T) {
	s := setupTestServer(t)

	w := s.do(t, http.MethodPost, "/api/devices", gin.H{"desc": "no name"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for missing name, got %d", w.Code)
	}

	w = s.do(t, http.MethodPost, "/api/devices", gin.H{"name": "arm", "desc": "six axis", "status": true})
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var created model.Device
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("Failed to decode device: %v", err)
	}
	if created.ID == "" || created.Name != "arm" {
		t.Fatalf("Unexpected device: %+v", created)
	}

	w = s.do(t, http.MethodGet, "/api/devices/"+created.ID, nil)
	if w.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", w.Code)
	}

	w = s.do(t, http.MethodPut, "/api/devices/"+created.ID, gin.H{"name": "gantry"})
	if w.Code != http.StatusOK {
		t.Errorf("Expected 200 on update, got %d", w.Code)
	}

	w = s.do(t, http.MethodGet, "/api/devices", nil)
	var devices []model.Device
	if err := json.Unmarshal(w.Body.Bytes(), &devices); err != nil {
		t.Fatalf("Failed to decode list: %v", err)
	}
	if len(devices) != 1 || devices[0].Name != "gantry" {
		t.Errorf("Unexpected list: %+v", devices)
	}

	w = s.do(t, http.MethodDelete, "/api/devices/"+created.ID, nil)
	if w.Code != http.StatusNoContent {
		t.Errorf("Expected 204, got %d", w.Code)
	}

	w = s.do(t, http.MethodGet, "/api/devices/"+created.ID, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 after delete, got %d", w.Code)
	}
	if code := errorCode(t, w); code != "DEVICE_NOT_FOUND" {
		t.Errorf("Expected DEVICE_NOT_FOUND, got %s", code)
	}
}
