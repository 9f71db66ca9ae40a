package ws

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/nikhathmuzawar/pickplace-app/internal/model"
)

func TestMessage_MarshalByKind(t *testing.T) {
	tests := []struct {
		name string
		msg  Message
		want string
	}{
		{
			name: "image update without points",
			msg:  Message{Type: MessageTypeImageUpdate, Image: "abc"},
			want: `{"type":"image_update","image":"abc","points":[]}`,
		},
		{
			name: "confirm points",
			msg:  Message{Type: MessageTypeConfirmPoints, Points: []model.Point{{X: 0.5, Y: 1}}},
			want: `{"type":"confirm_points","points":[{"x":0.5,"y":1}]}`,
		},
		{
			name: "mode change ignores unrelated fields",
			msg:  Message{Type: MessageTypeModeChange, Mode: model.ModeManual, Image: "ignored"},
			want: `{"type":"mode_change","mode":"manual"}`,
		},
		{
			name: "status change",
			msg:  Message{Type: MessageTypeStatusChange, Status: model.StatusStop},
			want: `{"type":"status_change","status":"stop"}`,
		},
		{
			name: "pong",
			msg:  Message{Type: MessageTypePong},
			want: `{"type":"pong"}`,
		},
		{
			name: "error",
			msg:  Message{Type: MessageTypeError, Error: "boom"},
			want: `{"type":"error","error":"boom"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.msg)
			if err != nil {
				t.Fatalf("marshal failed: %v", err)
			}
			if string(data) != tt.want {
				t.Errorf("expected %s, got %s", tt.want, data)
			}
		})
	}
}

func TestDecodeMessage(t *testing.T) {
	msg, err := DecodeMessage([]byte(` {"type":"image_update","image":"i","points":[{"x":0.1,"y":0.9}],"extra":true}`))
	if err != nil {
		t.Fatalf("DecodeMessage failed: %v", err)
	}
	if msg.Type != MessageTypeImageUpdate || msg.Image != "i" || len(msg.Points) != 1 {
		t.Errorf("unexpected message: %+v", msg)
	}

	update := msg.ImageUpdate()
	msg.Points[0].X = 0.7
	if update.Points[0].X != 0.1 {
		t.Error("ImageUpdate should copy the points")
	}

	for _, bad := range []string{"", "null", `"text"`, `{"type":"unknown"}`, `{"type":1}`} {
		if _, err := DecodeMessage([]byte(bad)); !errors.Is(err, model.ErrMalformedMessage) {
			t.Errorf("DecodeMessage(%q): expected ErrMalformedMessage, got %v", bad, err)
		}
	}
}

func TestMessageType_IsCommand(t *testing.T) {
	commands := []MessageType{MessageTypeConfirmPoints, MessageTypeModeChange, MessageTypeStatusChange}
	for _, mt := range commands {
		if !mt.IsCommand() {
			t.Errorf("%s should be a command", mt)
		}
	}
	for _, mt := range []MessageType{MessageTypeImageUpdate, MessageTypePing, MessageTypeError} {
		if mt.IsCommand() {
			t.Errorf("%s should not be a command", mt)
		}
	}
}
