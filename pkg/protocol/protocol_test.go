package protocol

import (
	"encoding/json"
	"testing"
)

func TestNewEnvelope(t *testing.T) {
	env, err := NewEnvelope(TypeTranslate, "req-1", TranslateRequest{
		Text:           "bonjour",
		TargetLanguage: "en",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if env.Type != TypeTranslate {
		t.Errorf("Type = %q, want %q", env.Type, TypeTranslate)
	}
	if env.ID != "req-1" {
		t.Errorf("ID = %q, want %q", env.ID, "req-1")
	}
	if env.Timestamp.IsZero() {
		t.Error("Timestamp should be set")
	}

	var payload TranslateRequest
	if err := json.Unmarshal(env.Payload, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload.Text != "bonjour" || payload.TargetLanguage != "en" {
		t.Errorf("payload round trip = %+v", payload)
	}
}

func TestNewEnvelope_NilPayload(t *testing.T) {
	env, err := NewEnvelope(TypeListModels, "req-2", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if env.Payload != nil {
		t.Errorf("Payload = %s, want nil", env.Payload)
	}
}

func TestNewEnvelope_UnmarshalablePayload(t *testing.T) {
	_, err := NewEnvelope(TypeTranslate, "req-3", make(chan int))
	if err == nil {
		t.Fatal("expected error for unmarshalable payload")
	}
}

func TestEnvelope_IsNotification(t *testing.T) {
	tests := []struct {
		name string
		typ  MessageType
		want bool
	}{
		{"stream token", TypeStreamToken, true},
		{"stream complete", TypeStreamComplete, true},
		{"stream error", TypeStreamError, true},
		{"stream cancelled", TypeStreamCancelled, true},
		{"response", TypeResponse, false},
		{"translate request", TypeTranslate, false},
		{"cancel request", TypeCancelRequest, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := Envelope{Type: tt.typ}
			if got := env.IsNotification(); got != tt.want {
				t.Errorf("IsNotification() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEnvelope_WireFieldNames(t *testing.T) {
	env, err := NewEnvelope(TypeCancelRequest, "abc", CancelRequest{RequestID: "r-9"})
	if err != nil {
		t.Fatal(err)
	}
	data, err := json.Marshal(env)
	if err != nil {
		t.Fatal(err)
	}

	var m map[string]json.RawMessage
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"type", "id", "payload", "timestamp"} {
		if _, ok := m[key]; !ok {
			t.Errorf("marshalled envelope missing %q field: %s", key, data)
		}
	}

	var payload map[string]any
	if err := json.Unmarshal(m["payload"], &payload); err != nil {
		t.Fatal(err)
	}
	if _, ok := payload["requestId"]; !ok {
		t.Errorf("payload should use requestId, got: %s", m["payload"])
	}
}
