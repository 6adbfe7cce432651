// Package protocol defines the wire contract between extension contexts and
// the glossa daemon: the message envelope, typed request and notification
// payloads, the uniform response shape, and the shared error code taxonomy.
package protocol

import (
	"encoding/json"
	"time"
)

// MessageType discriminates the kind of message carried by an Envelope.
type MessageType string

// Request types sent by extension contexts.
const (
	TypeTranslate            MessageType = "TRANSLATE"
	TypeWritingAssist        MessageType = "WRITING_ASSIST"
	TypeGrammarCheck         MessageType = "GRAMMAR_CHECK"
	TypeTransform            MessageType = "TRANSFORM"
	TypeExtractText          MessageType = "EXTRACT_TEXT"
	TypeGenerateStream       MessageType = "GENERATE_STREAM"
	TypeTestConnection       MessageType = "TEST_CONNECTION"
	TypeListModels           MessageType = "LIST_MODELS"
	TypeListTransformations  MessageType = "LIST_TRANSFORMATIONS"
	TypeSaveTransformation   MessageType = "SAVE_TRANSFORMATION"
	TypeDeleteTransformation MessageType = "DELETE_TRANSFORMATION"
	TypeGetConfig            MessageType = "GET_CONFIG"
	TypeUpdateConfig         MessageType = "UPDATE_CONFIG"
	TypeCancelRequest        MessageType = "CANCEL_REQUEST"
)

// TypeResponse marks a reply to a request envelope; the reply echoes the
// request's correlation id.
const TypeResponse MessageType = "RESPONSE"

// Notification types pushed by the daemon during a streaming generation.
const (
	TypeStreamToken     MessageType = "STREAM_TOKEN"
	TypeStreamComplete  MessageType = "STREAM_COMPLETE"
	TypeStreamError     MessageType = "STREAM_ERROR"
	TypeStreamCancelled MessageType = "STREAM_CANCELLED"
)

// Envelope is the wire format for every WebSocket message, in both
// directions. Requests carry a client-chosen ID that the matching RESPONSE
// echoes; notifications carry no ID and correlate by the requestId inside
// their payload instead.
type Envelope struct {
	Type      MessageType     `json:"type"`
	ID        string          `json:"id,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewEnvelope builds an envelope with the payload marshalled to JSON and the
// timestamp set to now.
func NewEnvelope(typ MessageType, id string, payload any) (Envelope, error) {
	env := Envelope{
		Type:      typ,
		ID:        id,
		Timestamp: time.Now(),
	}
	if payload == nil {
		return env, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	env.Payload = data
	return env, nil
}

// IsNotification reports whether the envelope is a server-initiated stream
// notification rather than a reply to a request.
func (e Envelope) IsNotification() bool {
	switch e.Type {
	case TypeStreamToken, TypeStreamComplete, TypeStreamError, TypeStreamCancelled:
		return true
	default:
		return false
	}
}
