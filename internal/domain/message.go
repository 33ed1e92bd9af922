package domain

import (
	"encoding/json"
	"fmt"
)

// Message is the request/response envelope exchanged with stage capabilities.
// Role tags who produced the envelope; Metadata is informational only and is
// never consulted for control flow. An envelope is immutable once constructed.
type Message struct {
	Role     string
	Payload  Payload
	Metadata map[string]any
}

// NewMessage creates an envelope carrying a typed payload.
func NewMessage(role string, payload Payload) Message {
	return Message{Role: role, Payload: payload}
}

// NewErrorMessage creates the uniform failure reply for a capability.
func NewErrorMessage(role, errText string) Message {
	return Message{Role: role, Payload: &ErrorResult{Message: errText}}
}

// WithMetadata returns a copy of the message with the given metadata attached.
func (m Message) WithMetadata(meta map[string]any) Message {
	m.Metadata = meta
	return m
}

type wireMessage struct {
	Role     string          `json:"role"`
	Payload  json.RawMessage `json:"payload"`
	Metadata map[string]any  `json:"metadata,omitempty"`
}

// MarshalJSON frames the payload with its kind tag so remote capabilities can
// decode it without knowing the stage in advance.
func (m Message) MarshalJSON() ([]byte, error) {
	payload, err := MarshalPayload(m.Payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(wireMessage{
		Role:     m.Role,
		Payload:  payload,
		Metadata: m.Metadata,
	})
}

func (m *Message) UnmarshalJSON(b []byte) error {
	var w wireMessage
	if err := json.Unmarshal(b, &w); err != nil {
		return fmt.Errorf("unmarshal message: %w", err)
	}
	payload, err := UnmarshalPayload(w.Payload)
	if err != nil {
		return err
	}
	m.Role = w.Role
	m.Payload = payload
	m.Metadata = w.Metadata
	return nil
}
