package ws

import "encoding/json"

// MessageType constants for the generation stream protocol.
const (
	// Client -> Server
	TypeGenerate = "generate"
	TypePing     = "ping"

	// Server -> Client
	TypeGenerationProgress = "generation_progress"
	TypeGenerationComplete = "generation_complete"
	TypeError              = "error"
	TypePong               = "pong"
)

// Message wraps all WebSocket payloads with type and optional request ID.
type Message struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	RequestID string          `json:"request_id,omitempty"`
}

// NewMessage encodes payload under the given type.
func NewMessage(typ string, payload any) (Message, error) {
	msg := Message{Type: typ}
	if payload == nil {
		return msg, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return Message{}, err
	}
	msg.Payload = data
	return msg, nil
}

// Client Messages (incoming)

type GeneratePayload struct {
	Topic string `json:"topic"`
	Count int    `json:"count,omitempty"` // 0 means the configured default
}

// Server Messages (outgoing)

type GenerationProgressPayload struct {
	Phase   string `json:"phase"`
	Elapsed int    `json:"elapsed_ms"`
}

type GenerationCompletePayload struct {
	Count    int    `json:"count"`
	Redirect string `json:"redirect"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
