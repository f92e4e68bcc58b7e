// Package protocol defines the websocket wire format shared by the server
// peers and internal/client.
package protocol

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event names.
const (
	EventIdentify       = "identify"
	EventJoinRoom       = "join-room"
	EventSendMessage    = "send-message"
	EventReceiveMessage = "receive-message"
	EventError          = "error"
)

// Envelope frames every websocket message in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// SendMessage is the send-message payload. Timestamp is unix milliseconds as
// produced by Date.now() and is kept only as a display hint.
type SendMessage struct {
	SenderID   string `json:"senderId"`
	ReceiverID string `json:"receiverId"`
	Text       string `json:"text"`
	Timestamp  int64  `json:"timestamp,omitempty"`
}

// Message is the persisted record carried by receive-message and returned by
// the HTTP history endpoints.
type Message struct {
	ID              string     `json:"_id"`
	SenderID        string     `json:"senderId"`
	ReceiverID      string     `json:"receiverId"`
	Text            string     `json:"text"`
	Timestamp       time.Time  `json:"timestamp"`
	ClientTimestamp *time.Time `json:"clientTimestamp,omitempty"`
}

// Involves reports whether the message belongs to the unordered pair {a, b}.
func (m Message) Involves(a, b string) bool {
	return (m.SenderID == a && m.ReceiverID == b) || (m.SenderID == b && m.ReceiverID == a)
}

// Error is the payload of server error events.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Event   string `json:"event,omitempty"`
}

// Encode builds a ready-to-write frame.
func Encode(event string, payload interface{}) ([]byte, error) {
	env := Envelope{Event: event}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode %s payload: %w", event, err)
		}
		env.Data = data
	}
	return json.Marshal(env)
}

// Decode parses a frame into its envelope.
func Decode(frame []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return Envelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	if env.Event == "" {
		return Envelope{}, fmt.Errorf("decode envelope: missing event name")
	}
	return env, nil
}

// DecodeData unmarshals the envelope payload into v.
func (e Envelope) DecodeData(v interface{}) error {
	if len(e.Data) == 0 {
		return fmt.Errorf("%s: missing payload", e.Event)
	}
	if err := json.Unmarshal(e.Data, v); err != nil {
		return fmt.Errorf("%s: %w", e.Event, err)
	}
	return nil
}

// ClientTime converts a unix millisecond hint, returning nil when unset.
func ClientTime(ms int64) *time.Time {
	if ms <= 0 {
		return nil
	}
	t := time.UnixMilli(ms).UTC()
	return &t
}
