package relay

import (
	"encoding/json"
	"time"
)

// OutboundPayload is the JSON body posted to the webhook. The message is
// carried under both chatInput and message because receiving workflows
// disagree on the field name.
type OutboundPayload struct {
	ChatInput string `json:"chatInput"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

func NewOutboundPayload(message string, now time.Time) OutboundPayload {
	return OutboundPayload{
		ChatInput: message,
		Message:   message,
		Timestamp: now.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
	}
}

func (p OutboundPayload) Encode() ([]byte, error) {
	return json.Marshal(p)
}
