// Package attempts carries per-attempt delivery diagnostics out of the relay
// chain. Events never contain the message text.
package attempts

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Outcome of a single network attempt.
type Outcome string

const (
	OutcomeSuccess   Outcome = "success"
	OutcomeTransport Outcome = "transport_error"
	OutcomeStatus    Outcome = "non_success_status"
	OutcomeCancelled Outcome = "cancelled"
)

// Event describes one attempt made by the relay chain or the prober.
type Event struct {
	ID         uuid.UUID `json:"id"`
	DeliveryID uuid.UUID `json:"delivery_id"`
	Attempt    int       `json:"attempt"`
	Strategy   string    `json:"strategy"`
	Method     string    `json:"method"`
	URL        string    `json:"url"`
	Outcome    Outcome   `json:"outcome"`
	StatusCode int       `json:"status_code,omitempty"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

func (e Event) Duration() time.Duration {
	return e.FinishedAt.Sub(e.StartedAt)
}

func (e Event) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

func Unmarshal(payload []byte) (Event, error) {
	var e Event
	err := json.Unmarshal(payload, &e)
	return e, err
}

// Observer receives attempt events. Implementations must not block for long;
// the chain calls Observe inline between attempts.
type Observer interface {
	Observe(ctx context.Context, e Event)
}

type ObserverFunc func(ctx context.Context, e Event)

func (f ObserverFunc) Observe(ctx context.Context, e Event) { f(ctx, e) }

// Multi fans an event out to several observers.
type Multi []Observer

func (m Multi) Observe(ctx context.Context, e Event) {
	for _, o := range m {
		if o != nil {
			o.Observe(ctx, e)
		}
	}
}

// Nop discards events.
var Nop Observer = ObserverFunc(func(context.Context, Event) {})
