package mapper

import (
	"context"
	"errors"

	"basegraph.app/triage/internal/domain"
)

// ErrUnsupportedEvent marks deliveries (event or action) that triage ignores.
var ErrUnsupportedEvent = errors.New("unsupported event")

// ErrMalformedPayload marks deliveries whose payload cannot be decoded.
var ErrMalformedPayload = errors.New("malformed payload")

// EventMapper projects a raw webhook delivery onto a canonical domain.Event.
type EventMapper interface {
	Map(ctx context.Context, delivery Delivery) (domain.Event, error)
}

// Delivery is a webhook request after signature validation.
type Delivery struct {
	ID        string
	EventType string // X-GitHub-Event header
	Payload   []byte
}
