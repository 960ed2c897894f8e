package inbound

import (
	"context"
	"time"
)

// Event represents a single inbound SMS ready for the retrieval service.
type Event struct {
	ID         string // provider message ID (idempotency key)
	From       string // sender phone or alphanumeric sender ID
	Text       string // extracted message text
	Source     string // "webhook", "gateway", "polling"
	ReceivedAt time.Time
}

// Source produces inbound SMS events from a delivery channel (poller, webhook, etc.).
type Source interface {
	Run(ctx context.Context, out chan<- Event) error
}
