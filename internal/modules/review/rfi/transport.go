package rfi

import (
	"context"
	"time"
)

// Message is one outbound request for information.
type Message struct {
	CaseID    string
	Round     int
	Body      string
	Recipient string
	// IdempotencyKey is stable per case and round so a transport that supports
	// deduplication can drop a repeated delivery.
	IdempotencyKey string
}

type Ack struct {
	ID     string    `json:"id"`
	SentAt time.Time `json:"sent_at"`
}

// Transport delivers a request for information to the provider.
type Transport interface {
	Send(ctx context.Context, msg Message) (Ack, error)
}
