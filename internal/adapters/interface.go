package adapters

import (
	"context"

	"github.com/lumivoice/chat-attention/internal/models"
)

// Ingestor accepts normalized messages from adapters. Ingest is expected to
// be fire-and-forget: errors report rejection, never pipeline failure.
type Ingestor interface {
	Ingest(msg models.ChatMessage) error
}

// Adapter interface defines the contract for all inbound message producers
type Adapter interface {
	Name() string
	Enabled() bool
	Run(ctx context.Context, sink Ingestor) error
}
