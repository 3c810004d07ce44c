package pipeline

import (
	"context"

	"github.com/lumivoice/chat-attention/internal/models"
)

// ResponsePipeline receives decisions for messages that passed the attention
// gate. Implementations must tolerate being closed while an Emit is in flight.
type ResponsePipeline interface {
	Emit(ctx context.Context, decision models.Decision) error
	Close() error
}
