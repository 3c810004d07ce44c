package pipeline

import (
	"context"
	"fmt"
	"sync"

	"github.com/lumivoice/chat-attention/internal/models"
)

// ChannelPipeline hands decisions to an in-process consumer over a buffered
// channel. Emit never blocks: if the consumer falls behind past the buffer,
// the decision is rejected and the caller counts the failure.
type ChannelPipeline struct {
	mu        sync.RWMutex
	closed    bool
	decisions chan models.Decision
}

// NewChannelPipeline creates a pipeline buffered to the given size
func NewChannelPipeline(buffer int) *ChannelPipeline {
	return &ChannelPipeline{
		decisions: make(chan models.Decision, buffer),
	}
}

// Decisions exposes the consumer side; it is closed by Close
func (p *ChannelPipeline) Decisions() <-chan models.Decision {
	return p.decisions
}

func (p *ChannelPipeline) Emit(ctx context.Context, decision models.Decision) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return fmt.Errorf("response pipeline closed")
	}

	select {
	case p.decisions <- decision:
		return nil
	default:
		return fmt.Errorf("response pipeline buffer full")
	}
}

func (p *ChannelPipeline) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.closed {
		p.closed = true
		close(p.decisions)
	}
	return nil
}
