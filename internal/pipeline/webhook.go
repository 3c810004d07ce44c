package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/lumivoice/chat-attention/internal/models"
	"github.com/sirupsen/logrus"
)

// WebhookPipeline posts each decision to the downstream response service
type WebhookPipeline struct {
	client *resty.Client
	url    string
}

// NewWebhookPipeline creates a pipeline targeting the given webhook URL
func NewWebhookPipeline(url string) *WebhookPipeline {
	return &WebhookPipeline{
		client: resty.New().
			SetTimeout(10 * time.Second).
			SetHeader("User-Agent", "Chat-Attention-Bot/1.0").
			SetHeader("Content-Type", "application/json"),
		url: url,
	}
}

func (p *WebhookPipeline) Emit(ctx context.Context, decision models.Decision) error {
	resp, err := p.client.R().
		SetContext(ctx).
		SetBody(decision).
		Post(p.url)

	if err != nil {
		return fmt.Errorf("failed to post decision %s: %w", decision.ID, err)
	}
	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return fmt.Errorf("response pipeline returned status %d for decision %s", resp.StatusCode(), decision.ID)
	}

	logrus.Debugf("Emitted decision %s to response pipeline", decision.ID)
	return nil
}

func (p *WebhookPipeline) Close() error {
	return nil
}
