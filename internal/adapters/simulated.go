package adapters

import (
	"context"
	"math/rand"
	"time"

	"github.com/lumivoice/chat-attention/internal/models"
	"github.com/sirupsen/logrus"
)

// SimulatedAdapter emits synthetic chat traffic at a fixed rate. Used for
// local runs without a relay and for exercising the full ingestion path in
// integration tests.
type SimulatedAdapter struct {
	interval time.Duration
	rng      *rand.Rand
}

var simulatedLines = []string{
	"hello everyone",
	"hey lumi what game is this?",
	"this stream is amazing",
	"can you explain that algorithm again?",
	"lol",
	"I agree with that take",
	"urgent: the overlay is broken",
	"would love a collab with you",
	"how does the neural model work?",
	"first time here, love the vibe",
}

var simulatedUsers = []models.Author{
	{Username: "pixel_penny", IsSubscriber: true, FollowAgeDays: intPtr(210)},
	{Username: "modbot_mike", IsModerator: true, FollowAgeDays: intPtr(800), Badges: []string{"staff"}},
	{Username: "lurker_lou", FollowAgeDays: intPtr(12)},
	{Username: "new_nancy"},
}

var simulatedPlatforms = []models.Platform{
	models.PlatformTwitch,
	models.PlatformYouTube,
	models.PlatformDiscord,
}

// NewSimulatedAdapter creates an adapter ticking at the given interval. The
// random source is injected so tests can pin the traffic.
func NewSimulatedAdapter(interval time.Duration, rng *rand.Rand) *SimulatedAdapter {
	return &SimulatedAdapter{interval: interval, rng: rng}
}

func (a *SimulatedAdapter) Name() string {
	return "simulated"
}

func (a *SimulatedAdapter) Enabled() bool {
	return a.interval > 0
}

func (a *SimulatedAdapter) Run(ctx context.Context, sink Ingestor) error {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	logrus.Infof("Simulated adapter emitting a message every %v", a.interval)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			msg := models.ChatMessage{
				Platform: simulatedPlatforms[a.rng.Intn(len(simulatedPlatforms))],
				Author:   simulatedUsers[a.rng.Intn(len(simulatedUsers))],
				Content: models.Content{
					Text: simulatedLines[a.rng.Intn(len(simulatedLines))],
				},
				Metadata: models.Metadata{
					TimestampMillis: now.UnixMilli(),
				},
			}
			if err := sink.Ingest(msg); err != nil {
				logrus.Debugf("Simulated message rejected: %v", err)
			}
		}
	}
}

func intPtr(v int) *int { return &v }
