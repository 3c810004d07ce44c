package adapters

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/lumivoice/chat-attention/internal/models"
	"github.com/sirupsen/logrus"
)

const (
	relayReconnectMin = time.Second
	relayReconnectMax = 30 * time.Second
	relayReadTimeout  = 90 * time.Second
)

// StreamRelayAdapter consumes normalized chat records from a websocket relay.
// Platform-specific protocol handling lives upstream in the relay; this
// adapter only decodes the shared inbound record shape.
type StreamRelayAdapter struct {
	url    string
	dialer *websocket.Dialer
}

// NewStreamRelayAdapter creates an adapter for the given relay URL
func NewStreamRelayAdapter(url string) *StreamRelayAdapter {
	return &StreamRelayAdapter{
		url:    url,
		dialer: websocket.DefaultDialer,
	}
}

func (a *StreamRelayAdapter) Name() string {
	return "stream-relay"
}

func (a *StreamRelayAdapter) Enabled() bool {
	return a.url != ""
}

// Run reads from the relay until the context is cancelled, reconnecting with
// exponential backoff on connection loss
func (a *StreamRelayAdapter) Run(ctx context.Context, sink Ingestor) error {
	backoff := relayReconnectMin

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := a.readLoop(ctx, sink); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logrus.Errorf("Relay connection lost, reconnecting in %v: %v", backoff, err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}

		backoff *= 2
		if backoff > relayReconnectMax {
			backoff = relayReconnectMax
		}
	}
}

func (a *StreamRelayAdapter) readLoop(ctx context.Context, sink Ingestor) error {
	conn, _, err := a.dialer.DialContext(ctx, a.url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	logrus.Infof("Connected to stream relay at %s", a.url)

	// Drop the connection when the context ends so ReadMessage unblocks
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		if err := conn.SetReadDeadline(time.Now().Add(relayReadTimeout)); err != nil {
			return err
		}

		_, payload, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var msg models.ChatMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			logrus.Warnf("Skipping undecodable relay record: %v", err)
			continue
		}

		if err := sink.Ingest(msg); err != nil {
			logrus.Debugf("Relay message rejected: %v", err)
		}
	}
}
