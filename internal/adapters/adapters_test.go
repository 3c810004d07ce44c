package adapters

import (
	"context"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/lumivoice/chat-attention/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	mu       sync.Mutex
	messages []models.ChatMessage
}

func (s *recordingSink) Ingest(msg models.ChatMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msg)
	return nil
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}

func TestSimulatedAdapter_EmitsMessages(t *testing.T) {
	sink := &recordingSink{}
	adapter := NewSimulatedAdapter(time.Millisecond, rand.New(rand.NewSource(1)))

	require.True(t, adapter.Enabled())

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	err := adapter.Run(ctx, sink)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	assert.Positive(t, sink.count())
	sink.mu.Lock()
	defer sink.mu.Unlock()
	for _, msg := range sink.messages {
		assert.NoError(t, msg.Validate())
		assert.NotZero(t, msg.Metadata.TimestampMillis)
	}
}

func TestSimulatedAdapter_DisabledWithoutInterval(t *testing.T) {
	adapter := NewSimulatedAdapter(0, rand.New(rand.NewSource(1)))
	assert.False(t, adapter.Enabled())
}

func TestStreamRelayAdapter_DisabledWithoutURL(t *testing.T) {
	assert.False(t, NewStreamRelayAdapter("").Enabled())
	assert.True(t, NewStreamRelayAdapter("ws://relay.local/chat").Enabled())
}

func TestStreamRelayAdapter_DecodesAndIngests(t *testing.T) {
	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()

		payloads := []string{
			`{"platform":"twitch","author":{"username":"alice"},"content":{"text":"hello"},"metadata":{"timestamp_millis":1700000000000}}`,
			`not json at all`,
			`{"platform":"youtube","author":{"username":"bob"},"content":{"text":"hey"},"metadata":{"timestamp_millis":1700000000001}}`,
		}
		for _, payload := range payloads {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(payload)); err != nil {
				return
			}
		}
		// Hold the connection open until the client goes away
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	adapter := NewStreamRelayAdapter(url)
	sink := &recordingSink{}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		adapter.Run(ctx, sink)
	}()

	assert.Eventually(t, func() bool { return sink.count() == 2 },
		2*time.Second, 10*time.Millisecond, "undecodable record skipped, valid ones ingested")

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("adapter did not stop on context cancellation")
	}

	sink.mu.Lock()
	defer sink.mu.Unlock()
	assert.Equal(t, "alice", sink.messages[0].Author.Username)
	assert.Equal(t, models.PlatformYouTube, sink.messages[1].Platform)
}
