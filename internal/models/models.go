package models

import (
	"fmt"
	"time"
)

// Platform identifies the originating chat service
type Platform string

const (
	PlatformTwitch  Platform = "twitch"
	PlatformYouTube Platform = "youtube"
	PlatformDiscord Platform = "discord"
	PlatformKick    Platform = "kick"
)

// Author carries the authority signals adapters know about the sender
type Author struct {
	Username      string   `json:"username"`
	IsSubscriber  bool     `json:"is_subscriber"`
	IsModerator   bool     `json:"is_moderator"`
	FollowAgeDays *int     `json:"follow_age_days"` // nil when the platform doesn't expose it
	Badges        []string `json:"badges,omitempty"`
}

// Content is the message body plus any explicit mention references
type Content struct {
	Text     string   `json:"text"`
	Mentions []string `json:"mentions,omitempty"`
}

// Metadata holds arrival information attached by the adapter
type Metadata struct {
	TimestampMillis int64  `json:"timestamp_millis"`
	ReplyTo         string `json:"reply_to,omitempty"`
}

// ChatMessage is the normalized inbound unit produced by platform adapters.
// Immutable once created.
type ChatMessage struct {
	Platform Platform `json:"platform"`
	Author   Author   `json:"author"`
	Content  Content  `json:"content"`
	Metadata Metadata `json:"metadata"`
}

// Timestamp converts the adapter-supplied millisecond timestamp
func (m ChatMessage) Timestamp() time.Time {
	return time.UnixMilli(m.Metadata.TimestampMillis)
}

// IsReply reports whether the message references an earlier one
func (m ChatMessage) IsReply() bool {
	return m.Metadata.ReplyTo != ""
}

// Validate rejects records missing the fields scoring depends on
func (m ChatMessage) Validate() error {
	if m.Platform == "" {
		return fmt.Errorf("message missing platform")
	}
	if m.Author.Username == "" {
		return fmt.Errorf("message missing author username")
	}
	if m.Content.Text == "" {
		return fmt.Errorf("message missing content text")
	}
	return nil
}

// SalienceLevel is the discrete priority bucket derived from the total score
type SalienceLevel int

const (
	LevelIgnore SalienceLevel = iota
	LevelLow
	LevelMedium
	LevelHigh
	LevelCritical
)

func (l SalienceLevel) String() string {
	switch l {
	case LevelCritical:
		return "critical"
	case LevelHigh:
		return "high"
	case LevelMedium:
		return "medium"
	case LevelLow:
		return "low"
	default:
		return "ignore"
	}
}

// MarshalJSON renders the level as its name rather than a bare int
func (l SalienceLevel) MarshalJSON() ([]byte, error) {
	return []byte(`"` + l.String() + `"`), nil
}

// ScoreBreakdown holds the four sub-scores, each clamped to [0,1]
type ScoreBreakdown struct {
	Content   float64 `json:"content"`
	Authority float64 `json:"authority"`
	Relevance float64 `json:"relevance"`
	Temporal  float64 `json:"temporal"`
}

// SalienceScore is the scoring result for one message. Never mutated after creation.
type SalienceScore struct {
	Total     float64        `json:"total"`
	Breakdown ScoreBreakdown `json:"breakdown"`
	Level     SalienceLevel  `json:"level"`
	Reasoning []string       `json:"reasoning"`
}

// QueueEntry is a scored message awaiting the dequeue/gate cycle
type QueueEntry struct {
	Message    ChatMessage
	Score      SalienceScore
	EnqueuedAt time.Time
}

// Decision is the outbound record emitted to the response pipeline for a
// message that passed the attention gate
type Decision struct {
	ID             string        `json:"id"`
	Message        ChatMessage   `json:"message"`
	Score          SalienceScore `json:"score"`
	AttentionState string        `json:"attention_state"`
	EmittedAt      time.Time     `json:"emitted_at"`
}

// ContextSnapshot is the read-only scoring context for a single platform,
// assembled by the context aggregator
type ContextSnapshot struct {
	Platform           Platform `json:"platform"`
	TopTopics          []string `json:"top_topics"`
	ActiveUsers        int      `json:"active_users"`
	RecentMessageTexts []string `json:"recent_message_texts"`
}
