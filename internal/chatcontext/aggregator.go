package chatcontext

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/lumivoice/chat-attention/internal/models"
)

const (
	// Bounds on the shared rolling buffers
	recentHistorySize = 10
	topicTableMax     = 50
	topicTablePruneTo = 30

	// Word length cutoff for topic counting
	minTopicWordLen = 4

	// How many ranked topics a snapshot exposes
	topTopicCount = 5

	// A user counts as active if seen within this window
	activeUserWindow = 5 * time.Minute
)

type platformStats struct {
	topics   map[string]int
	lastSeen map[string]time.Time
}

// Aggregator owns the bounded rolling context shared across platforms.
// All mutation goes through Update; reads take a consistent copy.
type Aggregator struct {
	mu        sync.RWMutex
	recent    []string
	topics    map[string]int
	platforms map[models.Platform]*platformStats
	now       func() time.Time
}

// NewAggregator creates an empty context aggregator
func NewAggregator() *Aggregator {
	return &Aggregator{
		topics:    make(map[string]int),
		platforms: make(map[models.Platform]*platformStats),
		now:       time.Now,
	}
}

// Update folds one accepted message into the rolling context. Callers must
// score the message first; its own text must not be visible to its own
// relevance check.
func (a *Aggregator) Update(msg models.ChatMessage) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.recent = append(a.recent, msg.Content.Text)
	if len(a.recent) > recentHistorySize {
		a.recent = a.recent[len(a.recent)-recentHistorySize:]
	}

	stats := a.platforms[msg.Platform]
	if stats == nil {
		stats = &platformStats{
			topics:   make(map[string]int),
			lastSeen: make(map[string]time.Time),
		}
		a.platforms[msg.Platform] = stats
	}

	for _, word := range strings.Fields(strings.ToLower(msg.Content.Text)) {
		word = strings.Trim(word, ".,!?;:\"'")
		if len(word) < minTopicWordLen {
			continue
		}
		a.topics[word]++
		stats.topics[word]++
	}
	pruneTopics(a.topics)
	pruneTopics(stats.topics)

	now := a.now()
	stats.lastSeen[msg.Author.Username] = now
	for user, seen := range stats.lastSeen {
		if now.Sub(seen) > activeUserWindow {
			delete(stats.lastSeen, user)
		}
	}
}

// Snapshot returns a consistent read of the scoring context for one platform
func (a *Aggregator) Snapshot(platform models.Platform) models.ContextSnapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()

	snap := models.ContextSnapshot{
		Platform:           platform,
		RecentMessageTexts: append([]string(nil), a.recent...),
	}

	if stats := a.platforms[platform]; stats != nil {
		snap.TopTopics = topTopics(stats.topics, topTopicCount)
		now := a.now()
		for _, seen := range stats.lastSeen {
			if now.Sub(seen) <= activeUserWindow {
				snap.ActiveUsers++
			}
		}
	}

	return snap
}

// Stats summarizes the aggregate context for the status endpoint
func (a *Aggregator) Stats() (trackedTopics int, top []string) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.topics), topTopics(a.topics, topTopicCount)
}

// pruneTopics keeps the table bounded: once it exceeds topicTableMax distinct
// entries it is cut back to the topicTablePruneTo most frequent
func pruneTopics(table map[string]int) {
	if len(table) <= topicTableMax {
		return
	}
	keep := topTopics(table, topicTablePruneTo)
	kept := make(map[string]bool, len(keep))
	for _, word := range keep {
		kept[word] = true
	}
	for word := range table {
		if !kept[word] {
			delete(table, word)
		}
	}
}

// topTopics ranks topics by frequency, breaking ties alphabetically so the
// ordering is deterministic
func topTopics(table map[string]int, n int) []string {
	type topicCount struct {
		word  string
		count int
	}
	ranked := make([]topicCount, 0, len(table))
	for word, count := range table {
		ranked = append(ranked, topicCount{word, count})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].count != ranked[j].count {
			return ranked[i].count > ranked[j].count
		}
		return ranked[i].word < ranked[j].word
	})

	if len(ranked) > n {
		ranked = ranked[:n]
	}
	topics := make([]string, len(ranked))
	for i, tc := range ranked {
		topics[i] = tc.word
	}
	return topics
}
