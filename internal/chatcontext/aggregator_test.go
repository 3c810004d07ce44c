package chatcontext

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/lumivoice/chat-attention/internal/models"
	"github.com/stretchr/testify/assert"
)

func chatMessage(platform models.Platform, user, text string) models.ChatMessage {
	return models.ChatMessage{
		Platform: platform,
		Author:   models.Author{Username: user},
		Content:  models.Content{Text: text},
	}
}

func TestAggregator_RecentHistoryStaysBounded(t *testing.T) {
	agg := NewAggregator()

	for i := 0; i < 100; i++ {
		agg.Update(chatMessage(models.PlatformTwitch, "user", fmt.Sprintf("message number %d", i)))
	}

	snap := agg.Snapshot(models.PlatformTwitch)
	assert.Len(t, snap.RecentMessageTexts, recentHistorySize)
	// Oldest entries evicted, newest retained in order
	assert.Equal(t, "message number 90", snap.RecentMessageTexts[0])
	assert.Equal(t, "message number 99", snap.RecentMessageTexts[recentHistorySize-1])
}

func TestAggregator_TopicTablePrunes(t *testing.T) {
	agg := NewAggregator()

	// One dominant topic plus enough distinct words to force pruning
	for i := 0; i < 100; i++ {
		agg.Update(chatMessage(models.PlatformTwitch, "user", "anchorword"))
	}
	for i := 0; i < 60; i++ {
		agg.Update(chatMessage(models.PlatformTwitch, "user", fmt.Sprintf("topicword%02d", i)))
	}

	tracked, top := agg.Stats()
	assert.LessOrEqual(t, tracked, topicTableMax)
	assert.GreaterOrEqual(t, tracked, topicTablePruneTo)

	// The dominant topic survives every prune
	assert.Equal(t, "anchorword", top[0])
}

func TestAggregator_ShortWordsNotCounted(t *testing.T) {
	agg := NewAggregator()
	agg.Update(chatMessage(models.PlatformTwitch, "user", "the cat sat on a very fluffy carpet"))

	tracked, top := agg.Stats()
	assert.Equal(t, 3, tracked)
	assert.ElementsMatch(t, []string{"very", "fluffy", "carpet"}, top)
}

func TestAggregator_SnapshotIsPerPlatform(t *testing.T) {
	agg := NewAggregator()

	agg.Update(chatMessage(models.PlatformTwitch, "alice", "raiding the dungeon tonight"))
	agg.Update(chatMessage(models.PlatformTwitch, "bob", "dungeon runs again"))
	agg.Update(chatMessage(models.PlatformYouTube, "carol", "premiere schedule question"))

	twitch := agg.Snapshot(models.PlatformTwitch)
	assert.Equal(t, 2, twitch.ActiveUsers)
	assert.Contains(t, twitch.TopTopics, "dungeon")
	assert.NotContains(t, twitch.TopTopics, "premiere")

	youtube := agg.Snapshot(models.PlatformYouTube)
	assert.Equal(t, 1, youtube.ActiveUsers)
	assert.Contains(t, youtube.TopTopics, "premiere")

	// Recent history is shared across platforms
	assert.Len(t, twitch.RecentMessageTexts, 3)
	assert.Equal(t, twitch.RecentMessageTexts, youtube.RecentMessageTexts)

	// Unknown platform still gets the shared history
	discord := agg.Snapshot(models.PlatformDiscord)
	assert.Zero(t, discord.ActiveUsers)
	assert.Empty(t, discord.TopTopics)
	assert.Len(t, discord.RecentMessageTexts, 3)
}

func TestAggregator_ActiveUsersExpire(t *testing.T) {
	agg := NewAggregator()
	current := time.Now()
	agg.now = func() time.Time { return current }

	agg.Update(chatMessage(models.PlatformTwitch, "alice", "evening chat"))
	assert.Equal(t, 1, agg.Snapshot(models.PlatformTwitch).ActiveUsers)

	current = current.Add(activeUserWindow + time.Second)
	assert.Zero(t, agg.Snapshot(models.PlatformTwitch).ActiveUsers)
}

func TestAggregator_BoundsHoldUnderConcurrentProducers(t *testing.T) {
	agg := NewAggregator()

	var wg sync.WaitGroup
	platforms := []models.Platform{models.PlatformTwitch, models.PlatformYouTube, models.PlatformDiscord}
	for p := 0; p < len(platforms); p++ {
		wg.Add(1)
		go func(platform models.Platform) {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				agg.Update(chatMessage(platform, fmt.Sprintf("user%d", i%7),
					fmt.Sprintf("concurrent word%03d chatter", i)))
				snap := agg.Snapshot(platform)
				if len(snap.RecentMessageTexts) > recentHistorySize {
					t.Errorf("recent history exceeded bound: %d", len(snap.RecentMessageTexts))
					return
				}
			}
		}(platforms[p])
	}
	wg.Wait()

	tracked, _ := agg.Stats()
	assert.LessOrEqual(t, tracked, topicTableMax)
}
