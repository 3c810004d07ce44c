package queue

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/lumivoice/chat-attention/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entryWith(level models.SalienceLevel, total float64, enqueuedAt time.Time) models.QueueEntry {
	return models.QueueEntry{
		Message: models.ChatMessage{
			Platform: models.PlatformTwitch,
			Author:   models.Author{Username: fmt.Sprintf("user-%s-%.2f", level, total)},
			Content:  models.Content{Text: "payload"},
		},
		Score:      models.SalienceScore{Total: total, Level: level},
		EnqueuedAt: enqueuedAt,
	}
}

func TestPriorityQueue_OrdersByLevelScoreThenRecency(t *testing.T) {
	q := New(100)
	now := time.Now()

	// Inserted deliberately out of order
	inserted := []models.QueueEntry{
		entryWith(models.LevelLow, 0.25, now),
		entryWith(models.LevelCritical, 0.85, now.Add(2*time.Second)),
		entryWith(models.LevelHigh, 0.65, now),
		entryWith(models.LevelHigh, 0.70, now.Add(time.Second)),
		entryWith(models.LevelCritical, 0.85, now),
		entryWith(models.LevelMedium, 0.45, now),
	}
	for _, e := range inserted {
		assert.True(t, q.Insert(e))
	}

	expected := []struct {
		level models.SalienceLevel
		total float64
		at    time.Time
	}{
		{models.LevelCritical, 0.85, now}, // equal level+score: earlier enqueue wins
		{models.LevelCritical, 0.85, now.Add(2 * time.Second)},
		{models.LevelHigh, 0.70, now.Add(time.Second)}, // higher score beats recency
		{models.LevelHigh, 0.65, now},
		{models.LevelMedium, 0.45, now},
		{models.LevelLow, 0.25, now},
	}

	for i, want := range expected {
		entry, ok := q.Dequeue()
		require.True(t, ok, "dequeue %d", i)
		assert.Equal(t, want.level, entry.Score.Level, "dequeue %d", i)
		assert.Equal(t, want.total, entry.Score.Total, "dequeue %d", i)
		assert.True(t, want.at.Equal(entry.EnqueuedAt), "dequeue %d", i)
	}

	_, ok := q.Dequeue()
	assert.False(t, ok)
}

func TestPriorityQueue_EmptyDequeueAndPeek(t *testing.T) {
	q := New(10)

	_, ok := q.Dequeue()
	assert.False(t, ok)
	_, ok = q.Peek()
	assert.False(t, ok)
	assert.Zero(t, q.Len())
}

func TestPriorityQueue_PeekDoesNotRemove(t *testing.T) {
	q := New(10)
	now := time.Now()
	q.Insert(entryWith(models.LevelHigh, 0.7, now))
	q.Insert(entryWith(models.LevelLow, 0.25, now))

	peeked, ok := q.Peek()
	require.True(t, ok)
	assert.Equal(t, models.LevelHigh, peeked.Score.Level)
	assert.Equal(t, 2, q.Len())

	dequeued, ok := q.Dequeue()
	require.True(t, ok)
	assert.Equal(t, peeked.Score, dequeued.Score)
}

func TestPriorityQueue_RejectsLowerEntryAtCapacity(t *testing.T) {
	const capacity = 100
	q := New(capacity)
	now := time.Now()

	for i := 0; i < capacity; i++ {
		require.True(t, q.Insert(entryWith(models.LevelMedium, 0.45, now.Add(time.Duration(i)*time.Millisecond))))
	}

	assert.False(t, q.Insert(entryWith(models.LevelLow, 0.25, now)))
	assert.Equal(t, capacity, q.Len())
	assert.Equal(t, uint64(1), q.Dropped())
	assert.Zero(t, q.Evicted())
}

func TestPriorityQueue_EvictsLowestForHigherEntryAtCapacity(t *testing.T) {
	const capacity = 100
	q := New(capacity)
	now := time.Now()

	for i := 0; i < capacity; i++ {
		require.True(t, q.Insert(entryWith(models.LevelMedium, 0.45, now.Add(time.Duration(i)*time.Millisecond))))
	}

	assert.True(t, q.Insert(entryWith(models.LevelCritical, 0.9, now)))
	assert.Equal(t, capacity, q.Len())
	assert.Equal(t, uint64(1), q.Evicted())
	assert.Zero(t, q.Dropped())

	top, ok := q.Peek()
	require.True(t, ok)
	assert.Equal(t, models.LevelCritical, top.Score.Level)

	// The displaced entry is the most recent of the equal-ranked residents
	var last models.QueueEntry
	for {
		entry, ok := q.Dequeue()
		if !ok {
			break
		}
		last = entry
	}
	assert.True(t, last.EnqueuedAt.Equal(now.Add(time.Duration(capacity-2)*time.Millisecond)))
}

func TestPriorityQueue_EqualEntryAtCapacityIsDropped(t *testing.T) {
	q := New(1)
	now := time.Now()

	require.True(t, q.Insert(entryWith(models.LevelMedium, 0.45, now)))
	// Same level and score, later enqueue: the resident wins
	assert.False(t, q.Insert(entryWith(models.LevelMedium, 0.45, now.Add(time.Second))))
	assert.Equal(t, uint64(1), q.Dropped())
}

func TestPriorityQueue_ConcurrentInsertsKeepOrdering(t *testing.T) {
	q := New(1000)
	now := time.Now()

	var wg sync.WaitGroup
	levels := []models.SalienceLevel{models.LevelLow, models.LevelMedium, models.LevelHigh, models.LevelCritical}
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				level := levels[(worker+i)%len(levels)]
				q.Insert(entryWith(level, 0.2*float64(level), now.Add(time.Duration(i)*time.Millisecond)))
			}
		}(w)
	}
	wg.Wait()

	assert.Equal(t, 800, q.Len())

	prev := models.LevelCritical
	prevTotal := 1.0
	for {
		entry, ok := q.Dequeue()
		if !ok {
			break
		}
		if entry.Score.Level == prev {
			assert.LessOrEqual(t, entry.Score.Total, prevTotal)
		} else {
			assert.Less(t, entry.Score.Level, prev)
		}
		prev = entry.Score.Level
		prevTotal = entry.Score.Total
	}
}
