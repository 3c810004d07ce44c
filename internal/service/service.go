package service

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/lumivoice/chat-attention/internal/adapters"
	"github.com/lumivoice/chat-attention/internal/attention"
	"github.com/lumivoice/chat-attention/internal/chatcontext"
	"github.com/lumivoice/chat-attention/internal/config"
	"github.com/lumivoice/chat-attention/internal/models"
	"github.com/lumivoice/chat-attention/internal/pipeline"
	"github.com/lumivoice/chat-attention/internal/queue"
	"github.com/lumivoice/chat-attention/internal/salience"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

const emitTimeout = 5 * time.Second

// Counters tracks per-event-type totals for the status endpoint
type Counters struct {
	Received      uint64            `json:"received"`
	Malformed     uint64            `json:"malformed"`
	ScoredByLevel map[string]uint64 `json:"scored_by_level"`
	Enqueued      uint64            `json:"enqueued"`
	Dropped       uint64            `json:"dropped"`
	Evicted       uint64            `json:"evicted"`
	Emitted       uint64            `json:"emitted"`
	Suppressed    uint64            `json:"suppressed"`
	EmitErrors    uint64            `json:"emit_errors"`
	TicksSkipped  uint64            `json:"ticks_skipped"`
}

// Status is the read-only observability snapshot
type Status struct {
	QueueDepth     int       `json:"queue_depth"`
	Counters       Counters  `json:"counters"`
	AttentionState string    `json:"attention_state"`
	StateEnteredAt time.Time `json:"state_entered_at"`
	TrackedTopics  int       `json:"tracked_topics"`
	TopTopics      []string  `json:"top_topics"`
}

// Service orchestrates ingestion, scoring, queueing, and the attention-gated
// dequeue cycle that feeds the response pipeline.
type Service struct {
	cfg       *config.Config
	engine    *salience.Engine
	context   *chatcontext.Aggregator
	queue     *queue.PriorityQueue
	attention *attention.Machine
	pipeline  pipeline.ResponsePipeline
	adapters  []adapters.Adapter

	cron          *cron.Cron
	adapterCancel context.CancelFunc
	adapterWG     sync.WaitGroup

	accepting atomic.Bool
	inFlight  atomic.Bool

	mu       sync.RWMutex
	counters Counters

	now func() time.Time
}

// New creates the aggregation service with all internal components built
// from the loaded configuration
func New(cfg *config.Config, pipe pipeline.ResponsePipeline) *Service {
	seed := cfg.RandomSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	return &Service{
		cfg:       cfg,
		engine:    salience.NewEngine(cfg),
		context:   chatcontext.NewAggregator(),
		queue:     queue.New(cfg.QueueCapacity),
		attention: attention.NewMachine(cfg, rng, time.Now()),
		pipeline:  pipe,
		counters:  Counters{ScoredByLevel: make(map[string]uint64)},
		now:       time.Now,
	}
}

// RegisterAdapter attaches an inbound producer; it starts with the service
func (s *Service) RegisterAdapter(a adapters.Adapter) {
	if !a.Enabled() {
		logrus.Infof("Adapter %s disabled, skipping", a.Name())
		return
	}
	s.adapters = append(s.adapters, a)
}

// Ingest accepts one normalized message: validate, score against the current
// context, fold into the context, and enqueue. Returns an error only for
// rejected input; rejection is a counted, non-fatal outcome.
func (s *Service) Ingest(msg models.ChatMessage) error {
	if !s.accepting.Load() {
		return fmt.Errorf("service is not accepting messages")
	}

	s.mu.Lock()
	s.counters.Received++
	s.mu.Unlock()

	if err := msg.Validate(); err != nil {
		s.mu.Lock()
		s.counters.Malformed++
		s.mu.Unlock()
		return fmt.Errorf("rejected malformed message: %w", err)
	}

	if msg.Metadata.TimestampMillis == 0 {
		msg.Metadata.TimestampMillis = s.now().UnixMilli()
	}

	// Score before updating context so a message is never relevant to itself
	snapshot := s.context.Snapshot(msg.Platform)
	score := s.engine.Score(msg, snapshot)
	s.context.Update(msg)

	s.mu.Lock()
	s.counters.ScoredByLevel[score.Level.String()]++
	s.mu.Unlock()

	if score.Level == models.LevelCritical {
		if s.attention.Interrupt(s.now()) {
			logrus.Info("Critical message interrupted attention state")
		}
	}

	entry := models.QueueEntry{
		Message:    msg,
		Score:      score,
		EnqueuedAt: s.now(),
	}

	if s.queue.Insert(entry) {
		s.mu.Lock()
		s.counters.Enqueued++
		s.mu.Unlock()
		logrus.Debugf("Enqueued %s message from %s@%s (total %.2f)",
			score.Level, msg.Author.Username, msg.Platform, score.Total)
	} else {
		logrus.Debugf("Queue full, dropped %s message from %s@%s",
			score.Level, msg.Author.Username, msg.Platform)
	}

	return nil
}

// Start launches the registered adapters and the periodic dequeue cycle
func (s *Service) Start() error {
	s.accepting.Store(true)

	ctx, cancel := context.WithCancel(context.Background())
	s.adapterCancel = cancel

	for _, a := range s.adapters {
		s.adapterWG.Add(1)
		go func(a adapters.Adapter) {
			defer s.adapterWG.Done()
			logrus.Infof("Starting adapter %s", a.Name())
			if err := a.Run(ctx, s); err != nil && ctx.Err() == nil {
				logrus.Errorf("Adapter %s stopped: %v", a.Name(), err)
			}
		}(a)
	}

	s.cron = cron.New(cron.WithSeconds())
	if _, err := s.cron.AddFunc(fmt.Sprintf("@every %s", s.cfg.ProcessingInterval), s.RunCycle); err != nil {
		cancel()
		return fmt.Errorf("failed to schedule processing cycle: %w", err)
	}
	s.cron.Start()

	logrus.Infof("Aggregation service started with %d adapter(s), processing every %v",
		len(s.adapters), s.cfg.ProcessingInterval)
	return nil
}

// Stop shuts down in order: refuse new ingestion, stop adapters, let the
// in-flight cycle finish, then discard the queue and close the pipeline.
func (s *Service) Stop() {
	s.accepting.Store(false)

	if s.adapterCancel != nil {
		s.adapterCancel()
	}
	s.adapterWG.Wait()

	if s.cron != nil {
		stopped := s.cron.Stop()
		select {
		case <-stopped.Done():
		case <-time.After(emitTimeout + time.Second):
			logrus.Warn("Timed out waiting for in-flight processing cycle")
		}
	}

	discarded := s.queue.Len()
	s.queue.Clear()
	if discarded > 0 {
		logrus.Infof("Discarded %d queued messages on shutdown", discarded)
	}

	if err := s.pipeline.Close(); err != nil {
		logrus.Errorf("Failed to close response pipeline: %v", err)
	}

	logrus.Info("Aggregation service stopped")
}

// RunCycle performs one dequeue/gate/emit pass. Cycles never overlap: a tick
// arriving while one is in flight is counted and skipped.
func (s *Service) RunCycle() {
	if !s.inFlight.CompareAndSwap(false, true) {
		s.mu.Lock()
		s.counters.TicksSkipped++
		s.mu.Unlock()
		return
	}
	defer s.inFlight.Store(false)

	now := s.now()
	s.attention.Tick(now)

	entry, ok := s.queue.Dequeue()
	if !ok {
		return
	}

	if !s.attention.ShouldRespond(entry.Score) {
		s.mu.Lock()
		s.counters.Suppressed++
		s.mu.Unlock()
		logrus.Debugf("Suppressed %s message from %s (gate closed)",
			entry.Score.Level, entry.Message.Author.Username)
		return
	}

	state, _ := s.attention.State()
	decision := models.Decision{
		ID:             uuid.NewString(),
		Message:        entry.Message,
		Score:          entry.Score,
		AttentionState: state.String(),
		EmittedAt:      now,
	}

	ctx, cancel := context.WithTimeout(context.Background(), emitTimeout)
	defer cancel()

	if err := s.pipeline.Emit(ctx, decision); err != nil {
		s.mu.Lock()
		s.counters.EmitErrors++
		s.mu.Unlock()
		logrus.Errorf("Failed to emit decision %s: %v", decision.ID, err)
		return
	}

	s.mu.Lock()
	s.counters.Emitted++
	s.mu.Unlock()
	logrus.Infof("Emitted %s message from %s@%s in state %s",
		entry.Score.Level, entry.Message.Author.Username, entry.Message.Platform, state)
}

// Status returns the current observability snapshot
func (s *Service) Status() Status {
	s.mu.RLock()
	counters := s.counters
	counters.ScoredByLevel = make(map[string]uint64, len(s.counters.ScoredByLevel))
	for level, count := range s.counters.ScoredByLevel {
		counters.ScoredByLevel[level] = count
	}
	s.mu.RUnlock()

	counters.Dropped = s.queue.Dropped()
	counters.Evicted = s.queue.Evicted()

	state, enteredAt := s.attention.State()
	trackedTopics, topTopics := s.context.Stats()

	return Status{
		QueueDepth:     s.queue.Len(),
		Counters:       counters,
		AttentionState: state.String(),
		StateEnteredAt: enteredAt,
		TrackedTopics:  trackedTopics,
		TopTopics:      topTopics,
	}
}
