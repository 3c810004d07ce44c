package attention

import (
	"math/rand"
	"sync"
	"time"

	"github.com/lumivoice/chat-attention/internal/config"
	"github.com/lumivoice/chat-attention/internal/models"
	"github.com/sirupsen/logrus"
)

// State is one of the four simulated engagement modes
type State int

const (
	FocusedInteraction State = iota
	CasualMonitoring
	DeepFocus
	BreakTransition
)

// stateOrder fixes iteration order for the weighted draw, so a seeded random
// source reproduces the exact same transition sequence
var stateOrder = [...]State{FocusedInteraction, CasualMonitoring, DeepFocus, BreakTransition}

func (s State) String() string {
	switch s {
	case FocusedInteraction:
		return "focused_interaction"
	case CasualMonitoring:
		return "casual_monitoring"
	case DeepFocus:
		return "deep_focus"
	case BreakTransition:
		return "break_transition"
	default:
		return "unknown"
	}
}

// Machine simulates variable engagement. Transitions are timer-driven via
// Tick, except for the critical-message interrupt. The random source is
// injected so tests can pin the sequence.
type Machine struct {
	mu            sync.Mutex
	params        [len(stateOrder)]config.StateConfig
	salienceBoost float64
	rng           *rand.Rand

	state     State
	enteredAt time.Time
	dwell     time.Duration
}

// NewMachine creates a machine in CASUAL_MONITORING with a freshly sampled
// dwell duration
func NewMachine(cfg *config.Config, rng *rand.Rand, now time.Time) *Machine {
	m := &Machine{
		salienceBoost: cfg.GateSalienceBoost,
		rng:           rng,
		state:         CasualMonitoring,
		enteredAt:     now,
	}
	m.params[FocusedInteraction] = cfg.Focused
	m.params[CasualMonitoring] = cfg.Casual
	m.params[DeepFocus] = cfg.DeepFocus
	m.params[BreakTransition] = cfg.Break
	m.dwell = m.sampleDwell(CasualMonitoring)
	return m
}

// Tick advances the timer-driven transition logic. It returns the active
// state and whether this call changed it.
func (m *Machine) Tick(now time.Time) (State, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if now.Sub(m.enteredAt) < m.dwell {
		return m.state, false
	}

	next := m.pickNext()
	logrus.Debugf("Attention transition %s -> %s after %v dwell", m.state, next, m.dwell)
	m.enter(next, now)
	return m.state, true
}

// Interrupt forces FOCUSED_INTERACTION when a critical message arrives during
// DEEP_FOCUS or CASUAL_MONITORING. This is the only transition not gated by
// the dwell timer. Returns true when the state changed.
func (m *Machine) Interrupt(now time.Time) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != DeepFocus && m.state != CasualMonitoring {
		return false
	}
	logrus.Debugf("Attention interrupt %s -> %s", m.state, FocusedInteraction)
	m.enter(FocusedInteraction, now)
	return true
}

// ShouldRespond decides whether a dequeued message passes the attention gate.
// Critical messages always pass; anything else is a weighted coin flip on
// min(1, responseRate + total*salienceBoost), monotonic in salience.
func (m *Machine) ShouldRespond(score models.SalienceScore) bool {
	if score.Level == models.LevelCritical {
		return true
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rng.Float64() < m.passProbability(score)
}

// State returns the active state and when it was entered
func (m *Machine) State() (State, time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state, m.enteredAt
}

func (m *Machine) passProbability(score models.SalienceScore) float64 {
	p := m.params[m.state].ResponseRate + score.Total*m.salienceBoost
	if p > 1 {
		p = 1
	}
	return p
}

func (m *Machine) enter(next State, now time.Time) {
	m.state = next
	m.enteredAt = now
	m.dwell = m.sampleDwell(next)
}

// pickNext draws the next state by time-weight, excluding an immediate
// self-transition
func (m *Machine) pickNext() State {
	total := 0.0
	for _, s := range stateOrder {
		if s == m.state {
			continue
		}
		total += m.params[s].TimeWeight
	}

	r := m.rng.Float64() * total
	for _, s := range stateOrder {
		if s == m.state {
			continue
		}
		r -= m.params[s].TimeWeight
		if r < 0 {
			return s
		}
	}
	// Floating point remainder lands on the last non-current state
	for i := len(stateOrder) - 1; i >= 0; i-- {
		if stateOrder[i] != m.state {
			return stateOrder[i]
		}
	}
	return m.state
}

// sampleDwell draws uniformly from [0.5*avg, 1.5*avg], keeping dwell bounded
// and strictly positive
func (m *Machine) sampleDwell(s State) time.Duration {
	avg := float64(m.params[s].AvgDwell)
	return time.Duration(avg/2 + m.rng.Float64()*avg)
}
