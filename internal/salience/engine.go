package salience

import (
	"strings"
	"time"

	"github.com/lumivoice/chat-attention/internal/config"
	"github.com/lumivoice/chat-attention/internal/models"
	"github.com/sirupsen/logrus"
)

// Notability thresholds for reasoning entries, per sub-score
const (
	notableContent   = 0.3
	notableAuthority = 0.15
	notableRelevance = 0.1
	notableTemporal  = 0.1
)

// recencyHorizon is the message age at which the recency bonus reaches zero
const recencyHorizon = 5 * time.Minute

// activitySaturation is the activeUsers count at which the activity bonus maxes out
const activitySaturation = 50

var questionWords = []string{
	"who", "what", "when", "where", "why", "how",
	"is", "are", "can", "could", "do", "does", "will", "would", "should",
}

var agreementWords = []string{"yes", "agree", "also", "too"}

// Engine scores messages against a context snapshot. It holds no mutable
// state; a single instance is safe for concurrent use.
type Engine struct {
	mentionKeywords   []string
	emotionalKeywords map[string]float64
	technicalKeywords []string
	creativeKeywords  []string
	authorityBadges   []string

	contentWeight   float64
	authorityWeight float64
	relevanceWeight float64
	temporalWeight  float64

	criticalThreshold float64
	highThreshold     float64
	mediumThreshold   float64
	lowThreshold      float64

	accountAgeThresholdDays int

	now func() time.Time
}

// NewEngine creates a scoring engine from the loaded configuration
func NewEngine(cfg *config.Config) *Engine {
	return &Engine{
		mentionKeywords:         lowerAll(cfg.MentionKeywords),
		emotionalKeywords:       cfg.EmotionalKeywords,
		technicalKeywords:       lowerAll(cfg.TechnicalKeywords),
		creativeKeywords:        lowerAll(cfg.CreativeKeywords),
		authorityBadges:         lowerAll(cfg.AuthorityBadges),
		contentWeight:           cfg.ContentWeight,
		authorityWeight:         cfg.AuthorityWeight,
		relevanceWeight:         cfg.RelevanceWeight,
		temporalWeight:          cfg.TemporalWeight,
		criticalThreshold:       cfg.CriticalThreshold,
		highThreshold:           cfg.HighThreshold,
		mediumThreshold:         cfg.MediumThreshold,
		lowThreshold:            cfg.LowThreshold,
		accountAgeThresholdDays: cfg.AccountAgeThresholdDays,
		now:                     time.Now,
	}
}

// Score computes the multi-dimensional salience of one message against the
// given context snapshot. It never panics: any internal fault degrades to a
// neutral IGNORE score so the ingestion stream keeps flowing.
func (e *Engine) Score(msg models.ChatMessage, snap models.ContextSnapshot) (score models.SalienceScore) {
	defer func() {
		if r := recover(); r != nil {
			logrus.Errorf("Salience scoring fault, falling back to neutral score: %v", r)
			score = models.SalienceScore{
				Level:     models.LevelIgnore,
				Reasoning: []string{"scoring fault: neutral fallback applied"},
			}
		}
	}()

	text := strings.ToLower(msg.Content.Text)

	breakdown := models.ScoreBreakdown{
		Content:   e.contentScore(msg, text),
		Authority: e.authorityScore(msg.Author),
		Relevance: e.relevanceScore(msg, text, snap),
		Temporal:  e.temporalScore(msg, text, snap),
	}

	total := clamp01(e.contentWeight*breakdown.Content +
		e.authorityWeight*breakdown.Authority +
		e.relevanceWeight*breakdown.Relevance +
		e.temporalWeight*breakdown.Temporal)

	return models.SalienceScore{
		Total:     total,
		Breakdown: breakdown,
		Level:     e.LevelFor(total),
		Reasoning: buildReasoning(breakdown),
	}
}

// LevelFor maps a total score onto its discrete priority level
func (e *Engine) LevelFor(total float64) models.SalienceLevel {
	switch {
	case total >= e.criticalThreshold:
		return models.LevelCritical
	case total >= e.highThreshold:
		return models.LevelHigh
	case total >= e.mediumThreshold:
		return models.LevelMedium
	case total >= e.lowThreshold:
		return models.LevelLow
	default:
		return models.LevelIgnore
	}
}

func (e *Engine) contentScore(msg models.ChatMessage, text string) float64 {
	score := 0.0

	if len(msg.Content.Mentions) > 0 || containsAny(text, e.mentionKeywords) {
		score += 0.4
	}

	// Only the strongest matched emotional keyword counts, capped at 0.2
	best := 0.0
	for keyword, impact := range e.emotionalKeywords {
		if strings.Contains(text, keyword) && impact > best {
			best = impact
		}
	}
	if best > 0.2 {
		best = 0.2
	}
	score += best

	if containsAny(text, e.technicalKeywords) {
		score += 0.3
	}
	if containsAny(text, e.creativeKeywords) {
		score += 0.25
	}

	return clamp01(score)
}

func (e *Engine) authorityScore(author models.Author) float64 {
	score := 0.0

	if author.IsSubscriber {
		score += 0.15
	}
	if author.IsModerator {
		score += 0.2
	}

	switch {
	case author.FollowAgeDays != nil && *author.FollowAgeDays > e.accountAgeThresholdDays:
		score += 0.1
	case author.FollowAgeDays == nil || *author.FollowAgeDays == 0:
		// First-time chatter bonus
		score += 0.05
	}

	for _, badge := range author.Badges {
		if containsAny(strings.ToLower(badge), e.authorityBadges) {
			score += 0.1
			break
		}
	}

	return clamp01(score)
}

func (e *Engine) relevanceScore(msg models.ChatMessage, text string, snap models.ContextSnapshot) float64 {
	score := 0.0

	for _, topic := range snap.TopTopics {
		if strings.Contains(text, strings.ToLower(topic)) {
			score += 0.2
			break
		}
	}

	// Compare against only the tail of recent history
	recent := snap.RecentMessageTexts
	if len(recent) > 3 {
		recent = recent[len(recent)-3:]
	}
	words := wordSet(text)
	for _, prev := range recent {
		if jaccard(words, wordSet(strings.ToLower(prev))) > 0.3 {
			score += 0.15
			break
		}
	}

	if msg.IsReply() || containsAnyWord(text, agreementWords) {
		score += 0.1
	}

	return clamp01(score)
}

func (e *Engine) temporalScore(msg models.ChatMessage, text string, snap models.ContextSnapshot) float64 {
	score := 0.0

	age := e.now().Sub(msg.Timestamp())
	if age < 0 {
		age = 0
	}
	if age < recencyHorizon {
		score += 0.15 * (1 - float64(age)/float64(recencyHorizon))
	}

	if isInterrogative(text) {
		score += 0.1
	}

	activity := float64(snap.ActiveUsers) / activitySaturation
	if activity > 1 {
		activity = 1
	}
	score += 0.1 * activity

	return clamp01(score)
}

// buildReasoning lists the sub-scores that cleared their notability
// thresholds, in a stable order
func buildReasoning(b models.ScoreBreakdown) []string {
	var reasons []string
	if b.Content > notableContent {
		reasons = append(reasons, "content signals: mention, emotional, or topical keywords")
	}
	if b.Authority > notableAuthority {
		reasons = append(reasons, "authoritative author")
	}
	if b.Relevance > notableRelevance {
		reasons = append(reasons, "relevant to the current conversation")
	}
	if b.Temporal > notableTemporal {
		reasons = append(reasons, "timely message")
	}
	if len(reasons) == 0 {
		reasons = []string{"no notable salience signals"}
	}
	return reasons
}

func isInterrogative(text string) bool {
	if strings.Contains(text, "?") {
		return true
	}
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return false
	}
	first := strings.Trim(fields[0], ".,!")
	for _, qw := range questionWords {
		if first == qw {
			return true
		}
	}
	return false
}

func wordSet(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, word := range strings.Fields(text) {
		word = strings.Trim(word, ".,!?;:\"'")
		if word != "" {
			set[word] = struct{}{}
		}
	}
	return set
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	intersection := 0
	for word := range a {
		if _, ok := b[word]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	return float64(intersection) / float64(union)
}

func containsAny(text string, keywords []string) bool {
	for _, keyword := range keywords {
		if strings.Contains(text, keyword) {
			return true
		}
	}
	return false
}

func containsAnyWord(text string, words []string) bool {
	fields := wordSet(text)
	for _, word := range words {
		if _, ok := fields[word]; ok {
			return true
		}
	}
	return false
}

func lowerAll(values []string) []string {
	lowered := make([]string, len(values))
	for i, v := range values {
		lowered[i] = strings.ToLower(v)
	}
	return lowered
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
