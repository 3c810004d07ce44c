package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// StateConfig holds the tunables for one attention state
type StateConfig struct {
	ResponseRate float64
	AvgDwell     time.Duration
	TimeWeight   float64
}

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Port  string
	Debug bool

	// Inbound adapters
	RelayURL                 string
	EnableSimulatedAdapter   bool
	SimulatedMessageInterval time.Duration

	// Outbound response pipeline
	WebhookURL string

	// Processing
	QueueCapacity      int
	ProcessingInterval time.Duration

	// Sub-score weights (content/authority/relevance/temporal)
	ContentWeight   float64
	AuthorityWeight float64
	RelevanceWeight float64
	TemporalWeight  float64

	// Level thresholds
	CriticalThreshold float64
	HighThreshold     float64
	MediumThreshold   float64
	LowThreshold      float64

	// Scoring vocabularies
	MentionKeywords   []string
	EmotionalKeywords map[string]float64 // keyword -> impact
	TechnicalKeywords []string
	CreativeKeywords  []string
	AuthorityBadges   []string

	AccountAgeThresholdDays int

	// Attention gate tuning
	GateSalienceBoost float64

	// Per-state attention configuration
	Focused   StateConfig
	Casual    StateConfig
	DeepFocus StateConfig
	Break     StateConfig

	// Fixed seed for the attention machine's random source; 0 means
	// seed from the clock
	RandomSeed int64
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Port:  getEnv("PORT", "8080"),
		Debug: getBoolEnv("DEBUG", false),

		RelayURL:                 getEnv("RELAY_URL", ""),
		EnableSimulatedAdapter:   getBoolEnv("ENABLE_SIMULATED_ADAPTER", false),
		SimulatedMessageInterval: getDurationEnv("SIMULATED_MESSAGE_INTERVAL", 500*time.Millisecond),

		WebhookURL: getEnv("WEBHOOK_URL", ""),

		QueueCapacity:      getIntEnv("QUEUE_CAPACITY", 10000),
		ProcessingInterval: getDurationEnv("PROCESSING_INTERVAL", time.Second),

		ContentWeight:   getFloatEnv("CONTENT_WEIGHT", 0.40),
		AuthorityWeight: getFloatEnv("AUTHORITY_WEIGHT", 0.25),
		RelevanceWeight: getFloatEnv("RELEVANCE_WEIGHT", 0.20),
		TemporalWeight:  getFloatEnv("TEMPORAL_WEIGHT", 0.15),

		CriticalThreshold: getFloatEnv("CRITICAL_THRESHOLD", 0.8),
		HighThreshold:     getFloatEnv("HIGH_THRESHOLD", 0.6),
		MediumThreshold:   getFloatEnv("MEDIUM_THRESHOLD", 0.4),
		LowThreshold:      getFloatEnv("LOW_THRESHOLD", 0.2),

		MentionKeywords: getSliceEnv("MENTION_KEYWORDS", []string{
			"lumi", "@lumi", "hey lumi",
		}),
		EmotionalKeywords: getImpactMapEnv("EMOTIONAL_KEYWORDS", map[string]float64{
			"help":      0.25,
			"urgent":    0.3,
			"emergency": 0.3,
			"amazing":   0.2,
			"love":      0.15,
			"crying":    0.2,
			"hype":      0.15,
			"pog":       0.1,
		}),
		TechnicalKeywords: getSliceEnv("TECHNICAL_KEYWORDS", []string{
			"code", "programming", "algorithm", "neural", "model",
			"api", "bug", "shader", "golang", "python",
		}),
		CreativeKeywords: getSliceEnv("CREATIVE_KEYWORDS", []string{
			"draw", "sing", "song", "story", "collab", "design", "game idea",
		}),
		AuthorityBadges: getSliceEnv("AUTHORITY_BADGES", []string{
			"verified", "partner", "staff", "admin", "founder",
		}),

		AccountAgeThresholdDays: getIntEnv("ACCOUNT_AGE_THRESHOLD_DAYS", 30),

		GateSalienceBoost: getFloatEnv("GATE_SALIENCE_BOOST", 0.5),

		Focused: StateConfig{
			ResponseRate: getFloatEnv("FOCUSED_RESPONSE_RATE", 0.8),
			AvgDwell:     getDurationEnv("FOCUSED_AVG_DWELL", 90*time.Second),
			TimeWeight:   getFloatEnv("FOCUSED_TIME_WEIGHT", 0.4),
		},
		Casual: StateConfig{
			ResponseRate: getFloatEnv("CASUAL_RESPONSE_RATE", 0.4),
			AvgDwell:     getDurationEnv("CASUAL_AVG_DWELL", 2*time.Minute),
			TimeWeight:   getFloatEnv("CASUAL_TIME_WEIGHT", 0.35),
		},
		DeepFocus: StateConfig{
			ResponseRate: getFloatEnv("DEEP_FOCUS_RESPONSE_RATE", 0.1),
			AvgDwell:     getDurationEnv("DEEP_FOCUS_AVG_DWELL", 3*time.Minute),
			TimeWeight:   getFloatEnv("DEEP_FOCUS_TIME_WEIGHT", 0.2),
		},
		Break: StateConfig{
			ResponseRate: getFloatEnv("BREAK_RESPONSE_RATE", 0.6),
			AvgDwell:     getDurationEnv("BREAK_AVG_DWELL", 30*time.Second),
			TimeWeight:   getFloatEnv("BREAK_TIME_WEIGHT", 0.05),
		},

		RandomSeed: int64(getIntEnv("RANDOM_SEED", 0)),
	}

	// Validate required configuration
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.QueueCapacity <= 0 {
		return fmt.Errorf("QUEUE_CAPACITY must be positive")
	}
	if c.ProcessingInterval <= 0 {
		return fmt.Errorf("PROCESSING_INTERVAL must be positive")
	}

	weightSum := c.ContentWeight + c.AuthorityWeight + c.RelevanceWeight + c.TemporalWeight
	if weightSum < 0.99 || weightSum > 1.01 {
		return fmt.Errorf("sub-score weights must sum to 1.0, got %.3f", weightSum)
	}

	thresholds := []float64{c.CriticalThreshold, c.HighThreshold, c.MediumThreshold, c.LowThreshold}
	for i := 1; i < len(thresholds); i++ {
		if thresholds[i] >= thresholds[i-1] {
			return fmt.Errorf("level thresholds must be strictly descending")
		}
	}
	for _, t := range thresholds {
		if t < 0 || t > 1 {
			return fmt.Errorf("level thresholds must be within [0,1]")
		}
	}

	for name, sc := range map[string]StateConfig{
		"FOCUSED": c.Focused, "CASUAL": c.Casual, "DEEP_FOCUS": c.DeepFocus, "BREAK": c.Break,
	} {
		if sc.ResponseRate < 0 || sc.ResponseRate > 1 {
			return fmt.Errorf("%s_RESPONSE_RATE must be within [0,1]", name)
		}
		if sc.AvgDwell <= 0 {
			return fmt.Errorf("%s_AVG_DWELL must be positive", name)
		}
		if sc.TimeWeight <= 0 {
			return fmt.Errorf("%s_TIME_WEIGHT must be positive", name)
		}
	}

	return nil
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getSliceEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}
	return defaultValue
}

// getImpactMapEnv parses "keyword:impact,keyword:impact" pairs
func getImpactMapEnv(key string, defaultValue map[string]float64) map[string]float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	parsed := make(map[string]float64)
	for _, pair := range strings.Split(value, ",") {
		parts := strings.SplitN(strings.TrimSpace(pair), ":", 2)
		if len(parts) != 2 {
			continue
		}
		impact, err := strconv.ParseFloat(parts[1], 64)
		if err != nil {
			continue
		}
		parsed[strings.ToLower(parts[0])] = impact
	}

	if len(parsed) == 0 {
		return defaultValue
	}
	return parsed
}
