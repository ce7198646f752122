package model

import (
	"fmt"
	"time"
)

// Config is the complete runtime configuration. Every constant table the
// engine depends on lives here so tests can substitute it and Validate can
// check completeness at startup.
type Config struct {
	LLM         LLMConfig         `yaml:"llm" json:"llm"`
	Cache       CacheConfig       `yaml:"cache" json:"cache"`
	Concurrency ConcurrencyConfig `yaml:"concurrency" json:"concurrency"`
	Sources     SourcesConfig     `yaml:"sources" json:"sources"`
	Classify    ClassifyConfig    `yaml:"classify" json:"classify"`
	CrossRef    CrossRefConfig    `yaml:"crossref" json:"crossref"`
	Themes      ThemesConfig      `yaml:"themes" json:"themes"`
	Quality     QualityConfig     `yaml:"quality" json:"quality"`
	Output      OutputConfig      `yaml:"output" json:"output"`
}

// LLMConfig configures the external text-generation collaborator
type LLMConfig struct {
	Provider    string  `yaml:"provider" json:"provider"` // openai, anthropic, ollama, "" (disabled)
	Model       string  `yaml:"model" json:"model"`
	APIKey      string  `yaml:"-" json:"-"` // Environment only, never serialized
	BaseURL     string  `yaml:"base_url" json:"base_url"`
	Timeout     int     `yaml:"timeout" json:"timeout"` // Seconds
	MaxTokens   int     `yaml:"max_tokens" json:"max_tokens"`
	Temperature float32 `yaml:"temperature" json:"temperature"`
	MaxRetries  int     `yaml:"max_retries" json:"max_retries"`
	RateLimit   float64 `yaml:"rate_limit" json:"rate_limit"` // Requests per second
	RateBurst   int     `yaml:"rate_burst" json:"rate_burst"`
	MaxInputLen int     `yaml:"max_input_len" json:"max_input_len"` // Sanitizer cap on embedded user text

	HTTPProxy  string `yaml:"http_proxy" json:"http_proxy"`
	HTTPSProxy string `yaml:"https_proxy" json:"https_proxy"`
	NoProxy    string `yaml:"no_proxy" json:"no_proxy"`
}

// CacheConfig configures collaborator response caching
type CacheConfig struct {
	Enabled         bool          `yaml:"enabled" json:"enabled"`
	TTL             time.Duration `yaml:"ttl" json:"ttl"`
	CleanupInterval time.Duration `yaml:"cleanup_interval" json:"cleanup_interval"`
	Dir             string        `yaml:"dir" json:"dir"` // Disk tier; empty disables it
}

// ConcurrencyConfig bounds the worker pool around collaborator calls
type ConcurrencyConfig struct {
	ScoreWorkers int `yaml:"score_workers" json:"score_workers"`
}

// SourcesConfig carries the fixed per-source tables
type SourcesConfig struct {
	// Weights feed evidence strength labels and initial theme conviction.
	// Strength label: >=1.5 strong, >=1.0 moderate, else weak.
	Weights       map[string]float64 `yaml:"weights" json:"weights"`
	DefaultWeight float64            `yaml:"default_weight" json:"default_weight"`

	// Reliability in [0,1] feeds the belief update likelihood.
	Reliability        map[string]float64 `yaml:"reliability" json:"reliability"`
	DefaultReliability float64            `yaml:"default_reliability" json:"default_reliability"`
}

// ClassifyConfig carries the deterministic triage rule tables
type ClassifyConfig struct {
	UrgentKeywords map[string][]string `yaml:"urgent_keywords" json:"urgent_keywords"` // Per-source high-priority patterns
	MediumKeywords map[string][]string `yaml:"medium_keywords" json:"medium_keywords"`
	AlwaysMedium   []string            `yaml:"always_medium" json:"always_medium"` // Sources floored at medium
	LiveVideoHosts []string            `yaml:"live_video_hosts" json:"live_video_hosts"`
	LiveVideoKeywords []string         `yaml:"live_video_keywords" json:"live_video_keywords"`
	LiveVideoSources  []string         `yaml:"live_video_sources" json:"live_video_sources"`
	FallbackConfidence float64         `yaml:"fallback_confidence" json:"fallback_confidence"`
}

// CrossRefConfig tunes the cross-reference engine
type CrossRefConfig struct {
	MinSources              int     `yaml:"min_sources" json:"min_sources"`
	DefaultPrior            float64 `yaml:"default_prior" json:"default_prior"`
	HighConvictionThreshold float64 `yaml:"high_conviction_threshold" json:"high_conviction_threshold"`
	HistoryDepth            int     `yaml:"history_depth" json:"history_depth"`
	TrendDelta              float64 `yaml:"trend_delta" json:"trend_delta"`
	IntervalHalfWidth       float64 `yaml:"interval_half_width" json:"interval_half_width"`

	BullishKeywords []string `yaml:"bullish_keywords" json:"bullish_keywords"`
	BearishKeywords []string `yaml:"bearish_keywords" json:"bearish_keywords"`
}

// ThemesConfig tunes theme registry reconciliation
type ThemesConfig struct {
	StorePath      string  `yaml:"store_path" json:"store_path"`
	BaseConviction float64 `yaml:"base_conviction" json:"base_conviction"` // 0.3
	WeightStep     float64 `yaml:"weight_step" json:"weight_step"`         // 0.15 per summed source weight
	MaxInitial     float64 `yaml:"max_initial" json:"max_initial"`         // 0.9 cap
}

// QualityConfig carries the grading weight table (must sum to 1.0)
type QualityConfig struct {
	Weights map[string]float64 `yaml:"weights" json:"weights"`
}

// OutputConfig controls report rendering
type OutputConfig struct {
	Verbose       bool `yaml:"verbose" json:"verbose"`
	IncludeFooter bool `yaml:"include_footer" json:"include_footer"`
}

// DefaultConfig returns the standard configuration with every table populated
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:    "",
			Timeout:     30,
			MaxTokens:   2000,
			Temperature: 0.2,
			MaxRetries:  2,
			RateLimit:   2,
			RateBurst:   4,
			MaxInputLen: 12000,
		},
		Cache: CacheConfig{
			Enabled:         true,
			TTL:             6 * time.Hour,
			CleanupInterval: 30 * time.Minute,
		},
		Concurrency: ConcurrencyConfig{
			ScoreWorkers: 4,
		},
		Sources: SourcesConfig{
			Weights: map[string]float64{
				string(Source42Macro):     2.0,
				string(SourceDiscord):     1.5,
				string(SourceKTTechnical): 1.0,
				string(SourceSubstack):    1.0,
				string(SourceYouTube):     0.5,
			},
			DefaultWeight: 0.5,
			Reliability: map[string]float64{
				string(Source42Macro):     0.90,
				string(SourceDiscord):     0.80,
				string(SourceKTTechnical): 0.80,
				string(SourceSubstack):    0.75,
				string(SourceYouTube):     0.70,
			},
			DefaultReliability: 0.75,
		},
		Classify: ClassifyConfig{
			UrgentKeywords: map[string][]string{
				string(SourceDiscord): {"urgent", "breaking", "alert", "position change"},
				string(Source42Macro): {"regime change", "drawdown risk", "risk off"},
			},
			MediumKeywords: map[string][]string{
				string(SourceDiscord):     {"setup", "entry", "levels"},
				string(SourceKTTechnical): {"breakout", "support", "resistance"},
				string(SourceSubstack):    {"trade idea", "positioning"},
			},
			AlwaysMedium:       []string{string(Source42Macro)},
			LiveVideoHosts:     []string{"youtube.com", "youtu.be"},
			LiveVideoKeywords:  []string{"live", "stream"},
			LiveVideoSources:   []string{string(Source42Macro)},
			FallbackConfidence: 0.3,
		},
		CrossRef: CrossRefConfig{
			MinSources:              2,
			DefaultPrior:            0.3,
			HighConvictionThreshold: 0.75,
			HistoryDepth:            10,
			TrendDelta:              0.1,
			IntervalHalfWidth:       0.1,
			BullishKeywords:         []string{"bullish", "long", "upside", "accumulate", "buy"},
			BearishKeywords:         []string{"bearish", "short", "downside", "sell", "fade"},
		},
		Themes: ThemesConfig{
			StorePath:      "themes.json",
			BaseConviction: 0.3,
			WeightStep:     0.15,
			MaxInitial:     0.9,
		},
		Quality: QualityConfig{
			Weights: map[string]float64{
				CriterionCrossSourceSynthesis:  0.25,
				CriterionActionability:         0.20,
				CriterionEvidenceCitation:      0.15,
				CriterionContradictionHandling: 0.15,
				CriterionRiskFraming:           0.10,
				CriterionStructure:             0.10,
				CriterionTimeliness:            0.05,
			},
		},
		Output: OutputConfig{
			IncludeFooter: true,
		},
	}
}

// Validate checks the constant tables for completeness. Called once at
// startup so a truncated config file fails fast instead of corrupting
// downstream conviction math.
func (c *Config) Validate() error {
	if c.CrossRef.MinSources < 1 {
		return fmt.Errorf("crossref.min_sources must be >= 1, got %d", c.CrossRef.MinSources)
	}
	if c.CrossRef.DefaultPrior < 0 || c.CrossRef.DefaultPrior > 1 {
		return fmt.Errorf("crossref.default_prior must be in [0,1], got %v", c.CrossRef.DefaultPrior)
	}
	if c.Sources.DefaultReliability < 0 || c.Sources.DefaultReliability > 1 {
		return fmt.Errorf("sources.default_reliability must be in [0,1], got %v", c.Sources.DefaultReliability)
	}
	for name, r := range c.Sources.Reliability {
		if r < 0 || r > 1 {
			return fmt.Errorf("sources.reliability[%s] must be in [0,1], got %v", name, r)
		}
	}

	var sum float64
	for _, criterion := range QualityCriteria() {
		w, ok := c.Quality.Weights[criterion]
		if !ok {
			return fmt.Errorf("quality.weights missing criterion %q", criterion)
		}
		sum += w
	}
	if sum < 0.999 || sum > 1.001 {
		return fmt.Errorf("quality.weights must sum to 1.0, got %v", sum)
	}
	return nil
}
