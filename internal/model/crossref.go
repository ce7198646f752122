package model

import "time"

// ThemeCandidate is one source's thesis entering the cross-reference run
type ThemeCandidate struct {
	Source                SourceType `json:"source"`
	Thesis                string     `json:"thesis"`
	VariantView           string     `json:"variant_view,omitempty"`
	PAndLMechanism        string     `json:"p_and_l_mechanism,omitempty"`
	FalsificationCriteria []string   `json:"falsification_criteria,omitempty"`
	Tickers               []string   `json:"tickers,omitempty"`
	CoreTotal             int        `json:"core_total"`
	TotalScore            int        `json:"total_score"`
	Timestamp             time.Time  `json:"timestamp"`
}

// ConvictionBucket is the qualitative label shown instead of the raw float
type ConvictionBucket string

const (
	BucketLow           ConvictionBucket = "low"            // [0, 0.45)
	BucketMedium        ConvictionBucket = "medium"         // [0.45, 0.65)
	BucketHigh          ConvictionBucket = "high"           // [0.65, 0.85)
	BucketTablePounding ConvictionBucket = "table_pounding" // [0.85, 1.0]
)

// ConvictionTrend describes the direction of a theme's rolling conviction history
type ConvictionTrend string

const (
	TrendNew     ConvictionTrend = "new"
	TrendRising  ConvictionTrend = "rising"
	TrendFalling ConvictionTrend = "falling"
	TrendStable  ConvictionTrend = "stable"
)

// ConfluentThemeCluster is one cross-source cluster of semantically equivalent
// theses. Entirely transient: recomputed from scratch on every run.
// SourceCount is always derived from ThemesDetail, never set independently.
type ConfluentThemeCluster struct {
	RepresentativeTheme string           `json:"representative_theme"`
	ThemesDetail        []ThemeCandidate `json:"themes_detail"`
	SourceCount         int              `json:"source_count"`
	AvgCoreScore        float64          `json:"avg_core_score"`
	AvgTotalScore       float64          `json:"avg_total_score"`

	PriorConviction    float64          `json:"prior_conviction"`
	CurrentConviction  float64          `json:"current_conviction"`
	ConvictionBucket   ConvictionBucket `json:"conviction_bucket"`
	ConfidenceInterval [2]float64       `json:"confidence_interval"` // Fixed +-0.1 band, clamped
}

// Stance is the classified direction of a thesis on an instrument
type Stance string

const (
	StanceBullish Stance = "bullish"
	StanceBearish Stance = "bearish"
	StanceUnknown Stance = "unknown"
)

// Contradiction reports opposing theses on the same instrument
type Contradiction struct {
	Ticker         string   `json:"ticker"`
	BullishSources []string `json:"bullish_sources"`
	BearishSources []string `json:"bearish_sources"`
}

// HighConvictionIdea is a cluster crossing the high-conviction bar
type HighConvictionIdea struct {
	Theme           string          `json:"theme"`
	Conviction      float64         `json:"conviction"`
	Bucket          ConvictionBucket `json:"bucket"`
	SourceCount     int             `json:"source_count"`
	Sources         []string        `json:"sources"`
	ConvictionTrend ConvictionTrend `json:"conviction_trend"`
}

// CrossRefReport is the full output of one cross-reference run
type CrossRefReport struct {
	GeneratedAt time.Time `json:"generated_at"`

	TotalThemes          int  `json:"total_themes"`           // Candidates entering clustering
	ClusteredThemesCount int  `json:"clustered_themes_count"` // Clusters before the confluence filter
	ClusteringFallback   bool `json:"clustering_fallback"`    // Singleton fallback was used

	ConfluentThemes []ConfluentThemeCluster `json:"confluent_themes"`
	Contradictions  []Contradiction         `json:"contradictions"`
	HighConviction  []HighConvictionIdea    `json:"high_conviction"`
}
