package model

import "time"

// Pillar names for the fixed 7-criterion rubric.
// The first five are core pillars; price_action and options_vol are hybrid.
const (
	PillarMacro        = "macro"
	PillarFundamentals = "fundamentals"
	PillarValuation    = "valuation"
	PillarPositioning  = "positioning"
	PillarPolicy       = "policy"
	PillarPriceAction  = "price_action"
	PillarOptionsVol   = "options_vol"
)

// CorePillars contribute to CoreTotal; HybridPillars gate the strong tier.
var (
	CorePillars   = []string{PillarMacro, PillarFundamentals, PillarValuation, PillarPositioning, PillarPolicy}
	HybridPillars = []string{PillarPriceAction, PillarOptionsVol}
)

// AllPillars returns every rubric pillar name, core first
func AllPillars() []string {
	all := make([]string, 0, len(CorePillars)+len(HybridPillars))
	all = append(all, CorePillars...)
	all = append(all, HybridPillars...)
	return all
}

// ConfluenceLevel is the actionability tier derived from the rubric aggregates
type ConfluenceLevel string

const (
	ConfluenceStrong ConfluenceLevel = "strong"
	ConfluenceMedium ConfluenceLevel = "medium"
	ConfluenceWeak   ConfluenceLevel = "weak"
)

// RubricScore is one content item evaluated against the 7-pillar rubric.
// Aggregates are always recomputed from PillarScores, never stored independently.
// Immutable after creation.
type RubricScore struct {
	Source       SourceType     `json:"source"`
	PillarScores map[string]int `json:"pillar_scores"` // All 7 pillars, each 0..2

	CoreTotal      int             `json:"core_total"`      // Sum of 5 core pillars, 0..10
	TotalScore     int             `json:"total_score"`     // Sum of all 7 pillars, 0..14
	HybridStrong   bool            `json:"hybrid_strong"`   // Any hybrid pillar == 2
	MeetsThreshold bool            `json:"meets_threshold"` // CoreTotal >= 6 && HybridStrong
	ConfluenceLevel ConfluenceLevel `json:"confluence_level"`

	PrimaryThesis         string   `json:"primary_thesis,omitempty"`
	VariantView           string   `json:"variant_view,omitempty"`
	PAndLMechanism        string   `json:"p_and_l_mechanism,omitempty"`
	FalsificationCriteria []string `json:"falsification_criteria,omitempty"`
	TickersMentioned      []string `json:"tickers_mentioned,omitempty"`

	AnalyzedAt time.Time `json:"analyzed_at"`
}
