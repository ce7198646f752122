package model

import "time"

// SourceType identifies where a content item came from
type SourceType string

const (
	Source42Macro     SourceType = "42macro"
	SourceKTTechnical SourceType = "kt_technical"
	SourceDiscord     SourceType = "discord"
	SourceYouTube     SourceType = "youtube"
	SourceSubstack    SourceType = "substack"
)

// ContentType classifies the raw format of a content item
type ContentType string

const (
	ContentTypeText  ContentType = "text"
	ContentTypePDF   ContentType = "pdf"
	ContentTypeVideo ContentType = "video"
	ContentTypeImage ContentType = "image"
)

// ContentItem is one raw piece of finance/markets content entering the pipeline
type ContentItem struct {
	ID          string            `json:"id"`
	Source      SourceType        `json:"source"`
	ContentType ContentType       `json:"content_type"`
	Text        string            `json:"text"`                // Raw text (may contain HTML)
	URL         string            `json:"url,omitempty"`
	FilePath    string            `json:"file_path,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	CollectedAt time.Time         `json:"collected_at"`
}

// Priority is the triage tier assigned by the classifier
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// DensityLevel is the collaborator's information-density signal
type DensityLevel string

const (
	DensityHigh   DensityLevel = "high"
	DensityMedium DensityLevel = "medium"
	DensityLow    DensityLevel = "low"
)

// Classification is the triage result for one content item
type Classification struct {
	Priority    Priority     `json:"priority"`
	Route       []string     `json:"route"`                  // Downstream analyzer names, in order
	Density     DensityLevel `json:"density,omitempty"`      // Collaborator signal (empty on fallback)
	Actionable  bool         `json:"actionable"`             // Collaborator actionability signal
	ArchiveOnly bool         `json:"archive_only"`           // Item is stored but not analyzed
	Confidence  float64      `json:"confidence"`             // Fixed 0.3 on rule-based fallback
	Fallback    bool         `json:"fallback"`               // True when the collaborator was bypassed
	Rule        string       `json:"rule,omitempty"`         // Which deterministic rule fired
}

// Analyzer route names used by the classifier routing table
const (
	RouteTranscript  = "transcript_extractor"
	RouteDocument    = "document_analyzer"
	RouteChart       = "chart_analyzer"
	RouteText        = "text_analyzer"
	RouteScorer      = "confluence_scorer"
)

// AnalyzedContent is the upstream analyzer output fed into the rubric scorer.
// Fields beyond Source and ContentType are optional; the scorer tolerates gaps.
type AnalyzedContent struct {
	Source                SourceType  `json:"source"`
	ContentType           ContentType `json:"content_type"`
	KeyThemes             []string    `json:"key_themes,omitempty"`
	TickersMentioned      []string    `json:"tickers_mentioned,omitempty"`
	Sentiment             string      `json:"sentiment,omitempty"`
	Conviction            string      `json:"conviction,omitempty"`
	TimeHorizon           string      `json:"time_horizon,omitempty"`
	MarketRegime          string      `json:"market_regime,omitempty"`
	Interpretation        string      `json:"interpretation,omitempty"`
	FalsificationCriteria []string    `json:"falsification_criteria,omitempty"`
	Summary               string      `json:"summary,omitempty"`
}
