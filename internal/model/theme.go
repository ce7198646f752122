package model

import "time"

// ThemeStatus is the lifecycle state of a tracked theme
type ThemeStatus string

const (
	ThemeEmerging ThemeStatus = "emerging" // Single source
	ThemeActive   ThemeStatus = "active"   // Two or more sources; one-way upgrade
	ThemeEvolved  ThemeStatus = "evolved"  // Superseded by a successor theme (terminal)
	ThemeDormant  ThemeStatus = "dormant"  // No longer tracked
)

// Terminal reports whether a theme in this status is excluded from matching
func (s ThemeStatus) Terminal() bool {
	return s == ThemeEvolved || s == ThemeDormant
}

// EvidenceStrength is the qualitative label derived from a source's weight
type EvidenceStrength string

const (
	StrengthWeak     EvidenceStrength = "weak"
	StrengthModerate EvidenceStrength = "moderate"
	StrengthStrong   EvidenceStrength = "strong"
)

// EvidenceEntry is one dated observation supporting a theme
type EvidenceEntry struct {
	Date     time.Time        `json:"date"`
	Summary  string           `json:"summary"`
	Strength EvidenceStrength `json:"strength"`
}

// Theme is a long-lived, named, cross-synthesis-run tracked idea.
// EvidenceCount and CurrentConviction are recomputed from SourceEvidence on
// every mutation; callers must never edit them independently.
type Theme struct {
	ID                 string                     `json:"id"`
	Name               string                     `json:"name"` // Unique across the registry
	Description        string                     `json:"description,omitempty"`
	Status             ThemeStatus                `json:"status"`
	Aliases            []string                   `json:"aliases,omitempty"`
	EvolvedFromThemeID string                     `json:"evolved_from_theme_id,omitempty"`
	SourceEvidence     map[string][]EvidenceEntry `json:"source_evidence"`
	Catalysts          []string                   `json:"catalysts,omitempty"`
	FirstSource        string                     `json:"first_source,omitempty"`
	CurrentConviction  float64                    `json:"current_conviction"` // Running belief in [0,1]
	EvidenceCount      int                        `json:"evidence_count"`
	FirstMentionedAt   time.Time                  `json:"first_mentioned_at"`
	LastUpdatedAt      time.Time                  `json:"last_updated_at"`
}

// ThemeCandidateStatus is the status a freshly extracted candidate reports for itself
type ThemeCandidateStatus string

const (
	CandidateEmerging ThemeCandidateStatus = "emerging"
	CandidateActive   ThemeCandidateStatus = "active"
)

// ExtractedTheme is a candidate theme pulled from one synthesis document,
// before reconciliation against the persisted registry
type ExtractedTheme struct {
	Name        string               `json:"name"`
	Description string               `json:"description,omitempty"`
	SourceViews map[string]string    `json:"source_views"` // source name -> that source's view
	Catalysts   []string             `json:"catalysts,omitempty"`
	Status      ThemeCandidateStatus `json:"status"`
}

// MatchAction is the reconciliation decision for one candidate theme
type MatchAction string

const (
	ActionCreate MatchAction = "create"
	ActionUpdate MatchAction = "update"
	ActionEvolve MatchAction = "evolve"
)

// ThemeMatch pairs a candidate with its reconciliation decision
type ThemeMatch struct {
	CandidateName string      `json:"candidate_name"`
	Action        MatchAction `json:"action"`
	ThemeID       string      `json:"theme_id,omitempty"` // Existing theme for update, predecessor for evolve
	Reason        string      `json:"reason,omitempty"`
}
