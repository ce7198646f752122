package model

import "time"

// Quality criterion names for synthesis grading (each scored 0..3)
const (
	CriterionCrossSourceSynthesis = "cross_source_synthesis"
	CriterionActionability        = "actionability"
	CriterionEvidenceCitation     = "evidence_citation"
	CriterionContradictionHandling = "contradiction_handling"
	CriterionRiskFraming          = "risk_framing"
	CriterionStructure            = "structure"
	CriterionTimeliness           = "timeliness"
)

// QualityCriteria lists every grading dimension in a stable order
func QualityCriteria() []string {
	return []string{
		CriterionCrossSourceSynthesis,
		CriterionActionability,
		CriterionEvidenceCitation,
		CriterionContradictionHandling,
		CriterionRiskFraming,
		CriterionStructure,
		CriterionTimeliness,
	}
}

// QualityFlag marks a criterion that scored poorly
type QualityFlag struct {
	Criterion string `json:"criterion"`
	Score     int    `json:"score"`
	Detail    string `json:"detail"`
}

// QualityReport grades one synthesis document for structural completeness
type QualityReport struct {
	CriterionScores map[string]int `json:"criterion_scores"` // Each clamped to 0..3
	OverallScore    int            `json:"overall_score"`    // Weighted 0..100
	Grade           string         `json:"grade"`            // A+ .. F
	Flags           []QualityFlag  `json:"flags,omitempty"`
	Failed          bool           `json:"failed"` // Evaluation itself failed; all-zero result
	EvaluatedAt     time.Time      `json:"evaluated_at"`
}
