package quality

import (
	"context"
	"errors"
	"testing"

	"conflux/internal/llm"
	"conflux/internal/model"
)

type stubCompleter struct {
	text string
	err  error
}

func (s *stubCompleter) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &llm.CompletionResponse{Text: s.text}, nil
}

func newEvaluator(stub llm.Completer) *Evaluator {
	return NewEvaluator(stub, model.DefaultConfig().Quality, nil)
}

func allScores(v int) string {
	return `{"criterion_scores": {
		"cross_source_synthesis": ` + itoa(v) + `,
		"actionability": ` + itoa(v) + `,
		"evidence_citation": ` + itoa(v) + `,
		"contradiction_handling": ` + itoa(v) + `,
		"risk_framing": ` + itoa(v) + `,
		"structure": ` + itoa(v) + `,
		"timeliness": ` + itoa(v) + `}}`
}

func itoa(v int) string {
	return string(rune('0' + v))
}

func TestEvaluate_AllThreesIsPerfect(t *testing.T) {
	report := newEvaluator(&stubCompleter{text: allScores(3)}).Evaluate(context.Background(), "solid synthesis")

	if report.OverallScore != 100 {
		t.Errorf("score = %d, want 100", report.OverallScore)
	}
	if report.Grade != "A+" {
		t.Errorf("grade = %s, want A+", report.Grade)
	}
	if len(report.Flags) != 0 {
		t.Errorf("flags = %+v, want none", report.Flags)
	}
	if report.Failed {
		t.Error("Failed set on a successful evaluation")
	}
}

func TestEvaluate_AllZerosIsF(t *testing.T) {
	report := newEvaluator(&stubCompleter{text: allScores(0)}).Evaluate(context.Background(), "empty shell")

	if report.OverallScore != 0 {
		t.Errorf("score = %d, want 0", report.OverallScore)
	}
	if report.Grade != "F" {
		t.Errorf("grade = %s, want F", report.Grade)
	}
	// Every criterion at 0 needs a flag
	if len(report.Flags) != len(model.QualityCriteria()) {
		t.Errorf("got %d flags, want %d", len(report.Flags), len(model.QualityCriteria()))
	}
}

func TestEvaluate_MissingCriterionDefaultsToPoor(t *testing.T) {
	// timeliness omitted entirely
	resp := `{"criterion_scores": {
		"cross_source_synthesis": 3, "actionability": 3, "evidence_citation": 3,
		"contradiction_handling": 3, "risk_framing": 3, "structure": 3}}`

	report := newEvaluator(&stubCompleter{text: resp}).Evaluate(context.Background(), "doc")

	if got := report.CriterionScores[model.CriterionTimeliness]; got != 1 {
		t.Errorf("missing criterion score = %d, want default 1", got)
	}
	found := false
	for _, f := range report.Flags {
		if f.Criterion == model.CriterionTimeliness {
			found = true
		}
	}
	if !found {
		t.Error("defaulted criterion at 1 should carry a flag")
	}
}

func TestEvaluate_OutOfRangeScoresClamped(t *testing.T) {
	resp := `{"criterion_scores": {
		"cross_source_synthesis": 7, "actionability": -2, "evidence_citation": 3,
		"contradiction_handling": 3, "risk_framing": 3, "structure": 3, "timeliness": 3}}`

	report := newEvaluator(&stubCompleter{text: resp}).Evaluate(context.Background(), "doc")

	if got := report.CriterionScores[model.CriterionCrossSourceSynthesis]; got != 3 {
		t.Errorf("over-range score = %d, want clamped 3", got)
	}
	if got := report.CriterionScores[model.CriterionActionability]; got != 0 {
		t.Errorf("under-range score = %d, want clamped 0", got)
	}
}

func TestEvaluate_CollaboratorFlagsKeptForLowScores(t *testing.T) {
	resp := `{"criterion_scores": {
		"cross_source_synthesis": 1, "actionability": 3, "evidence_citation": 3,
		"contradiction_handling": 3, "risk_framing": 3, "structure": 3, "timeliness": 3},
		"flags": [{"criterion": "cross_source_synthesis", "score": 1, "detail": "sources summarized separately, never combined"}]}`

	report := newEvaluator(&stubCompleter{text: resp}).Evaluate(context.Background(), "doc")

	if len(report.Flags) != 1 {
		t.Fatalf("got %d flags, want 1", len(report.Flags))
	}
	if report.Flags[0].Detail != "sources summarized separately, never combined" {
		t.Errorf("flag detail replaced: %q", report.Flags[0].Detail)
	}
}

func TestEvaluate_FailureNeverPropagates(t *testing.T) {
	report := newEvaluator(&stubCompleter{err: errors.New("provider down")}).Evaluate(context.Background(), "doc")

	if !report.Failed {
		t.Error("Failed not set")
	}
	if report.Grade != "F" || report.OverallScore != 0 {
		t.Errorf("got %d/%s, want 0/F", report.OverallScore, report.Grade)
	}
	if len(report.Flags) != 1 {
		t.Errorf("got %d flags, want exactly one failure flag", len(report.Flags))
	}
	for _, score := range report.CriterionScores {
		if score != 0 {
			t.Errorf("criterion score = %d in failed report, want 0", score)
		}
	}
}

func TestEvaluate_EmptyDocumentIsFailure(t *testing.T) {
	report := newEvaluator(&stubCompleter{text: allScores(3)}).Evaluate(context.Background(), "   ")
	if !report.Failed || report.Grade != "F" {
		t.Errorf("empty document: failed=%v grade=%s, want true/F", report.Failed, report.Grade)
	}
}

func TestGradeFor_Ladder(t *testing.T) {
	tests := []struct {
		score int
		want  string
	}{
		{100, "A+"}, {95, "A+"}, {94, "A"}, {90, "A"},
		{85, "A-"}, {80, "B+"}, {75, "B"}, {70, "B-"},
		{65, "C+"}, {60, "C"}, {55, "C-"}, {50, "D"},
		{49, "F"}, {0, "F"},
	}
	for _, tt := range tests {
		if got := GradeFor(tt.score); got != tt.want {
			t.Errorf("GradeFor(%d) = %s, want %s", tt.score, got, tt.want)
		}
	}
}

func TestWeightedScore_WeightsApplied(t *testing.T) {
	scores := map[string]int{}
	for _, c := range model.QualityCriteria() {
		scores[c] = 0
	}
	// Only the heaviest criterion at full marks: 0.25 * 100 = 25
	scores[model.CriterionCrossSourceSynthesis] = 3

	got := WeightedScore(scores, model.DefaultConfig().Quality.Weights)
	if got != 25 {
		t.Errorf("score = %d, want 25", got)
	}
}
