package quality

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"conflux/internal/llm"
	"conflux/internal/model"
)

const gradeSystemPrompt = `You grade a daily market synthesis document for structural completeness,
not factual correctness.
` + llm.UntrustedPreamble + `
Score each criterion 0-3 (0 missing, 1 poor, 2 adequate, 3 strong):
- cross_source_synthesis: views from multiple sources actually combined
- actionability: concrete levels, tickers, or trades a reader could act on
- evidence_citation: claims tied to their originating source
- contradiction_handling: disagreements surfaced, not papered over
- risk_framing: what invalidates the view, sizing or stop context
- structure: scannable sections, consistent ordering
- timeliness: anchored to current data, not stale narratives

For any criterion at 1 or below, add a flag explaining the gap.

Respond ONLY with JSON:
{"criterion_scores": {"cross_source_synthesis": 2, ...}, "flags": [{"criterion": "...", "score": 1, "detail": "..."}]}`

// gradeResponse is the collaborator's grading output
type gradeResponse struct {
	CriterionScores map[string]float64 `json:"criterion_scores"`
	Flags           []model.QualityFlag `json:"flags"`
}

// gradeLadder maps minimum overall score to letter grade, checked in order
var gradeLadder = []struct {
	min   int
	grade string
}{
	{95, "A+"},
	{90, "A"},
	{85, "A-"},
	{80, "B+"},
	{75, "B"},
	{70, "B-"},
	{65, "C+"},
	{60, "C"},
	{55, "C-"},
	{50, "D"},
}

// Evaluator grades synthesis documents against the fixed 7-criterion rubric
type Evaluator struct {
	completer llm.Completer
	weights   map[string]float64
	logger    *zap.Logger
}

func NewEvaluator(completer llm.Completer, config model.QualityConfig, logger *zap.Logger) *Evaluator {
	if logger == nil {
		logger = zap.NewNop()
	}
	weights := config.Weights
	if len(weights) == 0 {
		weights = model.DefaultConfig().Quality.Weights
	}
	return &Evaluator{completer: completer, weights: weights, logger: logger}
}

// Evaluate grades one synthesis document. It never returns an error: any
// failure produces an all-zero "F" report carrying a single failure flag.
func (e *Evaluator) Evaluate(ctx context.Context, document string) *model.QualityReport {
	report, err := e.tryEvaluate(ctx, document)
	if err != nil {
		e.logger.Warn("quality evaluation failed", zap.Error(err))
		return e.failedReport(err)
	}
	return report
}

func (e *Evaluator) tryEvaluate(ctx context.Context, document string) (*model.QualityReport, error) {
	if strings.TrimSpace(document) == "" {
		return nil, fmt.Errorf("empty synthesis document")
	}
	if e.completer == nil {
		return nil, fmt.Errorf("no collaborator configured")
	}

	resp, err := e.completer.Complete(ctx, llm.CompletionRequest{
		System:      gradeSystemPrompt,
		User:        "Synthesis document:\n" + llm.WrapUntrusted(llm.Sanitize(document, 24000)),
		MaxTokens:   1200,
		Temperature: 0,
		ExpectJSON:  true,
	})
	if err != nil {
		return nil, err
	}

	var parsed gradeResponse
	if err := llm.DecodeJSON(resp.Text, &parsed); err != nil {
		return nil, err
	}

	scores := e.normalizeScores(parsed.CriterionScores)
	report := &model.QualityReport{
		CriterionScores: scores,
		OverallScore:    WeightedScore(scores, e.weights),
		Flags:           reconcileFlags(scores, parsed.Flags),
		EvaluatedAt:     time.Now().UTC(),
	}
	report.Grade = GradeFor(report.OverallScore)
	return report, nil
}

// normalizeScores guarantees every criterion is present and inside [0,3].
// A missing criterion defaults to 1 with a logged warning.
func (e *Evaluator) normalizeScores(raw map[string]float64) map[string]int {
	scores := make(map[string]int, len(model.QualityCriteria()))
	for _, criterion := range model.QualityCriteria() {
		v, ok := raw[criterion]
		if !ok {
			e.logger.Warn("criterion missing from grading response, defaulting to poor",
				zap.String("criterion", criterion))
			scores[criterion] = 1
			continue
		}
		s := int(math.Round(v))
		if s < 0 {
			s = 0
		}
		if s > 3 {
			s = 3
		}
		scores[criterion] = s
	}
	return scores
}

// WeightedScore rescales each 0-3 criterion to 0-100 and combines with the
// weight table, rounding to the nearest integer
func WeightedScore(scores map[string]int, weights map[string]float64) int {
	var total float64
	for criterion, score := range scores {
		total += float64(score) / 3.0 * 100.0 * weights[criterion]
	}
	return int(math.Round(total))
}

// GradeFor maps a 0-100 score onto the fixed letter ladder
func GradeFor(score int) string {
	for _, rung := range gradeLadder {
		if score >= rung.min {
			return rung.grade
		}
	}
	return "F"
}

// reconcileFlags guarantees one flag per criterion scoring at or below 1,
// keeping collaborator-written details when present
func reconcileFlags(scores map[string]int, raw []model.QualityFlag) []model.QualityFlag {
	byName := make(map[string]model.QualityFlag, len(raw))
	for _, f := range raw {
		byName[f.Criterion] = f
	}

	var flags []model.QualityFlag
	for _, criterion := range model.QualityCriteria() {
		score := scores[criterion]
		if score > 1 {
			continue
		}
		flag, ok := byName[criterion]
		if !ok {
			flag = model.QualityFlag{
				Criterion: criterion,
				Detail:    fmt.Sprintf("%s scored %d of 3", criterion, score),
			}
		}
		flag.Score = score
		flags = append(flags, flag)
	}
	return flags
}

func (e *Evaluator) failedReport(cause error) *model.QualityReport {
	scores := make(map[string]int, len(model.QualityCriteria()))
	for _, criterion := range model.QualityCriteria() {
		scores[criterion] = 0
	}
	return &model.QualityReport{
		CriterionScores: scores,
		OverallScore:    0,
		Grade:           "F",
		Failed:          true,
		Flags: []model.QualityFlag{{
			Criterion: "evaluation",
			Detail:    fmt.Sprintf("evaluation failed: %v", cause),
		}},
		EvaluatedAt: time.Now().UTC(),
	}
}
