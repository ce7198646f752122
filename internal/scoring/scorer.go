package scoring

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"conflux/internal/llm"
	"conflux/internal/model"
)

// Thresholds for the actionability tiers. CoreTotal runs 0..10 over the five
// core pillars; the strong tier additionally requires one hybrid pillar at 2.
const (
	coreThresholdStrong = 6
	coreThresholdMedium = 4
	pillarMax           = 2
)

const rubricSystemPrompt = `You are an investment-content evaluator applying a fixed 7-criterion rubric.
` + llm.UntrustedPreamble + `
Score the analyzed content on each criterion with an integer 0, 1, or 2:
- macro: alignment with the prevailing macro regime
- fundamentals: earnings/cash-flow support for the idea
- valuation: attractiveness versus history and peers
- positioning: crowding/flows asymmetry in the idea's favor
- policy: monetary/fiscal tailwind or headwind
- price_action: technical confirmation (hybrid criterion)
- options_vol: options/volatility structure confirmation (hybrid criterion)

A "strong" verdict requires the five core criteria (macro, fundamentals,
valuation, positioning, policy) to sum to at least 6 AND at least one hybrid
criterion (price_action, options_vol) to score exactly 2. Do not compute the
verdict yourself; return raw scores only.

Respond ONLY with JSON:
{
  "pillar_scores": {"macro":0,"fundamentals":0,"valuation":0,"positioning":0,"policy":0,"price_action":0,"options_vol":0},
  "primary_thesis": "one-sentence core investment thesis",
  "variant_view": "where this view differs from consensus, including direction (bullish/bearish)",
  "p_and_l_mechanism": "how the idea makes money",
  "falsification_criteria": ["observable condition that would kill the thesis"]
}`

// scoreResponse is the collaborator's structured rubric output. Pillar values
// decode as float64 so non-integers are rejected explicitly instead of
// failing opaquely in the JSON decoder.
type scoreResponse struct {
	PillarScores          map[string]float64 `json:"pillar_scores"`
	PrimaryThesis         string             `json:"primary_thesis"`
	VariantView           string             `json:"variant_view"`
	PAndLMechanism        string             `json:"p_and_l_mechanism"`
	FalsificationCriteria []string           `json:"falsification_criteria"`
}

// ConfluenceScorer evaluates one analyzed content item against the fixed
// 7-pillar rubric. The collaborator supplies raw pillar scores and free-text
// justification; every aggregate is recomputed deterministically here so the
// verdict is reproducible regardless of what the model claims.
type ConfluenceScorer struct {
	completer llm.Completer
	maxInput  int
}

// NewConfluenceScorer creates a scorer
func NewConfluenceScorer(completer llm.Completer, maxInput int) *ConfluenceScorer {
	if maxInput <= 0 {
		maxInput = 12000
	}
	return &ConfluenceScorer{completer: completer, maxInput: maxInput}
}

// Score produces a RubricScore for one analyzed content item.
// Collaborator transport failures and schema/validation violations are both
// returned to the caller; there is no fallback here, a fabricated rubric
// would corrupt downstream conviction math.
func (s *ConfluenceScorer) Score(ctx context.Context, content model.AnalyzedContent) (*model.RubricScore, error) {
	payload, err := json.Marshal(content)
	if err != nil {
		return nil, fmt.Errorf("marshal analyzed content: %w", err)
	}

	user := "Analyzed content record:\n" + llm.WrapUntrusted(llm.Sanitize(string(payload), s.maxInput))

	resp, err := s.completer.Complete(ctx, llm.CompletionRequest{
		System:      rubricSystemPrompt,
		User:        user,
		MaxTokens:   1000,
		Temperature: 0.1,
		ExpectJSON:  true,
	})
	if err != nil {
		return nil, err
	}

	var parsed scoreResponse
	if err := llm.DecodeJSON(resp.Text, &parsed); err != nil {
		return nil, err
	}

	pillars, err := ValidatePillars(parsed.PillarScores)
	if err != nil {
		return nil, err
	}

	score := BuildScore(content.Source, pillars)
	score.PrimaryThesis = strings.TrimSpace(parsed.PrimaryThesis)
	score.VariantView = strings.TrimSpace(parsed.VariantView)
	score.PAndLMechanism = strings.TrimSpace(parsed.PAndLMechanism)
	score.FalsificationCriteria = parsed.FalsificationCriteria
	score.TickersMentioned = content.TickersMentioned
	return score, nil
}

// ValidatePillars checks that all 7 fixed pillars are present with integer
// values in {0,1,2}. Anything else is a validation error, never a default.
func ValidatePillars(raw map[string]float64) (map[string]int, error) {
	if raw == nil {
		return nil, &llm.ValidationError{Field: "pillar_scores", Reason: "missing"}
	}

	pillars := make(map[string]int, len(model.AllPillars()))
	for _, name := range model.AllPillars() {
		v, ok := raw[name]
		if !ok {
			return nil, &llm.ValidationError{Field: "pillar_scores." + name, Reason: "missing"}
		}
		if v != math.Trunc(v) {
			return nil, &llm.ValidationError{Field: "pillar_scores." + name, Reason: fmt.Sprintf("not an integer: %v", v)}
		}
		n := int(v)
		if n < 0 || n > pillarMax {
			return nil, &llm.ValidationError{Field: "pillar_scores." + name, Reason: fmt.Sprintf("out of range [0,2]: %d", n)}
		}
		pillars[name] = n
	}
	return pillars, nil
}

// BuildScore runs the deterministic rubric-to-metric reduction over a
// validated pillar set. Idempotent: the same pillars always produce the
// same aggregates.
func BuildScore(source model.SourceType, pillars map[string]int) *model.RubricScore {
	coreTotal := 0
	for _, name := range model.CorePillars {
		coreTotal += pillars[name]
	}

	totalScore := coreTotal
	hybridStrong := false
	for _, name := range model.HybridPillars {
		totalScore += pillars[name]
		if pillars[name] == pillarMax {
			hybridStrong = true
		}
	}

	meetsThreshold := coreTotal >= coreThresholdStrong && hybridStrong

	level := model.ConfluenceWeak
	switch {
	case meetsThreshold:
		level = model.ConfluenceStrong
	case coreTotal >= coreThresholdMedium:
		level = model.ConfluenceMedium
	}

	return &model.RubricScore{
		Source:          source,
		PillarScores:    pillars,
		CoreTotal:       coreTotal,
		TotalScore:      totalScore,
		HybridStrong:    hybridStrong,
		MeetsThreshold:  meetsThreshold,
		ConfluenceLevel: level,
		AnalyzedAt:      time.Now().UTC(),
	}
}
