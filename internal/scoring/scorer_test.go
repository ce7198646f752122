package scoring

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

func pillars(macro, fundamentals, valuation, positioning, policy, priceAction, optionsVol int) map[string]int {
	return map[string]int{
		model.PillarMacro:        macro,
		model.PillarFundamentals: fundamentals,
		model.PillarValuation:    valuation,
		model.PillarPositioning:  positioning,
		model.PillarPolicy:       policy,
		model.PillarPriceAction:  priceAction,
		model.PillarOptionsVol:   optionsVol,
	}
}

func TestBuildScore_StrongExample(t *testing.T) {
	// {macro:2, fundamentals:2, valuation:1, positioning:2, policy:1, price_action:2, options_vol:1}
	score := BuildScore(model.Source42Macro, pillars(2, 2, 1, 2, 1, 2, 1))

	if score.CoreTotal != 8 {
		t.Errorf("CoreTotal = %d, want 8", score.CoreTotal)
	}
	if score.TotalScore != 11 {
		t.Errorf("TotalScore = %d, want 11", score.TotalScore)
	}
	if !score.HybridStrong {
		t.Error("HybridStrong = false, want true")
	}
	if !score.MeetsThreshold {
		t.Error("MeetsThreshold = false, want true")
	}
	if score.ConfluenceLevel != model.ConfluenceStrong {
		t.Errorf("ConfluenceLevel = %s, want strong", score.ConfluenceLevel)
	}
}

func TestBuildScore_MediumExample(t *testing.T) {
	// All ones except options_vol:0 => core 5, no hybrid strong
	score := BuildScore(model.SourceSubstack, pillars(1, 1, 1, 1, 1, 1, 0))

	if score.CoreTotal != 5 {
		t.Errorf("CoreTotal = %d, want 5", score.CoreTotal)
	}
	if score.HybridStrong {
		t.Error("HybridStrong = true, want false")
	}
	if score.MeetsThreshold {
		t.Error("MeetsThreshold = true, want false")
	}
	if score.ConfluenceLevel != model.ConfluenceMedium {
		t.Errorf("ConfluenceLevel = %s, want medium", score.ConfluenceLevel)
	}
}

func TestBuildScore_ThresholdBoundary(t *testing.T) {
	// core_total == 6 with one hybrid pillar == 2 => strong
	strong := BuildScore(model.SourceDiscord, pillars(2, 2, 2, 0, 0, 2, 0))
	if strong.CoreTotal != 6 || strong.ConfluenceLevel != model.ConfluenceStrong {
		t.Errorf("core=6 + hybrid 2: level = %s, want strong", strong.ConfluenceLevel)
	}

	// core_total == 6 with both hybrid pillars <= 1 => medium
	medium := BuildScore(model.SourceDiscord, pillars(2, 2, 2, 0, 0, 1, 1))
	if medium.CoreTotal != 6 || medium.ConfluenceLevel != model.ConfluenceMedium {
		t.Errorf("core=6 no hybrid strong: level = %s, want medium", medium.ConfluenceLevel)
	}
}

func TestBuildScore_WeakBelowMediumThreshold(t *testing.T) {
	score := BuildScore(model.SourceYouTube, pillars(1, 1, 1, 0, 0, 2, 2))

	if score.CoreTotal != 3 {
		t.Errorf("CoreTotal = %d, want 3", score.CoreTotal)
	}
	// Hybrid strength alone never lifts a weak core
	if score.ConfluenceLevel != model.ConfluenceWeak {
		t.Errorf("ConfluenceLevel = %s, want weak", score.ConfluenceLevel)
	}
	if score.MeetsThreshold {
		t.Error("MeetsThreshold = true, want false")
	}
}

func TestBuildScore_RangesAndIdempotence(t *testing.T) {
	cases := []map[string]int{
		pillars(0, 0, 0, 0, 0, 0, 0),
		pillars(2, 2, 2, 2, 2, 2, 2),
		pillars(1, 0, 2, 1, 0, 2, 1),
		pillars(0, 2, 0, 2, 0, 0, 2),
	}

	for i, p := range cases {
		first := BuildScore(model.Source42Macro, p)
		second := BuildScore(model.Source42Macro, p)

		if first.CoreTotal < 0 || first.CoreTotal > 10 {
			t.Errorf("case %d: CoreTotal %d out of [0,10]", i, first.CoreTotal)
		}
		if first.TotalScore < 0 || first.TotalScore > 14 {
			t.Errorf("case %d: TotalScore %d out of [0,14]", i, first.TotalScore)
		}
		if first.CoreTotal != second.CoreTotal ||
			first.TotalScore != second.TotalScore ||
			first.HybridStrong != second.HybridStrong ||
			first.MeetsThreshold != second.MeetsThreshold ||
			first.ConfluenceLevel != second.ConfluenceLevel {
			t.Errorf("case %d: aggregates not idempotent", i)
		}
	}
}

func TestBuildScore_MeetsThresholdImpliesStrong(t *testing.T) {
	for macro := 0; macro <= 2; macro++ {
		for pa := 0; pa <= 2; pa++ {
			score := BuildScore(model.Source42Macro, pillars(macro, 2, 2, 2, 2, pa, 0))
			if score.MeetsThreshold && score.ConfluenceLevel != model.ConfluenceStrong {
				t.Fatalf("meets_threshold without strong level: %+v", score)
			}
			if score.ConfluenceLevel == model.ConfluenceStrong && !score.MeetsThreshold {
				t.Fatalf("strong level without meets_threshold: %+v", score)
			}
		}
	}
}

func TestValidatePillars_MissingPillar(t *testing.T) {
	raw := map[string]float64{
		model.PillarMacro:        1,
		model.PillarFundamentals: 1,
		model.PillarValuation:    1,
		model.PillarPositioning:  1,
		model.PillarPolicy:       1,
		model.PillarPriceAction:  1,
		// options_vol missing
	}

	_, err := ValidatePillars(raw)
	if err == nil {
		t.Fatal("expected validation error for missing pillar")
	}
	if !llm.IsValidation(err) {
		t.Errorf("expected ValidationError, got %T", err)
	}
}

func TestValidatePillars_OutOfRange(t *testing.T) {
	raw := map[string]float64{
		model.PillarMacro:        3,
		model.PillarFundamentals: 1,
		model.PillarValuation:    1,
		model.PillarPositioning:  1,
		model.PillarPolicy:       1,
		model.PillarPriceAction:  1,
		model.PillarOptionsVol:   1,
	}

	if _, err := ValidatePillars(raw); err == nil || !llm.IsValidation(err) {
		t.Fatalf("expected validation error for out-of-range score, got %v", err)
	}
}

func TestValidatePillars_NonInteger(t *testing.T) {
	raw := map[string]float64{
		model.PillarMacro:        1.5,
		model.PillarFundamentals: 1,
		model.PillarValuation:    1,
		model.PillarPositioning:  1,
		model.PillarPolicy:       1,
		model.PillarPriceAction:  1,
		model.PillarOptionsVol:   1,
	}

	if _, err := ValidatePillars(raw); err == nil || !llm.IsValidation(err) {
		t.Fatalf("expected validation error for non-integer score, got %v", err)
	}
}

func TestScore_EndToEnd(t *testing.T) {
	stub := &stubCompleter{text: `{
		"pillar_scores": {"macro":2,"fundamentals":2,"valuation":1,"positioning":2,"policy":1,"price_action":2,"options_vol":1},
		"primary_thesis": "Energy equities rerate as capex discipline holds",
		"variant_view": "bullish while consensus fades the sector",
		"p_and_l_mechanism": "long integrated majors, dividends plus multiple expansion",
		"falsification_criteria": ["OPEC discipline breaks", "demand rolls over"]
	}`}

	scorer := NewConfluenceScorer(stub, 0)
	score, err := scorer.Score(context.Background(), model.AnalyzedContent{
		Source:           model.Source42Macro,
		ContentType:      model.ContentTypePDF,
		TickersMentioned: []string{"XLE"},
	})
	if err != nil {
		t.Fatalf("Score returned error: %v", err)
	}

	if score.ConfluenceLevel != model.ConfluenceStrong {
		t.Errorf("ConfluenceLevel = %s, want strong", score.ConfluenceLevel)
	}
	if score.PrimaryThesis == "" || score.VariantView == "" {
		t.Error("free-text fields should carry through")
	}
	if len(score.TickersMentioned) != 1 || score.TickersMentioned[0] != "XLE" {
		t.Errorf("TickersMentioned = %v, want [XLE]", score.TickersMentioned)
	}
}

func TestScore_TransportErrorPropagates(t *testing.T) {
	stub := &stubCompleter{err: &llm.TransportError{Provider: "openai", Err: errors.New("timeout")}}
	scorer := NewConfluenceScorer(stub, 0)

	_, err := scorer.Score(context.Background(), model.AnalyzedContent{Source: model.SourceDiscord})
	if err == nil {
		t.Fatal("expected error")
	}
	if !llm.IsTransport(err) {
		t.Errorf("expected TransportError, got %T", err)
	}
}

func TestScore_MalformedJSONIsSchemaError(t *testing.T) {
	stub := &stubCompleter{text: "not json at all"}
	scorer := NewConfluenceScorer(stub, 0)

	_, err := scorer.Score(context.Background(), model.AnalyzedContent{Source: model.SourceDiscord})
	if err == nil || !llm.IsSchema(err) {
		t.Fatalf("expected SchemaError, got %v", err)
	}
}
