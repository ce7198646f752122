package crossref

import (
	"context"
	"errors"
	"testing"
	"time"

	"conflux/internal/llm"
	"conflux/internal/model"
	"conflux/internal/sources"
)

type stubCompleter struct {
	text  string
	err   error
	calls int
}

func (s *stubCompleter) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &llm.CompletionResponse{Text: s.text}, nil
}

func newAgent(stub llm.Completer) *CrossReferenceAgent {
	cfg := model.DefaultConfig().CrossRef
	return NewCrossReferenceAgent(stub, sources.NewRegistry(nil), cfg, nil)
}

func score(source model.SourceType, thesis, variant string, coreTotal int, tickers ...string) model.RubricScore {
	return model.RubricScore{
		Source:           source,
		PrimaryThesis:    thesis,
		VariantView:      variant,
		CoreTotal:        coreTotal,
		TotalScore:       coreTotal + 2,
		TickersMentioned: tickers,
		AnalyzedAt:       time.Now().UTC(),
	}
}

func TestRun_EmptyBatchShortCircuits(t *testing.T) {
	stub := &stubCompleter{}
	agent := newAgent(stub)

	report, err := agent.Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if stub.calls != 0 {
		t.Errorf("collaborator called %d times for empty batch, want 0", stub.calls)
	}
	if report.TotalThemes != 0 || report.ClusteredThemesCount != 0 {
		t.Errorf("counters not zero: %+v", report)
	}
	if len(report.ConfluentThemes) != 0 || len(report.Contradictions) != 0 || len(report.HighConviction) != 0 {
		t.Error("expected empty slices, same shape as a non-empty result")
	}
}

func TestRun_EmptyThesesMakeNoCall(t *testing.T) {
	stub := &stubCompleter{}
	agent := newAgent(stub)

	batch := []model.RubricScore{
		{Source: model.SourceDiscord, PrimaryThesis: "   "},
		{Source: model.SourceYouTube},
	}

	report, err := agent.Run(context.Background(), batch)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if stub.calls != 0 {
		t.Errorf("collaborator called %d times with no usable theses, want 0", stub.calls)
	}
	if report.TotalThemes != 0 {
		t.Errorf("TotalThemes = %d, want 0", report.TotalThemes)
	}
}

func TestRun_ConfluentClusterSurvivesFilter(t *testing.T) {
	stub := &stubCompleter{text: `{"clusters":[{"label":"energy rerating","indexes":[0,1]}]}`}
	agent := newAgent(stub)

	batch := []model.RubricScore{
		score(model.Source42Macro, "Energy rerates on capex discipline", "bullish energy", 8),
		score(model.SourceDiscord, "Long energy, supply stays tight", "bullish crude complex", 6),
	}

	report, err := agent.Run(context.Background(), batch)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if report.TotalThemes != 2 || report.ClusteredThemesCount != 1 {
		t.Errorf("counters = %d/%d, want 2/1", report.TotalThemes, report.ClusteredThemesCount)
	}
	if len(report.ConfluentThemes) != 1 {
		t.Fatalf("got %d confluent themes, want 1", len(report.ConfluentThemes))
	}

	cluster := report.ConfluentThemes[0]
	if cluster.SourceCount != 2 {
		t.Errorf("SourceCount = %d, want 2", cluster.SourceCount)
	}
	if cluster.AvgCoreScore != 7 {
		t.Errorf("AvgCoreScore = %v, want 7", cluster.AvgCoreScore)
	}
	if cluster.PriorConviction != 0.3 {
		t.Errorf("PriorConviction = %v, want default 0.3", cluster.PriorConviction)
	}
	if cluster.CurrentConviction <= 0.3 {
		t.Errorf("CurrentConviction = %v, want raised above prior", cluster.CurrentConviction)
	}
	if cluster.ConvictionBucket == "" {
		t.Error("ConvictionBucket not set")
	}
	if cluster.ConfidenceInterval[0] > cluster.CurrentConviction || cluster.ConfidenceInterval[1] < cluster.CurrentConviction {
		t.Errorf("interval %v does not bracket conviction %v", cluster.ConfidenceInterval, cluster.CurrentConviction)
	}
}

func TestRun_SameSourceClusterIsFilteredOut(t *testing.T) {
	stub := &stubCompleter{text: `{"clusters":[{"label":"one voice","indexes":[0,1]}]}`}
	agent := newAgent(stub)

	batch := []model.RubricScore{
		score(model.SourceDiscord, "Gold breakout imminent", "bullish", 8),
		score(model.SourceDiscord, "Gold coiling for a move", "bullish", 7),
	}

	report, err := agent.Run(context.Background(), batch)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	// Two entries from one source: confluence requires distinct sources
	if len(report.ConfluentThemes) != 0 {
		t.Errorf("got %d confluent themes from a single source, want 0", len(report.ConfluentThemes))
	}
	if report.ClusteredThemesCount != 1 {
		t.Errorf("ClusteredThemesCount = %d, want 1 (visible for observability)", report.ClusteredThemesCount)
	}
}

func TestRun_ClusteringFailureDegradesToSingletons(t *testing.T) {
	stub := &stubCompleter{err: &llm.TransportError{Provider: "openai", Err: errors.New("boom")}}
	agent := newAgent(stub)

	batch := []model.RubricScore{
		score(model.Source42Macro, "Dollar tops as growth converges", "bearish dollar", 7),
		score(model.SourceSubstack, "DXY rolling over", "short dollar", 7),
	}

	report, err := agent.Run(context.Background(), batch)
	if err != nil {
		t.Fatalf("Run should not fail on clustering errors, got: %v", err)
	}

	if !report.ClusteringFallback {
		t.Error("ClusteringFallback not flagged")
	}
	if report.ClusteredThemesCount != 2 {
		t.Errorf("ClusteredThemesCount = %d, want 2 singletons", report.ClusteredThemesCount)
	}
	if len(report.ConfluentThemes) != 0 {
		t.Errorf("singletons must not pass the confluence filter, got %d", len(report.ConfluentThemes))
	}
}

func TestRun_DroppedIndexesBecomeSingletons(t *testing.T) {
	stub := &stubCompleter{text: `{"clusters":[{"label":"rates","indexes":[0,1]}]}`}
	agent := newAgent(stub)

	batch := []model.RubricScore{
		score(model.Source42Macro, "Curve steepener works", "bullish steepener", 7),
		score(model.SourceDiscord, "2s10s steepening trade", "long the steepener", 7),
		score(model.SourceYouTube, "Uranium supply squeeze", "bullish uranium", 6),
	}

	report, err := agent.Run(context.Background(), batch)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if report.ClusteredThemesCount != 2 {
		t.Errorf("ClusteredThemesCount = %d, want 2 (cluster + dropped singleton)", report.ClusteredThemesCount)
	}
}

func TestRun_HighConvictionAfterRepeatedConfirmation(t *testing.T) {
	stub := &stubCompleter{text: `{"clusters":[{"label":"ai capex supercycle","indexes":[0,1]}]}`}
	agent := newAgent(stub)

	batch := []model.RubricScore{
		score(model.Source42Macro, "AI capex supercycle continues", "bullish semis", 10),
		score(model.SourceDiscord, "Hyperscaler spend accelerating", "long AI infrastructure", 10),
	}

	first, err := agent.Run(context.Background(), batch)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	if len(first.HighConviction) != 0 {
		t.Errorf("first run conviction %v should not clear the 0.75 bar", first.ConfluentThemes[0].CurrentConviction)
	}

	second, err := agent.Run(context.Background(), batch)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}

	if len(second.HighConviction) != 1 {
		t.Fatalf("got %d high-conviction ideas on second run, want 1", len(second.HighConviction))
	}
	idea := second.HighConviction[0]
	if idea.Conviction < 0.75 {
		t.Errorf("conviction = %v, want >= 0.75", idea.Conviction)
	}
	if idea.ConvictionTrend != model.TrendRising {
		t.Errorf("trend = %s, want rising", idea.ConvictionTrend)
	}
	if idea.SourceCount != 2 {
		t.Errorf("SourceCount = %d, want 2", idea.SourceCount)
	}
}

func TestRun_ContradictionsReported(t *testing.T) {
	stub := &stubCompleter{err: errors.New("clustering down")}
	agent := newAgent(stub)

	batch := []model.RubricScore{
		score(model.Source42Macro, "Oil supply discipline holds", "bullish crude", 8, "USO"),
		score(model.SourceKTTechnical, "Crude weekly reversal", "bearish breakdown", 7, "USO"),
	}

	report, err := agent.Run(context.Background(), batch)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if len(report.Contradictions) != 1 || report.Contradictions[0].Ticker != "USO" {
		t.Fatalf("contradictions = %+v, want one on USO", report.Contradictions)
	}
}
