package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"conflux/internal/model"
)

func testConfig(t *testing.T) *model.Config {
	t.Helper()
	cfg := model.DefaultConfig()
	cfg.Cache.Enabled = false
	cfg.Themes.StorePath = filepath.Join(t.TempDir(), "themes.json")
	return cfg
}

func TestNewPipeline_DisabledCollaboratorIsNotFatal(t *testing.T) {
	p, err := NewPipeline(testConfig(t), nil)
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}
	if p == nil {
		t.Fatal("nil pipeline")
	}
}

func TestNewPipeline_RejectsBrokenWeightTable(t *testing.T) {
	cfg := testConfig(t)
	delete(cfg.Quality.Weights, model.CriterionTimeliness)

	if _, err := NewPipeline(cfg, nil); err == nil {
		t.Error("expected configuration validation error")
	}
}

func TestAnalyzeBatch_SurvivesWithoutCollaborator(t *testing.T) {
	p, err := NewPipeline(testConfig(t), nil)
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}

	items := []model.ContentItem{
		{ID: "a1", Source: model.Source42Macro, ContentType: model.ContentTypePDF, Text: "regime update"},
		{ID: "a2", Source: model.SourceDiscord, ContentType: model.ContentTypeText, Text: "urgent position change"},
	}

	report := p.AnalyzeBatch(context.Background(), items)

	if len(report.Items) != 2 {
		t.Fatalf("got %d item results, want 2", len(report.Items))
	}
	for _, item := range report.Items {
		if !item.Classification.Fallback {
			t.Errorf("item %s: expected rule-based fallback with no collaborator", item.ItemID)
		}
	}
	// Urgent keyword rule still fires without a collaborator
	if report.Items[1].Classification.Priority != model.PriorityHigh {
		t.Errorf("urgent item priority = %s, want high", report.Items[1].Classification.Priority)
	}
	// Scoring needs the collaborator; failures are carried per item
	for _, item := range report.Items {
		if routedToScorer(item.Classification) && item.ScoreError == "" && item.Score == nil {
			t.Errorf("item %s routed to scorer but has neither score nor error", item.ItemID)
		}
	}
	if len(report.Scores) != 0 {
		t.Errorf("got %d scores with no collaborator, want 0", len(report.Scores))
	}
}

func TestLoadContentItems_BareArrayAndWrapper(t *testing.T) {
	dir := t.TempDir()

	bare := filepath.Join(dir, "bare.json")
	os.WriteFile(bare, []byte(`[{"id":"x","source":"discord","content_type":"text","text":"hi"}]`), 0o644)

	wrapped := filepath.Join(dir, "wrapped.json")
	os.WriteFile(wrapped, []byte(`{"items":[{"id":"y","source":"42macro","content_type":"pdf","text":"doc"}]}`), 0o644)

	for _, path := range []string{bare, wrapped} {
		items, err := LoadContentItems(path)
		if err != nil {
			t.Fatalf("LoadContentItems(%s): %v", path, err)
		}
		if len(items) != 1 {
			t.Errorf("%s: got %d items, want 1", path, len(items))
		}
	}
}

func TestLoadContentItems_MissingSourceRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	os.WriteFile(path, []byte(`[{"id":"x","content_type":"text","text":"hi"}]`), 0o644)

	if _, err := LoadContentItems(path); err == nil {
		t.Error("expected error for item without source")
	}
}

func TestLoadScores_AcceptsAnalyzeReport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")
	os.WriteFile(path, []byte(`{"generated_at":"2026-08-31T00:00:00Z","items":[],"scores":[{"source":"discord","core_total":7,"total_score":9}]}`), 0o644)

	scores, err := LoadScores(path)
	if err != nil {
		t.Fatalf("LoadScores: %v", err)
	}
	if len(scores) != 1 || scores[0].CoreTotal != 7 {
		t.Errorf("scores = %+v, want the embedded score", scores)
	}
}

func TestLoadDocument_EmptyRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.md")
	os.WriteFile(path, []byte("  \n"), 0o644)

	if _, err := LoadDocument(path); err == nil {
		t.Error("expected error for empty document")
	}
}

func TestRenderer_WritesReports(t *testing.T) {
	dir := t.TempDir()
	r := NewRenderer(true)

	report := &model.CrossRefReport{
		TotalThemes:          2,
		ClusteredThemesCount: 1,
		ConfluentThemes: []model.ConfluentThemeCluster{{
			RepresentativeTheme: "energy rerating",
			SourceCount:         2,
			AvgCoreScore:        7,
			CurrentConviction:   0.7,
			ConvictionBucket:    model.BucketHigh,
		}},
		Contradictions: []model.Contradiction{{Ticker: "XLE", BullishSources: []string{"42macro"}, BearishSources: []string{"kt_technical"}}},
		HighConviction: []model.HighConvictionIdea{},
	}

	jsonPath := filepath.Join(dir, "report.json")
	if err := r.RenderJSON(report, jsonPath); err != nil {
		t.Fatalf("RenderJSON: %v", err)
	}
	mdPath := filepath.Join(dir, "report.md")
	if err := r.RenderCrossRefMarkdown(report, mdPath); err != nil {
		t.Fatalf("RenderCrossRefMarkdown: %v", err)
	}

	md, err := os.ReadFile(mdPath)
	if err != nil {
		t.Fatalf("read markdown: %v", err)
	}
	for _, want := range []string{"energy rerating", "XLE", "Generated by conflux"} {
		if !strings.Contains(string(md), want) {
			t.Errorf("markdown missing %q", want)
		}
	}
}
