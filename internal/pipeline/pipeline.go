package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"conflux/internal/cache"
	"conflux/internal/classify"
	"conflux/internal/crossref"
	"conflux/internal/llm"
	"conflux/internal/model"
	"conflux/internal/quality"
	"conflux/internal/scoring"
	"conflux/internal/sources"
	"conflux/internal/themes"
	"conflux/internal/util"
	"conflux/internal/worker"
)

// Pipeline orchestrates the full flow: classification, rubric scoring,
// cross-referencing and theme reconciliation, with the quality evaluator as
// an independent check on synthesis output.
type Pipeline struct {
	classifier *classify.Classifier
	batch      *worker.BatchScorer
	agent      *crossref.CrossReferenceAgent
	extractor  *themes.Extractor
	matcher    *themes.Matcher
	tracker    *themes.Tracker
	store      themes.Store
	evaluator  *quality.Evaluator
	renderer   *Renderer
	config     *model.Config
	logger     *zap.Logger
}

// NewPipeline wires every component from configuration. A missing or failed
// collaborator is not fatal: each component carries its own fallback.
func NewPipeline(cfg *model.Config, logger *zap.Logger) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	llmCfg := llm.ConfigFromModel(cfg.LLM)
	provider, err := llm.NewProvider(llmCfg)
	if err != nil {
		logger.Warn("collaborator unavailable, deterministic fallbacks only", zap.Error(err))
		provider = nil
	}

	var store cache.Cache
	if cfg.Cache.Enabled {
		if cfg.Cache.Dir != "" {
			store = cache.NewLayeredCache(cfg.Cache.TTL, cfg.Cache.Dir, cfg.Cache.TTL)
		} else {
			store = cache.NewMemoryCache(cfg.Cache.TTL, cfg.Cache.CleanupInterval)
		}
	}
	client := llm.NewClient(provider, llmCfg, store, cfg.Cache.TTL)

	registry := sources.NewRegistry(&cfg.Sources)
	scorer := scoring.NewConfluenceScorer(client, cfg.LLM.MaxInputLen)
	themeStore := themes.NewFileStore(cfg.Themes.StorePath)

	return &Pipeline{
		classifier: classify.NewClassifier(client, cfg.Classify, cfg.LLM.MaxInputLen, logger),
		batch:      worker.NewBatchScorer(scorer, cfg.Concurrency.ScoreWorkers),
		agent:      crossref.NewCrossReferenceAgent(client, registry, cfg.CrossRef, logger),
		extractor:  themes.NewExtractor(client),
		matcher:    themes.NewMatcher(client, logger),
		tracker:    themes.NewTracker(themeStore, registry, cfg.Themes, logger),
		store:      themeStore,
		evaluator:  quality.NewEvaluator(client, cfg.Quality, logger),
		renderer:   NewRenderer(cfg.Output.IncludeFooter),
		config:     cfg,
		logger:     logger,
	}, nil
}

// ItemResult pairs one content item with its triage and, when routed to the
// scorer, its rubric score
type ItemResult struct {
	ItemID         string               `json:"item_id"`
	Source         model.SourceType     `json:"source"`
	Classification model.Classification `json:"classification"`
	Score          *model.RubricScore   `json:"score,omitempty"`
	ScoreError     string               `json:"score_error,omitempty"`
}

// AnalyzeReport is the output of one analyze run
type AnalyzeReport struct {
	GeneratedAt time.Time          `json:"generated_at"`
	Items       []ItemResult       `json:"items"`
	Scores      []model.RubricScore `json:"scores"` // Successful scores only, crossref input
}

// AnalyzeBatch classifies every item and scores the ones routed to the
// confluence scorer, fanning scoring calls over the worker pool
func (p *Pipeline) AnalyzeBatch(ctx context.Context, items []model.ContentItem) *AnalyzeReport {
	report := &AnalyzeReport{
		GeneratedAt: time.Now().UTC(),
		Items:       make([]ItemResult, len(items)),
		Scores:      []model.RubricScore{},
	}

	var toScore []model.AnalyzedContent
	var scoreIdx []int
	for i, item := range items {
		c := p.classifier.Classify(ctx, item)
		report.Items[i] = ItemResult{
			ItemID:         item.ID,
			Source:         item.Source,
			Classification: c,
		}
		if routedToScorer(c) {
			toScore = append(toScore, analyzedFromItem(item))
			scoreIdx = append(scoreIdx, i)
		}
	}

	outcomes := p.batch.ScoreAll(ctx, toScore)
	for j, outcome := range outcomes {
		i := scoreIdx[j]
		if outcome.Err != nil {
			report.Items[i].ScoreError = outcome.Err.Error()
			p.logger.Warn("item scoring failed",
				zap.String("item", report.Items[i].ItemID),
				zap.Error(outcome.Err))
			continue
		}
		report.Items[i].Score = outcome.Score
		report.Scores = append(report.Scores, *outcome.Score)
	}

	return report
}

// CrossReference runs the cross-reference engine over a batch of scores
func (p *Pipeline) CrossReference(ctx context.Context, scores []model.RubricScore) (*model.CrossRefReport, error) {
	return p.agent.Run(ctx, scores)
}

// ThemeReport summarizes one reconciliation run
type ThemeReport struct {
	GeneratedAt time.Time          `json:"generated_at"`
	Candidates  int                `json:"candidates"`
	Matches     []model.ThemeMatch `json:"matches"`
}

// ReconcileThemes extracts themes from a synthesis document, matches them
// against the registry and applies the resulting mutations
func (p *Pipeline) ReconcileThemes(ctx context.Context, document string) (*ThemeReport, error) {
	candidates, err := p.extractor.Extract(ctx, document)
	if err != nil {
		return nil, fmt.Errorf("extract themes: %w", err)
	}

	existing, err := p.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load theme registry: %w", err)
	}

	matches := p.matcher.Match(ctx, candidates, existing)
	if err := p.tracker.Reconcile(ctx, candidates, matches); err != nil {
		return nil, fmt.Errorf("reconcile themes: %w", err)
	}

	return &ThemeReport{
		GeneratedAt: time.Now().UTC(),
		Candidates:  len(candidates),
		Matches:     matches,
	}, nil
}

// ListThemes returns the persisted registry
func (p *Pipeline) ListThemes(ctx context.Context) ([]model.Theme, error) {
	return p.store.Load(ctx)
}

// EvaluateQuality grades one synthesis document
func (p *Pipeline) EvaluateQuality(ctx context.Context, document string) *model.QualityReport {
	return p.evaluator.Evaluate(ctx, document)
}

// Renderer exposes the report renderer for the CLI layer
func (p *Pipeline) Renderer() *Renderer {
	return p.renderer
}

func routedToScorer(c model.Classification) bool {
	for _, r := range c.Route {
		if r == model.RouteScorer {
			return true
		}
	}
	return false
}

// analyzedFromItem builds the minimal analyzed record the scorer accepts.
// Full per-format analyzers sit upstream of this pipeline; here the raw text
// is reduced to its visible content and passed through as the summary.
func analyzedFromItem(item model.ContentItem) model.AnalyzedContent {
	return model.AnalyzedContent{
		Source:      item.Source,
		ContentType: item.ContentType,
		Summary:     util.VisibleText(item.Text),
	}
}
