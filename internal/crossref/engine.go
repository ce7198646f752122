package crossref

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"conflux/internal/llm"
	"conflux/internal/model"
	"conflux/internal/sources"
)

const clusterSystemPrompt = `You are grouping investment theses from independent research sources.
` + llm.UntrustedPreamble + `
You receive a numbered list of theses. Group theses that express the SAME
underlying investment idea, even when worded differently. Do not merge
distinct ideas. Every index must appear in at most one cluster; singletons
are fine.

Respond ONLY with JSON:
{"clusters": [{"label": "short representative name", "indexes": [0, 2]}]}`

// clusterResponse is the collaborator's clustering output
type clusterResponse struct {
	Clusters []struct {
		Label   string `json:"label"`
		Indexes []int  `json:"indexes"`
	} `json:"clusters"`
}

// CrossReferenceAgent finds cross-source agreement among a batch of rubric
// scores, updates running conviction per theme, flags contradictions, and
// surfaces high-conviction ideas.
type CrossReferenceAgent struct {
	completer llm.Completer
	registry  *sources.Registry
	config    model.CrossRefConfig
	history   *beliefHistory
	logger    *zap.Logger
}

// NewCrossReferenceAgent creates an agent
func NewCrossReferenceAgent(completer llm.Completer, registry *sources.Registry, config model.CrossRefConfig, logger *zap.Logger) *CrossReferenceAgent {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.MinSources < 1 {
		config.MinSources = 2
	}
	return &CrossReferenceAgent{
		completer: completer,
		registry:  registry,
		config:    config,
		history:   newBeliefHistory(config.HistoryDepth),
		logger:    logger,
	}
}

// Run cross-references a batch of rubric scores. An empty batch
// short-circuits to a zero-valued report with no collaborator call.
// Clustering failures degrade to the singleton fallback; the run itself
// never fails on collaborator errors.
func (a *CrossReferenceAgent) Run(ctx context.Context, scores []model.RubricScore) (*model.CrossRefReport, error) {
	report := &model.CrossRefReport{
		GeneratedAt:     time.Now().UTC(),
		ConfluentThemes: []model.ConfluentThemeCluster{},
		Contradictions:  []model.Contradiction{},
		HighConviction:  []model.HighConvictionIdea{},
	}

	candidates := extractCandidates(scores)
	report.TotalThemes = len(candidates)
	if len(candidates) == 0 {
		return report, nil
	}

	clusters, err := a.tryLLMClustering(ctx, candidates)
	if err != nil {
		a.logger.Warn("clustering failed, degrading to singleton clusters", zap.Error(err))
		clusters = singletonFallback(candidates)
		report.ClusteringFallback = true
	}
	report.ClusteredThemesCount = len(clusters)

	for i := range clusters {
		if clusters[i].SourceCount < a.config.MinSources {
			continue
		}
		a.updateBelief(&clusters[i])
		report.ConfluentThemes = append(report.ConfluentThemes, clusters[i])
	}

	report.Contradictions = detectContradictions(candidates, a.config.BullishKeywords, a.config.BearishKeywords)
	report.HighConviction = a.extractHighConviction(report.ConfluentThemes)

	return report, nil
}

// extractCandidates turns every score with a non-empty primary thesis into
// one theme candidate
func extractCandidates(scores []model.RubricScore) []model.ThemeCandidate {
	var candidates []model.ThemeCandidate
	for _, s := range scores {
		if strings.TrimSpace(s.PrimaryThesis) == "" {
			continue
		}
		candidates = append(candidates, model.ThemeCandidate{
			Source:                s.Source,
			Thesis:                s.PrimaryThesis,
			VariantView:           s.VariantView,
			PAndLMechanism:        s.PAndLMechanism,
			FalsificationCriteria: s.FalsificationCriteria,
			Tickers:               s.TickersMentioned,
			CoreTotal:             s.CoreTotal,
			TotalScore:            s.TotalScore,
			Timestamp:             s.AnalyzedAt,
		})
	}
	return candidates
}

// tryLLMClustering asks the collaborator to group semantically equivalent
// theses and materializes the returned index lists into clusters
func (a *CrossReferenceAgent) tryLLMClustering(ctx context.Context, candidates []model.ThemeCandidate) ([]model.ConfluentThemeCluster, error) {
	if a.completer == nil {
		return nil, &llm.TransportError{Provider: "none", Err: context.Canceled}
	}

	var b strings.Builder
	for i, c := range candidates {
		fmt.Fprintf(&b, "[%d] (%s) %s\n", i, c.Source, llm.Sanitize(c.Thesis, 500))
	}
	user := "Theses:\n" + llm.WrapUntrusted(b.String())

	resp, err := a.completer.Complete(ctx, llm.CompletionRequest{
		System:      clusterSystemPrompt,
		User:        user,
		MaxTokens:   1500,
		Temperature: 0,
		ExpectJSON:  true,
	})
	if err != nil {
		return nil, err
	}

	var parsed clusterResponse
	if err := llm.DecodeJSON(resp.Text, &parsed); err != nil {
		return nil, err
	}
	if len(parsed.Clusters) == 0 {
		return nil, &llm.SchemaError{Field: "clusters", Reason: "empty"}
	}

	used := make(map[int]bool)
	var clusters []model.ConfluentThemeCluster
	for _, raw := range parsed.Clusters {
		var members []model.ThemeCandidate
		for _, idx := range raw.Indexes {
			if idx < 0 || idx >= len(candidates) || used[idx] {
				continue
			}
			used[idx] = true
			members = append(members, candidates[idx])
		}
		if len(members) == 0 {
			continue
		}
		label := strings.TrimSpace(raw.Label)
		if label == "" {
			label = members[0].Thesis
		}
		clusters = append(clusters, materializeCluster(label, members))
	}

	// Indexes the collaborator dropped still count as singleton themes
	for idx, c := range candidates {
		if !used[idx] {
			clusters = append(clusters, materializeCluster(c.Thesis, []model.ThemeCandidate{c}))
		}
	}

	return clusters, nil
}

// singletonFallback degrades gracefully: every theme becomes its own cluster
// with source_count 1
func singletonFallback(candidates []model.ThemeCandidate) []model.ConfluentThemeCluster {
	clusters := make([]model.ConfluentThemeCluster, 0, len(candidates))
	for _, c := range candidates {
		clusters = append(clusters, materializeCluster(c.Thesis, []model.ThemeCandidate{c}))
	}
	return clusters
}

// materializeCluster derives every aggregate from the member list.
// SourceCount counts distinct sources, never raw members.
func materializeCluster(label string, members []model.ThemeCandidate) model.ConfluentThemeCluster {
	distinct := make(map[model.SourceType]bool)
	var coreSum, totalSum float64
	for _, m := range members {
		distinct[m.Source] = true
		coreSum += float64(m.CoreTotal)
		totalSum += float64(m.TotalScore)
	}

	n := float64(len(members))
	return model.ConfluentThemeCluster{
		RepresentativeTheme: label,
		ThemesDetail:        members,
		SourceCount:         len(distinct),
		AvgCoreScore:        coreSum / n,
		AvgTotalScore:       totalSum / n,
	}
}

// updateBelief runs the belief update for one surviving cluster and records
// the posterior in the rolling history
func (a *CrossReferenceAgent) updateBelief(cluster *model.ConfluentThemeCluster) {
	prior := a.history.prior(cluster.RepresentativeTheme, a.config.DefaultPrior)

	evidenceStrength := math.Min(cluster.AvgCoreScore/10, 1.0)
	avgReliability := a.registry.MeanReliability(clusterSources(cluster))
	likelihood := evidenceStrength * avgReliability

	posterior := Posterior(prior, likelihood)

	cluster.PriorConviction = prior
	cluster.CurrentConviction = posterior
	cluster.ConvictionBucket = BucketFor(posterior)
	cluster.ConfidenceInterval = Interval(posterior, a.config.IntervalHalfWidth)

	a.history.record(cluster.RepresentativeTheme, posterior)
}

// extractHighConviction returns clusters past the conviction bar, sorted
// descending by conviction
func (a *CrossReferenceAgent) extractHighConviction(clusters []model.ConfluentThemeCluster) []model.HighConvictionIdea {
	ideas := []model.HighConvictionIdea{}
	for _, c := range clusters {
		if c.CurrentConviction < a.config.HighConvictionThreshold || c.SourceCount < 2 {
			continue
		}
		ideas = append(ideas, model.HighConvictionIdea{
			Theme:           c.RepresentativeTheme,
			Conviction:      c.CurrentConviction,
			Bucket:          c.ConvictionBucket,
			SourceCount:     c.SourceCount,
			Sources:         clusterSources(&c),
			ConvictionTrend: a.history.trend(c.RepresentativeTheme, a.config.TrendDelta),
		})
	}

	sort.Slice(ideas, func(i, j int) bool {
		return ideas[i].Conviction > ideas[j].Conviction
	})
	return ideas
}

// clusterSources lists the distinct sources contributing to a cluster, in
// first-seen order
func clusterSources(cluster *model.ConfluentThemeCluster) []string {
	var srcs []string
	for _, m := range cluster.ThemesDetail {
		srcs = appendUnique(srcs, string(m.Source))
	}
	return srcs
}
