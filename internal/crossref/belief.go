package crossref

import (
	"strings"
	"sync"

	"conflux/internal/model"
)

// Conviction bucket boundaries. The raw posterior is never shown to users;
// only the bucket label is, to avoid false precision.
const (
	bucketMediumFloor        = 0.45
	bucketHighFloor          = 0.65
	bucketTablePoundingFloor = 0.85
)

// Posterior applies the naive odds-form belief update:
//
//	posterior = (L * prior) / (L * prior + (1-L) * (1-prior))
//
// where likelihood L conflates evidence strength and source trust. This is
// not a rigorous Bayesian likelihood; it is a deliberately simple, monotonic,
// bounded update rule. The degenerate zero denominator returns the prior
// unchanged, and the result is always clamped to [0,1].
func Posterior(prior, likelihood float64) float64 {
	prior = clamp01(prior)
	likelihood = clamp01(likelihood)

	numerator := likelihood * prior
	denominator := numerator + (1-likelihood)*(1-prior)
	if denominator == 0 {
		return prior
	}
	return clamp01(numerator / denominator)
}

// BucketFor maps a conviction value onto the 4 fixed qualitative buckets.
// The buckets partition [0,1]: every value maps to exactly one, and 1.0 is
// table_pounding.
func BucketFor(conviction float64) model.ConvictionBucket {
	switch {
	case conviction < bucketMediumFloor:
		return model.BucketLow
	case conviction < bucketHighFloor:
		return model.BucketMedium
	case conviction < bucketTablePoundingFloor:
		return model.BucketHigh
	default:
		return model.BucketTablePounding
	}
}

// Interval returns the fixed-width heuristic band around a posterior,
// clamped to [0,1]. Not a statistically derived interval.
func Interval(posterior, halfWidth float64) [2]float64 {
	return [2]float64{clamp01(posterior - halfWidth), clamp01(posterior + halfWidth)}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// beliefHistory retains the rolling tail of posterior values per theme label
// across runs of the same engine instance
type beliefHistory struct {
	mu      sync.Mutex
	depth   int
	entries map[string][]float64
}

func newBeliefHistory(depth int) *beliefHistory {
	if depth <= 0 {
		depth = 10
	}
	return &beliefHistory{
		depth:   depth,
		entries: make(map[string][]float64),
	}
}

// prior returns the most recent posterior for a theme, or fallback when the
// theme has no history yet
func (h *beliefHistory) prior(label string, fallback float64) float64 {
	h.mu.Lock()
	defer h.mu.Unlock()

	hist := h.entries[historyKey(label)]
	if len(hist) == 0 {
		return fallback
	}
	return hist[len(hist)-1]
}

// record appends a posterior, trimming to the configured depth
func (h *beliefHistory) record(label string, posterior float64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	key := historyKey(label)
	hist := append(h.entries[key], posterior)
	if len(hist) > h.depth {
		hist = hist[len(hist)-h.depth:]
	}
	h.entries[key] = hist
}

// trend classifies the direction of a theme's history
func (h *beliefHistory) trend(label string, delta float64) model.ConvictionTrend {
	h.mu.Lock()
	defer h.mu.Unlock()

	hist := h.entries[historyKey(label)]
	if len(hist) < 2 {
		return model.TrendNew
	}

	change := hist[len(hist)-1] - hist[0]
	switch {
	case change > delta:
		return model.TrendRising
	case change < -delta:
		return model.TrendFalling
	default:
		return model.TrendStable
	}
}

// historyKey normalizes a cluster label so cosmetic rewording by the
// clustering call does not orphan a theme's history
func historyKey(label string) string {
	return strings.Join(strings.Fields(strings.ToLower(label)), " ")
}
