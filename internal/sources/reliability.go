package sources

import (
	"strings"

	"conflux/internal/model"
)

// Registry resolves per-source weights and reliability from the fixed
// configuration tables. Unknown sources fall back to configured defaults
// rather than failing, so a new feed degrades gracefully.
type Registry struct {
	config model.SourcesConfig
}

// NewRegistry creates a registry from configuration
func NewRegistry(config *model.SourcesConfig) *Registry {
	if config == nil {
		cfg := model.DefaultConfig().Sources
		config = &cfg
	}
	return &Registry{config: *config}
}

// Weight returns the evidence weight for a source
func (r *Registry) Weight(source string) float64 {
	if w, ok := r.config.Weights[normalize(source)]; ok {
		return w
	}
	return r.config.DefaultWeight
}

// Reliability returns the belief-update reliability for a source, in [0,1]
func (r *Registry) Reliability(source string) float64 {
	if rel, ok := r.config.Reliability[normalize(source)]; ok {
		return rel
	}
	return r.config.DefaultReliability
}

// Strength maps a source's weight to the qualitative evidence label
func (r *Registry) Strength(source string) model.EvidenceStrength {
	return StrengthForWeight(r.Weight(source))
}

// StrengthForWeight applies the fixed weight thresholds
func StrengthForWeight(weight float64) model.EvidenceStrength {
	switch {
	case weight >= 1.5:
		return model.StrengthStrong
	case weight >= 1.0:
		return model.StrengthModerate
	default:
		return model.StrengthWeak
	}
}

// MeanReliability averages reliability over a set of sources. An empty set
// returns the default reliability.
func (r *Registry) MeanReliability(srcs []string) float64 {
	if len(srcs) == 0 {
		return r.config.DefaultReliability
	}
	var sum float64
	for _, s := range srcs {
		sum += r.Reliability(s)
	}
	return sum / float64(len(srcs))
}

func normalize(source string) string {
	return strings.ToLower(strings.TrimSpace(source))
}
