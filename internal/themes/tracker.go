package themes

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"math"
	"sort"
	"time"

	"go.uber.org/zap"

	"conflux/internal/model"
	"conflux/internal/sources"
)

// Tracker reconciles extracted candidate themes against the persisted
// registry. Every mutation recomputes the running aggregates from the full
// evidence log, never incrementally.
type Tracker struct {
	store    Store
	registry *sources.Registry
	config   model.ThemesConfig
	logger   *zap.Logger
	now      func() time.Time
}

func NewTracker(store Store, registry *sources.Registry, config model.ThemesConfig, logger *zap.Logger) *Tracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tracker{
		store:    store,
		registry: registry,
		config:   config,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Reconcile applies one decision per candidate to the registry in a single
// atomic read-modify-write
func (t *Tracker) Reconcile(ctx context.Context, candidates []model.ExtractedTheme, matches []model.ThemeMatch) error {
	if len(candidates) == 0 {
		return nil
	}

	byName := make(map[string]model.ThemeMatch, len(matches))
	for _, m := range matches {
		byName[normalizeName(m.CandidateName)] = m
	}

	return t.store.Mutate(ctx, func(reg map[string]*model.Theme) error {
		for _, c := range candidates {
			decision, ok := byName[normalizeName(c.Name)]
			if !ok {
				decision = model.ThemeMatch{CandidateName: c.Name, Action: model.ActionCreate}
			}

			switch decision.Action {
			case model.ActionUpdate:
				t.applyUpdate(reg, c, decision.ThemeID)
			case model.ActionEvolve:
				t.applyEvolve(reg, c, decision.ThemeID)
			default:
				t.applyCreate(reg, c)
			}
		}
		return nil
	})
}

// applyCreate inserts a new emerging theme, or merges into an existing theme
// of the same name. Name uniqueness is a hard invariant of the registry.
func (t *Tracker) applyCreate(reg map[string]*model.Theme, c model.ExtractedTheme) {
	if existing := findByName(reg, c.Name); existing != nil {
		t.mergeEvidence(existing, c)
		return
	}

	now := t.now()
	theme := &model.Theme{
		ID:               themeID(c.Name),
		Name:             c.Name,
		Description:      c.Description,
		Status:           model.ThemeEmerging,
		SourceEvidence:   map[string][]model.EvidenceEntry{},
		Catalysts:        c.Catalysts,
		FirstMentionedAt: now,
		LastUpdatedAt:    now,
	}

	for _, src := range sortedSources(c.SourceViews) {
		if theme.FirstSource == "" {
			theme.FirstSource = src
		}
		theme.SourceEvidence[src] = append(theme.SourceEvidence[src], model.EvidenceEntry{
			Date:     now,
			Summary:  c.SourceViews[src],
			Strength: t.registry.Strength(src),
		})
	}

	// Initial conviction: min(max_initial, base + step * sum(source weights))
	theme.CurrentConviction, theme.EvidenceCount = Recompute(theme.SourceEvidence, t.registry, t.config)
	t.upgradeStatus(theme)

	reg[theme.ID] = theme
	t.logger.Info("theme created",
		zap.String("theme", theme.Name),
		zap.Float64("conviction", theme.CurrentConviction))
}

// applyUpdate appends the candidate's evidence to an existing theme and
// recomputes the aggregates. A missing target demotes to create.
func (t *Tracker) applyUpdate(reg map[string]*model.Theme, c model.ExtractedTheme, id string) {
	theme, ok := reg[id]
	if !ok || theme.Status.Terminal() {
		t.logger.Warn("update target missing or terminal, creating instead",
			zap.String("candidate", c.Name),
			zap.String("theme_id", id))
		t.applyCreate(reg, c)
		return
	}

	t.mergeEvidence(theme, c)
}

// applyEvolve records a successor theme and retires the predecessor. A
// successor whose name already exists merges instead, same as create.
func (t *Tracker) applyEvolve(reg map[string]*model.Theme, c model.ExtractedTheme, predecessorID string) {
	if existing := findByName(reg, c.Name); existing != nil {
		t.mergeEvidence(existing, c)
		return
	}

	t.applyCreate(reg, c)

	successor := findByName(reg, c.Name)
	if successor != nil {
		successor.EvolvedFromThemeID = predecessorID
	}

	if predecessor, ok := reg[predecessorID]; ok {
		predecessor.Status = model.ThemeEvolved
		predecessor.LastUpdatedAt = t.now()
		t.logger.Info("theme evolved",
			zap.String("predecessor", predecessor.Name),
			zap.String("successor", c.Name))
	}
}

// mergeEvidence appends one evidence entry per candidate source view, then
// recomputes conviction and count from the full log
func (t *Tracker) mergeEvidence(theme *model.Theme, c model.ExtractedTheme) {
	now := t.now()
	if theme.SourceEvidence == nil {
		theme.SourceEvidence = map[string][]model.EvidenceEntry{}
	}

	for _, src := range sortedSources(c.SourceViews) {
		theme.SourceEvidence[src] = append(theme.SourceEvidence[src], model.EvidenceEntry{
			Date:     now,
			Summary:  c.SourceViews[src],
			Strength: t.registry.Strength(src),
		})
	}
	for _, cat := range c.Catalysts {
		theme.Catalysts = appendUniqueString(theme.Catalysts, cat)
	}

	theme.CurrentConviction, theme.EvidenceCount = Recompute(theme.SourceEvidence, t.registry, t.config)
	theme.LastUpdatedAt = now
	t.upgradeStatus(theme)
}

// upgradeStatus promotes emerging themes to active once two distinct sources
// carry evidence. The promotion is one-way and never touches terminal states.
func (t *Tracker) upgradeStatus(theme *model.Theme) {
	if theme.Status == model.ThemeEmerging && len(theme.SourceEvidence) >= 2 {
		theme.Status = model.ThemeActive
	}
}

// Recompute derives conviction and evidence count from the full evidence
// log. Conviction uses the same weight formula as creation, summed over the
// distinct sources carrying evidence, so repeat mentions from one source do
// not inflate belief.
func Recompute(evidence map[string][]model.EvidenceEntry, registry *sources.Registry, config model.ThemesConfig) (float64, int) {
	var weightSum float64
	count := 0
	for src, entries := range evidence {
		if len(entries) == 0 {
			continue
		}
		weightSum += registry.Weight(src)
		count += len(entries)
	}
	if count == 0 {
		return config.BaseConviction, 0
	}
	return math.Min(config.MaxInitial, config.BaseConviction+config.WeightStep*weightSum), count
}

func findByName(reg map[string]*model.Theme, name string) *model.Theme {
	key := normalizeName(name)
	for _, t := range reg {
		if normalizeName(t.Name) == key {
			return t
		}
		for _, alias := range t.Aliases {
			if normalizeName(alias) == key {
				return t
			}
		}
	}
	return nil
}

// themeID derives a stable identifier from the normalized name
func themeID(name string) string {
	sum := sha256.Sum256([]byte(normalizeName(name)))
	return "theme-" + hex.EncodeToString(sum[:6])
}

func sortedSources(views map[string]string) []string {
	srcs := make([]string, 0, len(views))
	for src := range views {
		srcs = append(srcs, src)
	}
	sort.Strings(srcs)
	return srcs
}

func appendUniqueString(list []string, s string) []string {
	for _, v := range list {
		if v == s {
			return list
		}
	}
	return append(list, s)
}
