package themes

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"conflux/internal/llm"
	"conflux/internal/model"
)

const matchSystemPrompt = `You reconcile freshly extracted investment themes against a registry of
already-tracked themes.
` + llm.UntrustedPreamble + `
For each candidate decide exactly one action:
- "create": genuinely new idea, no existing theme covers it
- "update": same idea as an existing theme (even if worded differently);
  reference that theme's id
- "evolve": a meaningful mutation of an existing theme (thesis changed, not
  just new evidence); reference the predecessor's id

Respond ONLY with JSON:
{"matches": [{"candidate_name": "...", "action": "create|update|evolve", "theme_id": "...", "reason": "..."}]}`

// matchResponse is the collaborator's matching output
type matchResponse struct {
	Matches []model.ThemeMatch `json:"matches"`
}

// Matcher decides, per candidate theme, whether it is new, an update to an
// existing theme, or an evolution of one.
type Matcher struct {
	completer llm.Completer
	logger    *zap.Logger
}

func NewMatcher(completer llm.Completer, logger *zap.Logger) *Matcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Matcher{completer: completer, logger: logger}
}

// Match returns one decision per candidate, in candidate order. An empty
// registry means every candidate is new, decided without a collaborator
// call. Any collaborator failure degrades to all-create.
func (m *Matcher) Match(ctx context.Context, candidates []model.ExtractedTheme, existing []model.Theme) []model.ThemeMatch {
	if len(candidates) == 0 {
		return nil
	}

	// Terminal themes never receive new evidence
	var open []model.Theme
	for _, t := range existing {
		if !t.Status.Terminal() {
			open = append(open, t)
		}
	}
	if len(open) == 0 {
		return allCreate(candidates)
	}

	matches, err := m.tryLLMMatch(ctx, candidates, open)
	if err != nil {
		m.logger.Warn("theme matching failed, treating all candidates as new", zap.Error(err))
		return allCreate(candidates)
	}
	return matches
}

func (m *Matcher) tryLLMMatch(ctx context.Context, candidates []model.ExtractedTheme, open []model.Theme) ([]model.ThemeMatch, error) {
	if m.completer == nil {
		return nil, &llm.TransportError{Provider: "none", Err: context.Canceled}
	}

	var b strings.Builder
	b.WriteString("Existing themes:\n")
	for _, t := range open {
		fmt.Fprintf(&b, "- id=%s name=%q status=%s\n", t.ID, t.Name, t.Status)
	}
	b.WriteString("\nCandidates:\n")
	for _, c := range candidates {
		fmt.Fprintf(&b, "- name=%q description=%q\n", llm.Sanitize(c.Name, 200), llm.Sanitize(c.Description, 500))
	}

	resp, err := m.completer.Complete(ctx, llm.CompletionRequest{
		System:      matchSystemPrompt,
		User:        b.String(),
		MaxTokens:   1500,
		Temperature: 0,
		ExpectJSON:  true,
	})
	if err != nil {
		return nil, err
	}

	var parsed matchResponse
	if err := llm.DecodeJSON(resp.Text, &parsed); err != nil {
		return nil, err
	}

	return m.reconcileDecisions(candidates, open, parsed.Matches), nil
}

// reconcileDecisions guarantees exactly one well-formed decision per
// candidate regardless of what the collaborator returned
func (m *Matcher) reconcileDecisions(candidates []model.ExtractedTheme, open []model.Theme, raw []model.ThemeMatch) []model.ThemeMatch {
	validIDs := make(map[string]bool, len(open))
	for _, t := range open {
		validIDs[t.ID] = true
	}

	byName := make(map[string]model.ThemeMatch, len(raw))
	for _, r := range raw {
		byName[normalizeName(r.CandidateName)] = r
	}

	matches := make([]model.ThemeMatch, 0, len(candidates))
	for _, c := range candidates {
		decision, ok := byName[normalizeName(c.Name)]
		if !ok {
			matches = append(matches, model.ThemeMatch{CandidateName: c.Name, Action: model.ActionCreate})
			continue
		}

		decision.CandidateName = c.Name
		switch decision.Action {
		case model.ActionUpdate, model.ActionEvolve:
			if !validIDs[decision.ThemeID] {
				m.logger.Warn("match references unknown theme, demoting to create",
					zap.String("candidate", c.Name),
					zap.String("theme_id", decision.ThemeID))
				decision = model.ThemeMatch{CandidateName: c.Name, Action: model.ActionCreate}
			}
		case model.ActionCreate:
			decision.ThemeID = ""
		default:
			decision = model.ThemeMatch{CandidateName: c.Name, Action: model.ActionCreate}
		}
		matches = append(matches, decision)
	}
	return matches
}

func allCreate(candidates []model.ExtractedTheme) []model.ThemeMatch {
	matches := make([]model.ThemeMatch, 0, len(candidates))
	for _, c := range candidates {
		matches = append(matches, model.ThemeMatch{CandidateName: c.Name, Action: model.ActionCreate})
	}
	return matches
}

func normalizeName(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}
