package themes

import (
	"context"
	"strings"

	"conflux/internal/llm"
	"conflux/internal/model"
)

const extractSystemPrompt = `You extract long-lived investment themes from a daily synthesis document.
` + llm.UntrustedPreamble + `
A theme is a named, trackable idea (e.g. "AI capex supercycle", "dollar
topping process"), not a one-off trade. For each theme report the name, a
one-sentence description, what each cited source says about it, any named
catalysts, and whether it reads as emerging (one source) or active (multiple
sources agreeing).

Respond ONLY with JSON:
{"themes": [{"name": "...", "description": "...", "source_views": {"source": "that source's view"}, "catalysts": ["..."], "status": "emerging|active"}]}`

// extractResponse is the collaborator's extraction output
type extractResponse struct {
	Themes []model.ExtractedTheme `json:"themes"`
}

// Extractor pulls candidate themes out of a synthesis document
type Extractor struct {
	completer llm.Completer
}

func NewExtractor(completer llm.Completer) *Extractor {
	return &Extractor{completer: completer}
}

// Extract converts one synthesis document into candidate themes. An empty
// document short-circuits to an empty list with no collaborator call.
func (e *Extractor) Extract(ctx context.Context, document string) ([]model.ExtractedTheme, error) {
	if strings.TrimSpace(document) == "" {
		return nil, nil
	}
	if e.completer == nil {
		return nil, &llm.TransportError{Provider: "none", Err: context.Canceled}
	}

	resp, err := e.completer.Complete(ctx, llm.CompletionRequest{
		System:      extractSystemPrompt,
		User:        "Synthesis document:\n" + llm.WrapUntrusted(llm.Sanitize(document, 24000)),
		MaxTokens:   2000,
		Temperature: 0,
		ExpectJSON:  true,
	})
	if err != nil {
		return nil, err
	}

	var parsed extractResponse
	if err := llm.DecodeJSON(resp.Text, &parsed); err != nil {
		return nil, err
	}

	// Candidates without a name cannot be matched or persisted
	var themes []model.ExtractedTheme
	for _, t := range parsed.Themes {
		if strings.TrimSpace(t.Name) == "" {
			continue
		}
		if t.Status != model.CandidateActive {
			t.Status = model.CandidateEmerging
		}
		themes = append(themes, t)
	}
	return themes, nil
}
