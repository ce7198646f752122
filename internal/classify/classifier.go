package classify

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"conflux/internal/llm"
	"conflux/internal/model"
	"conflux/internal/util"
)

const classifySystemPrompt = `You are a triage assistant for finance/markets content.
` + llm.UntrustedPreamble + `
Given one content item, respond ONLY with JSON:
{
  "information_density": "high" | "medium" | "low",
  "actionable": true | false,
  "archive_only": true | false
}
"information_density" measures how much decision-relevant market information the text carries.
"actionable" means the text contains a concrete, tradeable view.
"archive_only" means the item is housekeeping or chatter worth storing but not analyzing.`

// collaboratorSignal is the structured triage response from the LLM
type collaboratorSignal struct {
	InformationDensity string `json:"information_density"`
	Actionable         bool   `json:"actionable"`
	ArchiveOnly        bool   `json:"archive_only"`
}

// Classifier assigns a priority tier and a downstream routing list to one
// raw content item. Deterministic pattern rules take precedence; the
// collaborator only supplies the density/actionability signal. Classify
// never returns an error: collaborator failures degrade to a rule-based
// fallback with fixed low confidence.
type Classifier struct {
	completer llm.Completer
	config    model.ClassifyConfig
	maxInput  int
	logger    *zap.Logger
}

// NewClassifier creates a classifier. A nil completer forces the
// deterministic fallback path on every call.
func NewClassifier(completer llm.Completer, config model.ClassifyConfig, maxInput int, logger *zap.Logger) *Classifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxInput <= 0 {
		maxInput = 12000
	}
	return &Classifier{
		completer: completer,
		config:    config,
		maxInput:  maxInput,
		logger:    logger,
	}
}

// Classify triages one content item
func (c *Classifier) Classify(ctx context.Context, item model.ContentItem) model.Classification {
	priority, rule := c.rulePriority(item)

	signal, err := c.collaboratorSignal(ctx, item)
	if err != nil {
		c.logger.Warn("classifier collaborator failed, using rule-based fallback",
			zap.String("source", string(item.Source)),
			zap.Error(err))
		return c.fallback(item, priority, rule)
	}

	density := model.DensityLevel(strings.ToLower(signal.InformationDensity))

	// Rule 4: no deterministic rule fired, so the collaborator signal decides
	if priority == "" {
		if density == model.DensityHigh || signal.Actionable {
			priority = model.PriorityMedium
			rule = "collaborator_signal"
		} else {
			priority = model.PriorityLow
			rule = "collaborator_signal"
		}
	}

	route := c.route(item, density, signal.ArchiveOnly)

	return model.Classification{
		Priority:    priority,
		Route:       route,
		Density:     density,
		Actionable:  signal.Actionable,
		ArchiveOnly: signal.ArchiveOnly,
		Confidence:  0.8,
		Rule:        rule,
	}
}

// rulePriority evaluates the deterministic precedence rules 1-3. Returns an
// empty priority when no rule fires (rule 4 falls to the collaborator signal).
func (c *Classifier) rulePriority(item model.ContentItem) (model.Priority, string) {
	text := strings.ToLower(item.Text)
	source := string(item.Source)

	// Rule 1: source-specific urgent keyword
	for _, kw := range c.config.UrgentKeywords[source] {
		if strings.Contains(text, kw) {
			return model.PriorityHigh, "urgent_keyword:" + kw
		}
	}

	// Rule 2: live-video link from a designated source
	if item.ContentType == model.ContentTypeVideo && item.URL != "" {
		lowerURL := strings.ToLower(item.URL)
		hostMatch := false
		for _, host := range c.config.LiveVideoHosts {
			if strings.Contains(lowerURL, host) {
				hostMatch = true
				break
			}
		}
		if hostMatch && containsString(c.config.LiveVideoSources, source) {
			for _, kw := range c.config.LiveVideoKeywords {
				if strings.Contains(lowerURL, kw) || strings.Contains(text, kw) {
					return model.PriorityHigh, "live_video"
				}
			}
		}
	}

	// Rule 3: medium keyword, or source floored at medium
	for _, kw := range c.config.MediumKeywords[source] {
		if strings.Contains(text, kw) {
			return model.PriorityMedium, "medium_keyword:" + kw
		}
	}
	if containsString(c.config.AlwaysMedium, source) {
		return model.PriorityMedium, "always_medium_source"
	}

	return "", ""
}

// route builds the downstream analyzer list for one item
func (c *Classifier) route(item model.ContentItem, density model.DensityLevel, archiveOnly bool) []string {
	route := baseRoute(item.ContentType)

	if item.ContentType == model.ContentTypeText {
		// Text content only reaches the scorer when density is at least medium
		if density == model.DensityLow {
			return route
		}
	}
	if archiveOnly {
		return route
	}
	return append(route, model.RouteScorer)
}

// baseRoute is the fixed content-type routing table
func baseRoute(ct model.ContentType) []string {
	switch ct {
	case model.ContentTypeVideo:
		return []string{model.RouteTranscript}
	case model.ContentTypePDF:
		return []string{model.RouteDocument}
	case model.ContentTypeImage:
		return []string{model.RouteChart}
	default:
		return []string{model.RouteText}
	}
}

// collaboratorSignal asks the LLM for the density/actionability signal
func (c *Classifier) collaboratorSignal(ctx context.Context, item model.ContentItem) (*collaboratorSignal, error) {
	if c.completer == nil {
		return nil, &llm.TransportError{Provider: "none", Err: context.Canceled}
	}

	text := util.VisibleText(item.Text)
	text = llm.Sanitize(text, c.maxInput)

	user := "Source: " + string(item.Source) + "\nContent type: " + string(item.ContentType) + "\n" +
		llm.WrapUntrusted(text)

	resp, err := c.completer.Complete(ctx, llm.CompletionRequest{
		System:      classifySystemPrompt,
		User:        user,
		MaxTokens:   200,
		Temperature: 0,
		ExpectJSON:  true,
	})
	if err != nil {
		return nil, err
	}

	var signal collaboratorSignal
	if err := llm.DecodeJSON(resp.Text, &signal); err != nil {
		return nil, err
	}

	switch strings.ToLower(signal.InformationDensity) {
	case "high", "medium", "low":
	default:
		return nil, &llm.SchemaError{Field: "information_density", Reason: "missing or not one of high/medium/low"}
	}

	return &signal, nil
}

// fallback is the fully deterministic path used when the collaborator is
// unavailable: routing keyed only on content type, confidence pinned low.
func (c *Classifier) fallback(item model.ContentItem, rulePriority model.Priority, rule string) model.Classification {
	priority := rulePriority
	if priority == "" {
		priority = model.PriorityLow
		rule = "fallback_default"
	}

	route := append(baseRoute(item.ContentType), model.RouteScorer)

	return model.Classification{
		Priority:   priority,
		Route:      route,
		Confidence: c.config.FallbackConfidence,
		Fallback:   true,
		Rule:       rule,
	}
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
