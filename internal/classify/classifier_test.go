package classify

import (
	"context"
	"errors"
	"testing"

	"conflux/internal/llm"
	"conflux/internal/model"
)

// stubCompleter returns a canned response or error
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

func defaultClassifier(completer llm.Completer) *Classifier {
	cfg := model.DefaultConfig().Classify
	return NewClassifier(completer, cfg, 0, nil)
}

func TestClassify_UrgentKeywordWinsOverCollaborator(t *testing.T) {
	stub := &stubCompleter{text: `{"information_density":"low","actionable":false,"archive_only":false}`}
	c := defaultClassifier(stub)

	result := c.Classify(context.Background(), model.ContentItem{
		Source:      model.SourceDiscord,
		ContentType: model.ContentTypeText,
		Text:        "URGENT: closing the whole book today",
	})

	if result.Priority != model.PriorityHigh {
		t.Errorf("priority = %s, want high", result.Priority)
	}
	if result.Fallback {
		t.Error("expected non-fallback classification")
	}
}

func TestClassify_LiveVideoFromDesignatedSource(t *testing.T) {
	stub := &stubCompleter{text: `{"information_density":"medium","actionable":false,"archive_only":false}`}
	c := defaultClassifier(stub)

	result := c.Classify(context.Background(), model.ContentItem{
		Source:      model.Source42Macro,
		ContentType: model.ContentTypeVideo,
		URL:         "https://youtube.com/watch?v=abc&live=1",
		Text:        "pre-market live stream",
	})

	if result.Priority != model.PriorityHigh {
		t.Errorf("priority = %s, want high for live video", result.Priority)
	}
}

func TestClassify_AlwaysMediumSource(t *testing.T) {
	stub := &stubCompleter{text: `{"information_density":"low","actionable":false,"archive_only":false}`}
	c := defaultClassifier(stub)

	result := c.Classify(context.Background(), model.ContentItem{
		Source:      model.Source42Macro,
		ContentType: model.ContentTypePDF,
		Text:        "weekly chartbook with nothing unusual",
	})

	if result.Priority != model.PriorityMedium {
		t.Errorf("priority = %s, want medium for always-medium source", result.Priority)
	}
}

func TestClassify_CollaboratorSignalDecidesRule4(t *testing.T) {
	stub := &stubCompleter{text: `{"information_density":"high","actionable":false,"archive_only":false}`}
	c := defaultClassifier(stub)

	result := c.Classify(context.Background(), model.ContentItem{
		Source:      model.SourceSubstack,
		ContentType: model.ContentTypeText,
		Text:        "long essay on demographics",
	})

	if result.Priority != model.PriorityMedium {
		t.Errorf("priority = %s, want medium for high density", result.Priority)
	}

	stub = &stubCompleter{text: `{"information_density":"low","actionable":false,"archive_only":false}`}
	c = defaultClassifier(stub)
	result = c.Classify(context.Background(), model.ContentItem{
		Source:      model.SourceYouTube,
		ContentType: model.ContentTypeText,
		Text:        "channel update, new merch",
	})

	if result.Priority != model.PriorityLow {
		t.Errorf("priority = %s, want low", result.Priority)
	}
}

func TestClassify_LowDensityTextSkipsScorer(t *testing.T) {
	stub := &stubCompleter{text: `{"information_density":"low","actionable":false,"archive_only":false}`}
	c := defaultClassifier(stub)

	result := c.Classify(context.Background(), model.ContentItem{
		Source:      model.SourceYouTube,
		ContentType: model.ContentTypeText,
		Text:        "nothing in particular",
	})

	for _, r := range result.Route {
		if r == model.RouteScorer {
			t.Error("low-density text should not route to the scorer")
		}
	}
}

func TestClassify_ArchiveOnlySkipsScorer(t *testing.T) {
	stub := &stubCompleter{text: `{"information_density":"high","actionable":true,"archive_only":true}`}
	c := defaultClassifier(stub)

	result := c.Classify(context.Background(), model.ContentItem{
		Source:      model.SourceDiscord,
		ContentType: model.ContentTypePDF,
		Text:        "archived meeting notes with setup details",
	})

	for _, r := range result.Route {
		if r == model.RouteScorer {
			t.Error("archive-only item should not route to the scorer")
		}
	}
	if !result.ArchiveOnly {
		t.Error("expected ArchiveOnly to carry through")
	}
}

func TestClassify_CollaboratorFailureNeverRaises(t *testing.T) {
	stub := &stubCompleter{err: &llm.TransportError{Provider: "openai", Err: errors.New("timeout")}}
	c := defaultClassifier(stub)

	result := c.Classify(context.Background(), model.ContentItem{
		Source:      model.SourceSubstack,
		ContentType: model.ContentTypeVideo,
		Text:        "some video",
	})

	if !result.Fallback {
		t.Error("expected fallback classification")
	}
	if result.Confidence != 0.3 {
		t.Errorf("fallback confidence = %v, want 0.3", result.Confidence)
	}
	if len(result.Route) == 0 || result.Route[0] != model.RouteTranscript {
		t.Errorf("fallback route = %v, want transcript extractor first", result.Route)
	}
	// Fallback still routes everything to the scorer
	found := false
	for _, r := range result.Route {
		if r == model.RouteScorer {
			found = true
		}
	}
	if !found {
		t.Error("fallback route should include the scorer")
	}
}

func TestClassify_MissingDensityFieldFallsBack(t *testing.T) {
	stub := &stubCompleter{text: `{"actionable":true}`}
	c := defaultClassifier(stub)

	result := c.Classify(context.Background(), model.ContentItem{
		Source:      model.SourceYouTube,
		ContentType: model.ContentTypeText,
		Text:        "transcript",
	})

	if !result.Fallback {
		t.Error("missing required field should trigger the deterministic fallback")
	}
}

func TestClassify_RuleBasedPrioritySurvivesFallback(t *testing.T) {
	stub := &stubCompleter{err: errors.New("boom")}
	c := defaultClassifier(stub)

	result := c.Classify(context.Background(), model.ContentItem{
		Source:      model.SourceDiscord,
		ContentType: model.ContentTypeText,
		Text:        "breaking: fed emergency meeting",
	})

	if result.Priority != model.PriorityHigh {
		t.Errorf("priority = %s, want high from keyword rule even on fallback", result.Priority)
	}
}
