package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"conflux/internal/model"
)

// LoadContentItems reads a batch of raw content items from a JSON file.
// Both a bare array and an {"items": [...]} wrapper are accepted, and items
// without a source are rejected up front.
func LoadContentItems(path string) ([]model.ContentItem, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read content file: %w", err)
	}

	var items []model.ContentItem
	if err := json.Unmarshal(data, &items); err != nil {
		var wrapped struct {
			Items []model.ContentItem `json:"items"`
		}
		if werr := json.Unmarshal(data, &wrapped); werr != nil {
			return nil, fmt.Errorf("parse content file %s: %w", path, err)
		}
		items = wrapped.Items
	}

	for i, item := range items {
		if strings.TrimSpace(string(item.Source)) == "" {
			return nil, fmt.Errorf("item %d in %s has no source", i, path)
		}
	}
	return items, nil
}

// LoadScores reads a batch of rubric scores, either a bare array or the
// "scores" field of an analyze report written by this tool
func LoadScores(path string) ([]model.RubricScore, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scores file: %w", err)
	}

	var scores []model.RubricScore
	if err := json.Unmarshal(data, &scores); err != nil {
		var report AnalyzeReport
		if werr := json.Unmarshal(data, &report); werr != nil || len(report.Scores) == 0 {
			return nil, fmt.Errorf("parse scores file %s: %w", path, err)
		}
		scores = report.Scores
	}
	return scores, nil
}

// LoadDocument reads a synthesis document as text
func LoadDocument(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read document: %w", err)
	}
	if strings.TrimSpace(string(data)) == "" {
		return "", fmt.Errorf("document %s is empty", path)
	}
	return string(data), nil
}
