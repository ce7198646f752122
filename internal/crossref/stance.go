package crossref

import (
	"regexp"
	"sort"
	"strings"

	"conflux/internal/model"
)

// tickerPattern matches cashtag-style symbols ($NVDA, $ES) in thesis text
var tickerPattern = regexp.MustCompile(`\$([A-Z]{1,6})\b`)

// candidateTickers merges explicit ticker metadata with cashtags found in
// the thesis text, deduplicated and upper-cased
func candidateTickers(c model.ThemeCandidate) []string {
	seen := make(map[string]bool)
	var tickers []string

	add := func(t string) {
		t = strings.ToUpper(strings.TrimSpace(t))
		if t == "" || seen[t] {
			return
		}
		seen[t] = true
		tickers = append(tickers, t)
	}

	for _, t := range c.Tickers {
		add(t)
	}
	for _, m := range tickerPattern.FindAllStringSubmatch(c.Thesis+" "+c.VariantView, -1) {
		add(m[1])
	}
	return tickers
}

// classifyStance labels a thesis bullish/bearish/unknown from fixed keyword
// lists applied to the variant view text
func classifyStance(variantView string, bullish, bearish []string) model.Stance {
	text := strings.ToLower(variantView)

	for _, kw := range bullish {
		if strings.Contains(text, kw) {
			return model.StanceBullish
		}
	}
	for _, kw := range bearish {
		if strings.Contains(text, kw) {
			return model.StanceBearish
		}
	}
	return model.StanceUnknown
}

// detectContradictions groups theses by mentioned instrument and reports any
// ticker carrying at least one bullish and one bearish view
func detectContradictions(candidates []model.ThemeCandidate, bullish, bearish []string) []model.Contradiction {
	type stances struct {
		bullishSources []string
		bearishSources []string
	}
	byTicker := make(map[string]*stances)

	for _, c := range candidates {
		stance := classifyStance(c.VariantView, bullish, bearish)
		if stance == model.StanceUnknown {
			continue
		}
		for _, ticker := range candidateTickers(c) {
			s := byTicker[ticker]
			if s == nil {
				s = &stances{}
				byTicker[ticker] = s
			}
			switch stance {
			case model.StanceBullish:
				s.bullishSources = appendUnique(s.bullishSources, string(c.Source))
			case model.StanceBearish:
				s.bearishSources = appendUnique(s.bearishSources, string(c.Source))
			}
		}
	}

	var contradictions []model.Contradiction
	for ticker, s := range byTicker {
		if len(s.bullishSources) > 0 && len(s.bearishSources) > 0 {
			contradictions = append(contradictions, model.Contradiction{
				Ticker:         ticker,
				BullishSources: s.bullishSources,
				BearishSources: s.bearishSources,
			})
		}
	}

	sort.Slice(contradictions, func(i, j int) bool {
		return contradictions[i].Ticker < contradictions[j].Ticker
	})
	return contradictions
}

func appendUnique(list []string, s string) []string {
	for _, v := range list {
		if v == s {
			return list
		}
	}
	return append(list, s)
}
