package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"conflux/internal/model"
)

// Renderer writes reports as JSON or Markdown
type Renderer struct {
	includeFooter bool
}

func NewRenderer(includeFooter bool) *Renderer {
	return &Renderer{includeFooter: includeFooter}
}

// RenderJSON writes any report as indented JSON
func (r *Renderer) RenderJSON(v any, path string) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

// RenderCrossRefMarkdown writes the cross-reference report as Markdown
func (r *Renderer) RenderCrossRefMarkdown(report *model.CrossRefReport, path string) error {
	var b strings.Builder

	b.WriteString("# Cross-Reference Report\n\n")
	fmt.Fprintf(&b, "Generated: %s\n\n", report.GeneratedAt.Format("2006-01-02 15:04 UTC"))
	fmt.Fprintf(&b, "Themes extracted: %d | clustered: %d | confluent: %d\n\n",
		report.TotalThemes, report.ClusteredThemesCount, len(report.ConfluentThemes))
	if report.ClusteringFallback {
		b.WriteString("> Clustering degraded to singletons this run; confluence may be understated.\n\n")
	}

	if len(report.HighConviction) > 0 {
		b.WriteString("## High-Conviction Ideas\n\n")
		b.WriteString("| Theme | Conviction | Bucket | Sources | Trend |\n")
		b.WriteString("|---|---|---|---|---|\n")
		for _, idea := range report.HighConviction {
			fmt.Fprintf(&b, "| %s | %.2f | %s | %s | %s |\n",
				idea.Theme, idea.Conviction, idea.Bucket,
				strings.Join(idea.Sources, ", "), idea.ConvictionTrend)
		}
		b.WriteString("\n")
	}

	if len(report.ConfluentThemes) > 0 {
		b.WriteString("## Confluent Themes\n\n")
		for _, cluster := range report.ConfluentThemes {
			fmt.Fprintf(&b, "### %s\n\n", cluster.RepresentativeTheme)
			fmt.Fprintf(&b, "- Sources: %d | avg core %.1f/10 | avg total %.1f/14\n",
				cluster.SourceCount, cluster.AvgCoreScore, cluster.AvgTotalScore)
			fmt.Fprintf(&b, "- Conviction: %.2f (prior %.2f), bucket %s, interval [%.2f, %.2f]\n\n",
				cluster.CurrentConviction, cluster.PriorConviction, cluster.ConvictionBucket,
				cluster.ConfidenceInterval[0], cluster.ConfidenceInterval[1])
			for _, member := range cluster.ThemesDetail {
				fmt.Fprintf(&b, "  - **%s**: %s\n", member.Source, member.Thesis)
			}
			b.WriteString("\n")
		}
	}

	if len(report.Contradictions) > 0 {
		b.WriteString("## Contradictions\n\n")
		for _, c := range report.Contradictions {
			fmt.Fprintf(&b, "- **%s**: bullish %s vs bearish %s\n",
				c.Ticker, strings.Join(c.BullishSources, "/"), strings.Join(c.BearishSources, "/"))
		}
		b.WriteString("\n")
	}

	r.footer(&b)
	return writeFile(path, b.String())
}

// RenderAnalyzeMarkdown writes the per-item analyze report as Markdown
func (r *Renderer) RenderAnalyzeMarkdown(report *AnalyzeReport, path string) error {
	var b strings.Builder

	b.WriteString("# Analysis Report\n\n")
	fmt.Fprintf(&b, "Generated: %s | items: %d | scored: %d\n\n",
		report.GeneratedAt.Format("2006-01-02 15:04 UTC"), len(report.Items), len(report.Scores))

	for _, item := range report.Items {
		fmt.Fprintf(&b, "## %s (%s)\n\n", item.ItemID, item.Source)
		fmt.Fprintf(&b, "- Priority: %s | route: %s\n",
			item.Classification.Priority, strings.Join(item.Classification.Route, " → "))
		if item.Classification.Fallback {
			fmt.Fprintf(&b, "- Triage fallback (rule: %s, confidence %.1f)\n",
				item.Classification.Rule, item.Classification.Confidence)
		}
		if item.ScoreError != "" {
			fmt.Fprintf(&b, "- Scoring failed: %s\n", item.ScoreError)
		}
		if s := item.Score; s != nil {
			fmt.Fprintf(&b, "- Score: core %d/10, total %d/14, confluence **%s**\n",
				s.CoreTotal, s.TotalScore, s.ConfluenceLevel)
			if s.PrimaryThesis != "" {
				fmt.Fprintf(&b, "- Thesis: %s\n", s.PrimaryThesis)
			}
		}
		b.WriteString("\n")
	}

	r.footer(&b)
	return writeFile(path, b.String())
}

// RenderQualityMarkdown writes a quality report as Markdown
func (r *Renderer) RenderQualityMarkdown(report *model.QualityReport, path string) error {
	var b strings.Builder

	b.WriteString("# Synthesis Quality\n\n")
	fmt.Fprintf(&b, "Overall: **%d/100 (%s)**\n\n", report.OverallScore, report.Grade)
	if report.Failed {
		b.WriteString("> Evaluation failed; scores are zeroed.\n\n")
	}

	b.WriteString("| Criterion | Score |\n|---|---|\n")
	for _, criterion := range model.QualityCriteria() {
		fmt.Fprintf(&b, "| %s | %d/3 |\n", criterion, report.CriterionScores[criterion])
	}
	b.WriteString("\n")

	if len(report.Flags) > 0 {
		b.WriteString("## Flags\n\n")
		for _, f := range report.Flags {
			fmt.Fprintf(&b, "- **%s** (%d): %s\n", f.Criterion, f.Score, f.Detail)
		}
		b.WriteString("\n")
	}

	r.footer(&b)
	return writeFile(path, b.String())
}

// PrintCrossRefSummary writes a one-screen summary to stdout
func (r *Renderer) PrintCrossRefSummary(report *model.CrossRefReport) {
	fmt.Printf("Themes: %d extracted, %d clustered, %d confluent\n",
		report.TotalThemes, report.ClusteredThemesCount, len(report.ConfluentThemes))
	for _, idea := range report.HighConviction {
		fmt.Printf("  HIGH %.2f (%s, %s) %s\n", idea.Conviction, idea.Bucket, idea.ConvictionTrend, idea.Theme)
	}
	for _, c := range report.Contradictions {
		fmt.Printf("  CONTRADICTION %s: %s vs %s\n",
			c.Ticker, strings.Join(c.BullishSources, "/"), strings.Join(c.BearishSources, "/"))
	}
}

func (r *Renderer) footer(b *strings.Builder) {
	if r.includeFooter {
		b.WriteString("---\nGenerated by conflux\n")
	}
}

func writeFile(path, content string) error {
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}
