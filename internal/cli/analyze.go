package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"conflux/internal/pipeline"
)

var (
	analyzeJSON    string
	analyzeMD      string
	analyzeTimeout time.Duration
)

// analyzeCmd represents the analyze command
var analyzeCmd = &cobra.Command{
	Use:   "analyze <content.json>",
	Short: "Classify and score a batch of content items",
	Long: `Analyze reads raw content items from a JSON file, triages each one
(priority, routing), scores the routed items against the 7-pillar
confluence rubric, and writes a report.

Example:
  conflux analyze inbox.json --json scores.json --md scores.md
  conflux analyze inbox.json --provider openai --model gpt-4o-mini`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().StringVar(&analyzeJSON, "json", "analysis.json", "output JSON path")
	analyzeCmd.Flags().StringVar(&analyzeMD, "md", "", "output Markdown path (optional)")
	analyzeCmd.Flags().DurationVar(&analyzeTimeout, "timeout", 5*time.Minute, "overall batch timeout")
	analyzeCmd.Flags().StringVar(&llmProvider, "provider", "", "collaborator provider (openai, anthropic, ollama)")
	analyzeCmd.Flags().StringVar(&llmModel, "model", "", "collaborator model name")
	analyzeCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable collaborator response cache")
	analyzeCmd.Flags().BoolVar(&noFooter, "no-footer", false, "disable footer in Markdown reports")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), analyzeTimeout)
	defer cancel()

	cfg, err := buildConfig()
	if err != nil {
		return err
	}

	items, err := pipeline.LoadContentItems(args[0])
	if err != nil {
		return err
	}
	if verbose {
		fmt.Fprintf(os.Stderr, "Loaded %d content items from %s\n", len(items), args[0])
	}

	p, err := pipeline.NewPipeline(cfg, buildLogger())
	if err != nil {
		return err
	}

	report := p.AnalyzeBatch(ctx, items)

	if analyzeJSON != "" {
		if err := p.Renderer().RenderJSON(report, analyzeJSON); err != nil {
			return err
		}
		if verbose {
			fmt.Fprintf(os.Stderr, "Wrote JSON: %s\n", analyzeJSON)
		}
	}
	if analyzeMD != "" {
		if err := p.Renderer().RenderAnalyzeMarkdown(report, analyzeMD); err != nil {
			return err
		}
		if verbose {
			fmt.Fprintf(os.Stderr, "Wrote Markdown: %s\n", analyzeMD)
		}
	}

	fmt.Printf("Analyzed %d items, %d scored\n", len(report.Items), len(report.Scores))
	return nil
}
