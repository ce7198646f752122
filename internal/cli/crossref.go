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
	crossrefJSON    string
	crossrefMD      string
	crossrefTimeout time.Duration
)

// crossrefCmd represents the crossref command
var crossrefCmd = &cobra.Command{
	Use:   "crossref <scores.json>",
	Short: "Cross-reference a batch of rubric scores",
	Long: `Crossref clusters scored theses across sources, updates per-theme
conviction, flags contradicting views on the same instrument, and
surfaces high-conviction ideas.

The input is either a bare JSON array of rubric scores or the report
written by 'conflux analyze'.

Example:
  conflux crossref scores.json --json crossref.json --md crossref.md`,
	Args: cobra.ExactArgs(1),
	RunE: runCrossref,
}

func init() {
	rootCmd.AddCommand(crossrefCmd)

	crossrefCmd.Flags().StringVar(&crossrefJSON, "json", "crossref.json", "output JSON path")
	crossrefCmd.Flags().StringVar(&crossrefMD, "md", "", "output Markdown path (optional)")
	crossrefCmd.Flags().DurationVar(&crossrefTimeout, "timeout", 2*time.Minute, "run timeout")
	crossrefCmd.Flags().StringVar(&llmProvider, "provider", "", "collaborator provider (openai, anthropic, ollama)")
	crossrefCmd.Flags().StringVar(&llmModel, "model", "", "collaborator model name")
	crossrefCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable collaborator response cache")
	crossrefCmd.Flags().BoolVar(&noFooter, "no-footer", false, "disable footer in Markdown reports")
}

func runCrossref(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), crossrefTimeout)
	defer cancel()

	cfg, err := buildConfig()
	if err != nil {
		return err
	}

	scores, err := pipeline.LoadScores(args[0])
	if err != nil {
		return err
	}
	if verbose {
		fmt.Fprintf(os.Stderr, "Loaded %d scores from %s\n", len(scores), args[0])
	}

	p, err := pipeline.NewPipeline(cfg, buildLogger())
	if err != nil {
		return err
	}

	report, err := p.CrossReference(ctx, scores)
	if err != nil {
		return fmt.Errorf("crossref failed: %w", err)
	}

	if crossrefJSON != "" {
		if err := p.Renderer().RenderJSON(report, crossrefJSON); err != nil {
			return err
		}
	}
	if crossrefMD != "" {
		if err := p.Renderer().RenderCrossRefMarkdown(report, crossrefMD); err != nil {
			return err
		}
	}

	p.Renderer().PrintCrossRefSummary(report)
	return nil
}
