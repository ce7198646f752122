package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"conflux/internal/pipeline"
)

var (
	qualityJSON    string
	qualityMD      string
	qualityTimeout time.Duration
)

// qualityCmd represents the quality command
var qualityCmd = &cobra.Command{
	Use:   "quality <synthesis.md>",
	Short: "Grade a synthesis document for structural completeness",
	Long: `Quality grades a synthesis document against 7 fixed criteria
(cross-source synthesis, actionability, evidence citation, contradiction
handling, risk framing, structure, timeliness), each 0-3, weighted to a
0-100 score and a letter grade.

Example:
  conflux quality synthesis.md --md grade.md`,
	Args: cobra.ExactArgs(1),
	RunE: runQuality,
}

func init() {
	rootCmd.AddCommand(qualityCmd)

	qualityCmd.Flags().StringVar(&qualityJSON, "json", "", "output JSON path (optional)")
	qualityCmd.Flags().StringVar(&qualityMD, "md", "", "output Markdown path (optional)")
	qualityCmd.Flags().DurationVar(&qualityTimeout, "timeout", time.Minute, "run timeout")
	qualityCmd.Flags().StringVar(&llmProvider, "provider", "", "collaborator provider (openai, anthropic, ollama)")
	qualityCmd.Flags().StringVar(&llmModel, "model", "", "collaborator model name")
	qualityCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable collaborator response cache")
	qualityCmd.Flags().BoolVar(&noFooter, "no-footer", false, "disable footer in Markdown reports")
}

func runQuality(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), qualityTimeout)
	defer cancel()

	cfg, err := buildConfig()
	if err != nil {
		return err
	}

	document, err := pipeline.LoadDocument(args[0])
	if err != nil {
		return err
	}

	p, err := pipeline.NewPipeline(cfg, buildLogger())
	if err != nil {
		return err
	}

	report := p.EvaluateQuality(ctx, document)

	if qualityJSON != "" {
		if err := p.Renderer().RenderJSON(report, qualityJSON); err != nil {
			return err
		}
	}
	if qualityMD != "" {
		if err := p.Renderer().RenderQualityMarkdown(report, qualityMD); err != nil {
			return err
		}
	}

	fmt.Printf("Quality: %d/100 (%s)\n", report.OverallScore, report.Grade)
	for _, f := range report.Flags {
		fmt.Printf("  FLAG %s: %s\n", f.Criterion, f.Detail)
	}
	return nil
}
