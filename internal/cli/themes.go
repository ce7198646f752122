package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"conflux/internal/pipeline"
)

var themesTimeout time.Duration

// themesCmd represents the themes command group
var themesCmd = &cobra.Command{
	Use:   "themes",
	Short: "Manage the persisted theme registry",
}

var themesReconcileCmd = &cobra.Command{
	Use:   "reconcile <synthesis.md>",
	Short: "Reconcile a synthesis document against the theme registry",
	Long: `Reconcile extracts candidate themes from a synthesis document, matches
them against the tracked registry, and applies the resulting mutations:
new themes are created, matched themes gain evidence, evolved themes
retire their predecessor.

Example:
  conflux themes reconcile synthesis.md --store themes.json`,
	Args: cobra.ExactArgs(1),
	RunE: runThemesReconcile,
}

var themesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tracked themes",
	Args:  cobra.NoArgs,
	RunE:  runThemesList,
}

func init() {
	rootCmd.AddCommand(themesCmd)
	themesCmd.AddCommand(themesReconcileCmd)
	themesCmd.AddCommand(themesListCmd)

	themesCmd.PersistentFlags().StringVar(&themesPath, "store", "", "theme registry path (default from config)")
	themesReconcileCmd.Flags().DurationVar(&themesTimeout, "timeout", 2*time.Minute, "run timeout")
	themesReconcileCmd.Flags().StringVar(&llmProvider, "provider", "", "collaborator provider (openai, anthropic, ollama)")
	themesReconcileCmd.Flags().StringVar(&llmModel, "model", "", "collaborator model name")
	themesReconcileCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable collaborator response cache")
}

func runThemesReconcile(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), themesTimeout)
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

	report, err := p.ReconcileThemes(ctx, document)
	if err != nil {
		return fmt.Errorf("reconcile failed: %w", err)
	}

	fmt.Printf("Reconciled %d candidate themes\n", report.Candidates)
	for _, m := range report.Matches {
		if m.ThemeID != "" {
			fmt.Printf("  %-7s %s (%s)\n", m.Action, m.CandidateName, m.ThemeID)
		} else {
			fmt.Printf("  %-7s %s\n", m.Action, m.CandidateName)
		}
	}
	return nil
}

func runThemesList(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig()
	if err != nil {
		return err
	}

	p, err := pipeline.NewPipeline(cfg, buildLogger())
	if err != nil {
		return err
	}

	themes, err := p.ListThemes(context.Background())
	if err != nil {
		return err
	}
	if len(themes) == 0 {
		fmt.Println("No themes tracked yet")
		return nil
	}

	for _, t := range themes {
		fmt.Printf("%-9s %.2f  %s (%d evidence, first via %s)\n",
			t.Status, t.CurrentConviction, t.Name, t.EvidenceCount, t.FirstSource)
	}
	return nil
}
