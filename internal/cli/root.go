// Package cli implements artypectl, an offline front end to the scoring engine.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	service "github.com/okian/artype/internal/app"
	"github.com/okian/artype/internal/config"
	"github.com/okian/artype/internal/domain/scoring"
)

// NewRootCommand returns the artypectl command tree writing results to out.
func NewRootCommand(out io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:   "artypectl",
		Short: "Score art-personality quiz submissions offline",
		Long: `artypectl runs quiz submissions through the same scoring engine as the
artype service, using the configuration from ARTYPE_CONFIG and ARTYPE_* variables.`,
		SilenceUsage: true,
	}
	root.SetOut(out)
	root.AddCommand(newScoreCommand(), newVariantsCommand())
	return root
}

// Execute runs the command tree with args.
func Execute(ctx context.Context, out io.Writer, args []string) error {
	root := NewRootCommand(out)
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

// newEngine builds an engine from the loaded configuration.
func newEngine(ctx context.Context) (*scoring.Engine, error) {
	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, err
	}
	registry, err := service.BuildRegistry(cfg.DefaultVariant, cfg.Maximums)
	if err != nil {
		return nil, err
	}
	return scoring.NewEngine(
		scoring.WithRegistry(registry),
		scoring.WithThresholds(scoring.Thresholds{High: cfg.HighConfidenceThreshold, Medium: cfg.MediumConfidenceThreshold}),
	)
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}
