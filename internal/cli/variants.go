package cli

import (
	"github.com/spf13/cobra"

	"github.com/okian/artype/internal/domain/scoring"
)

type variantsOutput struct {
	Default    string             `json:"default"`
	Thresholds scoring.Thresholds `json:"thresholds"`
	Variants   []scoring.Variant  `json:"variants"`
}

func newVariantsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "variants",
		Short: "List configured scoring variants",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			engine, err := newEngine(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd, variantsOutput{
				Default:    engine.DefaultVariant(),
				Thresholds: engine.Thresholds(),
				Variants:   engine.Variants(),
			})
		},
	}
}
