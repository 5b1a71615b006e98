package cli

import (
	"github.com/spf13/cobra"
)

func newScoreCommand() *cobra.Command {
	var (
		file    string
		variant string
	)
	cmd := &cobra.Command{
		Use:   "score --file answers.yaml",
		Short: "Score one submission and print the result as JSON",
		Long: `Reads a submission from a JSON or YAML file ("-" reads YAML or JSON from stdin):

  variant: balanced
  scores: {L: 8, S: 2, A: 9, R: 4, E: 3, M: 10, F: 6, C: 6}
  responses:
    - question_id: q7
      weights: {C: 2, F: 1}

--variant overrides the variant named in the file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			sub, err := readSubmission(cmd.InOrStdin(), file)
			if err != nil {
				return err
			}
			if variant != "" {
				sub.Variant = variant
			}
			engine, err := newEngine(ctx)
			if err != nil {
				return err
			}
			res, err := engine.Score(ctx, sub)
			if err != nil {
				return err
			}
			return printJSON(cmd, res)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "submission file (.json, .yaml, .yml or - for stdin)")
	cmd.Flags().StringVar(&variant, "variant", "", "scoring variant (default from configuration)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
