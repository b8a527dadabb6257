package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/johnquangdev/lesson-attribution/internal/usecase/matching"
	"github.com/johnquangdev/lesson-attribution/pkg/lexicon"
)

func newScoreCommand(ctx *commandContext) *cobra.Command {
	var (
		lexiconFile         string
		transliterationFile string
	)

	cmd := &cobra.Command{
		Use:   "score A B",
		Short: "Score two names with the matching cascade",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			lx, err := lexicon.Load(lexiconFile)
			if err != nil {
				return err
			}
			entries := lexicon.LoadTransliterationsOrEmpty(transliterationFile, zap.NewNop())
			scorer := matching.NewScorer(lx.DeviceTokens, matching.NewTransliterationTable(entries))

			result := scorer.Score(args[0], args[1])
			if ctx.jsonOutput {
				return writeJSON(cmd, result)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d %s\n", result.Score, result.Rule)
			return nil
		},
	}

	cmd.Flags().StringVar(&lexiconFile, "lexicon", os.Getenv("LEXICON_FILE"), "Lexicon YAML (embedded default when empty)")
	cmd.Flags().StringVar(&transliterationFile, "transliteration", os.Getenv("TRANSLITERATION_FILE"), "Transliteration YAML (embedded default when empty)")
	return cmd
}
