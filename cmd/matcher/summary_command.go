package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/johnquangdev/lesson-attribution/internal/app"
)

func newSummaryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "summary NAME",
		Short: "Show a student's group lesson speaking summary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(app.Options{}, func(a *app.App) error {
				s, err := a.Lessons.StudentSummary(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if ctx.jsonOutput {
					return writeJSON(cmd, s)
				}

				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"Student", "Labels", "Lessons", "Segments", "Words", "Speaking (s)", "Singing lessons"},
					[][]string{{
						s.ResolvedName,
						strings.Join(s.SpeakerLabels, ", "),
						strconv.Itoa(s.TranscriptCount),
						strconv.Itoa(s.SegmentCount),
						strconv.Itoa(s.WordCount),
						strconv.FormatFloat(s.EstimatedSpeakingSeconds, 'f', 0, 64),
						strconv.Itoa(s.SingingTranscripts),
					}},
					[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight},
				))
				return nil
			})
		},
	}
}
