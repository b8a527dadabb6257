package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/johnquangdev/lesson-attribution/internal/app"
	"github.com/johnquangdev/lesson-attribution/internal/usecase/batch"
	"github.com/johnquangdev/lesson-attribution/internal/usecase/matching"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Attribute every stored transcript and match pending names against the CRM",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := app.Options{InMemory: dryRun, WithRunner: true}
			return ctx.withApp(opts, func(a *app.App) error {
				report, err := a.Runner.Run(cmd.Context())
				if report != nil {
					if ctx.jsonOutput {
						if jerr := writeJSON(cmd, report); jerr != nil {
							return jerr
						}
					} else {
						printRunReport(cmd.OutOrStdout(), report, dryRun)
					}
				}
				return err
			})
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Use in-memory storage; nothing is persisted")
	return cmd
}

func printRunReport(out io.Writer, r *batch.RunReport, dryRun bool) {
	if dryRun {
		fmt.Fprintln(out, "Dry run: no mappings were persisted")
	}
	fmt.Fprintf(out, "Run:            %s\n", r.RunID)
	fmt.Fprintf(out, "Transcripts:    %d\n", r.Transcripts)
	fmt.Fprintf(out, "Attributed:     %d\n", r.Attributed)
	fmt.Fprintf(out, "No attribution: %d\n", r.NoAttribution)
	fmt.Fprintf(out, "Group lessons:  %d\n", r.GroupLessons)
	fmt.Fprintf(out, "New names seen: %d\n", r.NewObservations)
	fmt.Fprintf(out, "CRM candidates: %d\n", r.Candidates)

	for _, f := range r.Failed {
		fmt.Fprintf(out, "Failed: %s (%s)\n", f.TranscriptID, f.Error)
	}

	if r.Match == nil {
		return
	}
	fmt.Fprintf(out, "Matched: %d auto, %d suggested, %d unmatched, %d unchanged, %d skipped\n",
		r.Match.AutoMatched, r.Match.Suggested, r.Match.Unmatched, r.Match.Unchanged, r.Match.Skipped)

	rows := make([][]string, 0, len(r.Match.Decisions))
	for _, d := range r.Match.Decisions {
		if !d.Changed {
			continue
		}
		rows = append(rows, []string{d.OriginalName, decisionCandidate(d), strconv.Itoa(d.Score), string(d.Rule), string(d.Outcome)})
	}
	if len(rows) == 0 {
		return
	}
	fmt.Fprintln(out, renderTable(
		[]string{"Name", "Candidate", "Score", "Rule", "Outcome"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
	))
}

func decisionCandidate(d matching.Decision) string {
	if d.Candidate == "" {
		return "-"
	}
	return d.Candidate
}
