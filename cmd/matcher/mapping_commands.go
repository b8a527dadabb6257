package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/johnquangdev/lesson-attribution/internal/app"
	"github.com/johnquangdev/lesson-attribution/internal/domain/entities"
	"github.com/johnquangdev/lesson-attribution/internal/usecase/review"
)

func newMappingsCommand(ctx *commandContext) *cobra.Command {
	var (
		status string
		limit  int
		offset int
	)

	cmd := &cobra.Command{
		Use:   "mappings",
		Short: "List name mappings, most frequent first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(app.Options{}, func(a *app.App) error {
				items, total, err := a.Review.List(cmd.Context(), entities.MappingStatus(status), limit, offset)
				if err != nil {
					return err
				}
				if ctx.jsonOutput {
					return writeJSON(cmd, items)
				}
				printMappings(cmd.OutOrStdout(), items, total)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&status, "status", string(entities.MappingStatusPending), "pending | auto_matched | approved | rejected (empty for all)")
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum rows")
	cmd.Flags().IntVar(&offset, "offset", 0, "Rows to skip")
	return cmd
}

func printMappings(out io.Writer, items []*entities.NameMapping, total int64) {
	if len(items) == 0 {
		fmt.Fprintln(out, "No mappings")
		return
	}

	rows := make([][]string, len(items))
	for i, m := range items {
		rows[i] = []string{
			m.OriginalName,
			string(m.Status),
			orDash(m.ResolvedName),
			orDash(m.CRMMatch),
			strconv.Itoa(m.Confidence),
			strconv.Itoa(m.TranscriptCount),
		}
	}
	fmt.Fprintln(out, renderTable(
		[]string{"Name", "Status", "Resolved", "Suggestion", "Score", "Transcripts"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight},
	))
	fmt.Fprintf(out, "Showing %d of %d\n", len(items), total)
}

func newApproveCommand(ctx *commandContext) *cobra.Command {
	var (
		as         string
		original   bool
		suggestion bool
	)

	cmd := &cobra.Command{
		Use:   "approve NAME",
		Short: "Approve a pending mapping",
		Long:  "Approve a pending mapping using the CRM suggestion, the label itself, or a typed name.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := approveInput(args[0], as, original, ctx.reviewer())
			if err != nil {
				return err
			}
			return ctx.withApp(app.Options{}, func(a *app.App) error {
				m, err := a.Review.Approve(cmd.Context(), in)
				if err != nil {
					return err
				}
				return printMapping(cmd, ctx, m)
			})
		},
	}

	cmd.Flags().StringVar(&as, "as", "", "Resolve to this name")
	cmd.Flags().BoolVar(&original, "original", false, "Resolve to the label itself")
	cmd.Flags().BoolVar(&suggestion, "suggestion", false, "Accept the CRM suggestion")
	cmd.MarkFlagsMutuallyExclusive("as", "original", "suggestion")
	return cmd
}

// approveInput turns flags into an approval. --suggestion is the default.
func approveInput(name, as string, original bool, actor string) (review.ApproveInput, error) {
	in := review.ApproveInput{OriginalName: name, Actor: actor}
	switch {
	case as != "":
		in.Source = review.SourceCustom
		in.ResolvedName = as
	case original:
		in.Source = review.SourceOriginal
	default:
		in.Source = review.SourceSuggestion
	}
	if in.OriginalName == "" {
		return in, errors.New("mapping name is required")
	}
	return in, nil
}

func newRejectCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reject NAME",
		Short: "Reject a pending mapping as not a student",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(app.Options{}, func(a *app.App) error {
				m, err := a.Review.Reject(cmd.Context(), args[0], ctx.reviewer())
				if err != nil {
					return err
				}
				return printMapping(cmd, ctx, m)
			})
		},
	}
}

func newUndoCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "undo",
		Short: "Undo the most recent mapping action",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(app.Options{}, func(a *app.App) error {
				m, entry, err := a.Review.Undo(cmd.Context(), ctx.reviewer())
				if err != nil {
					return err
				}
				if ctx.jsonOutput {
					return writeJSON(cmd, map[string]any{"mapping": m, "undone": entry})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Undid %s on %s by %s\n", entry.Action, m.OriginalName, entry.Actor)
				return printMapping(cmd, ctx, m)
			})
		},
	}
}

func printMapping(cmd *cobra.Command, ctx *commandContext, m *entities.NameMapping) error {
	if ctx.jsonOutput {
		return writeJSON(cmd, m)
	}
	printMappings(cmd.OutOrStdout(), []*entities.NameMapping{m}, 1)
	return nil
}
