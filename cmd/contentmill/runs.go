package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/chrimage/content-mill/internal/history"
)

func newRunsCommand(ctx *commandContext) *cobra.Command {
	runsCmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect generation history",
	}

	runsCmd.AddCommand(newRunsListCommand(ctx))
	runsCmd.AddCommand(newRunsShowCommand(ctx))
	runsCmd.AddCommand(newRunsStatusCommand(ctx))
	runsCmd.AddCommand(newRunsRemoveCommand(ctx))
	runsCmd.AddCommand(newRunsLogsCommand(ctx))

	return runsCmd
}

func newRunsListCommand(ctx *commandContext) *cobra.Command {
	var statusFlags []string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			statuses := make([]history.Status, 0, len(statusFlags))
			for _, value := range statusFlags {
				status, ok := history.ParseStatus(value)
				if !ok {
					return fmt.Errorf("unknown status %q", value)
				}
				statuses = append(statuses, status)
			}

			store, err := ctx.openHistory()
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.List(cmd.Context(), limit, statuses...)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded")
				return nil
			}
			rows := make([][]string, 0, len(runs))
			for _, run := range runs {
				rows = append(rows, []string{
					shortID(run.RunID),
					run.Kind,
					truncate(displayTitle(run), 48),
					statusText(out, string(run.Status)),
					strconv.Itoa(run.TurnCount),
					formatTime(run.CreatedAt),
				})
			}
			fmt.Fprint(out, renderTable(
				[]string{"ID", "Kind", "Title", "Status", "Lines", "Created"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().StringSliceVarP(&statusFlags, "status", "s", nil, "Filter by status (repeatable)")
	cmd.Flags().IntVarP(&limit, "limit", "l", 20, "Maximum runs to show (0 for all)")
	return cmd
}

func newRunsShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show details for one run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openHistory()
			if err != nil {
				return err
			}
			defer store.Close()

			run, err := store.FindByRunID(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if run == nil {
				return fmt.Errorf("run %s not found", args[0])
			}

			out := cmd.OutOrStdout()
			rows := [][]string{
				{"Run", run.RunID},
				{"Kind", run.Kind},
				{"Topic", run.Topic},
				{"Title", run.Title},
				{"Status", statusText(out, string(run.Status))},
				{"Stage", run.ProgressStage},
				{"Progress", run.ProgressMessage},
				{"Lines", strconv.Itoa(run.TurnCount)},
				{"Segments", strconv.Itoa(run.SegmentCount)},
				{"Skipped images", strconv.Itoa(run.SkippedImages)},
				{"Directory", run.OutputDir},
				{"Video", run.VideoPath},
				{"Outcome", run.Outcome},
				{"Error", run.ErrorMessage},
				{"Created", formatTime(run.CreatedAt)},
				{"Elapsed", run.Elapsed().Round(time.Second).String()},
			}
			if run.NotifiedAt != nil {
				rows = append(rows, []string{"Notified", formatTime(*run.NotifiedAt)})
			}
			filtered := rows[:0]
			for _, row := range rows {
				if strings.TrimSpace(row[1]) != "" {
					filtered = append(filtered, row)
				}
			}
			fmt.Fprint(out, renderTable([]string{"Field", "Value"}, filtered, []columnAlignment{alignLeft, alignLeft}))
			return nil
		},
	}
}

func newRunsStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Count runs by status",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openHistory()
			if err != nil {
				return err
			}
			defer store.Close()

			stats, err := store.Stats(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(stats) == 0 {
				fmt.Fprintln(out, "No runs recorded")
				return nil
			}
			statuses := make([]string, 0, len(stats))
			for status := range stats {
				statuses = append(statuses, string(status))
			}
			sort.Strings(statuses)
			rows := make([][]string, 0, len(statuses))
			for _, status := range statuses {
				rows = append(rows, []string{statusText(out, status), strconv.Itoa(stats[history.Status(status)])})
			}
			fmt.Fprint(out, renderTable([]string{"Status", "Count"}, rows, []columnAlignment{alignLeft, alignRight}))
			return nil
		},
	}
}

func newRunsRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <run-id>",
		Short: "Forget a run (its files are kept)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openHistory()
			if err != nil {
				return err
			}
			defer store.Close()

			run, err := store.FindByRunID(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if run == nil {
				return fmt.Errorf("run %s not found", args[0])
			}
			if !run.Status.Terminal() {
				return fmt.Errorf("run %s is still %s", shortID(run.RunID), run.Status)
			}
			if _, err := store.Remove(cmd.Context(), run.ID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed run %s; files remain in %s\n", shortID(run.RunID), run.OutputDir)
			return nil
		},
	}
}

func displayTitle(run *history.Run) string {
	if title := strings.TrimSpace(run.Title); title != "" {
		return title
	}
	return run.Topic
}

func truncate(value string, limit int) string {
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit-1]) + "…"
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format("2006-01-02 15:04")
}
