package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/romangod6/sitemap-builder/internal/models"
	"github.com/romangod6/sitemap-builder/internal/storage"
	"github.com/spf13/cobra"
)

func newHistoryCmd(a *app) *cobra.Command {
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect recorded generation runs (requires --history)",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded runs, newest first",
		Args:  cobra.NoArgs,
		RunE:  a.runHistoryList,
	}
	listCmd.Flags().Int("limit", 20, "Maximum runs to show")

	diffCmd := &cobra.Command{
		Use:   "diff [old-id] [new-id]",
		Short: "Show URLs added, removed or re-prioritized between two runs",
		Long: `diff compares the entries of two runs. With no IDs it compares the two
most recent runs; with one ID it compares that run against the latest.`,
		Args: cobra.MaximumNArgs(2),
		RunE: a.runHistoryDiff,
	}

	deleteCmd := &cobra.Command{
		Use:   "delete <id>...",
		Short: "Delete recorded runs and their entries",
		Args:  cobra.MinimumNArgs(1),
		RunE:  a.runHistoryDelete,
	}

	historyCmd.AddCommand(listCmd, diffCmd, deleteCmd)
	return historyCmd
}

func (a *app) runHistoryList(cmd *cobra.Command, args []string) error {
	store, err := a.openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	limit, _ := cmd.Flags().GetInt("limit")
	runs, err := store.ListRuns(cmd.Context(), limit, 0)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs recorded")
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTARTED\tDOMAIN\tURLS\tOUTPUT")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", r.ID, r.StartedAt.Format(time.RFC3339), r.Domain, r.URLCount, r.OutPath)
	}
	return tw.Flush()
}

func (a *app) runHistoryDiff(cmd *cobra.Command, args []string) error {
	store, err := a.openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := cmd.Context()
	oldID, newID, err := resolveDiffRuns(ctx, store, args)
	if err != nil {
		return err
	}

	before, err := store.GetRunEntries(ctx, oldID)
	if err != nil {
		return fmt.Errorf("run %s: %w", oldID, err)
	}
	after, err := store.GetRunEntries(ctx, newID)
	if err != nil {
		return fmt.Errorf("run %s: %w", newID, err)
	}

	printDiff(cmd.OutOrStdout(), oldID, newID, models.DiffEntries(before, after))
	return nil
}

func (a *app) runHistoryDelete(cmd *cobra.Command, args []string) error {
	ids := make([]uuid.UUID, len(args))
	for i, arg := range args {
		id, err := uuid.Parse(arg)
		if err != nil {
			return fmt.Errorf("invalid run ID %q: %w", arg, err)
		}
		ids[i] = id
	}

	store, err := a.openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	for _, id := range ids {
		if err := store.DeleteRun(cmd.Context(), id); err != nil {
			if errors.Is(err, storage.ErrRunNotFound) {
				return fmt.Errorf("run %s not found", id)
			}
			return fmt.Errorf("failed to delete run %s: %w", id, err)
		}
		a.logger.LogDebug("Deleted run %s", id)
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted run %s\n", id)
	}
	return nil
}

func resolveDiffRuns(ctx context.Context, store storage.Store, args []string) (oldID, newID uuid.UUID, err error) {
	ids := make([]uuid.UUID, len(args))
	for i, arg := range args {
		if ids[i], err = uuid.Parse(arg); err != nil {
			return uuid.Nil, uuid.Nil, fmt.Errorf("invalid run ID %q: %w", arg, err)
		}
	}

	switch len(ids) {
	case 2:
		return ids[0], ids[1], nil
	case 1:
		latest, err := store.LatestRun(ctx)
		if err != nil {
			return uuid.Nil, uuid.Nil, err
		}
		return ids[0], latest.ID, nil
	}

	runs, err := store.ListRuns(ctx, 2, 0)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	if len(runs) < 2 {
		return uuid.Nil, uuid.Nil, fmt.Errorf("need two recorded runs to diff, have %d", len(runs))
	}
	return runs[1].ID, runs[0].ID, nil
}

func printDiff(w io.Writer, oldID, newID uuid.UUID, diff models.RunDiff) {
	fmt.Fprintf(w, "Comparing %s -> %s\n", oldID, newID)
	if diff.Empty() {
		fmt.Fprintln(w, "No changes")
		return
	}
	for _, loc := range diff.Added {
		fmt.Fprintf(w, "+ %s\n", loc)
	}
	for _, loc := range diff.Removed {
		fmt.Fprintf(w, "- %s\n", loc)
	}
	for _, c := range diff.Changed {
		fmt.Fprintf(w, "~ %s (%s %s -> %s %s)\n", c.Loc,
			c.Before.ChangeFreq, models.FormatPriority(c.Before.Priority),
			c.After.ChangeFreq, models.FormatPriority(c.After.Priority))
	}
}
