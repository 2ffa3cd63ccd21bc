package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/romangod6/sitemap-builder/internal/watch"
	"github.com/spf13/cobra"
)

func newWatchCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch [dir]",
		Short: "Regenerate the sitemap whenever an HTML page changes",
		Args:  cobra.MaximumNArgs(1),
		RunE:  a.runWatch,
	}
	cmd.Flags().Duration("debounce", watch.DefaultDebounce, "Quiet period before regenerating")
	bindFlags(a.v, cmd.Flags().Lookup, map[string]string{"watch.debounce": "debounce"})
	return cmd
}

func (a *app) runWatch(cmd *cobra.Command, args []string) error {
	opts, err := a.generateOptions(args)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	regenerate := func(ctx context.Context) error {
		// Override edits are picked up on every run.
		opts.Overrides = a.loadOverrides()
		res, err := a.generate(ctx, opts)
		a.flushMetrics()
		if err != nil {
			return err
		}
		printResult(cmd.OutOrStdout(), res)
		return nil
	}

	if err := regenerate(ctx); err != nil {
		return err
	}

	w, err := watch.New(watch.Options{
		Root:     opts.Root,
		Exclude:  opts.Exclude,
		Debounce: a.cfg.Watch.Debounce,
		OnChange: regenerate,
		Logger:   a.logger,
	})
	if err != nil {
		return err
	}

	a.logger.LogInfo("Watching %s for changes", opts.Root)
	return w.Run(ctx)
}
