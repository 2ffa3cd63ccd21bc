package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/romangod6/sitemap-builder/internal/metrics"
	"github.com/romangod6/sitemap-builder/internal/models"
	"github.com/romangod6/sitemap-builder/internal/sitemap"
	"github.com/spf13/cobra"
)

func newGenerateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "generate [dir]",
		Short: "Write sitemap.xml (and optionally robots.txt) for a site directory",
		Example: `  sitemap generate --domain https://example.com ./public
  SITE_DOMAIN=https://example.com sitemap generate --out public/sitemap.xml -r --config overrides.json`,
		Args: cobra.MaximumNArgs(1),
		RunE: a.runGenerate,
	}
}

func (a *app) runGenerate(cmd *cobra.Command, args []string) error {
	opts, err := a.generateOptions(args)
	if err != nil {
		return err
	}

	res, err := a.generate(cmd.Context(), opts)
	a.flushMetrics()
	if err != nil {
		return err
	}
	printResult(cmd.OutOrStdout(), res)
	return nil
}

func (a *app) generateOptions(args []string) (sitemap.GenerateOptions, error) {
	opts, err := a.siteOptions(args)
	if err != nil {
		return sitemap.GenerateOptions{}, err
	}
	return sitemap.GenerateOptions{
		Options:     opts,
		OutPath:     a.cfg.Site.Out,
		WriteRobots: a.cfg.Site.WriteRobots,
	}, nil
}

// generate runs one build, records its metrics and, when history is
// configured, stores the run. A history failure is logged, not returned.
func (a *app) generate(ctx context.Context, opts sitemap.GenerateOptions) (*sitemap.Result, error) {
	run := models.NewRun(opts.Domain, opts.Root, opts.OutPath, opts.Exclude)
	if abs, err := filepath.Abs(opts.Root); err == nil {
		run.RootDir = abs
	}

	start := time.Now()
	res, err := sitemap.NewBuilder(a.fs, a.logger).Generate(ctx, opts)
	urls := 0
	if res != nil {
		urls = len(res.Entries)
	}
	a.recorder.ObserveGeneration(time.Since(start), urls, metrics.OutcomeOf(err))
	if err != nil {
		return nil, err
	}

	run.OutPath = res.SitemapPath
	run.Finish(res.Entries)
	a.recordRun(ctx, run)
	return res, nil
}

func (a *app) recordRun(ctx context.Context, run *models.Run) {
	if a.cfg.Database.URL == "" {
		return
	}

	store, err := a.openStore()
	if err != nil {
		a.logger.LogWarn("Run not recorded: %v", err)
		return
	}
	defer store.Close()

	if err := store.CreateRun(ctx, run); err != nil {
		a.logger.LogWarn("Run not recorded: %v", err)
		return
	}
	a.logger.LogInfo("Recorded run %s (%d URLs)", run.ID, run.URLCount)
}

func printResult(w io.Writer, res *sitemap.Result) {
	fmt.Fprintf(w, "Sitemap written to %s (%d URLs)\n", res.SitemapPath, len(res.Entries))
	if res.RobotsPath != "" {
		fmt.Fprintf(w, "robots.txt written to %s\n", res.RobotsPath)
	}
}
