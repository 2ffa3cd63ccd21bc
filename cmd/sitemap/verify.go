package main

import (
	"fmt"
	"path/filepath"

	"github.com/romangod6/sitemap-builder/internal/crawler"
	"github.com/romangod6/sitemap-builder/internal/urlpath"
	"github.com/spf13/cobra"
)

func newVerifyCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify [sitemap-or-robots-url]",
		Short: "Fetch a published sitemap and check that every URL answers",
		Long: `verify downloads a sitemap (or a robots.txt and the sitemaps it lists)
and requests every <loc>. It exits non-zero when any URL is broken.

Without an argument the sitemap is expected at <domain>/<basename of --out>.`,
		Args: cobra.MaximumNArgs(1),
		RunE: a.runVerify,
	}
	cmd.Flags().String("user-agent", "sitemap-builder/1.0", "User-Agent header for requests")
	cmd.Flags().Int("parallelism", 2, "Concurrent requests")
	cmd.Flags().Duration("timeout", 0, "Per-request timeout (default 10s)")
	bindFlags(a.v, cmd.Flags().Lookup, map[string]string{
		"verifier.user_agent":  "user-agent",
		"verifier.parallelism": "parallelism",
		"verifier.timeout":     "timeout",
	})
	return cmd
}

func (a *app) runVerify(cmd *cobra.Command, args []string) error {
	var target string
	if len(args) == 1 {
		target = args[0]
	} else {
		domain, err := urlpath.NormalizeDomain(a.cfg.Site.Domain)
		if err != nil {
			return fmt.Errorf("pass a sitemap URL or a site domain: %w", err)
		}
		target = urlpath.Location(domain, filepath.Base(a.cfg.Site.Out))
	}

	v := crawler.NewVerifier(&crawler.VerifierConfig{
		UserAgent:   a.cfg.Verifier.UserAgent,
		Parallelism: a.cfg.Verifier.Parallelism,
		Timeout:     a.cfg.Verifier.Timeout,
	}, a.recorder, a.logger)

	a.logger.LogInfo("Verifying %s", target)
	report, err := v.Verify(cmd.Context(), target)
	a.flushMetrics()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Checked %d URLs: %d ok, %d broken\n", report.Total, report.OK, len(report.Broken))
	for _, b := range report.Broken {
		if b.StatusCode != 0 {
			fmt.Fprintf(out, "  %d %s\n", b.StatusCode, b.URL)
		} else {
			fmt.Fprintf(out, "  --- %s (%s)\n", b.URL, b.Error)
		}
	}

	if report.HasBroken() {
		return fmt.Errorf("%d broken URL(s)", len(report.Broken))
	}
	return nil
}
