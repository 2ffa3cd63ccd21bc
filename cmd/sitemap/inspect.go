package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/romangod6/sitemap-builder/internal/crawler"
	"github.com/romangod6/sitemap-builder/internal/models"
	"github.com/romangod6/sitemap-builder/internal/sitemap"
	"github.com/spf13/cobra"
)

func newInspectCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect [dir]",
		Short: "Print every page with its sitemap metadata, title and robots directives",
		Long: `inspect builds the URL list without writing anything and parses each page's
<head>. Pages marked noindex and canonical links that disagree with the
generated location are flagged.`,
		Args: cobra.MaximumNArgs(1),
		RunE: a.runInspect,
	}
}

func (a *app) runInspect(cmd *cobra.Command, args []string) error {
	opts, err := a.siteOptions(args)
	if err != nil {
		return err
	}
	// Keep noindex pages so they can be reported.
	opts.InspectPages = false

	entries, err := sitemap.NewBuilder(a.fs, a.logger).Build(cmd.Context(), opts)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "LOC\tPRIORITY\tCHANGEFREQ\tTITLE\tNOTES")
	flagged := 0
	for _, e := range entries {
		title, notes := a.inspectEntry(e)
		if len(notes) > 0 {
			flagged++
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", e.Loc, models.FormatPriority(e.Priority), e.ChangeFreq, title, strings.Join(notes, "; "))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "\n%d pages, %d flagged\n", len(entries), flagged)
	return nil
}

func (a *app) inspectEntry(e models.URLEntry) (title string, notes []string) {
	f, err := a.fs.Open(e.SourceFile)
	if err != nil {
		return "", []string{"unreadable: " + err.Error()}
	}
	defer f.Close()

	meta, err := crawler.ParsePage(f)
	if err != nil {
		return "", []string{"unparsable: " + err.Error()}
	}
	if meta.NoIndex() {
		notes = append(notes, "noindex")
	}
	if meta.Canonical != "" && meta.Canonical != e.Loc {
		notes = append(notes, "canonical "+meta.Canonical)
	}
	return meta.Title, notes
}
