package main

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/romangod6/sitemap-builder/config"
	"github.com/romangod6/sitemap-builder/internal/metrics"
	"github.com/romangod6/sitemap-builder/internal/rules"
	"github.com/romangod6/sitemap-builder/internal/sitemap"
	"github.com/romangod6/sitemap-builder/internal/storage"
	"github.com/romangod6/sitemap-builder/internal/urlpath"
	"github.com/romangod6/sitemap-builder/internal/utils"
	"github.com/romangod6/sitemap-builder/internal/walker"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var errNoHistory = errors.New("run history is not configured: pass --history or set SITEMAP_DATABASE_URL")

// app carries the state shared by all commands of one invocation.
type app struct {
	fs       afero.Fs
	v        *viper.Viper
	cfg      *config.Config
	logger   *utils.Logger
	registry *prom.Registry
	recorder metrics.Recorder
}

func newApp(fsys afero.Fs) *app {
	return &app{
		fs:       fsys,
		v:        viper.New(),
		logger:   utils.NewNopLogger(),
		recorder: metrics.NoopRecorder{},
	}
}

func (a *app) close() {
	a.logger.Close()
}

func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "sitemap [dir]",
		Short: "Generate sitemap.xml and robots.txt for a static HTML site",
		Long: `sitemap walks a directory of static HTML files and writes a sitemap.xml
following the sitemaps.org protocol, with optional robots.txt.

Running it without a subcommand is the same as "sitemap generate".`,
		Args:              cobra.MaximumNArgs(1),
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
		RunE:              a.runGenerate,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringP("domain", "d", "", "Site domain, e.g. https://example.com (or set SITE_DOMAIN)")
	flags.String("dir", ".", "Site root directory")
	flags.String("out", "sitemap.xml", "Output sitemap path")
	flags.BoolP("write-robots", "r", false, "Also write robots.txt next to the sitemap")
	flags.String("config", "", "JSON file with per-path changefreq/priority overrides")
	flags.StringSlice("exclude", walker.DefaultExclude, "Directory names to skip")
	flags.Bool("respect-noindex", false, "Parse pages, drop those marked noindex and record titles")
	flags.String("history", "", "Run history DSN (SQLite path or postgres:// URL)")
	flags.BoolP("verbose", "v", false, "Enable verbose logging")
	flags.String("log-file", "", "Also write JSON logs to this file")
	flags.String("config-file", "", "YAML settings file (default: sitemap.yaml in . or ./config)")
	flags.String("metrics-textfile", "", "Write Prometheus metrics to this file after each run")

	bindFlags(a.v, flags.Lookup, map[string]string{
		"site.domain":          "domain",
		"site.dir":             "dir",
		"site.out":             "out",
		"site.write_robots":    "write-robots",
		"site.overrides":       "config",
		"site.exclude":         "exclude",
		"site.respect_noindex": "respect-noindex",
		"database.url":         "history",
		"log.verbose":          "verbose",
		"log.file":             "log-file",
		"config_file":          "config-file",
		"metrics.textfile":     "metrics-textfile",
	})

	rootCmd.AddCommand(newGenerateCmd(a))
	rootCmd.AddCommand(newServeCmd(a))
	rootCmd.AddCommand(newWatchCmd(a))
	rootCmd.AddCommand(newVerifyCmd(a))
	rootCmd.AddCommand(newInspectCmd(a))
	rootCmd.AddCommand(newHistoryCmd(a))

	return rootCmd
}

func (a *app) setup(cmd *cobra.Command, args []string) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}

	cfg, err := config.LoadConfig(a.v)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	a.cfg = cfg

	logger, err := utils.NewLogger(utils.LoggerOptions{
		Verbose: cfg.Log.Verbose,
		File:    cfg.Log.File,
		Out:     cmd.ErrOrStderr(),
	})
	if err != nil {
		return err
	}
	a.logger = logger

	a.registry = prom.NewRegistry()
	a.recorder = metrics.NewPrometheusRecorder(a.registry)
	return nil
}

// flushMetrics writes the registry to --metrics-textfile, if set. Failures
// are logged so they never mask the command's own result.
func (a *app) flushMetrics() {
	if a.cfg == nil || a.registry == nil || a.cfg.Metrics.Textfile == "" {
		return
	}
	if err := metrics.WriteTextfile(a.cfg.Metrics.Textfile, a.registry); err != nil {
		a.logger.LogWarn("Failed to write metrics: %v", err)
		return
	}
	a.logger.LogDebug("Metrics written to %s", a.cfg.Metrics.Textfile)
}

// siteOptions resolves the build options shared by generate, serve and watch.
// A positional directory wins over --dir.
func (a *app) siteOptions(args []string) (sitemap.Options, error) {
	if strings.TrimSpace(a.cfg.Site.Domain) == "" {
		return sitemap.Options{}, errors.New("a site domain is required: pass --domain or set SITE_DOMAIN")
	}
	domain, err := urlpath.NormalizeDomain(a.cfg.Site.Domain)
	if err != nil {
		return sitemap.Options{}, err
	}

	dir := a.cfg.Site.Dir
	if len(args) == 1 {
		dir = args[0]
	}

	return sitemap.Options{
		Domain:       domain,
		Root:         dir,
		Exclude:      a.cfg.GetExclude(),
		Overrides:    a.loadOverrides(),
		InspectPages: a.cfg.Site.RespectNoindex,
	}, nil
}

// loadOverrides never fails: a missing or broken file only produces warnings.
func (a *app) loadOverrides() rules.Overrides {
	path := a.cfg.Site.Overrides
	if path == "" {
		return nil
	}

	overrides, warnings, err := rules.LoadOverrides(a.fs, path)
	if err != nil {
		a.logger.LogWarn("Ignoring override config: %v", err)
		return nil
	}
	for _, w := range warnings {
		a.logger.LogWarn("Override config %s: %s", path, w)
	}
	a.logger.LogDebug("Loaded %d overrides from %s", len(overrides), path)
	return overrides
}

func (a *app) openStore() (storage.Store, error) {
	if a.cfg.Database.URL == "" {
		return nil, errNoHistory
	}

	store, err := storage.NewStore(a.cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open history store: %w", err)
	}
	if err := store.Initialize(); err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to initialize history store: %w", err)
	}
	return store, nil
}

type lookupFunc func(name string) *pflag.Flag

func bindFlags(v *viper.Viper, lookup lookupFunc, keys map[string]string) {
	for key, name := range keys {
		if err := v.BindPFlag(key, lookup(name)); err != nil {
			panic(fmt.Sprintf("bind flag %s: %v", name, err))
		}
	}
}
