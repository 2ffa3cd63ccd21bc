package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/romangod6/sitemap-builder/internal/api"
	"github.com/romangod6/sitemap-builder/internal/sitemap"
	"github.com/romangod6/sitemap-builder/internal/storage"
	"github.com/spf13/cobra"
)

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve [dir]",
		Short: "Serve the site with a live sitemap.xml, robots.txt, JSON API and /metrics",
		Args:  cobra.MaximumNArgs(1),
		RunE:  a.runServe,
	}
	cmd.Flags().IntP("port", "p", 8080, "Port to listen on")
	bindFlags(a.v, cmd.Flags().Lookup, map[string]string{"server.port": "port"})
	return cmd
}

func (a *app) runServe(cmd *cobra.Command, args []string) error {
	opts, err := a.siteOptions(args)
	if err != nil {
		return err
	}

	// Initialize storage
	var store storage.Store
	if a.cfg.Database.URL != "" {
		s, err := a.openStore()
		if err != nil {
			return err
		}
		defer s.Close()
		store = s
	}

	if !a.cfg.Log.Verbose {
		gin.SetMode(gin.ReleaseMode)
	}

	server := api.NewServer(api.Config{
		Port:        a.cfg.Server.Port,
		Site:        opts,
		SitemapName: filepath.Base(a.cfg.Site.Out),
		SiteFS:      a.fs,
		Store:       store,
		Recorder:    a.recorder,
		Registry:    a.registry,
		Logger:      a.logger,
	}, sitemap.NewBuilder(a.fs, a.logger))

	// Start the API server
	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	fmt.Fprintf(cmd.OutOrStdout(), "Serving %s for %s on http://localhost:%d\n", opts.Root, opts.Domain, a.cfg.Server.Port)
	return a.waitForShutdown(cmd.Context(), server, errCh)
}

func (a *app) waitForShutdown(ctx context.Context, server *api.Server, errCh <-chan error) error {
	// Handle system signals for shutdown
	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		return fmt.Errorf("failed to start API server: %w", err)
	case <-sigCtx.Done():
	}
	a.logger.LogInfo("Shutting down...")

	// Graceful server shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("error shutting down server: %w", err)
	}
	a.logger.LogInfo("Server shut down gracefully")
	return nil
}
