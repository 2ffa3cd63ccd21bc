package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/romangod6/sitemap-builder/internal/metrics"
	"github.com/romangod6/sitemap-builder/internal/sitemap"
	"github.com/romangod6/sitemap-builder/internal/storage"
	"github.com/romangod6/sitemap-builder/internal/utils"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// Config wires the preview server to a site tree.
type Config struct {
	Port        int
	Site        sitemap.Options
	SitemapName string // basename advertised in robots.txt
	SiteFS      afero.Fs
	Store       storage.Store // optional run history
	Recorder    metrics.Recorder
	Registry    *prom.Registry // served on /metrics when set
	Logger      *utils.Logger
}

type Server struct {
	router *gin.Engine
	port   int
	server *http.Server
	logger *utils.Logger
}

func NewServer(cfg Config, builder SiteBuilder) *Server {
	if cfg.Logger == nil {
		cfg.Logger = utils.NewNopLogger()
	}

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(cfg.Logger))

	// Setup CORS
	router.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "HEAD", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}))

	handler := NewHandler(builder, cfg)

	router.GET("/sitemap.xml", handler.Sitemap)
	router.GET("/robots.txt", handler.Robots)
	if cfg.Registry != nil {
		router.GET("/metrics", gin.WrapH(metrics.HTTPHandler(cfg.Registry)))
	}

	api := router.Group("/api")
	{
		api.GET("/health", handler.Health)
		api.GET("/urls", handler.ListURLs)

		runs := api.Group("/runs")
		{
			runs.GET("", handler.ListRuns)
			runs.GET("/:id", handler.GetRun)
			runs.GET("/:id/entries", handler.GetRunEntries)
			runs.GET("/:id/diff/:other", handler.DiffRuns)
		}
	}

	if cfg.SiteFS != nil {
		router.NoRoute(staticFiles(cfg.SiteFS, cfg.Site.Root))
	}

	return &Server{
		router: router,
		port:   cfg.Port,
		logger: cfg.Logger,
	}
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	s.server = s.newHTTPServer()

	s.logger.LogInfo("Preview server listening on :%d", s.port)
	return s.server.ListenAndServe()
}

// newHTTPServer routes net/http's own error lines through the logger.
func (s *Server) newHTTPServer() *http.Server {
	return &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
		ErrorLog:     zap.NewStdLog(s.logger.Desugar()),
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func requestLogger(logger *utils.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.LogDebug("%s %s %d %s", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}

// staticFiles serves the site tree for any unmatched GET, hiding dotfiles.
func staticFiles(fsys afero.Fs, root string) gin.HandlerFunc {
	files := http.FileServer(afero.NewHttpFs(afero.NewReadOnlyFs(fsys)).Dir(root))
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
			c.JSON(http.StatusMethodNotAllowed, ErrorResponse{Error: "Method not allowed"})
			return
		}
		for _, seg := range strings.Split(c.Request.URL.Path, "/") {
			if strings.HasPrefix(seg, ".") {
				c.JSON(http.StatusNotFound, ErrorResponse{Error: "Not found"})
				return
			}
		}
		files.ServeHTTP(c.Writer, c.Request)
	}
}
