package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/romangod6/sitemap-builder/internal/metrics"
	"github.com/romangod6/sitemap-builder/internal/models"
	"github.com/romangod6/sitemap-builder/internal/sitemap"
	"github.com/romangod6/sitemap-builder/internal/storage"
	"github.com/romangod6/sitemap-builder/internal/utils"
)

// SiteBuilder produces the current entries of the site. *sitemap.Builder implements it.
type SiteBuilder interface {
	Build(ctx context.Context, opts sitemap.Options) ([]models.URLEntry, error)
}

type Handler struct {
	builder     SiteBuilder
	site        sitemap.Options
	sitemapName string
	store       storage.Store
	recorder    metrics.Recorder
	logger      *utils.Logger
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type PaginationResponse struct {
	Data       interface{} `json:"data"`
	Page       int         `json:"page"`
	Limit      int         `json:"limit"`
	TotalCount int         `json:"total_count,omitempty"`
}

func NewHandler(builder SiteBuilder, cfg Config) *Handler {
	h := &Handler{
		builder:     builder,
		site:        cfg.Site,
		sitemapName: cfg.SitemapName,
		store:       cfg.Store,
		recorder:    cfg.Recorder,
		logger:      cfg.Logger,
	}
	if h.sitemapName == "" {
		h.sitemapName = "sitemap.xml"
	}
	if h.recorder == nil {
		h.recorder = metrics.NoopRecorder{}
	}
	if h.logger == nil {
		h.logger = utils.NewNopLogger()
	}
	return h
}

func (h *Handler) build(ctx context.Context) ([]models.URLEntry, error) {
	start := time.Now()
	entries, err := h.builder.Build(ctx, h.site)
	h.recorder.ObserveGeneration(time.Since(start), len(entries), metrics.OutcomeOf(err))
	if err != nil {
		h.logger.LogError("Failed to build sitemap for %s: %v", h.site.Root, err)
	}
	return entries, err
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"domain":  h.site.Domain,
		"history": h.store != nil,
	})
}

func (h *Handler) Sitemap(c *gin.Context) {
	entries, err := h.build(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to build sitemap"})
		return
	}

	doc, err := sitemap.Render(entries)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to render sitemap"})
		return
	}

	c.Data(http.StatusOK, "application/xml; charset=utf-8", doc)
}

func (h *Handler) Robots(c *gin.Context) {
	c.String(http.StatusOK, sitemap.RenderRobots(h.site.Domain, h.sitemapName))
}

func (h *Handler) ListURLs(c *gin.Context) {
	entries, err := h.build(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to build sitemap"})
		return
	}

	page, limit := getPaginationParams(c)
	offset := (page - 1) * limit

	data := []models.URLEntry{}
	if offset < len(entries) {
		data = entries[offset:min(offset+limit, len(entries))]
	}

	c.JSON(http.StatusOK, PaginationResponse{
		Data:       data,
		Page:       page,
		Limit:      limit,
		TotalCount: len(entries),
	})
}

func (h *Handler) ListRuns(c *gin.Context) {
	if !h.requireStore(c) {
		return
	}

	page, limit := getPaginationParams(c)
	offset := (page - 1) * limit

	runs, err := h.store.ListRuns(c.Request.Context(), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to fetch runs"})
		return
	}
	if runs == nil {
		runs = []*models.Run{}
	}

	c.JSON(http.StatusOK, PaginationResponse{
		Data:  runs,
		Page:  page,
		Limit: limit,
	})
}

func (h *Handler) GetRun(c *gin.Context) {
	if !h.requireStore(c) {
		return
	}

	id, ok := parseRunID(c, c.Param("id"))
	if !ok {
		return
	}

	run, err := h.store.GetRun(c.Request.Context(), id)
	if err != nil {
		h.storeError(c, err, "Failed to fetch run")
		return
	}

	c.JSON(http.StatusOK, run)
}

func (h *Handler) GetRunEntries(c *gin.Context) {
	if !h.requireStore(c) {
		return
	}

	id, ok := parseRunID(c, c.Param("id"))
	if !ok {
		return
	}

	entries, err := h.store.GetRunEntries(c.Request.Context(), id)
	if err != nil {
		h.storeError(c, err, "Failed to fetch run entries")
		return
	}

	c.JSON(http.StatusOK, entries)
}

// DiffRuns compares the entries of run :id (older) with run :other (newer).
func (h *Handler) DiffRuns(c *gin.Context) {
	if !h.requireStore(c) {
		return
	}

	oldID, ok := parseRunID(c, c.Param("id"))
	if !ok {
		return
	}
	newID, ok := parseRunID(c, c.Param("other"))
	if !ok {
		return
	}

	before, err := h.store.GetRunEntries(c.Request.Context(), oldID)
	if err != nil {
		h.storeError(c, err, "Failed to fetch run entries")
		return
	}
	after, err := h.store.GetRunEntries(c.Request.Context(), newID)
	if err != nil {
		h.storeError(c, err, "Failed to fetch run entries")
		return
	}

	c.JSON(http.StatusOK, models.DiffEntries(before, after))
}

func (h *Handler) requireStore(c *gin.Context) bool {
	if h.store == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "Run history is not configured"})
		return false
	}
	return true
}

func (h *Handler) storeError(c *gin.Context, err error, msg string) {
	if errors.Is(err, storage.ErrRunNotFound) {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "Run not found"})
		return
	}
	h.logger.LogError("%s: %v", msg, err)
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: msg})
}

func parseRunID(c *gin.Context, raw string) (uuid.UUID, bool) {
	id, err := uuid.Parse(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid run ID"})
		return uuid.Nil, false
	}
	return id, true
}

// maxPage keeps (page-1)*limit far from overflowing.
const maxPage = 100000

// Utility functions
func getPaginationParams(c *gin.Context) (page, limit int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "10"))

	if page < 1 {
		page = 1
	}
	if page > maxPage {
		page = maxPage
	}
	if limit < 1 || limit > 100 {
		limit = 10
	}

	return page, limit
}
