package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/sbozic/woosync/internal/category"
	"github.com/sbozic/woosync/internal/images"
	"github.com/sbozic/woosync/internal/logstore"
	"github.com/sbozic/woosync/internal/platform"
	"github.com/sbozic/woosync/internal/platform/models"
	"github.com/sbozic/woosync/internal/platform/storage"
	"github.com/sbozic/woosync/internal/settings"

	enginesync "github.com/sbozic/woosync/internal/sync"
)

const defaultListLimit = 100

// SessionReader lists persisted sync sessions.
type SessionReader interface {
	Session(ctx context.Context, id string) (models.SyncSession, error)
	Sessions(ctx context.Context, limit int) ([]models.SyncSession, error)
}

// Handler serves the operator API.
type Handler struct {
	engine     *enginesync.Engine
	categories *category.Engine
	images     *images.Engine
	sessions   SessionReader
	logs       logstore.Store
	settings   *settings.Settings
	logger     *logstore.Logger
}

// NewHandler returns a Handler over its collaborators.
func NewHandler(
	engine *enginesync.Engine,
	categories *category.Engine,
	attachments *images.Engine,
	sessions SessionReader,
	logs logstore.Store,
	config *settings.Settings,
	logger *logstore.Logger,
) *Handler {
	return &Handler{
		engine:     engine,
		categories: categories,
		images:     attachments,
		sessions:   sessions,
		logs:       logs,
		settings:   config,
		logger:     logger,
	}
}

// StartSync kicks off a manual sync run.
func (h *Handler) StartSync(c *gin.Context) {
	// Manual runs take the lease over, so the engine decides concurrency;
	// the request only delivers the trigger.
	if err := h.engine.Run(context.Background(), true); err != nil {
		if errors.Is(err, platform.ErrAlreadyRunning) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, h.engine.Status())
}

// SyncStatus reports the current run state.
func (h *Handler) SyncStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.engine.Status())
}

// CancelSync requests cancellation of the run in progress.
func (h *Handler) CancelSync(c *gin.Context) {
	if err := h.engine.Cancel(); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": models.StatusCancelled})
}

type testFeedRequest struct {
	URL string `json:"url" binding:"required"`
}

// TestFeed fetches and decodes a feed URL without touching the catalog.
func (h *Handler) TestFeed(c *gin.Context) {
	var req testFeedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	count, err := h.engine.TestFeed(c.Request.Context(), req.URL)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": count})
}

// ListSessions returns the most recent sync sessions.
func (h *Handler) ListSessions(c *gin.Context) {
	sessions, err := h.sessions.Sessions(c.Request.Context(), queryLimit(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, sessions)
}

// GetSession returns one sync session by id.
func (h *Handler) GetSession(c *gin.Context) {
	session, err := h.sessions.Session(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, storage.ErrSessionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, session)
}

// ListLogs returns log entries filtered by session or level.
func (h *Handler) ListLogs(c *gin.Context) {
	limit := queryLimit(c)

	var (
		entries []models.LogEntry
		err     error
	)
	switch {
	case c.Query("session") != "":
		entries, err = h.logs.EntriesBySession(c.Request.Context(), c.Query("session"), limit)
	case c.Query("level") != "":
		entries, err = h.logs.EntriesByLevel(c.Request.Context(), c.Query("level"), limit)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "either session or level query parameter is required"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, entries)
}

// ListSettings returns every setting value.
func (h *Handler) ListSettings(c *gin.Context) {
	c.JSON(http.StatusOK, h.settings.All())
}

type updateSettingRequest struct {
	Value string `json:"value"`
}

// UpdateSetting validates and persists one setting value.
func (h *Handler) UpdateSetting(c *gin.Context) {
	var req updateSettingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	key := c.Param("key")
	if err := h.settings.Set(c.Request.Context(), key, req.Value); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{key: h.settings.Get(key)})
}

// CategoryStats summarizes the category taxonomy.
func (h *Handler) CategoryStats(c *gin.Context) {
	stats, err := h.categories.ComputeStats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, stats)
}

// ListMappings returns the operator category mappings.
func (h *Handler) ListMappings(c *gin.Context) {
	mappings, err := h.categories.Mappings(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, mappings)
}

type addMappingRequest struct {
	From string `json:"from" binding:"required"`
	To   int64  `json:"to" binding:"required"`
}

// AddMapping stores one operator category mapping.
func (h *Handler) AddMapping(c *gin.Context) {
	var req addMappingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.categories.AddMapping(c.Request.Context(), req.From, req.To); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"from": req.From, "to": req.To})
}

// RemoveMapping deletes one operator category mapping.
func (h *Handler) RemoveMapping(c *gin.Context) {
	removed, err := h.categories.RemoveMapping(c.Request.Context(), c.Param("from"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if !removed {
		c.JSON(http.StatusNotFound, gin.H{"error": "mapping not found"})
		return
	}
	c.Status(http.StatusNoContent)
}

// CleanupCategories deletes empty categories; dry_run=true only reports.
func (h *Handler) CleanupCategories(c *gin.Context) {
	dryRun := c.Query("dry_run") == "true"

	deleted, err := h.categories.CleanupEmpty(c.Request.Context(), dryRun)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"dry_run": dryRun, "categories": deleted, "count": len(deleted)})
}

// CleanupImages deletes orphaned imported images; dry_run=true only
// reports.
func (h *Handler) CleanupImages(c *gin.Context) {
	dryRun := c.Query("dry_run") == "true"

	deleted, err := h.images.CleanupOrphans(c.Request.Context(), dryRun)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"dry_run": dryRun, "attachments": deleted, "count": len(deleted)})
}

// RestoreProduct rolls a product back to its pre-update backup.
func (h *Handler) RestoreProduct(c *gin.Context) {
	productID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product id"})
		return
	}

	if err := h.engine.RestoreProduct(c.Request.Context(), productID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"restored": productID})
}

func queryLimit(c *gin.Context) int {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultListLimit)))
	if err != nil || limit <= 0 {
		return defaultListLimit
	}
	return limit
}
