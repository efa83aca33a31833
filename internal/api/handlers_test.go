package api_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/sbozic/woosync/internal/api"
	"github.com/sbozic/woosync/internal/category"
	"github.com/sbozic/woosync/internal/images"
	"github.com/sbozic/woosync/internal/logstore"
	"github.com/sbozic/woosync/internal/platform/models"
	"github.com/sbozic/woosync/internal/platform/models/modelstesting"
	"github.com/sbozic/woosync/internal/platform/storage"
	"github.com/sbozic/woosync/internal/settings"
	"github.com/sbozic/woosync/internal/state"
	"github.com/sbozic/woosync/internal/wootesting"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	enginesync "github.com/sbozic/woosync/internal/sync"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubFeed struct {
	items []models.FeedItem
}

func (f *stubFeed) FetchFeed(_ context.Context, _ string) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader("")), nil
}

func (f *stubFeed) Decode(_ context.Context, _ io.Reader) ([]models.FeedItem, error) {
	return f.items, nil
}

type fakeSessions struct {
	sessions []models.SyncSession
}

func (f *fakeSessions) Session(_ context.Context, id string) (models.SyncSession, error) {
	for _, session := range f.sessions {
		if session.ID == id {
			return session, nil
		}
	}
	return models.SyncSession{}, storage.ErrSessionNotFound
}

func (f *fakeSessions) Sessions(_ context.Context, limit int) ([]models.SyncSession, error) {
	if limit > len(f.sessions) {
		limit = len(f.sessions)
	}
	return f.sessions[:limit], nil
}

type fakeLogs struct {
	entries []models.LogEntry
}

func (f *fakeLogs) InsertEntry(_ context.Context, entry models.LogEntry) error {
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeLogs) EntriesBySession(_ context.Context, sessionID string, _ int) ([]models.LogEntry, error) {
	var out []models.LogEntry
	for _, entry := range f.entries {
		if entry.SessionID == sessionID {
			out = append(out, entry)
		}
	}
	return out, nil
}

func (f *fakeLogs) EntriesByLevel(_ context.Context, level string, _ int) ([]models.LogEntry, error) {
	var out []models.LogEntry
	for _, entry := range f.entries {
		if entry.Level == level {
			out = append(out, entry)
		}
	}
	return out, nil
}

func (f *fakeLogs) Purge(_ context.Context, _ time.Time) (int64, error) {
	return 0, nil
}

type apiHarness struct {
	router   *gin.Engine
	shop     *wootesting.FakeShop
	sessions *fakeSessions
	logs     *fakeLogs
	config   *settings.Settings
}

type syncScheduler struct{}

func (syncScheduler) Schedule(_ time.Duration, fn func()) { fn() }

func newAPIHarness(t *testing.T, items ...models.FeedItem) *apiHarness {
	t.Helper()

	shop := wootesting.NewFakeShop()
	feed := &stubFeed{items: items}
	logger := logstore.NewLogger(zerolog.Nop(), nil)
	sessions := &fakeSessions{}
	logs := &fakeLogs{}

	config, err := settings.New(context.TODO(), settings.NewMemStore())
	require.NoError(t, err)
	require.NoError(t, config.Set(context.TODO(), settings.KeyFeedURL, "https://vendor.example.com/feed.xml"))

	categoryEngine := category.NewEngine(shop, shop, logger)
	imageEngine := images.NewEngine(shop, shop, &http.Client{}, logger)
	engine := enginesync.NewEngine(
		feed, feed, shop, categoryEngine, imageEngine, shop,
		config, state.NewStore(), state.NewRunGuard(state.RunTTL),
		nil, logger,
		enginesync.WithScheduler(syncScheduler{}),
	)

	router := api.SetupRouter(api.NewHandler(engine, categoryEngine, imageEngine, sessions, logs, config, logger))

	return &apiHarness{router: router, shop: shop, sessions: sessions, logs: logs, config: config}
}

func (h *apiHarness) request(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	recorder := httptest.NewRecorder()
	h.router.ServeHTTP(recorder, req)
	return recorder
}

func feedItem(sku string) models.FeedItem {
	return modelstesting.FakeFeedItem(func(it *models.FeedItem) {
		it.SKU = sku
		it.Images = [models.ImageSlots]string{}
		it.Categories = [models.CategorySlots]string{"Bicikli"}
	})
}

func TestUnitSyncStatusEndpoint(t *testing.T) {
	h := newAPIHarness(t)

	resp := h.request(t, http.MethodGet, "/api/v1/sync/status", "")

	require.Equal(t, http.StatusOK, resp.Code)
	var report enginesync.StatusReport
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &report))
	assert.Equal(t, models.StatusIdle, report.Status)
}

func TestUnitStartSyncEndpoint(t *testing.T) {
	h := newAPIHarness(t, feedItem("BIC-1"), feedItem("BIC-2"))

	resp := h.request(t, http.MethodPost, "/api/v1/sync", "")

	require.Equal(t, http.StatusAccepted, resp.Code)
	assert.Equal(t, 2, h.shop.ProductCount(), "the manual run should have processed the feed")
}

func TestUnitCancelSyncEndpointConflict(t *testing.T) {
	h := newAPIHarness(t)

	resp := h.request(t, http.MethodPost, "/api/v1/sync/cancel", "")

	assert.Equal(t, http.StatusConflict, resp.Code, "cancelling an idle engine is a conflict")
}

func TestUnitTestFeedEndpoint(t *testing.T) {
	h := newAPIHarness(t, feedItem("BIC-1"), feedItem("BIC-2"), feedItem("BIC-3"))

	resp := h.request(t, http.MethodPost, "/api/v1/sync/test", `{"url":"https://vendor.example.com/feed.xml"}`)

	require.Equal(t, http.StatusOK, resp.Code)
	assert.JSONEq(t, `{"items":3}`, resp.Body.String())
	assert.Zero(t, h.shop.ProductCount(), "testing must not touch the catalog")

	resp = h.request(t, http.MethodPost, "/api/v1/sync/test", `{}`)
	assert.Equal(t, http.StatusBadRequest, resp.Code, "the url field is required")
}

func TestUnitSettingsEndpoints(t *testing.T) {
	h := newAPIHarness(t)

	resp := h.request(t, http.MethodGet, "/api/v1/settings", "")
	require.Equal(t, http.StatusOK, resp.Code)
	var values map[string]string
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &values))
	assert.Equal(t, "100", values[settings.KeyBatchSize])

	resp = h.request(t, http.MethodPut, "/api/v1/settings/batch_size", `{"value":"250"}`)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, 250, h.config.GetInt(settings.KeyBatchSize))

	resp = h.request(t, http.MethodPut, "/api/v1/settings/batch_size", `{"value":"0"}`)
	assert.Equal(t, http.StatusBadRequest, resp.Code, "validation failures are client errors")
	assert.Equal(t, 250, h.config.GetInt(settings.KeyBatchSize), "a rejected value must not stick")
}

func TestUnitMappingEndpoints(t *testing.T) {
	h := newAPIHarness(t)

	resp := h.request(t, http.MethodPost, "/api/v1/categories/mappings", `{"from":"Brdski","to":42}`)
	require.Equal(t, http.StatusCreated, resp.Code)

	resp = h.request(t, http.MethodGet, "/api/v1/categories/mappings", "")
	require.Equal(t, http.StatusOK, resp.Code)
	var mappings map[string]models.CategoryMapping
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &mappings))
	require.Contains(t, mappings, "brdski", "the source key is normalized")
	assert.Equal(t, int64(42), mappings["brdski"].To)

	resp = h.request(t, http.MethodDelete, "/api/v1/categories/mappings/brdski", "")
	assert.Equal(t, http.StatusNoContent, resp.Code)

	resp = h.request(t, http.MethodDelete, "/api/v1/categories/mappings/brdski", "")
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestUnitSessionEndpoints(t *testing.T) {
	h := newAPIHarness(t)
	h.sessions.sessions = []models.SyncSession{
		{ID: "sync_1", Status: models.StatusCompleted},
		{ID: "sync_2", Status: models.StatusFailed},
	}

	resp := h.request(t, http.MethodGet, "/api/v1/sessions?limit=1", "")
	require.Equal(t, http.StatusOK, resp.Code)
	var sessions []models.SyncSession
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &sessions))
	assert.Len(t, sessions, 1)

	resp = h.request(t, http.MethodGet, "/api/v1/sessions/sync_2", "")
	require.Equal(t, http.StatusOK, resp.Code)

	resp = h.request(t, http.MethodGet, "/api/v1/sessions/nope", "")
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestUnitLogsEndpoint(t *testing.T) {
	h := newAPIHarness(t)
	h.logs.entries = []models.LogEntry{
		{Level: logstore.LevelError, Message: "can't process item", SessionID: "sync_1"},
		{Level: logstore.LevelInfo, Message: "sync started", SessionID: "sync_1"},
	}

	resp := h.request(t, http.MethodGet, "/api/v1/logs", "")
	assert.Equal(t, http.StatusBadRequest, resp.Code, "an unfiltered log listing is rejected")

	resp = h.request(t, http.MethodGet, "/api/v1/logs?level=error", "")
	require.Equal(t, http.StatusOK, resp.Code)
	var entries []models.LogEntry
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "can't process item", entries[0].Message)

	resp = h.request(t, http.MethodGet, "/api/v1/logs?session=sync_1", "")
	require.Equal(t, http.StatusOK, resp.Code)
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &entries))
	assert.Len(t, entries, 2)
}

func TestUnitCategoryCleanupEndpoint(t *testing.T) {
	h := newAPIHarness(t)
	h.shop.SeedCategory("Prazna", "prazna", 0)

	resp := h.request(t, http.MethodPost, "/api/v1/categories/cleanup?dry_run=true", "")
	require.Equal(t, http.StatusOK, resp.Code)
	var report struct {
		DryRun bool `json:"dry_run"`
		Count  int  `json:"count"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &report))
	assert.True(t, report.DryRun)
	assert.Equal(t, 1, report.Count)
	assert.Equal(t, 2, h.shop.CategoryCount(), "dry run must not delete")
}

func TestUnitRestoreProductEndpoint(t *testing.T) {
	h := newAPIHarness(t)

	resp := h.request(t, http.MethodPost, "/api/v1/products/999/restore", "")
	assert.Equal(t, http.StatusNotFound, resp.Code, "no backup means nothing to restore")

	resp = h.request(t, http.MethodPost, "/api/v1/products/abc/restore", "")
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}
