// Package sync is the reconciliation engine: it pulls the vendor feed,
// walks it in batches and converges the catalog onto it, with idempotent
// re-runs via content hashing and resumable progress between scheduled
// invocations.
package sync

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sbozic/woosync/internal/category"
	"github.com/sbozic/woosync/internal/images"
	"github.com/sbozic/woosync/internal/logstore"
	"github.com/sbozic/woosync/internal/platform"
	"github.com/sbozic/woosync/internal/platform/models"
	"github.com/sbozic/woosync/internal/settings"
	"github.com/sbozic/woosync/internal/state"
	"github.com/sbozic/woosync/internal/util"
)

// ErrNotRunning is returned by Cancel when no run is in progress.
var ErrNotRunning = errors.New("no sync run in progress")

// FeedFetcher pulls the raw feed document.
type FeedFetcher interface {
	FetchFeed(ctx context.Context, url string) (io.ReadCloser, error)
}

// FeedDecoder decodes the feed document into items, in document order.
type FeedDecoder interface {
	Decode(ctx context.Context, feed io.Reader) ([]models.FeedItem, error)
}

// CategoryResolver resolves an item's category slots to catalog ids.
type CategoryResolver interface {
	Process(ctx context.Context, item models.FeedItem, cfg category.Config) ([]int64, error)
	ClearCache()
}

// ImageAttacher acquires and assigns an item's images to a product.
type ImageAttacher interface {
	Process(ctx context.Context, item models.FeedItem, productID int64, cfg images.Config) ([]int64, error)
	ClearCache()
}

// SessionStore persists sync session records.
type SessionStore interface {
	InsertSession(ctx context.Context, session models.SyncSession) error
	FinishSession(ctx context.Context, session models.SyncSession) error
}

// Notifier delivers run outcome notifications over whichever channels the
// run configuration enables.
type Notifier interface {
	SyncFinished(ctx context.Context, session models.SyncSession, cfg settings.RunConfig)
}

// Engine drives sync runs. One engine instance owns the run lifecycle of
// the whole process; concurrent Run calls are serialized by the run guard.
type Engine struct {
	fetcher    FeedFetcher
	decoder    FeedDecoder
	catalog    Catalog
	categories CategoryResolver
	images     ImageAttacher
	sessions   SessionStore
	settings   *settings.Settings
	state      *state.Store
	guard      *state.RunGuard
	notifier   Notifier
	scheduler  Scheduler
	logger     *logstore.Logger
	clock      func() time.Time

	randMu sync.Mutex
	rand   *rand.Rand

	mu  sync.Mutex
	run *runState
}

// runState is the in-memory context of one run, shared by all of its batch
// invocations. The configuration snapshot is taken once at run start.
type runState struct {
	session models.SyncSession
	cfg     settings.RunConfig
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the engine time source.
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) { e.clock = clock }
}

// WithScheduler overrides the batch continuation scheduler.
func WithScheduler(scheduler Scheduler) Option {
	return func(e *Engine) { e.scheduler = scheduler }
}

// WithRandSource overrides the test-mode outcome source.
func WithRandSource(source rand.Source) Option {
	return func(e *Engine) { e.rand = rand.New(source) }
}

// NewEngine returns a sync Engine over its collaborators.
func NewEngine(
	fetcher FeedFetcher,
	decoder FeedDecoder,
	catalog Catalog,
	categories CategoryResolver,
	attacher ImageAttacher,
	sessions SessionStore,
	config *settings.Settings,
	store *state.Store,
	guard *state.RunGuard,
	notifier Notifier,
	logger *logstore.Logger,
	options ...Option,
) *Engine {
	engine := &Engine{
		fetcher:    fetcher,
		decoder:    decoder,
		catalog:    catalog,
		categories: categories,
		images:     attacher,
		sessions:   sessions,
		settings:   config,
		state:      store,
		guard:      guard,
		notifier:   notifier,
		scheduler:  TimerScheduler{},
		logger:     logger,
		clock:      time.Now,
		rand:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, option := range options {
		option(engine)
	}
	return engine
}

// Run starts a new sync run and processes its first batch. Manual runs
// take the run lease over from a stuck holder; scheduled runs back off
// with ErrAlreadyRunning while another run holds it.
func (e *Engine) Run(ctx context.Context, manual bool) error {
	cfg := e.settings.Snapshot()
	if cfg.FeedURL == "" {
		return fmt.Errorf("feed URL is not configured")
	}

	session := models.SyncSession{
		ID:        e.newSessionID(),
		Status:    models.StatusRunning,
		Manual:    manual,
		StartedAt: e.clock().UTC(),
	}

	if manual {
		if previous := e.guard.Steal(session.ID); previous != "" {
			e.logger.Warning("manual sync taking over the run lease", map[string]any{"previous": previous})
		}
	} else if !e.guard.TryAcquire(session.ID) {
		return platform.ErrAlreadyRunning
	}

	e.mu.Lock()
	e.run = &runState{session: session, cfg: cfg}
	e.mu.Unlock()

	e.state.SetSessionID(session.ID)
	e.state.SetStatus(models.StatusRunning)
	e.state.ClearOffset()
	e.logger.SetSession(session.ID)

	if err := e.sessions.InsertSession(ctx, session); err != nil {
		e.logger.Error("can't persist sync session", map[string]any{"error": err.Error()})
	}

	e.prepareEnvironment(cfg)
	e.logger.Info("sync started", map[string]any{"manual": manual, "batch_size": cfg.BatchSize})

	e.runBatch(ctx, session.ID)
	return nil
}

// Cancel requests cancellation of the run in progress. The run observes
// it at the next item or batch boundary.
func (e *Engine) Cancel() error {
	if e.state.Status() != models.StatusRunning {
		return ErrNotRunning
	}

	e.state.SetStatus(models.StatusCancelled)
	e.logger.Info("sync cancellation requested", nil)
	return nil
}

// runBatch fetches the feed, processes one batch starting at the stored
// offset, then either schedules the next batch or finalizes the run.
func (e *Engine) runBatch(ctx context.Context, sessionID string) {
	run := e.currentRun(sessionID)
	if run == nil {
		return
	}
	cfg := run.cfg

	// A cancellation or takeover that landed while the continuation was
	// queued ends the run before the feed is fetched again.
	if e.state.Status() == models.StatusCancelled || e.state.SessionID() != run.session.ID {
		e.finishRun(ctx, run, models.StatusCancelled)
		return
	}

	if cfg.MaxExecutionTime > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.MaxExecutionTime)
		defer cancel()
	}

	items, err := e.loadFeed(ctx, cfg)
	if err != nil {
		e.failRun(ctx, run, fmt.Errorf("can't load feed: %w", err))
		return
	}

	offset := e.state.Offset()
	if offset >= len(items) && offset > 0 {
		// The feed shrank between invocations; everything left is done.
		e.finishRun(ctx, run, models.StatusCompleted)
		return
	}

	end := offset + cfg.BatchSize
	if end > len(items) {
		end = len(items)
	}

	run.session.Stats.TotalItems = len(items)
	e.logger.Info("batch started", map[string]any{"offset": offset, "size": end - offset, "total": len(items)})

	for _, item := range items[offset:end] {
		if e.state.Status() == models.StatusCancelled || e.state.SessionID() != run.session.ID {
			e.finishRun(ctx, run, models.StatusCancelled)
			return
		}
		if ctx.Err() != nil {
			e.failRun(ctx, run, ctx.Err())
			return
		}

		e.processItem(ctx, item, run)
	}

	e.state.SetOffset(end)
	e.trackProgress(run, end)

	if end >= len(items) {
		e.finishRun(ctx, run, models.StatusCompleted)
		return
	}

	if !e.guard.Renew(run.session.ID) {
		e.failRun(ctx, run, fmt.Errorf("run lease lost"))
		return
	}

	e.scheduler.Schedule(cfg.BatchDelay, func() {
		e.continueRun(run.session.ID)
	})
}

// continueRun is the scheduled entry point of every batch after the
// first. A changed session id means the run was cancelled or superseded
// while the continuation was queued; the continuation then abandons.
func (e *Engine) continueRun(sessionID string) {
	if e.state.SessionID() != sessionID {
		return
	}
	e.runBatch(context.Background(), sessionID)
}

func (e *Engine) currentRun(sessionID string) *runState {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.run == nil || e.run.session.ID != sessionID {
		return nil
	}
	return e.run
}

// loadFeed pulls and decodes the whole feed. Every batch re-reads the
// feed; the offset is a cursor into the decoded item sequence.
func (e *Engine) loadFeed(ctx context.Context, cfg settings.RunConfig) ([]models.FeedItem, error) {
	feed, err := e.fetcher.FetchFeed(ctx, cfg.FeedURL)
	if err != nil {
		return nil, err
	}
	defer feed.Close()

	return e.decoder.Decode(ctx, feed)
}

// processItem reconciles one feed item. Item-level failures are counted
// and logged; they never stop the batch. An item counts as processed only
// once it reconciles without an error.
func (e *Engine) processItem(ctx context.Context, item models.FeedItem, run *runState) {
	sku := strings.TrimSpace(item.SKU)
	if sku == "" {
		run.session.Stats.Skipped++
		e.logger.Warning("item without SKU skipped", map[string]any{"name": item.Name})
		return
	}

	if run.cfg.TestMode {
		e.simulateItem(sku, run)
		run.session.Stats.Processed++
		return
	}

	if err := e.reconcileItem(ctx, item, sku, run); err != nil {
		run.session.Stats.Errors++
		e.logger.Error("can't process item", map[string]any{"sku": sku, "error": err.Error()})
		return
	}
	run.session.Stats.Processed++
}

// simulateItem records a pseudo-random outcome without touching the
// catalog; test mode exercises the full pipeline shape only.
func (e *Engine) simulateItem(sku string, run *runState) {
	e.randMu.Lock()
	outcome := e.rand.Intn(10)
	e.randMu.Unlock()

	switch {
	case outcome < 4:
		run.session.Stats.Created++
	case outcome < 8:
		run.session.Stats.Updated++
	default:
		run.session.Stats.Skipped++
	}
	e.logger.Debug("test mode item simulated", map[string]any{"sku": sku})
}

func (e *Engine) reconcileItem(ctx context.Context, item models.FeedItem, sku string, run *runState) error {
	productID, err := e.findProduct(ctx, item, sku)
	if err != nil {
		return err
	}

	if productID != 0 {
		return e.updateProduct(ctx, item, productID, run)
	}
	return e.createProduct(ctx, item, sku, run)
}

// findProduct looks a feed item up by its raw SKU, then its sanitized
// SKU, then its EAN meta.
func (e *Engine) findProduct(ctx context.Context, item models.FeedItem, sku string) (int64, error) {
	id, err := e.catalog.FindBySKU(ctx, sku)
	if err != nil {
		return 0, fmt.Errorf("can't look up product by SKU: %w", err)
	}
	if id != 0 {
		return id, nil
	}

	if sanitized := sanitizeSKU(sku); sanitized != sku {
		if id, err = e.catalog.FindBySKU(ctx, sanitized); err != nil {
			return 0, fmt.Errorf("can't look up product by sanitized SKU: %w", err)
		}
		if id != 0 {
			return id, nil
		}
	}

	if ean := strings.TrimSpace(item.EAN); ean != "" {
		if id, err = e.catalog.FindByMeta(ctx, MetaEAN, ean); err != nil {
			return 0, fmt.Errorf("can't look up product by EAN: %w", err)
		}
	}
	return id, nil
}

func (e *Engine) updateProduct(ctx context.Context, item models.FeedItem, productID int64, run *runState) error {
	cfg := run.cfg
	hash := ContentHash(item, !cfg.SkipImagesUpdate)

	stored, err := e.catalog.Meta(ctx, productID, MetaContentHash)
	if err != nil {
		return fmt.Errorf("can't read content hash: %w", err)
	}
	if stored == hash && !cfg.ForceUpdateAll {
		run.session.Stats.Skipped++
		return nil
	}

	if !cfg.AutoUpdateExisting {
		run.session.Stats.Skipped++
		e.logger.Debug("existing product left untouched", map[string]any{"product_id": productID})
		return nil
	}

	if cfg.EnableBackup {
		backup, err := e.catalog.Snapshot(ctx, productID)
		if err != nil {
			e.logger.Warning("can't back up product before update", map[string]any{"product_id": productID, "error": err.Error()})
		} else {
			e.state.SetBackup(backup)
		}
	}

	product, err := e.buildProduct(ctx, item, hash, run)
	if err != nil {
		return err
	}

	if err := e.catalog.Update(ctx, productID, product); err != nil {
		return fmt.Errorf("can't update product: %w", err)
	}

	e.attachImages(ctx, item, productID, cfg)

	run.session.Stats.Updated++
	e.logger.Debug("product updated", map[string]any{"product_id": productID, "sku": product.SKU})
	return nil
}

func (e *Engine) createProduct(ctx context.Context, item models.FeedItem, sku string, run *runState) error {
	hash := ContentHash(item, !run.cfg.SkipImagesUpdate)

	product, err := e.buildProduct(ctx, item, hash, run)
	if err != nil {
		return err
	}
	product.SKU = sanitizeSKU(sku)

	productID, err := e.catalog.Create(ctx, product)
	if err != nil {
		return fmt.Errorf("can't create product: %w", err)
	}

	e.attachImages(ctx, item, productID, run.cfg)

	run.session.Stats.Created++
	e.logger.Debug("product created", map[string]any{"product_id": productID, "sku": product.SKU})
	return nil
}

// buildProduct maps a feed item to catalog product data, resolving its
// categories on the way.
func (e *Engine) buildProduct(ctx context.Context, item models.FeedItem, hash string, run *runState) (ProductData, error) {
	cfg := run.cfg

	categoryIDs, err := e.categories.Process(ctx, item, category.Config{
		CreateMissing:   cfg.CreateMissingCategories,
		FuzzyMatching:   cfg.FuzzyCategoryMatching,
		DefaultCategory: cfg.DefaultCategory,
	})
	if err != nil {
		return ProductData{}, fmt.Errorf("can't resolve categories: %w", err)
	}

	meta := map[string]string{
		MetaContentHash: hash,
		MetaLastSynced:  e.clock().UTC().Format(time.RFC3339),
	}
	if ean := strings.TrimSpace(item.EAN); ean != "" {
		meta[MetaEAN] = ean
	}
	if cfg.HandleVariants && strings.TrimSpace(item.VariantSKU) != "" {
		meta[MetaVariantSKU] = strings.TrimSpace(item.VariantSKU)
		meta[MetaVariantDefinition] = util.SanitizeText(item.VariantDefinition)
	}

	return ProductData{
		SKU:              sanitizeSKU(item.SKU),
		Name:             util.SanitizeText(item.Name),
		Description:      util.SanitizeText(item.Description),
		ShortDescription: shortDescription(item.Specification),
		RegularPrice:     selectPrice(item),
		StockQuantity:    int(util.ParseDimension(item.Stock)),
		Weight:           util.ParseDimension(item.Weight),
		Width:            util.ParseDimension(item.Width),
		Height:           util.ParseDimension(item.Height),
		Length:           util.ParseDimension(item.Length),
		CategoryIDs:      categoryIDs,
		Meta:             meta,
	}, nil
}

// attachImages runs the image engine for one product; image failures never
// fail the item. With image updates skipped, the engine still fills in
// products that have no images at all.
func (e *Engine) attachImages(ctx context.Context, item models.FeedItem, productID int64, cfg settings.RunConfig) {
	_, err := e.images.Process(ctx, item, productID, images.Config{
		SkipOnUpdate: cfg.SkipImagesUpdate,
		Timeout:      cfg.ImageTimeout,
		MaxBytes:     cfg.MaxImageSizeBytes,
		MinWidth:     cfg.MinImageWidth,
		MinHeight:    cfg.MinImageHeight,
	})
	if err != nil {
		e.logger.Warning("can't process product images", map[string]any{"product_id": productID, "error": err.Error()})
	}
}

func (e *Engine) trackProgress(run *runState, offset int) {
	usage := util.ReadMemoryUsage()
	if usage.Peak > run.session.PeakMemory {
		run.session.PeakMemory = usage.Peak
	}

	if !run.cfg.ProgressTracking {
		return
	}

	e.state.SetProgress(models.Progress{
		SessionID:   run.session.ID,
		Stats:       run.session.Stats,
		MemoryBytes: usage.Used,
		Offset:      offset,
		Timestamp:   e.clock().UTC(),
	})
}

func (e *Engine) failRun(ctx context.Context, run *runState, cause error) {
	run.session.Stats.Errors++
	e.logger.Critical("sync failed", map[string]any{"error": cause.Error()})
	e.finishRun(ctx, run, models.StatusFailed)
}

// finishRun closes the session on a terminal status, clears the run-scoped
// state and releases the lease. The final stats and the terminal status
// stay observable for pollers until their TTLs lapse.
func (e *Engine) finishRun(ctx context.Context, run *runState, status string) {
	finishedAt := e.clock().UTC()
	run.session.Status = status
	run.session.FinishedAt = &finishedAt

	if err := e.sessions.FinishSession(ctx, run.session); err != nil {
		e.logger.Error("can't persist session result", map[string]any{"error": err.Error()})
	}

	// A superseded run no longer owns the shared run state; it finalizes
	// its own session row but must not wipe the successor's session id,
	// status, stats or caches.
	owned := e.state.SessionID() == run.session.ID
	if owned {
		e.state.ClearRun()
		e.state.SetStats(run.session.Stats)
		e.state.SetStatus(status)
	}
	e.guard.Release(run.session.ID)

	e.mu.Lock()
	if e.run == run {
		e.run = nil
	}
	e.mu.Unlock()

	if owned {
		e.cleanup(run.cfg)
	}

	duration := finishedAt.Sub(run.session.StartedAt)
	e.logger.Info("sync finished", map[string]any{
		"status":   status,
		"duration": util.FormatDuration(duration),
		"stats":    run.session.Stats,
	})
	if owned {
		e.logger.SetSession("")
	}

	if e.notifier != nil {
		e.notifier.SyncFinished(ctx, run.session, run.cfg)
	}
}

// cleanup drops the per-run caches and temp files regardless of how the
// run ended.
func (e *Engine) cleanup(cfg settings.RunConfig) {
	e.categories.ClearCache()
	e.images.ClearCache()
	if cfg.CleanupTempFiles {
		purgeTempFiles()
	}
}

// prepareEnvironment applies the per-run resource configuration.
func (e *Engine) prepareEnvironment(cfg settings.RunConfig) {
	if cfg.MemoryLimitMB > 0 {
		debug.SetMemoryLimit(int64(cfg.MemoryLimitMB) << 20)
	}
	if cfg.CleanupTempFiles {
		purgeTempFiles()
	}
}

func purgeTempFiles() {
	stale, err := filepath.Glob(filepath.Join(os.TempDir(), "woosync-img-*"))
	if err != nil {
		return
	}
	for _, file := range stale {
		os.Remove(file)
	}
}

// StatusReport is the poller-facing view of the engine.
type StatusReport struct {
	Status    string            `json:"status"`
	SessionID string            `json:"session_id,omitempty"`
	Progress  *models.Progress  `json:"progress,omitempty"`
	Stats     *models.SyncStats `json:"stats,omitempty"`
}

// Status reports the current run state for polling.
func (e *Engine) Status() StatusReport {
	report := StatusReport{
		Status:    e.state.Status(),
		SessionID: e.state.SessionID(),
	}

	if progress, ok := e.state.Progress(); ok {
		report.Progress = &progress
	}
	if stats, ok := e.state.Stats(); ok {
		report.Stats = &stats
	}
	return report
}

// RestoreProduct rolls a product back to its pre-update backup.
func (e *Engine) RestoreProduct(ctx context.Context, productID int64) error {
	backup, ok := e.state.Backup(productID)
	if !ok {
		return fmt.Errorf("no backup for product %d", productID)
	}

	if err := e.catalog.Restore(ctx, backup); err != nil {
		return fmt.Errorf("can't restore product %d: %w", productID, err)
	}

	e.state.DeleteBackup(productID)
	e.logger.Info("product restored from backup", map[string]any{"product_id": productID})
	return nil
}

// TestFeed fetches and decodes a feed URL without touching the catalog;
// it reports the number of items found.
func (e *Engine) TestFeed(ctx context.Context, url string) (int, error) {
	feed, err := e.fetcher.FetchFeed(ctx, url)
	if err != nil {
		return 0, fmt.Errorf("can't fetch feed: %w", err)
	}
	defer feed.Close()

	items, err := e.decoder.Decode(ctx, feed)
	if err != nil {
		return 0, fmt.Errorf("can't decode feed: %w", err)
	}
	return len(items), nil
}

func (e *Engine) newSessionID() string {
	return fmt.Sprintf("sync_%s_%s", e.clock().UTC().Format("20060102_150405"), uuid.NewString()[:8])
}

// sanitizeSKU normalizes a SKU like any other feed text: entities
// decoded, whitespace collapsed, trimmed.
func sanitizeSKU(sku string) string {
	return util.SanitizeText(sku)
}

// selectPrice prefers the recommended price, falling back to the base
// price; items with no parsable price are listed at zero.
func selectPrice(item models.FeedItem) float64 {
	if recommended := util.ParsePrice(item.RecommendedPrice); recommended > 0 {
		return recommended
	}
	return util.ParsePrice(item.BasePrice)
}

// shortDescription renders the first three "key: value" pairs of the
// §-delimited specification field as one comma-joined line.
func shortDescription(specification string) string {
	var pairs []string
	for _, part := range strings.Split(specification, "§") {
		key, value, found := strings.Cut(part, ":")
		if !found {
			continue
		}
		key = util.SanitizeText(key)
		if key == "" {
			continue
		}
		pairs = append(pairs, key+": "+util.SanitizeText(value))
		if len(pairs) == 3 {
			break
		}
	}
	return strings.Join(pairs, ", ")
}
