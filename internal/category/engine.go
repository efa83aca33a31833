// Package category resolves raw feed category names into catalog category
// ids: operator mappings short-circuit, everything else goes through a
// hierarchical get-or-create walk with exact, case-insensitive and
// optionally fuzzy sibling matching.
package category

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/sbozic/woosync/internal/logstore"
	"github.com/sbozic/woosync/internal/platform/models"
	"github.com/sbozic/woosync/internal/util"
)

// FuzzyThreshold is the similarity percentage a sibling must strictly
// exceed to be accepted as a fuzzy match.
const FuzzyThreshold = 80.0

// Category is one catalog category as seen by the engine.
type Category struct {
	ID           int64
	ParentID     int64
	Name         string
	Slug         string
	ProductCount int
}

// Store is the catalog taxonomy the engine resolves against.
type Store interface {
	// FindCategory returns the id of the category with exactly this name
	// under parentID, or 0 when there is none.
	FindCategory(ctx context.Context, name string, parentID int64) (int64, error)
	// ListCategories returns the direct children of parentID; parentID 0
	// means top level.
	ListCategories(ctx context.Context, parentID int64) ([]Category, error)
	// AllCategories returns every category of the taxonomy.
	AllCategories(ctx context.Context) ([]Category, error)
	CreateCategory(ctx context.Context, name, slug string, parentID int64) (int64, error)
	DeleteCategory(ctx context.Context, id int64) error
	SlugExists(ctx context.Context, slug string) (bool, error)
	// DefaultCategoryID is the taxonomy's built-in fallback category.
	DefaultCategoryID(ctx context.Context) (int64, error)
}

// MappingStore persists operator category mappings keyed by
// lowercase-trimmed source name.
type MappingStore interface {
	Mappings(ctx context.Context) (map[string]models.CategoryMapping, error)
	SaveMapping(ctx context.Context, mapping models.CategoryMapping) error
	DeleteMapping(ctx context.Context, from string) (bool, error)
}

// Config is the per-run category configuration snapshot.
type Config struct {
	CreateMissing   bool
	FuzzyMatching   bool
	DefaultCategory string
}

type cacheKey struct {
	name     string
	parentID int64
}

// Engine resolves feed categories. The (name, parent) cache lives for one
// run: categories created mid-run must be visible to later items, but the
// cache never crosses session boundaries.
type Engine struct {
	store    Store
	mappings MappingStore
	logger   *logstore.Logger

	mu    sync.Mutex
	cache map[cacheKey]int64
}

// NewEngine returns a new category Engine.
func NewEngine(store Store, mappings MappingStore, logger *logstore.Logger) *Engine {
	return &Engine{
		store:    store,
		mappings: mappings,
		logger:   logger,
		cache:    map[cacheKey]int64{},
	}
}

// Process resolves the category slots of item into a deduplicated set of
// catalog category ids. Items with no valid category land in the default
// category. Resolution failures halt the affected chain but never fail the
// item.
func (e *Engine) Process(ctx context.Context, item models.FeedItem, cfg Config) ([]int64, error) {
	mappings, err := e.mappings.Mappings(ctx)
	if err != nil {
		return nil, fmt.Errorf("can't load category mappings: %w", err)
	}

	var mapped []int64
	var chain []string

	for slot, raw := range item.Categories {
		name := strings.TrimSpace(raw)
		if !util.IsValidCategoryName(name) {
			if name != "" {
				e.logger.Debug("invalid category name dropped", map[string]any{"slot": slot + 1, "value": raw})
			}
			continue
		}

		// Mapped names are assumed already correctly categorized by the
		// operator: no hierarchy walk, no creation.
		if mapping, ok := mappings[normalizeKey(name)]; ok {
			mapped = append(mapped, mapping.To)
			e.logger.Debug("category mapping applied", map[string]any{"from": name, "to": mapping.To})
			continue
		}

		chain = append(chain, name)
	}

	ids := mapped
	if len(chain) > 0 {
		ids = append(ids, e.buildHierarchy(ctx, chain, cfg)...)
	}

	if len(ids) == 0 {
		defaultID, err := e.defaultCategory(ctx, cfg)
		if err != nil {
			return nil, err
		}
		ids = append(ids, defaultID)
	}

	return dedupe(ids), nil
}

// buildHierarchy walks names left to right, each resolved id becoming the
// parent of the next. A node that can't be resolved halts the descent; the
// ids resolved so far are still returned.
func (e *Engine) buildHierarchy(ctx context.Context, names []string, cfg Config) []int64 {
	parentID := int64(0)
	var ids []int64

	for _, name := range names {
		id, err := e.getOrCreate(ctx, name, parentID, cfg)
		if err != nil || id == 0 {
			fields := map[string]any{"name": name, "parent_id": parentID}
			if err != nil {
				fields["error"] = err.Error()
			}
			e.logger.Warning("can't resolve category, halting chain", fields)
			break
		}

		ids = append(ids, id)
		parentID = id
	}

	return ids
}

func (e *Engine) getOrCreate(ctx context.Context, name string, parentID int64, cfg Config) (int64, error) {
	key := cacheKey{name: name, parentID: parentID}

	e.mu.Lock()
	cached, hit := e.cache[key]
	e.mu.Unlock()
	if hit {
		return cached, nil
	}

	sanitized := util.SanitizeText(name)

	id, err := e.findExisting(ctx, sanitized, parentID, cfg)
	if err != nil {
		return 0, err
	}

	if id == 0 {
		if !cfg.CreateMissing {
			e.logger.Warning("category creation disabled", map[string]any{"name": sanitized})
			return 0, nil
		}
		if id, err = e.create(ctx, sanitized, parentID); err != nil {
			return 0, err
		}
	}

	if id != 0 {
		e.mu.Lock()
		e.cache[key] = id
		e.mu.Unlock()
	}

	return id, nil
}

func (e *Engine) findExisting(ctx context.Context, name string, parentID int64, cfg Config) (int64, error) {
	id, err := e.store.FindCategory(ctx, name, parentID)
	if err != nil {
		return 0, fmt.Errorf("can't look up category: %w", err)
	}
	if id != 0 {
		return id, nil
	}

	siblings, err := e.store.ListCategories(ctx, parentID)
	if err != nil {
		return 0, fmt.Errorf("can't list sibling categories: %w", err)
	}

	for _, sibling := range siblings {
		if strings.EqualFold(sibling.Name, name) {
			return sibling.ID, nil
		}
	}

	if cfg.FuzzyMatching {
		return e.findFuzzy(name, siblings), nil
	}

	return 0, nil
}

// findFuzzy picks the best-scoring sibling strictly above the threshold.
func (e *Engine) findFuzzy(name string, siblings []Category) int64 {
	bestID := int64(0)
	bestScore := FuzzyThreshold

	for _, sibling := range siblings {
		score := similarityPercent(strings.ToLower(name), strings.ToLower(sibling.Name))
		if score > bestScore {
			bestScore = score
			bestID = sibling.ID
		}
	}

	if bestID != 0 {
		e.logger.Debug("fuzzy category match", map[string]any{"name": name, "matched_id": bestID, "similarity": bestScore})
	}

	return bestID
}

func (e *Engine) create(ctx context.Context, name string, parentID int64) (int64, error) {
	slug, err := e.uniqueSlug(ctx, name)
	if err != nil {
		return 0, err
	}

	id, err := e.store.CreateCategory(ctx, name, slug, parentID)
	if err != nil {
		return 0, fmt.Errorf("can't create category %q: %w", name, err)
	}

	e.logger.Info("category created", map[string]any{"name": name, "id": id, "parent_id": parentID, "slug": slug})
	return id, nil
}

// uniqueSlug appends an incrementing numeric suffix until the slug is free.
func (e *Engine) uniqueSlug(ctx context.Context, name string) (string, error) {
	base := util.Slugify(name)
	slug := base

	for counter := 1; ; counter++ {
		taken, err := e.store.SlugExists(ctx, slug)
		if err != nil {
			return "", fmt.Errorf("can't check slug: %w", err)
		}
		if !taken {
			return slug, nil
		}
		slug = fmt.Sprintf("%s-%d", base, counter)
	}
}

func (e *Engine) defaultCategory(ctx context.Context, cfg Config) (int64, error) {
	id, err := e.getOrCreate(ctx, cfg.DefaultCategory, 0, Config{
		CreateMissing:   true,
		DefaultCategory: cfg.DefaultCategory,
	})
	if err == nil && id != 0 {
		return id, nil
	}

	// Even default-category creation can fail (taxonomy error); fall back
	// to the taxonomy's own default.
	fallback, fbErr := e.store.DefaultCategoryID(ctx)
	if fbErr != nil {
		if err != nil {
			return 0, err
		}
		return 0, fbErr
	}
	return fallback, nil
}

// ClearCache drops the per-run (name, parent) memoization. The sync engine
// calls this in its always-run cleanup step.
func (e *Engine) ClearCache() {
	e.mu.Lock()
	e.cache = map[cacheKey]int64{}
	e.mu.Unlock()
}

// AddMapping stores an operator mapping, normalizing the source key.
func (e *Engine) AddMapping(ctx context.Context, from string, to int64) error {
	mapping := models.CategoryMapping{From: normalizeKey(from), To: to}
	if mapping.From == "" {
		return fmt.Errorf("empty mapping source")
	}

	if err := e.mappings.SaveMapping(ctx, mapping); err != nil {
		return fmt.Errorf("can't save category mapping: %w", err)
	}

	e.logger.Info("category mapping added", map[string]any{"from": mapping.From, "to": to})
	return nil
}

// RemoveMapping deletes an operator mapping; it reports whether the
// mapping existed.
func (e *Engine) RemoveMapping(ctx context.Context, from string) (bool, error) {
	removed, err := e.mappings.DeleteMapping(ctx, normalizeKey(from))
	if err != nil {
		return false, fmt.Errorf("can't remove category mapping: %w", err)
	}

	if removed {
		e.logger.Info("category mapping removed", map[string]any{"from": normalizeKey(from)})
	}
	return removed, nil
}

// Mappings lists all operator mappings. Legacy bare-integer entries are
// upgraded by the storage layer before they reach here.
func (e *Engine) Mappings(ctx context.Context) (map[string]models.CategoryMapping, error) {
	return e.mappings.Mappings(ctx)
}

// Stats summarizes the category taxonomy.
type Stats struct {
	Total        int         `json:"total"`
	WithProducts int         `json:"with_products"`
	Empty        int         `json:"empty"`
	Levels       map[int]int `json:"levels"`
}

// ComputeStats counts categories, product coverage and depth levels.
func (e *Engine) ComputeStats(ctx context.Context) (Stats, error) {
	categories, err := e.store.AllCategories(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("can't list categories: %w", err)
	}

	parents := make(map[int64]int64, len(categories))
	for _, cat := range categories {
		parents[cat.ID] = cat.ParentID
	}

	stats := Stats{Total: len(categories), Levels: map[int]int{}}
	for _, cat := range categories {
		if cat.ProductCount > 0 {
			stats.WithProducts++
		} else {
			stats.Empty++
		}
		stats.Levels[depth(cat.ID, parents)]++
	}

	return stats, nil
}

func depth(id int64, parents map[int64]int64) int {
	level := 0
	for parent := parents[id]; parent != 0; parent = parents[parent] {
		level++
	}
	return level
}

// CleanupEmpty deletes categories with zero products, exempting the
// taxonomy default. With dryRun it only reports what would be deleted.
func (e *Engine) CleanupEmpty(ctx context.Context, dryRun bool) ([]Category, error) {
	categories, err := e.store.AllCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("can't list categories: %w", err)
	}

	defaultID, err := e.store.DefaultCategoryID(ctx)
	if err != nil {
		return nil, fmt.Errorf("can't resolve default category: %w", err)
	}

	var deleted []Category
	for _, cat := range categories {
		if cat.ProductCount > 0 || cat.ID == defaultID {
			continue
		}

		if !dryRun {
			if err := e.store.DeleteCategory(ctx, cat.ID); err != nil {
				e.logger.Error("can't delete empty category", map[string]any{"id": cat.ID, "error": err.Error()})
				continue
			}
		}
		deleted = append(deleted, cat)
	}

	if !dryRun {
		e.logger.Info("empty categories deleted", map[string]any{"count": len(deleted)})
	}
	return deleted, nil
}

func normalizeKey(from string) string {
	return strings.ToLower(strings.TrimSpace(from))
}

func dedupe(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
