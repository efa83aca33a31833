// Package wootesting is an in-memory stand-in for the shop used by engine
// tests: products, categories, media and sessions behind the same
// interfaces the real client implements.
package wootesting

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/sbozic/woosync/internal/category"
	"github.com/sbozic/woosync/internal/images"
	"github.com/sbozic/woosync/internal/platform/models"

	enginesync "github.com/sbozic/woosync/internal/sync"
)

// FakeProduct is one product held by the fake shop.
type FakeProduct struct {
	ID       int64
	Data     enginesync.ProductData
	Featured int64
	Gallery  []int64
}

// FakeAttachment is one media item held by the fake shop.
type FakeAttachment struct {
	ID        int64
	ProductID int64
	Filename  string
	SourceURL string
	AltText   string
	Position  int
}

// FakeShop implements the catalog interfaces of the sync, category and
// image engines in memory.
type FakeShop struct {
	mu     sync.Mutex
	nextID int64

	products    map[int64]*FakeProduct
	categories  map[int64]*category.Category
	attachments map[int64]*FakeAttachment
	mappings    map[string]models.CategoryMapping
	sessions    []models.SyncSession

	defaultCategoryID int64

	// FailCreateSKUs makes Create fail for the listed SKUs, for
	// fault-isolation tests.
	FailCreateSKUs map[string]bool
}

// NewFakeShop returns an empty shop seeded with the built-in default
// category.
func NewFakeShop() *FakeShop {
	shop := &FakeShop{
		products:       map[int64]*FakeProduct{},
		categories:     map[int64]*category.Category{},
		attachments:    map[int64]*FakeAttachment{},
		mappings:       map[string]models.CategoryMapping{},
		FailCreateSKUs: map[string]bool{},
	}

	shop.defaultCategoryID = shop.nextIDLocked()
	shop.categories[shop.defaultCategoryID] = &category.Category{
		ID:   shop.defaultCategoryID,
		Name: "Uncategorized",
		Slug: "uncategorized",
	}

	return shop
}

func (f *FakeShop) nextIDLocked() int64 {
	f.nextID++
	return f.nextID
}

// FindBySKU implements the product lookup of the sync engine.
func (f *FakeShop) FindBySKU(_ context.Context, sku string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, product := range f.products {
		if product.Data.SKU == sku {
			return product.ID, nil
		}
	}
	return 0, nil
}

// FindByMeta looks a product up by one of its meta values.
func (f *FakeShop) FindByMeta(_ context.Context, key, value string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, product := range f.products {
		if product.Data.Meta[key] == value {
			return product.ID, nil
		}
	}
	return 0, nil
}

// Create stores a new product.
func (f *FakeShop) Create(_ context.Context, data enginesync.ProductData) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.FailCreateSKUs[data.SKU] {
		return 0, fmt.Errorf("shop rejected product %q", data.SKU)
	}

	id := f.nextIDLocked()
	f.products[id] = &FakeProduct{ID: id, Data: cloneData(data)}
	return id, nil
}

// Update overwrites a stored product's synced fields.
func (f *FakeShop) Update(_ context.Context, id int64, data enginesync.ProductData) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	product, ok := f.products[id]
	if !ok {
		return fmt.Errorf("no product %d", id)
	}

	sku := product.Data.SKU
	product.Data = cloneData(data)
	if product.Data.SKU == "" {
		product.Data.SKU = sku
	}
	return nil
}

// Meta reads one product meta value.
func (f *FakeShop) Meta(_ context.Context, id int64, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	product, ok := f.products[id]
	if !ok {
		return "", fmt.Errorf("no product %d", id)
	}
	return product.Data.Meta[key], nil
}

// Snapshot captures a product backup.
func (f *FakeShop) Snapshot(_ context.Context, id int64) (models.ProductBackup, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	product, ok := f.products[id]
	if !ok {
		return models.ProductBackup{}, fmt.Errorf("no product %d", id)
	}

	backup := models.ProductBackup{
		ProductID:  id,
		Name:       product.Data.Name,
		SKU:        product.Data.SKU,
		Categories: append([]int64(nil), product.Data.CategoryIDs...),
		Featured:   product.Featured,
		Gallery:    append([]int64(nil), product.Gallery...),
		Meta:       map[string]string{},
	}
	for key, value := range product.Data.Meta {
		backup.Meta[key] = value
	}
	return backup, nil
}

// Restore writes a backup back over a product.
func (f *FakeShop) Restore(_ context.Context, backup models.ProductBackup) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	product, ok := f.products[backup.ProductID]
	if !ok {
		return fmt.Errorf("no product %d", backup.ProductID)
	}

	product.Data.Name = backup.Name
	product.Data.SKU = backup.SKU
	product.Data.CategoryIDs = append([]int64(nil), backup.Categories...)
	product.Featured = backup.Featured
	product.Gallery = append([]int64(nil), backup.Gallery...)
	product.Data.Meta = map[string]string{}
	for key, value := range backup.Meta {
		product.Data.Meta[key] = value
	}
	return nil
}

// Product returns a stored product for assertions.
func (f *FakeShop) Product(id int64) (FakeProduct, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	product, ok := f.products[id]
	if !ok {
		return FakeProduct{}, false
	}
	return *product, true
}

// ProductCount returns how many products the shop holds.
func (f *FakeShop) ProductCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.products)
}

// FindCategory implements exact name lookup under a parent.
func (f *FakeShop) FindCategory(_ context.Context, name string, parentID int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, cat := range f.categories {
		if cat.Name == name && cat.ParentID == parentID {
			return cat.ID, nil
		}
	}
	return 0, nil
}

// ListCategories returns the direct children of parentID.
func (f *FakeShop) ListCategories(_ context.Context, parentID int64) ([]category.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var children []category.Category
	for _, cat := range f.categories {
		if cat.ParentID == parentID {
			children = append(children, *cat)
		}
	}
	return children, nil
}

// AllCategories returns the whole taxonomy.
func (f *FakeShop) AllCategories(_ context.Context) ([]category.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	all := make([]category.Category, 0, len(f.categories))
	for _, cat := range f.categories {
		all = append(all, *cat)
	}
	return all, nil
}

// CreateCategory adds a category.
func (f *FakeShop) CreateCategory(_ context.Context, name, slug string, parentID int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	id := f.nextIDLocked()
	f.categories[id] = &category.Category{ID: id, ParentID: parentID, Name: name, Slug: slug}
	return id, nil
}

// DeleteCategory removes a category.
func (f *FakeShop) DeleteCategory(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.categories[id]; !ok {
		return fmt.Errorf("no category %d", id)
	}
	delete(f.categories, id)
	return nil
}

// SlugExists reports whether a slug is taken.
func (f *FakeShop) SlugExists(_ context.Context, slug string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, cat := range f.categories {
		if strings.EqualFold(cat.Slug, slug) {
			return true, nil
		}
	}
	return false, nil
}

// DefaultCategoryID returns the seeded default category.
func (f *FakeShop) DefaultCategoryID(_ context.Context) (int64, error) {
	return f.defaultCategoryID, nil
}

// SeedCategory adds a category directly, for test setup.
func (f *FakeShop) SeedCategory(name, slug string, parentID int64) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()

	id := f.nextIDLocked()
	f.categories[id] = &category.Category{ID: id, ParentID: parentID, Name: name, Slug: slug}
	return id
}

// SetCategoryProductCount adjusts a category's product count, for cleanup
// tests.
func (f *FakeShop) SetCategoryProductCount(id int64, count int) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if cat, ok := f.categories[id]; ok {
		cat.ProductCount = count
	}
}

// CategoryCount returns how many categories the shop holds.
func (f *FakeShop) CategoryCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.categories)
}

// Mappings returns the operator category mappings.
func (f *FakeShop) Mappings(_ context.Context) (map[string]models.CategoryMapping, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make(map[string]models.CategoryMapping, len(f.mappings))
	for key, mapping := range f.mappings {
		out[key] = mapping
	}
	return out, nil
}

// SaveMapping upserts an operator mapping.
func (f *FakeShop) SaveMapping(_ context.Context, mapping models.CategoryMapping) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mappings[mapping.From] = mapping
	return nil
}

// DeleteMapping removes an operator mapping.
func (f *FakeShop) DeleteMapping(_ context.Context, from string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.mappings[from]; !ok {
		return false, nil
	}
	delete(f.mappings, from)
	return true, nil
}

// AttachmentBySourceURL finds an attachment by import source.
func (f *FakeShop) AttachmentBySourceURL(_ context.Context, sourceURL string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, att := range f.attachments {
		if att.SourceURL == sourceURL {
			return att.ID, nil
		}
	}
	return 0, nil
}

// AttachmentByFilename finds an attachment by bare filename.
func (f *FakeShop) AttachmentByFilename(_ context.Context, filename string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, att := range f.attachments {
		if strings.EqualFold(strings.TrimSuffix(att.Filename, fileExt(att.Filename)), filename) {
			return att.ID, nil
		}
	}
	return 0, nil
}

// CreateAttachment records an uploaded image.
func (f *FakeShop) CreateAttachment(_ context.Context, att images.NewAttachment) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	id := f.nextIDLocked()
	f.attachments[id] = &FakeAttachment{
		ID:        id,
		ProductID: att.ProductID,
		Filename:  att.Filename,
		SourceURL: att.SourceURL,
		AltText:   att.AltText,
		Position:  att.Position,
	}
	return id, nil
}

// OrphanedAttachments lists imported attachments without a product.
func (f *FakeShop) OrphanedAttachments(_ context.Context) ([]images.Attachment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var orphans []images.Attachment
	for _, att := range f.attachments {
		if _, alive := f.products[att.ProductID]; alive {
			continue
		}
		orphans = append(orphans, images.Attachment{
			ID:        att.ID,
			Title:     att.Filename,
			SourceURL: att.SourceURL,
			ParentID:  att.ProductID,
		})
	}
	return orphans, nil
}

// DeleteAttachment removes an attachment.
func (f *FakeShop) DeleteAttachment(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.attachments[id]; !ok {
		return fmt.Errorf("no attachment %d", id)
	}
	delete(f.attachments, id)
	return nil
}

// Attachment returns a stored attachment for assertions.
func (f *FakeShop) Attachment(id int64) (FakeAttachment, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	att, ok := f.attachments[id]
	if !ok {
		return FakeAttachment{}, false
	}
	return *att, true
}

// FeaturedImage returns a product's featured attachment id.
func (f *FakeShop) FeaturedImage(_ context.Context, productID int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	product, ok := f.products[productID]
	if !ok {
		return 0, fmt.Errorf("no product %d", productID)
	}
	return product.Featured, nil
}

// SetFeaturedImage assigns a product's featured image.
func (f *FakeShop) SetFeaturedImage(_ context.Context, productID, attachmentID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	product, ok := f.products[productID]
	if !ok {
		return fmt.Errorf("no product %d", productID)
	}
	product.Featured = attachmentID
	return nil
}

// Gallery returns a product's gallery attachment ids.
func (f *FakeShop) Gallery(_ context.Context, productID int64) ([]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	product, ok := f.products[productID]
	if !ok {
		return nil, fmt.Errorf("no product %d", productID)
	}
	return append([]int64(nil), product.Gallery...), nil
}

// SetGallery replaces a product's gallery.
func (f *FakeShop) SetGallery(_ context.Context, productID int64, attachmentIDs []int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	product, ok := f.products[productID]
	if !ok {
		return fmt.Errorf("no product %d", productID)
	}
	product.Gallery = append([]int64(nil), attachmentIDs...)
	return nil
}

// ClearGallery empties a product's gallery.
func (f *FakeShop) ClearGallery(_ context.Context, productID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	product, ok := f.products[productID]
	if !ok {
		return fmt.Errorf("no product %d", productID)
	}
	product.Gallery = nil
	return nil
}

// ProductName returns a product's name.
func (f *FakeShop) ProductName(_ context.Context, productID int64) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	product, ok := f.products[productID]
	if !ok {
		return "", fmt.Errorf("no product %d", productID)
	}
	return product.Data.Name, nil
}

// InsertSession records a started session.
func (f *FakeShop) InsertSession(_ context.Context, session models.SyncSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions = append(f.sessions, session)
	return nil
}

// FinishSession updates a stored session with its terminal state.
func (f *FakeShop) FinishSession(_ context.Context, session models.SyncSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for ix := range f.sessions {
		if f.sessions[ix].ID == session.ID {
			f.sessions[ix] = session
			return nil
		}
	}
	return fmt.Errorf("no session %q", session.ID)
}

// Sessions returns the recorded sessions for assertions.
func (f *FakeShop) Sessions() []models.SyncSession {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.SyncSession(nil), f.sessions...)
}

func cloneData(data enginesync.ProductData) enginesync.ProductData {
	clone := data
	clone.CategoryIDs = append([]int64(nil), data.CategoryIDs...)
	clone.Meta = map[string]string{}
	for key, value := range data.Meta {
		clone.Meta[key] = value
	}
	return clone
}

func fileExt(filename string) string {
	if ix := strings.LastIndex(filename, "."); ix >= 0 {
		return filename[ix:]
	}
	return ""
}
