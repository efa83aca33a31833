package sync

import (
	"context"

	"github.com/sbozic/woosync/internal/platform/models"
)

// Product meta keys written alongside every create/update.
const (
	MetaContentHash       = "_feed_content_hash"
	MetaEAN               = "_feed_ean"
	MetaVariantSKU        = "_feed_variant_sku"
	MetaVariantDefinition = "_feed_variant_definition"
	MetaLastSynced        = "_feed_last_synced"
)

// ProductData is the catalog-facing shape of one reconciled feed item.
type ProductData struct {
	SKU              string
	Name             string
	Description      string
	ShortDescription string
	RegularPrice     float64
	StockQuantity    int
	Weight           float64
	Width            float64
	Height           float64
	Length           float64
	CategoryIDs      []int64
	Meta             map[string]string
}

// Catalog is the product side of the store the engine reconciles into.
type Catalog interface {
	// FindBySKU returns the product id carrying sku, or 0.
	FindBySKU(ctx context.Context, sku string) (int64, error)
	// FindByMeta returns the id of the product whose meta key holds value,
	// or 0.
	FindByMeta(ctx context.Context, key, value string) (int64, error)
	Create(ctx context.Context, product ProductData) (int64, error)
	Update(ctx context.Context, id int64, product ProductData) error
	// Meta reads one product meta value; "" when unset.
	Meta(ctx context.Context, id int64, key string) (string, error)
	// Snapshot captures the product state needed to roll an update back.
	Snapshot(ctx context.Context, id int64) (models.ProductBackup, error)
	Restore(ctx context.Context, backup models.ProductBackup) error
}
