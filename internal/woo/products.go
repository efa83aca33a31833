package woo

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/sbozic/woosync/internal/platform/models"
	"github.com/sbozic/woosync/internal/sync"
)

// FindBySKU returns the id of the product carrying sku, or 0.
func (c *Client) FindBySKU(ctx context.Context, sku string) (int64, error) {
	var products []Product
	query := url.Values{"sku": {sku}}
	if err := c.do(ctx, "GET", productsBase+"/products", query, nil, &products); err != nil {
		return 0, fmt.Errorf("can't search products by SKU: %w", err)
	}

	for _, product := range products {
		if product.SKU == sku {
			return product.ID, nil
		}
	}
	return 0, nil
}

// FindByMeta returns the id of the first product whose meta key holds
// value, or 0. The shop API has no meta filter, so candidates come from a
// text search and are checked client-side.
func (c *Client) FindByMeta(ctx context.Context, key, value string) (int64, error) {
	var products []Product
	query := url.Values{"search": {value}, "per_page": {strconv.Itoa(pageSize)}}
	if err := c.do(ctx, "GET", productsBase+"/products", query, nil, &products); err != nil {
		return 0, fmt.Errorf("can't search products: %w", err)
	}

	for _, product := range products {
		for _, meta := range product.MetaData {
			if meta.Key == key && fmt.Sprint(meta.Value) == value {
				return product.ID, nil
			}
		}
	}
	return 0, nil
}

// Create adds a product to the catalog and returns its id.
func (c *Client) Create(ctx context.Context, product sync.ProductData) (int64, error) {
	payload := toWireProduct(product)
	payload.Type = "simple"
	payload.Status = "publish"

	var created Product
	if err := c.do(ctx, "POST", productsBase+"/products", nil, payload, &created); err != nil {
		return 0, fmt.Errorf("can't create product: %w", err)
	}
	return created.ID, nil
}

// Update overwrites the synced fields of an existing product.
func (c *Client) Update(ctx context.Context, id int64, product sync.ProductData) error {
	path := fmt.Sprintf("%s/products/%d", productsBase, id)
	if err := c.do(ctx, "PUT", path, nil, toWireProduct(product), nil); err != nil {
		return fmt.Errorf("can't update product %d: %w", id, err)
	}
	return nil
}

// Meta reads one product meta value; "" when unset.
func (c *Client) Meta(ctx context.Context, id int64, key string) (string, error) {
	product, err := c.product(ctx, id)
	if err != nil {
		return "", err
	}

	for _, meta := range product.MetaData {
		if meta.Key == key {
			return fmt.Sprint(meta.Value), nil
		}
	}
	return "", nil
}

// Snapshot captures the product state needed to roll an update back.
func (c *Client) Snapshot(ctx context.Context, id int64) (models.ProductBackup, error) {
	product, err := c.product(ctx, id)
	if err != nil {
		return models.ProductBackup{}, err
	}

	backup := models.ProductBackup{
		ProductID: product.ID,
		Name:      product.Name,
		SKU:       product.SKU,
		Meta:      map[string]string{},
		Timestamp: time.Now().UTC(),
	}
	for _, category := range product.Categories {
		backup.Categories = append(backup.Categories, category.ID)
	}
	for ix, image := range product.Images {
		if ix == 0 {
			backup.Featured = image.ID
			continue
		}
		backup.Gallery = append(backup.Gallery, image.ID)
	}
	for _, meta := range product.MetaData {
		backup.Meta[meta.Key] = fmt.Sprint(meta.Value)
	}

	return backup, nil
}

// Restore writes a backup back over the product.
func (c *Client) Restore(ctx context.Context, backup models.ProductBackup) error {
	payload := Product{
		Name: backup.Name,
		SKU:  backup.SKU,
	}
	for _, id := range backup.Categories {
		payload.Categories = append(payload.Categories, Ref{ID: id})
	}
	if backup.Featured != 0 {
		payload.Images = append(payload.Images, Image{ID: backup.Featured})
	}
	for _, id := range backup.Gallery {
		payload.Images = append(payload.Images, Image{ID: id})
	}
	for _, key := range sortedKeys(backup.Meta) {
		payload.MetaData = append(payload.MetaData, Meta{Key: key, Value: backup.Meta[key]})
	}

	path := fmt.Sprintf("%s/products/%d", productsBase, backup.ProductID)
	if err := c.do(ctx, "PUT", path, nil, payload, nil); err != nil {
		return fmt.Errorf("can't restore product %d: %w", backup.ProductID, err)
	}
	return nil
}

func (c *Client) product(ctx context.Context, id int64) (*Product, error) {
	var product Product
	path := fmt.Sprintf("%s/products/%d", productsBase, id)
	if err := c.do(ctx, "GET", path, nil, nil, &product); err != nil {
		return nil, fmt.Errorf("can't get product %d: %w", id, err)
	}
	return &product, nil
}

func toWireProduct(product sync.ProductData) Product {
	wire := Product{
		Name:             product.Name,
		SKU:              product.SKU,
		RegularPrice:     formatAmount(product.RegularPrice),
		Description:      product.Description,
		ShortDescription: product.ShortDescription,
		ManageStock:      true,
		StockQuantity:    &product.StockQuantity,
		Weight:           formatAmount(product.Weight),
		Dimensions: &Dimensions{
			Length: formatAmount(product.Length),
			Width:  formatAmount(product.Width),
			Height: formatAmount(product.Height),
		},
	}

	for _, id := range product.CategoryIDs {
		wire.Categories = append(wire.Categories, Ref{ID: id})
	}
	for _, key := range sortedKeys(product.Meta) {
		wire.MetaData = append(wire.MetaData, Meta{Key: key, Value: product.Meta[key]})
	}

	return wire
}

func formatAmount(value float64) string {
	if value == 0 {
		return "0"
	}
	return strconv.FormatFloat(value, 'f', 2, 64)
}

func sortedKeys(values map[string]string) []string {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
