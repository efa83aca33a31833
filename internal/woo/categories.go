package woo

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/sbozic/woosync/internal/category"
)

const defaultCategorySlug = "uncategorized"

// FindCategory returns the id of the category with exactly this name
// under parentID, or 0.
func (c *Client) FindCategory(ctx context.Context, name string, parentID int64) (int64, error) {
	var categories []Category
	query := url.Values{
		"search": {name},
		"parent": {strconv.FormatInt(parentID, 10)},
	}
	if err := c.do(ctx, "GET", productsBase+"/products/categories", query, nil, &categories); err != nil {
		return 0, fmt.Errorf("can't search categories: %w", err)
	}

	for _, cat := range categories {
		if cat.Name == name {
			return cat.ID, nil
		}
	}
	return 0, nil
}

// ListCategories returns the direct children of parentID.
func (c *Client) ListCategories(ctx context.Context, parentID int64) ([]category.Category, error) {
	return c.pageCategories(ctx, url.Values{"parent": {strconv.FormatInt(parentID, 10)}})
}

// AllCategories returns every category of the taxonomy.
func (c *Client) AllCategories(ctx context.Context) ([]category.Category, error) {
	return c.pageCategories(ctx, url.Values{})
}

func (c *Client) pageCategories(ctx context.Context, query url.Values) ([]category.Category, error) {
	var all []category.Category

	query.Set("per_page", strconv.Itoa(pageSize))
	for page := 1; ; page++ {
		query.Set("page", strconv.Itoa(page))

		var categories []Category
		if err := c.do(ctx, "GET", productsBase+"/products/categories", query, nil, &categories); err != nil {
			return nil, fmt.Errorf("can't list categories: %w", err)
		}

		for _, cat := range categories {
			all = append(all, toAppCategory(cat))
		}
		if len(categories) < pageSize {
			return all, nil
		}
	}
}

// CreateCategory adds a category and returns its id.
func (c *Client) CreateCategory(ctx context.Context, name, slug string, parentID int64) (int64, error) {
	payload := Category{Name: name, Slug: slug, Parent: parentID}

	var created Category
	if err := c.do(ctx, "POST", productsBase+"/products/categories", nil, payload, &created); err != nil {
		return 0, fmt.Errorf("can't create category: %w", err)
	}
	return created.ID, nil
}

// DeleteCategory permanently removes a category.
func (c *Client) DeleteCategory(ctx context.Context, id int64) error {
	path := fmt.Sprintf("%s/products/categories/%d", productsBase, id)
	query := url.Values{"force": {"true"}}
	if err := c.do(ctx, "DELETE", path, query, nil, nil); err != nil {
		return fmt.Errorf("can't delete category %d: %w", id, err)
	}
	return nil
}

// SlugExists reports whether any category already uses slug.
func (c *Client) SlugExists(ctx context.Context, slug string) (bool, error) {
	var categories []Category
	query := url.Values{"slug": {slug}}
	if err := c.do(ctx, "GET", productsBase+"/products/categories", query, nil, &categories); err != nil {
		return false, fmt.Errorf("can't check category slug: %w", err)
	}

	for _, cat := range categories {
		if strings.EqualFold(cat.Slug, slug) {
			return true, nil
		}
	}
	return false, nil
}

// DefaultCategoryID returns the shop's built-in fallback category.
func (c *Client) DefaultCategoryID(ctx context.Context) (int64, error) {
	var categories []Category
	query := url.Values{"slug": {defaultCategorySlug}}
	if err := c.do(ctx, "GET", productsBase+"/products/categories", query, nil, &categories); err != nil {
		return 0, fmt.Errorf("can't get default category: %w", err)
	}

	if len(categories) == 0 {
		return 0, fmt.Errorf("shop has no %q category", defaultCategorySlug)
	}
	return categories[0].ID, nil
}

func toAppCategory(cat Category) category.Category {
	return category.Category{
		ID:           cat.ID,
		ParentID:     cat.Parent,
		Name:         cat.Name,
		Slug:         cat.Slug,
		ProductCount: cat.Count,
	}
}
