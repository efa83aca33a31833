package woo

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path"
	"strconv"
	"strings"

	"github.com/sbozic/woosync/internal/images"
)

// importMarker tags media imported from the feed; the source URL follows
// it in the attachment description. Orphan cleanup only ever touches
// attachments carrying the marker.
const importMarker = "feed-import:"

// AttachmentBySourceURL returns the id of an attachment previously
// imported from sourceURL, or 0.
func (c *Client) AttachmentBySourceURL(ctx context.Context, sourceURL string) (int64, error) {
	items, err := c.searchMedia(ctx, mediaSearchTerm(sourceURL))
	if err != nil {
		return 0, err
	}

	for _, item := range items {
		if importSource(item) == sourceURL {
			return item.ID, nil
		}
	}
	return 0, nil
}

// AttachmentByFilename returns the id of an attachment titled filename,
// or 0.
func (c *Client) AttachmentByFilename(ctx context.Context, filename string) (int64, error) {
	items, err := c.searchMedia(ctx, filename)
	if err != nil {
		return 0, err
	}

	for _, item := range items {
		if strings.EqualFold(item.Title.Rendered, filename) {
			return item.ID, nil
		}
	}
	return 0, nil
}

// CreateAttachment uploads a downloaded image and binds it to its product.
func (c *Client) CreateAttachment(ctx context.Context, att images.NewAttachment) (int64, error) {
	file, err := os.Open(att.FilePath)
	if err != nil {
		return 0, fmt.Errorf("can't open image file: %w", err)
	}
	defer file.Close()

	var created MediaItem
	if err := c.upload(ctx, wordpressBase+"/media", att.Filename, att.MimeType, file, &created); err != nil {
		return 0, fmt.Errorf("can't upload image: %w", err)
	}

	update := map[string]any{
		"alt_text":    att.AltText,
		"post":        att.ProductID,
		"description": importMarker + att.SourceURL,
	}
	mediaPath := fmt.Sprintf("%s/media/%d", wordpressBase, created.ID)
	if err := c.do(ctx, "POST", mediaPath, nil, update, nil); err != nil {
		return 0, fmt.Errorf("can't update uploaded image: %w", err)
	}

	return created.ID, nil
}

// OrphanedAttachments lists feed-imported attachments without a parent
// product.
func (c *Client) OrphanedAttachments(ctx context.Context) ([]images.Attachment, error) {
	var orphans []images.Attachment

	query := url.Values{"per_page": {strconv.Itoa(pageSize)}}
	for page := 1; ; page++ {
		query.Set("page", strconv.Itoa(page))

		var items []MediaItem
		if err := c.do(ctx, "GET", wordpressBase+"/media", query, nil, &items); err != nil {
			return nil, fmt.Errorf("can't list media: %w", err)
		}

		for _, item := range items {
			source := importSource(item)
			if source == "" || item.Post != 0 {
				continue
			}
			orphans = append(orphans, images.Attachment{
				ID:        item.ID,
				Title:     item.Title.Rendered,
				SourceURL: source,
				ParentID:  item.Post,
			})
		}
		if len(items) < pageSize {
			return orphans, nil
		}
	}
}

// DeleteAttachment permanently removes one attachment.
func (c *Client) DeleteAttachment(ctx context.Context, id int64) error {
	mediaPath := fmt.Sprintf("%s/media/%d", wordpressBase, id)
	query := url.Values{"force": {"true"}}
	if err := c.do(ctx, "DELETE", mediaPath, query, nil, nil); err != nil {
		return fmt.Errorf("can't delete attachment %d: %w", id, err)
	}
	return nil
}

// FeaturedImage returns the product's featured attachment id, or 0.
func (c *Client) FeaturedImage(ctx context.Context, productID int64) (int64, error) {
	product, err := c.product(ctx, productID)
	if err != nil {
		return 0, err
	}

	if len(product.Images) == 0 {
		return 0, nil
	}
	return product.Images[0].ID, nil
}

// SetFeaturedImage puts attachmentID into the product's first image slot.
func (c *Client) SetFeaturedImage(ctx context.Context, productID, attachmentID int64) error {
	product, err := c.product(ctx, productID)
	if err != nil {
		return err
	}

	slots := []Image{{ID: attachmentID}}
	for ix, image := range product.Images {
		if ix == 0 || image.ID == attachmentID {
			continue
		}
		slots = append(slots, Image{ID: image.ID})
	}

	return c.putImages(ctx, productID, slots)
}

// Gallery returns the product's gallery attachment ids.
func (c *Client) Gallery(ctx context.Context, productID int64) ([]int64, error) {
	product, err := c.product(ctx, productID)
	if err != nil {
		return nil, err
	}

	var gallery []int64
	for ix, image := range product.Images {
		if ix == 0 {
			continue
		}
		gallery = append(gallery, image.ID)
	}
	return gallery, nil
}

// SetGallery replaces the product's gallery, keeping the featured slot.
func (c *Client) SetGallery(ctx context.Context, productID int64, attachmentIDs []int64) error {
	featured, err := c.FeaturedImage(ctx, productID)
	if err != nil {
		return err
	}

	var slots []Image
	if featured != 0 {
		slots = append(slots, Image{ID: featured})
	}
	for _, id := range attachmentIDs {
		if id == featured {
			continue
		}
		slots = append(slots, Image{ID: id})
	}

	return c.putImages(ctx, productID, slots)
}

// ClearGallery removes every image slot except the featured one.
func (c *Client) ClearGallery(ctx context.Context, productID int64) error {
	featured, err := c.FeaturedImage(ctx, productID)
	if err != nil {
		return err
	}

	var slots []Image
	if featured != 0 {
		slots = append(slots, Image{ID: featured})
	}
	return c.putImages(ctx, productID, slots)
}

// ProductName returns the product title for alt texts.
func (c *Client) ProductName(ctx context.Context, productID int64) (string, error) {
	product, err := c.product(ctx, productID)
	if err != nil {
		return "", err
	}
	return product.Name, nil
}

func (c *Client) putImages(ctx context.Context, productID int64, slots []Image) error {
	payload := map[string]any{"images": slots}
	if slots == nil {
		payload["images"] = []Image{}
	}

	productPath := fmt.Sprintf("%s/products/%d", productsBase, productID)
	if err := c.do(ctx, "PUT", productPath, nil, payload, nil); err != nil {
		return fmt.Errorf("can't update product images: %w", err)
	}
	return nil
}

func (c *Client) searchMedia(ctx context.Context, term string) ([]MediaItem, error) {
	var items []MediaItem
	query := url.Values{
		"search":   {term},
		"per_page": {strconv.Itoa(pageSize)},
	}
	if err := c.do(ctx, "GET", wordpressBase+"/media", query, nil, &items); err != nil {
		return nil, fmt.Errorf("can't search media: %w", err)
	}
	return items, nil
}

func importSource(item MediaItem) string {
	description := item.Description.Raw
	if description == "" {
		description = item.Description.Rendered
	}

	ix := strings.Index(description, importMarker)
	if ix < 0 {
		return ""
	}

	source := description[ix+len(importMarker):]
	if end := strings.IndexAny(source, " <\n"); end >= 0 {
		source = source[:end]
	}
	return source
}

// mediaSearchTerm narrows a media search to the file name of a source URL.
func mediaSearchTerm(sourceURL string) string {
	parsed, err := url.Parse(sourceURL)
	if err != nil {
		return sourceURL
	}
	return path.Base(parsed.Path)
}
