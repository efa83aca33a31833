// Package images decides which feed image URLs to fetch for a product,
// downloads and validates them, and maintains the featured+gallery
// assignment.
package images

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"
	"sync"
	"time"

	// Registered for dimension probing of downloaded files.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/sbozic/woosync/internal/logstore"
	"github.com/sbozic/woosync/internal/platform/models"
	"github.com/sbozic/woosync/internal/util"
)

// Attachment is a media item as seen by the engine.
type Attachment struct {
	ID        int64
	Title     string
	SourceURL string
	ParentID  int64
}

// NewAttachment describes a downloaded image to persist.
type NewAttachment struct {
	ProductID  int64
	FilePath   string
	Filename   string
	MimeType   string
	SourceURL  string
	Position   int
	AltText    string
	ImportedAt time.Time
}

// MediaStore is the attachment side of the catalog.
type MediaStore interface {
	// AttachmentBySourceURL returns the id of an attachment previously
	// imported from url, or 0.
	AttachmentBySourceURL(ctx context.Context, url string) (int64, error)
	// AttachmentByFilename returns the id of an attachment whose title
	// matches the bare filename, or 0.
	AttachmentByFilename(ctx context.Context, filename string) (int64, error)
	CreateAttachment(ctx context.Context, att NewAttachment) (int64, error)
	// OrphanedAttachments lists engine-imported attachments without a
	// parent product.
	OrphanedAttachments(ctx context.Context) ([]Attachment, error)
	DeleteAttachment(ctx context.Context, id int64) error
}

// ProductImages is the product side of the assignment.
type ProductImages interface {
	FeaturedImage(ctx context.Context, productID int64) (int64, error)
	SetFeaturedImage(ctx context.Context, productID, attachmentID int64) error
	Gallery(ctx context.Context, productID int64) ([]int64, error)
	SetGallery(ctx context.Context, productID int64, attachmentIDs []int64) error
	ClearGallery(ctx context.Context, productID int64) error
	ProductName(ctx context.Context, productID int64) (string, error)
}

// Config is the per-run image configuration snapshot.
type Config struct {
	SkipOnUpdate bool
	Timeout      time.Duration
	MaxBytes     int64
	MinWidth     int
	MinHeight    int
}

var allowedMimeTypes = []string{"image/jpeg", "image/png", "image/gif", "image/webp"}

// Engine acquires product images. The URL→attachment cache lives for one
// run to avoid re-downloading duplicate URLs.
type Engine struct {
	media    MediaStore
	products ProductImages
	client   *http.Client
	logger   *logstore.Logger

	mu    sync.Mutex
	cache map[string]int64
}

// NewEngine returns a new image Engine. client is used for downloads; its
// timeout is superseded by the per-run download timeout.
func NewEngine(media MediaStore, products ProductImages, client *http.Client, logger *logstore.Logger) *Engine {
	return &Engine{
		media:    media,
		products: products,
		client:   client,
		logger:   logger,
		cache:    map[string]int64{},
	}
}

// Process resolves and attaches the images of item to productID and
// returns the attached ids, featured first. Individual image failures are
// logged and omitted; they never fail the product.
func (e *Engine) Process(ctx context.Context, item models.FeedItem, productID int64, cfg Config) ([]int64, error) {
	if cfg.SkipOnUpdate {
		has, err := e.productHasImages(ctx, productID)
		if err != nil {
			return nil, err
		}
		if has {
			e.logger.Debug("product already has images, skipping", map[string]any{"product_id": productID})
			return nil, nil
		}
	}

	var attached []int64
	processed := map[string]struct{}{}

	// The first slot is always the featured candidate, the rest are
	// gallery candidates in slot order.
	for position, raw := range item.Images {
		imageURL := strings.TrimSpace(raw)
		if imageURL == "" {
			continue
		}
		if _, dup := processed[imageURL]; dup {
			continue
		}
		// Mark the URL up front: a duplicate of a failed slot is not
		// worth a second download attempt.
		processed[imageURL] = struct{}{}

		id := e.resolveImage(ctx, imageURL, productID, position+1, cfg)
		if id == 0 {
			continue
		}

		attached = append(attached, id)
	}

	if err := e.assign(ctx, productID, attached); err != nil {
		return nil, err
	}

	return attached, nil
}

// assign writes the featured/gallery invariant: first success is featured,
// the rest are the gallery; fewer than two successes clears the gallery.
func (e *Engine) assign(ctx context.Context, productID int64, attached []int64) error {
	if len(attached) > 0 {
		if err := e.products.SetFeaturedImage(ctx, productID, attached[0]); err != nil {
			return fmt.Errorf("can't set featured image: %w", err)
		}
	}

	if len(attached) > 1 {
		if err := e.products.SetGallery(ctx, productID, attached[1:]); err != nil {
			return fmt.Errorf("can't set image gallery: %w", err)
		}
		return nil
	}

	if err := e.products.ClearGallery(ctx, productID); err != nil {
		return fmt.Errorf("can't clear image gallery: %w", err)
	}
	return nil
}

// resolveImage turns one URL into an attachment id, or 0 when the image
// must be omitted.
func (e *Engine) resolveImage(ctx context.Context, imageURL string, productID int64, position int, cfg Config) int64 {
	if !util.IsValidImageURL(imageURL) {
		e.logger.Warning("invalid image url", map[string]any{"url": imageURL, "position": position})
		return 0
	}

	e.mu.Lock()
	cached, hit := e.cache[imageURL]
	e.mu.Unlock()
	if hit {
		return cached
	}

	id, err := e.findExisting(ctx, imageURL)
	if err != nil {
		e.logger.Error("can't look up existing image", map[string]any{"url": imageURL, "error": err.Error()})
		return 0
	}

	if id == 0 {
		if id, err = e.downloadAndAttach(ctx, imageURL, productID, position, cfg); err != nil {
			e.logger.Warning("image omitted", map[string]any{"url": imageURL, "position": position, "error": err.Error()})
			return 0
		}
	}

	if id != 0 {
		e.mu.Lock()
		e.cache[imageURL] = id
		e.mu.Unlock()
	}

	return id
}

func (e *Engine) findExisting(ctx context.Context, imageURL string) (int64, error) {
	id, err := e.media.AttachmentBySourceURL(ctx, imageURL)
	if err != nil || id != 0 {
		return id, err
	}

	filename := filenameFromURL(imageURL)
	if filename == "" {
		return 0, nil
	}

	return e.media.AttachmentByFilename(ctx, strings.TrimSuffix(filename, path.Ext(filename)))
}

func (e *Engine) downloadAndAttach(ctx context.Context, imageURL string, productID int64, position int, cfg Config) (int64, error) {
	tempPath, mimeType, err := e.download(ctx, imageURL, cfg)
	if err != nil {
		return 0, err
	}
	defer os.Remove(tempPath)

	if err := validateImageFile(tempPath, mimeType, cfg); err != nil {
		return 0, err
	}

	altText, err := e.products.ProductName(ctx, productID)
	if err != nil {
		return 0, fmt.Errorf("can't read product name: %w", err)
	}
	if position > 1 {
		altText = fmt.Sprintf("%s - Slika %d", altText, position)
	}

	id, err := e.media.CreateAttachment(ctx, NewAttachment{
		ProductID:  productID,
		FilePath:   tempPath,
		Filename:   filenameFromURL(imageURL),
		MimeType:   mimeType,
		SourceURL:  imageURL,
		Position:   position,
		AltText:    altText,
		ImportedAt: time.Now().UTC(),
	})
	if err != nil {
		return 0, fmt.Errorf("can't create attachment: %w", err)
	}

	e.logger.Debug("image attached", map[string]any{"url": imageURL, "attachment_id": id, "position": position})
	return id, nil
}

// download fetches the image into a temp file, enforcing the size ceiling.
// Oversized or failed downloads are discarded, not retried.
func (e *Engine) download(ctx context.Context, imageURL string, cfg Config) (string, string, error) {
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return "", "", fmt.Errorf("can't build request: %w", err)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("can't download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("image download status %d", resp.StatusCode)
	}

	temp, err := os.CreateTemp("", "woosync-img-*")
	if err != nil {
		return "", "", fmt.Errorf("can't create temp file: %w", err)
	}

	written, err := io.Copy(temp, io.LimitReader(resp.Body, cfg.MaxBytes+1))
	closeErr := temp.Close()

	switch {
	case err != nil:
		os.Remove(temp.Name())
		return "", "", fmt.Errorf("can't write temp file: %w", err)
	case closeErr != nil:
		os.Remove(temp.Name())
		return "", "", fmt.Errorf("can't close temp file: %w", closeErr)
	case cfg.MaxBytes > 0 && written > cfg.MaxBytes:
		os.Remove(temp.Name())
		return "", "", fmt.Errorf("image exceeds size limit of %s", util.FormatFileSize(uint64(cfg.MaxBytes)))
	}

	mimeType, err := detectMimeType(temp.Name())
	if err != nil {
		os.Remove(temp.Name())
		return "", "", err
	}

	return temp.Name(), mimeType, nil
}

func validateImageFile(filePath, mimeType string, cfg Config) error {
	allowed := false
	for _, candidate := range allowedMimeTypes {
		if mimeType == candidate {
			allowed = true
			break
		}
	}
	if !allowed {
		return fmt.Errorf("unsupported image type %q", mimeType)
	}

	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("can't open downloaded image: %w", err)
	}
	defer file.Close()

	config, _, err := image.DecodeConfig(file)
	if err != nil {
		// webp dimensions are not probed; the MIME check already passed.
		if errors.Is(err, image.ErrFormat) && mimeType == "image/webp" {
			return nil
		}
		return fmt.Errorf("corrupted image file: %w", err)
	}

	if config.Width < cfg.MinWidth || config.Height < cfg.MinHeight {
		return fmt.Errorf("image %dx%d below minimum %dx%d", config.Width, config.Height, cfg.MinWidth, cfg.MinHeight)
	}

	return nil
}

func detectMimeType(filePath string) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("can't open downloaded image: %w", err)
	}
	defer file.Close()

	head := make([]byte, 512)
	n, err := file.Read(head)
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("can't read downloaded image: %w", err)
	}

	return http.DetectContentType(head[:n]), nil
}

func (e *Engine) productHasImages(ctx context.Context, productID int64) (bool, error) {
	featured, err := e.products.FeaturedImage(ctx, productID)
	if err != nil {
		return false, fmt.Errorf("can't read featured image: %w", err)
	}
	if featured != 0 {
		return true, nil
	}

	gallery, err := e.products.Gallery(ctx, productID)
	if err != nil {
		return false, fmt.Errorf("can't read image gallery: %w", err)
	}
	return len(gallery) > 0, nil
}

// CleanupOrphans deletes engine-imported attachments that lost their
// parent product. With dryRun it only reports them.
func (e *Engine) CleanupOrphans(ctx context.Context, dryRun bool) ([]Attachment, error) {
	orphans, err := e.media.OrphanedAttachments(ctx)
	if err != nil {
		return nil, fmt.Errorf("can't list orphaned images: %w", err)
	}

	var deleted []Attachment
	for _, orphan := range orphans {
		if !dryRun {
			if err := e.media.DeleteAttachment(ctx, orphan.ID); err != nil {
				e.logger.Error("can't delete orphaned image", map[string]any{"id": orphan.ID, "error": err.Error()})
				continue
			}
		}
		deleted = append(deleted, orphan)
	}

	if !dryRun {
		e.logger.Info("orphaned images deleted", map[string]any{"count": len(deleted)})
	}
	return deleted, nil
}

// ClearCache drops the per-run URL memoization.
func (e *Engine) ClearCache() {
	e.mu.Lock()
	e.cache = map[string]int64{}
	e.mu.Unlock()
}

func filenameFromURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	name := path.Base(parsed.Path)
	if name == "." || name == "/" {
		return ""
	}
	return name
}
