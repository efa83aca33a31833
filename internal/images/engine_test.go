package images_test

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/sbozic/woosync/internal/images"
	"github.com/sbozic/woosync/internal/logstore"
	"github.com/sbozic/woosync/internal/platform/models"
	"github.com/sbozic/woosync/internal/platform/models/modelstesting"
	"github.com/sbozic/woosync/internal/wootesting"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	enginesync "github.com/sbozic/woosync/internal/sync"
)

func pngBytes(t *testing.T, width, height int) []byte {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, width, height))))
	return buf.Bytes()
}

// imageServer serves a valid PNG on every path ending in .png and counts
// download hits.
func imageServer(t *testing.T) (*httptest.Server, *atomic.Int64) {
	t.Helper()

	var hits atomic.Int64
	payload := pngBytes(t, 800, 600)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Path == "/missing.png" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write(payload)
	}))
	t.Cleanup(server.Close)

	return server, &hits
}

func newImageEngine(t *testing.T, client *http.Client) (*images.Engine, *wootesting.FakeShop, int64) {
	t.Helper()

	shop := wootesting.NewFakeShop()
	engine := images.NewEngine(shop, shop, client, logstore.NewLogger(zerolog.Nop(), nil))

	productID, err := shop.Create(context.TODO(), enginesync.ProductData{SKU: "BIC-001", Name: "Trek Marlin"})
	require.NoError(t, err, "shouldn't fail seeding the product")

	return engine, shop, productID
}

func itemWithImages(urls ...string) models.FeedItem {
	return modelstesting.FakeFeedItem(func(it *models.FeedItem) {
		it.Images = [models.ImageSlots]string{}
		copy(it.Images[:], urls)
	})
}

var permissive = images.Config{Timeout: 5 * time.Second, MaxBytes: 1 << 20, MinWidth: 1, MinHeight: 1}

func TestUnitProcessFeaturedAndGallery(t *testing.T) {
	server, _ := imageServer(t)
	engine, shop, productID := newImageEngine(t, server.Client())

	item := itemWithImages(server.URL+"/a.png", server.URL+"/b.png", server.URL+"/c.png")

	attached, err := engine.Process(context.TODO(), item, productID, permissive)
	require.NoError(t, err, "shouldn't fail attaching images")
	require.Len(t, attached, 3)

	product, ok := shop.Product(productID)
	require.True(t, ok)
	assert.Equal(t, attached[0], product.Featured, "first success must be the featured image")
	assert.Equal(t, attached[1:], product.Gallery, "the rest must form the gallery in slot order")

	first, ok := shop.Attachment(attached[0])
	require.True(t, ok)
	assert.Equal(t, "Trek Marlin", first.AltText)
	second, ok := shop.Attachment(attached[1])
	require.True(t, ok)
	assert.Equal(t, "Trek Marlin - Slika 2", second.AltText)
}

func TestUnitProcessFailedSlotPromotesNext(t *testing.T) {
	server, _ := imageServer(t)
	engine, shop, productID := newImageEngine(t, server.Client())

	item := itemWithImages(server.URL+"/missing.png", server.URL+"/b.png")

	attached, err := engine.Process(context.TODO(), item, productID, permissive)
	require.NoError(t, err, "a failed slot must not fail the product")
	require.Len(t, attached, 1, "only the reachable image should attach")

	product, _ := shop.Product(productID)
	assert.Equal(t, attached[0], product.Featured, "the next success takes the featured slot")
	assert.Empty(t, product.Gallery, "a single success must leave the gallery cleared")
}

func TestUnitProcessAllSlotsFail(t *testing.T) {
	server, _ := imageServer(t)
	engine, shop, productID := newImageEngine(t, server.Client())

	attached, err := engine.Process(context.TODO(), itemWithImages(server.URL+"/missing.png"), productID, permissive)
	require.NoError(t, err)
	assert.Empty(t, attached)

	product, _ := shop.Product(productID)
	assert.Zero(t, product.Featured)
	assert.Empty(t, product.Gallery)
}

func TestUnitProcessDeduplicatesURLs(t *testing.T) {
	server, hits := imageServer(t)
	engine, shop, productID := newImageEngine(t, server.Client())

	item := itemWithImages(server.URL+"/a.png", server.URL+"/a.png")

	attached, err := engine.Process(context.TODO(), item, productID, permissive)
	require.NoError(t, err)
	assert.Len(t, attached, 1, "a repeated URL should attach once")
	assert.Equal(t, int64(1), hits.Load(), "a repeated URL should download once")

	product, _ := shop.Product(productID)
	assert.Empty(t, product.Gallery)
}

func TestUnitProcessFailedURLNotRetried(t *testing.T) {
	server, hits := imageServer(t)
	engine, _, productID := newImageEngine(t, server.Client())

	item := itemWithImages(server.URL+"/missing.png", server.URL+"/missing.png", server.URL+"/a.png")

	attached, err := engine.Process(context.TODO(), item, productID, permissive)
	require.NoError(t, err)
	assert.Len(t, attached, 1, "only the reachable image should attach")
	assert.Equal(t, int64(2), hits.Load(), "a URL that already failed in this call is not downloaded again")
}

func TestUnitProcessReusesImportedAttachment(t *testing.T) {
	server, hits := imageServer(t)
	engine, shop, productID := newImageEngine(t, server.Client())

	sourceURL := server.URL + "/a.png"
	existingID, err := shop.CreateAttachment(context.TODO(), images.NewAttachment{
		ProductID: productID,
		Filename:  "a.png",
		SourceURL: sourceURL,
	})
	require.NoError(t, err)

	attached, err := engine.Process(context.TODO(), itemWithImages(sourceURL), productID, permissive)
	require.NoError(t, err)

	assert.Equal(t, []int64{existingID}, attached, "should reuse the imported attachment")
	assert.Zero(t, hits.Load(), "reuse must not download anything")
}

func TestUnitProcessCachesAcrossProducts(t *testing.T) {
	server, hits := imageServer(t)
	engine, shop, firstID := newImageEngine(t, server.Client())

	secondID, err := shop.Create(context.TODO(), enginesync.ProductData{SKU: "BIC-002", Name: "Giant Talon"})
	require.NoError(t, err)

	url := server.URL + "/shared.png"
	first, err := engine.Process(context.TODO(), itemWithImages(url), firstID, permissive)
	require.NoError(t, err)
	second, err := engine.Process(context.TODO(), itemWithImages(url), secondID, permissive)
	require.NoError(t, err)

	assert.Equal(t, first, second, "the cached attachment should be shared")
	assert.Equal(t, int64(1), hits.Load(), "the second product must hit the cache")
}

func TestUnitProcessRejectsImages(t *testing.T) {
	textServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("definitely not an image, just a long enough text payload"))
	}))
	t.Cleanup(textServer.Close)
	server, _ := imageServer(t)

	tests := map[string]struct {
		url string
		cfg images.Config
	}{
		"oversized": {
			url: server.URL + "/a.png",
			cfg: images.Config{MaxBytes: 64, MinWidth: 1, MinHeight: 1},
		},
		"below minimum dimensions": {
			url: server.URL + "/a.png",
			cfg: images.Config{MaxBytes: 1 << 20, MinWidth: 1000, MinHeight: 1000},
		},
		"non-image extension": {
			url: server.URL + "/catalog.pdf",
			cfg: permissive,
		},
		"non-image payload": {
			url: textServer.URL + "/fake.jpg",
			cfg: permissive,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			engine, shop, productID := newImageEngine(t, &http.Client{})

			attached, err := engine.Process(context.TODO(), itemWithImages(tt.url), productID, tt.cfg)
			require.NoError(t, err, "a rejected image must not fail the product")
			assert.Empty(t, attached)

			product, _ := shop.Product(productID)
			assert.Zero(t, product.Featured)
		})
	}
}

func TestUnitProcessSkipOnUpdate(t *testing.T) {
	server, hits := imageServer(t)
	engine, shop, productID := newImageEngine(t, server.Client())

	cfg := permissive
	cfg.SkipOnUpdate = true

	// First pass: the product has no images yet, skip must not apply.
	attached, err := engine.Process(context.TODO(), itemWithImages(server.URL+"/a.png"), productID, cfg)
	require.NoError(t, err)
	require.Len(t, attached, 1, "a product without images should still be filled")

	product, _ := shop.Product(productID)
	require.Equal(t, attached[0], product.Featured)

	// Second pass: now it has a featured image, skip applies.
	engine.ClearCache()
	attached, err = engine.Process(context.TODO(), itemWithImages(server.URL+"/b.png"), productID, cfg)
	require.NoError(t, err)
	assert.Empty(t, attached, "a product with images should be skipped")
	assert.Equal(t, int64(1), hits.Load(), "the skipped pass must not download")
}

func TestUnitCleanupOrphans(t *testing.T) {
	server, _ := imageServer(t)
	engine, shop, productID := newImageEngine(t, server.Client())

	orphanID, err := shop.CreateAttachment(context.TODO(), images.NewAttachment{
		ProductID: 9999,
		Filename:  "gone.png",
		SourceURL: "https://cdn.example.com/gone.png",
	})
	require.NoError(t, err)
	keptID, err := shop.CreateAttachment(context.TODO(), images.NewAttachment{
		ProductID: productID,
		Filename:  "kept.png",
		SourceURL: "https://cdn.example.com/kept.png",
	})
	require.NoError(t, err)

	wouldDelete, err := engine.CleanupOrphans(context.TODO(), true)
	require.NoError(t, err)
	require.Len(t, wouldDelete, 1, "dry run should report only the orphan")
	assert.Equal(t, orphanID, wouldDelete[0].ID)
	_, stillThere := shop.Attachment(orphanID)
	assert.True(t, stillThere, "dry run must not delete")

	deleted, err := engine.CleanupOrphans(context.TODO(), false)
	require.NoError(t, err)
	require.Len(t, deleted, 1)
	_, stillThere = shop.Attachment(orphanID)
	assert.False(t, stillThere)
	_, stillThere = shop.Attachment(keptID)
	assert.True(t, stillThere, "attachments with a live product must survive")
}
