package woo_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/sbozic/woosync/internal/images"
	"github.com/sbozic/woosync/internal/woo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	enginesync "github.com/sbozic/woosync/internal/sync"
)

func newShop(t *testing.T, handler http.HandlerFunc) *woo.Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return woo.NewClient(server.URL, "ck_test", "cs_test", woo.WithHTTPClient(server.Client()))
}

func TestUnitFindBySKU(t *testing.T) {
	shop := newShop(t, func(w http.ResponseWriter, r *http.Request) {
		username, password, ok := r.BasicAuth()
		require.True(t, ok, "requests must authenticate")
		assert.Equal(t, "ck_test", username)
		assert.Equal(t, "cs_test", password)

		assert.Equal(t, "/wp-json/wc/v3/products", r.URL.Path)
		assert.Equal(t, "BIC-1", r.URL.Query().Get("sku"))

		// The shop search also returns near misses; only the exact SKU counts.
		_, _ = w.Write([]byte(`[{"id":11,"sku":"BIC-10"},{"id":7,"sku":"BIC-1"}]`))
	})

	id, err := shop.FindBySKU(context.TODO(), "BIC-1")
	require.NoError(t, err)
	assert.Equal(t, int64(7), id)
}

func TestUnitFindBySKUNoMatch(t *testing.T) {
	shop := newShop(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"id":11,"sku":"BIC-10"}]`))
	})

	id, err := shop.FindBySKU(context.TODO(), "BIC-1")
	require.NoError(t, err)
	assert.Zero(t, id, "a near miss must not count as a match")
}

func TestUnitFindByMeta(t *testing.T) {
	shop := newShop(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "3859891234567", r.URL.Query().Get("search"))
		_, _ = w.Write([]byte(`[
			{"id":3,"meta_data":[{"key":"_feed_ean","value":"1111111111111"}]},
			{"id":5,"meta_data":[{"key":"_feed_ean","value":"3859891234567"}]}
		]`))
	})

	id, err := shop.FindByMeta(context.TODO(), enginesync.MetaEAN, "3859891234567")
	require.NoError(t, err)
	assert.Equal(t, int64(5), id, "candidates are filtered by meta value client-side")
}

func TestUnitCreateProduct(t *testing.T) {
	var payload map[string]any
	shop := newShop(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/wp-json/wc/v3/products", r.URL.Path)

		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &payload))
		_, _ = w.Write([]byte(`{"id":42}`))
	})

	stock := 12
	id, err := shop.Create(context.TODO(), enginesync.ProductData{
		SKU:           "BIC-1",
		Name:          "Trek Marlin",
		RegularPrice:  599.9,
		StockQuantity: stock,
		Weight:        14.5,
		CategoryIDs:   []int64{3, 7},
		Meta:          map[string]string{enginesync.MetaEAN: "3859891234567"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	assert.Equal(t, "simple", payload["type"])
	assert.Equal(t, "publish", payload["status"])
	assert.Equal(t, "599.90", payload["regular_price"], "prices go out as fixed-point strings")
	assert.Equal(t, true, payload["manage_stock"])
	assert.Equal(t, float64(12), payload["stock_quantity"])
	assert.Equal(t, "14.50", payload["weight"])

	categories, ok := payload["categories"].([]any)
	require.True(t, ok)
	assert.Len(t, categories, 2)
}

func TestUnitUpdateProductError(t *testing.T) {
	shop := newShop(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"message":"boom"}`))
	})

	err := shop.Update(context.TODO(), 7, enginesync.ProductData{SKU: "BIC-1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500", "the shop status should surface in the error")
}

func TestUnitAllCategoriesPaging(t *testing.T) {
	shop := newShop(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "100", r.URL.Query().Get("per_page"))

		switch r.URL.Query().Get("page") {
		case "1":
			page := make([]map[string]any, 100)
			for ix := range page {
				page[ix] = map[string]any{"id": ix + 1, "name": fmt.Sprintf("Kategorija %d", ix+1)}
			}
			require.NoError(t, json.NewEncoder(w).Encode(page))
		case "2":
			_, _ = w.Write([]byte(`[{"id":101,"name":"Zadnja","parent":1,"count":3}]`))
		default:
			t.Errorf("unexpected page %q", r.URL.Query().Get("page"))
		}
	})

	categories, err := shop.AllCategories(context.TODO())
	require.NoError(t, err)
	require.Len(t, categories, 101, "a full page means there may be more")

	last := categories[100]
	assert.Equal(t, int64(101), last.ID)
	assert.Equal(t, int64(1), last.ParentID)
	assert.Equal(t, 3, last.ProductCount)
}

func TestUnitSlugExists(t *testing.T) {
	shop := newShop(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "bicikli", r.URL.Query().Get("slug"))
		_, _ = w.Write([]byte(`[{"id":3,"name":"Bicikli","slug":"BICIKLI"}]`))
	})

	taken, err := shop.SlugExists(context.TODO(), "bicikli")
	require.NoError(t, err)
	assert.True(t, taken, "slug comparison is case-insensitive")
}

func TestUnitDefaultCategoryID(t *testing.T) {
	shop := newShop(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "uncategorized", r.URL.Query().Get("slug"))
		_, _ = w.Write([]byte(`[{"id":9,"name":"Uncategorized","slug":"uncategorized"}]`))
	})

	id, err := shop.DefaultCategoryID(context.TODO())
	require.NoError(t, err)
	assert.Equal(t, int64(9), id)
}

func TestUnitDefaultCategoryMissing(t *testing.T) {
	shop := newShop(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	})

	_, err := shop.DefaultCategoryID(context.TODO())
	assert.Error(t, err, "a shop without the default category is misconfigured")
}

func TestUnitAttachmentBySourceURL(t *testing.T) {
	shop := newShop(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/wp-json/wp/v2/media", r.URL.Path)
		assert.Equal(t, "slika.jpg", r.URL.Query().Get("search"), "the search narrows by file name")

		_, _ = w.Write([]byte(`[
			{"id":3,"description":{"rendered":"<p>hand uploaded</p>"}},
			{"id":5,"description":{"rendered":"<p>feed-import:https://cdn.example.com/slika.jpg</p>"}}
		]`))
	})

	id, err := shop.AttachmentBySourceURL(context.TODO(), "https://cdn.example.com/slika.jpg")
	require.NoError(t, err)
	assert.Equal(t, int64(5), id, "only feed-imported attachments with the same source match")
}

func TestUnitAttachmentByFilename(t *testing.T) {
	shop := newShop(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[
			{"id":3,"title":{"rendered":"slika-2"}},
			{"id":5,"title":{"rendered":"SLIKA"}}
		]`))
	})

	id, err := shop.AttachmentByFilename(context.TODO(), "slika")
	require.NoError(t, err)
	assert.Equal(t, int64(5), id, "title comparison is case-insensitive and exact")
}

func TestUnitCreateAttachment(t *testing.T) {
	filePath := filepath.Join(t.TempDir(), "slika.jpg")
	require.NoError(t, os.WriteFile(filePath, []byte("image bytes"), 0o600))

	var update map[string]any
	shop := newShop(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/wp-json/wp/v2/media":
			assert.Equal(t, "image/jpeg", r.Header.Get("Content-Type"))
			assert.Equal(t, `attachment; filename="slika.jpg"`, r.Header.Get("Content-Disposition"))
			_, _ = w.Write([]byte(`{"id":7}`))
		case "/wp-json/wp/v2/media/7":
			body, _ := io.ReadAll(r.Body)
			require.NoError(t, json.Unmarshal(body, &update))
			_, _ = w.Write([]byte(`{}`))
		default:
			t.Errorf("unexpected path %q", r.URL.Path)
		}
	})

	id, err := shop.CreateAttachment(context.TODO(), images.NewAttachment{
		ProductID: 42,
		FilePath:  filePath,
		Filename:  "slika.jpg",
		MimeType:  "image/jpeg",
		SourceURL: "https://cdn.example.com/slika.jpg",
		AltText:   "Trek Marlin",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(7), id)

	assert.Equal(t, "Trek Marlin", update["alt_text"])
	assert.Equal(t, float64(42), update["post"])
	assert.Equal(t, "feed-import:https://cdn.example.com/slika.jpg", update["description"],
		"the import marker records the source for later reuse and cleanup")
}

func TestUnitOrphanedAttachments(t *testing.T) {
	shop := newShop(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[
			{"id":1,"post":42,"description":{"rendered":"feed-import:https://cdn.example.com/a.jpg"}},
			{"id":2,"post":0,"description":{"rendered":"feed-import:https://cdn.example.com/b.jpg"}},
			{"id":3,"post":0,"description":{"rendered":"hand uploaded"}}
		]`))
	})

	orphans, err := shop.OrphanedAttachments(context.TODO())
	require.NoError(t, err)
	require.Len(t, orphans, 1, "only unparented feed imports are orphans")
	assert.Equal(t, int64(2), orphans[0].ID)
	assert.Equal(t, "https://cdn.example.com/b.jpg", orphans[0].SourceURL)
}
