package sync

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"strings"

	"github.com/samber/lo"

	"github.com/sbozic/woosync/internal/platform/models"
)

// hashPayload fixes the field set and order of the content hash: the
// content fields only, trimmed but otherwise raw, so a vendor-side change
// of any covered field is always visible. Identity fields (SKU, EAN,
// variant data) stay outside the fingerprint; they select the product,
// they don't describe it.
type hashPayload struct {
	Name             string   `json:"name"`
	Description      string   `json:"description"`
	BasePrice        string   `json:"base_price"`
	RecommendedPrice string   `json:"recommended_price"`
	Stock            string   `json:"stock"`
	Specification    string   `json:"specification"`
	Weight           string   `json:"weight"`
	Dimensions       string   `json:"dimensions"`
	Categories       []string `json:"categories"`
	Images           []string `json:"images,omitempty"`
}

// ContentHash fingerprints one feed item. Image slots are covered only
// when image updates are enabled: with image updates switched off, an
// image-only feed change must not force a product update.
func ContentHash(item models.FeedItem, includeImages bool) string {
	trimmed := func(value string, _ int) string { return strings.TrimSpace(value) }

	payload := hashPayload{
		Name:             strings.TrimSpace(item.Name),
		Description:      strings.TrimSpace(item.Description),
		BasePrice:        strings.TrimSpace(item.BasePrice),
		RecommendedPrice: strings.TrimSpace(item.RecommendedPrice),
		Stock:            strings.TrimSpace(item.Stock),
		Specification:    strings.TrimSpace(item.Specification),
		Weight:           strings.TrimSpace(item.Weight),
		Dimensions: strings.TrimSpace(item.Width) + "x" +
			strings.TrimSpace(item.Height) + "x" +
			strings.TrimSpace(item.Length),
		Categories: lo.Map(item.Categories[:], trimmed),
	}
	if includeImages {
		payload.Images = lo.Map(item.Images[:], trimmed)
	}

	encoded, _ := json.Marshal(payload)
	digest := md5.Sum(encoded)
	return hex.EncodeToString(digest[:])
}
