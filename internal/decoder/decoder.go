// Package decoder turns the vendor XML feed into feed items.
package decoder

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"html"
	"io"

	"github.com/sbozic/woosync/internal/platform/models"
)

// ErrMissingDeclaration is returned when the document does not start with
// an XML declaration. The vendor contract requires one; its absence almost
// always means an HTML error page was served instead of the feed.
var ErrMissingDeclaration = errors.New("feed is missing the XML declaration")

// Decoder decodes vendor feed files into feed items.
type Decoder struct{}

// Decode strictly decodes every <item> element of feed, in document order.
// Order matters: the batch offset is a cursor into this sequence. Any
// well-formedness error fails the whole decode; there is no per-item
// recovery because a truncated feed must not look like a short feed.
func (d Decoder) Decode(ctx context.Context, feed io.Reader) ([]models.FeedItem, error) {
	dec := xml.NewDecoder(feed)
	dec.Strict = true

	sawDeclaration := false
	var items []models.FeedItem

	for {
		token, err := dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				if !sawDeclaration {
					return nil, ErrMissingDeclaration
				}
				return items, nil
			}
			return nil, fmt.Errorf("can't decode feed: %w", err)
		}

		switch element := token.(type) {
		case xml.ProcInst:
			if element.Target == "xml" {
				sawDeclaration = true
			}
		case xml.StartElement:
			if !sawDeclaration {
				return nil, ErrMissingDeclaration
			}
			if element.Name.Local != "item" {
				continue
			}

			var raw feedItem
			if err := dec.DecodeElement(&raw, &element); err != nil {
				return nil, fmt.Errorf("can't decode feed item: %w", err)
			}

			unescapeItemFields(&raw)
			items = append(items, toAppItem(&raw))

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			default:
			}
		}
	}
}

// unescapeItemFields unescapes html entities from the free-text fields.
func unescapeItemFields(item *feedItem) {
	item.Name = html.UnescapeString(item.Name)
	item.Description = html.UnescapeString(item.Description)
	item.Specification = html.UnescapeString(item.Specification)
}
