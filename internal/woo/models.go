package woo

// Product is the catalog product shape on the wire.
type Product struct {
	ID               int64       `json:"id,omitempty"`
	Name             string      `json:"name,omitempty"`
	SKU              string      `json:"sku,omitempty"`
	Type             string      `json:"type,omitempty"`
	Status           string      `json:"status,omitempty"`
	RegularPrice     string      `json:"regular_price,omitempty"`
	Description      string      `json:"description,omitempty"`
	ShortDescription string      `json:"short_description,omitempty"`
	ManageStock      bool        `json:"manage_stock,omitempty"`
	StockQuantity    *int        `json:"stock_quantity,omitempty"`
	Weight           string      `json:"weight,omitempty"`
	Dimensions       *Dimensions `json:"dimensions,omitempty"`
	Categories       []Ref       `json:"categories,omitempty"`
	Images           []Image     `json:"images,omitempty"`
	MetaData         []Meta      `json:"meta_data,omitempty"`
}

// Dimensions is the product dimensions block, in the shop's units.
type Dimensions struct {
	Length string `json:"length,omitempty"`
	Width  string `json:"width,omitempty"`
	Height string `json:"height,omitempty"`
}

// Ref references another catalog object by id.
type Ref struct {
	ID int64 `json:"id"`
}

// Image is one product image slot; the first slot is the featured image.
type Image struct {
	ID  int64  `json:"id,omitempty"`
	Src string `json:"src,omitempty"`
	Alt string `json:"alt,omitempty"`
}

// Meta is one product meta_data entry.
type Meta struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

// Category is one product category term.
type Category struct {
	ID     int64  `json:"id,omitempty"`
	Name   string `json:"name"`
	Slug   string `json:"slug,omitempty"`
	Parent int64  `json:"parent"`
	Count  int    `json:"count,omitempty"`
}

// MediaItem is one media library attachment.
type MediaItem struct {
	ID          int64  `json:"id,omitempty"`
	SourceURL   string `json:"source_url,omitempty"`
	AltText     string `json:"alt_text,omitempty"`
	Post        int64  `json:"post,omitempty"`
	Title       Render `json:"title,omitempty"`
	Description Render `json:"description,omitempty"`
}

// Render is a WordPress rendered-text field.
type Render struct {
	Raw      string `json:"raw,omitempty"`
	Rendered string `json:"rendered,omitempty"`
}
