package decoder

import "github.com/sbozic/woosync/internal/platform/models"

// feedItem mirrors one <item> element of the vendor feed. The element
// names are the vendor's contract, not a design choice.
type feedItem struct {
	SKU               string `xml:"Sifra"`
	Name              string `xml:"Naziv"`
	Description       string `xml:"Opis"`
	BasePrice         string `xml:"Osnovna-cijena"`
	RecommendedPrice  string `xml:"Preporucena-cijena"`
	Stock             string `xml:"Kolicina"`
	Specification     string `xml:"Specifikacija"`
	Weight            string `xml:"Package-weight"`
	Width             string `xml:"Width"`
	Height            string `xml:"Height"`
	Length            string `xml:"Length"`
	EAN               string `xml:"EAN"`
	VariantSKU        string `xml:"Varijant-sifra"`
	VariantDefinition string `xml:"Varijant-definicija"`
	Category1         string `xml:"Kategorija1"`
	Category2         string `xml:"Kategorija2"`
	Category3         string `xml:"Kategorija3"`
	Category4         string `xml:"Kategorija4"`
	Category5         string `xml:"Kategorija5"`
	Image1            string `xml:"Slika1"`
	Image2            string `xml:"Slika2"`
	Image3            string `xml:"Slika3"`
	Image4            string `xml:"Slika4"`
	Image5            string `xml:"Slika5"`
	Image6            string `xml:"Slika6"`
	Image7            string `xml:"Slika7"`
	Image8            string `xml:"Slika8"`
	Image9            string `xml:"Slika9"`
	Image10           string `xml:"Slika10"`
}

func toAppItem(item *feedItem) models.FeedItem {
	return models.FeedItem{
		SKU:               item.SKU,
		Name:              item.Name,
		Description:       item.Description,
		BasePrice:         item.BasePrice,
		RecommendedPrice:  item.RecommendedPrice,
		Stock:             item.Stock,
		Specification:     item.Specification,
		Weight:            item.Weight,
		Width:             item.Width,
		Height:            item.Height,
		Length:            item.Length,
		EAN:               item.EAN,
		VariantSKU:        item.VariantSKU,
		VariantDefinition: item.VariantDefinition,
		Categories: [models.CategorySlots]string{
			item.Category1, item.Category2, item.Category3, item.Category4, item.Category5,
		},
		Images: [models.ImageSlots]string{
			item.Image1, item.Image2, item.Image3, item.Image4, item.Image5,
			item.Image6, item.Image7, item.Image8, item.Image9, item.Image10,
		},
	}
}
