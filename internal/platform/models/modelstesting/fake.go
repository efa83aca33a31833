package modelstesting

import (
	"fmt"
	"math/rand"

	"github.com/go-faker/faker/v4"
	"github.com/sbozic/woosync/internal/platform/models"
)

// FakeFeedItem returns a models.FeedItem with fake but well-formed data.
func FakeFeedItem(ops ...func(it *models.FeedItem)) models.FeedItem {
	item := models.FeedItem{
		SKU:               faker.Word(),
		Name:              faker.Word(),
		Description:       faker.Sentence(),
		BasePrice:         fmt.Sprintf("%d,%02d", rand.Intn(900)+10, rand.Intn(100)),
		RecommendedPrice:  fmt.Sprintf("%d,%02d", rand.Intn(900)+10, rand.Intn(100)),
		Stock:             fmt.Sprintf("%d", rand.Intn(50)),
		Specification:     "Brand:" + faker.Word() + "§Model:" + faker.Word(),
		Weight:            "1,2",
		Width:             "10",
		Height:            "20",
		Length:            "30",
		EAN:               faker.CCNumber(),
		VariantSKU:        "",
		VariantDefinition: "",
	}

	item.Categories[0] = faker.Word() + "s"
	item.Categories[1] = faker.Word() + "s"
	item.Images[0] = "https://img.example.com/" + faker.Word() + ".jpg"

	for _, op := range ops {
		op(&item)
	}

	return item
}

// FakeStats returns random sync counters.
func FakeStats(ops ...func(s *models.SyncStats)) models.SyncStats {
	stats := models.SyncStats{
		TotalItems: rand.Intn(500),
		Processed:  rand.Intn(500),
		Created:    rand.Intn(100),
		Updated:    rand.Intn(100),
		Skipped:    rand.Intn(100),
		Errors:     rand.Intn(10),
	}

	for _, op := range ops {
		op(&stats)
	}

	return stats
}
