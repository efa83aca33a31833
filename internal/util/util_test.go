package util_test

import (
	"testing"
	"time"

	"github.com/sbozic/woosync/internal/util"
	"github.com/stretchr/testify/assert"
)

func TestUnitParsePrice(t *testing.T) {
	tests := map[string]struct {
		raw  string
		want float64
	}{
		"empty":              {raw: "", want: 0},
		"plain":              {raw: "123.45", want: 123.45},
		"comma decimal":      {raw: "123,45", want: 123.45},
		"integer":            {raw: "99", want: 99},
		"currency suffix":    {raw: "123,45 EUR", want: 123.45},
		"garbage":            {raw: "n/a", want: 0},
		"whitespace wrapped": {raw: "  15,90  ", want: 15.90},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			assert.InDelta(t, tt.want, util.ParsePrice(tt.raw), 0.001, "should parse price")
		})
	}
}

func TestUnitParseDimension(t *testing.T) {
	assert.InDelta(t, 1.2, util.ParseDimension("1,2"), 0.001)
	assert.InDelta(t, 30, util.ParseDimension("30"), 0.001)
	assert.Zero(t, util.ParseDimension("tbd"), "garbage should yield zero")
	assert.Zero(t, util.ParseDimension(""), "empty should yield zero")
}

func TestUnitSanitizeText(t *testing.T) {
	assert.Equal(t, "Trek & Giant", util.SanitizeText("  Trek &amp; Giant  "), "should decode entities and trim")
	assert.Equal(t, "a b c", util.SanitizeText("a\n\t b   c"), "should collapse whitespace")
	assert.Empty(t, util.SanitizeText(""))
}

func TestUnitIsValidCategoryName(t *testing.T) {
	tests := map[string]struct {
		name string
		want bool
	}{
		"plain":             {name: "Bicikli", want: true},
		"with inch quote":   {name: `Bicikli 27.5"`, want: true},
		"with slash":        {name: "Dijelovi/Oprema", want: true},
		"with parens":       {name: "Gume (MTB)", want: true},
		"empty":             {name: "", want: false},
		"whitespace only":   {name: "   ", want: false},
		"numeric":           {name: "123", want: false},
		"decimal":           {name: "12.5", want: false},
		"single char":       {name: "a", want: false},
		"only dots":         {name: "...", want: false},
		"blacklisted":       {name: "test", want: false},
		"blacklisted upper": {name: "NULL", want: false},
		"forbidden chars":   {name: "Bikes <script>", want: false},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tt.want, util.IsValidCategoryName(tt.name))
		})
	}
}

func TestUnitIsValidImageURL(t *testing.T) {
	assert.True(t, util.IsValidImageURL("https://cdn.example.com/slika.jpg"))
	assert.True(t, util.IsValidImageURL("https://cdn.example.com/a/b/slika.WEBP"))
	assert.False(t, util.IsValidImageURL("https://cdn.example.com/doc.pdf"), "should reject non-image extension")
	assert.False(t, util.IsValidImageURL("not a url"))
	assert.False(t, util.IsValidImageURL(""))
}

func TestUnitSlugify(t *testing.T) {
	assert.Equal(t, "bicikli-27-5", util.Slugify(`Bicikli 27.5"`))
	assert.Equal(t, "gume-mtb", util.Slugify("Gume (MTB)"))
	assert.Equal(t, "abc", util.Slugify("  ABC  "))
}

func TestUnitFormatFileSize(t *testing.T) {
	assert.Equal(t, "512 bytes", util.FormatFileSize(512))
	assert.Equal(t, "1.00 KB", util.FormatFileSize(1024))
	assert.Equal(t, "2.50 MB", util.FormatFileSize(uint64(2.5*1024*1024)))
}

func TestUnitFormatDuration(t *testing.T) {
	assert.Equal(t, "42.0s", util.FormatDuration(42*time.Second))
	assert.Equal(t, "2m 5s", util.FormatDuration(125*time.Second))
	assert.Equal(t, "1h 30m", util.FormatDuration(90*time.Minute))
}
