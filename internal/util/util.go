// Package util holds the stateless parsing, validation and formatting
// helpers shared by the sync, category and image engines.
package util

import (
	"fmt"
	"html"
	"net/url"
	"path"
	"regexp"
	"runtime"
	"strconv"
	"strings"
	"time"
	"unicode"
)

var (
	priceTokenRe  = regexp.MustCompile(`[0-9]+\.?[0-9]*`)
	whitespaceRe  = regexp.MustCompile(`\s+`)
	onlyDotsRe    = regexp.MustCompile(`^\.+$`)
	slugInvalidRe = regexp.MustCompile(`[^a-z0-9]+`)
)

// ParsePrice extracts a price from raw feed text. Thousands/decimal
// separators are normalized to dots and the first numeric token wins.
// Unparsable or empty input yields zero, never an error.
func ParsePrice(raw string) float64 {
	if raw == "" {
		return 0
	}

	normalized := strings.NewReplacer(" ", ".", ",", ".").Replace(strings.TrimSpace(raw))

	token := priceTokenRe.FindString(normalized)
	if token == "" {
		return 0
	}

	value, err := strconv.ParseFloat(token, 64)
	if err != nil {
		return 0
	}

	return value
}

// ParseDimension parses a weight or dimension value, accepting a comma
// decimal separator. Garbage yields zero.
func ParseDimension(raw string) float64 {
	if raw == "" {
		return 0
	}

	value, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(raw), ",", "."), 64)
	if err != nil {
		return 0
	}

	return value
}

// SanitizeText decodes HTML entities, collapses runs of whitespace and
// trims the result.
func SanitizeText(text string) string {
	if text == "" {
		return ""
	}

	return strings.TrimSpace(whitespaceRe.ReplaceAllString(html.UnescapeString(text), " "))
}

// CategoryBlacklist lists names never accepted as categories.
var CategoryBlacklist = []string{"test", "temp", "delete", "remove", "null", "undefined", "none"}

// IsValidCategoryName reports whether a raw feed value can be used as a
// category name: non-empty, not purely numeric, at least two characters,
// not a run of dots, restricted charset, not blacklisted.
func IsValidCategoryName(name string) bool {
	name = strings.TrimSpace(name)
	if name == "" {
		return false
	}

	if _, err := strconv.ParseFloat(name, 64); err == nil {
		return false
	}

	if len(name) < 2 {
		return false
	}

	if onlyDotsRe.MatchString(name) {
		return false
	}

	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			continue
		}
		switch r {
		case '-', '(', ')', '/', '&', '+', '.', '"':
		default:
			return false
		}
	}

	lowered := strings.ToLower(name)
	for _, banned := range CategoryBlacklist {
		if lowered == banned {
			return false
		}
	}

	return true
}

// ImageExtensions is the allow-list of image file extensions.
var ImageExtensions = []string{"jpg", "jpeg", "png", "gif", "webp", "bmp"}

// IsValidImageURL checks URL shape and file extension.
func IsValidImageURL(rawURL string) bool {
	if rawURL == "" {
		return false
	}

	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return false
	}

	ext := strings.ToLower(strings.TrimPrefix(path.Ext(parsed.Path), "."))
	for _, allowed := range ImageExtensions {
		if ext == allowed {
			return true
		}
	}

	return false
}

// Slugify lowercases a name and replaces everything outside [a-z0-9] with
// single hyphens.
func Slugify(name string) string {
	slug := slugInvalidRe.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "-")
	return strings.Trim(slug, "-")
}

// FormatFileSize renders a byte count as a human readable size.
func FormatFileSize(bytes uint64) string {
	switch {
	case bytes >= 1<<30:
		return fmt.Sprintf("%.2f GB", float64(bytes)/(1<<30))
	case bytes >= 1<<20:
		return fmt.Sprintf("%.2f MB", float64(bytes)/(1<<20))
	case bytes >= 1<<10:
		return fmt.Sprintf("%.2f KB", float64(bytes)/(1<<10))
	default:
		return fmt.Sprintf("%d bytes", bytes)
	}
}

// FormatDuration renders a duration in the operator-facing style used by
// notifications: seconds below a minute, then m/s, then h/m.
func FormatDuration(d time.Duration) string {
	seconds := d.Seconds()
	switch {
	case seconds < 60:
		return fmt.Sprintf("%.1fs", seconds)
	case seconds < 3600:
		return fmt.Sprintf("%dm %ds", int(seconds)/60, int(seconds)%60)
	default:
		return fmt.Sprintf("%dh %dm", int(seconds)/3600, (int(seconds)%3600)/60)
	}
}

// MemoryUsage is a point-in-time heap snapshot.
type MemoryUsage struct {
	Used uint64 `json:"used"`
	Peak uint64 `json:"peak"`
}

// ReadMemoryUsage reports current and peak heap usage.
func ReadMemoryUsage() MemoryUsage {
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)

	return MemoryUsage{
		Used: stats.HeapAlloc,
		Peak: stats.HeapSys,
	}
}
