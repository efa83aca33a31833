package models

import "time"

// Sync statuses observable by pollers.
const (
	StatusIdle      = "idle"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

// Feed slot counts are part of the vendor contract: up to five hierarchical
// category names and up to ten image URLs per item.
const (
	CategorySlots = 5
	ImageSlots    = 10
)

// FeedItem is one vendor product record decoded from the XML feed.
// Price, stock and dimension fields keep the raw feed text; parsing
// happens at the point of use so the content hash can cover raw values.
type FeedItem struct {
	SKU               string
	Name              string
	Description       string
	BasePrice         string
	RecommendedPrice  string
	Stock             string
	Specification     string
	Weight            string
	Width             string
	Height            string
	Length            string
	EAN               string
	VariantSKU        string
	VariantDefinition string
	Categories        [CategorySlots]string
	Images            [ImageSlots]string
}

// SyncStats are the aggregate counters of one sync session.
type SyncStats struct {
	TotalItems int `json:"total_items"`
	Processed  int `json:"processed"`
	Created    int `json:"created"`
	Updated    int `json:"updated"`
	Skipped    int `json:"skipped"`
	Errors     int `json:"errors"`
}

// SyncSession identifies one logical sync run, possibly spanning several
// scheduled batch invocations.
type SyncSession struct {
	ID         string
	Status     string
	Manual     bool
	Stats      SyncStats
	StartedAt  time.Time
	FinishedAt *time.Time
	PeakMemory uint64
}

// Progress is the snapshot written to ephemeral storage after every batch
// for status polling.
type Progress struct {
	SessionID   string    `json:"session_id"`
	Stats       SyncStats `json:"stats"`
	MemoryBytes uint64    `json:"memory_bytes"`
	Offset      int       `json:"offset"`
	Timestamp   time.Time `json:"timestamp"`
}

// CategoryMapping routes a raw feed category name directly to a catalog
// category. From is always stored lowercase-trimmed.
type CategoryMapping struct {
	From         string `json:"from"`
	To           int64  `json:"to"`
	ProductCount int    `json:"product_count"`
}

// LogEntry is one persisted structured log record.
type LogEntry struct {
	ID        int64
	Timestamp time.Time
	Level     string
	Message   string
	Context   map[string]any
	SessionID string
}

// ProductBackup captures a product's pre-update state for rollback.
type ProductBackup struct {
	ProductID  int64             `json:"product_id"`
	Name       string            `json:"name"`
	SKU        string            `json:"sku"`
	Categories []int64           `json:"categories"`
	Featured   int64             `json:"featured"`
	Gallery    []int64           `json:"gallery"`
	Meta       map[string]string `json:"meta"`
	Timestamp  time.Time         `json:"timestamp"`
}
