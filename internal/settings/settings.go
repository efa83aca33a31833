// Package settings is the typed, validated operator configuration store.
// Values are validated at this boundary so the engines only ever read
// well-formed configuration.
package settings

import (
	"context"
	"fmt"
	"net/mail"
	"net/url"
	"strconv"
	"sync"
	"time"
)

// Setting keys.
const (
	KeyFeedURL            = "feed_url"
	KeySyncInterval       = "sync_interval"
	KeyBatchSize          = "batch_size"
	KeyBatchDelay         = "batch_delay"
	KeyMaxRetries         = "max_retries"
	KeyEnableLogging      = "enable_logging"
	KeyLogLevel           = "log_level"
	KeyLogRetentionDays   = "log_retention_days"
	KeyEnableEmail        = "enable_email_notifications"
	KeyNotificationEmail  = "notification_email"
	KeyNotifyOnErrors     = "notify_on_errors"
	KeyNotifyOnCompletion = "notify_on_completion"
	KeyHandleVariants     = "handle_variants"
	KeyAutoUpdateExisting = "auto_update_existing"
	KeySkipImagesUpdate   = "skip_images_update"
	KeyForceUpdateAll     = "force_update_all"
	KeyCreateCategories   = "create_missing_categories"
	KeyDefaultCategory    = "default_category"
	KeyFuzzyMatching      = "enable_fuzzy_category_matching"
	KeyImageTimeout       = "image_download_timeout"
	KeyMaxImageSizeMB     = "max_image_size_mb"
	KeyMinImageWidth      = "min_image_width"
	KeyMinImageHeight     = "min_image_height"
	KeyMemoryLimitMB      = "memory_limit_mb"
	KeyMaxExecutionTime   = "max_execution_time"
	KeyProgressTracking   = "enable_progress_tracking"
	KeyCleanupTempFiles   = "cleanup_temp_files"
	KeyEnableBackup       = "enable_backup"
	KeyBackupRetention    = "backup_retention_days"
	KeyTestMode           = "test_mode"
	KeyEnableWebhooks     = "enable_webhooks"
	KeyWebhookURL         = "webhook_url"
)

// Store persists validated setting values.
type Store interface {
	LoadAll(ctx context.Context) (map[string]string, error)
	Save(ctx context.Context, key, value string) error
}

type validator func(value string) (string, error)

var validators = map[string]validator{
	KeyFeedURL:            urlValue(true),
	KeySyncInterval:       enumValue("15m", "30m", "1h", "6h", "12h", "24h"),
	KeyBatchSize:          intRange(1, 1000),
	KeyBatchDelay:         intRange(1, 300),
	KeyMaxRetries:         intRange(0, 10),
	KeyEnableLogging:      boolValue,
	KeyLogLevel:           enumValue("debug", "info", "warning", "error", "critical"),
	KeyLogRetentionDays:   intRange(1, 365),
	KeyEnableEmail:        boolValue,
	KeyNotificationEmail:  emailValue,
	KeyNotifyOnErrors:     boolValue,
	KeyNotifyOnCompletion: boolValue,
	KeyHandleVariants:     boolValue,
	KeyAutoUpdateExisting: boolValue,
	KeySkipImagesUpdate:   boolValue,
	KeyForceUpdateAll:     boolValue,
	KeyCreateCategories:   boolValue,
	KeyDefaultCategory:    nonEmptyValue,
	KeyFuzzyMatching:      boolValue,
	KeyImageTimeout:       intRange(5, 120),
	KeyMaxImageSizeMB:     intRange(1, 50),
	KeyMinImageWidth:      intRange(10, 1000),
	KeyMinImageHeight:     intRange(10, 1000),
	KeyMemoryLimitMB:      intRange(128, 2048),
	KeyMaxExecutionTime:   intRange(30, 3600),
	KeyProgressTracking:   boolValue,
	KeyCleanupTempFiles:   boolValue,
	KeyEnableBackup:       boolValue,
	KeyBackupRetention:    intRange(1, 90),
	KeyTestMode:           boolValue,
	KeyEnableWebhooks:     boolValue,
	KeyWebhookURL:         urlValue(true),
}

func defaults() map[string]string {
	return map[string]string{
		KeyFeedURL:            "",
		KeySyncInterval:       "6h",
		KeyBatchSize:          "100",
		KeyBatchDelay:         "15",
		KeyMaxRetries:         "3",
		KeyEnableLogging:      "true",
		KeyLogLevel:           "info",
		KeyLogRetentionDays:   "30",
		KeyEnableEmail:        "false",
		KeyNotificationEmail:  "",
		KeyNotifyOnErrors:     "true",
		KeyNotifyOnCompletion: "false",
		KeyHandleVariants:     "true",
		KeyAutoUpdateExisting: "true",
		KeySkipImagesUpdate:   "false",
		KeyForceUpdateAll:     "false",
		KeyCreateCategories:   "true",
		KeyDefaultCategory:    "Bez kategorije",
		KeyFuzzyMatching:      "false",
		KeyImageTimeout:       "30",
		KeyMaxImageSizeMB:     "10",
		KeyMinImageWidth:      "50",
		KeyMinImageHeight:     "50",
		KeyMemoryLimitMB:      "512",
		KeyMaxExecutionTime:   "300",
		KeyProgressTracking:   "true",
		KeyCleanupTempFiles:   "true",
		KeyEnableBackup:       "true",
		KeyBackupRetention:    "7",
		KeyTestMode:           "false",
		KeyEnableWebhooks:     "false",
		KeyWebhookURL:         "",
	}
}

// Settings is the validated key/value configuration consumed by the
// engines. Reads hit an in-memory copy; writes go through validation and
// the backing store.
type Settings struct {
	store  Store
	mu     sync.RWMutex
	values map[string]string
}

// New returns Settings over store, loading persisted values over defaults.
func New(ctx context.Context, store Store) (*Settings, error) {
	values := defaults()

	persisted, err := store.LoadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("can't load settings: %w", err)
	}
	for key, value := range persisted {
		if _, known := values[key]; known {
			values[key] = value
		}
	}

	return &Settings{store: store, values: values}, nil
}

// Get returns the raw string value for key, or "" for unknown keys.
func (s *Settings) Get(key string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.values[key]
}

// All returns a copy of every setting value.
func (s *Settings) All() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]string, len(s.values))
	for key, value := range s.values {
		out[key] = value
	}
	return out
}

// GetInt returns the value of an integer-typed key.
func (s *Settings) GetInt(key string) int {
	value, _ := strconv.Atoi(s.Get(key))
	return value
}

// GetBool returns the value of a boolean-typed key.
func (s *Settings) GetBool(key string) bool {
	value, _ := strconv.ParseBool(s.Get(key))
	return value
}

// Set validates and persists a setting value. Unknown keys and values that
// fail the key's validation are rejected.
func (s *Settings) Set(ctx context.Context, key, value string) error {
	validate, known := validators[key]
	if !known {
		return fmt.Errorf("unknown setting %q", key)
	}

	normalized, err := validate(value)
	if err != nil {
		return fmt.Errorf("invalid value for %q: %w", key, err)
	}

	if err := s.store.Save(ctx, key, normalized); err != nil {
		return fmt.Errorf("can't persist setting %q: %w", key, err)
	}

	s.mu.Lock()
	s.values[key] = normalized
	s.mu.Unlock()

	return nil
}

// RunConfig is the immutable configuration snapshot handed to one run, so a
// run observes consistent settings even if the operator changes them
// mid-flight.
type RunConfig struct {
	FeedURL                 string
	BatchSize               int
	BatchDelay              time.Duration
	MaxRetries              int
	AutoUpdateExisting      bool
	SkipImagesUpdate        bool
	HandleVariants          bool
	ForceUpdateAll          bool
	TestMode                bool
	CreateMissingCategories bool
	DefaultCategory         string
	FuzzyCategoryMatching   bool
	EnableBackup            bool
	CleanupTempFiles        bool
	ProgressTracking        bool
	MemoryLimitMB           int
	MaxExecutionTime        time.Duration
	ImageTimeout            time.Duration
	MaxImageSizeBytes       int64
	MinImageWidth           int
	MinImageHeight          int
	EnableWebhooks          bool
	WebhookURL              string
	EnableEmail             bool
	NotificationEmail       string
	NotifyOnErrors          bool
	NotifyOnCompletion      bool
}

// Snapshot materializes the current settings as a RunConfig.
func (s *Settings) Snapshot() RunConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()

	getInt := func(key string) int {
		value, _ := strconv.Atoi(s.values[key])
		return value
	}
	getBool := func(key string) bool {
		value, _ := strconv.ParseBool(s.values[key])
		return value
	}

	return RunConfig{
		FeedURL:                 s.values[KeyFeedURL],
		BatchSize:               getInt(KeyBatchSize),
		BatchDelay:              time.Duration(getInt(KeyBatchDelay)) * time.Second,
		MaxRetries:              getInt(KeyMaxRetries),
		AutoUpdateExisting:      getBool(KeyAutoUpdateExisting),
		SkipImagesUpdate:        getBool(KeySkipImagesUpdate),
		HandleVariants:          getBool(KeyHandleVariants),
		ForceUpdateAll:          getBool(KeyForceUpdateAll),
		TestMode:                getBool(KeyTestMode),
		CreateMissingCategories: getBool(KeyCreateCategories),
		DefaultCategory:         s.values[KeyDefaultCategory],
		FuzzyCategoryMatching:   getBool(KeyFuzzyMatching),
		EnableBackup:            getBool(KeyEnableBackup),
		CleanupTempFiles:        getBool(KeyCleanupTempFiles),
		ProgressTracking:        getBool(KeyProgressTracking),
		MemoryLimitMB:           getInt(KeyMemoryLimitMB),
		MaxExecutionTime:        time.Duration(getInt(KeyMaxExecutionTime)) * time.Second,
		ImageTimeout:            time.Duration(getInt(KeyImageTimeout)) * time.Second,
		MaxImageSizeBytes:       int64(getInt(KeyMaxImageSizeMB)) << 20,
		MinImageWidth:           getInt(KeyMinImageWidth),
		MinImageHeight:          getInt(KeyMinImageHeight),
		EnableWebhooks:          getBool(KeyEnableWebhooks),
		WebhookURL:              s.values[KeyWebhookURL],
		EnableEmail:             getBool(KeyEnableEmail),
		NotificationEmail:       s.values[KeyNotificationEmail],
		NotifyOnErrors:          getBool(KeyNotifyOnErrors),
		NotifyOnCompletion:      getBool(KeyNotifyOnCompletion),
	}
}

func boolValue(value string) (string, error) {
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return "", fmt.Errorf("not a boolean: %q", value)
	}
	return strconv.FormatBool(parsed), nil
}

func intRange(min, max int) validator {
	return func(value string) (string, error) {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return "", fmt.Errorf("not an integer: %q", value)
		}
		if parsed < min || parsed > max {
			return "", fmt.Errorf("%d outside range %d-%d", parsed, min, max)
		}
		return strconv.Itoa(parsed), nil
	}
}

func urlValue(allowEmpty bool) validator {
	return func(value string) (string, error) {
		if value == "" {
			if allowEmpty {
				return "", nil
			}
			return "", fmt.Errorf("empty URL")
		}
		parsed, err := url.Parse(value)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return "", fmt.Errorf("not a valid URL: %q", value)
		}
		return value, nil
	}
}

func emailValue(value string) (string, error) {
	if value == "" {
		return "", nil
	}
	if _, err := mail.ParseAddress(value); err != nil {
		return "", fmt.Errorf("not a valid email address: %q", value)
	}
	return value, nil
}

func enumValue(allowed ...string) validator {
	return func(value string) (string, error) {
		for _, candidate := range allowed {
			if value == candidate {
				return value, nil
			}
		}
		return "", fmt.Errorf("%q not one of %v", value, allowed)
	}
}

func nonEmptyValue(value string) (string, error) {
	if value == "" {
		return "", fmt.Errorf("empty value")
	}
	return value, nil
}

// MemStore is an in-memory Store, used by tests and as a fallback when no
// database is configured.
type MemStore struct {
	mu     sync.Mutex
	values map[string]string
}

// NewMemStore returns an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{values: map[string]string{}}
}

// LoadAll returns a copy of the stored values.
func (m *MemStore) LoadAll(_ context.Context) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]string, len(m.values))
	for key, value := range m.values {
		out[key] = value
	}
	return out, nil
}

// Save stores a value.
func (m *MemStore) Save(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}
