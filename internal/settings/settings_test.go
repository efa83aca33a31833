package settings_test

import (
	"context"
	"testing"
	"time"

	"github.com/sbozic/woosync/internal/settings"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSettings(t *testing.T) (*settings.Settings, *settings.MemStore) {
	t.Helper()

	store := settings.NewMemStore()
	s, err := settings.New(context.TODO(), store)
	require.NoError(t, err, "shouldn't fail loading from an empty store")
	return s, store
}

func TestUnitDefaults(t *testing.T) {
	s, _ := newSettings(t)

	assert.Equal(t, 100, s.GetInt(settings.KeyBatchSize))
	assert.Equal(t, "6h", s.Get(settings.KeySyncInterval))
	assert.Equal(t, "Bez kategorije", s.Get(settings.KeyDefaultCategory))
	assert.True(t, s.GetBool(settings.KeyAutoUpdateExisting))
	assert.False(t, s.GetBool(settings.KeyFuzzyMatching))
}

func TestUnitPersistedValuesOverrideDefaults(t *testing.T) {
	store := settings.NewMemStore()
	require.NoError(t, store.Save(context.TODO(), settings.KeyBatchSize, "250"))
	require.NoError(t, store.Save(context.TODO(), "abandoned_key", "junk"))

	s, err := settings.New(context.TODO(), store)
	require.NoError(t, err)

	assert.Equal(t, 250, s.GetInt(settings.KeyBatchSize), "persisted value should win")
	assert.Empty(t, s.Get("abandoned_key"), "unknown persisted keys should be ignored")
}

func TestUnitSetValidation(t *testing.T) {
	tests := map[string]struct {
		key     string
		value   string
		wantErr bool
	}{
		"batch size ok":          {key: settings.KeyBatchSize, value: "500"},
		"batch size zero":        {key: settings.KeyBatchSize, value: "0", wantErr: true},
		"batch size over cap":    {key: settings.KeyBatchSize, value: "1001", wantErr: true},
		"batch delay over cap":   {key: settings.KeyBatchDelay, value: "301", wantErr: true},
		"image timeout under":    {key: settings.KeyImageTimeout, value: "4", wantErr: true},
		"bool normalized":        {key: settings.KeyTestMode, value: "1"},
		"bool garbage":           {key: settings.KeyTestMode, value: "maybe", wantErr: true},
		"interval enum":          {key: settings.KeySyncInterval, value: "15m"},
		"interval unknown":       {key: settings.KeySyncInterval, value: "2h", wantErr: true},
		"feed url ok":            {key: settings.KeyFeedURL, value: "https://vendor.example.com/feed.xml"},
		"feed url invalid":       {key: settings.KeyFeedURL, value: "not-a-url", wantErr: true},
		"email ok":               {key: settings.KeyNotificationEmail, value: "ops@example.com"},
		"email invalid":          {key: settings.KeyNotificationEmail, value: "ops@@", wantErr: true},
		"default category empty": {key: settings.KeyDefaultCategory, value: "", wantErr: true},
		"unknown key":            {key: "no_such_setting", value: "x", wantErr: true},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			s, _ := newSettings(t)

			err := s.Set(context.TODO(), tt.key, tt.value)
			if tt.wantErr {
				require.Error(t, err, "should reject the value")
				return
			}
			require.NoError(t, err, "should accept the value")
		})
	}
}

func TestUnitSetNormalizesBooleans(t *testing.T) {
	s, store := newSettings(t)

	require.NoError(t, s.Set(context.TODO(), settings.KeyTestMode, "1"))
	assert.Equal(t, "true", s.Get(settings.KeyTestMode), "should store the canonical form")

	persisted, err := store.LoadAll(context.TODO())
	require.NoError(t, err)
	assert.Equal(t, "true", persisted[settings.KeyTestMode], "canonical form should be persisted")
}

func TestUnitSnapshot(t *testing.T) {
	s, _ := newSettings(t)
	require.NoError(t, s.Set(context.TODO(), settings.KeyBatchSize, "50"))
	require.NoError(t, s.Set(context.TODO(), settings.KeyBatchDelay, "30"))
	require.NoError(t, s.Set(context.TODO(), settings.KeyMaxImageSizeMB, "2"))
	require.NoError(t, s.Set(context.TODO(), settings.KeyFeedURL, "https://vendor.example.com/feed.xml"))

	cfg := s.Snapshot()

	assert.Equal(t, 50, cfg.BatchSize)
	assert.Equal(t, 30*time.Second, cfg.BatchDelay)
	assert.Equal(t, int64(2<<20), cfg.MaxImageSizeBytes)
	assert.Equal(t, "https://vendor.example.com/feed.xml", cfg.FeedURL)

	// A snapshot must not follow later changes.
	require.NoError(t, s.Set(context.TODO(), settings.KeyBatchSize, "999"))
	assert.Equal(t, 50, cfg.BatchSize, "snapshot should stay frozen")
}
