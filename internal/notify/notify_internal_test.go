package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/smtp"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/sbozic/woosync/internal/logstore"
	"github.com/sbozic/woosync/internal/platform/models"
	"github.com/sbozic/woosync/internal/settings"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSession(status string) models.SyncSession {
	finished := time.Date(2026, 8, 30, 12, 5, 0, 0, time.UTC)
	return models.SyncSession{
		ID:         "sync_20260830_120000_abcd1234",
		Status:     status,
		Manual:     true,
		Stats:      models.SyncStats{TotalItems: 10, Processed: 10, Created: 4, Updated: 3, Skipped: 2, Errors: 1},
		StartedAt:  time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
		FinishedAt: &finished,
	}
}

func TestUnitSyncFinishedWebhook(t *testing.T) {
	var received map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &received))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
	}))
	defer server.Close()

	notifier := NewNotifier(server.Client(), SMTPConfig{}, logstore.NewLogger(zerolog.Nop(), nil))

	cfg := settings.RunConfig{
		NotifyOnCompletion: true,
		EnableWebhooks:     true,
		WebhookURL:         server.URL,
	}
	notifier.SyncFinished(context.TODO(), testSession(models.StatusCompleted), cfg)

	require.NotNil(t, received, "the webhook should have been delivered")
	assert.Equal(t, "sync.completed", received["event"])
	assert.Equal(t, "sync_20260830_120000_abcd1234", received["session_id"])
	assert.Equal(t, "5m 0s", received["duration"])
	stats, ok := received["stats"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(4), stats["created"])
}

func TestUnitSyncFinishedGating(t *testing.T) {
	tests := map[string]struct {
		status      string
		cfg         settings.RunConfig
		wantWebhook bool
	}{
		"completed with completion on": {
			status:      models.StatusCompleted,
			cfg:         settings.RunConfig{NotifyOnCompletion: true},
			wantWebhook: true,
		},
		"completed with completion off": {
			status:      models.StatusCompleted,
			cfg:         settings.RunConfig{NotifyOnErrors: true},
			wantWebhook: false,
		},
		"failed with errors on": {
			status:      models.StatusFailed,
			cfg:         settings.RunConfig{NotifyOnErrors: true},
			wantWebhook: true,
		},
		"failed with errors off": {
			status:      models.StatusFailed,
			cfg:         settings.RunConfig{NotifyOnCompletion: true},
			wantWebhook: false,
		},
		"cancelled with errors on": {
			status:      models.StatusCancelled,
			cfg:         settings.RunConfig{NotifyOnErrors: true},
			wantWebhook: true,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			delivered := false
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				delivered = true
			}))
			defer server.Close()

			notifier := NewNotifier(server.Client(), SMTPConfig{}, logstore.NewLogger(zerolog.Nop(), nil))

			cfg := tt.cfg
			cfg.EnableWebhooks = true
			cfg.WebhookURL = server.URL
			notifier.SyncFinished(context.TODO(), testSession(tt.status), cfg)

			assert.Equal(t, tt.wantWebhook, delivered)
		})
	}
}

func TestUnitSyncFinishedEmail(t *testing.T) {
	var gotAddr, gotFrom string
	var gotTo []string
	var gotMsg []byte

	notifier := NewNotifier(nil, SMTPConfig{Addr: "mail.example.com:587", From: "sync@example.com"},
		logstore.NewLogger(zerolog.Nop(), nil))
	notifier.sendMail = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, msg
		return nil
	}

	cfg := settings.RunConfig{
		NotifyOnErrors:    true,
		EnableEmail:       true,
		NotificationEmail: "ops@example.com",
	}
	notifier.SyncFinished(context.TODO(), testSession(models.StatusFailed), cfg)

	assert.Equal(t, "mail.example.com:587", gotAddr)
	assert.Equal(t, "sync@example.com", gotFrom)
	assert.Equal(t, []string{"ops@example.com"}, gotTo)
	assert.Contains(t, string(gotMsg), "Subject: Product sync failed")
	assert.Contains(t, string(gotMsg), "Created:     4")
	assert.Contains(t, string(gotMsg), "Errors:      1")
}

func TestUnitSyncFinishedEmailWithoutSMTP(t *testing.T) {
	called := false
	notifier := NewNotifier(nil, SMTPConfig{}, logstore.NewLogger(zerolog.Nop(), nil))
	notifier.sendMail = func(string, smtp.Auth, string, []string, []byte) error {
		called = true
		return nil
	}

	cfg := settings.RunConfig{
		NotifyOnErrors:    true,
		EnableEmail:       true,
		NotificationEmail: "ops@example.com",
	}
	notifier.SyncFinished(context.TODO(), testSession(models.StatusFailed), cfg)

	assert.False(t, called, "without an SMTP server nothing can be sent")
}
