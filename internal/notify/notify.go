// Package notify delivers sync outcome notifications over the channels
// the run configuration enables: a JSON webhook and plain SMTP email.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/smtp"
	"strings"
	"time"

	"github.com/sbozic/woosync/internal/logstore"
	"github.com/sbozic/woosync/internal/platform/models"
	"github.com/sbozic/woosync/internal/settings"
	"github.com/sbozic/woosync/internal/util"
)

// SMTPConfig is the outbound mail server configuration.
type SMTPConfig struct {
	Addr     string
	From     string
	Username string
	Password string
}

// Notifier sends run outcome notifications. Delivery failures are logged,
// never returned: a finished run must not fail on its announcement.
type Notifier struct {
	client *http.Client
	smtp   SMTPConfig
	logger *logstore.Logger

	// sendMail is swapped in tests.
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewNotifier returns a Notifier using client for webhooks and smtpCfg
// for email.
func NewNotifier(client *http.Client, smtpCfg SMTPConfig, logger *logstore.Logger) *Notifier {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &Notifier{
		client:   client,
		smtp:     smtpCfg,
		logger:   logger,
		sendMail: smtp.SendMail,
	}
}

// SyncFinished announces a finished run over the enabled channels.
// Completed runs go out only with completion notifications on; failed and
// cancelled runs only with error notifications on.
func (n *Notifier) SyncFinished(ctx context.Context, session models.SyncSession, cfg settings.RunConfig) {
	switch session.Status {
	case models.StatusCompleted:
		if !cfg.NotifyOnCompletion {
			return
		}
	default:
		if !cfg.NotifyOnErrors {
			return
		}
	}

	if cfg.EnableWebhooks && cfg.WebhookURL != "" {
		n.postWebhook(ctx, cfg.WebhookURL, session)
	}
	if cfg.EnableEmail && cfg.NotificationEmail != "" {
		n.sendEmail(cfg.NotificationEmail, session)
	}
}

type webhookPayload struct {
	Event      string           `json:"event"`
	SessionID  string           `json:"session_id"`
	Status     string           `json:"status"`
	Manual     bool             `json:"manual"`
	Stats      models.SyncStats `json:"stats"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt *time.Time       `json:"finished_at,omitempty"`
	Duration   string           `json:"duration,omitempty"`
}

func (n *Notifier) postWebhook(ctx context.Context, url string, session models.SyncSession) {
	payload := webhookPayload{
		Event:      "sync." + session.Status,
		SessionID:  session.ID,
		Status:     session.Status,
		Manual:     session.Manual,
		Stats:      session.Stats,
		StartedAt:  session.StartedAt,
		FinishedAt: session.FinishedAt,
	}
	if session.FinishedAt != nil {
		payload.Duration = util.FormatDuration(session.FinishedAt.Sub(session.StartedAt))
	}

	body, err := json.Marshal(payload)
	if err != nil {
		n.logger.Error("can't encode webhook payload", map[string]any{"error": err.Error()})
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		n.logger.Error("can't build webhook request", map[string]any{"error": err.Error()})
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		n.logger.Warning("can't deliver webhook", map[string]any{"url": url, "error": err.Error()})
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		n.logger.Warning("webhook rejected", map[string]any{"url": url, "status": resp.StatusCode})
		return
	}

	n.logger.Debug("webhook delivered", map[string]any{"url": url, "event": payload.Event})
}

func (n *Notifier) sendEmail(to string, session models.SyncSession) {
	if n.smtp.Addr == "" || n.smtp.From == "" {
		n.logger.Warning("email notifications enabled but SMTP is not configured", nil)
		return
	}

	var auth smtp.Auth
	if n.smtp.Username != "" {
		host := n.smtp.Addr
		if ix := strings.LastIndex(host, ":"); ix >= 0 {
			host = host[:ix]
		}
		auth = smtp.PlainAuth("", n.smtp.Username, n.smtp.Password, host)
	}

	message := buildEmail(n.smtp.From, to, session)
	if err := n.sendMail(n.smtp.Addr, auth, n.smtp.From, []string{to}, message); err != nil {
		n.logger.Warning("can't send notification email", map[string]any{"to": to, "error": err.Error()})
		return
	}

	n.logger.Debug("notification email sent", map[string]any{"to": to, "status": session.Status})
}

func buildEmail(from, to string, session models.SyncSession) []byte {
	var body strings.Builder

	fmt.Fprintf(&body, "From: %s\r\n", from)
	fmt.Fprintf(&body, "To: %s\r\n", to)
	fmt.Fprintf(&body, "Subject: Product sync %s (%s)\r\n", session.Status, session.ID)
	body.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n")

	fmt.Fprintf(&body, "Sync session %s finished with status %s.\r\n\r\n", session.ID, session.Status)
	fmt.Fprintf(&body, "Total items: %d\r\n", session.Stats.TotalItems)
	fmt.Fprintf(&body, "Processed:   %d\r\n", session.Stats.Processed)
	fmt.Fprintf(&body, "Created:     %d\r\n", session.Stats.Created)
	fmt.Fprintf(&body, "Updated:     %d\r\n", session.Stats.Updated)
	fmt.Fprintf(&body, "Skipped:     %d\r\n", session.Stats.Skipped)
	fmt.Fprintf(&body, "Errors:      %d\r\n", session.Stats.Errors)
	if session.FinishedAt != nil {
		fmt.Fprintf(&body, "Duration:    %s\r\n", util.FormatDuration(session.FinishedAt.Sub(session.StartedAt)))
	}
	if session.PeakMemory > 0 {
		fmt.Fprintf(&body, "Peak memory: %s\r\n", util.FormatFileSize(session.PeakMemory))
	}

	return []byte(body.String())
}
