package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"

	"sitemonitor/config"
)

// Notifier sends best-effort alerts when a report job fails. Channels
// are env-gated: an unset key silently disables that channel. Sends are
// fire-and-forget and must never take down the caller.
type Notifier struct {
	log        *zap.Logger
	apiKey     string
	alertEmail string
	webhookURL string
}

// NewNotifier builds a notifier from the notification config keys.
func NewNotifier(log *zap.Logger, cfg config.Config) *Notifier {
	return &Notifier{
		log:        log,
		apiKey:     cfg.SendgridAPIKey,
		alertEmail: cfg.AlertEmail,
		webhookURL: cfg.SlackWebhookURL,
	}
}

// ReportFailed notifies all configured channels that a report job ended
// Failed.
func (n *Notifier) ReportFailed(reportID string, cause error) {
	defer func() {
		if rec := recover(); rec != nil {
			n.log.Error("notification panic recovered", zap.Any("panic", rec))
		}
	}()
	n.sendFailureEmail(reportID, cause)
	n.sendSlack(reportID, cause)
}

func (n *Notifier) sendFailureEmail(reportID string, cause error) {
	if n.apiKey == "" || n.alertEmail == "" {
		n.log.Debug("email skipped: sendgrid not configured")
		return
	}

	subject := fmt.Sprintf("[CRITICAL] uptime report %s failed", reportID)
	body := fmt.Sprintf(`Report: %s
Status: Failed
Time: %s

Reason:
%v

The report row is terminal; trigger a new report to retry.`,
		reportID,
		time.Now().UTC().Format(time.RFC3339),
		cause,
	)

	from := mail.NewEmail("SiteMonitor", n.alertEmail)
	to := mail.NewEmail("Admin", n.alertEmail)
	message := mail.NewSingleEmail(from, subject, to, body, body)
	client := sendgrid.NewSendClient(n.apiKey)

	if _, err := client.Send(message); err != nil {
		n.log.Error("failure email not sent", zap.String("report_id", reportID), zap.Error(err))
	}
}

func (n *Notifier) sendSlack(reportID string, cause error) {
	if n.webhookURL == "" {
		n.log.Debug("slack skipped: webhook not configured")
		return
	}

	payload := map[string]string{
		"text": fmt.Sprintf("🚨 Report Failed\n\nReport: %s\nReason: %v", reportID, cause),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		n.log.Error("slack payload marshal failed", zap.Error(err))
		return
	}

	resp, err := http.Post(n.webhookURL, "application/json", bytes.NewBuffer(body))
	if err != nil {
		n.log.Error("slack request failed", zap.String("report_id", reportID), zap.Error(err))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		n.log.Error("slack webhook rejected alert",
			zap.String("report_id", reportID),
			zap.Int("status", resp.StatusCode),
		)
	}
}
