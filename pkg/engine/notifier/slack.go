package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/DrSkyle/assetpulse/pkg/engine/report"
	"github.com/DrSkyle/assetpulse/pkg/model"
	"github.com/DrSkyle/assetpulse/pkg/telemetry"
)

// SlackClient handles Slack notifications.
type SlackClient struct {
	WebhookURL string
	Channel    string // Optional: Override default channel
	Client     *http.Client
}

// NewSlackClient initializes the Slack integration.
func NewSlackClient(webhookURL string, channel string) *SlackClient {
	return &SlackClient{
		WebhookURL: webhookURL,
		Channel:    channel,
		Client:     telemetry.HTTPClient(10 * time.Second),
	}
}

// SendAnalysisReport posts a health summary. It is a no-op without a
// webhook URL.
func (s *SlackClient) SendAnalysisReport(ctx context.Context, summary report.Summary) error {
	if s.WebhookURL == "" {
		return nil
	}

	jsonPayload, err := json.Marshal(s.constructPayload(summary))
	if err != nil {
		return fmt.Errorf("failed to marshal slack payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.WebhookURL, bytes.NewBuffer(jsonPayload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := s.Client
	if client == nil {
		client = telemetry.HTTPClient(10 * time.Second)
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("received non-200 status from slack: %d", resp.StatusCode)
	}
	return nil
}

// constructPayload builds the message blocks.
func (s *SlackClient) constructPayload(summary report.Summary) map[string]interface{} {
	statusIcon := "🟢"
	switch summary.HealthState {
	case "critical":
		statusIcon = "🔴"
	case "degraded":
		statusIcon = "🟡"
	}

	blocks := []map[string]interface{}{
		{
			"type": "header",
			"text": map[string]interface{}{
				"type": "plain_text",
				"text": fmt.Sprintf("%s %s health report", statusIcon, summary.SystemName),
			},
		},
		{
			"type": "context",
			"elements": []map[string]interface{}{
				{
					"type": "mrkdwn",
					"text": fmt.Sprintf("*Analyzed:* %s | *System type:* %s", summary.Timestamp.Format("2006-01-02 15:04"), summary.SystemType),
				},
			},
		},
		{
			"type": "divider",
		},
		{
			"type": "section",
			"fields": []map[string]interface{}{
				{
					"type": "mrkdwn",
					"text": fmt.Sprintf("*Health Score:*\n%.0f (%s)", summary.HealthScore, summary.HealthState),
				},
				{
					"type": "mrkdwn",
					"text": fmt.Sprintf("*Anomalies:*\n%d unified, %d critical, %d high", summary.Unified, summary.Critical, summary.High),
				},
				{
					"type": "mrkdwn",
					"text": fmt.Sprintf("*Sources:*\n%d ok, %d failed, %d not run", summary.SourcesOK, summary.SourcesFailed, summary.SourcesNotRun),
				},
			},
		},
	}

	var urgent []string
	for _, u := range summary.Top {
		if u.Severity >= model.SeverityHigh {
			urgent = append(urgent, fmt.Sprintf("• *%s* %s (%s)", strings.ToUpper(u.Severity.String()), u.Title, strings.Join(u.AffectedFields, ", ")))
		}
	}
	if len(urgent) > 0 {
		blocks = append(blocks, map[string]interface{}{
			"type": "section",
			"text": map[string]interface{}{
				"type": "mrkdwn",
				"text": "⚠️ *Requires attention*\n" + strings.Join(urgent, "\n"),
			},
		})
	}

	payload := map[string]interface{}{
		"blocks": blocks,
	}

	if s.Channel != "" {
		payload["channel"] = s.Channel
	}

	return payload
}
