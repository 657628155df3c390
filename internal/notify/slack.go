// Package notify posts high-value lead alerts to a Slack incoming webhook.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/imthebreezy247/ACA-Renewals-stomp-campaign/internal/model"
	"github.com/imthebreezy247/ACA-Renewals-stomp-campaign/internal/service"
)

type slackNotifier struct {
	webhookURL string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewSlackNotifier returns a fire-and-forget notifier. With an empty
// webhook URL it degrades to a no-op.
func NewSlackNotifier(webhookURL string, logger *zap.Logger) service.Notifier {
	if webhookURL == "" {
		return &noopNotifier{}
	}
	return &slackNotifier{
		webhookURL: webhookURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
}

type slackMessage struct {
	Text   string       `json:"text"`
	Blocks []slackBlock `json:"blocks"`
}

type slackBlock struct {
	Type   string      `json:"type"`
	Text   *slackText  `json:"text,omitempty"`
	Fields []slackText `json:"fields,omitempty"`
}

type slackText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Notify posts the lead summary. Failures are logged and swallowed; a
// notification must never fail the pipeline item.
func (n *slackNotifier) Notify(ctx context.Context, lead *model.Lead) {
	premium := 0.0
	if lead.MonthlyPremium != nil {
		premium = *lead.MonthlyPremium
	}
	income := 0
	if lead.AnnualIncome != nil {
		income = *lead.AnnualIncome
	}

	message := slackMessage{
		Text: "High-Value Lead Extracted!",
		Blocks: []slackBlock{
			{
				Type: "header",
				Text: &slackText{
					Type: "plain_text",
					Text: fmt.Sprintf("$%.2f/mo - %s", premium, orNA(lead.ClientName)),
				},
			},
			{
				Type: "section",
				Fields: []slackText{
					{Type: "mrkdwn", Text: "*Phone:*\n" + orNA(lead.ClientPhone)},
					{Type: "mrkdwn", Text: "*Email:*\n" + orNA(lead.ClientEmail)},
					{Type: "mrkdwn", Text: fmt.Sprintf("*Income:*\n$%d/year", income)},
					{Type: "mrkdwn", Text: "*Agent:*\n" + orNA(lead.ReferringAgent)},
				},
			},
			{
				Type: "section",
				Text: &slackText{
					Type: "mrkdwn",
					Text: fmt.Sprintf("*Attachments:* %d files", len(lead.Attachments)),
				},
			},
		},
	}

	if lead.DriveFolderURL != nil {
		message.Blocks = append(message.Blocks, slackBlock{
			Type: "section",
			Text: &slackText{
				Type: "mrkdwn",
				Text: fmt.Sprintf("<%s|View in Google Drive>", *lead.DriveFolderURL),
			},
		})
	}

	payload, err := json.Marshal(message)
	if err != nil {
		n.logger.Error("failed to marshal slack message", zap.Error(err))
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(payload))
	if err != nil {
		n.logger.Error("failed to build slack request", zap.Error(err))
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		n.logger.Error("failed to send slack notification", zap.Error(err))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		n.logger.Error("slack webhook rejected notification",
			zap.Int("status", resp.StatusCode))
		return
	}
	n.logger.Info("slack notification sent",
		zap.String("client", orNA(lead.ClientName)))
}

func orNA(s *string) string {
	if s == nil || *s == "" {
		return "N/A"
	}
	return *s
}

type noopNotifier struct{}

func (n *noopNotifier) Notify(ctx context.Context, lead *model.Lead) {}
