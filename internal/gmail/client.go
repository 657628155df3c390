// Package gmail implements the message source against the Gmail REST API.
package gmail

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/imthebreezy247/ACA-Renewals-stomp-campaign/internal/model"
	"github.com/imthebreezy247/ACA-Renewals-stomp-campaign/internal/service"
)

const user = "me"

type gmailClient struct {
	client *gmail.Service
	logger *zap.Logger
}

// NewClient builds a live Gmail source using a pre-issued OAuth access
// token. Token acquisition is outside this program.
func NewClient(ctx context.Context, accessToken string, logger *zap.Logger) (service.GmailClient, error) {
	httpClient := &http.Client{
		Transport: &oauth2Transport{token: accessToken},
	}

	svc, err := gmail.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}

	return &gmailClient{client: svc, logger: logger}, nil
}

type oauth2Transport struct {
	token string
}

func (t *oauth2Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.Header.Set("Authorization", "Bearer "+t.token)
	return http.DefaultTransport.RoundTrip(req)
}

func (g *gmailClient) Search(ctx context.Context, query string, limit int) ([]model.MessageSummary, int, error) {
	list, err := g.client.Users.Messages.List(user).
		Q(query).
		MaxResults(int64(limit)).
		Context(ctx).
		Do()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to search messages: %w", err)
	}

	summaries := make([]model.MessageSummary, 0, len(list.Messages))
	for _, msg := range list.Messages {
		summaries = append(summaries, model.MessageSummary{
			ID:       msg.Id,
			ThreadID: msg.ThreadId,
		})
	}

	g.logger.Info("Gmail search complete",
		zap.Int("returned", len(summaries)),
		zap.Int64("estimated_total", int64(list.ResultSizeEstimate)))
	return summaries, int(list.ResultSizeEstimate), nil
}

func (g *gmailClient) ReadThread(ctx context.Context, threadID string, full bool) (*model.Thread, error) {
	format := "metadata"
	if full {
		format = "full"
	}

	thread, err := g.client.Users.Threads.Get(user, threadID).
		Format(format).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to read thread %s: %w", threadID, err)
	}

	out := &model.Thread{ID: thread.Id}
	for _, msg := range thread.Messages {
		message := model.Message{
			ID:       msg.Id,
			ThreadID: thread.Id,
			Snippet:  msg.Snippet,
		}
		if msg.Payload != nil {
			for _, h := range msg.Payload.Headers {
				message.Headers = append(message.Headers, model.Header{
					Name:  h.Name,
					Value: h.Value,
				})
			}
			message.Payload = convertPart(msg.Payload)
		}
		out.Messages = append(out.Messages, message)
	}
	return out, nil
}

func convertPart(part *gmail.MessagePart) *model.MessagePart {
	if part == nil {
		return nil
	}
	out := &model.MessagePart{
		MimeType: part.MimeType,
		Filename: part.Filename,
	}
	if part.Body != nil {
		out.Data = part.Body.Data
		out.AttachmentID = part.Body.AttachmentId
	}
	for _, child := range part.Parts {
		out.Parts = append(out.Parts, convertPart(child))
	}
	return out
}

func (g *gmailClient) DownloadAttachment(ctx context.Context, messageID, attachmentID, destPath string) error {
	att, err := g.client.Users.Messages.Attachments.Get(user, messageID, attachmentID).
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to fetch attachment %s: %w", attachmentID, err)
	}

	data, err := base64.URLEncoding.DecodeString(att.Data)
	if err != nil {
		return fmt.Errorf("failed to decode attachment %s: %w", attachmentID, err)
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return fmt.Errorf("failed to create attachment directory: %w", err)
	}
	if err := os.WriteFile(destPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write attachment %s: %w", destPath, err)
	}

	g.logger.Info("Downloaded attachment",
		zap.String("message_id", messageID),
		zap.String("path", destPath))
	return nil
}
