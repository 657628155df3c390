// Package drive uploads lead attachments to a Google Drive folder.
package drive

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"go.uber.org/zap"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"github.com/imthebreezy247/ACA-Renewals-stomp-campaign/internal/model"
	"github.com/imthebreezy247/ACA-Renewals-stomp-campaign/internal/service"
)

const folderMimeType = "application/vnd.google-apps.folder"

type driveUploader struct {
	client         *drive.Service
	parentFolderID string
	logger         *zap.Logger
}

// NewUploader builds a Drive sink rooted at the configured parent folder.
// With an empty folder id it degrades to a no-op so the pipeline carries
// no Drive dependency unless configured.
func NewUploader(ctx context.Context, accessToken, parentFolderID string, logger *zap.Logger) (service.DriveUploader, error) {
	if parentFolderID == "" {
		return &noopUploader{}, nil
	}

	httpClient := &http.Client{
		Transport: &oauth2Transport{token: accessToken},
	}
	svc, err := drive.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("failed to create Drive service: %w", err)
	}

	return &driveUploader{
		client:         svc,
		parentFolderID: parentFolderID,
		logger:         logger,
	}, nil
}

type oauth2Transport struct {
	token string
}

func (t *oauth2Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.Header.Set("Authorization", "Bearer "+t.token)
	return http.DefaultTransport.RoundTrip(req)
}

// UploadLeadFolder creates a Lead_<threadID> folder and uploads every
// attachment into it, returning the folder's browsable link. Individual
// file failures are logged; the folder link is still returned.
func (u *driveUploader) UploadLeadFolder(ctx context.Context, threadID string, attachments []model.Attachment) (string, error) {
	folder, err := u.client.Files.Create(&drive.File{
		Name:     "Lead_" + threadID,
		MimeType: folderMimeType,
		Parents:  []string{u.parentFolderID},
	}).Fields("id", "webViewLink").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to create Drive folder: %w", err)
	}

	for _, attachment := range attachments {
		file, err := os.Open(attachment.LocalPath)
		if err != nil {
			u.logger.Error("failed to open attachment for upload",
				zap.String("path", attachment.LocalPath),
				zap.Error(err))
			continue
		}

		_, err = u.client.Files.Create(&drive.File{
			Name:    attachment.Filename,
			Parents: []string{folder.Id},
		}).Media(file).Context(ctx).Do()
		file.Close()
		if err != nil {
			u.logger.Error("failed to upload attachment to Drive",
				zap.String("filename", attachment.Filename),
				zap.Error(err))
			continue
		}
		u.logger.Info("uploaded attachment to Drive",
			zap.String("filename", attachment.Filename))
	}

	return folder.WebViewLink, nil
}

type noopUploader struct{}

func (n *noopUploader) UploadLeadFolder(ctx context.Context, threadID string, attachments []model.Attachment) (string, error) {
	return "", nil
}
