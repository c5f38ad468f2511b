package api

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/abelbrown/codesim/internal/model"
	"github.com/abelbrown/codesim/internal/upload"
)

var _ upload.Sender = (*Client)(nil)

// UploadFiles sends files as one multipart batch tagged with lang and
// returns the service's confirmation text.
func (c *Client) UploadFiles(ctx context.Context, lang model.Language, files []upload.File) (string, error) {
	const op = "upload batch"

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, f := range files {
		part, err := mw.CreateFormFile("files", f.Name)
		if err != nil {
			return "", fmt.Errorf("%s: add %s: %w", op, f.Name, err)
		}
		if _, err := part.Write(f.Data); err != nil {
			return "", fmt.Errorf("%s: write %s: %w", op, f.Name, err)
		}
	}
	if err := mw.WriteField("language", string(lang)); err != nil {
		return "", fmt.Errorf("%s: language field: %w", op, err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("%s: close form: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/upload/batch", &buf)
	if err != nil {
		return "", fmt.Errorf("%s: create request: %w", op, err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	body, err := c.send(op, req)
	if err != nil {
		return "", err
	}
	msg := serviceMessage(body)
	if msg == "" {
		msg = fmt.Sprintf("uploaded %d files", len(files))
	}
	return strings.TrimSpace(msg), nil
}
