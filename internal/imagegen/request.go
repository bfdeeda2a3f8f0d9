package imagegen

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/hongyue0721/image-fill-site/internal/domain"
)

// EditURL joins an upstream base URL with the edit endpoint.
func EditURL(baseURL string) string {
	return strings.TrimRight(strings.TrimSpace(baseURL), "/") + EditEndpointPath
}

// BuildEditRequest assembles the multipart edit request for one upstream.
// The deadline travels with ctx.
func BuildEditRequest(ctx context.Context, upstream domain.UpstreamDescriptor, prompt string, image, mask Part) (*http.Request, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	fields := [][2]string{
		{"model", upstream.Model},
		{"prompt", prompt},
		{"n", "1"},
		{"response_format", "b64_json"},
	}
	for _, f := range fields {
		if err := writer.WriteField(f[0], f[1]); err != nil {
			return nil, fmt.Errorf("write %s field: %w", f[0], err)
		}
	}
	if err := writeFilePart(writer, "image", image, "original.jpg"); err != nil {
		return nil, err
	}
	if err := writeFilePart(writer, "mask", mask, "mask.png"); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, EditURL(upstream.BaseURL), body)
	if err != nil {
		return nil, fmt.Errorf("create edit request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+upstream.APIKey)
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func writeFilePart(writer *multipart.Writer, field string, part Part, fallbackName string) error {
	name := strings.TrimSpace(part.Filename)
	if name == "" {
		name = fallbackName
	}
	w, err := writer.CreateFormFile(field, name)
	if err != nil {
		return fmt.Errorf("create %s part: %w", field, err)
	}
	if _, err := w.Write(part.Data); err != nil {
		return fmt.Errorf("write %s part: %w", field, err)
	}
	return nil
}
