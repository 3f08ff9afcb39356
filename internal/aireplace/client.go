// Package aireplace talks to an external image-generation endpoint to replace
// a selected image with an AI-generated one. The endpoint is an opaque
// collaborator: this client stages the outgoing PNG through the temp-file
// manager, posts it with the user's prompt, and decodes whatever image comes
// back. Retry policy, if any, belongs to the caller.
package aireplace

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/slidetools/slidekit/internal/imaging"
	"github.com/slidetools/slidekit/internal/tempfiles"
)

// DefaultTimeout bounds one replacement round-trip; generation endpoints are
// slow, so it is generous.
const DefaultTimeout = 120 * time.Second

// Client posts images to a replacement endpoint. Safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	temps      *tempfiles.Manager
	log        zerolog.Logger
}

// NewClient returns a client for the given endpoint base URL, staging its
// payloads through temps.
func NewClient(baseURL string, temps *tempfiles.Manager, log zerolog.Logger) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("aireplace: endpoint URL not configured")
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
		temps:      temps,
		log:        log,
	}, nil
}

// Replace sends img and prompt to the endpoint and returns the generated
// replacement image. The staged payload file is cleaned up on every exit
// path.
func (c *Client) Replace(ctx context.Context, img image.Image, prompt string) (image.Image, error) {
	requestID := uuid.NewString()
	c.log.Info().Str("request_id", requestID).Msg("requesting AI image replacement")

	var out image.Image
	err := c.temps.WithFile(".png", func(path string) error {
		if err := imaging.SavePNG(path, img); err != nil {
			return err
		}

		body, contentType, err := buildMultipart(path, prompt)
		if err != nil {
			return err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/images/replace", body)
		if err != nil {
			return fmt.Errorf("failed to build request: %w", err)
		}
		req.Header.Set("Content-Type", contentType)
		req.Header.Set("X-Request-ID", requestID)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("replacement request failed: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return fmt.Errorf("replacement endpoint returned %s: %s", resp.Status, strings.TrimSpace(string(snippet)))
		}

		decoded, _, err := image.Decode(resp.Body)
		if err != nil {
			return fmt.Errorf("failed to decode replacement image: %w", err)
		}
		out = decoded
		return nil
	})
	if err != nil {
		c.log.Warn().Err(err).Str("request_id", requestID).Msg("AI image replacement failed")
		return nil, err
	}
	return out, nil
}

// buildMultipart assembles the prompt field and the staged PNG into a
// multipart body.
func buildMultipart(imagePath, prompt string) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if err := w.WriteField("prompt", prompt); err != nil {
		return nil, "", fmt.Errorf("failed to write prompt field: %w", err)
	}

	part, err := w.CreateFormFile("image", "source.png")
	if err != nil {
		return nil, "", fmt.Errorf("failed to create image part: %w", err)
	}
	f, err := os.Open(imagePath)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open staged image: %w", err)
	}
	defer f.Close()
	if _, err := io.Copy(part, f); err != nil {
		return nil, "", fmt.Errorf("failed to copy staged image: %w", err)
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to finalize multipart body: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}
