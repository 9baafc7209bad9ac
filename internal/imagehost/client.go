// Package imagehost uploads product images to an external ImgBB-style hosting
// service. The host is a collaborator, not part of the core: upload failures
// surface to the admin caller, delete failures are best-effort.
package imagehost

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-faster/errors"
)

// Uploader is the handler-facing surface. Disabled() lets callers skip image
// handling when no host is configured.
type Uploader interface {
	Upload(ctx context.Context, name, base64Data string) (string, error)
	Delete(ctx context.Context, imageURL string) error
	Disabled() bool
}

// Client talks to the image host's REST API with a single API key.
type Client struct {
	endpoint string
	apiKey   string
	http     *http.Client
}

// New creates a Client. An empty apiKey produces a disabled client whose
// Upload returns an error and whose Delete is a no-op.
func New(endpoint, apiKey string) *Client {
	return &Client{
		endpoint: endpoint,
		apiKey:   apiKey,
		http:     &http.Client{Timeout: 30 * time.Second},
	}
}

// Disabled reports whether the client has no API key configured.
func (c *Client) Disabled() bool {
	return c.apiKey == ""
}

type uploadResponse struct {
	Data struct {
		URL string `json:"url"`
	} `json:"data"`
	Success bool `json:"success"`
}

// Upload sends a base64-encoded image and returns its public URL.
func (c *Client) Upload(ctx context.Context, name, base64Data string) (string, error) {
	if c.Disabled() {
		return "", errors.New("image host is not configured")
	}

	form := url.Values{}
	form.Set("key", c.apiKey)
	form.Set("name", name)
	form.Set("image", base64Data)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/upload", strings.NewReader(form.Encode()))
	if err != nil {
		return "", errors.Wrap(err, "build upload request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "upload image")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", errors.Errorf("image host returned %d: %s", resp.StatusCode, body)
	}

	var parsed uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", errors.Wrap(err, "decode upload response")
	}
	if !parsed.Success || parsed.Data.URL == "" {
		return "", errors.New("image host rejected the upload")
	}

	return parsed.Data.URL, nil
}

// Delete removes a previously uploaded image. Hosts that do not support
// API-side deletion answer 404/405; callers treat any failure as soft.
func (c *Client) Delete(ctx context.Context, imageURL string) error {
	if c.Disabled() || imageURL == "" {
		return nil
	}

	form := url.Values{}
	form.Set("key", c.apiKey)
	form.Set("url", imageURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/delete", strings.NewReader(form.Encode()))
	if err != nil {
		return errors.Wrap(err, "build delete request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrap(err, "delete image")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= http.StatusInternalServerError {
		return errors.Errorf("image host returned %d", resp.StatusCode)
	}
	return nil
}
