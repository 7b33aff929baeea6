package photo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/teqbay/accounts-api/internal/core/ports"
)

const defaultTimeout = 30 * time.Second

// Config captures the settings for the external image-hosting service.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Client talks to the image-hosting HTTP API. The service stores the bytes
// and returns a public id plus a retrievable URL; nothing is kept locally.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	logger  zerolog.Logger
}

func NewClient(cfg Config, logger zerolog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

type uploadResponse struct {
	SecureURL string `json:"secure_url"`
	PublicID  string `json:"public_id"`
	Error     struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Upload posts the image as multipart form data. Host-side rejections
// (unsupported format, too large) come back as an unsuccessful PhotoResult;
// transport failures are errors.
func (c *Client) Upload(ctx context.Context, filename string, data []byte) (*ports.PhotoResult, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("build upload form: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("build upload form: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("build upload form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/image/upload", &body)
	if err != nil {
		return nil, fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upload image: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read upload response: %w", err)
	}

	var parsed uploadResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decode upload response: %w", err)
	}

	if resp.StatusCode != http.StatusOK || parsed.PublicID == "" {
		msg := parsed.Error.Message
		if msg == "" {
			msg = fmt.Sprintf("image host rejected upload (status %d)", resp.StatusCode)
		}
		c.logger.Warn().Int("status", resp.StatusCode).Str("message", msg).Msg("photo upload rejected")
		return &ports.PhotoResult{Message: msg}, nil
	}

	return &ports.PhotoResult{
		Success:  true,
		URL:      parsed.SecureURL,
		PublicID: parsed.PublicID,
	}, nil
}

// Delete removes the hosted image by public id. A missing image counts as a
// failed deletion, not an error.
func (c *Client) Delete(ctx context.Context, publicID string) (bool, error) {
	payload, err := json.Marshal(map[string]string{"public_id": publicID})
	if err != nil {
		return false, fmt.Errorf("build destroy request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/image/destroy", bytes.NewReader(payload))
	if err != nil {
		return false, fmt.Errorf("build destroy request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return false, fmt.Errorf("delete image: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	return resp.StatusCode == http.StatusOK, nil
}
