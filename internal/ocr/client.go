package ocr

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/booksflow/booksflow/internal/common"
	"github.com/booksflow/booksflow/internal/model"
)

// Config holds configuration for the OCR client.
type Config struct {
	BaseURL   string
	APIKey    string
	RateLimit int // requests per minute
	Timeout   time.Duration
}

// Client extracts receipt fields through a hosted vision API. It implements
// the service.OCRClient interface.
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	limiter    *rate.Limiter
	baseURL    string
	apiKey     string
}

// NewClient creates a new OCR client.
func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OCR API key is required")
	}

	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.receiptvision.io"
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}

	rpm := cfg.RateLimit
	if rpm <= 0 {
		rpm = 30
	}

	return &Client{
		baseURL: baseURL,
		apiKey:  cfg.APIKey,
		logger:  logger,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), rpm),
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}, nil
}

// extractRequest is the wire request for the extraction endpoint.
type extractRequest struct {
	Document    string `json:"document,omitempty"` // base64 payload
	Text        string `json:"text,omitempty"`     // pre-extracted text layer
	ContentType string `json:"content_type"`
}

// Extract sends the payload to the vision API and returns the parsed fields.
// Digital PDFs with a usable text layer skip the image pipeline and submit
// the text directly, which is cheaper and considerably faster.
func (c *Client) Extract(ctx context.Context, payload []byte, contentType string) (*model.ExtractedDocument, error) {
	if len(payload) == 0 {
		return nil, common.NewValidationError("payload", "payload is empty")
	}

	req := extractRequest{ContentType: contentType}
	if contentType == "application/pdf" {
		if text, ok := textLayer(payload); ok {
			c.logger.Debug("using PDF text layer fast path", "text_len", len(text))
			req.Text = text
		}
	}
	if req.Text == "" {
		req.Document = base64.StdEncoding.EncodeToString(payload)
	}

	started := time.Now()
	body, err := c.post(ctx, "/v1/extract", req)
	if err != nil {
		return nil, err
	}

	doc, err := parseExtraction(body)
	if err != nil {
		return nil, err
	}
	doc.ProcessingTime = time.Since(started)

	c.logger.Debug("extraction complete",
		"vendor", doc.Vendor,
		"confidence", doc.Confidence,
		"elapsed", doc.ProcessingTime)

	return doc, nil
}

// post sends a JSON request and returns the raw response body.
func (c *Client) post(ctx context.Context, path string, payload any) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	jsonBody, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(string(jsonBody)))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("%w: OCR API status %d", common.ErrRateLimit, resp.StatusCode)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: OCR API status %d", common.ErrUnauthorized, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("OCR API error (status %d): %s", resp.StatusCode, string(body))
	}

	return body, nil
}
