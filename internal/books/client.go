// Package books fetches ledger entries from the accounting platform's API.
package books

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/booksflow/booksflow/internal/common"
	"github.com/booksflow/booksflow/internal/model"
	"github.com/booksflow/booksflow/internal/service"
)

// sourceName tags entries pulled from the books platform.
const sourceName = "books"

// Config holds configuration for the books platform client.
type Config struct {
	BaseURL      string
	TokenURL     string
	ClientID     string
	ClientSecret string
	// AccessToken bypasses the client-credentials flow when set. Used by
	// tests and by deployments with long-lived personal tokens.
	AccessToken string
	Timeout     time.Duration
}

// Client pulls ledger entries from the accounting platform. It implements
// the service.LedgerSource interface.
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	baseURL    string
}

// NewClient creates a books platform client. Authentication goes through
// oauth2: either a static access token or the client-credentials flow.
func NewClient(ctx context.Context, cfg Config, logger *slog.Logger) (*Client, error) {
	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		return nil, fmt.Errorf("%w: books base URL is required", common.ErrMissingConfig)
	}

	var source oauth2.TokenSource
	switch {
	case cfg.AccessToken != "":
		source = oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.AccessToken})
	case cfg.ClientID != "" && cfg.ClientSecret != "" && cfg.TokenURL != "":
		creds := &clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.TokenURL,
		}
		source = creds.TokenSource(ctx)
	default:
		return nil, fmt.Errorf("%w: books access token or client credentials are required", common.ErrMissingConfig)
	}

	httpClient := oauth2.NewClient(ctx, source)
	if cfg.Timeout > 0 {
		httpClient.Timeout = cfg.Timeout
	} else {
		httpClient.Timeout = 30 * time.Second
	}

	return &Client{
		httpClient: httpClient,
		logger:     logger,
		baseURL:    baseURL,
	}, nil
}

// Wire types. Amounts arrive as decimal strings; the platform refuses to put
// floats on the wire.
type entriesResponse struct {
	Entries []wireEntry `json:"entries"`
}

type wireEntry struct {
	ID          string `json:"id"`
	Date        string `json:"date"`
	Description string `json:"description"`
	Vendor      string `json:"vendor"`
	Amount      string `json:"amount"`
	Account     string `json:"account"`
	Pending     bool   `json:"pending"`
}

// FetchEntries pulls ledger entries for one account inside the date window.
// Pending entries are skipped; they change id and amount once posted.
func (c *Client) FetchEntries(ctx context.Context, account string, window service.DateWindow) ([]model.LedgerEntry, error) {
	if strings.TrimSpace(account) == "" {
		return nil, common.NewValidationError("account", "account is required")
	}

	u, err := url.Parse(fmt.Sprintf("%s/v1/accounts/%s/entries", c.baseURL, url.PathEscape(account)))
	if err != nil {
		return nil, fmt.Errorf("failed to build entries URL: %w", err)
	}
	q := u.Query()
	q.Set("start", window.Start.Format("2006-01-02"))
	q.Set("end", window.End.Format("2006-01-02"))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	c.logger.Debug("requesting books entries",
		"account", account,
		"start", window.Start.Format("2006-01-02"),
		"end", window.End.Format("2006-01-02"))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("books request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: books API status %d", common.ErrUnauthorized, resp.StatusCode)
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("%w: books API status %d", common.ErrRateLimit, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("books API error (status %d): %s", resp.StatusCode, string(body))
	}

	var payload entriesResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrMalformedResponse, err)
	}

	entries := make([]model.LedgerEntry, 0, len(payload.Entries))
	for _, we := range payload.Entries {
		if we.Pending {
			continue
		}

		entry, err := convertEntry(we, account)
		if err != nil {
			return nil, err
		}
		if !window.Contains(entry.Date) {
			continue
		}
		entries = append(entries, entry)
	}

	c.logger.Info("fetched books entries", "account", account, "count", len(entries))
	return entries, nil
}

// convertEntry maps one wire entry into the domain model.
func convertEntry(we wireEntry, account string) (model.LedgerEntry, error) {
	if we.ID == "" {
		return model.LedgerEntry{}, fmt.Errorf("%w: entry missing id", common.ErrMalformedResponse)
	}

	date, err := time.Parse("2006-01-02", we.Date)
	if err != nil {
		return model.LedgerEntry{}, fmt.Errorf("%w: entry %s has invalid date %q", common.ErrMalformedResponse, we.ID, we.Date)
	}

	amount, err := decimal.NewFromString(we.Amount)
	if err != nil {
		return model.LedgerEntry{}, fmt.Errorf("%w: entry %s has invalid amount %q", common.ErrMalformedResponse, we.ID, we.Amount)
	}

	entryAccount := we.Account
	if entryAccount == "" {
		entryAccount = account
	}

	value, _ := amount.Float64()
	return model.LedgerEntry{
		ID:          we.ID,
		Date:        date,
		Description: we.Description,
		Vendor:      we.Vendor,
		Account:     entryAccount,
		Source:      sourceName,
		Amount:      value,
	}, nil
}
