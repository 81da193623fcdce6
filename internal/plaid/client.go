// Package plaid imports ledger entries from the Plaid transactions API.
package plaid

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/plaid/plaid-go/v20/plaid"

	"github.com/booksflow/booksflow/internal/common"
	"github.com/booksflow/booksflow/internal/model"
	"github.com/booksflow/booksflow/internal/resilience"
	"github.com/booksflow/booksflow/internal/service"
)

// sourceName tags entries imported through Plaid.
const sourceName = "plaid"

// Config holds Plaid API configuration.
type Config struct {
	ClientID    string
	Secret      string
	Environment string // sandbox or production
	AccessToken string
}

// Validate ensures all required fields are present.
func (c *Config) Validate() error {
	if c.ClientID == "" {
		return fmt.Errorf("%w: plaid client ID is required", common.ErrMissingConfig)
	}
	if c.Secret == "" {
		return fmt.Errorf("%w: plaid secret is required", common.ErrMissingConfig)
	}
	if c.AccessToken == "" {
		return fmt.Errorf("%w: plaid access token is required", common.ErrMissingConfig)
	}
	switch c.Environment {
	case "sandbox", "production":
		return nil
	case "":
		return fmt.Errorf("%w: plaid environment is required", common.ErrMissingConfig)
	default:
		return fmt.Errorf("%w: plaid environment must be sandbox or production", common.ErrInvalidConfig)
	}
}

// Client fetches transactions from Plaid and converts them into ledger
// entries. It implements the service.LedgerSource interface.
type Client struct {
	client      *plaid.APIClient
	logger      *slog.Logger
	retryOpts   service.RetryOptions
	accessToken string
}

// NewClient creates a new Plaid client with the given configuration.
func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	configuration := plaid.NewConfiguration()
	configuration.AddDefaultHeader("PLAID-CLIENT-ID", cfg.ClientID)
	configuration.AddDefaultHeader("PLAID-SECRET", cfg.Secret)

	switch cfg.Environment {
	case "sandbox":
		configuration.UseEnvironment(plaid.Sandbox)
	case "production":
		configuration.UseEnvironment(plaid.Production)
	}

	return &Client{
		client:      plaid.NewAPIClient(configuration),
		accessToken: cfg.AccessToken,
		logger:      logger.With("component", "plaid"),
		retryOpts: service.RetryOptions{
			MaxAttempts: 3,
			BaseDelay:   time.Second,
			MaxDelay:    30 * time.Second,
		},
	}, nil
}

// FetchEntries pulls posted transactions inside the window, paginating
// through Plaid's API. When account is non-empty the query is scoped to that
// Plaid account id.
func (c *Client) FetchEntries(ctx context.Context, account string, window service.DateWindow) ([]model.LedgerEntry, error) {
	if window.Start.After(window.End) {
		return nil, common.NewValidationError("window", "start date must not be after end date")
	}

	c.logger.Info("fetching transactions from Plaid",
		"account", account,
		"start", window.Start.Format("2006-01-02"),
		"end", window.End.Format("2006-01-02"))

	var all []plaid.Transaction
	offset := int32(0)
	const pageSize = int32(500) // Plaid's max page size

	for {
		var page []plaid.Transaction

		retryErr := resilience.WithRetry(ctx, func(ctx context.Context) error {
			request := plaid.NewTransactionsGetRequest(
				c.accessToken,
				window.Start.Format("2006-01-02"),
				window.End.Format("2006-01-02"),
			)
			options := plaid.TransactionsGetRequestOptions{
				Count:  plaid.PtrInt32(pageSize),
				Offset: plaid.PtrInt32(offset),
			}
			if account != "" {
				options.SetAccountIds([]string{account})
			}
			request.SetOptions(options)

			resp, _, err := c.client.PlaidApi.TransactionsGet(ctx).TransactionsGetRequest(*request).Execute()
			if err != nil {
				if plaidErr := extractPlaidError(err); plaidErr != nil {
					if plaidErr.ErrorCode == "RATE_LIMIT_EXCEEDED" {
						c.logger.Warn("plaid rate limit hit, will retry", "error", plaidErr.ErrorMessage)
						return &common.RetryableError{Err: fmt.Errorf("%w: %s", common.ErrRateLimit, plaidErr.ErrorMessage), Retryable: true}
					}
					return fmt.Errorf("plaid API error: %s - %s", plaidErr.ErrorCode, plaidErr.ErrorMessage)
				}
				return fmt.Errorf("failed to fetch transactions: %w", err)
			}

			page = resp.GetTransactions()
			c.logger.Debug("fetched transaction page",
				"count", len(page),
				"offset", offset,
				"total", resp.GetTotalTransactions())
			return nil
		}, c.retryOpts)

		if retryErr != nil {
			return nil, retryErr
		}

		all = append(all, page...)
		if len(page) < int(pageSize) {
			break
		}
		offset += pageSize
	}

	entries := make([]model.LedgerEntry, 0, len(all))
	for _, pt := range all {
		if pt.GetPending() {
			continue
		}
		entry, err := c.convertTransaction(pt)
		if err != nil {
			c.logger.Warn("skipping unconvertible transaction",
				"transaction_id", pt.GetTransactionId(),
				"error", err)
			continue
		}
		entries = append(entries, entry)
	}

	c.logger.Info("imported plaid entries", "count", len(entries))
	return entries, nil
}

// convertTransaction maps one Plaid transaction into the domain model.
func (c *Client) convertTransaction(pt plaid.Transaction) (model.LedgerEntry, error) {
	date, err := time.Parse("2006-01-02", pt.GetDate())
	if err != nil {
		return model.LedgerEntry{}, fmt.Errorf("invalid date %q: %w", pt.GetDate(), err)
	}

	vendor := pt.GetMerchantName()
	if vendor == "" {
		vendor = pt.GetName()
	}

	return model.LedgerEntry{
		ID:          pt.GetTransactionId(),
		Date:        date,
		Description: pt.GetName(),
		Vendor:      cleanVendorName(vendor),
		Account:     pt.GetAccountId(),
		Source:      sourceName,
		Amount:      pt.GetAmount(),
	}, nil
}

// cleanVendorName strips trailing store/transaction numbers and corporate
// suffixes so vendors read consistently across import sources.
func cleanVendorName(name string) string {
	parts := strings.Fields(name)
	if len(parts) > 1 {
		last := parts[len(parts)-1]
		if len(last) > 5 && isAllDigits(last) {
			parts = parts[:len(parts)-1]
		}
	}
	name = strings.Join(parts, " ")

	suffixes := []string{" LLC", " Llc", " INC", " Inc", " CORP", " Corp", " LTD", " Ltd", " CO", " Co"}
	for _, suffix := range suffixes {
		name = strings.TrimSuffix(name, suffix)
	}

	return strings.TrimSpace(name)
}

func isAllDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}

// extractPlaidError pulls the structured Plaid error out of a generic API
// error, if present.
func extractPlaidError(err error) *plaid.PlaidError {
	plaidErr, convErr := plaid.ToPlaidError(err)
	if convErr != nil {
		return nil
	}
	return &plaidErr
}
