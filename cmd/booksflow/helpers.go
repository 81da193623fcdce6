package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/booksflow/booksflow/internal/books"
	"github.com/booksflow/booksflow/internal/config"
	"github.com/booksflow/booksflow/internal/engine"
	"github.com/booksflow/booksflow/internal/llm"
	"github.com/booksflow/booksflow/internal/ocr"
	"github.com/booksflow/booksflow/internal/plaid"
	"github.com/booksflow/booksflow/internal/resilience"
	"github.com/booksflow/booksflow/internal/service"
	"github.com/booksflow/booksflow/internal/storage"
)

// openStorage opens the SQLite database and runs any pending migrations.
// Callers own the returned storage and must Close it.
func openStorage(ctx context.Context) (*storage.SQLiteStorage, error) {
	dbPath := viper.GetString("database.path")
	if dbPath == "" {
		dbPath = config.DefaultDatabasePath()
	}
	dbPath = config.ExpandPath(dbPath)

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

func newInvoker() *resilience.Invoker {
	viper.SetDefault("resilience.breaker_threshold", 5)
	viper.SetDefault("resilience.breaker_recovery", time.Minute)
	registry := resilience.NewRegistry(
		viper.GetInt("resilience.breaker_threshold"),
		viper.GetDuration("resilience.breaker_recovery"),
	)
	return resilience.NewInvoker(registry, slog.Default())
}

func engineOptions() engine.Options {
	opts := engine.DefaultOptions()
	if v := viper.GetInt("batch.size"); v > 0 {
		opts.BatchSize = v
	}
	if viper.IsSet("batch.delay") {
		opts.InterBatchDelay = viper.GetDuration("batch.delay")
	}
	if v := viper.GetInt("retry.max_attempts"); v > 0 {
		opts.Retry.MaxAttempts = v
	}
	if viper.IsSet("retry.base_delay") {
		opts.Retry.BaseDelay = viper.GetDuration("retry.base_delay")
	}
	if viper.IsSet("retry.max_delay") {
		opts.Retry.MaxDelay = viper.GetDuration("retry.max_delay")
	}
	return opts
}

func newOCRClient() (*ocr.Client, error) {
	return ocr.NewClient(ocr.Config{
		BaseURL:   viper.GetString("ocr.base_url"),
		APIKey:    viper.GetString("ocr.api_key"),
		RateLimit: viper.GetInt("ocr.rate_limit"),
		Timeout:   viper.GetDuration("ocr.timeout"),
	}, slog.Default())
}

func newClassifier() (*llm.Classifier, error) {
	return llm.NewClassifier(llm.Config{
		Provider:  viper.GetString("llm.provider"),
		APIKey:    viper.GetString("llm.api_key"),
		Model:     viper.GetString("llm.model"),
		CacheTTL:  viper.GetDuration("llm.cache_ttl"),
		MaxTokens: viper.GetInt("llm.max_tokens"),
		RateLimit: viper.GetInt("llm.rate_limit"),
	}, slog.Default())
}

// newEngine wires the reconciliation engine from configuration. The OCR
// client and classifier are constructed lazily by the commands that need
// them; commands that only match or link pass nothing remote.
func newEngine(store *storage.SQLiteStorage, needsOCR, needsClassifier bool) (*engine.Engine, error) {
	var (
		ocrClient   service.OCRClient
		categorizer service.Categorizer
	)

	if needsOCR {
		c, err := newOCRClient()
		if err != nil {
			return nil, fmt.Errorf("failed to create extraction client: %w", err)
		}
		ocrClient = c
	}
	if needsClassifier {
		c, err := newClassifier()
		if err != nil {
			return nil, fmt.Errorf("failed to create classifier: %w", err)
		}
		categorizer = c
	}

	return engine.New(store, ocrClient, categorizer, newInvoker(), engineOptions()), nil
}

func newBooksClient(ctx context.Context) (*books.Client, error) {
	return books.NewClient(ctx, books.Config{
		BaseURL:      viper.GetString("books.base_url"),
		TokenURL:     viper.GetString("books.token_url"),
		ClientID:     viper.GetString("books.client_id"),
		ClientSecret: viper.GetString("books.client_secret"),
		AccessToken:  viper.GetString("books.access_token"),
		Timeout:      viper.GetDuration("books.timeout"),
	}, slog.Default())
}

func newPlaidClient() (*plaid.Client, error) {
	return plaid.NewClient(plaid.Config{
		ClientID:    viper.GetString("plaid.client_id"),
		Secret:      viper.GetString("plaid.secret"),
		Environment: viper.GetString("plaid.environment"),
		AccessToken: viper.GetString("plaid.access_token"),
	}, slog.Default())
}

// parseWindow builds a date window centered on a receipt date, or spanning
// explicit --start/--end flags when given. Dates use YYYY-MM-DD.
func parseWindow(startStr, endStr string, center time.Time, days int) (service.DateWindow, error) {
	if startStr != "" || endStr != "" {
		if startStr == "" || endStr == "" {
			return service.DateWindow{}, fmt.Errorf("--start and --end must be given together")
		}
		start, err := time.Parse("2006-01-02", startStr)
		if err != nil {
			return service.DateWindow{}, fmt.Errorf("invalid start date %q: %w", startStr, err)
		}
		end, err := time.Parse("2006-01-02", endStr)
		if err != nil {
			return service.DateWindow{}, fmt.Errorf("invalid end date %q: %w", endStr, err)
		}
		if end.Before(start) {
			return service.DateWindow{}, fmt.Errorf("end date precedes start date")
		}
		return service.DateWindow{Start: start, End: end.Add(24*time.Hour - time.Nanosecond)}, nil
	}

	if days <= 0 {
		days = 14
	}
	return service.DateWindow{
		Start: center.AddDate(0, 0, -days),
		End:   center.AddDate(0, 0, days),
	}, nil
}

// contentTypeFor maps a receipt file extension to its MIME type.
func contentTypeFor(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return "application/pdf"
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	case ".heic":
		return "image/heic"
	default:
		return "application/octet-stream"
	}
}
