package books

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/booksflow/booksflow/internal/common"
	"github.com/booksflow/booksflow/internal/service"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(context.Background(), Config{
		BaseURL:     server.URL,
		AccessToken: "test-token",
		Timeout:     5 * time.Second,
	}, slog.New(slog.NewTextHandler(discard{}, nil)))
	require.NoError(t, err)
	return client
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

func window(start, end string) service.DateWindow {
	s, _ := time.Parse("2006-01-02", start)
	e, _ := time.Parse("2006-01-02", end)
	return service.DateWindow{Start: s, End: e.Add(24*time.Hour - time.Nanosecond)}
}

func TestClient_FetchEntries(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/accounts/checking/entries", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		assert.Equal(t, "2026-03-01", r.URL.Query().Get("start"))

		_, _ = w.Write([]byte(`{"entries": [
			{"id": "e-1", "date": "2026-03-14", "description": "STARBUCKS STORE 0875", "vendor": "Starbucks", "amount": "12.50", "account": "checking"},
			{"id": "e-2", "date": "2026-03-15", "description": "PENDING CHARGE", "amount": "3.00", "pending": true},
			{"id": "e-3", "date": "2026-04-20", "description": "OUT OF WINDOW", "amount": "9.99"}
		]}`))
	})

	entries, err := client.FetchEntries(context.Background(), "checking", window("2026-03-01", "2026-03-31"))
	require.NoError(t, err)

	// Pending and out-of-window entries are dropped.
	require.Len(t, entries, 1)
	assert.Equal(t, "e-1", entries[0].ID)
	assert.InDelta(t, 12.50, entries[0].Amount, 1e-9)
	assert.Equal(t, "Starbucks", entries[0].Vendor)
	assert.Equal(t, "checking", entries[0].Account)
	assert.Equal(t, "books", entries[0].Source)
}

func TestClient_FetchEntriesDefaultsAccount(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"entries": [
			{"id": "e-1", "date": "2026-03-14", "description": "COFFEE", "amount": "4.25"}
		]}`))
	})

	entries, err := client.FetchEntries(context.Background(), "savings", window("2026-03-01", "2026-03-31"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "savings", entries[0].Account)
}

func TestClient_FetchEntriesRequiresAccount(t *testing.T) {
	client := newTestClient(t, func(_ http.ResponseWriter, _ *http.Request) {
		t.Fatal("no request expected")
	})

	_, err := client.FetchEntries(context.Background(), "  ", window("2026-03-01", "2026-03-31"))
	require.Error(t, err)

	var validationErr *common.ValidationError
	assert.ErrorAs(t, err, &validationErr)
}

func TestClient_FetchEntriesMalformed(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing id", `{"entries": [{"date": "2026-03-14", "amount": "1.00"}]}`},
		{"bad date", `{"entries": [{"id": "e-1", "date": "14/03/2026", "amount": "1.00"}]}`},
		{"bad amount", `{"entries": [{"id": "e-1", "date": "2026-03-14", "amount": "twelve"}]}`},
		{"not JSON", `<html>oops</html>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := client.FetchEntries(context.Background(), "checking", window("2026-03-01", "2026-03-31"))
			require.Error(t, err)
			assert.ErrorIs(t, err, common.ErrMalformedResponse)
		})
	}
}

func TestClient_FetchEntriesUnauthorized(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := client.FetchEntries(context.Background(), "checking", window("2026-03-01", "2026-03-31"))
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrUnauthorized)
}

func TestNewClient_RequiresCredentials(t *testing.T) {
	_, err := NewClient(context.Background(), Config{BaseURL: "https://books.example.com"}, slog.Default())
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrMissingConfig)
}
