package helpers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	crawlerrors "sjsage522/listupjorei/pkg/errors"
)

func TestFetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Check that headers are set
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		assert.NotEmpty(t, r.Header.Get("Accept"))
		assert.Equal(t, "rows=50", r.URL.RawQuery)

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"title":"東京都公害防止条例"}`))
	}))
	defer server.Close()

	client := NewHTTPClient(5*time.Second, false)
	body, err := client.Fetch(context.Background(), server.URL+"?rows=50")
	assert.NoError(t, err)
	assert.Equal(t, `{"title":"東京都公害防止条例"}`, string(body))
}

func TestFetchNonUTF8(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=iso-8859-1")
		w.WriteHeader(http.StatusOK)
		// "café" in ISO-8859-1
		w.Write([]byte{'c', 'a', 'f', 0xE9})
	}))
	defer server.Close()

	client := NewHTTPClient(5*time.Second, false)
	body, err := client.Fetch(context.Background(), server.URL)
	assert.NoError(t, err)
	assert.Equal(t, "café", string(body))
}

func TestFetchUndeclaredCharsetIsUntouched(t *testing.T) {
	payload := []byte(`{"note":"ascii only prefix, then 条例"}`)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write(payload)
	}))
	defer server.Close()

	client := NewHTTPClient(5*time.Second, false)
	body, err := client.Fetch(context.Background(), server.URL)
	assert.NoError(t, err)
	assert.Equal(t, payload, body)
}

func TestFetchError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewHTTPClient(5*time.Second, false)
	_, err := client.Fetch(context.Background(), server.URL)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status code: 500")
	assert.True(t, crawlerrors.IsType(err, crawlerrors.ErrorTypeFetch))

	// Test with rate limiting
	serverRateLimited := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "60")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer serverRateLimited.Close()

	_, err = client.Fetch(context.Background(), serverRateLimited.URL)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited; retry after 60")
	assert.True(t, crawlerrors.IsType(err, crawlerrors.ErrorTypeRateLimit))
}

func TestFetchCanceledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := NewHTTPClient(5*time.Second, false)
	_, err := client.Fetch(ctx, server.URL)
	assert.Error(t, err)
	assert.True(t, crawlerrors.IsType(err, crawlerrors.ErrorTypeFetch))
}

func TestFetchInvalidURL(t *testing.T) {
	client := NewHTTPClient(2*time.Second, false)
	_, err := client.Fetch(context.Background(), "http://invalid.url.that.does.not.exist")
	assert.Error(t, err)
}
