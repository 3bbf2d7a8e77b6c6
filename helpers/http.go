package helpers

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"slices"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/net/html/charset"

	crawlerrors "sjsage522/listupjorei/pkg/errors"
)

const userAgent = "Mozilla/5.0 (compatible; listupjorei/1.0; +https://jorei.slis.doshisha.ac.jp)"

// HTTPClient issues one GET per call. It never retries.
type HTTPClient struct {
	client *resty.Client
}

// NewHTTPClient creates a client with the given timeout. insecureSkipVerify
// disables certificate verification; the registry serves an incomplete chain.
func NewHTTPClient(timeout time.Duration, insecureSkipVerify bool) *HTTPClient {
	client := resty.New()
	client.SetTimeout(timeout)
	client.SetHeader("User-Agent", userAgent)
	client.SetHeader("Accept", "application/json,text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")
	client.SetHeader("Accept-Language", "ja,en-US;q=0.8,en;q=0.7")
	if insecureSkipVerify {
		client.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true}) //nolint:gosec
	}

	return &HTTPClient{client: client}
}

// Fetch sends a GET request and returns the body converted to UTF-8.
// Non-2xx responses are returned as fetch errors, 429/430 as rate limit errors.
func (h *HTTPClient) Fetch(ctx context.Context, url string) ([]byte, error) {
	resp, err := h.client.R().
		SetContext(ctx).
		Get(url)
	if err != nil {
		return nil, crawlerrors.NewFetch("http", fmt.Sprintf("GET %s failed", url), err)
	}

	// Check for rate limiting
	if slices.Contains([]int{http.StatusTooManyRequests, 430}, resp.StatusCode()) {
		return nil, crawlerrors.NewRateLimit("http", resp.Header().Get("Retry-After"))
	}

	if !resp.IsSuccess() {
		return nil, crawlerrors.NewFetch("http", fmt.Sprintf("GET %s unexpected status code: %d", url, resp.StatusCode()), nil)
	}

	body, err := toUTF8(resp.Body(), resp.Header().Get("Content-Type"))
	if err != nil {
		return nil, crawlerrors.NewFetch("http", "failed to read converted UTF-8 body", err)
	}

	return body, nil
}

// toUTF8 converts body only when the server declared a non UTF-8 charset
// (header or BOM). Sniffed guesses are ignored: they only look at the first
// kilobyte and would mangle Japanese text that starts after it.
func toUTF8(body []byte, contentType string) ([]byte, error) {
	encoding, name, certain := charset.DetermineEncoding(body, contentType)
	if !certain || name == "utf-8" {
		return body, nil
	}

	utf8Reader := encoding.NewDecoder().Reader(bytes.NewReader(body))
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, utf8Reader); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}
