package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCrawlerErrorMessage(t *testing.T) {
	cause := fmt.Errorf("connection refused")

	err := NewFetch("solr", "listing request failed", cause).WithPage(3)
	assert.Equal(t, "[fetch] solr page=3: listing request failed - connection refused", err.Error())
	assert.ErrorIs(t, err, cause)

	err = NewParse("solr", "detail has no documents", nil).WithRef("abc")
	assert.Equal(t, "[parse] solr ref=abc: detail has no documents", err.Error())
}

func TestCrawlerErrorIsFatal(t *testing.T) {
	testCases := []struct {
		err   *CrawlerError
		fatal bool
	}{
		{NewFetch("x", "m", nil), true},
		{NewIO("x", "m", nil), true},
		{NewRateLimit("x", "60"), true},
		{NewParse("x", "m", nil), false},
	}

	for _, tc := range testCases {
		assert.Equal(t, tc.fatal, tc.err.IsFatal(), string(tc.err.Type))
	}
}

func TestWithPageDoesNotMutate(t *testing.T) {
	base := NewFetch("x", "m", nil)
	paged := base.WithPage(2)

	assert.Equal(t, NoPage, base.Page)
	assert.Equal(t, 2, paged.Page)
}

func TestAsAndIsType(t *testing.T) {
	wrapped := fmt.Errorf("outer: %w", NewRateLimit("http", ""))

	ce, ok := As(wrapped)
	assert.True(t, ok)
	assert.Equal(t, "rate limited", ce.Message)
	assert.True(t, IsType(wrapped, ErrorTypeRateLimit))
	assert.False(t, IsType(wrapped, ErrorTypeParse))

	_, ok = As(fmt.Errorf("plain"))
	assert.False(t, ok)
}
