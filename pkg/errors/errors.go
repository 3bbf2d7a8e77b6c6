package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// ErrorTypeFetch represents transport and HTTP status errors
	ErrorTypeFetch ErrorType = "fetch"
	// ErrorTypeParse represents listing or detail extraction errors
	ErrorTypeParse ErrorType = "parse"
	// ErrorTypeIO represents local persistence errors
	ErrorTypeIO ErrorType = "io"
	// ErrorTypeRateLimit represents rate limiting errors
	ErrorTypeRateLimit ErrorType = "rate_limit"
	// ErrorTypeCache represents cache-related errors
	ErrorTypeCache ErrorType = "cache"
	// ErrorTypePublisher represents publisher-related errors
	ErrorTypePublisher ErrorType = "publisher"
	// ErrorTypeValidation represents validation errors
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeConfiguration represents configuration errors
	ErrorTypeConfiguration ErrorType = "configuration"
)

// NoPage marks an error that is not tied to a listing page
const NoPage = -1

// CrawlerError represents a crawler-specific error
type CrawlerError struct {
	Type    ErrorType
	Source  string
	Message string
	Err     error
	Page    int
	Ref     string
	Time    time.Time
}

// Error implements the error interface
func (e *CrawlerError) Error() string {
	where := e.Source
	if e.Page != NoPage {
		where = fmt.Sprintf("%s page=%d", where, e.Page)
	}
	if e.Ref != "" {
		where = fmt.Sprintf("%s ref=%s", where, e.Ref)
	}
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %s - %v", e.Type, where, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Type, where, e.Message)
}

// Unwrap returns the underlying error
func (e *CrawlerError) Unwrap() error {
	return e.Err
}

// IsFatal reports whether the error must abort the whole run.
// Only per-record parse failures are recoverable.
func (e *CrawlerError) IsFatal() bool {
	return e.Type != ErrorTypeParse
}

// WithPage returns a copy of the error bound to a listing page
func (e *CrawlerError) WithPage(page int) *CrawlerError {
	c := *e
	c.Page = page
	return &c
}

// WithRef returns a copy of the error bound to a record reference
func (e *CrawlerError) WithRef(ref string) *CrawlerError {
	c := *e
	c.Ref = ref
	return &c
}

// New creates a new CrawlerError
func New(errType ErrorType, source, message string, err error) *CrawlerError {
	return &CrawlerError{
		Type:    errType,
		Source:  source,
		Message: message,
		Err:     err,
		Page:    NoPage,
		Time:    time.Now(),
	}
}

// NewFetch creates a new fetch error
func NewFetch(source, message string, err error) *CrawlerError {
	return New(ErrorTypeFetch, source, message, err)
}

// NewParse creates a new parse error
func NewParse(source, message string, err error) *CrawlerError {
	return New(ErrorTypeParse, source, message, err)
}

// NewIO creates a new persistence error
func NewIO(source, message string, err error) *CrawlerError {
	return New(ErrorTypeIO, source, message, err)
}

// NewRateLimit creates a new rate limit error
func NewRateLimit(source string, retryAfter string) *CrawlerError {
	message := "rate limited"
	if retryAfter != "" {
		message = fmt.Sprintf("rate limited; retry after %s", retryAfter)
	}
	return New(ErrorTypeRateLimit, source, message, nil)
}

// NewCache creates a new cache error
func NewCache(source, message string, err error) *CrawlerError {
	return New(ErrorTypeCache, source, message, err)
}

// NewPublisher creates a new publisher error
func NewPublisher(source, message string, err error) *CrawlerError {
	return New(ErrorTypePublisher, source, message, err)
}

// NewValidation creates a new validation error
func NewValidation(source, message string) *CrawlerError {
	return New(ErrorTypeValidation, source, message, nil)
}

// NewConfiguration creates a new configuration error
func NewConfiguration(message string, err error) *CrawlerError {
	return New(ErrorTypeConfiguration, "", message, err)
}

// As extracts the first CrawlerError in err's chain
func As(err error) (*CrawlerError, bool) {
	var ce *CrawlerError
	if stderrors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

// IsType reports whether err carries a CrawlerError of the given type
func IsType(err error, errType ErrorType) bool {
	ce, ok := As(err)
	return ok && ce.Type == errType
}
