package crawler

import (
	"fmt"

	"sjsage522/listupjorei/config"
	"sjsage522/listupjorei/logger"
)

// RateLimitCacheKey is the memcache key blocking requests after a 429/430
const RateLimitCacheKey = "jorei_rate_limited"

// NewSource creates the registry source for the configured format
func NewSource(cfg *config.Config) (Source, error) {
	var source Source
	switch cfg.Format {
	case config.FormatSolr:
		source = NewSolrSource(cfg.BaseURL)
	case config.FormatHTML:
		source = NewHTMLSource(DefaultHTMLConfig(cfg.BaseURL))
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrInvalidFormat, cfg.Format)
	}

	logger.ForSource(source.Name()).Debug().
		Str("base_url", cfg.BaseURL).
		Msg("Created source")

	return source, nil
}
