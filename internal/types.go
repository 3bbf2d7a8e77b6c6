package internal

import (
	"sjsage522/listupjorei/helpers"
	"sjsage522/listupjorei/internal/crawler"
	"sjsage522/listupjorei/services/publisher"
)

// Dependencies holds all service dependencies of a crawl.
// Publisher and ErrorLog are optional.
type Dependencies struct {
	Source    crawler.Source
	Fetcher   crawler.Fetcher
	Writer    crawler.RecordWriter
	Publisher publisher.Publisher
	ErrorLog  helpers.LoggerInterface
}
