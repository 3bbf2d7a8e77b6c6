package crawler

import (
	"context"

	"sjsage522/listupjorei/pkg/jstdate"
)

// OrdinanceSummary is one row of a listing page
type OrdinanceSummary struct {
	Ref   string
	Title string
	Date  *jstdate.Date
}

// OrdinanceRecord is the full record of one ordinance as persisted on disk
type OrdinanceRecord struct {
	ID               string         `json:"id"`
	ReikiID          string         `json:"reiki_id,omitempty"`
	Title            string         `json:"title"`
	H1               string         `json:"h1,omitempty"`
	Type             string         `json:"jorei_type,omitempty"`
	HTypes           []string       `json:"h_type,omitempty"`
	Content          string         `json:"content,omitempty"`
	MunicipalityID   string         `json:"municipality_id,omitempty"`
	MunicipalityType string         `json:"municipality_type,omitempty"`
	Prefecture       string         `json:"prefecture,omitempty"`
	City             string         `json:"city,omitempty"`
	PrefectureKana   string         `json:"prefecture_kana,omitempty"`
	CityKana         string         `json:"city_kana,omitempty"`
	Area             string         `json:"area,omitempty"`
	Collection       []string       `json:"collection,omitempty"`
	CollectedDate    []string       `json:"collected_date,omitempty"`
	AnnouncementDate *jstdate.Date  `json:"announcement_date,omitempty"`
	LastUpdatedDate  *jstdate.Date  `json:"last_updated_date,omitempty"`
	UpdatedDates     []jstdate.Date `json:"updated_date,omitempty"`
	ReikiDates       []string       `json:"reiki_dates,omitempty"`
	ReikiNumbers     []string       `json:"reiki_numbers,omitempty"`
	OriginalURL      string         `json:"original_url,omitempty"`
	ReikiURL         string         `json:"reiki_url,omitempty"`
	SourceURL        string         `json:"source_url"`
	HasVersion       bool           `json:"has_version"`
	FileType         string         `json:"file_type,omitempty"`
	DisplayDates     DisplayDates   `json:"display_dates"`
}

// DisplayDates are the registry's own pre-formatted date strings
type DisplayDates struct {
	Collected    string `json:"collected,omitempty"`
	Announcement string `json:"announcement,omitempty"`
	LastUpdated  string `json:"last_updated,omitempty"`
	Updated      string `json:"updated,omitempty"`
}

// IndexEntry is one line of the collection index
type IndexEntry struct {
	ID          string        `json:"id"`
	ReikiID     string        `json:"reiki_id,omitempty"`
	Title       string        `json:"title"`
	Path        string        `json:"path"`
	Date        *jstdate.Date `json:"announcement_date,omitempty"`
	UpdatedDate *jstdate.Date `json:"updated_date,omitempty"`
	Prefecture  string        `json:"prefecture,omitempty"`
	City        string        `json:"city,omitempty"`
}

// Listing is the parsed content of one listing page
type Listing struct {
	Summaries []OrdinanceSummary
	// Total is the registry's reported number of matches, -1 when unknown
	Total int
}

// Source encapsulates one registry's request shapes and markup grammar.
// Extraction methods are pure: no I/O, no shared state.
type Source interface {
	// Name returns the source name for logging and diagnostics
	Name() string

	// ListURL returns the URL of the listing page holding up to rows
	// summaries starting at the zero-based offset
	ListURL(offset, rows int, dates jstdate.Range) string

	// DetailURL returns the URL of the detail page for ref
	DetailURL(ref string) string

	// ExtractListing parses a listing page
	ExtractListing(body []byte) (Listing, error)

	// ExtractDetail parses a detail page into a record
	ExtractDetail(body []byte, summary OrdinanceSummary) (*OrdinanceRecord, error)
}

// Fetcher issues one GET request and returns the body
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// RecordWriter persists a record and its index entry
type RecordWriter interface {
	Write(record *OrdinanceRecord) (IndexEntry, error)
}
