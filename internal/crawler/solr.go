package crawler

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	crawlerrors "sjsage522/listupjorei/pkg/errors"
	"sjsage522/listupjorei/pkg/jstdate"
)

const solrSelectPath = "/api/reiki/select"

// SolrSource reads the registry's Solr select API
type SolrSource struct {
	BaseURL string
}

// NewSolrSource creates a source rooted at baseURL
func NewSolrSource(baseURL string) *SolrSource {
	return &SolrSource{BaseURL: strings.TrimRight(baseURL, "/")}
}

// Name returns the source name
func (s *SolrSource) Name() string {
	return "solr"
}

// ListURL builds the select query for one listing page
func (s *SolrSource) ListURL(offset, rows int, dates jstdate.Range) string {
	q := url.Values{}
	q.Set("q", "collection:latest AND announcement_date:"+solrDateRange(dates))
	q.Set("start", strconv.Itoa(offset))
	q.Set("rows", strconv.Itoa(rows))
	q.Set("sort", "announcement_date asc,id asc")
	q.Set("fl", "id,title,announcement_date")
	return s.BaseURL + solrSelectPath + "?" + q.Encode()
}

// DetailURL builds the select query for one ordinance
func (s *SolrSource) DetailURL(ref string) string {
	q := url.Values{}
	q.Set("q", "ids:"+ref)
	q.Set("all", "true")
	return s.BaseURL + solrSelectPath + "?" + q.Encode()
}

// solrDateRange maps an inclusive JST day range onto stored UTC instants:
// [start 00:00 JST TO day after end 00:00 JST}
func solrDateRange(dates jstdate.Range) string {
	lower := "*"
	if dates.Start != nil {
		lower = dates.Start.Time().UTC().Format(time.RFC3339)
	}
	if dates.End == nil {
		return fmt.Sprintf("[%s TO *]", lower)
	}
	upper := dates.End.Time().AddDate(0, 0, 1).UTC().Format(time.RFC3339)
	return fmt.Sprintf("[%s TO %s}", lower, upper)
}

type solrResponse struct {
	Response *struct {
		NumFound int       `json:"numFound"`
		Start    int       `json:"start"`
		Docs     []solrDoc `json:"docs"`
	} `json:"response"`
}

type solrDoc struct {
	ID                string      `json:"id"`
	ReikiID           string      `json:"reiki_id"`
	Title             string      `json:"title"`
	H1                string      `json:"h1"`
	Type              string      `json:"type"`
	HTypes            []string    `json:"h_type"`
	Content           string      `json:"content"`
	MunicipalityID    string      `json:"municipality_id"`
	MunicipalityType  string      `json:"municipality_type"`
	Prefecture        string      `json:"prefecture"`
	City              string      `json:"city"`
	PrefectureKana    string      `json:"prefecture_kana"`
	CityKana          string      `json:"city_kana"`
	Area              string      `json:"area"`
	Collection        []string    `json:"collection"`
	CollectedDate     []string    `json:"collected_date"`
	UpdatedDate       []time.Time `json:"updated_date"`
	AnnouncementDate  *time.Time  `json:"announcement_date"`
	LastUpdatedDate   *time.Time  `json:"last_updated_date"`
	ReikiDates        []string    `json:"reiki_dates"`
	ReikiNumbers      []string    `json:"reiki_numbers"`
	OriginalURL       string      `json:"original_url"`
	ReikiURL          string      `json:"reiki_url"`
	HasVersion        bool        `json:"has_version"`
	FileType          string      `json:"file_type"`
	CollectedDateS    string      `json:"collected_date_s"`
	AnnouncementDateS string      `json:"announcement_date_s"`
	LastUpdatedDateS  string      `json:"last_updated_date_s"`
	UpdatedDateS      string      `json:"updated_date_s"`
}

func (s *SolrSource) decode(body []byte) (*solrResponse, *crawlerrors.CrawlerError) {
	var resp solrResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, crawlerrors.NewParse(s.Name(), "invalid select response", err)
	}
	if resp.Response == nil {
		return nil, crawlerrors.NewParse(s.Name(), "select response has no response object", nil)
	}
	return &resp, nil
}

// ExtractListing parses a select response into summaries.
// A document without id is kept with an empty Ref so page counts stay exact.
func (s *SolrSource) ExtractListing(body []byte) (Listing, error) {
	resp, perr := s.decode(body)
	if perr != nil {
		return Listing{}, perr
	}

	summaries := make([]OrdinanceSummary, 0, len(resp.Response.Docs))
	for _, doc := range resp.Response.Docs {
		summaries = append(summaries, OrdinanceSummary{
			Ref:   strings.TrimSpace(doc.ID),
			Title: doc.Title,
			Date:  toDate(doc.AnnouncementDate),
		})
	}

	return Listing{Summaries: summaries, Total: resp.Response.NumFound}, nil
}

// ExtractDetail parses the single-document select response for summary
func (s *SolrSource) ExtractDetail(body []byte, summary OrdinanceSummary) (*OrdinanceRecord, error) {
	resp, perr := s.decode(body)
	if perr != nil {
		return nil, perr.WithRef(summary.Ref)
	}

	if len(resp.Response.Docs) == 0 {
		return nil, crawlerrors.NewParse(s.Name(), "detail has no documents", nil).WithRef(summary.Ref)
	}

	doc := resp.Response.Docs[0]
	if doc.ID != summary.Ref {
		return nil, crawlerrors.NewParse(s.Name(), fmt.Sprintf("detail id %q does not match", doc.ID), nil).WithRef(summary.Ref)
	}
	if strings.TrimSpace(doc.Title) == "" {
		return nil, crawlerrors.NewParse(s.Name(), "detail has no title", nil).WithRef(summary.Ref)
	}

	updated := make([]jstdate.Date, 0, len(doc.UpdatedDate))
	for _, t := range doc.UpdatedDate {
		updated = append(updated, jstdate.FromTime(t))
	}

	return &OrdinanceRecord{
		ID:               doc.ID,
		ReikiID:          doc.ReikiID,
		Title:            doc.Title,
		H1:               doc.H1,
		Type:             doc.Type,
		HTypes:           doc.HTypes,
		Content:          doc.Content,
		MunicipalityID:   doc.MunicipalityID,
		MunicipalityType: doc.MunicipalityType,
		Prefecture:       doc.Prefecture,
		City:             doc.City,
		PrefectureKana:   doc.PrefectureKana,
		CityKana:         doc.CityKana,
		Area:             doc.Area,
		Collection:       doc.Collection,
		CollectedDate:    doc.CollectedDate,
		AnnouncementDate: toDate(doc.AnnouncementDate),
		LastUpdatedDate:  toDate(doc.LastUpdatedDate),
		UpdatedDates:     updated,
		ReikiDates:       doc.ReikiDates,
		ReikiNumbers:     doc.ReikiNumbers,
		OriginalURL:      doc.OriginalURL,
		ReikiURL:         doc.ReikiURL,
		SourceURL:        s.DetailURL(summary.Ref),
		HasVersion:       doc.HasVersion,
		FileType:         doc.FileType,
		DisplayDates: DisplayDates{
			Collected:    doc.CollectedDateS,
			Announcement: doc.AnnouncementDateS,
			LastUpdated:  doc.LastUpdatedDateS,
			Updated:      doc.UpdatedDateS,
		},
	}, nil
}

func toDate(t *time.Time) *jstdate.Date {
	if t == nil {
		return nil
	}
	d := jstdate.FromTime(*t)
	return &d
}
