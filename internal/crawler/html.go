package crawler

import (
	"bytes"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"sjsage522/listupjorei/helpers"
	crawlerrors "sjsage522/listupjorei/pkg/errors"
	"sjsage522/listupjorei/pkg/jstdate"
)

// RefExtractorFunc extracts an ordinance reference from an attribute value
type RefExtractorFunc func(string) (string, error)

// ElementRemoval defines elements to remove from a selection before extracting text
type ElementRemoval struct {
	Selector    string // Selector to find elements to remove
	ApplyToPath string // The path to apply this to ("title", "body")
}

// HTMLSelectors contains CSS selectors for listing and detail pages
type HTMLSelectors struct {
	// Listing page
	Row     string
	Ref     string
	RefAttr string
	Title   string
	Date    string

	// Detail page
	DetailTitle      string
	DetailBody       string
	DetailPrefecture string
	DetailCity       string
	DetailDate       string
	DetailNumber     string
}

// HTMLConfig contains configuration for an HTML registry
type HTMLConfig struct {
	BaseURL        string
	ListPath       string
	DetailPath     string
	Selectors      HTMLSelectors
	RefExtractor   RefExtractorFunc
	RemoveElements []ElementRemoval
}

// DefaultHTMLConfig returns selectors for the registry's browsable pages
func DefaultHTMLConfig(baseURL string) HTMLConfig {
	return HTMLConfig{
		BaseURL:    baseURL,
		ListPath:   "/reiki/list",
		DetailPath: "/reiki/view",
		Selectors: HTMLSelectors{
			Row:              "table.reiki-list tbody tr",
			Ref:              "a.reiki-title",
			RefAttr:          "href",
			Title:            "a.reiki-title",
			Date:             "td.announcement-date",
			DetailTitle:      "h1.reiki-title",
			DetailBody:       "div.reiki-body p",
			DetailPrefecture: "dd.prefecture",
			DetailCity:       "dd.city",
			DetailDate:       "dd.announcement-date",
			DetailNumber:     "dd.reiki-number",
		},
		RefExtractor: func(link string) (string, error) {
			ref, err := helpers.GetSplitPart(link, "id=", 1)
			if err != nil {
				return "", err
			}
			return strings.Split(ref, "&")[0], nil
		},
		RemoveElements: []ElementRemoval{
			{Selector: "span.ruby, rt", ApplyToPath: "title"},
			{Selector: "span.note", ApplyToPath: "body"},
		},
	}
}

// HTMLSource extracts ordinances from HTML pages with configurable selectors
type HTMLSource struct {
	HTMLConfig
}

// NewHTMLSource creates a new HTML source
func NewHTMLSource(config HTMLConfig) *HTMLSource {
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	return &HTMLSource{HTMLConfig: config}
}

// Name returns the source name
func (s *HTMLSource) Name() string {
	return "html"
}

// ListURL returns the listing page URL
func (s *HTMLSource) ListURL(offset, rows int, dates jstdate.Range) string {
	q := url.Values{}
	q.Set("start", strconv.Itoa(offset))
	q.Set("rows", strconv.Itoa(rows))
	if dates.Start != nil {
		q.Set("from", dates.Start.String())
	}
	if dates.End != nil {
		q.Set("to", dates.End.String())
	}
	return s.BaseURL + s.ListPath + "?" + q.Encode()
}

// DetailURL returns the detail page URL
func (s *HTMLSource) DetailURL(ref string) string {
	q := url.Values{}
	q.Set("id", ref)
	return s.BaseURL + s.DetailPath + "?" + q.Encode()
}

// createDocument creates a goquery document from a page body
func (s *HTMLSource) createDocument(body []byte) (*goquery.Document, *crawlerrors.CrawlerError) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, crawlerrors.NewParse(s.Name(), "HTML parse error", err)
	}
	return doc, nil
}

// ExtractListing parses the listing rows
func (s *HTMLSource) ExtractListing(body []byte) (Listing, error) {
	doc, perr := s.createDocument(body)
	if perr != nil {
		return Listing{}, perr
	}

	var summaries []OrdinanceSummary
	doc.Find(s.Selectors.Row).Each(func(_ int, row *goquery.Selection) {
		summaries = append(summaries, s.processRow(row))
	})

	return Listing{Summaries: summaries, Total: -1}, nil
}

// processRow extracts one summary. A row without a usable reference keeps
// an empty Ref so the worker can report it.
func (s *HTMLSource) processRow(row *goquery.Selection) OrdinanceSummary {
	summary := OrdinanceSummary{}

	if refSel := row.Find(s.Selectors.Ref); refSel.Length() > 0 {
		if raw, exists := refSel.Attr(s.Selectors.RefAttr); exists {
			raw = strings.TrimSpace(raw)
			if s.RefExtractor != nil && s.Selectors.RefAttr == "href" {
				if ref, err := s.RefExtractor(raw); err == nil {
					summary.Ref = strings.TrimSpace(ref)
				}
			} else {
				summary.Ref = raw
			}
		}
	}

	if titleSel := row.Find(s.Selectors.Title); titleSel.Length() > 0 {
		clean := s.cleanSelection(titleSel, "title")
		if titleAttr, exists := clean.Attr("title"); exists && titleAttr != "" {
			summary.Title = strings.TrimSpace(titleAttr)
		} else {
			summary.Title = strings.TrimSpace(clean.Text())
		}
	}

	summary.Date = parseDisplayDate(s.processElement(row, "date", s.Selectors.Date))
	return summary
}

// ExtractDetail parses a detail page into a record
func (s *HTMLSource) ExtractDetail(body []byte, summary OrdinanceSummary) (*OrdinanceRecord, error) {
	doc, perr := s.createDocument(body)
	if perr != nil {
		return nil, perr.WithRef(summary.Ref)
	}
	page := doc.Selection

	title := s.processElement(page, "title", s.Selectors.DetailTitle)
	if title == "" {
		title = summary.Title
	}
	if title == "" {
		return nil, crawlerrors.NewParse(s.Name(), "detail has no title", nil).WithRef(summary.Ref)
	}

	bodySel := page.Find(s.Selectors.DetailBody)
	if bodySel.Length() == 0 {
		return nil, crawlerrors.NewParse(s.Name(), "detail has no body", nil).WithRef(summary.Ref)
	}
	var paragraphs []string
	bodySel.Each(func(_ int, p *goquery.Selection) {
		if text := strings.TrimSpace(s.cleanSelection(p, "body").Text()); text != "" {
			paragraphs = append(paragraphs, text)
		}
	})

	date := parseDisplayDate(s.processElement(page, "date", s.Selectors.DetailDate))
	if date == nil {
		date = summary.Date
	}

	record := &OrdinanceRecord{
		ID:               summary.Ref,
		Title:            title,
		Content:          strings.Join(paragraphs, "\n"),
		Prefecture:       s.processElement(page, "prefecture", s.Selectors.DetailPrefecture),
		City:             s.processElement(page, "city", s.Selectors.DetailCity),
		AnnouncementDate: date,
		SourceURL:        s.DetailURL(summary.Ref),
		FileType:         "html",
	}
	if number := s.processElement(page, "number", s.Selectors.DetailNumber); number != "" {
		record.ReikiNumbers = []string{number}
	}

	return record, nil
}

// cleanSelection removes specified elements from a selection before getting text
func (s *HTMLSource) cleanSelection(sel *goquery.Selection, path string) *goquery.Selection {
	if sel.Length() == 0 {
		return sel
	}

	// Clone the selection to avoid modifying the original
	clone := sel.Clone()

	for _, removal := range s.RemoveElements {
		if removal.ApplyToPath == path {
			clone.Find(removal.Selector).Remove()
		}
	}

	return clone
}

// processElement returns the trimmed text of the first match of selector
func (s *HTMLSource) processElement(sel *goquery.Selection, path string, selector string) string {
	if selector == "" {
		return ""
	}
	elementSel := sel.Find(selector).First()
	if elementSel.Length() == 0 {
		return ""
	}
	return strings.TrimSpace(s.cleanSelection(elementSel, path).Text())
}

var displayDateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"2006/1/2",
	"2006.01.02",
	"2006年1月2日",
}

// parseDisplayDate parses a Gregorian date as printed on registry pages
func parseDisplayDate(s string) *jstdate.Date {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range displayDateLayouts {
		if t, err := time.ParseInLocation(layout, s, jstdate.JST); err == nil {
			d := jstdate.FromTime(t)
			return &d
		}
	}
	return nil
}
