package crawler

import (
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	crawlerrors "sjsage522/listupjorei/pkg/errors"
	"sjsage522/listupjorei/pkg/jstdate"
)

const listingJSON = `{
  "responseHeader": {"status": 0},
  "response": {
    "numFound": 3,
    "start": 0,
    "docs": [
      {"id": "131016-001", "title": "千代田区生活環境条例", "announcement_date": "2002-06-24T15:00:00Z"},
      {"id": "131016-002", "title": "千代田区景観まちづくり条例", "announcement_date": "1998-03-30T15:00:00Z"},
      {"id": "", "title": "no id"}
    ]
  }
}`

const detailJSON = `{
  "response": {
    "numFound": 1,
    "start": 0,
    "docs": [{
      "id": "131016-001",
      "reiki_id": "r-001",
      "title": "千代田区生活環境条例",
      "type": "条例",
      "municipality_id": "131016",
      "municipality_type": "特別区",
      "prefecture": "東京都",
      "city": "千代田区",
      "area": "関東",
      "collection": ["latest"],
      "updated_date": ["2020-03-31T15:00:00Z"],
      "announcement_date": "2002-06-24T15:00:00Z",
      "last_updated_date": "2020-03-31T15:00:00Z",
      "reiki_numbers": ["平成14年6月25日条例第30号"],
      "original_url": "https://www.city.chiyoda.lg.jp/reiki/1.html",
      "has_version": true,
      "file_type": "html",
      "content": "第一条 この条例は、…",
      "announcement_date_s": "平成14年6月25日"
    }]
  }
}`

func TestSolrSource_ListURL(t *testing.T) {
	source := NewSolrSource("https://jorei.example.org/")

	start, _ := jstdate.Parse("2022", false)
	end, _ := jstdate.Parse("2022", true)

	raw := source.ListURL(75, 25, jstdate.Range{Start: &start, End: &end})
	u, err := url.Parse(raw)
	require.NoError(t, err)

	assert.Equal(t, "jorei.example.org", u.Host)
	assert.Equal(t, "/api/reiki/select", u.Path)
	assert.Equal(t, "25", u.Query().Get("rows"))
	assert.Equal(t, "75", u.Query().Get("start"))
	assert.Equal(t,
		"collection:latest AND announcement_date:[2021-12-31T15:00:00Z TO 2022-12-31T15:00:00Z}",
		u.Query().Get("q"))

	open, err := url.Parse(source.ListURL(0, 50, jstdate.Range{}))
	require.NoError(t, err)
	assert.Equal(t, "collection:latest AND announcement_date:[* TO *]", open.Query().Get("q"))
	assert.Equal(t, "0", open.Query().Get("start"))
}

func TestSolrSource_DetailURL(t *testing.T) {
	source := NewSolrSource("https://jorei.example.org")

	u, err := url.Parse(source.DetailURL("131016-001"))
	require.NoError(t, err)
	assert.Equal(t, "ids:131016-001", u.Query().Get("q"))
	assert.Equal(t, "true", u.Query().Get("all"))
}

func TestSolrSource_ExtractListing(t *testing.T) {
	source := NewSolrSource("https://jorei.example.org")

	listing, err := source.ExtractListing([]byte(listingJSON))
	require.NoError(t, err)

	assert.Equal(t, 3, listing.Total)
	require.Len(t, listing.Summaries, 3)
	assert.Equal(t, "131016-001", listing.Summaries[0].Ref)
	assert.Equal(t, "千代田区生活環境条例", listing.Summaries[0].Title)
	assert.Equal(t, "2002-06-25", listing.Summaries[0].Date.String())
	assert.Equal(t, "1998-03-31", listing.Summaries[1].Date.String())
	assert.Empty(t, listing.Summaries[2].Ref)
	assert.Nil(t, listing.Summaries[2].Date)
}

func TestSolrSource_ExtractListingEmpty(t *testing.T) {
	source := NewSolrSource("https://jorei.example.org")

	listing, err := source.ExtractListing([]byte(`{"response":{"numFound":0,"start":0,"docs":[]}}`))
	require.NoError(t, err)
	assert.Empty(t, listing.Summaries)
}

func TestSolrSource_ExtractListingMalformed(t *testing.T) {
	source := NewSolrSource("https://jorei.example.org")

	for _, body := range []string{`<html>`, `{"error":{"msg":"bad"}}`} {
		_, err := source.ExtractListing([]byte(body))
		assert.True(t, crawlerrors.IsType(err, crawlerrors.ErrorTypeParse), body)
	}
}

func TestSolrSource_ExtractDetail(t *testing.T) {
	source := NewSolrSource("https://jorei.example.org")

	record, err := source.ExtractDetail([]byte(detailJSON), OrdinanceSummary{Ref: "131016-001"})
	require.NoError(t, err)

	assert.Equal(t, "131016-001", record.ID)
	assert.Equal(t, "r-001", record.ReikiID)
	assert.Equal(t, "千代田区生活環境条例", record.Title)
	assert.Equal(t, "東京都", record.Prefecture)
	assert.Equal(t, "千代田区", record.City)
	assert.Equal(t, "2002-06-25", record.AnnouncementDate.String())
	assert.Equal(t, "2020-04-01", record.LastUpdatedDate.String())
	require.Len(t, record.UpdatedDates, 1)
	assert.Equal(t, "2020-04-01", record.UpdatedDates[0].String())
	assert.Equal(t, "平成14年6月25日", record.DisplayDates.Announcement)
	assert.True(t, record.HasVersion)
	assert.True(t, strings.HasPrefix(record.Content, "第一条"))
	assert.Equal(t, source.DetailURL("131016-001"), record.SourceURL)
}

func TestSolrSource_ExtractDetailErrors(t *testing.T) {
	source := NewSolrSource("https://jorei.example.org")

	testCases := []struct {
		name string
		body string
		ref  string
	}{
		{"not json", `oops`, "a"},
		{"no documents", `{"response":{"numFound":0,"docs":[]}}`, "a"},
		{"id mismatch", `{"response":{"docs":[{"id":"b","title":"t"}]}}`, "a"},
		{"missing title", `{"response":{"docs":[{"id":"a","title":"  "}]}}`, "a"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := source.ExtractDetail([]byte(tc.body), OrdinanceSummary{Ref: tc.ref})
			require.Error(t, err)

			ce, ok := crawlerrors.As(err)
			require.True(t, ok)
			assert.Equal(t, crawlerrors.ErrorTypeParse, ce.Type)
			assert.Equal(t, tc.ref, ce.Ref)
			assert.False(t, ce.IsFatal())
		})
	}
}
