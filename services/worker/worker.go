package worker

import (
	"context"
	"encoding/json"

	"sjsage522/listupjorei/helpers"
	"sjsage522/listupjorei/internal"
	"sjsage522/listupjorei/internal/crawler"
	"sjsage522/listupjorei/logger"
	crawlerrors "sjsage522/listupjorei/pkg/errors"
	"sjsage522/listupjorei/pkg/jstdate"
	"sjsage522/listupjorei/services/publisher"
)

// PublishKey is the stream field name carrying an index entry
const PublishKey = "ordinance"

// StopReason tells why pagination ended
type StopReason string

const (
	// StopEmptyPage means a listing page had no summaries
	StopEmptyPage StopReason = "empty_page"
	// StopShortPage means a listing page had fewer summaries than requested
	// and the registry reported no further matches
	StopShortPage StopReason = "short_page"
	// StopDuplicate means a reference was listed twice in one run
	StopDuplicate StopReason = "duplicate"
)

// Summary reports what a crawl did
type Summary struct {
	Pages      int
	Listed     int
	Written    int
	Filtered   int
	Skipped    int
	Total      int
	StopReason StopReason
}

// Worker walks the listing pages of one registry, strictly sequentially
type Worker struct {
	source    crawler.Source
	fetcher   crawler.Fetcher
	writer    crawler.RecordWriter
	publisher publisher.Publisher
	errorLog  helpers.LoggerInterface
	throttle  *crawler.Throttle
	rows      int
	dates     jstdate.Range
	log       *logger.Logger
}

// NewWorker creates a new worker
func NewWorker(
	deps internal.Dependencies,
	throttle *crawler.Throttle,
	rows int,
	dates jstdate.Range,
) *Worker {
	return &Worker{
		source:    deps.Source,
		fetcher:   deps.Fetcher,
		writer:    deps.Writer,
		publisher: deps.Publisher,
		errorLog:  deps.ErrorLog,
		throttle:  throttle,
		rows:      rows,
		dates:     dates,
		log:       logger.ForWorker().WithField("source", deps.Source.Name()),
	}
}

// Run crawls until the registry runs out of pages, a reference repeats,
// or an unrecoverable error occurs. Records written before an error stay on disk.
func (w *Worker) Run(ctx context.Context) (Summary, error) {
	summary := Summary{Total: -1}
	seen := make(map[string]struct{})

	defer w.trimStreams()
	defer func() {
		if summary.Skipped > 0 && w.errorLog != nil {
			w.errorLog.LogInfo("%d ordinances skipped, see the error log", summary.Skipped)
		}
	}()

	offset := 0
	for page := 0; ; page++ {
		listing, err := w.fetchListing(ctx, page, offset)
		if err != nil {
			return summary, err
		}
		summary.Pages++
		summary.Listed += len(listing.Summaries)
		offset += len(listing.Summaries)
		if page == 0 {
			summary.Total = listing.Total
		}

		if len(listing.Summaries) == 0 {
			summary.StopReason = StopEmptyPage
			return summary, nil
		}

		for _, s := range listing.Summaries {
			if s.Ref == "" {
				w.reportSkip(crawlerrors.NewParse(w.source.Name(), "listing entry has no reference", nil).WithPage(page))
				summary.Skipped++
				continue
			}

			if _, dup := seen[s.Ref]; dup {
				w.log.Info().
					Int("page", page).
					Str("ref", s.Ref).
					Msg("Reference already seen, stopping")
				summary.StopReason = StopDuplicate
				return summary, nil
			}
			seen[s.Ref] = struct{}{}

			if !w.dates.Contains(s.Date) {
				summary.Filtered++
				continue
			}

			written, err := w.processSummary(ctx, page, s)
			if err != nil {
				return summary, err
			}
			if written {
				summary.Written++
			} else {
				summary.Skipped++
			}
		}

		if len(listing.Summaries) < w.rows {
			if listing.Total < 0 || offset >= listing.Total {
				summary.StopReason = StopShortPage
				return summary, nil
			}
			// The registry capped the page size; keep paging from the next unseen offset
			w.log.Debug().
				Int("page", page).
				Int("received", len(listing.Summaries)).
				Int("offset", offset).
				Int("total", listing.Total).
				Msg("Short page with more matches remaining")
		}
	}
}

// fetchListing fetches and parses the listing page starting at offset
func (w *Worker) fetchListing(ctx context.Context, page, offset int) (crawler.Listing, error) {
	if err := w.throttle.Wait(ctx); err != nil {
		return crawler.Listing{}, err
	}

	url := w.source.ListURL(offset, w.rows, w.dates)
	w.log.Debug().Int("page", page).Int("offset", offset).Str("url", url).Msg("Fetching listing page")

	body, err := w.fetcher.Fetch(ctx, url)
	if err != nil {
		return crawler.Listing{}, fatal(ctx, err, page, "")
	}

	listing, err := w.source.ExtractListing(body)
	if err != nil {
		return crawler.Listing{}, fatal(ctx, err, page, "")
	}

	return listing, nil
}

// processSummary fetches, parses, writes and publishes one ordinance.
// It reports false without error when the detail page could not be parsed.
func (w *Worker) processSummary(ctx context.Context, page int, s crawler.OrdinanceSummary) (bool, error) {
	if err := w.throttle.Wait(ctx); err != nil {
		return false, err
	}

	body, err := w.fetcher.Fetch(ctx, w.source.DetailURL(s.Ref))
	if err != nil {
		return false, fatal(ctx, err, page, s.Ref)
	}

	record, err := w.source.ExtractDetail(body, s)
	if err != nil {
		if ce, ok := crawlerrors.As(err); ok && !ce.IsFatal() {
			w.reportSkip(ce.WithPage(page).WithRef(s.Ref))
			return false, nil
		}
		return false, fatal(ctx, err, page, s.Ref)
	}

	entry, err := w.writer.Write(record)
	if err != nil {
		return false, fatal(ctx, err, page, s.Ref)
	}

	event := w.log.Info().Str("id", entry.ID).Str("title", entry.Title)
	if entry.Date != nil {
		event = event.Str("date", entry.Date.String())
	}
	event.Msg("Ordinance saved")

	w.publish(entry)
	return true, nil
}

// publish sends the index entry to the stream; failures are only logged
func (w *Worker) publish(entry crawler.IndexEntry) {
	if w.publisher == nil {
		return
	}

	data, err := json.Marshal(entry)
	if err != nil {
		w.log.WithError(err).Warn().Str("ref", entry.ID).Msg("Failed to encode index entry")
		return
	}

	if err := w.publisher.Publish(PublishKey, data); err != nil {
		logger.ForPublisher().WithError(err).Warn().Str("ref", entry.ID).Msg("Failed to publish index entry")
	}
}

// trimStreams trims the publisher streams once per run
func (w *Worker) trimStreams() {
	if w.publisher == nil {
		return
	}
	if err := w.publisher.TrimStreams(); err != nil {
		logger.ForPublisher().WithError(err).Warn().Msg("Failed to trim streams")
	}
}

// reportSkip records a non-fatal per-record failure
func (w *Worker) reportSkip(err *crawlerrors.CrawlerError) {
	w.log.WithError(err).Warn().
		Int("page", err.Page).
		Str("ref", err.Ref).
		Msg("Skipping ordinance")

	if w.errorLog != nil {
		w.errorLog.LogError(err.Ref, err)
	}
}

// fatal attaches the page and reference to err. Cancellation wins over
// whatever error the interrupted request produced.
func fatal(ctx context.Context, err error, page int, ref string) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}

	ce, ok := crawlerrors.As(err)
	if !ok {
		ce = crawlerrors.NewFetch("worker", "request failed", err)
	}

	ce = ce.WithPage(page)
	if ref != "" {
		ce = ce.WithRef(ref)
	}
	return ce
}
