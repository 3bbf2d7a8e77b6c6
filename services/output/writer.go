package output

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"sjsage522/listupjorei/helpers"
	"sjsage522/listupjorei/internal/crawler"
	"sjsage522/listupjorei/logger"
	crawlerrors "sjsage522/listupjorei/pkg/errors"
)

// Writer persists one JSON file per ordinance and an index in JSON Lines.
// A record's index line is appended only after its file is synced and closed.
type Writer struct {
	outputDir string
	indexPath string

	mu     sync.Mutex
	index  *os.File
	closed bool
}

// NewWriter creates the output directory and truncates the index file.
// The index may not sit in the output directory under a .json name, where a
// record file could replace it.
func NewWriter(outputDir, indexPath string) (*Writer, error) {
	if shadowsRecord(outputDir, indexPath) {
		return nil, crawlerrors.NewValidation("writer",
			fmt.Sprintf("index %s would collide with record files in %s", indexPath, outputDir))
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, crawlerrors.NewIO("writer", "failed to create output directory", err)
	}
	if dir := filepath.Dir(indexPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, crawlerrors.NewIO("writer", "failed to create index directory", err)
		}
	}

	index, err := os.OpenFile(indexPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, crawlerrors.NewIO("writer", "failed to open index file", err)
	}

	return &Writer{
		outputDir: outputDir,
		indexPath: indexPath,
		index:     index,
	}, nil
}

func shadowsRecord(outputDir, indexPath string) bool {
	if !strings.EqualFold(filepath.Ext(indexPath), ".json") {
		return false
	}
	outAbs, err := filepath.Abs(outputDir)
	if err != nil {
		return false
	}
	dirAbs, err := filepath.Abs(filepath.Dir(indexPath))
	if err != nil {
		return false
	}
	return outAbs == dirAbs
}

// Write persists record and appends its index entry
func (w *Writer) Write(record *crawler.OrdinanceRecord) (crawler.IndexEntry, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return crawler.IndexEntry{}, crawlerrors.NewIO("writer", "write after close", os.ErrClosed).WithRef(record.ID)
	}
	if record.ID == "" {
		return crawler.IndexEntry{}, crawlerrors.NewValidation("writer", "record has no id")
	}

	path := filepath.Join(w.outputDir, helpers.SafeFileName(record.ID)+".json")
	if err := writeRecordFile(path, record); err != nil {
		return crawler.IndexEntry{}, crawlerrors.NewIO("writer", "failed to write record file", err).WithRef(record.ID)
	}

	entry := crawler.IndexEntry{
		ID:          record.ID,
		ReikiID:     record.ReikiID,
		Title:       record.Title,
		Path:        path,
		Date:        record.AnnouncementDate,
		UpdatedDate: record.LastUpdatedDate,
		Prefecture:  record.Prefecture,
		City:        record.City,
	}

	line, err := json.Marshal(entry)
	if err != nil {
		return crawler.IndexEntry{}, crawlerrors.NewIO("writer", "failed to encode index entry", err).WithRef(record.ID)
	}
	line = append(line, '\n')

	if _, err := w.index.Write(line); err != nil {
		return crawler.IndexEntry{}, crawlerrors.NewIO("writer", "failed to append index entry", err).WithRef(record.ID)
	}
	if err := w.index.Sync(); err != nil {
		return crawler.IndexEntry{}, crawlerrors.NewIO("writer", "failed to sync index file", err).WithRef(record.ID)
	}

	logger.ForWriter().Debug().
		Str("id", record.ID).
		Str("path", path).
		Msg("Record written")

	return entry, nil
}

// writeRecordFile writes record as indented JSON, then syncs and closes the file
func writeRecordFile(path string, record *crawler.OrdinanceRecord) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, cerr)
		}
	}()

	encoder := json.NewEncoder(f)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(record); err != nil {
		return err
	}

	return f.Sync()
}

// IndexPath returns the index file path
func (w *Writer) IndexPath() string {
	return w.indexPath
}

// Close releases the index handle. Calling it twice is a no-op.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	if err := w.index.Close(); err != nil {
		return crawlerrors.NewIO("writer", "failed to close index file", err)
	}
	return nil
}
