package pipeline

import (
	"bufio"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/aluiziolira/go-scrape-rentals/models"
)

// CSVTable is an append-only CSV file with a fixed header.
type CSVTable struct {
	path   string
	file   *os.File
	writer *csv.Writer
}

// OpenCSVTable creates or truncates path and writes header as the first
// row. The parent directory must already exist.
func OpenCSVTable(path string, header []string) (*CSVTable, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create csv file: %w", err)
	}

	writer := csv.NewWriter(f)
	if err := writer.Write(header); err != nil {
		f.Close()
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		f.Close()
		return nil, fmt.Errorf("flush csv header: %w", err)
	}

	return &CSVTable{path: path, file: f, writer: writer}, nil
}

// Append writes records and flushes them to disk.
func (t *CSVTable) Append(records ...[]string) error {
	for _, record := range records {
		if err := t.writer.Write(record); err != nil {
			return fmt.Errorf("write csv record: %w", err)
		}
	}
	t.writer.Flush()
	if err := t.writer.Error(); err != nil {
		return fmt.Errorf("flush csv records: %w", err)
	}
	return nil
}

// Close flushes and closes the file handle.
func (t *CSVTable) Close() error {
	t.writer.Flush()
	if err := t.writer.Error(); err != nil {
		t.file.Close()
		return fmt.Errorf("flush csv writer: %w", err)
	}
	return t.file.Close()
}

// Validate ensures the header reached the file.
func (t *CSVTable) Validate() error {
	info, err := t.file.Stat()
	if err != nil {
		return fmt.Errorf("stat csv file: %w", err)
	}
	if info.Size() <= 0 {
		return fmt.Errorf("csv file %s is empty", t.path)
	}
	return nil
}

// CSVWriter writes the listing and comment tables as CSV.
type CSVWriter struct {
	listings *CSVTable
	comments *CSVTable
	mu       sync.Mutex
}

// NewCSVWriter opens both tables, truncating previous output.
func NewCSVWriter(listingsPath, commentsPath string) (*CSVWriter, error) {
	listings, err := OpenCSVTable(listingsPath, models.ListingHeader)
	if err != nil {
		return nil, fmt.Errorf("open listings table: %w", err)
	}
	comments, err := OpenCSVTable(commentsPath, models.CommentHeader)
	if err != nil {
		listings.Close()
		return nil, fmt.Errorf("open comments table: %w", err)
	}
	return &CSVWriter{listings: listings, comments: comments}, nil
}

// Write appends the listing row, then its comment rows.
func (cw *CSVWriter) Write(_ context.Context, listing *models.Listing, comments []*models.Comment) error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	if err := cw.listings.Append(listing.Record()); err != nil {
		return fmt.Errorf("listings: %w", err)
	}
	if len(comments) == 0 {
		return nil
	}

	records := make([][]string, 0, len(comments))
	for _, c := range comments {
		records = append(records, c.Record())
	}
	if err := cw.comments.Append(records...); err != nil {
		return fmt.Errorf("comments: %w", err)
	}
	return nil
}

// Close closes both tables.
func (cw *CSVWriter) Close() error {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	return errors.Join(cw.listings.Close(), cw.comments.Close())
}

// Validate validates both tables.
func (cw *CSVWriter) Validate() error {
	return errors.Join(cw.listings.Validate(), cw.comments.Validate())
}

// JSONWriter writes the two tables as newline-delimited JSON.
type JSONWriter struct {
	listings *jsonFile
	comments *jsonFile
	mu       sync.Mutex
}

type jsonFile struct {
	file    *os.File
	writer  *bufio.Writer
	encoder *json.Encoder
}

func createJSONFile(filename string) (*jsonFile, error) {
	f, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("create json file: %w", err)
	}
	buffer := bufio.NewWriter(f)
	return &jsonFile{file: f, writer: buffer, encoder: json.NewEncoder(buffer)}, nil
}

func (jf *jsonFile) close() error {
	if err := jf.writer.Flush(); err != nil {
		jf.file.Close()
		return fmt.Errorf("flush json writer: %w", err)
	}
	return jf.file.Close()
}

// NewJSONWriter creates both JSONL files, truncating previous output.
func NewJSONWriter(listingsPath, commentsPath string) (*JSONWriter, error) {
	listings, err := createJSONFile(listingsPath)
	if err != nil {
		return nil, err
	}
	comments, err := createJSONFile(commentsPath)
	if err != nil {
		listings.close()
		return nil, err
	}
	return &JSONWriter{listings: listings, comments: comments}, nil
}

// Write appends the listing, then its comments.
func (jw *JSONWriter) Write(_ context.Context, listing *models.Listing, comments []*models.Comment) error {
	jw.mu.Lock()
	defer jw.mu.Unlock()

	if err := jw.listings.encoder.Encode(listing); err != nil {
		return fmt.Errorf("encode listing: %w", err)
	}
	for _, c := range comments {
		if err := jw.comments.encoder.Encode(c); err != nil {
			return fmt.Errorf("encode comment: %w", err)
		}
	}

	if err := jw.listings.writer.Flush(); err != nil {
		return fmt.Errorf("flush json listings: %w", err)
	}
	if err := jw.comments.writer.Flush(); err != nil {
		return fmt.Errorf("flush json comments: %w", err)
	}
	return nil
}

// Close flushes buffers and closes both files.
func (jw *JSONWriter) Close() error {
	jw.mu.Lock()
	defer jw.mu.Unlock()
	return errors.Join(jw.listings.close(), jw.comments.close())
}

// Validate ensures the files are still reachable. Empty files are valid: a
// run may find no listings.
func (jw *JSONWriter) Validate() error {
	for _, jf := range []*jsonFile{jw.listings, jw.comments} {
		if _, err := jf.file.Stat(); err != nil {
			return fmt.Errorf("stat json file: %w", err)
		}
	}
	return nil
}

// JSONPath maps a table path such as data/airbnb_header.csv to its JSONL
// counterpart data/airbnb_header.jsonl.
func JSONPath(csvPath string) string {
	return strings.TrimSuffix(csvPath, filepath.Ext(csvPath)) + ".jsonl"
}
