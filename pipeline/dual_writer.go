package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/aluiziolira/go-scrape-rentals/models"
)

// MultiWriter fans each listing out to several writers in order.
type MultiWriter struct {
	writers []OutputWriter
	mu      sync.Mutex
}

// NewMultiWriter combines writers; nil entries are skipped.
func NewMultiWriter(writers ...OutputWriter) *MultiWriter {
	mw := &MultiWriter{}
	for _, w := range writers {
		if w != nil {
			mw.writers = append(mw.writers, w)
		}
	}
	return mw
}

// NewDualWriter writes CSV tables and their JSONL counterparts.
func NewDualWriter(listingsPath, commentsPath string) (*MultiWriter, error) {
	csvWriter, err := NewCSVWriter(listingsPath, commentsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create CSV writer: %w", err)
	}

	jsonWriter, err := NewJSONWriter(JSONPath(listingsPath), JSONPath(commentsPath))
	if err != nil {
		csvWriter.Close()
		return nil, fmt.Errorf("failed to create JSON writer: %w", err)
	}

	return NewMultiWriter(csvWriter, jsonWriter), nil
}

// Write writes to every writer, stopping at the first failure.
func (mw *MultiWriter) Write(ctx context.Context, listing *models.Listing, comments []*models.Comment) error {
	mw.mu.Lock()
	defer mw.mu.Unlock()

	for i, w := range mw.writers {
		if err := w.Write(ctx, listing, comments); err != nil {
			return fmt.Errorf("writer %d (%T): %w", i, w, err)
		}
	}
	return nil
}

// Close closes every writer.
func (mw *MultiWriter) Close() error {
	mw.mu.Lock()
	defer mw.mu.Unlock()

	var errs []error
	for _, w := range mw.writers {
		if err := w.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %T: %w", w, err))
		}
	}
	return errors.Join(errs...)
}

// Validate validates every writer.
func (mw *MultiWriter) Validate() error {
	var errs []error
	for _, w := range mw.writers {
		if err := w.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("validate %T: %w", w, err))
		}
	}
	return errors.Join(errs...)
}
