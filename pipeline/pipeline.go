package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aluiziolira/go-scrape-rentals/models"
	"github.com/aluiziolira/go-scrape-rentals/parser"
)

var (
	// ErrPipelineClosed is returned when Process is called after shutdown.
	ErrPipelineClosed = errors.New("pipeline: closed")
	// ErrInvalidRecord wraps validation failures of a single listing.
	ErrInvalidRecord = errors.New("pipeline: invalid record")
)

// OutputWriter defines the interface for data output. Write receives one
// listing with all of its comments and must emit the listing row first.
type OutputWriter interface {
	Write(ctx context.Context, listing *models.Listing, comments []*models.Comment) error
	Close() error
	Validate() error
}

// Pipeline validates extracted listings and commits them to the writer,
// one listing at a time.
type Pipeline struct {
	writer  OutputWriter
	metrics metrics

	mu     sync.Mutex // guards closed/err
	closed bool
	err    error

	shutdown     chan struct{}
	shutdownOnce sync.Once
}

// NewPipeline builds a pipeline writing to writer.
func NewPipeline(writer OutputWriter) *Pipeline {
	return &Pipeline{
		writer:   writer,
		metrics:  newMetrics(),
		shutdown: make(chan struct{}),
	}
}

// Process validates listing and its comments and writes them. Invalid
// records are rejected with ErrInvalidRecord and nothing is written; a
// writer failure is returned and closes the pipeline.
func (p *Pipeline) Process(ctx context.Context, listing *models.Listing, comments []*models.Comment) error {
	closed, err := p.state()
	if err != nil {
		return err
	}
	if closed {
		return ErrPipelineClosed
	}

	if err := p.validate(listing, comments); err != nil {
		p.metrics.addValidation("invalid_record")
		return fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}

	if err := p.writer.Write(ctx, listing, comments); err != nil {
		err = fmt.Errorf("write listing %s: %w", listing.ID, err)
		p.setErr(err)
		return err
	}

	p.metrics.incrementProcessed(len(comments))
	return nil
}

// Close prevents more submissions and returns the first write error.
func (p *Pipeline) Close() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	p.signalShutdown()
	return p.Err()
}

// Err returns the first error encountered during processing.
func (p *Pipeline) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// GetMetrics returns a snapshot of the internal counters.
func (p *Pipeline) GetMetrics() map[string]interface{} {
	return p.metrics.snapshot()
}

// StartMetricsReporting emits periodic progress logs until Close.
func (p *Pipeline) StartMetricsReporting(interval time.Duration) {
	if interval <= 0 {
		return
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				metrics := p.GetMetrics()
				slog.Info("pipeline progress",
					slog.Int64("listings", metrics["processed_listings"].(int64)),
					slog.Int64("comments", metrics["written_comments"].(int64)),
					slog.Int("validation_errors", rejectedRecords(metrics["validation_errors"].(map[string]int))),
				)
			case <-p.shutdown:
				return
			}
		}
	}()
}

// rejectedRecords totals the per-kind validation counters.
func rejectedRecords(byKind map[string]int) int {
	total := 0
	for _, n := range byKind {
		total += n
	}
	return total
}

func (p *Pipeline) validate(listing *models.Listing, comments []*models.Comment) error {
	if err := parser.ValidateListing(listing); err != nil {
		return err
	}
	for i, c := range comments {
		if err := parser.ValidateComment(c, listing.ID); err != nil {
			return fmt.Errorf("comment %d: %w", i, err)
		}
	}
	return nil
}

func (p *Pipeline) setErr(err error) {
	if err == nil {
		return
	}

	p.mu.Lock()
	if p.err != nil {
		p.mu.Unlock()
		return
	}
	p.err = err
	p.closed = true
	p.mu.Unlock()

	p.signalShutdown()
}

func (p *Pipeline) state() (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed, p.err
}

func (p *Pipeline) signalShutdown() {
	p.shutdownOnce.Do(func() {
		close(p.shutdown)
	})
}

type metrics struct {
	mu         sync.Mutex
	processed  int64
	comments   int64
	validation map[string]int
}

func newMetrics() metrics {
	return metrics{
		validation: make(map[string]int),
	}
}

func (m *metrics) incrementProcessed(comments int) {
	m.mu.Lock()
	m.processed++
	m.comments += int64(comments)
	m.mu.Unlock()
}

func (m *metrics) addValidation(kind string) {
	m.mu.Lock()
	m.validation[kind]++
	m.mu.Unlock()
}

func (m *metrics) snapshot() map[string]interface{} {
	m.mu.Lock()
	defer m.mu.Unlock()

	copyValidation := make(map[string]int, len(m.validation))
	for k, v := range m.validation {
		copyValidation[k] = v
	}

	return map[string]interface{}{
		"processed_listings": m.processed,
		"written_comments":   m.comments,
		"validation_errors":  copyValidation,
	}
}
