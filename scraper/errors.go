package scraper

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/aluiziolira/go-scrape-rentals/parser"
	"github.com/aluiziolira/go-scrape-rentals/pipeline"
)

// ErrTimeout indicates a page load or query ran out of time.
type ErrTimeout struct {
	Err error
}

func (e ErrTimeout) Error() string {
	return fmt.Errorf("timeout: %w", e.Err).Error()
}

func (e ErrTimeout) Unwrap() error {
	return e.Err
}

// ErrNavigation indicates the session could not load a page.
type ErrNavigation struct {
	URL string
	Err error
}

func (e ErrNavigation) Error() string {
	return fmt.Errorf("navigate %s: %w", e.URL, e.Err).Error()
}

func (e ErrNavigation) Unwrap() error {
	return e.Err
}

func errorTypeLabel(err error) string {
	if err == nil {
		return "unknown"
	}
	var timeout ErrTimeout
	if errors.As(err, &timeout) {
		return "timeout"
	}
	var notFound parser.ErrNotFound
	if errors.As(err, &notFound) {
		return "missing_node"
	}
	if errors.Is(err, pipeline.ErrInvalidRecord) {
		return "invalid_record"
	}
	var nav ErrNavigation
	if errors.As(err, &nav) {
		return "navigation"
	}
	return "other"
}

func classifyError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout{Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrTimeout{Err: err}
	}
	return err
}
