// Package browser owns the page-loading session used by the scraper.
package browser

import (
	"context"
	"fmt"

	"github.com/aluiziolira/go-scrape-rentals/config"
)

// Page is a snapshot of the document currently loaded in a session.
type Page struct {
	URL  string
	HTML string
}

// Session loads pages one at a time. A Session is not safe for concurrent use.
type Session interface {
	// Navigate loads url and blocks until the load completes.
	Navigate(ctx context.Context, url string) error
	// Snapshot returns the document as currently rendered.
	Snapshot(ctx context.Context) (*Page, error)
	// Close releases the underlying browser or client.
	Close() error
}

// Open acquires a session for cfg.Backend. Callers must Close it.
func Open(ctx context.Context, cfg *config.Config) (Session, error) {
	switch cfg.Backend {
	case config.BackendChrome:
		return NewChromeSession(ctx, cfg)
	case config.BackendStatic:
		return NewStaticSession(cfg), nil
	default:
		return nil, fmt.Errorf("unsupported backend: %s", cfg.Backend)
	}
}

// bind returns a child of sessionCtx that is also cancelled when ctx is.
func bind(sessionCtx, ctx context.Context) (context.Context, context.CancelFunc) {
	child, cancel := context.WithCancel(sessionCtx)
	stop := context.AfterFunc(ctx, cancel)
	return child, func() {
		stop()
		cancel()
	}
}
