package browser

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/aluiziolira/go-scrape-rentals/config"
)

// ErrNoPage is returned by Snapshot before any successful navigation.
var ErrNoPage = errors.New("browser: no page loaded")

// StaticSession fetches pages over plain HTTP with colly. Scripts are not
// executed, so it only suits pre-rendered pages.
type StaticSession struct {
	collector *colly.Collector
	page      *Page
}

// NewStaticSession builds a synchronous collector from cfg.
func NewStaticSession(cfg *config.Config) *StaticSession {
	collector := colly.NewCollector(
		colly.UserAgent(cfg.UserAgent),
		colly.AllowURLRevisit(),
	)
	collector.IgnoreRobotsTxt = true
	if cfg.NavigationTimeout > 0 {
		collector.SetRequestTimeout(cfg.NavigationTimeout)
	}
	collector.WithTransport(&http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	})

	s := &StaticSession{collector: collector}
	collector.OnResponse(func(r *colly.Response) {
		s.page = &Page{
			URL:  r.Request.URL.String(),
			HTML: string(r.Body),
		}
	})
	return s
}

// Navigate fetches url. The previous page is discarded even on failure.
func (s *StaticSession) Navigate(ctx context.Context, url string) error {
	s.page = nil
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.collector.Visit(url); err != nil {
		return fmt.Errorf("fetch %s: %w", url, err)
	}
	if s.page == nil {
		return fmt.Errorf("fetch %s: empty response", url)
	}
	return nil
}

// Snapshot returns the last fetched page.
func (s *StaticSession) Snapshot(ctx context.Context) (*Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.page == nil {
		return nil, ErrNoPage
	}
	return s.page, nil
}

// WithTransport replaces the HTTP transport used for fetching.
func (s *StaticSession) WithTransport(rt http.RoundTripper) {
	s.collector.WithTransport(rt)
}

// Close is a no-op; the collector holds no process.
func (s *StaticSession) Close() error {
	return nil
}
