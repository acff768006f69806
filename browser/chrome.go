package browser

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/aluiziolira/go-scrape-rentals/config"
)

// ChromeSession drives one headless Chrome tab through chromedp.
type ChromeSession struct {
	ctx         context.Context
	cancelTab   context.CancelFunc
	cancelAlloc context.CancelFunc
	navTimeout  time.Duration

	closeOnce sync.Once
	closeErr  error
}

// NewChromeSession starts Chrome and opens a tab.
func NewChromeSession(parent context.Context, cfg *config.Config) (*ChromeSession, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-notifications", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.UserAgent(cfg.UserAgent),
		chromedp.WindowSize(cfg.WindowWidth, cfg.WindowHeight),
	)

	// The browser must outlive per-call contexts, so it is rooted at a
	// detached context and torn down by Close.
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.WithoutCancel(parent), opts...)
	tabCtx, cancelTab := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(format string, args ...interface{}) {
			slog.Debug(fmt.Sprintf(format, args...), slog.String("component", "chromedp"))
		}),
		chromedp.WithErrorf(func(format string, args ...interface{}) {
			slog.Debug(fmt.Sprintf(format, args...), slog.String("component", "chromedp"))
		}),
	)

	// The first Run allocates the browser; its context must be the tab
	// context itself or cancelling it would kill the browser.
	if err := chromedp.Run(tabCtx); err != nil {
		cancelTab()
		cancelAlloc()
		return nil, fmt.Errorf("start browser: %w", err)
	}

	slog.Debug("browser session started",
		slog.Bool("headless", cfg.Headless),
		slog.Int("width", cfg.WindowWidth),
		slog.Int("height", cfg.WindowHeight),
	)

	return &ChromeSession{
		ctx:         tabCtx,
		cancelTab:   cancelTab,
		cancelAlloc: cancelAlloc,
		navTimeout:  cfg.NavigationTimeout,
	}, nil
}

// Navigate loads url in the tab.
func (s *ChromeSession) Navigate(ctx context.Context, url string) error {
	runCtx, cancel := bind(s.ctx, ctx)
	defer cancel()
	if s.navTimeout > 0 {
		var cancelTimeout context.CancelFunc
		runCtx, cancelTimeout = context.WithTimeout(runCtx, s.navTimeout)
		defer cancelTimeout()
	}
	return chromedp.Run(runCtx, chromedp.Navigate(url))
}

// Snapshot returns the current location and serialized document.
func (s *ChromeSession) Snapshot(ctx context.Context) (*Page, error) {
	runCtx, cancel := bind(s.ctx, ctx)
	defer cancel()

	page := &Page{}
	if err := chromedp.Run(runCtx,
		chromedp.Location(&page.URL),
		chromedp.OuterHTML("html", &page.HTML, chromedp.ByQuery),
	); err != nil {
		return nil, err
	}
	return page, nil
}

// Close shuts the tab and the browser process down.
func (s *ChromeSession) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = chromedp.Cancel(s.ctx)
		s.cancelTab()
		s.cancelAlloc()
	})
	return s.closeErr
}
