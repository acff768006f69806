package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"

	"github.com/aluiziolira/go-scrape-rentals/browser"
	"github.com/aluiziolira/go-scrape-rentals/config"
	"github.com/aluiziolira/go-scrape-rentals/models"
	"github.com/aluiziolira/go-scrape-rentals/parser"
	"github.com/aluiziolira/go-scrape-rentals/pipeline"
)

// Navigation phases used as metric labels.
const (
	phaseSearch  = "search"
	phaseListing = "listing"
)

// Scraper drives one browser session through a search page and then through
// every listing it links to, one page at a time.
type Scraper struct {
	cfg       *config.Config
	session   browser.Session
	selectors config.Selectors
	compiler  *parser.Compiler
	pacer     *browser.Pacer
	Metrics   *Metrics

	newID func() string
	now   func() time.Time

	errorCount   int
	failedURLs   []string
	errorsByType map[string]int
}

// NewScraper builds a scraper that loads pages through session.
func NewScraper(cfg *config.Config, session browser.Session, selectors config.Selectors) (*Scraper, error) {
	if session == nil {
		return nil, fmt.Errorf("session is required")
	}
	if err := selectors.Validate(); err != nil {
		return nil, fmt.Errorf("selectors: %w", err)
	}
	compiler, err := parser.NewCompiler(parser.DefaultCacheSize)
	if err != nil {
		return nil, err
	}

	return &Scraper{
		cfg:          cfg,
		session:      session,
		selectors:    selectors,
		compiler:     compiler,
		pacer:        browser.NewPacer(cfg.MinDelay, cfg.MaxDelay),
		Metrics:      NewMetrics(),
		newID:        uuid.NewString,
		now:          time.Now,
		errorsByType: make(map[string]int),
	}, nil
}

// Run collects the listing links of the configured search page and extracts
// each listing in order. A listing that fails is logged and skipped; a failed
// search page, a writer failure or cancellation ends the run.
func (s *Scraper) Run(ctx context.Context, p *pipeline.Pipeline) (*models.ScraperResult, error) {
	result := &models.ScraperResult{
		SearchURL: s.cfg.SearchURL,
		StartTime: s.now(),
	}

	links, err := s.CollectLinks(ctx, s.cfg.SearchURL)
	if err != nil {
		return s.finish(result), fmt.Errorf("collect links: %w", err)
	}
	result.LinkCount = len(links)
	slog.Info("listing links collected",
		slog.Int("count", len(links)),
		slog.String("search_url", s.cfg.SearchURL),
	)

	for i, link := range links {
		if err := ctx.Err(); err != nil {
			return s.finish(result), err
		}
		slog.Info("scraping listing",
			slog.Int("index", i+1),
			slog.Int("total", len(links)),
			slog.String("url", link),
		)

		listing, comments, err := s.Extract(ctx, link)
		if err == nil {
			err = p.Process(ctx, listing, comments)
			if err != nil && !errors.Is(err, pipeline.ErrInvalidRecord) {
				return s.finish(result), err
			}
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return s.finish(result), ctxErr
			}
			s.recordFailure(link, err)
			continue
		}

		result.ListingCount++
		result.CommentCount += len(comments)
		s.Metrics.AddListing(len(comments))
	}

	return s.finish(result), nil
}

// CollectLinks loads searchURL and returns the absolute targets of every
// listing anchor in document order. Anchors without an href are skipped and
// duplicates are kept.
func (s *Scraper) CollectLinks(ctx context.Context, searchURL string) ([]string, error) {
	doc, err := s.load(ctx, phaseSearch, searchURL)
	if err != nil {
		return nil, err
	}

	anchors, err := doc.All(doc.Root(), config.FieldListingLink, s.selectors[config.FieldListingLink])
	if err != nil {
		return nil, err
	}

	links := make([]string, 0, anchors.Length())
	for i := range anchors.Nodes {
		href, ok := anchors.Eq(i).Attr("href")
		if !ok || href == "" {
			slog.Debug("listing anchor without href", slog.Int("position", i))
			continue
		}
		abs, err := doc.Resolve(href)
		if err != nil {
			slog.Warn("skipping listing anchor", slog.String("href", href), slog.Any("error", err))
			continue
		}
		links = append(links, abs)
	}
	return links, nil
}

// Extract loads one listing page and returns the listing with its comments,
// all stamped with a fresh identifier. Any missing node fails the listing.
func (s *Scraper) Extract(ctx context.Context, listingURL string) (*models.Listing, []*models.Comment, error) {
	doc, err := s.load(ctx, phaseListing, listingURL)
	if err != nil {
		return nil, nil, err
	}
	root := doc.Root()

	titleSel, err := doc.First(root, config.FieldTitle, s.selectors[config.FieldTitle])
	if err != nil {
		return nil, nil, err
	}
	facilitiesSel, err := doc.First(root, config.FieldFacilities, s.selectors[config.FieldFacilities])
	if err != nil {
		return nil, nil, err
	}
	priceSel, err := doc.First(root, config.FieldPrice, s.selectors[config.FieldPrice])
	if err != nil {
		return nil, nil, err
	}
	listing := &models.Listing{
		ID:         s.newID(),
		Title:      parser.VisibleText(titleSel),
		Facilities: parser.VisibleText(facilitiesSel),
		Price:      parser.NormalizePrice(parser.InnerHTML(priceSel)),
		URL:        listingURL,
		ScrapedAt:  s.now(),
	}

	blocks, err := doc.All(root, config.FieldCommentBlock, s.selectors[config.FieldCommentBlock])
	if err != nil {
		return nil, nil, err
	}

	comments := make([]*models.Comment, 0, blocks.Length())
	for i := range blocks.Nodes {
		block := blocks.Eq(i)
		name, err := s.commentField(doc, block, config.FieldReviewerName)
		if err != nil {
			return nil, nil, fmt.Errorf("comment %d: %w", i, err)
		}
		city, err := s.commentField(doc, block, config.FieldReviewerCity)
		if err != nil {
			return nil, nil, fmt.Errorf("comment %d: %w", i, err)
		}
		text, err := s.commentField(doc, block, config.FieldCommentText)
		if err != nil {
			return nil, nil, fmt.Errorf("comment %d: %w", i, err)
		}
		comments = append(comments, &models.Comment{
			ListingID: listing.ID,
			Name:      name,
			City:      city,
			Text:      text,
		})
	}

	return listing, comments, nil
}

func (s *Scraper) commentField(doc *parser.Document, block *goquery.Selection, field string) (string, error) {
	found, err := doc.First(block, field, s.selectors[field])
	if err != nil {
		return "", err
	}
	return parser.InnerHTML(found), nil
}

// load navigates to pageURL, waits out the pacing delay and parses what the
// session rendered.
func (s *Scraper) load(ctx context.Context, phase, pageURL string) (*parser.Document, error) {
	s.Metrics.IncNavigation(phase)
	start := time.Now()
	if err := s.session.Navigate(ctx, pageURL); err != nil {
		return nil, ErrNavigation{URL: pageURL, Err: classifyError(err)}
	}
	s.Metrics.ObserveDuration(time.Since(start))

	if err := s.pacer.Wait(ctx); err != nil {
		return nil, err
	}

	page, err := s.session.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", pageURL, classifyError(err))
	}
	pageAddr := page.URL
	if pageAddr == "" {
		pageAddr = pageURL
	}
	return s.compiler.Parse(pageAddr, page.HTML)
}

func (s *Scraper) recordFailure(link string, err error) {
	category := errorTypeLabel(err)
	s.errorCount++
	s.errorsByType[category]++
	s.failedURLs = append(s.failedURLs, link)
	s.Metrics.IncError(category)

	slog.Error("listing extraction failed",
		slog.String("url", link),
		slog.String("category", category),
		slog.Any("error", err),
	)
}

func (s *Scraper) finish(result *models.ScraperResult) *models.ScraperResult {
	result.EndTime = s.now()
	result.ErrorCount = s.errorCount
	result.FailedURLs = append([]string(nil), s.failedURLs...)
	result.ErrorsByType = make(map[string]int, len(s.errorsByType))
	for k, v := range s.errorsByType {
		result.ErrorsByType[k] = v
	}
	return result
}
