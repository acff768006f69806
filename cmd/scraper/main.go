package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aluiziolira/go-scrape-rentals/browser"
	"github.com/aluiziolira/go-scrape-rentals/config"
	"github.com/aluiziolira/go-scrape-rentals/models"
	"github.com/aluiziolira/go-scrape-rentals/pipeline"
	"github.com/aluiziolira/go-scrape-rentals/scraper"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "load .env: %v\n", err)
		os.Exit(1)
	}

	cfg := config.DefaultConfig()
	if err := cfg.ApplyEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid environment: %v\n", err)
		os.Exit(1)
	}
	bindFlags(flag.CommandLine, cfg)
	flag.Parse()
	cfg.Backend = strings.ToLower(cfg.Backend)
	cfg.OutputFormat = strings.ToLower(cfg.OutputFormat)

	logger, level := newLogger(cfg.Verbose)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level.Level())

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}

	selectors, err := config.LoadSelectors(cfg.SelectorsFile)
	if err != nil {
		slog.Error("loading selectors", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = run(ctx, cfg, selectors)
	stop()
	if err != nil {
		slog.Error("scraping failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func bindFlags(fs *flag.FlagSet, cfg *config.Config) {
	fs.StringVar(&cfg.SearchURL, "url", cfg.SearchURL, "Search results page to scrape")
	fs.StringVar(&cfg.Backend, "backend", cfg.Backend, "Page loader: chrome or static")
	fs.StringVar(&cfg.OutputDir, "output-dir", cfg.OutputDir, "Existing directory for the output tables")
	fs.StringVar(&cfg.OutputFormat, "format", cfg.OutputFormat, "Output format: csv, json, or dual")
	fs.StringVar(&cfg.SelectorsFile, "selectors", cfg.SelectorsFile, "YAML file overriding the built-in selectors")
	fs.DurationVar(&cfg.MinDelay, "min-delay", cfg.MinDelay, "Minimum pause after each page load")
	fs.DurationVar(&cfg.MaxDelay, "max-delay", cfg.MaxDelay, "Maximum pause after each page load")
	fs.DurationVar(&cfg.NavigationTimeout, "nav-timeout", cfg.NavigationTimeout, "Per-page load timeout (0 disables)")
	fs.BoolVar(&cfg.Headless, "headless", cfg.Headless, "Run the browser without a window")
	fs.StringVar(&cfg.UserAgent, "user-agent", cfg.UserAgent, "User agent sent by the browser")
	fs.StringVar(&cfg.DatabaseURL, "database-url", cfg.DatabaseURL, "Postgres URL to also store listings in")
	fs.StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "Prometheus metrics listen address (e.g. :9090)")
	fs.BoolVar(&cfg.Verbose, "v", cfg.Verbose, "Enable verbose logging")
}

// run owns the browser session; it is closed on every return path.
func run(ctx context.Context, cfg *config.Config, selectors config.Selectors) error {
	writer, err := createWriter(ctx, cfg)
	if err != nil {
		return fmt.Errorf("creating writer: %w", err)
	}
	defer func() {
		if err := writer.Close(); err != nil {
			slog.Error("close writer", slog.Any("error", err))
		}
	}()

	slog.Info("starting scrape",
		slog.String("search_url", cfg.SearchURL),
		slog.String("backend", cfg.Backend),
		slog.String("format", cfg.OutputFormat),
	)

	session, err := browser.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("opening browser: %w", err)
	}
	defer func() {
		if err := session.Close(); err != nil {
			slog.Error("close browser", slog.Any("error", err))
		}
	}()

	s, err := scraper.NewScraper(cfg, session, selectors)
	if err != nil {
		return fmt.Errorf("initialising scraper: %w", err)
	}

	if cfg.MetricsAddr != "" {
		metricsServer := &http.Server{
			Addr:    cfg.MetricsAddr,
			Handler: promhttp.HandlerFor(s.Metrics.Registry, promhttp.HandlerOpts{}),
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server failed", slog.Any("error", err))
			}
		}()
		slog.Info("metrics server enabled", slog.String("addr", cfg.MetricsAddr))
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				slog.Error("metrics server shutdown failed", slog.Any("error", err))
			}
		}()
	}

	p := pipeline.NewPipeline(writer)
	if cfg.Verbose {
		p.StartMetricsReporting(10 * time.Second)
	}

	result, runErr := s.Run(ctx, p)
	if err := p.Close(); err != nil && runErr == nil {
		runErr = fmt.Errorf("pipeline shutdown: %w", err)
	}
	if runErr == nil {
		if err := writer.Validate(); err != nil {
			runErr = fmt.Errorf("output validation: %w", err)
		}
	}

	if result != nil {
		printSummary(result, cfg, p.GetMetrics())
	}
	return runErr
}

func createWriter(ctx context.Context, cfg *config.Config) (pipeline.OutputWriter, error) {
	listingsPath, commentsPath := cfg.ListingsPath(), cfg.CommentsPath()

	var (
		fileWriter pipeline.OutputWriter
		err        error
	)
	switch cfg.OutputFormat {
	case config.FormatCSV:
		fileWriter, err = pipeline.NewCSVWriter(listingsPath, commentsPath)
	case config.FormatJSON:
		fileWriter, err = pipeline.NewJSONWriter(pipeline.JSONPath(listingsPath), pipeline.JSONPath(commentsPath))
	case config.FormatDual:
		fileWriter, err = pipeline.NewDualWriter(listingsPath, commentsPath)
	default:
		return nil, fmt.Errorf("unsupported format: %s", cfg.OutputFormat)
	}
	if err != nil {
		return nil, err
	}

	if cfg.DatabaseURL == "" {
		return fileWriter, nil
	}
	pg, err := pipeline.NewPostgresWriter(ctx, cfg.DatabaseURL)
	if err != nil {
		fileWriter.Close()
		return nil, err
	}
	return pipeline.NewMultiWriter(fileWriter, pg), nil
}

func printSummary(result *models.ScraperResult, cfg *config.Config, metrics map[string]interface{}) {
	separator := "--------------------------------------------------"
	fmt.Println("\n" + separator)
	fmt.Println("Scrape complete")

	duration := result.EndTime.Sub(result.StartTime)
	fmt.Printf("  Listing links: %d\n", result.LinkCount)
	fmt.Printf("  Listings:      %d\n", result.ListingCount)
	fmt.Printf("  Comments:      %d\n", result.CommentCount)
	fmt.Printf("  Errors:        %d\n", result.ErrorCount)
	if len(result.ErrorsByType) > 0 {
		fmt.Printf("  Error types:   %v\n", result.ErrorsByType)
	}
	if valErrors, ok := metrics["validation_errors"].(map[string]int); ok && len(valErrors) > 0 {
		fmt.Printf("  Validation:    %v\n", valErrors)
	}
	for _, u := range result.FailedURLs {
		fmt.Printf("  Failed:        %s\n", u)
	}
	fmt.Printf("  Duration:      %v\n", duration.Round(time.Millisecond))
	listingsPath, commentsPath := cfg.ListingsPath(), cfg.CommentsPath()
	if cfg.OutputFormat == config.FormatJSON {
		listingsPath, commentsPath = pipeline.JSONPath(listingsPath), pipeline.JSONPath(commentsPath)
	}
	fmt.Printf("  Output:        %s, %s\n", listingsPath, commentsPath)
	fmt.Println(separator)
}

func newLogger(verbose bool) (*slog.Logger, *slog.LevelVar) {
	level := &slog.LevelVar{}
	if verbose {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if isTerminal(os.Stdout) {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler), level
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
