package config

import (
	"fmt"
	"net/url"
	"path/filepath"
	"time"
)

// DefaultSearchURL is the search results page scraped when no URL is given.
const DefaultSearchURL = "https://www.airbnb.com/s/Punta-Cana--Dominican-Republic/homes?tab_id=home_tab&refinement_paths%5B%5D=%2Fhomes&flexible_trip_lengths%5B%5D=one_week&monthly_start_date=2024-11-01&monthly_length=3&monthly_end_date=2025-02-01&price_filter_input_type=0&channel=EXPLORE&query=Punta%20Cana%2C%20Dominican%20Republic&place_id=ChIJd_7LXWSRqI4R8_YS7fociGE&location_bb=QZa6CMKIpVJBk4gIwok%2BdA%3D%3D&date_picker_type=calendar&source=structured_search_input_header&search_type=autocomplete_click"

// Browser backends.
const (
	BackendChrome = "chrome"
	BackendStatic = "static"
)

// Output formats.
const (
	FormatCSV  = "csv"
	FormatJSON = "json"
	FormatDual = "dual"
)

// Config holds scraper configuration.
type Config struct {
	SearchURL         string
	Backend           string // chrome or static
	Headless          bool
	WindowWidth       int
	WindowHeight      int
	UserAgent         string
	MinDelay          time.Duration
	MaxDelay          time.Duration
	NavigationTimeout time.Duration // zero leaves the browser default in place
	OutputDir         string
	ListingsFile      string
	CommentsFile      string
	OutputFormat      string // csv, json, or dual
	SelectorsFile     string
	DatabaseURL       string
	MetricsAddr       string
	Verbose           bool
}

// DefaultConfig returns the defaults used for the rental search target.
func DefaultConfig() *Config {
	return &Config{
		SearchURL:         DefaultSearchURL,
		Backend:           BackendChrome,
		Headless:          true,
		WindowWidth:       1200,
		WindowHeight:      1000,
		UserAgent:         "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		MinDelay:          1 * time.Second,
		MaxDelay:          3 * time.Second,
		NavigationTimeout: 0,
		OutputDir:         "data",
		ListingsFile:      "airbnb_header.csv",
		CommentsFile:      "airbnb_comments.csv",
		OutputFormat:      FormatCSV,
		Verbose:           false,
	}
}

// ListingsPath is the location of the listing table.
func (c *Config) ListingsPath() string {
	return filepath.Join(c.OutputDir, c.ListingsFile)
}

// CommentsPath is the location of the comment table.
func (c *Config) CommentsPath() string {
	return filepath.Join(c.OutputDir, c.CommentsFile)
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if c.SearchURL == "" {
		return fmt.Errorf("search URL cannot be empty")
	}

	parsedURL, err := url.Parse(c.SearchURL)
	if err != nil {
		return fmt.Errorf("invalid search URL: %w", err)
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("search URL must include a host")
	}

	if c.Backend != BackendChrome && c.Backend != BackendStatic {
		return fmt.Errorf("backend must be chrome or static")
	}
	if c.WindowWidth <= 0 || c.WindowHeight <= 0 {
		return fmt.Errorf("window size must be positive")
	}
	if c.MinDelay < 0 {
		return fmt.Errorf("min delay cannot be negative")
	}
	if c.MaxDelay < c.MinDelay {
		return fmt.Errorf("max delay (%s) cannot be below min delay (%s)", c.MaxDelay, c.MinDelay)
	}
	if c.NavigationTimeout < 0 {
		return fmt.Errorf("navigation timeout cannot be negative")
	}
	if c.OutputDir == "" {
		return fmt.Errorf("output dir cannot be empty")
	}
	if c.ListingsFile == "" || c.CommentsFile == "" {
		return fmt.Errorf("output file names cannot be empty")
	}
	if c.ListingsPath() == c.CommentsPath() {
		return fmt.Errorf("listings and comments must be written to different files")
	}
	if c.OutputFormat != FormatCSV && c.OutputFormat != FormatJSON && c.OutputFormat != FormatDual {
		return fmt.Errorf("output format must be csv, json, or dual")
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}

	return nil
}
