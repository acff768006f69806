package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// LoadDotEnv loads variables from the given .env files into the process
// environment. Missing files are ignored; variables already set win.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// EnvString returns the trimmed value of key and whether it was set.
func EnvString(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	if v == "" {
		return "", false
	}
	return v, true
}

// EnvInt parses key as an integer.
func EnvInt(key string) (int, bool, error) {
	v, ok := EnvString(key)
	if !ok {
		return 0, false, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false, fmt.Errorf("%s: %w", key, err)
	}
	return n, true, nil
}

// EnvBool parses key as a boolean.
func EnvBool(key string) (bool, bool, error) {
	v, ok := EnvString(key)
	if !ok {
		return false, false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, false, fmt.Errorf("%s: %w", key, err)
	}
	return b, true, nil
}

// EnvDuration parses key as a Go duration ("1500ms", "2s").
func EnvDuration(key string) (time.Duration, bool, error) {
	v, ok := EnvString(key)
	if !ok {
		return 0, false, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, false, fmt.Errorf("%s: %w", key, err)
	}
	return d, true, nil
}

// ApplyEnv overrides fields of c from SCRAPER_* variables and DATABASE_URL.
func (c *Config) ApplyEnv() error {
	if v, ok := EnvString("SCRAPER_URL"); ok {
		c.SearchURL = v
	}
	if v, ok := EnvString("SCRAPER_BACKEND"); ok {
		c.Backend = strings.ToLower(v)
	}
	if v, ok := EnvString("SCRAPER_OUTPUT_DIR"); ok {
		c.OutputDir = v
	}
	if v, ok := EnvString("SCRAPER_FORMAT"); ok {
		c.OutputFormat = strings.ToLower(v)
	}
	if v, ok := EnvString("SCRAPER_SELECTORS"); ok {
		c.SelectorsFile = v
	}
	if v, ok := EnvString("SCRAPER_USER_AGENT"); ok {
		c.UserAgent = v
	}
	if v, ok := EnvString("SCRAPER_METRICS_ADDR"); ok {
		c.MetricsAddr = v
	}
	if v, ok := EnvString("DATABASE_URL"); ok {
		c.DatabaseURL = v
	}

	if v, ok, err := EnvBool("SCRAPER_HEADLESS"); err != nil {
		return err
	} else if ok {
		c.Headless = v
	}
	if v, ok, err := EnvInt("SCRAPER_WINDOW_WIDTH"); err != nil {
		return err
	} else if ok {
		c.WindowWidth = v
	}
	if v, ok, err := EnvInt("SCRAPER_WINDOW_HEIGHT"); err != nil {
		return err
	} else if ok {
		c.WindowHeight = v
	}
	if v, ok, err := EnvDuration("SCRAPER_MIN_DELAY"); err != nil {
		return err
	} else if ok {
		c.MinDelay = v
	}
	if v, ok, err := EnvDuration("SCRAPER_MAX_DELAY"); err != nil {
		return err
	} else if ok {
		c.MaxDelay = v
	}
	if v, ok, err := EnvDuration("SCRAPER_NAV_TIMEOUT"); err != nil {
		return err
	} else if ok {
		c.NavigationTimeout = v
	}
	return nil
}
