package pipeline

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aluiziolira/go-scrape-rentals/models"
)

const (
	createListingsTable = `
CREATE TABLE IF NOT EXISTS listings (
	id          UUID PRIMARY KEY,
	url         TEXT NOT NULL DEFAULT '',
	title       TEXT NOT NULL DEFAULT '',
	facilities  TEXT NOT NULL DEFAULT '',
	price       TEXT NOT NULL DEFAULT '',
	scraped_at  TIMESTAMPTZ NOT NULL DEFAULT now()
)`

	createCommentsTable = `
CREATE TABLE IF NOT EXISTS listing_comments (
	listing_id  UUID NOT NULL REFERENCES listings(id) ON DELETE CASCADE,
	position    INT  NOT NULL,
	name        TEXT NOT NULL DEFAULT '',
	city        TEXT NOT NULL DEFAULT '',
	comment     TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (listing_id, position)
)`

	insertListing = `
INSERT INTO listings (id, url, title, facilities, price, scraped_at)
VALUES ($1, $2, $3, $4, $5, $6)`

	insertComment = `
INSERT INTO listing_comments (listing_id, position, name, city, comment)
VALUES ($1, $2, $3, $4, $5)`
)

// PostgresWriter stores listings and comments in Postgres, one transaction
// per listing. Rows accumulate across runs.
type PostgresWriter struct {
	pool *pgxpool.Pool
}

// NewPostgresWriter connects to databaseURL and creates the tables.
func NewPostgresWriter(ctx context.Context, databaseURL string) (*PostgresWriter, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	for _, stmt := range []string{createListingsTable, createCommentsTable} {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			pool.Close()
			return nil, fmt.Errorf("create schema: %w", err)
		}
	}

	return &PostgresWriter{pool: pool}, nil
}

// Write inserts the listing and its comments atomically.
func (pw *PostgresWriter) Write(ctx context.Context, listing *models.Listing, comments []*models.Comment) error {
	return pgx.BeginFunc(ctx, pw.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, insertListing,
			listing.ID, listing.URL, listing.Title, listing.Facilities, listing.Price, listing.ScrapedAt,
		); err != nil {
			return fmt.Errorf("insert listing %s: %w", listing.ID, err)
		}
		if len(comments) == 0 {
			return nil
		}

		batch := &pgx.Batch{}
		for i, c := range comments {
			batch.Queue(insertComment, c.ListingID, i, c.Name, c.City, c.Text)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert comments for %s: %w", listing.ID, err)
		}
		return nil
	})
}

// Close releases the connection pool.
func (pw *PostgresWriter) Close() error {
	pw.pool.Close()
	return nil
}

// Validate checks the database is still reachable.
func (pw *PostgresWriter) Validate() error {
	if err := pw.pool.Ping(context.Background()); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}
	return nil
}
