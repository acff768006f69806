package pipeline

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/aluiziolira/go-scrape-rentals/models"
)

// Runs only against a disposable database named by SCRAPER_TEST_DATABASE_URL.
func TestPostgresWriterWrite(t *testing.T) {
	dsn := os.Getenv("SCRAPER_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("SCRAPER_TEST_DATABASE_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	writer, err := NewPostgresWriter(ctx, dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer writer.Close()

	id := uuid.NewString()
	listing := &models.Listing{ID: id, Title: "Villa", Price: "$1", ScrapedAt: time.Now()}
	comments := []*models.Comment{
		{ListingID: id, Name: "Alice"},
		{ListingID: id, Name: "Bruno"},
	}
	if err := writer.Write(ctx, listing, comments); err != nil {
		t.Fatalf("write: %v", err)
	}

	var count int
	if err := writer.pool.QueryRow(ctx, "SELECT count(*) FROM listing_comments WHERE listing_id = $1", id).Scan(&count); err != nil {
		t.Fatalf("count comments: %v", err)
	}
	if count != 2 {
		t.Fatalf("comments = %d, want 2", count)
	}

	// A duplicate id rolls back the whole listing.
	if err := writer.Write(ctx, listing, comments); err == nil {
		t.Fatalf("expected duplicate key error")
	}
	if err := writer.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}
