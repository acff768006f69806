package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aluiziolira/go-scrape-rentals/models"
)

type mockWriter struct {
	mu       sync.Mutex
	listings []*models.Listing
	comments []*models.Comment
	order    []string
	closed   bool
	writeErr error
}

func (mw *mockWriter) Write(_ context.Context, listing *models.Listing, comments []*models.Comment) error {
	mw.mu.Lock()
	defer mw.mu.Unlock()
	if mw.writeErr != nil {
		return mw.writeErr
	}
	mw.listings = append(mw.listings, listing)
	mw.order = append(mw.order, "listing:"+listing.ID)
	for _, c := range comments {
		mw.comments = append(mw.comments, c)
		mw.order = append(mw.order, "comment:"+c.ListingID)
	}
	return nil
}

func (mw *mockWriter) Close() error {
	mw.mu.Lock()
	mw.closed = true
	mw.mu.Unlock()
	return nil
}

func (mw *mockWriter) Validate() error {
	return nil
}

func testListing(id string) *models.Listing {
	return &models.Listing{
		ID:         id,
		Title:      "Ocean View Villa",
		Facilities: "Wifi, Pool",
		Price:      "$120 night",
		URL:        "http://example.test/rooms/" + id,
		ScrapedAt:  time.Now(),
	}
}

func TestPipelineProcessWritesListingBeforeComments(t *testing.T) {
	writer := &mockWriter{}
	p := NewPipeline(writer)

	listing := testListing("a")
	comments := []*models.Comment{
		{ListingID: "a", Name: "Alice", City: "Lisbon", Text: "Great"},
		{ListingID: "a", Name: "Bruno", City: "Recife", Text: "Loved it"},
	}
	if err := p.Process(context.Background(), listing, comments); err != nil {
		t.Fatalf("process: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	want := []string{"listing:a", "comment:a", "comment:a"}
	if len(writer.order) != len(want) {
		t.Fatalf("order = %v, want %v", writer.order, want)
	}
	for i := range want {
		if writer.order[i] != want[i] {
			t.Fatalf("order = %v, want %v", writer.order, want)
		}
	}

	metrics := p.GetMetrics()
	if got := metrics["processed_listings"].(int64); got != 1 {
		t.Fatalf("processed listings = %d, want 1", got)
	}
	if got := metrics["written_comments"].(int64); got != 2 {
		t.Fatalf("written comments = %d, want 2", got)
	}
}

func TestPipelineRejectsForeignComment(t *testing.T) {
	writer := &mockWriter{}
	p := NewPipeline(writer)

	listing := testListing("a")
	comments := []*models.Comment{
		{ListingID: "a", Name: "Alice"},
		{ListingID: "b", Name: "Mallory"},
	}
	err := p.Process(context.Background(), listing, comments)
	if !errors.Is(err, ErrInvalidRecord) {
		t.Fatalf("expected ErrInvalidRecord, got %v", err)
	}
	if len(writer.listings) != 0 || len(writer.comments) != 0 {
		t.Fatalf("nothing should be written for an invalid record")
	}

	// A rejected record does not stop the pipeline.
	if err := p.Process(context.Background(), testListing("c"), nil); err != nil {
		t.Fatalf("process after rejection: %v", err)
	}

	validation := p.GetMetrics()["validation_errors"].(map[string]int)
	if validation["invalid_record"] != 1 {
		t.Fatalf("invalid_record = %d, want 1", validation["invalid_record"])
	}
}

func TestPipelineRejectsMissingID(t *testing.T) {
	p := NewPipeline(&mockWriter{})
	if err := p.Process(context.Background(), testListing(""), nil); !errors.Is(err, ErrInvalidRecord) {
		t.Fatalf("expected ErrInvalidRecord, got %v", err)
	}
}

func TestPipelineWriteErrorIsSticky(t *testing.T) {
	boom := errors.New("disk full")
	writer := &mockWriter{writeErr: boom}
	p := NewPipeline(writer)

	if err := p.Process(context.Background(), testListing("a"), nil); !errors.Is(err, boom) {
		t.Fatalf("expected write error, got %v", err)
	}
	if err := p.Process(context.Background(), testListing("b"), nil); !errors.Is(err, boom) {
		t.Fatalf("expected sticky write error, got %v", err)
	}
	if err := p.Close(); !errors.Is(err, boom) {
		t.Fatalf("close should report write error, got %v", err)
	}
}

func TestPipelineClosed(t *testing.T) {
	p := NewPipeline(&mockWriter{})
	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := p.Process(context.Background(), testListing("a"), nil); !errors.Is(err, ErrPipelineClosed) {
		t.Fatalf("expected ErrPipelineClosed, got %v", err)
	}
}

func TestPipelineMetricsReportingStopsOnClose(t *testing.T) {
	p := NewPipeline(&mockWriter{})
	p.StartMetricsReporting(time.Millisecond)
	time.Sleep(5 * time.Millisecond)
	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestRejectedRecordsCountsEveryRejection(t *testing.T) {
	p := NewPipeline(&mockWriter{})
	for _, id := range []string{"", "", ""} {
		if err := p.Process(context.Background(), testListing(id), nil); !errors.Is(err, ErrInvalidRecord) {
			t.Fatalf("expected ErrInvalidRecord, got %v", err)
		}
	}

	validation := p.GetMetrics()["validation_errors"].(map[string]int)
	if got := rejectedRecords(validation); got != 3 {
		t.Fatalf("rejected records = %d, want 3", got)
	}
	if got := rejectedRecords(map[string]int{"invalid_record": 2, "other": 1}); got != 3 {
		t.Fatalf("rejected records = %d, want 3", got)
	}
}
