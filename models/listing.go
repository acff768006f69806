// Package models defines data structures for the scraper.
package models

import "time"

// Listing is one row of the listing table.
type Listing struct {
	ID         string    `csv:"ID" json:"id"`
	Title      string    `csv:"title" json:"title"`
	Facilities string    `csv:"facilities" json:"facilities"`
	Price      string    `csv:"price" json:"price"`
	URL        string    `csv:"-" json:"url"`
	ScrapedAt  time.Time `csv:"-" json:"scraped_at"`
}

// Comment is one guest review row; ListingID references Listing.ID.
type Comment struct {
	ListingID string `csv:"ID" json:"listing_id"`
	Name      string `csv:"name" json:"name"`
	City      string `csv:"city" json:"city"`
	Text      string `csv:"comment" json:"comment"`
}

// ListingHeader is the fixed header of the listing table.
var ListingHeader = []string{"ID", "title", "facilities", "price"}

// CommentHeader is the fixed header of the comment table.
var CommentHeader = []string{"ID", "name", "city", "comment"}

// Record returns the listing as a table row in ListingHeader order.
func (l *Listing) Record() []string {
	return []string{l.ID, l.Title, l.Facilities, l.Price}
}

// Record returns the comment as a table row in CommentHeader order.
func (c *Comment) Record() []string {
	return []string{c.ListingID, c.Name, c.City, c.Text}
}

// ScraperResult holds the overall result of a scraping run.
type ScraperResult struct {
	SearchURL    string
	StartTime    time.Time
	EndTime      time.Time
	LinkCount    int
	ListingCount int
	CommentCount int
	ErrorCount   int
	FailedURLs   []string
	ErrorsByType map[string]int
}
