package parser

import (
	"fmt"
	"strings"

	"github.com/aluiziolira/go-scrape-rentals/models"
)

// PriceUnavailable is stored when a listing page shows no price.
const PriceUnavailable = "N/A"

// ValidateListing ensures a listing row can be committed.
func ValidateListing(l *models.Listing) error {
	if l == nil {
		return fmt.Errorf("listing is nil")
	}
	if strings.TrimSpace(l.ID) == "" {
		return fmt.Errorf("listing missing id for %s", l.URL)
	}
	if l.Price == "" {
		return fmt.Errorf("listing missing price for %s", l.URL)
	}
	return nil
}

// ValidateComment ensures a comment row belongs to listingID.
func ValidateComment(c *models.Comment, listingID string) error {
	if c == nil {
		return fmt.Errorf("comment is nil")
	}
	if c.ListingID != listingID {
		return fmt.Errorf("comment references listing %q, want %q", c.ListingID, listingID)
	}
	return nil
}

// NormalizePrice replaces non-breaking spaces, escaped or literal, with an
// ordinary space. Empty content becomes PriceUnavailable.
func NormalizePrice(raw string) string {
	price := strings.ReplaceAll(raw, "&nbsp;", " ")
	price = strings.ReplaceAll(price, "\u00a0", " ")
	if strings.TrimSpace(price) == "" {
		return PriceUnavailable
	}
	return price
}
