package models

import (
	"fmt"
	"time"
)

type ListingStatus string

const (
	ListingPending       ListingStatus = "pending"
	ListingPublished     ListingStatus = "published"
	ListingRejected      ListingStatus = "rejected"
	ListingNeedsRevision ListingStatus = "needs_revision"
)

func ParseListingStatus(s string) (ListingStatus, bool) {
	st := ListingStatus(s)
	switch st {
	case ListingPending, ListingPublished, ListingRejected, ListingNeedsRevision:
		return st, true
	}
	return "", false
}

// Listing mirrors the columns of the catalog's listings table this service
// reads and writes. The catalog owns the rest of the row.
type Listing struct {
	ID        uint          `gorm:"primaryKey" json:"id"`
	Title     string        `gorm:"size:255;not null" json:"title"`
	Status    ListingStatus `gorm:"size:20;not null;default:'pending';index" json:"status"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

func (Listing) TableName() string {
	return "listings"
}

// ListingSummary is the denormalized listing view shown next to a report.
type ListingSummary struct {
	ID      uint          `json:"id"`
	Title   string        `json:"title"`
	Status  ListingStatus `json:"status,omitempty"`
	Missing bool          `json:"missing,omitempty"`
}

// PlaceholderSummary stands in for a listing the catalog no longer has.
func PlaceholderSummary(id uint) ListingSummary {
	return ListingSummary{
		ID:      id,
		Title:   fmt.Sprintf("Listing #%d", id),
		Missing: true,
	}
}
