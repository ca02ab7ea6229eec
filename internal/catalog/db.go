package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ahmetcoskunkizilkaya/listing-moderation/internal/database"
	"github.com/ahmetcoskunkizilkaya/listing-moderation/internal/models"
	"gorm.io/gorm"
)

// DBCatalog reads and writes the catalog's listings table directly. Used when
// the catalog shares this service's database.
type DBCatalog struct {
	db *gorm.DB
}

func NewDBCatalog(db *gorm.DB) *DBCatalog {
	return &DBCatalog{db: db}
}

func (c *DBCatalog) GetSummary(ctx context.Context, listingID uint) (models.ListingSummary, error) {
	var listing models.Listing
	err := c.db.WithContext(ctx).
		Select("id", "title", "status").
		First(&listing, "id = ?", listingID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.ListingSummary{}, ErrNotFound
		}
		return models.ListingSummary{}, classify(err, "get listing %d", listingID)
	}
	return models.ListingSummary{ID: listing.ID, Title: listing.Title, Status: listing.Status}, nil
}

// SetStatus is idempotent: writing the status a listing already has succeeds.
func (c *DBCatalog) SetStatus(ctx context.Context, listingID uint, status models.ListingStatus) error {
	if _, ok := models.ParseListingStatus(string(status)); !ok {
		return fmt.Errorf("catalog: unknown listing status %q", status)
	}

	result := c.db.WithContext(ctx).Model(&models.Listing{}).
		Where("id = ?", listingID).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return classify(result.Error, "set listing %d status", listingID)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func classify(err error, format string, args ...any) error {
	op := fmt.Sprintf(format, args...)
	if database.IsTransient(err) {
		return fmt.Errorf("%w: %s: %v", ErrUnavailable, op, err)
	}
	return fmt.Errorf("catalog: %s: %w", op, err)
}
