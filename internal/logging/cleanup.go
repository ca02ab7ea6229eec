package logging

import (
	"context"
	"time"

	"github.com/ahmetcoskunkizilkaya/listing-moderation/internal/models"
	"gorm.io/gorm"
)

// PurgeSystemLogs deletes system_logs older than retention.
func PurgeSystemLogs(ctx context.Context, db *gorm.DB, retention time.Duration, now time.Time) (int64, error) {
	cutoff := now.UTC().Add(-retention)
	result := db.WithContext(ctx).Where("timestamp < ?", cutoff).Delete(&models.SystemLog{})
	return result.RowsAffected, result.Error
}
