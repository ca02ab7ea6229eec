package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/listing-moderation/internal/database/dbtest"
	"github.com/ahmetcoskunkizilkaya/listing-moderation/internal/models"
	"github.com/ahmetcoskunkizilkaya/listing-moderation/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHousekeepingEvictsExpiredWindows(t *testing.T) {
	db := dbtest.Open(t)
	store := services.NewGormWindowStore(db)
	ctx := context.Background()
	now := time.Now().UTC()

	_, _, err := store.Hit(ctx, "old", 5, time.Hour, now.Add(-2*time.Hour))
	require.NoError(t, err)
	_, _, err = store.Hit(ctx, "fresh", 5, time.Hour, now.Add(-time.Minute))
	require.NoError(t, err)

	h := NewHousekeeping(db, store, 30*24*time.Hour, time.Hour)
	h.now = func() time.Time { return now }
	h.EvictWindows(ctx)

	var left []models.RateLimitWindow
	require.NoError(t, db.Find(&left).Error)
	require.Len(t, left, 1)
	assert.Equal(t, "fresh", left[0].Fingerprint)
}

func TestHousekeepingPurgesLogs(t *testing.T) {
	db := dbtest.Open(t)
	now := time.Now().UTC()
	require.NoError(t, db.Create(&models.SystemLog{Timestamp: now.Add(-31 * 24 * time.Hour), Level: "WARN"}).Error)

	h := NewHousekeeping(db, nil, 30*24*time.Hour, time.Hour)
	h.now = func() time.Time { return now }
	h.PurgeLogs(context.Background())

	var count int64
	require.NoError(t, db.Model(&models.SystemLog{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestHousekeepingStartRegistersJobs(t *testing.T) {
	db := dbtest.Open(t)
	h := NewHousekeeping(db, services.NewMemoryWindowStore(), 24*time.Hour, time.Hour)
	require.NoError(t, h.Start())
	defer h.Stop()

	assert.Len(t, h.cron.Entries(), 2)
}
