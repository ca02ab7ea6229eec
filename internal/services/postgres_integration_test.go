//go:build integration

package services

import (
	"context"
	"errors"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/listing-moderation/internal/catalog"
	"github.com/ahmetcoskunkizilkaya/listing-moderation/internal/database"
	"github.com/ahmetcoskunkizilkaya/listing-moderation/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"golang.org/x/sync/errgroup"
	pgdriver "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// openPostgres starts PostgreSQL 16, or reuses MODERATION_TEST_PG_DSN.
func openPostgres(t *testing.T) *gorm.DB {
	t.Helper()
	ctx := context.Background()

	dsn := os.Getenv("MODERATION_TEST_PG_DSN")
	if dsn == "" {
		pgC, err := postgres.Run(ctx,
			"postgres:16",
			postgres.WithDatabase("moderation_test"),
			postgres.WithUsername("testuser"),
			postgres.WithPassword("testpass"),
			postgres.BasicWaitStrategies(),
		)
		require.NoError(t, err)
		t.Cleanup(func() { _ = pgC.Terminate(context.Background()) })

		dsn, err = pgC.ConnectionString(ctx, "sslmode=disable")
		require.NoError(t, err)
	}

	db, err := gorm.Open(pgdriver.Open(dsn), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	require.NoError(t, db.Exec("TRUNCATE reports, rate_limit_windows, listings RESTART IDENTITY").Error)
	return db
}

func TestPostgresRateLimiterAcrossConnections(t *testing.T) {
	db := openPostgres(t)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(10)

	l := NewRateLimiter(NewGormWindowStore(db), 5, time.Hour)

	var allowed atomic.Int32
	var g errgroup.Group
	for i := 0; i < 40; i++ {
		g.Go(func() error {
			err := l.Allow(context.Background(), "pg-burst")
			if err == nil {
				allowed.Add(1)
				return nil
			}
			if errors.Is(err, ErrRateLimited) {
				return nil
			}
			return err
		})
	}
	require.NoError(t, g.Wait())
	assert.EqualValues(t, 5, allowed.Load())
}

func TestPostgresDecisionFlow(t *testing.T) {
	db := openPostgres(t)
	ctx := context.Background()
	require.NoError(t, db.Create(&models.Listing{ID: 7, Title: "Bike", Status: models.ListingPending}).Error)

	listings := catalog.NewDBCatalog(db)
	store := NewReportStore(db, listings, DefaultCommentMax, DefaultPageSize)
	engine := NewDecisionEngine(store, listings, 3, time.Millisecond)

	r, err := store.Create(ctx, draft(7))
	require.NoError(t, err)

	var wins, conflicts atomic.Int32
	var g errgroup.Group
	for _, action := range []string{"approve_listing", "reject_listing", "dismiss_report"} {
		g.Go(func() error {
			_, err := engine.Apply(ctx, Decision{ReportID: r.ID, Action: action, ModeratorID: action})
			switch {
			case err == nil:
				wins.Add(1)
			case errors.Is(err, ErrConflict):
				conflicts.Add(1)
			default:
				return err
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
	assert.EqualValues(t, 1, wins.Load())
	assert.EqualValues(t, 2, conflicts.Load())

	got, err := store.Get(ctx, r.ID)
	require.NoError(t, err)
	assert.True(t, got.Status.Terminal())

	// Losers put the listing back in line with the winning decision.
	require.NotNil(t, got.ResolutionAction)
	if want, ok := got.ResolutionAction.ListingStatus(); ok {
		summary, err := listings.GetSummary(ctx, 7)
		require.NoError(t, err)
		assert.Equal(t, want, summary.Status)
	}
}
