package services

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/listing-moderation/internal/catalog"
	"github.com/ahmetcoskunkizilkaya/listing-moderation/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func draft(listingID uint) ReportDraft {
	return ReportDraft{ListingID: listingID, Reason: models.ReasonScam, Fingerprint: "fp"}
}

func TestReportStoreCreateAndGet(t *testing.T) {
	store, _ := newStore(t, newFakeCatalog(listing(7, "Bike")))
	ctx := context.Background()
	comment := strings.Repeat("é", 500)

	created, err := store.Create(ctx, ReportDraft{
		ListingID:   7,
		Reason:      models.ReasonScam,
		Comment:     &comment,
		Fingerprint: "fp-1",
	})
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.Equal(t, models.ReportPending, created.Status)
	assert.False(t, created.CreatedAt.IsZero())

	got, err := store.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, uint(7), got.ListingID)
	assert.Equal(t, models.ReasonScam, got.Reason)
	require.NotNil(t, got.Comment)
	assert.Equal(t, comment, *got.Comment)
	assert.Equal(t, models.ReportPending, got.Status)
	assert.Nil(t, got.ResolvedAt)
	assert.Nil(t, got.ResolvedBy)
}

func TestReportStoreCreateValidation(t *testing.T) {
	store, db := newStore(t, newFakeCatalog(listing(7, "Bike")))
	ctx := context.Background()

	tests := []struct {
		name  string
		draft ReportDraft
		field string
	}{
		{"missing listing", ReportDraft{Reason: models.ReasonScam, Fingerprint: "fp"}, "listing_id"},
		{"unknown reason", ReportDraft{ListingID: 7, Reason: "spam", Fingerprint: "fp"}, "reason"},
		{"comment too long", ReportDraft{ListingID: 7, Reason: models.ReasonOther, Comment: ptr(strings.Repeat("x", 501)), Fingerprint: "fp"}, "comment"},
		{"unknown listing", ReportDraft{ListingID: 99, Reason: models.ReasonScam, Fingerprint: "fp"}, "listing_id"},
		{"missing fingerprint", ReportDraft{ListingID: 7, Reason: models.ReasonScam}, "fingerprint"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := store.Create(ctx, tt.draft)
			require.ErrorIs(t, err, ErrValidation)

			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.field, verr.Field)
		})
	}

	var count int64
	require.NoError(t, db.Model(&models.Report{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestReportStoreBlankCommentStoredAsNull(t *testing.T) {
	store, _ := newStore(t, newFakeCatalog(listing(7, "Bike")))
	d := draft(7)
	d.Comment = ptr("   ")

	created, err := store.Create(context.Background(), d)
	require.NoError(t, err)
	assert.Nil(t, created.Comment)
}

func TestReportStoreCreateCatalogDown(t *testing.T) {
	cat := newFakeCatalog(listing(7, "Bike"))
	cat.getErr = catalog.ErrUnavailable
	store, _ := newStore(t, cat)

	_, err := store.Create(context.Background(), draft(7))
	assert.ErrorIs(t, err, ErrDependencyUnavailable)
}

func TestReportStoreGetNotFound(t *testing.T) {
	store, _ := newStore(t, newFakeCatalog())
	_, err := store.Get(context.Background(), 12345)
	assert.ErrorIs(t, err, ErrReportNotFound)
}

func seedReports(t *testing.T, store *ReportStore, n int) []uint {
	t.Helper()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	var tick atomic.Int64
	store.now = func() time.Time { return base.Add(time.Duration(tick.Add(1)) * time.Second) }

	ids := make([]uint, 0, n)
	for i := 0; i < n; i++ {
		r, err := store.Create(context.Background(), draft(7))
		require.NoError(t, err)
		ids = append(ids, r.ID)
	}
	return ids
}

func TestReportStoreListPagination(t *testing.T) {
	store, _ := newStore(t, newFakeCatalog(listing(7, "Bike")))
	ctx := context.Background()
	ids := seedReports(t, store, 45)

	first, err := store.List(ctx, ReportFilter{}, 1, 20)
	require.NoError(t, err)
	assert.EqualValues(t, 45, first.Total)
	assert.Equal(t, 3, first.Pages)
	require.Len(t, first.Items, 20)
	assert.Equal(t, ids[44], first.Items[0].ID, "newest first")

	last, err := store.List(ctx, ReportFilter{}, 3, 20)
	require.NoError(t, err)
	require.Len(t, last.Items, 5)
	assert.Equal(t, ids[0], last.Items[4].ID)

	beyond, err := store.List(ctx, ReportFilter{}, 4, 20)
	require.NoError(t, err)
	assert.Empty(t, beyond.Items)
	assert.Equal(t, 3, beyond.Pages)
}

func TestReportStoreListDefaultsAndCaps(t *testing.T) {
	store, _ := newStore(t, newFakeCatalog(listing(7, "Bike")))
	ctx := context.Background()
	seedReports(t, store, 3)

	page, err := store.List(ctx, ReportFilter{}, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, DefaultPageSize, page.PerPage)
	assert.Equal(t, 1, page.Pages)

	page, err = store.List(ctx, ReportFilter{}, 1, 1000)
	require.NoError(t, err)
	assert.Equal(t, MaxPageSize, page.PerPage)

	empty, err := store.List(ctx, ReportFilter{Status: models.ReportDismissed}, 1, 20)
	require.NoError(t, err)
	assert.Zero(t, empty.Total)
	assert.Zero(t, empty.Pages)
	assert.NotNil(t, empty.Items)

	_, err = store.List(ctx, ReportFilter{Status: "closed"}, 1, 20)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestReportStoreTransition(t *testing.T) {
	store, _ := newStore(t, newFakeCatalog(listing(7, "Bike")))
	ctx := context.Background()
	r, err := store.Create(ctx, draft(7))
	require.NoError(t, err)

	at := time.Date(2026, 2, 1, 9, 30, 0, 0, time.UTC)
	updated, err := store.Transition(ctx, r.ID, models.ReportPending, models.ReportResolved,
		Resolution{By: "mod-1", At: at, Notes: "confirmed scam"})
	require.NoError(t, err)
	assert.Equal(t, models.ReportResolved, updated.Status)
	require.NotNil(t, updated.ResolvedBy)
	assert.Equal(t, "mod-1", *updated.ResolvedBy)
	require.NotNil(t, updated.ResolvedAt)
	assert.True(t, at.Equal(*updated.ResolvedAt))
	require.NotNil(t, updated.ResolutionNotes)
	assert.Equal(t, "confirmed scam", *updated.ResolutionNotes)

	_, err = store.Transition(ctx, r.ID, models.ReportPending, models.ReportDismissed, Resolution{By: "mod-2"})
	require.ErrorIs(t, err, ErrConflict)
	var conflict *ConflictError
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, models.ReportResolved, conflict.Status)
	require.NotNil(t, conflict.ResolvedBy)
	assert.Equal(t, "mod-1", *conflict.ResolvedBy)

	got, err := store.Get(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReportResolved, got.Status, "loser must not overwrite")
}

func TestReportStoreTransitionRejectsBadArguments(t *testing.T) {
	store, _ := newStore(t, newFakeCatalog(listing(7, "Bike")))
	ctx := context.Background()
	r, err := store.Create(ctx, draft(7))
	require.NoError(t, err)

	_, err = store.Transition(ctx, r.ID, models.ReportResolved, models.ReportDismissed, Resolution{By: "m"})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = store.Transition(ctx, r.ID, models.ReportPending, models.ReportPending, Resolution{By: "m"})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = store.Transition(ctx, r.ID, models.ReportPending, models.ReportResolved, Resolution{})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = store.Transition(ctx, 9999, models.ReportPending, models.ReportResolved, Resolution{By: "m"})
	assert.ErrorIs(t, err, ErrReportNotFound)
}

func TestReportStoreConcurrentTransitionsOneWins(t *testing.T) {
	store, _ := newStore(t, newFakeCatalog(listing(7, "Bike")))
	ctx := context.Background()
	r, err := store.Create(ctx, draft(7))
	require.NoError(t, err)

	var wins, conflicts atomic.Int32
	var g errgroup.Group
	for _, next := range []models.ReportStatus{models.ReportResolved, models.ReportDismissed} {
		g.Go(func() error {
			_, err := store.Transition(ctx, r.ID, models.ReportPending, next, Resolution{By: string(next)})
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
	assert.EqualValues(t, 1, conflicts.Load())
}

func TestReportStoreCountByStatus(t *testing.T) {
	store, _ := newStore(t, newFakeCatalog(listing(7, "Bike")))
	ctx := context.Background()
	ids := seedReports(t, store, 3)

	_, err := store.Transition(ctx, ids[0], models.ReportPending, models.ReportDismissed, Resolution{By: "m"})
	require.NoError(t, err)

	counts, err := store.CountByStatus(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, counts[models.ReportPending])
	assert.EqualValues(t, 1, counts[models.ReportDismissed])
	assert.EqualValues(t, 0, counts[models.ReportResolved])
}
