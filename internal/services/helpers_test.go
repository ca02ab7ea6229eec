package services

import (
	"context"
	"sync"
	"testing"

	"github.com/ahmetcoskunkizilkaya/listing-moderation/internal/catalog"
	"github.com/ahmetcoskunkizilkaya/listing-moderation/internal/database/dbtest"
	"github.com/ahmetcoskunkizilkaya/listing-moderation/internal/models"
	"gorm.io/gorm"
)

// fakeCatalog is an in-memory ListingCatalog. setErrs are returned by
// successive SetStatus calls before it starts succeeding. beforeSet runs once,
// inside the next SetStatus call, before the write lands.
type fakeCatalog struct {
	mu        sync.Mutex
	listings  map[uint]models.ListingSummary
	getErr    error
	setErrs   []error
	beforeSet func()
	setCalls  int
	applied   int
	getCalls  int
}

func newFakeCatalog(listings ...models.ListingSummary) *fakeCatalog {
	f := &fakeCatalog{listings: make(map[uint]models.ListingSummary)}
	for _, l := range listings {
		f.listings[l.ID] = l
	}
	return f
}

func (f *fakeCatalog) GetSummary(_ context.Context, id uint) (models.ListingSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getCalls++
	if f.getErr != nil {
		return models.ListingSummary{}, f.getErr
	}
	l, ok := f.listings[id]
	if !ok {
		return models.ListingSummary{}, catalog.ErrNotFound
	}
	return l, nil
}

func (f *fakeCatalog) SetStatus(_ context.Context, id uint, status models.ListingStatus) error {
	f.mu.Lock()
	hook := f.beforeSet
	f.beforeSet = nil
	f.mu.Unlock()
	if hook != nil {
		hook()
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.setCalls++
	if len(f.setErrs) > 0 {
		err := f.setErrs[0]
		f.setErrs = f.setErrs[1:]
		return err
	}
	l, ok := f.listings[id]
	if !ok {
		return catalog.ErrNotFound
	}
	l.Status = status
	f.listings[id] = l
	f.applied++
	return nil
}

func (f *fakeCatalog) status(id uint) models.ListingStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listings[id].Status
}

func listing(id uint, title string) models.ListingSummary {
	return models.ListingSummary{ID: id, Title: title, Status: models.ListingPending}
}

func newStore(t *testing.T, cat ListingCatalog) (*ReportStore, *gorm.DB) {
	t.Helper()
	db := dbtest.Open(t)
	return NewReportStore(db, cat, DefaultCommentMax, DefaultPageSize), db
}

func ptr[T any](v T) *T { return &v }
