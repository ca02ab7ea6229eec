package catalog

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/listing-moderation/internal/database/dbtest"
	"github.com/ahmetcoskunkizilkaya/listing-moderation/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDBCatalog(t *testing.T) {
	db := dbtest.Open(t)
	require.NoError(t, db.Create(&models.Listing{ID: 7, Title: "Bike", Status: models.ListingPending}).Error)

	c := NewDBCatalog(db)
	ctx := context.Background()

	summary, err := c.GetSummary(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, models.ListingSummary{ID: 7, Title: "Bike", Status: models.ListingPending}, summary)

	require.NoError(t, c.SetStatus(ctx, 7, models.ListingPublished))
	require.NoError(t, c.SetStatus(ctx, 7, models.ListingPublished), "same status twice is fine")

	var l models.Listing
	require.NoError(t, db.First(&l, 7).Error)
	assert.Equal(t, models.ListingPublished, l.Status)

	_, err = c.GetSummary(ctx, 8)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, c.SetStatus(ctx, 8, models.ListingRejected), ErrNotFound)
	assert.Error(t, c.SetStatus(ctx, 7, "archived"))
}

func TestHTTPCatalogGetSummary(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/listings/7/summary":
			json.NewEncoder(w).Encode(map[string]interface{}{"id": 7, "title": "Bike", "status": "published"})
		case "/listings/9/summary":
			w.WriteHeader(http.StatusBadGateway)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := NewHTTPCatalog(srv.URL+"/", time.Second)
	ctx := context.Background()

	summary, err := c.GetSummary(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, models.ListingSummary{ID: 7, Title: "Bike", Status: models.ListingPublished}, summary)

	_, err = c.GetSummary(ctx, 8)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = c.GetSummary(ctx, 9)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestHTTPCatalogSetStatus(t *testing.T) {
	var calls atomic.Int32
	var got statusRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.Method != http.MethodPut || r.URL.Path != "/listings/7/status" {
			http.NotFound(w, r)
			return
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := NewHTTPCatalog(srv.URL, time.Second)
	ctx := context.Background()

	require.NoError(t, c.SetStatus(ctx, 7, models.ListingRejected))
	assert.Equal(t, models.ListingRejected, got.Status)

	assert.ErrorIs(t, c.SetStatus(ctx, 8, models.ListingRejected), ErrNotFound)
	assert.EqualValues(t, 2, calls.Load())
}

func TestHTTPCatalogUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewHTTPCatalog(url, time.Second)
	err := c.SetStatus(context.Background(), 7, models.ListingPublished)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestHTTPCatalogCancelledContextIsNotUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := NewHTTPCatalog(srv.URL, time.Second).GetSummary(ctx, 7)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.NotErrorIs(t, err, ErrUnavailable)
}
