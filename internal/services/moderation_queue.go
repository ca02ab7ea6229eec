package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/ahmetcoskunkizilkaya/listing-moderation/internal/catalog"
	"github.com/ahmetcoskunkizilkaya/listing-moderation/internal/models"
	"golang.org/x/sync/errgroup"
)

const summaryFetchLimit = 8

type QueueQuery struct {
	// Status is "all", "" or a report status.
	Status  string
	Page    int
	PerPage int
}

type QueueItem struct {
	Report  models.Report
	Listing models.ListingSummary
}

type QueuePage struct {
	Items   []QueueItem
	Total   int64
	Pages   int
	Page    int
	PerPage int
}

// ModerationQueue is the staff view of reports joined with the current
// listing summaries. Summaries are fetched fresh on every call.
type ModerationQueue struct {
	reports *ReportStore
	catalog ListingCatalog
}

func NewModerationQueue(reports *ReportStore, listings ListingCatalog) *ModerationQueue {
	return &ModerationQueue{reports: reports, catalog: listings}
}

func (q *ModerationQueue) List(ctx context.Context, query QueueQuery) (*QueuePage, error) {
	filter, err := parseStatusFilter(query.Status)
	if err != nil {
		return nil, err
	}

	page, err := q.reports.List(ctx, filter, query.Page, query.PerPage)
	if err != nil {
		return nil, err
	}

	summaries, err := q.summaries(ctx, page.Items)
	if err != nil {
		return nil, err
	}

	items := make([]QueueItem, 0, len(page.Items))
	for _, r := range page.Items {
		items = append(items, QueueItem{Report: r, Listing: summaries[r.ListingID]})
	}
	return &QueuePage{
		Items:   items,
		Total:   page.Total,
		Pages:   page.Pages,
		Page:    page.Page,
		PerPage: page.PerPage,
	}, nil
}

// summaries fetches each distinct listing once. A listing that is gone, or that
// the catalog cannot return right now, gets a placeholder so one bad listing
// never hides the rest of the page.
func (q *ModerationQueue) summaries(ctx context.Context, reports []models.Report) (map[uint]models.ListingSummary, error) {
	out := make(map[uint]models.ListingSummary, len(reports))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(summaryFetchLimit)

	seen := make(map[uint]bool, len(reports))
	for _, r := range reports {
		id := r.ListingID
		if seen[id] {
			continue
		}
		seen[id] = true

		g.Go(func() error {
			summary, err := q.catalog.GetSummary(gctx, id)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				if !errors.Is(err, catalog.ErrNotFound) {
					slog.Warn("listing summary unavailable", "listing_id", id, "error", err)
				}
				summary = models.PlaceholderSummary(id)
			}
			mu.Lock()
			out[id] = summary
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func parseStatusFilter(s string) (ReportFilter, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" || s == "all" {
		return ReportFilter{}, nil
	}
	status, ok := models.ParseReportStatus(s)
	if !ok {
		return ReportFilter{}, invalid("status", "must be all, pending, resolved or dismissed")
	}
	return ReportFilter{Status: status}, nil
}
