package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ahmetcoskunkizilkaya/listing-moderation/internal/catalog"
	"github.com/ahmetcoskunkizilkaya/listing-moderation/internal/models"
	"github.com/cenkalti/backoff/v4"
)

// Decision is a moderator's verdict on one pending report.
type Decision struct {
	ReportID uint
	Action   string
	// NewListingStatus is optional. When set it must match what Action implies.
	NewListingStatus string
	ModeratorID      string
	Notes            string
}

// DecisionEngine applies a decision to the listing and then to the report.
// The listing goes first: if the catalog refuses, the report stays pending and
// the moderator can try again.
type DecisionEngine struct {
	reports    *ReportStore
	catalog    ListingCatalog
	maxRetries int
	retryBase  time.Duration
	now        func() time.Time
}

func NewDecisionEngine(reports *ReportStore, listings ListingCatalog, maxRetries int, retryBase time.Duration) *DecisionEngine {
	if maxRetries < 0 {
		maxRetries = 0
	}
	if retryBase <= 0 {
		retryBase = 200 * time.Millisecond
	}
	return &DecisionEngine{
		reports:    reports,
		catalog:    listings,
		maxRetries: maxRetries,
		retryBase:  retryBase,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (e *DecisionEngine) Apply(ctx context.Context, d Decision) (*models.Report, error) {
	log := slog.With("report_id", d.ReportID, "action", d.Action, "moderator_id", d.ModeratorID)

	report, err := e.apply(ctx, d, log)
	if err != nil {
		logFailure(log, err)
		return nil, err
	}

	log.Info("moderation decision applied",
		"listing_id", report.ListingID,
		"status", report.Status,
	)
	return report, nil
}

func (e *DecisionEngine) apply(ctx context.Context, d Decision, log *slog.Logger) (*models.Report, error) {
	report, err := e.reports.Get(ctx, d.ReportID)
	if err != nil {
		return nil, err
	}
	if report.Status.Terminal() {
		return nil, alreadyResolved(report)
	}

	action, ok := models.ParseModerationAction(strings.TrimSpace(d.Action))
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAction, d.Action)
	}
	if strings.TrimSpace(d.ModeratorID) == "" {
		return nil, invalid("moderator_id", "is required")
	}

	listingStatus, touchesListing, err := targetListingStatus(action, d.NewListingStatus)
	if err != nil {
		return nil, err
	}

	var prior *models.ListingStatus
	if touchesListing {
		// Remembered so a lost race can put back what was there.
		if summary, err := e.catalog.GetSummary(ctx, report.ListingID); err == nil {
			prior = &summary.Status
		}
		if err := e.setListingStatus(ctx, report.ListingID, listingStatus, log); err != nil {
			return nil, err
		}
	}

	// The listing has changed. Finish the report even if the caller went away.
	detached := context.WithoutCancel(ctx)
	updated, err := e.reports.Transition(detached, report.ID,
		models.ReportPending, action.ReportStatus(),
		Resolution{By: d.ModeratorID, At: e.now(), Notes: d.Notes, Action: action},
	)
	if err != nil {
		var conflict *ConflictError
		if errors.As(err, &conflict) {
			if touchesListing {
				e.compensate(detached, report.ListingID, listingStatus, prior, conflict, log)
			}
			return nil, &AlreadyResolvedError{
				ReportID:   conflict.ReportID,
				Status:     conflict.Status,
				ResolvedBy: conflict.ResolvedBy,
				ResolvedAt: conflict.ResolvedAt,
				Action:     conflict.Action,
			}
		}
		return nil, err
	}
	return updated, nil
}

// compensate undoes a listing write whose report was closed by someone else
// in the meantime. The listing ends up where the winning decision left it: the
// winner's listing status, or the status read before our write when the winner
// did not touch the listing.
func (e *DecisionEngine) compensate(ctx context.Context, listingID uint, written models.ListingStatus, prior *models.ListingStatus, conflict *ConflictError, log *slog.Logger) {
	var want models.ListingStatus
	var ok bool
	if conflict.Action != nil {
		want, ok = conflict.Action.ListingStatus()
	}
	if !ok {
		if prior == nil {
			log.Error("listing left with a decision that lost the race, prior status unknown",
				"listing_id", listingID,
				"status", written,
			)
			return
		}
		want = *prior
	}
	if want == written {
		return
	}

	if err := e.setListingStatus(ctx, listingID, want, log); err != nil {
		log.Error("failed to compensate listing status",
			"listing_id", listingID,
			"from", written,
			"to", want,
			"error", err,
		)
		return
	}
	winner := ""
	if conflict.ResolvedBy != nil {
		winner = *conflict.ResolvedBy
	}
	log.Warn("listing status compensated after losing the report race",
		"listing_id", listingID,
		"from", written,
		"to", want,
		"resolved_by", winner,
	)
}

// targetListingStatus returns the listing status action produces. An explicit
// status from the client must agree with it.
func targetListingStatus(action models.ModerationAction, explicit string) (models.ListingStatus, bool, error) {
	explicit = strings.TrimSpace(explicit)
	status, touches := action.ListingStatus()

	if explicit == "" {
		return status, touches, nil
	}
	if !touches {
		return "", false, invalid("status", "%s does not change the listing", action)
	}
	parsed, ok := models.ParseListingStatus(explicit)
	if !ok {
		return "", false, invalid("status", "unknown listing status %q", explicit)
	}
	if parsed != status {
		return "", false, invalid("status", "%s sets the listing to %s, not %s", action, status, parsed)
	}
	return status, true, nil
}

// setListingStatus retries only while the catalog reports itself unavailable.
func (e *DecisionEngine) setListingStatus(ctx context.Context, listingID uint, status models.ListingStatus, log *slog.Logger) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = e.retryBase
	b.MaxInterval = 16 * e.retryBase
	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(e.maxRetries)), ctx)

	op := func() error {
		err := e.catalog.SetStatus(ctx, listingID, status)
		if err == nil || errors.Is(err, catalog.ErrUnavailable) {
			return err
		}
		return backoff.Permanent(err)
	}
	notify := func(err error, wait time.Duration) {
		log.Warn("listing status update failed, retrying",
			"listing_id", listingID,
			"error", err,
			"wait", wait,
		)
	}

	err := backoff.RetryNotify(op, policy, notify)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, catalog.ErrNotFound):
		return fmt.Errorf("%w: listing %d", ErrListingNotFound, listingID)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return fmt.Errorf("%w: %v", ErrDependencyUnavailable, err)
	}
}

func logFailure(log *slog.Logger, err error) {
	switch {
	case errors.Is(err, ErrDependencyUnavailable):
		log.Error("moderation decision failed", "error", err)
	case errors.Is(err, ErrReportNotFound), errors.Is(err, ErrListingNotFound),
		errors.Is(err, ErrInvalidAction), errors.Is(err, ErrValidation),
		errors.Is(err, ErrConflict):
		log.Warn("moderation decision rejected", "error", err)
	default:
		log.Error("moderation decision failed", "error", err)
	}
}
