package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ahmetcoskunkizilkaya/listing-moderation/internal/models"
)

// Submission is an anonymous report as it arrives from the public form.
type Submission struct {
	ListingID uint
	Reason    string
	Comment   *string
	// Identity is the reporter fingerprint stored on the report.
	Identity string
	// Network identifies the client address alone. When set it is rate limited
	// alongside Identity, so rotating session ids from one address does not
	// reset the ceiling.
	Network string
}

// ReportIntake accepts public reports. Cheap validation runs first so malformed
// input does not use up the reporter's quota; a rate-limited submission never
// reaches the store.
type ReportIntake struct {
	limiter *RateLimiter
	reports *ReportStore
}

func NewReportIntake(limiter *RateLimiter, reports *ReportStore) *ReportIntake {
	return &ReportIntake{limiter: limiter, reports: reports}
}

func (i *ReportIntake) Submit(ctx context.Context, s Submission) (*models.Report, error) {
	draft := ReportDraft{
		ListingID:   s.ListingID,
		Reason:      models.ReportReason(s.Reason),
		Comment:     s.Comment,
		Fingerprint: s.Identity,
	}
	if err := i.reports.ValidateDraft(&draft); err != nil {
		return nil, err
	}

	keys := []string{s.Identity}
	if s.Network != "" {
		keys = append(keys, s.Network)
	}
	if err := i.limiter.Allow(ctx, keys...); err != nil {
		return nil, err
	}

	report, err := i.reports.Create(ctx, draft)
	if err != nil {
		return nil, fmt.Errorf("submit report: %w", err)
	}

	slog.Info("report submitted",
		"report_id", report.ID,
		"listing_id", report.ListingID,
		"reason", report.Reason,
	)
	return report, nil
}
