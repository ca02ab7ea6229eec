package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ahmetcoskunkizilkaya/listing-moderation/internal/catalog"
	"github.com/ahmetcoskunkizilkaya/listing-moderation/internal/models"
	"gorm.io/gorm"
)

const (
	DefaultCommentMax = 500
	DefaultPageSize   = 20
	MaxPageSize       = 100
)

// ListingCatalog is the part of the listing catalog moderation depends on.
type ListingCatalog interface {
	GetSummary(ctx context.Context, listingID uint) (models.ListingSummary, error)
	SetStatus(ctx context.Context, listingID uint, status models.ListingStatus) error
}

// ReportDraft is an unsaved report as submitted by a visitor.
type ReportDraft struct {
	ListingID   uint
	Reason      models.ReportReason
	Comment     *string
	Fingerprint string
}

// Resolution is recorded on the terminal transition.
type Resolution struct {
	By     string
	At     time.Time
	Notes  string
	Action models.ModerationAction
}

type ReportFilter struct {
	// Status is empty for all reports.
	Status models.ReportStatus
}

type ReportPage struct {
	Items   []models.Report
	Total   int64
	Pages   int
	Page    int
	PerPage int
}

type ReportStore struct {
	db         *gorm.DB
	catalog    ListingCatalog
	commentMax int
	pageSize   int
	now        func() time.Time
}

func NewReportStore(db *gorm.DB, listings ListingCatalog, commentMax, pageSize int) *ReportStore {
	if commentMax <= 0 {
		commentMax = DefaultCommentMax
	}
	if pageSize <= 0 || pageSize > MaxPageSize {
		pageSize = DefaultPageSize
	}
	return &ReportStore{
		db:         db,
		catalog:    listings,
		commentMax: commentMax,
		pageSize:   pageSize,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (s *ReportStore) CommentMax() int { return s.commentMax }

// ValidateDraft checks the parts of a draft that need no I/O.
func (s *ReportStore) ValidateDraft(d *ReportDraft) error {
	if d.ListingID == 0 {
		return invalid("listing_id", "is required")
	}
	if _, ok := models.ParseReportReason(string(d.Reason)); !ok {
		return invalid("reason", "must be one of scam, duplicate, wrong_category, offensive, illegal, other")
	}
	if d.Comment != nil {
		if strings.TrimSpace(*d.Comment) == "" {
			d.Comment = nil
		} else if utf8.RuneCountInString(*d.Comment) > s.commentMax {
			return invalid("comment", "must be at most %d characters", s.commentMax)
		}
	}
	if strings.TrimSpace(d.Fingerprint) == "" {
		return invalid("fingerprint", "is required")
	}
	return nil
}

// Create stores a new pending report after confirming the listing exists.
func (s *ReportStore) Create(ctx context.Context, d ReportDraft) (*models.Report, error) {
	if err := s.ValidateDraft(&d); err != nil {
		return nil, err
	}

	if _, err := s.catalog.GetSummary(ctx, d.ListingID); err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return nil, invalid("listing_id", "listing %d does not exist", d.ListingID)
		}
		return nil, fmt.Errorf("%w: %v", ErrDependencyUnavailable, err)
	}

	report := models.Report{
		ListingID:           d.ListingID,
		Reason:              d.Reason,
		Comment:             d.Comment,
		Status:              models.ReportPending,
		ReporterFingerprint: d.Fingerprint,
		CreatedAt:           s.now(),
	}
	if err := s.db.WithContext(ctx).Create(&report).Error; err != nil {
		return nil, fmt.Errorf("failed to create report: %w", err)
	}
	return &report, nil
}

func (s *ReportStore) Get(ctx context.Context, id uint) (*models.Report, error) {
	var report models.Report
	if err := s.db.WithContext(ctx).First(&report, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReportNotFound
		}
		return nil, fmt.Errorf("failed to load report %d: %w", id, err)
	}
	return &report, nil
}

// List returns one page of reports, newest first. A page past the last one is
// empty, not an error.
func (s *ReportStore) List(ctx context.Context, filter ReportFilter, page, perPage int) (*ReportPage, error) {
	if filter.Status != "" {
		if _, ok := models.ParseReportStatus(string(filter.Status)); !ok {
			return nil, invalid("status", "must be all, pending, resolved or dismissed")
		}
	}
	if page < 1 {
		page = 1
	}
	if perPage <= 0 {
		perPage = s.pageSize
	}
	if perPage > MaxPageSize {
		perPage = MaxPageSize
	}

	scoped := func() *gorm.DB {
		q := s.db.WithContext(ctx).Model(&models.Report{})
		if filter.Status != "" {
			q = q.Where("status = ?", filter.Status)
		}
		return q
	}

	var total int64
	if err := scoped().Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count reports: %w", err)
	}

	result := &ReportPage{
		Items:   []models.Report{},
		Total:   total,
		Pages:   int((total + int64(perPage) - 1) / int64(perPage)),
		Page:    page,
		PerPage: perPage,
	}
	if page > result.Pages {
		return result, nil
	}

	err := scoped().Order("created_at DESC").Order("id DESC").
		Limit(perPage).Offset((page - 1) * perPage).
		Find(&result.Items).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	return result, nil
}

// Transition moves a report from expected to next only if it still has the
// expected status. A lost race returns *ConflictError describing the winner.
func (s *ReportStore) Transition(ctx context.Context, id uint, expected, next models.ReportStatus, res Resolution) (*models.Report, error) {
	if expected != models.ReportPending {
		return nil, invalid("status", "only pending reports can transition")
	}
	if !next.Terminal() {
		return nil, invalid("status", "target status %q is not terminal", next)
	}
	if strings.TrimSpace(res.By) == "" {
		return nil, invalid("resolved_by", "is required")
	}
	if res.At.IsZero() {
		res.At = s.now()
	}

	updates := map[string]interface{}{
		"status":           next,
		"resolved_at":      res.At.UTC(),
		"resolved_by":      res.By,
		"resolution_notes": nullable(res.Notes),
	}
	if res.Action != "" {
		updates["resolution_action"] = res.Action
	}
	result := s.db.WithContext(ctx).Model(&models.Report{}).
		Where("id = ? AND status = ?", id, expected).
		Updates(updates)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to transition report %d: %w", id, result.Error)
	}

	report, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if result.RowsAffected == 0 {
		return nil, &ConflictError{
			ReportID:   report.ID,
			Status:     report.Status,
			ResolvedBy: report.ResolvedBy,
			ResolvedAt: report.ResolvedAt,
			Action:     report.ResolutionAction,
		}
	}
	return report, nil
}

// CountByStatus returns how many reports sit in each status.
func (s *ReportStore) CountByStatus(ctx context.Context) (map[models.ReportStatus]int64, error) {
	var rows []struct {
		Status models.ReportStatus
		Total  int64
	}
	err := s.db.WithContext(ctx).Model(&models.Report{}).
		Select("status, COUNT(*) AS total").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count reports by status: %w", err)
	}

	counts := map[models.ReportStatus]int64{
		models.ReportPending:   0,
		models.ReportResolved:  0,
		models.ReportDismissed: 0,
	}
	for _, r := range rows {
		counts[r.Status] = r.Total
	}
	return counts, nil
}

func nullable(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
