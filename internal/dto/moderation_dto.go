package dto

import (
	"time"

	"github.com/ahmetcoskunkizilkaya/listing-moderation/internal/models"
)

type CreateReportRequest struct {
	ListingID uint    `json:"listing_id"`
	Reason    string  `json:"reason"`
	Comment   *string `json:"comment"`
}

type CreateReportResponse struct {
	ID uint `json:"id"`
}

type DecisionRequest struct {
	Action string `json:"action"`
	// Status optionally names the listing status the action implies.
	Status string `json:"status"`
	Notes  string `json:"notes"`
}

// ReportResponse is a report as staff see it. The reporter fingerprint is
// never included.
type ReportResponse struct {
	ID              uint                     `json:"id"`
	ListingID       uint                     `json:"listing_id"`
	Listing         *models.ListingSummary   `json:"listing,omitempty"`
	Reason          models.ReportReason      `json:"reason"`
	Comment         *string                  `json:"comment"`
	Status          models.ReportStatus      `json:"status"`
	CreatedAt       time.Time                `json:"created_at"`
	ResolvedAt      *time.Time               `json:"resolved_at"`
	ResolvedBy      *string                  `json:"resolved_by"`
	ResolutionNotes *string                  `json:"resolution_notes"`
	Action          *models.ModerationAction `json:"action"`
}

type ReportListResponse struct {
	Reports     []ReportResponse `json:"reports"`
	Total       int64            `json:"total"`
	Pages       int              `json:"pages"`
	CurrentPage int              `json:"current_page"`
	PerPage     int              `json:"per_page"`
	Counts      map[string]int64 `json:"counts,omitempty"`
}

type DecisionResponse struct {
	Success bool            `json:"success"`
	Report  *ReportResponse `json:"report,omitempty"`
	Message string          `json:"message,omitempty"`
}

type ConflictResponse struct {
	Success    bool                `json:"success"`
	Message    string              `json:"message"`
	Status     models.ReportStatus `json:"status"`
	ResolvedBy *string             `json:"resolved_by"`
	ResolvedAt *time.Time          `json:"resolved_at"`
}

type RateLimitResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func NewReportResponse(r *models.Report, listing *models.ListingSummary) ReportResponse {
	return ReportResponse{
		ID:              r.ID,
		ListingID:       r.ListingID,
		Listing:         listing,
		Reason:          r.Reason,
		Comment:         r.Comment,
		Status:          r.Status,
		CreatedAt:       r.CreatedAt,
		ResolvedAt:      r.ResolvedAt,
		ResolvedBy:      r.ResolvedBy,
		ResolutionNotes: r.ResolutionNotes,
		Action:          r.ResolutionAction,
	}
}
