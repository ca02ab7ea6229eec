package models

import (
	"time"
)

// ReportReason is the closed set of reasons a visitor can flag a listing for.
type ReportReason string

const (
	ReasonScam          ReportReason = "scam"
	ReasonDuplicate     ReportReason = "duplicate"
	ReasonWrongCategory ReportReason = "wrong_category"
	ReasonOffensive     ReportReason = "offensive"
	ReasonIllegal       ReportReason = "illegal"
	ReasonOther         ReportReason = "other"
)

var ReportReasons = []ReportReason{
	ReasonScam, ReasonDuplicate, ReasonWrongCategory,
	ReasonOffensive, ReasonIllegal, ReasonOther,
}

// ParseReportReason returns false for anything outside ReportReasons.
func ParseReportReason(s string) (ReportReason, bool) {
	r := ReportReason(s)
	switch r {
	case ReasonScam, ReasonDuplicate, ReasonWrongCategory,
		ReasonOffensive, ReasonIllegal, ReasonOther:
		return r, true
	}
	return "", false
}

// ReportStatus moves pending -> resolved|dismissed and never back.
type ReportStatus string

const (
	ReportPending   ReportStatus = "pending"
	ReportResolved  ReportStatus = "resolved"
	ReportDismissed ReportStatus = "dismissed"
)

func ParseReportStatus(s string) (ReportStatus, bool) {
	st := ReportStatus(s)
	switch st {
	case ReportPending, ReportResolved, ReportDismissed:
		return st, true
	}
	return "", false
}

func (s ReportStatus) Terminal() bool {
	return s == ReportResolved || s == ReportDismissed
}

// Report is one flagging event against a listing. Rows are never deleted.
type Report struct {
	ID                  uint              `gorm:"primaryKey;autoIncrement" json:"id"`
	ListingID           uint              `gorm:"not null;index" json:"listing_id"`
	Reason              ReportReason      `gorm:"size:32;not null" json:"reason"`
	Comment             *string           `gorm:"size:500" json:"comment"`
	Status              ReportStatus      `gorm:"size:20;not null;default:'pending';index:idx_reports_status_created,priority:1" json:"status"`
	ReporterFingerprint string            `gorm:"size:64;not null;index" json:"-"`
	CreatedAt           time.Time         `gorm:"not null;index:idx_reports_status_created,priority:2" json:"created_at"`
	ResolvedAt          *time.Time        `json:"resolved_at"`
	ResolvedBy          *string           `gorm:"size:64" json:"resolved_by"`
	ResolutionNotes     *string           `gorm:"size:1000" json:"resolution_notes"`
	ResolutionAction    *ModerationAction `gorm:"size:32" json:"resolution_action"`
	UpdatedAt           time.Time         `json:"-"`
}

func (Report) TableName() string {
	return "reports"
}
