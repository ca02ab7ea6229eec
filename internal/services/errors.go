package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/ahmetcoskunkizilkaya/listing-moderation/internal/models"
)

var (
	ErrValidation            = errors.New("validation failed")
	ErrRateLimited           = errors.New("rate limit exceeded")
	ErrConflict              = errors.New("report was modified concurrently")
	ErrAlreadyResolved       = errors.New("report already resolved")
	ErrInvalidAction         = errors.New("invalid moderation action")
	ErrDependencyUnavailable = errors.New("listing catalog unavailable")
	ErrReportNotFound        = errors.New("report not found")
	ErrListingNotFound       = errors.New("listing not found")
	ErrInvalidCredentials    = errors.New("invalid email or password")
)

// ValidationError is malformed input. Resending the same request cannot succeed.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// RateLimitedError tells the caller how long until the current window closes.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("%s, retry in %s", ErrRateLimited, e.RetryAfter.Round(time.Second))
}

func (e *RateLimitedError) Unwrap() error { return ErrRateLimited }

// ConflictError is returned when a status CAS loses: the report no longer has
// the expected status.
type ConflictError struct {
	ReportID   uint
	Status     models.ReportStatus
	ResolvedBy *string
	ResolvedAt *time.Time
	Action     *models.ModerationAction
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("report %d is %s%s", e.ReportID, e.Status, resolvedBySuffix(e.ResolvedBy))
}

func (e *ConflictError) Unwrap() error { return ErrConflict }

// AlreadyResolvedError is returned before any side effect when a decision
// targets a report that is already terminal.
type AlreadyResolvedError struct {
	ReportID   uint
	Status     models.ReportStatus
	ResolvedBy *string
	ResolvedAt *time.Time
	Action     *models.ModerationAction
}

func (e *AlreadyResolvedError) Error() string {
	return fmt.Sprintf("report %d already %s%s", e.ReportID, e.Status, resolvedBySuffix(e.ResolvedBy))
}

// Is lets a lost CAS race and a pre-check hit be handled the same way.
func (e *AlreadyResolvedError) Is(target error) bool {
	return target == ErrAlreadyResolved || target == ErrConflict
}

func alreadyResolved(r *models.Report) *AlreadyResolvedError {
	return &AlreadyResolvedError{
		ReportID:   r.ID,
		Status:     r.Status,
		ResolvedBy: r.ResolvedBy,
		ResolvedAt: r.ResolvedAt,
		Action:     r.ResolutionAction,
	}
}

func resolvedBySuffix(by *string) string {
	if by == nil || *by == "" {
		return ""
	}
	return " by " + *by
}
