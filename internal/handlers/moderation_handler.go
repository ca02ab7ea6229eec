package handlers

import (
	"errors"
	"log/slog"
	"math"
	"strconv"

	"github.com/ahmetcoskunkizilkaya/listing-moderation/internal/dto"
	"github.com/ahmetcoskunkizilkaya/listing-moderation/internal/services"
	"github.com/ahmetcoskunkizilkaya/listing-moderation/internal/session"
	sentryfiber "github.com/getsentry/sentry-go/fiber"
	"github.com/gofiber/fiber/v2"
)

type ModerationHandler struct {
	intake          *services.ReportIntake
	queue           *services.ModerationQueue
	engine          *services.DecisionEngine
	reports         *services.ReportStore
	fingerprintSalt string
}

func NewModerationHandler(
	intake *services.ReportIntake,
	queue *services.ModerationQueue,
	engine *services.DecisionEngine,
	reports *services.ReportStore,
	fingerprintSalt string,
) *ModerationHandler {
	return &ModerationHandler{
		intake:          intake,
		queue:           queue,
		engine:          engine,
		reports:         reports,
		fingerprintSalt: fingerprintSalt,
	}
}

// CreateReport accepts an anonymous report. No account is needed; the
// reporter is rate limited by fingerprint.
func (h *ModerationHandler) CreateReport(c *fiber.Ctx) error {
	var req dto.CreateReportRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid request body",
		})
	}

	report, err := h.intake.Submit(c.UserContext(), services.Submission{
		ListingID: req.ListingID,
		Reason:    req.Reason,
		Comment:   req.Comment,
		Identity:  session.Fingerprint(c, h.fingerprintSalt),
		Network:   session.NetworkFingerprint(c, h.fingerprintSalt),
	})
	if err != nil {
		var limited *services.RateLimitedError
		var invalid *services.ValidationError
		switch {
		case errors.As(err, &limited):
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(retryAfterSeconds(limited)))
			return c.Status(fiber.StatusTooManyRequests).JSON(dto.RateLimitResponse{
				Code:    "rate_limit_exceeded",
				Message: "Too many reports. Please try again later.",
			})
		case errors.As(err, &invalid):
			return c.Status(fiber.StatusUnprocessableEntity).JSON(dto.ErrorResponse{
				Error: true, Message: invalid.Error(),
			})
		case errors.Is(err, services.ErrDependencyUnavailable):
			captureDependencyFailure(c, err)
			return c.Status(fiber.StatusServiceUnavailable).JSON(dto.ErrorResponse{
				Error: true, Message: "Listing service unavailable, please retry",
			})
		}
		slog.Error("report submission failed", "error", err, "listing_id", req.ListingID)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to submit report",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(dto.CreateReportResponse{ID: report.ID})
}

func (h *ModerationHandler) ListReports(c *fiber.Ctx) error {
	page, err := h.queue.List(c.UserContext(), services.QueueQuery{
		Status:  c.Query("status", "all"),
		Page:    c.QueryInt("page", 1),
		PerPage: c.QueryInt("per_page", 0),
	})
	if err != nil {
		var invalid *services.ValidationError
		if errors.As(err, &invalid) {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
				Error: true, Message: invalid.Error(),
			})
		}
		slog.Error("failed to list reports", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to fetch reports",
		})
	}

	resp := dto.ReportListResponse{
		Reports:     make([]dto.ReportResponse, 0, len(page.Items)),
		Total:       page.Total,
		Pages:       page.Pages,
		CurrentPage: page.Page,
		PerPage:     page.PerPage,
	}
	for i := range page.Items {
		item := &page.Items[i]
		resp.Reports = append(resp.Reports, dto.NewReportResponse(&item.Report, &item.Listing))
	}

	// Counts are a convenience for the dashboard header; the page is still
	// useful without them.
	if counts, err := h.reports.CountByStatus(c.UserContext()); err == nil {
		resp.Counts = make(map[string]int64, len(counts))
		for status, n := range counts {
			resp.Counts[string(status)] = n
		}
	} else {
		slog.Warn("failed to count reports", "error", err)
	}

	return c.JSON(resp)
}

// DecideReport applies a moderator's decision. Rejected decisions that the
// moderator can fix in the form come back as 200 with success false.
func (h *ModerationHandler) DecideReport(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 0)
	if err != nil || id == 0 {
		return c.Status(fiber.StatusNotFound).JSON(dto.DecisionResponse{
			Success: false, Message: "Report not found",
		})
	}

	moderatorID, err := session.ModeratorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.DecisionResponse{
			Success: false, Message: "Unauthorized",
		})
	}

	var req dto.DecisionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.JSON(dto.DecisionResponse{
			Success: false, Message: "Invalid request body",
		})
	}

	report, err := h.engine.Apply(c.UserContext(), services.Decision{
		ReportID:         uint(id),
		Action:           req.Action,
		NewListingStatus: req.Status,
		ModeratorID:      moderatorID,
		Notes:            req.Notes,
	})
	if err != nil {
		return h.decisionError(c, err)
	}

	resp := dto.NewReportResponse(report, nil)
	return c.JSON(dto.DecisionResponse{Success: true, Report: &resp})
}

func (h *ModerationHandler) decisionError(c *fiber.Ctx, err error) error {
	var resolved *services.AlreadyResolvedError
	var conflict *services.ConflictError
	switch {
	case errors.As(err, &resolved):
		return c.Status(fiber.StatusConflict).JSON(dto.ConflictResponse{
			Success:    false,
			Message:    "already resolved",
			Status:     resolved.Status,
			ResolvedBy: resolved.ResolvedBy,
			ResolvedAt: resolved.ResolvedAt,
		})
	case errors.As(err, &conflict):
		return c.Status(fiber.StatusConflict).JSON(dto.ConflictResponse{
			Success:    false,
			Message:    "already resolved",
			Status:     conflict.Status,
			ResolvedBy: conflict.ResolvedBy,
			ResolvedAt: conflict.ResolvedAt,
		})
	case errors.Is(err, services.ErrInvalidAction):
		return c.JSON(dto.DecisionResponse{Success: false, Message: "Invalid action"})
	case errors.Is(err, services.ErrValidation):
		return c.JSON(dto.DecisionResponse{Success: false, Message: err.Error()})
	case errors.Is(err, services.ErrReportNotFound):
		return c.Status(fiber.StatusNotFound).JSON(dto.DecisionResponse{Success: false, Message: "Report not found"})
	case errors.Is(err, services.ErrListingNotFound):
		return c.Status(fiber.StatusNotFound).JSON(dto.DecisionResponse{Success: false, Message: "Listing not found"})
	case errors.Is(err, services.ErrDependencyUnavailable):
		captureDependencyFailure(c, err)
		return c.Status(fiber.StatusServiceUnavailable).JSON(dto.DecisionResponse{
			Success: false, Message: "Listing service unavailable, please retry",
		})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(dto.DecisionResponse{
		Success: false, Message: "Internal server error",
	})
}

func retryAfterSeconds(e *services.RateLimitedError) int {
	secs := int(math.Ceil(e.RetryAfter.Seconds()))
	if secs < 1 {
		secs = 1
	}
	return secs
}

func captureDependencyFailure(c *fiber.Ctx, err error) {
	if hub := sentryfiber.GetHubFromContext(c); hub != nil {
		hub.CaptureException(err)
	}
}
