package models

// ModerationAction is what a moderator decides for a pending report.
type ModerationAction string

const (
	ActionApproveListing ModerationAction = "approve_listing"
	ActionRejectListing  ModerationAction = "reject_listing"
	ActionRequestChanges ModerationAction = "request_changes"
	ActionDismissReport  ModerationAction = "dismiss_report"
)

func ParseModerationAction(s string) (ModerationAction, bool) {
	a := ModerationAction(s)
	switch a {
	case ActionApproveListing, ActionRejectListing, ActionRequestChanges, ActionDismissReport:
		return a, true
	}
	return "", false
}

// ListingStatus reports the status the listing moves to. ok is false when the
// action leaves the listing untouched.
func (a ModerationAction) ListingStatus() (status ListingStatus, ok bool) {
	switch a {
	case ActionApproveListing:
		return ListingPublished, true
	case ActionRejectListing:
		return ListingRejected, true
	case ActionRequestChanges:
		return ListingNeedsRevision, true
	case ActionDismissReport:
		return "", false
	}
	return "", false
}

// ReportStatus is the terminal report status the action produces.
func (a ModerationAction) ReportStatus() ReportStatus {
	if a == ActionDismissReport {
		return ReportDismissed
	}
	return ReportResolved
}
