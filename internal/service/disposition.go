package service

import (
	"github.com/imthebreezy247/ACA-Renewals-stomp-campaign/internal/model"
)

// Mode selects how decided leads are routed.
type Mode string

const (
	// ModeAuto persists high-confidence non-duplicates without review.
	ModeAuto Mode = "auto"
	// ModeManual queues everything for operator review.
	ModeManual Mode = "manual"
	// ModeReportOnly counts work without extracting or persisting.
	ModeReportOnly Mode = "report_only"
)

// Action is the final routing decision for a processed lead.
type Action string

const (
	ActionPersist          Action = "persist"
	ActionNotifyAndPersist Action = "notify_and_persist"
	ActionQueueForReview   Action = "queue_for_review"
	ActionSkip             Action = "skip"
)

// Decide applies the disposition table: duplicates are skipped in auto mode
// and surfaced for review in manual mode; only high-confidence
// non-duplicates auto-save, and a qualifying premium upgrades the save to
// include a notification. A missing premium never notifies.
func Decide(lead *model.Lead, duplicate *model.Lead, mode Mode, highValueThreshold float64) Action {
	if mode == ModeReportOnly {
		return ActionSkip
	}

	if duplicate != nil {
		if mode == ModeManual {
			return ActionQueueForReview
		}
		return ActionSkip
	}

	if mode == ModeManual {
		return ActionQueueForReview
	}

	if lead.Confidence != model.ConfidenceHigh {
		return ActionQueueForReview
	}

	premium := 0.0
	if lead.MonthlyPremium != nil {
		premium = *lead.MonthlyPremium
	}
	if premium >= highValueThreshold {
		return ActionNotifyAndPersist
	}
	return ActionPersist
}
