package billing

import "time"

// Subscription statuses as stored locally. Stripe reports a wider set;
// NormalizeStatus collapses it into this closed enumeration.
const (
	StatusActive   = "active"
	StatusTrialing = "trialing"
	StatusPastDue  = "past_due"
	StatusCanceled = "canceled"
	StatusInactive = "inactive"
)

// ActiveLikeStatuses are the raw statuses that grant product access.
// Used as the filter when checking for an existing subscription before
// opening a new checkout.
var ActiveLikeStatuses = []string{"active", "trialing", "past_due", "incomplete"}

// NormalizeStatus maps a raw Stripe subscription status onto the local
// enumeration. Total: every input maps to one of the five statuses.
func NormalizeStatus(raw string) string {
	switch raw {
	case StatusActive, StatusTrialing, StatusPastDue, StatusCanceled, StatusInactive:
		return raw
	case "unpaid":
		return StatusPastDue
	case "incomplete", "incomplete_expired", "paused":
		return StatusInactive
	default:
		return StatusInactive
	}
}

// IsActiveLike reports whether a stored (normalized) status grants access.
func IsActiveLike(status string) bool {
	switch status {
	case StatusActive, StatusTrialing, StatusPastDue:
		return true
	}
	return false
}

// TrialDaysLeft returns the whole days remaining until end, floored at zero.
func TrialDaysLeft(end, now time.Time) int {
	if !end.After(now) {
		return 0
	}
	return int(end.Sub(now).Hours() / 24)
}
