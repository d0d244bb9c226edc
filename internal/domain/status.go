package domain

// Status is the lifecycle state of a bounty as stored on the ledger.
//
// The raw on-ledger status only advances when a mutating call executes, so a
// bounty whose deadline has passed can still carry StatusOpen until someone
// touches it. Callers that present state to a user must go through
// EffectiveStatus instead of reading the raw field.
type Status uint8

const (
	StatusOpen Status = iota
	StatusReview
	StatusAwarded
	StatusCancelled
	StatusRefundable
)

// String returns the display name of the status.
func (s Status) String() string {
	switch s {
	case StatusOpen:
		return "Open"
	case StatusReview:
		return "Review"
	case StatusAwarded:
		return "Awarded"
	case StatusCancelled:
		return "Cancelled"
	case StatusRefundable:
		return "Refundable"
	default:
		return "Unknown"
	}
}

// Terminal reports whether the status admits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusAwarded || s == StatusCancelled
}

// EffectiveStatus derives the status to present for a bounty at time now.
//
// The derivation reinterprets a stale raw status from the immutable time
// fields: an Open bounty past its deadline is in Review, and an Open or
// Review bounty past its review window with no winner is Refundable.
// Terminal raw statuses pass through unchanged. The result is monotonic in
// now for a fixed record: once the deadline passes, the bounty is never
// reported Open again.
func EffectiveStatus(raw Status, deadline, reviewEnd int64, winnerSet bool, now int64) Status {
	switch raw {
	case StatusOpen, StatusReview:
		if now > reviewEnd && !winnerSet {
			return StatusRefundable
		}
		if now > deadline {
			return StatusReview
		}
		return raw
	default:
		return raw
	}
}
