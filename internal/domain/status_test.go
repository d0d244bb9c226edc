package domain

import "testing"

func TestEffectiveStatus_OpenBeforeDeadline(t *testing.T) {
	got := EffectiveStatus(StatusOpen, 1000, 2000, false, 500)
	if got != StatusOpen {
		t.Errorf("expected Open, got %s", got)
	}
}

func TestEffectiveStatus_PastDeadlinePresentsReview(t *testing.T) {
	// Raw status lags on the ledger until a mutating call runs; the
	// derivation must not trust it.
	got := EffectiveStatus(StatusOpen, 1000, 2000, false, 1001)
	if got != StatusReview {
		t.Errorf("expected Review, got %s", got)
	}
}

func TestEffectiveStatus_PastReviewEndIsRefundable(t *testing.T) {
	got := EffectiveStatus(StatusOpen, 1000, 2000, false, 2001)
	if got != StatusRefundable {
		t.Errorf("expected Refundable, got %s", got)
	}

	got = EffectiveStatus(StatusReview, 1000, 2000, false, 2001)
	if got != StatusRefundable {
		t.Errorf("expected Refundable from raw Review, got %s", got)
	}
}

func TestEffectiveStatus_WinnerBlocksRefundable(t *testing.T) {
	got := EffectiveStatus(StatusReview, 1000, 2000, true, 2001)
	if got != StatusReview {
		t.Errorf("expected Review when winner set, got %s", got)
	}
}

func TestEffectiveStatus_TerminalPassThrough(t *testing.T) {
	for _, raw := range []Status{StatusAwarded, StatusCancelled, StatusRefundable} {
		got := EffectiveStatus(raw, 1000, 2000, false, 3000)
		if got != raw {
			t.Errorf("terminal %s changed to %s", raw, got)
		}
	}
}

func TestEffectiveStatus_MonotonicInTime(t *testing.T) {
	// Once the deadline passes the bounty must never present as Open again.
	const deadline, reviewEnd = 1000, 2000
	openSeen := false
	for now := int64(deadline + 1); now <= reviewEnd+100; now += 7 {
		got := EffectiveStatus(StatusOpen, deadline, reviewEnd, false, now)
		if got == StatusOpen {
			openSeen = true
		}
	}
	if openSeen {
		t.Error("effective status reverted to Open after deadline")
	}
}
