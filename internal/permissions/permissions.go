// Package permissions derives user-facing action eligibility from cached
// ledger state and the connected identity.
//
// Everything here is a pure function and must be recomputed on demand: the
// bounty record and the submission list refresh independently and can be
// momentarily out of sync, so a cached answer can go stale without warning.
package permissions

import (
	"github.com/ethereum/go-ethereum/common"

	"bounty-board/internal/domain"
)

// Permissions is the set of actions the viewer may take on one bounty.
type Permissions struct {
	IsCreator bool
	CanSubmit bool
	CanAward  bool
	CanCancel bool
	CanRefund bool
}

// Evaluate computes the viewer's permissions for b at time now.
//
// hasSubmitted is the ledger's advisory membership answer; the submission
// list doubles as a fallback so a viewer who appears in it is blocked from
// submitting even while the flag lags. connected distinguishes a viewer with
// the zero address from no viewer at all.
func Evaluate(viewer common.Address, connected bool, b domain.Bounty, subs []domain.Submission, hasSubmitted bool, now int64) Permissions {
	if !connected {
		return Permissions{}
	}

	status := b.Effective(now)
	isCreator := viewer == b.Creator
	submitted := hasSubmitted || submittedIn(viewer, subs)

	return Permissions{
		IsCreator: isCreator,
		CanSubmit: status == domain.StatusOpen && !submitted && !isCreator,
		CanAward:  isCreator && status == domain.StatusReview && b.SubmissionCount >= 1,
		CanCancel: isCreator && status == domain.StatusOpen && b.SubmissionCount == 0,
		CanRefund: isCreator && status == domain.StatusRefundable && !b.Paid,
	}
}

func submittedIn(viewer common.Address, subs []domain.Submission) bool {
	for _, s := range subs {
		if s.Submitter == viewer {
			return true
		}
	}
	return false
}
