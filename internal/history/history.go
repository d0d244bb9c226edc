// Package history persists the outcome of every transaction the process
// orchestrates: who did what to which bounty, and how it ended. The ledger
// itself is the source of truth for bounty state; history is a local audit
// trail for profile views and debugging.
package history

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Action identifies the mutating operation behind an activity.
type Action string

const (
	ActionCreate Action = "create"
	ActionSubmit Action = "submit"
	ActionAward  Action = "award"
	ActionCancel Action = "cancel"
	ActionRefund Action = "refund"
)

// Outcome is the lifecycle state of a recorded activity.
type Outcome string

const (
	OutcomePending   Outcome = "pending"
	OutcomeConfirmed Outcome = "confirmed"
	OutcomeFailed    Outcome = "failed"
)

// Activity is one recorded transaction attempt.
type Activity struct {
	// ID is assigned by the orchestrator, one per attempt.
	ID     string
	Action Action
	// BountyID is zero for a create until confirmation assigns the real id.
	BountyID uint64
	Actor    common.Address
	TxHash   common.Hash
	Outcome  Outcome
	// Detail carries the failure reason for failed activities.
	Detail    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Store provides access to activity storage.
type Store interface {
	// Record adds a new pending activity. Returns ErrDuplicateKey if the id
	// exists.
	Record(ctx context.Context, a *Activity) error

	// MarkConfirmed finalizes an activity as confirmed and, when bountyID is
	// nonzero, binds it to the ledger-assigned bounty. Returns ErrNotFound
	// if the id does not exist.
	MarkConfirmed(ctx context.Context, id string, bountyID uint64) error

	// MarkFailed finalizes an activity as failed with a reason. Returns
	// ErrNotFound if the id does not exist.
	MarkFailed(ctx context.Context, id, reason string) error

	// ByActor retrieves all activities of one account, ordered by
	// created_at ASC.
	ByActor(ctx context.Context, actor common.Address) ([]*Activity, error)

	// ByBounty retrieves all activities touching one bounty, ordered by
	// created_at ASC.
	ByBounty(ctx context.Context, bountyID uint64) ([]*Activity, error)
}
