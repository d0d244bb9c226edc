// Package orchestrator drives mutating bounty actions through their full
// lifecycle: submit to the signer, track confirmation, refresh the cache and
// keep the user informed through a single notification per action.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/google/uuid"

	"bounty-board/internal/domain"
	"bounty-board/internal/history"
	"bounty-board/internal/notify"
	"bounty-board/internal/observability"
	"bounty-board/internal/wallet"
)

// Contract is the mutating ledger surface the orchestrator drives. Satisfied
// by chain.Gateway and by the stub contract in tests.
type Contract interface {
	CreateBounty(ctx context.Context, title, description string, deadline, reviewPeriodSeconds int64, value *big.Int) (common.Hash, error)
	SubmitSolution(ctx context.Context, id uint64, evidence string) (common.Hash, error)
	AwardWinner(ctx context.Context, id uint64, winner common.Address) (common.Hash, error)
	CancelBounty(ctx context.Context, id uint64) (common.Hash, error)
	ClaimRefund(ctx context.Context, id uint64) (common.Hash, error)
	WaitMined(ctx context.Context, hash common.Hash) (*types.Receipt, error)
	CreatedID(receipt *types.Receipt) (uint64, error)
}

// Refresher is the cache the orchestrator refreshes after confirmation.
type Refresher interface {
	FetchAll(ctx context.Context) ([]domain.Bounty, error)
	Refresh(ctx context.Context, id uint64) error
}

// Orchestrator runs one connected account's mutating actions. It is built
// per wallet connection and dropped on disconnect.
type Orchestrator struct {
	contract Contract
	repo     Refresher
	queue    *notify.Queue
	store    history.Store
	actor    common.Address
	logger   *log.Logger
	metrics  *observability.Metrics
}

// Options for creating an Orchestrator.
type Options struct {
	Contract Contract
	Repo     Refresher
	// Queue carries the per-action pending notification. Optional.
	Queue *notify.Queue
	// Store records the activity trail. Optional; failures are logged and
	// never block the action.
	Store   history.Store
	Actor   common.Address
	Logger  *log.Logger
	Metrics *observability.Metrics
}

// New creates an Orchestrator.
func New(opts Options) *Orchestrator {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Orchestrator{
		contract: opts.Contract,
		repo:     opts.Repo,
		queue:    opts.Queue,
		store:    opts.Store,
		actor:    opts.Actor,
		logger:   logger,
		metrics:  opts.Metrics,
	}
}

// CreateBounty escrows reward and posts a new bounty, returning the
// ledger-assigned id once the creation confirms.
func (o *Orchestrator) CreateBounty(ctx context.Context, title, description string, deadline, reviewPeriodSeconds int64, reward *big.Int) (uint64, error) {
	var newID uint64
	err := o.run(ctx, runParams{
		action:     history.ActionCreate,
		pendingMsg: "Creating bounty...",
		successMsg: "Bounty created",
		failMsg:    "Failed to create bounty",
		send: func(ctx context.Context) (common.Hash, error) {
			return o.contract.CreateBounty(ctx, title, description, deadline, reviewPeriodSeconds, reward)
		},
		onConfirmed: func(ctx context.Context, receipt *types.Receipt) (uint64, error) {
			id, err := o.contract.CreatedID(receipt)
			if err != nil {
				return 0, err
			}
			newID = id
			return id, nil
		},
		refresh: func(ctx context.Context, _ uint64) error {
			_, err := o.repo.FetchAll(ctx)
			return err
		},
	})
	if err != nil {
		return 0, err
	}
	return newID, nil
}

// SubmitSolution records a claim of work on bounty id. evidence and note are
// combined into the on-ledger composite string.
func (o *Orchestrator) SubmitSolution(ctx context.Context, id uint64, evidence, note string) error {
	encoded, err := domain.EncodeEvidence(evidence, note)
	if err != nil {
		o.push(notify.KindError, "Invalid submission: "+err.Error())
		return err
	}
	return o.run(ctx, runParams{
		action:     history.ActionSubmit,
		bountyID:   id,
		pendingMsg: "Submitting solution...",
		successMsg: "Solution submitted",
		failMsg:    "Failed to submit solution",
		send: func(ctx context.Context) (common.Hash, error) {
			return o.contract.SubmitSolution(ctx, id, encoded)
		},
	})
}

// AwardWinner pays out bounty id to winner.
func (o *Orchestrator) AwardWinner(ctx context.Context, id uint64, winner common.Address) error {
	return o.run(ctx, runParams{
		action:     history.ActionAward,
		bountyID:   id,
		pendingMsg: "Awarding winner...",
		successMsg: "Winner awarded",
		failMsg:    "Failed to award winner",
		send: func(ctx context.Context) (common.Hash, error) {
			return o.contract.AwardWinner(ctx, id, winner)
		},
	})
}

// CancelBounty cancels bounty id and reclaims the escrow.
func (o *Orchestrator) CancelBounty(ctx context.Context, id uint64) error {
	return o.run(ctx, runParams{
		action:     history.ActionCancel,
		bountyID:   id,
		pendingMsg: "Cancelling bounty...",
		successMsg: "Bounty cancelled",
		failMsg:    "Failed to cancel bounty",
		send: func(ctx context.Context) (common.Hash, error) {
			return o.contract.CancelBounty(ctx, id)
		},
	})
}

// ClaimRefund reclaims the escrow of an expired bounty.
func (o *Orchestrator) ClaimRefund(ctx context.Context, id uint64) error {
	return o.run(ctx, runParams{
		action:     history.ActionRefund,
		bountyID:   id,
		pendingMsg: "Claiming refund...",
		successMsg: "Refund claimed",
		failMsg:    "Failed to claim refund",
		send: func(ctx context.Context) (common.Hash, error) {
			return o.contract.ClaimRefund(ctx, id)
		},
	})
}

type runParams struct {
	action     history.Action
	bountyID   uint64
	pendingMsg string
	successMsg string
	failMsg    string
	send       func(ctx context.Context) (common.Hash, error)
	// onConfirmed may derive the bounty id from the receipt (creation).
	onConfirmed func(ctx context.Context, receipt *types.Receipt) (uint64, error)
	// refresh overrides the default scoped refresh.
	refresh func(ctx context.Context, id uint64) error
}

// run is the three-stage lifecycle shared by every action. One notification
// is created pending and transitioned in place; a second entry never appears
// for the same action.
func (o *Orchestrator) run(ctx context.Context, p runParams) error {
	noteID := o.push(notify.KindPending, p.pendingMsg)

	hash, err := p.send(ctx)
	if err != nil {
		msg := p.failMsg
		if code, ok := wallet.ErrorCode(err); ok && code == wallet.CodeUserRejected {
			msg = "Transaction rejected"
			err = fmt.Errorf("%w: %v", wallet.ErrUserRejected, err)
		}
		o.update(noteID, notify.Patch{Kind: notify.KindError, Message: msg})
		o.countFailed(p.action, "submit")
		return err
	}

	submitted := time.Now()
	activityID := o.record(ctx, p.action, p.bountyID, hash)
	o.update(noteID, notify.Patch{Message: "Confirming transaction...", TxHash: hash.Hex()})
	if o.metrics != nil {
		o.metrics.TxSubmitted.WithLabelValues(string(p.action)).Inc()
	}

	receipt, err := o.contract.WaitMined(ctx, hash)
	if err != nil {
		o.update(noteID, notify.Patch{Kind: notify.KindError, Message: p.failMsg, TxHash: hash.Hex()})
		o.countFailed(p.action, "confirm")
		o.markFailed(ctx, activityID, err)
		return err
	}

	boundID := p.bountyID
	if p.onConfirmed != nil {
		id, err := p.onConfirmed(ctx, receipt)
		if err != nil {
			o.update(noteID, notify.Patch{Kind: notify.KindError, Message: p.failMsg, TxHash: hash.Hex()})
			o.countFailed(p.action, "confirm")
			o.markFailed(ctx, activityID, err)
			return err
		}
		boundID = id
	}

	// The ledger moved; bring the cache along. A failed refresh does not
	// undo a confirmed action.
	refresh := p.refresh
	if refresh == nil {
		refresh = o.repo.Refresh
	}
	if err := refresh(ctx, boundID); err != nil {
		o.logger.Printf("[orchestrator] refresh after %s: %v", p.action, err)
	}

	o.update(noteID, notify.Patch{Kind: notify.KindSuccess, Message: p.successMsg, TxHash: hash.Hex()})
	if o.metrics != nil {
		o.metrics.TxConfirmed.WithLabelValues(string(p.action)).Inc()
		o.metrics.ConfirmTime.WithLabelValues(string(p.action)).Observe(time.Since(submitted).Seconds())
	}
	o.markConfirmed(ctx, activityID, boundID)
	return nil
}

func (o *Orchestrator) push(kind notify.Kind, message string) string {
	if o.queue == nil {
		return ""
	}
	return o.queue.Push(kind, message)
}

func (o *Orchestrator) update(id string, p notify.Patch) {
	if o.queue != nil && id != "" {
		o.queue.Update(id, p)
	}
}

func (o *Orchestrator) countFailed(action history.Action, stage string) {
	if o.metrics != nil {
		o.metrics.TxFailed.WithLabelValues(string(action), stage).Inc()
	}
}

// record writes the pending activity and returns its id. Best-effort: a
// store failure is logged and the action continues.
func (o *Orchestrator) record(ctx context.Context, action history.Action, bountyID uint64, hash common.Hash) string {
	if o.store == nil {
		return ""
	}
	a := &history.Activity{
		ID:        uuid.NewString(),
		Action:    action,
		BountyID:  bountyID,
		Actor:     o.actor,
		TxHash:    hash,
		Outcome:   history.OutcomePending,
		CreatedAt: time.Now(),
	}
	if err := o.store.Record(ctx, a); err != nil {
		o.logger.Printf("[orchestrator] record %s activity: %v", action, err)
		return ""
	}
	return a.ID
}

func (o *Orchestrator) markConfirmed(ctx context.Context, activityID string, bountyID uint64) {
	if o.store == nil || activityID == "" {
		return
	}
	if err := o.store.MarkConfirmed(ctx, activityID, bountyID); err != nil && !errors.Is(err, history.ErrNotFound) {
		o.logger.Printf("[orchestrator] mark confirmed: %v", err)
	}
}

func (o *Orchestrator) markFailed(ctx context.Context, activityID string, cause error) {
	if o.store == nil || activityID == "" {
		return
	}
	if err := o.store.MarkFailed(ctx, activityID, cause.Error()); err != nil && !errors.Is(err, history.ErrNotFound) {
		o.logger.Printf("[orchestrator] mark failed: %v", err)
	}
}
