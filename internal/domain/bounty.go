package domain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Bounty is the client-side view of one escrowed reward record.
//
// Identity is the ledger-assigned id, monotonically increasing at creation.
// Reward is held in ledger-native wei; use DisplayReward for UI amounts.
type Bounty struct {
	ID              uint64
	Creator         common.Address
	Reward          *big.Int
	Deadline        int64
	ReviewEnd       int64
	Status          Status // raw on-ledger status; see EffectiveStatus
	Title           string
	Description     string
	Winner          common.Address
	Paid            bool
	SubmissionCount int
}

// WinnerSet reports whether a winner has been recorded.
func (b *Bounty) WinnerSet() bool {
	return b.Winner != (common.Address{})
}

// Effective returns the status to present at time now.
func (b *Bounty) Effective(now int64) Status {
	return EffectiveStatus(b.Status, b.Deadline, b.ReviewEnd, b.WinnerSet(), now)
}

// DisplayReward returns the reward in display units.
func (b *Bounty) DisplayReward() string {
	return FormatReward(b.Reward)
}

// Clone returns a deep copy so cache readers cannot mutate shared state.
func (b *Bounty) Clone() Bounty {
	out := *b
	if b.Reward != nil {
		out.Reward = new(big.Int).Set(b.Reward)
	}
	return out
}
