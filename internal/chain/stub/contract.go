// Package stub provides an in-memory contract double for tests.
package stub

import (
	"context"
	"math/big"
	"strconv"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"bounty-board/internal/chain"
)

// Mutation records one mutating call issued against the stub.
type Mutation struct {
	Method   string
	BountyID uint64
	Evidence string
	Winner   common.Address
	Value    *big.Int
}

// Contract implements the gateway read and mutate surface for testing.
// Populate the maps directly or via AddBounty, inject failures per method
// through Fail, and observe mutations through Mutations.
type Contract struct {
	mu sync.Mutex

	Total      uint64
	Cores      map[uint64]chain.BountyCore
	Texts      map[uint64]chain.BountyText
	Winners    map[uint64]chain.BountyWinner
	SubCounts  map[uint64]uint64
	Subs       map[uint64][]chain.SubmissionCore
	Submitted  map[uint64]map[common.Address]bool
	Reputation map[common.Address]uint64

	// Fail injects an error for a read or mutate method by name.
	Fail map[string]error

	// OnCall, when set, runs at the start of every read. Tests use it to
	// gate call ordering.
	OnCall func(method string)

	// Mutation plumbing.
	NextHash  common.Hash
	Receipt   *types.Receipt
	WaitErr   error
	NewID     uint64
	IDErr     error
	Mutations []Mutation
}

// New returns an empty stub contract.
func New() *Contract {
	return &Contract{
		Cores:      make(map[uint64]chain.BountyCore),
		Texts:      make(map[uint64]chain.BountyText),
		Winners:    make(map[uint64]chain.BountyWinner),
		SubCounts:  make(map[uint64]uint64),
		Subs:       make(map[uint64][]chain.SubmissionCore),
		Submitted:  make(map[uint64]map[common.Address]bool),
		Reputation: make(map[common.Address]uint64),
		Fail:       make(map[string]error),
		NextHash:   common.HexToHash("0xfeed"),
	}
}

// AddBounty registers a complete bounty record and grows the total.
func (c *Contract) AddBounty(core chain.BountyCore, text chain.BountyText, winner chain.BountyWinner, subCount uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Cores[core.ID] = core
	c.Texts[core.ID] = text
	c.Winners[core.ID] = winner
	c.SubCounts[core.ID] = subCount
	if core.ID >= c.Total {
		c.Total = core.ID + 1
	}
}

// AddSubmission appends a raw submission and marks the submitter.
func (c *Contract) AddSubmission(id uint64, sub chain.SubmissionCore) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Subs[id] = append(c.Subs[id], sub)
	c.SubCounts[id] = uint64(len(c.Subs[id]))
	if c.Submitted[id] == nil {
		c.Submitted[id] = make(map[common.Address]bool)
	}
	c.Submitted[id][sub.Submitter] = true
}

// SetFail injects an error for method, or clears it when err is nil. Safe
// to call while reads are in flight.
func (c *Contract) SetFail(method string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err == nil {
		delete(c.Fail, method)
		return
	}
	c.Fail[method] = err
}

func (c *Contract) enter(method string) error {
	if c.OnCall != nil {
		c.OnCall(method)
	}
	c.mu.Lock()
	err := c.Fail[method]
	c.mu.Unlock()
	return err
}

func (c *Contract) TotalBounties(_ context.Context) (uint64, error) {
	if err := c.enter("TotalBounties"); err != nil {
		return 0, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Total, nil
}

func (c *Contract) BountyCore(_ context.Context, id uint64) (chain.BountyCore, error) {
	if err := c.enter("BountyCore"); err != nil {
		return chain.BountyCore{}, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.Fail["BountyCore:"+strconv.FormatUint(id, 10)]; err != nil {
		return chain.BountyCore{}, err
	}
	return c.Cores[id], nil
}

func (c *Contract) BountyText(_ context.Context, id uint64) (chain.BountyText, error) {
	if err := c.enter("BountyText"); err != nil {
		return chain.BountyText{}, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Texts[id], nil
}

func (c *Contract) BountyWinner(_ context.Context, id uint64) (chain.BountyWinner, error) {
	if err := c.enter("BountyWinner"); err != nil {
		return chain.BountyWinner{}, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Winners[id], nil
}

func (c *Contract) Counts(_ context.Context, id uint64) (uint64, error) {
	if err := c.enter("Counts"); err != nil {
		return 0, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.SubCounts[id], nil
}

func (c *Contract) SubmissionCore(_ context.Context, id, index uint64) (chain.SubmissionCore, error) {
	if err := c.enter("SubmissionCore"); err != nil {
		return chain.SubmissionCore{}, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	subs := c.Subs[id]
	if index >= uint64(len(subs)) {
		return chain.SubmissionCore{}, chain.ErrGatewayCall
	}
	return subs[index], nil
}

func (c *Contract) HasSubmitted(_ context.Context, id uint64, addr common.Address) (bool, error) {
	if err := c.enter("HasSubmitted"); err != nil {
		return false, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Submitted[id][addr], nil
}

func (c *Contract) UserReputation(_ context.Context, addr common.Address) (uint64, error) {
	if err := c.enter("UserReputation"); err != nil {
		return 0, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Reputation[addr], nil
}

func (c *Contract) record(m Mutation) (common.Hash, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.Fail[m.Method]; err != nil {
		return common.Hash{}, err
	}
	c.Mutations = append(c.Mutations, m)
	return c.NextHash, nil
}

func (c *Contract) CreateBounty(_ context.Context, _, _ string, _, _ int64, value *big.Int) (common.Hash, error) {
	return c.record(Mutation{Method: "createBounty", Value: value})
}

func (c *Contract) SubmitSolution(_ context.Context, id uint64, evidence string) (common.Hash, error) {
	return c.record(Mutation{Method: "submitSolution", BountyID: id, Evidence: evidence})
}

func (c *Contract) AwardWinner(_ context.Context, id uint64, winner common.Address) (common.Hash, error) {
	return c.record(Mutation{Method: "awardWinner", BountyID: id, Winner: winner})
}

func (c *Contract) CancelBounty(_ context.Context, id uint64) (common.Hash, error) {
	return c.record(Mutation{Method: "cancelBounty", BountyID: id})
}

func (c *Contract) ClaimRefund(_ context.Context, id uint64) (common.Hash, error) {
	return c.record(Mutation{Method: "claimRefund", BountyID: id})
}

func (c *Contract) WaitMined(_ context.Context, _ common.Hash) (*types.Receipt, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.WaitErr != nil {
		return nil, c.WaitErr
	}
	if c.Receipt != nil {
		return c.Receipt, nil
	}
	return &types.Receipt{Status: types.ReceiptStatusSuccessful}, nil
}

func (c *Contract) CreatedID(_ *types.Receipt) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.NewID, c.IDErr
}
