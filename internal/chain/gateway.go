package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Sentinel errors for the gateway surface.
var (
	// ErrGatewayCall marks a remote call that reverted or failed at the RPC
	// layer.
	ErrGatewayCall = errors.New("gateway call failed")

	// ErrNoCreationEvent is returned when a creation receipt carries no
	// BountyCreated log.
	ErrNoCreationEvent = errors.New("no creation event in receipt")
)

// receiptPollInterval is how often WaitMined asks for a receipt. There is
// deliberately no overall timeout: a pending call stays pending until the
// ledger answers or the caller's context ends.
const receiptPollInterval = 500 * time.Millisecond

// Backend is the transport a Gateway needs. A wallet provider satisfies it;
// tests supply a double. TransactionReceipt returns (nil, nil) while the
// transaction is still pending.
type Backend interface {
	CallContract(ctx context.Context, to common.Address, data []byte) ([]byte, error)
	SendTransaction(ctx context.Context, to common.Address, value *big.Int, data []byte) (common.Hash, error)
	TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error)
}

// BountyCore is the fixed-size slice of a bounty record.
type BountyCore struct {
	ID        uint64
	Creator   common.Address
	Reward    *big.Int
	Deadline  int64
	ReviewEnd int64
	Status    uint8
}

// BountyText is the variable-size slice of a bounty record.
type BountyText struct {
	Title       string
	Description string
}

// BountyWinner is the award slice of a bounty record.
type BountyWinner struct {
	Winner common.Address
	Paid   bool
}

// SubmissionCore is one submission as stored on the ledger. Evidence is the
// raw composite wire string.
type SubmissionCore struct {
	Submitter common.Address
	Evidence  string
	CreatedAt int64
}

// Gateway binds the bounty contract at a fixed address over a Backend.
// One Gateway is opened per wallet connection and dropped on disconnect.
type Gateway struct {
	addr         common.Address
	backend      Backend
	abi          abi.ABI
	createdTopic common.Hash
	pollInterval time.Duration
}

// GatewayOption configures a Gateway.
type GatewayOption func(*Gateway)

// WithPollInterval sets the receipt poll interval.
func WithPollInterval(d time.Duration) GatewayOption {
	return func(g *Gateway) {
		g.pollInterval = d
	}
}

// NewGateway parses the contract ABI and binds it at addr.
func NewGateway(addr common.Address, backend Backend, opts ...GatewayOption) (*Gateway, error) {
	parsed, err := abi.JSON(strings.NewReader(contractABI))
	if err != nil {
		return nil, fmt.Errorf("parse contract abi: %w", err)
	}
	ev, ok := parsed.Events["BountyCreated"]
	if !ok {
		return nil, fmt.Errorf("contract abi missing BountyCreated event")
	}
	g := &Gateway{
		addr:         addr,
		backend:      backend,
		abi:          parsed,
		createdTopic: ev.ID,
		pollInterval: receiptPollInterval,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Address returns the bound contract address.
func (g *Gateway) Address() common.Address {
	return g.addr
}

func gatewayErr(method string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrGatewayCall, method, err)
}

// call packs, executes and unpacks one view query.
func (g *Gateway) call(ctx context.Context, method string, args ...interface{}) ([]interface{}, error) {
	data, err := g.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	out, err := g.backend.CallContract(ctx, g.addr, data)
	if err != nil {
		return nil, gatewayErr(method, err)
	}
	vals, err := g.abi.Unpack(method, out)
	if err != nil {
		return nil, gatewayErr(method, err)
	}
	return vals, nil
}

// send packs and submits one mutating call through the signer.
func (g *Gateway) send(ctx context.Context, method string, value *big.Int, args ...interface{}) (common.Hash, error) {
	data, err := g.abi.Pack(method, args...)
	if err != nil {
		return common.Hash{}, fmt.Errorf("pack %s: %w", method, err)
	}
	hash, err := g.backend.SendTransaction(ctx, g.addr, value, data)
	if err != nil {
		return common.Hash{}, err
	}
	return hash, nil
}

func asUint256(v uint64) *big.Int {
	return new(big.Int).SetUint64(v)
}

// TotalBounties returns the number of bounties ever created.
func (g *Gateway) TotalBounties(ctx context.Context) (uint64, error) {
	vals, err := g.call(ctx, "getTotalBounties")
	if err != nil {
		return 0, err
	}
	return vals[0].(*big.Int).Uint64(), nil
}

// BountyCore reads the fixed fields of bounty id.
func (g *Gateway) BountyCore(ctx context.Context, id uint64) (BountyCore, error) {
	vals, err := g.call(ctx, "getBountyCore", asUint256(id))
	if err != nil {
		return BountyCore{}, err
	}
	return BountyCore{
		ID:        vals[0].(*big.Int).Uint64(),
		Creator:   vals[1].(common.Address),
		Reward:    vals[2].(*big.Int),
		Deadline:  vals[3].(*big.Int).Int64(),
		ReviewEnd: vals[4].(*big.Int).Int64(),
		Status:    vals[5].(uint8),
	}, nil
}

// BountyText reads title and description of bounty id.
func (g *Gateway) BountyText(ctx context.Context, id uint64) (BountyText, error) {
	vals, err := g.call(ctx, "getBountyText", asUint256(id))
	if err != nil {
		return BountyText{}, err
	}
	return BountyText{
		Title:       vals[0].(string),
		Description: vals[1].(string),
	}, nil
}

// BountyWinner reads the winner and payout flag of bounty id.
func (g *Gateway) BountyWinner(ctx context.Context, id uint64) (BountyWinner, error) {
	vals, err := g.call(ctx, "getBountyWinner", asUint256(id))
	if err != nil {
		return BountyWinner{}, err
	}
	return BountyWinner{
		Winner: vals[0].(common.Address),
		Paid:   vals[1].(bool),
	}, nil
}

// Counts returns the submission count of bounty id.
func (g *Gateway) Counts(ctx context.Context, id uint64) (uint64, error) {
	vals, err := g.call(ctx, "getCounts", asUint256(id))
	if err != nil {
		return 0, err
	}
	return vals[0].(*big.Int).Uint64(), nil
}

// SubmissionCore reads submission index of bounty id. Index order is
// creation order.
func (g *Gateway) SubmissionCore(ctx context.Context, id, index uint64) (SubmissionCore, error) {
	vals, err := g.call(ctx, "getSubmissionCore", asUint256(id), asUint256(index))
	if err != nil {
		return SubmissionCore{}, err
	}
	return SubmissionCore{
		Submitter: vals[0].(common.Address),
		Evidence:  vals[1].(string),
		CreatedAt: vals[2].(*big.Int).Int64(),
	}, nil
}

// HasSubmitted reports whether addr already submitted to bounty id.
func (g *Gateway) HasSubmitted(ctx context.Context, id uint64, addr common.Address) (bool, error) {
	vals, err := g.call(ctx, "hasSubmitted", asUint256(id), addr)
	if err != nil {
		return false, err
	}
	return vals[0].(bool), nil
}

// UserReputation returns the ledger-maintained reputation counter for addr.
func (g *Gateway) UserReputation(ctx context.Context, addr common.Address) (uint64, error) {
	vals, err := g.call(ctx, "getUserReputation", addr)
	if err != nil {
		return 0, err
	}
	return vals[0].(*big.Int).Uint64(), nil
}

// Paused reports whether the contract is administratively paused.
func (g *Gateway) Paused(ctx context.Context) (bool, error) {
	vals, err := g.call(ctx, "paused")
	if err != nil {
		return false, err
	}
	return vals[0].(bool), nil
}

// TreasuryBalance returns the accumulated fee balance held by the contract.
func (g *Gateway) TreasuryBalance(ctx context.Context) (*big.Int, error) {
	vals, err := g.call(ctx, "getTreasuryBalance")
	if err != nil {
		return nil, err
	}
	return vals[0].(*big.Int), nil
}

// CreateBounty escrows value and posts a new bounty. The assigned id is only
// known from the confirmation receipt; see CreatedID.
func (g *Gateway) CreateBounty(ctx context.Context, title, description string, deadline, reviewPeriodSeconds int64, value *big.Int) (common.Hash, error) {
	return g.send(ctx, "createBounty", value,
		title, description, big.NewInt(deadline), big.NewInt(reviewPeriodSeconds))
}

// SubmitSolution records a claim of work. evidence is the composite wire
// string produced by domain.EncodeEvidence.
func (g *Gateway) SubmitSolution(ctx context.Context, id uint64, evidence string) (common.Hash, error) {
	return g.send(ctx, "submitSolution", nil, asUint256(id), evidence)
}

// AwardWinner pays out bounty id to winner.
func (g *Gateway) AwardWinner(ctx context.Context, id uint64, winner common.Address) (common.Hash, error) {
	return g.send(ctx, "awardWinner", nil, asUint256(id), winner)
}

// CancelBounty cancels bounty id and refunds the escrow.
func (g *Gateway) CancelBounty(ctx context.Context, id uint64) (common.Hash, error) {
	return g.send(ctx, "cancelBounty", nil, asUint256(id))
}

// ClaimRefund reclaims the escrow of an expired bounty.
func (g *Gateway) ClaimRefund(ctx context.Context, id uint64) (common.Hash, error) {
	return g.send(ctx, "claimRefund", nil, asUint256(id))
}

// WaitMined blocks until the transaction is included and returns its
// receipt. A reverted transaction is an error. Polling continues until the
// context is cancelled; callers that want to wait indefinitely pass a
// background context.
func (g *Gateway) WaitMined(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	ticker := time.NewTicker(g.pollInterval)
	defer ticker.Stop()

	for {
		receipt, err := g.backend.TransactionReceipt(ctx, hash)
		if err != nil {
			return nil, gatewayErr("getTransactionReceipt", err)
		}
		if receipt != nil {
			if receipt.Status != types.ReceiptStatusSuccessful {
				return nil, fmt.Errorf("%w: transaction %s reverted", ErrGatewayCall, hash.Hex())
			}
			return receipt, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// CreatedID extracts the ledger-assigned bounty id from a creation receipt's
// BountyCreated event.
func (g *Gateway) CreatedID(receipt *types.Receipt) (uint64, error) {
	for _, lg := range receipt.Logs {
		if lg == nil || lg.Address != g.addr {
			continue
		}
		if len(lg.Topics) < 2 || lg.Topics[0] != g.createdTopic {
			continue
		}
		return new(big.Int).SetBytes(lg.Topics[1].Bytes()).Uint64(), nil
	}
	return 0, ErrNoCreationEvent
}
