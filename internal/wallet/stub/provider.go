// Package stub provides an in-memory wallet provider double for tests.
package stub

import (
	"context"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"bounty-board/internal/chain"
)

// Provider implements the wallet provider surface for testing. Populate the
// fields directly; scripted errors are consumed in call order.
type Provider struct {
	mu sync.Mutex

	Accounts    []common.Address
	AccountsErr error

	Chain    uint64
	ChainErr error

	// SwitchErrs is consumed one entry per SwitchChain call; nil entries
	// mean success. Once exhausted, switches succeed.
	SwitchErrs  []error
	Switched    []uint64
	RegisterErr error
	Registered  []chain.Descriptor

	Balance    *big.Int
	BalanceErr error

	// CallResult is returned verbatim from every CallContract.
	CallResult []byte
	CallErr    error

	SentHash   common.Hash
	SendErr    error
	Receipt    *types.Receipt
	ReceiptErr error

	onAccountsChanged func([]common.Address)
}

// New returns a provider with one funded account on chainID.
func New(chainID uint64, account common.Address) *Provider {
	return &Provider{
		Accounts: []common.Address{account},
		Chain:    chainID,
		Balance:  big.NewInt(1e18),
		SentHash: common.HexToHash("0xbeef"),
	}
}

func (p *Provider) RequestAccounts(_ context.Context) ([]common.Address, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.AccountsErr != nil {
		return nil, p.AccountsErr
	}
	return append([]common.Address(nil), p.Accounts...), nil
}

func (p *Provider) ChainID(_ context.Context) (uint64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.Chain, p.ChainErr
}

func (p *Provider) SwitchChain(_ context.Context, chainID uint64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Switched = append(p.Switched, chainID)
	if len(p.SwitchErrs) > 0 {
		err := p.SwitchErrs[0]
		p.SwitchErrs = p.SwitchErrs[1:]
		if err != nil {
			return err
		}
	}
	p.Chain = chainID
	return nil
}

func (p *Provider) RegisterChain(_ context.Context, d chain.Descriptor) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.RegisterErr != nil {
		return p.RegisterErr
	}
	p.Registered = append(p.Registered, d)
	return nil
}

func (p *Provider) BalanceAt(_ context.Context, _ common.Address) (*big.Int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.BalanceErr != nil {
		return nil, p.BalanceErr
	}
	return new(big.Int).Set(p.Balance), nil
}

func (p *Provider) CallContract(_ context.Context, _ common.Address, _ []byte) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.CallErr != nil {
		return nil, p.CallErr
	}
	return append([]byte(nil), p.CallResult...), nil
}

func (p *Provider) SendTransaction(_ context.Context, _ common.Address, _ *big.Int, _ []byte) (common.Hash, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.SentHash, p.SendErr
}

func (p *Provider) TransactionReceipt(_ context.Context, _ common.Hash) (*types.Receipt, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.Receipt, p.ReceiptErr
}

// OnAccountsChanged registers the session's account-change handler.
func (p *Provider) OnAccountsChanged(fn func(accounts []common.Address)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onAccountsChanged = fn
}

// FireAccountsChanged simulates the user switching accounts in the wallet.
func (p *Provider) FireAccountsChanged(accounts []common.Address) {
	p.mu.Lock()
	fn := p.onAccountsChanged
	p.mu.Unlock()
	if fn != nil {
		fn(accounts)
	}
}
