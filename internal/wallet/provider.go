// Package wallet owns connection identity: which account is signed in, on
// which chain, with what balance, and the contract-call handle scoped to
// that signer.
package wallet

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"bounty-board/internal/chain"
)

// Well-known provider error codes (EIP-1193/EIP-3085 conventions).
const (
	// CodeUserRejected is returned when the user declines a request at the
	// signer.
	CodeUserRejected = 4001
	// CodeUnknownChain is returned by a chain switch when the wallet does
	// not know the target chain; it distinguishes "register first" from a
	// plain failure.
	CodeUnknownChain = 4902
)

// Sentinel errors surfaced by the session.
var (
	ErrNoProvider      = errors.New("no wallet provider available")
	ErrUserRejected    = errors.New("user rejected the request")
	ErrNetworkMismatch = errors.New("wrong or unregistered chain")
)

// CodedError carries a provider error code alongside its message.
type CodedError struct {
	Code    int
	Message string
}

func (e *CodedError) Error() string {
	return fmt.Sprintf("provider error %d: %s", e.Code, e.Message)
}

// ErrorCode extracts the provider error code, if any.
func ErrorCode(err error) (int, bool) {
	var coded *CodedError
	if errors.As(err, &coded) {
		return coded.Code, true
	}
	return 0, false
}

// Provider is the narrow capability surface required of a wallet. The
// browser-supplied object is one implementation; walletbridge, keysigner
// and test doubles are others.
type Provider interface {
	// RequestAccounts asks the wallet for account access. The first
	// returned address is the active signer.
	RequestAccounts(ctx context.Context) ([]common.Address, error)

	// ChainID reports the chain the wallet is currently on.
	ChainID(ctx context.Context) (uint64, error)

	// SwitchChain asks the wallet to move to chainID. Fails with
	// CodeUnknownChain when the chain must be registered first.
	SwitchChain(ctx context.Context, chainID uint64) error

	// RegisterChain asks the wallet to add a chain, using the descriptor
	// verbatim.
	RegisterChain(ctx context.Context, d chain.Descriptor) error

	// BalanceAt reads the native-currency balance of addr.
	BalanceAt(ctx context.Context, addr common.Address) (*big.Int, error)

	// Contract-call transport for the gateway.
	chain.Backend
}

// AccountWatcher is implemented by providers that can report account
// changes made in the wallet UI.
type AccountWatcher interface {
	OnAccountsChanged(fn func(accounts []common.Address))
}
