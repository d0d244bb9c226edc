package wallet

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"bounty-board/internal/chain"
	"bounty-board/internal/notify"
	"bounty-board/internal/observability"
)

// Session is the connected-wallet state: identity, balance, network match
// and the open contract handle. All of it is set and torn down atomically
// under one lock, so the invariant "handle present iff address present"
// holds at every observable instant.
type Session struct {
	provider   Provider
	descriptor chain.Descriptor
	contract   common.Address
	queue      *notify.Queue
	logger     *log.Logger
	metrics    *observability.Metrics
	gwOpts     []chain.GatewayOption

	mu         sync.Mutex
	connected  bool
	connecting bool
	address    common.Address
	balance    *big.Int
	networkOK  bool
	reputation uint64
	gateway    *chain.Gateway
}

// SessionOptions for creating a Session.
type SessionOptions struct {
	// Provider may be nil, modeling an environment with no wallet
	// installed; Connect then fails with ErrNoProvider.
	Provider   Provider
	Descriptor chain.Descriptor
	// Contract is the bounty contract address the gateway binds to.
	Contract common.Address
	// Queue receives connection status notifications. Optional.
	Queue   *notify.Queue
	Logger  *log.Logger
	Metrics *observability.Metrics
	// GatewayOptions are forwarded when the contract handle is opened.
	GatewayOptions []chain.GatewayOption
}

// NewSession creates a disconnected session.
func NewSession(opts SessionOptions) *Session {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Session{
		provider:   opts.Provider,
		descriptor: opts.Descriptor,
		contract:   opts.Contract,
		queue:      opts.Queue,
		logger:     logger,
		metrics:    opts.Metrics,
		gwOpts:     opts.GatewayOptions,
	}
}

// Connect requests account access, verifies (or repairs) the chain, opens
// the contract handle and populates the balance. Every failure path emits
// exactly one error notification.
func (s *Session) Connect(ctx context.Context) error {
	if s.provider == nil {
		s.notify(notify.KindError, "No wallet installed")
		return ErrNoProvider
	}

	s.mu.Lock()
	if s.connecting || s.connected {
		s.mu.Unlock()
		return nil
	}
	s.connecting = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.connecting = false
		s.mu.Unlock()
	}()

	accounts, err := s.provider.RequestAccounts(ctx)
	if err != nil {
		if code, ok := ErrorCode(err); ok && code == CodeUserRejected {
			s.notify(notify.KindError, "Connection request rejected")
			return fmt.Errorf("%w: %v", ErrUserRejected, err)
		}
		s.notify(notify.KindError, "Failed to connect wallet")
		return fmt.Errorf("request accounts: %w", err)
	}
	if len(accounts) == 0 {
		s.notify(notify.KindError, "Wallet returned no accounts")
		return errors.New("no accounts available")
	}
	address := accounts[0]

	chainID, err := s.provider.ChainID(ctx)
	if err != nil {
		s.notify(notify.KindError, "Failed to connect wallet")
		return fmt.Errorf("read chain id: %w", err)
	}
	if chainID != s.descriptor.ChainID {
		if err := s.EnsureNetwork(ctx); err != nil {
			return err
		}
	}

	gateway, err := chain.NewGateway(s.contract, s.provider, s.gwOpts...)
	if err != nil {
		s.notify(notify.KindError, "Failed to connect wallet")
		return fmt.Errorf("open contract handle: %w", err)
	}

	balance, err := s.provider.BalanceAt(ctx, address)
	if err != nil {
		s.notify(notify.KindError, "Failed to connect wallet")
		return fmt.Errorf("read balance: %w", err)
	}

	s.mu.Lock()
	s.connected = true
	s.address = address
	s.balance = balance
	s.networkOK = true
	s.gateway = gateway
	s.mu.Unlock()

	if watcher, ok := s.provider.(AccountWatcher); ok {
		watcher.OnAccountsChanged(s.handleAccountsChanged)
	}

	s.notify(notify.KindSuccess, "Wallet connected")
	if s.metrics != nil {
		s.metrics.Connects.Inc()
	}

	// Best-effort; a failed reputation lookup stays silent and reads zero.
	if rep, err := gateway.UserReputation(ctx, address); err == nil {
		s.mu.Lock()
		s.reputation = rep
		s.mu.Unlock()
	} else {
		s.logger.Printf("[wallet] reputation lookup: %v", err)
	}

	return nil
}

// EnsureNetwork asks the wallet to switch to the configured chain. When the
// wallet does not know the chain it registers it from the descriptor and
// retries the switch once. Failure surfaces as one error notification and
// ErrNetworkMismatch.
func (s *Session) EnsureNetwork(ctx context.Context) error {
	err := s.provider.SwitchChain(ctx, s.descriptor.ChainID)
	if err == nil {
		s.setNetworkOK()
		return nil
	}

	if code, ok := ErrorCode(err); ok && code == CodeUnknownChain {
		if regErr := s.provider.RegisterChain(ctx, s.descriptor); regErr == nil {
			if err = s.provider.SwitchChain(ctx, s.descriptor.ChainID); err == nil {
				s.setNetworkOK()
				return nil
			}
		} else {
			err = regErr
		}
	}

	s.notify(notify.KindError, fmt.Sprintf("Failed to switch to %s", s.descriptor.Name))
	return fmt.Errorf("%w: %v", ErrNetworkMismatch, err)
}

// Disconnect tears the session down entirely. Identity, balance, network
// flag and the contract handle are cleared under one lock; no partial state
// is observable.
func (s *Session) Disconnect() {
	s.mu.Lock()
	wasConnected := s.connected
	s.connected = false
	s.address = common.Address{}
	s.balance = nil
	s.networkOK = false
	s.reputation = 0
	s.gateway = nil
	s.mu.Unlock()

	if !wasConnected {
		return
	}
	s.notify(notify.KindInfo, "Wallet disconnected")
	if s.metrics != nil {
		s.metrics.Disconnects.Inc()
	}
}

// Address returns the connected account, if any.
func (s *Session) Address() (common.Address, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.address, s.connected
}

// Balance returns a copy of the connected account's balance in wei, or nil.
func (s *Session) Balance() *big.Int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.balance == nil {
		return nil
	}
	return new(big.Int).Set(s.balance)
}

// NetworkMatches reports whether the wallet is on the configured chain.
func (s *Session) NetworkMatches() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.networkOK
}

// Connecting reports whether a Connect call is in flight.
func (s *Session) Connecting() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connecting
}

// Reputation returns the ledger reputation of the connected account. Zero
// when disconnected or when the background lookup failed.
func (s *Session) Reputation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reputation
}

// Gateway returns the open contract handle, or nil when disconnected.
func (s *Session) Gateway() *chain.Gateway {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gateway
}

func (s *Session) handleAccountsChanged(accounts []common.Address) {
	s.mu.Lock()
	current := s.address
	connected := s.connected
	s.mu.Unlock()
	if !connected {
		return
	}
	if len(accounts) == 0 || accounts[0] != current {
		s.Disconnect()
	}
}

func (s *Session) setNetworkOK() {
	s.mu.Lock()
	s.networkOK = true
	s.mu.Unlock()
}

func (s *Session) notify(kind notify.Kind, message string) {
	if s.queue != nil {
		s.queue.Push(kind, message)
	}
}
