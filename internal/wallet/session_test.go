package wallet_test

import (
	"context"
	"errors"
	"io"
	"log"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"bounty-board/internal/chain"
	"bounty-board/internal/notify"
	"bounty-board/internal/wallet"
	"bounty-board/internal/wallet/stub"
)

var (
	account  = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	contract = common.HexToAddress("0x00000000000000000000000000000000000000ff")
)

func newSession(p *stub.Provider, q *notify.Queue) *wallet.Session {
	return wallet.NewSession(wallet.SessionOptions{
		Provider:   p,
		Descriptor: chain.NeuraTestnet,
		Contract:   contract,
		Queue:      q,
		Logger:     log.New(io.Discard, "", 0),
	})
}

func lastNotification(t *testing.T, q *notify.Queue) notify.Notification {
	t.Helper()
	items := q.Items()
	if len(items) == 0 {
		t.Fatal("no notifications queued")
	}
	return items[len(items)-1]
}

func TestConnect(t *testing.T) {
	p := stub.New(chain.NeuraTestnet.ChainID, account)
	p.Balance = big.NewInt(42)
	p.CallResult = common.LeftPadBytes(big.NewInt(7).Bytes(), 32)
	q := notify.NewQueue()
	s := newSession(p, q)

	if err := s.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	addr, ok := s.Address()
	if !ok || addr != account {
		t.Errorf("address = %v, %v", addr, ok)
	}
	if bal := s.Balance(); bal == nil || bal.Int64() != 42 {
		t.Errorf("balance = %v", bal)
	}
	if !s.NetworkMatches() {
		t.Error("network should match without a switch")
	}
	if s.Gateway() == nil {
		t.Error("no contract handle after connect")
	}
	if s.Reputation() != 7 {
		t.Errorf("reputation = %d", s.Reputation())
	}
	if n := lastNotification(t, q); n.Kind != notify.KindSuccess {
		t.Errorf("notification kind = %s", n.Kind)
	}
	if len(p.Switched) != 0 {
		t.Errorf("unexpected chain switch: %v", p.Switched)
	}
}

func TestConnect_NoProvider(t *testing.T) {
	q := notify.NewQueue()
	s := wallet.NewSession(wallet.SessionOptions{
		Descriptor: chain.NeuraTestnet,
		Contract:   contract,
		Queue:      q,
		Logger:     log.New(io.Discard, "", 0),
	})

	if err := s.Connect(context.Background()); !errors.Is(err, wallet.ErrNoProvider) {
		t.Fatalf("expected ErrNoProvider, got %v", err)
	}
	if n := lastNotification(t, q); n.Kind != notify.KindError {
		t.Errorf("notification kind = %s", n.Kind)
	}
}

func TestConnect_UserRejected(t *testing.T) {
	p := stub.New(chain.NeuraTestnet.ChainID, account)
	p.AccountsErr = &wallet.CodedError{Code: wallet.CodeUserRejected, Message: "denied"}
	q := notify.NewQueue()
	s := newSession(p, q)

	if err := s.Connect(context.Background()); !errors.Is(err, wallet.ErrUserRejected) {
		t.Fatalf("expected ErrUserRejected, got %v", err)
	}
	if _, ok := s.Address(); ok {
		t.Error("session connected after rejection")
	}
}

func TestConnect_RegistersUnknownChain(t *testing.T) {
	// Wallet starts on the wrong chain and does not know the target: the
	// first switch fails with the unknown-chain code, the chain is
	// registered from the descriptor, and the retried switch succeeds.
	p := stub.New(1, account)
	p.SwitchErrs = []error{&wallet.CodedError{Code: wallet.CodeUnknownChain, Message: "unknown"}}
	q := notify.NewQueue()
	s := newSession(p, q)

	if err := s.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if len(p.Registered) != 1 || p.Registered[0].ChainID != chain.NeuraTestnet.ChainID {
		t.Errorf("registered chains: %+v", p.Registered)
	}
	if len(p.Switched) != 2 {
		t.Errorf("switch attempts = %d, want 2", len(p.Switched))
	}
	if !s.NetworkMatches() {
		t.Error("network not matched after repair")
	}
}

func TestConnect_NetworkMismatch(t *testing.T) {
	p := stub.New(1, account)
	p.SwitchErrs = []error{errors.New("switch refused")}
	q := notify.NewQueue()
	s := newSession(p, q)

	if err := s.Connect(context.Background()); !errors.Is(err, wallet.ErrNetworkMismatch) {
		t.Fatalf("expected ErrNetworkMismatch, got %v", err)
	}
	if _, ok := s.Address(); ok {
		t.Error("session connected on wrong chain")
	}
	if n := lastNotification(t, q); n.Kind != notify.KindError {
		t.Errorf("notification kind = %s", n.Kind)
	}
}

func TestConnect_ReputationFailureIsSilent(t *testing.T) {
	p := stub.New(chain.NeuraTestnet.ChainID, account)
	p.CallErr = errors.New("rpc down")
	q := notify.NewQueue()
	s := newSession(p, q)

	if err := s.Connect(context.Background()); err != nil {
		t.Fatalf("Connect must not fail on reputation lookup: %v", err)
	}
	if s.Reputation() != 0 {
		t.Errorf("reputation = %d", s.Reputation())
	}
	if n := lastNotification(t, q); n.Kind != notify.KindSuccess {
		t.Errorf("reputation failure surfaced to the user: %s", n.Kind)
	}
}

func TestDisconnect(t *testing.T) {
	p := stub.New(chain.NeuraTestnet.ChainID, account)
	q := notify.NewQueue()
	s := newSession(p, q)
	if err := s.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	s.Disconnect()

	if _, ok := s.Address(); ok {
		t.Error("address survives disconnect")
	}
	if s.Balance() != nil {
		t.Error("balance survives disconnect")
	}
	if s.Gateway() != nil {
		t.Error("contract handle survives disconnect")
	}
	if s.NetworkMatches() {
		t.Error("network flag survives disconnect")
	}
	if s.Reputation() != 0 {
		t.Error("reputation survives disconnect")
	}
	if n := lastNotification(t, q); n.Kind != notify.KindInfo {
		t.Errorf("notification kind = %s", n.Kind)
	}
}

func TestDisconnect_WhenIdleIsSilent(t *testing.T) {
	p := stub.New(chain.NeuraTestnet.ChainID, account)
	q := notify.NewQueue()
	s := newSession(p, q)

	s.Disconnect()
	if items := q.Items(); len(items) != 0 {
		t.Errorf("idle disconnect queued %d notifications", len(items))
	}
}

func TestAccountSwitchDisconnects(t *testing.T) {
	p := stub.New(chain.NeuraTestnet.ChainID, account)
	q := notify.NewQueue()
	s := newSession(p, q)
	if err := s.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	other := common.HexToAddress("0x00000000000000000000000000000000000000b2")
	p.FireAccountsChanged([]common.Address{other})

	if _, ok := s.Address(); ok {
		t.Error("session survives account switch")
	}
}

func TestConnect_Idempotent(t *testing.T) {
	p := stub.New(chain.NeuraTestnet.ChainID, account)
	q := notify.NewQueue()
	s := newSession(p, q)
	if err := s.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	before := len(q.Items())

	if err := s.Connect(context.Background()); err != nil {
		t.Fatalf("second Connect: %v", err)
	}
	if after := len(q.Items()); after != before {
		t.Errorf("repeat connect queued %d extra notifications", after-before)
	}
}
