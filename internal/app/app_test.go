package app

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"bounty-board/internal/chain"
	"bounty-board/internal/history/memory"
	"bounty-board/internal/notify"
	"bounty-board/internal/wallet/stub"
)

var (
	account  = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	contract = common.HexToAddress("0x00000000000000000000000000000000000000ff")
)

func newApp(p *stub.Provider) *App {
	opts := Options{
		Descriptor: chain.NeuraTestnet,
		Contract:   contract,
		History:    memory.NewStore(),
		Logger:     log.New(io.Discard, "", 0),
	}
	if p != nil {
		opts.Provider = p
	}
	return New(opts)
}

func TestPreconditionWithoutSession(t *testing.T) {
	a := newApp(stub.New(chain.NeuraTestnet.ChainID, account))

	if _, err := a.Repository(); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Repository: %v", err)
	}
	if _, err := a.Orchestrator(); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Orchestrator: %v", err)
	}
	if _, err := a.Profile(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Profile: %v", err)
	}

	// Each refused operation tells the user why.
	items := a.Queue().Items()
	if len(items) == 0 {
		t.Fatal("no notifications queued")
	}
	for _, n := range items {
		if n.Kind != notify.KindError {
			t.Errorf("notification kind = %s", n.Kind)
		}
	}
}

func TestConnectBuildsScopedComponents(t *testing.T) {
	a := newApp(stub.New(chain.NeuraTestnet.ChainID, account))

	if err := a.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if _, err := a.Repository(); err != nil {
		t.Errorf("Repository after connect: %v", err)
	}
	if _, err := a.Orchestrator(); err != nil {
		t.Errorf("Orchestrator after connect: %v", err)
	}
}

func TestDisconnectTearsDown(t *testing.T) {
	a := newApp(stub.New(chain.NeuraTestnet.ChainID, account))
	if err := a.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	a.Disconnect()

	if _, err := a.Repository(); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Repository after disconnect: %v", err)
	}
	if _, ok := a.Session().Address(); ok {
		t.Error("session survives disconnect")
	}
}

func TestConnectWithoutProviderFails(t *testing.T) {
	a := newApp(nil)
	if err := a.Connect(context.Background()); err == nil {
		t.Fatal("expected error without provider")
	}
	if _, err := a.Repository(); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Repository: %v", err)
	}
}
