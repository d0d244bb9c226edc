package chain

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

var (
	testContract = common.HexToAddress("0x14F8054C72c1d5B61854EB49E9205Db74eab3371")
	testCreator  = common.HexToAddress("0x00000000000000000000000000000000000000a1")
)

// fakeBackend answers CallContract by matching the 4-byte selector against
// canned per-method outputs.
type fakeBackend struct {
	abi      abi.ABI
	outputs  map[string][]byte
	callErr  error
	sent     [][]byte
	sentHash common.Hash
	sendErr  error

	receipts     []*types.Receipt
	receiptErr   error
	receiptCalls atomic.Int32
}

func newFakeBackend(t *testing.T) *fakeBackend {
	t.Helper()
	parsed, err := abi.JSON(strings.NewReader(contractABI))
	if err != nil {
		t.Fatalf("parse abi: %v", err)
	}
	return &fakeBackend{
		abi:      parsed,
		outputs:  make(map[string][]byte),
		sentHash: common.HexToHash("0xbeef"),
	}
}

// setOutput packs vals as the return data of method.
func (f *fakeBackend) setOutput(t *testing.T, method string, vals ...interface{}) {
	t.Helper()
	out, err := f.abi.Methods[method].Outputs.Pack(vals...)
	if err != nil {
		t.Fatalf("pack outputs for %s: %v", method, err)
	}
	f.outputs[method] = out
}

func (f *fakeBackend) CallContract(_ context.Context, _ common.Address, data []byte) ([]byte, error) {
	if f.callErr != nil {
		return nil, f.callErr
	}
	for name, m := range f.abi.Methods {
		if len(data) >= 4 && string(data[:4]) == string(m.ID) {
			out, ok := f.outputs[name]
			if !ok {
				return nil, errors.New("no canned output for " + name)
			}
			return out, nil
		}
	}
	return nil, errors.New("unknown selector")
}

func (f *fakeBackend) SendTransaction(_ context.Context, _ common.Address, _ *big.Int, data []byte) (common.Hash, error) {
	if f.sendErr != nil {
		return common.Hash{}, f.sendErr
	}
	f.sent = append(f.sent, data)
	return f.sentHash, nil
}

func (f *fakeBackend) TransactionReceipt(_ context.Context, _ common.Hash) (*types.Receipt, error) {
	if f.receiptErr != nil {
		return nil, f.receiptErr
	}
	n := int(f.receiptCalls.Add(1)) - 1
	if n >= len(f.receipts) {
		n = len(f.receipts) - 1
	}
	if n < 0 {
		return nil, nil
	}
	return f.receipts[n], nil
}

func newTestGateway(t *testing.T, backend Backend) *Gateway {
	t.Helper()
	g, err := NewGateway(testContract, backend, WithPollInterval(time.Millisecond))
	if err != nil {
		t.Fatalf("NewGateway: %v", err)
	}
	return g
}

func TestGateway_BountyCore(t *testing.T) {
	backend := newFakeBackend(t)
	backend.setOutput(t, "getBountyCore",
		big.NewInt(3), testCreator, big.NewInt(2500), big.NewInt(1000), big.NewInt(2000), uint8(1))
	g := newTestGateway(t, backend)

	core, err := g.BountyCore(context.Background(), 3)
	if err != nil {
		t.Fatalf("BountyCore: %v", err)
	}
	if core.ID != 3 || core.Creator != testCreator || core.Reward.Int64() != 2500 {
		t.Errorf("unexpected core: %+v", core)
	}
	if core.Deadline != 1000 || core.ReviewEnd != 2000 || core.Status != 1 {
		t.Errorf("unexpected core: %+v", core)
	}
}

func TestGateway_BountyTextAndWinner(t *testing.T) {
	backend := newFakeBackend(t)
	backend.setOutput(t, "getBountyText", "Fix parser", "Details here")
	backend.setOutput(t, "getBountyWinner", testCreator, true)
	g := newTestGateway(t, backend)

	text, err := g.BountyText(context.Background(), 1)
	if err != nil {
		t.Fatalf("BountyText: %v", err)
	}
	if text.Title != "Fix parser" || text.Description != "Details here" {
		t.Errorf("unexpected text: %+v", text)
	}

	winner, err := g.BountyWinner(context.Background(), 1)
	if err != nil {
		t.Fatalf("BountyWinner: %v", err)
	}
	if winner.Winner != testCreator || !winner.Paid {
		t.Errorf("unexpected winner: %+v", winner)
	}
}

func TestGateway_CallErrorIsGatewayCall(t *testing.T) {
	backend := newFakeBackend(t)
	backend.callErr = errors.New("connection refused")
	g := newTestGateway(t, backend)

	_, err := g.TotalBounties(context.Background())
	if !errors.Is(err, ErrGatewayCall) {
		t.Errorf("expected ErrGatewayCall, got %v", err)
	}
}

func TestGateway_CreateBountySendsValue(t *testing.T) {
	backend := newFakeBackend(t)
	g := newTestGateway(t, backend)

	hash, err := g.CreateBounty(context.Background(), "t", "d", 1000, 300, big.NewInt(42))
	if err != nil {
		t.Fatalf("CreateBounty: %v", err)
	}
	if hash != backend.sentHash {
		t.Errorf("hash = %s", hash.Hex())
	}
	if len(backend.sent) != 1 {
		t.Fatalf("sent %d transactions", len(backend.sent))
	}
	method := backend.abi.Methods["createBounty"]
	if string(backend.sent[0][:4]) != string(method.ID) {
		t.Error("wrong selector for createBounty")
	}
}

func TestGateway_WaitMined(t *testing.T) {
	backend := newFakeBackend(t)
	ok := &types.Receipt{Status: types.ReceiptStatusSuccessful}
	backend.receipts = []*types.Receipt{nil, nil, ok}
	g := newTestGateway(t, backend)

	receipt, err := g.WaitMined(context.Background(), backend.sentHash)
	if err != nil {
		t.Fatalf("WaitMined: %v", err)
	}
	if receipt != ok {
		t.Error("unexpected receipt")
	}
}

func TestGateway_WaitMined_Reverted(t *testing.T) {
	backend := newFakeBackend(t)
	backend.receipts = []*types.Receipt{{Status: types.ReceiptStatusFailed}}
	g := newTestGateway(t, backend)

	_, err := g.WaitMined(context.Background(), backend.sentHash)
	if !errors.Is(err, ErrGatewayCall) {
		t.Errorf("expected ErrGatewayCall for revert, got %v", err)
	}
}

func TestGateway_CreatedID(t *testing.T) {
	backend := newFakeBackend(t)
	g := newTestGateway(t, backend)

	receipt := &types.Receipt{
		Status: types.ReceiptStatusSuccessful,
		Logs: []*types.Log{
			{Address: common.HexToAddress("0x1"), Topics: []common.Hash{g.createdTopic}},
			{
				Address: testContract,
				Topics: []common.Hash{
					g.createdTopic,
					common.BigToHash(big.NewInt(7)),
					common.BytesToHash(testCreator.Bytes()),
				},
			},
		},
	}

	id, err := g.CreatedID(receipt)
	if err != nil {
		t.Fatalf("CreatedID: %v", err)
	}
	if id != 7 {
		t.Errorf("id = %d, want 7", id)
	}
}

func TestGateway_CreatedID_Missing(t *testing.T) {
	backend := newFakeBackend(t)
	g := newTestGateway(t, backend)

	_, err := g.CreatedID(&types.Receipt{Status: types.ReceiptStatusSuccessful})
	if !errors.Is(err, ErrNoCreationEvent) {
		t.Errorf("expected ErrNoCreationEvent, got %v", err)
	}
}
