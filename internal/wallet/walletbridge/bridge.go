// Package walletbridge speaks JSON-RPC to an external wallet over a
// WebSocket, exposing it as a wallet provider. The wallet owns the keys;
// the bridge only relays requests and the user's answers.
package walletbridge

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math/big"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/gorilla/websocket"

	"bounty-board/internal/chain"
	"bounty-board/internal/wallet"
)

// Config configures bridge timeouts.
type Config struct {
	// HandshakeTimeout bounds the WebSocket dial.
	HandshakeTimeout time.Duration
	// WriteTimeout bounds each outgoing frame.
	WriteTimeout time.Duration
	// ReadTimeout bounds the gap between incoming frames.
	ReadTimeout time.Duration
	// PingInterval is how often keepalive pings go out.
	PingInterval time.Duration
}

// DefaultConfig returns the default bridge configuration.
func DefaultConfig() Config {
	return Config{
		HandshakeTimeout: 10 * time.Second,
		WriteTimeout:     10 * time.Second,
		ReadTimeout:      5 * time.Minute,
		PingInterval:     30 * time.Second,
	}
}

// Bridge is a wallet.Provider backed by a live wallet connection. A dropped
// connection fails all in-flight calls; the wallet going away means the
// session is over, so there is no reconnect.
type Bridge struct {
	config Config
	logger *log.Logger

	conn   *websocket.Conn
	connMu sync.Mutex

	requestID atomic.Uint64
	closed    atomic.Bool

	pending   map[uint64]chan rpcResponse
	pendingMu sync.Mutex

	// from is the active signer, learned from the accounts grant.
	from   common.Address
	fromMu sync.Mutex

	accountsFns []func([]common.Address)
	fnsMu       sync.Mutex

	done chan struct{}
	wg   sync.WaitGroup
}

// Dial connects to the wallet endpoint and starts the read and ping loops.
func Dial(ctx context.Context, endpoint string, config *Config, logger *log.Logger) (*Bridge, error) {
	cfg := DefaultConfig()
	if config != nil {
		cfg = *config
	}
	if logger == nil {
		logger = log.Default()
	}

	dialer := websocket.Dialer{HandshakeTimeout: cfg.HandshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("wallet dial: %w", err)
	}

	b := &Bridge{
		config:  cfg,
		logger:  logger,
		conn:    conn,
		pending: make(map[uint64]chan rpcResponse),
		done:    make(chan struct{}),
	}

	b.wg.Add(2)
	go b.readLoop()
	go b.pingLoop()

	return b, nil
}

// Close shuts the bridge down and fails all in-flight calls.
func (b *Bridge) Close() error {
	if b.closed.Swap(true) {
		return nil
	}
	close(b.done)

	b.connMu.Lock()
	b.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	b.conn.Close()
	b.connMu.Unlock()

	b.failPending()
	b.wg.Wait()
	return nil
}

// RequestAccounts asks the wallet for account access and remembers the
// active signer for transaction sends.
func (b *Bridge) RequestAccounts(ctx context.Context) ([]common.Address, error) {
	var hexAccounts []string
	if err := b.call(ctx, "eth_requestAccounts", nil, &hexAccounts); err != nil {
		return nil, err
	}
	accounts := make([]common.Address, len(hexAccounts))
	for i, h := range hexAccounts {
		accounts[i] = common.HexToAddress(h)
	}
	if len(accounts) > 0 {
		b.fromMu.Lock()
		b.from = accounts[0]
		b.fromMu.Unlock()
	}
	return accounts, nil
}

// ChainID reports the chain the wallet is on.
func (b *Bridge) ChainID(ctx context.Context) (uint64, error) {
	var id hexutil.Big
	if err := b.call(ctx, "eth_chainId", nil, &id); err != nil {
		return 0, err
	}
	return (*big.Int)(&id).Uint64(), nil
}

// SwitchChain asks the wallet to move to chainID.
func (b *Bridge) SwitchChain(ctx context.Context, chainID uint64) error {
	params := []interface{}{
		map[string]string{"chainId": hexutil.EncodeUint64(chainID)},
	}
	return b.call(ctx, "wallet_switchEthereumChain", params, nil)
}

// RegisterChain asks the wallet to add the chain described by d.
func (b *Bridge) RegisterChain(ctx context.Context, d chain.Descriptor) error {
	params := []interface{}{
		map[string]interface{}{
			"chainId":   d.ChainIDHex(),
			"chainName": d.Name,
			"nativeCurrency": map[string]interface{}{
				"name":     d.Currency.Name,
				"symbol":   d.Currency.Symbol,
				"decimals": d.Currency.Decimals,
			},
			"rpcUrls":           d.RPCURLs,
			"blockExplorerUrls": d.ExplorerURLs,
		},
	}
	return b.call(ctx, "wallet_addEthereumChain", params, nil)
}

// BalanceAt reads the native-currency balance of addr.
func (b *Bridge) BalanceAt(ctx context.Context, addr common.Address) (*big.Int, error) {
	var balance hexutil.Big
	params := []interface{}{addr.Hex(), "latest"}
	if err := b.call(ctx, "eth_getBalance", params, &balance); err != nil {
		return nil, err
	}
	return (*big.Int)(&balance), nil
}

// CallContract executes a view call against to.
func (b *Bridge) CallContract(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	var out hexutil.Bytes
	params := []interface{}{
		map[string]string{
			"to":   to.Hex(),
			"data": hexutil.Encode(data),
		},
		"latest",
	}
	if err := b.call(ctx, "eth_call", params, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SendTransaction asks the wallet to sign and broadcast a transaction. The
// wallet prompts the user; rejection surfaces as a coded error.
func (b *Bridge) SendTransaction(ctx context.Context, to common.Address, value *big.Int, data []byte) (common.Hash, error) {
	b.fromMu.Lock()
	from := b.from
	b.fromMu.Unlock()

	tx := map[string]string{
		"from": from.Hex(),
		"to":   to.Hex(),
		"data": hexutil.Encode(data),
	}
	if value != nil && value.Sign() > 0 {
		tx["value"] = hexutil.EncodeBig(value)
	}

	var hash common.Hash
	if err := b.call(ctx, "eth_sendTransaction", []interface{}{tx}, &hash); err != nil {
		return common.Hash{}, err
	}
	return hash, nil
}

// TransactionReceipt returns the receipt for hash, or (nil, nil) while the
// transaction is still pending.
func (b *Bridge) TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	var raw json.RawMessage
	if err := b.call(ctx, "eth_getTransactionReceipt", []interface{}{hash.Hex()}, &raw); err != nil {
		return nil, err
	}
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	receipt := new(types.Receipt)
	if err := receipt.UnmarshalJSON(raw); err != nil {
		return nil, fmt.Errorf("decode receipt: %w", err)
	}
	return receipt, nil
}

// OnAccountsChanged registers fn to run when the wallet reports an account
// change.
func (b *Bridge) OnAccountsChanged(fn func(accounts []common.Address)) {
	b.fnsMu.Lock()
	b.accountsFns = append(b.accountsFns, fn)
	b.fnsMu.Unlock()
}

// call performs one JSON-RPC round trip. A non-nil out receives the result;
// wallet error objects come back as wallet.CodedError.
func (b *Bridge) call(ctx context.Context, method string, params interface{}, out interface{}) error {
	if b.closed.Load() {
		return fmt.Errorf("bridge closed")
	}

	reqID := b.requestID.Add(1)
	req := rpcRequest{JSONRPC: "2.0", ID: reqID, Method: method, Params: params}

	respCh := make(chan rpcResponse, 1)
	b.pendingMu.Lock()
	b.pending[reqID] = respCh
	b.pendingMu.Unlock()

	b.connMu.Lock()
	b.conn.SetWriteDeadline(time.Now().Add(b.config.WriteTimeout))
	err := b.conn.WriteJSON(req)
	b.connMu.Unlock()
	if err != nil {
		b.dropPending(reqID)
		return fmt.Errorf("write %s: %w", method, err)
	}

	select {
	case resp, ok := <-respCh:
		if !ok {
			return fmt.Errorf("bridge closed")
		}
		if resp.Error != nil {
			return &wallet.CodedError{Code: resp.Error.Code, Message: resp.Error.Message}
		}
		if out == nil {
			return nil
		}
		if err := json.Unmarshal(resp.Result, out); err != nil {
			return fmt.Errorf("decode %s result: %w", method, err)
		}
		return nil
	case <-b.done:
		b.dropPending(reqID)
		return fmt.Errorf("bridge closed")
	case <-ctx.Done():
		b.dropPending(reqID)
		return ctx.Err()
	}
}

func (b *Bridge) dropPending(reqID uint64) {
	b.pendingMu.Lock()
	delete(b.pending, reqID)
	b.pendingMu.Unlock()
}

func (b *Bridge) failPending() {
	b.pendingMu.Lock()
	for id, ch := range b.pending {
		close(ch)
		delete(b.pending, id)
	}
	b.pendingMu.Unlock()
}

func (b *Bridge) readLoop() {
	defer b.wg.Done()

	for {
		b.connMu.Lock()
		conn := b.conn
		b.connMu.Unlock()

		conn.SetReadDeadline(time.Now().Add(b.config.ReadTimeout))
		_, message, err := conn.ReadMessage()
		if err != nil {
			if !b.closed.Load() {
				b.logger.Printf("[walletbridge] read: %v", err)
				b.failPending()
			}
			return
		}
		b.handleMessage(message)
	}
}

func (b *Bridge) handleMessage(message []byte) {
	// Responses carry an id; wallet-originated events carry a method.
	var resp rpcResponse
	if err := json.Unmarshal(message, &resp); err == nil && resp.ID != 0 {
		b.pendingMu.Lock()
		ch, ok := b.pending[resp.ID]
		if ok {
			delete(b.pending, resp.ID)
		}
		b.pendingMu.Unlock()
		if ok {
			ch <- resp
		}
		return
	}

	var event rpcEvent
	if err := json.Unmarshal(message, &event); err == nil && event.Method == "accountsChanged" {
		var hexAccounts []string
		if err := json.Unmarshal(event.Params, &hexAccounts); err != nil {
			b.logger.Printf("[walletbridge] bad accountsChanged payload: %v", err)
			return
		}
		accounts := make([]common.Address, len(hexAccounts))
		for i, h := range hexAccounts {
			accounts[i] = common.HexToAddress(h)
		}
		b.fnsMu.Lock()
		fns := append([]func([]common.Address){}, b.accountsFns...)
		b.fnsMu.Unlock()
		for _, fn := range fns {
			fn(accounts)
		}
	}
}

func (b *Bridge) pingLoop() {
	defer b.wg.Done()

	ticker := time.NewTicker(b.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.done:
			return
		case <-ticker.C:
			b.connMu.Lock()
			b.conn.SetWriteDeadline(time.Now().Add(b.config.WriteTimeout))
			if err := b.conn.WriteMessage(websocket.PingMessage, nil); err != nil && !b.closed.Load() {
				b.logger.Printf("[walletbridge] ping: %v", err)
			}
			b.connMu.Unlock()
		}
	}
}

type rpcRequest struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      uint64      `json:"id"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *rpcError       `json:"error"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcEvent struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}
