// Package keysigner is a headless wallet provider: a local private key and
// a direct RPC endpoint, with no user in the loop. It backs the CLI and
// automated use; every request a browser wallet would prompt for is granted
// immediately.
package keysigner

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"bounty-board/internal/chain"
	"bounty-board/internal/wallet"
)

// Signer implements the wallet provider surface over a raw RPC endpoint,
// signing locally with a fixed key.
type Signer struct {
	client  *ethclient.Client
	key     *ecdsa.PrivateKey
	address common.Address
	chainID *big.Int
}

// Dial connects to rpcURL and loads the hex-encoded private key. The
// endpoint's chain id is read once and fixed for the life of the signer.
func Dial(ctx context.Context, rpcURL, keyHex string) (*Signer, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(keyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}

	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial rpc: %w", err)
	}

	chainID, err := client.ChainID(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("read chain id: %w", err)
	}

	return &Signer{
		client:  client,
		key:     key,
		address: crypto.PubkeyToAddress(key.PublicKey),
		chainID: chainID,
	}, nil
}

// Close releases the RPC connection.
func (s *Signer) Close() {
	s.client.Close()
}

// Address returns the signing account.
func (s *Signer) Address() common.Address {
	return s.address
}

// RequestAccounts grants the local account without prompting.
func (s *Signer) RequestAccounts(_ context.Context) ([]common.Address, error) {
	return []common.Address{s.address}, nil
}

// ChainID reports the endpoint's chain.
func (s *Signer) ChainID(_ context.Context) (uint64, error) {
	return s.chainID.Uint64(), nil
}

// SwitchChain cannot repoint a fixed endpoint; it succeeds only when the
// endpoint already serves chainID.
func (s *Signer) SwitchChain(_ context.Context, chainID uint64) error {
	if s.chainID.Uint64() == chainID {
		return nil
	}
	return fmt.Errorf("%w: endpoint serves chain %d, want %d",
		wallet.ErrNetworkMismatch, s.chainID.Uint64(), chainID)
}

// RegisterChain succeeds when the endpoint already serves the described
// chain; there is nothing to add.
func (s *Signer) RegisterChain(_ context.Context, d chain.Descriptor) error {
	if s.chainID.Uint64() == d.ChainID {
		return nil
	}
	return fmt.Errorf("%w: endpoint serves chain %d, want %d",
		wallet.ErrNetworkMismatch, s.chainID.Uint64(), d.ChainID)
}

// BalanceAt reads the latest balance of addr.
func (s *Signer) BalanceAt(ctx context.Context, addr common.Address) (*big.Int, error) {
	return s.client.BalanceAt(ctx, addr, nil)
}

// CallContract executes a view call against to.
func (s *Signer) CallContract(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	msg := ethereum.CallMsg{From: s.address, To: &to, Data: data}
	return s.client.CallContract(ctx, msg, nil)
}

// SendTransaction builds, signs and broadcasts a transaction to to.
func (s *Signer) SendTransaction(ctx context.Context, to common.Address, value *big.Int, data []byte) (common.Hash, error) {
	nonce, err := s.client.PendingNonceAt(ctx, s.address)
	if err != nil {
		return common.Hash{}, fmt.Errorf("pending nonce: %w", err)
	}
	gasPrice, err := s.client.SuggestGasPrice(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("suggest gas price: %w", err)
	}
	gas, err := s.client.EstimateGas(ctx, ethereum.CallMsg{
		From:  s.address,
		To:    &to,
		Value: value,
		Data:  data,
	})
	if err != nil {
		return common.Hash{}, fmt.Errorf("estimate gas: %w", err)
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &to,
		Value:    value,
		Gas:      gas,
		GasPrice: gasPrice,
		Data:     data,
	})
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(s.chainID), s.key)
	if err != nil {
		return common.Hash{}, fmt.Errorf("sign transaction: %w", err)
	}
	if err := s.client.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, fmt.Errorf("broadcast: %w", err)
	}
	return signed.Hash(), nil
}

// TransactionReceipt returns the receipt for hash, or (nil, nil) while the
// transaction is still pending.
func (s *Signer) TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	receipt, err := s.client.TransactionReceipt(ctx, hash)
	if errors.Is(err, ethereum.NotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return receipt, nil
}
