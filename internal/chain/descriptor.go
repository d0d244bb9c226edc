// Package chain consumes the remote bounty contract: typed reads, mutating
// calls, and confirmation tracking. The contract's rules are authoritative
// and are not reimplemented here.
package chain

import "fmt"

// Currency describes the native currency of a chain.
type Currency struct {
	Name     string
	Symbol   string
	Decimals uint8
}

// Descriptor identifies a chain to a wallet provider. It is passed verbatim
// when requesting chain registration on a wallet that does not know the
// chain yet.
type Descriptor struct {
	ChainID      uint64
	Name         string
	Currency     Currency
	RPCURLs      []string
	ExplorerURLs []string
}

// ChainIDHex returns the chain id in the 0x-prefixed hex form wallet
// providers expect.
func (d Descriptor) ChainIDHex() string {
	return fmt.Sprintf("0x%x", d.ChainID)
}

// NeuraTestnet is the default deployment target.
var NeuraTestnet = Descriptor{
	ChainID: 267,
	Name:    "Neura Testnet",
	Currency: Currency{
		Name:     "ANKR",
		Symbol:   "ANKR",
		Decimals: 18,
	},
	RPCURLs:      []string{"https://rpc.ankr.com/neura_testnet"},
	ExplorerURLs: []string{"https://explorer.neura-testnet.ankr.com"},
}
