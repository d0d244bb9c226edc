// Package config loads runtime configuration from a file and environment
// variables, with defaults targeting the Neura testnet deployment.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"bounty-board/internal/chain"
)

// Config is the process configuration.
type Config struct {
	// RPCURL is the JSON-RPC endpoint the keysigner provider dials.
	RPCURL string `mapstructure:"rpc_url"`
	// WalletWSURL, when set, selects the walletbridge provider instead of
	// the local key.
	WalletWSURL string `mapstructure:"wallet_ws_url"`
	// ContractAddress is the deployed bounty contract.
	ContractAddress string `mapstructure:"contract_address"`
	// KeyHex is the signing key for headless use. Empty for read-only runs.
	KeyHex string `mapstructure:"key_hex"`

	ChainID          uint64 `mapstructure:"chain_id"`
	ChainName        string `mapstructure:"chain_name"`
	CurrencyName     string `mapstructure:"currency_name"`
	CurrencySymbol   string `mapstructure:"currency_symbol"`
	CurrencyDecimals uint8  `mapstructure:"currency_decimals"`
	ExplorerURL      string `mapstructure:"explorer_url"`

	// PostgresDSN enables the persistent history store; empty keeps
	// history in memory.
	PostgresDSN string `mapstructure:"postgres_dsn"`

	FetchConcurrency int `mapstructure:"fetch_concurrency"`
	// MetricsListen, when set, serves Prometheus metrics on this address.
	MetricsListen string `mapstructure:"metrics_listen"`
}

// Load reads configuration from path (optional), then the environment with
// the BOUNTY_ prefix, then defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("BOUNTY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if cfg.ContractAddress == "" {
		return nil, fmt.Errorf("contract_address is required")
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("rpc_url", chain.NeuraTestnet.RPCURLs[0])
	v.SetDefault("wallet_ws_url", "")
	v.SetDefault("contract_address", "")
	v.SetDefault("key_hex", "")
	v.SetDefault("chain_id", chain.NeuraTestnet.ChainID)
	v.SetDefault("chain_name", chain.NeuraTestnet.Name)
	v.SetDefault("currency_name", chain.NeuraTestnet.Currency.Name)
	v.SetDefault("currency_symbol", chain.NeuraTestnet.Currency.Symbol)
	v.SetDefault("currency_decimals", chain.NeuraTestnet.Currency.Decimals)
	v.SetDefault("explorer_url", chain.NeuraTestnet.ExplorerURLs[0])
	v.SetDefault("postgres_dsn", "")
	v.SetDefault("fetch_concurrency", 8)
	v.SetDefault("metrics_listen", "")
}

// Descriptor assembles the chain descriptor from the configured fields.
func (c *Config) Descriptor() chain.Descriptor {
	return chain.Descriptor{
		ChainID: c.ChainID,
		Name:    c.ChainName,
		Currency: chain.Currency{
			Name:     c.CurrencyName,
			Symbol:   c.CurrencySymbol,
			Decimals: c.CurrencyDecimals,
		},
		RPCURLs:      []string{c.RPCURL},
		ExplorerURLs: []string{c.ExplorerURL},
	}
}
