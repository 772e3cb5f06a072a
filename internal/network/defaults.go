package network

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

func addr(s string) common.Address { return common.HexToAddress(s) }

func tokenMap(tokens ...TokenConfig) map[string]TokenConfig {
	m := make(map[string]TokenConfig, len(tokens))
	for _, t := range tokens {
		m[AddrKey(t.Address)] = t
	}
	return m
}

func bridgeMap(bridges ...BridgeConfig) map[string]BridgeConfig {
	m := make(map[string]BridgeConfig, len(bridges))
	for _, b := range bridges {
		m[AddrKey(b.Address)] = b
	}
	return m
}

func assistantMap(assistants ...AssistantConfig) map[string]AssistantConfig {
	m := make(map[string]AssistantConfig, len(assistants))
	for _, a := range assistants {
		m[AddrKey(a.Address)] = a
	}
	return m
}

// Defaults is the immutable network table the client ships with. User
// overrides are merged on top per network key by the settings package.
func Defaults() *Registry {
	ethereum := NetworkConfig{
		Key:     "Ethereum",
		Name:    "Ethereum",
		ChainID: 1,
		RPCURLs: []string{
			"https://eth.llamarpc.com",
			"https://rpc.ankr.com/eth",
		},
		NativeCurrency: TokenConfig{Symbol: "ETH", Name: "Ether", Decimals: 18, IsNative: true},
		AvgBlockTime:   12 * time.Second,
		Tokens: tokenMap(
			TokenConfig{Address: addr("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"), Symbol: "USDC", Name: "USD Coin", Decimals: 6},
			TokenConfig{Address: addr("0x6B175474E89094C44Da98b954EedeAC495271d0F"), Symbol: "DAI", Name: "Dai Stablecoin", Decimals: 18},
			TokenConfig{Address: addr("0x2b591e99afE9f32eAA6214f7B7629768c40Eeb39"), Symbol: "HEX", Name: "HEX", Decimals: 8},
		),
		Bridges: bridgeMap(
			BridgeConfig{
				Address:             addr("0x0aB991E04cCbE74Ca5d979Fe297ABaB6e9C70a8d"),
				Type:                BridgeExport,
				HomeNetwork:         "Ethereum",
				ForeignNetwork:      "Obyte",
				HomeTokenSymbol:     "ETH",
				StakeTokenSymbol:    "ETH",
				ForeignTokenSymbol:  "GBYTE-ETH",
				ForeignTokenAddress: common.Address{},
			},
		),
		Assistants: assistantMap(),
	}

	bsc := NetworkConfig{
		Key:     "BSC",
		Name:    "BNB Smart Chain",
		ChainID: 56,
		RPCURLs: []string{
			"https://bsc-dataseed.binance.org",
			"https://bsc-dataseed1.defibit.io",
		},
		NativeCurrency: TokenConfig{Symbol: "BNB", Name: "BNB", Decimals: 18, IsNative: true},
		AvgBlockTime:   3 * time.Second,
		Tokens: tokenMap(
			TokenConfig{Address: addr("0xe9e7CEA3DedcA5984780Bafc599bD69ADd087D56"), Symbol: "BUSD", Name: "BUSD Token", Decimals: 18},
			TokenConfig{Address: addr("0x8443f091997f06a61670B735ED92734F5628692F"), Symbol: "BEL", Name: "Bella Protocol", Decimals: 18},
		),
		Bridges:    bridgeMap(),
		Assistants: assistantMap(),
	}

	polygon := NetworkConfig{
		Key:     "Polygon",
		Name:    "Polygon",
		ChainID: 137,
		RPCURLs: []string{
			"https://polygon-rpc.com",
			"https://rpc.ankr.com/polygon",
		},
		NativeCurrency: TokenConfig{Symbol: "MATIC", Name: "MATIC", Decimals: 18, IsNative: true},
		AvgBlockTime:   2 * time.Second,
		Tokens: tokenMap(
			TokenConfig{Address: addr("0x2791Bca1f2de4661ED88A30C99A7a9449Aa84174"), Symbol: "USDC", Name: "USD Coin (PoS)", Decimals: 6},
		),
		Bridges:    bridgeMap(),
		Assistants: assistantMap(),
	}

	kava := NetworkConfig{
		Key:     "Kava",
		Name:    "Kava EVM",
		ChainID: 2222,
		RPCURLs: []string{
			"https://evm.kava.io",
			"https://evm2.kava.io",
		},
		NativeCurrency: TokenConfig{Symbol: "KAVA", Name: "Kava", Decimals: 18, IsNative: true},
		AvgBlockTime:   6 * time.Second,
		Tokens:         tokenMap(),
		Bridges:        bridgeMap(),
		Assistants:     assistantMap(),
	}

	threedpass := NetworkConfig{
		Key:     "3DPass",
		Name:    "3DPass",
		ChainID: 1333,
		RPCURLs: []string{
			"https://rpc-http.3dpass.org",
		},
		NativeCurrency: TokenConfig{
			Symbol:   "P3D",
			Name:     "3DPass",
			Decimals: 18,
			IsNative: true,
			// On-chain balances carry 12 decimals; the EVM facade reports 18.
			DecimalsDisplayMultiplier: 1_000_000,
		},
		AvgBlockTime: 60 * time.Second,
		Tokens: tokenMap(
			TokenConfig{
				Address:      addr("0xFBFBFBFA000000000000000000000000000000de"),
				Symbol:       "wUSDC",
				Name:         "Wrapped USDC",
				Decimals:     6,
				IsPrecompile: true,
			},
			TokenConfig{
				Address:      addr("0xFBFBFBFA0000000000000000000000000000006f"),
				Symbol:       "wUSDT",
				Name:         "Wrapped USDT",
				Decimals:     6,
				IsPrecompile: true,
			},
		),
		Bridges:    bridgeMap(),
		Assistants: assistantMap(),
	}

	return NewRegistry([]NetworkConfig{ethereum, bsc, polygon, kava, threedpass})
}
