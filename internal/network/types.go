package network

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

var (
	ErrUnknownBridgeType = errors.New("network: unknown bridge type")
	ErrUnknownToken      = errors.New("network: unknown token")
)

// BridgeType is the closed set of counterstake bridge flavors. The type fixes
// both the transferred token and the stake token; an unrecognized string is a
// configuration error, never a silent default.
type BridgeType int

const (
	BridgeExport BridgeType = iota
	BridgeExportWrapper
	BridgeImport
	BridgeImportWrapper
)

func ParseBridgeType(s string) (BridgeType, error) {
	switch strings.TrimSpace(strings.ToLower(s)) {
	case "export":
		return BridgeExport, nil
	case "export_wrapper":
		return BridgeExportWrapper, nil
	case "import":
		return BridgeImport, nil
	case "import_wrapper":
		return BridgeImportWrapper, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownBridgeType, s)
	}
}

func (t BridgeType) String() string {
	switch t {
	case BridgeExport:
		return "export"
	case BridgeExportWrapper:
		return "export_wrapper"
	case BridgeImport:
		return "import"
	case BridgeImportWrapper:
		return "import_wrapper"
	default:
		return fmt.Sprintf("BridgeType(%d)", int(t))
	}
}

// MarshalText encodes the type as its config string so persisted overlays
// stay readable.
func (t BridgeType) MarshalText() ([]byte, error) {
	switch t {
	case BridgeExport, BridgeExportWrapper, BridgeImport, BridgeImportWrapper:
		return []byte(t.String()), nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownBridgeType, int(t))
	}
}

func (t *BridgeType) UnmarshalText(b []byte) error {
	v, err := ParseBridgeType(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// IsImport reports whether claims on this bridge travel foreign→home.
func (t BridgeType) IsImport() bool {
	return t == BridgeImport || t == BridgeImportWrapper
}

type TokenConfig struct {
	Address common.Address
	Symbol  string
	Name    string
	// Decimals is the authoritative unit for wire-level amounts.
	Decimals uint8
	IsNative bool
	// IsPrecompile marks tokens exposed through a fixed system address
	// (3DPass) rather than a deployed ERC20 contract.
	IsPrecompile bool
	// DecimalsDisplayMultiplier is a pure display-layer transform and must
	// never be applied to amounts sent to a contract call.
	DecimalsDisplayMultiplier int64
}

type BridgeConfig struct {
	Address        common.Address
	Type           BridgeType
	HomeNetwork    string
	ForeignNetwork string

	HomeTokenAddress    common.Address
	HomeTokenSymbol     string
	ForeignTokenAddress common.Address
	ForeignTokenSymbol  string
	StakeTokenAddress   common.Address
	StakeTokenSymbol    string
}

// TransferTokenAddress resolves which token the user transfers, per bridge type.
func (b BridgeConfig) TransferTokenAddress() common.Address {
	if b.Type.IsImport() {
		return b.ForeignTokenAddress
	}
	return b.HomeTokenAddress
}

func (b BridgeConfig) TransferTokenSymbol() string {
	if b.Type.IsImport() {
		return b.ForeignTokenSymbol
	}
	return b.HomeTokenSymbol
}

type AssistantConfig struct {
	Address common.Address
	// BridgeAddress ties the assistant to exactly one bridge.
	BridgeAddress  common.Address
	Type           BridgeType
	ManagerAddress common.Address
	ShareSymbol    string
}

type NetworkConfig struct {
	Key     string
	Name    string
	ChainID uint64

	// RPCURLs is an ordered endpoint list; reads rotate through it on failure.
	RPCURLs []string

	NativeCurrency TokenConfig

	// AvgBlockTime drives timeframe-to-block-range estimates for log scans.
	AvgBlockTime time.Duration

	// Tokens is keyed by lowercased hex address.
	Tokens map[string]TokenConfig
	// Bridges and Assistants are keyed by lowercased hex contract address.
	Bridges    map[string]BridgeConfig
	Assistants map[string]AssistantConfig
}

// AddrKey is the canonical map key for a contract address: lowercased hex
// with the 0x prefix.
func AddrKey(a common.Address) string {
	const hexDigits = "0123456789abcdef"
	buf := make([]byte, 2+2*len(a))
	buf[0], buf[1] = '0', 'x'
	for i, b := range a {
		buf[2+2*i] = hexDigits[b>>4]
		buf[2+2*i+1] = hexDigits[b&0x0f]
	}
	return string(buf)
}

// Token returns the token config for addr, falling back to the native
// currency for the zero address.
func (n NetworkConfig) Token(addr common.Address) (TokenConfig, error) {
	if addr == (common.Address{}) {
		return n.NativeCurrency, nil
	}
	if t, ok := n.Tokens[AddrKey(addr)]; ok {
		return t, nil
	}
	return TokenConfig{}, fmt.Errorf("%w: %s on %s", ErrUnknownToken, addr, n.Key)
}

// BlocksForWindow estimates how many blocks cover the trailing window.
func (n NetworkConfig) BlocksForWindow(window time.Duration) uint64 {
	if n.AvgBlockTime <= 0 || window <= 0 {
		return 0
	}
	return uint64(window / n.AvgBlockTime)
}
