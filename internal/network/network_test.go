package network

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

func TestParseBridgeType(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want BridgeType
	}{
		{in: "export", want: BridgeExport},
		{in: "export_wrapper", want: BridgeExportWrapper},
		{in: "import", want: BridgeImport},
		{in: "import_wrapper", want: BridgeImportWrapper},
		{in: " Import ", want: BridgeImport},
	}
	for _, tc := range cases {
		got, err := ParseBridgeType(tc.in)
		if err != nil {
			t.Fatalf("ParseBridgeType(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("ParseBridgeType(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}

	for _, bad := range []string{"", "exprot", "import-wrapper", "EXPORTS"} {
		if _, err := ParseBridgeType(bad); !errors.Is(err, ErrUnknownBridgeType) {
			t.Fatalf("ParseBridgeType(%q): expected ErrUnknownBridgeType, got %v", bad, err)
		}
	}
}

func TestBridgeTypeTextRoundTrip(t *testing.T) {
	t.Parallel()

	for _, bt := range []BridgeType{BridgeExport, BridgeExportWrapper, BridgeImport, BridgeImportWrapper} {
		encoded, err := json.Marshal(bt)
		if err != nil {
			t.Fatalf("marshal %v: %v", bt, err)
		}
		var decoded BridgeType
		if err := json.Unmarshal(encoded, &decoded); err != nil {
			t.Fatalf("unmarshal %s: %v", encoded, err)
		}
		if decoded != bt {
			t.Fatalf("round trip %v -> %v", bt, decoded)
		}
	}

	var decoded BridgeType
	if err := json.Unmarshal([]byte(`"franchise"`), &decoded); err == nil {
		t.Fatalf("expected error for unknown type string")
	}
}

func TestBridgeTypeIsImport(t *testing.T) {
	t.Parallel()

	if BridgeExport.IsImport() || BridgeExportWrapper.IsImport() {
		t.Fatalf("export types must not report import")
	}
	if !BridgeImport.IsImport() || !BridgeImportWrapper.IsImport() {
		t.Fatalf("import types must report import")
	}
}

func TestAddrKey(t *testing.T) {
	t.Parallel()

	a := common.HexToAddress("0x0aB991E04cCbE74Ca5d979Fe297ABaB6e9C70a8d")
	if got, want := AddrKey(a), "0x0ab991e04ccbe74ca5d979fe297abab6e9c70a8d"; got != want {
		t.Fatalf("AddrKey = %q, want %q", got, want)
	}
}

func TestTokenNativeFallback(t *testing.T) {
	t.Parallel()

	cfg, ok := Defaults().ByKey("Ethereum")
	if !ok {
		t.Fatalf("missing Ethereum defaults")
	}

	tok, err := cfg.Token(common.Address{})
	if err != nil {
		t.Fatalf("Token(zero): %v", err)
	}
	if tok.Symbol != "ETH" || !tok.IsNative {
		t.Fatalf("zero address must resolve to the native currency, got %+v", tok)
	}

	usdc, err := cfg.Token(common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"))
	if err != nil {
		t.Fatalf("Token(USDC): %v", err)
	}
	if usdc.Symbol != "USDC" || usdc.Decimals != 6 {
		t.Fatalf("unexpected USDC config: %+v", usdc)
	}

	if _, err := cfg.Token(common.HexToAddress("0x00000000000000000000000000000000000000AA")); !errors.Is(err, ErrUnknownToken) {
		t.Fatalf("expected ErrUnknownToken, got %v", err)
	}
}

func TestBlocksForWindow(t *testing.T) {
	t.Parallel()

	cfg := NetworkConfig{AvgBlockTime: 12 * time.Second}
	if got := cfg.BlocksForWindow(time.Hour); got != 300 {
		t.Fatalf("BlocksForWindow(1h) = %d, want 300", got)
	}
	if got := cfg.BlocksForWindow(0); got != 0 {
		t.Fatalf("BlocksForWindow(0) = %d, want 0", got)
	}
	if got := (NetworkConfig{}).BlocksForWindow(time.Hour); got != 0 {
		t.Fatalf("zero block time must yield 0, got %d", got)
	}
}

func TestRegistryLookups(t *testing.T) {
	t.Parallel()

	reg := Defaults()

	keys := reg.Keys()
	if len(keys) != 5 || keys[0] != "Ethereum" || keys[4] != "3DPass" {
		t.Fatalf("unexpected key order: %v", keys)
	}

	if _, ok := reg.ByKey("Atlantis"); ok {
		t.Fatalf("unknown key must miss")
	}

	cfg, ok := reg.ByChainID(56)
	if !ok || cfg.Key != "BSC" {
		t.Fatalf("ByChainID(56) = %+v, %t", cfg, ok)
	}
	if _, ok := reg.ByChainID(424242); ok {
		t.Fatalf("unknown chain id must miss")
	}
}

func TestFindBridgeUnknownAddressResolvesToNothing(t *testing.T) {
	t.Parallel()

	reg := Defaults()

	netCfg, bridge, ok := reg.FindBridge(common.HexToAddress("0x0aB991E04cCbE74Ca5d979Fe297ABaB6e9C70a8d"))
	if !ok {
		t.Fatalf("known bridge must resolve")
	}
	if netCfg.Key != "Ethereum" || bridge.Type != BridgeExport {
		t.Fatalf("unexpected resolution: %s %v", netCfg.Key, bridge.Type)
	}

	if _, _, ok := reg.FindBridge(common.HexToAddress("0x00000000000000000000000000000000000000bb")); ok {
		t.Fatalf("unknown bridge address must resolve to nothing")
	}

	tok, ok := reg.StakeTokenFor(common.HexToAddress("0x00000000000000000000000000000000000000bb"))
	if ok || tok != nil {
		t.Fatalf("unknown bridge must yield a nil stake token")
	}
}

func TestStakeTokenForSynthesizesMissingEntry(t *testing.T) {
	t.Parallel()

	reg := Defaults()

	// The Ethereum export bridge stakes the native coin (zero stake token
	// address), which resolves through the native fallback.
	tok, ok := reg.StakeTokenFor(common.HexToAddress("0x0aB991E04cCbE74Ca5d979Fe297ABaB6e9C70a8d"))
	if !ok || tok == nil {
		t.Fatalf("expected stake token for known bridge")
	}
	if tok.Symbol != "ETH" {
		t.Fatalf("stake token = %+v, want native ETH", tok)
	}
}

func TestThreeDPassDisplayMultiplierIsDisplayOnly(t *testing.T) {
	t.Parallel()

	cfg, ok := Defaults().ByKey("3DPass")
	if !ok {
		t.Fatalf("missing 3DPass defaults")
	}
	if cfg.NativeCurrency.Decimals != 18 {
		t.Fatalf("wire decimals must stay 18, got %d", cfg.NativeCurrency.Decimals)
	}
	if cfg.NativeCurrency.DecimalsDisplayMultiplier != 1_000_000 {
		t.Fatalf("unexpected display multiplier %d", cfg.NativeCurrency.DecimalsDisplayMultiplier)
	}

	wusdc, err := cfg.Token(common.HexToAddress("0xFBFBFBFA000000000000000000000000000000de"))
	if err != nil {
		t.Fatalf("Token(wUSDC): %v", err)
	}
	if !wusdc.IsPrecompile {
		t.Fatalf("3DPass tokens are precompiles")
	}
}
