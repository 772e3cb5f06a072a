package wallet

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/counterstake/bridge-client/internal/rpcpool"
)

func testSigner(t *testing.T) *LocalSigner {
	t.Helper()
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return NewLocalSigner(key)
}

func testPool(t *testing.T) *rpcpool.Pool {
	t.Helper()
	p, err := rpcpool.New([]string{"https://rpc.example.org"})
	if err != nil {
		t.Fatalf("rpcpool.New: %v", err)
	}
	return p
}

func TestNewLocalWalletValidation(t *testing.T) {
	t.Parallel()

	signer := testSigner(t)
	pool := testPool(t)

	cases := []struct {
		name    string
		signer  Signer
		pools   map[uint64]*rpcpool.Pool
		initial uint64
	}{
		{name: "nil signer", pools: map[uint64]*rpcpool.Pool{1: pool}, initial: 1},
		{name: "zero address signer", signer: NewLocalSigner(nil), pools: map[uint64]*rpcpool.Pool{1: pool}, initial: 1},
		{name: "no pools", signer: signer, initial: 1},
		{name: "initial chain unconfigured", signer: signer, pools: map[uint64]*rpcpool.Pool{1: pool}, initial: 56},
		{name: "nil pool entry", signer: signer, pools: map[uint64]*rpcpool.Pool{1: nil}, initial: 1},
	}
	for _, tc := range cases {
		if _, err := NewLocalWallet(tc.signer, tc.pools, tc.initial); !errors.Is(err, ErrInvalidWalletConfig) {
			t.Fatalf("%s: expected ErrInvalidWalletConfig, got %v", tc.name, err)
		}
	}
}

func TestSwitchChain(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	w, err := NewLocalWallet(testSigner(t), map[uint64]*rpcpool.Pool{
		1:  testPool(t),
		56: testPool(t),
	}, 1)
	if err != nil {
		t.Fatalf("NewLocalWallet: %v", err)
	}

	if got, _ := w.ChainID(ctx); got != 1 {
		t.Fatalf("initial chain = %d", got)
	}

	if err := w.SwitchChain(ctx, 56); err != nil {
		t.Fatalf("SwitchChain: %v", err)
	}
	if got, _ := w.ChainID(ctx); got != 56 {
		t.Fatalf("chain after switch = %d", got)
	}

	select {
	case got := <-w.ChainChanged():
		if got != 56 {
			t.Fatalf("chain change event = %d, want 56", got)
		}
	default:
		t.Fatalf("no chain change event emitted")
	}
}

func TestSwitchChainUnknown(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	w, err := NewLocalWallet(testSigner(t), map[uint64]*rpcpool.Pool{1: testPool(t)}, 1)
	if err != nil {
		t.Fatalf("NewLocalWallet: %v", err)
	}

	if err := w.SwitchChain(ctx, 424242); !errors.Is(err, ErrUnknownChain) {
		t.Fatalf("expected ErrUnknownChain, got %v", err)
	}
	if got, _ := w.ChainID(ctx); got != 1 {
		t.Fatalf("failed switch must not move the active chain, got %d", got)
	}
}

func TestAddChainThenSwitch(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	w, err := NewLocalWallet(testSigner(t), map[uint64]*rpcpool.Pool{1: testPool(t)}, 1)
	if err != nil {
		t.Fatalf("NewLocalWallet: %v", err)
	}

	if err := w.AddChain(137, nil); !errors.Is(err, ErrInvalidWalletConfig) {
		t.Fatalf("nil pool: expected ErrInvalidWalletConfig, got %v", err)
	}
	if err := w.AddChain(137, testPool(t)); err != nil {
		t.Fatalf("AddChain: %v", err)
	}
	if err := w.SwitchChain(ctx, 137); err != nil {
		t.Fatalf("SwitchChain after AddChain: %v", err)
	}
}

func TestLocalSignerSignTx(t *testing.T) {
	t.Parallel()

	signer := testSigner(t)
	chainID := big.NewInt(56)
	to := signer.Address()

	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   chainID,
		Nonce:     7,
		GasTipCap: big.NewInt(1),
		GasFeeCap: big.NewInt(100),
		Gas:       21000,
		To:        &to,
		Value:     big.NewInt(1),
	})

	signed, err := signer.SignTx(tx, chainID)
	if err != nil {
		t.Fatalf("SignTx: %v", err)
	}
	from, err := types.Sender(types.LatestSignerForChainID(chainID), signed)
	if err != nil {
		t.Fatalf("recover sender: %v", err)
	}
	if from != signer.Address() {
		t.Fatalf("recovered %s, want %s", from, signer.Address())
	}

	if _, err := signer.SignTx(tx, nil); !errors.Is(err, ErrInvalidSigner) {
		t.Fatalf("nil chain id: expected ErrInvalidSigner, got %v", err)
	}
	if _, err := NewLocalSigner(nil).SignTx(tx, chainID); !errors.Is(err, ErrInvalidSigner) {
		t.Fatalf("nil key: expected ErrInvalidSigner, got %v", err)
	}
}

func TestParsePrivateKey(t *testing.T) {
	t.Parallel()

	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	hexKey := hexutil.Encode(crypto.FromECDSA(key))

	parsed, err := ParsePrivateKey(hexKey)
	if err != nil {
		t.Fatalf("ParsePrivateKey: %v", err)
	}
	if crypto.PubkeyToAddress(parsed.PublicKey) != crypto.PubkeyToAddress(key.PublicKey) {
		t.Fatalf("parsed key does not match")
	}

	// Without the 0x prefix too.
	if _, err := ParsePrivateKey(hexKey[2:]); err != nil {
		t.Fatalf("ParsePrivateKey without prefix: %v", err)
	}

	if _, err := ParsePrivateKey("not-a-key"); !errors.Is(err, ErrInvalidSigner) {
		t.Fatalf("expected ErrInvalidSigner, got %v", err)
	}
}
