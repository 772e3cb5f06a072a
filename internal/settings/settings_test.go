package settings

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/counterstake/bridge-client/internal/network"
)

func TestMergedFlagGatesOverride(t *testing.T) {
	t.Parallel()

	base, ok := network.Defaults().ByKey("Ethereum")
	if !ok {
		t.Fatalf("missing Ethereum defaults")
	}
	baseTokens := len(base.Tokens)

	custom := network.TokenConfig{
		Address:  common.HexToAddress("0x00000000000000000000000000000000000000cc"),
		Symbol:   "TST",
		Decimals: 18,
	}

	// Flag off: the populated Tokens map must be ignored entirely.
	got := Merged(base, NetworkOverlay{
		Tokens: map[string]network.TokenConfig{network.AddrKey(custom.Address): custom},
	})
	if len(got.Tokens) != baseTokens {
		t.Fatalf("customTokens=false must not alter tokens: %d != %d", len(got.Tokens), baseTokens)
	}

	// Flag on: the entry merges in without dropping defaults.
	got = Merged(base, NetworkOverlay{
		CustomTokens: true,
		Tokens:       map[string]network.TokenConfig{network.AddrKey(custom.Address): custom},
	})
	if len(got.Tokens) != baseTokens+1 {
		t.Fatalf("expected %d tokens, got %d", baseTokens+1, len(got.Tokens))
	}
	if _, err := got.Token(custom.Address); err != nil {
		t.Fatalf("merged token not resolvable: %v", err)
	}
}

func TestMergedRPCReplacement(t *testing.T) {
	t.Parallel()

	base, _ := network.Defaults().ByKey("BSC")

	got := Merged(base, NetworkOverlay{CustomRPC: true, RPCURLs: []string{"https://bsc.example.org"}})
	if len(got.RPCURLs) != 1 || got.RPCURLs[0] != "https://bsc.example.org" {
		t.Fatalf("customRpc must replace the endpoint list, got %v", got.RPCURLs)
	}

	// An enabled flag with an empty list keeps the defaults reachable.
	got = Merged(base, NetworkOverlay{CustomRPC: true})
	if len(got.RPCURLs) != len(base.RPCURLs) {
		t.Fatalf("empty custom list must fall back to defaults")
	}
}

func TestMergedReturnsDetachedSnapshot(t *testing.T) {
	t.Parallel()

	base, _ := network.Defaults().ByKey("Polygon")
	got := Merged(base, NetworkOverlay{})

	got.Tokens["0x00000000000000000000000000000000000000dd"] = network.TokenConfig{Symbol: "X"}
	fresh, _ := network.Defaults().ByKey("Polygon")
	if _, ok := fresh.Tokens["0x00000000000000000000000000000000000000dd"]; ok {
		t.Fatalf("merged snapshot leaked into shared defaults")
	}
}

func TestNetworkWithSettingsUnknownKey(t *testing.T) {
	t.Parallel()

	if _, ok := NetworkWithSettings(network.Defaults(), NewOverlay(), "Atlantis"); ok {
		t.Fatalf("unknown network key must miss")
	}
}

func TestOverlayValidateRejectsNewerSchema(t *testing.T) {
	t.Parallel()

	if err := (Overlay{Version: SchemaVersion + 1}).Validate(); !errors.Is(err, ErrSchemaVersion) {
		t.Fatalf("expected ErrSchemaVersion, got %v", err)
	}
	if err := NewOverlay().Validate(); err != nil {
		t.Fatalf("current schema must validate: %v", err)
	}
	// Older documents load fine; version is bumped on the next save.
	if err := (Overlay{Version: 0}).Validate(); err != nil {
		t.Fatalf("older schema must validate: %v", err)
	}
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	s := NewMemoryStore()
	if _, err := s.Load(ctx); !errors.Is(err, ErrNotFound) {
		t.Fatalf("empty store must report ErrNotFound, got %v", err)
	}

	doc := NewOverlay()
	doc.SetNetwork("Ethereum", NetworkOverlay{CustomRPC: true, RPCURLs: []string{"https://eth.example.org"}})
	if err := s.Save(ctx, doc); err != nil {
		t.Fatalf("save: %v", err)
	}

	// Mutating the saved document must not reach the store.
	doc.SetNetwork("Ethereum", NetworkOverlay{})

	got, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !got.Network("Ethereum").CustomRPC {
		t.Fatalf("store did not isolate the saved document")
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "nested", "settings.json")
	s, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}

	if _, err := s.Load(ctx); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing file must report ErrNotFound, got %v", err)
	}

	doc := NewOverlay()
	doc.SetNetwork("3DPass", NetworkOverlay{CustomOracles: true, Oracles: map[string]string{"main": "0x00000000000000000000000000000000000000ee"}})
	if err := s.Save(ctx, doc); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Network("3DPass").Oracles["main"] != "0x00000000000000000000000000000000000000ee" {
		t.Fatalf("round trip lost the oracle entry: %+v", got)
	}

	// Stray temp files from the atomic write would indicate a leak.
	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected only the settings file, found %d entries", len(entries))
	}
}

func TestFileStoreRejectsNewerSchema(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "settings.json")
	if err := os.WriteFile(path, []byte(`{"version": 99}`), 0o600); err != nil {
		t.Fatalf("seed: %v", err)
	}
	s, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	if _, err := s.Load(ctx); !errors.Is(err, ErrSchemaVersion) {
		t.Fatalf("expected ErrSchemaVersion, got %v", err)
	}
}

func TestNormalizeDriver(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want string
	}{
		{in: "", want: DriverFile},
		{in: "  Postgres ", want: DriverPostgres},
		{in: "MEMORY", want: DriverMemory},
	}
	for _, tc := range cases {
		if got := NormalizeDriver(tc.in); got != tc.want {
			t.Fatalf("NormalizeDriver(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

type failingStore struct{ Store }

func (failingStore) Save(context.Context, Overlay) error {
	return errors.New("disk full")
}

func TestManagerUpdateKeepsStateOnSaveFailure(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	mgr, err := NewManager(ctx, failingStore{NewMemoryStore()})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	err = mgr.Update(ctx, func(o *Overlay) {
		o.SetNetwork("Kava", NetworkOverlay{CustomRPC: true})
	})
	if err == nil {
		t.Fatalf("expected save failure to propagate")
	}
	if mgr.Snapshot().Network("Kava").CustomRPC {
		t.Fatalf("failed update must not change the in-memory overlay")
	}
}

func TestManagerUpdatePersistsAndSnapshots(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store := NewMemoryStore()
	mgr, err := NewManager(ctx, store)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	err = mgr.Update(ctx, func(o *Overlay) {
		o.SetNetwork("Ethereum", NetworkOverlay{CustomRPC: true, RPCURLs: []string{"https://eth.example.org"}})
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	persisted, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !persisted.Network("Ethereum").CustomRPC {
		t.Fatalf("update did not persist")
	}

	snap := mgr.Snapshot()
	snap.SetNetwork("Ethereum", NetworkOverlay{})
	if !mgr.Snapshot().Network("Ethereum").CustomRPC {
		t.Fatalf("snapshot must be detached from manager state")
	}
}
