package network

import (
	"github.com/ethereum/go-ethereum/common"
)

// Registry is the immutable default network table plus a precomputed
// chain-id index. Settings overlays are merged on top by the settings
// package; the registry itself never changes after construction.
type Registry struct {
	byKey     map[string]NetworkConfig
	byChainID map[uint64]string
	keys      []string
}

func NewRegistry(configs []NetworkConfig) *Registry {
	r := &Registry{
		byKey:     make(map[string]NetworkConfig, len(configs)),
		byChainID: make(map[uint64]string, len(configs)),
	}
	for _, c := range configs {
		if _, ok := r.byKey[c.Key]; ok {
			continue
		}
		r.byKey[c.Key] = c
		r.byChainID[c.ChainID] = c.Key
		r.keys = append(r.keys, c.Key)
	}
	return r
}

// Keys returns network keys in declaration order.
func (r *Registry) Keys() []string {
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

// ByKey returns the default config for key. ok is false for unknown keys;
// lookups never panic.
func (r *Registry) ByKey(key string) (NetworkConfig, bool) {
	c, ok := r.byKey[key]
	return c, ok
}

// ByChainID is an O(1) lookup via the precomputed index.
func (r *Registry) ByChainID(chainID uint64) (NetworkConfig, bool) {
	key, ok := r.byChainID[chainID]
	if !ok {
		return NetworkConfig{}, false
	}
	return r.byKey[key], true
}

// FindBridge locates a bridge by contract address across all networks.
// A miss returns ok=false; it never guesses.
func (r *Registry) FindBridge(addr common.Address) (NetworkConfig, BridgeConfig, bool) {
	want := AddrKey(addr)
	for _, key := range r.keys {
		n := r.byKey[key]
		if b, ok := n.Bridges[want]; ok {
			return n, b, true
		}
	}
	return NetworkConfig{}, BridgeConfig{}, false
}

// StakeTokenFor resolves the stake token for a bridge address. Unknown
// bridges resolve to nil rather than a wrong token.
func (r *Registry) StakeTokenFor(addr common.Address) (*TokenConfig, bool) {
	n, b, ok := r.FindBridge(addr)
	if !ok {
		return nil, false
	}
	tok, err := n.Token(b.StakeTokenAddress)
	if err != nil {
		// Stake token address not in the token table; synthesize from the
		// bridge entry so callers still get the right address and symbol.
		tok = TokenConfig{Address: b.StakeTokenAddress, Symbol: b.StakeTokenSymbol, Decimals: 18}
	}
	return &tok, true
}
