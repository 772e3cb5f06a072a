// Package claims reconstructs counterstake claim and transfer state from
// chain event logs across the configured networks. Nothing here is stored;
// every view is recomputed from a fresh scan.
package claims

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/counterstake/bridge-client/internal/amount"
	"github.com/counterstake/bridge-client/internal/bridgeabi"
	"github.com/counterstake/bridge-client/internal/claimid"
	"github.com/counterstake/bridge-client/internal/network"
	"github.com/counterstake/bridge-client/internal/settings"
)

var ErrInvalidScannerConfig = errors.New("claims: invalid scanner config")

// Backend is the read-side RPC surface one network scan needs.
// rpcpool.Backend satisfies it with endpoint rotation behind each call.
type Backend interface {
	BlockNumber(ctx context.Context) (uint64, error)
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// BackendFactory opens a backend for one merged network config.
type BackendFactory func(ctx context.Context, cfg network.NetworkConfig) (Backend, error)

type Scanner struct {
	reg      *network.Registry
	backends BackendFactory
	log      *slog.Logger

	now func() time.Time
	gen atomic.Uint64
}

func NewScanner(reg *network.Registry, backends BackendFactory, log *slog.Logger) (*Scanner, error) {
	if reg == nil || backends == nil {
		return nil, ErrInvalidScannerConfig
	}
	if log == nil {
		log = slog.Default()
	}
	return &Scanner{reg: reg, backends: backends, log: log, now: time.Now}, nil
}

// Generation returns the current scan generation. A caller that kicks off a
// scan records NextGeneration's value and discards the result on arrival if
// Generation has moved on (cooperative staleness, no active abort).
func (s *Scanner) Generation() uint64 { return s.gen.Load() }

func (s *Scanner) NextGeneration() uint64 { return s.gen.Add(1) }

// ScanOptions bounds one scan. BlockCount wins over Window when both are
// set; Window converts to blocks via each network's average block time.
type ScanOptions struct {
	BlockCount uint64
	Window     time.Duration

	// BridgeFilter restricts the scan to one bridge contract.
	BridgeFilter *common.Address
}

func (o ScanOptions) fromBlock(cfg network.NetworkConfig, current uint64) uint64 {
	span := o.BlockCount
	if span == 0 {
		span = cfg.BlocksForWindow(o.Window)
	}
	if span == 0 || span >= current {
		return 0
	}
	return current - span
}

type networkResult[T any] struct {
	key   string
	items []T
	err   error
}

// FetchClaims reconstructs claims across the given networks. Failures are
// isolated per network and bridge: one endpoint's error never cancels the
// others' in-flight requests, and partial results are returned with the
// failure logged.
func (s *Scanner) FetchClaims(ctx context.Context, overlay settings.Overlay, networkKeys []string, opts ScanOptions) []Claim {
	results := fanOut(ctx, networkKeys, func(ctx context.Context, key string) ([]Claim, error) {
		return s.claimsForNetwork(ctx, overlay, key, opts)
	})

	var all []Claim
	for _, res := range results {
		if res.err != nil {
			s.log.Warn("claim scan failed", "network", res.key, "err", res.err)
			continue
		}
		all = append(all, res.items...)
	}
	sort.SliceStable(all, func(i, j int) bool {
		if all[i].NetworkKey != all[j].NetworkKey {
			return all[i].NetworkKey < all[j].NetworkKey
		}
		return all[i].BlockNumber < all[j].BlockNumber
	})
	for i := range all {
		all[i].DisplayNum = i + 1
	}
	return all
}

// FetchTransfers reconstructs expatriation/repatriation transfers, event
// selected per bridge type.
func (s *Scanner) FetchTransfers(ctx context.Context, overlay settings.Overlay, networkKeys []string, opts ScanOptions) []Transfer {
	results := fanOut(ctx, networkKeys, func(ctx context.Context, key string) ([]Transfer, error) {
		return s.transfersForNetwork(ctx, overlay, key, opts)
	})

	var all []Transfer
	for _, res := range results {
		if res.err != nil {
			s.log.Warn("transfer scan failed", "network", res.key, "err", res.err)
			continue
		}
		all = append(all, res.items...)
	}
	sort.SliceStable(all, func(i, j int) bool {
		if all[i].NetworkKey != all[j].NetworkKey {
			return all[i].NetworkKey < all[j].NetworkKey
		}
		return all[i].BlockNumber < all[j].BlockNumber
	})
	return all
}

func fanOut[T any](ctx context.Context, keys []string, fetch func(ctx context.Context, key string) ([]T, error)) []networkResult[T] {
	results := make([]networkResult[T], len(keys))
	var wg sync.WaitGroup
	for i, key := range keys {
		wg.Add(1)
		go func(i int, key string) {
			defer wg.Done()
			items, err := fetch(ctx, key)
			results[i] = networkResult[T]{key: key, items: items, err: err}
		}(i, key)
	}
	wg.Wait()
	return results
}

func (s *Scanner) resolveNetwork(overlay settings.Overlay, key string) (network.NetworkConfig, error) {
	cfg, ok := settings.NetworkWithSettings(s.reg, overlay, key)
	if !ok {
		return network.NetworkConfig{}, fmt.Errorf("claims: unknown network %q", key)
	}
	return cfg, nil
}

func (s *Scanner) claimsForNetwork(ctx context.Context, overlay settings.Overlay, key string, opts ScanOptions) ([]Claim, error) {
	cfg, err := s.resolveNetwork(overlay, key)
	if err != nil {
		return nil, err
	}
	backend, err := s.backends(ctx, cfg)
	if err != nil {
		return nil, err
	}
	current, err := backend.BlockNumber(ctx)
	if err != nil {
		return nil, err
	}
	from := opts.fromBlock(cfg, current)

	newClaimTopic, err := bridgeabi.EventTopic("NewClaim")
	if err != nil {
		return nil, err
	}
	newChallengeTopic, err := bridgeabi.EventTopic("NewChallenge")
	if err != nil {
		return nil, err
	}

	var out []Claim
	for _, bridge := range selectBridges(cfg, opts.BridgeFilter) {
		claims, err := s.claimsForBridge(ctx, backend, cfg, bridge, from, current, newClaimTopic, newChallengeTopic)
		if err != nil {
			// One bridge's RPC error must not abort the others.
			s.log.Warn("bridge scan failed", "network", key, "bridge", bridge.Address, "err", err)
			continue
		}
		out = append(out, claims...)
	}
	return out, nil
}

func (s *Scanner) claimsForBridge(ctx context.Context, backend Backend, cfg network.NetworkConfig, bridge network.BridgeConfig, from, to uint64, claimTopic, challengeTopic common.Hash) ([]Claim, error) {
	logs, err := backend.FilterLogs(ctx, ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(from),
		ToBlock:   new(big.Int).SetUint64(to),
		Addresses: []common.Address{bridge.Address},
		Topics:    [][]common.Hash{{claimTopic, challengeTopic}},
	})
	if err != nil {
		return nil, err
	}

	tokenAddr, tokenSymbol := s.resolveStakeToken(ctx, backend, cfg, bridge)
	nowTs := uint32(s.now().Unix())

	byNum := make(map[string]*Claim)
	var order []string
	for _, lg := range logs {
		if len(lg.Topics) == 0 {
			continue
		}
		switch lg.Topics[0] {
		case claimTopic:
			ev, err := bridgeabi.ParseNewClaim(lg)
			if err != nil {
				s.log.Warn("bad NewClaim log", "network", cfg.Key, "tx", lg.TxHash, "err", err)
				continue
			}
			c, err := buildClaim(cfg.Key, bridge, ev, lg, tokenAddr, tokenSymbol)
			if err != nil {
				s.log.Warn("unusable NewClaim log", "network", cfg.Key, "tx", lg.TxHash, "err", err)
				continue
			}
			if _, seen := byNum[c.ClaimNum]; !seen {
				order = append(order, c.ClaimNum)
			}
			byNum[c.ClaimNum] = &c
		case challengeTopic:
			ev, err := bridgeabi.ParseNewChallenge(lg)
			if err != nil {
				s.log.Warn("bad NewChallenge log", "network", cfg.Key, "tx", lg.TxHash, "err", err)
				continue
			}
			num, err := amount.Normalize(ev.ClaimNum)
			if err != nil {
				continue
			}
			c, ok := byNum[num]
			if !ok {
				// Claim opened before the scan window; challenges alone
				// cannot reconstruct it.
				continue
			}
			applyChallenge(c, ev)
		}
	}

	out := make([]Claim, 0, len(order))
	for _, num := range order {
		c := byNum[num]
		c.Finished = c.ExpiryTs > 0 && c.ExpiryTs <= nowTs
		out = append(out, *c)
	}
	return out, nil
}

// resolveStakeToken asks the bridge's settings() view for the stake token and
// falls back to static bridge configuration. A metadata lookup failure never
// drops a claim.
func (s *Scanner) resolveStakeToken(ctx context.Context, backend Backend, cfg network.NetworkConfig, bridge network.BridgeConfig) (common.Address, string) {
	fallbackSymbol := bridge.StakeTokenSymbol
	if fallbackSymbol == "" {
		fallbackSymbol = cfg.NativeCurrency.Symbol
	}

	calldata, err := bridgeabi.PackSettingsCall()
	if err != nil {
		return bridge.StakeTokenAddress, fallbackSymbol
	}
	to := bridge.Address
	ret, err := backend.CallContract(ctx, ethereum.CallMsg{To: &to, Data: calldata}, nil)
	if err != nil {
		s.log.Debug("settings() lookup failed, using static config", "network", cfg.Key, "bridge", bridge.Address, "err", err)
		return bridge.StakeTokenAddress, fallbackSymbol
	}
	st, err := bridgeabi.UnpackSettings(ret)
	if err != nil {
		return bridge.StakeTokenAddress, fallbackSymbol
	}
	tok, err := cfg.Token(st.TokenAddress)
	if err != nil {
		return st.TokenAddress, fallbackSymbol
	}
	return st.TokenAddress, tok.Symbol
}

func buildClaim(networkKey string, bridge network.BridgeConfig, ev bridgeabi.NewClaimEvent, lg types.Log, tokenAddr common.Address, tokenSymbol string) (Claim, error) {
	claimNum, err := amount.Normalize(ev.ClaimNum)
	if err != nil {
		return Claim{}, fmt.Errorf("claim_num: %w", err)
	}
	amt, err := amount.Normalize(ev.Amount)
	if err != nil {
		return Claim{}, fmt.Errorf("amount: %w", err)
	}
	stake, err := amount.Normalize(ev.Stake)
	if err != nil {
		return Claim{}, fmt.Errorf("stake: %w", err)
	}
	reward := "0"
	if ev.Reward != nil && ev.Reward.Sign() >= 0 {
		if reward, err = amount.Normalize(ev.Reward); err != nil {
			return Claim{}, fmt.Errorf("reward: %w", err)
		}
	} else if ev.Reward != nil {
		// Negative rewards (sender pays extra) are carried as-is.
		reward = ev.Reward.String()
	}

	if !ev.ClaimNum.IsUint64() {
		return Claim{}, fmt.Errorf("claim_num %s exceeds uint64", claimNum)
	}

	return Claim{
		ID:               claimid.ClaimIDV1(networkKey, bridge.Address, ev.ClaimNum.Uint64()),
		ClaimNum:         claimNum,
		NetworkKey:       networkKey,
		BridgeAddress:    bridge.Address,
		BridgeType:       bridge.Type,
		TokenSymbol:      tokenSymbol,
		TokenAddress:     tokenAddr,
		SenderAddress:    ev.SenderAddress,
		RecipientAddress: ev.RecipientAddress,
		AuthorAddress:    ev.AuthorAddress,
		Txid:             ev.Txid,
		Txts:             ev.Txts,
		Amount:           amt,
		Reward:           reward,
		// A fresh claim starts staked entirely on YES by its author.
		CurrentOutcome: OutcomeYes,
		YesStake:       stake,
		NoStake:        "0",
		ExpiryTs:       ev.ExpiryTs,
		Data:           ev.Data,
		BlockNumber:    lg.BlockNumber,
		TxHash:         lg.TxHash,
	}, nil
}

func applyChallenge(c *Claim, ev bridgeabi.NewChallengeEvent) {
	if yes, err := amount.Normalize(ev.YesStake); err == nil {
		c.YesStake = yes
	}
	if no, err := amount.Normalize(ev.NoStake); err == nil {
		c.NoStake = no
	}
	if ev.CurrentOutcome <= 1 {
		c.CurrentOutcome = Outcome(ev.CurrentOutcome)
	}
	if ev.ExpiryTs > 0 {
		c.ExpiryTs = ev.ExpiryTs
	}
}

func selectBridges(cfg network.NetworkConfig, filter *common.Address) []network.BridgeConfig {
	// The map is keyed by lowercased address, so defaults and overlay
	// entries already deduplicate last-write-wins.
	keys := make([]string, 0, len(cfg.Bridges))
	for k := range cfg.Bridges {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]network.BridgeConfig, 0, len(keys))
	for _, k := range keys {
		b := cfg.Bridges[k]
		if filter != nil && b.Address != *filter {
			continue
		}
		out = append(out, b)
	}
	return out
}

func (s *Scanner) transfersForNetwork(ctx context.Context, overlay settings.Overlay, key string, opts ScanOptions) ([]Transfer, error) {
	cfg, err := s.resolveNetwork(overlay, key)
	if err != nil {
		return nil, err
	}
	backend, err := s.backends(ctx, cfg)
	if err != nil {
		return nil, err
	}
	current, err := backend.BlockNumber(ctx)
	if err != nil {
		return nil, err
	}
	from := opts.fromBlock(cfg, current)

	var out []Transfer
	for _, bridge := range selectBridges(cfg, opts.BridgeFilter) {
		transfers, err := s.transfersForBridge(ctx, backend, cfg, bridge, from, current)
		if err != nil {
			s.log.Warn("bridge transfer scan failed", "network", key, "bridge", bridge.Address, "err", err)
			continue
		}
		out = append(out, transfers...)
	}
	return out, nil
}

func (s *Scanner) transfersForBridge(ctx context.Context, backend Backend, cfg network.NetworkConfig, bridge network.BridgeConfig, from, to uint64) ([]Transfer, error) {
	// Export-side bridges emit NewExpatriation; import-side bridges emit
	// NewRepatriation.
	eventName := "NewExpatriation"
	if bridge.Type.IsImport() {
		eventName = "NewRepatriation"
	}
	topic, err := bridgeabi.EventTopic(eventName)
	if err != nil {
		return nil, err
	}

	logs, err := backend.FilterLogs(ctx, ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(from),
		ToBlock:   new(big.Int).SetUint64(to),
		Addresses: []common.Address{bridge.Address},
		Topics:    [][]common.Hash{{topic}},
	})
	if err != nil {
		return nil, err
	}

	out := make([]Transfer, 0, len(logs))
	for _, lg := range logs {
		t := Transfer{
			ID:            claimid.TransferIDV1(cfg.Key, bridge.Address, lg.TxHash, lg.Index),
			NetworkKey:    cfg.Key,
			BridgeAddress: bridge.Address,
			BridgeType:    bridge.Type,
			BlockNumber:   lg.BlockNumber,
			TxHash:        lg.TxHash,
			LogIndex:      lg.Index,
		}
		if bridge.Type.IsImport() {
			ev, err := bridgeabi.ParseNewRepatriation(lg)
			if err != nil {
				s.log.Warn("bad NewRepatriation log", "network", cfg.Key, "tx", lg.TxHash, "err", err)
				continue
			}
			t.EventType = EventRepatriation
			t.SenderAddress = ev.SenderAddress
			t.HomeAddress = ev.HomeAddress
			t.Data = ev.Data
			if t.Amount, err = amount.Normalize(ev.Amount); err != nil {
				continue
			}
			if t.Reward, err = amount.Normalize(ev.Reward); err != nil {
				t.Reward = "0"
			}
		} else {
			ev, err := bridgeabi.ParseNewExpatriation(lg)
			if err != nil {
				s.log.Warn("bad NewExpatriation log", "network", cfg.Key, "tx", lg.TxHash, "err", err)
				continue
			}
			t.EventType = EventExpatriation
			t.SenderAddress = ev.SenderAddress
			t.ForeignAddress = ev.ForeignAddress
			t.Data = ev.Data
			if t.Amount, err = amount.Normalize(ev.Amount); err != nil {
				continue
			}
			if ev.Reward != nil && ev.Reward.Sign() < 0 {
				t.Reward = ev.Reward.String()
			} else if t.Reward, err = amount.Normalize(ev.Reward); err != nil {
				t.Reward = "0"
			}
		}
		out = append(out, t)
	}
	return out, nil
}
