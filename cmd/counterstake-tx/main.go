package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"math/big"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/counterstake/bridge-client/internal/amount"
	"github.com/counterstake/bridge-client/internal/claims"
	"github.com/counterstake/bridge-client/internal/network"
	"github.com/counterstake/bridge-client/internal/orchestrator"
	"github.com/counterstake/bridge-client/internal/rpcpool"
	"github.com/counterstake/bridge-client/internal/settings"
	"github.com/counterstake/bridge-client/internal/wallet"
)

func main() {
	var (
		op          = flag.String("op", "", "operation: claim|challenge|counterstake|withdraw (required)")
		networkKey  = flag.String("network", "", "network key the transaction lands on (required)")
		bridgeFlag  = flag.String("bridge-address", "", "bridge contract address (required)")
		keyEnv      = flag.String("private-key-env", "COUNTERSTAKE_PRIVATE_KEY", "env var holding the hex private key")
		settingsPth = flag.String("settings-path", defaultSettingsPath(), "settings overlay file path")

		// claim fields
		txid      = flag.String("txid", "", "origin-chain transfer txid (claim)")
		txts      = flag.Uint64("txts", 0, "origin-chain transfer timestamp (claim)")
		amountStr = flag.String("amount", "", "transfer amount in smallest units (claim)")
		rewardStr = flag.String("reward", "0", "assistant reward in smallest units (claim)")
		stakeStr  = flag.String("stake", "", "stake in smallest units (claim/challenge; empty computes the counterstake minimum)")
		sender    = flag.String("sender", "", "origin-chain sender address string (claim)")
		recipient = flag.String("recipient", "", "recipient address (claim)")
		dataStr   = flag.String("data", "", "optional claim data payload")

		// challenge / withdraw fields
		claimNum = flag.Uint64("claim-num", 0, "on-chain claim number; the enumeration index shown by scans is not accepted")
		outcome  = flag.String("outcome", "", "challenge outcome: yes|no (challenge)")

		scanBlocks       = flag.Uint64("scan-blocks", 0, "claim lookup: trailing block count (overrides --scan-window)")
		scanWindow       = flag.Duration("scan-window", 7*24*time.Hour, "claim lookup: trailing time window")
		maxSwitchWait    = flag.Duration("max-switch-wait", 90*time.Second, "bound on waiting for the wallet chain switch")
		postConfirmDelay = flag.Duration("post-confirm-delay", 5*time.Second, "delay after confirmation before returning")
		timeout          = flag.Duration("timeout", 10*time.Minute, "overall operation timeout")
	)
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if *op == "" || *networkKey == "" || *bridgeFlag == "" {
		fmt.Fprintln(os.Stderr, "error: --op, --network, and --bridge-address are required")
		os.Exit(2)
	}
	if !common.IsHexAddress(*bridgeFlag) {
		fmt.Fprintln(os.Stderr, "error: --bridge-address must be a valid hex address")
		os.Exit(2)
	}
	bridgeAddr := common.HexToAddress(*bridgeFlag)

	keyHex := os.Getenv(*keyEnv)
	if strings.TrimSpace(keyHex) == "" {
		fmt.Fprintf(os.Stderr, "error: missing private key in env %s\n", *keyEnv)
		os.Exit(2)
	}
	priv, err := wallet.ParsePrivateKey(keyHex)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: parse private key: %v\n", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	reg := network.Defaults()
	overlay := loadFileOverlay(ctx, *settingsPth, log)
	cfg, ok := settings.NetworkWithSettings(reg, overlay, *networkKey)
	if !ok {
		fmt.Fprintf(os.Stderr, "error: unknown network %q\n", *networkKey)
		os.Exit(2)
	}
	bridge, ok := cfg.Bridges[network.AddrKey(bridgeAddr)]
	if !ok {
		fmt.Fprintf(os.Stderr, "error: bridge %s not configured on %s\n", bridgeAddr, cfg.Key)
		os.Exit(2)
	}

	pool, err := rpcpool.New(cfg.RPCURLs)
	if err != nil {
		log.Error("init rpc pool", "err", err)
		os.Exit(2)
	}
	defer pool.Close()

	w, err := wallet.NewLocalWallet(wallet.NewLocalSigner(priv), map[uint64]*rpcpool.Pool{cfg.ChainID: pool}, cfg.ChainID)
	if err != nil {
		log.Error("init wallet", "err", err)
		os.Exit(2)
	}

	orch, err := orchestrator.New(orchestrator.Config{
		Provider:         w,
		MaxSwitchWait:    *maxSwitchWait,
		PostConfirmDelay: *postConfirmDelay,
		Logger:           log,
	})
	if err != nil {
		log.Error("init orchestrator", "err", err)
		os.Exit(2)
	}

	var plan orchestrator.Plan
	switch strings.ToLower(strings.TrimSpace(*op)) {
	case "claim":
		plan, err = buildClaimPlan(cfg, bridge, claimInput{
			txid:      *txid,
			txts:      *txts,
			amount:    *amountStr,
			reward:    *rewardStr,
			stake:     *stakeStr,
			sender:    *sender,
			recipient: *recipient,
			data:      *dataStr,
		})
	case "challenge":
		plan, err = buildChallengePlan(ctx, reg, overlay, cfg, bridgeAddr, *claimNum, *outcome, *stakeStr, *scanBlocks, *scanWindow, log)
	case "counterstake":
		plan, err = buildCounterStakePlan(ctx, reg, overlay, cfg, bridgeAddr, *claimNum, *scanBlocks, *scanWindow, log)
	case "withdraw":
		plan, err = buildWithdrawPlan(ctx, reg, overlay, cfg, bridgeAddr, *claimNum, *scanBlocks, *scanWindow, log)
	default:
		err = fmt.Errorf("unsupported --op %q", *op)
	}
	if err != nil {
		log.Error("build plan", "op", *op, "err", err)
		os.Exit(2)
	}

	receipt, err := orch.Execute(ctx, plan)
	if err != nil {
		log.Error("execute", "op", *op, "state", orch.State().String(), "kind", orchestrator.Classify(err).String(), "err", err)
		os.Exit(1)
	}

	out := map[string]any{
		"op":          *op,
		"network":     cfg.Key,
		"bridge":      bridgeAddr,
		"txHash":      receipt.TxHash,
		"blockNumber": receipt.BlockNumber,
		"gasUsed":     receipt.GasUsed,
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		log.Error("encode result", "err", err)
		os.Exit(1)
	}
}

type claimInput struct {
	txid      string
	txts      uint64
	amount    string
	reward    string
	stake     string
	sender    string
	recipient string
	data      string
}

func buildClaimPlan(cfg network.NetworkConfig, bridge network.BridgeConfig, in claimInput) (orchestrator.Plan, error) {
	if in.txid == "" || in.amount == "" || in.stake == "" || in.sender == "" || in.recipient == "" {
		return orchestrator.Plan{}, fmt.Errorf("claim requires --txid, --amount, --stake, --sender, and --recipient")
	}
	if in.txts > uint64(^uint32(0)) {
		return orchestrator.Plan{}, fmt.Errorf("--txts must fit uint32")
	}
	if !common.IsHexAddress(in.recipient) {
		return orchestrator.Plan{}, fmt.Errorf("--recipient must be a valid hex address")
	}
	amt, err := parseUnits(in.amount)
	if err != nil {
		return orchestrator.Plan{}, fmt.Errorf("parse --amount: %w", err)
	}
	reward, err := parseUnits(in.reward)
	if err != nil {
		return orchestrator.Plan{}, fmt.Errorf("parse --reward: %w", err)
	}
	stk, err := parseUnits(in.stake)
	if err != nil {
		return orchestrator.Plan{}, fmt.Errorf("parse --stake: %w", err)
	}
	return orchestrator.ClaimPlan(cfg, bridge, orchestrator.ClaimParams{
		Txid:          in.txid,
		Txts:          uint32(in.txts),
		Amount:        amt,
		Reward:        reward,
		Stake:         stk,
		SenderAddress: in.sender,
		Recipient:     common.HexToAddress(in.recipient),
		Data:          in.data,
	})
}

// lookupClaim rescans the bridge and resolves the on-chain claim number.
func lookupClaim(ctx context.Context, reg *network.Registry, overlay settings.Overlay, cfg network.NetworkConfig, bridgeAddr common.Address, claimNum uint64, blocks uint64, window time.Duration, log *slog.Logger) (claims.Claim, error) {
	if claimNum == 0 {
		return claims.Claim{}, fmt.Errorf("--claim-num is required (use the on-chain number)")
	}
	scanner, err := claims.NewScanner(reg, func(_ context.Context, netCfg network.NetworkConfig) (claims.Backend, error) {
		pool, err := rpcpool.New(netCfg.RPCURLs)
		if err != nil {
			return nil, err
		}
		return pool.Backend(), nil
	}, log)
	if err != nil {
		return claims.Claim{}, err
	}
	want := fmt.Sprintf("%d", claimNum)
	found := scanner.FetchClaims(ctx, overlay, []string{cfg.Key}, claims.ScanOptions{
		BlockCount:   blocks,
		Window:       window,
		BridgeFilter: &bridgeAddr,
	})
	for _, c := range found {
		if c.ClaimNum == want {
			return c, nil
		}
	}
	return claims.Claim{}, fmt.Errorf("claim %d not found on bridge %s within the scan range", claimNum, bridgeAddr)
}

func buildChallengePlan(ctx context.Context, reg *network.Registry, overlay settings.Overlay, cfg network.NetworkConfig, bridgeAddr common.Address, claimNum uint64, outcomeStr, stakeStr string, blocks uint64, window time.Duration, log *slog.Logger) (orchestrator.Plan, error) {
	c, err := lookupClaim(ctx, reg, overlay, cfg, bridgeAddr, claimNum, blocks, window, log)
	if err != nil {
		return orchestrator.Plan{}, err
	}
	if strings.TrimSpace(stakeStr) == "" {
		return orchestrator.CounterStakePlan(cfg, c)
	}
	outcome, err := parseOutcome(outcomeStr)
	if err != nil {
		return orchestrator.Plan{}, err
	}
	stk, err := parseUnits(stakeStr)
	if err != nil {
		return orchestrator.Plan{}, fmt.Errorf("parse --stake: %w", err)
	}
	return orchestrator.ChallengePlan(cfg, c, outcome, stk)
}

func buildCounterStakePlan(ctx context.Context, reg *network.Registry, overlay settings.Overlay, cfg network.NetworkConfig, bridgeAddr common.Address, claimNum uint64, blocks uint64, window time.Duration, log *slog.Logger) (orchestrator.Plan, error) {
	c, err := lookupClaim(ctx, reg, overlay, cfg, bridgeAddr, claimNum, blocks, window, log)
	if err != nil {
		return orchestrator.Plan{}, err
	}
	return orchestrator.CounterStakePlan(cfg, c)
}

func buildWithdrawPlan(ctx context.Context, reg *network.Registry, overlay settings.Overlay, cfg network.NetworkConfig, bridgeAddr common.Address, claimNum uint64, blocks uint64, window time.Duration, log *slog.Logger) (orchestrator.Plan, error) {
	c, err := lookupClaim(ctx, reg, overlay, cfg, bridgeAddr, claimNum, blocks, window, log)
	if err != nil {
		return orchestrator.Plan{}, err
	}
	return orchestrator.WithdrawPlan(cfg, c)
}

func parseOutcome(s string) (claims.Outcome, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes":
		return claims.OutcomeYes, nil
	case "no":
		return claims.OutcomeNo, nil
	default:
		return 0, fmt.Errorf("--outcome must be yes or no")
	}
}

func parseUnits(s string) (*big.Int, error) {
	canon, err := amount.Normalize(s)
	if err != nil {
		return nil, err
	}
	return amount.Big(canon)
}

func defaultSettingsPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "settings.json"
	}
	return home + "/.counterstake/settings.json"
}

// loadFileOverlay falls back to an empty overlay when the file is missing or
// unreadable; write paths must not be blocked by cosmetic settings.
func loadFileOverlay(ctx context.Context, path string, log *slog.Logger) settings.Overlay {
	store, err := settings.NewFileStore(path)
	if err != nil {
		log.Warn("open settings file", "path", path, "err", err)
		return settings.NewOverlay()
	}
	mgr, err := settings.NewManager(ctx, store)
	if err != nil {
		log.Warn("load settings overlay", "path", path, "err", err)
		return settings.NewOverlay()
	}
	return mgr.Snapshot()
}
