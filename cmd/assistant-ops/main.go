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
	"github.com/counterstake/bridge-client/internal/assistant"
	"github.com/counterstake/bridge-client/internal/network"
	"github.com/counterstake/bridge-client/internal/orchestrator"
	"github.com/counterstake/bridge-client/internal/rpcpool"
	"github.com/counterstake/bridge-client/internal/settings"
	"github.com/counterstake/bridge-client/internal/wallet"
)

func main() {
	var (
		op            = flag.String("op", "", "operation: stats|position|buy|redeem|withdraw-management-fee|withdraw-success-fee|assign-manager (required)")
		networkKey    = flag.String("network", "", "network key (required)")
		assistantFlag = flag.String("assistant-address", "", "assistant contract address (required)")
		keyEnv        = flag.String("private-key-env", "COUNTERSTAKE_PRIVATE_KEY", "env var holding the hex private key (write ops)")
		settingsPth   = flag.String("settings-path", defaultSettingsPath(), "settings overlay file path")

		stakeStr  = flag.String("stake-amount", "", "stake-token amount in smallest units (buy)")
		imageStr  = flag.String("image-amount", "", "image-token amount in smallest units (buy on wrapped-import pools)")
		sharesStr = flag.String("shares", "", "share amount in smallest units (redeem)")

		stakeTokenFlag = flag.String("stake-token", "", "stake token contract address; empty means the native coin (buy)")
		imageTokenFlag = flag.String("image-token", "", "image token contract address (buy on wrapped-import pools)")
		batchFlag      = flag.String("batch-precompile", "", "batchAll precompile address for atomic dual approval")

		newManagerFlag = flag.String("new-manager", "", "replacement manager address (assign-manager)")
		accountFlag    = flag.String("account", "", "account to inspect (position; defaults to the wallet address)")

		postConfirmDelay = flag.Duration("post-confirm-delay", 5*time.Second, "delay after confirmation before returning")
		timeout          = flag.Duration("timeout", 10*time.Minute, "overall operation timeout")
	)
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if *op == "" || *networkKey == "" || *assistantFlag == "" {
		fmt.Fprintln(os.Stderr, "error: --op, --network, and --assistant-address are required")
		os.Exit(2)
	}
	if !common.IsHexAddress(*assistantFlag) {
		fmt.Fprintln(os.Stderr, "error: --assistant-address must be a valid hex address")
		os.Exit(2)
	}
	assistantAddr := common.HexToAddress(*assistantFlag)

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
	assistantCfg, ok := cfg.Assistants[network.AddrKey(assistantAddr)]
	if !ok {
		// An unconfigured assistant still supports read ops; write ops need
		// the configured type to choose calldata.
		assistantCfg = network.AssistantConfig{Address: assistantAddr}
	}

	pool, err := rpcpool.New(cfg.RPCURLs)
	if err != nil {
		log.Error("init rpc pool", "err", err)
		os.Exit(2)
	}
	defer pool.Close()

	opName := strings.ToLower(strings.TrimSpace(*op))
	switch opName {
	case "stats":
		stats, err := assistant.FetchStats(ctx, pool.Backend(), assistantAddr)
		if err != nil {
			log.Error("fetch stats", "err", err)
			os.Exit(1)
		}
		printJSON(log, stats)
		return
	case "position":
		account, err := resolveAccount(*accountFlag, *keyEnv)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(2)
		}
		pos, err := assistant.FetchPosition(ctx, pool.Backend(), assistantAddr, account)
		if err != nil {
			log.Error("fetch position", "err", err)
			os.Exit(1)
		}
		printJSON(log, pos)
		return
	}

	// Write ops from here on.
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
	w, err := wallet.NewLocalWallet(wallet.NewLocalSigner(priv), map[uint64]*rpcpool.Pool{cfg.ChainID: pool}, cfg.ChainID)
	if err != nil {
		log.Error("init wallet", "err", err)
		os.Exit(2)
	}
	orch, err := orchestrator.New(orchestrator.Config{
		Provider:         w,
		PostConfirmDelay: *postConfirmDelay,
		Logger:           log,
	})
	if err != nil {
		log.Error("init orchestrator", "err", err)
		os.Exit(2)
	}

	var plan orchestrator.Plan
	switch opName {
	case "buy":
		plan, err = buildBuyPlan(cfg, assistantCfg, *stakeStr, *imageStr, *stakeTokenFlag, *imageTokenFlag, *batchFlag)
	case "redeem":
		var shares *big.Int
		if shares, err = parseUnits(*sharesStr); err == nil {
			plan, err = orchestrator.RedeemSharesPlan(cfg, assistantCfg, shares)
		}
	case "withdraw-management-fee":
		plan, err = orchestrator.WithdrawManagementFeePlan(cfg, assistantCfg)
	case "withdraw-success-fee":
		plan, err = orchestrator.WithdrawSuccessFeePlan(cfg, assistantCfg)
	case "assign-manager":
		if !common.IsHexAddress(*newManagerFlag) {
			err = fmt.Errorf("--new-manager must be a valid hex address")
		} else {
			plan, err = orchestrator.AssignNewManagerPlan(cfg, assistantCfg, common.HexToAddress(*newManagerFlag))
		}
	default:
		err = fmt.Errorf("unsupported --op %q", *op)
	}
	if err != nil {
		log.Error("build plan", "op", opName, "err", err)
		os.Exit(2)
	}

	receipt, err := orch.Execute(ctx, plan)
	if err != nil {
		log.Error("execute", "op", opName, "state", orch.State().String(), "kind", orchestrator.Classify(err).String(), "err", err)
		os.Exit(1)
	}
	printJSON(log, map[string]any{
		"op":          opName,
		"network":     cfg.Key,
		"assistant":   assistantAddr,
		"txHash":      receipt.TxHash,
		"blockNumber": receipt.BlockNumber,
		"gasUsed":     receipt.GasUsed,
	})
}

func buildBuyPlan(cfg network.NetworkConfig, assistantCfg network.AssistantConfig, stakeStr, imageStr, stakeToken, imageToken, batch string) (orchestrator.Plan, error) {
	stakeAmount, err := parseUnits(stakeStr)
	if err != nil {
		return orchestrator.Plan{}, fmt.Errorf("parse --stake-amount: %w", err)
	}

	var imageAmount *big.Int
	if strings.TrimSpace(imageStr) != "" {
		if imageAmount, err = parseUnits(imageStr); err != nil {
			return orchestrator.Plan{}, fmt.Errorf("parse --image-amount: %w", err)
		}
	}
	dep, err := assistant.PrepareDeposit(assistantCfg, stakeAmount, imageAmount)
	if err != nil {
		return orchestrator.Plan{}, err
	}

	params := orchestrator.BuySharesParams{
		StakeAmount: dep.StakeAmount,
		ImageAmount: dep.ImageAmount,
	}
	if strings.TrimSpace(stakeToken) != "" {
		if !common.IsHexAddress(stakeToken) {
			return orchestrator.Plan{}, fmt.Errorf("--stake-token must be a valid hex address")
		}
		params.StakeToken = common.HexToAddress(stakeToken)
	}
	if strings.TrimSpace(imageToken) != "" {
		if !common.IsHexAddress(imageToken) {
			return orchestrator.Plan{}, fmt.Errorf("--image-token must be a valid hex address")
		}
		params.ImageToken = common.HexToAddress(imageToken)
	}
	if strings.TrimSpace(batch) != "" {
		if !common.IsHexAddress(batch) {
			return orchestrator.Plan{}, fmt.Errorf("--batch-precompile must be a valid hex address")
		}
		params.BatchPrecompile = common.HexToAddress(batch)
	}
	return orchestrator.BuySharesPlan(cfg, assistantCfg, params)
}

func resolveAccount(accountFlag, keyEnv string) (common.Address, error) {
	if strings.TrimSpace(accountFlag) != "" {
		if !common.IsHexAddress(accountFlag) {
			return common.Address{}, fmt.Errorf("--account must be a valid hex address")
		}
		return common.HexToAddress(accountFlag), nil
	}
	keyHex := os.Getenv(keyEnv)
	if strings.TrimSpace(keyHex) == "" {
		return common.Address{}, fmt.Errorf("--account or a private key in env %s is required", keyEnv)
	}
	priv, err := wallet.ParsePrivateKey(keyHex)
	if err != nil {
		return common.Address{}, fmt.Errorf("parse private key: %w", err)
	}
	return wallet.NewLocalSigner(priv).Address(), nil
}

func parseUnits(s string) (*big.Int, error) {
	canon, err := amount.Normalize(s)
	if err != nil {
		return nil, err
	}
	return amount.Big(canon)
}

func printJSON(log *slog.Logger, v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		log.Error("encode output", "err", err)
		os.Exit(1)
	}
}

func defaultSettingsPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "settings.json"
	}
	return home + "/.counterstake/settings.json"
}

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
