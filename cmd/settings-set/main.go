package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/counterstake/bridge-client/internal/network"
	"github.com/counterstake/bridge-client/internal/settings"
	settingspg "github.com/counterstake/bridge-client/internal/settings/postgres"
)

func main() {
	var (
		driver      = flag.String("driver", settings.DriverFile, "settings store driver: file|postgres|memory")
		path        = flag.String("path", defaultSettingsPath(), "settings overlay file path (file driver)")
		postgresDSN = flag.String("postgres-dsn", "", "Postgres DSN (required when --driver=postgres)")

		networkKey = flag.String("network", "", "network key the edit applies to (required unless --show)")

		addRPC   = flag.String("add-rpc", "", "append a custom RPC endpoint URL")
		clearRPC = flag.Bool("clear-rpc", false, "drop the custom RPC list and fall back to defaults")

		addToken     = flag.String("add-token", "", "add a custom token as address:symbol:decimals")
		addBridge    = flag.String("add-bridge", "", "add a custom bridge as address:type:homeNetwork:foreignNetwork (type: export|export_wrapper|import|import_wrapper)")
		addAssistant = flag.String("add-assistant", "", "add a custom assistant as address:bridgeAddress:type")
		addOracle    = flag.String("add-oracle", "", "add a custom oracle as name:address")

		show    = flag.Bool("show", false, "print the overlay document and exit")
		timeout = flag.Duration("timeout", 30*time.Second, "store operation timeout")
	)
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	store, cleanup, err := openStore(ctx, *driver, *path, *postgresDSN)
	if err != nil {
		log.Error("open settings store", "err", err)
		os.Exit(2)
	}
	defer cleanup()

	manager, err := settings.NewManager(ctx, store)
	if err != nil {
		log.Error("load settings overlay", "err", err)
		os.Exit(2)
	}

	if *show {
		printOverlay(log, manager.Snapshot())
		return
	}

	if strings.TrimSpace(*networkKey) == "" {
		fmt.Fprintln(os.Stderr, "error: --network is required for edits")
		os.Exit(2)
	}
	if _, ok := network.Defaults().ByKey(*networkKey); !ok {
		log.Warn("network key is not in the default registry; the entry stays inert until the key exists", "network", *networkKey)
	}

	edit, err := buildEdit(*addRPC, *clearRPC, *addToken, *addBridge, *addAssistant, *addOracle)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}
	if edit == nil {
		fmt.Fprintln(os.Stderr, "error: nothing to do; pass an edit flag or --show")
		os.Exit(2)
	}

	err = manager.Update(ctx, func(o *settings.Overlay) {
		entry := o.Network(*networkKey)
		edit(&entry)
		o.SetNetwork(*networkKey, entry)
	})
	if err != nil {
		log.Error("save settings overlay", "err", err)
		os.Exit(1)
	}

	log.Info("settings updated", "network", *networkKey, "driver", settings.NormalizeDriver(*driver))
	printOverlay(log, manager.Snapshot())
}

type editFn func(*settings.NetworkOverlay)

func buildEdit(addRPC string, clearRPC bool, addToken, addBridge, addAssistant, addOracle string) (editFn, error) {
	var edits []editFn

	if clearRPC {
		edits = append(edits, func(e *settings.NetworkOverlay) {
			e.CustomRPC = false
			e.RPCURLs = nil
		})
	}
	if strings.TrimSpace(addRPC) != "" {
		url := strings.TrimSpace(addRPC)
		if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") && !strings.HasPrefix(url, "ws://") && !strings.HasPrefix(url, "wss://") {
			return nil, fmt.Errorf("--add-rpc must be an http(s) or ws(s) URL")
		}
		edits = append(edits, func(e *settings.NetworkOverlay) {
			e.CustomRPC = true
			e.RPCURLs = append(e.RPCURLs, url)
		})
	}

	if strings.TrimSpace(addToken) != "" {
		token, err := parseToken(addToken)
		if err != nil {
			return nil, fmt.Errorf("parse --add-token: %w", err)
		}
		edits = append(edits, func(e *settings.NetworkOverlay) {
			e.CustomTokens = true
			if e.Tokens == nil {
				e.Tokens = map[string]network.TokenConfig{}
			}
			e.Tokens[network.AddrKey(token.Address)] = token
		})
	}

	if strings.TrimSpace(addBridge) != "" {
		bridge, err := parseBridge(addBridge)
		if err != nil {
			return nil, fmt.Errorf("parse --add-bridge: %w", err)
		}
		edits = append(edits, func(e *settings.NetworkOverlay) {
			e.CustomBridges = true
			if e.Bridges == nil {
				e.Bridges = map[string]network.BridgeConfig{}
			}
			e.Bridges[network.AddrKey(bridge.Address)] = bridge
		})
	}

	if strings.TrimSpace(addAssistant) != "" {
		asst, err := parseAssistant(addAssistant)
		if err != nil {
			return nil, fmt.Errorf("parse --add-assistant: %w", err)
		}
		edits = append(edits, func(e *settings.NetworkOverlay) {
			e.CustomAssistants = true
			if e.Assistants == nil {
				e.Assistants = map[string]network.AssistantConfig{}
			}
			e.Assistants[network.AddrKey(asst.Address)] = asst
		})
	}

	if strings.TrimSpace(addOracle) != "" {
		name, addr, ok := strings.Cut(strings.TrimSpace(addOracle), ":")
		if !ok || strings.TrimSpace(name) == "" || !common.IsHexAddress(addr) {
			return nil, fmt.Errorf("--add-oracle must be name:address")
		}
		edits = append(edits, func(e *settings.NetworkOverlay) {
			e.CustomOracles = true
			if e.Oracles == nil {
				e.Oracles = map[string]string{}
			}
			e.Oracles[strings.TrimSpace(name)] = common.HexToAddress(addr).Hex()
		})
	}

	if len(edits) == 0 {
		return nil, nil
	}
	return func(e *settings.NetworkOverlay) {
		for _, edit := range edits {
			edit(e)
		}
	}, nil
}

func parseToken(s string) (network.TokenConfig, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 3 {
		return network.TokenConfig{}, fmt.Errorf("expected address:symbol:decimals")
	}
	if !common.IsHexAddress(parts[0]) {
		return network.TokenConfig{}, fmt.Errorf("invalid token address %q", parts[0])
	}
	symbol := strings.TrimSpace(parts[1])
	if symbol == "" {
		return network.TokenConfig{}, fmt.Errorf("empty symbol")
	}
	decimals, err := strconv.ParseUint(parts[2], 10, 8)
	if err != nil {
		return network.TokenConfig{}, fmt.Errorf("invalid decimals %q", parts[2])
	}
	return network.TokenConfig{
		Address:  common.HexToAddress(parts[0]),
		Symbol:   symbol,
		Decimals: uint8(decimals),
	}, nil
}

func parseBridge(s string) (network.BridgeConfig, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 4 {
		return network.BridgeConfig{}, fmt.Errorf("expected address:type:homeNetwork:foreignNetwork")
	}
	if !common.IsHexAddress(parts[0]) {
		return network.BridgeConfig{}, fmt.Errorf("invalid bridge address %q", parts[0])
	}
	bridgeType, err := network.ParseBridgeType(parts[1])
	if err != nil {
		return network.BridgeConfig{}, err
	}
	home, foreign := strings.TrimSpace(parts[2]), strings.TrimSpace(parts[3])
	if home == "" || foreign == "" {
		return network.BridgeConfig{}, fmt.Errorf("home and foreign network keys are required")
	}
	return network.BridgeConfig{
		Address:        common.HexToAddress(parts[0]),
		Type:           bridgeType,
		HomeNetwork:    home,
		ForeignNetwork: foreign,
	}, nil
}

func parseAssistant(s string) (network.AssistantConfig, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 3 {
		return network.AssistantConfig{}, fmt.Errorf("expected address:bridgeAddress:type")
	}
	if !common.IsHexAddress(parts[0]) || !common.IsHexAddress(parts[1]) {
		return network.AssistantConfig{}, fmt.Errorf("assistant and bridge addresses must be valid hex addresses")
	}
	assistantType, err := network.ParseBridgeType(parts[2])
	if err != nil {
		return network.AssistantConfig{}, err
	}
	return network.AssistantConfig{
		Address:       common.HexToAddress(parts[0]),
		BridgeAddress: common.HexToAddress(parts[1]),
		Type:          assistantType,
	}, nil
}

func printOverlay(log *slog.Logger, o settings.Overlay) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(o); err != nil {
		log.Error("encode overlay", "err", err)
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

func openStore(ctx context.Context, driver, path, dsn string) (settings.Store, func(), error) {
	noop := func() {}
	switch settings.NormalizeDriver(driver) {
	case settings.DriverMemory:
		return settings.NewMemoryStore(), noop, nil
	case settings.DriverFile:
		store, err := settings.NewFileStore(path)
		return store, noop, err
	case settings.DriverPostgres:
		if strings.TrimSpace(dsn) == "" {
			return nil, noop, fmt.Errorf("--postgres-dsn is required when --driver=postgres")
		}
		pool, err := pgxpool.New(ctx, dsn)
		if err != nil {
			return nil, noop, err
		}
		store, err := settingspg.New(pool)
		if err != nil {
			pool.Close()
			return nil, noop, err
		}
		if err := store.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, noop, err
		}
		return store, pool.Close, nil
	default:
		return nil, noop, fmt.Errorf("unsupported settings driver %q", driver)
	}
}
