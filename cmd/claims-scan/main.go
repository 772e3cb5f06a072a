package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/counterstake/bridge-client/internal/claims"
	"github.com/counterstake/bridge-client/internal/network"
	"github.com/counterstake/bridge-client/internal/rpcpool"
	"github.com/counterstake/bridge-client/internal/settings"
	settingspg "github.com/counterstake/bridge-client/internal/settings/postgres"
)

func main() {
	var (
		networksFlag = flag.String("networks", "", "comma-separated network keys (default: all)")
		blockCount   = flag.Uint64("blocks", 0, "scan the trailing N blocks (overrides --window)")
		window       = flag.Duration("window", 24*time.Hour, "scan the trailing time window")
		bridgeFlag   = flag.String("bridge", "", "restrict the scan to one bridge contract address")
		timeout      = flag.Duration("timeout", 2*time.Minute, "overall scan timeout")

		settingsDriver = flag.String("settings-driver", settings.DriverFile, "settings store driver: file|postgres|memory")
		settingsPath   = flag.String("settings-path", defaultSettingsPath(), "settings overlay file path (file driver)")
		postgresDSN    = flag.String("postgres-dsn", "", "Postgres DSN (required when --settings-driver=postgres)")
	)
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	var bridgeFilter *common.Address
	if strings.TrimSpace(*bridgeFlag) != "" {
		if !common.IsHexAddress(*bridgeFlag) {
			fmt.Fprintln(os.Stderr, "error: --bridge must be a valid hex address")
			os.Exit(2)
		}
		a := common.HexToAddress(*bridgeFlag)
		bridgeFilter = &a
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	reg := network.Defaults()
	keys := reg.Keys()
	if strings.TrimSpace(*networksFlag) != "" {
		keys = splitCommaList(*networksFlag)
	}

	overlay, cleanup, err := loadOverlay(ctx, *settingsDriver, *settingsPath, *postgresDSN)
	if err != nil {
		log.Error("load settings overlay", "err", err)
		os.Exit(2)
	}
	defer cleanup()

	scanner, err := claims.NewScanner(reg, poolBackendFactory(), log)
	if err != nil {
		log.Error("init scanner", "err", err)
		os.Exit(2)
	}

	found := scanner.FetchClaims(ctx, overlay, keys, claims.ScanOptions{
		BlockCount:   *blockCount,
		Window:       *window,
		BridgeFilter: bridgeFilter,
	})

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(found); err != nil {
		log.Error("encode claims", "err", err)
		os.Exit(1)
	}
	log.Info("scan complete", "networks", len(keys), "claims", len(found))
}

func defaultSettingsPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "settings.json"
	}
	return home + "/.counterstake/settings.json"
}

func splitCommaList(s string) []string {
	var out []string
	for _, v := range strings.Split(s, ",") {
		v = strings.TrimSpace(v)
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

func poolBackendFactory() claims.BackendFactory {
	return func(_ context.Context, cfg network.NetworkConfig) (claims.Backend, error) {
		pool, err := rpcpool.New(cfg.RPCURLs)
		if err != nil {
			return nil, err
		}
		return pool.Backend(), nil
	}
}

func loadOverlay(ctx context.Context, driver, path, dsn string) (settings.Overlay, func(), error) {
	noop := func() {}
	switch settings.NormalizeDriver(driver) {
	case settings.DriverMemory:
		return settings.NewOverlay(), noop, nil
	case settings.DriverFile:
		store, err := settings.NewFileStore(path)
		if err != nil {
			return settings.Overlay{}, noop, err
		}
		mgr, err := settings.NewManager(ctx, store)
		if err != nil {
			return settings.Overlay{}, noop, err
		}
		return mgr.Snapshot(), noop, nil
	case settings.DriverPostgres:
		if strings.TrimSpace(dsn) == "" {
			return settings.Overlay{}, noop, fmt.Errorf("--postgres-dsn is required when --settings-driver=postgres")
		}
		pool, err := pgxpool.New(ctx, dsn)
		if err != nil {
			return settings.Overlay{}, noop, err
		}
		store, err := settingspg.New(pool)
		if err != nil {
			pool.Close()
			return settings.Overlay{}, noop, err
		}
		if err := store.EnsureSchema(ctx); err != nil {
			pool.Close()
			return settings.Overlay{}, noop, err
		}
		mgr, err := settings.NewManager(ctx, store)
		if err != nil {
			pool.Close()
			return settings.Overlay{}, noop, err
		}
		return mgr.Snapshot(), pool.Close, nil
	default:
		return settings.Overlay{}, noop, fmt.Errorf("unsupported settings driver %q", driver)
	}
}
