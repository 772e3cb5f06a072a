package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/counterstake/bridge-client/internal/blobstore"
	"github.com/counterstake/bridge-client/internal/claims"
	"github.com/counterstake/bridge-client/internal/network"
	"github.com/counterstake/bridge-client/internal/queue"
	"github.com/counterstake/bridge-client/internal/rpcpool"
	"github.com/counterstake/bridge-client/internal/settings"
	settingspg "github.com/counterstake/bridge-client/internal/settings/postgres"
	"github.com/counterstake/bridge-client/internal/watch"
)

func main() {
	var (
		networksFlag  = flag.String("networks", "", "comma-separated network keys (default: all)")
		blockCount    = flag.Uint64("blocks", 0, "scan the trailing N blocks each cycle (overrides --window)")
		window        = flag.Duration("window", time.Hour, "scan the trailing time window each cycle")
		bridgeFlag    = flag.String("bridge", "", "restrict the watcher to one bridge contract address")
		interval      = flag.Duration("interval", 30*time.Second, "poll interval")
		seenCap       = flag.Int("seen-cap", 100_000, "max observation ids remembered for dedupe")
		withTransfers = flag.Bool("transfers", false, "also publish expatriation/repatriation events")

		settingsDriver = flag.String("settings-driver", settings.DriverFile, "settings store driver: file|postgres|memory")
		settingsPath   = flag.String("settings-path", defaultSettingsPath(), "settings overlay file path (file driver)")
		postgresDSN    = flag.String("postgres-dsn", "", "Postgres DSN (required when --settings-driver=postgres)")

		queueDriver  = flag.String("queue-driver", queue.DriverKafka, "queue driver: kafka|stdio")
		queueBrokers = flag.String("queue-brokers", "", "comma-separated queue brokers (required for kafka)")

		blobDriver = flag.String("blob-driver", "", "snapshot blobstore driver: s3|memory (empty disables snapshots)")
		blobBucket = flag.String("blob-bucket", "", "S3 bucket for scan snapshots (required for s3)")
		blobPrefix = flag.String("blob-prefix", "counterstake", "snapshot key prefix")
	)
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if strings.EqualFold(strings.TrimSpace(*queueDriver), queue.DriverKafka) && strings.TrimSpace(*queueBrokers) == "" {
		fmt.Fprintln(os.Stderr, "error: --queue-brokers is required when --queue-driver=kafka")
		os.Exit(2)
	}
	if strings.EqualFold(strings.TrimSpace(*blobDriver), blobstore.DriverS3) && strings.TrimSpace(*blobBucket) == "" {
		fmt.Fprintln(os.Stderr, "error: --blob-bucket is required when --blob-driver=s3")
		os.Exit(2)
	}
	var bridgeFilter *common.Address
	if strings.TrimSpace(*bridgeFlag) != "" {
		if !common.IsHexAddress(*bridgeFlag) {
			fmt.Fprintln(os.Stderr, "error: --bridge must be a valid hex address")
			os.Exit(2)
		}
		a := common.HexToAddress(*bridgeFlag)
		bridgeFilter = &a
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := network.Defaults()
	keys := reg.Keys()
	if strings.TrimSpace(*networksFlag) != "" {
		keys = splitCommaList(*networksFlag)
	}

	manager, cleanup, err := openSettingsManager(ctx, *settingsDriver, *settingsPath, *postgresDSN)
	if err != nil {
		log.Error("open settings store", "err", err)
		os.Exit(2)
	}
	defer cleanup()

	producer, err := queue.NewProducer(queue.ProducerConfig{
		Driver:  *queueDriver,
		Brokers: queue.SplitCommaList(*queueBrokers),
	})
	if err != nil {
		log.Error("init queue producer", "err", err)
		os.Exit(2)
	}
	defer func() { _ = producer.Close() }()

	snapshots, err := newSnapshotStore(ctx, *blobDriver, *blobBucket, *blobPrefix)
	if err != nil {
		log.Error("init snapshot store", "err", err)
		os.Exit(2)
	}

	scanner, err := claims.NewScanner(reg, poolBackendFactory(), log)
	if err != nil {
		log.Error("init scanner", "err", err)
		os.Exit(2)
	}

	watcher, err := watch.New(watch.Config{
		Source:      scanner,
		Producer:    producer,
		NetworkKeys: keys,
		Options: claims.ScanOptions{
			BlockCount:   *blockCount,
			Window:       *window,
			BridgeFilter: bridgeFilter,
		},
		Overlay:   manager.Snapshot,
		Snapshots: snapshots,
		Transfers: *withTransfers,
		Interval:  *interval,
		SeenCap:   *seenCap,
		Logger:    log,
	})
	if err != nil {
		log.Error("init watcher", "err", err)
		os.Exit(2)
	}

	log.Info("claim watcher started",
		"networks", strings.Join(keys, ","),
		"interval", interval.String(),
		"queueDriver", *queueDriver,
		"transfers", *withTransfers,
		"snapshots", snapshots != nil,
	)

	if err := watcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("watcher stopped", "err", err)
		os.Exit(1)
	}
	log.Info("shutdown", "reason", ctx.Err())
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

func openSettingsManager(ctx context.Context, driver, path, dsn string) (*settings.Manager, func(), error) {
	noop := func() {}
	switch settings.NormalizeDriver(driver) {
	case settings.DriverMemory:
		mgr, err := settings.NewManager(ctx, settings.NewMemoryStore())
		return mgr, noop, err
	case settings.DriverFile:
		store, err := settings.NewFileStore(path)
		if err != nil {
			return nil, noop, err
		}
		mgr, err := settings.NewManager(ctx, store)
		return mgr, noop, err
	case settings.DriverPostgres:
		if strings.TrimSpace(dsn) == "" {
			return nil, noop, fmt.Errorf("--postgres-dsn is required when --settings-driver=postgres")
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
		mgr, err := settings.NewManager(ctx, store)
		if err != nil {
			pool.Close()
			return nil, noop, err
		}
		return mgr, pool.Close, nil
	default:
		return nil, noop, fmt.Errorf("unsupported settings driver %q", driver)
	}
}

func newSnapshotStore(ctx context.Context, driver, bucket, prefix string) (blobstore.Store, error) {
	driver = strings.TrimSpace(strings.ToLower(driver))
	if driver == "" {
		return nil, nil
	}
	cfg := blobstore.Config{
		Driver: driver,
		Prefix: prefix,
		Bucket: bucket,
	}
	if driver == blobstore.DriverS3 {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, err
		}
		cfg.S3Client = awss3.NewFromConfig(awsCfg)
	}
	return blobstore.New(cfg)
}
