// Package watch polls the configured networks for claim and transfer events
// and republishes anything new or changed onto the observation feed.
package watch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/counterstake/bridge-client/internal/blobstore"
	"github.com/counterstake/bridge-client/internal/claims"
	"github.com/counterstake/bridge-client/internal/queue"
	"github.com/counterstake/bridge-client/internal/settings"
)

const (
	defaultInterval = 30 * time.Second

	// defaultSeenCap bounds the dedupe set. When full, oldest entries are
	// evicted, so a very old claim may be re-published; consumers treat the
	// feed as at-least-once.
	defaultSeenCap = 100_000
)

var ErrInvalidConfig = errors.New("watch: invalid config")

// Source is the scan surface the watcher polls.
type Source interface {
	FetchClaims(ctx context.Context, overlay settings.Overlay, networkKeys []string, opts claims.ScanOptions) []claims.Claim
	FetchTransfers(ctx context.Context, overlay settings.Overlay, networkKeys []string, opts claims.ScanOptions) []claims.Transfer
}

type Config struct {
	Source      Source
	Producer    queue.Producer
	NetworkKeys []string
	Options     claims.ScanOptions

	// Overlay returns the current settings snapshot each cycle, so edits made
	// while the watcher runs take effect on the next pass.
	Overlay func() settings.Overlay

	// Snapshots, when set, archives each network's scan as a JSON document.
	Snapshots blobstore.Store

	// Transfers additionally polls expatriations/repatriations.
	Transfers bool

	Interval time.Duration
	SeenCap  int

	Logger *slog.Logger
	Now    func() time.Time
}

type Watcher struct {
	cfg  Config
	log  *slog.Logger
	now  func() time.Time
	seen *seenSet
}

func New(cfg Config) (*Watcher, error) {
	if cfg.Source == nil {
		return nil, fmt.Errorf("%w: source is required", ErrInvalidConfig)
	}
	if cfg.Producer == nil {
		return nil, fmt.Errorf("%w: producer is required", ErrInvalidConfig)
	}
	if len(cfg.NetworkKeys) == 0 {
		return nil, fmt.Errorf("%w: at least one network key is required", ErrInvalidConfig)
	}
	if cfg.Overlay == nil {
		return nil, fmt.Errorf("%w: overlay source is required", ErrInvalidConfig)
	}
	if cfg.Interval <= 0 {
		cfg.Interval = defaultInterval
	}
	if cfg.SeenCap <= 0 {
		cfg.SeenCap = defaultSeenCap
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Watcher{
		cfg:  cfg,
		log:  log,
		now:  now,
		seen: newSeenSet(cfg.SeenCap),
	}, nil
}

// Run polls until ctx is done. A failing cycle is logged and the next tick
// proceeds.
func (w *Watcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()

	w.cycle(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.cycle(ctx)
		}
	}
}

// Cycle runs one scan-and-publish pass.
func (w *Watcher) Cycle(ctx context.Context) {
	w.cycle(ctx)
}

func (w *Watcher) cycle(ctx context.Context) {
	overlay := w.cfg.Overlay()

	observed := w.cfg.Source.FetchClaims(ctx, overlay, w.cfg.NetworkKeys, w.cfg.Options)
	published := 0
	for _, c := range observed {
		if !w.seen.changed(c.ID, claimFingerprint(c)) {
			continue
		}
		if err := w.publish(ctx, queue.TopicClaims, c.ID, c); err != nil {
			w.log.Error("publish claim failed", "claim", hex.EncodeToString(c.ID[:]), "err", err)
			continue
		}
		published++
	}
	w.log.Info("claims cycle", "observed", len(observed), "published", published)

	if w.cfg.Snapshots != nil {
		w.snapshot(ctx, observed)
	}

	if !w.cfg.Transfers {
		return
	}
	transfers := w.cfg.Source.FetchTransfers(ctx, overlay, w.cfg.NetworkKeys, w.cfg.Options)
	published = 0
	for _, tr := range transfers {
		if !w.seen.changed(tr.ID, "") {
			continue
		}
		if err := w.publish(ctx, queue.TopicTransfers, tr.ID, tr); err != nil {
			w.log.Error("publish transfer failed", "transfer", hex.EncodeToString(tr.ID[:]), "err", err)
			continue
		}
		published++
	}
	w.log.Info("transfers cycle", "observed", len(transfers), "published", published)
}

func (w *Watcher) publish(ctx context.Context, topic string, id [32]byte, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	key := []byte(hex.EncodeToString(id[:]))
	return w.cfg.Producer.Publish(ctx, topic, key, payload)
}

func (w *Watcher) snapshot(ctx context.Context, observed []claims.Claim) {
	byNetwork := make(map[string][]claims.Claim)
	for _, c := range observed {
		byNetwork[c.NetworkKey] = append(byNetwork[c.NetworkKey], c)
	}
	takenAt := w.now()
	for networkKey, list := range byNetwork {
		payload, err := json.Marshal(list)
		if err != nil {
			w.log.Error("snapshot marshal failed", "network", networkKey, "err", err)
			continue
		}
		key := blobstore.SnapshotKey(networkKey, takenAt)
		if err := w.cfg.Snapshots.Put(ctx, key, payload); err != nil {
			w.log.Error("snapshot write failed", "network", networkKey, "key", key, "err", err)
		}
	}
}

// claimFingerprint hashes the mutable claim fields so a challenged or
// finished claim republishes even though its id is unchanged.
func claimFingerprint(c claims.Claim) string {
	h := sha256.New()
	fmt.Fprintf(h, "%d|%s|%s|%d|%t|%t", c.CurrentOutcome, c.YesStake, c.NoStake, c.ExpiryTs, c.Finished, c.Withdrawn)
	return hex.EncodeToString(h.Sum(nil))
}

// seenSet is a bounded id -> fingerprint map with FIFO eviction.
type seenSet struct {
	cap     int
	entries map[[32]byte]string
	order   [][32]byte
}

func newSeenSet(capacity int) *seenSet {
	return &seenSet{
		cap:     capacity,
		entries: make(map[[32]byte]string, capacity),
	}
}

// changed records id with fingerprint and reports whether it was absent or
// carried a different fingerprint.
func (s *seenSet) changed(id [32]byte, fingerprint string) bool {
	prev, ok := s.entries[id]
	if ok && prev == fingerprint {
		return false
	}
	if !ok {
		if len(s.order) >= s.cap {
			oldest := s.order[0]
			s.order = s.order[1:]
			delete(s.entries, oldest)
		}
		s.order = append(s.order, id)
	}
	s.entries[id] = fingerprint
	return true
}
