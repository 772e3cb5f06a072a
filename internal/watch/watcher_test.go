package watch

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/counterstake/bridge-client/internal/blobstore"
	"github.com/counterstake/bridge-client/internal/claims"
	"github.com/counterstake/bridge-client/internal/queue"
	"github.com/counterstake/bridge-client/internal/settings"
)

type stubSource struct {
	claims    []claims.Claim
	transfers []claims.Transfer
}

func (s *stubSource) FetchClaims(context.Context, settings.Overlay, []string, claims.ScanOptions) []claims.Claim {
	return s.claims
}

func (s *stubSource) FetchTransfers(context.Context, settings.Overlay, []string, claims.ScanOptions) []claims.Transfer {
	return s.transfers
}

type capturingProducer struct {
	mu       sync.Mutex
	messages []capturedMessage
}

type capturedMessage struct {
	topic   string
	key     string
	payload []byte
}

func (p *capturingProducer) Publish(_ context.Context, topic string, key, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, capturedMessage{topic: topic, key: string(key), payload: payload})
	return nil
}

func (p *capturingProducer) Close() error { return nil }

func (p *capturingProducer) byTopic(topic string) []capturedMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []capturedMessage
	for _, m := range p.messages {
		if m.topic == topic {
			out = append(out, m)
		}
	}
	return out
}

func testClaim(id byte) claims.Claim {
	c := claims.Claim{
		ClaimNum:   "1",
		NetworkKey: "ethereum",
		YesStake:   "100",
		NoStake:    "0",
	}
	c.ID[0] = id
	return c
}

func newTestWatcher(t *testing.T, src Source, producer queue.Producer, snapshots blobstore.Store, transfers bool) *Watcher {
	t.Helper()
	w, err := New(Config{
		Source:      src,
		Producer:    producer,
		NetworkKeys: []string{"ethereum"},
		Overlay:     func() settings.Overlay { return settings.NewOverlay() },
		Snapshots:   snapshots,
		Transfers:   transfers,
		Now:         func() time.Time { return time.Unix(1700000000, 0) },
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return w
}

func TestNewValidation(t *testing.T) {
	t.Parallel()

	_, err := New(Config{})
	if err == nil {
		t.Fatalf("expected error for empty config")
	}
}

func TestCyclePublishesOnlyNewOrChanged(t *testing.T) {
	t.Parallel()

	src := &stubSource{claims: []claims.Claim{testClaim(1), testClaim(2)}}
	producer := &capturingProducer{}
	w := newTestWatcher(t, src, producer, nil, false)

	ctx := context.Background()
	w.Cycle(ctx)
	if got := len(producer.byTopic(queue.TopicClaims)); got != 2 {
		t.Fatalf("first cycle published %d, want 2", got)
	}

	// Unchanged claims are suppressed.
	w.Cycle(ctx)
	if got := len(producer.byTopic(queue.TopicClaims)); got != 2 {
		t.Fatalf("second cycle published extras: %d total", got)
	}

	// A challenge flips the outcome stake; this claim republishes.
	src.claims[0].YesStake = "0"
	src.claims[0].NoStake = "151"
	src.claims[0].CurrentOutcome = claims.OutcomeNo
	w.Cycle(ctx)
	if got := len(producer.byTopic(queue.TopicClaims)); got != 3 {
		t.Fatalf("changed claim not republished: %d total", got)
	}
}

func TestCycleSnapshotsScanPerNetwork(t *testing.T) {
	t.Parallel()

	store, err := blobstore.New(blobstore.Config{Driver: blobstore.DriverMemory})
	if err != nil {
		t.Fatalf("blobstore.New: %v", err)
	}
	src := &stubSource{claims: []claims.Claim{testClaim(1)}}
	w := newTestWatcher(t, src, &capturingProducer{}, store, false)

	ctx := context.Background()
	w.Cycle(ctx)

	key := blobstore.SnapshotKey("ethereum", time.Unix(1700000000, 0))
	snap, err := store.Get(ctx, key)
	if err != nil {
		t.Fatalf("snapshot missing at %s: %v", key, err)
	}

	var got []claims.Claim
	if err := json.Unmarshal(snap.Data, &got); err != nil {
		t.Fatalf("snapshot decode: %v", err)
	}
	if len(got) != 1 || got[0].NetworkKey != "ethereum" {
		t.Fatalf("unexpected snapshot contents: %+v", got)
	}
}

func TestCyclePublishesTransfersWhenEnabled(t *testing.T) {
	t.Parallel()

	tr := claims.Transfer{EventType: claims.EventExpatriation, NetworkKey: "ethereum"}
	tr.ID[0] = 9
	src := &stubSource{transfers: []claims.Transfer{tr}}
	producer := &capturingProducer{}
	w := newTestWatcher(t, src, producer, nil, true)

	ctx := context.Background()
	w.Cycle(ctx)
	w.Cycle(ctx)

	if got := len(producer.byTopic(queue.TopicTransfers)); got != 1 {
		t.Fatalf("transfer published %d times, want 1", got)
	}
}

func TestSeenSetEvictsOldest(t *testing.T) {
	t.Parallel()

	s := newSeenSet(2)
	var a, b, c [32]byte
	a[0], b[0], c[0] = 1, 2, 3

	if !s.changed(a, "x") || !s.changed(b, "x") {
		t.Fatalf("fresh ids must report changed")
	}
	if s.changed(a, "x") {
		t.Fatalf("unchanged id must not report changed")
	}
	// Inserting c evicts a; a then reads as new again.
	if !s.changed(c, "x") {
		t.Fatalf("fresh id must report changed")
	}
	if !s.changed(a, "x") {
		t.Fatalf("evicted id must report changed on re-observation")
	}
}
