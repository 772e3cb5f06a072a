package blobstore

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestNewValidation(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		cfg  Config
	}{
		{
			name: "unsupported driver",
			cfg:  Config{Driver: "disk"},
		},
		{
			name: "s3 missing bucket",
			cfg:  Config{Driver: DriverS3},
		},
		{
			name: "s3 missing client",
			cfg:  Config{Driver: DriverS3, Bucket: "snapshots"},
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			s, err := New(tc.cfg)
			if !errors.Is(err, ErrInvalidConfig) {
				t.Fatalf("expected ErrInvalidConfig, got %v", err)
			}
			if s != nil {
				t.Fatalf("expected nil store on error")
			}
		})
	}
}

func TestSnapshotKey(t *testing.T) {
	t.Parallel()

	at := time.Unix(1700000000, 0)
	if got, want := SnapshotKey("ethereum", at), "snapshots/ethereum/1700000000.json"; got != want {
		t.Fatalf("SnapshotKey = %q, want %q", got, want)
	}
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, err := New(Config{Driver: DriverMemory, Prefix: "bridge"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	key := SnapshotKey("bsc", time.Unix(1700000000, 0))
	payload := []byte(`{"claims":[]}`)

	ok, err := s.Exists(ctx, key)
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if ok {
		t.Fatalf("expected key to be absent")
	}

	if err := s.Put(ctx, key, payload); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := s.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got.Data) != string(payload) {
		t.Fatalf("data mismatch: got %q want %q", got.Data, payload)
	}
	if got.ETag == "" {
		t.Fatalf("expected non-empty etag")
	}

	// Mutating the returned slice must not alter the stored copy.
	got.Data[0] = 'X'
	again, err := s.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(again.Data) != string(payload) {
		t.Fatalf("stored data mutated: %q", again.Data)
	}

	if err := s.Delete(ctx, key); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get(ctx, key); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestMemoryStoreRejectsBadKeys(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, err := New(Config{Driver: DriverMemory})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	for _, key := range []string{"", "  padded  ", "has\ncontrol"} {
		if err := s.Put(ctx, key, []byte("x")); !errors.Is(err, ErrInvalidKey) {
			t.Fatalf("Put(%q): expected ErrInvalidKey, got %v", key, err)
		}
	}
}
