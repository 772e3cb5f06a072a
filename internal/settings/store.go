package settings

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

const (
	DriverPostgres = "postgres"
	DriverFile     = "file"
	DriverMemory   = "memory"
)

var (
	ErrInvalidConfig = errors.New("settings: invalid store config")
	ErrNotFound      = errors.New("settings: overlay not found")
)

// Store persists the overlay document. Implementations hold exactly one
// document; history and multi-profile support are out of scope.
type Store interface {
	Load(ctx context.Context) (Overlay, error)
	Save(ctx context.Context, o Overlay) error
	Close() error
}

func NormalizeDriver(v string) string {
	v = strings.TrimSpace(strings.ToLower(v))
	if v == "" {
		return DriverFile
	}
	return v
}

type memoryStore struct {
	mu  sync.Mutex
	doc *Overlay
}

// NewMemoryStore returns a volatile store for tests and dry runs.
func NewMemoryStore() Store {
	return &memoryStore{}
}

func (s *memoryStore) Load(_ context.Context) (Overlay, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return Overlay{}, ErrNotFound
	}
	return cloneOverlay(*s.doc), nil
}

func (s *memoryStore) Save(_ context.Context, o Overlay) error {
	if err := o.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c := cloneOverlay(o)
	s.doc = &c
	return nil
}

func (s *memoryStore) Close() error { return nil }

func cloneOverlay(o Overlay) Overlay {
	out := Overlay{Version: o.Version}
	if o.Networks != nil {
		out.Networks = make(map[string]NetworkOverlay, len(o.Networks))
		for k, v := range o.Networks {
			out.Networks[k] = v
		}
	}
	return out
}

// Manager owns the overlay: it is the single serialized update path, and
// readers get immutable snapshots.
type Manager struct {
	store Store

	mu      sync.RWMutex
	current Overlay
}

func NewManager(ctx context.Context, store Store) (*Manager, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: nil store", ErrInvalidConfig)
	}
	doc, err := store.Load(ctx)
	if errors.Is(err, ErrNotFound) {
		doc = NewOverlay()
	} else if err != nil {
		return nil, err
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &Manager{store: store, current: doc}, nil
}

// Snapshot returns the current overlay; the copy is the caller's to keep.
func (m *Manager) Snapshot() Overlay {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return cloneOverlay(m.current)
}

// Update applies fn to a copy of the overlay, persists it, and swaps it in.
// A persistence failure leaves the in-memory state unchanged.
func (m *Manager) Update(ctx context.Context, fn func(*Overlay)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	next := cloneOverlay(m.current)
	fn(&next)
	next.Version = SchemaVersion
	if err := m.store.Save(ctx, next); err != nil {
		return err
	}
	m.current = next
	return nil
}
