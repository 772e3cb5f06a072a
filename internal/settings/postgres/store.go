package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/counterstake/bridge-client/internal/settings"
)

var ErrInvalidConfig = errors.New("settings/postgres: invalid config")

// Store persists the settings overlay as a single JSONB row.
type Store struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) (*Store, error) {
	if pool == nil {
		return nil, fmt.Errorf("%w: nil pool", ErrInvalidConfig)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) EnsureSchema(ctx context.Context) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("%w: nil store", ErrInvalidConfig)
	}
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("settings/postgres: ensure schema: %w", err)
	}
	return nil
}

func (s *Store) Load(ctx context.Context) (settings.Overlay, error) {
	var (
		version int
		raw     []byte
	)
	err := s.pool.QueryRow(ctx, `SELECT version, document FROM settings_overlay WHERE id = 1`).Scan(&version, &raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return settings.Overlay{}, settings.ErrNotFound
	}
	if err != nil {
		return settings.Overlay{}, fmt.Errorf("settings/postgres: load: %w", err)
	}

	var doc settings.Overlay
	if err := json.Unmarshal(raw, &doc); err != nil {
		return settings.Overlay{}, fmt.Errorf("settings/postgres: decode document: %w", err)
	}
	doc.Version = version
	if err := doc.Validate(); err != nil {
		return settings.Overlay{}, err
	}
	return doc, nil
}

func (s *Store) Save(ctx context.Context, o settings.Overlay) error {
	if err := o.Validate(); err != nil {
		return err
	}
	raw, err := json.Marshal(o)
	if err != nil {
		return fmt.Errorf("settings/postgres: encode document: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO settings_overlay (id, version, document, updated_at)
		VALUES (1, $1, $2, now())
		ON CONFLICT (id) DO UPDATE SET version = $1, document = $2, updated_at = now()
	`, o.Version, raw)
	if err != nil {
		return fmt.Errorf("settings/postgres: save: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}
