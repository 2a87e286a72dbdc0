package prefs

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/lukasstorck/dynamic-virtual-controller/internal/keymap"
	"github.com/lukasstorck/dynamic-virtual-controller/internal/preset"
)

// Storage keys, kept compatible with the original web client.
const (
	KeyColor          = "dvc_color"
	KeyCustomKeybinds = "dvc_custom_keybinds"
	KeyLastGroupID    = "dvc_last_group_id"
	KeyName           = "dvc_name"
	KeySlotPresets    = "dvc_slot_presets"
)

const DefaultColor = "#ff6f61"

// DefaultName generates a throwaway display name used until the server
// confirms identity.
func DefaultName() string {
	return "User-" + uuid.NewString()[:4]
}

// Store is a small key-value preference store backed by sqlite. When the
// database cannot be opened it degrades to in-memory operation: reads and
// writes keep working for the lifetime of the process, nothing survives a
// restart.
type Store struct {
	db  *sql.DB
	mem map[string]string
	log *zap.Logger
}

const schema = `
CREATE TABLE IF NOT EXISTS preferences (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
`

// Open opens (or creates) the preference database at path. Errors are not
// fatal: the returned store falls back to memory-only operation.
func Open(ctx context.Context, path string, log *zap.Logger) *Store {
	db, err := open(ctx, path)
	if err != nil {
		log.Warn("preference store unavailable, falling back to in-memory",
			zap.String("path", path), zap.Error(err))
		return &Store{mem: map[string]string{}, log: log}
	}
	return &Store{db: db, log: log}
}

func open(ctx context.Context, path string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return db, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Get returns the stored value for key, or "" when unset.
func (s *Store) Get(ctx context.Context, key string) string {
	if s.db == nil {
		return s.mem[key]
	}
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM preferences WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return ""
	}
	if err != nil {
		s.log.Warn("read preference", zap.String("key", key), zap.Error(err))
		return ""
	}
	return value
}

func (s *Store) Set(ctx context.Context, key, value string) {
	if s.db == nil {
		s.mem[key] = value
		return
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO preferences(key, value, updated_at) VALUES (?, ?, ?)
ON CONFLICT(key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at
`, key, value, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		s.log.Warn("write preference", zap.String("key", key), zap.Error(err))
	}
}

// UserName returns the stored display name, generating and persisting a
// default on first use.
func (s *Store) UserName(ctx context.Context) string {
	if name := s.Get(ctx, KeyName); name != "" {
		return name
	}
	name := DefaultName()
	s.Set(ctx, KeyName, name)
	return name
}

func (s *Store) UserColor(ctx context.Context) string {
	if color := s.Get(ctx, KeyColor); color != "" {
		return color
	}
	return DefaultColor
}

func (s *Store) LastGroupID(ctx context.Context) string {
	return s.Get(ctx, KeyLastGroupID)
}

func (s *Store) SlotPresets(ctx context.Context) preset.SlotPresets {
	presets := preset.SlotPresets{}
	raw := s.Get(ctx, KeySlotPresets)
	if raw == "" {
		return presets
	}
	if err := json.Unmarshal([]byte(raw), &presets); err != nil {
		s.log.Warn("stored slot presets unreadable", zap.Error(err))
		return preset.SlotPresets{}
	}
	return presets
}

func (s *Store) SetSlotPresets(ctx context.Context, presets preset.SlotPresets) {
	raw, err := json.Marshal(presets)
	if err != nil {
		s.log.Warn("marshal slot presets", zap.Error(err))
		return
	}
	s.Set(ctx, KeySlotPresets, string(raw))
}

func (s *Store) CustomKeybinds(ctx context.Context) []keymap.CustomKeybind {
	raw := s.Get(ctx, KeyCustomKeybinds)
	if raw == "" {
		return []keymap.CustomKeybind{}
	}
	var keybinds []keymap.CustomKeybind
	if err := json.Unmarshal([]byte(raw), &keybinds); err != nil {
		s.log.Warn("stored custom keybinds unreadable", zap.Error(err))
		return []keymap.CustomKeybind{}
	}
	return keybinds
}

func (s *Store) SetCustomKeybinds(ctx context.Context, keybinds []keymap.CustomKeybind) {
	raw, err := json.Marshal(keybinds)
	if err != nil {
		s.log.Warn("marshal custom keybinds", zap.Error(err))
		return
	}
	s.Set(ctx, KeyCustomKeybinds, string(raw))
}
