// Package preferences is a best-effort local cache of per-user UI preferences.
// Missing or unreadable entries fall back to defaults instead of failing.
package preferences

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"bizcard/internal/model"
	"bizcard/internal/preferences/migrations"
	"bizcard/internal/repository"

	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

const (
	KeyNotifications = "notificationPreferences"
	KeyAppearance    = "appearancePreferences"
)

var ErrInvalidTheme = errors.New("theme must be one of light, dark, system")

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	return gooseUpContext(ctx, db, ".")
}

type Store struct {
	db     *sql.DB
	kv     repository.DBTX
	logger zerolog.Logger
}

// Open opens the SQLite database at dsn and applies the embedded migrations.
func Open(ctx context.Context, dsn string, logger zerolog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// a single writer avoids SQLITE_BUSY between concurrent requests
	db.SetMaxOpenConns(1)
	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db, kv: db, logger: logger.With().Str("service", "Preferences").Logger()}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns nil, nil when nothing is stored under key.
func (s *Store) Get(ctx context.Context, userID, key string) ([]byte, error) {
	var value []byte
	err := s.kv.QueryRowContext(ctx, `SELECT value FROM preferences WHERE user_id = ? AND key = ?`, userID, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get preference %s: %w", key, err)
	}
	return value, nil
}

func (s *Store) Set(ctx context.Context, userID, key string, value []byte) error {
	_, err := s.kv.ExecContext(ctx, `
		INSERT INTO preferences (user_id, key, value) VALUES (?, ?, ?)
		ON CONFLICT(user_id, key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
	`, userID, key, value)
	if err != nil {
		return fmt.Errorf("failed to set preference %s: %w", key, err)
	}
	return nil
}

// load decodes the stored blob over dst, which already holds the defaults.
func (s *Store) load(ctx context.Context, userID, key string, dst any) {
	raw, err := s.Get(ctx, userID, key)
	if err != nil {
		s.logger.Warn().Err(err).Str("user_id", userID).Str("key", key).Msg("Failed to read preferences, using defaults")
		return
	}
	if raw == nil {
		return
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		s.logger.Warn().Err(err).Str("user_id", userID).Str("key", key).Msg("Corrupt preferences, using defaults")
	}
}

func (s *Store) save(ctx context.Context, userID, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.Set(ctx, userID, key, raw)
}

func (s *Store) LoadNotifications(ctx context.Context, userID string) model.NotificationPreferences {
	p := model.DefaultNotificationPreferences()
	s.load(ctx, userID, KeyNotifications, &p)
	return p
}

func (s *Store) SaveNotifications(ctx context.Context, userID string, p model.NotificationPreferences) error {
	return s.save(ctx, userID, KeyNotifications, p)
}

func (s *Store) LoadAppearance(ctx context.Context, userID string) model.AppearancePreferences {
	p := model.DefaultAppearancePreferences()
	s.load(ctx, userID, KeyAppearance, &p)
	if !validTheme(p.Theme) {
		p.Theme = model.ThemeSystem
	}
	return p
}

func (s *Store) SaveAppearance(ctx context.Context, userID string, p model.AppearancePreferences) error {
	if !validTheme(p.Theme) {
		return ErrInvalidTheme
	}
	return s.save(ctx, userID, KeyAppearance, p)
}

func validTheme(theme string) bool {
	switch theme {
	case model.ThemeLight, model.ThemeDark, model.ThemeSystem:
		return true
	}
	return false
}

// ThemeClass resolves the class applied to the document root.
func ThemeClass(p model.AppearancePreferences, systemDark bool) string {
	switch p.Theme {
	case model.ThemeDark:
		return model.ThemeDark
	case model.ThemeLight:
		return model.ThemeLight
	}
	if systemDark {
		return model.ThemeDark
	}
	return model.ThemeLight
}
