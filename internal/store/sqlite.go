package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/nhle/tempmail/internal/model"
)

// SQLiteStore implements the Store interface using a local SQLite database.
type SQLiteStore struct {
	db *sqlx.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath,
// enables WAL mode, and runs any pending schema migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("creating history directory: %w", err)
		}
	}

	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// A single connection keeps :memory: databases shared and serializes
	// writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (s *SQLiteStore) runMigrations() error {
	currentVersion := 0

	var tableCount int
	err := s.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// RecordMailbox inserts a history entry. If rec has no ID, a new UUID is
// generated and written back.
func (s *SQLiteStore) RecordMailbox(ctx context.Context, rec *model.MailboxRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO mailboxes (id, address, provider, created_at, expires_at, message_count)
		VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Address, string(rec.Provider),
		rec.CreatedAt.UTC(), rec.ExpiresAt.UTC(), rec.MessageCount,
	)
	if err != nil {
		return fmt.Errorf("recording mailbox %s: %w", rec.Address, err)
	}
	return nil
}

// UpdateMessageCount sets the message count of the most recent entry for
// address.
func (s *SQLiteStore) UpdateMessageCount(ctx context.Context, address string, count int) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE mailboxes SET message_count = ?
		WHERE id = (
			SELECT id FROM mailboxes WHERE address = ?
			ORDER BY created_at DESC LIMIT 1
		)`,
		count, address,
	)
	if err != nil {
		return fmt.Errorf("updating message count for %s: %w", address, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("mailbox %s not found", address)
	}
	return nil
}

// RecentMailboxes returns up to limit entries, newest first. A limit of
// zero or less returns every entry.
func (s *SQLiteStore) RecentMailboxes(ctx context.Context, limit int) ([]model.MailboxRecord, error) {
	query := `
		SELECT id, address, provider, created_at, expires_at, message_count
		FROM mailboxes ORDER BY created_at DESC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	var records []model.MailboxRecord
	if err := s.db.SelectContext(ctx, &records, query); err != nil {
		return nil, fmt.Errorf("querying mailboxes: %w", err)
	}
	return records, nil
}

// ClearMailboxes deletes the whole history and returns how many entries
// were removed.
func (s *SQLiteStore) ClearMailboxes(ctx context.Context) (int64, error) {
	result, err := s.db.ExecContext(ctx, "DELETE FROM mailboxes")
	if err != nil {
		return 0, fmt.Errorf("clearing mailboxes: %w", err)
	}
	return result.RowsAffected()
}
