package stores

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	// SQLite driver
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteStore implements SnapshotStore using SQLite.
type SQLiteStore struct {
	db   *sql.DB
	path string
	cfg  Config
}

// NewSQLiteStore creates a new SQLite store instance.
func NewSQLiteStore(cfg Config) (*SQLiteStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	// Set defaults
	if cfg.MaxOpenConns == 0 {
		cfg.MaxOpenConns = 25
	}
	if cfg.MaxIdleConns == 0 {
		cfg.MaxIdleConns = 5
	}
	if cfg.ConnMaxLifetime == 0 {
		cfg.ConnMaxLifetime = 5 * time.Minute
	}

	return &SQLiteStore{
		path: cfg.Path,
		cfg:  cfg,
	}, nil
}

// Init initializes the database connection and enables WAL mode.
func (s *SQLiteStore) Init(ctx context.Context) error {
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL&_txlock=immediate", s.path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(s.cfg.MaxOpenConns)
	db.SetMaxIdleConns(s.cfg.MaxIdleConns)
	db.SetConnMaxLifetime(s.cfg.ConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	s.db = db
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Migrate runs database migrations.
func (s *SQLiteStore) Migrate(_ context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not initialized")
	}

	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	driver, err := sqlite3.WithInstance(s.db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("failed to create database driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// WriteObject upserts the snapshot record for (record.Type, record.Name).
func (s *SQLiteStore) WriteObject(ctx context.Context, record *SnapshotRecord) error {
	properties, err := json.Marshal(record.Properties)
	if err != nil {
		return fmt.Errorf("failed to marshal properties: %w", err)
	}

	debugHints, err := json.Marshal(record.DebugHints)
	if err != nil {
		return fmt.Errorf("failed to marshal debug hints: %w", err)
	}

	debugInfo, err := json.Marshal(record.DebugInfo)
	if err != nil {
		return fmt.Errorf("failed to marshal debug info: %w", err)
	}

	createdAt := record.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	query := `
		INSERT INTO snapshots (type, name, properties, debug_hints, debug_info, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(type, name) DO UPDATE SET
			properties = excluded.properties,
			debug_hints = excluded.debug_hints,
			debug_info = excluded.debug_info,
			created_at = excluded.created_at
	`

	if _, err := s.db.ExecContext(ctx, query,
		record.Type,
		record.Name,
		string(properties),
		string(debugHints),
		string(debugInfo),
		createdAt,
	); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}

	return nil
}

// GetObject returns the record for (typeName, name), or nil.
func (s *SQLiteStore) GetObject(ctx context.Context, typeName, name string) (*SnapshotRecord, error) {
	query := `
		SELECT type, name, properties, debug_hints, debug_info, created_at
		FROM snapshots
		WHERE type = ? AND name = ?
	`

	row := s.db.QueryRowContext(ctx, query, typeName, name)
	record, err := scanSnapshot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return record, err
}

// ListByType returns all records of the given type.
func (s *SQLiteStore) ListByType(ctx context.Context, typeName string) ([]*SnapshotRecord, error) {
	query := `
		SELECT type, name, properties, debug_hints, debug_info, created_at
		FROM snapshots
		WHERE type = ?
		ORDER BY name
	`

	rows, err := s.db.QueryContext(ctx, query, typeName)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []*SnapshotRecord
	for rows.Next() {
		record, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	return records, rows.Err()
}

// DeleteObject removes the record for (typeName, name).
func (s *SQLiteStore) DeleteObject(ctx context.Context, typeName, name string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM snapshots WHERE type = ? AND name = ?", typeName, name); err != nil {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSnapshot(row rowScanner) (*SnapshotRecord, error) {
	var (
		record     SnapshotRecord
		properties string
		debugHints string
		debugInfo  string
	)

	if err := row.Scan(&record.Type, &record.Name, &properties, &debugHints, &debugInfo, &record.CreatedAt); err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(properties), &record.Properties); err != nil {
		return nil, fmt.Errorf("failed to unmarshal properties: %w", err)
	}
	if err := json.Unmarshal([]byte(debugHints), &record.DebugHints); err != nil {
		return nil, fmt.Errorf("failed to unmarshal debug hints: %w", err)
	}
	if err := json.Unmarshal([]byte(debugInfo), &record.DebugInfo); err != nil {
		return nil, fmt.Errorf("failed to unmarshal debug info: %w", err)
	}

	return &record, nil
}
