package stores

import (
	"context"
	"time"
)

// SnapshotRecord is the persisted form of one committed config object.
type SnapshotRecord struct {
	// Type is the config object type name.
	Type string `json:"type"`

	// Name is the canonical object name.
	Name string `json:"name"`

	// Properties are the object's FAConfig fields in serialized form.
	Properties map[string]interface{} `json:"properties"`

	// DebugHints is the nested hint mapping collected during
	// expression evaluation.
	DebugHints map[string]interface{} `json:"debug_hints"`

	// DebugInfo is the 5-tuple [path, first_line, first_column,
	// last_line, last_column].
	DebugInfo []interface{} `json:"debug_info"`

	// CreatedAt is when the record was written.
	CreatedAt time.Time `json:"created_at"`
}

// SnapshotStore is the compiler-context sink committed objects are
// persisted to.
type SnapshotStore interface {
	// WriteObject upserts the snapshot record for (record.Type,
	// record.Name).
	WriteObject(ctx context.Context, record *SnapshotRecord) error

	// GetObject returns the record for (typeName, name), or nil.
	GetObject(ctx context.Context, typeName, name string) (*SnapshotRecord, error)

	// ListByType returns all records of the given type.
	ListByType(ctx context.Context, typeName string) ([]*SnapshotRecord, error)

	// DeleteObject removes the record for (typeName, name). Deleting a
	// missing record is not an error.
	DeleteObject(ctx context.Context, typeName, name string) error

	// Close releases the store's resources.
	Close() error
}

// Config holds SQLite store configuration.
type Config struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}
