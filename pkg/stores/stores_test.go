package stores

import (
	"context"
	"path/filepath"
	"testing"
)

func testRecord(name string) *SnapshotRecord {
	return &SnapshotRecord{
		Type: "Host",
		Name: name,
		Properties: map[string]interface{}{
			"address": "192.0.2.10",
		},
		DebugHints: map[string]interface{}{
			"properties": map[string]interface{}{},
		},
		DebugInfo: []interface{}{"/conf/hosts.conf", 1, 1, 3, 2},
	}
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()

	ctx := context.Background()

	if err := store.WriteObject(ctx, testRecord("web-01")); err != nil {
		t.Fatalf("WriteObject failed: %v", err)
	}

	record, err := store.GetObject(ctx, "Host", "web-01")
	if err != nil {
		t.Fatalf("GetObject failed: %v", err)
	}
	if record == nil || record.Properties["address"] != "192.0.2.10" {
		t.Fatalf("unexpected record: %+v", record)
	}

	missing, err := store.GetObject(ctx, "Host", "nope")
	if err != nil {
		t.Fatalf("GetObject failed: %v", err)
	}
	if missing != nil {
		t.Error("expected nil for a missing record")
	}

	// Upsert replaces the previous record.
	updated := testRecord("web-01")
	updated.Properties["address"] = "192.0.2.11"
	if err := store.WriteObject(ctx, updated); err != nil {
		t.Fatalf("WriteObject failed: %v", err)
	}

	record, _ = store.GetObject(ctx, "Host", "web-01")
	if record.Properties["address"] != "192.0.2.11" {
		t.Errorf("expected the upserted address, got %v", record.Properties["address"])
	}

	records, err := store.ListByType(ctx, "Host")
	if err != nil {
		t.Fatalf("ListByType failed: %v", err)
	}
	if len(records) != 1 {
		t.Errorf("expected 1 record, got %d", len(records))
	}

	if err := store.DeleteObject(ctx, "Host", "web-01"); err != nil {
		t.Fatalf("DeleteObject failed: %v", err)
	}
	record, _ = store.GetObject(ctx, "Host", "web-01")
	if record != nil {
		t.Error("expected the record to be gone")
	}
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	ctx := context.Background()

	store, err := NewSQLiteStore(Config{Path: filepath.Join(t.TempDir(), "snapshots.db")})
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	if err := store.Init(ctx); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	defer store.Close()

	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}

	// Migrations are idempotent.
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("second Migrate failed: %v", err)
	}

	if err := store.WriteObject(ctx, testRecord("web-01")); err != nil {
		t.Fatalf("WriteObject failed: %v", err)
	}
	if err := store.WriteObject(ctx, testRecord("web-02")); err != nil {
		t.Fatalf("WriteObject failed: %v", err)
	}

	record, err := store.GetObject(ctx, "Host", "web-01")
	if err != nil {
		t.Fatalf("GetObject failed: %v", err)
	}
	if record == nil {
		t.Fatal("expected a record")
	}
	if record.Properties["address"] != "192.0.2.10" {
		t.Errorf("unexpected properties: %v", record.Properties)
	}
	if len(record.DebugInfo) != 5 {
		t.Errorf("expected a 5-tuple debug_info, got %v", record.DebugInfo)
	}

	missing, err := store.GetObject(ctx, "Host", "nope")
	if err != nil {
		t.Fatalf("GetObject failed: %v", err)
	}
	if missing != nil {
		t.Error("expected nil for a missing record")
	}

	// Upsert keyed by (type, name).
	updated := testRecord("web-01")
	updated.Properties["address"] = "192.0.2.11"
	if err := store.WriteObject(ctx, updated); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}

	records, err := store.ListByType(ctx, "Host")
	if err != nil {
		t.Fatalf("ListByType failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].Name != "web-01" || records[1].Name != "web-02" {
		t.Errorf("expected name-ordered records, got %s, %s", records[0].Name, records[1].Name)
	}

	if err := store.DeleteObject(ctx, "Host", "web-01"); err != nil {
		t.Fatalf("DeleteObject failed: %v", err)
	}
	record, _ = store.GetObject(ctx, "Host", "web-01")
	if record != nil {
		t.Error("expected the record to be gone")
	}

	// Deleting a missing record is not an error.
	if err := store.DeleteObject(ctx, "Host", "web-01"); err != nil {
		t.Fatalf("delete of a missing record failed: %v", err)
	}
}
