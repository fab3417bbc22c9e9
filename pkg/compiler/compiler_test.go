package compiler

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gunnarbeutner/icinga2/pkg/config"
	"github.com/gunnarbeutner/icinga2/pkg/icinga"
	"github.com/gunnarbeutner/icinga2/pkg/stores"
	"github.com/gunnarbeutner/icinga2/pkg/telemetry"
	"github.com/gunnarbeutner/icinga2/pkg/workqueue"
)

func newTestEngine(t *testing.T) *config.Engine {
	t.Helper()

	engine := config.NewEngine(config.EngineOptions{
		Store:    stores.NewMemoryStore(),
		Logger:   telemetry.NopLogger(),
		Settings: config.Settings{Concurrency: 2, WorkQueueDepth: 256},
	})

	if err := icinga.RegisterTypes(engine.Types); err != nil {
		t.Fatalf("failed to register types: %v", err)
	}
	return engine
}

func writeDeclaration(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write declaration file: %v", err)
	}
	return path
}

const hostsDecl = `
items: [
	{
		type: "Host"
		name: "web-01"
		expression: "this.address = \"192.0.2.10\""
	},
	{
		type:       "Service"
		name:       "http"
		expression: "this.host_name = \"web-01\""
	},
]
`

func TestCompileFileRegistersAndCommits(t *testing.T) {
	engine := newTestEngine(t)

	scope := engine.OpenScope()
	defer scope.Close()

	path := writeDeclaration(t, t.TempDir(), "hosts.cue", hostsDecl)

	comp := New(engine, telemetry.NopLogger())
	items, err := comp.CompileFile(path)
	if err != nil {
		t.Fatalf("CompileFile failed: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}

	if items[0].DebugInfo().Path != path {
		t.Errorf("expected debug info to carry the source path, got %s", items[0].DebugInfo().Path)
	}

	upq := workqueue.NewWorkQueue(256, 2)
	defer upq.Close()

	var newItems []*config.Item
	if err := engine.CommitItems(scope.Context(), upq, &newItems, true); err != nil {
		t.Fatalf("CommitItems failed: %v", err)
	}

	hostType := engine.Types.GetByName("Host")
	if hostType.GetObject("web-01") == nil {
		t.Error("expected the host object to exist")
	}

	// Services are composite-named.
	serviceType := engine.Types.GetByName("Service")
	service := serviceType.GetObject("web-01!http")
	if service == nil {
		t.Fatal("expected the composed service name web-01!http")
	}
	if service.ShortName() != "http" {
		t.Errorf("expected short name http, got %s", service.ShortName())
	}
}

func TestCompilePathLoadsDirectory(t *testing.T) {
	engine := newTestEngine(t)

	scope := engine.OpenScope()
	defer scope.Close()

	dir := t.TempDir()
	writeDeclaration(t, dir, "01-hosts.cue", `
items: [{
	type: "Host"
	name: "a"
}]
`)
	writeDeclaration(t, dir, "02-more.cue", `
items: [{
	type: "Host"
	name: "b"
}]
`)
	writeDeclaration(t, dir, "ignored.txt", "not cue")

	comp := New(engine, telemetry.NopLogger())
	items, err := comp.CompilePath(dir)
	if err != nil {
		t.Fatalf("CompilePath failed: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].Name() != "a" || items[1].Name() != "b" {
		t.Errorf("expected file-ordered items, got %s, %s", items[0].Name(), items[1].Name())
	}
}

func TestCompileFileRejectsUnknownType(t *testing.T) {
	engine := newTestEngine(t)

	scope := engine.OpenScope()
	defer scope.Close()

	path := writeDeclaration(t, t.TempDir(), "bad.cue", `
items: [{
	type: "Nope"
	name: "x"
}]
`)

	comp := New(engine, telemetry.NopLogger())
	if _, err := comp.CompileFile(path); !config.IsKind(err, config.ErrUnknownType) {
		t.Fatalf("expected an unknown-type error, got %v", err)
	}
}

func TestCompileFileRejectsMissingType(t *testing.T) {
	engine := newTestEngine(t)

	scope := engine.OpenScope()
	defer scope.Close()

	path := writeDeclaration(t, t.TempDir(), "bad.cue", `
items: [{
	name: "x"
}]
`)

	comp := New(engine, telemetry.NopLogger())
	if _, err := comp.CompileFile(path); err == nil {
		t.Fatal("expected a validation error for the missing type")
	}
}

func TestCompileFileRejectsBadExpression(t *testing.T) {
	engine := newTestEngine(t)

	scope := engine.OpenScope()
	defer scope.Close()

	path := writeDeclaration(t, t.TempDir(), "bad.cue", `
items: [{
	type:       "Host"
	name:       "x"
	expression: "this.address = "
}]
`)

	comp := New(engine, telemetry.NopLogger())
	if _, err := comp.CompileFile(path); err == nil {
		t.Fatal("expected a Starlark syntax error")
	}
}
