package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gunnarbeutner/icinga2/pkg/objects"
)

func TestRegisterDuplicateDefinition(t *testing.T) {
	env := newTestEnv()
	typ := env.registerType(t, testTypeSpec{name: "Checkable"})

	scope := env.engine.OpenScope()
	defer scope.Close()

	env.newItem(t, typ, "a", func(b *ItemBuilder) {
		b.SetDebugInfo(objects.DebugInfo{Path: "/conf/first.conf", FirstLine: 3, FirstColumn: 1, LastLine: 5, LastColumn: 2})
	})

	builder := NewItemBuilder().SetType(typ).SetName("a")
	builder.SetDebugInfo(objects.DebugInfo{Path: "/conf/second.conf", FirstLine: 7, FirstColumn: 1, LastLine: 9, LastColumn: 2})
	dup, err := builder.Compile()
	if err != nil {
		t.Fatalf("failed to compile duplicate item: %v", err)
	}

	err = env.engine.RegisterItem(dup)
	if !IsKind(err, ErrDuplicateDefinition) {
		t.Fatalf("expected a duplicate-definition error, got %v", err)
	}

	// The message names both declaration sites.
	if !strings.Contains(err.Error(), "/conf/first.conf") || !strings.Contains(err.Error(), "/conf/second.conf") {
		t.Errorf("expected both debug-info locations in the message, got %q", err.Error())
	}
}

func TestCompositeItemsSkipUniquenessCheck(t *testing.T) {
	env := newTestEnv()
	typ := env.registerType(t, testTypeSpec{
		name:     "Service",
		composer: suffixComposer{suffix: "!svc"},
	})

	scope := env.engine.OpenScope()
	defer scope.Close()

	// Composite-named concrete items are appended to the unnamed list
	// without a uniqueness check.
	env.newItem(t, typ, "same", nil)
	env.newItem(t, typ, "same", nil)
}

func TestRegisterUnregisterRegisterRoundTrip(t *testing.T) {
	env := newTestEnv()
	typ := env.registerType(t, testTypeSpec{name: "Checkable"})

	scope := env.engine.OpenScope()
	defer scope.Close()

	item := env.newItem(t, typ, "a", nil)

	env.engine.UnregisterItem(item)
	if got := env.engine.Items.GetByTypeAndName(typ, "a"); got != nil {
		t.Fatal("expected the item to be gone after Unregister")
	}

	// R1: re-registering the same item is allowed.
	if err := env.engine.RegisterItem(item); err != nil {
		t.Fatalf("re-register failed: %v", err)
	}
	if got := env.engine.Items.GetByTypeAndName(typ, "a"); got != item {
		t.Fatal("expected the item to be indexed again")
	}
}

func TestUnregisterIsIdempotentAndDetachesObject(t *testing.T) {
	env := newTestEnv()
	typ := env.registerType(t, testTypeSpec{name: "Checkable"})

	scope := env.engine.OpenScope()
	defer scope.Close()

	item := env.newItem(t, typ, "a", nil)

	obj, err := env.engine.Commit(item, false)
	if err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	env.engine.UnregisterItem(item)
	env.engine.UnregisterItem(item)

	if item.Object() != nil {
		t.Error("expected the object attachment to be cleared")
	}
	if typ.GetObject(obj.Name()) != nil {
		t.Error("expected the object to be unregistered from the type index")
	}
}

func TestDefaultTemplateIndex(t *testing.T) {
	env := newTestEnv()
	typ := env.registerType(t, testTypeSpec{name: "Checkable"})

	scope := env.engine.OpenScope()
	defer scope.Close()

	env.newItem(t, typ, "plain", nil)
	tmpl := env.newItem(t, typ, "defaults", func(b *ItemBuilder) {
		b.SetAbstract(true)
		b.SetDefaultTemplate(true)
	})

	templates := env.engine.Items.GetDefaultTemplates(typ)
	if len(templates) != 1 || templates[0] != tmpl {
		t.Fatalf("expected exactly the default template, got %d items", len(templates))
	}

	// P3: every default-template entry has the flag set.
	for _, item := range templates {
		if !item.IsDefaultTemplate() {
			t.Errorf("item %s is indexed as default template without the flag", item.Name())
		}
	}

	if got := len(env.engine.Items.GetItems(typ)); got != 2 {
		t.Errorf("expected 2 named items, got %d", got)
	}
}

func TestRemoveIgnoredItems(t *testing.T) {
	env := newTestEnv()

	dir := t.TempDir()
	inside := filepath.Join(dir, "bad.conf")
	if err := os.WriteFile(inside, []byte("x"), 0644); err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}

	env.engine.Items.recordIgnored(inside)
	env.engine.Items.recordIgnored("/elsewhere/other.conf")

	env.engine.Items.RemoveIgnoredItems(dir)

	// P6: only paths under the prefix are removed.
	if _, err := os.Stat(inside); !os.IsNotExist(err) {
		t.Error("expected the matching file to be unlinked")
	}

	remaining := env.engine.Items.IgnoredPaths()
	if len(remaining) != 1 || remaining[0] != "/elsewhere/other.conf" {
		t.Errorf("expected the non-matching path to remain, got %v", remaining)
	}
}
