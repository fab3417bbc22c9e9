package config

import (
	"errors"
	"testing"

	"github.com/gunnarbeutner/icinga2/pkg/eval"
	"github.com/gunnarbeutner/icinga2/pkg/objects"
)

// commitLive commits and activates one item and returns its object.
func commitLive(t *testing.T, env *testEnv, typ *objects.Type, name string, value int64) objects.ConfigObject {
	t.Helper()

	err := env.engine.RunWithActivationContext(func() error {
		builder := NewItemBuilder().SetType(typ).SetName(name)
		builder.SetDebugInfo(objects.DebugInfo{Path: "/conf/" + name + ".conf"})
		builder.AddExpression(setFieldExpr("value", value))
		item, err := builder.Compile()
		if err != nil {
			return err
		}
		return env.engine.RegisterItem(item)
	})
	if err != nil {
		t.Fatalf("failed to commit live object %s: %v", name, err)
	}

	obj := typ.GetObject(name)
	if obj == nil || !obj.IsActive() {
		t.Fatalf("expected a live active object %s", name)
	}
	return obj
}

func TestReloadRollback(t *testing.T) {
	env := newTestEnv()
	typ := env.registerType(t, testTypeSpec{name: "Checkable"})

	obj := commitLive(t, env, typ, "a", 1)

	err := env.engine.ReloadObject(obj, false, func(frame *eval.Frame) error {
		return errors.New("callback boom")
	})
	if err == nil {
		t.Fatal("expected ReloadObject to fail")
	}

	restored := typ.GetObject("a")
	if restored != obj {
		t.Fatal("expected the original object to be re-registered")
	}
	if !restored.IsActive() {
		t.Error("expected the restored object to be active")
	}
	if deleted := restored.Extension(ConfigObjectDeletedExtension); deleted != false {
		t.Errorf("expected ConfigObjectDeleted=false, got %v", deleted)
	}

	value, err := restored.GetField(typ.FieldID("value"))
	if err != nil {
		t.Fatalf("GetField failed: %v", err)
	}
	if value != int64(1) {
		t.Errorf("expected value=1 after rollback, got %v", value)
	}

	item := env.engine.Items.GetByTypeAndName(typ, "a")
	if item == nil {
		t.Fatal("expected the item to be re-registered")
	}
}

func TestReloadStateMigration(t *testing.T) {
	env := newTestEnv()
	typ := env.registerType(t, testTypeSpec{name: "Checkable"})

	obj := commitLive(t, env, typ, "a", 1)

	stateID := typ.FieldID("state")
	if err := obj.SetField(stateID, int64(7)); err != nil {
		t.Fatalf("SetField failed: %v", err)
	}

	err := env.engine.ReloadObject(obj, false, func(frame *eval.Frame) error {
		return frame.Self.SetField(typ.FieldID("value"), int64(2))
	})
	if err != nil {
		t.Fatalf("ReloadObject failed: %v", err)
	}

	replacement := typ.GetObject("a")
	if replacement == nil {
		t.Fatal("expected a replacement object")
	}
	if replacement == obj {
		t.Fatal("expected the replacement to be a new instance")
	}
	if !replacement.IsActive() {
		t.Error("expected the replacement to be active")
	}

	value, _ := replacement.GetField(typ.FieldID("value"))
	if value != int64(2) {
		t.Errorf("expected the callback's value=2, got %v", value)
	}

	// FAState fields migrate from the deleted instance.
	state, _ := replacement.GetField(stateID)
	if state != int64(7) {
		t.Errorf("expected migrated state=7, got %v", state)
	}
}

func TestReloadDeletesDependents(t *testing.T) {
	env := newTestEnv()
	hostType := env.registerType(t, testTypeSpec{name: "Host"})
	serviceType := env.registerType(t, testTypeSpec{name: "Service"})

	host := commitLive(t, env, hostType, "h1", 1)
	service := commitLive(t, env, serviceType, "s1", 1)

	// The service depends on the host, so reloading the host takes the
	// service down with it.
	env.engine.Deps.AddDependency(service, host)

	err := env.engine.ReloadObject(host, false, func(frame *eval.Frame) error {
		return nil
	})
	if err != nil {
		t.Fatalf("ReloadObject failed: %v", err)
	}

	if hostType.GetObject("h1") == nil {
		t.Error("expected a live host after reload")
	}

	// The service had no replacement; it is recovered from the
	// snapshot.
	restored := serviceType.GetObject("s1")
	if restored != service {
		t.Fatal("expected the original service to be recovered")
	}
	if !restored.IsActive() {
		t.Error("expected the recovered service to be active")
	}
}

func TestReloadTerminatesOnCyclicDependencies(t *testing.T) {
	env := newTestEnv()
	typ := env.registerType(t, testTypeSpec{name: "Checkable"})

	a := commitLive(t, env, typ, "a", 1)
	b := commitLive(t, env, typ, "b", 1)

	env.engine.Deps.AddDependency(a, b)
	env.engine.Deps.AddDependency(b, a)

	err := env.engine.ReloadObject(a, true, func(frame *eval.Frame) error {
		builder := NewItemBuilder().SetType(typ).SetName("a")
		builder.AddExpression(setFieldExpr("value", int64(3)))
		item, err := builder.Compile()
		if err != nil {
			return err
		}
		return env.engine.RegisterItem(item)
	})
	if err != nil {
		t.Fatalf("ReloadObject failed: %v", err)
	}

	if typ.GetObject("a") == nil {
		t.Error("expected a replacement for a")
	}
	if typ.GetObject("b") != b {
		t.Error("expected b to be recovered")
	}
}
