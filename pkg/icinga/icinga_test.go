package icinga

import (
	"testing"

	"github.com/gunnarbeutner/icinga2/pkg/objects"
)

func TestRegisterTypes(t *testing.T) {
	reg := objects.NewTypeRegistry()
	if err := RegisterTypes(reg); err != nil {
		t.Fatalf("RegisterTypes failed: %v", err)
	}

	if reg.GetByName("Host") == nil || reg.GetByName("Service") == nil {
		t.Fatal("expected Host and Service to be registered")
	}

	if err := RegisterTypes(reg); err == nil {
		t.Error("expected a second registration to fail")
	}
}

func TestServiceLoadDependsOnHost(t *testing.T) {
	serviceType := ServiceType()

	deps := serviceType.LoadDependencies()
	if len(deps) != 1 || deps[0] != "Host" {
		t.Errorf("expected Service to load-depend on Host, got %v", deps)
	}
}

func TestServiceNameComposer(t *testing.T) {
	serviceType := ServiceType()

	nc := serviceType.Composer()
	if nc == nil {
		t.Fatal("expected Service to have a name composer")
	}

	svc := serviceType.Instantiate()
	if err := svc.SetField(serviceType.FieldID("host_name"), "web-01"); err != nil {
		t.Fatalf("SetField failed: %v", err)
	}

	if got := nc.MakeName("http", svc); got != "web-01!http" {
		t.Errorf("expected web-01!http, got %q", got)
	}

	// Without a host the composer cannot produce a name.
	blank := serviceType.Instantiate()
	if got := nc.MakeName("http", blank); got != "" {
		t.Errorf("expected an empty name without host_name, got %q", got)
	}
}

func TestHostTypeFields(t *testing.T) {
	hostType := HostType()

	if hostType.FieldID("address") < 0 {
		t.Error("expected an address field")
	}

	field, err := hostType.FieldInfo(hostType.FieldID("state"))
	if err != nil {
		t.Fatalf("FieldInfo failed: %v", err)
	}
	if field.Attributes&objects.FAState == 0 {
		t.Error("expected state to be a state field")
	}
}
