package icinga

import (
	"github.com/gunnarbeutner/icinga2/pkg/objects"
)

// Service is a monitored service on a host. Services are composite-
// named: the canonical name is "<host>!<service>".
type Service struct {
	objects.ObjectBase
}

// serviceNameComposer derives the canonical service name from the
// host_name field plus the short name.
type serviceNameComposer struct{}

// MakeName implements objects.NameComposer.
func (serviceNameComposer) MakeName(shortName string, obj objects.ConfigObject) string {
	t := obj.Reflection()
	id := t.FieldID("host_name")
	if id < 0 {
		return ""
	}

	value, err := obj.GetField(id)
	if err != nil {
		return ""
	}

	hostName, ok := value.(string)
	if !ok || hostName == "" {
		return ""
	}

	return hostName + "!" + shortName
}

// ServiceType builds the Service type descriptor. Host objects must
// have finished OnAllConfigLoaded before services run theirs.
func ServiceType() *objects.Type {
	return objects.NewType(objects.TypeOptions{
		Name:             "Service",
		PluralName:       "Services",
		Factory:          func() objects.ConfigObject { return &Service{} },
		LoadDependencies: []string{"Host"},
		Composer:         serviceNameComposer{},
		Fields: []objects.Field{
			{Name: "host_name", Attributes: objects.FAConfig, Validate: "required", RefType: "Host"},
			{Name: "display_name", Attributes: objects.FAConfig},
			{Name: "check_command", Attributes: objects.FAConfig},
			{Name: "state", Attributes: objects.FAState},
			{Name: "last_check", Attributes: objects.FAState},
		},
	})
}

// RegisterTypes registers the built-in monitoring types.
func RegisterTypes(types *objects.TypeRegistry) error {
	for _, t := range []*objects.Type{HostType(), ServiceType()} {
		if err := types.Register(t); err != nil {
			return err
		}
	}
	return nil
}
