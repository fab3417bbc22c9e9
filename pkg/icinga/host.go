// Package icinga declares the built-in monitoring object types the
// lifecycle engine ships with.
package icinga

import (
	"github.com/gunnarbeutner/icinga2/pkg/objects"
)

// Host is a monitored host.
type Host struct {
	objects.ObjectBase
}

// HostType builds the Host type descriptor.
func HostType() *objects.Type {
	return objects.NewType(objects.TypeOptions{
		Name:       "Host",
		PluralName: "Hosts",
		Factory:    func() objects.ConfigObject { return &Host{} },
		Fields: []objects.Field{
			{Name: "address", Attributes: objects.FAConfig},
			{Name: "display_name", Attributes: objects.FAConfig},
			{Name: "check_command", Attributes: objects.FAConfig},
			{Name: "groups", Attributes: objects.FAConfig},
			{Name: "state", Attributes: objects.FAState},
			{Name: "last_check", Attributes: objects.FAState},
		},
	})
}
