package config

import (
	"fmt"

	"github.com/gunnarbeutner/icinga2/pkg/eval"
	"github.com/gunnarbeutner/icinga2/pkg/objects"
)

// ConfigObjectDeletedExtension marks objects that have been deleted as
// part of a reload, so downstream consumers can distinguish deletion
// from shutdown.
const ConfigObjectDeletedExtension = "ConfigObjectDeleted"

// deletedObjectInfo is one snapshot entry recorded while deleting an
// object graph.
type deletedObjectInfo struct {
	object objects.ConfigObject
	item   *Item
}

// deleteObjectHelper deactivates and unregisters the object together
// with every object depending on it, deepest-first, recording a
// snapshot entry per object. The visited set keeps the walk
// terminating on cyclic dependency graphs.
func (e *Engine) deleteObjectHelper(obj objects.ConfigObject, visited map[objects.ConfigObject]bool, deleted *[]deletedObjectInfo) {
	if visited[obj] {
		return
	}
	visited[obj] = true

	item := e.Items.GetByTypeAndName(obj.Reflection(), obj.Name())

	*deleted = append(*deleted, deletedObjectInfo{object: obj, item: item})

	for _, parent := range e.Deps.GetParents(obj) {
		e.deleteObjectHelper(parent, visited, deleted)
	}

	e.log.WithObject(obj.Reflection().Name(), obj.Name()).
		Warnf("Deactivating object '%s' of type '%s'.", obj.Name(), obj.Reflection().Name())

	// Mark the object for delete events before the deactivate signal
	// fires.
	obj.SetExtension(ConfigObjectDeletedExtension, true)
	obj.Deactivate(true)

	if item != nil {
		e.UnregisterItem(item)
	} else {
		obj.Unregister()
	}
}

// restoreObjectsHelper walks the snapshot deepest-last. Entries whose
// (type, name) has a live replacement get their state fields migrated
// onto it. Entries without a replacement are re-inserted when
// recoverApply is set or the original was declared as a plain object;
// apply-generated objects re-evaluate during a successful rebuild and
// must not be duplicated.
func (e *Engine) restoreObjectsHelper(deleted []deletedObjectInfo, recoverApply bool) {
	scope := e.OpenScope()
	defer scope.Close()

	for _, doi := range deleted {
		t := doi.object.Reflection()
		name := doi.object.Name()

		if newObj := t.GetObject(name); newObj != nil {
			e.log.WithObject(t.Name(), name).
				Warnf("Restoring state for newly-created object '%s' of type '%s'.", name, t.Name())

			props, err := objects.Serialize(doi.object, objects.FAState)
			if err == nil {
				err = objects.Deserialize(newObj, props, objects.FAState)
			}
			if err != nil {
				e.log.WithObject(t.Name(), name).WithError(err).Critical("Failed to migrate object state.")
			}

			continue
		}

		if !recoverApply && doi.object.CreationType() != "object" {
			continue
		}

		e.log.WithObject(t.Name(), name).
			Warnf("Recovering object '%s' of type '%s'.", name, t.Name())

		doi.object.SetExtension(ConfigObjectDeletedExtension, false)

		if doi.item != nil {
			if err := e.RegisterItem(doi.item); err != nil {
				e.log.WithObject(t.Name(), name).WithError(err).Critical("Failed to re-register item.")
				continue
			}
		}

		if err := doi.object.OnConfigLoaded(); err != nil {
			e.log.WithObject(t.Name(), name).WithError(err).Critical("OnConfigLoaded failed while recovering object.")
		}

		if err := doi.object.Register(); err != nil {
			e.log.WithObject(t.Name(), name).WithError(err).Critical("Failed to re-register object.")
			continue
		}

		if doi.item != nil {
			doi.item.attachObject(doi.object)
		}

		if err := doi.object.OnAllConfigLoaded(); err != nil {
			e.log.WithObject(t.Name(), name).WithError(err).Critical("OnAllConfigLoaded failed while recovering object.")
		}

		if err := doi.object.PreActivate(); err != nil {
			e.log.WithObject(t.Name(), name).WithError(err).Critical("PreActivate failed while recovering object.")
		}
		if err := doi.object.Activate(true); err != nil {
			e.log.WithObject(t.Name(), name).WithError(err).Critical("Activate failed while recovering object.")
		}
	}
}

// MigrateObjectAttributes shallow-copies all config attributes from
// the source object onto the destination object.
func MigrateObjectAttributes(source, destination objects.ConfigObject) error {
	t := source.Reflection()

	for fid := 0; fid < t.FieldCount(); fid++ {
		field, err := t.FieldInfo(fid)
		if err != nil {
			return err
		}

		if field.Attributes&objects.FAConfig == 0 {
			continue
		}

		value, err := source.GetField(fid)
		if err != nil {
			return err
		}

		if err := destination.SetField(fid, value); err != nil {
			return err
		}
	}

	return nil
}

// ReloadCallback rebuilds an object. For destroyFirst reloads the
// frame is empty and the callback registers replacement items itself;
// otherwise the frame's Self is the replacement object being built.
type ReloadCallback func(frame *eval.Frame) error

// ReloadObject deletes the object (and everything depending on it),
// runs the callback inside a fresh activation context and verifies a
// replacement exists. On any failure the deleted snapshot is restored.
//
// When destroyFirst is false the callback runs as the tail of an
// ephemeral item whose expression chain imports the default templates
// and migrates the source object's config fields first.
func (e *Engine) ReloadObject(obj objects.ConfigObject, destroyFirst bool, callback ReloadCallback) error {
	if obj == nil {
		return fmt.Errorf("'object' argument must not be nil")
	}
	if callback == nil {
		return fmt.Errorf("'callback' argument must not be nil")
	}

	visited := make(map[objects.ConfigObject]bool)
	var deleted []deletedObjectInfo
	e.deleteObjectHelper(obj, visited, &deleted)

	err := func() error {
		if !destroyFirst {
			register := func() error {
				t := obj.Reflection()
				name := obj.Name()

				builder := NewItemBuilder()
				builder.SetType(t)
				builder.SetName(name)
				builder.SetCreationType("object")

				builder.AddExpression(eval.ImportDefaultTemplatesExpression{})
				builder.AddExpression(eval.ExprFunc(func(frame *eval.Frame) error {
					return MigrateObjectAttributes(obj, frame.Self)
				}))
				builder.AddExpression(eval.ExprFunc(callback))

				newItem, err := builder.Compile()
				if err != nil {
					return err
				}
				return e.RegisterItem(newItem)
			}

			if err := e.RunWithActivationContext(register); err != nil {
				return err
			}
		} else {
			if err := e.RunWithActivationContext(func() error {
				return callback(&eval.Frame{})
			}); err != nil {
				return err
			}
		}

		if obj.Reflection().GetObject(obj.Name()) == nil {
			return NewError(ErrCallbackFailedToRecreate,
				"callback failed to re-create the object", obj.DebugInfo())
		}

		return nil
	}()

	if err != nil {
		e.restoreObjectsHelper(deleted, true)
		e.metrics.RecordReload("rolled_back")
		return err
	}

	e.restoreObjectsHelper(deleted, false)
	e.metrics.RecordReload("ok")
	return nil
}
