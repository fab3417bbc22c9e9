package config

import (
	"context"
	"fmt"

	"github.com/gunnarbeutner/icinga2/pkg/eval"
	"github.com/gunnarbeutner/icinga2/pkg/objects"
	"github.com/gunnarbeutner/icinga2/pkg/stores"
	"github.com/gunnarbeutner/icinga2/pkg/telemetry"
	"github.com/gunnarbeutner/icinga2/pkg/workqueue"
)

// Commit instantiates the item's object: evaluate the expression,
// compose the name, validate, run OnConfigLoaded, persist the snapshot
// and register the object. Abstract items produce no object and return
// (nil, nil). A second Commit on an already-committed item is a no-op.
//
// When discard is set the expression is dropped after evaluation;
// composite-named items are single-use while named items keep their
// expression for template imports.
func (e *Engine) Commit(item *Item, discard bool) (objects.ConfigObject, error) {
	t := item.Type()
	if t == nil || !t.IsObjectType() {
		typeName := "<unknown>"
		if t != nil {
			typeName = t.Name()
		}
		return nil, NewError(ErrUnknownType,
			fmt.Sprintf("type %q does not exist", typeName), item.DebugInfo())
	}

	e.log.WithObject(t.Name(), item.Name()).Debug("Commit called for config item")

	if item.IsAbstract() {
		return nil, nil
	}

	if obj := item.Object(); obj != nil {
		return obj, nil
	}

	dobj := t.Instantiate()
	dobj.SetDebugInfo(item.DebugInfo())
	dobj.SetZoneName(item.Zone())
	dobj.SetPackage(item.Package())
	dobj.SetCreationType(item.CreationType())
	dobj.SetName(item.Name())

	hints := eval.NewDebugHints()

	if expr := item.Expression(); expr != nil {
		frame := &eval.Frame{
			Self:     dobj,
			TypeName: t.Name(),
			Locals:   item.Scope(),
			Resolver: e,
			Hints:    hints,
		}

		if err := expr.Evaluate(frame); err != nil {
			return e.ignorableCommitFailure(item, ErrExpressionEvaluation, err)
		}
	}

	if discard {
		item.discardExpression()
	}

	itemName := item.Name()
	if short := dobj.ShortName(); short != "" {
		itemName = short
		dobj.SetName(short)
	}

	name := itemName

	if nc := t.Composer(); nc != nil {
		if name == "" {
			return nil, NewError(ErrEmptyName, "object name must not be empty", item.DebugInfo())
		}

		name = nc.MakeName(name, dobj)

		if name == "" {
			return nil, NewError(ErrNameComposerFailure, "could not determine name for object", item.DebugInfo())
		}
	}

	if name != itemName {
		dobj.SetShortName(itemName)
	}

	dobj.SetName(name)

	if err := dobj.Validate(objects.FAConfig, validationUtils{engine: e}); err != nil {
		return e.ignorableCommitFailure(item, ErrValidation, err)
	}

	if err := dobj.OnConfigLoaded(); err != nil {
		return e.ignorableCommitFailure(item, ErrConfigLoaded, err)
	}

	if e.Store != nil {
		props, err := objects.Serialize(dobj, objects.FAConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to serialize object %s: %w", name, err)
		}

		record := &stores.SnapshotRecord{
			Type:       t.Name(),
			Name:       name,
			Properties: props,
			DebugHints: hints.ToMap(),
			DebugInfo:  item.DebugInfo().Tuple(),
		}

		if err := e.Store.WriteObject(context.Background(), record); err != nil {
			return nil, fmt.Errorf("failed to persist snapshot for %s: %w", name, err)
		}
	}

	if err := dobj.Register(); err != nil {
		return nil, err
	}

	item.attachObject(dobj)
	e.metrics.RecordItemCommitted(t.Name())

	return dobj, nil
}

// ignorableCommitFailure converts a per-item error into an ignored-list
// entry when the item's ignore-on-error flag is set; otherwise the
// error propagates to the batch.
func (e *Engine) ignorableCommitFailure(item *Item, kind ErrorKind, err error) (objects.ConfigObject, error) {
	if !item.IsIgnoreOnError() {
		return nil, WrapError(kind, fmt.Sprintf("failed to commit config item %q of type %q", item.Name(), item.Type().Name()), item.DebugInfo(), err)
	}

	e.log.WithObject(item.Type().Name(), item.Name()).WithError(err).
		Noticef("Ignoring config object '%s' of type '%s' due to errors", item.Name(), item.Type().Name())

	e.Items.recordIgnored(item.DebugInfo().Path)
	e.metrics.RecordItemIgnored(item.Type().Name())

	return nil, nil
}

// CommitItems commits every pending item of the given activation
// context, drives the dependency-ordered finalizer to a fixed point
// and reports per-type instantiation counts. On failure every item
// gathered into newItems is unregistered.
func (e *Engine) CommitItems(actx *ActivationContext, upq *workqueue.WorkQueue, newItems *[]*Item, silent bool) error {
	timer := telemetry.NewTimer()

	if !silent {
		e.log.Info("Committing config item(s).")
	}

	if err := e.commitNewItems(actx, upq, newItems); err != nil {
		upq.ReportExceptions("config", e.log)

		for _, item := range *newItems {
			e.UnregisterItem(item)
		}

		e.metrics.RecordCommit("failed", timer.Duration())
		return err
	}

	if !silent {
		counts := make(map[*objects.Type]int)
		for _, item := range *newItems {
			if item.Object() == nil {
				continue
			}
			counts[item.Type()]++
		}

		for _, t := range e.Types.GetAllTypes() {
			n := counts[t]
			if n == 0 {
				continue
			}
			name := t.Name()
			if n != 1 {
				name = t.PluralName()
			}
			e.log.Infof("Instantiated %d %s.", n, name)
		}
	}

	e.metrics.RecordCommit("ok", timer.Duration())
	return nil
}

// commitNewItems runs commit rounds until no pending items remain: a
// worklist formulation of the re-entrant commit. Each round commits
// the pending items and finalizes them in load-dependency order; hooks
// may register further items, which the next round picks up.
func (e *Engine) commitNewItems(actx *ActivationContext, upq *workqueue.WorkQueue, newItems *[]*Item) error {
	// An ignored item stays registered without an object; it is
	// committed once and not picked up again by later rounds.
	attempted := make(map[*Item]bool)

	for {
		var pending []itemPair
		for _, ip := range e.Items.takePending(actx) {
			if !attempted[ip.item] {
				attempted[ip.item] = true
				pending = append(pending, ip)
			}
		}
		if len(pending) == 0 {
			return nil
		}

		for _, ip := range pending {
			*newItems = append(*newItems, ip.item)

			item, discard := ip.item, ip.discard
			upq.Enqueue(func() error {
				_, err := e.Commit(item, discard)
				return err
			})
		}

		upq.Join()
		if upq.HasExceptions() {
			return e.batchError(upq, "commit failed")
		}

		if err := e.finalizeBatch(actx, upq, pending); err != nil {
			return err
		}
	}
}

// finalizeBatch runs OnAllConfigLoaded and CreateChildObjects over the
// committed items of one round. Types are processed only once all of
// their declared load dependencies have completed, so type T's
// OnAllConfigLoaded observes the completion of every type in T's
// transitive dependency set.
func (e *Engine) finalizeBatch(actx *ActivationContext, upq *workqueue.WorkQueue, batch []itemPair) error {
	types := e.Types.ConfigObjectTypes()
	completed := make(map[*objects.Type]bool, len(types))

	byName := make(map[string]*objects.Type, len(types))
	for _, t := range types {
		byName[t.Name()] = t
	}

	for len(completed) < len(types) {
		progress := false

		for _, t := range types {
			if completed[t] {
				continue
			}

			// Skip this type for now if there are unresolved load
			// dependencies.
			unresolved := false
			for _, depName := range t.LoadDependencies() {
				if dep, ok := byName[depName]; ok && !completed[dep] {
					unresolved = true
					break
				}
			}
			if unresolved {
				continue
			}

			for _, ip := range batch {
				item := ip.item
				obj := item.Object()
				if obj == nil || item.Type() != t {
					continue
				}

				upq.Enqueue(func() error {
					if err := obj.OnAllConfigLoaded(); err != nil {
						if item.IsIgnoreOnError() {
							e.log.WithObject(item.Type().Name(), item.Name()).WithError(err).
								Noticef("Ignoring config object '%s' of type '%s' due to errors", item.Name(), item.Type().Name())

							e.UnregisterItem(item)
							e.Items.recordIgnored(item.DebugInfo().Path)
							e.metrics.RecordItemIgnored(item.Type().Name())
							return nil
						}

						return WrapError(ErrAllConfigLoaded,
							fmt.Sprintf("OnAllConfigLoaded failed for object %q of type %q", item.Name(), item.Type().Name()),
							item.DebugInfo(), err)
					}
					return nil
				})
			}

			completed[t] = true

			upq.Join()
			if upq.HasExceptions() {
				return e.batchError(upq, "OnAllConfigLoaded failed")
			}

			// Objects of the dependency types may derive child items
			// of this type. The hooks register items against the
			// batch's context.
			scope := e.enterScope(actx)
			for _, depName := range t.LoadDependencies() {
				for _, ip := range batch {
					item := ip.item
					obj := item.Object()
					if obj == nil || item.Type().Name() != depName {
						continue
					}

					upq.Enqueue(func() error {
						return obj.CreateChildObjects(t)
					})
				}
			}

			upq.Join()
			scope.Close()
			if upq.HasExceptions() {
				return e.batchError(upq, "CreateChildObjects failed")
			}

			progress = true
		}

		if !progress {
			remaining := make([]string, 0, len(types)-len(completed))
			for _, t := range types {
				if !completed[t] {
					remaining = append(remaining, t.Name())
				}
			}
			return NewError(ErrLoadDependencyCycle,
				fmt.Sprintf("load dependencies of types %v cannot be resolved", remaining),
				objects.DebugInfo{})
		}
	}

	return nil
}

// batchError surfaces the first collected work-queue error; the full
// set stays on the queue for ReportExceptions.
func (e *Engine) batchError(upq *workqueue.WorkQueue, msg string) error {
	errs := upq.Exceptions()
	if len(errs) == 0 {
		return fmt.Errorf("%s", msg)
	}
	if len(errs) == 1 {
		return errs[0]
	}
	return fmt.Errorf("%s: %w (and %d further errors)", msg, errs[0], len(errs)-1)
}
