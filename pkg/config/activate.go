package config

import (
	"fmt"
	"os"

	"github.com/gunnarbeutner/icinga2/pkg/eval"
	"github.com/gunnarbeutner/icinga2/pkg/telemetry"
	"github.com/gunnarbeutner/icinga2/pkg/workqueue"
)

// ActivateItems turns the committed objects of a batch live: a
// PreActivate barrier over every inactive object, then an Activate
// barrier. At most one activation runs at a time in the process.
//
// When withModAttrs is set, a persisted modified-attributes file is
// compiled and evaluated before activation; failures there are logged
// critically but do not fail the activation.
func (e *Engine) ActivateItems(upq *workqueue.WorkQueue, newItems []*Item, runtimeCreated, silent, withModAttrs bool) error {
	e.activateMu.Lock()
	defer e.activateMu.Unlock()

	timer := telemetry.NewTimer()

	if withModAttrs {
		e.restoreModAttrs()
	}

	for _, item := range newItems {
		obj := item.Object()
		if obj == nil || obj.IsActive() {
			continue
		}

		e.log.WithObject(item.Type().Name(), obj.Name()).Debug("Setting 'active' to true for object")

		upq.Enqueue(func() error {
			if err := obj.PreActivate(); err != nil {
				return WrapError(ErrActivation,
					fmt.Sprintf("PreActivate failed for object %q of type %q", obj.Name(), obj.Reflection().Name()),
					obj.DebugInfo(), err)
			}
			return nil
		})
	}

	upq.Join()
	if upq.HasExceptions() {
		upq.ReportExceptions("ConfigItem", e.log)
		e.metrics.RecordActivation("failed", timer.Duration())
		return e.batchError(upq, "PreActivate failed")
	}

	if !silent {
		e.log.Info("Triggering Start signal for config items")
	}

	for _, item := range newItems {
		obj := item.Object()
		if obj == nil || obj.IsActive() {
			continue
		}

		e.log.WithObject(item.Type().Name(), obj.Name()).Debug("Activating object")

		typeName := item.Type().Name()
		upq.Enqueue(func() error {
			if err := obj.Activate(runtimeCreated); err != nil {
				return WrapError(ErrActivation,
					fmt.Sprintf("Activate failed for object %q of type %q", obj.Name(), obj.Reflection().Name()),
					obj.DebugInfo(), err)
			}
			e.metrics.RecordObjectActivated(typeName)
			return nil
		})
	}

	upq.Join()
	if upq.HasExceptions() {
		upq.ReportExceptions("ConfigItem", e.log)
		e.metrics.RecordActivation("failed", timer.Duration())
		return e.batchError(upq, "Activate failed")
	}

	if !silent {
		e.log.Info("Activated all objects.")
	}

	e.metrics.RecordActivation("ok", timer.Duration())
	return nil
}

// restoreModAttrs compiles and evaluates the modified-attributes file
// once. The file is optional; load or evaluation failures are
// critical log entries, never activation failures.
func (e *Engine) restoreModAttrs() {
	path := e.Settings.ModAttrPath
	if path == "" {
		return
	}

	if _, err := os.Stat(path); err != nil {
		return
	}

	expr, err := eval.CompileFile(path)
	if err != nil {
		e.log.WithError(err).Criticalf("Failed to compile modified-attributes file '%s'.", path)
		return
	}

	frame := &eval.Frame{Lookup: e}
	if err := expr.Evaluate(frame); err != nil {
		e.log.WithError(err).Criticalf("Failed to restore modified attributes from '%s'.", path)
	}
}
