package config

import (
	"fmt"

	"github.com/gunnarbeutner/icinga2/pkg/workqueue"
)

// RunWithActivationContext opens a fresh activation scope, runs fn
// (which typically registers items), then commits and activates the
// resulting batch on a bounded work queue.
func (e *Engine) RunWithActivationContext(fn func() error) error {
	if fn == nil {
		return fmt.Errorf("'function' argument must not be nil")
	}

	scope := e.OpenScope()
	defer scope.Close()

	if err := fn(); err != nil {
		return err
	}

	upq := workqueue.NewWorkQueue(e.Settings.WorkQueueDepth, e.Settings.Concurrency)
	upq.SetName("ConfigItem::RunWithActivationContext")
	defer upq.Close()

	var newItems []*Item

	if err := e.CommitItems(scope.Context(), upq, &newItems, true); err != nil {
		return err
	}

	if err := e.ActivateItems(upq, newItems, false, true, false); err != nil {
		return err
	}

	return nil
}
