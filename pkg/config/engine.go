package config

import (
	"fmt"
	"sync"

	"github.com/gunnarbeutner/icinga2/pkg/depgraph"
	"github.com/gunnarbeutner/icinga2/pkg/eval"
	"github.com/gunnarbeutner/icinga2/pkg/objects"
	"github.com/gunnarbeutner/icinga2/pkg/stores"
	"github.com/gunnarbeutner/icinga2/pkg/telemetry"
)

// Engine drives config items through the commit, activation and reload
// phases. It owns the item registry and the scope stack; the type
// registry, snapshot store and dependency graph are injected.
type Engine struct {
	// Types is the config type registry.
	Types *objects.TypeRegistry

	// Items is the item registry.
	Items *ItemRegistry

	// Store is the snapshot sink committed objects are persisted to.
	// May be nil.
	Store stores.SnapshotStore

	// Deps tracks dependencies between live objects; the reload path
	// walks it to find dependents.
	Deps *depgraph.Graph

	// Settings are the engine's runtime settings.
	Settings Settings

	log     *telemetry.Logger
	metrics *telemetry.Metrics

	scopeMu sync.Mutex
	scopes  []*ActivationContext

	// activateMu serializes ActivateItems invocations end-to-end.
	activateMu sync.Mutex
}

// EngineOptions configures a new engine.
type EngineOptions struct {
	Types    *objects.TypeRegistry
	Store    stores.SnapshotStore
	Settings Settings
	Logger   *telemetry.Logger
	Metrics  *telemetry.Metrics
}

// NewEngine creates an engine.
func NewEngine(opts EngineOptions) *Engine {
	log := opts.Logger
	if log == nil {
		log = telemetry.NopLogger()
	}

	metrics := opts.Metrics
	if metrics == nil {
		metrics, _ = telemetry.NewMetrics(telemetry.MetricsConfig{})
	}

	settings := opts.Settings
	if settings.Concurrency <= 0 || settings.WorkQueueDepth <= 0 {
		def := DefaultSettings()
		if settings.Concurrency <= 0 {
			settings.Concurrency = def.Concurrency
		}
		if settings.WorkQueueDepth <= 0 {
			settings.WorkQueueDepth = def.WorkQueueDepth
		}
	}

	types := opts.Types
	if types == nil {
		types = objects.NewTypeRegistry()
	}

	return &Engine{
		Types:    types,
		Items:    NewItemRegistry(log),
		Store:    opts.Store,
		Deps:     depgraph.New(),
		Settings: settings,
		log:      log.NewComponentLogger("ConfigItem"),
		metrics:  metrics,
	}
}

// OpenScope pushes a fresh activation context and returns its scope.
func (e *Engine) OpenScope() *ActivationScope {
	ctx := NewActivationContext()

	e.scopeMu.Lock()
	e.scopes = append(e.scopes, ctx)
	e.scopeMu.Unlock()

	return &ActivationScope{engine: e, ctx: ctx}
}

// enterScope pushes an existing context, used while running hooks that
// register items on behalf of that context.
func (e *Engine) enterScope(ctx *ActivationContext) *ActivationScope {
	e.scopeMu.Lock()
	e.scopes = append(e.scopes, ctx)
	e.scopeMu.Unlock()

	return &ActivationScope{engine: e, ctx: ctx}
}

func (e *Engine) popScope(ctx *ActivationContext) {
	e.scopeMu.Lock()
	defer e.scopeMu.Unlock()

	for i := len(e.scopes) - 1; i >= 0; i-- {
		if e.scopes[i] == ctx {
			e.scopes = append(e.scopes[:i], e.scopes[i+1:]...)
			return
		}
	}
}

// CurrentContext returns the innermost open activation context, or
// nil.
func (e *Engine) CurrentContext() *ActivationContext {
	e.scopeMu.Lock()
	defer e.scopeMu.Unlock()

	if len(e.scopes) == 0 {
		return nil
	}
	return e.scopes[len(e.scopes)-1]
}

// RegisterItem registers the item, capturing the current activation
// context. Registering a second non-abstract item with the same
// (type, name) fails with a duplicate-definition error.
func (e *Engine) RegisterItem(item *Item) error {
	item.setContext(e.CurrentContext())
	return e.Items.register(item)
}

// UnregisterItem removes the item and its attached object. Idempotent.
func (e *Engine) UnregisterItem(item *Item) {
	e.Items.unregister(item)
}

// ResolveTemplate implements eval.TemplateResolver against the item
// registry. Named items retain their expressions after commit, so both
// templates and named concrete items can be imported.
func (e *Engine) ResolveTemplate(typeName, name string) (eval.Expression, error) {
	t := e.Types.GetByName(typeName)
	if t == nil {
		return nil, fmt.Errorf("unknown type %q in template import", typeName)
	}

	item := e.Items.GetByTypeAndName(t, name)
	if item == nil {
		return nil, fmt.Errorf("template %q of type %q does not exist", name, typeName)
	}

	expr := item.Expression()
	if expr == nil {
		return nil, fmt.Errorf("template %q of type %q has no expression", name, typeName)
	}
	return expr, nil
}

// DefaultTemplates implements eval.TemplateResolver.
func (e *Engine) DefaultTemplates(typeName string) []eval.Expression {
	t := e.Types.GetByName(typeName)
	if t == nil {
		return nil
	}

	var exprs []eval.Expression
	for _, item := range e.Items.GetDefaultTemplates(t) {
		if expr := item.Expression(); expr != nil {
			exprs = append(exprs, expr)
		}
	}
	return exprs
}

// LookupObject implements eval.ObjectLookup against the live per-type
// object indices.
func (e *Engine) LookupObject(typeName, name string) objects.ConfigObject {
	t := e.Types.GetByName(typeName)
	if t == nil {
		return nil
	}
	return t.GetObject(name)
}

// validationUtils resolves attribute-level cross references to
// non-abstract registered items.
type validationUtils struct {
	engine *Engine
}

// ValidateName implements objects.ValidationUtils.
func (u validationUtils) ValidateName(typeName, name string) bool {
	t := u.engine.Types.GetByName(typeName)
	if t == nil {
		return false
	}

	item := u.engine.Items.GetByTypeAndName(t, name)
	return item != nil && !item.IsAbstract()
}
