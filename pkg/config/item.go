package config

import (
	"fmt"
	"sync"

	"github.com/gunnarbeutner/icinga2/pkg/eval"
	"github.com/gunnarbeutner/icinga2/pkg/objects"
)

// Item is the declarative, pre-instantiation record of a config object.
// Items are created once by the compiler and mutated only to attach or
// detach the instantiated object and to discard the expression after a
// single-use commit.
type Item struct {
	typ           *objects.Type
	name          string
	abstract      bool
	defaultTmpl   bool
	ignoreOnError bool
	debugInfo     objects.DebugInfo
	scope         map[string]interface{}
	zone          string
	pkg           string
	creationType  string
	filter        eval.Expression

	mu         sync.Mutex
	expression eval.Expression
	object     objects.ConfigObject
	context    *ActivationContext
}

// Type returns the item's type descriptor.
func (i *Item) Type() *objects.Type {
	return i.typ
}

// Name returns the item name.
func (i *Item) Name() string {
	return i.name
}

// IsAbstract reports whether the item is a template.
func (i *Item) IsAbstract() bool {
	return i.abstract
}

// IsDefaultTemplate reports whether the item is a default template.
func (i *Item) IsDefaultTemplate() bool {
	return i.defaultTmpl
}

// IsIgnoreOnError reports whether per-item errors mark the item
// ignored instead of failing the batch.
func (i *Item) IsIgnoreOnError() bool {
	return i.ignoreOnError
}

// DebugInfo returns the declaration source location.
func (i *Item) DebugInfo() objects.DebugInfo {
	return i.debugInfo
}

// Scope returns the item's variable bindings.
func (i *Item) Scope() map[string]interface{} {
	return i.scope
}

// Zone returns the zone name.
func (i *Item) Zone() string {
	return i.zone
}

// Package returns the configuration package.
func (i *Item) Package() string {
	return i.pkg
}

// CreationType returns how the item came to exist (object, template,
// apply).
func (i *Item) CreationType() string {
	return i.creationType
}

// Expression returns the item's expression, or nil after it has been
// discarded.
func (i *Item) Expression() eval.Expression {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.expression
}

// Filter returns the item's filter expression, or nil.
func (i *Item) Filter() eval.Expression {
	return i.filter
}

// Object returns the instantiated object, or nil before Commit and
// after Unregister.
func (i *Item) Object() objects.ConfigObject {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.object
}

// ActivationContext returns the context captured at registration.
func (i *Item) ActivationContext() *ActivationContext {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.context
}

func (i *Item) setContext(ctx *ActivationContext) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.context = ctx
}

func (i *Item) attachObject(obj objects.ConfigObject) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.object = obj
}

func (i *Item) detachObject() objects.ConfigObject {
	i.mu.Lock()
	defer i.mu.Unlock()
	obj := i.object
	i.object = nil
	return obj
}

func (i *Item) discardExpression() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.expression = nil
}

// ItemBuilder assembles items the way the compiler produces them.
type ItemBuilder struct {
	typ           *objects.Type
	name          string
	abstract      bool
	defaultTmpl   bool
	ignoreOnError bool
	debugInfo     objects.DebugInfo
	scope         map[string]interface{}
	zone          string
	pkg           string
	creationType  string
	filter        eval.Expression
	expressions   eval.ExpressionList
}

// NewItemBuilder creates an empty builder. The creation type defaults
// to "object".
func NewItemBuilder() *ItemBuilder {
	return &ItemBuilder{
		creationType: "object",
	}
}

// SetType sets the item's type descriptor.
func (b *ItemBuilder) SetType(t *objects.Type) *ItemBuilder {
	b.typ = t
	return b
}

// SetName sets the item name.
func (b *ItemBuilder) SetName(name string) *ItemBuilder {
	b.name = name
	return b
}

// SetAbstract marks the item as a template.
func (b *ItemBuilder) SetAbstract(abstract bool) *ItemBuilder {
	b.abstract = abstract
	return b
}

// SetDefaultTemplate marks the item as a default template.
func (b *ItemBuilder) SetDefaultTemplate(defaultTmpl bool) *ItemBuilder {
	b.defaultTmpl = defaultTmpl
	return b
}

// SetIgnoreOnError makes per-item errors non-fatal.
func (b *ItemBuilder) SetIgnoreOnError(ignoreOnError bool) *ItemBuilder {
	b.ignoreOnError = ignoreOnError
	return b
}

// SetDebugInfo records the declaration source location.
func (b *ItemBuilder) SetDebugInfo(di objects.DebugInfo) *ItemBuilder {
	b.debugInfo = di
	return b
}

// SetScope sets the item's variable bindings.
func (b *ItemBuilder) SetScope(scope map[string]interface{}) *ItemBuilder {
	b.scope = scope
	return b
}

// SetZone sets the zone name.
func (b *ItemBuilder) SetZone(zone string) *ItemBuilder {
	b.zone = zone
	return b
}

// SetPackage sets the configuration package.
func (b *ItemBuilder) SetPackage(pkg string) *ItemBuilder {
	b.pkg = pkg
	return b
}

// SetCreationType records how the item came to exist.
func (b *ItemBuilder) SetCreationType(creationType string) *ItemBuilder {
	b.creationType = creationType
	return b
}

// SetFilter sets the item's filter expression.
func (b *ItemBuilder) SetFilter(filter eval.Expression) *ItemBuilder {
	b.filter = filter
	return b
}

// AddExpression appends an expression to the item's expression list.
func (b *ItemBuilder) AddExpression(expr eval.Expression) *ItemBuilder {
	b.expressions = append(b.expressions, expr)
	return b
}

// Compile produces the item.
func (b *ItemBuilder) Compile() (*Item, error) {
	if b.typ == nil {
		return nil, fmt.Errorf("item type must be set")
	}

	var expr eval.Expression
	switch len(b.expressions) {
	case 0:
	case 1:
		expr = b.expressions[0]
	default:
		expr = b.expressions
	}

	return &Item{
		typ:           b.typ,
		name:          b.name,
		abstract:      b.abstract,
		defaultTmpl:   b.defaultTmpl,
		ignoreOnError: b.ignoreOnError,
		debugInfo:     b.debugInfo,
		scope:         b.scope,
		zone:          b.zone,
		pkg:           b.pkg,
		creationType:  b.creationType,
		filter:        b.filter,
		expression:    expr,
	}, nil
}
