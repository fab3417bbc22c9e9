// Package eval evaluates config item expressions against a blank
// config object. Expressions are Starlark scripts; template imports and
// the synthetic expressions used during reload are composed with them
// through the Expression interface.
package eval

import (
	"fmt"

	"github.com/gunnarbeutner/icinga2/pkg/objects"
)

// maxImportDepth bounds template import chains.
const maxImportDepth = 64

// TemplateResolver resolves template imports against the item registry.
type TemplateResolver interface {
	// ResolveTemplate returns the expression of the item (typeName,
	// name). The item does not have to be abstract; named concrete
	// items may be imported too.
	ResolveTemplate(typeName, name string) (Expression, error)

	// DefaultTemplates returns the expressions of all default
	// templates registered for the type.
	DefaultTemplates(typeName string) []Expression
}

// ObjectLookup resolves live objects by type and name. Used by
// standalone scripts such as the modified-attributes file.
type ObjectLookup interface {
	LookupObject(typeName, name string) objects.ConfigObject
}

// Frame is the evaluation context for one expression: the receiving
// object, the item's scope bindings and the debug-hint sink.
type Frame struct {
	// Self is the object config expressions assign fields on. May be
	// nil for standalone scripts.
	Self objects.ConfigObject

	// TypeName is the config type the expression belongs to, used to
	// resolve template imports.
	TypeName string

	// Locals are the item's scope bindings, exposed as predeclared
	// variables.
	Locals map[string]interface{}

	// Resolver resolves template imports. May be nil when the
	// expression contains none.
	Resolver TemplateResolver

	// Lookup resolves live objects for standalone scripts. May be nil.
	Lookup ObjectLookup

	// Hints collects debug hints for fields set during evaluation. May
	// be nil.
	Hints *DebugHints

	depth int
}

// Expression is an evaluable config fragment.
type Expression interface {
	Evaluate(frame *Frame) error
}

// ExprFunc adapts a Go function to the Expression interface.
type ExprFunc func(frame *Frame) error

// Evaluate implements Expression.
func (f ExprFunc) Evaluate(frame *Frame) error {
	return f(frame)
}

// ExpressionList evaluates its expressions in order, stopping at the
// first error.
type ExpressionList []Expression

// Evaluate implements Expression.
func (l ExpressionList) Evaluate(frame *Frame) error {
	for _, expr := range l {
		if err := expr.Evaluate(frame); err != nil {
			return err
		}
	}
	return nil
}

// ImportExpression imports the named template: the template item's
// expression is evaluated in the current frame.
type ImportExpression struct {
	Name string
}

// Evaluate implements Expression.
func (e *ImportExpression) Evaluate(frame *Frame) error {
	if frame.Resolver == nil {
		return fmt.Errorf("cannot import %s: no template resolver", e.Name)
	}
	if frame.depth >= maxImportDepth {
		return fmt.Errorf("template import chain too deep at %s", e.Name)
	}

	expr, err := frame.Resolver.ResolveTemplate(frame.TypeName, e.Name)
	if err != nil {
		return err
	}

	frame.depth++
	defer func() { frame.depth-- }()
	return expr.Evaluate(frame)
}

// ImportDefaultTemplatesExpression imports every default template
// registered for the frame's type. Used by the reload path to rebuild
// an object the way a fresh declaration would.
type ImportDefaultTemplatesExpression struct{}

// Evaluate implements Expression.
func (ImportDefaultTemplatesExpression) Evaluate(frame *Frame) error {
	if frame.Resolver == nil {
		return nil
	}
	if frame.depth >= maxImportDepth {
		return fmt.Errorf("template import chain too deep")
	}

	frame.depth++
	defer func() { frame.depth-- }()

	for _, expr := range frame.Resolver.DefaultTemplates(frame.TypeName) {
		if err := expr.Evaluate(frame); err != nil {
			return err
		}
	}
	return nil
}
