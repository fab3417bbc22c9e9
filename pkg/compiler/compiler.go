// Package compiler loads config item declarations from CUE documents
// and registers them with the lifecycle engine. Declarations carry
// their object expression as Starlark source.
package compiler

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/go-playground/validator/v10"

	"github.com/gunnarbeutner/icinga2/pkg/config"
	"github.com/gunnarbeutner/icinga2/pkg/eval"
	"github.com/gunnarbeutner/icinga2/pkg/objects"
	"github.com/gunnarbeutner/icinga2/pkg/telemetry"
)

// ItemDocument is the declaration form of one config item.
type ItemDocument struct {
	// Type is the config object type name.
	Type string `json:"type" validate:"required"`

	// Name is the item name. Composite-named types may leave it empty.
	Name string `json:"name"`

	// Abstract marks the item as a template.
	Abstract bool `json:"abstract,omitempty"`

	// DefaultTemplate marks the item as a default template.
	DefaultTemplate bool `json:"default_template,omitempty"`

	// IgnoreOnError makes per-item commit errors non-fatal.
	IgnoreOnError bool `json:"ignore_on_error,omitempty"`

	// Zone is the zone name stamped onto the object.
	Zone string `json:"zone,omitempty"`

	// Package is the configuration package.
	Package string `json:"package,omitempty"`

	// CreationType records how the item came to exist.
	CreationType string `json:"creation_type,omitempty" validate:"omitempty,oneof=object template apply"`

	// Scope is the item's variable bindings, visible to the
	// expression.
	Scope map[string]interface{} `json:"scope,omitempty"`

	// Imports lists templates evaluated before the expression.
	Imports []string `json:"imports,omitempty"`

	// Expression is the Starlark source assigning the object's fields.
	Expression string `json:"expression,omitempty"`
}

// Compiler parses item declaration documents and registers the
// resulting items.
type Compiler struct {
	ctx       *cue.Context
	validator *validator.Validate
	engine    *config.Engine
	log       *telemetry.Logger
}

// New creates a compiler registering items with the given engine.
func New(engine *config.Engine, log *telemetry.Logger) *Compiler {
	if log == nil {
		log = telemetry.NopLogger()
	}
	return &Compiler{
		ctx:       cuecontext.New(),
		validator: validator.New(),
		engine:    engine,
		log:       log.NewComponentLogger("compiler"),
	}
}

// CompilePath loads a declaration file, or every *.cue file of a
// directory, and registers the declared items. Returns the registered
// items in declaration order.
func (c *Compiler) CompilePath(path string) ([]*config.Item, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat source %s: %w", path, err)
	}

	if !info.IsDir() {
		return c.CompileFile(path)
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", path, err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".cue") {
			continue
		}
		files = append(files, filepath.Join(path, entry.Name()))
	}
	sort.Strings(files)

	var items []*config.Item
	for _, file := range files {
		fileItems, err := c.CompileFile(file)
		if err != nil {
			return nil, err
		}
		items = append(items, fileItems...)
	}

	return items, nil
}

// CompileFile parses one CUE declaration file and registers its items.
func (c *Compiler) CompileFile(path string) ([]*config.Item, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	value := c.ctx.CompileBytes(data, cue.Filename(path))
	if err := value.Err(); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	itemsValue := value.LookupPath(cue.ParsePath("items"))
	if !itemsValue.Exists() {
		return nil, fmt.Errorf("%s declares no items", path)
	}

	iter, err := itemsValue.List()
	if err != nil {
		return nil, fmt.Errorf("items in %s must be a list: %w", path, err)
	}

	var items []*config.Item

	for iter.Next() {
		elem := iter.Value()

		var doc ItemDocument
		if err := elem.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode item in %s: %w", path, err)
		}

		di := debugInfoFor(path, elem)

		item, err := c.buildItem(&doc, di)
		if err != nil {
			return nil, err
		}

		if err := c.engine.RegisterItem(item); err != nil {
			return nil, err
		}

		c.log.WithObject(doc.Type, doc.Name).Debug("Registered config item")
		items = append(items, item)
	}

	return items, nil
}

func (c *Compiler) buildItem(doc *ItemDocument, di objects.DebugInfo) (*config.Item, error) {
	if err := c.validator.Struct(doc); err != nil {
		return nil, fmt.Errorf("item %s/%s at %s is invalid: %w", doc.Type, doc.Name, di, err)
	}

	t := c.engine.Types.GetByName(doc.Type)
	if t == nil {
		return nil, config.NewError(config.ErrUnknownType,
			fmt.Sprintf("type %q does not exist", doc.Type), di)
	}

	builder := config.NewItemBuilder()
	builder.SetType(t)
	builder.SetName(doc.Name)
	builder.SetAbstract(doc.Abstract)
	builder.SetDefaultTemplate(doc.DefaultTemplate)
	builder.SetIgnoreOnError(doc.IgnoreOnError)
	builder.SetZone(doc.Zone)
	builder.SetPackage(doc.Package)
	builder.SetDebugInfo(di)
	builder.SetScope(doc.Scope)

	if doc.CreationType != "" {
		builder.SetCreationType(doc.CreationType)
	} else if doc.Abstract {
		builder.SetCreationType("template")
	}

	for _, imp := range doc.Imports {
		builder.AddExpression(&eval.ImportExpression{Name: imp})
	}

	if doc.Expression != "" {
		expr, err := eval.CompileString(fmt.Sprintf("%s:%s/%s", di.Path, doc.Type, doc.Name), doc.Expression)
		if err != nil {
			return nil, config.WrapError(config.ErrExpressionEvaluation,
				fmt.Sprintf("failed to compile expression for item %q", doc.Name), di, err)
		}
		builder.AddExpression(expr)
	}

	return builder.Compile()
}

// debugInfoFor derives the declaration span from the CUE value's
// source position.
func debugInfoFor(path string, value cue.Value) objects.DebugInfo {
	di := objects.DebugInfo{
		Path:        path,
		FirstLine:   1,
		FirstColumn: 1,
		LastLine:    1,
		LastColumn:  1,
	}

	if pos := value.Pos(); pos.Line() > 0 {
		di.FirstLine = pos.Line()
		di.FirstColumn = pos.Column()
		di.LastLine = pos.Line()
		di.LastColumn = pos.Column()
	}

	return di
}
