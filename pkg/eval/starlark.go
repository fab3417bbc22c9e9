package eval

import (
	"fmt"
	"os"
	"sort"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/gunnarbeutner/icinga2/pkg/objects"
)

// StarlarkExpression is a config expression written in Starlark. The
// receiving object is exposed as `this`; templates are pulled in with
// `import_template("name")`; scope bindings appear as predeclared
// variables.
type StarlarkExpression struct {
	filename string
	source   string
}

// CompileString syntax-checks the given Starlark source and returns it
// as an expression.
func CompileString(filename, source string) (*StarlarkExpression, error) {
	if filename == "" {
		filename = "<config>"
	}
	if _, err := syntax.Parse(filename, source, 0); err != nil {
		return nil, fmt.Errorf("failed to parse expression %s: %w", filename, err)
	}
	return &StarlarkExpression{filename: filename, source: source}, nil
}

// CompileFile reads and syntax-checks a Starlark file. Used for the
// modified-attributes file.
func CompileFile(path string) (*StarlarkExpression, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read expression file %s: %w", path, err)
	}
	return CompileString(path, string(data))
}

// Filename returns the source path the expression was compiled from.
func (e *StarlarkExpression) Filename() string {
	return e.filename
}

// Evaluate implements Expression.
func (e *StarlarkExpression) Evaluate(frame *Frame) error {
	thread := &starlark.Thread{
		Name: "config",
		Print: func(_ *starlark.Thread, msg string) {
			// config expressions have no output channel
		},
	}

	predeclared := starlark.StringDict{}

	if frame.Self != nil {
		predeclared["this"] = &objectValue{obj: frame.Self, source: e.filename, hints: frame.Hints}
	}

	if frame.Resolver != nil {
		predeclared["import_template"] = starlark.NewBuiltin("import_template", func(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
			var name string
			if err := starlark.UnpackArgs(b.Name(), args, kwargs, "name", &name); err != nil {
				return nil, err
			}
			imp := &ImportExpression{Name: name}
			if err := imp.Evaluate(frame); err != nil {
				return nil, err
			}
			return starlark.None, nil
		})
	}

	if frame.Lookup != nil {
		predeclared["get_object"] = starlark.NewBuiltin("get_object", func(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
			var typeName, name string
			if err := starlark.UnpackArgs(b.Name(), args, kwargs, "type", &typeName, "name", &name); err != nil {
				return nil, err
			}
			obj := frame.Lookup.LookupObject(typeName, name)
			if obj == nil {
				return starlark.None, nil
			}
			return &objectValue{obj: obj, source: e.filename, hints: frame.Hints}, nil
		})
	}

	for key, val := range frame.Locals {
		sval, err := toStarlarkValue(val)
		if err != nil {
			return fmt.Errorf("failed to convert scope variable %s: %w", key, err)
		}
		predeclared[key] = sval
	}

	if _, err := starlark.ExecFile(thread, e.filename, e.source, predeclared); err != nil {
		return fmt.Errorf("expression evaluation failed at %s: %w", e.filename, err)
	}

	return nil
}

// objectValue exposes a ConfigObject to Starlark. Attribute access maps
// to the object's declared fields; `name` maps to the short name.
type objectValue struct {
	obj    objects.ConfigObject
	source string
	hints  *DebugHints
}

var (
	_ starlark.Value       = (*objectValue)(nil)
	_ starlark.HasAttrs    = (*objectValue)(nil)
	_ starlark.HasSetField = (*objectValue)(nil)
)

func (v *objectValue) String() string {
	return fmt.Sprintf("<%s %s>", v.obj.Reflection().Name(), v.obj.Name())
}

func (v *objectValue) Type() string         { return "config_object" }
func (v *objectValue) Freeze()              {}
func (v *objectValue) Truth() starlark.Bool { return starlark.True }

func (v *objectValue) Hash() (uint32, error) {
	return 0, fmt.Errorf("unhashable type: config_object")
}

// Attr implements starlark.HasAttrs.
func (v *objectValue) Attr(name string) (starlark.Value, error) {
	if name == "name" {
		short := v.obj.ShortName()
		if short == "" {
			short = v.obj.Name()
		}
		return starlark.String(short), nil
	}

	t := v.obj.Reflection()
	id := t.FieldID(name)
	if id < 0 {
		return nil, nil // no such attribute
	}

	value, err := v.obj.GetField(id)
	if err != nil {
		return nil, err
	}
	return toStarlarkValue(value)
}

// AttrNames implements starlark.HasAttrs.
func (v *objectValue) AttrNames() []string {
	t := v.obj.Reflection()
	names := make([]string, 0, t.FieldCount()+1)
	names = append(names, "name")
	for i := 0; i < t.FieldCount(); i++ {
		field, err := t.FieldInfo(i)
		if err != nil {
			continue
		}
		names = append(names, field.Name)
	}
	sort.Strings(names)
	return names
}

// SetField implements starlark.HasSetField.
func (v *objectValue) SetField(name string, val starlark.Value) error {
	goVal, err := fromStarlarkValue(val)
	if err != nil {
		return fmt.Errorf("cannot assign %s: %w", name, err)
	}

	if name == "name" {
		s, ok := goVal.(string)
		if !ok {
			return fmt.Errorf("name must be a string, got %s", val.Type())
		}
		v.obj.SetShortName(s)
		v.hints.AddProperty("name", v.source)
		return nil
	}

	t := v.obj.Reflection()
	id := t.FieldID(name)
	if id < 0 {
		return fmt.Errorf("type %s has no field %s", t.Name(), name)
	}

	if err := v.obj.SetField(id, goVal); err != nil {
		return err
	}
	v.hints.AddProperty(name, v.source)
	return nil
}

// toStarlarkValue converts a Go value to a Starlark value.
func toStarlarkValue(v interface{}) (starlark.Value, error) {
	if v == nil {
		return starlark.None, nil
	}

	switch val := v.(type) {
	case bool:
		return starlark.Bool(val), nil
	case int:
		return starlark.MakeInt(val), nil
	case int64:
		return starlark.MakeInt64(val), nil
	case float64:
		return starlark.Float(val), nil
	case string:
		return starlark.String(val), nil
	case []interface{}:
		list := make([]starlark.Value, len(val))
		for i, item := range val {
			sv, err := toStarlarkValue(item)
			if err != nil {
				return nil, err
			}
			list[i] = sv
		}
		return starlark.NewList(list), nil
	case map[string]interface{}:
		dict := starlark.NewDict(len(val))
		for k, item := range val {
			sv, err := toStarlarkValue(item)
			if err != nil {
				return nil, err
			}
			if err := dict.SetKey(starlark.String(k), sv); err != nil {
				return nil, err
			}
		}
		return dict, nil
	default:
		return nil, fmt.Errorf("unsupported type: %T", v)
	}
}

// fromStarlarkValue converts a Starlark value to a Go value.
func fromStarlarkValue(v starlark.Value) (interface{}, error) {
	switch val := v.(type) {
	case starlark.NoneType:
		return nil, nil
	case starlark.Bool:
		return bool(val), nil
	case starlark.Int:
		i, ok := val.Int64()
		if !ok {
			return nil, fmt.Errorf("integer too large")
		}
		return i, nil
	case starlark.Float:
		return float64(val), nil
	case starlark.String:
		return string(val), nil
	case *starlark.List:
		list := make([]interface{}, val.Len())
		for i := 0; i < val.Len(); i++ {
			item, err := fromStarlarkValue(val.Index(i))
			if err != nil {
				return nil, err
			}
			list[i] = item
		}
		return list, nil
	case *starlark.Dict:
		dict := make(map[string]interface{})
		for _, item := range val.Items() {
			key, ok := item[0].(starlark.String)
			if !ok {
				return nil, fmt.Errorf("dict key must be string")
			}
			value, err := fromStarlarkValue(item[1])
			if err != nil {
				return nil, err
			}
			dict[string(key)] = value
		}
		return dict, nil
	default:
		return nil, fmt.Errorf("unsupported starlark type: %s", v.Type())
	}
}
