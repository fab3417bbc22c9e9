package objects

import (
	"fmt"
	"sort"
	"sync"
)

// NameComposer is an optional per-type capability that derives the
// canonical object name from a short name plus the instance. Types with
// a composer produce composite-named ("unnamed") items.
type NameComposer interface {
	MakeName(shortName string, obj ConfigObject) string
}

// TypeOptions configures a new type descriptor.
type TypeOptions struct {
	// Name is the unique type name.
	Name string

	// PluralName is used in log output; defaults to Name + "s".
	PluralName string

	// Factory creates a blank object of this type. A nil factory
	// declares a value type that cannot be instantiated as a config
	// object.
	Factory func() ConfigObject

	// Fields describes the object fields in ID order.
	Fields []Field

	// LoadDependencies lists type names whose OnAllConfigLoaded must
	// complete before this type's runs.
	LoadDependencies []string

	// Composer, when set, gives the type composite-name semantics.
	Composer NameComposer
}

// Type is a config object type descriptor. It owns the live index of
// registered objects of the type.
type Type struct {
	name       string
	pluralName string
	factory    func() ConfigObject
	fields     []Field
	fieldIndex map[string]int
	loadDeps   []string
	composer   NameComposer

	mu      sync.Mutex
	objects map[string]ConfigObject
}

// NewType creates a type descriptor from the given options.
func NewType(opts TypeOptions) *Type {
	plural := opts.PluralName
	if plural == "" {
		plural = opts.Name + "s"
	}

	t := &Type{
		name:       opts.Name,
		pluralName: plural,
		factory:    opts.Factory,
		fields:     opts.Fields,
		fieldIndex: make(map[string]int, len(opts.Fields)),
		loadDeps:   opts.LoadDependencies,
		composer:   opts.Composer,
		objects:    make(map[string]ConfigObject),
	}

	for i := range t.fields {
		t.fields[i].ID = i
		t.fieldIndex[t.fields[i].Name] = i
	}

	return t
}

// Name returns the type name.
func (t *Type) Name() string {
	return t.name
}

// PluralName returns the plural type name used in log output.
func (t *Type) PluralName() string {
	return t.pluralName
}

// IsObjectType reports whether the type can be instantiated as a
// config object.
func (t *Type) IsObjectType() bool {
	return t != nil && t.factory != nil
}

// Instantiate creates a blank object of this type.
func (t *Type) Instantiate() ConfigObject {
	obj := t.factory()
	obj.Bind(t, obj)
	return obj
}

// FieldCount returns the number of declared fields.
func (t *Type) FieldCount() int {
	return len(t.fields)
}

// FieldInfo returns the field descriptor with the given id.
func (t *Type) FieldInfo(id int) (Field, error) {
	if id < 0 || id >= len(t.fields) {
		return Field{}, fmt.Errorf("type %s has no field with id %d", t.name, id)
	}
	return t.fields[id], nil
}

// FieldID returns the id of the named field, or -1.
func (t *Type) FieldID(name string) int {
	if id, ok := t.fieldIndex[name]; ok {
		return id
	}
	return -1
}

// LoadDependencies returns the declared load-dependency type names.
func (t *Type) LoadDependencies() []string {
	return t.loadDeps
}

// Composer returns the type's name composer, or nil.
func (t *Type) Composer() NameComposer {
	return t.composer
}

// GetObject returns the live registered object with the given name, or
// nil.
func (t *Type) GetObject(name string) ConfigObject {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.objects[name]
}

// GetObjects returns a snapshot of all live objects of this type.
func (t *Type) GetObjects() []ConfigObject {
	t.mu.Lock()
	defer t.mu.Unlock()

	objs := make([]ConfigObject, 0, len(t.objects))
	for _, obj := range t.objects {
		objs = append(objs, obj)
	}
	return objs
}

func (t *Type) registerObject(obj ConfigObject) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	name := obj.Name()
	if existing, ok := t.objects[name]; ok && existing != obj {
		return fmt.Errorf("an object of type %s with name %s already exists", t.name, name)
	}

	t.objects[name] = obj
	return nil
}

func (t *Type) unregisterObject(obj ConfigObject) {
	t.mu.Lock()
	defer t.mu.Unlock()

	name := obj.Name()
	if existing, ok := t.objects[name]; ok && existing == obj {
		delete(t.objects, name)
	}
}

// TypeRegistry indexes type descriptors by name.
type TypeRegistry struct {
	mu    sync.RWMutex
	types map[string]*Type
}

// NewTypeRegistry creates an empty type registry.
func NewTypeRegistry() *TypeRegistry {
	return &TypeRegistry{
		types: make(map[string]*Type),
	}
}

// Register adds a type descriptor. Registering two types with the same
// name is an error.
func (r *TypeRegistry) Register(t *Type) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.types[t.name]; exists {
		return fmt.Errorf("type %s is already registered", t.name)
	}

	r.types[t.name] = t
	return nil
}

// GetByName returns the type with the given name, or nil.
func (r *TypeRegistry) GetByName(name string) *Type {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.types[name]
}

// GetAllTypes returns all registered types sorted by name.
func (r *TypeRegistry) GetAllTypes() []*Type {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]*Type, 0, len(r.types))
	for _, t := range r.types {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i].name < types[j].name })
	return types
}

// ConfigObjectTypes returns all registered types that can be
// instantiated as config objects, sorted by name.
func (r *TypeRegistry) ConfigObjectTypes() []*Type {
	all := r.GetAllTypes()
	types := all[:0]
	for _, t := range all {
		if t.IsObjectType() {
			types = append(types, t)
		}
	}
	return types
}
