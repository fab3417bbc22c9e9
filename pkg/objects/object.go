package objects

import (
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
)

// ConfigObject is the live instance produced from a config item. Custom
// object types embed ObjectBase and override the lifecycle hooks they
// care about.
type ConfigObject interface {
	// Bind attaches the type descriptor and the outermost receiver.
	// Called exactly once by Type.Instantiate.
	Bind(t *Type, self ConfigObject)

	Reflection() *Type

	Name() string
	SetName(name string)
	ShortName() string
	SetShortName(name string)
	Zone() string
	SetZoneName(zone string)
	Package() string
	SetPackage(pkg string)
	CreationType() string
	SetCreationType(creationType string)
	DebugInfo() DebugInfo
	SetDebugInfo(di DebugInfo)

	GetField(id int) (interface{}, error)
	SetField(id int, value interface{}) error

	Extension(key string) interface{}
	SetExtension(key string, value interface{})

	// Validate checks every field carrying one of the given attributes
	// against its validate tag and resolves cross references through
	// utils.
	Validate(attrs FieldAttribute, utils ValidationUtils) error

	// Lifecycle hooks. The base implementations are no-ops.
	OnConfigLoaded() error
	OnAllConfigLoaded() error
	CreateChildObjects(childType *Type) error
	PreActivate() error
	Activate(runtimeCreated bool) error
	Deactivate(expected bool)
	IsActive() bool

	// Register adds the object to its type's live index; Unregister
	// removes it. Both are idempotent for the same instance.
	Register() error
	Unregister()
}

var fieldValidator = validator.New()

// ObjectBase is the canonical ConfigObject implementation. It stores
// field values indexed by the type's field descriptors.
type ObjectBase struct {
	mu sync.Mutex

	typ  *Type
	self ConfigObject

	name         string
	shortName    string
	zone         string
	pkg          string
	creationType string
	debugInfo    DebugInfo

	fields     []interface{}
	extensions map[string]interface{}

	active bool
}

// Bind implements ConfigObject.
func (o *ObjectBase) Bind(t *Type, self ConfigObject) {
	o.typ = t
	o.self = self
	o.fields = make([]interface{}, t.FieldCount())
	o.extensions = make(map[string]interface{})
}

// Reflection returns the object's type descriptor.
func (o *ObjectBase) Reflection() *Type {
	return o.typ
}

// Name returns the canonical object name.
func (o *ObjectBase) Name() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.name
}

// SetName sets the canonical object name.
func (o *ObjectBase) SetName(name string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.name = name
}

// ShortName returns the short name, or "" when no short name was
// recorded.
func (o *ObjectBase) ShortName() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.shortName
}

// SetShortName records the short name used to compose the canonical
// name.
func (o *ObjectBase) SetShortName(name string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.shortName = name
}

// Zone returns the zone name.
func (o *ObjectBase) Zone() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.zone
}

// SetZoneName sets the zone name.
func (o *ObjectBase) SetZoneName(zone string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.zone = zone
}

// Package returns the configuration package the object belongs to.
func (o *ObjectBase) Package() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.pkg
}

// SetPackage sets the configuration package.
func (o *ObjectBase) SetPackage(pkg string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.pkg = pkg
}

// CreationType returns how the object came to exist (object, template,
// apply).
func (o *ObjectBase) CreationType() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.creationType
}

// SetCreationType records how the object came to exist.
func (o *ObjectBase) SetCreationType(creationType string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.creationType = creationType
}

// DebugInfo returns the declaration source location.
func (o *ObjectBase) DebugInfo() DebugInfo {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.debugInfo
}

// SetDebugInfo records the declaration source location.
func (o *ObjectBase) SetDebugInfo(di DebugInfo) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.debugInfo = di
}

// GetField returns the value of the field with the given id.
func (o *ObjectBase) GetField(id int) (interface{}, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if id < 0 || id >= len(o.fields) {
		return nil, fmt.Errorf("type %s has no field with id %d", o.typ.Name(), id)
	}
	return o.fields[id], nil
}

// SetField sets the value of the field with the given id.
func (o *ObjectBase) SetField(id int, value interface{}) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if id < 0 || id >= len(o.fields) {
		return fmt.Errorf("type %s has no field with id %d", o.typ.Name(), id)
	}
	o.fields[id] = value
	return nil
}

// Extension returns the extension value stored under key, or nil.
func (o *ObjectBase) Extension(key string) interface{} {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.extensions[key]
}

// SetExtension stores an extension value under key.
func (o *ObjectBase) SetExtension(key string, value interface{}) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.extensions[key] = value
}

// Validate implements ConfigObject. Fields matching the attribute mask
// are checked against their validate tags; fields declaring a RefType
// must name a non-abstract registered item.
func (o *ObjectBase) Validate(attrs FieldAttribute, utils ValidationUtils) error {
	for i := 0; i < o.typ.FieldCount(); i++ {
		field, err := o.typ.FieldInfo(i)
		if err != nil {
			return err
		}

		if field.Attributes&attrs == 0 {
			continue
		}

		value, err := o.self.GetField(i)
		if err != nil {
			return err
		}

		if field.Validate != "" {
			if err := fieldValidator.Var(value, field.Validate); err != nil {
				return fmt.Errorf("validation failed for field %s: %w", field.Name, err)
			}
		}

		if field.RefType != "" && value != nil {
			ref, ok := value.(string)
			if !ok {
				return fmt.Errorf("field %s must be an object name string, got %T", field.Name, value)
			}
			if ref != "" && utils != nil && !utils.ValidateName(field.RefType, ref) {
				return fmt.Errorf("object %s of type %s referenced by field %s does not exist", ref, field.RefType, field.Name)
			}
		}
	}

	return nil
}

// OnConfigLoaded is called after the object's expression has been
// evaluated and validated.
func (o *ObjectBase) OnConfigLoaded() error {
	return nil
}

// OnAllConfigLoaded is called once every item in the batch has been
// committed, in load-dependency order.
func (o *ObjectBase) OnAllConfigLoaded() error {
	return nil
}

// CreateChildObjects may register new items of childType derived from
// this object.
func (o *ObjectBase) CreateChildObjects(childType *Type) error {
	return nil
}

// PreActivate runs before Activate across the whole batch.
func (o *ObjectBase) PreActivate() error {
	return nil
}

// Activate marks the object live.
func (o *ObjectBase) Activate(runtimeCreated bool) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.active = true
	return nil
}

// Deactivate marks the object inactive. The expected flag records
// whether the deactivation was deliberate (reload, delete) rather than
// a shutdown.
func (o *ObjectBase) Deactivate(expected bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.active = false
}

// IsActive reports whether the object is live.
func (o *ObjectBase) IsActive() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.active
}

// Register adds the object to its type's live index.
func (o *ObjectBase) Register() error {
	return o.typ.registerObject(o.self)
}

// Unregister removes the object from its type's live index.
func (o *ObjectBase) Unregister() {
	o.typ.unregisterObject(o.self)
}
