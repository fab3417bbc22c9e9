package objects

// FieldAttribute is a bit mask classifying object fields. Configuration
// fields (FAConfig) are populated from config expressions, validated and
// serialized into snapshots; state fields (FAState) carry runtime state
// and are migrated across reloads.
type FieldAttribute uint8

const (
	// FAConfig marks a field as part of the object's configuration.
	FAConfig FieldAttribute = 1 << iota

	// FAState marks a field as runtime state.
	FAState
)

// Field describes one field of a config object type.
type Field struct {
	// ID is the field's index within the type.
	ID int

	// Name is the field name as it appears in config expressions and
	// serialized snapshots.
	Name string

	// Attributes classifies the field (FAConfig, FAState).
	Attributes FieldAttribute

	// Validate is an optional go-playground/validator tag evaluated
	// against the field value during Validate (e.g. "required,min=1").
	Validate string

	// RefType names a config object type this field references by name.
	// During validation the referenced (type, value) pair must resolve
	// to a non-abstract registered item.
	RefType string
}

// ValidationUtils resolves attribute-level cross references during
// object validation. The default implementation is backed by the item
// registry.
type ValidationUtils interface {
	// ValidateName reports whether a non-abstract item (type, name)
	// exists.
	ValidateName(typeName, name string) bool
}
