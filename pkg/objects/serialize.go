package objects

// Serialize returns the object's fields matching the attribute mask as
// a name-keyed map. The result is JSON-compatible and is what snapshot
// records persist under "properties".
func Serialize(obj ConfigObject, attrs FieldAttribute) (map[string]interface{}, error) {
	t := obj.Reflection()
	props := make(map[string]interface{})

	for i := 0; i < t.FieldCount(); i++ {
		field, err := t.FieldInfo(i)
		if err != nil {
			return nil, err
		}

		if field.Attributes&attrs == 0 {
			continue
		}

		value, err := obj.GetField(i)
		if err != nil {
			return nil, err
		}
		if value == nil {
			continue
		}

		props[field.Name] = value
	}

	return props, nil
}

// Deserialize copies the given properties onto the object, restricted
// to fields matching the attribute mask. Unknown property names are
// ignored.
func Deserialize(obj ConfigObject, props map[string]interface{}, attrs FieldAttribute) error {
	t := obj.Reflection()

	for name, value := range props {
		id := t.FieldID(name)
		if id < 0 {
			continue
		}

		field, err := t.FieldInfo(id)
		if err != nil {
			return err
		}
		if field.Attributes&attrs == 0 {
			continue
		}

		if err := obj.SetField(id, value); err != nil {
			return err
		}
	}

	return nil
}
