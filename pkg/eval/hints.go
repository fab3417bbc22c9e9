package eval

import "sync"

// DebugHints records which properties an expression set and where.
// Snapshot records persist the result under "debug_hints".
type DebugHints struct {
	mu         sync.Mutex
	properties map[string][]string
}

// NewDebugHints creates an empty hint collection.
func NewDebugHints() *DebugHints {
	return &DebugHints{
		properties: make(map[string][]string),
	}
}

// AddProperty records that the named property was set at the given
// source location.
func (h *DebugHints) AddProperty(name, location string) {
	if h == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.properties[name] = append(h.properties[name], location)
}

// ToMap returns the nested mapping persisted in snapshot records.
func (h *DebugHints) ToMap() map[string]interface{} {
	if h == nil {
		return nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	props := make(map[string]interface{}, len(h.properties))
	for name, locations := range h.properties {
		locs := make([]interface{}, len(locations))
		for i, l := range locations {
			locs[i] = l
		}
		props[name] = map[string]interface{}{"locations": locs}
	}
	return map[string]interface{}{"properties": props}
}
