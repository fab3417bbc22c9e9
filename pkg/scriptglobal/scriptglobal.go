// Package scriptglobal holds the registry of script-visible global
// variables. Globals are stored in a nested dictionary; dotted names
// address nested entries.
package scriptglobal

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Registry is a dictionary of script-global variables.
type Registry struct {
	mu      sync.Mutex
	globals map[string]interface{}
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		globals: make(map[string]interface{}),
	}
}

// Get returns the variable with the given dotted name. Accessing an
// undefined variable is an error.
func (r *Registry) Get(name string) (interface{}, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	value, ok := r.lookup(name)
	if !ok {
		return nil, fmt.Errorf("tried to access undefined script variable %q", name)
	}
	return value, nil
}

// GetOrDefault returns the variable with the given dotted name, or the
// default when undefined.
func (r *Registry) GetOrDefault(name string, def interface{}) interface{} {
	r.mu.Lock()
	defer r.mu.Unlock()

	if value, ok := r.lookup(name); ok {
		return value
	}
	return def
}

func (r *Registry) lookup(name string) (interface{}, bool) {
	var current interface{} = r.globals
	for _, token := range strings.Split(name, ".") {
		dict, ok := current.(map[string]interface{})
		if !ok {
			return nil, false
		}
		current, ok = dict[token]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// Set stores a variable under the given dotted name, creating
// intermediate dictionaries as needed.
func (r *Registry) Set(name string, value interface{}) error {
	tokens := strings.Split(name, ".")
	if len(tokens) == 0 || tokens[0] == "" {
		return fmt.Errorf("name must not be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	parent := r.globals
	for i := 0; i+1 < len(tokens); i++ {
		child, ok := parent[tokens[i]].(map[string]interface{})
		if !ok {
			child = make(map[string]interface{})
			parent[tokens[i]] = child
		}
		parent = child
	}

	parent[tokens[len(tokens)-1]] = value
	return nil
}

// Exists reports whether a top-level variable with the given name is
// defined.
func (r *Registry) Exists(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.globals[name]
	return ok
}

// Globals returns a shallow snapshot of the top-level variables.
func (r *Registry) Globals() map[string]interface{} {
	r.mu.Lock()
	defer r.mu.Unlock()

	snapshot := make(map[string]interface{}, len(r.globals))
	for k, v := range r.globals {
		snapshot[k] = v
	}
	return snapshot
}

// WriteToFile dumps all variables as JSON lines, one {"name": ...,
// "value": ...} record per variable. The file is replaced atomically.
func (r *Registry) WriteToFile(filename string) error {
	tmp, err := os.CreateTemp(filepath.Dir(filename), filepath.Base(filename)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", filename, err)
	}
	tmpName := tmp.Name()

	enc := json.NewEncoder(tmp)
	for name, value := range r.Globals() {
		record := map[string]interface{}{
			"name":  name,
			"value": value,
		}
		if err := enc.Encode(record); err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
			return fmt.Errorf("failed to write variable %s: %w", name, err)
		}
	}

	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}

	if err := os.Rename(tmpName, filename); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to replace %s: %w", filename, err)
	}

	return nil
}
