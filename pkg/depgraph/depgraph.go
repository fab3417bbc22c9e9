// Package depgraph tracks dependencies between live config objects.
// An edge (parent, child) records that parent depends on child; the
// reload path deletes an object together with everything that depends
// on it by walking GetParents.
package depgraph

import (
	"sync"

	"github.com/gunnarbeutner/icinga2/pkg/objects"
)

// Graph is a concurrent-safe dependency graph over config objects.
type Graph struct {
	mu sync.Mutex

	// parents maps a child object to the set of objects depending on
	// it.
	parents map[objects.ConfigObject]map[objects.ConfigObject]struct{}
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{
		parents: make(map[objects.ConfigObject]map[objects.ConfigObject]struct{}),
	}
}

// AddDependency records that parent depends on child.
func (g *Graph) AddDependency(parent, child objects.ConfigObject) {
	g.mu.Lock()
	defer g.mu.Unlock()

	set, ok := g.parents[child]
	if !ok {
		set = make(map[objects.ConfigObject]struct{})
		g.parents[child] = set
	}
	set[parent] = struct{}{}
}

// RemoveDependency removes a previously recorded edge.
func (g *Graph) RemoveDependency(parent, child objects.ConfigObject) {
	g.mu.Lock()
	defer g.mu.Unlock()

	set, ok := g.parents[child]
	if !ok {
		return
	}
	delete(set, parent)
	if len(set) == 0 {
		delete(g.parents, child)
	}
}

// RemoveObject drops every edge the object participates in.
func (g *Graph) RemoveObject(obj objects.ConfigObject) {
	g.mu.Lock()
	defer g.mu.Unlock()

	delete(g.parents, obj)
	for child, set := range g.parents {
		delete(set, obj)
		if len(set) == 0 {
			delete(g.parents, child)
		}
	}
}

// GetParents returns the objects directly depending on child.
func (g *Graph) GetParents(child objects.ConfigObject) []objects.ConfigObject {
	g.mu.Lock()
	defer g.mu.Unlock()

	set := g.parents[child]
	result := make([]objects.ConfigObject, 0, len(set))
	for parent := range set {
		result = append(result, parent)
	}
	return result
}
