package depgraph

import (
	"testing"

	"github.com/gunnarbeutner/icinga2/pkg/objects"
)

type node struct {
	objects.ObjectBase
}

func newNodeType() *objects.Type {
	return objects.NewType(objects.TypeOptions{
		Name:    "Node",
		Factory: func() objects.ConfigObject { return &node{} },
	})
}

func TestAddAndGetParents(t *testing.T) {
	typ := newNodeType()
	g := New()

	host := typ.Instantiate()
	serviceA := typ.Instantiate()
	serviceB := typ.Instantiate()

	g.AddDependency(serviceA, host)
	g.AddDependency(serviceB, host)

	parents := g.GetParents(host)
	if len(parents) != 2 {
		t.Fatalf("expected 2 parents, got %d", len(parents))
	}

	if got := g.GetParents(serviceA); len(got) != 0 {
		t.Errorf("expected no parents for a leaf, got %d", len(got))
	}
}

func TestRemoveDependency(t *testing.T) {
	typ := newNodeType()
	g := New()

	host := typ.Instantiate()
	service := typ.Instantiate()

	g.AddDependency(service, host)
	g.RemoveDependency(service, host)

	if got := g.GetParents(host); len(got) != 0 {
		t.Errorf("expected no parents after removal, got %d", len(got))
	}

	// Removing an absent edge is a no-op.
	g.RemoveDependency(service, host)
}

func TestRemoveObjectDropsAllEdges(t *testing.T) {
	typ := newNodeType()
	g := New()

	a := typ.Instantiate()
	b := typ.Instantiate()
	c := typ.Instantiate()

	g.AddDependency(b, a)
	g.AddDependency(c, b)

	g.RemoveObject(b)

	if got := g.GetParents(a); len(got) != 0 {
		t.Errorf("expected b's edge to a to be gone, got %d parents", len(got))
	}
	if got := g.GetParents(b); len(got) != 0 {
		t.Errorf("expected c's edge to b to be gone, got %d parents", len(got))
	}
}

func TestDuplicateEdgesCollapse(t *testing.T) {
	typ := newNodeType()
	g := New()

	a := typ.Instantiate()
	b := typ.Instantiate()

	g.AddDependency(b, a)
	g.AddDependency(b, a)

	if got := g.GetParents(a); len(got) != 1 {
		t.Errorf("expected one parent, got %d", len(got))
	}
}
