package config

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/gunnarbeutner/icinga2/pkg/objects"
	"github.com/gunnarbeutner/icinga2/pkg/telemetry"
)

// ItemRegistry indexes config items. Non-abstract items of composite-
// named types live in a separate unnamed list and skip the uniqueness
// check; everything else is keyed by (type, name). All mutations happen
// under one mutex, including the ignored-path list.
type ItemRegistry struct {
	mu sync.Mutex

	named            map[*objects.Type]map[string]*Item
	defaultTemplates map[*objects.Type]map[string]*Item
	unnamed          []*Item

	// order preserves registration order across both indices; commit
	// batches report new items in this order.
	order []*Item

	ignored []string

	log *telemetry.Logger
}

// NewItemRegistry creates an empty registry.
func NewItemRegistry(log *telemetry.Logger) *ItemRegistry {
	if log == nil {
		log = telemetry.NopLogger()
	}
	return &ItemRegistry{
		named:            make(map[*objects.Type]map[string]*Item),
		defaultTemplates: make(map[*objects.Type]map[string]*Item),
		log:              log.NewComponentLogger("ConfigItem"),
	}
}

// register adds the item to the indices. The caller has already
// captured the activation context on the item.
func (r *ItemRegistry) register(item *Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Non-abstract items of composite-named types go to the unnamed
	// list without a uniqueness check.
	if !item.IsAbstract() && item.Type().Composer() != nil {
		r.unnamed = append(r.unnamed, item)
		r.order = append(r.order, item)
		return nil
	}

	items, ok := r.named[item.Type()]
	if !ok {
		items = make(map[string]*Item)
		r.named[item.Type()] = items
	}

	if existing, ok := items[item.Name()]; ok {
		return NewError(ErrDuplicateDefinition,
			fmt.Sprintf("a configuration item of type %q and name %q already exists (%s), new declaration: %s",
				item.Type().Name(), item.Name(), existing.DebugInfo(), item.DebugInfo()),
			item.DebugInfo())
	}

	items[item.Name()] = item
	r.order = append(r.order, item)

	if item.IsDefaultTemplate() {
		templates, ok := r.defaultTemplates[item.Type()]
		if !ok {
			templates = make(map[string]*Item)
			r.defaultTemplates[item.Type()] = templates
		}
		templates[item.Name()] = item
	}

	return nil
}

// unregister removes the item from all indices. Idempotent. An
// attached object is unregistered first.
func (r *ItemRegistry) unregister(item *Item) {
	if obj := item.detachObject(); obj != nil {
		obj.Unregister()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for i, unnamed := range r.unnamed {
		if unnamed == item {
			r.unnamed = append(r.unnamed[:i], r.unnamed[i+1:]...)
			break
		}
	}

	if items, ok := r.named[item.Type()]; ok && items[item.Name()] == item {
		delete(items, item.Name())
	}
	if templates, ok := r.defaultTemplates[item.Type()]; ok && templates[item.Name()] == item {
		delete(templates, item.Name())
	}

	for i, ordered := range r.order {
		if ordered == item {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// GetByTypeAndName returns the named item, or nil.
func (r *ItemRegistry) GetByTypeAndName(t *objects.Type, name string) *Item {
	r.mu.Lock()
	defer r.mu.Unlock()

	items, ok := r.named[t]
	if !ok {
		return nil
	}
	return items[name]
}

// GetItems returns a snapshot of the named items of the given type.
func (r *ItemRegistry) GetItems(t *objects.Type) []*Item {
	r.mu.Lock()
	defer r.mu.Unlock()

	byName := r.named[t]
	items := make([]*Item, 0, len(byName))
	for _, item := range r.order {
		if byName[item.Name()] == item && item.Type() == t {
			items = append(items, item)
		}
	}
	return items
}

// GetDefaultTemplates returns a snapshot of the default templates of
// the given type.
func (r *ItemRegistry) GetDefaultTemplates(t *objects.Type) []*Item {
	r.mu.Lock()
	defer r.mu.Unlock()

	byName := r.defaultTemplates[t]
	items := make([]*Item, 0, len(byName))
	for _, item := range r.order {
		if item.Type() == t && byName[item.Name()] == item {
			items = append(items, item)
		}
	}
	return items
}

// itemPair tags a pending item with its discard-expression flag:
// composite-named items are single-use, named items may be re-read by
// template imports.
type itemPair struct {
	item    *Item
	discard bool
}

// takePending collects every candidate item of the given context that
// is not abstract and has no attached object, in registration order.
// Pending unnamed items of the context are removed from the unnamed
// list; items belonging to other contexts are preserved.
func (r *ItemRegistry) takePending(ctx *ActivationContext) []itemPair {
	r.mu.Lock()
	defer r.mu.Unlock()

	var pending []itemPair

	taken := make(map[*Item]bool)
	newUnnamed := r.unnamed[:0]
	for _, item := range r.unnamed {
		if item.ActivationContext() != ctx {
			newUnnamed = append(newUnnamed, item)
			continue
		}
		if item.IsAbstract() || item.Object() != nil {
			continue
		}
		taken[item] = true
	}
	r.unnamed = newUnnamed

	for _, item := range r.order {
		if taken[item] {
			pending = append(pending, itemPair{item: item, discard: true})
			continue
		}

		if item.IsAbstract() || item.Object() != nil {
			continue
		}
		if item.ActivationContext() != ctx {
			continue
		}
		if byName, ok := r.named[item.Type()]; !ok || byName[item.Name()] != item {
			continue
		}
		pending = append(pending, itemPair{item: item, discard: false})
	}

	return pending
}

// recordIgnored adds the path of an ignored item.
func (r *ItemRegistry) recordIgnored(path string) {
	if path == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ignored = append(r.ignored, path)
}

// IgnoredPaths returns a snapshot of the recorded ignored paths.
func (r *ItemRegistry) IgnoredPaths() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	paths := make([]string, len(r.ignored))
	copy(paths, r.ignored)
	return paths
}

// RemoveIgnoredItems unlinks every recorded ignored path beginning
// with the given prefix and drops it from the list. Paths outside the
// prefix are kept. Filesystem errors are logged and do not abort the
// cleanup.
func (r *ItemRegistry) RemoveIgnoredItems(prefix string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	remaining := r.ignored[:0]
	for _, path := range r.ignored {
		if !strings.HasPrefix(path, prefix) {
			remaining = append(remaining, path)
			continue
		}

		r.log.Noticef("Removing ignored item path '%s'.", path)

		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			r.log.WithError(err).Warnf("Failed to remove ignored item path '%s'.", path)
		}
	}
	r.ignored = remaining
}
