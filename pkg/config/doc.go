// Package config implements the configuration object lifecycle engine:
// the typed item registry, the staged commit pipeline, activation and
// the transactional reload protocol.
//
// # Overview
//
// The compiler produces items (declarative descriptions of
// to-be-instantiated objects) and registers them with an Engine under
// an activation context. CommitItems drives every pending item of the
// context through instantiate, evaluate, name-compose, validate,
// OnConfigLoaded, snapshot persistence and object registration, then
// finalizes the batch in load-dependency order. ActivateItems turns
// the committed batch live in two barriers. ReloadObject composes the
// pipeline with a snapshot-and-restore envelope.
//
// # Components
//
// Engine: ties the item registry, type registry, snapshot store and
// dependency graph together and owns the activation scope stack.
//
// ItemRegistry: thread-safe index of items by (type, name), with a
// separate bucket for composite-named items, a default-template index
// and the ignored-path list.
//
// Item / ItemBuilder: the immutable declaration and the builder the
// compiler (and the reload path) assemble it with.
//
// # Usage Example
//
//	engine := config.NewEngine(config.EngineOptions{Types: types, Store: store})
//
//	err := engine.RunWithActivationContext(func() error {
//	    item, err := config.NewItemBuilder().
//	        SetType(hostType).
//	        SetName("web-01").
//	        AddExpression(expr).
//	        Compile()
//	    if err != nil {
//	        return err
//	    }
//	    return engine.RegisterItem(item)
//	})
package config
