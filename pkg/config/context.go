package config

import (
	"github.com/google/uuid"
)

// ActivationContext is an opaque token grouping items that will be
// committed and activated together. Items capture the innermost open
// context at registration time.
type ActivationContext struct {
	id string
}

// NewActivationContext creates a fresh context.
func NewActivationContext() *ActivationContext {
	return &ActivationContext{id: uuid.New().String()}
}

// ID returns the context's identity, used in log output.
func (c *ActivationContext) ID() string {
	if c == nil {
		return ""
	}
	return c.id
}

// ActivationScope is an open context scope on an engine. Closing the
// scope pops it from the engine's scope stack.
type ActivationScope struct {
	engine *Engine
	ctx    *ActivationContext
	closed bool
}

// Context returns the scope's activation context.
func (s *ActivationScope) Context() *ActivationContext {
	return s.ctx
}

// Close pops the scope. Closing twice is a no-op.
func (s *ActivationScope) Close() {
	if s.closed {
		return
	}
	s.closed = true
	s.engine.popScope(s.ctx)
}
