package registry

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrEntityTypeNotRegistered is returned when no binding exists for an entity type.
	ErrEntityTypeNotRegistered = errors.New("entity type not registered")
	// ErrEntityTypeTaken is returned when an entity type is registered twice.
	ErrEntityTypeTaken = errors.New("entity type already registered")
)

// PayloadRepository is supplied by the host entity type. It clones and
// destroys payload rows; revision metadata never lives in the payload.
type PayloadRepository interface {
	// Clone produces a detached duplicate of the payload with content copied,
	// returning the new payload's ID.
	Clone(ctx context.Context, payloadID string) (string, error)
	// Destroy removes a payload.
	Destroy(ctx context.Context, payloadID string) error
}

// Binding wires one host entity type into the revision machinery.
type Binding struct {
	// EntityType is the tag stored on revision infos referencing this type's payloads.
	EntityType string
	// Payloads handles payload duplication and cleanup for this type.
	Payloads PayloadRepository
	// Deprecatable enables the retroactive-change operations for this type.
	Deprecatable bool
}

// Registry holds the entity-type bindings. Types are registered explicitly at
// startup; nothing is resolved lazily on first reference.
type Registry struct {
	mu       sync.RWMutex
	bindings map[string]Binding
}

func New() *Registry {
	return &Registry{
		bindings: make(map[string]Binding),
	}
}

var defaultRegistry = New()

// Default returns the process-wide registry.
func Default() *Registry {
	return defaultRegistry
}

func (r *Registry) Register(binding Binding) error {
	if binding.EntityType == "" {
		return errors.New("binding requires an entity type")
	}
	if binding.Payloads == nil {
		return fmt.Errorf("binding %s requires a payload repository", binding.EntityType)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.bindings[binding.EntityType]; ok {
		return fmt.Errorf("%s: %w", binding.EntityType, ErrEntityTypeTaken)
	}
	r.bindings[binding.EntityType] = binding

	return nil
}

func (r *Registry) Lookup(entityType string) (Binding, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	binding, ok := r.bindings[entityType]
	if !ok {
		return Binding{}, fmt.Errorf("%s: %w", entityType, ErrEntityTypeNotRegistered)
	}

	return binding, nil
}
