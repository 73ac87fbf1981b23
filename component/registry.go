package component

import (
	"fmt"
	"sync"

	"github.com/c360/beanbridge/errors"
	"github.com/c360/beanbridge/registry"
)

// Registry is the catalogue of all known components of one deployment unit,
// indexed by component identity. It also owns the currently active
// registry-connection context and the non-component dependency declarations
// that need eager validation at startup.
type Registry struct {
	unit string

	mu               sync.RWMutex
	ctx              registry.ServiceRegistry
	order            []string
	components       map[string]*Descriptor
	nonComponentDeps []Dependency
}

// NewRegistry creates an empty catalogue for the named deployment unit
func NewRegistry(unit string) *Registry {
	return &Registry{
		unit:       unit,
		components: make(map[string]*Descriptor),
	}
}

// Unit returns the owning deployment unit name
func (r *Registry) Unit() string {
	return r.unit
}

// SetContext sets or clears (on nil) the active registry-connection context.
// A cleared context makes the unit not live for publication purposes.
// Mutation is only legal from the lifecycle manager's start and stop paths,
// never from a notification callback.
func (r *Registry) SetContext(ctx registry.ServiceRegistry) {
	r.mu.Lock()
	r.ctx = ctx
	r.mu.Unlock()
}

// Context returns the active registry-connection context, nil when the unit
// is not live
func (r *Registry) Context() registry.ServiceRegistry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.ctx
}

// Add registers a component descriptor under its identity
func (r *Registry) Add(d *Descriptor) error {
	if d == nil {
		return errors.WrapInvalid(
			fmt.Errorf("%w: nil descriptor", errors.ErrInvalidConfig),
			"Registry", "Add", "descriptor validation")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.components[d.Identity()]; exists {
		return errors.WrapInvalid(
			fmt.Errorf("%w: component %s", errors.ErrAlreadyRegistered, d.Identity()),
			"Registry", "Add", "duplicate identity check")
	}
	r.components[d.Identity()] = d
	r.order = append(r.order, d.Identity())
	return nil
}

// Components returns all known descriptors in registration order
func (r *Registry) Components() []*Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*Descriptor, 0, len(r.order))
	for _, identity := range r.order {
		result = append(result, r.components[identity])
	}
	return result
}

// Descriptor looks up a component by identity
func (r *Registry) Descriptor(identity string) (*Descriptor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, exists := r.components[identity]
	if !exists {
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: %s", errors.ErrUnknownComponent, identity),
			"Registry", "Descriptor", "identity lookup")
	}
	return d, nil
}

// AddNonComponentDependency records a dependency injected into something
// that is not itself a component. These are only validated eagerly at
// startup; they are never tracked.
func (r *Registry) AddNonComponentDependency(dep Dependency) {
	r.mu.Lock()
	r.nonComponentDeps = append(r.nonComponentDeps, dep)
	r.mu.Unlock()
}

// NonComponentDependencies returns the declarations needing eager validation,
// in declared order
func (r *Registry) NonComponentDependencies() []Dependency {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Dependency(nil), r.nonComponentDeps...)
}

// Owns reports whether the descriptor's declaring code belongs to this
// registry's deployment unit. Only owned components are ever published here;
// foreign components are tracked for satisfaction but publication is the
// owning unit's responsibility.
func (r *Registry) Owns(d *Descriptor) bool {
	return d.Unit() == r.unit
}
