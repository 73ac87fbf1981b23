package service

import (
	"sync"

	"github.com/c360/beanbridge/component"
	"github.com/c360/beanbridge/container"
	"github.com/c360/beanbridge/registry"
)

// FactoryBuilder produces the value published when a component becomes
// satisfied, and releases it when the component is retracted
type FactoryBuilder interface {
	Build(decl component.Declaration) (any, error)
	Release(decl component.Declaration, published any)
}

// newFactoryBuilder probes the registry for lazy-factory support and selects
// the matching builder variant
func newFactoryBuilder(reg registry.ServiceRegistry, c container.Container) FactoryBuilder {
	if probe, ok := reg.(registry.LazyFactorySupport); ok && probe.SupportsLazyFactories() {
		return &lazyFactoryBuilder{container: c}
	}
	return &eagerFactoryBuilder{container: c}
}

// eagerFactoryBuilder publishes a contextual instance constructed at
// publication time
type eagerFactoryBuilder struct {
	container container.Container
}

func (b *eagerFactoryBuilder) Build(decl component.Declaration) (any, error) {
	return b.container.Create(decl.Identity)
}

func (b *eagerFactoryBuilder) Release(decl component.Declaration, published any) {
	b.container.Destroy(decl.Identity, published)
}

// lazyFactoryBuilder publishes a registry.Factory so the registry creates
// scope-correct instances per lookup
type lazyFactoryBuilder struct {
	container container.Container
}

func (b *lazyFactoryBuilder) Build(decl component.Declaration) (any, error) {
	return &contextualFactory{identity: decl.Identity, container: b.container}, nil
}

func (b *lazyFactoryBuilder) Release(_ component.Declaration, published any) {
	if f, ok := published.(*contextualFactory); ok {
		f.destroyAll()
	}
}

// contextualFactory creates instances on demand and remembers them so they
// can be destroyed when the publication is retracted
type contextualFactory struct {
	identity  string
	container container.Container

	mu        sync.Mutex
	instances []any
}

var _ registry.Factory = (*contextualFactory)(nil)

// Create implements registry.Factory
func (f *contextualFactory) Create() (any, error) {
	instance, err := f.container.Create(f.identity)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.instances = append(f.instances, instance)
	f.mu.Unlock()
	return instance, nil
}

func (f *contextualFactory) destroyAll() {
	f.mu.Lock()
	instances := f.instances
	f.instances = nil
	f.mu.Unlock()

	for _, instance := range instances {
		f.container.Destroy(f.identity, instance)
	}
}
