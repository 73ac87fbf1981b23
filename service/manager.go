package service

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/c360/beanbridge/component"
	"github.com/c360/beanbridge/container"
	"github.com/c360/beanbridge/errors"
	"github.com/c360/beanbridge/metric"
	"github.com/c360/beanbridge/registry"
)

// Manager orchestrates the component lifecycle for one deployment unit. It
// implements component.DependencyListener and performs the actual publication
// and retraction of components as services.
type Manager struct {
	unit       string
	registry   registry.ServiceRegistry
	container  container.Container
	components *component.Registry
	logger     *slog.Logger
	metrics    *metric.Metrics
	events     *Announcer

	mu      sync.Mutex
	factory FactoryBuilder
	started bool
}

// NewManager creates a lifecycle manager from its dependencies
func NewManager(deps *Dependencies) (*Manager, error) {
	if deps == nil || deps.Registry == nil || deps.Container == nil || deps.Components == nil {
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: registry, container and components are required", errors.ErrMissingConfig),
			"Manager", "NewManager", "dependency validation")
	}

	unit := deps.Components.Unit()
	var metrics *metric.Metrics
	if deps.Metrics != nil {
		metrics = deps.Metrics.CoreMetrics()
	}
	logger := deps.GetLogger().With("unit", unit)

	return &Manager{
		unit:       unit,
		registry:   deps.Registry,
		container:  deps.Container,
		components: deps.Components,
		logger:     logger,
		metrics:    metrics,
		events:     NewAnnouncer(unit, deps.NATSConn, logger),
	}, nil
}

// Start brings the deployment unit live: it validates that every mandatory
// non-component dependency currently resolves, binds the registry context,
// installs itself as satisfaction listener on every component and starts
// dependency tracking. Components already satisfied publish through the
// initial satisfaction callback their Start fires.
//
// Validation runs before anything is published, so a unit with an
// unresolvable mandatory external never becomes partially visible.
func (m *Manager) Start(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.started {
		return errors.WrapInvalid(
			fmt.Errorf("%w: unit %s", errors.ErrAlreadyStarted, m.unit),
			"Manager", "Start", "state check")
	}

	if err := m.verifyNonComponentDependencies(); err != nil {
		if m.metrics != nil {
			m.metrics.StartupFailures.Inc()
		}
		return err
	}

	m.components.SetContext(m.registry)
	m.factory = newFactoryBuilder(m.registry, m.container)

	comps := m.components.Components()
	for i, d := range comps {
		d.SetListener(m)
		if err := d.Start(m.registry); err != nil {
			m.rollback(comps[:i+1])
			if m.metrics != nil {
				m.metrics.StartupFailures.Inc()
			}
			return errors.Wrap(err, "Manager", "Start", "component startup")
		}
	}

	m.started = true
	m.logger.Info("deployment unit started", "components", len(comps))
	return nil
}

// Stop tears the unit down: it installs a no-op listener on every component,
// then stops each descriptor's trackers, then unregisters every
// still-published service, then detaches the registry context. The listener
// swap precedes tracker shutdown so no satisfaction callback can republish a
// component mid-teardown. Unregistration is best-effort per component;
// failures are collected, not fatal to the remaining teardown.
func (m *Manager) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.started {
		return errors.WrapInvalid(
			fmt.Errorf("%w: unit %s", errors.ErrNotStarted, m.unit),
			"Manager", "Stop", "state check")
	}

	comps := m.components.Components()
	for _, d := range comps {
		d.SetListener(component.NoopListener{})
	}
	for _, d := range comps {
		d.Stop()
	}

	var errs []error
	for _, d := range comps {
		if err := m.retract(d); err != nil {
			m.logger.Warn("failed to unregister component service",
				"component", d.Identity(), "error", err)
			errs = append(errs, err)
		}
	}

	m.components.SetContext(nil)
	m.started = false
	m.logger.Info("deployment unit stopped")
	return stderrors.Join(errs...)
}

// OnComponentSatisfied implements component.DependencyListener
func (m *Manager) OnComponentSatisfied(d *component.Descriptor) {
	m.logger.Info("component is available", "component", d.Identity())
	m.events.Announce(EventSatisfied, d.Identity(), nil)
	m.publish(d)
}

// OnComponentUnsatisfied implements component.DependencyListener
func (m *Manager) OnComponentUnsatisfied(d *component.Descriptor) {
	m.logger.Info("component is unavailable", "component", d.Identity())
	m.events.Announce(EventUnsatisfied, d.Identity(), nil)
	if err := m.retract(d); err != nil {
		m.logger.Warn("failed to unregister component service",
			"component", d.Identity(), "error", err)
	}
}

// publish registers a satisfied component as a service. Only components
// declared by this unit are ever published; publishing is a no-op when a
// registration is already held.
func (m *Manager) publish(d *component.Descriptor) {
	if !m.components.Owns(d) {
		return
	}
	if d.Registration() != nil {
		return
	}

	decl := d.Declaration()
	value, err := m.factory.Build(decl)
	if err != nil {
		m.logger.Error("failed to build service value", "component", decl.Identity, "error", err)
		return
	}

	typeNames := publishedTypeNames(decl)
	props := publicationProperties(decl)
	m.logger.Debug("publishing service", "component", decl.Identity, "types", typeNames, "props", props)

	reg, err := m.registry.Register(typeNames, value, props)
	if err != nil {
		m.factory.Release(decl, value)
		m.logger.Error("failed to register service", "component", decl.Identity, "error", err)
		return
	}
	d.SetRegistration(reg, value)

	if m.metrics != nil {
		m.metrics.ComponentsPublished.WithLabelValues(m.unit, decl.Identity).Inc()
	}
	m.events.Announce(EventPublished, decl.Identity, typeNames)
}

// retract removes a component's registration and releases the published
// value. An already-unregistered service is a benign race outcome: a
// concurrent external retraction may have removed it first.
func (m *Manager) retract(d *component.Descriptor) error {
	reg, value := d.TakeRegistration()
	if reg == nil {
		return nil
	}

	decl := d.Declaration()
	m.logger.Debug("removing service", "component", decl.Identity)

	err := m.registry.Unregister(reg)
	if err != nil && errors.IsBenign(err) {
		m.logger.Debug("service already unregistered", "component", decl.Identity)
		err = nil
	}
	m.factory.Release(decl, value)

	if m.metrics != nil {
		m.metrics.ComponentsRetracted.WithLabelValues(m.unit, decl.Identity).Inc()
	}
	m.events.Announce(EventRetracted, decl.Identity, nil)
	return err
}

// verifyNonComponentDependencies checks that every mandatory dependency of
// non-component code resolves to at least one current provider. Zero matches
// or a malformed filter are fatal startup errors.
func (m *Manager) verifyNonComponentDependencies() error {
	for _, dep := range m.components.NonComponentDependencies() {
		if !dep.IsMandatory() {
			continue
		}
		refs, err := m.registry.FindProviders(dep.Capability, dep.Filter)
		if err != nil {
			return errors.WrapInvalid(err, "Manager", "Start", "reference filter validation")
		}
		if len(refs) == 0 {
			return errors.WrapFatal(
				fmt.Errorf("%w: no matching provider for %s", errors.ErrUnresolvedDependency, dep),
				"Manager", "Start", "mandatory reference validation")
		}
	}
	return nil
}

// rollback undoes a partial startup: components already given a listener are
// muted, stopped and retracted
func (m *Manager) rollback(comps []*component.Descriptor) {
	for _, d := range comps {
		d.SetListener(component.NoopListener{})
	}
	for _, d := range comps {
		d.Stop()
	}
	for _, d := range comps {
		if err := m.retract(d); err != nil {
			m.logger.Warn("rollback retraction failed", "component", d.Identity(), "error", err)
		}
	}
	m.components.SetContext(nil)
}

// publishedTypeNames computes the service type names for a declaration:
// explicitly declared types win; otherwise the distinct interface names of
// the implemented-type closure; otherwise the concrete implementation type.
func publishedTypeNames(decl component.Declaration) []string {
	if len(decl.Types) > 0 {
		return dedupe(decl.Types)
	}
	if len(decl.Provides) > 0 {
		return dedupe(decl.Provides)
	}
	return []string{decl.Impl}
}

// publicationProperties merges declared static properties with the ranking.
// A zero ranking is omitted so registry defaults are not emitted; nil is
// returned when there is nothing to publish.
func publicationProperties(decl component.Declaration) registry.Properties {
	if len(decl.Properties) == 0 && decl.Ranking == 0 {
		return nil
	}
	props := make(registry.Properties, len(decl.Properties)+1)
	for k, v := range decl.Properties {
		props[k] = v
	}
	if decl.Ranking != 0 {
		props[registry.PropServiceRanking] = decl.Ranking
	}
	return props
}

func dedupe(names []string) []string {
	seen := make(map[string]bool, len(names))
	result := make([]string, 0, len(names))
	for _, n := range names {
		if !seen[n] {
			seen[n] = true
			result = append(result, n)
		}
	}
	return result
}
