// Package beanbridge bridges a managed-bean container with a dynamic service
// registry. Components declare dependencies on external services; the
// lifecycle core tracks, at runtime, whether each component's dependencies
// are currently satisfied, and reacts to services appearing and disappearing
// by publishing and retracting components accordingly.
//
// # Architecture
//
// The module is organized around a small set of flat packages:
//
//   - component: the dependency lifecycle core. Dependency descriptors,
//     per-dependency trackers, the per-component satisfaction state machine
//     and the per-deployment-unit component catalogue.
//   - service: the lifecycle manager. Orchestrates startup and shutdown of a
//     deployment unit, implements the satisfaction listener contract and
//     performs the actual publication and retraction of components.
//   - registry: the dynamic service registry capability, with an in-memory
//     implementation for embedding and tests.
//   - container: the managed-bean container capability consumed by the
//     manager to construct and destroy contextual instances.
//   - filter: provider-property filter expressions.
//   - config: YAML deployment-unit declarations, pre-parsed into explicit
//     descriptors at load time.
//   - metric: Prometheus instrumentation for lifecycle and binding activity.
//   - errors: classified errors shared across the module.
//
// # Lifecycle
//
// A deployment unit is declared (config), catalogued (component.Registry),
// and brought live by a service.Manager: already-satisfied components are
// published immediately, the rest are published the moment their last
// mandatory dependency binds and retracted when any mandatory dependency
// unbinds. Satisfaction transitions for a single component are linearized;
// across components no ordering is guaranteed.
//
// # Concurrency model
//
// Registry notifications arrive from the registry's own concurrency domain,
// potentially concurrent with application-driven Start and Stop calls. Each
// descriptor serializes its evaluate-update-notify sequence under a
// per-descriptor exclusion region, and Stop swaps in a no-op listener before
// closing trackers so no late provider event can republish a component
// mid-teardown.
package beanbridge
