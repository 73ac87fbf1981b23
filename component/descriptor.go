package component

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/c360/beanbridge/errors"
	"github.com/c360/beanbridge/metric"
	"github.com/c360/beanbridge/registry"
)

// Declaration describes one managed component, pre-parsed from deployment
// metadata at load time. The lifecycle core never inspects live type
// metadata; everything it needs is captured here.
type Declaration struct {
	// Identity is the stable component key within the deployment unit
	Identity string

	// Unit names the deployment unit whose code declares the component.
	// Components from foreign units are tracked but never published here.
	Unit string

	// Types are the explicitly declared published type names, if any
	Types []string

	// Provides lists the distinct interface names in the component's
	// implemented-type closure, used when Types is empty
	Provides []string

	// Impl is the concrete implementation type name, the publication
	// fallback when neither Types nor Provides yields anything
	Impl string

	// Ranking is the publication ranking; omitted from published properties
	// when zero
	Ranking int

	// Properties are static key/value pairs merged into the publication
	Properties map[string]string

	// Dependencies in declared order
	Dependencies []Dependency
}

// Descriptor owns the dependency trackers and satisfaction state of one
// declared component. Satisfaction transitions and their listener callbacks
// are linearized per descriptor: the evaluate-update-notify sequence runs
// under a single exclusion region.
type Descriptor struct {
	decl   Declaration
	logger *slog.Logger

	mu               sync.Mutex
	trackers         []*tracker
	unboundMandatory int
	satisfied        bool
	started          bool
	listener         DependencyListener
	metrics          *metric.Metrics

	// registration bookkeeping lives under its own lock so the lifecycle
	// manager can update it from inside a listener callback
	regMu        sync.Mutex
	registration *registry.Registration
	published    any
}

// NewDescriptor creates a descriptor for a declared component. The listener
// defaults to NoopListener until the lifecycle manager installs itself.
func NewDescriptor(decl Declaration, deps *Dependencies) *Descriptor {
	d := &Descriptor{
		decl:     decl,
		logger:   deps.GetLoggerWithComponent(decl.Identity),
		metrics:  deps.getMetrics(),
		listener: NoopListener{},
	}
	for i := range d.decl.Dependencies {
		dep := &d.decl.Dependencies[i]
		d.trackers = append(d.trackers, newTracker(dep, d, d.logger, d.metrics))
		if dep.IsMandatory() {
			d.unboundMandatory++
		}
	}
	d.satisfied = d.unboundMandatory == 0
	return d
}

// Identity returns the component's stable key
func (d *Descriptor) Identity() string {
	return d.decl.Identity
}

// Unit returns the deployment unit that declares the component
func (d *Descriptor) Unit() string {
	return d.decl.Unit
}

// Declaration returns a copy of the component declaration
func (d *Descriptor) Declaration() Declaration {
	return d.decl
}

// Dependencies returns the declared dependencies in order
func (d *Descriptor) Dependencies() []Dependency {
	return append([]Dependency(nil), d.decl.Dependencies...)
}

// IsSatisfied reports whether every mandatory dependency is currently bound
func (d *Descriptor) IsSatisfied() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.satisfied
}

// SetListener swaps the satisfaction listener under the exclusion region, so
// no transition is delivered to a mix of old and new listeners
func (d *Descriptor) SetListener(l DependencyListener) {
	if l == nil {
		l = NoopListener{}
	}
	d.mu.Lock()
	d.listener = l
	d.mu.Unlock()
}

// SetRegistration stores the publication handle and the published value
func (d *Descriptor) SetRegistration(reg *registry.Registration, published any) {
	d.regMu.Lock()
	d.registration = reg
	d.published = published
	d.regMu.Unlock()
}

// Registration returns the current publication handle, nil when the
// component is not published
func (d *Descriptor) Registration() *registry.Registration {
	d.regMu.Lock()
	defer d.regMu.Unlock()
	return d.registration
}

// TakeRegistration clears and returns the publication handle and published
// value
func (d *Descriptor) TakeRegistration() (*registry.Registration, any) {
	d.regMu.Lock()
	defer d.regMu.Unlock()
	reg, published := d.registration, d.published
	d.registration = nil
	d.published = nil
	return reg, published
}

// Start opens the dependency trackers in declared order and evaluates initial
// satisfaction. A component with no unbound mandatory dependencies fires its
// SATISFIED transition before any tracker-driven event can.
func (d *Descriptor) Start(reg registry.ServiceRegistry) error {
	d.mu.Lock()
	if d.started {
		d.mu.Unlock()
		return errors.WrapInvalid(
			fmt.Errorf("%w: component %s", errors.ErrAlreadyStarted, d.decl.Identity),
			"Descriptor", "Start", "state check")
	}
	d.started = true
	if d.satisfied {
		d.notifySatisfiedLocked()
	}
	trackers := d.trackers
	d.mu.Unlock()

	for i, t := range trackers {
		if err := t.open(reg); err != nil {
			for _, opened := range trackers[:i] {
				opened.close()
			}
			d.mu.Lock()
			d.started = false
			if d.satisfied {
				d.setSatisfiedGauge(-1)
			}
			d.mu.Unlock()
			return errors.WrapInvalid(err, "Descriptor", "Start",
				fmt.Sprintf("tracker open for %s", d.decl.Identity))
		}
	}
	return nil
}

// Stop replaces the listener with a no-op listener before closing the
// trackers, guaranteeing no satisfaction callback fires once shutdown has
// begun. Stop blocks until every tracker is closed.
func (d *Descriptor) Stop() {
	d.mu.Lock()
	if !d.started {
		d.mu.Unlock()
		return
	}
	d.started = false
	d.listener = NoopListener{}
	trackers := d.trackers
	d.mu.Unlock()

	for _, t := range trackers {
		t.close()
	}

	d.mu.Lock()
	if d.satisfied {
		d.setSatisfiedGauge(-1)
	}
	d.unboundMandatory = 0
	for _, dep := range d.decl.Dependencies {
		if dep.IsMandatory() {
			d.unboundMandatory++
		}
	}
	d.satisfied = d.unboundMandatory == 0
	d.mu.Unlock()
}

// dependencyBound implements bindingHandler. Trackers invoke the handlers
// without holding their own lock, so a delivery already past the tracker's
// closed check can arrive after Stop has reset the state machine; the
// started guard keeps such stragglers out.
func (d *Descriptor) dependencyBound(dep *Dependency) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.started {
		return
	}
	if dep.IsMandatory() && d.unboundMandatory > 0 {
		d.unboundMandatory--
	}
	if d.unboundMandatory == 0 && !d.satisfied {
		d.satisfied = true
		d.notifySatisfiedLocked()
	}
}

// dependencyUnbound implements bindingHandler
func (d *Descriptor) dependencyUnbound(dep *Dependency) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.started || !dep.IsMandatory() {
		return
	}
	d.unboundMandatory++
	if d.satisfied {
		d.satisfied = false
		d.logger.Info("component unsatisfied")
		d.setSatisfiedGauge(-1)
		d.listener.OnComponentUnsatisfied(d)
	}
}

// dependencyRebound implements bindingHandler. An upgrade rebind is atomic
// from the state machine's perspective and produces no notification. A
// replacement rebind keeps the binding continuous but forces a retract and
// republish cycle, because the running instance still references the
// departed provider.
func (d *Descriptor) dependencyRebound(_ *Dependency, reason rebindReason) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.started || reason != rebindReplaced || !d.satisfied {
		return
	}
	d.listener.OnComponentUnsatisfied(d)
	d.listener.OnComponentSatisfied(d)
}

// notifySatisfiedLocked fires the SATISFIED transition. Caller holds d.mu.
func (d *Descriptor) notifySatisfiedLocked() {
	d.logger.Info("component satisfied")
	d.setSatisfiedGauge(1)
	d.listener.OnComponentSatisfied(d)
}

func (d *Descriptor) setSatisfiedGauge(delta float64) {
	if d.metrics != nil {
		d.metrics.ComponentsSatisfied.WithLabelValues(d.decl.Unit).Add(delta)
	}
}
