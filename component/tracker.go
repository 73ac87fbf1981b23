package component

import (
	"log/slog"
	"sync"

	"github.com/c360/beanbridge/errors"
	"github.com/c360/beanbridge/filter"
	"github.com/c360/beanbridge/metric"
	"github.com/c360/beanbridge/registry"
)

// rebindReason distinguishes how a binding moved to a different provider
type rebindReason int

const (
	// rebindUpgrade: a greedy binding switched to a better-ranked provider.
	// The binding is continuous; no unsatisfied gap is reported.
	rebindUpgrade rebindReason = iota
	// rebindReplaced: the bound provider disappeared and the next-best
	// matching provider was bound in its place.
	rebindReplaced
)

func (r rebindReason) String() string {
	if r == rebindUpgrade {
		return "upgrade"
	}
	return "replaced"
}

// bindingHandler receives binding transitions from a tracker. Calls arrive
// from the registry's notification domain, one at a time per tracker.
type bindingHandler interface {
	dependencyBound(dep *Dependency)
	dependencyUnbound(dep *Dependency)
	dependencyRebound(dep *Dependency, reason rebindReason)
}

// tracker observes the registry for providers matching one dependency and
// maintains the currently bound provider
type tracker struct {
	dep     *Dependency
	handler bindingHandler
	logger  *slog.Logger
	metrics *metric.Metrics

	mu     sync.Mutex
	reg    registry.ServiceRegistry
	handle *registry.Tracker
	bound  *registry.ProviderRef
	closed bool
}

func newTracker(dep *Dependency, handler bindingHandler, logger *slog.Logger, metrics *metric.Metrics) *tracker {
	return &tracker{
		dep:     dep,
		handler: handler,
		logger:  logger,
		metrics: metrics,
		closed:  true,
	}
}

// open begins observation of the registry. A malformed filter expression is a
// configuration error reported here, never deferred to the first event.
func (t *tracker) open(reg registry.ServiceRegistry) error {
	if _, err := filter.Parse(t.dep.Filter); err != nil {
		return errors.Wrap(err, "tracker", "open", "filter validation for "+t.dep.Capability)
	}

	t.mu.Lock()
	t.reg = reg
	t.closed = false
	t.mu.Unlock()

	handle, err := reg.Track(t.dep.Capability, t.dep.Filter, t.onAdded, t.onRemoved)
	if err != nil {
		t.mu.Lock()
		t.closed = true
		t.reg = nil
		t.mu.Unlock()
		return errors.Wrap(err, "tracker", "open", "registry subscription for "+t.dep.Capability)
	}

	t.mu.Lock()
	t.handle = handle
	t.mu.Unlock()
	return nil
}

// close stops observation and releases any held binding. Retraction of the
// owning component's published service is the caller's responsibility.
func (t *tracker) close() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	handle := t.handle
	reg := t.reg
	wasBound := t.bound != nil
	t.handle = nil
	t.reg = nil
	t.bound = nil
	t.mu.Unlock()

	if reg != nil && handle != nil {
		_ = reg.Untrack(handle)
	}
	if wasBound && t.metrics != nil {
		t.metrics.BindingsActive.WithLabelValues(t.dep.Capability).Dec()
	}
}

// isBound reports whether a provider is currently bound
func (t *tracker) isBound() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.bound != nil
}

// boundProvider returns the currently bound provider, if any
func (t *tracker) boundProvider() *registry.ProviderRef {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.bound
}

func (t *tracker) onAdded(p *registry.ProviderRef) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}

	if t.bound == nil {
		t.bound = p
		t.mu.Unlock()
		t.logger.Debug("dependency bound", "capability", t.dep.Capability, "provider", p.ID)
		if t.metrics != nil {
			t.metrics.BindingsActive.WithLabelValues(t.dep.Capability).Inc()
		}
		t.handler.dependencyBound(t.dep)
		return
	}

	if t.dep.Policy != PolicyGreedy || !outranks(p, t.bound) {
		t.mu.Unlock()
		return
	}

	old := t.bound
	t.bound = p
	t.mu.Unlock()
	t.logger.Debug("dependency rebound to better-ranked provider",
		"capability", t.dep.Capability, "old", old.ID, "new", p.ID)
	if t.metrics != nil {
		t.metrics.RebindsTotal.WithLabelValues(t.dep.Capability, rebindUpgrade.String()).Inc()
	}
	t.handler.dependencyRebound(t.dep, rebindUpgrade)
}

func (t *tracker) onRemoved(p *registry.ProviderRef) {
	t.mu.Lock()
	if t.closed || t.bound == nil || t.bound.ID != p.ID {
		t.mu.Unlock()
		return
	}

	// Failover happens synchronously: the next-best remaining provider is
	// bound before anything is reported upward, so a replacement never looks
	// like a terminal unbind.
	reg := t.reg
	t.bound = nil
	next := bestProvider(reg, t.dep, t.logger)
	if next != nil {
		t.bound = next
	}
	t.mu.Unlock()

	if next != nil {
		t.logger.Debug("dependency rebound after provider removal",
			"capability", t.dep.Capability, "old", p.ID, "new", next.ID)
		if t.metrics != nil {
			t.metrics.RebindsTotal.WithLabelValues(t.dep.Capability, rebindReplaced.String()).Inc()
		}
		t.handler.dependencyRebound(t.dep, rebindReplaced)
		return
	}

	t.logger.Debug("dependency unbound", "capability", t.dep.Capability, "provider", p.ID)
	if t.metrics != nil {
		t.metrics.BindingsActive.WithLabelValues(t.dep.Capability).Dec()
	}
	t.handler.dependencyUnbound(t.dep)
}

// outranks reports whether a should replace b as the bound provider: higher
// ranking wins, equal ranking keeps the earliest registration.
func outranks(a, b *registry.ProviderRef) bool {
	if a.ID == b.ID {
		return false
	}
	if a.Ranking != b.Ranking {
		return a.Ranking > b.Ranking
	}
	return a.ID < b.ID
}

// bestProvider returns the best currently matching provider or nil
func bestProvider(reg registry.ServiceRegistry, dep *Dependency, logger *slog.Logger) *registry.ProviderRef {
	if reg == nil {
		return nil
	}
	refs, err := reg.FindProviders(dep.Capability, dep.Filter)
	if err != nil {
		// The filter was validated at open time; a failure here means the
		// registry itself is going away.
		logger.Warn("provider lookup failed during failover", "capability", dep.Capability, "error", err)
		return nil
	}
	if len(refs) == 0 {
		return nil
	}
	return refs[0]
}
