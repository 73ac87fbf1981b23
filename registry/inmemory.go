package registry

import (
	"fmt"
	"log/slog"
	"maps"
	"sync"

	"github.com/google/uuid"

	"github.com/c360/beanbridge/errors"
	"github.com/c360/beanbridge/filter"
)

// Option is a functional option for configuring InMemory
type Option func(*InMemory)

// WithLazyFactories enables per-lookup resolution of Factory values
func WithLazyFactories() Option {
	return func(r *InMemory) {
		r.lazy = true
	}
}

// WithLogger sets the structured logger
func WithLogger(logger *slog.Logger) Option {
	return func(r *InMemory) {
		r.logger = logger
	}
}

// InMemory is a process-local ServiceRegistry. Notifications are delivered
// from a single dispatcher goroutine in mutation order, so callbacks arrive
// serialized but on a goroutine unrelated to the caller's.
type InMemory struct {
	logger *slog.Logger
	lazy   bool

	mu        sync.RWMutex
	providers map[int64]*ProviderRef
	order     []int64
	subs      map[string]*subscription
	handles   map[string]int64 // registration id -> service id
	nextID    int64
	closed    bool

	qmu   sync.Mutex
	qcond *sync.Cond
	queue []event
	done  chan struct{}
}

type subscription struct {
	tracker  *Tracker
	filter   *filter.Filter
	onAdd    func(*ProviderRef)
	onRemove func(*ProviderRef)
}

type event struct {
	add     bool
	ref     *ProviderRef
	subs    []*subscription
	barrier chan struct{}
}

// NewInMemory creates an in-memory service registry and starts its
// notification dispatcher
func NewInMemory(opts ...Option) *InMemory {
	r := &InMemory{
		logger:    slog.Default(),
		providers: make(map[int64]*ProviderRef),
		subs:      make(map[string]*subscription),
		handles:   make(map[string]int64),
		done:      make(chan struct{}),
	}
	r.qcond = sync.NewCond(&r.qmu)
	for _, opt := range opts {
		opt(r)
	}
	go r.dispatch()
	return r
}

// SupportsLazyFactories implements the LazyFactorySupport capability probe
func (r *InMemory) SupportsLazyFactories() bool {
	return r.lazy
}

// Register publishes an instance under the given capability type names
func (r *InMemory) Register(typeNames []string, instance any, props Properties) (*Registration, error) {
	if len(typeNames) == 0 {
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: no type names", errors.ErrInvalidConfig),
			"InMemory", "Register", "type name validation")
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, errors.ErrRegistryClosed
	}

	r.nextID++
	id := r.nextID

	merged := make(Properties, len(props)+2)
	maps.Copy(merged, props)
	merged[PropServiceID] = id

	ref := &ProviderRef{
		ID:         id,
		TypeNames:  append([]string(nil), typeNames...),
		Ranking:    rankingOf(props),
		Properties: merged,
		value:      instance,
		lazy:       r.lazy,
	}
	r.providers[id] = ref
	r.order = append(r.order, id)

	reg := &Registration{id: uuid.NewString(), serviceID: id}
	r.handles[reg.id] = id

	if targets := r.matchingSubs(ref); len(targets) > 0 {
		r.enqueue(event{add: true, ref: ref, subs: targets})
	}
	r.mu.Unlock()

	r.logger.Debug("service registered", "types", typeNames, "service_id", id)
	return reg, nil
}

// Unregister retracts a registration. Returns ErrAlreadyUnregistered when the
// registration is no longer current.
func (r *InMemory) Unregister(reg *Registration) error {
	if reg == nil {
		return errors.WrapInvalid(
			fmt.Errorf("%w: nil registration", errors.ErrInvalidConfig),
			"InMemory", "Unregister", "handle validation")
	}

	r.mu.Lock()
	id, ok := r.handles[reg.id]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("registration %s: %w", reg.id, errors.ErrAlreadyUnregistered)
	}
	delete(r.handles, reg.id)
	ref := r.providers[id]
	delete(r.providers, id)
	for i, oid := range r.order {
		if oid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	if targets := r.matchingSubs(ref); len(targets) > 0 {
		r.enqueue(event{add: false, ref: ref, subs: targets})
	}
	r.mu.Unlock()

	r.logger.Debug("service unregistered", "types", ref.TypeNames, "service_id", id)
	return nil
}

// FindProviders returns matching providers best-first
func (r *InMemory) FindProviders(capability, filterExpr string) ([]*ProviderRef, error) {
	f, err := filter.Parse(filterExpr)
	if err != nil {
		return nil, err
	}

	r.mu.RLock()
	var refs []*ProviderRef
	for _, id := range r.order {
		ref := r.providers[id]
		if ref.Offers(capability) && f.Matches(ref.Properties) {
			refs = append(refs, ref)
		}
	}
	r.mu.RUnlock()

	byRank(refs)
	return refs, nil
}

// Track subscribes to provider add/remove notifications. Providers already
// registered are delivered as adds through the dispatcher.
func (r *InMemory) Track(capability, filterExpr string, onAdd, onRemove func(*ProviderRef)) (*Tracker, error) {
	f, err := filter.Parse(filterExpr)
	if err != nil {
		return nil, err
	}

	t := &Tracker{id: uuid.NewString(), capability: capability}
	t.active.Store(true)
	sub := &subscription{tracker: t, filter: f, onAdd: onAdd, onRemove: onRemove}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, errors.ErrRegistryClosed
	}
	r.subs[t.id] = sub

	// Existing matches are enqueued while the state lock is held so the new
	// tracker sees them as adds, in registration order, before any later
	// mutation event.
	for _, id := range r.order {
		ref := r.providers[id]
		if ref.Offers(capability) && f.Matches(ref.Properties) {
			r.enqueue(event{add: true, ref: ref, subs: []*subscription{sub}})
		}
	}
	r.mu.Unlock()
	return t, nil
}

// Untrack cancels a subscription. Events already queued for the subscription
// are dropped at delivery time.
func (r *InMemory) Untrack(t *Tracker) error {
	if t == nil {
		return errors.WrapInvalid(
			fmt.Errorf("%w: nil tracker", errors.ErrInvalidConfig),
			"InMemory", "Untrack", "handle validation")
	}
	t.active.Store(false)

	r.mu.Lock()
	delete(r.subs, t.id)
	r.mu.Unlock()
	return nil
}

// Flush blocks until every notification enqueued before the call has been
// delivered. Used by tests and orderly shutdown.
func (r *InMemory) Flush() {
	barrier := make(chan struct{})
	r.enqueue(event{barrier: barrier})
	<-barrier
}

// Close drains pending notifications and stops the dispatcher. Subsequent
// mutations fail with ErrRegistryClosed.
func (r *InMemory) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	r.mu.Unlock()

	r.Flush()

	r.qmu.Lock()
	r.queue = append(r.queue, event{})
	close(r.done)
	r.qcond.Signal()
	r.qmu.Unlock()
}

// matchingSubs snapshots the subscriptions interested in a provider.
// Caller holds r.mu.
func (r *InMemory) matchingSubs(ref *ProviderRef) []*subscription {
	var targets []*subscription
	for _, sub := range r.subs {
		if ref.Offers(sub.tracker.capability) && sub.filter.Matches(ref.Properties) {
			targets = append(targets, sub)
		}
	}
	return targets
}

func (r *InMemory) enqueue(ev event) {
	r.qmu.Lock()
	r.queue = append(r.queue, ev)
	r.qcond.Signal()
	r.qmu.Unlock()
}

// dispatch delivers notifications one at a time in mutation order. Callback
// code runs without any registry lock held, so callbacks may call back into
// the registry.
func (r *InMemory) dispatch() {
	for {
		r.qmu.Lock()
		for len(r.queue) == 0 {
			select {
			case <-r.done:
				r.qmu.Unlock()
				return
			default:
			}
			r.qcond.Wait()
		}
		ev := r.queue[0]
		r.queue = r.queue[1:]
		r.qmu.Unlock()

		if ev.barrier != nil {
			close(ev.barrier)
			continue
		}
		if ev.ref == nil {
			// shutdown sentinel
			return
		}
		for _, sub := range ev.subs {
			if !sub.tracker.active.Load() {
				continue
			}
			if ev.add {
				sub.onAdd(ev.ref)
			} else {
				sub.onRemove(ev.ref)
			}
		}
	}
}
