// Package registry defines the dynamic service registry capability consumed by
// the component lifecycle manager, together with an in-memory implementation
// suitable for embedding and testing. A registry publishes provider instances
// under capability type names, answers filtered lookups, and delivers
// asynchronous add/remove notifications to trackers.
package registry

import (
	"fmt"
	"sort"
	"strconv"
	"sync/atomic"
)

// Well-known provider property keys. The registry populates both on every
// registration; user-supplied values for the service id are ignored.
const (
	// PropServiceID is the monotonic registration sequence number. Lower
	// values registered earlier; used as the tie-break between providers of
	// equal ranking.
	PropServiceID = "service.id"

	// PropServiceRanking orders providers competing for the same capability.
	// Higher values are preferred. Absent means zero.
	PropServiceRanking = "service.ranking"
)

// Properties holds the metadata published alongside a provider
type Properties map[string]any

// Factory produces contextual instances on demand. A registry that supports
// lazy factories (see LazyFactorySupport) resolves Factory values per lookup
// instead of handing out the factory itself.
type Factory interface {
	Create() (any, error)
}

// ProviderRef is an immutable view of one registered provider as seen by
// lookups and tracker callbacks.
type ProviderRef struct {
	ID         int64
	TypeNames  []string
	Ranking    int
	Properties Properties

	value any
	lazy  bool
}

// Offers reports whether the provider is registered under the capability
func (p *ProviderRef) Offers(capability string) bool {
	for _, t := range p.TypeNames {
		if t == capability {
			return true
		}
	}
	return false
}

// Instance resolves the provider value. When the registered value is a
// Factory and the registry supports lazy factories, a fresh contextual
// instance is created per call.
func (p *ProviderRef) Instance() (any, error) {
	if p.lazy {
		if f, ok := p.value.(Factory); ok {
			return f.Create()
		}
	}
	return p.value, nil
}

// String identifies the provider for logging
func (p *ProviderRef) String() string {
	return fmt.Sprintf("provider[%d] %v rank=%d", p.ID, p.TypeNames, p.Ranking)
}

// Registration is the opaque handle returned by Register and consumed by
// Unregister
type Registration struct {
	id        string
	serviceID int64
}

// ID returns the unique registration identifier
func (r *Registration) ID() string {
	return r.id
}

// ServiceID returns the registration sequence number
func (r *Registration) ServiceID() int64 {
	return r.serviceID
}

// Tracker is the opaque handle returned by Track and consumed by Untrack
type Tracker struct {
	id         string
	capability string
	active     atomic.Bool
}

// ServiceRegistry is the registry capability consumed by the lifecycle core.
// Implementations deliver tracker callbacks from their own concurrency
// domain; callers must treat every callback as arriving from an unknown
// goroutine.
type ServiceRegistry interface {
	// Register publishes an instance under the given capability type names.
	// Properties may be nil.
	Register(typeNames []string, instance any, props Properties) (*Registration, error)

	// Unregister retracts a registration. Retracting a registration that is
	// no longer current fails with ErrAlreadyUnregistered; callers tolerate
	// this as a benign race outcome.
	Unregister(reg *Registration) error

	// FindProviders returns the providers offering a capability and matching
	// the filter expression, best first (ranking descending, then earliest
	// registration). A malformed filter is an error.
	FindProviders(capability, filterExpr string) ([]*ProviderRef, error)

	// Track subscribes to add/remove notifications for providers matching
	// (capability, filter). Providers already present are delivered as adds.
	// A malformed filter is an error reported here, never deferred to an
	// event.
	Track(capability, filterExpr string, onAdd, onRemove func(*ProviderRef)) (*Tracker, error)

	// Untrack cancels a subscription
	Untrack(t *Tracker) error
}

// LazyFactorySupport is the capability probe for registries that resolve
// Factory values per lookup, giving scope-correct lazy instantiation.
type LazyFactorySupport interface {
	SupportsLazyFactories() bool
}

// byRank sorts provider refs best-first: ranking descending, then earliest
// registration (lowest service id) to keep equal-rank selection stable in
// insertion order.
func byRank(refs []*ProviderRef) {
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].Ranking != refs[j].Ranking {
			return refs[i].Ranking > refs[j].Ranking
		}
		return refs[i].ID < refs[j].ID
	})
}

// rankingOf extracts the ranking property, tolerating the numeric types a
// config layer may produce
func rankingOf(props Properties) int {
	v, ok := props[PropServiceRanking]
	if !ok {
		return 0
	}
	switch t := v.(type) {
	case int:
		return t
	case int64:
		return int(t)
	case float64:
		return int(t)
	case string:
		if n, err := strconv.Atoi(t); err == nil {
			return n
		}
	}
	return 0
}
