// Package component implements the component dependency lifecycle core: per
// component, it tracks whether the declared service dependencies are
// currently satisfied and drives the satisfaction state machine that decides
// when a component is published or retracted.
package component

import "fmt"

// Cardinality states whether a dependency must be bound for the component to
// be satisfied
type Cardinality int

const (
	// CardinalityMandatory dependencies gate component satisfaction
	CardinalityMandatory Cardinality = iota
	// CardinalityOptional dependencies never affect satisfaction
	CardinalityOptional
)

// String returns the string representation of Cardinality
func (c Cardinality) String() string {
	switch c {
	case CardinalityMandatory:
		return "mandatory"
	case CardinalityOptional:
		return "optional"
	default:
		return "unknown"
	}
}

// BindingPolicy states how a bound dependency reacts to newly appearing
// providers
type BindingPolicy int

const (
	// PolicySticky keeps the current binding until the provider disappears
	PolicySticky BindingPolicy = iota
	// PolicyGreedy rebinds whenever a better-ranked provider appears
	PolicyGreedy
)

// String returns the string representation of BindingPolicy
func (p BindingPolicy) String() string {
	switch p {
	case PolicySticky:
		return "sticky"
	case PolicyGreedy:
		return "greedy"
	default:
		return "unknown"
	}
}

// Dependency describes one declared dependency of one component: the required
// capability, an optional provider-property filter, cardinality and binding
// policy. Immutable once constructed.
type Dependency struct {
	Capability  string
	Filter      string
	Cardinality Cardinality
	Policy      BindingPolicy
}

// IsMandatory reports whether the dependency gates component satisfaction
func (d Dependency) IsMandatory() bool {
	return d.Cardinality == CardinalityMandatory
}

// String identifies the dependency for logging and error messages
func (d Dependency) String() string {
	if d.Filter != "" {
		return fmt.Sprintf("%s %s %s%s", d.Cardinality, d.Policy, d.Capability, d.Filter)
	}
	return fmt.Sprintf("%s %s %s", d.Cardinality, d.Policy, d.Capability)
}
