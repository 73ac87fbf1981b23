package component

// DependencyListener receives component satisfaction transitions. Callbacks
// run inside the descriptor's exclusion region: transitions for one
// descriptor are never delivered concurrently, and implementations must not
// call back into Start, Stop or SetListener of the same descriptor.
type DependencyListener interface {
	// OnComponentSatisfied fires when the last unbound mandatory dependency
	// becomes bound
	OnComponentSatisfied(d *Descriptor)

	// OnComponentUnsatisfied fires when any mandatory dependency becomes
	// unbound, before registration bookkeeping is cleared
	OnComponentUnsatisfied(d *Descriptor)
}

// NoopListener ignores all notifications. It is the default listener of a new
// descriptor and is installed during deployment-unit shutdown so a late
// provider event cannot republish a component mid-teardown.
type NoopListener struct{}

// OnComponentSatisfied implements DependencyListener
func (NoopListener) OnComponentSatisfied(*Descriptor) {}

// OnComponentUnsatisfied implements DependencyListener
func (NoopListener) OnComponentUnsatisfied(*Descriptor) {}
