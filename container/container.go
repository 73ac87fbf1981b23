// Package container defines the managed-bean container capability consumed by
// the lifecycle manager: constructing and destroying contextual component
// instances by identity. StaticContainer is a map-backed implementation for
// embedding and tests; real containers adapt their own instantiation
// machinery behind the same interface.
package container

import (
	"fmt"
	"sync"

	"github.com/c360/beanbridge/errors"
)

// NewFunc constructs a contextual instance of a component
type NewFunc func() (any, error)

// DestroyFunc releases a contextual instance of a component
type DestroyFunc func(instance any)

// Container is the bean-container side consumed by the lifecycle manager
type Container interface {
	// Create constructs a contextual instance of the identified component
	Create(identity string) (any, error)

	// Destroy releases a contextual instance previously returned by Create
	Destroy(identity string, instance any)
}

// StaticContainer is a thread-safe Container over explicitly registered
// constructor and destructor functions
type StaticContainer struct {
	mu           sync.RWMutex
	constructors map[string]NewFunc
	destructors  map[string]DestroyFunc
}

// NewStaticContainer creates an empty static container
func NewStaticContainer() *StaticContainer {
	return &StaticContainer{
		constructors: make(map[string]NewFunc),
		destructors:  make(map[string]DestroyFunc),
	}
}

// Register installs the constructor and optional destructor for a component
// identity. Registering an identity twice is an error.
func (c *StaticContainer) Register(identity string, create NewFunc, destroy DestroyFunc) error {
	if identity == "" {
		return errors.WrapInvalid(
			fmt.Errorf("%w: empty identity", errors.ErrInvalidConfig),
			"StaticContainer", "Register", "identity validation")
	}
	if create == nil {
		return errors.WrapInvalid(
			fmt.Errorf("%w: nil constructor for %s", errors.ErrInvalidConfig, identity),
			"StaticContainer", "Register", "constructor validation")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.constructors[identity]; exists {
		return errors.WrapInvalid(
			fmt.Errorf("%w: component %s", errors.ErrAlreadyRegistered, identity),
			"StaticContainer", "Register", "duplicate identity check")
	}
	c.constructors[identity] = create
	if destroy != nil {
		c.destructors[identity] = destroy
	}
	return nil
}

// Create constructs a contextual instance of the identified component
func (c *StaticContainer) Create(identity string) (any, error) {
	c.mu.RLock()
	create, exists := c.constructors[identity]
	c.mu.RUnlock()

	if !exists {
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: %s", errors.ErrUnknownComponent, identity),
			"StaticContainer", "Create", "identity lookup")
	}
	return create()
}

// Destroy releases a contextual instance. Unknown identities and components
// without a destructor are ignored.
func (c *StaticContainer) Destroy(identity string, instance any) {
	c.mu.RLock()
	destroy, exists := c.destructors[identity]
	c.mu.RUnlock()

	if exists && instance != nil {
		destroy(instance)
	}
}
