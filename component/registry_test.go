package component

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/beanbridge/errors"
	"github.com/c360/beanbridge/registry"
)

func TestRegistryAddAndLookup(t *testing.T) {
	r := NewRegistry("unit-a")
	assert.Equal(t, "unit-a", r.Unit())

	a := newTestDescriptor(t)
	require.NoError(t, r.Add(a))

	got, err := r.Descriptor(a.Identity())
	require.NoError(t, err)
	assert.Same(t, a, got)

	_, err = r.Descriptor("no.such.Component")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrUnknownComponent))
}

func TestRegistryRejectsDuplicateIdentity(t *testing.T) {
	r := NewRegistry("unit-a")
	require.NoError(t, r.Add(newTestDescriptor(t)))

	err := r.Add(newTestDescriptor(t))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrAlreadyRegistered))
}

func TestRegistryRejectsNilDescriptor(t *testing.T) {
	r := NewRegistry("unit-a")
	err := r.Add(nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidConfig))
}

func TestRegistryComponentsPreserveOrder(t *testing.T) {
	r := NewRegistry("unit-a")
	identities := []string{"c.Third", "a.First", "b.Second"}
	for _, id := range identities {
		require.NoError(t, r.Add(NewDescriptor(Declaration{
			Identity: id, Unit: "unit-a",
		}, &Dependencies{})))
	}

	got := r.Components()
	require.Len(t, got, len(identities))
	for i, id := range identities {
		assert.Equal(t, id, got[i].Identity())
	}
}

func TestRegistryContextLifecycle(t *testing.T) {
	r := NewRegistry("unit-a")
	assert.Nil(t, r.Context())

	reg := registry.NewInMemory()
	defer reg.Close()

	r.SetContext(reg)
	assert.NotNil(t, r.Context())

	r.SetContext(nil)
	assert.Nil(t, r.Context())
}

func TestRegistryNonComponentDependencies(t *testing.T) {
	r := NewRegistry("unit-a")
	assert.Empty(t, r.NonComponentDependencies())

	r.AddNonComponentDependency(mandatory("Svc"))
	r.AddNonComponentDependency(Dependency{
		Capability: "Extra", Cardinality: CardinalityOptional, Policy: PolicySticky,
	})

	deps := r.NonComponentDependencies()
	require.Len(t, deps, 2)
	assert.Equal(t, "Svc", deps[0].Capability)
	assert.Equal(t, "Extra", deps[1].Capability)
}

func TestRegistryOwnership(t *testing.T) {
	r := NewRegistry("unit-a")

	owned := NewDescriptor(Declaration{Identity: "a.C", Unit: "unit-a"}, &Dependencies{})
	foreign := NewDescriptor(Declaration{Identity: "b.C", Unit: "unit-b"}, &Dependencies{})

	assert.True(t, r.Owns(owned))
	assert.False(t, r.Owns(foreign))
}
