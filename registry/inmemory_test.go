package registry

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/beanbridge/errors"
)

// recorder collects tracker callbacks for assertions
type recorder struct {
	mu      sync.Mutex
	added   []int64
	removed []int64
}

func (r *recorder) onAdd(p *ProviderRef) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.added = append(r.added, p.ID)
}

func (r *recorder) onRemove(p *ProviderRef) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removed = append(r.removed, p.ID)
}

func (r *recorder) snapshot() ([]int64, []int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int64(nil), r.added...), append([]int64(nil), r.removed...)
}

func TestRegisterAndFind(t *testing.T) {
	reg := NewInMemory()
	defer reg.Close()

	_, err := reg.Register([]string{"Cache"}, "memcache", nil)
	require.NoError(t, err)
	_, err = reg.Register([]string{"Cache", "Store"}, "redis", Properties{"tier": "hot"})
	require.NoError(t, err)

	refs, err := reg.FindProviders("Cache", "")
	require.NoError(t, err)
	assert.Len(t, refs, 2)

	refs, err = reg.FindProviders("Store", "")
	require.NoError(t, err)
	require.Len(t, refs, 1)
	value, err := refs[0].Instance()
	require.NoError(t, err)
	assert.Equal(t, "redis", value)

	refs, err = reg.FindProviders("Cache", "(tier=hot)")
	require.NoError(t, err)
	assert.Len(t, refs, 1)

	refs, err = reg.FindProviders("Queue", "")
	require.NoError(t, err)
	assert.Empty(t, refs)
}

func TestRegisterRequiresTypeNames(t *testing.T) {
	reg := NewInMemory()
	defer reg.Close()

	_, err := reg.Register(nil, "x", nil)
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
}

func TestFindProvidersOrdering(t *testing.T) {
	reg := NewInMemory()
	defer reg.Close()

	low, err := reg.Register([]string{"Svc"}, "low", nil)
	require.NoError(t, err)
	high, err := reg.Register([]string{"Svc"}, "high", Properties{PropServiceRanking: 10})
	require.NoError(t, err)
	tied, err := reg.Register([]string{"Svc"}, "tied", Properties{PropServiceRanking: 10})
	require.NoError(t, err)

	refs, err := reg.FindProviders("Svc", "")
	require.NoError(t, err)
	require.Len(t, refs, 3)

	// Highest ranking first; equal rankings keep registration order.
	assert.Equal(t, high.ServiceID(), refs[0].ID)
	assert.Equal(t, tied.ServiceID(), refs[1].ID)
	assert.Equal(t, low.ServiceID(), refs[2].ID)
}

func TestFindProvidersMalformedFilter(t *testing.T) {
	reg := NewInMemory()
	defer reg.Close()

	_, err := reg.FindProviders("Svc", "(broken")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidFilter))
}

func TestUnregisterTwiceIsBenign(t *testing.T) {
	reg := NewInMemory()
	defer reg.Close()

	handle, err := reg.Register([]string{"Svc"}, "x", nil)
	require.NoError(t, err)

	require.NoError(t, reg.Unregister(handle))
	err = reg.Unregister(handle)
	require.Error(t, err)
	assert.True(t, errors.IsBenign(err))
}

func TestTrackDeliversExistingProviders(t *testing.T) {
	reg := NewInMemory()
	defer reg.Close()

	a, err := reg.Register([]string{"Svc"}, "a", nil)
	require.NoError(t, err)
	b, err := reg.Register([]string{"Svc"}, "b", nil)
	require.NoError(t, err)

	rec := &recorder{}
	tracker, err := reg.Track("Svc", "", rec.onAdd, rec.onRemove)
	require.NoError(t, err)
	reg.Flush()

	added, _ := rec.snapshot()
	assert.Equal(t, []int64{a.ServiceID(), b.ServiceID()}, added)

	require.NoError(t, reg.Untrack(tracker))
}

func TestTrackAddRemoveNotifications(t *testing.T) {
	reg := NewInMemory()
	defer reg.Close()

	rec := &recorder{}
	tracker, err := reg.Track("Svc", "(lang=en)", rec.onAdd, rec.onRemove)
	require.NoError(t, err)

	en, err := reg.Register([]string{"Svc"}, "en", Properties{"lang": "en"})
	require.NoError(t, err)
	_, err = reg.Register([]string{"Svc"}, "fr", Properties{"lang": "fr"})
	require.NoError(t, err)
	reg.Flush()

	added, removed := rec.snapshot()
	assert.Equal(t, []int64{en.ServiceID()}, added)
	assert.Empty(t, removed)

	require.NoError(t, reg.Unregister(en))
	reg.Flush()

	_, removed = rec.snapshot()
	assert.Equal(t, []int64{en.ServiceID()}, removed)

	require.NoError(t, reg.Untrack(tracker))
}

func TestTrackMalformedFilterFailsAtOpen(t *testing.T) {
	reg := NewInMemory()
	defer reg.Close()

	_, err := reg.Track("Svc", "(broken", nil, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidFilter))
}

func TestUntrackStopsDelivery(t *testing.T) {
	reg := NewInMemory()
	defer reg.Close()

	rec := &recorder{}
	tracker, err := reg.Track("Svc", "", rec.onAdd, rec.onRemove)
	require.NoError(t, err)
	require.NoError(t, reg.Untrack(tracker))

	_, err = reg.Register([]string{"Svc"}, "x", nil)
	require.NoError(t, err)
	reg.Flush()

	added, _ := rec.snapshot()
	assert.Empty(t, added)
}

func TestClosedRegistryRejectsMutations(t *testing.T) {
	reg := NewInMemory()
	reg.Close()

	_, err := reg.Register([]string{"Svc"}, "x", nil)
	assert.True(t, errors.Is(err, errors.ErrRegistryClosed))

	_, err = reg.Track("Svc", "", nil, nil)
	assert.True(t, errors.Is(err, errors.ErrRegistryClosed))
}

func TestLazyFactoryResolution(t *testing.T) {
	eager := NewInMemory()
	defer eager.Close()
	assert.False(t, eager.SupportsLazyFactories())

	lazy := NewInMemory(WithLazyFactories())
	defer lazy.Close()
	assert.True(t, lazy.SupportsLazyFactories())

	created := 0
	_, err := lazy.Register([]string{"Svc"}, factoryFunc(func() (any, error) {
		created++
		return created, nil
	}), nil)
	require.NoError(t, err)

	refs, err := lazy.FindProviders("Svc", "")
	require.NoError(t, err)
	require.Len(t, refs, 1)

	first, err := refs[0].Instance()
	require.NoError(t, err)
	second, err := refs[0].Instance()
	require.NoError(t, err)
	assert.Equal(t, 1, first)
	assert.Equal(t, 2, second)
}

type factoryFunc func() (any, error)

func (f factoryFunc) Create() (any, error) { return f() }

func TestConcurrentRegistrations(t *testing.T) {
	reg := NewInMemory()
	defer reg.Close()

	rec := &recorder{}
	_, err := reg.Track("Svc", "", rec.onAdd, rec.onRemove)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			handle, err := reg.Register([]string{"Svc"}, "x", nil)
			assert.NoError(t, err)
			assert.NoError(t, reg.Unregister(handle))
		}()
	}
	wg.Wait()
	reg.Flush()

	added, removed := rec.snapshot()
	assert.Len(t, added, 20)
	assert.Len(t, removed, 20)
}
