package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorClassString(t *testing.T) {
	assert.Equal(t, "transient", ErrorTransient.String())
	assert.Equal(t, "invalid", ErrorInvalid.String())
	assert.Equal(t, "fatal", ErrorFatal.String())
	assert.Equal(t, "unknown", ErrorClass(42).String())
}

func TestWrapPreservesChain(t *testing.T) {
	err := WrapInvalid(fmt.Errorf("%w: oops", ErrInvalidFilter), "Tracker", "Open", "filter validation")
	require.Error(t, err)

	assert.True(t, stderrors.Is(err, ErrInvalidFilter))
	assert.Contains(t, err.Error(), "Tracker.Open")
	assert.Contains(t, err.Error(), "filter validation")

	var ce *ClassifiedError
	require.True(t, stderrors.As(err, &ce))
	assert.Equal(t, ErrorInvalid, ce.Class)
	assert.Equal(t, "Tracker", ce.Component)
}

func TestWrapNilReturnsNil(t *testing.T) {
	assert.NoError(t, Wrap(nil, "a", "b", "c"))
	assert.NoError(t, WrapInvalid(nil, "a", "b", "c"))
	assert.NoError(t, WrapFatal(nil, "a", "b", "c"))
	assert.NoError(t, WrapTransient(nil, "a", "b", "c"))
}

func TestClassification(t *testing.T) {
	assert.True(t, IsInvalid(ErrInvalidFilter))
	assert.True(t, IsInvalid(ErrUnknownComponent))
	assert.False(t, IsInvalid(ErrUnresolvedDependency))

	assert.True(t, IsFatal(ErrUnresolvedDependency))
	assert.True(t, IsFatal(WrapFatal(fmt.Errorf("boom"), "Manager", "Start", "validation")))
	assert.False(t, IsFatal(ErrAlreadyUnregistered))

	assert.True(t, IsBenign(ErrAlreadyUnregistered))
	assert.True(t, IsBenign(fmt.Errorf("registration xyz: %w", ErrAlreadyUnregistered)))
	assert.False(t, IsBenign(ErrUnresolvedDependency))

	assert.False(t, IsInvalid(nil))
	assert.False(t, IsFatal(nil))
	assert.False(t, IsBenign(nil))
}
