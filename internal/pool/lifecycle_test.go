package pool

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLeaseReturnInvokesCallbackOnce(t *testing.T) {
	obj := &token{}
	calls := 0
	obj.Initialize(func(got *token) {
		require.Same(t, obj, got)
		calls++
	})
	require.True(t, obj.Bound())

	obj.RequestReturn()
	obj.RequestReturn()
	require.Equal(t, 1, calls)
	require.False(t, obj.Bound())
}

func TestLeaseInitializeOverwritesCallback(t *testing.T) {
	obj := &token{}
	first, second := 0, 0
	obj.Initialize(func(*token) { first++ })
	obj.Initialize(func(*token) { second++ })

	obj.RequestReturn()
	require.Zero(t, first)
	require.Equal(t, 1, second)
}

func TestLeaseDeactivateDropsCallback(t *testing.T) {
	obj := &token{}
	calls := 0
	obj.SetActive(true)
	obj.Initialize(func(*token) { calls++ })
	require.True(t, obj.IsActive())

	obj.SetActive(false)
	obj.RequestReturn()
	require.False(t, obj.IsActive())
	require.Zero(t, calls)
}
