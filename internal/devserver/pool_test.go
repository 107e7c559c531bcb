package devserver

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewPool_NoServers_Fails(t *testing.T) {
	_, err := NewPool(nil, nil, nil)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrEmptyPool))
}

func TestPick_RotatesAcrossPool(t *testing.T) {
	pool, err := NewPool([]string{"http://ds1:8082", "http://ds2:8082", "http://ds3:8082"}, nil, nil)
	require.NoError(t, err)

	seen := make(map[string]int)
	for i := 0; i < 9; i++ {
		seen[pool.Pick().Name()]++
	}

	require.Len(t, seen, 3, "selections must spread across the whole pool")
	for name, n := range seen {
		require.Equal(t, 3, n, "round-robin shares picks evenly, got %d for %s", n, name)
	}
}

func TestPick_NeverSticksToOneServer(t *testing.T) {
	pool, err := NewPool([]string{"http://ds1:8082", "http://ds2:8082"}, nil, nil)
	require.NoError(t, err)

	first := pool.Pick().Name()
	sawOther := false
	for i := 0; i < 10; i++ {
		if pool.Pick().Name() != first {
			sawOther = true
			break
		}
	}
	require.True(t, sawOther, "repeated picks must not always return the same server")
}

func TestPickRandom_CoversPoolEventually(t *testing.T) {
	pool, err := NewPool([]string{"http://ds1:8082", "http://ds2:8082"}, nil, nil)
	require.NoError(t, err)

	seen := make(map[string]bool)
	for i := 0; i < 200 && len(seen) < 2; i++ {
		seen[pool.PickRandom().Name()] = true
	}
	require.Len(t, seen, 2, "random picks must reach every pool member over many calls")
}

func TestNames_PreservesConfigurationOrder(t *testing.T) {
	pool, err := NewPool([]string{"http://ds1:8082", "http://ds2:8082"}, nil, nil)
	require.NoError(t, err)
	require.Equal(t, []string{"http://ds1:8082", "http://ds2:8082"}, pool.Names())
	require.Equal(t, 2, pool.Size())
}
