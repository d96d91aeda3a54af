package allocator

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ms-deposits/internal/models"
)

// stuckSource makes every IntN(1000) call return the same value.
type stuckSource struct{}

func (stuckSource) Uint64() uint64 { return 1<<63 - 1 }

func seeded() *Allocator {
	return New(rand.NewPCG(42, 1024))
}

func snapshot(numbers ...int) map[int]struct{} {
	s := make(map[int]struct{}, len(numbers))
	for _, n := range numbers {
		s[n] = struct{}{}
	}
	return s
}

func fullPoolExcept(keep ...int) map[int]struct{} {
	skip := snapshot(keep...)
	s := make(map[int]struct{}, models.PoolSize)
	for n := 1; n <= models.PoolSize; n++ {
		if _, ok := skip[n]; !ok {
			s[n] = struct{}{}
		}
	}
	return s
}

func TestAllocate_Multiplier(t *testing.T) {
	a := seeded()

	for _, n := range []int{1, 2, 7} {
		regular, err := a.Allocate(n, false, snapshot())
		require.NoError(t, err)
		assert.Len(t, regular, n)

		vip, err := a.Allocate(n, true, snapshot())
		require.NoError(t, err)
		assert.Len(t, vip, 4*n)
	}
}

func TestAllocate_UniqueAcrossSerializedCalls(t *testing.T) {
	a := seeded()
	used := snapshot()

	for {
		got, err := a.Allocate(3, true, used)
		if err != nil {
			assert.ErrorIs(t, err, ErrInsufficientCapacity)
			break
		}
		for _, n := range got {
			require.GreaterOrEqual(t, n, 1)
			require.LessOrEqual(t, n, models.PoolSize)
			_, dup := used[n]
			require.False(t, dup, "number %d issued twice", n)
			used[n] = struct{}{}
		}
	}

	// 1000 is not a multiple of 12, so the loop stops with a few numbers left
	assert.Equal(t, models.PoolSize%12, Remaining(used))
}

func TestAllocate_AvoidsSnapshot(t *testing.T) {
	a := seeded()
	free := []int{3, 500, 999}
	got, err := a.Allocate(3, false, fullPoolExcept(free...))
	require.NoError(t, err)
	assert.ElementsMatch(t, free, got)
}

func TestAllocate_PoolExhausted(t *testing.T) {
	_, err := seeded().Allocate(1, false, fullPoolExcept())
	assert.ErrorIs(t, err, ErrPoolExhausted)
}

func TestAllocate_InsufficientCapacity(t *testing.T) {
	got, err := seeded().Allocate(5, false, fullPoolExcept(10, 20, 30))
	assert.ErrorIs(t, err, ErrInsufficientCapacity)
	assert.Nil(t, got)

	// VIP multiplier applies before the capacity check
	_, err = seeded().Allocate(1, true, fullPoolExcept(10, 20, 30))
	assert.ErrorIs(t, err, ErrInsufficientCapacity)
}

func TestAllocate_InvalidQuantity(t *testing.T) {
	for _, n := range []int{0, -3} {
		_, err := seeded().Allocate(n, false, snapshot())
		assert.ErrorIs(t, err, ErrInvalidQuantity)
	}
}

func TestAllocate_IgnoresOutOfRangeSnapshotEntries(t *testing.T) {
	used := fullPoolExcept(7)
	used[0] = struct{}{}
	used[1001] = struct{}{}
	used[-5] = struct{}{}

	got, err := seeded().Allocate(1, false, used)
	require.NoError(t, err)
	assert.Equal(t, []int{7}, got)
}

func TestAllocate_FallsBackWhenDrawsKeepColliding(t *testing.T) {
	a := New(stuckSource{})
	got, err := a.Allocate(2, true, snapshot())
	require.NoError(t, err)
	require.Len(t, got, 8)

	seen := snapshot()
	for _, n := range got {
		_, dup := seen[n]
		require.False(t, dup)
		seen[n] = struct{}{}
	}
}

func TestAllocate_DeterministicWithSeed(t *testing.T) {
	first, err := New(rand.NewPCG(7, 7)).Allocate(4, false, snapshot(1, 2, 3))
	require.NoError(t, err)
	second, err := New(rand.NewPCG(7, 7)).Allocate(4, false, snapshot(1, 2, 3))
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestPackageAllocate(t *testing.T) {
	got, err := Allocate(1, false, snapshot())
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestTotalForAndRemaining(t *testing.T) {
	assert.Equal(t, 3, TotalFor(3, false))
	assert.Equal(t, 12, TotalFor(3, true))
	assert.Equal(t, 998, Remaining(snapshot(1, 2, 5000)))
	assert.Equal(t, 2, Used(snapshot(1, 2, 5000)))
}

func TestAllocate_HugeQuantityDoesNotOverflow(t *testing.T) {
	a := seeded()

	for _, base := range []int{1 << 62, 1<<62 + 1, 1<<62 - 1, math.MaxInt / 2, math.MaxInt, 251} {
		got, err := a.Allocate(base, true, snapshot())
		assert.ErrorIs(t, err, ErrInsufficientCapacity, "base=%d", base)
		assert.Nil(t, got, "base=%d", base)
	}

	got, err := a.Allocate(1001, false, snapshot())
	assert.ErrorIs(t, err, ErrInsufficientCapacity)
	assert.Nil(t, got)
}

func TestAllocate_LargestFittingRequest(t *testing.T) {
	got, err := seeded().Allocate(MaxBaseCount(true), true, snapshot())
	require.NoError(t, err)
	assert.Len(t, got, models.PoolSize)

	got, err = seeded().Allocate(MaxBaseCount(false), false, snapshot())
	require.NoError(t, err)
	assert.Len(t, got, models.PoolSize)
}

func TestAllocate_HugeQuantityOnExhaustedPool(t *testing.T) {
	_, err := seeded().Allocate(math.MaxInt, true, fullPoolExcept())
	assert.ErrorIs(t, err, ErrPoolExhausted)
}
