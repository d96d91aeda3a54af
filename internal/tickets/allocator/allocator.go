package allocator

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"

	"ms-deposits/internal/models"
)

var (
	ErrInvalidQuantity      = errors.New("ticket quantity must be at least 1")
	ErrPoolExhausted        = errors.New("all ticket numbers have already been used")
	ErrInsufficientCapacity = errors.New("not enough ticket numbers left for this request")
)

// drawBudgetFactor bounds random draws to a multiple of the free slot count.
// Whatever is still missing after that comes from a shuffled free list.
const drawBudgetFactor = 8

// Allocator draws unique ticket numbers from 1..models.PoolSize. It keeps no
// state between calls; the caller passes the numbers already taken.
type Allocator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// New returns an allocator drawing from src. A nil src uses the runtime's
// global generator.
func New(src rand.Source) *Allocator {
	a := &Allocator{}
	if src != nil {
		a.rng = rand.New(src)
	}
	return a
}

var defaultAllocator = New(nil)

// Allocate uses the process-wide allocator.
func Allocate(baseCount int, vip bool, allocated map[int]struct{}) ([]int, error) {
	return defaultAllocator.Allocate(baseCount, vip, allocated)
}

// TotalFor is the number of tickets a deposit is owed.
func TotalFor(baseCount int, vip bool) int {
	if vip {
		return baseCount * models.VIPMultiplier
	}
	return baseCount
}

// MaxBaseCount is the largest quantity whose ticket total fits in the pool.
func MaxBaseCount(vip bool) int {
	if vip {
		return models.PoolSize / models.VIPMultiplier
	}
	return models.PoolSize
}

// Used counts the members of allocated that are valid pool numbers.
func Used(allocated map[int]struct{}) int {
	used := 0
	for n := range allocated {
		if inPool(n) {
			used++
		}
	}
	return used
}

// Remaining is the number of free slots left in the pool.
func Remaining(allocated map[int]struct{}) int {
	return models.PoolSize - Used(allocated)
}

// Allocate returns TotalFor(baseCount, vip) distinct numbers, none of which is
// in allocated. The first element is the primary ticket. On error nothing is
// returned.
//
// Exhaustion and capacity are judged on the members of allocated that lie in
// 1..models.PoolSize; out-of-range entries never block a draw.
func (a *Allocator) Allocate(baseCount int, vip bool, allocated map[int]struct{}) ([]int, error) {
	if baseCount < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidQuantity, baseCount)
	}

	free := Remaining(allocated)
	if free <= 0 {
		return nil, ErrPoolExhausted
	}
	// bound before multiplying so huge quantities cannot wrap
	if baseCount > MaxBaseCount(vip) {
		return nil, fmt.Errorf("%w: %d base ticket(s) requested (vip=%t), %d remaining", ErrInsufficientCapacity, baseCount, vip, free)
	}

	total := TotalFor(baseCount, vip)
	if free < total {
		return nil, fmt.Errorf("%w: %d requested, %d remaining", ErrInsufficientCapacity, total, free)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	accepted := make([]int, 0, total)
	taken := make(map[int]struct{}, total)

	budget := drawBudgetFactor * free
	for draws := 0; len(accepted) < total && draws < budget; draws++ {
		n := a.intN(models.PoolSize) + 1
		if _, ok := allocated[n]; ok {
			continue
		}
		if _, ok := taken[n]; ok {
			continue
		}
		taken[n] = struct{}{}
		accepted = append(accepted, n)
	}

	if missing := total - len(accepted); missing > 0 {
		candidates := make([]int, 0, free-len(accepted))
		for n := 1; n <= models.PoolSize; n++ {
			if _, ok := allocated[n]; ok {
				continue
			}
			if _, ok := taken[n]; ok {
				continue
			}
			candidates = append(candidates, n)
		}
		a.shuffle(candidates)
		accepted = append(accepted, candidates[:missing]...)
	}

	return accepted, nil
}

func (a *Allocator) intN(n int) int {
	if a.rng == nil {
		return rand.IntN(n)
	}
	return a.rng.IntN(n)
}

func (a *Allocator) shuffle(s []int) {
	swap := func(i, j int) { s[i], s[j] = s[j], s[i] }
	if a.rng == nil {
		rand.Shuffle(len(s), swap)
		return
	}
	a.rng.Shuffle(len(s), swap)
}

func inPool(n int) bool {
	return n >= 1 && n <= models.PoolSize
}
