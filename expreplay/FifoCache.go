package expreplay

import (
	"fmt"

	"github.com/gkotti4/UE5-ReinforcementLearning-AI/timestep"
)

// fifoCache implements a concrete ExperienceReplayer as a ring buffer.
// When the buffer is full, adding a transition overwrites the oldest
// one, so the stored transitions are always the most recent
// MaxCapacity() additions in insertion order.
//
// Transitions are stored in flat caches so that batches can be copied
// out without allocating a vector per transition.
type fifoCache struct {
	stateCache     []float64
	actionCache    []int
	rewardCache    []float64
	discountCache  []float64
	nextStateCache []float64

	next int // Physical slot the next transition is written to
	size int

	sampler Selector

	maxCapacity int
	featureSize int
}

// New creates and returns a new ExperienceReplayer holding at most
// maxCapacity transitions with state vectors of length featureSize.
// The sampler determines how batches are drawn.
func New(sampler Selector, maxCapacity, featureSize int) (
	ExperienceReplayer, error) {
	if maxCapacity < 1 {
		return &fifoCache{}, fmt.Errorf("new: maxCapacity must be >= 1")
	}
	if featureSize < 1 {
		return &fifoCache{}, fmt.Errorf("new: featureSize must be >= 1")
	}

	return &fifoCache{
		stateCache:     make([]float64, maxCapacity*featureSize),
		actionCache:    make([]int, maxCapacity),
		rewardCache:    make([]float64, maxCapacity),
		discountCache:  make([]float64, maxCapacity),
		nextStateCache: make([]float64, maxCapacity*featureSize),

		sampler: sampler,

		maxCapacity: maxCapacity,
		featureSize: featureSize,
	}, nil
}

// String returns the string representation of the fifoCache
func (c *fifoCache) String() string {
	baseStr := "Size: %v/%v \nStates: %v \nActions: %v \nRewards: %v" +
		" \nDiscounts: %v \nNext States: %v"
	return fmt.Sprintf(baseStr, c.size, c.maxCapacity, c.stateCache,
		c.actionCache, c.rewardCache, c.discountCache, c.nextStateCache)
}

// slot converts a logical index (0 = oldest) to a physical slot
func (c *fifoCache) slot(index int) int {
	start := (c.next - c.size + c.maxCapacity) % c.maxCapacity
	return (start + index) % c.maxCapacity
}

// Add adds a transition to the fifoCache
func (c *fifoCache) Add(t timestep.Transition) error {
	if t.State.Len() != c.featureSize || t.NextState.Len() != c.featureSize {
		return fmt.Errorf("add: invalid feature size \n\twant(%v)\n\thave(%v)",
			c.featureSize, t.State.Len())
	}

	index := c.next

	stateInd := index * c.featureSize
	copy(c.stateCache[stateInd:stateInd+c.featureSize],
		t.State.RawVector().Data)
	copy(c.nextStateCache[stateInd:stateInd+c.featureSize],
		t.NextState.RawVector().Data)

	c.actionCache[index] = t.Action
	c.rewardCache[index] = t.Reward
	c.discountCache[index] = t.Discount()

	c.next = (c.next + 1) % c.maxCapacity
	if c.size < c.maxCapacity {
		c.size++
	}
	return nil
}

// Sample samples and returns a batch of distinct transitions from the
// replay buffer
func (c *fifoCache) Sample(batchSize int) (Batch, error) {
	if batchSize < 1 || batchSize > c.size {
		cause := fmt.Errorf("%w: want(%v) have(%v)", ErrInsufficientSamples,
			batchSize, c.size)
		return Batch{}, &ExpReplayError{Op: "sample", Err: cause}
	}

	indices := c.sampler.choose(c.size, batchSize)

	batch := Batch{
		State:       make([]float64, batchSize*c.featureSize),
		Action:      make([]int, batchSize),
		Reward:      make([]float64, batchSize),
		Discount:    make([]float64, batchSize),
		NextState:   make([]float64, batchSize*c.featureSize),
		featureSize: c.featureSize,
	}

	for i, index := range indices {
		slot := c.slot(index)

		batchStartInd := i * c.featureSize
		expStartInd := slot * c.featureSize
		copy(batch.State[batchStartInd:batchStartInd+c.featureSize],
			c.stateCache[expStartInd:expStartInd+c.featureSize])
		copy(batch.NextState[batchStartInd:batchStartInd+c.featureSize],
			c.nextStateCache[expStartInd:expStartInd+c.featureSize])

		batch.Action[i] = c.actionCache[slot]
		batch.Reward[i] = c.rewardCache[slot]
		batch.Discount[i] = c.discountCache[slot]
	}

	return batch, nil
}

// Len returns the current number of transitions in the fifoCache
func (c *fifoCache) Len() int {
	return c.size
}

// MaxCapacity returns the maximum number of transitions that are
// allowed in the fifoCache
func (c *fifoCache) MaxCapacity() int {
	return c.maxCapacity
}
