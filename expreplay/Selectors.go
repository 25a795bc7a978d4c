package expreplay

import (
	"golang.org/x/exp/rand"
)

// Selector chooses which stored transitions are sampled. Indices are
// logical: 0 is the oldest transition in the buffer and n-1 the newest.
type Selector interface {
	// choose returns k distinct indices in [0, n). It assumes k <= n.
	choose(n, k int) []int
}

// uniformSelector selects k distinct indices uniformly randomly
type uniformSelector struct {
	rng *rand.Rand
}

// NewUniformSelector returns a new Selector which selects data uniformly
// randomly, without replacement, from an experience replay buffer
func NewUniformSelector(seed uint64) Selector {
	source := rand.NewSource(seed)
	rng := rand.New(source)

	return &uniformSelector{rng: rng}
}

// choose uses Floyd's algorithm so that only k random draws are needed
// regardless of how many transitions are stored.
func (u *uniformSelector) choose(n, k int) []int {
	selected := make([]int, 0, k)
	seen := make(map[int]struct{}, k)

	for j := n - k; j < n; j++ {
		index := u.rng.Intn(j + 1)
		if _, ok := seen[index]; ok {
			index = j
		}
		seen[index] = struct{}{}
		selected = append(selected, index)
	}

	return selected
}
