// Implements the per-lane best-cost lookup: a direct-indexed array mapping
// state -> best ordered-int cost observed this frame, relaxed via
// lock-free compare-and-swap (an integer atomic_min) and reset lazily by
// walking only the states touched this frame, never the full state space.

package decoder

import (
	"sync"
	"sync/atomic"
)

// BestCostLookup is per-lane, transient, and never persisted across
// frames. It is sized to the FST's state count once and reused frame to
// frame.
type BestCostLookup struct {
	lookup []atomic.Int32 // OrderedInt per state

	// touched holds the states written this frame, for cheap reset. The
	// arc-expansion workers relax concurrently, so first-touch appends are
	// serialized under touchedMu; the relaxation itself stays lock-free.
	touchedMu sync.Mutex
	touched   []int32
}

// NewBestCostLookup allocates a lookup sized to numStates, initialized to
// +Inf everywhere.
func NewBestCostLookup(numStates int) *BestCostLookup {
	b := &BestCostLookup{
		lookup: make([]atomic.Int32, numStates),
	}
	for i := range b.lookup {
		b.lookup[i].Store(int32(MaxOrderedInt))
	}
	return b
}

// Relax performs an atomic_min of cost into lookup[state], returning the
// old value. It also records state as touched so a later ResetTouched call
// can restore it to +Inf without scanning the full state space.
func (b *BestCostLookup) Relax(state int32, cost OrderedInt) OrderedInt {
	addr := &b.lookup[state]
	for {
		old := addr.Load()
		if OrderedInt(old) <= cost {
			return OrderedInt(old)
		}
		if addr.CompareAndSwap(old, int32(cost)) {
			if old == int32(MaxOrderedInt) {
				b.touchedMu.Lock()
				b.touched = append(b.touched, state)
				b.touchedMu.Unlock()
			}
			return OrderedInt(old)
		}
	}
}

// Get returns the current best cost recorded for state.
func (b *BestCostLookup) Get(state int32) OrderedInt {
	return OrderedInt(b.lookup[state].Load())
}

// ResetTouched restores +Inf to every state touched since the last reset,
// bounded by the number of distinct states visited this frame rather than
// the full state space.
func (b *BestCostLookup) ResetTouched() {
	for _, s := range b.touched {
		b.lookup[s].Store(int32(MaxOrderedInt))
	}
	b.touched = b.touched[:0]
}

// ResetFromTokens re-initializes the lookup to exactly the states present
// in tokens[:end], restoring the invariant that every surviving token has
// lookup[t.next_state] == t.int_cost.
func (b *BestCostLookup) ResetFromTokens(q *TokenQueue, end int) {
	b.ResetTouched()
	for i := 0; i < end; i++ {
		sc := q.StateCosts[i]
		b.Relax(sc.State, sc.IntCost)
	}
}
