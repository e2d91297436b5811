package decoder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNonEmittingClosureFollowsEpsilonChain verifies that a chain of
// epsilon arcs is fully traversed within one closure call, and that the
// closure terminates: running it again is a no-op since narcs==0 at the
// very first contract once nothing new can relax.
func TestNonEmittingClosureFollowsEpsilonChain(t *testing.T) {
	fst := NewCSRFst(0, []float32{posInfForTest, posInfForTest, 0}, [][]Arc{
		0: {{NextState: 1, Ilabel: 0, Olabel: 100, Weight: 1.0}},
		1: {{NextState: 2, Ilabel: 0, Olabel: 200, Weight: 2.0}},
		2: {},
	})
	l := newTestLane(3, 8)
	l.MainQ.StateCosts[0] = StateCost{State: 0, IntCost: FloatToOrderedInt(0)}
	l.MainQ.InfoTokens[0] = InfoToken{PrevToken: -1, ArcIdx: -1}
	l.MainQEnd.Store(1)
	l.PrevCount = 1
	l.PrevBase = 0
	l.MainQGlobalOffset = 0
	l.BestCost.Relax(0, FloatToOrderedInt(0))
	l.MinIntCost.Store(int32(FloatToOrderedInt(0)))
	l.IntCutoff.Store(int32(FloatToOrderedInt(100)))
	l.IntBeam = FloatToOrderedInt(100)

	// Seed aux with the single start token, as InitDecoding's bootstrap
	// does via its own non-emitting expand call before closureLoop.
	l.AuxQ.StateCosts[0] = StateCost{State: 0, IntCost: FloatToOrderedInt(0)}
	l.AuxQ.InfoTokens[0] = InfoToken{PrevToken: -1, ArcIdx: -1}
	l.AuxQEnd.Store(1)

	require.Nil(t, closureLoop(l, fst))

	end := int(l.MainQEnd.Load())
	states := make([]int32, end)
	for i := 0; i < end; i++ {
		states[i] = l.MainQ.StateCosts[i].State
	}
	assert.Contains(t, states, int32(2), "expected state 2 to be reached via the epsilon chain")
	assert.Equal(t, int32(0), l.MainQNArcs.Load(), "closure should terminate with narcs == 0")
}

// TestNonEmittingClosureIdempotentOnStableQueue exercises idempotence more
// directly: once closureLoop has stabilized (narcs == 0), invoking
// preprocess-and-contract again on an empty aux changes nothing.
func TestNonEmittingClosureIdempotentOnStableQueue(t *testing.T) {
	fst := NewCSRFst(0, []float32{0}, [][]Arc{0: {}})
	l := newTestLane(1, 8)
	l.MainQ.StateCosts[0] = StateCost{State: 0, IntCost: FloatToOrderedInt(0)}
	l.MainQEnd.Store(1)
	l.BestCost.Relax(0, FloatToOrderedInt(0))
	l.IntCutoff.Store(int32(FloatToOrderedInt(100)))

	l.AuxQ.StateCosts[0] = StateCost{State: 0, IntCost: FloatToOrderedInt(0)}
	l.AuxQEnd.Store(1)

	require.Nil(t, closureLoop(l, fst))
	first := l.MainQEnd.Load()

	// Re-running with an empty aux must not change the main queue.
	l.AuxQEnd.Store(0)
	require.Nil(t, closureLoop(l, fst))
	assert.Equal(t, first, l.MainQEnd.Load(), "idempotent closure changed MainQEnd")
}

const posInfForTest = 3.4028235e+38
