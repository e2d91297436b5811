package decoder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestLane builds a lane with an already-open cutoff; tests that
// exercise the keep predicate's cutoff conjunct set IntCutoff themselves,
// and the rest focus on its best-per-state conjunct.
func newTestLane(numStates, capacity int) *LaneState {
	l := NewLaneState(numStates, capacity)
	l.BestCost = NewBestCostLookup(numStates)
	l.IntCutoff.Store(int32(MaxOrderedInt))
	l.Beam = newAdaptiveBeamState(FloatToOrderedInt(15), capacity)
	return l
}

func TestPreprocessAndContractKeepsOnlyCutoffAndBestCostSurvivors(t *testing.T) {
	fst := NewCSRFst(0, []float32{0, 0, 0}, [][]Arc{
		0: {{NextState: 1, Ilabel: 1, Olabel: 1, Weight: 0.1}},
		1: {},
		2: {},
	})
	l := newTestLane(3, 8)
	l.IntCutoff.Store(int32(FloatToOrderedInt(5)))

	// Token A: state 1, cost 2 (kept: under cutoff and the only record for state 1).
	l.AuxQ.StateCosts[0] = StateCost{State: 1, IntCost: FloatToOrderedInt(2)}
	// Token B: state 2, cost 2, but stale relative to BestCost (dropped).
	l.AuxQ.StateCosts[1] = StateCost{State: 2, IntCost: FloatToOrderedInt(2)}
	// Token C: state 2, cost 10 (over cutoff, dropped).
	l.AuxQ.StateCosts[2] = StateCost{State: 2, IntCost: FloatToOrderedInt(10)}
	l.AuxQEnd.Store(3)

	l.BestCost.Relax(1, FloatToOrderedInt(2))
	l.BestCost.Relax(2, FloatToOrderedInt(1)) // state 2's true best is 1, not 2 or 10

	require.Nil(t, preprocessAndContract(l, fst, true))

	end := int(l.MainQEnd.Load())
	require.Equal(t, 1, end, "expected exactly 1 survivor")
	assert.EqualValues(t, 1, l.MainQ.StateCosts[0].State)
	assert.EqualValues(t, 0, l.AuxQEnd.Load(), "AuxQEnd should be reset to 0")
}

func TestPreprocessAndContractDegreesPrefixSum(t *testing.T) {
	fst := NewCSRFst(0, []float32{0, 0, 0}, [][]Arc{
		0: {},
		1: {{NextState: 2, Ilabel: 1, Olabel: 1, Weight: 0}, {NextState: 2, Ilabel: 2, Olabel: 2, Weight: 0}},
		2: {{NextState: 2, Ilabel: 3, Olabel: 3, Weight: 0}},
	})
	l := newTestLane(3, 8)
	l.IntCutoff.Store(int32(MaxOrderedInt))
	l.AuxQ.StateCosts[0] = StateCost{State: 1, IntCost: FloatToOrderedInt(1)}
	l.AuxQ.StateCosts[1] = StateCost{State: 2, IntCost: FloatToOrderedInt(2)}
	l.AuxQEnd.Store(2)
	l.BestCost.Relax(1, FloatToOrderedInt(1))
	l.BestCost.Relax(2, FloatToOrderedInt(2))

	require.Nil(t, preprocessAndContract(l, fst, true))

	end := int(l.MainQEnd.Load())
	require.Equal(t, 2, end, "expected 2 survivors")
	// State 1 has out-degree 2, state 2 has out-degree 1: prefix sum should
	// be [0, 2, 3].
	want := []int32{0, 2, 3}
	for i, w := range want {
		assert.Equal(t, w, l.MainQ.DegreesPrefixSum[i], "DegreesPrefixSum[%d]", i)
	}
	assert.EqualValues(t, 3, l.MainQNArcs.Load())
}

func TestPreprocessAndContractOverflowSetsFlag(t *testing.T) {
	fst := NewCSRFst(0, []float32{0, 0}, [][]Arc{0: {}, 1: {}})
	l := newTestLane(2, 1) // capacity 1, two candidates
	l.IntCutoff.Store(int32(MaxOrderedInt))
	l.AuxQ.StateCosts[0] = StateCost{State: 0, IntCost: FloatToOrderedInt(1)}
	l.AuxQ.StateCosts[1] = StateCost{State: 1, IntCost: FloatToOrderedInt(2)}
	l.AuxQEnd.Store(2)
	l.BestCost.Relax(0, FloatToOrderedInt(1))
	l.BestCost.Relax(1, FloatToOrderedInt(2))

	err := preprocessAndContract(l, fst, true)
	require.Error(t, err)
	assert.True(t, err.Recoverable, "expected a recoverable overflow error")
	assert.True(t, l.MainOverflow.Load(), "expected MainOverflow to be set")
	assert.EqualValues(t, 1, l.MainQEnd.Load(), "expected exactly capacity (1) survivors after overflow")
}

func TestPreprocessInPlaceDoesNotReorderTokens(t *testing.T) {
	fst := NewCSRFst(0, []float32{0, 0, 0}, [][]Arc{
		0: {},
		1: {{NextState: 2, Ilabel: 1, Olabel: 1, Weight: 0}},
		2: {},
	})
	l := newTestLane(3, 8)
	l.IntCutoff.Store(int32(MaxOrderedInt))
	l.MainQ.StateCosts[0] = StateCost{State: 1, IntCost: FloatToOrderedInt(1)}
	l.MainQ.StateCosts[1] = StateCost{State: 2, IntCost: FloatToOrderedInt(1)}
	l.MainQEnd.Store(2)
	l.MainQLocalOffset = 0
	l.BestCost.Relax(1, FloatToOrderedInt(1))
	l.BestCost.Relax(2, FloatToOrderedInt(1))

	preprocessInPlace(l, fst, true)

	// Absolute indices/order must be unchanged.
	require.EqualValues(t, 1, l.MainQ.StateCosts[0].State)
	require.EqualValues(t, 2, l.MainQ.StateCosts[1].State)
	// State 1 has out-degree 1, state 2 has out-degree 0.
	assert.EqualValues(t, 1, l.MainQNArcs.Load())
}

func TestPreprocessInPlaceZerosOutDegreeForFilteredTokens(t *testing.T) {
	fst := NewCSRFst(0, []float32{0}, [][]Arc{
		0: {{NextState: 0, Ilabel: 1, Olabel: 1, Weight: 0}},
	})
	l := newTestLane(1, 8)
	l.IntCutoff.Store(int32(FloatToOrderedInt(5)))
	l.MainQ.StateCosts[0] = StateCost{State: 0, IntCost: FloatToOrderedInt(10)} // over cutoff
	l.MainQEnd.Store(1)
	l.MainQLocalOffset = 0
	l.BestCost.Relax(0, FloatToOrderedInt(10))

	preprocessInPlace(l, fst, true)
	assert.EqualValues(t, 0, l.MainQNArcs.Load(), "filtered token should contribute 0 out-degree")
}
