package decoder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaxActiveCullNoOpUnderLimit(t *testing.T) {
	q := NewTokenQueue(10)
	for i := 0; i < 5; i++ {
		q.StateCosts[i] = StateCost{State: int32(i), IntCost: FloatToOrderedInt(float32(i))}
	}
	_, culled := maxActiveCull(q, 5, FloatToOrderedInt(0), FloatToOrderedInt(15), 10)
	assert.False(t, culled, "expected no culling when end <= maxActive")
}

func TestMaxActiveCullTightensBeam(t *testing.T) {
	q := NewTokenQueue(200)
	minCost := FloatToOrderedInt(0)
	for i := 0; i < 200; i++ {
		cost := float32(i) * 0.1 // spread costs 0..19.9 across the beam
		q.StateCosts[i] = StateCost{State: int32(i), IntCost: FloatToOrderedInt(cost)}
	}
	beam := FloatToOrderedInt(15)
	cutoff, culled := maxActiveCull(q, 200, minCost, beam, 50)
	require.True(t, culled, "expected culling to trigger with 200 tokens and maxActive=50")
	// The tightened cutoff must be no looser than the original beam.
	assert.LessOrEqual(t, cutoff, OrderedInt(int64(minCost)+int64(beam)), "tightened cutoff looser than original beam cutoff")

	kept := 0
	for i := 0; i < 200; i++ {
		if q.StateCosts[i].IntCost < cutoff {
			kept++
		}
	}
	assert.GreaterOrEqual(t, kept, 50, "tie-break should round up to keep at least maxActive")
}
