package decoder_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inference-sim/wfst-decoder/decoder"
	"github.com/inference-sim/wfst-decoder/decoder/fstbuilder"
)

// TestLatticeContainment verifies that every arc in the raw lattice
// ends at a token whose total cost is within lattice_beam of the best
// final cost.
func TestLatticeContainment(t *testing.T) {
	b := fstbuilder.New(0)
	for i := 0; i < 6; i++ {
		to := i + 1
		b.AddArc(0, to, i+1, to, float32(i)) // costs 0..5
		b.SetFinal(to, 0)
	}
	fst := b.Build()

	cfg := decoder.DefaultConfig()
	cfg.Beam.LatticeBeam = 2.0
	cfg.Beam.Beam = 50
	d, err := decoder.NewDecoder(fst, cfg)
	require.NoError(t, err)
	ch := decoder.NewChannelState(0)
	require.NoError(t, d.InitDecoding([]*decoder.ChannelState{ch}))
	loglik := make([]float32, 7)
	dec := &constFrames{frames: [][]float32{loglik}}
	require.NoError(t, d.AdvanceDecoding([]*decoder.ChannelState{ch}, []decoder.Decodable{dec}, 1))

	bestCost, ok := decoder.GetBestCost(ch, fst, true)
	require.True(t, ok, "expected a best cost")
	arcs, ok := decoder.GetRawLattice(ch, fst, cfg.Beam.LatticeBeam)
	require.True(t, ok, "expected a non-empty lattice")

	limit := bestCost + float32(cfg.Beam.LatticeBeam)
	for _, a := range arcs {
		assert.LessOrEqualf(t, a.ToCost, limit+1e-3,
			"lattice arc to-cost %v exceeds best_final_cost(%v) + lattice_beam(%v) = %v",
			a.ToCost, bestCost, cfg.Beam.LatticeBeam, limit)
	}

	// The companion query agrees: it reports the same best cost and only
	// frontier tokens inside the lattice beam (costs 0..2 of the 0..5 fan).
	cost2, tokens, ok := decoder.GetBestCostAndTokens(ch, fst, true, cfg.Beam.LatticeBeam)
	require.True(t, ok)
	assert.InDelta(t, bestCost, cost2, 1e-6)
	assert.Len(t, tokens, 3, "expected the three frontier tokens with cost <= best + 2.0")
}

// TestGetRawLatticeExpandsExtrasAsParallelArcs verifies that when a frame's
// frontier holds multiple tokens for the same state, the raw lattice
// carries every one of them (the representative plus its group's extras),
// not just the representative. The duplicate arises the way it does in a
// real decode: an emitting arc reaches state 1 directly, then the
// non-emitting closure reaches state 1 again, cheaper, via an epsilon arc —
// the relaxed-away emitting token keeps its queue slot (in-place preprocess
// never moves tokens), so both survive into the frontier.
func TestGetRawLatticeExpandsExtrasAsParallelArcs(t *testing.T) {
	b := fstbuilder.New(0)
	b.AddArc(0, 1, 1, 10, 2.0) // emitting, directly into state 1, cost 2.0
	b.AddArc(0, 2, 2, 20, 0.0) // emitting into state 2, cost 0
	b.AddArc(2, 1, 0, 30, 0.5) // epsilon 2->1: closure re-reaches state 1 at 0.5
	b.SetFinal(1, 0)
	fst := b.Build()

	cfg := decoder.DefaultConfig()
	d, err := decoder.NewDecoder(fst, cfg)
	require.NoError(t, err)
	ch := decoder.NewChannelState(0)
	require.NoError(t, d.InitDecoding([]*decoder.ChannelState{ch}))
	dec := &constFrames{frames: [][]float32{{0, 0, 0}}}
	require.NoError(t, d.AdvanceDecoding([]*decoder.ChannelState{ch}, []decoder.Decodable{dec}, 1))

	arcs, ok := decoder.GetRawLattice(ch, fst, cfg.Beam.LatticeBeam)
	require.True(t, ok, "expected a non-empty lattice")
	olabels := map[int]bool{}
	for _, a := range arcs {
		if a.Frame == 0 {
			olabels[a.Olabel] = true
		}
	}
	assert.True(t, olabels[30], "expected the representative's epsilon arc (olabel 30) in the lattice, got %v", olabels)
	assert.True(t, olabels[10], "expected the beaten same-state sibling's arc (olabel 10) via extras, got %v", olabels)
}
