// Implements max-active culling: when the main queue exceeds max_active
// after emitting expansion, compute a bounded-k histogram of int-costs and
// tighten the beam to the upper boundary of the first bin whose cumulative
// count reaches max_active.

package decoder

import "gonum.org/v1/gonum/floats"

const histogramBins = 255

// maxActiveCull scans main[:end] and, if the token count exceeds
// maxActive, returns a tightened IntCutoff at the upper boundary of the
// first histogram bin whose cumulative count reaches maxActive. Keeping
// only tokens with IntCost < newCutoff therefore yields at least
// maxActive survivors, and more when that bin holds several tokens
// (rounding up to the bin boundary favors inclusion).
// Returns (cutoff, true) if culling applied, (0, false) if the queue was
// already within bounds.
func maxActiveCull(q *TokenQueue, end int, minCost, curBeam OrderedInt, maxActive int) (OrderedInt, bool) {
	if end <= maxActive {
		return 0, false
	}

	span := int64(curBeam)
	if span <= 0 {
		return 0, false
	}

	counts := make([]float64, histogramBins)
	for i := 0; i < end; i++ {
		cost := q.StateCosts[i].IntCost
		offset := int64(cost) - int64(minCost)
		if offset < 0 {
			offset = 0
		}
		bin := int(offset * histogramBins / span)
		if bin >= histogramBins {
			bin = histogramBins - 1
		}
		counts[bin]++
	}

	cumulative := make([]float64, histogramBins)
	floats.CumSum(cumulative, counts)

	chosen := histogramBins - 1
	for b := 0; b < histogramBins; b++ {
		if cumulative[b] >= float64(maxActive) {
			chosen = b
			break
		}
	}

	// Tie-break: round up to the bin's upper boundary so at least
	// maxActive tokens survive rather than fewer.
	newBeamWidth := span * int64(chosen+1) / histogramBins
	return addOrderedInt(minCost, OrderedInt(newBeamWidth)), true
}
