// Implements expand-arcs: exact load balancing over a token slice's
// out-degree prefix sum, shared between the emitting and non-emitting
// passes. The only difference between the two is which arc set is iterated
// and whether the acoustic term is added.
//
// "One thread per arc" becomes one goroutine per contiguous sub-range of
// arcs; each arc's worker binary-searches the slice's degree prefix sum to
// find its source token.

package decoder

import (
	"sort"
	"sync"
)

const expandWorkers = 8

// expandArcs reads arcs for tokens in src[localOffset:end) (degrees
// already computed into src.DegreesPrefixSum, relative to localOffset) and
// writes surviving successor tokens into lane's aux queue. srcBase is the
// global token id of src[localOffset] minus localOffset — i.e. the
// absolute id of src index i is srcBase+i — used to stamp PrevToken.
//
// acousticLogLik is nil for non-emitting expansion.
func expandArcs(lane *LaneState, fst FstView, emitting bool, src *TokenQueue, srcBase int32, localOffset, end int32, acousticLogLik []float32) *DecoderError {
	n := int(end - localOffset)
	if n <= 0 {
		return nil
	}
	totalArcs := src.DegreesPrefixSum[n]
	if totalArcs == 0 {
		return nil
	}
	prefix := src.DegreesPrefixSum[:n+1]

	workers := expandWorkers
	if int64(workers) > int64(totalArcs) {
		workers = int(totalArcs)
	}
	chunk := (int(totalArcs) + workers - 1) / workers

	var overflowed bool
	var mu sync.Mutex
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		lo := w * chunk
		hi := lo + chunk
		if hi > int(totalArcs) {
			hi = int(totalArcs)
		}
		if lo >= hi {
			continue
		}
		wg.Add(1)
		go func(lo, hi int) {
			defer wg.Done()
			for g := lo; g < hi; g++ {
				ov := expandOneArc(lane, fst, emitting, src, srcBase, localOffset, prefix, g, acousticLogLik)
				if ov {
					mu.Lock()
					overflowed = true
					mu.Unlock()
				}
			}
		}(lo, hi)
	}
	wg.Wait()

	if overflowed {
		return overflowError("aux queue overflow: capacity %d exceeded during expand", lane.AuxQ.Capacity())
	}
	return nil
}

// expandOneArc processes a single global arc index g within the slice's
// arc-parallel launch. Returns true if it observed (and flagged) aux-queue
// overflow.
func expandOneArc(lane *LaneState, fst FstView, emitting bool, src *TokenQueue, srcBase int32, localOffset int32, prefix []int32, g int, acousticLogLik []float32) bool {
	// Binary search: find the largest t such that prefix[t] <= g.
	t := sort.Search(len(prefix)-1, func(i int) bool { return prefix[i+1] > int32(g) }) //nolint:gosec
	srcAbs := localOffset + int32(t)
	sc := src.StateCosts[srcAbs]

	begin, _ := fst.ArcRange(int(sc.State), emitting)
	arc := fst.Arc(begin+(g-int(prefix[t])), emitting)

	newCost := OrderedIntToFloat(sc.IntCost) + arc.Weight
	var acoustic float32
	if emitting {
		acoustic = acousticLogLik[arc.Ilabel]
		newCost -= acoustic
	}
	newIntCost := FloatToOrderedInt(newCost)

	if newIntCost >= lane.cutoff() {
		return false
	}

	beam := lane.Beam.binBeam(lane.AuxQEnd.Load())
	minCost := OrderedInt(lane.MinIntCost.Load())
	if newIntCost >= addOrderedInt(minCost, beam) {
		return false
	}

	old := lane.BestCost.Relax(int32(arc.NextState), newIntCost)
	if newIntCost >= old {
		return false
	}

	pos := lane.AuxQEnd.Add(1) - 1
	if int(pos) >= lane.AuxQ.Capacity() {
		lane.AuxOverflow.Store(true)
		return true
	}

	lane.AuxQ.StateCosts[pos] = StateCost{State: int32(arc.NextState), IntCost: newIntCost}
	lane.AuxQ.AcousticCosts[pos] = acoustic
	lane.AuxQ.InfoTokens[pos] = InfoToken{PrevToken: srcBase + srcAbs, ArcIdx: int32(begin + (g - int(prefix[t]))), Emitting: emitting}

	lane.relaxMinCost(newIntCost)
	return false
}
