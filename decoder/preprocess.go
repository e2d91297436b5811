// Implements the two preprocess passes: preprocess-and-contract filters
// aux into main and computes the newly-appended slice's degree prefix sum;
// preprocess-in-place re-filters an existing main-queue slice without
// moving tokens, since their absolute indices are referenced by the next
// frame's prev_token fields and must stay stable.

package decoder

import "sync"

// preprocessAndContract drains lane's aux queue into its main queue,
// keeping only tokens that are still under cutoff and still the best
// token recorded for their destination state. The newly appended slice
// becomes [oldMainEnd, newMainEnd) and is the source for the next
// expansion call. Returns an overflow *DecoderError (Recoverable) if main
// queue capacity was exceeded; decoding continues regardless.
func preprocessAndContract(lane *LaneState, fst FstView, emitting bool) *DecoderError {
	auxEnd := int(lane.AuxQEnd.Load())
	// Overflowing expand threads reserve positions past capacity without
	// writing them; only the in-capacity prefix holds tokens.
	if c := lane.AuxQ.Capacity(); auxEnd > c {
		auxEnd = c
	}
	cutoff := lane.cutoff()
	capacity := lane.MainQ.Capacity()

	mainEnd := lane.MainQEnd.Load()
	sliceStart := mainEnd
	var arcTotal int32
	var overflowed bool

	for i := 0; i < auxEnd; i++ {
		sc := lane.AuxQ.StateCosts[i]
		if sc.IntCost >= cutoff || lane.BestCost.Get(sc.State) != sc.IntCost {
			continue
		}
		if int(mainEnd) >= capacity {
			overflowed = true
			break
		}
		rel := mainEnd - sliceStart
		lane.MainQ.DegreesPrefixSum[rel] = arcTotal
		lane.MainQ.StateCosts[mainEnd] = sc
		lane.MainQ.AcousticCosts[mainEnd] = lane.AuxQ.AcousticCosts[i]
		lane.MainQ.InfoTokens[mainEnd] = lane.AuxQ.InfoTokens[i]

		begin, end := fst.ArcRange(int(sc.State), emitting)
		arcTotal += int32(end - begin)
		mainEnd++
	}
	lane.MainQ.DegreesPrefixSum[mainEnd-sliceStart] = arcTotal

	lane.MainQEnd.Store(mainEnd)
	lane.MainQNArcs.Store(arcTotal)
	lane.MainQLocalOffset = sliceStart
	lane.AuxQEnd.Store(0)

	if overflowed {
		lane.MainOverflow.Store(true)
		return overflowError("main queue overflow: capacity %d exceeded during contract", capacity)
	}
	return nil
}

// preprocessInPlaceWorkers controls how many concurrent blocks the
// in-place scan splits a slice into; kept small since per-frame slices are
// modest and goroutine setup cost otherwise dominates.
const preprocessInPlaceWorkers = 4

// preprocessInPlaceScan is the first stage of preprocess-in-place: each
// worker block independently computes the keep predicate and an exclusive
// local prefix sum of out-degrees over its slice, writing directly into
// DegreesPrefixSum. It returns each block's total, which the second stage
// must fold in as a running carry (a block scan plus global carry).
func preprocessInPlaceScan(lane *LaneState, fst FstView, emitting bool) []int32 {
	localOffset := lane.MainQLocalOffset
	end := lane.MainQEnd.Load()
	n := int(end - localOffset)
	if n <= 0 {
		lane.MainQ.DegreesPrefixSum[0] = 0
		return nil
	}

	workers := preprocessInPlaceWorkers
	if workers > n {
		workers = n
	}
	chunk := (n + workers - 1) / workers
	blockSums := make([]int32, workers)
	cutoff := lane.cutoff()

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		lo := w * chunk
		hi := lo + chunk
		if hi > n {
			hi = n
		}
		if lo >= hi {
			continue
		}
		wg.Add(1)
		go func(w, lo, hi int) {
			defer wg.Done()
			var total int32
			for rel := lo; rel < hi; rel++ {
				lane.MainQ.DegreesPrefixSum[rel] = total
				sc := lane.MainQ.StateCosts[int32(rel)+localOffset]
				keep := sc.IntCost < cutoff && lane.BestCost.Get(sc.State) == sc.IntCost
				if keep {
					begin, end := fst.ArcRange(int(sc.State), emitting)
					total += int32(end - begin)
				}
			}
			blockSums[w] = total
		}(w, lo, hi)
	}
	wg.Wait()
	return blockSums
}

// preprocessInPlaceFinalize is the second stage: fold each block's carry
// (the running sum of all earlier blocks' totals) into its slice of
// DegreesPrefixSum, then store the grand total as MainQNArcs.
func preprocessInPlaceFinalize(lane *LaneState, blockSums []int32) {
	localOffset := lane.MainQLocalOffset
	end := lane.MainQEnd.Load()
	n := int(end - localOffset)
	if n <= 0 {
		lane.MainQNArcs.Store(0)
		return
	}

	workers := len(blockSums)
	chunk := (n + workers - 1) / workers

	var carry int32
	carries := make([]int32, workers)
	for w := 0; w < workers; w++ {
		carries[w] = carry
		carry += blockSums[w]
	}

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		lo := w * chunk
		hi := lo + chunk
		if hi > n {
			hi = n
		}
		if lo >= hi || carries[w] == 0 {
			continue
		}
		wg.Add(1)
		go func(lo, hi int, c int32) {
			defer wg.Done()
			for rel := lo; rel < hi; rel++ {
				lane.MainQ.DegreesPrefixSum[rel] += c
			}
		}(lo, hi, carries[w])
	}
	wg.Wait()
	lane.MainQ.DegreesPrefixSum[n] = carry
	lane.MainQNArcs.Store(carry)
}

// preprocessInPlace runs both stages of the in-place scan back to back;
// callers that want to overlap the scan with other lane work may call the
// two stages directly instead.
func preprocessInPlace(lane *LaneState, fst FstView, emitting bool) {
	blockSums := preprocessInPlaceScan(lane, fst, emitting)
	preprocessInPlaceFinalize(lane, blockSums)
}
