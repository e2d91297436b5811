package decoder

// Implements the non-emitting closure: repeat preprocess-and-contract +
// expand-non-emitting until no arcs remain to expand. The closure always
// operates on lane.MainQ itself, both as the append target for newly
// surviving tokens and as the read source for the next round, since
// within-frame epsilon chains source from tokens created earlier in the
// very same frame (see lane.go's beginClosure).
//
// A GPU realization of this loop would switch to a single fused kernel
// once the residual arc count drops below a few thousand, to avoid
// repeated launch overhead for the long tail. Goroutine dispatch has no
// comparable per-round cost, so every round uses the same expandArcs path.
const closureMaxRounds = 10000

// nonEmittingClosure is the per-frame case: the copied previous-frame slice
// that seeded emitting expansion is discarded (MainQEnd reset to 0) since a
// frame's new frontier is the emitting successors of the old one, not the
// old tokens themselves; aux (already populated by the emitting expand
// call) becomes closureLoop's round-0 input.
func nonEmittingClosure(lane *LaneState, fst FstView) *DecoderError {
	lane.beginClosure()
	return closureLoop(lane, fst)
}

// closureLoop repeats preprocess-and-contract + expand-non-emitting until
// no arcs remain, appending onto whatever MainQ already holds. Callers are
// responsible for having primed lane.AuxQ (aux holds the first round's
// candidate successors) and for MainQEnd/MainQGlobalOffset already
// reflecting the slice that must be preserved untouched (InitDecoding's
// bootstrap preserves the seed token this way; nonEmittingClosure discards
// its base via beginClosure first).
func closureLoop(lane *LaneState, fst FstView) *DecoderError {
	for round := 0; ; round++ {
		if round > closureMaxRounds {
			return fatalError("non-emitting closure did not stabilize after %d rounds", closureMaxRounds)
		}
		if err := preprocessAndContract(lane, fst, false); err != nil {
			return err
		}
		preprocessInPlace(lane, fst, false)
		if lane.MainQNArcs.Load() == 0 {
			return nil
		}

		end := lane.MainQEnd.Load()
		if err := expandArcs(lane, fst, false, lane.MainQ, lane.MainQGlobalOffset, lane.MainQLocalOffset, end, nil); err != nil {
			return err
		}
	}
}
