// Implements best-cost query, best-path traceback, and raw-lattice
// extraction. Usage errors here (querying an empty channel) are plain
// boolean returns, never a DecoderError: only internal failures use that
// type (see errors.go).

package decoder

// PathStep is one arc on a best-path traceback, in chronological order.
type PathStep struct {
	Ilabel int
	Olabel int
	Weight float32
	State  int32
}

// LatticeArc is one arc of the raw (not determinized, with duplicate-state
// groups expanded, limited to latticeBeam) search lattice returned by
// GetRawLattice.
type LatticeArc struct {
	Frame  int // the frame this arc's destination token was produced in (-1 for bootstrap)
	Ilabel int
	Olabel int
	Weight float32
	ToCost float32 // destination token's total cost
}

// tokenAt resolves a global token id to its owning frameRecord (or
// bootstrap) and local index within it. frames are contiguous and sorted
// by GlobalOffset, so a linear scan from the most recent frame backward is
// used; for the channel scale this decoder targets this is cheap, and it
// keeps frameRecord's storage format (plain slices) simple.
func (c *ChannelState) tokenAt(id int32) (frameRecord, int, bool) {
	if id < 0 {
		return frameRecord{}, 0, false
	}
	for i := len(c.frames) - 1; i >= 0; i-- {
		rec := c.frames[i]
		n := int32(len(rec.StateCosts))
		if id >= rec.GlobalOffset && id < rec.GlobalOffset+n {
			return rec, int(id - rec.GlobalOffset), true
		}
	}
	n := int32(len(c.bootstrap.StateCosts))
	if id >= c.bootstrap.GlobalOffset && id < c.bootstrap.GlobalOffset+n {
		return c.bootstrap, int(id - c.bootstrap.GlobalOffset), true
	}
	return frameRecord{}, 0, false
}

// bestFinalToken returns the (global id, total cost) of the best token in
// the channel's current frontier, per useFinalProbs: if true, final
// weights are added before comparing and only states with finite final
// weight are eligible, falling back to ignoring final weights if none is
// reachable.
func (c *ChannelState) bestFinalToken(fst FstView, useFinalProbs bool) (int32, float32, bool) {
	rec := c.latestMainQueue()
	if len(rec.StateCosts) == 0 {
		return 0, 0, false
	}

	bestID := int32(-1)
	bestCost := float32(posInf)
	for i, sc := range rec.StateCosts {
		cost := OrderedIntToFloat(sc.IntCost)
		if useFinalProbs {
			fw := fst.FinalWeight(int(sc.State))
			if fw >= float32(posInf) {
				continue
			}
			cost += fw
		}
		if cost < bestCost {
			bestCost = cost
			bestID = rec.GlobalOffset + int32(i)
		}
	}
	if bestID >= 0 {
		return bestID, bestCost, true
	}
	if useFinalProbs {
		// No reachable final state; fall back to ignoring final weights.
		return c.bestFinalToken(fst, false)
	}
	return 0, 0, false
}

// tracebackAllowedStatuses are the channel lifecycle states a traceback
// query may run from: SUSPENDED or INITIALIZED. QUERIED is
// also accepted so that a channel may be queried more than once (e.g.
// GetBestCost followed by GetBestPath) without an intervening
// AdvanceDecoding call; entering traceback from any of these leaves the
// channel QUERIED.
var tracebackAllowedStatuses = []ChannelStatus{ChannelInitialized, ChannelSuspended, ChannelQueried}

// GetBestCost returns the cost of the best hypothesis currently alive on
// ch, per useFinalProbs. Returns ok=false if the channel has no live
// tokens (e.g. InitDecoding never called, or every hypothesis pruned) or
// is not in a queryable lifecycle state (a usage error, not a decoder
// failure).
func GetBestCost(ch *ChannelState, fst FstView, useFinalProbs bool) (cost float32, ok bool) {
	if err := ch.requireStatus(tracebackAllowedStatuses...); err != nil {
		return 0, false
	}
	_, cost, ok = ch.bestFinalToken(fst, useFinalProbs)
	if ok {
		ch.status = ChannelQueried
	}
	return cost, ok
}

// GetBestCostAndTokens returns the best hypothesis cost on ch together
// with the global ids of every frontier token whose (final-adjusted, per
// useFinalProbs) cost lies within latticeBeam of it — the candidate entry
// points for a raw-lattice walk. Returns ok=false under the same
// conditions as GetBestCost.
func GetBestCostAndTokens(ch *ChannelState, fst FstView, useFinalProbs bool, latticeBeam float64) (cost float32, tokens []int32, ok bool) {
	if err := ch.requireStatus(tracebackAllowedStatuses...); err != nil {
		return 0, nil, false
	}
	_, cost, ok = ch.bestFinalToken(fst, useFinalProbs)
	if !ok {
		return 0, nil, false
	}
	ch.status = ChannelQueried

	limit := cost + float32(latticeBeam)
	rec := ch.latestMainQueue()
	for i, sc := range rec.StateCosts {
		c := OrderedIntToFloat(sc.IntCost)
		if useFinalProbs {
			fw := fst.FinalWeight(int(sc.State))
			if fw >= float32(posInf) {
				continue
			}
			c += fw
		}
		if c <= limit {
			tokens = append(tokens, rec.GlobalOffset+int32(i))
		}
	}
	if len(tokens) == 0 && useFinalProbs {
		// bestFinalToken fell back to ignoring final weights (no final
		// state reachable); match that here.
		for i, sc := range rec.StateCosts {
			if OrderedIntToFloat(sc.IntCost) <= limit {
				tokens = append(tokens, rec.GlobalOffset+int32(i))
			}
		}
	}
	return cost, tokens, true
}

// GetBestPath walks the best hypothesis's prev_token chain back to the
// start state and returns the resulting arc sequence in chronological
// order. Returns ok=false (no error) if the channel has no live tokens —
// a usage condition, not a decoder failure.
func GetBestPath(ch *ChannelState, fst FstView, useFinalProbs bool) (path []PathStep, ok bool) {
	if err := ch.requireStatus(tracebackAllowedStatuses...); err != nil {
		return nil, false
	}
	id, _, ok := ch.bestFinalToken(fst, useFinalProbs)
	if !ok {
		return nil, false
	}
	ch.status = ChannelQueried

	var steps []PathStep
	for id >= 0 {
		rec, local, found := ch.tokenAt(id)
		if !found {
			break
		}
		info := rec.InfoTokens[local]
		if info.ArcIdx >= 0 {
			sc := rec.StateCosts[local]
			arc := fst.Arc(int(info.ArcIdx), info.Emitting)
			steps = append(steps, PathStep{Ilabel: arc.Ilabel, Olabel: arc.Olabel, Weight: arc.Weight, State: sc.State})
		}
		id = info.PrevToken
	}

	// Reverse into chronological order.
	for i, j := 0, len(steps)-1; i < j; i, j = i+1, j-1 {
		steps[i], steps[j] = steps[j], steps[i]
	}
	return steps, true
}

// GetRawLattice reconstructs every arc whose destination token's total
// cost is within latticeBeam of the best final cost, across every frame of
// ch, including non-representative group members (via Extras), for
// downstream lattice rescoring or n-best extraction. The walk is bounded
// by latticeBeam around the best final cost, not the plain search beam the
// frontier itself survived on, so it can be tighter than (but never wider
// than) what AdvanceDecoding already pruned to. Returns
// ok=false if the channel has no decoded frames and no bootstrap, or no
// token that was reached by an arc is within latticeBeam of the best final
// cost.
func GetRawLattice(ch *ChannelState, fst FstView, latticeBeam float64) (arcs []LatticeArc, ok bool) {
	if err := ch.requireStatus(tracebackAllowedStatuses...); err != nil {
		return nil, false
	}
	defer func() {
		if ok {
			ch.status = ChannelQueried
		}
	}()
	_, bestCost, haveBest := ch.bestFinalToken(fst, true)
	if !haveBest {
		return nil, false
	}
	limit := bestCost + float32(latticeBeam)

	records := append([]frameRecord{ch.bootstrap}, ch.frames...)
	any := false
	for fi, rec := range records {
		frameNum := fi - 1 // bootstrap is "frame -1"
		for i, info := range rec.InfoTokens {
			if info.ArcIdx < 0 || info.PrevToken < 0 {
				continue
			}
			sc := rec.StateCosts[i]
			toCost := OrderedIntToFloat(sc.IntCost)
			if toCost > limit {
				continue
			}
			any = true
			arc := fst.Arc(int(info.ArcIdx), info.Emitting)
			arcs = append(arcs, LatticeArc{
				Frame:  frameNum,
				Ilabel: arc.Ilabel,
				Olabel: arc.Olabel,
				Weight: arc.Weight,
				ToCost: toCost,
			})
			if start, has := rec.GroupStart[int32(i)]; has {
				for _, extra := range groupExtras(rec, start) {
					extraCost := toCost + extra.ExtraCost
					if extraCost > limit {
						continue
					}
					earc := fst.Arc(int(extra.ArcIdx), extra.Emitting)
					arcs = append(arcs, LatticeArc{
						Frame:  frameNum,
						Ilabel: earc.Ilabel,
						Olabel: earc.Olabel,
						Weight: earc.Weight,
						ToCost: extraCost,
					})
				}
			}
		}
	}
	return arcs, any
}

// groupExtras returns the contiguous run of a representative's sibling
// extras starting at start; there is no explicit count stored per group in
// frameRecord itself, so the run ends at the next representative's start
// offset or at len(Extras).
func groupExtras(rec frameRecord, start int32) []ExtraToken {
	end := int32(len(rec.Extras))
	for _, other := range rec.GroupStart {
		if other > start && other < end {
			end = other
		}
	}
	return rec.Extras[start:end]
}
