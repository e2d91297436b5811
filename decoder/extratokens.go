// Implements the extra-previous-tokens post-processing pass: when multiple
// tokens in a frame resolve to the same next_state, group them behind one
// representative in the main queue and carry the rest in a side list for
// lattice reconstruction.
//
// The open-addressing hashmap uses a capacity factor of 2x the main-queue
// size, keeping linear-probe chains short even when most of a frame's
// tokens land on distinct states.

package decoder

// ExtraToken is one non-representative sibling of a representative token:
// same next_state, carried for lattice reconstruction with a cost relative
// to the representative.
type ExtraToken struct {
	PrevToken   int32
	ArcIdx      int32
	Emitting    bool
	ExtraCost   float32 // this token's total cost minus the representative's total cost
	AcousticLik float32
}

type hashSlot struct {
	used      bool
	state     int32
	count     int32
	bestIndex int32 // queue index of the representative (best cost, lowest index tiebreak)
	bestCost  OrderedInt
}

// extraTokensHashMap is a per-lane open-addressing hashmap keyed on state.
type extraTokensHashMap struct {
	slots []hashSlot
}

func newExtraTokensHashMap(mainQueueSize int) *extraTokensHashMap {
	capacity := mainQueueSize * 2
	if capacity < 1 {
		capacity = 1
	}
	return &extraTokensHashMap{slots: make([]hashSlot, capacity)}
}

func (h *extraTokensHashMap) probe(state int32) int {
	n := len(h.slots)
	idx := int(uint32(state)) % n
	for {
		if !h.slots[idx].used || h.slots[idx].state == state {
			return idx
		}
		idx = (idx + 1) % n
	}
}

// insert records token queueIdx (with the given state/cost) into the
// hashmap, tracking the running (count, argmin) per distinct state. Ties
// on cost are broken by lowest queue index.
func (h *extraTokensHashMap) insert(state int32, cost OrderedInt, queueIdx int32) {
	idx := h.probe(state)
	slot := &h.slots[idx]
	if !slot.used {
		*slot = hashSlot{used: true, state: state, count: 1, bestIndex: queueIdx, bestCost: cost}
		return
	}
	slot.count++
	if cost < slot.bestCost || (cost == slot.bestCost && queueIdx < slot.bestIndex) {
		slot.bestCost = cost
		slot.bestIndex = queueIdx
	}
}

// BuildExtraPrevTokens partitions main[:end] into representatives and
// extras. For every distinct state with count > 1, the non-representative
// tokens for that state are collected (in queue order) and appended to the
// returned extras slice as one contiguous run per group; groupStart[i]
// records where representative token i's run begins. The representative's
// own InfoToken (PrevToken, ArcIdx) is left untouched — unlike a bit-packed
// device encoding, there's no pressure here to steal a field for the group
// marker, and traceback needs every representative's true arc_idx intact.
//
// Building each group's members in a side buffer before appending (rather
// than appending as encountered) is what keeps a group contiguous in
// extras: the representative is not necessarily the first occurrence of
// its state in queue order, so a single linear pass would interleave one
// group's members with another's.
func BuildExtraPrevTokens(q *TokenQueue, end int) (extras []ExtraToken, groupStart map[int32]int32) {
	h := newExtraTokensHashMap(end)
	for i := 0; i < end; i++ {
		sc := q.StateCosts[i]
		h.insert(sc.State, sc.IntCost, int32(i))
	}

	members := make(map[int32][]ExtraToken)
	for i := 0; i < end; i++ {
		sc := q.StateCosts[i]
		idx := h.probe(sc.State)
		slot := h.slots[idx]
		if slot.count <= 1 || int32(i) == slot.bestIndex {
			continue
		}
		repCost := OrderedIntToFloat(q.StateCosts[slot.bestIndex].IntCost)
		members[sc.State] = append(members[sc.State], ExtraToken{
			PrevToken:   q.InfoTokens[i].PrevToken,
			ArcIdx:      q.InfoTokens[i].ArcIdx,
			Emitting:    q.InfoTokens[i].Emitting,
			ExtraCost:   OrderedIntToFloat(sc.IntCost) - repCost,
			AcousticLik: q.AcousticCosts[i],
		})
	}

	groupStart = make(map[int32]int32)
	for i := 0; i < end; i++ {
		sc := q.StateCosts[i]
		idx := h.probe(sc.State)
		slot := h.slots[idx]
		if slot.count <= 1 || int32(i) != slot.bestIndex {
			continue
		}
		groupStart[int32(i)] = int32(len(extras))
		extras = append(extras, members[sc.State]...)
	}
	return extras, groupStart
}
