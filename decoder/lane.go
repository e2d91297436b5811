// Defines LaneState: the per-active-slot live counters and scratch space
// that exist only for the duration of one AdvanceDecoding call. A lane
// owns the transient buffers (queues, best-cost lookup) backing its slot's
// execution; everything that must outlive the call lives on ChannelState.

package decoder

import "sync/atomic"

// LaneState holds the transient, per-frame counters and scratch buffers
// for one execution slot. A lane borrows a channel for the duration of
// AdvanceDecoding; it is never shared across channels concurrently.
type LaneState struct {
	MainQ *TokenQueue
	AuxQ  *TokenQueue

	BestCost *BestCostLookup
	Beam     *adaptiveBeamState

	// Tracked as two atomics updated together under the lane's
	// single-writer-per-phase discipline: preprocess is the only writer
	// of both, and it runs once per lane per phase.
	MainQNArcs atomic.Int32
	MainQEnd   atomic.Int32

	AuxQEnd atomic.Int32

	MainQLocalOffset int32

	// MainQGlobalOffset is the token-id base for lane.MainQ's own position
	// 0 right now. It changes mid-frame: it starts as the bound channel's
	// previous-frame base (while MainQ still holds the copied previous
	// frame, read-only, for emitting expansion) and is bumped forward to
	// this frame's own base once that copy is consumed and MainQ starts
	// growing fresh from position 0 via non-emitting closure.
	MainQGlobalOffset int32

	// PrevCount and PrevBase describe the copied previous-frame slice
	// occupying MainQ[0:PrevCount] at the very start of a frame, before the
	// emitting expansion consumes it and the closure loop overwrites it.
	PrevCount int32
	PrevBase  int32

	MinIntCost atomic.Int32 // OrderedInt
	IntBeam    OrderedInt   // default beam for this channel, ordered-int form
	IntCutoff  atomic.Int32 // OrderedInt; min_int_cost + int_beam

	MainOverflow atomic.Bool
	AuxOverflow  atomic.Bool

	NumFinalTokens int32

	channel *ChannelState
}

// NewLaneState allocates a lane sized for the given FST and queue
// capacity.
func NewLaneState(numStates, queueCapacity int) *LaneState {
	l := &LaneState{
		MainQ:    NewTokenQueue(queueCapacity),
		AuxQ:     NewTokenQueue(queueCapacity),
		BestCost: NewBestCostLookup(numStates),
	}
	return l
}

// resetForChannel (re)binds the lane to channel. It copies the channel's
// most recently decoded frame (or its InitDecoding bootstrap) into MainQ;
// since a lane may be handed a different channel on each call, the content
// has to move, not just a pointer.
func (l *LaneState) resetForChannel(ch *ChannelState, defaultBeam OrderedInt) {
	l.channel = ch
	prev := ch.latestMainQueue()
	n := int32(len(prev.StateCosts))
	copy(l.MainQ.StateCosts[:n], prev.StateCosts)
	copy(l.MainQ.AcousticCosts[:n], prev.AcousticCosts)
	copy(l.MainQ.InfoTokens[:n], prev.InfoTokens)

	l.PrevCount = n
	l.PrevBase = prev.GlobalOffset
	l.MainQEnd.Store(n)
	l.MainQLocalOffset = 0
	l.MainQNArcs.Store(0)
	l.AuxQEnd.Store(0)
	l.MainQGlobalOffset = prev.GlobalOffset

	l.BestCost.ResetFromTokens(l.MainQ, int(n))

	l.MinIntCost.Store(int32(MaxOrderedInt))
	l.IntBeam = defaultBeam
	l.IntCutoff.Store(int32(MaxOrderedInt))
	l.MainOverflow.Store(false)
	l.AuxOverflow.Store(false)
	l.NumFinalTokens = 0

	beam := ch.prevBeam
	if beam == 0 {
		beam = defaultBeam
	}
	if l.Beam == nil {
		l.Beam = newAdaptiveBeamState(defaultBeam, l.AuxQ.Capacity())
	}
	l.Beam.defaultBeam = defaultBeam
	l.Beam.store(beam, l.Beam.prefixCapacity)
}

// beginClosure marks the copied previous-frame slice as consumed: MainQ now
// starts growing fresh from position 0, and its token-id base advances past
// the copied slice so newly appended tokens get ids contiguous with it.
func (l *LaneState) beginClosure() {
	l.MainQGlobalOffset = l.PrevBase + l.PrevCount
	l.MainQEnd.Store(0)
	l.MainQLocalOffset = 0
	l.MainQNArcs.Store(0)
}

// saveToChannel appends this frame's surviving main queue as a new
// frameRecord on the bound channel and snapshots the adaptive beam, at the
// end of AdvanceDecoding's per-frame pipeline.
func (l *LaneState) saveToChannel(extras []ExtraToken, groupStart map[int32]int32) {
	ch := l.channel
	end := l.MainQEnd.Load()
	rec := frameRecord{
		StateCosts:    append([]StateCost(nil), l.MainQ.StateCosts[:end]...),
		AcousticCosts: append([]float32(nil), l.MainQ.AcousticCosts[:end]...),
		InfoTokens:    append([]InfoToken(nil), l.MainQ.InfoTokens[:end]...),
		Extras:        extras,
		GroupStart:    groupStart,
		GlobalOffset:  l.MainQGlobalOffset,
	}
	ch.frames = append(ch.frames, rec)
	ch.globalOffset = l.MainQGlobalOffset + end
	ch.prevBeam = l.Beam.CurrentBeam()
	if l.MainOverflow.Load() || l.AuxOverflow.Load() {
		ch.overflowed = true
	}
}

// saveBootstrapToChannel stores the InitDecoding closure result as the
// channel's bootstrap main queue, without counting it as a decoded frame.
func (l *LaneState) saveBootstrapToChannel() {
	ch := l.channel
	end := l.MainQEnd.Load()
	ch.bootstrap = frameRecord{
		StateCosts:    append([]StateCost(nil), l.MainQ.StateCosts[:end]...),
		AcousticCosts: append([]float32(nil), l.MainQ.AcousticCosts[:end]...),
		InfoTokens:    append([]InfoToken(nil), l.MainQ.InfoTokens[:end]...),
		GlobalOffset:  l.MainQGlobalOffset,
	}
	ch.globalOffset = l.MainQGlobalOffset + end
	ch.prevBeam = l.Beam.CurrentBeam()
	if l.MainOverflow.Load() || l.AuxOverflow.Load() {
		ch.overflowed = true
	}
}

// relaxMinCost performs an atomic_min of cost into MinIntCost and, if it
// updated the minimum, recomputes IntCutoff as MinIntCost + IntBeam
// (literal ordered-int addition).
func (l *LaneState) relaxMinCost(cost OrderedInt) {
	for {
		old := OrderedInt(l.MinIntCost.Load())
		if cost >= old {
			return
		}
		if l.MinIntCost.CompareAndSwap(int32(old), int32(cost)) {
			l.IntCutoff.Store(int32(addOrderedInt(cost, l.IntBeam)))
			return
		}
	}
}

// cutoff returns the current int_cutoff.
func (l *LaneState) cutoff() OrderedInt {
	return OrderedInt(l.IntCutoff.Load())
}
