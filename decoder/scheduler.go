// Defines Decoder, the top-level scheduler that owns a fixed pool of lanes
// and fans a batch of channels out across them one frame at a time, so
// that N persistent channels can share L execution slots (N >= L). Batch
// membership is supplied by the caller on every call, not owned here.
package decoder

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
)

// Decoder holds one FST, one configuration, and a fixed pool of lanes. It
// is safe to call AdvanceDecoding concurrently from multiple goroutines
// only if the channel sets passed in are disjoint; the same channel must
// never be advanced by two concurrent calls.
type Decoder struct {
	fst FstView
	cfg Config

	lanes   []*LaneState
	laneIdx chan int // free-lane pool; receive to borrow, send to return

	// The bootstrap closure over the FST start state depends only on the
	// FST and configuration, so it is computed once on the first
	// InitDecoding call and cloned into every channel initialized since.
	initOnce        sync.Once
	initErr         error
	initial         frameRecord
	initialBeam     OrderedInt
	initialOverflow bool

	metricsMu sync.Mutex
	metrics   Metrics

	log *logrus.Logger
}

// NewDecoder validates cfg and allocates a lane pool sized to
// cfg.Batch.NLanes.
func NewDecoder(fst FstView, cfg Config) (*Decoder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	d := &Decoder{
		fst:     fst,
		cfg:     cfg,
		lanes:   make([]*LaneState, cfg.Batch.NLanes),
		laneIdx: make(chan int, cfg.Batch.NLanes),
		log:     logrus.StandardLogger(),
	}
	for i := range d.lanes {
		d.lanes[i] = NewLaneState(fst.NumStates(), cfg.Queue.MaxTokensPerFrame)
		d.laneIdx <- i
	}
	return d, nil
}

// Metrics returns a snapshot of the decoder's aggregate counters.
func (d *Decoder) Metrics() Metrics {
	d.metricsMu.Lock()
	defer d.metricsMu.Unlock()
	return d.metrics
}

func (d *Decoder) intBeam() OrderedInt {
	return FloatToOrderedInt(float32(d.cfg.Beam.Beam))
}

// InitDecoding seeds each channel with a single token at the FST start
// state and runs one non-emitting closure over it. Channels must
// be ChannelFree or ChannelQueried on entry (the latter lets a channel be
// recycled for a new utterance right after a traceback query, without an
// explicit Release call); on success they become ChannelInitialized.
// The closure result is identical for every channel, so the first call
// computes it once on a borrowed lane and later channels just clone it.
func (d *Decoder) InitDecoding(channels []*ChannelState) error {
	for _, ch := range channels {
		if err := ch.requireStatus(ChannelFree, ChannelQueried); err != nil {
			return err
		}
	}

	d.initOnce.Do(func() {
		li := <-d.laneIdx
		defer func() { d.laneIdx <- li }()
		scratch := NewChannelState(-1)
		d.initErr = d.computeInitialChannel(d.lanes[li], scratch)
		if d.initErr == nil {
			d.initial = scratch.bootstrap
			d.initialBeam = scratch.prevBeam
			d.initialOverflow = scratch.overflowed
		}
	})
	if d.initErr != nil {
		return d.initErr
	}

	for _, ch := range channels {
		ch.reset()
		// frameRecords are immutable once built, so the clones can share
		// the initial record's backing arrays.
		ch.bootstrap = d.initial
		ch.globalOffset = d.initial.GlobalOffset + int32(len(d.initial.StateCosts))
		ch.prevBeam = d.initialBeam
		ch.overflowed = d.initialOverflow
		ch.status = ChannelInitialized
	}
	return nil
}

func (d *Decoder) computeInitialChannel(lane *LaneState, ch *ChannelState) error {
	ch.reset()
	lane.channel = ch

	lane.MainQ.StateCosts[0] = StateCost{State: int32(d.fst.Start()), IntCost: FloatToOrderedInt(0)}
	lane.MainQ.AcousticCosts[0] = 0
	lane.MainQ.InfoTokens[0] = InfoToken{PrevToken: -1, ArcIdx: -1}
	lane.MainQEnd.Store(1)
	lane.MainQLocalOffset = 0
	lane.MainQGlobalOffset = 0
	lane.PrevCount = 1
	lane.PrevBase = 0
	lane.AuxQEnd.Store(0)
	lane.MinIntCost.Store(int32(MaxOrderedInt))
	lane.IntBeam = d.intBeam()
	lane.IntCutoff.Store(int32(MaxOrderedInt))
	lane.MainOverflow.Store(false)
	lane.AuxOverflow.Store(false)
	if lane.Beam == nil {
		lane.Beam = newAdaptiveBeamState(d.intBeam(), lane.AuxQ.Capacity())
	}
	lane.Beam.defaultBeam = d.intBeam()
	lane.Beam.ResetToDefault()

	lane.BestCost.ResetFromTokens(lane.MainQ, 1)
	lane.relaxMinCost(FloatToOrderedInt(0))

	preprocessInPlace(lane, d.fst, false)
	if err := expandArcs(lane, d.fst, false, lane.MainQ, 0, 0, 1, nil); err != nil && !err.Recoverable {
		return err
	}
	if err := closureLoop(lane, d.fst); err != nil && !err.Recoverable {
		return err
	}

	lane.saveBootstrapToChannel()
	ch.status = ChannelInitialized
	return nil
}

// AdvanceDecoding advances every channel in channels by up to maxFrames
// frames, stopping a channel early once its Decodable runs out of ready
// frames. channels and decodables must be the same length and index-
// aligned. Channels must be ChannelInitialized or ChannelSuspended on
// entry; a channel found ChannelAdvancing is already inside a concurrent
// AdvanceDecoding call, which is a caller error.
func (d *Decoder) AdvanceDecoding(channels []*ChannelState, decodables []Decodable, maxFrames int) error {
	if len(channels) != len(decodables) {
		return fmt.Errorf("decoder: channels and decodables must be the same length (%d != %d)", len(channels), len(decodables))
	}
	for _, ch := range channels {
		if err := ch.requireStatus(ChannelInitialized, ChannelSuspended); err != nil {
			return err
		}
		ch.status = ChannelAdvancing
	}

	for frame := 0; frame < maxFrames; frame++ {
		var wg sync.WaitGroup
		errs := make([]*DecoderError, len(channels))
		active := false
		for i := range channels {
			ch := channels[i]
			dec := decodables[i]
			if dec.NumFramesReady() <= ch.NumFramesDecoded() {
				continue
			}
			active = true
			wg.Add(1)
			go func(i int, ch *ChannelState, dec Decodable) {
				defer wg.Done()
				li := <-d.laneIdx
				defer func() { d.laneIdx <- li }()
				errs[i] = d.advanceOneFrame(d.lanes[li], ch, dec)
			}(i, ch, dec)
		}
		wg.Wait()
		for _, e := range errs {
			if e == nil {
				continue
			}
			if !e.Recoverable {
				return e
			}
			d.log.Warnf("decoder: recoverable error: %v", e)
		}
		if !active {
			break
		}
	}

	for _, ch := range channels {
		if ch.status == ChannelAdvancing {
			ch.status = ChannelSuspended
		}
	}
	return nil
}

// advanceOneFrame runs the full per-frame pipeline for one channel bound to
// lane: read the next log-likelihood vector, expand emitting arcs from the
// channel's previous frontier, close over epsilon arcs, cull to max-active
// if needed, build extra-previous-tokens, and persist the result.
func (d *Decoder) advanceOneFrame(lane *LaneState, ch *ChannelState, dec Decodable) *DecoderError {
	frameNum := ch.NumFramesDecoded()
	loglik := dec.LogLikelihoodForFrame(frameNum)

	lane.resetForChannel(ch, d.intBeam())

	preprocessInPlace(lane, d.fst, true)
	warned := false
	if err := expandArcs(lane, d.fst, true, lane.MainQ, lane.PrevBase, 0, lane.PrevCount, loglik); err != nil {
		if !err.Recoverable {
			return err
		}
		d.log.Warnf("[frame %07d] channel %d: %v", frameNum, ch.ID(), err)
		warned = true
	}

	if err := nonEmittingClosure(lane, d.fst); err != nil {
		if !err.Recoverable {
			return err
		}
		if !warned {
			d.log.Warnf("[frame %07d] channel %d: %v", frameNum, ch.ID(), err)
		}
	}

	end := int(lane.MainQEnd.Load())
	minCost := OrderedInt(lane.MinIntCost.Load())
	if cutoff, culled := maxActiveCull(lane.MainQ, end, minCost, lane.Beam.CurrentBeam(), d.cfg.Beam.MaxActive); culled {
		end = compactByCutoff(lane.MainQ, end, cutoff)
		lane.MainQEnd.Store(int32(end))
		d.metricsMu.Lock()
		d.metrics.HistogramCulls++
		d.metricsMu.Unlock()
	}

	extras, groupStart := BuildExtraPrevTokens(lane.MainQ, end)
	lane.Beam.Recover()
	lane.saveToChannel(extras, groupStart)

	d.metricsMu.Lock()
	d.metrics.FramesDecoded++
	d.metrics.TokensProcessed += int64(end)
	if end > d.metrics.PeakMainQueue {
		d.metrics.PeakMainQueue = end
	}
	if lane.MainOverflow.Load() || lane.AuxOverflow.Load() {
		d.metrics.OverflowCount++
	}
	d.metricsMu.Unlock()

	return nil
}

// compactByCutoff filters q[:end] in place, keeping only tokens with
// IntCost < cutoff, and returns the new end. Used by max-active culling to
// shrink the final frontier down to (approximately) max_active tokens.
func compactByCutoff(q *TokenQueue, end int, cutoff OrderedInt) int {
	w := 0
	for r := 0; r < end; r++ {
		if q.StateCosts[r].IntCost >= cutoff {
			continue
		}
		if w != r {
			q.StateCosts[w] = q.StateCosts[r]
			q.AcousticCosts[w] = q.AcousticCosts[r]
			q.InfoTokens[w] = q.InfoTokens[r]
		}
		w++
	}
	return w
}
