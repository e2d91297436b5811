// Package fstbuilder is an in-memory WFST construction helper for tests:
// add states and arcs by source state, then Build a decoder.FstView
// backed by decoder.CSRFst. Grounded on decoder.NewCSRFst's
// arcsByState-grouped input contract (see ../fst.go).
package fstbuilder

import "github.com/inference-sim/wfst-decoder/decoder"

// Builder accumulates states, arcs, and final weights before producing an
// immutable decoder.FstView.
type Builder struct {
	start        int
	numStates    int
	finalWeights map[int]float32
	arcs         map[int][]decoder.Arc
}

// New starts a builder with the given start state. States are identified
// by arbitrary non-negative ints; AddArc and SetFinal grow the state
// count as needed.
func New(start int) *Builder {
	b := &Builder{
		start:        start,
		finalWeights: make(map[int]float32),
		arcs:         make(map[int][]decoder.Arc),
	}
	b.ensure(start)
	return b
}

func (b *Builder) ensure(state int) {
	if state+1 > b.numStates {
		b.numStates = state + 1
	}
}

// AddArc adds an emitting arc (ilabel != 0) or non-emitting arc (ilabel ==
// 0) from, to a destination state with the given labels and weight.
func (b *Builder) AddArc(from, to, ilabel, olabel int, weight float32) *Builder {
	b.ensure(from)
	b.ensure(to)
	b.arcs[from] = append(b.arcs[from], decoder.Arc{NextState: to, Ilabel: ilabel, Olabel: olabel, Weight: weight})
	return b
}

// SetFinal marks state as final with the given weight (lower is better, 0
// is typical for an unweighted accept).
func (b *Builder) SetFinal(state int, weight float32) *Builder {
	b.ensure(state)
	b.finalWeights[state] = weight
	return b
}

// Build constructs the immutable CSRFst. Non-final states get +Inf final
// weight.
func (b *Builder) Build() *decoder.CSRFst {
	finalWeights := make([]float32, b.numStates)
	for s := range finalWeights {
		finalWeights[s] = float32(decoderPosInf)
	}
	for s, w := range b.finalWeights {
		finalWeights[s] = w
	}

	arcsByState := make([][]decoder.Arc, b.numStates)
	for s, arcs := range b.arcs {
		arcsByState[s] = arcs
	}

	return decoder.NewCSRFst(b.start, finalWeights, arcsByState)
}

// decoderPosInf mirrors decoder.posInf (unexported); duplicated here since
// fstbuilder sits outside the decoder package and only needs the constant,
// not the rest of cost.go.
const decoderPosInf = 3.4028235e+38 // math.MaxFloat32
