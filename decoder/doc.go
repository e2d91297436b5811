// Package decoder implements a batched Viterbi-style beam-search decoder
// over a weighted finite-state transducer (WFST).
//
// # Reading Guide
//
// Start with these files to understand the search kernel:
//   - fst.go: the read-only CSR arc/state view consumed by the decoder
//   - cost.go: the ordered-int cost encoding and the Token/InfoToken layout
//   - channel.go / lane.go: persistent per-utterance state vs. transient per-slot state
//   - scheduler.go: InitDecoding / AdvanceDecoding, the frame-by-frame driver
//
// # Architecture
//
// A Decoder owns a fixed pool of Lanes (parallel execution slots). Channels
// (persistent, suspendable per-utterance state, nchannels >= nlanes) are
// created by the caller and passed in on every call. AdvanceDecoding
// assigns a batch of channels onto lanes and steps them through one frame's
// pipeline in lockstep: emitting expansion, non-emitting closure,
// post-processing (max-active culling, extra-token grouping), host copy.
//
// The per-frame passes (preprocess, expand, histogram culling) follow the
// shape of GPU decoding kernels: each is a plain Go function invoked once
// per lane, with lanes advanced concurrently by a bounded goroutine pool
// and integer atomics doing the work of device atomic_min/atomic_add.
//
// # Key Interfaces
//
//   - FstView: read-only WFST arc/state table, supplied by the caller.
//   - Decodable: per-frame acoustic log-likelihoods, supplied by the caller.
package decoder
