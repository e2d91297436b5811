// Defines the acoustic-model collaborator. The decoder consumes one
// log-likelihood vector per frame and never retains it past the frame
// that used it.

package decoder

// Decodable supplies per-frame acoustic log-likelihoods for one
// utterance. Implementations are free to compute frames lazily; the
// decoder only calls LogLikelihoodForFrame for frames it is about to
// consume, in increasing order.
type Decodable interface {
	// NumFramesReady returns the number of frames currently available.
	NumFramesReady() int
	// LogLikelihoodForFrame returns the log-likelihood vector for frame,
	// indexed by ilabel (length = max ilabel + 1; index 0 is unused since
	// ilabel 0 denotes epsilon). The returned slice must not be mutated or
	// retained by the caller past this call.
	LogLikelihoodForFrame(frame int) []float32
}
