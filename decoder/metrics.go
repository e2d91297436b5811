// Tracks decoder-wide diagnostic counters: a plain aggregate struct with a
// Print method for end-of-run reporting.

package decoder

import "fmt"

// Metrics aggregates counters across all AdvanceDecoding calls for a
// Decoder. Useful for evaluating pruning behavior and debugging overflow.
type Metrics struct {
	FramesDecoded   int64 // total frames advanced across all channels
	TokensProcessed int64 // total tokens surviving preprocess across all frames
	OverflowCount   int64 // number of channel-frames that hit queue overflow
	PeakMainQueue   int   // largest main-queue size observed in any frame
	HistogramCulls  int64 // number of frames where max-active culling fired
}

// Print displays aggregated metrics at the end of a run.
func (m *Metrics) Print() {
	fmt.Println("=== Decoder Metrics ===")
	fmt.Printf("Frames Decoded    : %d\n", m.FramesDecoded)
	fmt.Printf("Tokens Processed  : %d\n", m.TokensProcessed)
	fmt.Printf("Overflow Events   : %d\n", m.OverflowCount)
	fmt.Printf("Peak Main Queue   : %d\n", m.PeakMainQueue)
	fmt.Printf("Histogram Culls   : %d\n", m.HistogramCulls)
}
