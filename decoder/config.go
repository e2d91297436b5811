// Recognized decoder configuration: small structs per concern, validated
// synchronously at construction.

package decoder

import "fmt"

// BeamConfig groups beam-search pruning parameters.
type BeamConfig struct {
	Beam        float64 // initial and default beam (must be > 0)
	LatticeBeam float64 // lattice pruning radius (must be >= 0)
	MaxActive   int     // triggers histogram culling when exceeded (must be > 1)
}

// QueueConfig groups per-lane queue capacity parameters.
type QueueConfig struct {
	MaxTokensPreAllocated int // aggregate capacity hint (must be > 0)
	MaxTokensPerFrame     int // aux/main queue capacity per lane per frame (must be > 0)
}

// BatchConfig groups lane/channel pool sizing.
type BatchConfig struct {
	NLanes    int // parallel execution slots, 1 <= NLanes <= 200
	NChannels int // persistent utterance slots, must be >= NLanes
}

// Config is the full recognized configuration for a Decoder.
type Config struct {
	Beam  BeamConfig
	Queue QueueConfig
	Batch BatchConfig
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		Beam: BeamConfig{
			Beam:        15.0,
			LatticeBeam: 10.0,
			MaxActive:   10_000,
		},
		Queue: QueueConfig{
			MaxTokensPreAllocated: 2_000_000,
			MaxTokensPerFrame:     1_000_000,
		},
		Batch: BatchConfig{
			NLanes:    1,
			NChannels: 1,
		},
	}
}

// Validate checks all numeric invariants, returning the first violation
// found. Called synchronously by NewDecoder; never deferred.
func (c Config) Validate() error {
	if c.Beam.Beam <= 0 {
		return fmt.Errorf("decoder: beam must be positive, got %v", c.Beam.Beam)
	}
	if c.Beam.LatticeBeam < 0 {
		return fmt.Errorf("decoder: lattice_beam must be non-negative, got %v", c.Beam.LatticeBeam)
	}
	if c.Beam.MaxActive <= 1 {
		return fmt.Errorf("decoder: max_active must be > 1, got %v", c.Beam.MaxActive)
	}
	if c.Queue.MaxTokensPreAllocated <= 0 {
		return fmt.Errorf("decoder: max_tokens_pre_allocated must be positive, got %v", c.Queue.MaxTokensPreAllocated)
	}
	if c.Queue.MaxTokensPerFrame <= 0 {
		return fmt.Errorf("decoder: max_tokens_per_frame must be positive, got %v", c.Queue.MaxTokensPerFrame)
	}
	if c.Batch.NLanes < 1 || c.Batch.NLanes > 200 {
		return fmt.Errorf("decoder: nlanes must be in [1, 200], got %v", c.Batch.NLanes)
	}
	if c.Batch.NChannels < c.Batch.NLanes {
		return fmt.Errorf("decoder: nchannels (%v) must be >= nlanes (%v)", c.Batch.NChannels, c.Batch.NLanes)
	}
	return nil
}
