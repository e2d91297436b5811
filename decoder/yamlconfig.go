// Optional YAML configuration loading. Decoding is strict so a typo'd key
// is rejected rather than silently ignored.

package decoder

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// yamlConfig mirrors Config's fields with yaml tags; kept separate from
// Config so Config itself stays free of serialization concerns.
type yamlConfig struct {
	Beam                  *float64 `yaml:"beam"`
	LatticeBeam           *float64 `yaml:"lattice_beam"`
	MaxActive             *int     `yaml:"max_active"`
	MaxTokensPreAllocated *int     `yaml:"max_tokens_pre_allocated"`
	MaxTokensPerFrame     *int     `yaml:"max_tokens_per_frame"`
	NLanes                *int     `yaml:"nlanes"`
	NChannels             *int     `yaml:"nchannels"`
}

// LoadConfig reads and parses a YAML configuration file, overlaying set
// fields onto DefaultConfig. Unrecognized keys are rejected (KnownFields).
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("decoder: reading config: %w", err)
	}

	var y yamlConfig
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&y); err != nil {
		return cfg, fmt.Errorf("decoder: parsing config: %w", err)
	}

	if y.Beam != nil {
		cfg.Beam.Beam = *y.Beam
	}
	if y.LatticeBeam != nil {
		cfg.Beam.LatticeBeam = *y.LatticeBeam
	}
	if y.MaxActive != nil {
		cfg.Beam.MaxActive = *y.MaxActive
	}
	if y.MaxTokensPreAllocated != nil {
		cfg.Queue.MaxTokensPreAllocated = *y.MaxTokensPreAllocated
	}
	if y.MaxTokensPerFrame != nil {
		cfg.Queue.MaxTokensPerFrame = *y.MaxTokensPerFrame
	}
	if y.NLanes != nil {
		cfg.Batch.NLanes = *y.NLanes
	}
	if y.NChannels != nil {
		cfg.Batch.NChannels = *y.NChannels
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}
