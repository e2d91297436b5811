// cmd/decode.go
package cmd

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/inference-sim/wfst-decoder/decoder"
	"github.com/inference-sim/wfst-decoder/decoder/fstbuilder"
)

var (
	decodeConfigPath string
	decodeLogLevel   string
	decodeSeed       int64
	decodeNumUtts    int
	decodeNumFrames  int
	decodeNumStates  int
	decodeFanout     int
	decodeNumLabels  int
)

// decodeCmd drives a batch of synthetic utterances through the decoder and
// prints each one's best path. It stands in for the real WFST-loader and
// wav-I/O shell the decoder core is intentionally decoupled from: a
// random CSRFst and random per-frame log-likelihoods exercise the full
// InitDecoding/AdvanceDecoding/GetBestPath pipeline end to end without
// either collaborator.
var decodeCmd = &cobra.Command{
	Use:   "decode",
	Short: "Decode a batch of synthetic utterances and print best paths",
	Run: func(cmd *cobra.Command, args []string) {
		level, err := logrus.ParseLevel(decodeLogLevel)
		if err != nil {
			logrus.Fatalf("invalid log level: %s", decodeLogLevel)
		}
		logrus.SetLevel(level)

		cfg := decoder.DefaultConfig()
		if decodeConfigPath != "" {
			cfg, err = decoder.LoadConfig(decodeConfigPath)
			if err != nil {
				logrus.Fatalf("loading config: %v", err)
			}
		}
		cfg.Batch.NChannels = decodeNumUtts
		if cfg.Batch.NLanes > cfg.Batch.NChannels {
			cfg.Batch.NLanes = cfg.Batch.NChannels
		}
		if err := cfg.Validate(); err != nil {
			logrus.Fatalf("invalid config: %v", err)
		}

		rng := rand.New(rand.NewSource(decodeSeed))
		fst := randomFst(rng, decodeNumStates, decodeFanout, decodeNumLabels)

		dec, err := decoder.NewDecoder(fst, cfg)
		if err != nil {
			logrus.Fatalf("constructing decoder: %v", err)
		}

		channels := make([]*decoder.ChannelState, decodeNumUtts)
		decodables := make([]decoder.Decodable, decodeNumUtts)
		for i := range channels {
			channels[i] = decoder.NewChannelState(i)
			decodables[i] = newRandomDecodable(rng, decodeNumFrames, decodeNumLabels)
		}

		logrus.Infof("decoding %d utterances across %d lanes, %d states, %d max frames",
			decodeNumUtts, cfg.Batch.NLanes, decodeNumStates, decodeNumFrames)

		start := time.Now()
		if err := dec.InitDecoding(channels); err != nil {
			logrus.Fatalf("InitDecoding: %v", err)
		}
		if err := dec.AdvanceDecoding(channels, decodables, decodeNumFrames); err != nil {
			logrus.Fatalf("AdvanceDecoding: %v", err)
		}
		logrus.Infof("decoded in %s", time.Since(start))

		for i, ch := range channels {
			path, ok := decoder.GetBestPath(ch, fst, true)
			if !ok {
				fmt.Printf("utterance %d: no surviving hypothesis\n", i)
				continue
			}
			cost, _ := decoder.GetBestCost(ch, fst, true)
			olabels := make([]int, 0, len(path))
			for _, step := range path {
				if step.Olabel != 0 {
					olabels = append(olabels, step.Olabel)
				}
			}
			overflow := ""
			if ch.Overflowed() {
				overflow = " (overflowed)"
			}
			fmt.Printf("utterance %d: cost=%.3f frames=%d olabels=%v%s\n",
				i, cost, ch.NumFramesDecoded(), olabels, overflow)
		}

		metrics := dec.Metrics()
		metrics.Print()
	},
}

// randomFst builds a random CSRFst for exercising the decoder without a
// real WFST loader/compiler: numStates states, each (but the last) with
// 1 to fanout emitting arcs to later states and, with probability 1/3, one
// epsilon arc to the next state, and a final weight of 0 on the last state.
func randomFst(rng *rand.Rand, numStates, fanout, numLabels int) *decoder.CSRFst {
	b := fstbuilder.New(0)
	for s := 0; s < numStates-1; s++ {
		n := 1 + rng.Intn(fanout)
		for i := 0; i < n; i++ {
			to := s + 1 + rng.Intn(numStates-s-1)
			ilabel := 1 + rng.Intn(numLabels)
			olabel := ilabel
			weight := float32(rng.Float64() * 2)
			b.AddArc(s, to, ilabel, olabel, weight)
		}
		if s+1 < numStates && rng.Intn(3) == 0 {
			b.AddArc(s, s+1, 0, 0, float32(rng.Float64()))
		}
	}
	b.SetFinal(numStates-1, 0)
	return b.Build()
}

// randomDecodable supplies uniformly random log-likelihoods per frame,
// standing in for the acoustic model collaborator.
type randomDecodable struct {
	frames [][]float32
}

func newRandomDecodable(rng *rand.Rand, numFrames, numLabels int) *randomDecodable {
	d := &randomDecodable{frames: make([][]float32, numFrames)}
	for f := range d.frames {
		row := make([]float32, numLabels+1)
		for l := 1; l <= numLabels; l++ {
			row[l] = float32(-rng.Float64() * 3)
		}
		d.frames[f] = row
	}
	return d
}

func (d *randomDecodable) NumFramesReady() int { return len(d.frames) }

func (d *randomDecodable) LogLikelihoodForFrame(frame int) []float32 {
	return d.frames[frame]
}

func init() {
	decodeCmd.Flags().StringVar(&decodeConfigPath, "config", "", "path to a YAML decoder config (overrides defaults)")
	decodeCmd.Flags().StringVar(&decodeLogLevel, "log", "info", "log level (debug, info, warn, error)")
	decodeCmd.Flags().Int64Var(&decodeSeed, "seed", 1, "random seed for the synthetic FST and acoustic scores")
	decodeCmd.Flags().IntVar(&decodeNumUtts, "utterances", 4, "number of synthetic utterances to decode as one batch")
	decodeCmd.Flags().IntVar(&decodeNumFrames, "frames", 50, "number of synthetic frames per utterance")
	decodeCmd.Flags().IntVar(&decodeNumStates, "states", 20, "number of states in the synthetic FST")
	decodeCmd.Flags().IntVar(&decodeFanout, "fanout", 4, "max emitting out-degree per state in the synthetic FST")
	decodeCmd.Flags().IntVar(&decodeNumLabels, "labels", 8, "number of distinct ilabels/olabels in the synthetic FST")
}
