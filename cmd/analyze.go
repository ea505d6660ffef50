package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/drumscribe/drumscribe/audio"
	"github.com/drumscribe/drumscribe/beatmap"
	"github.com/drumscribe/drumscribe/pipeline"
	"github.com/drumscribe/drumscribe/tempo"
)

var (
	analyzeOutput       string
	analyzeNumerator    int
	analyzeTempoChanges bool
)

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeOutput, "output", "o", "", "write the analysis JSON here instead of stdout")
	analyzeCmd.Flags().IntVar(&analyzeNumerator, "meter", 4, "beats per measure")
	analyzeCmd.Flags().BoolVar(&analyzeTempoChanges, "tempo-changes", false, "also scan for tempo drift in windows")
	rootCmd.AddCommand(analyzeCmd)
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze <audio.wav>",
	Short: "Infer tempo and the beat grid of a recording",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		buf, err := audio.DecodeWavFile(args[0])
		if err != nil {
			return err
		}

		cfg := pipeline.DefaultConfig()
		cfg.TimeSignature.Numerator = analyzeNumerator

		p := pipeline.NewWithConfig(cfg)
		analysis, err := p.AnalyzeBeats(buf)
		if err != nil {
			return err
		}

		var payload any = analysis
		if analyzeTempoChanges {
			segments, err := p.DetectTempoChanges(buf, 0)
			if err != nil {
				return err
			}
			payload = struct {
				*beatmap.BeatAnalysis
				TempoChanges []tempo.TempoSegment `json:"tempoChanges"`
			}{analysis, segments}
		}

		data, err := json.MarshalIndent(payload, "", "    ")
		if err != nil {
			return fmt.Errorf("encoding analysis: %w", err)
		}

		return writeOutput(analyzeOutput, data)
	},
}

func writeOutput(path string, data []byte) error {
	if path == "" {
		_, err := os.Stdout.Write(append(data, '\n'))
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
