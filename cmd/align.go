package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/drumscribe/drumscribe/audio"
	"github.com/drumscribe/drumscribe/beatmap"
	"github.com/drumscribe/drumscribe/pipeline"
)

var (
	alignOutput    string
	alignReport    string
	alignTolerance float64
)

func init() {
	alignCmd.Flags().StringVarP(&alignOutput, "output", "o", "", "write the aligned hits JSON here instead of stdout")
	alignCmd.Flags().StringVar(&alignReport, "report", "", "also write the per-event alignment report here")
	alignCmd.Flags().Float64VarP(&alignTolerance, "tolerance", "t", 0.1, "max snap distance in seconds")
	rootCmd.AddCommand(alignCmd)
}

var alignCmd = &cobra.Command{
	Use:   "align <audio.wav> <hits.json>",
	Short: "Snap annotated hits onto the inferred beat grid",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		buf, err := audio.DecodeWavFile(args[0])
		if err != nil {
			return err
		}

		hitsData, err := os.ReadFile(args[1])
		if err != nil {
			return fmt.Errorf("reading hits file: %w", err)
		}
		var hits []beatmap.ClassifiedHit
		if err := json.Unmarshal(hitsData, &hits); err != nil {
			return fmt.Errorf("decoding hits file: %w", err)
		}

		cfg := pipeline.DefaultConfig()
		cfg.Align.ToleranceSec = alignTolerance
		p := pipeline.NewWithConfig(cfg)

		g, err := p.BuildGrid(buf)
		if err != nil {
			return err
		}

		aligned, report := p.Align(hits, g)

		if alignReport != "" {
			reportData, err := json.MarshalIndent(report, "", "    ")
			if err != nil {
				return fmt.Errorf("encoding alignment report: %w", err)
			}
			if err := os.WriteFile(alignReport, reportData, 0o644); err != nil {
				return fmt.Errorf("writing alignment report: %w", err)
			}
		}

		data, err := json.MarshalIndent(aligned, "", "    ")
		if err != nil {
			return fmt.Errorf("encoding aligned hits: %w", err)
		}

		return writeOutput(alignOutput, data)
	},
}
