package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/drumscribe/drumscribe/audio"
	"github.com/drumscribe/drumscribe/classify"
	"github.com/drumscribe/drumscribe/pipeline"
)

var (
	transcribeOutput  string
	transcribeModel   string
	transcribeBeatmap bool
)

func init() {
	transcribeCmd.Flags().StringVarP(&transcribeOutput, "output", "o", "", "write the hits JSON here instead of stdout")
	transcribeCmd.Flags().StringVarP(&transcribeModel, "model", "m", "", "trained classifier model; omit for heuristic suggestions")
	transcribeCmd.Flags().BoolVar(&transcribeBeatmap, "beatmap", false, "emit a beatmap artifact instead of raw hits")
	rootCmd.AddCommand(transcribeCmd)
}

var transcribeCmd = &cobra.Command{
	Use:   "transcribe <audio.wav>",
	Short: "Detect drum hits and label them don or ka",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		buf, err := audio.DecodeWavFile(args[0])
		if err != nil {
			return err
		}

		var model *classify.Model
		if transcribeModel != "" {
			model, err = classify.LoadModel(transcribeModel)
			if err != nil {
				return err
			}
		}

		p := pipeline.New()
		hits, err := p.Transcribe(buf, model)
		if err != nil {
			return err
		}

		var data []byte
		if transcribeBeatmap {
			data, err = p.BuildBeatmap(hits).MarshalIndent()
		} else {
			data, err = json.MarshalIndent(hits, "", "    ")
		}
		if err != nil {
			return fmt.Errorf("encoding transcription: %w", err)
		}

		return writeOutput(transcribeOutput, data)
	},
}
