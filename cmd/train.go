package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/drumscribe/drumscribe/audio"
	"github.com/drumscribe/drumscribe/beatmap"
	"github.com/drumscribe/drumscribe/classify"
	"github.com/drumscribe/drumscribe/pipeline"
)

var trainOutput string

func init() {
	trainCmd.Flags().StringVarP(&trainOutput, "output", "o", "model.json", "where to write the trained model")
	rootCmd.AddCommand(trainCmd)
}

// annotation is one curated training label: a hit time plus its class
type annotation struct {
	Time float64 `json:"time"`
	Type string  `json:"type"`
}

var trainCmd = &cobra.Command{
	Use:   "train <audio.wav> <annotations.json>",
	Short: "Train the don/ka classifier from curated annotations",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		buf, err := audio.DecodeWavFile(args[0])
		if err != nil {
			return err
		}

		annData, err := os.ReadFile(args[1])
		if err != nil {
			return fmt.Errorf("reading annotations file: %w", err)
		}
		var annotations []annotation
		if err := json.Unmarshal(annData, &annotations); err != nil {
			return fmt.Errorf("decoding annotations file: %w", err)
		}

		times := make([]float64, len(annotations))
		labels := make([]beatmap.HitType, len(annotations))
		for i, a := range annotations {
			label, err := beatmap.ParseHitType(a.Type)
			if err != nil {
				return fmt.Errorf("annotation %d: %w", i, err)
			}
			times[i] = a.Time
			labels[i] = label
		}

		samples, err := pipeline.New().ExtractLabeledSamples(buf, times, labels)
		if err != nil {
			return err
		}

		classifier := classify.NewClassifier()
		if err := classifier.Train(samples); err != nil {
			return err
		}

		return classifier.SaveModel(trainOutput)
	},
}
