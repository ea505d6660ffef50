// Package pipeline wires the analysis stages into the operations the
// annotation UI calls: beat analysis, transcription, alignment and beatmap
// assembly.
package pipeline

import (
	"fmt"

	"github.com/drumscribe/drumscribe/align"
	"github.com/drumscribe/drumscribe/audio"
	"github.com/drumscribe/drumscribe/beatmap"
	"github.com/drumscribe/drumscribe/classify"
	"github.com/drumscribe/drumscribe/features"
	"github.com/drumscribe/drumscribe/grid"
	"github.com/drumscribe/drumscribe/logging"
	"github.com/drumscribe/drumscribe/onset"
	"github.com/drumscribe/drumscribe/tempo"
)

// Config aggregates the per-stage parameters
type Config struct {
	Onset             onset.Config          `json:"onset"`
	Features          features.Config       `json:"features"`
	Tempo             tempo.Config          `json:"tempo"`
	Align             align.Config          `json:"align"`
	TimeSignature     beatmap.TimeSignature `json:"time_signature"`
	EnvelopeFrameSize int                   `json:"envelope_frame_size"`
	EnvelopeHopSize   int                   `json:"envelope_hop_size"`
}

// DefaultConfig returns the standard stage parameters in 4/4
func DefaultConfig() Config {
	return Config{
		Onset:             onset.DefaultConfig(),
		Features:          features.DefaultConfig(),
		Tempo:             tempo.DefaultConfig(),
		Align:             align.DefaultConfig(),
		TimeSignature:     beatmap.CommonTime,
		EnvelopeFrameSize: 2048,
		EnvelopeHopSize:   512,
	}
}

// Pipeline owns one configured instance of every analysis stage. A Pipeline
// is safe to reuse across clips.
type Pipeline struct {
	cfg       Config
	detector  *onset.Detector
	extractor *features.Extractor
	estimator *tempo.Estimator
	builder   *grid.Builder
	measures  *grid.MeasureDetector
	aligner   *align.Aligner
	logger    logging.Logger
}

// New creates a pipeline with default parameters
func New() *Pipeline {
	return NewWithConfig(DefaultConfig())
}

// NewWithConfig creates a pipeline with custom parameters
func NewWithConfig(cfg Config) *Pipeline {
	if cfg.TimeSignature.Numerator <= 0 {
		cfg.TimeSignature = beatmap.CommonTime
	}
	if cfg.EnvelopeFrameSize <= 0 {
		cfg.EnvelopeFrameSize = 2048
	}
	if cfg.EnvelopeHopSize <= 0 {
		cfg.EnvelopeHopSize = 512
	}

	return &Pipeline{
		cfg:       cfg,
		detector:  onset.NewDetectorWithConfig(cfg.Onset),
		extractor: features.NewExtractorWithConfig(cfg.Features),
		estimator: tempo.NewEstimatorWithConfig(cfg.Tempo),
		builder:   grid.NewBuilder(),
		measures:  grid.NewMeasureDetector(),
		aligner:   align.NewAlignerWithConfig(cfg.Align),
		logger: logging.WithFields(logging.Fields{
			"component": "pipeline",
		}),
	}
}

// DetectOnsets runs onset detection alone
func (p *Pipeline) DetectOnsets(buf *audio.Buffer) ([]beatmap.OnsetEvent, error) {
	return p.detector.Detect(buf)
}

// BuildGrid runs the full beat analysis chain: onsets, tempo, grid layout
// with energy-based strengths, then measure anchoring on the accent pattern.
func (p *Pipeline) BuildGrid(buf *audio.Buffer) (*beatmap.BeatGrid, error) {
	onsets, err := p.detector.Detect(buf)
	if err != nil {
		return nil, fmt.Errorf("detecting onsets: %w", err)
	}

	bpm, _, err := p.estimator.Estimate(onsets, buf.Duration())
	if err != nil {
		return nil, fmt.Errorf("estimating tempo: %w", err)
	}

	env := audio.ComputeRMSEnvelope(buf, p.cfg.EnvelopeFrameSize, p.cfg.EnvelopeHopSize)

	g, err := p.builder.Build(bpm, p.cfg.TimeSignature, buf.Duration(), env)
	if err != nil {
		return nil, fmt.Errorf("building beat grid: %w", err)
	}

	// Anchor measures on the repeating onset pattern. A failed location
	// keeps the default phase; a low-confidence anchor is still applied
	// and surfaced through the logged confidence for user correction.
	anchor, anchorErr := p.measures.LocateFirstMeasure(onsets, g)
	if anchorErr != nil {
		p.logger.Warn("measure anchoring skipped", logging.Fields{
			"reason": anchorErr.Error(),
		})
	} else {
		p.logger.Debug("first measure located", logging.Fields{
			"beat_index": anchor.BeatIndex,
			"confidence": anchor.Confidence,
		})
		if anchor.BeatIndex%p.cfg.TimeSignature.Numerator != 0 {
			g = p.measures.Rephase(g, anchor.BeatIndex)
		}
	}

	p.logger.Info("beat analysis complete", logging.Fields{
		"bpm":        g.BPM.BPM,
		"confidence": g.BPM.Confidence,
		"beats":      len(g.Beats),
		"measures":   g.TotalMeasures(),
	})

	return g, nil
}

// DetectTempoChanges scans for tempo drift in overlapping windows across the
// track. windowSec <= 0 selects the estimator's default window.
func (p *Pipeline) DetectTempoChanges(buf *audio.Buffer, windowSec float64) ([]tempo.TempoSegment, error) {
	onsets, err := p.detector.Detect(buf)
	if err != nil {
		return nil, fmt.Errorf("detecting onsets: %w", err)
	}
	return p.estimator.DetectTempoChanges(onsets, buf.Duration(), windowSec), nil
}

// AnalyzeBeats runs BuildGrid and wraps the result in the beat-analysis
// record
func (p *Pipeline) AnalyzeBeats(buf *audio.Buffer) (*beatmap.BeatAnalysis, error) {
	g, err := p.BuildGrid(buf)
	if err != nil {
		return nil, err
	}
	return beatmap.NewBeatAnalysis(g), nil
}

// Transcribe detects hits and labels them. With a trained model the
// classifier decides; without one the brightness suggester proposes
// provisional labels for curation.
func (p *Pipeline) Transcribe(buf *audio.Buffer, model *classify.Model) ([]beatmap.ClassifiedHit, error) {
	onsets, err := p.detector.Detect(buf)
	if err != nil {
		return nil, fmt.Errorf("detecting onsets: %w", err)
	}

	times := make([]float64, len(onsets))
	for i, o := range onsets {
		times[i] = o.Time
	}

	vectors, err := p.extractor.ExtractAll(buf, times)
	if err != nil {
		return nil, fmt.Errorf("extracting features: %w", err)
	}

	if model == nil {
		suggester := classify.NewSuggester(p.cfg.Features.NumMFCC)
		hits := suggester.Suggest(times, vectors)
		p.logger.Info("transcription complete (suggested labels)", logging.Fields{
			"hits": len(hits),
		})
		return hits, nil
	}

	classifier, err := classify.NewClassifierFromModel(model)
	if err != nil {
		return nil, fmt.Errorf("loading classifier model: %w", err)
	}

	hits, err := classifier.ClassifyAll(times, vectors)
	if err != nil {
		return nil, fmt.Errorf("classifying hits: %w", err)
	}

	p.logger.Info("transcription complete", logging.Fields{
		"hits": len(hits),
	})

	return hits, nil
}

// ExtractLabeledSamples builds training exemplars from curated annotations.
// times and labels are index-aligned.
func (p *Pipeline) ExtractLabeledSamples(buf *audio.Buffer, times []float64, labels []beatmap.HitType) ([]beatmap.LabeledSample, error) {
	if len(times) != len(labels) {
		return nil, fmt.Errorf("got %d times for %d labels", len(times), len(labels))
	}

	vectors, err := p.extractor.ExtractAll(buf, times)
	if err != nil {
		return nil, fmt.Errorf("extracting features: %w", err)
	}

	samples := make([]beatmap.LabeledSample, len(times))
	for i := range times {
		if !labels[i].Valid() {
			return nil, fmt.Errorf("annotation %d has unknown label %q", i, labels[i])
		}
		samples[i] = beatmap.LabeledSample{
			Features: vectors[i],
			Label:    labels[i],
		}
	}

	return samples, nil
}

// Align snaps hits to the grid and returns the snapped hits plus the report
func (p *Pipeline) Align(hits []beatmap.ClassifiedHit, g *beatmap.BeatGrid) ([]beatmap.ClassifiedHit, *beatmap.AlignmentReport) {
	return p.aligner.Align(hits, g)
}

// BuildBeatmap assembles the persisted artifact from classified hits
func (p *Pipeline) BuildBeatmap(hits []beatmap.ClassifiedHit) *beatmap.Artifact {
	return beatmap.NewArtifact(hits)
}
