// Package classify assigns don/ka labels to detected hits. The classifier is
// trained from curated exemplars and scores by distance to per-class
// centroids in a z-score scaled feature space.
package classify

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/drumscribe/drumscribe/algorithms/common"
	"github.com/drumscribe/drumscribe/beatmap"
	"github.com/drumscribe/drumscribe/logging"
)

var (
	// ErrInsufficientTrainingData is returned by Train when either class has
	// fewer than the minimum exemplar count
	ErrInsufficientTrainingData = errors.New("insufficient training data")

	// ErrFeatureDimensionMismatch is returned when a vector's dimension does
	// not match the model's
	ErrFeatureDimensionMismatch = errors.New("feature dimension mismatch")

	// ErrModelNotTrained is returned by Predict before a successful Train or
	// model load
	ErrModelNotTrained = errors.New("model not trained")
)

// ModelVersion identifies the persisted model layout
const ModelVersion = 1

// MinSamplesPerClass is the fewest exemplars each class needs for a stable
// centroid
const MinSamplesPerClass = 3

// Model is the trained classifier state. It serializes to JSON so curated
// training sessions survive process restarts.
type Model struct {
	Version      int                           `json:"version"`
	Dimension    int                           `json:"dimension"`
	FeatureMeans []float64                     `json:"featureMeans"`
	FeatureStds  []float64                     `json:"featureStds"`
	Centroids    map[beatmap.HitType][]float64 `json:"centroids"`
	SampleCounts map[beatmap.HitType]int       `json:"sampleCounts"`
}

// Validate checks internal consistency of a loaded model
func (m *Model) Validate() error {
	if m.Version != ModelVersion {
		return fmt.Errorf("unsupported model version %d (want %d)", m.Version, ModelVersion)
	}
	if m.Dimension <= 0 {
		return fmt.Errorf("invalid model dimension %d", m.Dimension)
	}
	if len(m.FeatureMeans) != m.Dimension || len(m.FeatureStds) != m.Dimension {
		return fmt.Errorf("%w: scaling arrays have %d/%d entries, model dimension is %d",
			ErrFeatureDimensionMismatch, len(m.FeatureMeans), len(m.FeatureStds), m.Dimension)
	}
	for _, class := range []beatmap.HitType{beatmap.HitDon, beatmap.HitKa} {
		centroid, ok := m.Centroids[class]
		if !ok {
			return fmt.Errorf("model has no centroid for class %q", class)
		}
		if len(centroid) != m.Dimension {
			return fmt.Errorf("%w: %q centroid has %d entries, model dimension is %d",
				ErrFeatureDimensionMismatch, class, len(centroid), m.Dimension)
		}
	}
	return nil
}

// Classifier predicts hit classes from feature vectors
type Classifier struct {
	model  *Model
	logger logging.Logger
}

// NewClassifier creates an untrained classifier
func NewClassifier() *Classifier {
	return &Classifier{
		logger: logging.WithFields(logging.Fields{
			"component": "hit_classifier",
		}),
	}
}

// NewClassifierFromModel creates a classifier from a previously trained model
func NewClassifierFromModel(m *Model) (*Classifier, error) {
	if m == nil {
		return nil, ErrModelNotTrained
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("invalid model: %w", err)
	}

	c := NewClassifier()
	c.model = m
	return c, nil
}

// Trained reports whether the classifier can predict
func (c *Classifier) Trained() bool {
	return c.model != nil
}

// Model returns the trained model, or nil before training
func (c *Classifier) Model() *Model {
	return c.model
}

// Train fits the model from labeled exemplars. Training is deterministic and
// replaces any previous model. Each class must contribute at least
// MinSamplesPerClass exemplars.
func (c *Classifier) Train(samples []beatmap.LabeledSample) error {
	byClass := map[beatmap.HitType][]beatmap.FeatureVector{}
	dimension := 0

	for i, s := range samples {
		if !s.Label.Valid() {
			return fmt.Errorf("sample %d has unknown label %q", i, s.Label)
		}
		if dimension == 0 {
			dimension = len(s.Features)
		}
		if len(s.Features) != dimension {
			return fmt.Errorf("%w: sample %d has dimension %d, expected %d",
				ErrFeatureDimensionMismatch, i, len(s.Features), dimension)
		}
		byClass[s.Label] = append(byClass[s.Label], s.Features)
	}

	if dimension == 0 {
		return fmt.Errorf("%w: no samples provided", ErrInsufficientTrainingData)
	}
	for _, class := range []beatmap.HitType{beatmap.HitDon, beatmap.HitKa} {
		if n := len(byClass[class]); n < MinSamplesPerClass {
			return fmt.Errorf("%w: class %q has %d exemplars, need at least %d",
				ErrInsufficientTrainingData, class, n, MinSamplesPerClass)
		}
	}

	means, stds := scalingStats(samples, dimension)

	centroids := map[beatmap.HitType][]float64{}
	counts := map[beatmap.HitType]int{}
	for class, vectors := range byClass {
		centroid := make([]float64, dimension)
		for _, v := range vectors {
			for d := 0; d < dimension; d++ {
				centroid[d] += scale(v[d], means[d], stds[d])
			}
		}
		for d := 0; d < dimension; d++ {
			centroid[d] /= float64(len(vectors))
		}
		centroids[class] = centroid
		counts[class] = len(vectors)
	}

	c.model = &Model{
		Version:      ModelVersion,
		Dimension:    dimension,
		FeatureMeans: means,
		FeatureStds:  stds,
		Centroids:    centroids,
		SampleCounts: counts,
	}

	c.logger.Info("classifier trained", logging.Fields{
		"dimension":   dimension,
		"don_samples": counts[beatmap.HitDon],
		"ka_samples":  counts[beatmap.HitKa],
	})

	return nil
}

// Predict returns the class and confidence for one feature vector.
// Confidence is the distance margin against the losing class, in [0.5, 1);
// an exact tie resolves to don at 0.5.
func (c *Classifier) Predict(v beatmap.FeatureVector) (beatmap.HitType, float64, error) {
	if c.model == nil {
		return "", 0, ErrModelNotTrained
	}
	if len(v) != c.model.Dimension {
		return "", 0, fmt.Errorf("%w: vector has dimension %d, model expects %d",
			ErrFeatureDimensionMismatch, len(v), c.model.Dimension)
	}

	scaled := make([]float64, len(v))
	for d := range v {
		scaled[d] = scale(v[d], c.model.FeatureMeans[d], c.model.FeatureStds[d])
	}

	dDon := euclidean(scaled, c.model.Centroids[beatmap.HitDon])
	dKa := euclidean(scaled, c.model.Centroids[beatmap.HitKa])

	if dDon <= dKa {
		return beatmap.HitDon, margin(dDon, dKa), nil
	}
	return beatmap.HitKa, margin(dKa, dDon), nil
}

// ClassifyAll predicts every vector and pairs the results with their times.
// The output is index-aligned with the input.
func (c *Classifier) ClassifyAll(times []float64, vectors []beatmap.FeatureVector) ([]beatmap.ClassifiedHit, error) {
	if len(times) != len(vectors) {
		return nil, fmt.Errorf("got %d times for %d vectors", len(times), len(vectors))
	}

	hits := make([]beatmap.ClassifiedHit, len(vectors))
	for i, v := range vectors {
		class, confidence, err := c.Predict(v)
		if err != nil {
			return nil, fmt.Errorf("classifying hit at %.3fs: %w", times[i], err)
		}
		hits[i] = beatmap.ClassifiedHit{
			Time:       times[i],
			Type:       class,
			Confidence: confidence,
		}
	}

	return hits, nil
}

// SaveModel writes the trained model as JSON
func (c *Classifier) SaveModel(path string) error {
	if c.model == nil {
		return ErrModelNotTrained
	}

	data, err := json.MarshalIndent(c.model, "", "    ")
	if err != nil {
		return fmt.Errorf("encoding model: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing model file: %w", err)
	}
	return nil
}

// LoadModel reads a model saved by SaveModel
func LoadModel(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading model file: %w", err)
	}

	var m Model
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decoding model file: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// scalingStats computes per-dimension mean and std over the whole training
// set. Constant dimensions get unit std so scaling stays defined.
func scalingStats(samples []beatmap.LabeledSample, dimension int) (means, stds []float64) {
	means = make([]float64, dimension)
	stds = make([]float64, dimension)

	column := make([]float64, len(samples))
	for d := 0; d < dimension; d++ {
		for i, s := range samples {
			column[i] = s.Features[d]
		}
		means[d] = common.Mean(column)
		stds[d] = common.StandardDeviation(column)
		if stds[d] < 1e-9 {
			stds[d] = 1.0
		}
	}

	return means, stds
}

func scale(value, mean, std float64) float64 {
	return (value - mean) / std
}

func euclidean(a, b []float64) float64 {
	sum := 0.0
	for i := range a {
		diff := a[i] - b[i]
		sum += diff * diff
	}
	return math.Sqrt(sum)
}

// margin maps the winning and losing distances to a confidence in [0.5, 1)
func margin(dSelf, dOther float64) float64 {
	total := dSelf + dOther
	if total < 1e-12 {
		return 0.5
	}
	return dOther / total
}
