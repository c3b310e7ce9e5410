// Package models fits and serves the motorcycle price model.
//
// The model is a gradient-boosted ensemble of least-squares regression trees
// over the vectors produced by package features. Train fits the encoding and
// the ensemble together, so a Model always carries the exact EncodingParams it
// was trained with. Engine wraps a Model and applies the business price floor.
package models

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/HatiCode/motoblu/pkg/features"
)

// ConfigurationError is the fatal training error type shared with features.
type ConfigurationError = features.ConfigurationError

// Options are the ensemble hyperparameters.
type Options struct {
	// NumTrees is the maximum number of boosting rounds.
	NumTrees int

	// NumLeaves caps the leaves of each tree. Must be >= 2.
	NumLeaves int

	// MinExamplesPerLeaf is the minimum number of rows on each side of a split.
	MinExamplesPerLeaf int

	// LearningRate shrinks each tree's contribution. Must be in (0, 1].
	LearningRate float64
}

// DefaultOptions mirrors the historical FastTree settings.
func DefaultOptions() Options {
	return Options{
		NumTrees:           100,
		NumLeaves:          50,
		MinExamplesPerLeaf: 1,
		LearningRate:       0.2,
	}
}

// Validate reports invalid hyperparameters.
func (o Options) Validate() error {
	switch {
	case o.NumTrees <= 0:
		return fmt.Errorf("numTrees must be > 0, got %d", o.NumTrees)
	case o.NumLeaves < 2:
		return fmt.Errorf("numLeaves must be >= 2, got %d", o.NumLeaves)
	case o.MinExamplesPerLeaf <= 0:
		return fmt.Errorf("minExamplesPerLeaf must be > 0, got %d", o.MinExamplesPerLeaf)
	case !(o.LearningRate > 0 && o.LearningRate <= 1):
		return fmt.Errorf("learningRate must be in (0, 1], got %v", o.LearningRate)
	}
	return nil
}

// Model is a fitted ensemble plus the encoding it was trained with.
// It is read-only after Train returns and safe for concurrent use.
type Model struct {
	params    *features.EncodingParams
	base      float64
	trees     []*regressionTree
	opts      Options
	trainedAt time.Time
	examples  int
	trainRMSE float64
}

// Summary describes a trained model for logs and introspection.
type Summary struct {
	Name         string    `json:"name"`
	Version      string    `json:"version"`
	Trees        int       `json:"trees"`
	Leaves       int       `json:"leaves"`
	Examples     int       `json:"examples"`
	Colors       []string  `json:"colors"`
	MinDays      float64   `json:"minDays"`
	MaxDays      float64   `json:"maxDays"`
	TrainingRMSE float64   `json:"trainingRmse"`
	TrainedAt    time.Time `json:"trainedAt"`
}

// Train fits the encoding on examples, encodes every example and boosts
// regression trees against TargetPrice.
//
// Returns a *ConfigurationError when the examples are empty or degenerate,
// the options are invalid, or the fitted scores diverge. Returns the context
// error if ctx is canceled between boosting rounds.
func Train(ctx context.Context, examples []features.TrainingExample, opts Options) (*Model, error) {
	if err := opts.Validate(); err != nil {
		return nil, &ConfigurationError{Stage: "options", Err: err}
	}

	params, err := features.FitEncoding(examples)
	if err != nil {
		return nil, err
	}

	x := make([]features.Vector, len(examples))
	y := make([]float64, len(examples))
	for i, ex := range examples {
		if math.IsNaN(ex.TargetPrice) || math.IsInf(ex.TargetPrice, 0) {
			return nil, &ConfigurationError{
				Stage: "training",
				Err:   fmt.Errorf("example %d: targetPrice is not finite", i),
			}
		}
		x[i] = params.EncodeExample(ex)
		y[i] = ex.TargetPrice
	}

	rows := make([]int, len(examples))
	for i := range rows {
		rows[i] = i
	}

	m := &Model{
		params:   params,
		base:     meanOf(y, rows),
		opts:     opts,
		examples: len(examples),
	}

	scores := make([]float64, len(y))
	for i := range scores {
		scores[i] = m.base
	}
	residuals := make([]float64, len(y))

	for round := 0; round < opts.NumTrees; round++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		for i := range y {
			residuals[i] = y[i] - scores[i]
		}

		tree := growTree(x, residuals, rows, opts.NumLeaves, opts.MinExamplesPerLeaf)
		if len(tree.nodes) == 1 && math.Abs(tree.nodes[0].Value) < minSplitGain {
			// Nothing left to fit.
			break
		}

		for i := range scores {
			scores[i] += opts.LearningRate * tree.predict(x[i])
		}
		m.trees = append(m.trees, tree)
	}

	sumSq := 0.0
	for i := range y {
		if math.IsNaN(scores[i]) || math.IsInf(scores[i], 0) {
			return nil, &ConfigurationError{
				Stage: "training",
				Err:   errors.New("ensemble diverged: non-finite fitted score"),
			}
		}
		d := y[i] - scores[i]
		sumSq += d * d
	}
	m.trainRMSE = math.Sqrt(sumSq / float64(len(y)))
	m.trainedAt = time.Now().UTC()

	return m, nil
}

// Name returns the model identifier.
func (m *Model) Name() string {
	return "gbrt"
}

// Params returns the encoding fitted during training.
func (m *Model) Params() *features.EncodingParams {
	return m.params
}

// Options returns the hyperparameters the model was trained with.
func (m *Model) Options() Options {
	return m.opts
}

// Version fingerprints the encoding, the hyperparameters and the ensemble
// size. Two models trained on the same data with the same options share it.
func (m *Model) Version() string {
	return fmt.Sprintf("%s-%s-t%d-l%d-m%d-r%g",
		m.Name(), m.params.Fingerprint(), len(m.trees),
		m.opts.NumLeaves, m.opts.MinExamplesPerLeaf, m.opts.LearningRate)
}

// Raw returns the unclamped ensemble estimate for an input.
func (m *Model) Raw(in features.Input) float64 {
	return m.score(m.params.EncodeInput(in))
}

func (m *Model) score(x features.Vector) float64 {
	s := m.base
	for _, t := range m.trees {
		s += m.opts.LearningRate * t.predict(x)
	}
	return s
}

// Summary reports the model shape and fit quality.
func (m *Model) Summary() Summary {
	leaves := 0
	for _, t := range m.trees {
		leaves += t.leaves()
	}

	return Summary{
		Name:         m.Name(),
		Version:      m.Version(),
		Trees:        len(m.trees),
		Leaves:       leaves,
		Examples:     m.examples,
		Colors:       m.params.Colors(),
		MinDays:      m.params.MinDays(),
		MaxDays:      m.params.MaxDays(),
		TrainingRMSE: m.trainRMSE,
		TrainedAt:    m.trainedAt,
	}
}
