// Package features turns raw motorcycle observations into numeric feature
// vectors for the price model.
//
// A vector is the one-hot encoding of the color followed by the min-max
// normalized age in days:
//
//	[ color_0, color_1, ..., color_{k-1}, days ]
//
// The color vocabulary and the age bounds are learned once by FitEncoding and
// must be reused unchanged for every later Encode call. Training and inference
// therefore share the exact same EncodingParams value.
package features

import (
	"errors"
	"fmt"
	"hash/fnv"
	"math"
)

// ErrEmptyTrainingSet is returned when an encoding or model is fit on no data.
var ErrEmptyTrainingSet = errors.New("cannot fit on empty training set")

// ConfigurationError reports a fatal problem found while fitting the encoding
// or the model. A service that receives one must not start serving.
type ConfigurationError struct {
	Stage string
	Err   error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error (%s): %v", e.Stage, e.Err)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// TrainingExample is one historical sale used to fit the model.
type TrainingExample struct {
	Color       string
	DaysInUse   float64
	TargetPrice float64
}

// Input holds the feature values of a single prediction request.
type Input struct {
	Color     string
	DaysInUse float64
}

// Vector is an encoded feature row.
type Vector []float64

// EncodingParams captures the fitted color vocabulary and age bounds.
// It is immutable once returned by FitEncoding and safe for concurrent reads.
type EncodingParams struct {
	colors  []string
	index   map[string]int
	minDays float64
	maxDays float64
}

// FitEncoding scans the examples once, assigning each distinct color an index
// in order of first appearance and recording the min/max DaysInUse.
func FitEncoding(examples []TrainingExample) (*EncodingParams, error) {
	if len(examples) == 0 {
		return nil, &ConfigurationError{Stage: "encoding", Err: ErrEmptyTrainingSet}
	}

	p := &EncodingParams{
		index:   make(map[string]int),
		minDays: math.Inf(1),
		maxDays: math.Inf(-1),
	}

	for i, ex := range examples {
		if math.IsNaN(ex.DaysInUse) || math.IsInf(ex.DaysInUse, 0) {
			return nil, &ConfigurationError{
				Stage: "encoding",
				Err:   fmt.Errorf("example %d: daysInUse is not finite", i),
			}
		}

		if _, seen := p.index[ex.Color]; !seen {
			p.index[ex.Color] = len(p.colors)
			p.colors = append(p.colors, ex.Color)
		}

		p.minDays = math.Min(p.minDays, ex.DaysInUse)
		p.maxDays = math.Max(p.maxDays, ex.DaysInUse)
	}

	return p, nil
}

// Width is the length of every vector produced by these params.
func (p *EncodingParams) Width() int {
	return len(p.colors) + 1
}

// Colors returns the vocabulary in one-hot index order.
func (p *EncodingParams) Colors() []string {
	out := make([]string, len(p.colors))
	copy(out, p.colors)
	return out
}

// ColorIndex returns the one-hot position of a color, if it was seen in training.
func (p *EncodingParams) ColorIndex(color string) (int, bool) {
	i, ok := p.index[color]
	return i, ok
}

// MinDays is the smallest DaysInUse seen during fitting.
func (p *EncodingParams) MinDays() float64 { return p.minDays }

// MaxDays is the largest DaysInUse seen during fitting.
func (p *EncodingParams) MaxDays() float64 { return p.maxDays }

// Normalize rescales days into [0,1] using the training bounds.
// Values outside the bounds are clamped. When every training example had the
// same age the result is the constant 0.5.
func (p *EncodingParams) Normalize(days float64) float64 {
	span := p.maxDays - p.minDays
	if span == 0 || math.IsNaN(days) {
		return 0.5
	}

	v := (days - p.minDays) / span
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

// Encode builds the feature vector for a (color, days) pair.
// A color outside the vocabulary, the empty string included, yields an
// all-zero one-hot segment.
func (p *EncodingParams) Encode(color string, daysInUse float64) Vector {
	v := make(Vector, p.Width())
	if i, ok := p.index[color]; ok {
		v[i] = 1
	}
	v[len(p.colors)] = p.Normalize(daysInUse)
	return v
}

// EncodeInput encodes a prediction request.
func (p *EncodingParams) EncodeInput(in Input) Vector {
	return p.Encode(in.Color, in.DaysInUse)
}

// EncodeExample encodes a training example, ignoring its label.
func (p *EncodingParams) EncodeExample(ex TrainingExample) Vector {
	return p.Encode(ex.Color, ex.DaysInUse)
}

// Fingerprint identifies the params for cache keys and logs. Two params with
// the same vocabulary order and bounds share a fingerprint.
func (p *EncodingParams) Fingerprint() string {
	h := fnv.New64a()
	for _, c := range p.colors {
		h.Write([]byte(c))
		h.Write([]byte{0})
	}
	fmt.Fprintf(h, "%g:%g", p.minDays, p.maxDays)
	return fmt.Sprintf("%016x", h.Sum64())
}
