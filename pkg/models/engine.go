package models

import (
	"github.com/HatiCode/motoblu/pkg/features"
)

// DefaultPriceFloor is the lowest price the engine will ever return.
const DefaultPriceFloor = 5000.0

// Prediction is the engine output for one input.
// Only PredictedPrice is part of the public API response.
type Prediction struct {
	PredictedPrice float64 `json:"precoPrevisto"`
	Raw            float64 `json:"-"`
	Clamped        bool    `json:"-"`
	UnknownColor   bool    `json:"-"`
}

// Engine answers single-record price queries against one trained Model.
// Predict touches no mutable state, so an Engine may be shared freely
// between goroutines.
type Engine struct {
	model *Model
	floor float64
}

// NewEngine wraps a trained model. The floor is applied after the ensemble,
// never during training.
func NewEngine(model *Model, floor float64) *Engine {
	return &Engine{model: model, floor: floor}
}

// Model returns the underlying trained model.
func (e *Engine) Model() *Model {
	return e.model
}

// Floor returns the minimum price returned by Predict.
func (e *Engine) Floor() float64 {
	return e.floor
}

// Predict encodes the input with the model's own params, runs the ensemble
// and clamps the result to the price floor. No upper bound is applied.
func (e *Engine) Predict(in features.Input) Prediction {
	return e.FromRaw(in, e.model.Raw(in))
}

// FromRaw builds the prediction for an input whose unclamped estimate is
// already known, applying this engine's floor.
func (e *Engine) FromRaw(in features.Input, raw float64) Prediction {
	_, known := e.model.params.ColorIndex(in.Color)

	p := Prediction{
		PredictedPrice: raw,
		Raw:            raw,
		UnknownColor:   !known,
	}

	// Written as a negated >= so a NaN estimate also lands on the floor.
	if !(raw >= e.floor) {
		p.PredictedPrice = e.floor
		p.Clamped = true
	}

	return p
}
