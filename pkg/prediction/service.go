// Package prediction owns the lifecycle of the price model.
//
// A Service trains once during construction and then answers price queries
// until the process exits:
//
//	Uninitialized → Training → Ready
//
// Training failures are fatal: New returns the error and no Service exists to
// serve requests. Predictions may be cached in a storage.Store, keyed by the
// model version, and are reported to an optional Recorder.
package prediction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/HatiCode/motoblu/pkg/features"
	"github.com/HatiCode/motoblu/pkg/models"
	"github.com/HatiCode/motoblu/pkg/storage"
)

// ErrNotReady is returned by Predict before training has completed.
var ErrNotReady = errors.New("prediction service not ready")

// State is the model lifecycle stage.
type State int32

const (
	Uninitialized State = iota
	Training
	Ready
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Training:
		return "training"
	case Ready:
		return "ready"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Outcome labels passed to Recorder.RecordPredict.
const (
	OutcomeOK       = "ok"
	OutcomeNotReady = "not_ready"
	OutcomeCanceled = "canceled"
)

// Cache result labels passed to Recorder.RecordCache.
const (
	CacheHit   = "hit"
	CacheMiss  = "miss"
	CacheError = "error"
)

// Recorder receives service telemetry. Implementations must be safe for
// concurrent use.
type Recorder interface {
	RecordTrain(seconds float64, trees, vocabulary int)
	SetReady(ready bool)
	RecordPredict(seconds float64, outcome string)
	RecordClamped()
	RecordUnknownColor()
	RecordCache(result string)
	RecordError(component, reason string)
}

type nopRecorder struct{}

func (nopRecorder) RecordTrain(float64, int, int) {}
func (nopRecorder) SetReady(bool) {}
func (nopRecorder) RecordPredict(float64, string) {}
func (nopRecorder) RecordClamped() {}
func (nopRecorder) RecordUnknownColor() {}
func (nopRecorder) RecordCache(string) {}
func (nopRecorder) RecordError(string, string) {}

// Config controls how the model is trained and served.
type Config struct {
	Options    models.Options
	PriceFloor float64
}

// DefaultConfig returns the default hyperparameters and price floor.
func DefaultConfig() Config {
	return Config{
		Options:    models.DefaultOptions(),
		PriceFloor: models.DefaultPriceFloor,
	}
}

// Option configures a Service.
type Option func(*Service)

// WithStore enables prediction caching.
func WithStore(store storage.Store) Option {
	return func(s *Service) { s.store = store }
}

// WithRecorder sets the telemetry sink.
func WithRecorder(r Recorder) Option {
	return func(s *Service) {
		if r != nil {
			s.recorder = r
		}
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithStateObserver registers a callback invoked on every state transition.
func WithStateObserver(fn func(State)) Option {
	return func(s *Service) { s.observer = fn }
}

// Service trains the model and answers price queries.
// It is safe for concurrent use once New returns.
type Service struct {
	state    atomic.Int32
	engine   *models.Engine
	store    storage.Store
	recorder Recorder
	logger   *slog.Logger
	observer func(State)
}

// New trains a model on examples and returns a Ready service.
// Any training error is returned as is and leaves no usable service behind.
func New(ctx context.Context, examples []features.TrainingExample, cfg Config, opts ...Option) (*Service, error) {
	s := &Service{
		recorder: nopRecorder{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.setState(Training)
	s.logger.Info("training price model",
		"examples", len(examples),
		"trees", cfg.Options.NumTrees,
		"leaves", cfg.Options.NumLeaves,
		"min_leaf", cfg.Options.MinExamplesPerLeaf,
		"learning_rate", cfg.Options.LearningRate,
	)

	start := time.Now()
	model, err := models.Train(ctx, examples, cfg.Options)
	if err != nil {
		s.recorder.RecordError("model", "train_failed")
		s.setState(Uninitialized)
		return nil, fmt.Errorf("train model: %w", err)
	}
	duration := time.Since(start)

	s.engine = models.NewEngine(model, cfg.PriceFloor)

	summary := model.Summary()
	s.recorder.RecordTrain(duration.Seconds(), summary.Trees, len(summary.Colors))
	s.logger.Info("price model trained",
		"version", summary.Version,
		"trees", summary.Trees,
		"leaves", summary.Leaves,
		"colors", len(summary.Colors),
		"training_rmse", summary.TrainingRMSE,
		"duration_ms", duration.Milliseconds(),
	)

	s.setState(Ready)
	return s, nil
}

func (s *Service) setState(st State) {
	s.state.Store(int32(st))
	s.recorder.SetReady(st == Ready)
	if s.observer != nil {
		s.observer(st)
	}
}

// State returns the current lifecycle stage.
func (s *Service) State() State {
	return State(s.state.Load())
}

// Ready returns nil once the model can serve predictions.
func (s *Service) Ready() error {
	if st := s.State(); st != Ready {
		return fmt.Errorf("%w: %s", ErrNotReady, st)
	}
	return nil
}

// Summary describes the trained model.
func (s *Service) Summary() (models.Summary, error) {
	if err := s.Ready(); err != nil {
		return models.Summary{}, err
	}
	return s.engine.Model().Summary(), nil
}

// Predict returns the price estimate for one motorcycle.
//
// A cached answer for the same model version is served when available. Cache
// failures are logged and never fail the request.
func (s *Service) Predict(ctx context.Context, in features.Input) (models.Prediction, error) {
	start := time.Now()

	if err := s.Ready(); err != nil {
		s.recorder.RecordPredict(time.Since(start).Seconds(), OutcomeNotReady)
		return models.Prediction{}, err
	}
	if err := ctx.Err(); err != nil {
		s.recorder.RecordPredict(time.Since(start).Seconds(), OutcomeCanceled)
		return models.Prediction{}, err
	}

	model := s.engine.Model()
	version := model.Version()
	key := storage.Key(version, in.Color, in.DaysInUse)

	p, ok := s.lookup(ctx, key, in)
	if !ok {
		p = s.engine.Predict(in)
		s.remember(ctx, storage.Entry{
			Key:            key,
			ModelVersion:   version,
			Color:          in.Color,
			DaysInUse:      in.DaysInUse,
			RawPrice:       p.Raw,
			PredictedPrice: p.PredictedPrice,
		})
	}

	if p.Clamped {
		s.recorder.RecordClamped()
	}
	if p.UnknownColor {
		s.recorder.RecordUnknownColor()
		s.logger.Debug("color not seen during training", "color", in.Color)
	}

	s.recorder.RecordPredict(time.Since(start).Seconds(), OutcomeOK)
	return p, nil
}

// lookup serves a cached raw estimate through this service's own floor, so
// replicas sharing a store never hand each other a price below their floor.
func (s *Service) lookup(ctx context.Context, key string, in features.Input) (models.Prediction, bool) {
	if s.store == nil {
		return models.Prediction{}, false
	}

	entry, found, err := s.store.Get(ctx, key)
	if err != nil {
		s.recorder.RecordCache(CacheError)
		s.recorder.RecordError("cache", "get_failed")
		s.logger.Warn("prediction cache read failed", "error", err)
		return models.Prediction{}, false
	}
	if !found {
		s.recorder.RecordCache(CacheMiss)
		return models.Prediction{}, false
	}

	s.recorder.RecordCache(CacheHit)
	return s.engine.FromRaw(in, entry.RawPrice), true
}

func (s *Service) remember(ctx context.Context, entry storage.Entry) {
	if s.store == nil {
		return
	}
	if err := s.store.Put(ctx, entry); err != nil {
		s.recorder.RecordError("cache", "put_failed")
		s.logger.Warn("prediction cache write failed", "error", err)
	}
}
