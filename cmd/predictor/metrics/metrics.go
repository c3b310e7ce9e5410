// Package metrics provides Prometheus metrics instrumentation for the predictor.
//
// Metrics exposed:
//   - motoblu_model_train_seconds: Histogram of model training duration
//   - motoblu_model_ready: Gauge, 1 once the model serves predictions
//   - motoblu_model_trees: Gauge of trees in the trained ensemble
//   - motoblu_model_vocabulary_size: Gauge of colors known to the model
//   - motoblu_predict_seconds: Histogram of prediction latency
//   - motoblu_predictions_total: Counter of predictions by outcome
//   - motoblu_price_floor_clamped_total: Counter of estimates raised to the floor
//   - motoblu_unknown_color_total: Counter of requests with an unseen color
//   - motoblu_cache_requests_total: Counter of cache lookups by result
//   - motoblu_errors_total: Counter of errors by component and reason
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the predictor.
// It satisfies prediction.Recorder.
type Metrics struct {
	TrainSeconds       prometheus.Histogram
	ModelReady         prometheus.Gauge
	ModelTrees         prometheus.Gauge
	VocabularySize     prometheus.Gauge
	PredictSeconds     prometheus.Histogram
	PredictionsTotal   *prometheus.CounterVec
	FloorClampedTotal  prometheus.Counter
	UnknownColorTotal  prometheus.Counter
	CacheRequestsTotal *prometheus.CounterVec
	ErrorsTotal        *prometheus.CounterVec
}

// New creates all metrics and registers them with reg.
// A nil reg uses prometheus.DefaultRegisterer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		TrainSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "motoblu_model_train_seconds",
			Help:    "Time spent training the price model",
			Buckets: prometheus.DefBuckets,
		}),

		ModelReady: factory.NewGauge(prometheus.GaugeOpts{
			Name: "motoblu_model_ready",
			Help: "1 when the price model is trained and serving",
		}),

		ModelTrees: factory.NewGauge(prometheus.GaugeOpts{
			Name: "motoblu_model_trees",
			Help: "Number of trees in the trained ensemble",
		}),

		VocabularySize: factory.NewGauge(prometheus.GaugeOpts{
			Name: "motoblu_model_vocabulary_size",
			Help: "Number of colors seen during training",
		}),

		PredictSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "motoblu_predict_seconds",
			Help:    "Time spent answering a price prediction",
			Buckets: []float64{.00005, .0001, .00025, .0005, .001, .0025, .005, .01, .025, .05, .1},
		}),

		PredictionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "motoblu_predictions_total",
			Help: "Total number of predictions by outcome",
		}, []string{"outcome"}),

		FloorClampedTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "motoblu_price_floor_clamped_total",
			Help: "Predictions raised to the price floor",
		}),

		UnknownColorTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "motoblu_unknown_color_total",
			Help: "Predictions for colors not seen during training",
		}),

		CacheRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "motoblu_cache_requests_total",
			Help: "Prediction cache lookups by result",
		}, []string{"result"}),

		ErrorsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "motoblu_errors_total",
			Help: "Total number of errors by component and reason",
		}, []string{"component", "reason"}),
	}
}

// RecordTrain records a completed training run and the resulting model shape.
func (m *Metrics) RecordTrain(seconds float64, trees, vocabulary int) {
	m.TrainSeconds.Observe(seconds)
	m.ModelTrees.Set(float64(trees))
	m.VocabularySize.Set(float64(vocabulary))
}

// SetReady sets the readiness gauge.
func (m *Metrics) SetReady(ready bool) {
	if ready {
		m.ModelReady.Set(1)
		return
	}
	m.ModelReady.Set(0)
}

// RecordPredict records one prediction.
func (m *Metrics) RecordPredict(seconds float64, outcome string) {
	m.PredictSeconds.Observe(seconds)
	m.PredictionsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RecordClamped() {
	m.FloorClampedTotal.Inc()
}

func (m *Metrics) RecordUnknownColor() {
	m.UnknownColorTotal.Inc()
}

func (m *Metrics) RecordCache(result string) {
	m.CacheRequestsTotal.WithLabelValues(result).Inc()
}

// RecordError increments the error counter.
func (m *Metrics) RecordError(component, reason string) {
	m.ErrorsTotal.WithLabelValues(component, reason).Inc()
}
