package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/HatiCode/motoblu/pkg/prediction"
)

var _ prediction.Recorder = (*Metrics)(nil)

func gather(t *testing.T, reg *prometheus.Registry) map[string]*dto.MetricFamily {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	out := make(map[string]*dto.MetricFamily, len(families))
	for _, f := range families {
		out[f.GetName()] = f
	}
	return out
}

func TestMetrics_Recorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.RecordTrain(0.25, 42, 7)
	m.SetReady(true)
	m.RecordPredict(0.001, prediction.OutcomeOK)
	m.RecordPredict(0.001, prediction.OutcomeOK)
	m.RecordClamped()
	m.RecordUnknownColor()
	m.RecordCache(prediction.CacheHit)
	m.RecordError("cache", "get_failed")

	fams := gather(t, reg)

	gauges := map[string]float64{
		"motoblu_model_ready":           1,
		"motoblu_model_trees":           42,
		"motoblu_model_vocabulary_size": 7,
	}
	for name, want := range gauges {
		f, ok := fams[name]
		if !ok {
			t.Errorf("%s not registered", name)
			continue
		}
		if got := f.GetMetric()[0].GetGauge().GetValue(); got != want {
			t.Errorf("%s = %v, want %v", name, got, want)
		}
	}

	if got := fams["motoblu_predictions_total"].GetMetric()[0].GetCounter().GetValue(); got != 2 {
		t.Errorf("motoblu_predictions_total = %v, want 2", got)
	}
	if got := fams["motoblu_price_floor_clamped_total"].GetMetric()[0].GetCounter().GetValue(); got != 1 {
		t.Errorf("motoblu_price_floor_clamped_total = %v, want 1", got)
	}
	if got := fams["motoblu_model_train_seconds"].GetMetric()[0].GetHistogram().GetSampleCount(); got != 1 {
		t.Errorf("train histogram count = %d, want 1", got)
	}

	for _, name := range []string{
		"motoblu_predict_seconds",
		"motoblu_unknown_color_total",
		"motoblu_cache_requests_total",
		"motoblu_errors_total",
	} {
		if _, ok := fams[name]; !ok {
			t.Errorf("%s not registered", name)
		}
	}

	m.SetReady(false)
	if got := gather(t, reg)["motoblu_model_ready"].GetMetric()[0].GetGauge().GetValue(); got != 0 {
		t.Errorf("motoblu_model_ready after SetReady(false) = %v, want 0", got)
	}
}

func TestNew_SeparateRegistries(t *testing.T) {
	New(prometheus.NewRegistry())
	New(prometheus.NewRegistry())
}
