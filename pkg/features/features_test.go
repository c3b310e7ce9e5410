package features

import (
	"errors"
	"math"
	"testing"
)

func sampleExamples() []TrainingExample {
	return []TrainingExample{
		{Color: "Vermelha", DaysInUse: 15, TargetPrice: 28000},
		{Color: "Preta", DaysInUse: 50, TargetPrice: 27500},
		{Color: "Azul", DaysInUse: 180, TargetPrice: 24000},
		{Color: "Vermelha", DaysInUse: 730, TargetPrice: 14000},
		{Color: "Azul", DaysInUse: 1000, TargetPrice: 12500},
	}
}

func TestFitEncoding_Empty(t *testing.T) {
	for _, examples := range [][]TrainingExample{nil, {}} {
		params, err := FitEncoding(examples)
		if err == nil {
			t.Fatal("expected error for empty training set, got nil")
		}
		if params != nil {
			t.Errorf("params = %v, want nil", params)
		}

		var cfgErr *ConfigurationError
		if !errors.As(err, &cfgErr) {
			t.Errorf("error %v is not a *ConfigurationError", err)
		}
		if !errors.Is(err, ErrEmptyTrainingSet) {
			t.Errorf("error %v does not wrap ErrEmptyTrainingSet", err)
		}
	}
}

func TestFitEncoding_NonFiniteDays(t *testing.T) {
	for _, days := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		_, err := FitEncoding([]TrainingExample{{Color: "Azul", DaysInUse: days}})
		var cfgErr *ConfigurationError
		if !errors.As(err, &cfgErr) {
			t.Errorf("days=%v: error = %v, want *ConfigurationError", days, err)
		}
	}
}

func TestFitEncoding_Vocabulary(t *testing.T) {
	params, err := FitEncoding(sampleExamples())
	if err != nil {
		t.Fatalf("FitEncoding() error = %v", err)
	}

	want := []string{"Vermelha", "Preta", "Azul"}
	got := params.Colors()
	if len(got) != len(want) {
		t.Fatalf("Colors() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Colors()[%d] = %q, want %q", i, got[i], want[i])
		}
		if idx, ok := params.ColorIndex(want[i]); !ok || idx != i {
			t.Errorf("ColorIndex(%q) = %d, %v; want %d, true", want[i], idx, ok, i)
		}
	}

	if params.Width() != 4 {
		t.Errorf("Width() = %d, want 4", params.Width())
	}
	if params.MinDays() != 15 || params.MaxDays() != 1000 {
		t.Errorf("bounds = [%v, %v], want [15, 1000]", params.MinDays(), params.MaxDays())
	}

	// Mutating the returned slice must not leak into the params.
	got[0] = "Roxa"
	if params.Colors()[0] != "Vermelha" {
		t.Error("Colors() returned a slice aliasing internal state")
	}
}

func TestEncode(t *testing.T) {
	params, err := FitEncoding(sampleExamples())
	if err != nil {
		t.Fatalf("FitEncoding() error = %v", err)
	}

	tests := []struct {
		name  string
		color string
		days  float64
		want  Vector
	}{
		{"known color at min", "Vermelha", 15, Vector{1, 0, 0, 0}},
		{"known color at max", "Azul", 1000, Vector{0, 0, 1, 1}},
		{"known color midway", "Preta", 507.5, Vector{0, 1, 0, 0.5}},
		{"unknown color", "Ultravioleta", 15, Vector{0, 0, 0, 0}},
		{"empty color", "", 1000, Vector{0, 0, 0, 1}},
		{"negative days clamp to 0", "Preta", -300, Vector{0, 1, 0, 0}},
		{"days above max clamp to 1", "Preta", 1e9, Vector{0, 1, 0, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := params.Encode(tt.color, tt.days)
			if len(got) != len(tt.want) {
				t.Fatalf("len = %d, want %d", len(got), len(tt.want))
			}
			for i := range tt.want {
				if math.Abs(got[i]-tt.want[i]) > 1e-12 {
					t.Errorf("Encode(%q, %v)[%d] = %v, want %v", tt.color, tt.days, i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestEncode_Deterministic(t *testing.T) {
	params, err := FitEncoding(sampleExamples())
	if err != nil {
		t.Fatalf("FitEncoding() error = %v", err)
	}

	a := params.EncodeInput(Input{Color: "Preta", DaysInUse: 333.3})
	b := params.EncodeInput(Input{Color: "Preta", DaysInUse: 333.3})
	for i := range a {
		if math.Float64bits(a[i]) != math.Float64bits(b[i]) {
			t.Errorf("component %d differs: %v vs %v", i, a[i], b[i])
		}
	}

	ex := params.EncodeExample(TrainingExample{Color: "Preta", DaysInUse: 333.3, TargetPrice: 1})
	for i := range a {
		if math.Float64bits(a[i]) != math.Float64bits(ex[i]) {
			t.Errorf("training and inference encodings differ at %d", i)
		}
	}
}

func TestNormalize_Bounds(t *testing.T) {
	params, err := FitEncoding(sampleExamples())
	if err != nil {
		t.Fatalf("FitEncoding() error = %v", err)
	}

	for _, days := range []float64{-1e12, -1, 0, 15, 100, 999.99, 1000, 1001, 1e12, math.Inf(1), math.Inf(-1), math.NaN()} {
		v := params.Normalize(days)
		if v < 0 || v > 1 || math.IsNaN(v) {
			t.Errorf("Normalize(%v) = %v, want value in [0,1]", days, v)
		}
	}
}

func TestNormalize_ConstantDays(t *testing.T) {
	params, err := FitEncoding([]TrainingExample{
		{Color: "Azul", DaysInUse: 100, TargetPrice: 1},
		{Color: "Preta", DaysInUse: 100, TargetPrice: 2},
	})
	if err != nil {
		t.Fatalf("FitEncoding() error = %v", err)
	}

	for _, days := range []float64{0, 100, 5000} {
		if got := params.Normalize(days); got != 0.5 {
			t.Errorf("Normalize(%v) = %v, want 0.5", days, got)
		}
	}
}

func TestFingerprint(t *testing.T) {
	a, _ := FitEncoding(sampleExamples())
	b, _ := FitEncoding(sampleExamples())
	if a.Fingerprint() != b.Fingerprint() {
		t.Errorf("same data produced different fingerprints: %s vs %s", a.Fingerprint(), b.Fingerprint())
	}

	c, _ := FitEncoding(append(sampleExamples(), TrainingExample{Color: "Cinza", DaysInUse: 250}))
	if a.Fingerprint() == c.Fingerprint() {
		t.Error("different vocabularies share a fingerprint")
	}
}
