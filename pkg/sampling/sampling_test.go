package sampling

import (
	"errors"
	"math"
	"testing"

	"github.com/tunekit/tunekit/pkg/tunable"
)

func TestCompute(t *testing.T) {
	tests := []struct {
		name      string
		dtApp     float64
		dtModel   float64
		wantOver  int
		wantUnder int
	}{
		{name: "model ten times faster", dtApp: 0.01, dtModel: 0.001, wantOver: 10, wantUnder: 1},
		{name: "model ten times slower", dtApp: 0.001, dtModel: 0.01, wantOver: 1, wantUnder: 10},
		{name: "same rate", dtApp: 0.001, dtModel: 0.001, wantOver: 1, wantUnder: 1},
		{name: "model twice as fast", dtApp: 0.001, dtModel: 0.0005, wantOver: 2, wantUnder: 1},
		{name: "decimal noise", dtApp: 0.1, dtModel: 0.1 / 3 * 3 / 4, wantOver: 4, wantUnder: 1},
		{name: "slow model", dtApp: 0.001, dtModel: 0.25, wantOver: 1, wantUnder: 250},
		{name: "60 Hz host, 600 Hz model", dtApp: 1.0 / 60, dtModel: 1.0 / 600, wantOver: 10, wantUnder: 1},
		{name: "model three times faster", dtApp: 0.001, dtModel: 0.001 / 3, wantOver: 3, wantUnder: 1},
		{name: "model three times slower", dtApp: 1.0 / 3000, dtModel: 0.001, wantOver: 1, wantUnder: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Compute(tt.dtApp, tt.dtModel)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if s.OverSampFac != tt.wantOver || s.UnderSampFac != tt.wantUnder {
				t.Errorf("expected %d:%d, got %d:%d", tt.wantOver, tt.wantUnder, s.OverSampFac, s.UnderSampFac)
			}
			if s.UnderSampCount != 0 {
				t.Errorf("expected counter 0, got %d", s.UnderSampCount)
			}
			if got := s.ModelStep(tt.dtApp); math.Abs(got-tt.dtModel) > 1e-12 {
				t.Errorf("expected model step %g, got %g", tt.dtModel, got)
			}
		})
	}
}

func TestCompute_Incommensurate(t *testing.T) {
	for _, tc := range [][2]float64{
		{0.001, 0.0015},
		{0.003, 0.002},
		{0.01, 0.007},
		{1, 1e-12},
	} {
		_, err := Compute(tc[0], tc[1])
		if !errors.Is(err, tunable.ErrIncommensurateRates) {
			t.Errorf("app=%g model=%g: expected incommensurate_rates, got %v", tc[0], tc[1], err)
		}
	}
}

func TestCompute_InvalidSteps(t *testing.T) {
	for _, tc := range [][2]float64{
		{0, 0.001},
		{0.001, -0.001},
		{math.NaN(), 0.001},
		{0.001, math.Inf(1)},
	} {
		_, err := Compute(tc[0], tc[1])
		if !errors.Is(err, tunable.ErrInvalidArgument) {
			t.Errorf("app=%g model=%g: expected invalid_argument, got %v", tc[0], tc[1], err)
		}
	}
}

func TestInit_ResetsCounter(t *testing.T) {
	s := Sampling{OverSampFac: 7, UnderSampFac: 7, UnderSampCount: 3}
	if err := s.Init(0.001, 0.004); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s != (Sampling{OverSampFac: 1, UnderSampFac: 4}) {
		t.Errorf("unexpected result %+v", s)
	}
}

func TestStep_OverSampling(t *testing.T) {
	s, _ := Compute(0.01, 0.001)
	for i := 0; i < 5; i++ {
		if n := s.Step(); n != 10 {
			t.Fatalf("call %d: expected 10 model steps, got %d", i, n)
		}
	}
}

func TestStep_UnderSampling(t *testing.T) {
	s, _ := Compute(0.001, 0.003)

	var got []int
	for i := 0; i < 7; i++ {
		got = append(got, s.Step())
	}
	want := []int{1, 0, 0, 1, 0, 0, 1}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}

	s.Reset()
	if s.Step() != 1 {
		t.Error("expected the first step after Reset to run the model")
	}
}
