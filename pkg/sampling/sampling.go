// Package sampling computes the integer step-rate relationship between a
// host scheduler (the application) and a model running inside it.
package sampling

import (
	"fmt"
	"math"

	"github.com/tunekit/tunekit/pkg/tunable"
)

const (
	// Resolution is the fixed-point grid, in seconds, on which the ratio of
	// incommensurate step sizes is reported.
	Resolution = 1e-9

	// Tolerance is the relative tolerance within which the integer factor
	// must reproduce the slower step size.
	Tolerance = 1e-6
)

// Sampling describes how many model steps run per application step, or how
// many application steps pass per model step.
//
// At most one of OverSampFac and UnderSampFac is larger than 1.
// UnderSampCount is the running counter used while under-sampling.
type Sampling struct {
	OverSampFac    int `json:"over_samp_fac"`
	UnderSampFac   int `json:"under_samp_fac"`
	UnderSampCount int `json:"under_samp_count"`
}

// Compute returns the sampling factors for an application step dtApp and a
// model step dtModel, both in seconds.
//
// The model must either run an integer number of times per application
// step or once every integer number of application steps, within a
// relative Tolerance. Any other ratio fails with an incommensurate_rates
// error.
func Compute(dtApp, dtModel float64) (Sampling, error) {
	var s Sampling
	if err := s.Init(dtApp, dtModel); err != nil {
		return Sampling{}, err
	}
	return s, nil
}

// Init fills s with the sampling factors for dtApp and dtModel and resets
// the counter. On error the contents of s are unspecified and must not be
// used.
func (s *Sampling) Init(dtApp, dtModel float64) error {
	if !validStep(dtApp) || !validStep(dtModel) {
		return tunable.Errorf(tunable.ClassInvalidArgument,
			"step sizes must be positive and finite (app=%g, model=%g)", dtApp, dtModel)
	}

	over, under, ok := reduce(dtApp, dtModel)
	if !ok {
		return tunable.Errorf(tunable.ClassIncommensurateRates,
			"model step %g is not an integer multiple or fraction of application step %g (%s)",
			dtModel, dtApp, fixedRatio(dtApp, dtModel))
	}
	if over > math.MaxInt32 || under > math.MaxInt32 {
		return tunable.Errorf(tunable.ClassIncommensurateRates,
			"sampling ratio %d:%d out of range", over, under)
	}

	s.OverSampFac = int(over)
	s.UnderSampFac = int(under)
	s.UnderSampCount = 0
	return nil
}

// Step advances the schedule by one application step and returns the number
// of model steps to execute in it: OverSampFac when over-sampling, otherwise
// 1 on every UnderSampFac-th call and 0 in between. The first call always
// runs the model.
func (s *Sampling) Step() int {
	if s.UnderSampFac <= 1 {
		return s.OverSampFac
	}
	run := s.UnderSampCount == 0
	s.UnderSampCount++
	if s.UnderSampCount >= s.UnderSampFac {
		s.UnderSampCount = 0
	}
	if run {
		return 1
	}
	return 0
}

// Reset restarts the under-sampling counter.
func (s *Sampling) Reset() {
	s.UnderSampCount = 0
}

// ModelStep returns the model's step size given the application's, i.e.
// dtApp * UnderSampFac / OverSampFac.
func (s Sampling) ModelStep(dtApp float64) float64 {
	if s.OverSampFac == 0 {
		return 0
	}
	return dtApp * float64(s.UnderSampFac) / float64(s.OverSampFac)
}

func validStep(dt float64) bool {
	return dt > 0 && !math.IsInf(dt, 0) && !math.IsNaN(dt)
}

// reduce finds the integer factor relating the two step sizes. The faster
// side's step times the factor must reproduce the slower side's step within
// Tolerance.
func reduce(dtApp, dtModel float64) (over, under int64, ok bool) {
	r := dtApp / dtModel
	if r >= 1 {
		n := math.Round(r)
		if n > math.MaxInt64/2 || math.Abs(n*dtModel-dtApp) > Tolerance*dtApp {
			return 0, 0, false
		}
		return int64(n), 1, true
	}
	n := math.Round(1 / r)
	if n > math.MaxInt64/2 || math.Abs(n*dtApp-dtModel) > Tolerance*dtModel {
		return 0, 0, false
	}
	return 1, int64(n), true
}

// fixedRatio describes the reduced ratio of the two step sizes on a
// Resolution grid, for error messages.
func fixedRatio(dtApp, dtModel float64) string {
	app, ok1 := toFixed(dtApp)
	model, ok2 := toFixed(dtModel)
	if !ok1 || !ok2 {
		return fmt.Sprintf("not representable at %gs resolution", Resolution)
	}
	g := gcd(app, model)
	return fmt.Sprintf("ratio %d:%d", app/g, model/g)
}

// toFixed scales dt to an integer count of Resolution units and reports
// whether that count reproduces dt within Tolerance.
func toFixed(dt float64) (int64, bool) {
	scaled := math.Round(dt / Resolution)
	if scaled < 1 || scaled > math.MaxInt64/2 {
		return 0, false
	}
	n := int64(scaled)
	back := float64(n) * Resolution
	return n, math.Abs(back-dt) <= Tolerance*dt
}

func gcd(a, b int64) int64 {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}
