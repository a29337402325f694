package servo

import "github.com/pkg/errors"

// lowPassFilter is a single-pole IIR filter over one joint position.
// The feedback coefficient a = (coef-1)/(coef+1) maps coef=1 to a
// pass-through and larger coefficients to heavier smoothing.
type lowPassFilter struct {
	a float64
	y float64
}

func newLowPassFilter(coef float64) (*lowPassFilter, error) {
	if coef < 1 {
		return nil, errors.Errorf("low-pass filter coefficient must be at least 1, got %f", coef)
	}
	return &lowPassFilter{a: (coef - 1) / (coef + 1)}, nil
}

// Filter advances the filter with sample x and returns the new output.
func (f *lowPassFilter) Filter(x float64) float64 {
	f.y = (1-f.a)*x + f.a*f.y
	return f.y
}

// Reset snaps the filter state to value, so the next sample starts from
// the current joint position instead of a stale one.
func (f *lowPassFilter) Reset(value float64) {
	f.y = value
}
