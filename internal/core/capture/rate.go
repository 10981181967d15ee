package capture

import "time"

const (
	activityDecay     = 0.9
	keyboardIncrement = 0.3
	mouseIncrement    = 0.1
)

// RateConfig bounds the adaptive sampling interval
type RateConfig struct {
	MinInterval time.Duration // interval at full activity
	MaxInterval time.Duration // interval at idle
}

// RateController maps observed input activity to a sampling interval.
// It only shapes the cadence of evaluation; capture decisions stay with
// the ChangeDetector.
type RateController struct {
	cfg   RateConfig
	level float64 // exponentially decayed activity in [0,1]
}

// NewRateController creates a controller starting at idle
func NewRateController(cfg RateConfig) *RateController {
	return &RateController{cfg: cfg}
}

// Update folds one tick of activity into the decayed level
func (r *RateController) Update(keyboardActive, mouseActive bool) {
	increment := 0.0
	if keyboardActive {
		increment += keyboardIncrement
	}
	if mouseActive {
		increment += mouseIncrement
	}

	r.level = r.level*activityDecay + increment
	if r.level > 1 {
		r.level = 1
	}
}

// Interval returns the current sampling interval. Higher activity shortens
// it linearly from MaxInterval down to MinInterval.
func (r *RateController) Interval() time.Duration {
	spread := r.cfg.MaxInterval - r.cfg.MinInterval
	return r.cfg.MaxInterval - time.Duration(r.level*float64(spread))
}

// Level exposes the current activity level for status reporting
func (r *RateController) Level() float64 {
	return r.level
}
