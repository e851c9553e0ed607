package core

import "time"

// Bounds for the simulation period, matching the speed slider range.
const (
	MinPeriod     = 50 * time.Millisecond
	MaxPeriod     = time.Second
	DefaultPeriod = 100 * time.Millisecond
)

// FixedStep decides when the host should request the next generation. It
// only measures time; it never touches the engine itself.
type FixedStep struct {
	step        time.Duration
	accumulator time.Duration
	last        time.Time
	running     bool

	now func() time.Time
}

// NewFixedStep constructs a stopped FixedStep controller with the given period.
func NewFixedStep(period time.Duration) *FixedStep {
	fs := &FixedStep{now: time.Now}
	fs.SetPeriod(period)
	return fs
}

// SetPeriod changes the interval between generations, clamped to
// [MinPeriod, MaxPeriod]. It is safe to call from the main loop.
func (f *FixedStep) SetPeriod(period time.Duration) {
	switch {
	case period <= 0:
		period = DefaultPeriod
	case period < MinPeriod:
		period = MinPeriod
	case period > MaxPeriod:
		period = MaxPeriod
	}
	f.step = period
}

// Period returns the current interval.
func (f *FixedStep) Period() time.Duration { return f.step }

// Running reports whether the timer is producing steps.
func (f *FixedStep) Running() bool { return f.running }

// Start resumes stepping. The first step fires one period after Start.
func (f *FixedStep) Start() {
	if f.running {
		return
	}
	f.running = true
	f.accumulator = 0
	f.last = f.now()
}

// Stop pauses stepping.
func (f *FixedStep) Stop() { f.running = false }

// Toggle flips between running and stopped and returns the new state.
func (f *FixedStep) Toggle() bool {
	if f.running {
		f.Stop()
	} else {
		f.Start()
	}
	return f.running
}

// ShouldStep reports whether the simulation should advance by one generation.
// At most one step is reported per call so a stalled frame never queues a burst.
func (f *FixedStep) ShouldStep() bool {
	if !f.running {
		return false
	}
	now := f.now()
	f.accumulator += now.Sub(f.last)
	f.last = now
	if f.accumulator < f.step {
		return false
	}
	f.accumulator -= f.step
	if f.accumulator > f.step {
		f.accumulator = f.step
	}
	return true
}
