package core

import "time"

// Clock tracks elapsed seconds since it was started. The offscreen driver
// does not use it; it accumulates frame time from each frame's dt.
type Clock struct {
	startTime time.Time
	elapsed   float64
}

func NewClock() *Clock {
	return &Clock{}
}

// Update recomputes Elapsed(). Has no effect on a clock that was never
// Start()ed.
func (c *Clock) Update() {
	if !c.startTime.IsZero() {
		c.elapsed = time.Since(c.startTime).Seconds()
	}
}

// Start (re)starts the clock, resetting elapsed time to zero.
func (c *Clock) Start() {
	c.startTime = time.Now()
	c.elapsed = 0
}

// Stop freezes the clock; Elapsed() keeps returning its last value.
func (c *Clock) Stop() {
	c.startTime = time.Time{}
}

func (c *Clock) Elapsed() float64 {
	return c.elapsed
}
