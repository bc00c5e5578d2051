// Package clock keeps wall time and pausable simulation time.
//
// Simulation time is a banked total plus the wall time elapsed since the
// last resume. While paused it is exactly the bank. The speed factor is
// stored here but applied by bodies when they integrate, never to the
// simulation time itself.
package clock

import (
	"fmt"
	"sync"
	"time"

	"github.com/san-kum/livetrain/internal/dynamo"
)

type Option func(*Clock)

// WithNow replaces the wall time source.
func WithNow(now func() time.Time) Option {
	return func(c *Clock) {
		c.now = now
	}
}

type Clock struct {
	mu       sync.Mutex
	now      func() time.Time
	epoch    time.Time
	simEpoch float64
	bank     float64
	running  bool
	speed    float64
}

func New(opts ...Option) *Clock {
	c := &Clock{now: time.Now, speed: 1.0}
	for _, opt := range opts {
		opt(c)
	}
	c.epoch = c.now()
	return c
}

// Timestamp returns seconds since the clock was created.
func (c *Clock) Timestamp() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.timestamp()
}

func (c *Clock) timestamp() float64 {
	return c.now().Sub(c.epoch).Seconds()
}

func (c *Clock) SimulationTime() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return c.bank
	}
	return c.bank + (c.timestamp() - c.simEpoch)
}

func (c *Clock) Resume() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return
	}
	c.simEpoch = c.timestamp()
	c.running = true
}

func (c *Clock) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return
	}
	c.bank += c.timestamp() - c.simEpoch
	c.running = false
}

func (c *Clock) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// Reset zeroes the bank and restarts the running interval from now.
func (c *Clock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bank = 0
	c.simEpoch = c.timestamp()
}

// Bank adds dt seconds of simulation time.
func (c *Clock) Bank(dt float64) {
	c.mu.Lock()
	c.bank += dt
	c.mu.Unlock()
}

func (c *Clock) Speed() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.speed
}

func (c *Clock) SetSpeed(f float64) error {
	if f < 0 || f != f {
		return fmt.Errorf("speed %v: %w", f, dynamo.ErrParameterBounds)
	}
	c.mu.Lock()
	c.speed = f
	c.mu.Unlock()
	return nil
}
