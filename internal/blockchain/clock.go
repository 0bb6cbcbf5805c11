package blockchain

import (
	"sync"
	"time"
)

// Clock supplies block timestamps in unix seconds.
type Clock interface {
	Unix() int64
}

type SystemClock struct{}

func (SystemClock) Unix() int64 { return time.Now().UTC().Unix() }

// SimulatedClock advances by step on every read.
type SimulatedClock struct {
	mu   sync.Mutex
	now  int64
	step int64
}

func NewSimulatedClock(start, step int64) *SimulatedClock {
	return &SimulatedClock{now: start, step: step}
}

func (c *SimulatedClock) Unix() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now
	c.now += c.step
	return now
}
