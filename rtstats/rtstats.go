// Package rtstats holds the runtime's in-memory counters: how many times a
// suspended computation was promoted, how many steals succeeded, how many
// vertices ran, and how much fuel was spent. It stops at counters: there is
// no file-format reporting, and the one-line pview summary is printed by
// runtime.Launch from a Snapshot.
package rtstats

import "sync/atomic"

// Counters is a fixed set of lock-free counters, safe for concurrent use
// from every worker goroutine.
type Counters struct {
	promotions  atomic.Int64
	steals      atomic.Int64
	verticesRun atomic.Int64
	fuelSpent   atomic.Int64
}

// Default is the process-wide counters instance used by the package-level
// helper functions below.
var Default = &Counters{}

func (c *Counters) OnPromotion() { c.promotions.Add(1) }
func (c *Counters) OnSteal()     { c.steals.Add(1) }

func (c *Counters) OnVertexRun(fuelConsumed int) {
	c.verticesRun.Add(1)
	c.fuelSpent.Add(int64(fuelConsumed))
}

func (c *Counters) Promotions() int64  { return c.promotions.Load() }
func (c *Counters) Steals() int64      { return c.steals.Load() }
func (c *Counters) VerticesRun() int64 { return c.verticesRun.Load() }
func (c *Counters) FuelSpent() int64   { return c.fuelSpent.Load() }

// Snapshot is a point-in-time copy of a Counters, for reporting.
type Snapshot struct {
	Promotions  int64
	Steals      int64
	VerticesRun int64
	FuelSpent   int64
}

func (c *Counters) Snapshot() Snapshot {
	return Snapshot{
		Promotions:  c.Promotions(),
		Steals:      c.Steals(),
		VerticesRun: c.VerticesRun(),
		FuelSpent:   c.FuelSpent(),
	}
}

func OnPromotion() { Default.OnPromotion() }
func OnSteal()     { Default.OnSteal() }

func OnVertexRun(fuelConsumed int) { Default.OnVertexRun(fuelConsumed) }
