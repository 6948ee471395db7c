package vmem

import "github.com/sarchlab/vmemsim/sim"

// MemoryController provides the physical memory size and the current cycle
// to the translator.
type MemoryController interface {
	sim.CycleCounter
	Size() uint64
}

// EngineClock turns an engine and a frequency into a MemoryController of a
// fixed capacity.
type EngineClock struct {
	sim.ClockDomain
	Capacity uint64
}

// NewEngineClock creates a new EngineClock.
func NewEngineClock(
	timeTeller sim.TimeTeller,
	freq sim.Freq,
	capacity uint64,
) *EngineClock {
	return &EngineClock{
		ClockDomain: sim.ClockDomain{TimeTeller: timeTeller, Freq: freq},
		Capacity:    capacity,
	}
}

// Size returns the capacity of the memory.
func (c *EngineClock) Size() uint64 {
	return c.Capacity
}
