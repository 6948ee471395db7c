package sim

// VTimeInSec defines the time in the simulated space in the unit of second
type VTimeInSec float64

// TimeTeller can be used to get the current time.
type TimeTeller interface {
	CurrentTime() VTimeInSec
}

// A CycleCounter reports the number of cycles elapsed in a clock domain.
type CycleCounter interface {
	CurrentCycle() uint64
}

// ClockDomain converts the time reported by a TimeTeller into cycles of a
// given frequency.
type ClockDomain struct {
	TimeTeller TimeTeller
	Freq       Freq
}

// CurrentCycle returns the number of cycles passed since time 0.
func (d ClockDomain) CurrentCycle() uint64 {
	return d.Freq.Cycle(d.TimeTeller.CurrentTime())
}
