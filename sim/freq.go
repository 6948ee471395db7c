package sim

import (
	"log"
	"math"
)

// Freq defines the type of frequency
type Freq float64

// Defines the unit of frequency
const (
	Hz  Freq = 1
	KHz Freq = 1e3
	MHz Freq = 1e6
	GHz Freq = 1e9
)

// Cycle converts a time to the number of cycles passed since time 0, rounded
// to the nearest cycle.
func (f Freq) Cycle(time VTimeInSec) uint64 {
	if f <= 0 {
		log.Panicf("invalid frequency %f", f)
	}

	if math.IsNaN(float64(time)) || time < 0 {
		log.Panicf("invalid time %f", time)
	}

	return uint64(math.Round(float64(time) * float64(f)))
}
