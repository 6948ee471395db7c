package sim

import (
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Freq", func() {
	It("should convert time to cycles", func() {
		f := 1 * GHz
		Expect(f.Cycle(0.000001)).To(Equal(uint64(1000)))
		Expect(f.Cycle(0)).To(Equal(uint64(0)))
	})

	It("should round to the nearest cycle", func() {
		f := 1 * GHz
		Expect(f.Cycle(0.0000000104)).To(Equal(uint64(10)))
		Expect(f.Cycle(0.0000000106)).To(Equal(uint64(11)))
	})

	It("should scale with the unit", func() {
		Expect((2 * KHz).Cycle(1.5)).To(Equal(uint64(3000)))
		Expect((3 * MHz).Cycle(0.001)).To(Equal(uint64(3000)))
	})

	It("should panic on invalid time", func() {
		f := 1 * GHz
		Expect(func() { f.Cycle(-1) }).To(Panic())
		Expect(func() { f.Cycle(VTimeInSec(math.NaN())) }).To(Panic())
	})

	It("should panic on zero frequency", func() {
		var f Freq
		Expect(func() { f.Cycle(1) }).To(Panic())
	})
})
