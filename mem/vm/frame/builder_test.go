package frame

import (
	"bytes"
	"log"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/vmemsim/mem"
	"github.com/sarchlab/vmemsim/mem/vm"
)

var _ = Describe("Builder", func() {
	It("should create all frames free", func() {
		a, err := MakeBuilder().
			WithCapacity(1 * mem.MB).
			WithFrameSize(4 * mem.KB).
			Build()

		Expect(err).NotTo(HaveOccurred())
		Expect(a.NumFrames()).To(Equal(uint64(256)))
		Expect(a.NumFree()).To(Equal(uint64(256)))
		Expect(a.NumRegions()).To(Equal(0))
		Expect(a.FrameSize()).To(Equal(uint64(4096)))
		Expect(a.CoolDown()).To(Equal(uint64(DefaultCoolDown)))
		Expect(a.CheckPartition()).To(Succeed())
	})

	DescribeTable("invalid configurations",
		func(capacity, frameSize uint64) {
			a, err := MakeBuilder().
				WithCapacity(capacity).
				WithFrameSize(frameSize).
				Build()

			Expect(a).To(BeNil())
			Expect(err).To(MatchError(vm.ErrConfiguration))
		},
		Entry("frame size not a power of two", 1*mem.MB, uint64(3000)),
		Entry("zero frame size", 1*mem.MB, uint64(0)),
		Entry("capacity not a multiple", 1*mem.MB+512, 4*mem.KB),
		Entry("zero capacity", uint64(0), 4*mem.KB),
	)

	It("should report shuffling", func() {
		buf := new(bytes.Buffer)

		_, err := MakeBuilder().
			WithCapacity(64 * mem.KB).
			WithShuffleSeed(7).
			WithLogger(log.New(buf, "", 0)).
			Build()

		Expect(err).NotTo(HaveOccurred())
		Expect(buf.String()).To(ContainSubstring("Shuffled 16 physical frames"))
	})
})
