package vmem

import (
	"bytes"
	"log"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/vmemsim/mem"
	"github.com/sarchlab/vmemsim/mem/vm"
	"github.com/sarchlab/vmemsim/sim"
	"go.uber.org/mock/gomock"
)

var _ = Describe("Builder", func() {
	var (
		mockCtrl *gomock.Controller
		memCtrl  *MockMemoryController
		buf      *bytes.Buffer
		builder  Builder
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		memCtrl = NewMockMemoryController(mockCtrl)
		memCtrl.EXPECT().Size().Return(1 * mem.MB).AnyTimes()

		buf = new(bytes.Buffer)
		builder = MakeBuilder().
			WithMemoryController(memCtrl).
			WithLevels(3).
			WithLogger(log.New(buf, "", 0))
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should derive the virtual address width", func() {
		t, err := builder.Build("VMem")

		Expect(err).NotTo(HaveOccurred())
		Expect(t.Name()).To(Equal("VMem"))
		Expect(t.VirtualAddressBits()).To(Equal(uint64(39)))
		Expect(t.Levels()).To(Equal(3))
		Expect(t.MinorFaultPenalty()).To(Equal(uint64(200)))
		Expect(t.Allocator().NumFrames()).To(Equal(uint64(256)))
		Expect(t.AvailableFrames()).To(Equal(uint64(256)))
	})

	It("should warn about aliasing", func() {
		_, err := builder.Build("VMem")

		Expect(err).NotTo(HaveOccurred())
		Expect(buf.String()).To(ContainSubstring("will be aliased"))
		Expect(buf.String()).NotTo(ContainSubstring("bits of addressing"))
	})

	It("should warn about a virtual space wider than 64 bits", func() {
		t, err := builder.WithLevels(6).Build("VMem")

		Expect(err).NotTo(HaveOccurred())
		Expect(t.VirtualAddressBits()).To(Equal(uint64(66)))
		Expect(buf.String()).To(ContainSubstring("66 bits of addressing"))
	})

	It("should not warn when the physical memory is large enough", func() {
		memCtrl = NewMockMemoryController(mockCtrl)
		memCtrl.EXPECT().Size().Return(4 * mem.MB).AnyTimes()

		t, err := builder.
			WithMemoryController(memCtrl).
			WithLevels(1).
			Build("VMem")

		Expect(err).NotTo(HaveOccurred())
		Expect(t.VirtualAddressBits()).To(Equal(uint64(21)))
		Expect(buf.String()).To(BeEmpty())
	})

	DescribeTable("invalid configurations",
		func(modify func(b Builder) Builder) {
			t, err := modify(builder).Build("VMem")

			Expect(t).To(BeNil())
			Expect(err).To(MatchError(vm.ErrConfiguration))
		},
		Entry("page size not a power of two", func(b Builder) Builder {
			return b.WithPageSize(3000)
		}),
		Entry("page table page size not above the minimum", func(b Builder) Builder {
			return b.WithPageTablePageSize(1024)
		}),
		Entry("page table page size not a power of two", func(b Builder) Builder {
			return b.WithPageTablePageSize(3000)
		}),
		Entry("page table page larger than a page", func(b Builder) Builder {
			return b.WithPageTablePageSize(8192)
		}),
		Entry("PTE not a power of two", func(b Builder) Builder {
			return b.WithPTEBytes(6)
		}),
		Entry("PTE as large as a node", func(b Builder) Builder {
			return b.WithPTEBytes(4096)
		}),
		Entry("no level", func(b Builder) Builder {
			return b.WithLevels(0)
		}),
		Entry("no memory controller", func(b Builder) Builder {
			return b.WithMemoryController(nil)
		}),
		Entry("virtual space within the reserve", func(b Builder) Builder {
			return b.WithLevels(1).WithPageTablePageSize(2048)
		}),
		Entry("physical memory not a multiple of the page size",
			func(b Builder) Builder {
				return b.WithPageSize(1 * mem.MB * 2).
					WithPageTablePageSize(4096).
					WithLevels(1)
			}),
	)
})

var _ = Describe("EngineClock", func() {
	var (
		mockCtrl   *gomock.Controller
		timeTeller *MockTimeTeller
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		timeTeller = NewMockTimeTeller(mockCtrl)
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should count cycles of the engine time", func() {
		clock := NewEngineClock(timeTeller, 1e9, 4*mem.GB)
		timeTeller.EXPECT().CurrentTime().Return(sim.VTimeInSec(1e-6)).AnyTimes()

		Expect(clock.Size()).To(Equal(4 * mem.GB))
		Expect(clock.CurrentCycle()).To(Equal(uint64(1000)))
	})

	It("should drive a translator", func() {
		clock := NewEngineClock(timeTeller, 1e9, 1*mem.MB)
		timeTeller.EXPECT().CurrentTime().Return(sim.VTimeInSec(2e-9)).AnyTimes()

		var cycles []uint64
		t, err := MakeBuilder().
			WithMemoryController(clock).
			WithLevels(3).
			WithLogger(log.New(GinkgoWriter, "", 0)).
			Build("VMem")
		Expect(err).NotTo(HaveOccurred())
		t.AcceptHook(faultCollector(func(info vm.FaultInfo) {
			cycles = append(cycles, info.Cycle)
		}))

		_, _, err = t.Translate(0, 0x1000)

		Expect(err).NotTo(HaveOccurred())
		Expect(cycles).To(Equal([]uint64{2}))
	})
})
