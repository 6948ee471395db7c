package sim

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"
)

var _ = Describe("ClockDomain", func() {
	var (
		mockCtrl   *gomock.Controller
		timeTeller *MockTimeTeller
		domain     ClockDomain
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		timeTeller = NewMockTimeTeller(mockCtrl)
		domain = ClockDomain{TimeTeller: timeTeller, Freq: 1 * GHz}
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should report the cycle of the current time", func() {
		timeTeller.EXPECT().CurrentTime().Return(VTimeInSec(0.000002))

		Expect(domain.CurrentCycle()).To(Equal(uint64(2000)))
	})

	It("should follow the time teller", func() {
		gomock.InOrder(
			timeTeller.EXPECT().CurrentTime().Return(VTimeInSec(0)),
			timeTeller.EXPECT().CurrentTime().Return(VTimeInSec(5e-9)),
		)

		Expect(domain.CurrentCycle()).To(Equal(uint64(0)))
		Expect(domain.CurrentCycle()).To(Equal(uint64(5)))
	})
})
