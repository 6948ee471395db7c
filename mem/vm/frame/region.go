package frame

import (
	"github.com/google/btree"
	"github.com/sarchlab/vmemsim/mem/vm"
)

// A Region is a run of contiguous frames that are accounted as one unit
// because they were coalesced.
type Region struct {
	StartFrame      vm.Frame
	FrameCount      uint64
	VirtualPage     uint64
	LastAccessCycle uint64
	Pinned          bool
}

// EndFrame returns the last frame of the region.
func (r Region) EndFrame() vm.Frame {
	return r.StartFrame + vm.Frame(r.FrameCount) - 1
}

// NextVirtualPage returns the virtual page that the region can absorb next.
func (r Region) NextVirtualPage() uint64 {
	return r.VirtualPage + r.FrameCount
}

// Contains checks if the frame belongs to the region.
func (r Region) Contains(f vm.Frame) bool {
	return f >= r.StartFrame && f <= r.EndFrame()
}

// regionItem orders regions by start frame.
type regionItem struct {
	start  vm.Frame
	region *Region
}

func (i regionItem) Less(than btree.Item) bool {
	return i.start < than.(regionItem).start
}

// adjacencyItem orders regions by the virtual page they can absorb, so that a
// request for a page finds its merge candidates with one range scan.
type adjacencyItem struct {
	pinned   bool
	nextPage uint64
	start    vm.Frame
	region   *Region
}

func (i adjacencyItem) Less(than btree.Item) bool {
	o := than.(adjacencyItem)

	if i.pinned != o.pinned {
		return !i.pinned
	}

	if i.nextPage != o.nextPage {
		return i.nextPage < o.nextPage
	}

	return i.start < o.start
}

func adjacencyOf(r *Region) adjacencyItem {
	return adjacencyItem{
		pinned:   r.Pinned,
		nextPage: r.NextVirtualPage(),
		start:    r.StartFrame,
		region:   r,
	}
}
