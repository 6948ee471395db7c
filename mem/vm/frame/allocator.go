// Package frame provides the allocator that owns the physical frames of a
// simulated memory.
//
// Frames are handed out one at a time. A frame requested for the virtual page
// that follows a region's pages is carved from right after the region when
// possible, so that contiguous virtual pages land on contiguous frames. Such
// frames are coalesced into the region. Regions that have not been accessed
// for a cool-down period can be reclaimed, returning all of their frames.
package frame

import (
	"fmt"

	"github.com/google/btree"
	"github.com/sarchlab/vmemsim/mem/vm"
)

// Allocator tracks which frames are free and which regions own the others.
// It is not safe for concurrent use.
type Allocator struct {
	frameSize    uint64
	numFrames    uint64
	coolDown     uint64
	free         *freeSet
	byStart      *btree.BTree
	byNextPage   *btree.BTree
	numAllocated uint64
}

// FrameSize returns the number of bytes in a frame.
func (a *Allocator) FrameSize() uint64 {
	return a.frameSize
}

// NumFrames returns the number of frames in the physical memory.
func (a *Allocator) NumFrames() uint64 {
	return a.numFrames
}

// NumFree returns the number of frames that are not allocated.
func (a *Allocator) NumFree() uint64 {
	return uint64(a.free.len())
}

// NumRegions returns the number of allocated regions.
func (a *Allocator) NumRegions() int {
	return a.byStart.Len()
}

// CoolDown returns the number of cycles a region must stay untouched before
// it can be reclaimed.
func (a *Allocator) CoolDown() uint64 {
	return a.coolDown
}

// IsFree checks if a frame is free.
func (a *Allocator) IsFree(f vm.Frame) bool {
	return a.free.contains(f)
}

// Allocate returns a frame for the virtual page. The frame extends an
// unpinned region if the region ends right before a free frame and its next
// virtual page is the requested one.
func (a *Allocator) Allocate(cycle, virtualPage uint64) (vm.Frame, error) {
	return a.allocate(cycle, virtualPage, false)
}

// AllocatePinned is the same as Allocate, except that the frame belongs to a
// pinned region. Pinned regions hold page-table nodes and are never
// reclaimed.
func (a *Allocator) AllocatePinned(
	cycle, virtualPage uint64,
) (vm.Frame, error) {
	return a.allocate(cycle, virtualPage, true)
}

func (a *Allocator) allocate(
	cycle, virtualPage uint64,
	pinned bool,
) (vm.Frame, error) {
	if a.free.len() == 0 {
		return 0, fmt.Errorf("no frame left for virtual page 0x%x: %w",
			virtualPage, vm.ErrPhysicalMemoryExhausted)
	}

	region := a.findMergeable(virtualPage, pinned)
	if region != nil {
		return a.extend(region, cycle), nil
	}

	f, _ := a.free.popFirst()
	region = &Region{
		StartFrame:      f,
		FrameCount:      1,
		VirtualPage:     virtualPage,
		LastAccessCycle: cycle,
		Pinned:          pinned,
	}
	a.byStart.ReplaceOrInsert(regionItem{start: f, region: region})
	a.byNextPage.ReplaceOrInsert(adjacencyOf(region))
	a.numAllocated++

	return f, nil
}

func (a *Allocator) findMergeable(virtualPage uint64, pinned bool) *Region {
	var found *Region

	pivot := adjacencyItem{pinned: pinned, nextPage: virtualPage}
	a.byNextPage.AscendGreaterOrEqual(pivot, func(i btree.Item) bool {
		item := i.(adjacencyItem)
		if item.pinned != pinned || item.nextPage != virtualPage {
			return false
		}

		if a.free.contains(item.region.EndFrame() + 1) {
			found = item.region
			return false
		}

		return true
	})

	return found
}

func (a *Allocator) extend(r *Region, cycle uint64) vm.Frame {
	f := r.EndFrame() + 1

	a.byNextPage.Delete(adjacencyOf(r))
	a.free.remove(f)
	r.FrameCount++
	r.LastAccessCycle = cycle
	a.byNextPage.ReplaceOrInsert(adjacencyOf(r))
	a.numAllocated++

	return f
}

// Touch marks the region that holds the frame as accessed at the given
// cycle. Free frames are ignored.
func (a *Allocator) Touch(cycle uint64, f vm.Frame) {
	r := a.regionOf(f)
	if r != nil && cycle > r.LastAccessCycle {
		r.LastAccessCycle = cycle
	}
}

// RegionOf returns a copy of the region that holds the frame.
func (a *Allocator) RegionOf(f vm.Frame) (Region, bool) {
	r := a.regionOf(f)
	if r == nil {
		return Region{}, false
	}

	return *r, true
}

func (a *Allocator) regionOf(f vm.Frame) *Region {
	var found *Region

	a.byStart.DescendLessOrEqual(regionItem{start: f}, func(i btree.Item) bool {
		r := i.(regionItem).region
		if r.Contains(f) {
			found = r
		}

		return false
	})

	return found
}

// Regions returns copies of all the regions, ordered by start frame.
func (a *Allocator) Regions() []Region {
	regions := make([]Region, 0, a.byStart.Len())
	a.byStart.Ascend(func(i btree.Item) bool {
		regions = append(regions, *i.(regionItem).region)
		return true
	})

	return regions
}

// CanReclaim checks if the region that starts at the frame can be reclaimed
// at the given cycle.
func (a *Allocator) CanReclaim(cycle uint64, startFrame vm.Frame) bool {
	item := a.byStart.Get(regionItem{start: startFrame})
	if item == nil {
		return false
	}

	r := item.(regionItem).region
	if r.Pinned || cycle < r.LastAccessCycle {
		return false
	}

	return cycle-r.LastAccessCycle >= a.coolDown
}

// Reclaim returns the frames of the region that starts at the frame to the
// free set. Nothing changes and false is returned if the region does not
// exist, is pinned, or has been accessed within the cool-down period.
func (a *Allocator) Reclaim(cycle uint64, startFrame vm.Frame) bool {
	if !a.CanReclaim(cycle, startFrame) {
		return false
	}

	r := a.byStart.Get(regionItem{start: startFrame}).(regionItem).region
	a.byStart.Delete(regionItem{start: startFrame})
	a.byNextPage.Delete(adjacencyOf(r))

	for i := uint64(0); i < r.FrameCount; i++ {
		a.free.insert(r.StartFrame + vm.Frame(i))
	}
	a.numAllocated -= r.FrameCount

	return true
}

// ReclaimIdle reclaims every region that can be reclaimed at the given cycle
// and returns copies of the regions reclaimed, ordered by start frame.
func (a *Allocator) ReclaimIdle(cycle uint64) []Region {
	var idle []Region

	a.byStart.Ascend(func(i btree.Item) bool {
		r := i.(regionItem).region
		if a.CanReclaim(cycle, r.StartFrame) {
			idle = append(idle, *r)
		}

		return true
	})

	for _, r := range idle {
		a.Reclaim(cycle, r.StartFrame)
	}

	return idle
}

// CheckPartition verifies that every frame is either free or owned by
// exactly one region.
func (a *Allocator) CheckPartition() error {
	owned := make([]bool, a.numFrames)
	numOwned := uint64(0)

	var err error
	a.byStart.Ascend(func(i btree.Item) bool {
		r := i.(regionItem).region
		if r.FrameCount == 0 || uint64(r.EndFrame()) >= a.numFrames {
			err = fmt.Errorf("region at frame %d has invalid size %d",
				r.StartFrame, r.FrameCount)
			return false
		}

		for f := r.StartFrame; f <= r.EndFrame(); f++ {
			if owned[f] {
				err = fmt.Errorf("frame %d is owned by two regions", f)
				return false
			}

			if a.free.contains(f) {
				err = fmt.Errorf("frame %d is both free and allocated", f)
				return false
			}

			owned[f] = true
			numOwned++
		}

		return true
	})
	if err != nil {
		return err
	}

	numFree := uint64(0)
	a.free.ascend(func(f vm.Frame) bool {
		if owned[f] {
			err = fmt.Errorf("frame %d is both free and allocated", f)
			return false
		}

		numFree++
		return true
	})
	if err != nil {
		return err
	}

	if numOwned != a.numAllocated {
		return fmt.Errorf("%d frames owned by regions, %d counted allocated",
			numOwned, a.numAllocated)
	}

	if numFree+numOwned != a.numFrames {
		return fmt.Errorf("%d free and %d allocated frames out of %d",
			numFree, numOwned, a.numFrames)
	}

	if a.byNextPage.Len() != a.byStart.Len() {
		return fmt.Errorf("region indexes disagree: %d vs %d",
			a.byNextPage.Len(), a.byStart.Len())
	}

	return nil
}
