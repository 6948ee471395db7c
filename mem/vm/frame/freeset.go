package frame

import (
	"github.com/google/btree"
	"github.com/sarchlab/vmemsim/mem/vm"
)

type freeItem struct {
	rank  uint64
	frame vm.Frame
}

func (i freeItem) Less(than btree.Item) bool {
	return i.rank < than.(freeItem).rank
}

// freeSet keeps the free frames ordered by rank. Without shuffling, the rank
// of a frame is its index.
type freeSet struct {
	tree  *btree.BTree
	isIn  []bool
	ranks []uint64
}

func newFreeSet(numFrames uint64, order []vm.Frame) *freeSet {
	s := &freeSet{
		tree: btree.New(32),
		isIn: make([]bool, numFrames),
	}

	if order != nil {
		s.ranks = make([]uint64, numFrames)
		for rank, f := range order {
			s.ranks[f] = uint64(rank)
		}
	}

	for f := uint64(0); f < numFrames; f++ {
		s.insert(vm.Frame(f))
	}

	return s
}

func (s *freeSet) rankOf(f vm.Frame) uint64 {
	if s.ranks == nil {
		return uint64(f)
	}

	return s.ranks[f]
}

func (s *freeSet) len() int {
	return s.tree.Len()
}

func (s *freeSet) contains(f vm.Frame) bool {
	return uint64(f) < uint64(len(s.isIn)) && s.isIn[f]
}

func (s *freeSet) insert(f vm.Frame) {
	if s.isIn[f] {
		panic("frame is already free")
	}

	s.tree.ReplaceOrInsert(freeItem{rank: s.rankOf(f), frame: f})
	s.isIn[f] = true
}

func (s *freeSet) remove(f vm.Frame) {
	if !s.isIn[f] {
		panic("frame is not free")
	}

	s.tree.Delete(freeItem{rank: s.rankOf(f), frame: f})
	s.isIn[f] = false
}

func (s *freeSet) popFirst() (vm.Frame, bool) {
	item := s.tree.DeleteMin()
	if item == nil {
		return 0, false
	}

	f := item.(freeItem).frame
	s.isIn[f] = false

	return f, true
}

func (s *freeSet) ascend(fn func(f vm.Frame) bool) {
	s.tree.Ascend(func(i btree.Item) bool {
		return fn(i.(freeItem).frame)
	})
}
