// Package vmem provides the translator that maps the virtual addresses issued
// by simulated cores to physical addresses.
//
// Data pages and page-table nodes are both created lazily. The first access
// to a page, or the first walk through a node, commits a frame from the
// frame allocator and is charged the minor fault penalty. Page-table nodes
// are packed into frames, several nodes per frame when the page-table page
// size is smaller than the page size.
package vmem

import (
	"fmt"
	"log"
	"sync"

	"github.com/sarchlab/vmemsim/mem"
	"github.com/sarchlab/vmemsim/mem/vm"
	"github.com/sarchlab/vmemsim/mem/vm/frame"
	"github.com/sarchlab/vmemsim/sim"
)

type nodeLocation struct {
	frame  vm.Frame
	offset uint64
}

// nodeCursor points at the space where the next page-table node is placed.
type nodeCursor struct {
	valid  bool
	frame  vm.Frame
	offset uint64
}

// Translator translates virtual addresses and locates page-table entries.
// All the methods are safe for concurrent use; calls are serialized. Fault
// hooks are invoked after the translator is unlocked and may query it.
type Translator struct {
	sim.HookableBase
	sync.Mutex

	name      string
	memCtrl   MemoryController
	allocator *frame.Allocator
	logger    *log.Logger

	log2PageSize      uint64
	pageSize          uint64
	pageTablePageSize uint64
	pteBytes          uint64
	levels            int
	fanoutBits        uint64
	vaBits            uint64
	minorFaultPenalty uint64

	translations map[vm.VirtualPageKey]vm.Frame
	pageTable    map[vm.PageTableNodeKey]nodeLocation
	nodeFrames   map[vm.Frame]bool
	frameOwners  map[vm.Frame]vm.VirtualPageKey
	cursor       nodeCursor
}

// Name returns the name of the translator.
func (t *Translator) Name() string {
	return t.name
}

// VirtualAddressBits returns the width of the virtual address space.
func (t *Translator) VirtualAddressBits() uint64 {
	return t.vaBits
}

// Levels returns the number of page-table levels.
func (t *Translator) Levels() int {
	return t.levels
}

// MinorFaultPenalty returns the number of cycles charged per fault.
func (t *Translator) MinorFaultPenalty() uint64 {
	return t.minorFaultPenalty
}

// Allocator returns the frame allocator that backs the translator.
func (t *Translator) Allocator() *frame.Allocator {
	return t.allocator
}

// Shamt returns the number of low virtual address bits that a page-table
// node at the given level does not distinguish.
func (t *Translator) Shamt(level int) uint64 {
	return t.log2PageSize + t.fanoutBits*uint64(level-1)
}

// Offset returns the index of the entry that the virtual address selects in
// its page-table node at the given level.
func (t *Translator) Offset(vAddr uint64, level int) uint64 {
	return (vAddr >> t.Shamt(level)) & mem.BitMask(t.fanoutBits)
}

// Translate returns the physical address of a virtual address accessed by a
// core. The latency is the minor fault penalty if the page is not mapped,
// either because the core has never accessed it or because its frame has
// been reclaimed, and 0 otherwise.
func (t *Translator) Translate(
	core vm.CoreID,
	vAddr uint64,
) (pAddr, latency uint64, err error) {
	pAddr, latency, fault, err := t.translate(core, vAddr)
	if fault != nil {
		t.invokeFaultHook(vm.HookPosPageFault, *fault)
	}

	return pAddr, latency, err
}

func (t *Translator) translate(
	core vm.CoreID,
	vAddr uint64,
) (uint64, uint64, *vm.FaultInfo, error) {
	t.Lock()
	defer t.Unlock()

	if err := t.checkRange(vAddr); err != nil {
		return 0, 0, nil, err
	}

	cycle := t.memCtrl.CurrentCycle()
	key := vm.VirtualPageKey{Core: core, Page: vAddr >> t.log2PageSize}

	f, found := t.translations[key]
	if found {
		t.allocator.Touch(cycle, f)
		pAddr := mem.SpliceBits(f.Address(t.log2PageSize), vAddr, t.log2PageSize)

		return pAddr, 0, nil, nil
	}

	f, err := t.allocator.Allocate(cycle, key.Page)
	if err != nil {
		return 0, 0, nil, fmt.Errorf("%s: translating 0x%x for core %d: %w",
			t.name, vAddr, core, err)
	}

	t.frameMustNotHoldNode(f, key)
	t.translations[key] = f
	t.frameOwners[f] = key

	pAddr := mem.SpliceBits(f.Address(t.log2PageSize), vAddr, t.log2PageSize)
	fault := &vm.FaultInfo{
		Core:    core,
		VAddr:   vAddr,
		PAddr:   pAddr,
		Frame:   f,
		Cycle:   cycle,
		Latency: t.minorFaultPenalty,
	}

	return pAddr, t.minorFaultPenalty, fault, nil
}

// WalkPageTable returns the physical address of the page-table entry that
// translates the virtual address at the given level. Level 1 is the leaf
// level. The latency is the minor fault penalty if the node has just been
// created, and 0 otherwise.
func (t *Translator) WalkPageTable(
	core vm.CoreID,
	vAddr uint64,
	level int,
) (ptePAddr, latency uint64, err error) {
	ptePAddr, latency, fault, err := t.walk(core, vAddr, level)
	if fault != nil {
		t.invokeFaultHook(vm.HookPosPageTableFault, *fault)
	}

	return ptePAddr, latency, err
}

func (t *Translator) walk(
	core vm.CoreID,
	vAddr uint64,
	level int,
) (uint64, uint64, *vm.FaultInfo, error) {
	t.Lock()
	defer t.Unlock()

	if level < 1 || level > t.levels {
		return 0, 0, nil, fmt.Errorf("%s: level %d not in [1, %d]: %w",
			t.name, level, t.levels, vm.ErrInvalidLevel)
	}

	if err := t.checkRange(vAddr); err != nil {
		return 0, 0, nil, err
	}

	cycle := t.memCtrl.CurrentCycle()
	shamt := t.Shamt(level)
	key := vm.PageTableNodeKey{Core: core, Page: vAddr >> shamt, Level: level}

	node, found := t.pageTable[key]
	if !found {
		var err error
		node, err = t.placeNode(cycle, vAddr, key)
		if err != nil {
			return 0, 0, nil, fmt.Errorf(
				"%s: creating page table node for 0x%x level %d core %d: %w",
				t.name, vAddr, level, core, err)
		}

		t.pageTable[key] = node
	}

	offset := t.Offset(vAddr, level)
	ptePAddr := (node.frame.Address(t.log2PageSize) + node.offset) |
		(offset * t.pteBytes)

	if found {
		return ptePAddr, 0, nil, nil
	}

	fault := &vm.FaultInfo{
		Core:    core,
		VAddr:   vAddr,
		PAddr:   ptePAddr,
		Frame:   node.frame,
		Level:   level,
		Cycle:   cycle,
		Latency: t.minorFaultPenalty,
	}

	return ptePAddr, t.minorFaultPenalty, fault, nil
}

func (t *Translator) placeNode(
	cycle, vAddr uint64,
	key vm.PageTableNodeKey,
) (nodeLocation, error) {
	if !t.cursor.valid || t.cursor.offset >= t.pageSize {
		f, err := t.allocator.AllocatePinned(cycle, vAddr>>t.log2PageSize)
		if err != nil {
			return nodeLocation{}, err
		}

		t.frameMustNotHoldData(f, key)
		t.nodeFrames[f] = true
		t.cursor = nodeCursor{valid: true, frame: f}
	}

	node := nodeLocation{frame: t.cursor.frame, offset: t.cursor.offset}
	t.cursor.offset += t.pageTablePageSize

	return node, nil
}

func (t *Translator) checkRange(vAddr uint64) error {
	if t.vaBits < 64 && vAddr>>t.vaBits != 0 {
		return fmt.Errorf("%s: 0x%x does not fit in %d bits: %w",
			t.name, vAddr, t.vaBits, vm.ErrAddressOutOfRange)
	}

	return nil
}

func (t *Translator) frameMustNotHoldNode(f vm.Frame, key vm.VirtualPageKey) {
	if t.nodeFrames[f] {
		log.Panicf("%s: frame %d given to %s holds page table nodes: %v",
			t.name, f, key, vm.ErrInternalInconsistency)
	}
}

func (t *Translator) frameMustNotHoldData(f vm.Frame, key vm.PageTableNodeKey) {
	if owner, taken := t.frameOwners[f]; taken {
		log.Panicf("%s: frame %d given to node %s holds %s: %v",
			t.name, f, key, owner, vm.ErrInternalInconsistency)
	}
}

func (t *Translator) invokeFaultHook(pos *sim.HookPos, info vm.FaultInfo) {
	if t.NumHooks() == 0 {
		return
	}

	t.InvokeHook(sim.HookCtx{
		Domain: t,
		Pos:    pos,
		Item:   info,
	})
}

// ReclaimIdle returns the frames of the data regions that have not been
// accessed for the cool-down period to the allocator. The pages mapped to
// those frames are unmapped; their next access faults again.
func (t *Translator) ReclaimIdle() int {
	t.Lock()
	defer t.Unlock()

	cycle := t.memCtrl.CurrentCycle()
	idle := t.allocator.ReclaimIdle(cycle)

	unmapped := 0
	for _, r := range idle {
		for f := r.StartFrame; f <= r.EndFrame(); f++ {
			key, owned := t.frameOwners[f]
			if !owned {
				continue
			}

			delete(t.translations, key)
			delete(t.frameOwners, f)
			unmapped++
		}
	}

	if len(idle) > 0 && t.logger != nil {
		t.logger.Printf(
			"%s: reclaimed %d idle regions (%d pages) at cycle %d, %d frames free\n",
			t.name, len(idle), unmapped, cycle, t.allocator.NumFree())
	}

	return len(idle)
}

// Lookup returns the frame mapped to the page that holds the virtual address,
// without creating it.
func (t *Translator) Lookup(core vm.CoreID, vAddr uint64) (vm.Frame, bool) {
	t.Lock()
	defer t.Unlock()

	f, found := t.translations[vm.VirtualPageKey{
		Core: core,
		Page: vAddr >> t.log2PageSize,
	}]

	return f, found
}

// NumTranslations returns the number of data pages mapped.
func (t *Translator) NumTranslations() int {
	t.Lock()
	defer t.Unlock()

	return len(t.translations)
}

// NumPageTableNodes returns the number of page-table nodes created.
func (t *Translator) NumPageTableNodes() int {
	t.Lock()
	defer t.Unlock()

	return len(t.pageTable)
}

// AvailableFrames returns the number of free physical frames.
func (t *Translator) AvailableFrames() uint64 {
	t.Lock()
	defer t.Unlock()

	return t.allocator.NumFree()
}
