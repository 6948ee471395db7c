package vm

import "github.com/sarchlab/vmemsim/sim"

// HookPosPageFault marks a data page that has been mapped for the first time.
var HookPosPageFault = &sim.HookPos{Name: "PageFault"}

// HookPosPageTableFault marks a page-table node that has been created.
var HookPosPageTableFault = &sim.HookPos{Name: "PageTableFault"}

// FaultInfo describes a minor fault. It is the Item of the hook context at
// the fault hook positions.
type FaultInfo struct {
	Core    CoreID
	VAddr   uint64
	PAddr   uint64
	Frame   Frame
	Level   int // 0 for data pages
	Cycle   uint64
	Latency uint64
}

// IsPageTableFault returns true if the fault created a page-table node.
func (f FaultInfo) IsPageTableFault() bool {
	return f.Level > 0
}
