// Package vm defines the vocabulary shared by the virtual memory models: frame
// numbers, the keys of the translation tables, the error kinds, and the hook
// positions that report page faults.
package vm

import "fmt"

// A Frame is the index of a fixed-size unit of physical memory.
type Frame uint64

// Address returns the physical address of the first byte of the frame.
func (f Frame) Address(log2FrameSize uint64) uint64 {
	return uint64(f) << log2FrameSize
}

// CoreID identifies the core that issues a translation.
type CoreID uint32

// A VirtualPageKey identifies the owner of a data page translation.
type VirtualPageKey struct {
	Core CoreID
	Page uint64
}

func (k VirtualPageKey) String() string {
	return fmt.Sprintf("core %d page 0x%x", k.Core, k.Page)
}

// A PageTableNodeKey identifies one page-table node. Page is the virtual
// address shifted by the number of bits the node covers at its level.
type PageTableNodeKey struct {
	Core  CoreID
	Page  uint64
	Level int
}

func (k PageTableNodeKey) String() string {
	return fmt.Sprintf("core %d page 0x%x level %d", k.Core, k.Page, k.Level)
}
