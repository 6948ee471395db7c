package vmem

import (
	"fmt"
	"log"

	"github.com/sarchlab/vmemsim/mem"
	"github.com/sarchlab/vmemsim/mem/vm"
	"github.com/sarchlab/vmemsim/mem/vm/frame"
)

// minPageTablePageSize is the page-table page size that must be exceeded.
const minPageTablePageSize = 1024

// A Builder can build Translators.
type Builder struct {
	pageSize          uint64
	pageTablePageSize uint64
	pteBytes          uint64
	levels            int
	minorFaultPenalty uint64
	reserveCapacity   uint64
	coolDown          uint64
	shuffleSeed       uint64
	memCtrl           MemoryController
	logger            *log.Logger
}

// MakeBuilder creates a builder with default parameters.
func MakeBuilder() Builder {
	return Builder{
		pageSize:          4 * mem.KB,
		pageTablePageSize: 4 * mem.KB,
		pteBytes:          8,
		levels:            5,
		minorFaultPenalty: 200,
		reserveCapacity:   1 * mem.MB,
		coolDown:          frame.DefaultCoolDown,
		logger:            log.Default(),
	}
}

// WithPageSize sets the size of the data pages, which is also the size of
// the physical frames.
func (b Builder) WithPageSize(n uint64) Builder {
	b.pageSize = n
	return b
}

// WithPageTablePageSize sets the size of a page-table node.
func (b Builder) WithPageTablePageSize(n uint64) Builder {
	b.pageTablePageSize = n
	return b
}

// WithPTEBytes sets the size of a page-table entry.
func (b Builder) WithPTEBytes(n uint64) Builder {
	b.pteBytes = n
	return b
}

// WithLevels sets the number of page-table levels.
func (b Builder) WithLevels(n int) Builder {
	b.levels = n
	return b
}

// WithMinorFaultPenalty sets the number of cycles charged when a page or a
// page-table node is created.
func (b Builder) WithMinorFaultPenalty(cycles uint64) Builder {
	b.minorFaultPenalty = cycles
	return b
}

// WithReserveCapacity sets the number of bytes the virtual address space must
// exceed.
func (b Builder) WithReserveCapacity(n uint64) Builder {
	b.reserveCapacity = n
	return b
}

// WithCoolDown sets the number of cycles a data region must stay untouched
// before its frames can be reclaimed.
func (b Builder) WithCoolDown(cycles uint64) Builder {
	b.coolDown = cycles
	return b
}

// WithShuffleSeed randomizes the order in which physical frames are handed
// out. Seed 0 disables shuffling.
func (b Builder) WithShuffleSeed(seed uint64) Builder {
	b.shuffleSeed = seed
	return b
}

// WithMemoryController sets the memory that provides the physical size and
// the current cycle.
func (b Builder) WithMemoryController(mc MemoryController) Builder {
	b.memCtrl = mc
	return b
}

// WithLogger sets the logger that receives configuration warnings.
func (b Builder) WithLogger(logger *log.Logger) Builder {
	b.logger = logger
	return b
}

// Build creates a new Translator.
func (b Builder) Build(name string) (*Translator, error) {
	if err := b.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	fanoutBits := mem.Log2(b.pageTablePageSize / b.pteBytes)
	log2PageSize := mem.Log2(b.pageSize)
	vaBits := log2PageSize + uint64(b.levels)*fanoutBits

	if vaBits < 64 && uint64(1)<<vaBits <= b.reserveCapacity {
		return nil, fmt.Errorf(
			"%s: %w: %d-bit virtual space does not exceed the reserve of %d bytes",
			name, vm.ErrConfiguration, vaBits, b.reserveCapacity)
	}

	memSize := b.memCtrl.Size()
	b.warn(name, vaBits, memSize)

	allocator, err := frame.MakeBuilder().
		WithCapacity(memSize).
		WithFrameSize(b.pageSize).
		WithCoolDown(b.coolDown).
		WithShuffleSeed(b.shuffleSeed).
		WithLogger(b.logger).
		Build()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	t := &Translator{
		name:              name,
		memCtrl:           b.memCtrl,
		allocator:         allocator,
		logger:            b.logger,
		log2PageSize:      log2PageSize,
		pageSize:          b.pageSize,
		pageTablePageSize: b.pageTablePageSize,
		pteBytes:          b.pteBytes,
		levels:            b.levels,
		fanoutBits:        fanoutBits,
		vaBits:            vaBits,
		minorFaultPenalty: b.minorFaultPenalty,
		translations:      make(map[vm.VirtualPageKey]vm.Frame),
		pageTable:         make(map[vm.PageTableNodeKey]nodeLocation),
		nodeFrames:        make(map[vm.Frame]bool),
		frameOwners:       make(map[vm.Frame]vm.VirtualPageKey),
	}

	return t, nil
}

func (b Builder) validate() error {
	if b.memCtrl == nil {
		return fmt.Errorf("%w: memory controller not set", vm.ErrConfiguration)
	}

	if !mem.IsPowerOfTwo(b.pageSize) {
		return fmt.Errorf("%w: page size %d is not a power of two",
			vm.ErrConfiguration, b.pageSize)
	}

	if !mem.IsPowerOfTwo(b.pageTablePageSize) ||
		b.pageTablePageSize <= minPageTablePageSize {
		return fmt.Errorf(
			"%w: page table page size %d must be a power of two above %d",
			vm.ErrConfiguration, b.pageTablePageSize, minPageTablePageSize)
	}

	if b.pageTablePageSize > b.pageSize {
		return fmt.Errorf(
			"%w: page table page size %d exceeds page size %d",
			vm.ErrConfiguration, b.pageTablePageSize, b.pageSize)
	}

	if !mem.IsPowerOfTwo(b.pteBytes) || b.pteBytes >= b.pageTablePageSize {
		return fmt.Errorf(
			"%w: PTE size %d must be a power of two below %d",
			vm.ErrConfiguration, b.pteBytes, b.pageTablePageSize)
	}

	if b.levels < 1 {
		return fmt.Errorf("%w: %d page table levels",
			vm.ErrConfiguration, b.levels)
	}

	return nil
}

func (b Builder) warn(name string, vaBits, memSize uint64) {
	if b.logger == nil {
		return
	}

	if vaBits > 64 {
		b.logger.Printf(
			"WARNING: %s: virtual memory configuration would require %d bits of addressing.\n",
			name, vaBits)
	}

	if memSize > 0 && vaBits > mem.Log2(memSize) {
		b.logger.Printf(
			"WARNING: %s: physical memory size is smaller than virtual memory size; "+
				"virtual address space will be aliased.\n", name)
	}
}
