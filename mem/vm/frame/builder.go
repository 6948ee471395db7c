package frame

import (
	"fmt"
	"io"
	"log"
	"math/rand/v2"

	"github.com/google/btree"
	"github.com/sarchlab/vmemsim/mem"
	"github.com/sarchlab/vmemsim/mem/vm"
)

// DefaultCoolDown is the number of cycles a region must stay untouched
// before it can be reclaimed, unless configured otherwise.
const DefaultCoolDown = 10_000_000

// A Builder can build frame allocators.
type Builder struct {
	capacity    uint64
	frameSize   uint64
	coolDown    uint64
	shuffleSeed uint64
	logger      *log.Logger
}

// MakeBuilder creates a builder with default parameters.
func MakeBuilder() Builder {
	return Builder{
		capacity:  4 * mem.GB,
		frameSize: 4 * mem.KB,
		coolDown:  DefaultCoolDown,
		logger:    log.New(io.Discard, "", 0),
	}
}

// WithCapacity sets the number of bytes of the physical memory.
func (b Builder) WithCapacity(capacity uint64) Builder {
	b.capacity = capacity
	return b
}

// WithFrameSize sets the number of bytes in a frame.
func (b Builder) WithFrameSize(frameSize uint64) Builder {
	b.frameSize = frameSize
	return b
}

// WithCoolDown sets the number of cycles a region must stay untouched
// before it can be reclaimed.
func (b Builder) WithCoolDown(cycles uint64) Builder {
	b.coolDown = cycles
	return b
}

// WithShuffleSeed randomizes the order in which free frames are handed out.
// Seed 0 keeps the ascending order.
func (b Builder) WithShuffleSeed(seed uint64) Builder {
	b.shuffleSeed = seed
	return b
}

// WithLogger sets the logger that receives diagnostic messages.
func (b Builder) WithLogger(logger *log.Logger) Builder {
	b.logger = logger
	return b
}

// Build creates a new allocator with all the frames free.
func (b Builder) Build() (*Allocator, error) {
	if err := b.validate(); err != nil {
		return nil, err
	}

	numFrames := b.capacity / b.frameSize
	a := &Allocator{
		frameSize:  b.frameSize,
		numFrames:  numFrames,
		coolDown:   b.coolDown,
		byStart:    btree.New(16),
		byNextPage: btree.New(16),
	}
	a.free = newFreeSet(numFrames, b.shuffledOrder(numFrames))

	return a, nil
}

func (b Builder) validate() error {
	if !mem.IsPowerOfTwo(b.frameSize) {
		return fmt.Errorf("%w: frame size %d is not a power of two",
			vm.ErrConfiguration, b.frameSize)
	}

	if b.capacity == 0 || b.capacity%b.frameSize != 0 {
		return fmt.Errorf("%w: capacity %d is not a multiple of frame size %d",
			vm.ErrConfiguration, b.capacity, b.frameSize)
	}

	return nil
}

func (b Builder) shuffledOrder(numFrames uint64) []vm.Frame {
	if b.shuffleSeed == 0 {
		return nil
	}

	order := make([]vm.Frame, numFrames)
	for i := range order {
		order[i] = vm.Frame(i)
	}

	rng := rand.New(rand.NewPCG(b.shuffleSeed, b.shuffleSeed))
	rng.Shuffle(len(order), func(i, j int) {
		order[i], order[j] = order[j], order[i]
	})

	if b.logger != nil {
		b.logger.Printf("Shuffled %d physical frames with seed %d\n",
			numFrames, b.shuffleSeed)
	}

	return order
}
