package vm

import "errors"

var (
	// ErrConfiguration is returned when a model is built with sizes or
	// level counts that cannot work together.
	ErrConfiguration = errors.New("invalid virtual memory configuration")

	// ErrPhysicalMemoryExhausted is returned when no free frame is left.
	ErrPhysicalMemoryExhausted = errors.New("physical memory exhausted")

	// ErrAddressOutOfRange is returned when a virtual address does not fit
	// in the configured virtual address width.
	ErrAddressOutOfRange = errors.New("virtual address out of range")

	// ErrInvalidLevel is returned when a page-table level outside of the
	// configured levels is walked.
	ErrInvalidLevel = errors.New("invalid page table level")

	// ErrInternalInconsistency marks a disagreement between translation
	// tables. It is raised as a panic.
	ErrInternalInconsistency = errors.New("internal inconsistency")
)
