// Package mem provides the size units and the bit arithmetic shared by the
// memory models.
package mem

// Byte sizes.
const (
	_        = iota
	KB uint64 = 1 << (10 * iota)
	MB
	GB
	TB
)
