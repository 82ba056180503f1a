package memory

import (
	"math"
	"sync"
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/shirou/gopsutil/v3/mem"
)

// ErrOutOfMemory is returned when an allocator cannot satisfy a request.
var ErrOutOfMemory = errors.New("memory: out of memory")

// LargeAllocation is the request size from which System checks the memory
// the operating system reports as available.
const LargeAllocation = 64 << 20

// Allocator accounts for element blocks. Allocate is called before a block
// is created and Deallocate when it is released, with the same size.
type Allocator interface {
	Allocate(bytes uint64) error
	Deallocate(bytes uint64)
}

// Default is the allocator used when none is configured.
var Default Allocator = System{}

// System admits any request the machine can plausibly back.
type System struct{}

// Allocate implements Allocator.
func (System) Allocate(bytes uint64) error {
	if bytes < LargeAllocation {
		return nil
	}
	vm, err := mem.VirtualMemory()
	if err != nil {
		// No reading, no veto.
		return nil
	}
	if bytes > vm.Available {
		return errors.Wrapf(ErrOutOfMemory, "%d bytes requested, %d available", bytes, vm.Available)
	}
	return nil
}

// Deallocate implements Allocator.
func (System) Deallocate(uint64) {}

// SizeOf returns the size of T in bytes.
func SizeOf[T any]() uintptr {
	var zero T
	return unsafe.Sizeof(zero)
}

// BlockBytes returns the byte size of a block of n elements of T.
func BlockBytes[T any](n int) (uint64, error) {
	size := SizeOf[T]()
	if size != 0 && uint64(n) > uint64(math.MaxInt)/uint64(size) {
		return 0, errors.Wrapf(ErrOutOfMemory, "%d elements of %d bytes overflow", n, size)
	}
	return uint64(n) * uint64(size), nil
}

// Stats contains allocation statistics.
type Stats struct {
	Allocations   uint64 // successful Allocate calls
	Deallocations uint64
	Failures      uint64 // rejected Allocate calls
	InUse         uint64 // bytes currently allocated
	Peak          uint64 // largest InUse observed
}

// Limited admits requests while the bytes in use stay within Budget.
type Limited struct {
	mu     sync.Mutex
	budget uint64
	stats  Stats
}

// NewLimited creates an allocator with the given byte budget.
func NewLimited(budget uint64) *Limited {
	return &Limited{budget: budget}
}

// Allocate implements Allocator.
func (l *Limited) Allocate(bytes uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if bytes > l.budget-l.stats.InUse {
		l.stats.Failures++
		return errors.Wrapf(ErrOutOfMemory, "%d bytes requested, %d of %d in use",
			bytes, l.stats.InUse, l.budget)
	}
	l.stats.Allocations++
	l.stats.InUse += bytes
	l.stats.Peak = max(l.stats.Peak, l.stats.InUse)
	return nil
}

// Deallocate implements Allocator.
func (l *Limited) Deallocate(bytes uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if bytes > l.stats.InUse {
		panic(errors.AssertionFailedf("memory: releasing %d bytes with %d in use", bytes, l.stats.InUse))
	}
	l.stats.Deallocations++
	l.stats.InUse -= bytes
}

// Budget returns the configured byte budget.
func (l *Limited) Budget() uint64 { return l.budget }

// Stats returns a copy of the allocation statistics.
func (l *Limited) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stats
}
