// Package memory provides the low-level primitives for element storage.
// It separates acquiring a block of element-sized slots (RawBuffer) from
// constructing values in those slots, which is left to the owning container.
//
// Every block is accounted against an Allocator. The System allocator is the
// default; Limited enforces a byte budget. Both fail with ErrOutOfMemory
// instead of letting the runtime abort the process.
package memory
