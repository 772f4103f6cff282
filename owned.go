// Package owned gives Go code deterministic ownership of heap values.
//
// Two independent pointer families live in subpackages:
//
//   - exclusive.Ptr: a single owner; ownership moves but is never duplicated.
//   - shared.Ptr: many owners through a reference-counted control block.
//
// In both, the owned value is destroyed at the exact operation that drops
// its last owner, not when the garbage collector gets to it. Destruction
// calls the value's Destroy method (see Destroyer), or Close for io.Closer
// values. Values with neither are simply dropped.
//
// Pointers are not safe for concurrent use and must not be copied by value.
// lifetime.Tracker can audit a program's allocations for leaks and double
// destroys.
package owned

import (
	"github.com/rawbytedev/owned/internal/common"
	"github.com/rawbytedev/owned/pkg/exclusive"
	"github.com/rawbytedev/owned/pkg/shared"
)

// Destroyer is implemented by values that need teardown when their last owner goes.
type Destroyer = common.Destroyer

var (
	ErrInvalidDereference = common.ErrInvalidDereference
	ErrCopied             = common.ErrCopied
)

// Exclusive moves v to the heap and returns its sole owner.
func Exclusive[T any](v T, opts ...exclusive.Option) *exclusive.Ptr[T] {
	return exclusive.New(&v, opts...)
}

// Shared moves v to the heap and returns its first owner.
func Shared[T any](v T, opts ...shared.Option) *shared.Ptr[T] {
	return shared.New(&v, opts...)
}
