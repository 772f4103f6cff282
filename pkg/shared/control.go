package shared

import (
	"github.com/rawbytedev/owned/internal/common"
	"github.com/rawbytedev/owned/pkg/lifetime"
)

// controlBlock is shared by every Ptr that references it.
// strong is the exact number of such Ptrs; the block is freed with its value
// when strong reaches zero, and never revived.
type controlBlock[T any] struct {
	value  *T
	n      int
	strong int
	rec    lifetime.Record
}

func newBlock[T any](raw *T, n int, obs lifetime.Observer) *controlBlock[T] {
	return &controlBlock[T]{
		value:  raw,
		n:      n,
		strong: 1,
		rec:    lifetime.Track(obs, lifetime.KindShared),
	}
}

func (b *controlBlock[T]) acquire() {
	b.strong++
}

// drop gives up one reference and reports whether that freed the block.
func (b *controlBlock[T]) drop() bool {
	b.strong--
	if b.strong > 0 {
		return false
	}
	value, n := b.value, b.n
	b.value, b.n = nil, 0
	b.rec.Destroyed(common.DestroyElems(value, n))
	return true
}
