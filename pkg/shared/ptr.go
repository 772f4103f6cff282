// Package shared provides Ptr, a reference-counted owner of a heap value.
//
// Every Ptr that shares a value references one control block holding the
// value and its strong count. The value is destroyed at the exact operation
// that drops the last reference: Destroy, Release, Reset, MoveFrom or an
// Assign that overwrites it. Destruction runs the value's Destroy method, or
// Close for io.Closer values.
//
// Copies must be made with Clone or Assign. Copying a Ptr by value would
// skip the count, so go vet reports it and the copy panics with ErrCopied.
//
// The count is not atomic. Every Ptr sharing a block must be used from a
// single goroutine or under the caller's own synchronisation.
package shared

import (
	"github.com/rawbytedev/owned/internal/common"
	"github.com/rawbytedev/owned/pkg/lifetime"
)

var (
	ErrInvalidDereference = common.ErrInvalidDereference
	ErrCopied             = common.ErrCopied
)

type config struct {
	obs lifetime.Observer
}

// Option configures a Ptr at construction time.
type Option func(*config)

// WithObserver reports every value the pointer family takes, releases or destroys to obs.
func WithObserver(obs lifetime.Observer) Option {
	return func(c *config) {
		c.obs = obs
	}
}

// Ptr is one owner of a shared value. The zero value is empty and usable;
// copies are made with Clone or Assign.
type Ptr[T any] struct {
	noCopy common.NoCopy
	node   *controlBlock[T]
	cfg    config
}

// New returns a Ptr that is the only owner of raw.
// New(nil) returns an empty Ptr with no control block.
func New[T any](raw *T, opts ...Option) *Ptr[T] {
	p := &Ptr[T]{}
	for _, opt := range opts {
		opt(&p.cfg)
	}
	p.noCopy.Check()
	if raw != nil {
		p.node = newBlock(raw, 1, p.cfg.obs)
	}
	return p
}

// FromSlice takes ownership of the backing array of elems.
// Freeing the block destroys every element; At indexes into the array.
func FromSlice[T any](elems []T, opts ...Option) *Ptr[T] {
	p := New[T](nil, opts...)
	if len(elems) > 0 {
		p.node = newBlock(&elems[0], len(elems), p.cfg.obs)
	}
	return p
}

// Clone returns a new owner of p's value.
func (p *Ptr[T]) Clone() *Ptr[T] {
	p.noCopy.Check()
	q := &Ptr[T]{node: p.node, cfg: p.cfg}
	q.noCopy.Check()
	if q.node != nil {
		q.node.acquire()
	}
	return q
}

// Move hands p's reference to a new Ptr without touching the count; p becomes empty.
func (p *Ptr[T]) Move() *Ptr[T] {
	p.noCopy.Check()
	q := &Ptr[T]{node: p.node, cfg: p.cfg}
	q.noCopy.Check()
	p.node = nil
	return q
}

// Assign makes p another owner of other's value, dropping p's previous reference.
// The copy is taken before the old reference goes, so p.Assign(p) is safe.
func (p *Ptr[T]) Assign(other *Ptr[T]) {
	tmp := other.Clone()
	p.Swap(tmp)
	tmp.Destroy()
}

// MoveFrom drops p's reference and takes over other's, leaving other empty.
// p.MoveFrom(p) changes nothing.
func (p *Ptr[T]) MoveFrom(other *Ptr[T]) {
	p.noCopy.Check()
	if p == other {
		return
	}
	other.noCopy.Check()
	old := p.node
	p.node, other.node = other.node, nil
	if old != nil {
		old.drop()
	}
}

// Release drops p's reference and leaves p empty.
// It returns the value while other owners keep it alive, and nil when
// p was empty or this call destroyed the value.
func (p *Ptr[T]) Release() *T {
	p.noCopy.Check()
	node := p.node
	if node == nil {
		return nil
	}
	p.node = nil
	raw := node.value
	if node.drop() {
		return nil
	}
	return raw
}

// Reset drops p's reference and, when raw is not nil, makes p the only owner of raw.
// Resetting to the value p already shares is a no-op, since a second block
// for the same value would destroy it twice.
func (p *Ptr[T]) Reset(raw *T) {
	p.noCopy.Check()
	if raw != nil && p.node != nil && raw == p.node.value {
		return
	}
	tmp := &Ptr[T]{cfg: p.cfg}
	tmp.noCopy.Check()
	if raw != nil {
		tmp.node = newBlock(raw, 1, p.cfg.obs)
	}
	p.Swap(tmp)
	tmp.Destroy()
}

// Get returns the shared value, or nil.
func (p *Ptr[T]) Get() *T {
	p.noCopy.Check()
	if p.node == nil {
		return nil
	}
	return p.node.value
}

// Deref returns the shared value. It panics with ErrInvalidDereference when p is empty.
func (p *Ptr[T]) Deref() *T {
	raw := p.Get()
	if raw == nil {
		panic(ErrInvalidDereference)
	}
	return raw
}

// Valid reports whether p references a value.
func (p *Ptr[T]) Valid() bool {
	p.noCopy.Check()
	return p.node != nil
}

// At returns the i-th element of the shared allocation.
// Bounds are the caller's responsibility.
func (p *Ptr[T]) At(i int) *T {
	return common.Index(p.Deref(), i)
}

// Swap exchanges the references held by p and other. The counts do not change.
func (p *Ptr[T]) Swap(other *Ptr[T]) {
	p.noCopy.Check()
	if p == other {
		return
	}
	other.noCopy.Check()
	p.node, other.node = other.node, p.node
}

// UseCount returns the number of Ptrs sharing p's value, or 0 when p is empty.
func (p *Ptr[T]) UseCount() int {
	p.noCopy.Check()
	if p.node == nil {
		return 0
	}
	return p.node.strong
}

// Destroy drops p's reference, destroying the value if p was its last owner.
// Calling it again is a no-op.
func (p *Ptr[T]) Destroy() {
	p.Release()
}
