// Package exclusive provides Ptr, the sole owner of a heap value.
//
// Ownership moves between pointers (Move, MoveFrom, Swap) or back to the
// caller (Release), but is never duplicated. The owned value is destroyed
// exactly when its owner is destroyed, reset or overwritten. Destruction
// runs the value's Destroy method, or Close for io.Closer values.
//
// A Ptr must not be copied by value. go vet reports such copies and the
// copy panics with ErrCopied on first use.
//
// Ptr is not safe for concurrent use.
package exclusive

import (
	"unsafe"

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

// WithObserver reports every value the pointer takes, releases or destroys to obs.
func WithObserver(obs lifetime.Observer) Option {
	return func(c *config) {
		c.obs = obs
	}
}

// Ptr owns at most one value, or one array of values taken with FromSlice.
// The zero value is an empty, usable Ptr.
type Ptr[T any] struct {
	noCopy common.NoCopy
	raw    *T
	n      int // elements in the owned allocation
	rec    lifetime.Record
	cfg    config
}

// New returns a Ptr owning raw, or an empty Ptr when raw is nil.
func New[T any](raw *T, opts ...Option) *Ptr[T] {
	p := &Ptr[T]{}
	for _, opt := range opts {
		opt(&p.cfg)
	}
	p.noCopy.Check()
	p.own(raw, 1)
	return p
}

// FromSlice takes ownership of the backing array of elems.
// Destroying the pointer destroys every element; At indexes into the array.
func FromSlice[T any](elems []T, opts ...Option) *Ptr[T] {
	p := New[T](nil, opts...)
	if len(elems) > 0 {
		p.own(&elems[0], len(elems))
	}
	return p
}

func (p *Ptr[T]) own(raw *T, n int) {
	p.raw = raw
	p.n = 0
	p.rec = lifetime.Record{}
	if raw != nil {
		p.n = n
		p.rec = lifetime.Track(p.cfg.obs, lifetime.KindExclusive)
	}
}

// Move transfers ownership to a new Ptr and leaves p empty.
func (p *Ptr[T]) Move() *Ptr[T] {
	p.noCopy.Check()
	q := &Ptr[T]{raw: p.raw, n: p.n, rec: p.rec, cfg: p.cfg}
	q.noCopy.Check()
	p.raw, p.n, p.rec = nil, 0, lifetime.Record{}
	return q
}

// MoveFrom destroys the value p owns, then takes ownership from other and leaves it empty.
// p.MoveFrom(p) changes nothing.
func (p *Ptr[T]) MoveFrom(other *Ptr[T]) {
	p.noCopy.Check()
	if p == other {
		return
	}
	other.noCopy.Check()
	raw, n, rec := p.raw, p.n, p.rec
	p.raw, p.n, p.rec = other.raw, other.n, other.rec
	other.raw, other.n, other.rec = nil, 0, lifetime.Record{}
	destroy(raw, n, rec)
}

// Get returns the owned value without giving up ownership, or nil.
func (p *Ptr[T]) Get() *T {
	p.noCopy.Check()
	return p.raw
}

// Release gives ownership back to the caller without destroying the value.
// It returns nil when p is empty. For a FromSlice pointer only the first
// element's address comes back; use ReleaseSlice to keep the length.
func (p *Ptr[T]) Release() *T {
	p.noCopy.Check()
	raw, rec := p.raw, p.rec
	p.raw, p.n, p.rec = nil, 0, lifetime.Record{}
	if raw != nil {
		rec.Released()
	}
	return raw
}

// ReleaseSlice is Release for array-backed pointers: it returns every owned
// element, so the caller can tear all of them down. A single value comes
// back as a one-element slice, and an empty p as nil.
func (p *Ptr[T]) ReleaseSlice() []T {
	p.noCopy.Check()
	n := p.n
	raw := p.Release()
	if raw == nil {
		return nil
	}
	return unsafe.Slice(raw, n)
}

// Reset takes ownership of raw and destroys the previously owned value.
// Reset(nil) empties p. Resetting to the value already owned is a no-op.
func (p *Ptr[T]) Reset(raw *T) {
	p.noCopy.Check()
	if raw != nil && raw == p.raw {
		return
	}
	old, n, rec := p.raw, p.n, p.rec
	p.own(raw, 1)
	destroy(old, n, rec)
}

// Deref returns the owned value. It panics with ErrInvalidDereference when p is empty.
func (p *Ptr[T]) Deref() *T {
	p.noCopy.Check()
	if p.raw == nil {
		panic(ErrInvalidDereference)
	}
	return p.raw
}

// Valid reports whether p owns a value.
func (p *Ptr[T]) Valid() bool {
	p.noCopy.Check()
	return p.raw != nil
}

// At returns the i-th element of the owned allocation.
// Bounds are the caller's responsibility.
func (p *Ptr[T]) At(i int) *T {
	return common.Index(p.Deref(), i)
}

// Swap exchanges the owned values of p and other.
func (p *Ptr[T]) Swap(other *Ptr[T]) {
	p.noCopy.Check()
	if p == other {
		return
	}
	other.noCopy.Check()
	p.raw, other.raw = other.raw, p.raw
	p.n, other.n = other.n, p.n
	p.rec, other.rec = other.rec, p.rec
}

// Destroy tears down the owned value, if any, and leaves p empty.
// Calling it again is a no-op.
func (p *Ptr[T]) Destroy() {
	p.Reset(nil)
}

func destroy[T any](raw *T, n int, rec lifetime.Record) {
	if raw == nil {
		return
	}
	rec.Destroyed(common.DestroyElems(raw, n))
}
