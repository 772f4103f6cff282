package exclusive

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rawbytedev/owned/pkg/lifetime"
)

type resource struct {
	id    int
	drops *int
}

func (r *resource) Destroy() { *r.drops++ }

type pair struct {
	First  int
	Second float64
}

type closer struct {
	err    error
	closed *int
}

func (c *closer) Close() error {
	*c.closed++
	return c.err
}

func TestConstructors(t *testing.T) {
	var zero Ptr[int]
	assert.False(t, zero.Valid())
	assert.Nil(t, zero.Get())

	a := New[int](nil)
	assert.False(t, a.Valid())
	assert.Nil(t, a.Get())

	raw := new(int)
	b := New(raw)
	assert.True(t, b.Valid())
	assert.Same(t, raw, b.Get())
}

func TestMove(t *testing.T) {
	drops := 0
	raw := &resource{id: 1, drops: &drops}
	a := New(raw)
	b := a.Move()

	assert.True(t, b.Valid())
	assert.False(t, a.Valid())
	assert.Nil(t, a.Get())
	assert.Same(t, raw, b.Get())
	assert.Zero(t, drops)

	b.Destroy()
	a.Destroy()
	assert.Equal(t, 1, drops)
}

func TestMoveFrom(t *testing.T) {
	drops := 0
	first := &resource{id: 1, drops: &drops}
	a := New(first)
	b := New[resource](nil)

	b.MoveFrom(a)
	assert.True(t, b.Valid())
	assert.False(t, a.Valid())
	assert.Same(t, first, b.Get())
	assert.Zero(t, drops)

	second := &resource{id: 2, drops: &drops}
	b.MoveFrom(New(second))
	assert.Same(t, second, b.Get())
	assert.Equal(t, 1, drops, "previous value destroyed on overwrite")

	b.MoveFrom(b)
	assert.Same(t, second, b.Get())
	assert.Equal(t, 1, drops, "self move must not destroy")

	b.Destroy()
	assert.Equal(t, 2, drops)
}

func TestRelease(t *testing.T) {
	t.Run("Empty", func(t *testing.T) {
		a := New[int](nil)
		assert.Nil(t, a.Release())
		assert.False(t, a.Valid())
	})

	t.Run("NotEmpty", func(t *testing.T) {
		drops := 0
		raw := &resource{drops: &drops}
		a := New(raw)
		assert.Same(t, raw, a.Release())
		assert.Nil(t, a.Get())
		assert.False(t, a.Valid())

		a.Destroy()
		assert.Zero(t, drops, "released value belongs to the caller")
		raw.Destroy()
		assert.Equal(t, 1, drops)
	})
}

func TestReset(t *testing.T) {
	t.Run("Empty", func(t *testing.T) {
		raw := new(int)
		var a Ptr[int]

		a.Reset(nil)
		assert.False(t, a.Valid())
		assert.Nil(t, a.Get())

		a.Reset(raw)
		assert.True(t, a.Valid())
		assert.Same(t, raw, a.Get())
	})

	t.Run("NotEmpty", func(t *testing.T) {
		drops := 0
		v1 := &resource{id: 1, drops: &drops}
		v2 := &resource{id: 2, drops: &drops}
		a := New(v1)

		a.Reset(v2)
		assert.True(t, a.Valid())
		assert.Same(t, v2, a.Get())
		assert.Equal(t, 1, drops)

		a.Reset(v2)
		assert.Same(t, v2, a.Get())
		assert.Equal(t, 1, drops, "reset to the owned value is a no-op")

		a.Reset(nil)
		assert.False(t, a.Valid())
		assert.Nil(t, a.Get())
		assert.Equal(t, 2, drops)
	})
}

func TestSwap(t *testing.T) {
	ptr1, ptr2 := new(int), new(int)
	a := New[int](nil)
	b := New(ptr1)
	c := New(ptr2)

	a.Swap(a)
	assert.False(t, a.Valid())
	assert.Nil(t, a.Get())

	b.Swap(b)
	assert.True(t, b.Valid())
	assert.Same(t, ptr1, b.Get())

	a.Swap(b)
	assert.Same(t, ptr1, a.Get())
	assert.False(t, b.Valid())

	b.Swap(c)
	assert.Same(t, ptr2, b.Get())
	assert.False(t, c.Valid())

	a.Swap(b)
	assert.Same(t, ptr2, a.Get())
	assert.Same(t, ptr1, b.Get())
}

func TestOperators(t *testing.T) {
	a := New(&pair{})
	assert.Zero(t, a.Deref().First)
	assert.Zero(t, a.Deref().Second)

	a.Deref().First = 10
	a.Deref().Second = 11.5
	assert.Equal(t, 10, a.Get().First)
	assert.Equal(t, 11.5, a.Get().Second)

	a.Get().First = 11
	assert.Equal(t, 11, a.Deref().First)
}

func TestDerefEmptyPanics(t *testing.T) {
	a := New[int](nil)
	assert.PanicsWithError(t, ErrInvalidDereference.Error(), func() { a.Deref() })

	a.Reset(new(int))
	a.Release()
	assert.PanicsWithError(t, ErrInvalidDereference.Error(), func() { a.At(0) })
}

func TestCopyByValuePanics(t *testing.T) {
	a := New(new(int))
	b := *a //nolint:govet // deliberate copy

	assert.PanicsWithError(t, ErrCopied.Error(), func() { b.Get() })
	assert.PanicsWithError(t, ErrCopied.Error(), func() { a.Swap(&b) })
	assert.True(t, a.Valid())
}

func TestFromSlice(t *testing.T) {
	drops := 0
	elems := []resource{{id: 0, drops: &drops}, {id: 1, drops: &drops}, {id: 2, drops: &drops}}
	a := FromSlice(elems)
	require.True(t, a.Valid())

	for i := range elems {
		assert.Equal(t, i, a.At(i).id)
	}
	a.At(1).id = 42
	assert.Equal(t, 42, elems[1].id)

	a.Destroy()
	assert.Equal(t, 3, drops)

	empty := FromSlice([]resource{})
	assert.False(t, empty.Valid())
}

func TestIndexInts(t *testing.T) {
	a := FromSlice([]int{5, 6, 7, 8})
	sum := 0
	for i := 0; i < 4; i++ {
		sum += *a.At(i)
	}
	assert.Equal(t, 26, sum)
}

func TestObserver(t *testing.T) {
	tr := lifetime.NewTracker("exclusive")
	drops := 0

	a := New(&resource{drops: &drops}, WithObserver(tr))
	b := New[resource](nil, WithObserver(tr))
	require.Equal(t, 1, tr.Live())

	b.MoveFrom(a)
	b.Reset(&resource{drops: &drops})
	assert.Equal(t, 1, tr.Live())

	raw := b.Release()
	require.NotNil(t, raw)
	require.NoError(t, tr.Check())

	stats := tr.Stats().PerKind[lifetime.KindExclusive]
	assert.Equal(t, uint64(2), stats.Acquired)
	assert.Equal(t, uint64(1), stats.Destroyed)
	assert.Equal(t, uint64(1), stats.Released)
	assert.Equal(t, 1, drops)
}

func TestCloserErrorsReachObserver(t *testing.T) {
	tr := lifetime.NewTracker("closer")
	closed := 0
	boom := errors.New("boom")

	a := New(&closer{err: boom, closed: &closed}, WithObserver(tr))
	a.Destroy()
	a.Destroy()

	assert.Equal(t, 1, closed)
	assert.Equal(t, uint64(1), tr.Stats().PerKind[lifetime.KindExclusive].Failures)
	assert.NoError(t, tr.Check())
}

func TestNestedPointers(t *testing.T) {
	drops := 0
	inner := New(&resource{drops: &drops})
	outer := New(inner)

	outer.Destroy()
	assert.Equal(t, 1, drops)
	assert.False(t, inner.Valid())
}

func TestReleaseSlice(t *testing.T) {
	drops := 0
	elems := []resource{{id: 0, drops: &drops}, {id: 1, drops: &drops}, {id: 2, drops: &drops}}
	a := FromSlice(elems)

	got := a.ReleaseSlice()
	require.Len(t, got, 3)
	assert.Same(t, &elems[0], &got[0])
	assert.Same(t, &elems[2], &got[2])
	assert.False(t, a.Valid())

	a.Destroy()
	assert.Zero(t, drops, "released elements belong to the caller")
	for i := range got {
		got[i].Destroy()
	}
	assert.Equal(t, 3, drops)

	single := New(&resource{id: 7, drops: &drops})
	one := single.ReleaseSlice()
	require.Len(t, one, 1)
	assert.Equal(t, 7, one[0].id)

	assert.Nil(t, New[int](nil).ReleaseSlice())
}
