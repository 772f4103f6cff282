package common

import (
	"errors"
	"io"
	"reflect"
	"unsafe"
)

var (
	ErrInvalidDereference = errors.New("dereference of empty pointer")
	ErrCopied             = errors.New("pointer copied by value")
)

// Destroyer is implemented by values that need deterministic teardown when
// their last owner lets go of them.
type Destroyer interface {
	Destroy()
}

// Destroy runs the teardown hook of v, if it has one.
// Destroyer wins over io.Closer when a value implements both.
func Destroy(v any) error {
	switch d := v.(type) {
	case Destroyer:
		d.Destroy()
		return nil
	case io.Closer:
		return d.Close()
	}
	return nil
}

func hasHook(v any) bool {
	switch v.(type) {
	case Destroyer, io.Closer:
		return true
	}
	return false
}

// DestroyElem tears down the value at p. The hook is looked up on p first,
// then on *p, so pointer and interface element types (*os.File, io.Closer)
// are closed too. Nil elements are skipped.
func DestroyElem[T any](p *T) error {
	if hasHook(p) {
		return Destroy(p)
	}
	v := any(*p)
	if v == nil {
		return nil
	}
	if rv := reflect.ValueOf(v); rv.Kind() == reflect.Pointer && rv.IsNil() {
		return nil
	}
	return Destroy(v)
}

// DestroyElems destroys n consecutive values starting at p.
// Close errors are joined; every element is visited regardless.
func DestroyElems[T any](p *T, n int) error {
	if p == nil {
		return nil
	}
	if n <= 1 {
		return DestroyElem(p)
	}
	var errs []error
	elems := unsafe.Slice(p, n)
	for i := range elems {
		if err := DestroyElem(&elems[i]); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Index returns the address of the i-th element of the allocation starting at p.
// No bounds checking: p must point into an array with more than i elements.
func Index[T any](p *T, i int) *T {
	var zero T
	return (*T)(unsafe.Add(unsafe.Pointer(p), uintptr(i)*unsafe.Sizeof(zero)))
}

// NoCopy pins a value to its first address. Embed it as a named field; go vet
// flags copies through the Lock/Unlock methods and Check panics at run time.
type NoCopy struct {
	self *NoCopy
}

// Check pins n on first use and panics with ErrCopied from a copy.
func (n *NoCopy) Check() {
	if n.self == nil {
		n.self = n
		return
	}
	if n.self != n {
		panic(ErrCopied)
	}
}

func (*NoCopy) Lock()   {}
func (*NoCopy) Unlock() {}
