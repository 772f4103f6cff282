package lifetime

// Kind names the pointer family that owns an allocation.
type Kind string

const (
	KindExclusive Kind = "exclusive"
	KindShared    Kind = "shared"
)

// Observer is notified whenever an owned value enters or leaves the care of a pointer.
// Acquired returns an id that identifies the allocation in the later calls.
type Observer interface {
	Acquired(kind Kind) uint64
	Released(kind Kind, id uint64)
	Destroyed(kind Kind, id uint64, err error)
}

// Record ties one owned value to the observer that watches it.
// The zero Record is untracked and every method on it is a no-op.
type Record struct {
	obs  Observer
	kind Kind
	id   uint64
}

// Track registers a new allocation with obs. A nil obs yields an untracked Record.
func Track(obs Observer, kind Kind) Record {
	if obs == nil {
		return Record{}
	}
	return Record{obs: obs, kind: kind, id: obs.Acquired(kind)}
}

// ID is the observer-assigned id, zero when untracked.
func (r Record) ID() uint64 { return r.id }

// Released reports that ownership went back to the caller without destruction.
func (r Record) Released() {
	if r.obs != nil {
		r.obs.Released(r.kind, r.id)
	}
}

// Destroyed reports that the value was torn down; err is the teardown error, if any.
func (r Record) Destroyed(err error) {
	if r.obs != nil {
		r.obs.Destroyed(r.kind, r.id, err)
	}
}
