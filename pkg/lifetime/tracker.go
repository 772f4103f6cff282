package lifetime

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

var (
	ErrLeaked  = errors.New("allocations still live")
	ErrAnomaly = errors.New("unknown allocation released or destroyed")
)

// Logger interface for allocation tracing, leak warnings and failure reporting.
// *slog.Logger satisfies it.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Counters for a single pointer family.
type Counters struct {
	Acquired  uint64 `yaml:"acquired"`
	Released  uint64 `yaml:"released"`
	Destroyed uint64 `yaml:"destroyed"`
	Failures  uint64 `yaml:"failures"`
}

// Live is the number of allocations neither destroyed nor released.
func (c Counters) Live() uint64 {
	return c.Acquired - c.Released - c.Destroyed
}

// Stats is a point-in-time copy of a Tracker's counters.
type Stats struct {
	PerKind   map[Kind]Counters `yaml:"per_kind"`
	Anomalies uint64            `yaml:"anomalies"`
}

// Allocation identifies one value still owned by a pointer.
type Allocation struct {
	ID   uint64 `yaml:"id"`
	Kind Kind   `yaml:"kind"`
}

// Report is the serialisable snapshot written by WriteYAML.
type Report struct {
	Name  string       `yaml:"name"`
	Stats Stats        `yaml:"stats"`
	Leaks []Allocation `yaml:"leaks,omitempty"`
}

// Tracker is an Observer that keeps the live set of allocations and per-family counters.
// Unlike the pointers it watches, a Tracker is safe for concurrent use so that
// independent pointer families on different goroutines can share one.
type Tracker struct {
	name   string
	logger Logger

	mu        sync.Mutex
	next      uint64
	live      map[uint64]Kind
	perKind   map[Kind]Counters
	anomalies uint64
}

// TrackerOption configures a Tracker.
type TrackerOption func(*Tracker)

// WithLogger sets the logger for the Tracker.
//
// Debug level: every acquire, release and destroy
// Warn level: failed leak checks
// Error level: double destroys, unknown ids and teardown errors.
func WithLogger(logger Logger) TrackerOption {
	return func(t *Tracker) {
		t.logger = logger
	}
}

// NewTracker returns an empty Tracker; name labels its log lines and report.
func NewTracker(name string, opts ...TrackerOption) *Tracker {
	t := &Tracker{
		name:    name,
		live:    make(map[uint64]Kind),
		perKind: make(map[Kind]Counters),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Acquired adds a new allocation to the live set and returns its id.
func (t *Tracker) Acquired(kind Kind) uint64 {
	t.mu.Lock()
	t.next++
	id := t.next
	t.live[id] = kind
	c := t.perKind[kind]
	c.Acquired++
	t.perKind[kind] = c
	t.mu.Unlock()

	if t.logger != nil {
		t.logger.Debug("lifetime: acquired", "tracker", t.name, "kind", kind, "id", id)
	}
	return id
}

// Released retires id because ownership went back to the caller.
func (t *Tracker) Released(kind Kind, id uint64) {
	if !t.retire(kind, id, "released", func(c *Counters) { c.Released++ }) {
		return
	}
	if t.logger != nil {
		t.logger.Debug("lifetime: released", "tracker", t.name, "kind", kind, "id", id)
	}
}

// Destroyed retires id because its value was torn down; a non-nil err counts as a failure.
func (t *Tracker) Destroyed(kind Kind, id uint64, err error) {
	ok := t.retire(kind, id, "destroyed", func(c *Counters) {
		c.Destroyed++
		if err != nil {
			c.Failures++
		}
	})
	if !ok || t.logger == nil {
		return
	}
	if err != nil {
		t.logger.Error("lifetime: teardown failed", "tracker", t.name, "kind", kind, "id", id, "error", err)
		return
	}
	t.logger.Debug("lifetime: destroyed", "tracker", t.name, "kind", kind, "id", id)
}

// retire drops id from the live set and applies count in the same critical
// section. It reports false, and counts an anomaly, when id is not live or
// belongs to another family.
func (t *Tracker) retire(kind Kind, id uint64, event string, count func(*Counters)) bool {
	t.mu.Lock()
	owner, ok := t.live[id]
	if ok && owner == kind {
		delete(t.live, id)
		c := t.perKind[kind]
		count(&c)
		t.perKind[kind] = c
		t.mu.Unlock()
		return true
	}
	t.anomalies++
	t.mu.Unlock()

	if t.logger != nil {
		t.logger.Error("lifetime: unknown allocation "+event, "tracker", t.name, "kind", kind, "id", id)
	}
	return false
}

// Stats returns the counters as of now.
func (t *Tracker) Stats() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.statsLocked()
}

func (t *Tracker) statsLocked() Stats {
	per := make(map[Kind]Counters, len(t.perKind))
	for k, c := range t.perKind {
		per[k] = c
	}
	return Stats{PerKind: per, Anomalies: t.anomalies}
}

// Live returns the number of allocations currently owned by a pointer.
func (t *Tracker) Live() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.live)
}

// Leaks lists the live allocations in acquisition order.
func (t *Tracker) Leaks() []Allocation {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.leaksLocked()
}

func (t *Tracker) leaksLocked() []Allocation {
	leaks := make([]Allocation, 0, len(t.live))
	for id, kind := range t.live {
		leaks = append(leaks, Allocation{ID: id, Kind: kind})
	}
	sort.Slice(leaks, func(i, j int) bool { return leaks[i].ID < leaks[j].ID })
	return leaks
}

// Check fails when any allocation is still live or an anomaly was seen.
func (t *Tracker) Check() error {
	stats := t.Stats()
	if stats.Anomalies > 0 {
		return fmt.Errorf("%w: %s saw %d", ErrAnomaly, t.name, stats.Anomalies)
	}
	if n := t.Live(); n > 0 {
		if t.logger != nil {
			t.logger.Warn("lifetime: leak check failed", "tracker", t.name, "live", n)
		}
		return fmt.Errorf("%w: %s has %d", ErrLeaked, t.name, n)
	}
	return nil
}

// Report takes the counters and the leak list in one consistent snapshot.
func (t *Tracker) Report() Report {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Report{Name: t.name, Stats: t.statsLocked(), Leaks: t.leaksLocked()}
}

// WriteYAML writes Report to w.
func (t *Tracker) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(t.Report()); err != nil {
		return fmt.Errorf("lifetime: encode report: %w", err)
	}
	return enc.Close()
}
