package durations

import (
	"cmp"
	"log/slog"
	"math"
	"slices"
	"strconv"
	"strings"
	"sync"
)

// MeasurePatchCycles is the fixed hardware offset added to measurement
// durations on dynamic-circuit backends.
const MeasurePatchCycles = 160

// Time units accepted in entries.
const (
	UnitDT      = "dt"
	UnitSeconds = "s"
)

// Provider resolves instruction durations in ticks.
type Provider interface {
	Lookup(name string, qubits []int, params []float64) (int64, error)
}

// Entry is one row of a duration table. A nil Qubits makes the entry apply
// to the instruction on any wires; a nil Params makes it apply for any
// parameters.
type Entry struct {
	Name     string    `yaml:"name" json:"name"`
	Qubits   []int     `yaml:"qubits,omitempty" json:"qubits,omitempty"`
	Params   []float64 `yaml:"params,omitempty" json:"params,omitempty"`
	Duration float64   `yaml:"duration" json:"duration"`
	Unit     string    `yaml:"unit,omitempty" json:"unit,omitempty"`
}

type key struct {
	name      string
	qubits    string
	params    string
	hasQubits bool
	hasParams bool
}

func keyOf(name string, qubits []int, params []float64) key {
	k := key{name: name}
	if qubits == nil {
		return k
	}
	k.hasQubits = true
	k.qubits = joinInts(qubits)
	if params != nil {
		k.hasParams = true
		k.params = joinFloats(params)
	}
	return k
}

// renamed returns the key of another instruction on the same wires and
// parameters.
func (k key) renamed(name string) key {
	k.name = name
	return k
}

type value struct {
	duration float64
	unit     string
	qubits   []int
	params   []float64
}

// Table is a Provider backed by an in-memory duration table. With patching
// enabled (the default), every Update extends measurement durations by
// MeasurePatchCycles and keeps reset durations equal to the measurement on
// the same key.
//
// Table is safe for concurrent use.
type Table struct {
	mu       sync.RWMutex
	dt       float64
	patching bool
	entries  map[key]value
	order    []key
}

// Option configures a Table.
type Option func(*Table)

// WithPatching toggles dynamic-circuit patching on Update.
func WithPatching(enabled bool) Option {
	return func(t *Table) {
		t.patching = enabled
	}
}

// WithDT sets the tick length in seconds, used to convert entries given in
// seconds.
func WithDT(dt float64) Option {
	return func(t *Table) {
		t.dt = dt
	}
}

// NewTable creates an empty table.
func NewTable(opts ...Option) *Table {
	t := &Table{
		patching: true,
		entries:  map[key]value{},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// DT returns the tick length in seconds, or 0 when unknown.
func (t *Table) DT() float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.dt
}

// Update merges entries into the table, overwriting existing keys. A
// positive dt replaces the tick length. The update is validated before any
// entry is written; on error the table is unchanged.
func (t *Table) Update(entries []Entry, dt float64) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, e := range entries {
		unit := unitOf(e)
		if unit != UnitDT && unit != UnitSeconds {
			return NewUnsupportedTimeUnitError(e.Name, e.Qubits, unit, "unknown time unit "+strconv.Quote(unit))
		}
		if t.patching && unit != UnitDT && patched(e.Name) {
			return NewUnsupportedTimeUnitError(e.Name, e.Qubits, unit, `can only patch durations in "dt"`)
		}
	}

	if dt > 0 {
		t.dt = dt
	}
	var touched []key
	seen := map[key]bool{}
	for _, e := range entries {
		k := keyOf(e.Name, e.Qubits, e.Params)
		t.put(k, value{
			duration: e.Duration,
			unit:     unitOf(e),
			qubits:   slices.Clone(e.Qubits),
			params:   slices.Clone(e.Params),
		})
		if !seen[k] {
			seen[k] = true
			touched = append(touched, k)
		}
	}

	if !t.patching {
		return nil
	}
	for _, k := range touched {
		switch k.name {
		case "measure":
			t.patchMeasure(k)
		case "reset":
			t.patchReset(k)
		}
	}
	return nil
}

func unitOf(e Entry) string {
	if e.Unit == "" {
		return UnitDT
	}
	return e.Unit
}

func patched(name string) bool {
	return name == "measure" || name == "reset"
}

func (t *Table) put(k key, v value) {
	if _, ok := t.entries[k]; !ok {
		t.order = append(t.order, k)
	}
	t.entries[k] = v
}

func (t *Table) patchMeasure(k key) {
	v := t.entries[k]
	v.duration += MeasurePatchCycles
	t.entries[k] = v
	slog.Debug("patched measure duration",
		"qubits", v.qubits,
		"duration", v.duration,
	)
	t.patchReset(k.renamed("reset"))
}

// patchReset makes the reset on k as long as the measurement on the same key
// or, without one, extends the reset's own duration.
func (t *Table) patchReset(k key) {
	if m, ok := t.entries[k.renamed("measure")]; ok {
		t.put(k, value{duration: m.duration, unit: m.unit, qubits: m.qubits, params: m.params})
		return
	}
	v, ok := t.entries[k]
	if !ok {
		return
	}
	v.duration += MeasurePatchCycles
	t.entries[k] = v
}

// Lookup returns the duration of name on qubits with params in ticks. Keys
// are tried from most to least specific: (name, qubits, params), then
// (name, qubits), then name alone.
func (t *Table) Lookup(name string, qubits []int, params []float64) (int64, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	candidates := []key{
		keyOf(name, nonNil(qubits), nonNilF(params)),
		keyOf(name, nonNil(qubits), nil),
		keyOf(name, nil, nil),
	}
	for _, k := range candidates {
		v, ok := t.entries[k]
		if !ok {
			continue
		}
		return t.ticks(name, qubits, v)
	}
	return 0, NewDurationMissingError(name, qubits)
}

func (t *Table) ticks(name string, qubits []int, v value) (int64, error) {
	if v.unit == UnitDT {
		return int64(math.Round(v.duration)), nil
	}
	if t.dt <= 0 {
		return 0, NewUnsupportedTimeUnitError(name, qubits, v.unit, "tick length unknown, cannot convert seconds to dt")
	}
	return int64(math.Round(v.duration / t.dt)), nil
}

// Entries returns the table rows ordered by name, then by specificity, then
// by wires.
func (t *Table) Entries() []Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()

	keys := slices.Clone(t.order)
	slices.SortStableFunc(keys, func(a, b key) int {
		return cmp.Or(
			cmp.Compare(a.name, b.name),
			cmp.Compare(specificity(a), specificity(b)),
			cmp.Compare(a.qubits, b.qubits),
			cmp.Compare(a.params, b.params),
		)
	})
	out := make([]Entry, 0, len(keys))
	for _, k := range keys {
		v := t.entries[k]
		out = append(out, Entry{
			Name:     k.name,
			Qubits:   slices.Clone(v.qubits),
			Params:   slices.Clone(v.params),
			Duration: v.duration,
			Unit:     v.unit,
		})
	}
	return out
}

func specificity(k key) int {
	switch {
	case k.hasParams:
		return 2
	case k.hasQubits:
		return 1
	default:
		return 0
	}
}

func nonNil(xs []int) []int {
	if xs == nil {
		return []int{}
	}
	return xs
}

func nonNilF(xs []float64) []float64 {
	if xs == nil {
		return []float64{}
	}
	return xs
}

func joinInts(xs []int) string {
	parts := make([]string, len(xs))
	for i, x := range xs {
		parts[i] = strconv.Itoa(x)
	}
	return strings.Join(parts, ",")
}

func joinFloats(xs []float64) string {
	parts := make([]string, len(xs))
	for i, x := range xs {
		parts[i] = strconv.FormatFloat(x, 'g', -1, 64)
	}
	return strings.Join(parts, ",")
}
