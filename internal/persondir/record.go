package persondir

import (
	"bytes"
	"fmt"
	"maps"
	"slices"
	"strings"
)

// Record holds the attributes resolved for one identifier.
//
// A Record is mutable until Lock is called. After that every mutator returns
// ErrRecordLocked and the record can be read concurrently. Accessors never hand
// out the internal slices, so the frozen state cannot be bypassed.
type Record struct {
	id     string
	attrs  map[string][]any
	locked bool
}

// NewRecord creates an empty, unlocked record for id.
func NewRecord(id string) *Record {
	return &Record{
		id:    id,
		attrs: make(map[string][]any),
	}
}

// NewRecordFromMap creates an unlocked record populated from attrs.
func NewRecordFromMap(id string, attrs map[string][]any) (*Record, error) {
	r := NewRecord(id)
	for name, values := range attrs {
		if err := r.Set(name, values...); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// ID returns the identifier the record was resolved from.
func (r *Record) ID() string {
	return r.id
}

// Len returns the number of attributes.
func (r *Record) Len() int {
	return len(r.attrs)
}

// Has reports whether name is present, even with no values.
func (r *Record) Has(name string) bool {
	_, ok := r.attrs[name]
	return ok
}

// Names returns the attribute names in sorted order.
func (r *Record) Names() []string {
	return slices.Sorted(maps.Keys(r.attrs))
}

// Get returns the first value of name.
func (r *Record) Get(name string) (any, bool) {
	values, ok := r.attrs[name]
	if !ok || len(values) == 0 {
		return nil, false
	}
	return cloneValue(values[0]), true
}

// GetString returns the first value of name when it is a string.
func (r *Record) GetString(name string) (string, bool) {
	v, ok := r.Get(name)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// GetAll returns a copy of every value of name.
func (r *Record) GetAll(name string) ([]any, bool) {
	values, ok := r.attrs[name]
	if !ok {
		return nil, false
	}
	return cloneValues(values), true
}

// Map returns a deep copy of all attributes.
func (r *Record) Map() map[string][]any {
	out := make(map[string][]any, len(r.attrs))
	for name, values := range r.attrs {
		out[name] = cloneValues(values)
	}
	return out
}

// Set replaces the values of name.
func (r *Record) Set(name string, values ...any) error {
	if err := r.checkMutable(); err != nil {
		return err
	}
	if err := validateValues(values); err != nil {
		return fmt.Errorf("attribute %q: %w", name, err)
	}
	r.attrs[name] = cloneValues(values)
	if r.attrs[name] == nil {
		r.attrs[name] = []any{}
	}
	return nil
}

// Append adds values at the end of name, creating it when absent.
func (r *Record) Append(name string, values ...any) error {
	if err := r.checkMutable(); err != nil {
		return err
	}
	if err := validateValues(values); err != nil {
		return fmt.Errorf("attribute %q: %w", name, err)
	}
	r.attrs[name] = append(r.attrs[name], cloneValues(values)...)
	if r.attrs[name] == nil {
		r.attrs[name] = []any{}
	}
	return nil
}

// Delete removes name. Deleting an absent attribute is not an error.
func (r *Record) Delete(name string) error {
	if err := r.checkMutable(); err != nil {
		return err
	}
	delete(r.attrs, name)
	return nil
}

// SetValue replaces the value at index i of name.
func (r *Record) SetValue(name string, i int, value any) error {
	if err := r.checkMutable(); err != nil {
		return err
	}
	values, ok := r.attrs[name]
	if !ok || i < 0 || i >= len(values) {
		return fmt.Errorf("attribute %q has no value at index %d", name, i)
	}
	if err := validateValues([]any{value}); err != nil {
		return fmt.Errorf("attribute %q: %w", name, err)
	}
	values[i] = cloneValue(value)
	return nil
}

// RemoveValue removes the value at index i of name.
func (r *Record) RemoveValue(name string, i int) error {
	if err := r.checkMutable(); err != nil {
		return err
	}
	values, ok := r.attrs[name]
	if !ok || i < 0 || i >= len(values) {
		return fmt.Errorf("attribute %q has no value at index %d", name, i)
	}
	r.attrs[name] = slices.Delete(values, i, i+1)
	return nil
}

// Lock freezes the record. Locking twice is a no-op.
func (r *Record) Lock() {
	r.locked = true
}

// IsLocked reports whether Lock has been called.
func (r *Record) IsLocked() bool {
	return r.locked
}

// String renders the record for debug logging.
func (r *Record) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Record[%s]{", r.id)
	for i, name := range r.Names() {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s=%v", name, r.attrs[name])
	}
	b.WriteString("}")
	return b.String()
}

func (r *Record) checkMutable() error {
	if r.locked {
		return ErrRecordLocked
	}
	return nil
}

func validateValues(values []any) error {
	for _, v := range values {
		switch v.(type) {
		case string, []byte:
		default:
			return fmt.Errorf("%w, got %T", ErrInvalidValue, v)
		}
	}
	return nil
}

func cloneValues(values []any) []any {
	if values == nil {
		return nil
	}
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	if b, ok := v.([]byte); ok {
		return bytes.Clone(b)
	}
	return v
}
