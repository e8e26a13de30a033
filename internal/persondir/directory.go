package persondir

import (
	"context"
	"strings"
)

// Directory is the synchronous directory client the engine queries.
//
// Search runs a subtree search below base. When the server only returned part of the
// result, implementations return the entries they got together with an error wrapping
// ErrPartialResults. A missing base or DN is reported with an error wrapping
// ErrEntryNotFound.
type Directory interface {
	Search(ctx context.Context, base, filter string, attributes []string) ([]*Entry, error)
	LookupDN(ctx context.Context, dn string, attributes []string) (*Entry, error)
}

// Entry is one raw directory entry.
type Entry struct {
	// DN is the entry name as reported by the directory, possibly relative to the
	// directory's own base.
	DN         string
	Attributes []*EntryAttribute
}

// EntryAttribute holds the raw values of one attribute. Values are string or []byte.
type EntryAttribute struct {
	Name   string
	Values []any
}

// NewEntry builds an entry from string-valued attributes.
func NewEntry(dn string, attrs map[string][]string) *Entry {
	e := &Entry{DN: dn}
	for name, values := range attrs {
		vals := make([]any, len(values))
		for i, v := range values {
			vals[i] = v
		}
		e.Attributes = append(e.Attributes, &EntryAttribute{Name: name, Values: vals})
	}
	return e
}

// Values returns the values of the first attribute named name, ignoring case.
func (e *Entry) Values(name string) ([]any, bool) {
	for _, attr := range e.Attributes {
		if strings.EqualFold(attr.Name, name) {
			return attr.Values, true
		}
	}
	return nil, false
}
