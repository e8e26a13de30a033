package ldap

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-ldap/ldap/v3"

	"github.com/pmarasse/cas-persondir-ldap/internal/logging"
	"github.com/pmarasse/cas-persondir-ldap/internal/persondir"
)

// Directory adapts a Client to persondir.Directory.
//
// Search bases and lookup DNs are relative to the directory base, and the
// DNs of returned entries are made relative to it again, so that a
// persondir DN base can rebuild absolute names.
type Directory struct {
	client    Client
	baseDN    string
	binary    map[string]struct{}
	timeLimit time.Duration
	logger    logging.Logger
}

// DirectoryOption configures a Directory.
type DirectoryOption func(*Directory)

// WithBinaryAttributes lists the attributes whose values are kept as raw bytes.
func WithBinaryAttributes(names ...string) DirectoryOption {
	return func(d *Directory) {
		for _, name := range names {
			d.binary[strings.ToLower(name)] = struct{}{}
		}
	}
}

// WithTimeLimit sets the server-side time limit of every search.
func WithTimeLimit(limit time.Duration) DirectoryOption {
	return func(d *Directory) {
		d.timeLimit = limit
	}
}

// WithDirectoryLogger sets the logger.
func WithDirectoryLogger(l logging.Logger) DirectoryOption {
	return func(d *Directory) {
		d.logger = logging.OrNop(l)
	}
}

// NewDirectory returns a Directory searching below baseDN through client.
func NewDirectory(client Client, baseDN string, opts ...DirectoryOption) *Directory {
	d := &Directory{
		client: client,
		baseDN: strings.TrimSpace(baseDN),
		binary: make(map[string]struct{}),
		logger: logging.Nop{},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

var _ persondir.Directory = (*Directory)(nil)

// Search runs a subtree search below base, relative to the directory base.
func (d *Directory) Search(ctx context.Context, base, filter string, attributes []string) ([]*persondir.Entry, error) {
	filter, err := NormalizeFilter(filter)
	if err != nil {
		return nil, err
	}

	return d.run(ctx, &SearchRequest{
		BaseDN:       d.absoluteDN(base),
		Scope:        ScopeWholeSubtree,
		Filter:       filter,
		Attributes:   attributes,
		TimeLimit:    d.timeLimit,
		DerefAliases: NeverDerefAliases,
	})
}

// LookupDN reads the entry named dn, relative to the directory base.
func (d *Directory) LookupDN(ctx context.Context, dn string, attributes []string) (*persondir.Entry, error) {
	entries, err := d.run(ctx, &SearchRequest{
		BaseDN:       d.absoluteDN(dn),
		Scope:        ScopeBaseObject,
		Filter:       "(objectClass=*)",
		Attributes:   attributes,
		SizeLimit:    1,
		TimeLimit:    d.timeLimit,
		DerefAliases: NeverDerefAliases,
	})

	var entry *persondir.Entry
	if len(entries) > 0 {
		entry = entries[0]
	}
	if err != nil {
		return entry, err
	}
	if entry == nil {
		return nil, fmt.Errorf("%w: %s", persondir.ErrEntryNotFound, dn)
	}
	return entry, nil
}

// absoluteDN joins dn with the directory base, unless dn already lies below it.
func (d *Directory) absoluteDN(dn string) string {
	if d.baseDN != "" && dn != "" {
		if below, err := IsDNChild(dn, d.baseDN); err == nil && below {
			return strings.TrimSpace(dn)
		}
	}
	return JoinDN(dn, d.baseDN)
}

func (d *Directory) run(ctx context.Context, req *SearchRequest) ([]*persondir.Entry, error) {
	result, err := d.client.Search(ctx, req)

	var entries []*persondir.Entry
	if result != nil {
		entries = make([]*persondir.Entry, 0, len(result.Entries))
		for _, e := range result.Entries {
			entries = append(entries, d.convert(e))
		}
	}

	switch {
	case err == nil:
		return entries, nil
	case IsPartialResultError(err):
		d.logger.Debug(ctx, "Incomplete search result", map[string]any{
			"base_dn":       req.BaseDN,
			"entries_found": len(entries),
		})
		return entries, fmt.Errorf("%w: %w", persondir.ErrPartialResults, err)
	case IsNotFoundError(err):
		return nil, fmt.Errorf("%w: %w", persondir.ErrEntryNotFound, err)
	default:
		return nil, err
	}
}

// convert copies e, keeping configured binary attributes as bytes.
func (d *Directory) convert(e *ldap.Entry) *persondir.Entry {
	out := &persondir.Entry{
		DN:         RelativeDN(e.DN, d.baseDN),
		Attributes: make([]*persondir.EntryAttribute, 0, len(e.Attributes)),
	}

	for _, attr := range e.Attributes {
		var values []any
		if _, ok := d.binary[strings.ToLower(attr.Name)]; ok {
			values = make([]any, len(attr.ByteValues))
			for i, v := range attr.ByteValues {
				values[i] = v
			}
		} else {
			values = make([]any, len(attr.Values))
			for i, v := range attr.Values {
				values[i] = v
			}
		}
		out.Attributes = append(out.Attributes, &persondir.EntryAttribute{Name: attr.Name, Values: values})
	}

	return out
}
