package persondir

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/pmarasse/cas-persondir-ldap/internal/logging"
)

// dnOnlyAttributes is the attribute list of the first phase of a two-phase lookup.
var dnOnlyAttributes = []string{"dn"}

// Engine resolves one identifier to at most one locked Record.
//
// An Engine is safe for concurrent use once Init has succeeded. The configuration and
// processor chain are copied at construction and never modified afterwards.
type Engine struct {
	cfg        Config
	dir        Directory
	processors []Processor
	logger     logging.Logger

	initOnce  sync.Once
	initErr   error
	requested []string
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l logging.Logger) Option {
	return func(e *Engine) {
		e.logger = logging.OrNop(l)
	}
}

// New creates an engine. Validation is deferred to Init.
func New(cfg Config, dir Directory, processors []Processor, opts ...Option) *Engine {
	e := &Engine{
		cfg:        cfg.clone(),
		dir:        dir,
		processors: slices.Clone(processors),
		logger:     logging.Nop{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Config returns a copy of the engine configuration.
func (e *Engine) Config() Config {
	return e.cfg.clone()
}

// Init validates the engine exactly once. Later calls return the first result, so an
// engine that failed to initialise stays unusable.
func (e *Engine) Init(ctx context.Context) error {
	e.initOnce.Do(func() {
		e.initErr = e.init(ctx)
	})
	return e.initErr
}

func (e *Engine) init(ctx context.Context) error {
	if e.dir == nil {
		return ErrNoDirectory
	}

	if err := e.cfg.Validate(); err != nil {
		return err
	}

	for i, p := range e.processors {
		if p == nil {
			return NewConfigError("processors", "processor %d is nil", i)
		}
	}

	e.requested = e.cfg.RequestedAttributes()

	e.logger.Debug(ctx, "Initialized person attribute engine", map[string]any{
		"base_dn":              e.cfg.BaseDN,
		"filter":               e.cfg.filter(),
		"requested_attributes": e.requested,
		"dn_attribute":         e.cfg.DNAttribute,
		"fetch_direct_dn":      e.cfg.FetchDirectDN,
		"processor_count":      len(e.processors),
	})

	return nil
}

// Lookup resolves identifier. It returns (nil, nil) when nothing matches.
func (e *Engine) Lookup(ctx context.Context, identifier string) (*Record, error) {
	if err := e.Init(ctx); err != nil {
		return nil, err
	}

	filter := e.cfg.BuildFilter(identifier)

	e.logger.Debug(ctx, "Searching person", map[string]any{
		"filter":               filter,
		"requested_attributes": e.requested,
	})

	var (
		entry *Entry
		err   error
	)
	if e.cfg.FetchDirectDN {
		entry, err = e.fetchByDN(ctx, filter)
	} else {
		entry, err = e.fetchDirect(ctx, filter)
	}
	if err != nil {
		return nil, err
	}
	if entry == nil {
		e.logger.Debug(ctx, "No entry found", map[string]any{"filter": filter})
		return nil, nil
	}

	rec, err := e.buildRecord(ctx, identifier, entry)
	if err != nil {
		return nil, err
	}

	if err := e.runProcessors(ctx, rec); err != nil {
		return nil, err
	}

	rec.Lock()
	return rec, nil
}

func (e *Engine) fetchDirect(ctx context.Context, filter string) (*Entry, error) {
	entries, err := e.search(ctx, filter, e.requested)
	if err != nil || len(entries) == 0 {
		return nil, err
	}
	return entries[0], nil
}

func (e *Engine) fetchByDN(ctx context.Context, filter string) (*Entry, error) {
	entries, err := e.search(ctx, filter, dnOnlyAttributes)
	if err != nil || len(entries) == 0 {
		return nil, err
	}

	dn := entries[0].DN
	e.logger.Debug(ctx, "Entry DN found, fetching attributes", map[string]any{"dn": dn})

	entry, err := e.dir.LookupDN(ctx, dn, e.requested)
	if err != nil {
		switch e.classify(ctx, err) {
		case outcomeNotFound:
			return nil, nil
		case outcomeFailed:
			return nil, fmt.Errorf("looking up %q: %w", dn, err)
		}
	}
	return entry, nil
}

func (e *Engine) search(ctx context.Context, filter string, attributes []string) ([]*Entry, error) {
	entries, err := e.dir.Search(ctx, e.cfg.BaseDN, filter, attributes)
	if err != nil {
		switch e.classify(ctx, err) {
		case outcomeNotFound:
			return nil, nil
		case outcomeFailed:
			return nil, fmt.Errorf("searching %q: %w", filter, err)
		}
	}
	return entries, nil
}

type outcome int

const (
	outcomeFailed outcome = iota
	outcomeNotFound
	outcomeUsable
)

// classify applies the not-found and partial result policies to a directory error.
func (e *Engine) classify(ctx context.Context, err error) outcome {
	switch {
	case errors.Is(err, ErrEntryNotFound):
		e.logger.Debug(ctx, "Directory reported no such entry", map[string]any{"error": err.Error()})
		return outcomeNotFound
	case errors.Is(err, ErrPartialResults) && e.cfg.IgnorePartialResults:
		e.logger.Debug(ctx, "Ignoring partial results", map[string]any{"error": err.Error()})
		return outcomeUsable
	default:
		return outcomeFailed
	}
}

func (e *Engine) buildRecord(ctx context.Context, identifier string, entry *Entry) (*Record, error) {
	rec := NewRecord(identifier)

	if e.cfg.DNAttribute != "" {
		dn := e.cfg.ComposeDN(entry.DN)
		e.logger.Trace(ctx, "Adding computed DN attribute", map[string]any{
			"attribute": e.cfg.DNAttribute,
			"dn":        dn,
		})
		if err := rec.Set(e.cfg.DNAttribute, dn); err != nil {
			return nil, err
		}
	}

	for _, raw := range e.requested {
		values, ok := entry.Values(raw)
		if !ok {
			continue
		}
		if err := rec.Set(e.cfg.canonicalName(raw), values...); err != nil {
			return nil, fmt.Errorf("mapping attribute %q: %w", raw, err)
		}
	}

	return rec, nil
}

func (e *Engine) runProcessors(ctx context.Context, rec *Record) error {
	for i, p := range e.processors {
		if err := p.Process(ctx, rec); err != nil {
			perr := &ProcessorError{Index: i, Name: processorName(p), Cause: err}
			e.logger.Error(ctx, "Processor failed", map[string]any{
				"identifier": rec.ID(),
				"index":      i,
				"processor":  perr.Name,
				"error":      err.Error(),
			})
			return perr
		}
	}
	return nil
}

// PossibleNames returns every attribute name a record from this engine may carry,
// sorted. It returns nil if the engine failed to initialise.
func (e *Engine) PossibleNames(ctx context.Context) []string {
	if err := e.Init(ctx); err != nil {
		e.logger.Error(ctx, "Cannot compute possible attribute names", map[string]any{"error": err.Error()})
		return nil
	}

	names := make(map[string]struct{}, len(e.requested))
	for _, raw := range e.requested {
		names[e.cfg.canonicalName(raw)] = struct{}{}
	}

	for _, p := range e.processors {
		for _, name := range p.AttributeNames() {
			names[name] = struct{}{}
		}
	}

	if dn := e.cfg.DNAttribute; dn != "" {
		if _, exists := names[dn]; exists {
			e.logger.Warn(ctx, "DN attribute collides with a queried, mapped or processor attribute", map[string]any{
				"dn_attribute": dn,
			})
		}
		names[dn] = struct{}{}
	}

	return slices.Sorted(maps.Keys(names))
}
