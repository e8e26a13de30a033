package processors

import (
	"fmt"
	"strings"
	"time"

	"github.com/creasty/defaults"

	"github.com/pmarasse/cas-persondir-ldap/internal/logging"
	"github.com/pmarasse/cas-persondir-ldap/internal/persondir"
)

// Option configures collaborators shared by every processor.
type Option func(*options)

type options struct {
	logger logging.Logger
	now    func() time.Time
}

// WithLogger sets the logger used for debug traces. The default discards everything.
func WithLogger(l logging.Logger) Option {
	return func(o *options) {
		o.logger = logging.OrNop(l)
	}
}

// WithClock replaces time.Now. Only AddTodayDate reads the clock.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

func newOptions(opts []Option) options {
	o := options{
		logger: logging.Nop{},
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func applyDefaults(processor string, cfg any) error {
	if err := defaults.Set(cfg); err != nil {
		return persondir.NewConfigError(processor, "applying defaults: %v", err)
	}
	return nil
}

func required(processor, field, value string) error {
	if value == "" {
		return persondir.NewConfigError(processor+"."+field, "is required")
	}
	return nil
}

// findKey returns the first attribute name equal to key ignoring case. Names are
// visited in sorted order so duplicates differing only by case resolve the same way
// on every call.
func findKey(rec *persondir.Record, key string) (string, bool) {
	for _, name := range rec.Names() {
		if strings.EqualFold(name, key) {
			return name, true
		}
	}
	return "", false
}

func boolValue(p *bool) bool {
	return p != nil && *p
}

func describe(kind string, fields ...any) string {
	var b strings.Builder
	b.WriteString(kind)
	b.WriteByte('(')
	for i := 0; i+1 < len(fields); i += 2 {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%v=%q", fields[i], fmt.Sprint(fields[i+1]))
	}
	b.WriteByte(')')
	return b.String()
}
