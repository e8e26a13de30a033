package processors

import (
	"context"
	"time"

	"github.com/pmarasse/cas-persondir-ldap/internal/logging"
	"github.com/pmarasse/cas-persondir-ldap/internal/persondir"
)

// DateAttribute is the attribute written by AddTodayDate.
const DateAttribute = "date"

// DefaultDateLayout renders like "Tue Oct 14 09:30:00 CEST 2025".
const DefaultDateLayout = "Mon Jan 02 15:04:05 MST 2006"

// AddTodayDateConfig configures AddTodayDate.
type AddTodayDateConfig struct {
	Layout string `json:"layout,omitempty" mapstructure:"layout" yaml:"layout" default:"Mon Jan 02 15:04:05 MST 2006"`
}

// AddTodayDate stores the current time under DateAttribute, replacing any value.
type AddTodayDate struct {
	layout string
	now    func() time.Time
	logger logging.Logger
}

// NewAddTodayDate creates an AddTodayDate processor.
func NewAddTodayDate(cfg AddTodayDateConfig, opts ...Option) (*AddTodayDate, error) {
	if err := applyDefaults("add_today_date", &cfg); err != nil {
		return nil, err
	}

	o := newOptions(opts)
	return &AddTodayDate{
		layout: cfg.Layout,
		now:    o.now,
		logger: o.logger,
	}, nil
}

func (p *AddTodayDate) Process(ctx context.Context, rec *persondir.Record) error {
	value := p.now().Format(p.layout)
	p.logger.Trace(ctx, "Adding date attribute", map[string]any{"value": value})
	return rec.Set(DateAttribute, value)
}

func (p *AddTodayDate) AttributeNames() []string {
	return []string{DateAttribute}
}

func (p *AddTodayDate) String() string {
	return describe("AddTodayDate", "layout", p.layout)
}
