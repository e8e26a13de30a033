package processors

import (
	"context"
	"regexp"

	"github.com/pmarasse/cas-persondir-ldap/internal/logging"
	"github.com/pmarasse/cas-persondir-ldap/internal/persondir"
)

// RegexValueDeleteConfig configures RegexValueDelete.
type RegexValueDeleteConfig struct {
	// Key is compared to attribute names ignoring case.
	Key string `json:"key" mapstructure:"key" yaml:"key"`

	// ValueMatch must match a whole value for it to be deleted.
	ValueMatch string `json:"value_match" mapstructure:"value_match" yaml:"value_match"`

	// CaseSensitive applies to ValueMatch only.
	CaseSensitive *bool `json:"case_sensitive,omitempty" mapstructure:"case_sensitive" yaml:"case_sensitive" default:"true"`
}

// RegexValueDelete removes the values of one attribute that fully match a pattern.
type RegexValueDelete struct {
	key     string
	pattern *regexp.Regexp
	logger  logging.Logger
}

// NewRegexValueDelete compiles ValueMatch anchored at both ends.
func NewRegexValueDelete(cfg RegexValueDeleteConfig, opts ...Option) (*RegexValueDelete, error) {
	const kind = "regex_value_delete"

	if err := applyDefaults(kind, &cfg); err != nil {
		return nil, err
	}
	if err := required(kind, "key", cfg.Key); err != nil {
		return nil, err
	}
	if err := required(kind, "value_match", cfg.ValueMatch); err != nil {
		return nil, err
	}

	pattern, err := regexp.Compile(valuePattern(`^(?:`+cfg.ValueMatch+`)$`, boolValue(cfg.CaseSensitive)))
	if err != nil {
		return nil, persondir.NewConfigError(kind+".value_match", "%v", err)
	}

	return &RegexValueDelete{
		key:     cfg.Key,
		pattern: pattern,
		logger:  newOptions(opts).logger,
	}, nil
}

func (p *RegexValueDelete) Process(ctx context.Context, rec *persondir.Record) error {
	name, ok := findKey(rec, p.key)
	if !ok {
		return nil
	}

	values, _ := rec.GetAll(name)
	kept := make([]any, 0, len(values))
	for _, v := range values {
		if s, isString := v.(string); isString && p.pattern.MatchString(s) {
			continue
		}
		kept = append(kept, v)
	}

	deleted := len(values) - len(kept)
	p.logger.Debug(ctx, "Deleting matching values", map[string]any{
		"attribute": name,
		"deleted":   deleted,
	})
	if deleted == 0 {
		return nil
	}
	return rec.Set(name, kept...)
}

func (p *RegexValueDelete) AttributeNames() []string {
	return nil
}

func (p *RegexValueDelete) String() string {
	return describe("RegexValueDelete", "key", p.key, "value_match", p.pattern)
}

// RegexValueReplaceConfig configures RegexValueReplace.
type RegexValueReplaceConfig struct {
	// Key is compared to attribute names ignoring case.
	Key string `json:"key" mapstructure:"key" yaml:"key"`

	ValueMatch   string `json:"value_match" mapstructure:"value_match" yaml:"value_match"`
	ValueReplace string `json:"value_replace" mapstructure:"value_replace" yaml:"value_replace"`

	// CaseSensitive applies to ValueMatch only.
	CaseSensitive *bool `json:"case_sensitive,omitempty" mapstructure:"case_sensitive" yaml:"case_sensitive" default:"true"`
}

// RegexValueReplace rewrites the string values of one attribute.
type RegexValueReplace struct {
	key    string
	values *replacer
	logger logging.Logger
}

// NewRegexValueReplace compiles ValueMatch and the replacement.
func NewRegexValueReplace(cfg RegexValueReplaceConfig, opts ...Option) (*RegexValueReplace, error) {
	const kind = "regex_value_replace"

	if err := applyDefaults(kind, &cfg); err != nil {
		return nil, err
	}
	if err := required(kind, "key", cfg.Key); err != nil {
		return nil, err
	}
	if err := required(kind, "value_match", cfg.ValueMatch); err != nil {
		return nil, err
	}

	values, err := newReplacer(valuePattern(cfg.ValueMatch, boolValue(cfg.CaseSensitive)), cfg.ValueReplace)
	if err != nil {
		return nil, persondir.NewConfigError(kind+".value_match", "%v", err)
	}

	return &RegexValueReplace{
		key:    cfg.Key,
		values: values,
		logger: newOptions(opts).logger,
	}, nil
}

func (p *RegexValueReplace) Process(ctx context.Context, rec *persondir.Record) error {
	name, ok := findKey(rec, p.key)
	if !ok {
		return nil
	}

	values, _ := rec.GetAll(name)
	if !p.values.replaceValues(values) {
		return nil
	}

	p.logger.Debug(ctx, "Rewrote attribute values", map[string]any{"attribute": name})
	return rec.Set(name, values...)
}

func (p *RegexValueReplace) AttributeNames() []string {
	return nil
}

func (p *RegexValueReplace) String() string {
	return describe("RegexValueReplace", "key", p.key, "value_match", p.values.re)
}

func valuePattern(pattern string, caseSensitive bool) string {
	if caseSensitive {
		return pattern
	}
	return `(?i)` + pattern
}
