package processors

import (
	"context"
	"regexp"

	"github.com/pmarasse/cas-persondir-ldap/internal/logging"
	"github.com/pmarasse/cas-persondir-ldap/internal/persondir"
)

// RegexReplaceConfig configures RegexReplace.
type RegexReplaceConfig struct {
	// KeyMatch selects attributes whose name contains a match.
	KeyMatch string `json:"key_match" mapstructure:"key_match" yaml:"key_match"`

	ValueMatch   string `json:"value_match" mapstructure:"value_match" yaml:"value_match"`
	ValueReplace string `json:"value_replace" mapstructure:"value_replace" yaml:"value_replace"`
}

// RegexReplace rewrites the string values of every attribute whose name matches KeyMatch.
type RegexReplace struct {
	keyPattern *regexp.Regexp
	values     *replacer
	logger     logging.Logger
}

// NewRegexReplace compiles both patterns and the replacement.
func NewRegexReplace(cfg RegexReplaceConfig, opts ...Option) (*RegexReplace, error) {
	const kind = "regex_replace"

	if err := applyDefaults(kind, &cfg); err != nil {
		return nil, err
	}
	if err := required(kind, "key_match", cfg.KeyMatch); err != nil {
		return nil, err
	}
	if err := required(kind, "value_match", cfg.ValueMatch); err != nil {
		return nil, err
	}

	keyPattern, err := regexp.Compile(cfg.KeyMatch)
	if err != nil {
		return nil, persondir.NewConfigError(kind+".key_match", "%v", err)
	}

	values, err := newReplacer(cfg.ValueMatch, cfg.ValueReplace)
	if err != nil {
		return nil, persondir.NewConfigError(kind+".value_match", "%v", err)
	}

	return &RegexReplace{
		keyPattern: keyPattern,
		values:     values,
		logger:     newOptions(opts).logger,
	}, nil
}

func (p *RegexReplace) Process(ctx context.Context, rec *persondir.Record) error {
	for _, name := range rec.Names() {
		if !p.keyPattern.MatchString(name) {
			continue
		}

		values, _ := rec.GetAll(name)
		if !p.values.replaceValues(values) {
			continue
		}

		p.logger.Trace(ctx, "Rewrote attribute values", map[string]any{"attribute": name})
		if err := rec.Set(name, values...); err != nil {
			return err
		}
	}
	return nil
}

func (p *RegexReplace) AttributeNames() []string {
	return nil
}

func (p *RegexReplace) String() string {
	return describe("RegexReplace", "key_match", p.keyPattern, "value_match", p.values.re)
}
