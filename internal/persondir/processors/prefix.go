package processors

import (
	"context"
	"maps"
	"slices"
	"strings"

	"github.com/pmarasse/cas-persondir-ldap/internal/logging"
	"github.com/pmarasse/cas-persondir-ldap/internal/persondir"
)

// PrefixRedistributeConfig configures PrefixRedistribute.
type PrefixRedistributeConfig struct {
	// Attribute is the scanned attribute.
	Attribute string `json:"attribute" mapstructure:"attribute" yaml:"attribute"`

	// Prefixes maps a value prefix to the attribute receiving the stripped value.
	Prefixes map[string]string `json:"prefixes" mapstructure:"prefixes" yaml:"prefixes"`

	// MoveValues removes matched values from Attribute.
	MoveValues *bool `json:"move_values,omitempty" mapstructure:"move_values" yaml:"move_values" default:"true"`
}

// PrefixRedistribute moves or copies prefixed values of one attribute into other
// attributes, for example "web-Editor" in memberOf becoming "Editor" in drupal.
type PrefixRedistribute struct {
	attribute string
	prefixes  []string
	targets   map[string]string
	move      bool
	logger    logging.Logger
}

// NewPrefixRedistribute validates cfg and creates the processor.
func NewPrefixRedistribute(cfg PrefixRedistributeConfig, opts ...Option) (*PrefixRedistribute, error) {
	const kind = "prefix_redistribute"

	if err := applyDefaults(kind, &cfg); err != nil {
		return nil, err
	}
	if err := required(kind, "attribute", cfg.Attribute); err != nil {
		return nil, err
	}
	if cfg.Prefixes == nil {
		return nil, persondir.NewConfigError(kind+".prefixes", "is required")
	}
	for prefix, target := range cfg.Prefixes {
		if target == "" {
			return nil, persondir.NewConfigError(kind+".prefixes", "prefix %q has no target attribute", prefix)
		}
		if prefix == cfg.Attribute {
			return nil, persondir.NewConfigError(kind+".prefixes", "prefix %q cannot be the scanned attribute", prefix)
		}
		if target == cfg.Attribute {
			return nil, persondir.NewConfigError(kind+".prefixes", "target %q cannot be the scanned attribute", target)
		}
	}

	return &PrefixRedistribute{
		attribute: cfg.Attribute,
		prefixes:  slices.Sorted(maps.Keys(cfg.Prefixes)),
		targets:   maps.Clone(cfg.Prefixes),
		move:      boolValue(cfg.MoveValues),
		logger:    newOptions(opts).logger,
	}, nil
}

func (p *PrefixRedistribute) Process(ctx context.Context, rec *persondir.Record) error {
	values, ok := rec.GetAll(p.attribute)
	if !ok {
		return nil
	}

	redistributed := make(map[string][]any)
	kept := make([]any, 0, len(values))

	for _, v := range values {
		s, isString := v.(string)
		matched := false
		if isString {
			for _, prefix := range p.prefixes {
				if rest, found := strings.CutPrefix(s, prefix); found {
					target := p.targets[prefix]
					redistributed[target] = append(redistributed[target], rest)
					matched = true
				}
			}
		}
		if !matched || !p.move {
			kept = append(kept, v)
		}
	}

	for _, target := range slices.Sorted(maps.Keys(redistributed)) {
		p.logger.Debug(ctx, "Redistributing prefixed values", map[string]any{
			"source": p.attribute,
			"target": target,
			"count":  len(redistributed[target]),
			"moved":  p.move,
		})
		if err := rec.Set(target, redistributed[target]...); err != nil {
			return err
		}
	}

	if p.move && len(kept) != len(values) {
		return rec.Set(p.attribute, kept...)
	}
	return nil
}

func (p *PrefixRedistribute) AttributeNames() []string {
	names := make(map[string]struct{}, len(p.targets))
	for _, target := range p.targets {
		names[target] = struct{}{}
	}
	return slices.Sorted(maps.Keys(names))
}

func (p *PrefixRedistribute) String() string {
	return describe("PrefixRedistribute", "attribute", p.attribute, "move", p.move)
}
