package processors

import (
	"fmt"
	"strings"

	"github.com/pmarasse/cas-persondir-ldap/internal/persondir"
)

// Processor type names accepted by Build.
const (
	TypeAddTodayDate       = "add_today_date"
	TypePrefixRedistribute = "prefix_redistribute"
	TypeRegexReplace       = "regex_replace"
	TypeRegexValueDelete   = "regex_value_delete"
	TypeRegexValueReplace  = "regex_value_replace"
	TypeUUIDToString       = "uuid_to_string"
	TypeSIDToString        = "sid_to_string"
)

var typeAliases = map[string]string{
	"attribute_value_to_attribute": TypePrefixRedistribute,
	"uuid_binary_to_string":        TypeUUIDToString,
}

// Types lists the canonical processor type names.
func Types() []string {
	return []string{
		TypeAddTodayDate,
		TypePrefixRedistribute,
		TypeRegexReplace,
		TypeRegexValueDelete,
		TypeRegexValueReplace,
		TypeUUIDToString,
		TypeSIDToString,
	}
}

// Spec is the declarative form of one processor, as found in configuration files and
// Terraform blocks. Only the fields relevant to Type are read.
type Spec struct {
	Type string `json:"type" mapstructure:"type" yaml:"type"`

	// add_today_date
	Layout string `json:"layout,omitempty" mapstructure:"layout" yaml:"layout,omitempty"`

	// prefix_redistribute
	Attribute  string            `json:"attribute,omitempty" mapstructure:"attribute" yaml:"attribute,omitempty"`
	Prefixes   map[string]string `json:"prefixes,omitempty" mapstructure:"prefixes" yaml:"prefixes,omitempty"`
	MoveValues *bool             `json:"move_values,omitempty" mapstructure:"move_values" yaml:"move_values,omitempty"`

	// regex_replace, regex_value_delete, regex_value_replace
	Key           string `json:"key,omitempty" mapstructure:"key" yaml:"key,omitempty"`
	KeyMatch      string `json:"key_match,omitempty" mapstructure:"key_match" yaml:"key_match,omitempty"`
	ValueMatch    string `json:"value_match,omitempty" mapstructure:"value_match" yaml:"value_match,omitempty"`
	ValueReplace  string `json:"value_replace,omitempty" mapstructure:"value_replace" yaml:"value_replace,omitempty"`
	CaseSensitive *bool  `json:"case_sensitive,omitempty" mapstructure:"case_sensitive" yaml:"case_sensitive,omitempty"`

	// uuid_to_string, sid_to_string
	Source       string `json:"source,omitempty" mapstructure:"source" yaml:"source,omitempty"`
	Target       string `json:"target,omitempty" mapstructure:"target" yaml:"target,omitempty"`
	Strict       bool   `json:"strict,omitempty" mapstructure:"strict" yaml:"strict,omitempty"`
	DeleteSource *bool  `json:"delete_source,omitempty" mapstructure:"delete_source" yaml:"delete_source,omitempty"`
	MixedEndian  bool   `json:"mixed_endian,omitempty" mapstructure:"mixed_endian" yaml:"mixed_endian,omitempty"`
}

// NormalizeType returns the canonical name for a processor type, ignoring case and
// accepting legacy aliases.
func NormalizeType(t string) (string, bool) {
	t = strings.ToLower(strings.TrimSpace(t))
	if alias, ok := typeAliases[t]; ok {
		return alias, true
	}
	for _, known := range Types() {
		if t == known {
			return t, true
		}
	}
	return "", false
}

// Build creates the processor described by spec.
func Build(spec Spec, opts ...Option) (persondir.Processor, error) {
	kind, ok := NormalizeType(spec.Type)
	if !ok {
		return nil, persondir.NewConfigError("processors.type", "unknown processor type %q, expected one of %s",
			spec.Type, strings.Join(Types(), ", "))
	}

	var (
		p   persondir.Processor
		err error
	)
	switch kind {
	case TypeAddTodayDate:
		p, err = asProcessor(NewAddTodayDate(AddTodayDateConfig{Layout: spec.Layout}, opts...))
	case TypePrefixRedistribute:
		p, err = asProcessor(NewPrefixRedistribute(PrefixRedistributeConfig{
			Attribute:  spec.Attribute,
			Prefixes:   spec.Prefixes,
			MoveValues: spec.MoveValues,
		}, opts...))
	case TypeRegexReplace:
		p, err = asProcessor(NewRegexReplace(RegexReplaceConfig{
			KeyMatch:     spec.KeyMatch,
			ValueMatch:   spec.ValueMatch,
			ValueReplace: spec.ValueReplace,
		}, opts...))
	case TypeRegexValueDelete:
		p, err = asProcessor(NewRegexValueDelete(RegexValueDeleteConfig{
			Key:           spec.Key,
			ValueMatch:    spec.ValueMatch,
			CaseSensitive: spec.CaseSensitive,
		}, opts...))
	case TypeRegexValueReplace:
		p, err = asProcessor(NewRegexValueReplace(RegexValueReplaceConfig{
			Key:           spec.Key,
			ValueMatch:    spec.ValueMatch,
			ValueReplace:  spec.ValueReplace,
			CaseSensitive: spec.CaseSensitive,
		}, opts...))
	case TypeUUIDToString:
		p, err = asProcessor(NewUUIDToString(UUIDToStringConfig{
			BinaryConversionConfig: spec.binaryConversion(),
			MixedEndian:            spec.MixedEndian,
		}, opts...))
	case TypeSIDToString:
		p, err = asProcessor(NewSIDToString(spec.binaryConversion(), opts...))
	}
	return p, err
}

// asProcessor keeps a failed constructor from yielding a non-nil interface around a nil pointer.
func asProcessor(p persondir.Processor, err error) (persondir.Processor, error) {
	if err != nil {
		return nil, err
	}
	return p, nil
}

// BuildChain builds specs in order. The error names the failing position.
func BuildChain(specs []Spec, opts ...Option) ([]persondir.Processor, error) {
	chain := make([]persondir.Processor, 0, len(specs))
	for i, spec := range specs {
		p, err := Build(spec, opts...)
		if err != nil {
			return nil, fmt.Errorf("processor %d (%s): %w", i, spec.Type, err)
		}
		chain = append(chain, p)
	}
	return chain, nil
}

func (s Spec) binaryConversion() BinaryConversionConfig {
	return BinaryConversionConfig{
		Source:       s.Source,
		Target:       s.Target,
		Strict:       s.Strict,
		DeleteSource: s.DeleteSource,
	}
}
