package persondir

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/creasty/defaults"
	"github.com/go-ldap/ldap/v3"
)

// Placeholder is substituted with the queried identifier in Config.Filter.
const Placeholder = "{0}"

// DefaultFilter is used when Config.Filter is empty.
const DefaultFilter = "(uid={0})"

// Config describes how one identifier is resolved and shaped.
type Config struct {
	// BaseDN is the search base. Empty means the directory root.
	BaseDN string `json:"base_dn,omitempty" mapstructure:"base_dn" yaml:"base_dn"`

	// DNBase is joined after the entry DN when computing DNAttribute.
	DNBase string `json:"dn_base,omitempty" mapstructure:"dn_base" yaml:"dn_base"`

	// Filter is the search filter. Every {0} is replaced by the identifier verbatim:
	// no escaping is applied, so identifiers containing filter metacharacters change
	// the meaning of the filter.
	Filter string `json:"filter,omitempty" mapstructure:"filter" yaml:"filter" default:"(uid={0})"`

	// Attributes are requested in addition to the AttributeMapping keys.
	Attributes []string `json:"attributes,omitempty" mapstructure:"attributes" yaml:"attributes"`

	// AttributeMapping renames raw attributes. Several raw names may share a target.
	AttributeMapping map[string]string `json:"attribute_mapping,omitempty" mapstructure:"attribute_mapping" yaml:"attribute_mapping"`

	// DNAttribute, when set, receives the computed entry DN.
	DNAttribute string `json:"dn_attribute,omitempty" mapstructure:"dn_attribute" yaml:"dn_attribute"`

	// FetchDirectDN resolves the DN first and then reads the entry by DN. Some
	// directories only return constructed attributes, such as tokenGroups, that way.
	FetchDirectDN bool `json:"fetch_direct_dn,omitempty" mapstructure:"fetch_direct_dn" yaml:"fetch_direct_dn"`

	// IgnorePartialResults treats referral-truncated searches as complete.
	IgnorePartialResults bool `json:"ignore_partial_results" mapstructure:"ignore_partial_results" yaml:"ignore_partial_results" default:"true"`

	// BinaryAttributes are returned as []byte instead of string.
	BinaryAttributes []string `json:"binary_attributes,omitempty" mapstructure:"binary_attributes" yaml:"binary_attributes" default:"[\"objectGUID\",\"objectSid\"]"`
}

// DefaultConfig returns a Config with every default applied.
func DefaultConfig() Config {
	var cfg Config
	if err := defaults.Set(&cfg); err != nil {
		// Tags are static, a failure is a programming error.
		panic(fmt.Sprintf("persondir: invalid default tags: %v", err))
	}
	return cfg
}

// Validate checks the configuration without touching the directory.
func (c *Config) Validate() error {
	filter := c.filter()
	if !strings.Contains(filter, Placeholder) {
		return NewConfigError("filter", "must contain the %s placeholder", Placeholder)
	}

	if c.BaseDN != "" {
		if _, err := ldap.ParseDN(c.BaseDN); err != nil {
			return NewConfigError("base_dn", "%v", err)
		}
	}

	if c.DNBase != "" {
		if _, err := ldap.ParseDN(c.DNBase); err != nil {
			return NewConfigError("dn_base", "%v", err)
		}
	}

	for _, name := range c.Attributes {
		if strings.TrimSpace(name) == "" {
			return NewConfigError("attributes", "attribute names cannot be empty")
		}
	}

	for raw, canonical := range c.AttributeMapping {
		if strings.TrimSpace(raw) == "" || strings.TrimSpace(canonical) == "" {
			return NewConfigError("attribute_mapping", "mapping %q -> %q has an empty side", raw, canonical)
		}
	}

	return nil
}

// RequestedAttributes returns Attributes plus the mapping keys, deduplicated and sorted.
func (c *Config) RequestedAttributes() []string {
	set := make(map[string]struct{}, len(c.Attributes)+len(c.AttributeMapping))
	for _, name := range c.Attributes {
		set[name] = struct{}{}
	}
	for raw := range c.AttributeMapping {
		set[raw] = struct{}{}
	}
	return slices.Sorted(maps.Keys(set))
}

// BuildFilter substitutes the identifier into the filter.
func (c *Config) BuildFilter(identifier string) string {
	return strings.ReplaceAll(c.filter(), Placeholder, identifier)
}

func (c *Config) filter() string {
	if c.Filter == "" {
		return DefaultFilter
	}
	return c.Filter
}

// canonicalName maps a raw attribute name to its exposed name.
func (c *Config) canonicalName(raw string) string {
	if canonical, ok := c.AttributeMapping[raw]; ok {
		return canonical
	}
	return raw
}

// ComposeDN joins dn with DNBase.
func (c *Config) ComposeDN(dn string) string {
	switch {
	case c.DNBase == "":
		return dn
	case dn == "":
		return c.DNBase
	default:
		return dn + "," + c.DNBase
	}
}

// clone returns a copy that does not share slices or maps with c.
func (c Config) clone() Config {
	c.Attributes = slices.Clone(c.Attributes)
	c.BinaryAttributes = slices.Clone(c.BinaryAttributes)
	c.AttributeMapping = maps.Clone(c.AttributeMapping)
	return c
}
