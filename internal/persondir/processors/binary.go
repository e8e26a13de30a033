package processors

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/bwmarrin/go-objectsid"
	"github.com/google/uuid"

	"github.com/pmarasse/cas-persondir-ldap/internal/logging"
	"github.com/pmarasse/cas-persondir-ldap/internal/persondir"
)

// ConversionError is the value written in place of a value that could not be
// converted when Strict is false.
const ConversionError = "Error"

// ErrMalformedValue is wrapped by strict conversions of unusable values.
var ErrMalformedValue = errors.New("malformed binary value")

// BinaryConversionConfig configures UUIDToString and SIDToString.
type BinaryConversionConfig struct {
	Source string `json:"source" mapstructure:"source" yaml:"source"`
	Target string `json:"target" mapstructure:"target" yaml:"target"`

	// Strict fails the lookup on a malformed value instead of writing ConversionError.
	Strict bool `json:"strict,omitempty" mapstructure:"strict" yaml:"strict"`

	// DeleteSource removes Source after conversion.
	DeleteSource *bool `json:"delete_source,omitempty" mapstructure:"delete_source" yaml:"delete_source" default:"true"`
}

// UUIDToStringConfig configures UUIDToString.
type UUIDToStringConfig struct {
	BinaryConversionConfig `mapstructure:",squash" yaml:",inline"`

	// MixedEndian reads the first three groups little-endian, as Active Directory
	// stores objectGUID.
	MixedEndian bool `json:"mixed_endian,omitempty" mapstructure:"mixed_endian" yaml:"mixed_endian"`
}

// binaryConverter holds the logic shared by the UUID and SID processors.
type binaryConverter struct {
	kind         string
	source       string
	target       string
	strict       bool
	deleteSource bool
	convert      func([]byte) (string, error)
	logger       logging.Logger
}

func newBinaryConverter(kind string, cfg *BinaryConversionConfig, convert func([]byte) (string, error), opts []Option) (*binaryConverter, error) {
	if err := applyDefaults(kind, cfg); err != nil {
		return nil, err
	}
	if err := required(kind, "source", cfg.Source); err != nil {
		return nil, err
	}
	if err := required(kind, "target", cfg.Target); err != nil {
		return nil, err
	}

	return &binaryConverter{
		kind:         kind,
		source:       cfg.Source,
		target:       cfg.Target,
		strict:       cfg.Strict,
		deleteSource: boolValue(cfg.DeleteSource),
		convert:      convert,
		logger:       newOptions(opts).logger,
	}, nil
}

func (c *binaryConverter) process(ctx context.Context, rec *persondir.Record) error {
	values, ok := rec.GetAll(c.source)
	if !ok || len(values) == 0 {
		return nil
	}

	converted := make([]any, 0, len(values))
	for _, v := range values {
		var raw []byte
		switch tv := v.(type) {
		case []byte:
			raw = tv
		case string:
			raw = []byte(tv)
		}

		s, err := c.convert(raw)
		if err != nil {
			c.logger.Error(ctx, "Cannot convert binary value", map[string]any{
				"processor": c.kind,
				"attribute": c.source,
				"length":    len(raw),
				"error":     err.Error(),
			})
			if c.strict {
				return fmt.Errorf("attribute %q: %w", c.source, err)
			}
			s = ConversionError
		}
		converted = append(converted, s)
	}

	if c.deleteSource {
		if err := rec.Delete(c.source); err != nil {
			return err
		}
	}
	return rec.Set(c.target, converted...)
}

func (c *binaryConverter) label(kind string) string {
	return describe(kind, "source", c.source, "target", c.target, "strict", c.strict)
}

// UUIDToString renders 16-byte identifiers such as objectGUID or entryUUID as
// upper-case 8-4-4-4-12 strings.
type UUIDToString struct {
	*binaryConverter
	mixedEndian bool
}

// NewUUIDToString creates a UUIDToString processor.
func NewUUIDToString(cfg UUIDToStringConfig, opts ...Option) (*UUIDToString, error) {
	p := &UUIDToString{mixedEndian: cfg.MixedEndian}

	conv, err := newBinaryConverter("uuid_to_string", &cfg.BinaryConversionConfig, p.format, opts)
	if err != nil {
		return nil, err
	}
	p.binaryConverter = conv
	return p, nil
}

func (p *UUIDToString) format(raw []byte) (string, error) {
	if len(raw) != 16 {
		return "", fmt.Errorf("%w: UUID is %d bytes long, expected 16", ErrMalformedValue, len(raw))
	}

	b := raw
	if p.mixedEndian {
		b = []byte{
			raw[3], raw[2], raw[1], raw[0],
			raw[5], raw[4],
			raw[7], raw[6],
			raw[8], raw[9], raw[10], raw[11], raw[12], raw[13], raw[14], raw[15],
		}
	}

	id, err := uuid.FromBytes(b)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedValue, err)
	}
	return strings.ToUpper(id.String()), nil
}

func (p *UUIDToString) Process(ctx context.Context, rec *persondir.Record) error {
	return p.process(ctx, rec)
}

func (p *UUIDToString) AttributeNames() []string {
	return []string{p.target}
}

func (p *UUIDToString) String() string {
	return p.label("UUIDToString")
}

var sidStringPattern = regexp.MustCompile(`^S-1-\d+(-\d+)+$`)

// SIDToString renders binary security identifiers such as objectSid as S-1-5-... strings.
// Values already in that form are kept as is.
type SIDToString struct {
	*binaryConverter
}

// NewSIDToString creates a SIDToString processor.
func NewSIDToString(cfg BinaryConversionConfig, opts ...Option) (*SIDToString, error) {
	conv, err := newBinaryConverter("sid_to_string", &cfg, formatSID, opts)
	if err != nil {
		return nil, err
	}
	return &SIDToString{binaryConverter: conv}, nil
}

func formatSID(raw []byte) (string, error) {
	if sidStringPattern.Match(raw) {
		return string(raw), nil
	}

	// revision, sub-authority count, 6-byte authority, then 4 bytes per sub-authority
	if len(raw) < 8 || len(raw) != 8+4*int(raw[1]) {
		return "", fmt.Errorf("%w: SID is %d bytes long", ErrMalformedValue, len(raw))
	}
	if raw[0] != 1 {
		return "", fmt.Errorf("%w: unsupported SID revision %d", ErrMalformedValue, raw[0])
	}

	return objectsid.Decode(raw).String(), nil
}

func (p *SIDToString) Process(ctx context.Context, rec *persondir.Record) error {
	return p.process(ctx, rec)
}

func (p *SIDToString) AttributeNames() []string {
	return []string{p.target}
}

func (p *SIDToString) String() string {
	return p.label("SIDToString")
}
