package cli

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/pmarasse/cas-persondir-ldap/internal/persondir"
)

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Formats returns the supported output formats.
func Formats() []string {
	return []string{FormatText, FormatJSON, FormatYAML}
}

// Result is the printable outcome of one lookup.
type Result struct {
	Identifier string              `json:"identifier" yaml:"identifier"`
	Found      bool                `json:"found" yaml:"found"`
	Attributes map[string][]string `json:"attributes,omitempty" yaml:"attributes,omitempty"`
}

// NewResult renders rec, which may be nil when nothing matched. Binary values
// are base64 encoded.
func NewResult(identifier string, rec *persondir.Record) Result {
	res := Result{Identifier: identifier}
	if rec == nil {
		return res
	}

	res.Found = true
	res.Attributes = make(map[string][]string, rec.Len())
	for _, name := range rec.Names() {
		values, _ := rec.GetAll(name)
		rendered := make([]string, len(values))
		for i, v := range values {
			rendered[i] = renderValue(v)
		}
		res.Attributes[name] = rendered
	}
	return res
}

func renderValue(v any) string {
	switch v := v.(type) {
	case string:
		return v
	case []byte:
		return base64.StdEncoding.EncodeToString(v)
	default:
		return fmt.Sprint(v)
	}
}

func writeResults(w io.Writer, format string, results []Result) error {
	return write(w, format, results, func() error {
		for i, res := range results {
			if i > 0 {
				if _, err := fmt.Fprintln(w); err != nil {
					return err
				}
			}
			if !res.Found {
				if _, err := fmt.Fprintf(w, "%s: not found\n", res.Identifier); err != nil {
					return err
				}
				continue
			}
			if _, err := fmt.Fprintf(w, "%s:\n", res.Identifier); err != nil {
				return err
			}
			for _, name := range slices.Sorted(maps.Keys(res.Attributes)) {
				for _, value := range res.Attributes[name] {
					if _, err := fmt.Fprintf(w, "  %s: %s\n", name, value); err != nil {
						return err
					}
				}
			}
		}
		return nil
	})
}

func writeNames(w io.Writer, format string, names []string) error {
	if names == nil {
		names = []string{}
	}
	return write(w, format, names, func() error {
		for _, name := range names {
			if _, err := fmt.Fprintln(w, name); err != nil {
				return err
			}
		}
		return nil
	})
}

func write(w io.Writer, format string, v any, text func() error) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	case FormatText, "":
		return text()
	default:
		return fmt.Errorf("unsupported output format %q", format)
	}
}
