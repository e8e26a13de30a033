package processors

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// compileReplacement turns a replacement written with $n, ${name} and backslash
// escapes into a regexp.Expand template.
//
// A group number is read digit by digit for as long as the result still names an
// existing group, so with one group "$1t" and "$12" both mean group 1 followed by
// literal text. References to groups that do not exist are rejected.
func compileReplacement(re *regexp.Regexp, repl string) (string, error) {
	var b strings.Builder
	b.Grow(len(repl) + 8)

	groups := re.NumSubexp()

	for i := 0; i < len(repl); i++ {
		c := repl[i]
		switch c {
		case '\\':
			i++
			if i >= len(repl) {
				return "", errors.New("character to be escaped is missing")
			}
			if repl[i] == '$' {
				b.WriteString("$$")
			} else {
				b.WriteByte(repl[i])
			}

		case '$':
			i++
			if i >= len(repl) {
				return "", errors.New("group index is missing")
			}

			if repl[i] == '{' {
				end := strings.IndexByte(repl[i:], '}')
				if end < 0 {
					return "", errors.New("named group is missing trailing '}'")
				}
				name := repl[i+1 : i+end]
				if name == "" || re.SubexpIndex(name) < 0 {
					return "", fmt.Errorf("no group with name {%s}", name)
				}
				b.WriteString("${" + name + "}")
				i += end
				continue
			}

			if !isDigit(repl[i]) {
				return "", fmt.Errorf("illegal group reference %q", repl[i-1:i+1])
			}
			group := int(repl[i] - '0')
			if group > groups {
				return "", fmt.Errorf("no group %d", group)
			}
			for i+1 < len(repl) && isDigit(repl[i+1]) {
				next := group*10 + int(repl[i+1]-'0')
				if next > groups {
					break
				}
				group = next
				i++
			}
			fmt.Fprintf(&b, "${%d}", group)

		default:
			b.WriteByte(c)
		}
	}

	return b.String(), nil
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// replacer rewrites every match of a pattern in a string.
type replacer struct {
	re       *regexp.Regexp
	template string
}

func newReplacer(pattern, replacement string) (*replacer, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	template, err := compileReplacement(re, replacement)
	if err != nil {
		return nil, fmt.Errorf("replacement %q: %w", replacement, err)
	}
	return &replacer{re: re, template: template}, nil
}

func (r *replacer) replaceAll(s string) string {
	return r.re.ReplaceAllString(s, r.template)
}

// replaceValues rewrites the string values of values in place and reports whether any changed.
func (r *replacer) replaceValues(values []any) bool {
	changed := false
	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			continue
		}
		if out := r.replaceAll(s); out != s {
			values[i] = out
			changed = true
		}
	}
	return changed
}
