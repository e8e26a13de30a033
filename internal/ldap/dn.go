package ldap

import (
	"fmt"
	"strings"

	"github.com/go-ldap/ldap/v3"
)

// ValidateDNSyntax validates that a string is a properly formatted Distinguished Name.
func ValidateDNSyntax(dn string) error {
	if dn == "" {
		return fmt.Errorf("DN cannot be empty")
	}

	if _, err := ldap.ParseDN(dn); err != nil {
		return fmt.Errorf("invalid DN syntax: %w", err)
	}

	return nil
}

// JoinDN appends base to the relative name rel.
func JoinDN(rel, base string) string {
	rel = strings.TrimSpace(rel)
	base = strings.TrimSpace(base)

	switch {
	case base == "":
		return rel
	case rel == "":
		return base
	default:
		return rel + "," + base
	}
}

// RelativeDN strips base from the end of dn, comparing RDNs case-insensitively.
// A dn equal to base yields ""; a dn outside base, or one that does not
// parse, is returned unchanged.
func RelativeDN(dn, base string) string {
	if base == "" || dn == "" {
		return dn
	}

	parsedDN, err := ldap.ParseDN(dn)
	if err != nil {
		return dn
	}
	parsedBase, err := ldap.ParseDN(base)
	if err != nil {
		return dn
	}

	if parsedBase.EqualFold(parsedDN) {
		return ""
	}
	if !parsedBase.AncestorOfFold(parsedDN) {
		return dn
	}

	keep := len(parsedDN.RDNs) - len(parsedBase.RDNs)
	if cut := rdnBoundary(dn, keep); cut >= 0 {
		return strings.TrimSpace(dn[:cut])
	}
	return dn
}

// IsDNChild checks if childDN is a direct or indirect child of parentDN.
func IsDNChild(childDN, parentDN string) (bool, error) {
	if childDN == "" || parentDN == "" {
		return false, fmt.Errorf("DNs cannot be empty")
	}

	child, err := ldap.ParseDN(childDN)
	if err != nil {
		return false, fmt.Errorf("invalid child DN syntax: %w", err)
	}

	parent, err := ldap.ParseDN(parentDN)
	if err != nil {
		return false, fmt.Errorf("invalid parent DN syntax: %w", err)
	}

	return parent.AncestorOfFold(child), nil
}

// rdnBoundary returns the index of the separator ending the n-th RDN of dn,
// skipping escaped characters and quoted values, or -1.
func rdnBoundary(dn string, n int) int {
	if n <= 0 {
		return -1
	}

	seen := 0
	quoted := false
	for i := 0; i < len(dn); i++ {
		switch dn[i] {
		case '\\':
			i++
		case '"':
			quoted = !quoted
		case ',', ';':
			if quoted {
				continue
			}
			seen++
			if seen == n {
				return i
			}
		}
	}
	return -1
}

// NormalizeFilter wraps a bare filter such as mail=x in parentheses and
// checks that the result compiles.
func NormalizeFilter(filter string) (string, error) {
	filter = strings.TrimSpace(filter)
	if filter == "" {
		return "", fmt.Errorf("filter cannot be empty")
	}

	if !strings.HasPrefix(filter, "(") {
		filter = "(" + filter + ")"
	}

	if _, err := ldap.CompileFilter(filter); err != nil {
		return "", fmt.Errorf("invalid filter %q: %w", filter, err)
	}

	return filter, nil
}

// EscapeFilter escapes the special filter characters of an assertion value (RFC 4515).
func EscapeFilter(value string) string {
	return ldap.EscapeFilter(value)
}
