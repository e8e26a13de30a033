package validators_test

import (
	"strings"
	"testing"

	"github.com/hashicorp/terraform-plugin-framework/path"
	"github.com/hashicorp/terraform-plugin-framework/schema/validator"
	"github.com/hashicorp/terraform-plugin-framework/types"

	"github.com/pmarasse/cas-persondir-ldap/internal/provider/validators"
)

// runString applies v to value and returns the response.
func runString(t *testing.T, v validator.String, value types.String) validator.StringResponse {
	t.Helper()

	request := validator.StringRequest{
		Path:        path.Root("test"),
		ConfigValue: value,
	}
	response := validator.StringResponse{}
	v.ValidateString(t.Context(), request, &response)
	return response
}

func TestDNValidator(t *testing.T) {
	t.Parallel()

	testCases := map[string]struct {
		validator   validator.String
		val         types.String
		expectError bool
		detail      string
	}{
		"valid DN simple": {
			validator: validators.IsValidDN(),
			val:       types.StringValue("uid=jdoe,ou=people,dc=example,dc=org"),
		},
		"valid DN with escaped characters": {
			validator: validators.IsValidDN(),
			val:       types.StringValue("cn=Doe\\, John,ou=people,dc=example,dc=org"),
		},
		"valid DN with spaces": {
			validator: validators.IsValidDN(),
			val:       types.StringValue("ou=Domain Users,dc=example,dc=org"),
		},
		"invalid DN empty": {
			validator:   validators.IsValidDN(),
			val:         types.StringValue(""),
			expectError: true,
			detail:      "The value \"\" is not a valid Distinguished Name format:",
		},
		"invalid DN malformed": {
			validator:   validators.IsValidDN(),
			val:         types.StringValue("people"),
			expectError: true,
			detail:      "The value \"people\" is not a valid Distinguished Name format:",
		},
		"invalid DN missing attribute": {
			validator:   validators.IsValidDN(),
			val:         types.StringValue("=people,dc=example,dc=org"),
			expectError: true,
			detail:      "The value \"=people,dc=example,dc=org\" is not a valid Distinguished Name format:",
		},
		"relative DN empty": {
			validator: validators.IsValidRelativeDN(),
			val:       types.StringValue(""),
		},
		"relative DN value": {
			validator: validators.IsValidRelativeDN(),
			val:       types.StringValue("ou=people"),
		},
		"relative DN malformed": {
			validator:   validators.IsValidRelativeDN(),
			val:         types.StringValue("people"),
			expectError: true,
			detail:      "The value \"people\" is not a valid Distinguished Name format:",
		},
		"null value": {
			validator: validators.IsValidDN(),
			val:       types.StringNull(),
		},
		"unknown value": {
			validator: validators.IsValidDN(),
			val:       types.StringUnknown(),
		},
	}

	for name, test := range testCases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			response := runString(t, test.validator, test.val)

			if !response.Diagnostics.HasError() && test.expectError {
				t.Fatal("expected error, got no error")
			}

			if response.Diagnostics.HasError() && !test.expectError {
				t.Fatalf("got unexpected error: %s", response.Diagnostics)
			}

			if test.expectError {
				if len(response.Diagnostics) != 1 {
					t.Fatalf("expected exactly 1 error, got %d", len(response.Diagnostics))
				}

				err := response.Diagnostics[0]
				if err.Summary() != "Invalid Distinguished Name" {
					t.Errorf("unexpected summary %q", err.Summary())
				}
				if !strings.HasPrefix(err.Detail(), test.detail) {
					t.Errorf("expected detail to start with %q, got %q", test.detail, err.Detail())
				}
			}
		})
	}
}

func TestDNValidatorDescription(t *testing.T) {
	v := validators.IsValidDN()

	expected := "value must be a valid Distinguished Name (DN)"
	if v.Description(t.Context()) != expected {
		t.Errorf("expected description %q, got %q", expected, v.Description(t.Context()))
	}

	if v.MarkdownDescription(t.Context()) != expected {
		t.Errorf("expected markdown description %q, got %q", expected, v.MarkdownDescription(t.Context()))
	}

	if got := validators.IsValidRelativeDN().Description(t.Context()); !strings.HasPrefix(got, "value must be empty or") {
		t.Errorf("unexpected relative DN description %q", got)
	}
}
