package validators

import (
	"context"
	"fmt"

	"github.com/go-ldap/ldap/v3"
	"github.com/hashicorp/terraform-plugin-framework/schema/validator"
)

// Ensure the implementation satisfies the expected interface.
var _ validator.String = dnValidator{}

// dnValidator validates that a string is a properly formatted Distinguished Name (DN).
type dnValidator struct {
	allowEmpty bool
}

// Description describes the validation in plain text.
func (v dnValidator) Description(_ context.Context) string {
	if v.allowEmpty {
		return "value must be empty or a valid Distinguished Name (DN)"
	}
	return "value must be a valid Distinguished Name (DN)"
}

// MarkdownDescription describes the validation in Markdown.
func (v dnValidator) MarkdownDescription(ctx context.Context) string {
	return v.Description(ctx)
}

// ValidateString performs the validation.
func (v dnValidator) ValidateString(ctx context.Context, request validator.StringRequest, response *validator.StringResponse) {
	if request.ConfigValue.IsNull() || request.ConfigValue.IsUnknown() {
		return
	}

	value := request.ConfigValue.ValueString()

	if value == "" {
		if v.allowEmpty {
			return
		}
		response.Diagnostics.AddAttributeError(
			request.Path,
			"Invalid Distinguished Name",
			"The value \"\" is not a valid Distinguished Name format: DN cannot be empty",
		)
		return
	}

	if _, err := ldap.ParseDN(value); err != nil {
		response.Diagnostics.AddAttributeError(
			request.Path,
			"Invalid Distinguished Name",
			fmt.Sprintf("The value %q is not a valid Distinguished Name format: %s", value, err.Error()),
		)
	}
}

// IsValidDN returns a validator which ensures that any configured
// attribute value is a valid Distinguished Name (DN).
//
// Unknown values and null values are skipped from validation.
func IsValidDN() validator.String {
	return dnValidator{}
}

// IsValidRelativeDN is IsValidDN for search bases, where the empty string
// stands for the connection base DN itself.
func IsValidRelativeDN() validator.String {
	return dnValidator{allowEmpty: true}
}
