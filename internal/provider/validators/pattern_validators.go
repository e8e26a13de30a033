package validators

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/hashicorp/terraform-plugin-framework/schema/validator"

	ldapclient "github.com/pmarasse/cas-persondir-ldap/internal/ldap"
	"github.com/pmarasse/cas-persondir-ldap/internal/persondir"
)

var (
	_ validator.String = regexValidator{}
	_ validator.String = filterTemplateValidator{}
)

// regexValidator checks that a value compiles as a regular expression.
type regexValidator struct{}

func (v regexValidator) Description(_ context.Context) string {
	return "value must be a valid regular expression"
}

func (v regexValidator) MarkdownDescription(ctx context.Context) string {
	return v.Description(ctx)
}

func (v regexValidator) ValidateString(ctx context.Context, request validator.StringRequest, response *validator.StringResponse) {
	if request.ConfigValue.IsNull() || request.ConfigValue.IsUnknown() {
		return
	}

	value := request.ConfigValue.ValueString()
	if _, err := regexp.Compile(value); err != nil {
		response.Diagnostics.AddAttributeError(
			request.Path,
			"Invalid Regular Expression",
			fmt.Sprintf("The value %q is not a valid regular expression: %s", value, err.Error()),
		)
	}
}

// IsRegex returns a validator which ensures the value compiles with regexp.Compile.
func IsRegex() validator.String {
	return regexValidator{}
}

// filterTemplateValidator checks a search filter template: it must carry the
// identifier placeholder and compile once a sample identifier is substituted.
type filterTemplateValidator struct{}

func (v filterTemplateValidator) Description(_ context.Context) string {
	return fmt.Sprintf("value must be an LDAP filter containing the %s placeholder", persondir.Placeholder)
}

func (v filterTemplateValidator) MarkdownDescription(_ context.Context) string {
	return fmt.Sprintf("value must be an LDAP filter containing the `%s` placeholder", persondir.Placeholder)
}

func (v filterTemplateValidator) ValidateString(ctx context.Context, request validator.StringRequest, response *validator.StringResponse) {
	if request.ConfigValue.IsNull() || request.ConfigValue.IsUnknown() {
		return
	}

	value := request.ConfigValue.ValueString()
	if !strings.Contains(value, persondir.Placeholder) {
		response.Diagnostics.AddAttributeError(
			request.Path,
			"Invalid Filter Template",
			fmt.Sprintf("The filter %q does not contain the %s placeholder", value, persondir.Placeholder),
		)
		return
	}

	sample := strings.ReplaceAll(value, persondir.Placeholder, "sample")
	if _, err := ldapclient.NormalizeFilter(sample); err != nil {
		response.Diagnostics.AddAttributeError(
			request.Path,
			"Invalid Filter Template",
			fmt.Sprintf("The filter %q does not compile: %s", value, err.Error()),
		)
	}
}

// IsFilterTemplate returns a validator for search filter templates.
func IsFilterTemplate() validator.String {
	return filterTemplateValidator{}
}
