package validators

import (
	"context"
	"fmt"
	"strings"

	"github.com/hashicorp/terraform-plugin-framework/schema/validator"

	"github.com/pmarasse/cas-persondir-ldap/internal/persondir/processors"
)

var _ validator.String = processorTypeValidator{}

// processorTypeValidator accepts the processor type names known to the
// processors package, ignoring case and accepting legacy aliases.
type processorTypeValidator struct{}

func (v processorTypeValidator) Description(_ context.Context) string {
	return fmt.Sprintf("value must be one of: %s (case-insensitive)", strings.Join(processors.Types(), ", "))
}

func (v processorTypeValidator) MarkdownDescription(_ context.Context) string {
	quoted := make([]string, 0, len(processors.Types()))
	for _, t := range processors.Types() {
		quoted = append(quoted, "`"+t+"`")
	}
	return "value must be one of: " + strings.Join(quoted, ", ") + " (case-insensitive)"
}

func (v processorTypeValidator) ValidateString(ctx context.Context, request validator.StringRequest, response *validator.StringResponse) {
	if request.ConfigValue.IsNull() || request.ConfigValue.IsUnknown() {
		return
	}

	value := request.ConfigValue.ValueString()
	if _, ok := processors.NormalizeType(value); ok {
		return
	}

	response.Diagnostics.AddAttributeError(
		request.Path,
		"Invalid Processor Type",
		fmt.Sprintf(
			"The value %q is not valid. Must be one of: %s (case-insensitive)",
			value,
			strings.Join(processors.Types(), ", "),
		),
	)
}

// IsProcessorType returns a validator for the type of a processor block.
func IsProcessorType() validator.String {
	return processorTypeValidator{}
}
