// Package helpers provides conversions between Terraform framework values and the
// plain Go values used by the person lookup pipeline.
package helpers

import (
	"context"
	"encoding/base64"
	"fmt"
	"maps"
	"slices"

	"github.com/hashicorp/terraform-plugin-framework/attr"
	"github.com/hashicorp/terraform-plugin-framework/diag"
	"github.com/hashicorp/terraform-plugin-framework/types"
)

// AttributeValuesType is the Terraform type of a record: attribute name to values.
var AttributeValuesType = types.MapType{ElemType: types.ListType{ElemType: types.StringType}}

// StringList returns the elements of a list of strings. Null and unknown lists yield nil.
func StringList(ctx context.Context, list types.List) ([]string, diag.Diagnostics) {
	if list.IsNull() || list.IsUnknown() {
		return nil, nil
	}

	var out []string
	diags := list.ElementsAs(ctx, &out, false)
	return out, diags
}

// StringMap returns the elements of a map of strings. Null and unknown maps yield nil.
func StringMap(ctx context.Context, m types.Map) (map[string]string, diag.Diagnostics) {
	if m.IsNull() || m.IsUnknown() {
		return nil, nil
	}

	out := make(map[string]string, len(m.Elements()))
	diags := m.ElementsAs(ctx, &out, false)
	return out, diags
}

// StringListValue builds a list of strings, keeping the given order.
func StringListValue(values []string) (types.List, diag.Diagnostics) {
	elements := make([]attr.Value, len(values))
	for i, v := range values {
		elements[i] = types.StringValue(v)
	}
	return types.ListValue(types.StringType, elements)
}

// ValueToString renders one attribute value for Terraform state. Binary values are
// base64 encoded (standard alphabet, padded).
func ValueToString(value any) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case []byte:
		return base64.StdEncoding.EncodeToString(v), nil
	default:
		return "", fmt.Errorf("unsupported attribute value type: %T", value)
	}
}

// AttributeValues converts record attributes to a map(list(string)) value.
// Attribute order inside each list is preserved.
func AttributeValues(attributes map[string][]any) (types.Map, diag.Diagnostics) {
	var diags diag.Diagnostics

	elements := make(map[string]attr.Value, len(attributes))
	for _, name := range slices.Sorted(maps.Keys(attributes)) {
		values := attributes[name]
		strs := make([]string, 0, len(values))
		for _, v := range values {
			s, err := ValueToString(v)
			if err != nil {
				diags.AddError("Invalid Attribute Value", fmt.Sprintf("Attribute %q: %s", name, err))
				return types.MapNull(AttributeValuesType.ElemType), diags
			}
			strs = append(strs, s)
		}

		list, d := StringListValue(strs)
		diags.Append(d...)
		if diags.HasError() {
			return types.MapNull(AttributeValuesType.ElemType), diags
		}
		elements[name] = list
	}

	m, d := types.MapValue(AttributeValuesType.ElemType, elements)
	diags.Append(d...)
	return m, diags
}
