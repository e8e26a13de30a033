// Package types holds custom Terraform attribute types of the persondir provider.
package types

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-ldap/ldap/v3"
	"github.com/hashicorp/terraform-plugin-framework/attr"
	"github.com/hashicorp/terraform-plugin-framework/diag"
	"github.com/hashicorp/terraform-plugin-framework/types/basetypes"
	"github.com/hashicorp/terraform-plugin-go/tftypes"
)

var (
	_ basetypes.StringTypable                    = DNStringType{}
	_ basetypes.StringValuableWithSemanticEquals = DNStringValue{}
)

// DNStringType holds a directory base such as base_dn. Two values naming the
// same entry with different case or spacing are semantically equal, so
// "DC=Example, DC=org" and "dc=example,dc=org" never produce a diff.
type DNStringType struct {
	basetypes.StringType
}

func (t DNStringType) String() string {
	return "DNStringType"
}

func (t DNStringType) ValueType(context.Context) attr.Value {
	return DNStringValue{}
}

func (t DNStringType) Equal(o attr.Type) bool {
	other, ok := o.(DNStringType)
	return ok && t.StringType.Equal(other.StringType)
}

func (t DNStringType) ValueFromString(_ context.Context, in basetypes.StringValue) (basetypes.StringValuable, diag.Diagnostics) {
	return DNStringValue{StringValue: in}, nil
}

func (t DNStringType) ValueFromTerraform(ctx context.Context, in tftypes.Value) (attr.Value, error) {
	raw, err := t.StringType.ValueFromTerraform(ctx, in)
	if err != nil {
		return nil, err
	}

	str, ok := raw.(basetypes.StringValue)
	if !ok {
		return nil, fmt.Errorf("expected basetypes.StringValue, got: %T", raw)
	}

	value, diags := t.ValueFromString(ctx, str)
	if diags.HasError() {
		return nil, fmt.Errorf("could not create DNStringValue: %v", diags.Errors())
	}
	return value, nil
}

// DNStringValue is a value of DNStringType.
type DNStringValue struct {
	basetypes.StringValue
}

func (v DNStringValue) Equal(o attr.Value) bool {
	other, ok := o.(DNStringValue)
	return ok && v.StringValue.Equal(other.StringValue)
}

func (v DNStringValue) Type(context.Context) attr.Type {
	return DNStringType{}
}

// ValueDN parses the value. Null, unknown and empty values yield an empty DN,
// which names the directory root.
func (v DNStringValue) ValueDN() (*ldap.DN, error) {
	if v.IsNull() || v.IsUnknown() || v.ValueString() == "" {
		return &ldap.DN{}, nil
	}
	return ldap.ParseDN(v.ValueString())
}

// StringSemanticEquals reports whether both values name the same entry.
func (v DNStringValue) StringSemanticEquals(_ context.Context, newValuable basetypes.StringValuable) (bool, diag.Diagnostics) {
	var diags diag.Diagnostics

	other, ok := newValuable.(DNStringValue)
	if !ok {
		diags.AddError(
			"Semantic Equality Check Error",
			"An unexpected value type was received while comparing distinguished names. "+
				"This is always an error in the provider. Please report the following to the provider developer:\n\n"+
				fmt.Sprintf("Expected DNStringValue, but got: %T", newValuable),
		)
		return false, diags
	}

	switch {
	case v.IsNull() || v.IsUnknown() || other.IsNull() || other.IsUnknown():
		return v.Equal(other), diags
	case v.ValueString() == "" || other.ValueString() == "":
		return v.ValueString() == other.ValueString(), diags
	default:
		return EqualDN(v.ValueString(), other.ValueString()), diags
	}
}

// EqualDN compares two DNs RDN by RDN ignoring case. Values that do not parse
// fall back to a case-insensitive string comparison.
func EqualDN(a, b string) bool {
	dnA, errA := ldap.ParseDN(a)
	dnB, errB := ldap.ParseDN(b)
	if errA != nil || errB != nil {
		return strings.EqualFold(a, b)
	}
	return dnA.EqualFold(dnB)
}

// DNString returns a known value.
func DNString(value string) DNStringValue {
	return DNStringValue{StringValue: basetypes.NewStringValue(value)}
}

// DNStringNull returns a null value.
func DNStringNull() DNStringValue {
	return DNStringValue{StringValue: basetypes.NewStringNull()}
}

// DNStringUnknown returns an unknown value.
func DNStringUnknown() DNStringValue {
	return DNStringValue{StringValue: basetypes.NewStringUnknown()}
}
