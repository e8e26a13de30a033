package helpers

import (
	"testing"

	"github.com/hashicorp/terraform-plugin-framework/attr"
	"github.com/hashicorp/terraform-plugin-framework/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStringList(t *testing.T) {
	list := types.ListValueMust(types.StringType, []attr.Value{types.StringValue("cn"), types.StringValue("mail")})

	got, diags := StringList(t.Context(), list)
	require.False(t, diags.HasError())
	assert.Equal(t, []string{"cn", "mail"}, got)

	got, diags = StringList(t.Context(), types.ListNull(types.StringType))
	assert.False(t, diags.HasError())
	assert.Nil(t, got)

	got, _ = StringList(t.Context(), types.ListUnknown(types.StringType))
	assert.Nil(t, got)
}

func TestStringMap(t *testing.T) {
	m := types.MapValueMust(types.StringType, map[string]attr.Value{"sn": types.StringValue("nom")})

	got, diags := StringMap(t.Context(), m)
	require.False(t, diags.HasError())
	assert.Equal(t, map[string]string{"sn": "nom"}, got)

	got, _ = StringMap(t.Context(), types.MapNull(types.StringType))
	assert.Nil(t, got)
}

func TestValueToString(t *testing.T) {
	tests := []struct {
		name    string
		value   any
		want    string
		wantErr bool
	}{
		{name: "string", value: "John", want: "John"},
		{name: "bytes", value: []byte{0x01, 0x05, 0x00, 0xff}, want: "AQUA/w=="},
		{name: "empty bytes", value: []byte{}, want: ""},
		{name: "int", value: 42, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValueToString(tt.value)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAttributeValues(t *testing.T) {
	m, diags := AttributeValues(map[string][]any{
		"mail":       {"b@example.org", "a@example.org"},
		"objectGUID": {[]byte{0xde, 0xad}},
	})
	require.False(t, diags.HasError(), "%v", diags)

	var got map[string][]string
	require.False(t, m.ElementsAs(t.Context(), &got, false).HasError())
	assert.Equal(t, map[string][]string{
		"mail":       {"b@example.org", "a@example.org"},
		"objectGUID": {"3q0="},
	}, got)
}

func TestAttributeValues_Invalid(t *testing.T) {
	m, diags := AttributeValues(map[string][]any{"bad": {3.14}})
	assert.True(t, diags.HasError())
	assert.True(t, m.IsNull())
}

func TestAttributeValues_Empty(t *testing.T) {
	m, diags := AttributeValues(nil)
	require.False(t, diags.HasError())
	assert.False(t, m.IsNull())
	assert.Empty(t, m.Elements())
}
