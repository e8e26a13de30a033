package provider

import (
	"testing"
	"time"

	"github.com/hashicorp/terraform-plugin-framework/attr"
	"github.com/hashicorp/terraform-plugin-framework/diag"
	"github.com/hashicorp/terraform-plugin-framework/types"
	"github.com/hashicorp/terraform-plugin-framework/types/basetypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pmarasse/cas-persondir-ldap/internal/persondir/processors"
	customtypes "github.com/pmarasse/cas-persondir-ldap/internal/provider/types"
)

// emptyModel returns a model with every attribute null, as Terraform sends an empty provider block.
func emptyModel() PersonDirectoryProviderModel {
	return PersonDirectoryProviderModel{
		BaseDN:           customtypes.DNStringNull(),
		Attributes:       types.ListNull(types.StringType),
		AttributeMapping: types.MapNull(types.StringType),
		BinaryAttributes: types.ListNull(types.StringType),
		Processors:       types.ListNull(types.ObjectType{AttrTypes: processorAttrTypes()}),
	}
}

func processorAttrTypes() map[string]attr.Type {
	return map[string]attr.Type{
		"type":           types.StringType,
		"layout":         types.StringType,
		"attribute":      types.StringType,
		"prefixes":       types.MapType{ElemType: types.StringType},
		"move_values":    types.BoolType,
		"key":            types.StringType,
		"key_match":      types.StringType,
		"value_match":    types.StringType,
		"value_replace":  types.StringType,
		"case_sensitive": types.BoolType,
		"source":         types.StringType,
		"target":         types.StringType,
		"strict":         types.BoolType,
		"delete_source":  types.BoolType,
		"mixed_endian":   types.BoolType,
	}
}

func processorObject(t *testing.T, values map[string]attr.Value) attr.Value {
	t.Helper()

	full := make(map[string]attr.Value)
	for name, typ := range processorAttrTypes() {
		if v, ok := values[name]; ok {
			full[name] = v
			continue
		}
		switch typ {
		case types.StringType:
			full[name] = types.StringNull()
		case types.BoolType:
			full[name] = types.BoolNull()
		default:
			full[name] = types.MapNull(types.StringType)
		}
	}

	obj, diags := types.ObjectValue(processorAttrTypes(), full)
	require.False(t, diags.HasError(), "%v", diags)
	return obj
}

func TestBuildLDAPConfig_Defaults(t *testing.T) {
	p := &PersonDirectoryProvider{}
	data := emptyModel()
	data.LdapURL = types.StringValue("ldaps://ldap.example.org")

	var diags diag.Diagnostics
	cfg := p.buildLDAPConfig(&data, &diags)
	require.False(t, diags.HasError(), "%v", diags)

	assert.Equal(t, []string{"ldaps://ldap.example.org"}, cfg.LDAPURLs)
	assert.Empty(t, cfg.Domain)
	assert.Empty(t, cfg.Username)
	assert.True(t, cfg.UseTLS)
	assert.False(t, cfg.TLSInsecure)
	assert.Equal(t, 10, cfg.MaxConnections)
	assert.Equal(t, 5*time.Minute, cfg.MaxIdleTime)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, 500*time.Millisecond, cfg.InitialBackoff)
	assert.Equal(t, 30*time.Second, cfg.MaxBackoff)
}

func TestBuildLDAPConfig_EnvironmentFallback(t *testing.T) {
	t.Setenv("PERSONDIR_DOMAIN", "example.org")
	t.Setenv("PERSONDIR_BASE_DN", "dc=example,dc=org")
	t.Setenv("PERSONDIR_USERNAME", "cn=reader,dc=example,dc=org")
	t.Setenv("PERSONDIR_PASSWORD", "secret")
	t.Setenv("PERSONDIR_USE_TLS", "false")
	t.Setenv("PERSONDIR_SKIP_TLS_VERIFY", "true")
	t.Setenv("PERSONDIR_MAX_CONNECTIONS", "4")
	t.Setenv("PERSONDIR_MAX_RETRIES", "not-a-number")

	p := &PersonDirectoryProvider{}
	data := emptyModel()
	data.Username = types.StringValue("cn=admin,dc=example,dc=org")

	var diags diag.Diagnostics
	cfg := p.buildLDAPConfig(&data, &diags)
	require.False(t, diags.HasError(), "%v", diags)

	assert.Equal(t, "example.org", cfg.Domain)
	assert.Empty(t, cfg.LDAPURLs)
	assert.Equal(t, "dc=example,dc=org", cfg.BaseDN)
	assert.Equal(t, "cn=admin,dc=example,dc=org", cfg.Username, "configuration wins over the environment")
	assert.Equal(t, "secret", cfg.Password)
	assert.False(t, cfg.UseTLS)
	assert.True(t, cfg.TLSInsecure)
	assert.Equal(t, 4, cfg.MaxConnections)
	assert.Equal(t, 3, cfg.MaxRetries, "unparsable values fall back to the default")
}

func TestBuildLDAPConfig_Errors(t *testing.T) {
	testCases := []struct {
		name    string
		env     map[string]string
		mutate  func(*PersonDirectoryProviderModel)
		summary string
	}{
		{
			name:    "no server",
			summary: "Missing Connection Configuration",
		},
		{
			name:    "domain from environment conflicts with ldap_url",
			env:     map[string]string{"PERSONDIR_DOMAIN": "example.org"},
			mutate:  func(m *PersonDirectoryProviderModel) { m.LdapURL = types.StringValue("ldap://ldap.example.org") },
			summary: "Conflicting Connection Configuration",
		},
		{
			name: "password without username",
			mutate: func(m *PersonDirectoryProviderModel) {
				m.LdapURL = types.StringValue("ldap://ldap.example.org")
				m.Password = types.StringValue("secret")
			},
			summary: "Missing Username",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}

			data := emptyModel()
			if tc.mutate != nil {
				tc.mutate(&data)
			}

			var diags diag.Diagnostics
			(&PersonDirectoryProvider{}).buildLDAPConfig(&data, &diags)
			require.True(t, diags.HasError())
			assert.Equal(t, tc.summary, diags.Errors()[0].Summary())
		})
	}
}

func TestBuildLDAPConfig_AnonymousIsAllowed(t *testing.T) {
	data := emptyModel()
	data.LdapURL = types.StringValue("ldap://ldap.example.org")

	var diags diag.Diagnostics
	cfg := (&PersonDirectoryProvider{}).buildLDAPConfig(&data, &diags)

	require.False(t, diags.HasError(), "%v", diags)
	assert.Empty(t, cfg.Username)
	assert.Empty(t, cfg.Password)
	assert.Empty(t, cfg.KerberosRealm)
}

func TestBuildPipelineConfig(t *testing.T) {
	t.Setenv("PERSONDIR_DN_BASE", "dc=example,dc=org")

	data := emptyModel()
	data.SearchBase = types.StringValue("ou=people")
	data.Filter = types.StringValue("(mail={0})")
	data.DNAttribute = types.StringValue("distinguishedName")
	data.FetchDirectDN = types.BoolValue(true)
	data.Attributes = types.ListValueMust(types.StringType, []attr.Value{types.StringValue("cn")})
	data.AttributeMapping = types.MapValueMust(types.StringType, map[string]attr.Value{"sn": types.StringValue("nom")})
	data.BinaryAttributes = types.ListValueMust(types.StringType, []attr.Value{types.StringValue("entryUUID")})
	data.Processors = types.ListValueMust(types.ObjectType{AttrTypes: processorAttrTypes()}, []attr.Value{
		processorObject(t, map[string]attr.Value{
			"type":      types.StringValue(" Attribute_Value_To_Attribute "),
			"attribute": types.StringValue("memberOf"),
			"prefixes": types.MapValueMust(types.StringType, map[string]attr.Value{
				"web-": types.StringValue("drupal"),
			}),
			"move_values": types.BoolValue(false),
		}),
		processorObject(t, map[string]attr.Value{
			"type":   types.StringValue("uuid_to_string"),
			"source": types.StringValue("entryUUID"),
			"target": types.StringValue("uuid"),
			"strict": types.BoolValue(true),
		}),
	})

	var diags diag.Diagnostics
	cfg, specs := (&PersonDirectoryProvider{}).buildPipelineConfig(t.Context(), &data, &diags)
	require.False(t, diags.HasError(), "%v", diags)

	assert.Equal(t, "ou=people", cfg.BaseDN)
	assert.Equal(t, "dc=example,dc=org", cfg.DNBase)
	assert.Equal(t, "(mail={0})", cfg.Filter)
	assert.Equal(t, "distinguishedName", cfg.DNAttribute)
	assert.True(t, cfg.FetchDirectDN)
	assert.True(t, cfg.IgnorePartialResults)
	assert.Equal(t, []string{"cn"}, cfg.Attributes)
	assert.Equal(t, map[string]string{"sn": "nom"}, cfg.AttributeMapping)
	assert.Equal(t, []string{"entryUUID"}, cfg.BinaryAttributes)

	require.Len(t, specs, 2)
	assert.Equal(t, "Attribute_Value_To_Attribute", specs[0].Type)
	assert.Equal(t, map[string]string{"web-": "drupal"}, specs[0].Prefixes)
	require.NotNil(t, specs[0].MoveValues)
	assert.False(t, *specs[0].MoveValues)
	assert.Nil(t, specs[1].DeleteSource)
	assert.True(t, specs[1].Strict)

	chain, err := processors.BuildChain(specs)
	require.NoError(t, err)
	assert.Len(t, chain, 2)
}

func TestBuildPipelineConfig_Defaults(t *testing.T) {
	data := emptyModel()

	var diags diag.Diagnostics
	cfg, specs := (&PersonDirectoryProvider{}).buildPipelineConfig(t.Context(), &data, &diags)
	require.False(t, diags.HasError(), "%v", diags)

	assert.Equal(t, "(uid={0})", cfg.Filter)
	assert.True(t, cfg.IgnorePartialResults)
	assert.Equal(t, []string{"objectGUID", "objectSid"}, cfg.BinaryAttributes)
	assert.Empty(t, specs)
}

func TestBuildPipelineConfig_InvalidFilterFromEnvironment(t *testing.T) {
	t.Setenv("PERSONDIR_FILTER", "(uid=static)")

	data := emptyModel()

	var diags diag.Diagnostics
	(&PersonDirectoryProvider{}).buildPipelineConfig(t.Context(), &data, &diags)
	require.True(t, diags.HasError())
	assert.Equal(t, "Invalid Lookup Configuration", diags.Errors()[0].Summary())
	assert.Contains(t, diags.Errors()[0].Detail(), "filter")
}

func TestOptionalBool(t *testing.T) {
	assert.Nil(t, optionalBool(types.BoolNull()))
	assert.Nil(t, optionalBool(types.BoolUnknown()))

	v := optionalBool(basetypes.NewBoolValue(false))
	require.NotNil(t, v)
	assert.False(t, *v)
}
