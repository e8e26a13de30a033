package provider_test

import (
	"strings"
	"testing"

	"github.com/hashicorp/terraform-plugin-framework/datasource"
	"github.com/hashicorp/terraform-plugin-framework/provider"
	"github.com/hashicorp/terraform-plugin-framework/providerserver"
	"github.com/hashicorp/terraform-plugin-go/tfprotov6"
	"github.com/hashicorp/terraform-plugin-go/tftypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	this "github.com/pmarasse/cas-persondir-ldap/internal/provider"
)

func newProvider(version string) *this.PersonDirectoryProvider {
	return this.New(version)().(*this.PersonDirectoryProvider)
}

// TestProviderMetadata tests the provider metadata.
func TestProviderMetadata(t *testing.T) {
	p := newProvider("test")

	resp := &provider.MetadataResponse{}
	p.Metadata(t.Context(), provider.MetadataRequest{}, resp)

	assert.Equal(t, "persondir", resp.TypeName)
	assert.Equal(t, "test", resp.Version)
}

// TestProviderSchema tests the provider schema.
func TestProviderSchema(t *testing.T) {
	p := newProvider("test")

	resp := &provider.SchemaResponse{}
	p.Schema(t.Context(), provider.SchemaRequest{}, resp)
	require.False(t, resp.Diagnostics.HasError(), "%v", resp.Diagnostics)

	expected := []string{
		"domain", "ldap_url", "base_dn",
		"username", "password",
		"kerberos_realm", "kerberos_keytab", "kerberos_config", "kerberos_ccache", "kerberos_spn",
		"use_tls", "skip_tls_verify", "tls_ca_cert_file", "tls_ca_cert",
		"tls_client_cert_file", "tls_client_key_file",
		"max_connections", "max_idle_time", "connect_timeout",
		"max_retries", "initial_backoff", "max_backoff",
		"search_base", "dn_base", "filter", "attributes", "attribute_mapping",
		"dn_attribute", "fetch_direct_dn", "ignore_partial_results", "binary_attributes",
		"search_time_limit", "processors",
	}

	for _, attr := range expected {
		assert.Contains(t, resp.Schema.Attributes, attr)
	}
	assert.Len(t, resp.Schema.Attributes, len(expected))

	for _, sensitive := range []string{"password", "tls_ca_cert", "tls_client_key_file"} {
		assert.True(t, resp.Schema.Attributes[sensitive].IsSensitive(), "%s should be sensitive", sensitive)
	}
}

// TestProviderResources checks that the provider manages no resources.
func TestProviderResources(t *testing.T) {
	assert.Empty(t, newProvider("test").Resources(t.Context()))
}

// TestProviderDataSources tests the provider data sources.
func TestProviderDataSources(t *testing.T) {
	p := newProvider("test")

	var names []string
	for _, factory := range p.DataSources(t.Context()) {
		ds := factory()
		require.NotNil(t, ds)

		resp := &datasource.MetadataResponse{}
		ds.Metadata(t.Context(), datasource.MetadataRequest{ProviderTypeName: "persondir"}, resp)
		names = append(names, resp.TypeName)
	}

	assert.ElementsMatch(t, []string{"persondir_person", "persondir_attribute_names"}, names)
}

// TestProviderConfigValidators tests the provider config validators.
func TestProviderConfigValidators(t *testing.T) {
	validators := newProvider("test").ConfigValidators(t.Context())

	require.Len(t, validators, 3)
	for i, v := range validators {
		assert.NotNil(t, v, "config validator %d", i)
		assert.NotEmpty(t, v.Description(t.Context()))
	}
}

// TestNewProvider tests the New provider function.
func TestNewProvider(t *testing.T) {
	for _, version := range []string{"test", "dev", "1.0.0", ""} {
		t.Run("version "+version, func(t *testing.T) {
			p := this.New(version)()
			require.NotNil(t, p)

			resp := &provider.MetadataResponse{}
			p.Metadata(t.Context(), provider.MetadataRequest{}, resp)
			assert.Equal(t, version, resp.Version)
		})
	}
}

// TestProviderServer checks the schemas exposed over protocol version 6.
func TestProviderServer(t *testing.T) {
	server, err := providerserver.NewProtocol6WithError(this.New("test")())()
	require.NoError(t, err)
	require.NotNil(t, server)

	resp, err := server.GetProviderSchema(t.Context(), &tfprotov6.GetProviderSchemaRequest{})
	require.NoError(t, err)
	require.Empty(t, resp.Diagnostics)

	assert.Contains(t, resp.DataSourceSchemas, "persondir_person")
	assert.Contains(t, resp.DataSourceSchemas, "persondir_attribute_names")
	assert.Empty(t, resp.ResourceSchemas)
	assert.NotNil(t, resp.Provider)
}

// TestProviderConfigValidation runs ValidateProviderConfig over the protocol.
func TestProviderConfigValidation(t *testing.T) {
	str := func(s string) tftypes.Value { return tftypes.NewValue(tftypes.String, s) }

	testCases := []struct {
		name      string
		values    map[string]tftypes.Value
		processor map[string]tftypes.Value
		wantErr   string
	}{
		{
			name:   "ldap_url only",
			values: map[string]tftypes.Value{"ldap_url": str("ldaps://ldap.example.org")},
		},
		{
			name: "anonymous domain with pipeline",
			values: map[string]tftypes.Value{
				"domain":      str("example.org"),
				"base_dn":     str("dc=example,dc=org"),
				"search_base": str("ou=people"),
				"filter":      str("(&(objectClass=person)(uid={0}))"),
			},
		},
		{
			name: "both domain and ldap_url",
			values: map[string]tftypes.Value{
				"domain":   str("example.org"),
				"ldap_url": str("ldaps://ldap.example.org"),
			},
			wantErr: "Invalid Attribute Combination",
		},
		{
			name: "both CA certificate options",
			values: map[string]tftypes.Value{
				"ldap_url":         str("ldaps://ldap.example.org"),
				"tls_ca_cert_file": str("/etc/ssl/ca.pem"),
				"tls_ca_cert":      str("-----BEGIN CERTIFICATE-----"),
			},
			wantErr: "Invalid Attribute Combination",
		},
		{
			name: "client certificate without key",
			values: map[string]tftypes.Value{
				"ldap_url":             str("ldaps://ldap.example.org"),
				"tls_client_cert_file": str("/etc/ssl/client.pem"),
			},
			wantErr: "Invalid Attribute Combination",
		},
		{
			name: "filter without placeholder",
			values: map[string]tftypes.Value{
				"ldap_url": str("ldaps://ldap.example.org"),
				"filter":   str("(uid=jdoe)"),
			},
			wantErr: "Invalid Filter Template",
		},
		{
			name: "malformed base DN",
			values: map[string]tftypes.Value{
				"ldap_url": str("ldaps://ldap.example.org"),
				"base_dn":  str("example.org"),
			},
			wantErr: "Invalid Distinguished Name",
		},
		{
			name:      "valid processor",
			values:    map[string]tftypes.Value{"ldap_url": str("ldaps://ldap.example.org")},
			processor: map[string]tftypes.Value{"type": str("REGEX_VALUE_DELETE"), "key": str("cn"), "value_match": str("^(.+)sse$")},
		},
		{
			name:      "unknown processor type",
			values:    map[string]tftypes.Value{"ldap_url": str("ldaps://ldap.example.org")},
			processor: map[string]tftypes.Value{"type": str("lowercase")},
			wantErr:   "Invalid Processor Type",
		},
		{
			name:      "invalid processor regex",
			values:    map[string]tftypes.Value{"ldap_url": str("ldaps://ldap.example.org")},
			processor: map[string]tftypes.Value{"type": str("regex_replace"), "key_match": str("(unclosed")},
			wantErr:   "Invalid Regular Expression",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := t.Context()

			schemaResp := &provider.SchemaResponse{}
			newProvider("test").Schema(ctx, provider.SchemaRequest{}, schemaResp)
			typ := schemaResp.Schema.Type().TerraformType(ctx)

			values := tc.values
			if tc.processor != nil {
				listType := typ.(tftypes.Object).AttributeTypes["processors"].(tftypes.List)
				values["processors"] = tftypes.NewValue(listType, []tftypes.Value{
					this.ObjectValue(t, listType.ElementType, tc.processor),
				})
			}

			config, err := tfprotov6.NewDynamicValue(typ, this.ObjectValue(t, typ, values))
			require.NoError(t, err)

			server, err := providerserver.NewProtocol6WithError(this.New("test")())()
			require.NoError(t, err)

			resp, err := server.ValidateProviderConfig(ctx, &tfprotov6.ValidateProviderConfigRequest{Config: &config})
			require.NoError(t, err)

			var summaries []string
			for _, d := range resp.Diagnostics {
				if d.Severity == tfprotov6.DiagnosticSeverityError {
					summaries = append(summaries, d.Summary)
				}
			}

			if tc.wantErr == "" {
				assert.Empty(t, summaries)
				return
			}
			assert.Contains(t, summaries, tc.wantErr)
		})
	}
}

// TestProviderEnvironmentVariables checks that scalar settings document their environment variable.
func TestProviderEnvironmentVariables(t *testing.T) {
	resp := &provider.SchemaResponse{}
	newProvider("test").Schema(t.Context(), provider.SchemaRequest{}, resp)

	noEnv := map[string]bool{
		"attributes":        true,
		"attribute_mapping": true,
		"binary_attributes": true,
		"processors":        true,
	}

	for name, attr := range resp.Schema.Attributes {
		if noEnv[name] {
			continue
		}
		envVar := this.EnvPrefix + strings.ToUpper(name)
		assert.Contains(t, attr.GetMarkdownDescription(), envVar, "attribute %s", name)
	}
}
