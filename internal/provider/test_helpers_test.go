package provider

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/hashicorp/terraform-plugin-framework/datasource"
	"github.com/hashicorp/terraform-plugin-framework/tfsdk"
	"github.com/hashicorp/terraform-plugin-go/tftypes"

	ldapclient "github.com/pmarasse/cas-persondir-ldap/internal/ldap"
	"github.com/pmarasse/cas-persondir-ldap/internal/persondir"
)

// Test environment configuration constants.
const (
	// Environment variables for test configuration.
	EnvTestDomain     = "PERSONDIR_TEST_DOMAIN"
	EnvTestLDAPURL    = "PERSONDIR_TEST_LDAP_URL"
	EnvTestUsername   = "PERSONDIR_TEST_USERNAME"
	EnvTestPassword   = "PERSONDIR_TEST_PASSWORD"
	EnvTestBaseDN     = "PERSONDIR_TEST_BASE_DN"
	EnvTestSearchBase = "PERSONDIR_TEST_SEARCH_BASE"
	EnvTestFilter     = "PERSONDIR_TEST_FILTER"
	EnvTestIdentifier = "PERSONDIR_TEST_IDENTIFIER"

	// Default values for testing.
	DefaultTestFilter = "(uid={0})"
)

// TestConfig holds common acceptance test configuration.
type TestConfig struct {
	Domain     string
	LDAPURL    string
	Username   string
	Password   string
	BaseDN     string
	SearchBase string
	Filter     string
	Identifier string
}

// GetTestConfig returns the test configuration from environment variables.
func GetTestConfig() *TestConfig {
	return &TestConfig{
		Domain:     os.Getenv(EnvTestDomain),
		LDAPURL:    os.Getenv(EnvTestLDAPURL),
		Username:   os.Getenv(EnvTestUsername),
		Password:   os.Getenv(EnvTestPassword),
		BaseDN:     os.Getenv(EnvTestBaseDN),
		SearchBase: os.Getenv(EnvTestSearchBase),
		Filter:     getEnvWithDefault(EnvTestFilter, DefaultTestFilter),
		Identifier: os.Getenv(EnvTestIdentifier),
	}
}

// IsAccTest returns true if acceptance tests should run.
func IsAccTest() bool {
	return os.Getenv("TF_ACC") != ""
}

// SkipIfNotAccTest skips the test if TF_ACC is not set.
func SkipIfNotAccTest(t *testing.T) {
	if !IsAccTest() {
		t.Skip("Skipping acceptance test - set TF_ACC=1 to run")
	}
}

// testAccPreCheckWithConfig validates the acceptance test environment.
func testAccPreCheckWithConfig(t *testing.T) *TestConfig {
	SkipIfNotAccTest(t)

	config := GetTestConfig()

	if config.LDAPURL == "" && config.Domain == "" {
		t.Skipf("Skipping test: Either %s or %s must be set to a real directory", EnvTestLDAPURL, EnvTestDomain)
	}

	if config.Identifier == "" {
		t.Skipf("Skipping test: %s must name an existing entry", EnvTestIdentifier)
	}

	return config
}

// AccProviderConfig generates the provider block for acceptance tests.
// extra is inserted verbatim before the closing brace.
func AccProviderConfig(extra string) string {
	config := GetTestConfig()

	var b strings.Builder
	b.WriteString("provider \"persondir\" {\n")

	if config.LDAPURL != "" {
		fmt.Fprintf(&b, "  ldap_url = %q\n", config.LDAPURL)
	} else {
		fmt.Fprintf(&b, "  domain = %q\n", config.Domain)
	}
	if config.BaseDN != "" {
		fmt.Fprintf(&b, "  base_dn = %q\n", config.BaseDN)
	}
	if config.Username != "" {
		fmt.Fprintf(&b, "  username = %q\n", config.Username)
		fmt.Fprintf(&b, "  password = %q\n", config.Password)
	}
	if config.SearchBase != "" {
		fmt.Fprintf(&b, "  search_base = %q\n", config.SearchBase)
	}
	fmt.Fprintf(&b, "  filter = %q\n", config.Filter)

	b.WriteString(extra)
	b.WriteString("}\n")
	return b.String()
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// ObjectValue builds an object of typ from values, filling every other attribute with null.
func ObjectValue(t testing.TB, typ tftypes.Type, values map[string]tftypes.Value) tftypes.Value {
	t.Helper()

	obj, ok := typ.(tftypes.Object)
	if !ok {
		t.Fatalf("expected an object type, got %s", typ)
	}

	for name := range values {
		if _, ok := obj.AttributeTypes[name]; !ok {
			t.Fatalf("unknown attribute %q", name)
		}
	}

	full := make(map[string]tftypes.Value, len(obj.AttributeTypes))
	for name, attrType := range obj.AttributeTypes {
		if v, ok := values[name]; ok {
			full[name] = v
			continue
		}
		full[name] = tftypes.NewValue(attrType, nil)
	}
	return tftypes.NewValue(obj, full)
}

// staticDirectory answers every search with the same entries.
type staticDirectory struct {
	entries []*persondir.Entry
	err     error
}

func (d staticDirectory) Search(context.Context, string, string, []string) ([]*persondir.Entry, error) {
	return d.entries, d.err
}

func (d staticDirectory) LookupDN(context.Context, string, []string) (*persondir.Entry, error) {
	if d.err != nil {
		return nil, d.err
	}
	if len(d.entries) == 0 {
		return nil, persondir.ErrEntryNotFound
	}
	return d.entries[0], nil
}

// newTestProviderData returns provider data whose engine reads from dir. It has no LDAP client.
func newTestProviderData(cfg persondir.Config, dir persondir.Directory, chain ...persondir.Processor) *ldapclient.ProviderData {
	return ldapclient.NewProviderData(nil, persondir.New(cfg, dir, chain), nil)
}

// readDataSource configures ds with providerData and runs Read with the given configuration.
func readDataSource(t *testing.T, ds datasource.DataSource, providerData any, values map[string]tftypes.Value) *datasource.ReadResponse {
	t.Helper()
	ctx := t.Context()

	if withConfigure, ok := ds.(datasource.DataSourceWithConfigure); ok {
		configureResp := &datasource.ConfigureResponse{}
		withConfigure.Configure(ctx, datasource.ConfigureRequest{ProviderData: providerData}, configureResp)
		if configureResp.Diagnostics.HasError() {
			t.Fatalf("Configure failed: %v", configureResp.Diagnostics)
		}
	}

	schemaResp := &datasource.SchemaResponse{}
	ds.Schema(ctx, datasource.SchemaRequest{}, schemaResp)
	if schemaResp.Diagnostics.HasError() {
		t.Fatalf("Schema failed: %v", schemaResp.Diagnostics)
	}

	typ := schemaResp.Schema.Type().TerraformType(ctx)
	config := tfsdk.Config{Schema: schemaResp.Schema, Raw: ObjectValue(t, typ, values)}

	resp := &datasource.ReadResponse{
		State: tfsdk.State{Schema: schemaResp.Schema, Raw: tftypes.NewValue(typ, nil)},
	}
	ds.Read(ctx, datasource.ReadRequest{Config: config}, resp)
	return resp
}
