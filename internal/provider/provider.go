package provider

import (
	"context"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/terraform-plugin-framework-validators/int64validator"
	"github.com/hashicorp/terraform-plugin-framework-validators/providervalidator"
	"github.com/hashicorp/terraform-plugin-framework-validators/stringvalidator"
	"github.com/hashicorp/terraform-plugin-framework/datasource"
	"github.com/hashicorp/terraform-plugin-framework/diag"
	"github.com/hashicorp/terraform-plugin-framework/path"
	"github.com/hashicorp/terraform-plugin-framework/provider"
	"github.com/hashicorp/terraform-plugin-framework/provider/schema"
	"github.com/hashicorp/terraform-plugin-framework/resource"
	"github.com/hashicorp/terraform-plugin-framework/schema/validator"
	"github.com/hashicorp/terraform-plugin-framework/types"
	"github.com/hashicorp/terraform-plugin-log/tflog"

	ldapclient "github.com/pmarasse/cas-persondir-ldap/internal/ldap"
	"github.com/pmarasse/cas-persondir-ldap/internal/logging"
	"github.com/pmarasse/cas-persondir-ldap/internal/persondir"
	"github.com/pmarasse/cas-persondir-ldap/internal/persondir/processors"
	"github.com/pmarasse/cas-persondir-ldap/internal/provider/helpers"
	customtypes "github.com/pmarasse/cas-persondir-ldap/internal/provider/types"
	"github.com/pmarasse/cas-persondir-ldap/internal/provider/validators"
)

// EnvPrefix prefixes every environment variable read by the provider.
const EnvPrefix = "PERSONDIR_"

// Ensure PersonDirectoryProvider satisfies various provider interfaces.
var _ provider.Provider = &PersonDirectoryProvider{}
var _ provider.ProviderWithConfigValidators = &PersonDirectoryProvider{}

// PersonDirectoryProvider resolves person attributes from an LDAP directory.
type PersonDirectoryProvider struct {
	// version is set to the provider version on release, "dev" when the
	// provider is built and ran locally, and "test" when running acceptance
	// testing.
	version string
}

// PersonDirectoryProviderModel describes the provider data model.
type PersonDirectoryProviderModel struct {
	// Connection settings - mutually exclusive
	Domain  types.String              `tfsdk:"domain"`
	LdapURL types.String              `tfsdk:"ldap_url"`
	BaseDN  customtypes.DNStringValue `tfsdk:"base_dn"`

	// Authentication settings
	Username types.String `tfsdk:"username"`
	Password types.String `tfsdk:"password"`

	// Kerberos settings (optional)
	KerberosRealm  types.String `tfsdk:"kerberos_realm"`
	KerberosKeytab types.String `tfsdk:"kerberos_keytab"`
	KerberosConfig types.String `tfsdk:"kerberos_config"`
	KerberosCCache types.String `tfsdk:"kerberos_ccache"`
	KerberosSPN    types.String `tfsdk:"kerberos_spn"`

	// TLS settings
	UseTLS            types.Bool   `tfsdk:"use_tls"`
	SkipTLSVerify     types.Bool   `tfsdk:"skip_tls_verify"`
	TLSCACertFile     types.String `tfsdk:"tls_ca_cert_file"`
	TLSCACert         types.String `tfsdk:"tls_ca_cert"`
	TLSClientCertFile types.String `tfsdk:"tls_client_cert_file"`
	TLSClientKeyFile  types.String `tfsdk:"tls_client_key_file"`

	// Connection pool settings
	MaxConnections types.Int64 `tfsdk:"max_connections"`
	MaxIdleTime    types.Int64 `tfsdk:"max_idle_time"`
	ConnectTimeout types.Int64 `tfsdk:"connect_timeout"`

	// Retry settings
	MaxRetries     types.Int64 `tfsdk:"max_retries"`
	InitialBackoff types.Int64 `tfsdk:"initial_backoff"`
	MaxBackoff     types.Int64 `tfsdk:"max_backoff"`

	// Lookup pipeline
	SearchBase           types.String `tfsdk:"search_base"`
	DNBase               types.String `tfsdk:"dn_base"`
	Filter               types.String `tfsdk:"filter"`
	Attributes           types.List   `tfsdk:"attributes"`
	AttributeMapping     types.Map    `tfsdk:"attribute_mapping"`
	DNAttribute          types.String `tfsdk:"dn_attribute"`
	FetchDirectDN        types.Bool   `tfsdk:"fetch_direct_dn"`
	IgnorePartialResults types.Bool   `tfsdk:"ignore_partial_results"`
	BinaryAttributes     types.List   `tfsdk:"binary_attributes"`
	SearchTimeLimit      types.Int64  `tfsdk:"search_time_limit"`
	Processors           types.List   `tfsdk:"processors"`
}

// ProcessorModel is one element of the processors list. Only the fields
// relevant to Type are read.
type ProcessorModel struct {
	Type          types.String `tfsdk:"type"`
	Layout        types.String `tfsdk:"layout"`
	Attribute     types.String `tfsdk:"attribute"`
	Prefixes      types.Map    `tfsdk:"prefixes"`
	MoveValues    types.Bool   `tfsdk:"move_values"`
	Key           types.String `tfsdk:"key"`
	KeyMatch      types.String `tfsdk:"key_match"`
	ValueMatch    types.String `tfsdk:"value_match"`
	ValueReplace  types.String `tfsdk:"value_replace"`
	CaseSensitive types.Bool   `tfsdk:"case_sensitive"`
	Source        types.String `tfsdk:"source"`
	Target        types.String `tfsdk:"target"`
	Strict        types.Bool   `tfsdk:"strict"`
	DeleteSource  types.Bool   `tfsdk:"delete_source"`
	MixedEndian   types.Bool   `tfsdk:"mixed_endian"`
}

func (p *PersonDirectoryProvider) Metadata(ctx context.Context, req provider.MetadataRequest, resp *provider.MetadataResponse) {
	resp.TypeName = "persondir"
	resp.Version = p.version
}

func (p *PersonDirectoryProvider) Schema(ctx context.Context, req provider.SchemaRequest, resp *provider.SchemaResponse) {
	resp.Schema = schema.Schema{
		MarkdownDescription: "The person directory provider resolves a user identifier to a canonical set of named, " +
			"multi-valued attributes. It searches an LDAP directory, renames the raw attributes and transforms them " +
			"through an ordered chain of processors.",
		Attributes: map[string]schema.Attribute{
			// Connection settings - mutually exclusive
			"domain": schema.StringAttribute{
				MarkdownDescription: "Domain name for SRV-based server discovery (e.g., `example.org`). " +
					"Mutually exclusive with `ldap_url`. Can be set via the `PERSONDIR_DOMAIN` environment variable.",
				Optional: true,
				Validators: []validator.String{
					stringvalidator.LengthAtLeast(1),
				},
			},
			"ldap_url": schema.StringAttribute{
				MarkdownDescription: "Direct LDAP/LDAPS URL (e.g., `ldaps://ldap.example.org:636`). " +
					"Mutually exclusive with `domain`. Can be set via the `PERSONDIR_LDAP_URL` environment variable.",
				Optional: true,
				Validators: []validator.String{
					stringvalidator.LengthAtLeast(1),
				},
			},
			"base_dn": schema.StringAttribute{
				CustomType: customtypes.DNStringType{},
				MarkdownDescription: "Connection base DN (e.g., `dc=example,dc=org`). `search_base` is relative to it " +
					"and entry DNs are reported relative to it. " +
					"Can be set via the `PERSONDIR_BASE_DN` environment variable.",
				Optional: true,
				Validators: []validator.String{
					validators.IsValidDN(),
				},
			},

			// Authentication settings
			"username": schema.StringAttribute{
				MarkdownDescription: "Bind user. Supports DN, UPN, or Kerberos principal formats. " +
					"Anonymous access is used when neither a password nor Kerberos is configured. " +
					"Can be set via the `PERSONDIR_USERNAME` environment variable.",
				Optional: true,
			},
			"password": schema.StringAttribute{
				MarkdownDescription: "Bind password. " +
					"Can be set via the `PERSONDIR_PASSWORD` environment variable.",
				Optional:  true,
				Sensitive: true,
			},

			// Kerberos settings
			"kerberos_realm": schema.StringAttribute{
				MarkdownDescription: "Kerberos realm for GSSAPI authentication (e.g., `EXAMPLE.ORG`). " +
					"Can be set via the `PERSONDIR_KERBEROS_REALM` environment variable.",
				Optional: true,
			},
			"kerberos_keytab": schema.StringAttribute{
				MarkdownDescription: "Path to Kerberos keytab file for authentication. " +
					"Can be set via the `PERSONDIR_KERBEROS_KEYTAB` environment variable.",
				Optional: true,
			},
			"kerberos_config": schema.StringAttribute{
				MarkdownDescription: "Path to Kerberos configuration file. A minimal configuration is generated from the realm " +
					"when no file is available. Can be set via the `PERSONDIR_KERBEROS_CONFIG` environment variable.",
				Optional: true,
			},
			"kerberos_ccache": schema.StringAttribute{
				MarkdownDescription: "Path to Kerberos credential cache file. When specified, existing tickets are used. " +
					"Can be set via the `PERSONDIR_KERBEROS_CCACHE` environment variable.",
				Optional: true,
			},
			"kerberos_spn": schema.StringAttribute{
				MarkdownDescription: "Override Service Principal Name (SPN) for Kerberos authentication. " +
					"Format: `ldap/<hostname>` (e.g., `ldap/ldap1.example.org`). " +
					"Can be set via the `PERSONDIR_KERBEROS_SPN` environment variable.",
				Optional: true,
			},

			// TLS settings
			"use_tls": schema.BoolAttribute{
				MarkdownDescription: "Upgrade `ldap://` connections with StartTLS. Defaults to `true`. " +
					"Can be set via the `PERSONDIR_USE_TLS` environment variable.",
				Optional: true,
			},
			"skip_tls_verify": schema.BoolAttribute{
				MarkdownDescription: "Skip TLS certificate verification. Not recommended for production. Defaults to `false`. " +
					"Can be set via the `PERSONDIR_SKIP_TLS_VERIFY` environment variable.",
				Optional: true,
			},
			"tls_ca_cert_file": schema.StringAttribute{
				MarkdownDescription: "Path to custom CA certificate file for TLS verification. " +
					"Can be set via the `PERSONDIR_TLS_CA_CERT_FILE` environment variable.",
				Optional: true,
			},
			"tls_ca_cert": schema.StringAttribute{
				MarkdownDescription: "Custom CA certificate content for TLS verification. " +
					"Can be set via the `PERSONDIR_TLS_CA_CERT` environment variable.",
				Optional:  true,
				Sensitive: true,
			},
			"tls_client_cert_file": schema.StringAttribute{
				MarkdownDescription: "Path to client certificate file for mutual TLS authentication. " +
					"Can be set via the `PERSONDIR_TLS_CLIENT_CERT_FILE` environment variable.",
				Optional: true,
			},
			"tls_client_key_file": schema.StringAttribute{
				MarkdownDescription: "Path to client private key file for mutual TLS authentication. " +
					"Can be set via the `PERSONDIR_TLS_CLIENT_KEY_FILE` environment variable.",
				Optional:  true,
				Sensitive: true,
			},

			// Connection pool settings
			"max_connections": schema.Int64Attribute{
				MarkdownDescription: "Maximum number of connections in the connection pool. Defaults to `10`. " +
					"Can be set via the `PERSONDIR_MAX_CONNECTIONS` environment variable.",
				Optional:   true,
				Validators: []validator.Int64{int64validator.Between(1, 100)},
			},
			"max_idle_time": schema.Int64Attribute{
				MarkdownDescription: "Maximum idle time for connections in seconds. Defaults to `300` (5 minutes). " +
					"Can be set via the `PERSONDIR_MAX_IDLE_TIME` environment variable.",
				Optional:   true,
				Validators: []validator.Int64{int64validator.AtLeast(1)},
			},
			"connect_timeout": schema.Int64Attribute{
				MarkdownDescription: "Connection timeout in seconds. Defaults to `30`. " +
					"Can be set via the `PERSONDIR_CONNECT_TIMEOUT` environment variable.",
				Optional:   true,
				Validators: []validator.Int64{int64validator.AtLeast(1)},
			},

			// Retry settings
			"max_retries": schema.Int64Attribute{
				MarkdownDescription: "Maximum number of retry attempts for failed operations. Defaults to `3`. " +
					"Can be set via the `PERSONDIR_MAX_RETRIES` environment variable.",
				Optional:   true,
				Validators: []validator.Int64{int64validator.Between(0, 10)},
			},
			"initial_backoff": schema.Int64Attribute{
				MarkdownDescription: "Initial backoff delay in milliseconds for retry attempts. Defaults to `500`. " +
					"Can be set via the `PERSONDIR_INITIAL_BACKOFF` environment variable.",
				Optional: true,
			},
			"max_backoff": schema.Int64Attribute{
				MarkdownDescription: "Maximum backoff delay in seconds for retry attempts. Defaults to `30`. " +
					"Can be set via the `PERSONDIR_MAX_BACKOFF` environment variable.",
				Optional: true,
			},

			// Lookup pipeline
			"search_base": schema.StringAttribute{
				MarkdownDescription: "Search base, relative to `base_dn` (e.g., `ou=people`). Empty searches from `base_dn`. " +
					"Can be set via the `PERSONDIR_SEARCH_BASE` environment variable.",
				Optional:   true,
				Validators: []validator.String{validators.IsValidRelativeDN()},
			},
			"dn_base": schema.StringAttribute{
				MarkdownDescription: "Suffix appended to the entry DN when filling `dn_attribute`, usually the value of `base_dn`. " +
					"Can be set via the `PERSONDIR_DN_BASE` environment variable.",
				Optional:   true,
				Validators: []validator.String{validators.IsValidDN()},
			},
			"filter": schema.StringAttribute{
				MarkdownDescription: "Search filter template. Every `{0}` is replaced by the identifier without escaping. " +
					"Defaults to `(uid={0})`. Can be set via the `PERSONDIR_FILTER` environment variable.",
				Optional:   true,
				Validators: []validator.String{validators.IsFilterTemplate()},
			},
			"attributes": schema.ListAttribute{
				MarkdownDescription: "Raw attributes to return under their own name, in addition to the keys of `attribute_mapping`.",
				ElementType:         types.StringType,
				Optional:            true,
			},
			"attribute_mapping": schema.MapAttribute{
				MarkdownDescription: "Raw attribute name to exposed attribute name. Several raw names may share a target.",
				ElementType:         types.StringType,
				Optional:            true,
			},
			"dn_attribute": schema.StringAttribute{
				MarkdownDescription: "When set, the entry DN (joined with `dn_base`) is exposed under this name. " +
					"Can be set via the `PERSONDIR_DN_ATTRIBUTE` environment variable.",
				Optional: true,
			},
			"fetch_direct_dn": schema.BoolAttribute{
				MarkdownDescription: "Resolve the entry DN first and read the entry by DN. Needed for constructed " +
					"attributes such as `tokenGroups`. Defaults to `false`. " +
					"Can be set via the `PERSONDIR_FETCH_DIRECT_DN` environment variable.",
				Optional: true,
			},
			"ignore_partial_results": schema.BoolAttribute{
				MarkdownDescription: "Accept results truncated by referrals. Defaults to `true`. " +
					"Can be set via the `PERSONDIR_IGNORE_PARTIAL_RESULTS` environment variable.",
				Optional: true,
			},
			"binary_attributes": schema.ListAttribute{
				MarkdownDescription: "Raw attributes read as bytes. Their values are exposed base64 encoded unless a processor " +
					"converts them. Defaults to `[\"objectGUID\", \"objectSid\"]`.",
				ElementType: types.StringType,
				Optional:    true,
			},
			"search_time_limit": schema.Int64Attribute{
				MarkdownDescription: "Server-side time limit of each search in seconds. `0` means no limit. " +
					"Can be set via the `PERSONDIR_SEARCH_TIME_LIMIT` environment variable.",
				Optional:   true,
				Validators: []validator.Int64{int64validator.AtLeast(0)},
			},
			"processors": schema.ListNestedAttribute{
				MarkdownDescription: "Ordered chain of processors applied to every record.",
				Optional:            true,
				NestedObject: schema.NestedAttributeObject{
					Attributes: processorAttributes(),
				},
			},
		},
	}
}

// processorAttributes returns the attributes of one processor block.
func processorAttributes() map[string]schema.Attribute {
	return map[string]schema.Attribute{
		"type": schema.StringAttribute{
			MarkdownDescription: "Processor type: `add_today_date`, `prefix_redistribute`, `regex_replace`, " +
				"`regex_value_delete`, `regex_value_replace`, `uuid_to_string` or `sid_to_string`. Case-insensitive.",
			Required:   true,
			Validators: []validator.String{validators.IsProcessorType()},
		},
		"layout": schema.StringAttribute{
			MarkdownDescription: "`add_today_date`: Go time layout of the `date` attribute.",
			Optional:            true,
		},
		"attribute": schema.StringAttribute{
			MarkdownDescription: "`prefix_redistribute`: attribute whose values are redistributed.",
			Optional:            true,
		},
		"prefixes": schema.MapAttribute{
			MarkdownDescription: "`prefix_redistribute`: value prefix to target attribute.",
			ElementType:         types.StringType,
			Optional:            true,
		},
		"move_values": schema.BoolAttribute{
			MarkdownDescription: "`prefix_redistribute`: remove matched values from the source. Defaults to `true`.",
			Optional:            true,
		},
		"key": schema.StringAttribute{
			MarkdownDescription: "`regex_value_delete`, `regex_value_replace`: attribute name, matched case-insensitively.",
			Optional:            true,
		},
		"key_match": schema.StringAttribute{
			MarkdownDescription: "`regex_replace`: regular expression selecting attribute names.",
			Optional:            true,
			Validators:          []validator.String{validators.IsRegex()},
		},
		"value_match": schema.StringAttribute{
			MarkdownDescription: "Regular expression applied to string values.",
			Optional:            true,
			Validators:          []validator.String{validators.IsRegex()},
		},
		"value_replace": schema.StringAttribute{
			MarkdownDescription: "Replacement string. `$1` and `${name}` refer to groups.",
			Optional:            true,
		},
		"case_sensitive": schema.BoolAttribute{
			MarkdownDescription: "`regex_value_delete`, `regex_value_replace`: case-sensitive value matching. Defaults to `true`.",
			Optional:            true,
		},
		"source": schema.StringAttribute{
			MarkdownDescription: "`uuid_to_string`, `sid_to_string`: binary source attribute.",
			Optional:            true,
		},
		"target": schema.StringAttribute{
			MarkdownDescription: "`uuid_to_string`, `sid_to_string`: attribute receiving the string form.",
			Optional:            true,
		},
		"strict": schema.BoolAttribute{
			MarkdownDescription: "`uuid_to_string`, `sid_to_string`: fail the lookup on undecodable values instead of writing `Error`.",
			Optional:            true,
		},
		"delete_source": schema.BoolAttribute{
			MarkdownDescription: "`uuid_to_string`, `sid_to_string`: remove the source attribute. Defaults to `true`.",
			Optional:            true,
		},
		"mixed_endian": schema.BoolAttribute{
			MarkdownDescription: "`uuid_to_string`: decode the Active Directory `objectGUID` byte order.",
			Optional:            true,
		},
	}
}

// ConfigValidators implements provider.ProviderWithConfigValidators.
func (p *PersonDirectoryProvider) ConfigValidators(ctx context.Context) []provider.ConfigValidator {
	return []provider.ConfigValidator{
		// Domain and ldap_url are mutually exclusive
		providervalidator.Conflicting(
			path.MatchRoot("domain"),
			path.MatchRoot("ldap_url"),
		),
		// TLS cert file and cert content are mutually exclusive
		providervalidator.Conflicting(
			path.MatchRoot("tls_ca_cert_file"),
			path.MatchRoot("tls_ca_cert"),
		),
		providervalidator.RequiredTogether(
			path.MatchRoot("tls_client_cert_file"),
			path.MatchRoot("tls_client_key_file"),
		),
	}
}

func (p *PersonDirectoryProvider) Configure(ctx context.Context, req provider.ConfigureRequest, resp *provider.ConfigureResponse) {
	var data PersonDirectoryProviderModel

	resp.Diagnostics.Append(req.Config.Get(ctx, &data)...)
	if resp.Diagnostics.HasError() {
		return
	}

	ctx = p.configureLogging(ctx)

	tflog.Info(ctx, "Configuring person directory provider", map[string]any{
		"version": p.version,
	})

	config := p.buildLDAPConfig(&data, &resp.Diagnostics)
	if resp.Diagnostics.HasError() {
		return
	}

	pipeline, specs := p.buildPipelineConfig(ctx, &data, &resp.Diagnostics)
	if resp.Diagnostics.HasError() {
		return
	}

	engineLogger := logging.NewTFLogger(logging.SubsystemPersondir)

	chain, err := processors.BuildChain(specs, processors.WithLogger(engineLogger))
	if err != nil {
		resp.Diagnostics.AddAttributeError(
			path.Root("processors"),
			"Invalid Processor Configuration",
			"The processor chain could not be built.\n\n"+
				"Processor Error: "+err.Error(),
		)
		return
	}

	start := time.Now()
	providerData, err := ldapclient.OpenProviderData(ctx, config, pipeline, chain, ldapclient.PipelineOptions{
		Logger:       logging.NewTFLogger(logging.SubsystemLDAP),
		EngineLogger: engineLogger,
		TimeLimit:    time.Duration(p.getInt64Value(data.SearchTimeLimit, EnvPrefix+"SEARCH_TIME_LIMIT", 0)) * time.Second,
	})
	if err != nil {
		tflog.Error(ctx, "Failed to open person directory", map[string]any{
			"error":       err.Error(),
			"duration_ms": time.Since(start).Milliseconds(),
		})
		resp.Diagnostics.AddError(
			"Unable to Open Person Directory",
			"The provider could not connect to the directory or its lookup configuration is invalid. "+
				"Please verify your configuration settings.\n\n"+
				"Error: "+err.Error(),
		)
		return
	}

	tflog.Info(ctx, "Person directory provider configured successfully", map[string]any{
		"duration_ms":     time.Since(start).Milliseconds(),
		"processor_count": len(chain),
	})

	resp.DataSourceData = providerData
}

// configureLogging sets up logging configuration based on environment variables.
func (p *PersonDirectoryProvider) configureLogging(ctx context.Context) context.Context {
	ctx = initializeLogging(ctx)
	ctx = tflog.SetField(ctx, "provider", "persondir")
	ctx = tflog.SetField(ctx, "provider_version", p.version)

	tflog.Debug(ctx, "Person directory provider logging configured")

	return ctx
}

// buildLDAPConfig constructs the LDAP client configuration from provider config and environment variables.
func (p *PersonDirectoryProvider) buildLDAPConfig(data *PersonDirectoryProviderModel, diags *diag.Diagnostics) *ldapclient.ConnectionConfig {
	config := ldapclient.DefaultConfig()

	domain := p.getStringValue(data.Domain, EnvPrefix+"DOMAIN")
	ldapURL := p.getStringValue(data.LdapURL, EnvPrefix+"LDAP_URL")

	switch {
	case domain != "" && ldapURL != "":
		diags.AddError(
			"Conflicting Connection Configuration",
			"Only one of 'domain' and 'ldap_url' may be set, including through the "+
				EnvPrefix+"DOMAIN and "+EnvPrefix+"LDAP_URL environment variables.",
		)
		return config
	case domain == "" && ldapURL == "":
		diags.AddError(
			"Missing Connection Configuration",
			"Either 'domain' (SRV discovery) or 'ldap_url' must be configured, "+
				"or set the "+EnvPrefix+"DOMAIN or "+EnvPrefix+"LDAP_URL environment variable.",
		)
		return config
	}

	config.Domain = domain
	if ldapURL != "" {
		config.LDAPURLs = []string{ldapURL}
	}

	config.BaseDN = p.getStringValue(data.BaseDN.StringValue, EnvPrefix+"BASE_DN")

	// Authentication: anonymous when nothing is configured
	config.Username = p.getStringValue(data.Username, EnvPrefix+"USERNAME")
	config.Password = p.getStringValue(data.Password, EnvPrefix+"PASSWORD")
	config.KerberosRealm = p.getStringValue(data.KerberosRealm, EnvPrefix+"KERBEROS_REALM")
	config.KerberosKeytab = p.getStringValue(data.KerberosKeytab, EnvPrefix+"KERBEROS_KEYTAB")
	config.KerberosConfig = p.getStringValue(data.KerberosConfig, EnvPrefix+"KERBEROS_CONFIG")
	config.KerberosCCache = p.getStringValue(data.KerberosCCache, EnvPrefix+"KERBEROS_CCACHE")
	config.KerberosSPN = p.getStringValue(data.KerberosSPN, EnvPrefix+"KERBEROS_SPN")

	if config.Password != "" && config.Username == "" {
		diags.AddAttributeError(
			path.Root("username"),
			"Missing Username",
			"A password was configured without a username. Set 'username' or the "+EnvPrefix+"USERNAME environment variable.",
		)
		return config
	}

	// TLS settings
	config.UseTLS = p.getBoolValue(data.UseTLS, EnvPrefix+"USE_TLS", true)
	config.TLSInsecure = p.getBoolValue(data.SkipTLSVerify, EnvPrefix+"SKIP_TLS_VERIFY", false)
	config.TLSCACertFile = p.getStringValue(data.TLSCACertFile, EnvPrefix+"TLS_CA_CERT_FILE")
	config.TLSCACert = p.getStringValue(data.TLSCACert, EnvPrefix+"TLS_CA_CERT")
	config.TLSClientCertFile = p.getStringValue(data.TLSClientCertFile, EnvPrefix+"TLS_CLIENT_CERT_FILE")
	config.TLSClientKeyFile = p.getStringValue(data.TLSClientKeyFile, EnvPrefix+"TLS_CLIENT_KEY_FILE")

	// Connection pool settings
	if maxConnections := p.getInt64Value(data.MaxConnections, EnvPrefix+"MAX_CONNECTIONS", 10); maxConnections > 0 {
		config.MaxConnections = int(maxConnections)
	}

	if maxIdleTime := p.getInt64Value(data.MaxIdleTime, EnvPrefix+"MAX_IDLE_TIME", 300); maxIdleTime > 0 {
		config.MaxIdleTime = time.Duration(maxIdleTime) * time.Second
	}

	if connectTimeout := p.getInt64Value(data.ConnectTimeout, EnvPrefix+"CONNECT_TIMEOUT", 30); connectTimeout > 0 {
		config.Timeout = time.Duration(connectTimeout) * time.Second
	}

	// Retry settings
	if maxRetries := p.getInt64Value(data.MaxRetries, EnvPrefix+"MAX_RETRIES", 3); maxRetries >= 0 {
		config.MaxRetries = int(maxRetries)
	}

	if initialBackoff := p.getInt64Value(data.InitialBackoff, EnvPrefix+"INITIAL_BACKOFF", 500); initialBackoff > 0 {
		config.InitialBackoff = time.Duration(initialBackoff) * time.Millisecond
	}

	if maxBackoff := p.getInt64Value(data.MaxBackoff, EnvPrefix+"MAX_BACKOFF", 30); maxBackoff > 0 {
		config.MaxBackoff = time.Duration(maxBackoff) * time.Second
	}

	return config
}

// buildPipelineConfig constructs the lookup configuration and the processor specs.
func (p *PersonDirectoryProvider) buildPipelineConfig(ctx context.Context, data *PersonDirectoryProviderModel, diags *diag.Diagnostics) (persondir.Config, []processors.Spec) {
	cfg := persondir.DefaultConfig()

	cfg.BaseDN = p.getStringValue(data.SearchBase, EnvPrefix+"SEARCH_BASE")
	cfg.DNBase = p.getStringValue(data.DNBase, EnvPrefix+"DN_BASE")
	if filter := p.getStringValue(data.Filter, EnvPrefix+"FILTER"); filter != "" {
		cfg.Filter = filter
	}
	cfg.DNAttribute = p.getStringValue(data.DNAttribute, EnvPrefix+"DN_ATTRIBUTE")
	cfg.FetchDirectDN = p.getBoolValue(data.FetchDirectDN, EnvPrefix+"FETCH_DIRECT_DN", false)
	cfg.IgnorePartialResults = p.getBoolValue(data.IgnorePartialResults, EnvPrefix+"IGNORE_PARTIAL_RESULTS", true)

	attributes, d := helpers.StringList(ctx, data.Attributes)
	diags.Append(d...)
	cfg.Attributes = attributes

	mapping, d := helpers.StringMap(ctx, data.AttributeMapping)
	diags.Append(d...)
	cfg.AttributeMapping = mapping

	if !data.BinaryAttributes.IsNull() && !data.BinaryAttributes.IsUnknown() {
		binary, d := helpers.StringList(ctx, data.BinaryAttributes)
		diags.Append(d...)
		cfg.BinaryAttributes = binary
	}

	if err := cfg.Validate(); err != nil {
		diags.AddError("Invalid Lookup Configuration", err.Error())
	}

	specs := p.buildProcessorSpecs(ctx, data.Processors, diags)
	return cfg, specs
}

// buildProcessorSpecs converts the processors list into processors.Spec values.
func (p *PersonDirectoryProvider) buildProcessorSpecs(ctx context.Context, list types.List, diags *diag.Diagnostics) []processors.Spec {
	if list.IsNull() || list.IsUnknown() {
		return nil
	}

	var models []ProcessorModel
	diags.Append(list.ElementsAs(ctx, &models, false)...)
	if diags.HasError() {
		return nil
	}

	specs := make([]processors.Spec, 0, len(models))
	for _, m := range models {
		prefixes, d := helpers.StringMap(ctx, m.Prefixes)
		diags.Append(d...)

		specs = append(specs, processors.Spec{
			Type:          strings.TrimSpace(m.Type.ValueString()),
			Layout:        m.Layout.ValueString(),
			Attribute:     m.Attribute.ValueString(),
			Prefixes:      prefixes,
			MoveValues:    optionalBool(m.MoveValues),
			Key:           m.Key.ValueString(),
			KeyMatch:      m.KeyMatch.ValueString(),
			ValueMatch:    m.ValueMatch.ValueString(),
			ValueReplace:  m.ValueReplace.ValueString(),
			CaseSensitive: optionalBool(m.CaseSensitive),
			Source:        m.Source.ValueString(),
			Target:        m.Target.ValueString(),
			Strict:        m.Strict.ValueBool(),
			DeleteSource:  optionalBool(m.DeleteSource),
			MixedEndian:   m.MixedEndian.ValueBool(),
		})
	}
	return specs
}

// Helper functions for configuration value resolution

func (p *PersonDirectoryProvider) getStringValue(configValue types.String, envVar string) string {
	if !configValue.IsNull() && configValue.ValueString() != "" {
		return configValue.ValueString()
	}
	return os.Getenv(envVar)
}

func (p *PersonDirectoryProvider) getBoolValue(configValue types.Bool, envVar string, defaultValue bool) bool {
	if !configValue.IsNull() {
		return configValue.ValueBool()
	}
	if envValue := os.Getenv(envVar); envValue != "" {
		if parsed, err := strconv.ParseBool(envValue); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func (p *PersonDirectoryProvider) getInt64Value(configValue types.Int64, envVar string, defaultValue int64) int64 {
	if !configValue.IsNull() {
		return configValue.ValueInt64()
	}
	if envValue := os.Getenv(envVar); envValue != "" {
		if parsed, err := strconv.ParseInt(envValue, 10, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// optionalBool returns nil for a null value so that the processor default applies.
func optionalBool(v types.Bool) *bool {
	if v.IsNull() || v.IsUnknown() {
		return nil
	}
	b := v.ValueBool()
	return &b
}

func (p *PersonDirectoryProvider) Resources(ctx context.Context) []func() resource.Resource {
	return nil
}

func (p *PersonDirectoryProvider) DataSources(ctx context.Context) []func() datasource.DataSource {
	return []func() datasource.DataSource{
		NewPersonDataSource,
		NewAttributeNamesDataSource,
	}
}

func New(version string) func() provider.Provider {
	return func() provider.Provider {
		return &PersonDirectoryProvider{
			version: version,
		}
	}
}
