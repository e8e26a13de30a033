package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	ldapclient "github.com/pmarasse/cas-persondir-ldap/internal/ldap"
	"github.com/pmarasse/cas-persondir-ldap/internal/persondir"
	"github.com/pmarasse/cas-persondir-ldap/internal/persondir/processors"
)

// EnvPrefix prefixes every environment variable read by the CLI. The names
// match the ones read by the Terraform provider.
const EnvPrefix = "PERSONDIR_"

const configName = "persondir"

// FileConfig is the CLI configuration as found in persondir.yaml.
type FileConfig struct {
	LDAP            ldapclient.ConnectionConfig `mapstructure:"ldap" yaml:"ldap"`
	Lookup          persondir.Config            `mapstructure:"lookup" yaml:"lookup"`
	Processors      []processors.Spec           `mapstructure:"processors" yaml:"processors,omitempty"`
	SearchTimeLimit time.Duration               `mapstructure:"search_time_limit" yaml:"search_time_limit"`
	LogLevel        string                      `mapstructure:"log_level" yaml:"log_level" default:"warn"`
	Output          string                      `mapstructure:"output" yaml:"output" default:"text"`
}

// DefaultFileConfig returns the configuration used when nothing is set.
func DefaultFileConfig() *FileConfig {
	cfg := &FileConfig{}
	if err := defaults.Set(cfg); err != nil {
		panic(err)
	}
	return cfg
}

// envBindings maps configuration keys to the environment variables that may set them.
var envBindings = map[string]string{
	"ldap.domain":                   "DOMAIN",
	"ldap.ldap_urls":                "LDAP_URL",
	"ldap.base_dn":                  "BASE_DN",
	"ldap.username":                 "USERNAME",
	"ldap.password":                 "PASSWORD",
	"ldap.kerberos_realm":           "KERBEROS_REALM",
	"ldap.kerberos_keytab":          "KERBEROS_KEYTAB",
	"ldap.kerberos_config":          "KERBEROS_CONFIG",
	"ldap.kerberos_ccache":          "KERBEROS_CCACHE",
	"ldap.kerberos_spn":             "KERBEROS_SPN",
	"ldap.use_tls":                  "USE_TLS",
	"ldap.tls_insecure":             "SKIP_TLS_VERIFY",
	"ldap.tls_ca_cert_file":         "TLS_CA_CERT_FILE",
	"ldap.tls_ca_cert":              "TLS_CA_CERT",
	"ldap.tls_client_cert_file":     "TLS_CLIENT_CERT_FILE",
	"ldap.tls_client_key_file":      "TLS_CLIENT_KEY_FILE",
	"ldap.max_connections":          "MAX_CONNECTIONS",
	"ldap.max_retries":              "MAX_RETRIES",
	"lookup.base_dn":                "SEARCH_BASE",
	"lookup.dn_base":                "DN_BASE",
	"lookup.filter":                 "FILTER",
	"lookup.dn_attribute":           "DN_ATTRIBUTE",
	"lookup.fetch_direct_dn":        "FETCH_DIRECT_DN",
	"lookup.ignore_partial_results": "IGNORE_PARTIAL_RESULTS",
	"log_level":                     "LOG_LEVEL",
	"output":                        "OUTPUT",
}

// LoadConfig resolves the configuration of cmd. Later sources win: defaults,
// the YAML file, PERSONDIR_ environment variables (after loading the dotenv
// file), then flags.
func LoadConfig(cmd *cobra.Command, v *viper.Viper) (*FileConfig, error) {
	flags := NewFlagLoader(cmd, v)

	var envFile string
	flags.String(&envFile, flagEnvFile, "")
	if err := loadEnvFile(envFile); err != nil {
		return nil, err
	}

	var configFile string
	flags.String(&configFile, flagConfig, "")
	if err := readConfigFile(v, configFile); err != nil {
		return nil, err
	}

	for key, env := range envBindings {
		if err := v.BindEnv(key, EnvPrefix+env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}

	cfg := DefaultFileConfig()
	// A list given in the file replaces the default instead of merging with it.
	if v.IsSet("lookup.binary_attributes") {
		cfg.Lookup.BinaryAttributes = nil
	}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}
	if err := decodeKeyedSections(v.ConfigFileUsed(), cfg); err != nil {
		return nil, err
	}

	flags.String(&cfg.LogLevel, flagLogLevel, "log_level")
	flags.String(&cfg.Output, flagOutput, "output")

	flags.String(&cfg.LDAP.Domain, flagDomain, "ldap.domain")
	flags.StringSlice(&cfg.LDAP.LDAPURLs, flagLDAPURL, "ldap.ldap_urls")
	flags.String(&cfg.LDAP.BaseDN, flagBaseDN, "ldap.base_dn")
	flags.String(&cfg.LDAP.Username, flagUsername, "ldap.username")
	flags.String(&cfg.LDAP.Password, flagPassword, "ldap.password")
	flags.Duration(&cfg.LDAP.Timeout, flagTimeout, "ldap.timeout")
	flags.Int(&cfg.LDAP.MaxRetries, flagMaxRetries, "ldap.max_retries")
	flags.Bool(&cfg.LDAP.TLSInsecure, flagSkipTLSVerify, "ldap.tls_insecure")

	flags.String(&cfg.Lookup.BaseDN, flagSearchBase, "lookup.base_dn")
	flags.String(&cfg.Lookup.DNBase, flagDNBase, "lookup.dn_base")
	flags.String(&cfg.Lookup.Filter, flagFilter, "lookup.filter")
	flags.StringSlice(&cfg.Lookup.Attributes, flagAttributes, "lookup.attributes")
	flags.String(&cfg.Lookup.DNAttribute, flagDNAttribute, "lookup.dn_attribute")
	flags.Bool(&cfg.Lookup.FetchDirectDN, flagFetchDirectDN, "lookup.fetch_direct_dn")
	flags.Duration(&cfg.SearchTimeLimit, flagSearchTimeLimit, "search_time_limit")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings that do not need a directory.
func (c *FileConfig) Validate() error {
	if _, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel)); err != nil {
		return fmt.Errorf("invalid log level %q: %w", c.LogLevel, err)
	}

	if !slices.Contains(Formats(), c.Output) {
		return fmt.Errorf("invalid output format %q: must be one of %s", c.Output, strings.Join(Formats(), ", "))
	}

	if err := c.Lookup.Validate(); err != nil {
		return err
	}

	if c.SearchTimeLimit < 0 {
		return fmt.Errorf("invalid search time limit %s: must not be negative", c.SearchTimeLimit)
	}

	return nil
}

// ValidateConnection checks the settings needed to reach the directory.
func (c *FileConfig) ValidateConnection() error {
	switch {
	case c.LDAP.Domain != "" && len(c.LDAP.LDAPURLs) > 0:
		return fmt.Errorf("domain and ldap_urls are mutually exclusive")
	case c.LDAP.Domain == "" && len(c.LDAP.LDAPURLs) == 0:
		return fmt.Errorf("either domain or ldap_urls must be set (or %sDOMAIN / %sLDAP_URL)", EnvPrefix, EnvPrefix)
	case c.LDAP.Password != "" && c.LDAP.Username == "":
		return fmt.Errorf("a password was configured without a username")
	}
	return nil
}

// keyedSections are the parts of the file whose map keys are data. viper
// lowercases every key it reads, so they are decoded again from the raw YAML.
type keyedSections struct {
	Lookup struct {
		AttributeMapping map[string]string `yaml:"attribute_mapping"`
	} `yaml:"lookup"`
	Processors []processors.Spec `yaml:"processors"`
}

func decodeKeyedSections(path string, cfg *FileConfig) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json":
	default:
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read configuration: %w", err)
	}

	var raw keyedSections
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to decode configuration: %w", err)
	}

	if raw.Lookup.AttributeMapping != nil {
		cfg.Lookup.AttributeMapping = raw.Lookup.AttributeMapping
	}
	if raw.Processors != nil {
		cfg.Processors = raw.Processors
	}
	return nil
}

// loadEnvFile loads path, or ./.env when path is empty and the file exists.
// Variables already in the environment are kept.
func loadEnvFile(path string) error {
	if path != "" {
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("failed to load env file %s: %w", path, err)
		}
		return nil
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}
	return nil
}

// readConfigFile reads path, or searches the default locations when path is
// empty. Only an explicitly named file is required to exist.
func readConfigFile(v *viper.Viper, path string) error {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(configName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.persondir")
		v.AddConfigPath("/etc/persondir/")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path == "" && errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("failed to read configuration: %w", err)
	}
	return nil
}
