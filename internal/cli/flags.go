package cli

import (
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flag names shared by every command.
const (
	flagConfig          = "config"
	flagEnvFile         = "env-file"
	flagLogLevel        = "log-level"
	flagOutput          = "output"
	flagDomain          = "domain"
	flagLDAPURL         = "ldap-url"
	flagBaseDN          = "base-dn"
	flagUsername        = "username"
	flagPassword        = "password"
	flagTimeout         = "timeout"
	flagMaxRetries      = "max-retries"
	flagSkipTLSVerify   = "skip-tls-verify"
	flagSearchBase      = "search-base"
	flagDNBase          = "dn-base"
	flagFilter          = "filter"
	flagAttributes      = "attributes"
	flagDNAttribute     = "dn-attribute"
	flagFetchDirectDN   = "fetch-direct-dn"
	flagSearchTimeLimit = "search-time-limit"
)

func registerPersistentFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()

	flags.StringP(flagConfig, "c", "", "configuration file (default: persondir.yaml in ., $HOME/.persondir or /etc/persondir)")
	flags.String(flagEnvFile, "", "dotenv file to load before reading the environment (default: .env when present)")
	flags.String(flagLogLevel, "", "log level: trace, debug, info, warn or error")
	flags.StringP(flagOutput, "o", "", "output format: text, json or yaml")

	flags.String(flagDomain, "", "Active Directory domain for SRV discovery")
	flags.StringSlice(flagLDAPURL, nil, "LDAP server URL, repeatable")
	flags.String(flagBaseDN, "", "connection base DN")
	flags.String(flagUsername, "", "bind DN, UPN or Kerberos principal")
	flags.String(flagPassword, "", "bind password; prefer PERSONDIR_PASSWORD")
	flags.Duration(flagTimeout, 0, "connection timeout")
	flags.Int(flagMaxRetries, 0, "connection retries")
	flags.Bool(flagSkipTLSVerify, false, "skip server certificate verification")

	flags.String(flagSearchBase, "", "search base, relative to the connection base DN")
	flags.String(flagDNBase, "", "DN suffix for direct DN lookups")
	flags.String(flagFilter, "", "search filter template with the {0} placeholder")
	flags.StringSlice(flagAttributes, nil, "attributes to request")
	flags.String(flagDNAttribute, "", "attribute receiving the entry DN")
	flags.Bool(flagFetchDirectDN, false, "read the entry by DN instead of searching twice")
	flags.Duration(flagSearchTimeLimit, 0, "server-side time limit of each search")
}

// FlagLoader resolves settings from command-line flags when they were given
// and from viper otherwise. Settings neither flagged nor known to viper keep
// their current value.
type FlagLoader struct {
	cmd *cobra.Command
	v   *viper.Viper
}

// NewFlagLoader creates a FlagLoader for cmd.
func NewFlagLoader(cmd *cobra.Command, v *viper.Viper) *FlagLoader {
	return &FlagLoader{cmd: cmd, v: v}
}

func (l *FlagLoader) changed(flag string) bool {
	f := l.cmd.Flags().Lookup(flag)
	return f != nil && f.Changed
}

func (l *FlagLoader) String(dst *string, flag, key string) {
	switch {
	case l.changed(flag):
		*dst, _ = l.cmd.Flags().GetString(flag)
	case key != "" && l.v.IsSet(key):
		*dst = l.v.GetString(key)
	}
}

func (l *FlagLoader) StringSlice(dst *[]string, flag, key string) {
	switch {
	case l.changed(flag):
		*dst, _ = l.cmd.Flags().GetStringSlice(flag)
	case key != "" && l.v.IsSet(key):
		*dst = l.v.GetStringSlice(key)
	}
}

func (l *FlagLoader) Bool(dst *bool, flag, key string) {
	switch {
	case l.changed(flag):
		*dst, _ = l.cmd.Flags().GetBool(flag)
	case key != "" && l.v.IsSet(key):
		*dst = l.v.GetBool(key)
	}
}

func (l *FlagLoader) Int(dst *int, flag, key string) {
	switch {
	case l.changed(flag):
		*dst, _ = l.cmd.Flags().GetInt(flag)
	case key != "" && l.v.IsSet(key):
		*dst = l.v.GetInt(key)
	}
}

func (l *FlagLoader) Duration(dst *time.Duration, flag, key string) {
	switch {
	case l.changed(flag):
		*dst, _ = l.cmd.Flags().GetDuration(flag)
	case key != "" && l.v.IsSet(key):
		*dst = l.v.GetDuration(key)
	}
}
