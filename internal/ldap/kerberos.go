package ldap

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/go-ldap/ldap/v3"
	"github.com/go-ldap/ldap/v3/gssapi"
	krb5client "github.com/jcmturner/gokrb5/v8/client"

	"github.com/pmarasse/cas-persondir-ldap/internal/logging"
)

const defaultKrb5Conf = "/etc/krb5.conf"

// performKerberosAuth performs a GSSAPI bind on conn.
func performKerberosAuth(ctx context.Context, logger logging.Logger, conn *ldap.Conn, cfg *ConnectionConfig, serverInfo *ServerInfo) error {
	if err := prepareKerberosConfig(cfg); err != nil {
		return fmt.Errorf("kerberos configuration error: %w", err)
	}

	gssapiClient, err := createGSSAPIClient(ctx, logger, cfg)
	if err != nil {
		return fmt.Errorf("failed to create GSSAPI client: %w", err)
	}
	defer func() {
		_ = gssapiClient.DeleteSecContext()
	}()

	spn, err := buildServicePrincipal(cfg, serverInfo)
	if err != nil {
		return fmt.Errorf("failed to build service principal: %w", err)
	}

	logging.LogConnectionEvent(ctx, logger, "kerberos_bind", map[string]any{
		"realm": cfg.KerberosRealm,
		"spn":   spn,
	})

	if err := conn.GSSAPIBind(gssapiClient, spn, ""); err != nil {
		return fmt.Errorf("GSSAPI bind failed: %w", err)
	}

	return nil
}

// createGSSAPIClient creates a GSSAPI client.
// Priority order: explicit ccache, default ccache, explicit keytab, default keytab, password.
func createGSSAPIClient(ctx context.Context, logger logging.Logger, cfg *ConnectionConfig) (ldap.GSSAPIClient, error) {
	krb5confPath, cleanup, err := resolveKrb5Conf(ctx, logger, cfg)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	if cfg.KerberosCCache != "" && fileExists(cfg.KerberosCCache) {
		return gssapi.NewClientFromCCache(cfg.KerberosCCache, krb5confPath, krb5client.DisablePAFXFAST(true))
	}

	if defaultCCache := getDefaultCCachePath(); fileExists(defaultCCache) {
		logging.OrNop(logger).Debug(ctx, "Using default credential cache", map[string]any{
			"ccache": defaultCCache,
		})
		return gssapi.NewClientFromCCache(defaultCCache, krb5confPath, krb5client.DisablePAFXFAST(true))
	}

	if cfg.KerberosKeytab != "" && fileExists(cfg.KerberosKeytab) {
		return gssapi.NewClientWithKeytab(cfg.Username, cfg.KerberosRealm, cfg.KerberosKeytab, krb5confPath, krb5client.DisablePAFXFAST(true))
	}

	if defaultKeytab := getDefaultKeytabPath(); cfg.Username != "" && fileExists(defaultKeytab) {
		return gssapi.NewClientWithKeytab(cfg.Username, cfg.KerberosRealm, defaultKeytab, krb5confPath, krb5client.DisablePAFXFAST(true))
	}

	if cfg.Username != "" && cfg.Password != "" {
		return gssapi.NewClientWithPassword(cfg.Username, cfg.KerberosRealm, cfg.Password, krb5confPath, krb5client.DisablePAFXFAST(true))
	}

	return nil, fmt.Errorf("no suitable credentials found for Kerberos authentication")
}

// resolveKrb5Conf returns the krb5.conf to load. Without an explicit path
// and without /etc/krb5.conf, a DNS-discovery configuration is generated
// for the realm into a temporary file removed by cleanup.
func resolveKrb5Conf(ctx context.Context, logger logging.Logger, cfg *ConnectionConfig) (path string, cleanup func(), err error) {
	cleanup = func() {}

	if cfg.KerberosConfig != "" {
		if !fileExists(cfg.KerberosConfig) {
			return "", cleanup, fmt.Errorf("kerberos configuration file not found at %s", cfg.KerberosConfig)
		}
		return cfg.KerberosConfig, cleanup, nil
	}

	if fileExists(defaultKrb5Conf) {
		return defaultKrb5Conf, cleanup, nil
	}

	content, err := generateRuntimeKrb5Conf(ctx, logger, cfg)
	if err != nil {
		return "", cleanup, err
	}

	f, err := os.CreateTemp("", "persondir-krb5-*.conf")
	if err != nil {
		return "", cleanup, fmt.Errorf("failed to write runtime krb5.conf: %w", err)
	}
	cleanup = func() { _ = os.Remove(f.Name()) }

	if _, err := f.WriteString(content); err != nil {
		_ = f.Close()
		cleanup()
		return "", func() {}, fmt.Errorf("failed to write runtime krb5.conf: %w", err)
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", func() {}, fmt.Errorf("failed to write runtime krb5.conf: %w", err)
	}

	return f.Name(), cleanup, nil
}

// generateRuntimeKrb5Conf renders a krb5.conf relying on DNS SRV records to find the KDCs.
func generateRuntimeKrb5Conf(ctx context.Context, logger logging.Logger, cfg *ConnectionConfig) (string, error) {
	if cfg.KerberosRealm == "" {
		return "", fmt.Errorf("kerberos realm is required for auto-discovery")
	}

	realm := strings.ToUpper(cfg.KerberosRealm)
	domain := strings.ToLower(cfg.KerberosRealm)
	if cfg.Domain != "" {
		domain = strings.ToLower(cfg.Domain)
	}

	logging.OrNop(logger).Debug(ctx, "Generating runtime krb5.conf", map[string]any{
		"realm":  realm,
		"domain": domain,
	})

	return fmt.Sprintf(`[libdefaults]
    default_realm = %s
    dns_lookup_kdc = true
    dns_lookup_realm = false
    rdns = false
    forwardable = true

[realms]
    %s = {
    }

[domain_realm]
    .%s = %s
    %s = %s
`, realm, realm, domain, realm, domain, realm), nil
}

// buildServicePrincipal returns cfg.KerberosSPN, or ldap/<host> for the connected server.
func buildServicePrincipal(cfg *ConnectionConfig, serverInfo *ServerInfo) (string, error) {
	if cfg == nil {
		return "", fmt.Errorf("configuration is required for service principal")
	}

	if cfg.KerberosSPN != "" {
		return cfg.KerberosSPN, nil
	}

	if serverInfo == nil || serverInfo.Host == "" {
		return "", fmt.Errorf("hostname is required for service principal")
	}

	hostname, _, _ := strings.Cut(serverInfo.Host, ":")
	return "ldap/" + hostname, nil
}

// prepareKerberosConfig validates the Kerberos settings, splitting a
// user@REALM principal when no realm is configured.
func prepareKerberosConfig(cfg *ConnectionConfig) error {
	if cfg == nil {
		return fmt.Errorf("configuration cannot be nil")
	}

	if cfg.KerberosRealm == "" {
		if user, realm, ok := strings.Cut(cfg.Username, "@"); ok && realm != "" {
			cfg.Username = user
			cfg.KerberosRealm = strings.ToUpper(realm)
		}
	}

	if cfg.KerberosRealm == "" && cfg.Domain != "" {
		cfg.KerberosRealm = strings.ToUpper(cfg.Domain)
	}

	if cfg.KerberosRealm == "" {
		return fmt.Errorf("kerberos realm is required (set kerberos_realm or include realm in username)")
	}

	hasExplicitCCache := cfg.KerberosCCache != "" && fileExists(cfg.KerberosCCache)
	hasDefaultCCache := fileExists(getDefaultCCachePath())
	hasKeytab := cfg.Username != "" && ((cfg.KerberosKeytab != "" && fileExists(cfg.KerberosKeytab)) || fileExists(getDefaultKeytabPath()))
	hasPassword := cfg.Username != "" && cfg.Password != ""

	if !hasExplicitCCache && !hasDefaultCCache && !hasKeytab && !hasPassword {
		return fmt.Errorf("no suitable Kerberos credentials found: provide kerberos_ccache, kerberos_keytab, password, or ensure default credential cache/keytab exists")
	}

	return nil
}

// getDefaultCCachePath returns the default credential cache location.
func getDefaultCCachePath() string {
	if ccache := os.Getenv("KRB5CCNAME"); ccache != "" {
		return strings.TrimPrefix(ccache, "FILE:")
	}
	return fmt.Sprintf("/tmp/krb5cc_%d", os.Getuid())
}

// getDefaultKeytabPath returns the default keytab location.
func getDefaultKeytabPath() string {
	if keytab := os.Getenv("KRB5_KTNAME"); keytab != "" {
		return strings.TrimPrefix(keytab, "FILE:")
	}
	return "/etc/krb5.keytab"
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	file, err := os.Open(path)
	if err != nil {
		return false
	}
	_ = file.Close()
	return true
}
