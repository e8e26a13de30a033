package ldap

import (
	"context"
	"crypto/tls"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-ldap/ldap/v3"
)

// ConnectionConfig holds configuration for directory connections.
type ConnectionConfig struct {
	// Connection settings
	Domain   string        `json:"domain,omitempty" mapstructure:"domain" yaml:"domain,omitempty"`          // Domain for SRV discovery
	LDAPURLs []string      `json:"ldap_urls,omitempty" mapstructure:"ldap_urls" yaml:"ldap_urls,omitempty"` // Direct LDAP URLs (overrides domain)
	BaseDN   string        `json:"base_dn,omitempty" mapstructure:"base_dn" yaml:"base_dn,omitempty"`       // Connection base; search bases and entry DNs are relative to it
	Timeout  time.Duration `json:"timeout" mapstructure:"timeout" yaml:"timeout" default:"30s"`

	// Authentication settings
	Username       string `json:"username,omitempty" mapstructure:"username" yaml:"username,omitempty"` // Bind DN, UPN, or Kerberos principal
	Password       string `json:"-" mapstructure:"password" yaml:"-"`
	KerberosRealm  string `json:"kerberos_realm,omitempty" mapstructure:"kerberos_realm" yaml:"kerberos_realm,omitempty"`
	KerberosKeytab string `json:"kerberos_keytab,omitempty" mapstructure:"kerberos_keytab" yaml:"kerberos_keytab,omitempty"`
	KerberosConfig string `json:"kerberos_config,omitempty" mapstructure:"kerberos_config" yaml:"kerberos_config,omitempty"` // krb5.conf path; generated from the realm when empty
	KerberosCCache string `json:"kerberos_ccache,omitempty" mapstructure:"kerberos_ccache" yaml:"kerberos_ccache,omitempty"`
	KerberosSPN    string `json:"kerberos_spn,omitempty" mapstructure:"kerberos_spn" yaml:"kerberos_spn,omitempty"`

	// TLS settings
	TLSConfig         *tls.Config `json:"-" mapstructure:"-" yaml:"-"`
	UseTLS            bool        `json:"use_tls" mapstructure:"use_tls" yaml:"use_tls" default:"true"` // StartTLS on ldap:// URLs
	SkipTLS           bool        `json:"skip_tls,omitempty" mapstructure:"skip_tls" yaml:"skip_tls,omitempty"`
	TLSInsecure       bool        `json:"tls_insecure,omitempty" mapstructure:"tls_insecure" yaml:"tls_insecure,omitempty"`
	TLSCACertFile     string      `json:"tls_ca_cert_file,omitempty" mapstructure:"tls_ca_cert_file" yaml:"tls_ca_cert_file,omitempty"`
	TLSCACert         string      `json:"tls_ca_cert,omitempty" mapstructure:"tls_ca_cert" yaml:"tls_ca_cert,omitempty"`
	TLSClientCertFile string      `json:"tls_client_cert_file,omitempty" mapstructure:"tls_client_cert_file" yaml:"tls_client_cert_file,omitempty"`
	TLSClientKeyFile  string      `json:"tls_client_key_file,omitempty" mapstructure:"tls_client_key_file" yaml:"tls_client_key_file,omitempty"`

	// Pool settings
	MaxConnections int           `json:"max_connections" mapstructure:"max_connections" yaml:"max_connections" default:"10"`
	MaxIdleTime    time.Duration `json:"max_idle_time" mapstructure:"max_idle_time" yaml:"max_idle_time" default:"5m"`
	HealthCheck    time.Duration `json:"health_check" mapstructure:"health_check" yaml:"health_check" default:"30s"`

	// Retry settings
	MaxRetries     int           `json:"max_retries" mapstructure:"max_retries" yaml:"max_retries" default:"3"`
	InitialBackoff time.Duration `json:"initial_backoff" mapstructure:"initial_backoff" yaml:"initial_backoff" default:"500ms"`
	MaxBackoff     time.Duration `json:"max_backoff" mapstructure:"max_backoff" yaml:"max_backoff" default:"30s"`
	BackoffFactor  float64       `json:"backoff_factor" mapstructure:"backoff_factor" yaml:"backoff_factor" default:"2.0"`
}

// DefaultConfig returns a secure default configuration.
func DefaultConfig() *ConnectionConfig {
	cfg := &ConnectionConfig{}
	if err := defaults.Set(cfg); err != nil {
		panic(err)
	}
	cfg.TLSConfig = &tls.Config{
		MinVersion: tls.VersionTLS12,
	}
	return cfg
}

// PooledConnection represents a connection in the pool.
type PooledConnection struct {
	conn          *ldap.Conn
	lastUsed      time.Time
	healthy       bool
	authenticated bool
	authTime      time.Time
	serverInfo    *ServerInfo
	returnToPool  func(*PooledConnection)
}

// ServerInfo contains information about an LDAP server.
type ServerInfo struct {
	Host     string
	Port     int
	UseTLS   bool
	Priority int
	Weight   int
	Source   string // "srv", "config", "fallback"
}

// ConnectionPool manages a pool of LDAP connections.
type ConnectionPool interface {
	Get(ctx context.Context) (*PooledConnection, error)
	Close() error
	Stats() PoolStats
	HealthCheck(ctx context.Context) error
}

// PoolStats provides statistics about the connection pool.
type PoolStats struct {
	Total   int           // Pooled connections
	Active  int64         // Connections handed out
	Idle    int           // Connections waiting in the pool
	Created int64         // Connections created since start
	Errors  int64         // Connection failures since start
	Uptime  time.Duration // Pool uptime
}

// Client provides the read-only LDAP operations used by the person lookup.
type Client interface {
	Connect(ctx context.Context) error
	Close() error

	// Search runs req. When the server answers with referrals the entries
	// gathered so far are returned together with an error for which
	// IsPartialResultError reports true.
	Search(ctx context.Context, req *SearchRequest) (*SearchResult, error)

	Ping(ctx context.Context) error
	Stats() PoolStats
}

// SearchRequest encapsulates LDAP search parameters.
type SearchRequest struct {
	BaseDN       string
	Scope        SearchScope
	Filter       string
	Attributes   []string
	SizeLimit    int
	TimeLimit    time.Duration
	DerefAliases DerefAliases
}

// SearchResult contains search results and metadata.
type SearchResult struct {
	Entries   []*ldap.Entry
	Referrals []string
	Total     int
	HasMore   bool
}

// SearchScope defines LDAP search scope.
type SearchScope int

const (
	ScopeBaseObject SearchScope = iota
	ScopeSingleLevel
	ScopeWholeSubtree
)

func (s SearchScope) String() string {
	switch s {
	case ScopeBaseObject:
		return "base"
	case ScopeSingleLevel:
		return "one"
	case ScopeWholeSubtree:
		return "sub"
	default:
		return "unknown"
	}
}

// DerefAliases defines alias dereferencing behavior.
type DerefAliases int

const (
	NeverDerefAliases DerefAliases = iota
	DerefInSearching
	DerefFindingBaseObj
	DerefAlways
)

// AuthMethod defines authentication method types.
type AuthMethod int

const (
	AuthMethodAnonymous  AuthMethod = iota // No bind
	AuthMethodSimpleBind                   // Username/password authentication
	AuthMethodKerberos                     // GSSAPI/Kerberos authentication
	AuthMethodExternal                     // External/certificate authentication
)

// String returns string representation of authentication method.
func (a AuthMethod) String() string {
	switch a {
	case AuthMethodAnonymous:
		return "anonymous"
	case AuthMethodSimpleBind:
		return "simple"
	case AuthMethodKerberos:
		return "kerberos"
	case AuthMethodExternal:
		return "external"
	default:
		return "unknown"
	}
}

// GetAuthMethod determines the authentication method from the configuration.
func (c *ConnectionConfig) GetAuthMethod() AuthMethod {
	// Kerberos authentication takes precedence
	if c.KerberosRealm != "" && (c.KerberosKeytab != "" || c.Username != "") {
		return AuthMethodKerberos
	}

	if c.Username != "" && c.Password != "" {
		return AuthMethodSimpleBind
	}

	if c.TLSClientCertFile != "" && c.TLSClientKeyFile != "" {
		return AuthMethodExternal
	}

	return AuthMethodAnonymous
}

// HasAuthentication checks if any authentication method is configured.
func (c *ConnectionConfig) HasAuthentication() bool {
	return c.GetAuthMethod() != AuthMethodAnonymous
}

// RetryableError indicates an error that can be retried.
type RetryableError interface {
	error
	IsRetryable() bool
}

// ConnectionError represents connection-related errors.
type ConnectionError struct {
	message   string
	retryable bool
	cause     error
}

func (e *ConnectionError) Error() string {
	if e.cause != nil {
		return e.message + ": " + e.cause.Error()
	}
	return e.message
}

func (e *ConnectionError) IsRetryable() bool {
	return e.retryable
}

func (e *ConnectionError) Unwrap() error {
	return e.cause
}

// NewConnectionError creates a new connection error.
func NewConnectionError(message string, retryable bool, cause error) *ConnectionError {
	return &ConnectionError{
		message:   message,
		retryable: retryable,
		cause:     cause,
	}
}
