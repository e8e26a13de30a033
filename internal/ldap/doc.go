/*
Package ldap is the directory side of the person attribute lookup.

It provides a pooled, retrying LDAP client and adapts it to the
persondir.Directory interface.

# Connection Management

The Client interface hides a connection pool with automatic failover:

  - Servers come from explicit ldap:// or ldaps:// URLs, or from DNS SRV
    records (_ldaps._tcp, _ldap._tcp, _gc._tcp) of a domain
  - Plain connections are upgraded with StartTLS unless TLS is skipped
  - Simple, Kerberos (GSSAPI) and external (client certificate) binds, or
    anonymous access when no credentials are configured
  - Retry with exponential backoff on transient failures

# Directory Adapter

Directory implements persondir.Directory on top of a Client. Search bases
and lookup DNs are relative to the connection base DN, and entry DNs come
back relative to it. Attributes listed with WithBinaryAttributes keep
their raw bytes; every other value is a string.

Referrals and continuation references are reported as partial results:
the entries received are returned with an error wrapping
persondir.ErrPartialResults. A missing search base or entry is reported
with persondir.ErrEntryNotFound.

# Error Handling

LDAPError categorizes failures (connection, authentication, permission,
not_found, partial, validation, server) and marks the retryable ones.

# Example Usage

	config := ldap.DefaultConfig()
	config.LDAPURLs = []string{"ldaps://ldap.example.org"}
	config.BaseDN = "dc=example,dc=org"
	config.Username = "cn=reader,dc=example,dc=org"
	config.Password = password

	client, err := ldap.NewClient(ctx, config, logger)
	if err != nil {
		return err
	}
	defer client.Close()

	dir := ldap.NewDirectory(client, config.BaseDN, ldap.WithBinaryAttributes("objectGUID"))
	engine := persondir.New(cfg, dir, chain)
	record, err := engine.Lookup(ctx, "jdoe")
*/
package ldap
