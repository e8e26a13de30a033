package ldap

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
)

// buildCertPool returns the system roots extended with the configured CA,
// read from caFile or given inline as PEM in caPEM.
func buildCertPool(caFile, caPEM string) (*x509.CertPool, error) {
	pool, err := x509.SystemCertPool()
	if err != nil || pool == nil {
		pool = x509.NewCertPool()
	}

	if caFile != "" {
		data, err := os.ReadFile(caFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA certificate file %s: %w", caFile, err)
		}
		if !pool.AppendCertsFromPEM(data) {
			return nil, fmt.Errorf("invalid PEM format in CA certificate file %s", caFile)
		}
	}

	if caPEM != "" {
		if !pool.AppendCertsFromPEM([]byte(caPEM)) {
			return nil, fmt.Errorf("invalid PEM format in CA certificate content")
		}
	}

	return pool, nil
}

// prepareTLSConfig completes config.TLSConfig with the CA pool, the client
// certificate and the verification switch.
func prepareTLSConfig(config *ConnectionConfig) error {
	if config.TLSConfig == nil {
		config.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	pool, err := buildCertPool(config.TLSCACertFile, config.TLSCACert)
	if err != nil {
		return err
	}
	config.TLSConfig.RootCAs = pool

	if config.TLSClientCertFile != "" && config.TLSClientKeyFile != "" {
		cert, err := tls.LoadX509KeyPair(config.TLSClientCertFile, config.TLSClientKeyFile)
		if err != nil {
			return fmt.Errorf("failed to load client certificate: %w", err)
		}
		config.TLSConfig.Certificates = []tls.Certificate{cert}
	}

	if config.TLSInsecure {
		config.TLSConfig.InsecureSkipVerify = true //nolint:gosec // explicit opt-in
	}

	return nil
}

// tlsConfigFor clones the shared TLS configuration for one server so that
// certificate verification checks the right host name.
func tlsConfigFor(config *ConnectionConfig, server *ServerInfo) *tls.Config {
	if config.TLSConfig == nil {
		return nil
	}
	tlsConfig := config.TLSConfig.Clone()
	if !tlsConfig.InsecureSkipVerify {
		tlsConfig.ServerName = server.Host
	}
	return tlsConfig
}
