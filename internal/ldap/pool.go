package ldap

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-ldap/ldap/v3"

	"github.com/pmarasse/cas-persondir-ldap/internal/logging"
)

// MaxConnectionPoolLimit is the maximum allowed connections in a pool.
const MaxConnectionPoolLimit = 100

// maxAuthAge bounds how long a bind is trusted before the connection re-binds.
const maxAuthAge = 5 * time.Minute

// ErrPoolClosed is returned by Get after Close.
var ErrPoolClosed = errors.New("connection pool is closed")

type dialFunc func(server *ServerInfo) (*ldap.Conn, error)

// connectionPool implements ConnectionPool.
type connectionPool struct {
	config      *ConnectionConfig
	logger      logging.Logger
	servers     []*ServerInfo
	connections chan *PooledConnection
	mu          sync.RWMutex
	closed      bool
	dial        dialFunc

	activeConns  int64
	totalCreated int64
	totalErrors  int64
	startTime    time.Time

	healthTicker *time.Ticker
	healthStop   chan struct{}
	healthWg     sync.WaitGroup
}

// NewConnectionPool validates config, resolves the servers to contact and
// starts the health checker. No connection is opened until Get.
func NewConnectionPool(ctx context.Context, config *ConnectionConfig, logger logging.Logger) (ConnectionPool, error) {
	if config == nil {
		config = DefaultConfig()
	}
	logger = logging.OrNop(logger)

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if err := prepareTLSConfig(config); err != nil {
		return nil, fmt.Errorf("invalid TLS configuration: %w", err)
	}

	pool := &connectionPool{
		config:      config,
		logger:      logger,
		connections: make(chan *PooledConnection, config.MaxConnections),
		startTime:   time.Now(),
		healthStop:  make(chan struct{}),
	}
	pool.dial = pool.dialServer

	if err := pool.discoverServers(ctx, NewSRVDiscovery(logger)); err != nil {
		return nil, fmt.Errorf("server discovery failed: %w", err)
	}

	if config.HealthCheck > 0 {
		pool.startHealthChecker()
	}

	logger.Debug(ctx, "Connection pool created", map[string]any{
		"server_count":    len(pool.servers),
		"max_connections": config.MaxConnections,
	})
	return pool, nil
}

// discoverServers resolves the configured URLs, or the domain through SRV records.
func (p *connectionPool) discoverServers(ctx context.Context, discovery *SRVDiscovery) error {
	var servers []*ServerInfo

	switch {
	case len(p.config.LDAPURLs) > 0:
		for _, u := range p.config.LDAPURLs {
			server, err := ParseLDAPURL(u)
			if err != nil {
				return fmt.Errorf("invalid LDAP URL %s: %w", u, err)
			}
			servers = append(servers, server)
		}
	case p.config.Domain != "":
		discoveryCtx, cancel := context.WithTimeout(ctx, p.config.Timeout)
		defer cancel()

		discovered, err := discovery.DiscoverServers(discoveryCtx, p.config.Domain)
		if err != nil {
			return fmt.Errorf("SRV discovery failed: %w", err)
		}
		servers = discovered
	default:
		return errors.New("either domain or LDAP URLs must be specified")
	}

	if len(servers) == 0 {
		return errors.New("no servers discovered")
	}

	p.mu.Lock()
	p.servers = servers
	p.mu.Unlock()
	return nil
}

// Get retrieves a connection from the pool, dialing a new one when none is idle.
func (p *connectionPool) Get(ctx context.Context) (*PooledConnection, error) {
	p.mu.RLock()
	closed := p.closed
	p.mu.RUnlock()
	if closed {
		return nil, ErrPoolClosed
	}

	select {
	case conn := <-p.connections:
		if p.isConnectionHealthy(conn) {
			if p.config.HasAuthentication() && p.needsReAuthentication(conn) {
				if err := p.authenticateConnection(ctx, conn); err != nil {
					p.closeConnection(conn)
					return p.createConnection(ctx)
				}
			}
			conn.lastUsed = time.Now()
			atomic.AddInt64(&p.activeConns, 1)
			return conn, nil
		}
		p.closeConnection(conn)
	default:
	}

	return p.createConnection(ctx)
}

// createConnection tries every server in order, with backoff between rounds.
func (p *connectionPool) createConnection(ctx context.Context) (*PooledConnection, error) {
	var lastErr error
	backoff := p.config.InitialBackoff

	for attempt := 0; attempt <= p.config.MaxRetries; attempt++ {
		for _, server := range p.servers {
			conn, err := p.createSingleConnection(ctx, server)
			if err != nil {
				lastErr = err
				atomic.AddInt64(&p.totalErrors, 1)
				logging.LogConnectionEvent(ctx, p.logger, "connection_failed", map[string]any{
					"server":  ServerInfoToURL(server),
					"attempt": attempt + 1,
					"error":   err.Error(),
				})
				continue
			}

			atomic.AddInt64(&p.totalCreated, 1)
			atomic.AddInt64(&p.activeConns, 1)
			return conn, nil
		}

		if attempt < p.config.MaxRetries {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
				backoff = min(time.Duration(float64(backoff)*p.config.BackoffFactor), p.config.MaxBackoff)
			}
		}
	}

	return nil, NewConnectionError("failed to create connection after retries", true, lastErr)
}

// createSingleConnection dials server and binds with the configured method.
func (p *connectionPool) createSingleConnection(ctx context.Context, server *ServerInfo) (*PooledConnection, error) {
	conn, err := p.dial(server)
	if err != nil {
		return nil, err
	}

	pooledConn := &PooledConnection{
		conn:         conn,
		lastUsed:     time.Now(),
		healthy:      true,
		serverInfo:   server,
		returnToPool: p.returnConnection,
	}

	if p.config.HasAuthentication() {
		if err := p.authenticateConnection(ctx, pooledConn); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("failed to authenticate connection to %s: %w", ServerInfoToURL(server), err)
		}
	}

	logging.LogConnectionEvent(ctx, p.logger, "connection_established", map[string]any{
		"server":      ServerInfoToURL(server),
		"source":      server.Source,
		"auth_method": p.config.GetAuthMethod().String(),
	})
	return pooledConn, nil
}

// dialServer opens an LDAPS connection, or a plain one upgraded with
// StartTLS unless TLS is skipped.
func (p *connectionPool) dialServer(server *ServerInfo) (*ldap.Conn, error) {
	url := ServerInfoToURL(server)
	tlsConfig := tlsConfigFor(p.config, server)
	dialer := ldap.DialWithDialer(&net.Dialer{Timeout: p.config.Timeout})

	var conn *ldap.Conn
	var err error

	if server.UseTLS {
		conn, err = ldap.DialURL(url, dialer, ldap.DialWithTLSConfig(tlsConfig))
	} else {
		conn, err = ldap.DialURL(url, dialer)
		if err == nil && p.config.UseTLS && !p.config.SkipTLS {
			if err = conn.StartTLS(tlsConfig); err != nil {
				_ = conn.Close()
			}
		}
	}

	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", url, err)
	}

	conn.SetTimeout(p.config.Timeout)
	return conn, nil
}

// authenticateConnection binds pooledConn using the configured method.
func (p *connectionPool) authenticateConnection(ctx context.Context, pooledConn *PooledConnection) error {
	if pooledConn == nil || pooledConn.conn == nil {
		return fmt.Errorf("connection is nil")
	}

	authMethod := p.config.GetAuthMethod()
	var err error

	switch authMethod {
	case AuthMethodSimpleBind:
		err = pooledConn.conn.Bind(p.config.Username, p.config.Password)
	case AuthMethodKerberos:
		err = performKerberosAuth(ctx, p.logger, pooledConn.conn, p.config, pooledConn.serverInfo)
	case AuthMethodExternal:
		err = pooledConn.conn.ExternalBind()
	case AuthMethodAnonymous:
		return nil
	default:
		return fmt.Errorf("unsupported authentication method: %s", authMethod.String())
	}

	if err != nil {
		pooledConn.authenticated = false
		pooledConn.authTime = time.Time{}
		logging.LogLDAPError(ctx, p.logger, "bind", err, map[string]any{
			"auth_method": authMethod.String(),
			"username":    p.config.Username,
		})
		return err
	}

	pooledConn.authenticated = true
	pooledConn.authTime = time.Now()
	return nil
}

func (p *connectionPool) needsReAuthentication(conn *PooledConnection) bool {
	if conn == nil || !conn.authenticated {
		return true
	}
	return time.Since(conn.authTime) > maxAuthAge
}

// returnConnection puts conn back in the pool, or closes it when the pool is
// full, closed, or the connection went stale.
func (p *connectionPool) returnConnection(conn *PooledConnection) {
	if conn == nil {
		return
	}

	atomic.AddInt64(&p.activeConns, -1)

	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		p.closeConnection(conn)
		return
	}

	if !p.isConnectionHealthy(conn) {
		p.closeConnection(conn)
		return
	}

	select {
	case p.connections <- conn:
	default:
		p.closeConnection(conn)
	}
}

func (p *connectionPool) isConnectionHealthy(conn *PooledConnection) bool {
	if conn == nil || conn.conn == nil || !conn.healthy || conn.conn.IsClosing() {
		return false
	}

	if time.Since(conn.lastUsed) > p.config.MaxIdleTime {
		return false
	}

	if p.config.HasAuthentication() && !conn.authenticated {
		return false
	}

	return true
}

func (p *connectionPool) closeConnection(conn *PooledConnection) {
	if conn != nil && conn.conn != nil {
		_ = conn.conn.Close()
		conn.healthy = false
		conn.authenticated = false
		conn.authTime = time.Time{}
	}
}

// Close closes all connections and shuts down the pool.
func (p *connectionPool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	if p.healthTicker != nil {
		close(p.healthStop)
		p.healthWg.Wait()
		p.healthTicker.Stop()
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	close(p.connections)
	for conn := range p.connections {
		p.closeConnection(conn)
	}

	return nil
}

// Stats returns pool statistics.
func (p *connectionPool) Stats() PoolStats {
	idle := len(p.connections)
	return PoolStats{
		Total:   idle + int(atomic.LoadInt64(&p.activeConns)),
		Active:  atomic.LoadInt64(&p.activeConns),
		Idle:    idle,
		Created: atomic.LoadInt64(&p.totalCreated),
		Errors:  atomic.LoadInt64(&p.totalErrors),
		Uptime:  time.Since(p.startTime),
	}
}

// HealthCheck reports whether the pool can still hand out connections.
func (p *connectionPool) HealthCheck(_ context.Context) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrPoolClosed
	}
	return nil
}

func (p *connectionPool) startHealthChecker() {
	p.healthTicker = time.NewTicker(p.config.HealthCheck)

	p.healthWg.Go(func() {
		for {
			select {
			case <-p.healthTicker.C:
				p.performHealthCheck()
			case <-p.healthStop:
				return
			}
		}
	})
}

// performHealthCheck probes up to three idle connections.
func (p *connectionPool) performHealthCheck() {
	ctx, cancel := context.WithTimeout(context.Background(), p.config.Timeout)
	defer cancel()

	var toCheck []*PooledConnection

healthCheckLoop:
	for range 3 {
		select {
		case conn := <-p.connections:
			toCheck = append(toCheck, conn)
		default:
			break healthCheckLoop
		}
	}

	for _, conn := range toCheck {
		if !p.testConnection(ctx, conn) {
			p.closeConnection(conn)
			continue
		}
		// returnConnection decrements the active count
		atomic.AddInt64(&p.activeConns, 1)
		p.returnConnection(conn)
	}
}

// testConnection re-binds if needed and reads the root DSE.
func (p *connectionPool) testConnection(ctx context.Context, conn *PooledConnection) bool {
	if conn == nil || conn.conn == nil {
		return false
	}

	if p.config.HasAuthentication() && p.needsReAuthentication(conn) {
		if err := p.authenticateConnection(ctx, conn); err != nil {
			return false
		}
	}

	if _, err := conn.conn.Search(rootDSERequest()); err != nil {
		conn.authenticated = false
		conn.authTime = time.Time{}
		return false
	}

	return true
}

func rootDSERequest() *ldap.SearchRequest {
	return ldap.NewSearchRequest(
		"",
		ldap.ScopeBaseObject,
		ldap.NeverDerefAliases,
		1, 5, false,
		"(objectClass=*)",
		[]string{"namingContexts", "defaultNamingContext"},
		nil,
	)
}

// validateConfig validates the connection configuration.
func validateConfig(config *ConnectionConfig) error {
	if config.MaxConnections <= 0 {
		return errors.New("MaxConnections must be positive")
	}

	if config.MaxConnections > MaxConnectionPoolLimit {
		return fmt.Errorf("MaxConnections too high (max %d)", MaxConnectionPoolLimit)
	}

	if config.MaxIdleTime <= 0 {
		return errors.New("MaxIdleTime must be positive")
	}

	if config.Timeout <= 0 {
		return errors.New("timeout must be positive")
	}

	if config.MaxRetries < 0 {
		return errors.New("MaxRetries cannot be negative")
	}

	if config.BackoffFactor <= 1.0 {
		return errors.New("BackoffFactor must be greater than 1.0")
	}

	if config.BaseDN != "" {
		if err := ValidateDNSyntax(config.BaseDN); err != nil {
			return fmt.Errorf("base DN: %w", err)
		}
	}

	return nil
}

// Close returns the connection to its pool.
func (pc *PooledConnection) Close() {
	if pc.returnToPool != nil {
		pc.returnToPool(pc)
	}
}

func (pc *PooledConnection) Conn() *ldap.Conn {
	return pc.conn
}

func (pc *PooledConnection) ServerInfo() *ServerInfo {
	return pc.serverInfo
}

func (pc *PooledConnection) IsHealthy() bool {
	return pc.healthy
}

func (pc *PooledConnection) LastUsed() time.Time {
	return pc.lastUsed
}
