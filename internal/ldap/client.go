package ldap

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-ldap/ldap/v3"

	"github.com/pmarasse/cas-persondir-ldap/internal/logging"
)

// client implements the Client interface.
type client struct {
	pool   ConnectionPool
	config *ConnectionConfig
	logger logging.Logger
}

// NewClient creates a new LDAP client with connection pooling.
func NewClient(ctx context.Context, config *ConnectionConfig, logger logging.Logger) (Client, error) {
	if config == nil {
		config = DefaultConfig()
	}
	logger = logging.OrNop(logger)

	logger.Debug(ctx, "Creating new LDAP client", map[string]any{
		"domain":          config.Domain,
		"ldap_urls_count": len(config.LDAPURLs),
		"auth_method":     config.GetAuthMethod().String(),
		"use_tls":         config.UseTLS,
		"max_connections": config.MaxConnections,
	})

	start := time.Now()
	pool, err := NewConnectionPool(ctx, config, logger)
	if err != nil {
		logger.Error(ctx, "Failed to create connection pool", map[string]any{
			"error":       err.Error(),
			"duration_ms": time.Since(start).Milliseconds(),
		})
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	return newClientWithPool(pool, config, logger), nil
}

func newClientWithPool(pool ConnectionPool, config *ConnectionConfig, logger logging.Logger) *client {
	return &client{
		pool:   pool,
		config: config,
		logger: logging.OrNop(logger),
	}
}

// Connect checks that a connection can be opened, bound, and used to read the root DSE.
func (c *client) Connect(ctx context.Context) error {
	return logging.LogOperation(ctx, c.logger, "connection_test", map[string]any{
		"domain":      c.config.Domain,
		"auth_method": c.config.GetAuthMethod().String(),
	}, func() error {
		conn, err := c.pool.Get(ctx)
		if err != nil {
			return fmt.Errorf("connection test failed: %w", err)
		}
		defer conn.Close()

		return c.ping(conn)
	})
}

// Close closes the client and all its connections.
func (c *client) Close() error {
	return c.pool.Close()
}

// Search performs an LDAP search.
func (c *client) Search(ctx context.Context, req *SearchRequest) (*SearchResult, error) {
	if req == nil {
		return nil, fmt.Errorf("search request cannot be nil")
	}

	fields := map[string]any{
		"base_dn":    req.BaseDN,
		"scope":      req.Scope.String(),
		"filter":     req.Filter,
		"attributes": req.Attributes,
		"size_limit": req.SizeLimit,
	}
	start := time.Now()
	c.logger.Debug(ctx, "Starting search operation", fields)

	conn, err := c.pool.Get(ctx)
	if err != nil {
		logging.LogLDAPError(ctx, c.logger, "get_connection", err, fields)
		return nil, fmt.Errorf("failed to get connection: %w", err)
	}
	defer conn.Close()

	ldapReq := ldap.NewSearchRequest(
		req.BaseDN,
		int(req.Scope),
		int(req.DerefAliases),
		req.SizeLimit,
		int(req.TimeLimit.Seconds()),
		false,
		req.Filter,
		req.Attributes,
		nil,
	)

	var result *ldap.SearchResult
	err = c.withRetry(ctx, func() error {
		var searchErr error
		result, searchErr = conn.Conn().Search(ldapReq)
		return searchErr
	})

	fields["duration_ms"] = time.Since(start).Milliseconds()

	if err != nil {
		if IsPartialResultError(err) && result != nil {
			fields["entries_found"] = len(result.Entries)
			c.logger.Debug(ctx, "Search returned a referral", fields)
			return toSearchResult(req, result), WrapError("search", err)
		}
		if IsNotFoundError(err) {
			c.logger.Debug(ctx, "Search base does not exist", fields)
			return nil, WrapError("search", err)
		}
		logging.LogLDAPError(ctx, c.logger, "search", err, fields)
		return nil, WrapError("search", err)
	}

	searchResult := toSearchResult(req, result)
	fields["entries_found"] = searchResult.Total
	fields["referrals"] = len(searchResult.Referrals)
	c.logger.Debug(ctx, "Search operation completed", fields)

	if len(searchResult.Referrals) > 0 {
		return searchResult, WrapError("search", ErrReferral)
	}
	return searchResult, nil
}

func toSearchResult(req *SearchRequest, result *ldap.SearchResult) *SearchResult {
	return &SearchResult{
		Entries:   result.Entries,
		Referrals: result.Referrals,
		Total:     len(result.Entries),
		HasMore:   req.SizeLimit > 0 && len(result.Entries) >= req.SizeLimit,
	}
}

// Ping tests connectivity to the LDAP server.
func (c *client) Ping(ctx context.Context) error {
	conn, err := c.pool.Get(ctx)
	if err != nil {
		return fmt.Errorf("failed to get connection: %w", err)
	}
	defer conn.Close()

	return c.ping(conn)
}

func (c *client) ping(conn *PooledConnection) error {
	_, err := conn.Conn().Search(rootDSERequest())
	return err
}

// Stats returns pool statistics.
func (c *client) Stats() PoolStats {
	return c.pool.Stats()
}

// withRetry executes an operation with retry logic.
func (c *client) withRetry(ctx context.Context, operation func() error) error {
	var lastErr error
	backoff := c.config.InitialBackoff

	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			c.logger.Debug(ctx, "Retrying operation", map[string]any{
				"attempt":    attempt,
				"max_retry":  c.config.MaxRetries,
				"backoff_ms": backoff.Milliseconds(),
				"last_error": lastErr.Error(),
			})
		}

		err := operation()
		if err == nil {
			if attempt > 0 {
				c.logger.Info(ctx, "Operation succeeded after retries", map[string]any{
					"total_attempts": attempt + 1,
				})
			}
			return nil
		}

		lastErr = err

		if !c.isRetryableError(err) {
			return err
		}

		if attempt == c.config.MaxRetries {
			break
		}

		select {
		case <-ctx.Done():
			c.logger.Warn(ctx, "Operation cancelled during retry", map[string]any{
				"context_error": ctx.Err().Error(),
				"attempt":       attempt + 1,
			})
			return ctx.Err()
		case <-time.After(backoff):
			backoff = min(time.Duration(float64(backoff)*c.config.BackoffFactor), c.config.MaxBackoff)
		}
	}

	c.logger.Error(ctx, "Operation failed after all retries exhausted", map[string]any{
		"total_attempts": c.config.MaxRetries + 1,
		"final_error":    lastErr.Error(),
	})

	return NewConnectionError("operation failed after retries", false, lastErr)
}

// isRetryableError determines if an error should be retried.
func (c *client) isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	var retryable RetryableError
	if errors.As(err, &retryable) {
		return retryable.IsRetryable()
	}

	if ldap.IsErrorWithCode(err, ldap.LDAPResultBusy) ||
		ldap.IsErrorWithCode(err, ldap.LDAPResultUnavailable) ||
		ldap.IsErrorWithCode(err, ldap.LDAPResultServerDown) ||
		ldap.IsErrorWithCode(err, ldap.ErrorNetwork) {
		return true
	}

	var resultErr *ldap.Error
	if errors.As(err, &resultErr) {
		return false
	}

	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "connection") ||
		strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "network") ||
		strings.Contains(errStr, "broken pipe")
}
