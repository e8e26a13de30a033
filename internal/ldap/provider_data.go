package ldap

import (
	"context"
	"fmt"
	"time"

	"github.com/pmarasse/cas-persondir-ldap/internal/logging"
	"github.com/pmarasse/cas-persondir-ldap/internal/persondir"
)

// ProviderData bundles the LDAP client and the person lookup engine built on
// it, so that data sources and CLI commands share one configured pipeline.
type ProviderData struct {
	Client Client
	Engine *persondir.Engine
	logger logging.Logger
}

// NewProviderData wraps client and engine.
func NewProviderData(client Client, engine *persondir.Engine, logger logging.Logger) *ProviderData {
	return &ProviderData{
		Client: client,
		Engine: engine,
		logger: logging.OrNop(logger),
	}
}

// PipelineOptions tunes OpenProviderData.
type PipelineOptions struct {
	// Logger receives connection and search events.
	Logger logging.Logger
	// EngineLogger receives lookup events. Defaults to Logger.
	EngineLogger logging.Logger
	// TimeLimit is the server-side limit of every search. Zero means none.
	TimeLimit time.Duration
}

// OpenProviderData connects to the directory described by conn and builds the
// lookup engine for cfg and chain on top of it. Binary attributes come from
// cfg. The client is closed again when any step fails.
func OpenProviderData(ctx context.Context, conn *ConnectionConfig, cfg persondir.Config, chain []persondir.Processor, opts PipelineOptions) (*ProviderData, error) {
	logger := logging.OrNop(opts.Logger)
	engineLogger := opts.EngineLogger
	if engineLogger == nil {
		engineLogger = logger
	}

	client, err := NewClient(ctx, conn, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create LDAP client: %w", err)
	}

	if err := client.Connect(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect: %w", err)
	}

	dir := NewDirectory(client, conn.BaseDN,
		WithBinaryAttributes(cfg.BinaryAttributes...),
		WithTimeLimit(opts.TimeLimit),
		WithDirectoryLogger(logger),
	)

	engine := persondir.New(cfg, dir, chain, persondir.WithLogger(engineLogger))
	if err := engine.Init(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("invalid lookup configuration: %w", err)
	}

	return NewProviderData(client, engine, logger), nil
}

// ValidateConnection checks that the engine configuration is valid and the
// directory answers.
func (pd *ProviderData) ValidateConnection(ctx context.Context) error {
	if pd.Client == nil {
		return fmt.Errorf("LDAP client is not initialized")
	}

	if pd.Engine == nil {
		return fmt.Errorf("person lookup engine is not initialized")
	}

	if err := pd.Engine.Init(ctx); err != nil {
		return fmt.Errorf("invalid lookup configuration: %w", err)
	}

	if err := pd.Client.Ping(ctx); err != nil {
		return fmt.Errorf("LDAP client connection failed: %w", err)
	}

	pd.logger.Debug(ctx, "Provider data validation successful", map[string]any{
		"possible_attributes": len(pd.Engine.PossibleNames(ctx)),
	})

	return nil
}

// IsConnected reports whether the directory answers a ping.
func (pd *ProviderData) IsConnected(ctx context.Context) bool {
	if pd.Client == nil {
		return false
	}

	if err := pd.Client.Ping(ctx); err != nil {
		pd.logger.Debug(ctx, "Connection check failed", map[string]any{
			"error": err.Error(),
		})
		return false
	}

	return true
}

// Stats returns the pool statistics as loggable fields.
func (pd *ProviderData) Stats() map[string]any {
	if pd.Client == nil {
		return map[string]any{}
	}

	stats := pd.Client.Stats()
	return map[string]any{
		"pool_total":   stats.Total,
		"pool_active":  stats.Active,
		"pool_idle":    stats.Idle,
		"pool_created": stats.Created,
		"pool_errors":  stats.Errors,
		"uptime_ms":    stats.Uptime.Milliseconds(),
	}
}

// Close closes the client.
func (pd *ProviderData) Close() error {
	if pd.Client == nil {
		return nil
	}

	if err := pd.Client.Close(); err != nil {
		return fmt.Errorf("failed to close LDAP client: %w", err)
	}
	return nil
}
