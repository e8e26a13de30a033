// Package cli implements the persondir command: person lookups against an
// LDAP directory from the command line, configured like the Terraform provider.
package cli

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	ldapclient "github.com/pmarasse/cas-persondir-ldap/internal/ldap"
	"github.com/pmarasse/cas-persondir-ldap/internal/logging"
	"github.com/pmarasse/cas-persondir-ldap/internal/persondir"
	"github.com/pmarasse/cas-persondir-ldap/internal/persondir/processors"
)

// Build-time variables (set via -ldflags).
var (
	Version   = "dev"
	GitCommit = "unknown"
)

// opener connects the lookup pipeline described by cfg.
type opener func(ctx context.Context, cfg *FileConfig, chain []persondir.Processor, base zerolog.Logger) (*ldapclient.ProviderData, error)

type app struct {
	v      *viper.Viper
	out    io.Writer
	errOut io.Writer
	open   opener

	cfg    *FileConfig
	logger zerolog.Logger
}

func newApp(out, errOut io.Writer, open opener) *app {
	return &app{
		v:      viper.New(),
		out:    out,
		errOut: errOut,
		open:   open,
		logger: zerolog.Nop(),
	}
}

// NewRootCommand builds the persondir command tree.
func NewRootCommand() *cobra.Command {
	return newApp(os.Stdout, os.Stderr, openPipeline).command()
}

// Execute runs the persondir command and exits non-zero on failure.
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func (a *app) command() *cobra.Command {
	root := &cobra.Command{
		Use:   "persondir",
		Short: "Look up person attributes in an LDAP directory",
		Long: `persondir resolves a user identifier to a directory entry and prints its
attributes after mapping and post-processing.

Configuration is read from persondir.yaml, PERSONDIR_* environment variables
(a .env file is loaded first) and flags, in increasing order of precedence.`,
		Version:      Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := LoadConfig(cmd, a.v)
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.logger = newLogger(a.errOut, cfg.LogLevel)
			return nil
		},
	}
	root.SetOut(a.out)
	root.SetErr(a.errOut)
	root.SetVersionTemplate("persondir {{.Version}} (" + GitCommit + ")\n")

	registerPersistentFlags(root)

	root.AddCommand(
		a.lookupCommand(),
		a.namesCommand(),
		a.validateCommand(),
	)

	return root
}

func newLogger(w io.Writer, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.WarnLevel
	}

	return zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}).
		Level(lvl).
		With().
		Timestamp().
		Logger()
}

// buildChain builds the configured processors.
func (a *app) buildChain() ([]persondir.Processor, error) {
	return processors.BuildChain(a.cfg.Processors,
		processors.WithLogger(logging.NewZerologLogger(a.logger, logging.SubsystemPersondir)),
	)
}

// offlineEngine builds an engine that never reaches the directory, for
// commands that only inspect the configuration.
func (a *app) offlineEngine(ctx context.Context) (*persondir.Engine, error) {
	chain, err := a.buildChain()
	if err != nil {
		return nil, err
	}

	engine := persondir.New(a.cfg.Lookup, offlineDirectory{}, chain,
		persondir.WithLogger(logging.NewZerologLogger(a.logger, logging.SubsystemPersondir)),
	)
	if err := engine.Init(ctx); err != nil {
		return nil, err
	}
	return engine, nil
}

// pipeline connects to the directory and returns the ready engine.
func (a *app) pipeline(ctx context.Context) (*ldapclient.ProviderData, error) {
	if err := a.cfg.ValidateConnection(); err != nil {
		return nil, err
	}

	chain, err := a.buildChain()
	if err != nil {
		return nil, err
	}

	return a.open(ctx, a.cfg, chain, a.logger)
}

func openPipeline(ctx context.Context, cfg *FileConfig, chain []persondir.Processor, base zerolog.Logger) (*ldapclient.ProviderData, error) {
	conn := cfg.LDAP
	return ldapclient.OpenProviderData(ctx, &conn, cfg.Lookup, chain, ldapclient.PipelineOptions{
		Logger:       logging.NewZerologLogger(base, logging.SubsystemLDAP),
		EngineLogger: logging.NewZerologLogger(base, logging.SubsystemPersondir),
		TimeLimit:    cfg.SearchTimeLimit,
	})
}

var errOffline = errors.New("directory is not connected")

type offlineDirectory struct{}

func (offlineDirectory) Search(context.Context, string, string, []string) ([]*persondir.Entry, error) {
	return nil, errOffline
}

func (offlineDirectory) LookupDN(context.Context, string, []string) (*persondir.Entry, error) {
	return nil, errOffline
}
