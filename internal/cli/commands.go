package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	ldapclient "github.com/pmarasse/cas-persondir-ldap/internal/ldap"
)

func (a *app) lookupCommand() *cobra.Command {
	var failIfMissing, escape bool

	cmd := &cobra.Command{
		Use:   "lookup IDENTIFIER...",
		Short: "Look up people and print their attributes",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			pd, err := a.pipeline(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = pd.Close() }()

			results := make([]Result, 0, len(args))
			var missing []string
			for _, identifier := range args {
				query := identifier
				if escape {
					query = ldapclient.EscapeFilter(identifier)
				}

				rec, err := pd.Engine.Lookup(ctx, query)
				if err != nil {
					category := ldapclient.GetErrorCategory(err)
					if !pd.IsConnected(ctx) {
						category += ", directory unreachable"
					}
					return fmt.Errorf("lookup of %q failed (%s): %w", identifier, category, err)
				}

				res := NewResult(identifier, rec)
				if !res.Found {
					missing = append(missing, identifier)
				}
				results = append(results, res)
			}

			a.logger.Debug().Fields(pd.Stats()).Msg("Lookups completed")

			if err := writeResults(a.out, a.cfg.Output, results); err != nil {
				return err
			}

			if failIfMissing && len(missing) > 0 {
				return fmt.Errorf("no entry found for %s", strings.Join(missing, ", "))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&failIfMissing, "fail-if-missing", false, "exit with an error when an identifier matches nothing")
	cmd.Flags().BoolVar(&escape, "escape", false, "escape filter special characters in identifiers (RFC 4515)")

	return cmd
}

func (a *app) namesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "names",
		Short: "Print every attribute name a lookup may return",
		Long: `names lists the attribute names produced by the configured query,
attribute mapping and processors. It does not contact the directory.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := a.offlineEngine(cmd.Context())
			if err != nil {
				return err
			}
			return writeNames(a.out, a.cfg.Output, engine.PossibleNames(cmd.Context()))
		},
	}
}

// validation is the printable outcome of the validate command.
type validation struct {
	Valid      bool     `json:"valid" yaml:"valid"`
	Filter     string   `json:"filter" yaml:"filter"`
	Processors int      `json:"processors" yaml:"processors"`
	Names      []string `json:"attribute_names" yaml:"attribute_names"`
	Connected  *bool    `json:"connected,omitempty" yaml:"connected,omitempty"`
}

func (a *app) validateCommand() *cobra.Command {
	var connect bool

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check the configuration, and optionally the directory connection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			engine, err := a.offlineEngine(ctx)
			if err != nil {
				return err
			}

			cfg := engine.Config()
			result := validation{
				Valid:      true,
				Filter:     cfg.Filter,
				Processors: len(a.cfg.Processors),
				Names:      engine.PossibleNames(ctx),
			}

			if connect {
				pd, err := a.pipeline(ctx)
				if err != nil {
					return err
				}
				defer func() { _ = pd.Close() }()

				if err := pd.ValidateConnection(ctx); err != nil {
					return err
				}
				connected := true
				result.Connected = &connected
			}

			return write(a.out, a.cfg.Output, result, func() error {
				_, err := fmt.Fprintf(a.out, "configuration is valid: filter %s, %d processor(s), %d attribute name(s)\n",
					result.Filter, result.Processors, len(result.Names))
				if err == nil && result.Connected != nil {
					_, err = fmt.Fprintln(a.out, "directory connection ok")
				}
				return err
			})
		},
	}

	cmd.Flags().BoolVar(&connect, "connect", false, "also connect and bind to the directory")

	return cmd
}
