package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/coachbook/internal/config"
	"github.com/roach88/coachbook/internal/engine"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	Driver     string
	DSN        string
	ConfigFile string
	EnvFiles   []string

	// Config is resolved before any subcommand runs.
	Config *config.Config

	// Clock and IDs override the engine defaults (for testing).
	Clock engine.Clock
	IDs   engine.IDGenerator
}

// ValidFormats defines the allowed output formats.
var ValidFormats = config.ValidFormats

// NewRootCommand creates the root command for the coachbook CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	v := config.New()

	cmd := &cobra.Command{
		Use:   "coachbook",
		Short: "coachbook - records and billing for a coaching practice",
		Long: `Keep coachees, sessions, invoices, consent documents and recurring
billing for a coaching practice in one local store.

Storage defaults to a SQLite file; --driver selects postgres, redis, a
directory of JSON files or an in-memory store. Every flag can also be set
through a COACHBOOK_* environment variable or a .env file.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.LoadEnvFiles(opts.EnvFiles...); err != nil {
				return WrapExitError(ExitCommandError, "failed to load env file", err)
			}
			cfg, err := config.Load(v, opts.ConfigFile)
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid configuration", err)
			}
			opts.Config = cfg
			opts.Format = cfg.Format
			opts.Verbose = cfg.Verbose
			return nil
		},
	}

	// Global flags
	flags := cmd.PersistentFlags()
	flags.BoolVarP(&opts.Verbose, config.KeyVerbose, "v", false, "verbose output")
	flags.StringVar(&opts.Format, config.KeyFormat, "text", "output format (json|text)")
	flags.StringVar(&opts.Driver, config.KeyDriver, "sqlite", "storage driver (sqlite|postgres|redis|file|memory)")
	flags.StringVar(&opts.DSN, config.KeyDSN, "", "storage location: file path, connection string, address or directory")
	flags.StringVar(&opts.ConfigFile, "config", "", "config file (yaml, json or toml)")
	flags.StringSliceVar(&opts.EnvFiles, "env-file", nil, "env files to load (default .env)")
	if err := config.BindFlags(v, flags); err != nil {
		panic(fmt.Sprintf("bind flags: %v", err))
	}

	cmd.AddCommand(NewCoacheeCommand(opts))
	cmd.AddCommand(NewSessionCommand(opts))
	cmd.AddCommand(NewRateCommand(opts))
	cmd.AddCommand(NewInvoiceCommand(opts))
	cmd.AddCommand(NewConsentCommand(opts))
	cmd.AddCommand(NewScheduleCommand(opts))
	cmd.AddCommand(NewTaskCommand(opts))
	cmd.AddCommand(NewJournalCommand(opts))
	cmd.AddCommand(NewSettingsCommand(opts))
	cmd.AddCommand(NewImportCommand(opts))
	cmd.AddCommand(NewExportCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}
