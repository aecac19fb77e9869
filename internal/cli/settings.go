package cli

import (
	"context"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/roach88/coachbook/internal/domain"
	"github.com/roach88/coachbook/internal/state"
)

// NewSettingsCommand creates the settings command group.
func NewSettingsCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change practice settings",
	}
	cmd.AddCommand(newSettingsShowCommand(opts))
	cmd.AddCommand(newSettingsSetCommand(opts))
	return cmd
}

func newSettingsShowCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				return newFormatter(opts, cmd).Success(settingsView(a.store.GetState().Settings))
			})
		},
	}
}

func newSettingsSetCommand(opts *RootOptions) *cobra.Command {
	var next domain.Settings

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Change settings",
		Long: `Change settings. Only the flags given are changed. A new prefix applies
to invoices created afterwards; existing numbers stay as they are.`,
		Example: `  coachbook settings set --company "North Star Coaching" --tax-rate 19 --prefix NS`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			if !anyChanged(flags, "company", "tax-rate", "currency", "deadline", "prefix") {
				return NewExitError(ExitCommandError, "nothing to change")
			}
			if flags.Changed("tax-rate") && (next.TaxRate < 0 || next.TaxRate > 100) {
				return NewExitError(ExitCommandError, "--tax-rate must be between 0 and 100")
			}
			if flags.Changed("deadline") && next.PaymentDeadlineDays < 0 {
				return NewExitError(ExitCommandError, "--deadline must not be negative")
			}
			if flags.Changed("prefix") && strings.ContainsAny(next.InvoicePrefix, "- ") {
				return NewExitError(ExitCommandError, "--prefix must not contain dashes or spaces")
			}

			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				s := a.store.GetState().Settings
				if flags.Changed("company") {
					s.CompanyName = next.CompanyName
				}
				if flags.Changed("tax-rate") {
					s.TaxRate = next.TaxRate
				}
				if flags.Changed("currency") {
					s.Currency = strings.ToUpper(next.Currency)
				}
				if flags.Changed("deadline") {
					s.PaymentDeadlineDays = next.PaymentDeadlineDays
				}
				if flags.Changed("prefix") {
					s.InvoicePrefix = next.InvoicePrefix
				}
				a.store.Dispatch(state.SetSettings{Settings: s})
				return newFormatter(opts, cmd).Success(settingsView(s))
			})
		},
	}

	cmd.Flags().StringVar(&next.CompanyName, "company", "", "company name")
	cmd.Flags().Float64Var(&next.TaxRate, "tax-rate", 0, "tax rate in percent")
	cmd.Flags().StringVar(&next.Currency, "currency", "", "currency code")
	cmd.Flags().IntVar(&next.PaymentDeadlineDays, "deadline", 0, "payment deadline in days")
	cmd.Flags().StringVar(&next.InvoicePrefix, "prefix", "", "invoice number prefix")
	return cmd
}

func anyChanged(flags *pflag.FlagSet, names ...string) bool {
	for _, n := range names {
		if flags.Changed(n) {
			return true
		}
	}
	return false
}
