package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/coachbook/internal/domain"
	"github.com/roach88/coachbook/internal/state"
)

// NewRateCommand creates the rate command group.
func NewRateCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rate",
		Short: "Manage service rates",
		Long: `Manage service rates. A rate whose name contains "standard" (any case)
prices session lines; without one, sessions are billed at the fallback price.`,
	}
	cmd.AddCommand(newRateAddCommand(opts))
	cmd.AddCommand(newRateListCommand(opts))
	cmd.AddCommand(newRateRemoveCommand(opts))
	return cmd
}

func newRateAddCommand(opts *RootOptions) *cobra.Command {
	var r domain.ServiceRate

	cmd := &cobra.Command{
		Use:     "add",
		Short:   "Add a service rate",
		Example: `  coachbook rate add --name "Standard Coaching" --price 120`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(r.Name) == "" {
				return NewExitError(ExitCommandError, "--name is required")
			}
			if r.Price < 0 {
				return NewExitError(ExitCommandError, "--price must not be negative")
			}

			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				r.ID = a.engine.NewID()
				if r.Currency == "" {
					r.Currency = a.store.GetState().Settings.Currency
				}
				a.store.Dispatch(state.AddServiceRate{Rate: r})
				return newFormatter(opts, cmd).Success(message{
					ID:   r.ID,
					Text: fmt.Sprintf("Added rate %s at %s (%s)", r.Name, amount(r.Price, r.Currency), r.ID),
				})
			})
		},
	}

	cmd.Flags().StringVar(&r.Name, "name", "", "rate name")
	cmd.Flags().Float64Var(&r.Price, "price", 0, "unit price")
	cmd.Flags().StringVar(&r.Currency, "currency", "", "currency (default from settings)")
	return cmd
}

func newRateListCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List service rates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				out := append(rateTable{}, a.store.GetState().ServiceRates...)
				return newFormatter(opts, cmd).Success(out)
			})
		},
	}
}

func newRateRemoveCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <rate-id>",
		Short: "Remove a service rate",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				if a.store.Dispatch(state.RemoveServiceRate{ID: args[0]}).Empty() {
					return notFound("rate", args[0])
				}
				return newFormatter(opts, cmd).Success(message{
					ID:   args[0],
					Text: fmt.Sprintf("Removed rate %s", args[0]),
				})
			})
		},
	}
}
