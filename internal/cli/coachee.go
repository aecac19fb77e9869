package cli

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/coachbook/internal/domain"
	"github.com/roach88/coachbook/internal/state"
)

// NewCoacheeCommand creates the coachee command group.
func NewCoacheeCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "coachee",
		Short: "Manage coachees",
	}
	cmd.AddCommand(newCoacheeAddCommand(opts))
	cmd.AddCommand(newCoacheeListCommand(opts))
	cmd.AddCommand(newCoacheeStatusCommand(opts))
	cmd.AddCommand(newCoacheeRemoveCommand(opts))
	return cmd
}

func newCoacheeAddCommand(opts *RootOptions) *cobra.Command {
	var (
		c      domain.Coachee
		status string
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a coachee",
		Example: `  coachbook coachee add --first Clara --last Meyer --email clara@example.com
  coachbook coachee add --first Ben --status potential --goal "Find a new role"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c.Status = domain.CoacheeStatus(status)
			if !c.Status.Valid() {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid status %q", status))
			}
			if strings.TrimSpace(c.FirstName+c.LastName+c.Email) == "" {
				return NewExitError(ExitCommandError, "a coachee needs a name or an email")
			}

			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				c.ID = a.engine.NewID()
				c.CreatedAt = a.now()
				a.store.Dispatch(state.AddCoachee{Coachee: c})
				return newFormatter(opts, cmd).Success(message{
					ID:   c.ID,
					Text: fmt.Sprintf("Added coachee %s (%s)", c.DisplayName(), c.ID),
				})
			})
		},
	}

	cmd.Flags().StringVar(&c.FirstName, "first", "", "first name")
	cmd.Flags().StringVar(&c.LastName, "last", "", "last name")
	cmd.Flags().StringVar(&c.Email, "email", "", "email address")
	cmd.Flags().StringVar(&c.Phone, "phone", "", "phone number")
	cmd.Flags().StringVar(&status, "status", string(domain.CoacheeStatusActive), "potential|active|paused|completed")
	cmd.Flags().StringArrayVar(&c.Goals, "goal", nil, "coaching goal (repeatable)")
	return cmd
}

func newCoacheeListCommand(opts *RootOptions) *cobra.Command {
	var status string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List coachees",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				out := coacheeTable{}
				for _, c := range a.store.GetState().Coachees {
					if status != "" && string(c.Status) != status {
						continue
					}
					out = append(out, c)
				}
				return newFormatter(opts, cmd).Success(out)
			})
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "only coachees with this status")
	return cmd
}

func newCoacheeStatusCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status <coachee-id> <status>",
		Short: "Change a coachee's status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			status := domain.CoacheeStatus(args[1])
			if !status.Valid() {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid status %q", args[1]))
			}

			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				c, ok := a.store.GetState().Coachee(args[0])
				if !ok {
					return notFound("coachee", args[0])
				}
				c.Status = status
				a.store.Dispatch(state.UpdateCoachee{Coachee: c})
				return newFormatter(opts, cmd).Success(message{
					ID:   c.ID,
					Text: fmt.Sprintf("%s is now %s", c.DisplayName(), status),
				})
			})
		},
	}
}

func newCoacheeRemoveCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <coachee-id>",
		Short: "Remove a coachee",
		Long: `Remove a coachee. Sessions, invoices and documents that reference the
coachee are kept and show as "Unknown coachee".`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				change := a.store.Dispatch(state.RemoveCoachee{ID: args[0]})
				if change.Empty() {
					return notFound("coachee", args[0])
				}
				return newFormatter(opts, cmd).Success(message{
					ID:   args[0],
					Text: fmt.Sprintf("Removed coachee %s", args[0]),
				})
			})
		},
	}
}

// notFound reports a missing record named on the command line.
func notFound(kind, id string) error {
	return NewExitError(ExitFailure, fmt.Sprintf("%s %q not found", kind, id))
}

func sortedCopy(in []string) []string {
	out := append([]string(nil), in...)
	sort.Strings(out)
	return out
}
