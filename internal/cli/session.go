package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/coachbook/internal/domain"
	"github.com/roach88/coachbook/internal/engine"
	"github.com/roach88/coachbook/internal/state"
)

// NewSessionCommand creates the session command group.
func NewSessionCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Record coaching sessions",
	}
	cmd.AddCommand(newSessionAddCommand(opts))
	cmd.AddCommand(newSessionCompleteCommand(opts))
	cmd.AddCommand(newSessionListCommand(opts))
	return cmd
}

func newSessionAddCommand(opts *RootOptions) *cobra.Command {
	var (
		s         domain.Session
		coacheeID string
		date      string
		status    string
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record a session",
		Example: `  coachbook session add --coachee c1 --date 2025-03-10 --topic "Career goals" --status completed
  coachbook session add --coachee c1 --duration 90`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s.Status = domain.SessionStatus(status)
			if !s.Status.Valid() {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid status %q", status))
			}
			if date != "" {
				d, err := parseDate(date)
				if err != nil {
					return WrapExitError(ExitCommandError, "invalid --date", err)
				}
				s.Date = d
			}

			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				snap := a.store.GetState()
				if coacheeID != "" {
					if _, ok := snap.Coachee(coacheeID); !ok {
						return notFound("coachee", coacheeID)
					}
					s.CoacheeID = &coacheeID
				}
				if s.Date.IsZero() {
					s.Date = a.now()
				}
				s.ID = a.engine.NewID()
				a.store.Dispatch(state.AddSession{Session: s})
				return newFormatter(opts, cmd).Success(message{
					ID:   s.ID,
					Text: fmt.Sprintf("Recorded %s session %s on %s", s.Status, s.ID, day(s.Date)),
				})
			})
		},
	}

	cmd.Flags().StringVar(&coacheeID, "coachee", "", "coachee id")
	cmd.Flags().StringVar(&date, "date", "", "session date YYYY-MM-DD (default today)")
	cmd.Flags().IntVar(&s.DurationMinutes, "duration", 60, "duration in minutes")
	cmd.Flags().StringVar(&s.Topic, "topic", "", "session topic")
	cmd.Flags().StringVar(&s.Notes, "notes", "", "session notes")
	cmd.Flags().StringVar(&status, "status", string(domain.SessionStatusPlanned), "planned|completed|cancelled")
	return cmd
}

func newSessionCompleteCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "complete <session-id>",
		Short: "Mark a session completed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				s, ok := a.store.GetState().Session(args[0])
				if !ok {
					return notFound("session", args[0])
				}
				if s.Status == domain.SessionStatusCancelled {
					return NewExitError(ExitFailure, fmt.Sprintf("session %s was cancelled", s.ID))
				}
				s.Status = domain.SessionStatusCompleted
				a.store.Dispatch(state.UpdateSession{Session: s})
				return newFormatter(opts, cmd).Success(message{
					ID:   s.ID,
					Text: fmt.Sprintf("Session %s completed", s.ID),
				})
			})
		},
	}
}

func newSessionListCommand(opts *RootOptions) *cobra.Command {
	var (
		coacheeID string
		unbilled  bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List sessions",
		Example: `  coachbook session list
  coachbook session list --coachee c1 --unbilled`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if unbilled && coacheeID == "" {
				return NewExitError(ExitCommandError, "--unbilled requires --coachee")
			}

			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				snap := a.store.GetState()
				sessions := snap.Sessions
				if unbilled {
					sessions = engine.UnbilledSessions(snap, coacheeID)
				}

				out := sessionTable{}
				for _, s := range sessions {
					if coacheeID != "" && !s.BelongsTo(coacheeID) {
						continue
					}
					name := domain.UnknownCoacheeName
					if s.CoacheeID != nil {
						name = snap.CoacheeDisplayName(*s.CoacheeID)
					}
					out = append(out, sessionRow{Session: s, CoacheeName: name})
				}
				return newFormatter(opts, cmd).Success(out)
			})
		},
	}

	cmd.Flags().StringVar(&coacheeID, "coachee", "", "only sessions of this coachee")
	cmd.Flags().BoolVar(&unbilled, "unbilled", false, "only completed sessions not yet billed")
	return cmd
}
