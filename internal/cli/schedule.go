package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/coachbook/internal/domain"
	"github.com/roach88/coachbook/internal/engine"
)

// NewScheduleCommand creates the schedule command group.
func NewScheduleCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Manage recurring invoice schedules",
		Long: `Manage recurring invoice schedules.

Schedules are only acted on by "schedule issue-due", which creates one draft
invoice per due schedule and moves each by one interval.`,
	}
	cmd.AddCommand(newScheduleCreateCommand(opts))
	cmd.AddCommand(newScheduleUpdateCommand(opts))
	cmd.AddCommand(newScheduleStatusCommand(opts, "pause", "Pause a schedule", (*engine.Engine).PauseSchedule))
	cmd.AddCommand(newScheduleStatusCommand(opts, "resume", "Resume a paused schedule", (*engine.Engine).ResumeSchedule))
	cmd.AddCommand(newScheduleStatusCommand(opts, "remove", "Remove a schedule", (*engine.Engine).RemoveSchedule))
	cmd.AddCommand(newScheduleAdvanceCommand(opts))
	cmd.AddCommand(newScheduleIssueDueCommand(opts))
	cmd.AddCommand(newScheduleListCommand(opts))
	return cmd
}

func newScheduleCreateCommand(opts *RootOptions) *cobra.Command {
	var (
		in       engine.ScheduleInput
		interval string
		nextDue  string
	)

	cmd := &cobra.Command{
		Use:     "create",
		Short:   "Create a recurring schedule",
		Example: `  coachbook schedule create --coachee c1 --rate r1 --interval monthly --next-due 2025-04-01`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			in.Interval = domain.Interval(interval)
			if nextDue != "" {
				d, err := parseDate(nextDue)
				if err != nil {
					return WrapExitError(ExitCommandError, "invalid --next-due", err)
				}
				in.NextDueDate = d
			}

			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				sch, err := a.engine.CreateSchedule(in)
				if err != nil {
					return ruleFailure("create schedule", err)
				}
				return newFormatter(opts, cmd).Success(message{
					ID:   sch.ID,
					Text: fmt.Sprintf("Created %s schedule %s, next due %s", sch.Interval, sch.ID, day(sch.NextDueDate)),
				})
			})
		},
	}

	cmd.Flags().StringVar(&in.CoacheeID, "coachee", "", "coachee to bill")
	cmd.Flags().StringVar(&in.RateID, "rate", "", "service rate to bill")
	cmd.Flags().Float64Var(&in.Quantity, "qty", 1, "quantity per invoice")
	cmd.Flags().StringVar(&interval, "interval", string(domain.IntervalMonthly), "monthly|quarterly|yearly")
	cmd.Flags().StringVar(&nextDue, "next-due", "", "first due date YYYY-MM-DD (default today)")
	return cmd
}

func newScheduleUpdateCommand(opts *RootOptions) *cobra.Command {
	var (
		rateID   string
		qty      float64
		interval string
		nextDue  string
	)

	cmd := &cobra.Command{
		Use:   "update <schedule-id>",
		Short: "Change a schedule",
		Long:  `Change a schedule. The next due date can be moved later, never earlier.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				sch, ok := a.store.GetState().Schedule(args[0])
				if !ok {
					return notFound("schedule", args[0])
				}
				flags := cmd.Flags()
				if flags.Changed("rate") {
					sch.RateID = rateID
				}
				if flags.Changed("qty") {
					sch.Quantity = qty
				}
				if flags.Changed("interval") {
					sch.Interval = domain.Interval(interval)
				}
				if flags.Changed("next-due") {
					d, err := parseDate(nextDue)
					if err != nil {
						return WrapExitError(ExitCommandError, "invalid --next-due", err)
					}
					sch.NextDueDate = d
				}

				if err := a.engine.UpdateSchedule(sch); err != nil {
					return ruleFailure("update schedule", err)
				}
				return newFormatter(opts, cmd).Success(message{
					ID:   sch.ID,
					Text: fmt.Sprintf("Updated schedule %s, next due %s", sch.ID, day(sch.NextDueDate)),
				})
			})
		},
	}

	cmd.Flags().StringVar(&rateID, "rate", "", "service rate to bill")
	cmd.Flags().Float64Var(&qty, "qty", 1, "quantity per invoice")
	cmd.Flags().StringVar(&interval, "interval", "", "monthly|quarterly|yearly")
	cmd.Flags().StringVar(&nextDue, "next-due", "", "next due date YYYY-MM-DD")
	return cmd
}

func newScheduleStatusCommand(opts *RootOptions, verb, short string, fn func(*engine.Engine, string) error) *cobra.Command {
	return &cobra.Command{
		Use:   verb + " <schedule-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				if err := fn(a.engine, args[0]); err != nil {
					return ruleFailure(verb+" schedule", err)
				}
				return newFormatter(opts, cmd).Success(message{
					ID:   args[0],
					Text: fmt.Sprintf("Schedule %s %sd", args[0], verb),
				})
			})
		},
	}
}

func newScheduleAdvanceCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "advance <schedule-id>",
		Short: "Skip a schedule's current cycle",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				sch, err := a.engine.AdvanceSchedule(args[0])
				if err != nil {
					return ruleFailure("advance schedule", err)
				}
				return newFormatter(opts, cmd).Success(message{
					ID:   sch.ID,
					Text: fmt.Sprintf("Schedule %s next due %s", sch.ID, day(sch.NextDueDate)),
				})
			})
		},
	}
}

// issuedInvoices is the result of issue-due.
type issuedInvoices []invoiceRow

func (t issuedInvoices) writeText(w io.Writer) error {
	if len(t) == 0 {
		_, err := fmt.Fprintln(w, "No schedules due.")
		return err
	}
	return invoiceTable(t).writeText(w)
}

func newScheduleIssueDueCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "issue-due",
		Short: "Issue draft invoices for every due schedule",
		Long: `Issue one draft invoice for every active schedule due today and move
each of them by one interval. A schedule several cycles behind needs one run
per missed cycle.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				invoices, err := a.engine.IssueDue(ctx)
				if err != nil {
					return WrapExitError(ExitCommandError, "issue due invoices", err)
				}
				snap := a.store.GetState()
				out := issuedInvoices{}
				for _, inv := range invoices {
					out = append(out, newInvoiceRow(snap, inv))
				}
				return newFormatter(opts, cmd).Success(out)
			})
		},
	}
}

func newScheduleListCommand(opts *RootOptions) *cobra.Command {
	var due bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List schedules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				snap := a.store.GetState()
				now := a.now()
				out := scheduleTable{}
				for _, sch := range snap.RecurringInvoices {
					if due && !sch.Due(now) {
						continue
					}
					rateName := "-"
					if r, ok := snap.Rate(sch.RateID); ok {
						rateName = r.Name
					}
					out = append(out, scheduleRow{
						RecurringInvoiceSchedule: sch,
						CoacheeName:              snap.CoacheeDisplayName(sch.CoacheeID),
						RateName:                 rateName,
					})
				}
				return newFormatter(opts, cmd).Success(out)
			})
		},
	}

	cmd.Flags().BoolVar(&due, "due", false, "only schedules due now")
	return cmd
}
