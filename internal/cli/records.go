package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/coachbook/internal/domain"
	"github.com/roach88/coachbook/internal/state"
)

// NewTaskCommand creates the task command group.
func NewTaskCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Track practice tasks",
	}
	cmd.AddCommand(newTaskAddCommand(opts))
	cmd.AddCommand(newTaskDoneCommand(opts))
	cmd.AddCommand(newTaskListCommand(opts))
	return cmd
}

func newTaskAddCommand(opts *RootOptions) *cobra.Command {
	var (
		task      domain.Task
		coacheeID string
		due       string
	)

	cmd := &cobra.Command{
		Use:     "add <title>",
		Short:   "Add a task",
		Example: `  coachbook task add "Send workbook" --coachee c1 --due 2025-03-20`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			task.Title = strings.TrimSpace(args[0])
			if task.Title == "" {
				return NewExitError(ExitCommandError, "task title is empty")
			}
			if due != "" {
				d, err := parseDate(due)
				if err != nil {
					return WrapExitError(ExitCommandError, "invalid --due", err)
				}
				task.DueDate = &d
			}

			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				if coacheeID != "" {
					if _, ok := a.store.GetState().Coachee(coacheeID); !ok {
						return notFound("coachee", coacheeID)
					}
					task.CoacheeID = &coacheeID
				}
				task.ID = a.engine.NewID()
				a.store.Dispatch(state.AddTask{Task: task})
				return newFormatter(opts, cmd).Success(message{
					ID:   task.ID,
					Text: fmt.Sprintf("Added task %s", task.ID),
				})
			})
		},
	}

	cmd.Flags().StringVar(&coacheeID, "coachee", "", "related coachee")
	cmd.Flags().StringVar(&due, "due", "", "due date YYYY-MM-DD")
	return cmd
}

func newTaskDoneCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "done <task-id>",
		Short: "Mark a task done",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				task, ok := a.store.GetState().Task(args[0])
				if !ok {
					return notFound("task", args[0])
				}
				task.Done = true
				a.store.Dispatch(state.UpdateTask{Task: task})
				return newFormatter(opts, cmd).Success(message{
					ID:   task.ID,
					Text: fmt.Sprintf("Task %s done", task.ID),
				})
			})
		},
	}
}

func newTaskListCommand(opts *RootOptions) *cobra.Command {
	var open bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				out := taskTable{}
				for _, task := range a.store.GetState().Tasks {
					if open && task.Done {
						continue
					}
					out = append(out, task)
				}
				return newFormatter(opts, cmd).Success(out)
			})
		},
	}

	cmd.Flags().BoolVar(&open, "open", false, "only tasks not done")
	return cmd
}

// NewJournalCommand creates the journal command group.
func NewJournalCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Keep reflective journal entries",
	}
	cmd.AddCommand(newJournalAddCommand(opts))
	cmd.AddCommand(newJournalListCommand(opts))
	return cmd
}

func newJournalAddCommand(opts *RootOptions) *cobra.Command {
	var (
		entry     domain.JournalEntry
		coacheeID string
		date      string
	)

	cmd := &cobra.Command{
		Use:     "add <title>",
		Short:   "Add a journal entry",
		Example: `  coachbook journal add "Supervision notes" --content "..." --tag supervision`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entry.Title = strings.TrimSpace(args[0])
			if date != "" {
				d, err := parseDate(date)
				if err != nil {
					return WrapExitError(ExitCommandError, "invalid --date", err)
				}
				entry.Date = d
			}

			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				if coacheeID != "" {
					if _, ok := a.store.GetState().Coachee(coacheeID); !ok {
						return notFound("coachee", coacheeID)
					}
					entry.CoacheeID = &coacheeID
				}
				if entry.Date.IsZero() {
					entry.Date = a.now()
				}
				entry.ID = a.engine.NewID()
				a.store.Dispatch(state.AddJournalEntry{Entry: entry})
				return newFormatter(opts, cmd).Success(message{
					ID:   entry.ID,
					Text: fmt.Sprintf("Added journal entry %s", entry.ID),
				})
			})
		},
	}

	cmd.Flags().StringVar(&entry.Content, "content", "", "entry text")
	cmd.Flags().StringArrayVar(&entry.Tags, "tag", nil, "tag (repeatable)")
	cmd.Flags().StringVar(&coacheeID, "coachee", "", "related coachee")
	cmd.Flags().StringVar(&date, "date", "", "entry date YYYY-MM-DD (default today)")
	return cmd
}

func newJournalListCommand(opts *RootOptions) *cobra.Command {
	var coacheeID, tag string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List journal entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				out := journalTable{}
				for _, j := range a.store.GetState().JournalEntries {
					if coacheeID != "" && (j.CoacheeID == nil || *j.CoacheeID != coacheeID) {
						continue
					}
					if tag != "" && !hasTag(j.Tags, tag) {
						continue
					}
					out = append(out, j)
				}
				return newFormatter(opts, cmd).Success(out)
			})
		},
	}

	cmd.Flags().StringVar(&coacheeID, "coachee", "", "only entries about this coachee")
	cmd.Flags().StringVar(&tag, "tag", "", "only entries with this tag")
	return cmd
}

func hasTag(tags []string, want string) bool {
	for _, t := range tags {
		if strings.EqualFold(t, want) {
			return true
		}
	}
	return false
}
