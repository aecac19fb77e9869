package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/coachbook/internal/domain"
	"github.com/roach88/coachbook/internal/seed"
)

// NewImportCommand creates the import command.
func NewImportCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Import practice data from a YAML, JSON or CUE file",
		Long: `Import practice data from a seed file.

Every collection present in the file replaces the stored collection; absent
collections are left alone. The file is validated against the seed schema
before anything is written.`,
		Example: `  coachbook import practice.yaml
  coachbook import practice.cue --driver postgres --dsn "$DATABASE_URL"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := seed.Load(args[0])
			if err != nil {
				var verr *seed.ValidationError
				if errors.As(err, &verr) {
					return WrapExitError(ExitFailure, "seed rejected", err)
				}
				return WrapExitError(ExitCommandError, "failed to load seed", err)
			}

			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				applied := seed.Apply(a.store, doc)
				names := make([]string, len(applied))
				for i, c := range applied {
					names[i] = string(c)
				}
				text := "Nothing to import"
				if len(names) > 0 {
					text = fmt.Sprintf("Imported %s from %s", strings.Join(names, ", "), args[0])
				}
				return newFormatter(opts, cmd).Success(importResult{Collections: applied, Text: text})
			})
		},
	}
}

type importResult struct {
	Collections []domain.Collection `json:"collections"`
	Text        string              `json:"-"`
}

func (r importResult) String() string { return r.Text }

// NewExportCommand creates the export command.
func NewExportCommand(opts *RootOptions) *cobra.Command {
	var (
		output string
		as     string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export every collection as a seed file",
		Long: `Export every collection as a seed file that "coachbook import" reads back.
The format follows the --output extension, else --as.`,
		Example: `  coachbook export -o backup.yaml
  coachbook export --as json > backup.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format := seed.Format(as)
			if output != "" {
				f, err := seed.FormatFromPath(output)
				if err != nil {
					return WrapExitError(ExitCommandError, "invalid --output", err)
				}
				format = f
			}
			if format != seed.FormatYAML && format != seed.FormatJSON {
				return NewExitError(ExitCommandError, fmt.Sprintf("cannot export as %q: want yaml or json", format))
			}

			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				var buf bytes.Buffer
				if err := seed.Encode(&buf, seed.FromSnapshot(a.store.GetState()), format); err != nil {
					return WrapExitError(ExitCommandError, "failed to encode", err)
				}

				if output == "" {
					_, err := cmd.OutOrStdout().Write(buf.Bytes())
					return err
				}
				if err := os.WriteFile(output, buf.Bytes(), 0o644); err != nil {
					return WrapExitError(ExitCommandError, "failed to write export", err)
				}
				newFormatter(opts, cmd).VerboseLog("wrote %d bytes to %s", buf.Len(), output)
				return newFormatter(opts, cmd).Success(message{Text: fmt.Sprintf("Exported to %s", output)})
			})
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	cmd.Flags().StringVar(&as, "as", string(seed.FormatYAML), "yaml|json")
	return cmd
}
