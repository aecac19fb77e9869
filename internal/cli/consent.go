package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/coachbook/internal/domain"
)

// NewConsentCommand creates the consent command group.
func NewConsentCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "consent",
		Short: "Record consents and list consent documents",
	}
	cmd.AddCommand(newConsentGrantCommand(opts))
	cmd.AddCommand(newConsentDocsCommand(opts))
	return cmd
}

func newConsentGrantCommand(opts *RootOptions) *cobra.Command {
	var (
		consentType string
		policy      string
		policyFile  string
	)

	cmd := &cobra.Command{
		Use:   "grant <coachee-id>",
		Short: "Record a consent and store its signed document",
		Long: `Record a consent. The policy text is rendered into a PDF that is stored
as a consent document of the coachee, and the consent flag is set in the
same step. A consent that was already granted is left alone.`,
		Example: `  coachbook consent grant c1 --type privacy --policy-file privacy.txt`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t := domain.ConsentType(consentType)
			switch t {
			case domain.ConsentPrivacy, domain.ConsentAgreement, domain.ConsentRecording:
			default:
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid consent type %q", consentType))
			}
			if policyFile != "" {
				data, err := os.ReadFile(policyFile)
				if err != nil {
					return WrapExitError(ExitCommandError, "failed to read policy", err)
				}
				policy = string(data)
			}

			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				doc, err := a.engine.GrantConsent(ctx, args[0], t, policy)
				if err != nil {
					return ruleFailure("grant consent", err)
				}
				return newFormatter(opts, cmd).Success(message{
					ID:   doc.ID,
					Text: fmt.Sprintf("Stored %s for %s (%s)", doc.Name, args[0], doc.ID),
				})
			})
		},
	}

	cmd.Flags().StringVar(&consentType, "type", string(domain.ConsentPrivacy), "privacy|agreement|recording")
	cmd.Flags().StringVar(&policy, "policy", "", "policy text")
	cmd.Flags().StringVar(&policyFile, "policy-file", "", "read the policy text from a file")
	cmd.MarkFlagsMutuallyExclusive("policy", "policy-file")
	return cmd
}

// documentRow is a document without its payload.
type documentRow struct {
	domain.Document
	Size int `json:"size"`
}

type documentTable []documentRow

func (t documentTable) writeText(w io.Writer) error {
	return table(w, "ID\tNAME\tCATEGORY\tCREATED\tBYTES", func(tw *tabwriter.Writer) {
		for _, d := range t {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\n", d.ID, d.Name, orDash(d.Category), day(d.CreatedAt), d.Size)
		}
	})
}

func newConsentDocsCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "docs <coachee-id>",
		Short: "List the documents attached to a coachee",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				if _, ok := a.store.GetState().Coachee(args[0]); !ok {
					return notFound("coachee", args[0])
				}
				out := documentTable{}
				for _, d := range a.store.DocumentsFor(args[0]) {
					size := len(d.Payload)
					d.Payload = nil
					out = append(out, documentRow{Document: d, Size: size})
				}
				return newFormatter(opts, cmd).Success(out)
			})
		},
	}
}
