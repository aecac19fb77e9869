package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/roach88/coachbook/internal/domain"
	"github.com/roach88/coachbook/internal/engine"
)

// NewInvoiceCommand creates the invoice command group.
func NewInvoiceCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "invoice",
		Short: "Create, finalize and render invoices",
		Long: `Create, finalize and render invoices.

A new invoice is numbered PREFIX-YEAR-NNN when it is first saved. Finalizing
an invoice marks every session on it billed.`,
	}
	cmd.AddCommand(newInvoiceCreateCommand(opts))
	cmd.AddCommand(newInvoiceEditCommand(opts))
	cmd.AddCommand(newInvoiceFinalizeCommand(opts))
	cmd.AddCommand(newInvoiceStatusCommand(opts))
	cmd.AddCommand(newInvoiceListCommand(opts))
	cmd.AddCommand(newInvoicePDFCommand(opts))
	return cmd
}

// invoiceResult is an invoice row plus the sessions another invoice billed
// first.
type invoiceResult struct {
	invoiceRow
	AlreadyBilled []string `json:"alreadyBilled,omitempty"`
}

func (r invoiceResult) writeText(w io.Writer) error {
	if err := r.invoiceRow.writeText(w); err != nil {
		return err
	}
	if len(r.AlreadyBilled) > 0 {
		_, err := fmt.Fprintf(w, "warning: already billed by another invoice: %s\n", strings.Join(r.AlreadyBilled, ", "))
		return err
	}
	return nil
}

// draftEdits are the line changes shared by create and edit.
type draftEdits struct {
	sessions    []string
	items       []string
	remove      []int
	allUnbilled bool
	notes       string
	finalize    string
}

func (e *draftEdits) register(cmd *cobra.Command) {
	cmd.Flags().StringArrayVar(&e.sessions, "session", nil, "add a completed, unbilled session (repeatable)")
	cmd.Flags().StringArrayVar(&e.items, "item", nil, `add a free line "description:quantity:price" (repeatable)`)
	cmd.Flags().BoolVar(&e.allUnbilled, "all-unbilled", false, "add every unbilled session of the coachee")
	cmd.Flags().StringVar(&e.notes, "notes", "", "invoice notes")
	cmd.Flags().StringVar(&e.finalize, "finalize", "", "finalize with this status (sent|paid|overdue) instead of saving a draft")
}

func (e *draftEdits) parseItems() ([]domain.InvoiceItem, error) {
	items := make([]domain.InvoiceItem, 0, len(e.items))
	for _, raw := range e.items {
		item, err := parseItem(raw)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "invalid --item", err)
		}
		items = append(items, item)
	}
	return items, nil
}

// apply removes lines (highest index first), then adds sessions and items.
func (e *draftEdits) apply(d *engine.Draft, items []domain.InvoiceItem) error {
	remove := append([]int(nil), e.remove...)
	sort.Sort(sort.Reverse(sort.IntSlice(remove)))
	for _, idx := range remove {
		if err := d.RemoveItem(idx); err != nil {
			return ruleFailure("remove item", err)
		}
	}

	if e.allUnbilled {
		for _, s := range d.Available() {
			if _, err := d.AddSession(s.ID); err != nil {
				return ruleFailure("add session", err)
			}
		}
	}
	for _, id := range e.sessions {
		if _, err := d.AddSession(id); err != nil {
			return ruleFailure("add session", err)
		}
	}
	for _, item := range items {
		d.AddItem(item)
	}
	if e.notes != "" {
		d.Invoice.Notes = e.notes
	}
	return nil
}

// commit saves the draft, or finalizes it when a status was given.
func (e *draftEdits) commit(a *app, d *engine.Draft) (invoiceResult, error) {
	if e.finalize == "" {
		inv, err := a.engine.SaveDraft(d)
		if err != nil {
			return invoiceResult{}, ruleFailure("save draft", err)
		}
		return invoiceResult{invoiceRow: newInvoiceRow(a.store.GetState(), inv)}, nil
	}

	res, err := a.engine.Finalize(d, domain.InvoiceStatus(e.finalize))
	if err != nil {
		return invoiceResult{}, ruleFailure("finalize invoice", err)
	}
	return invoiceResult{
		invoiceRow:    newInvoiceRow(a.store.GetState(), res.Invoice),
		AlreadyBilled: res.AlreadyBilled,
	}, nil
}

func newInvoiceCreateCommand(opts *RootOptions) *cobra.Command {
	var (
		coacheeID string
		edits     draftEdits
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an invoice",
		Example: `  coachbook invoice create --coachee c1 --all-unbilled
  coachbook invoice create --coachee c1 --session s1 --item "Workbook:1:25" --finalize sent`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := edits.parseItems()
			if err != nil {
				return err
			}

			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				d, err := a.engine.OpenDraft(coacheeID)
				if err != nil {
					return ruleFailure("open invoice", err)
				}
				if err := edits.apply(d, items); err != nil {
					return err
				}
				res, err := edits.commit(a, d)
				if err != nil {
					return err
				}
				return newFormatter(opts, cmd).Success(res)
			})
		},
	}

	cmd.Flags().StringVar(&coacheeID, "coachee", "", "coachee to bill")
	edits.register(cmd)
	return cmd
}

func newInvoiceEditCommand(opts *RootOptions) *cobra.Command {
	var (
		coacheeID string
		edits     draftEdits
	)

	cmd := &cobra.Command{
		Use:   "edit <invoice-id>",
		Short: "Change a draft invoice",
		Long: `Change a draft invoice. Switching the coachee drops the session lines
of the previous coachee. --remove takes zero-based line indexes.`,
		Example: `  coachbook invoice edit inv-1 --remove 0 --session s2
  coachbook invoice edit inv-1 --coachee c2 --all-unbilled --finalize sent`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := edits.parseItems()
			if err != nil {
				return err
			}

			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				d, err := a.engine.EditDraft(args[0])
				if err != nil {
					return ruleFailure("edit invoice", err)
				}
				if coacheeID != "" {
					if err := d.SelectCoachee(coacheeID); err != nil {
						return ruleFailure("select coachee", err)
					}
				}
				if err := edits.apply(d, items); err != nil {
					return err
				}
				res, err := edits.commit(a, d)
				if err != nil {
					return err
				}
				return newFormatter(opts, cmd).Success(res)
			})
		},
	}

	cmd.Flags().StringVar(&coacheeID, "coachee", "", "switch the invoice to another coachee")
	cmd.Flags().IntSliceVar(&edits.remove, "remove", nil, "remove the line at this index (repeatable)")
	edits.register(cmd)
	return cmd
}

func newInvoiceFinalizeCommand(opts *RootOptions) *cobra.Command {
	var status string

	cmd := &cobra.Command{
		Use:   "finalize <invoice-id>",
		Short: "Finalize a draft invoice",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return setInvoiceStatus(cmd, opts, args[0], domain.InvoiceStatus(status))
		},
	}

	cmd.Flags().StringVar(&status, "status", string(domain.InvoiceStatusSent), "sent|paid|overdue")
	return cmd
}

func newInvoiceStatusCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status <invoice-id> <status>",
		Short: "Change an invoice's status",
		Long: `Change an invoice's status. A draft moved to any other status is
finalized. A finalized invoice never returns to draft.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return setInvoiceStatus(cmd, opts, args[0], domain.InvoiceStatus(args[1]))
		},
	}
}

func setInvoiceStatus(cmd *cobra.Command, opts *RootOptions, id string, status domain.InvoiceStatus) error {
	if !status.Valid() {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid status %q", status))
	}
	return withApp(cmd, opts, func(ctx context.Context, a *app) error {
		res, err := a.engine.SetInvoiceStatus(id, status)
		if err != nil {
			return ruleFailure("set invoice status", err)
		}
		return newFormatter(opts, cmd).Success(invoiceResult{
			invoiceRow:    newInvoiceRow(a.store.GetState(), res.Invoice),
			AlreadyBilled: res.AlreadyBilled,
		})
	})
}

func newInvoiceListCommand(opts *RootOptions) *cobra.Command {
	var coacheeID, status string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List invoices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				snap := a.store.GetState()
				out := invoiceTable{}
				for _, inv := range snap.Invoices {
					if coacheeID != "" && inv.CoacheeID != coacheeID {
						continue
					}
					if status != "" && string(inv.Status) != status {
						continue
					}
					out = append(out, newInvoiceRow(snap, inv))
				}
				return newFormatter(opts, cmd).Success(out)
			})
		},
	}

	cmd.Flags().StringVar(&coacheeID, "coachee", "", "only invoices of this coachee")
	cmd.Flags().StringVar(&status, "status", "", "only invoices with this status")
	return cmd
}

func newInvoicePDFCommand(opts *RootOptions) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:     "pdf <invoice-id>",
		Short:   "Render an invoice as PDF",
		Example: `  coachbook invoice pdf inv-1 -o CS-2025-001.pdf`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				payload, err := a.engine.RenderInvoice(ctx, args[0])
				if err != nil {
					return ruleFailure("render invoice", err)
				}

				path := output
				if path == "" {
					inv, _ := a.store.GetState().Invoice(args[0])
					path = inv.InvoiceNumber + ".pdf"
				}
				if err := os.WriteFile(path, payload, 0o644); err != nil {
					return WrapExitError(ExitCommandError, "failed to write pdf", err)
				}
				return newFormatter(opts, cmd).Success(message{
					ID:   args[0],
					Text: fmt.Sprintf("Wrote %s (%d bytes)", path, len(payload)),
				})
			})
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default <invoice number>.pdf)")
	return cmd
}

// parseItem reads "description:quantity:price". The description may itself
// contain colons.
func parseItem(raw string) (domain.InvoiceItem, error) {
	parts := strings.Split(raw, ":")
	if len(parts) < 3 {
		return domain.InvoiceItem{}, fmt.Errorf("%q: want description:quantity:price", raw)
	}
	n := len(parts)
	desc := strings.TrimSpace(strings.Join(parts[:n-2], ":"))
	if desc == "" {
		return domain.InvoiceItem{}, fmt.Errorf("%q: description is empty", raw)
	}
	qty, err := decimal.NewFromString(strings.TrimSpace(parts[n-2]))
	if err != nil {
		return domain.InvoiceItem{}, fmt.Errorf("%q: quantity: %w", raw, err)
	}
	price, err := decimal.NewFromString(strings.TrimSpace(parts[n-1]))
	if err != nil {
		return domain.InvoiceItem{}, fmt.Errorf("%q: price: %w", raw, err)
	}
	if qty.IsNegative() || price.IsNegative() {
		return domain.InvoiceItem{}, fmt.Errorf("%q: quantity and price must not be negative", raw)
	}
	return domain.InvoiceItem{
		Description: desc,
		Quantity:    qty.InexactFloat64(),
		Price:       price.InexactFloat64(),
	}, nil
}
