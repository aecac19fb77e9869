package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"

	"github.com/roach88/coachbook/internal/domain"
)

// message is a one-line confirmation. JSON output carries the id.
type message struct {
	ID   string `json:"id,omitempty"`
	Text string `json:"message"`
}

func (m message) writeText(w io.Writer) error {
	_, err := fmt.Fprintln(w, m.Text)
	return err
}

func table(w io.Writer, header string, rows func(tw *tabwriter.Writer)) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, header)
	rows(tw)
	return tw.Flush()
}

func day(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format(time.DateOnly)
}

func amount(v float64, currency string) string {
	s := decimal.NewFromFloat(v).StringFixed(2)
	if currency == "" {
		return s
	}
	return s + " " + currency
}

type coacheeTable []domain.Coachee

func (t coacheeTable) writeText(w io.Writer) error {
	return table(w, "ID\tNAME\tSTATUS\tEMAIL\tCONSENTS", func(tw *tabwriter.Writer) {
		for _, c := range t {
			var granted []string
			for k, ok := range c.Consents {
				if ok {
					granted = append(granted, k)
				}
			}
			consents := "-"
			if len(granted) > 0 {
				consents = strings.Join(sortedCopy(granted), ",")
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", c.ID, c.DisplayName(), c.Status, orDash(c.Email), consents)
		}
	})
}

type sessionRow struct {
	domain.Session
	CoacheeName string `json:"coacheeName"`
}

type sessionTable []sessionRow

func (t sessionTable) writeText(w io.Writer) error {
	return table(w, "ID\tDATE\tCOACHEE\tSTATUS\tBILLED\tTOPIC", func(tw *tabwriter.Writer) {
		for _, s := range t {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%t\t%s\n", s.ID, day(s.Date), s.CoacheeName, s.Status, s.Billed, orDash(s.Topic))
		}
	})
}

type invoiceRow struct {
	ID            string               `json:"id"`
	InvoiceNumber string               `json:"invoiceNumber"`
	CoacheeID     string               `json:"coacheeId"`
	CoacheeName   string               `json:"coacheeName"`
	Date          time.Time            `json:"date"`
	DueDate       time.Time            `json:"dueDate"`
	Status        domain.InvoiceStatus `json:"status"`
	Items         int                  `json:"items"`
	Subtotal      float64              `json:"subtotal"`
	TaxAmount     float64              `json:"taxAmount"`
	Total         float64              `json:"total"`
	Currency      string               `json:"currency,omitempty"`
}

func newInvoiceRow(snap domain.Snapshot, inv domain.Invoice) invoiceRow {
	return invoiceRow{
		ID:            inv.ID,
		InvoiceNumber: inv.InvoiceNumber,
		CoacheeID:     inv.CoacheeID,
		CoacheeName:   snap.CoacheeDisplayName(inv.CoacheeID),
		Date:          inv.Date,
		DueDate:       inv.DueDate,
		Status:        inv.Status,
		Items:         len(inv.Items),
		Subtotal:      inv.Subtotal,
		TaxAmount:     inv.TaxAmount,
		Total:         inv.Total,
		Currency:      inv.Currency,
	}
}

func (r invoiceRow) writeText(w io.Writer) error {
	_, err := fmt.Fprintf(w, "%s %s for %s: %s (%s)\n", r.Status, r.InvoiceNumber, r.CoacheeName, amount(r.Total, r.Currency), r.ID)
	return err
}

type invoiceTable []invoiceRow

func (t invoiceTable) writeText(w io.Writer) error {
	return table(w, "NUMBER\tDATE\tCOACHEE\tSTATUS\tTOTAL\tID", func(tw *tabwriter.Writer) {
		for _, r := range t {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", r.InvoiceNumber, day(r.Date), r.CoacheeName, r.Status, amount(r.Total, r.Currency), r.ID)
		}
	})
}

type rateTable []domain.ServiceRate

func (t rateTable) writeText(w io.Writer) error {
	return table(w, "ID\tNAME\tPRICE", func(tw *tabwriter.Writer) {
		for _, r := range t {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", r.ID, r.Name, amount(r.Price, r.Currency))
		}
	})
}

type scheduleRow struct {
	domain.RecurringInvoiceSchedule
	CoacheeName string `json:"coacheeName"`
	RateName    string `json:"rateName"`
}

type scheduleTable []scheduleRow

func (t scheduleTable) writeText(w io.Writer) error {
	return table(w, "ID\tCOACHEE\tRATE\tINTERVAL\tNEXT DUE\tSTATUS", func(tw *tabwriter.Writer) {
		for _, s := range t {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", s.ID, s.CoacheeName, s.RateName, s.Interval, day(s.NextDueDate), s.Status)
		}
	})
}

type taskTable []domain.Task

func (t taskTable) writeText(w io.Writer) error {
	return table(w, "ID\tDONE\tDUE\tTITLE", func(tw *tabwriter.Writer) {
		for _, task := range t {
			due := "-"
			if task.DueDate != nil {
				due = day(*task.DueDate)
			}
			fmt.Fprintf(tw, "%s\t%t\t%s\t%s\n", task.ID, task.Done, due, task.Title)
		}
	})
}

type journalTable []domain.JournalEntry

func (t journalTable) writeText(w io.Writer) error {
	return table(w, "ID\tDATE\tTITLE\tTAGS", func(tw *tabwriter.Writer) {
		for _, j := range t {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", j.ID, day(j.Date), j.Title, orDash(strings.Join(j.Tags, ",")))
		}
	})
}

type settingsView domain.Settings

func (s settingsView) writeText(w io.Writer) error {
	return table(w, "SETTING\tVALUE", func(tw *tabwriter.Writer) {
		fmt.Fprintf(tw, "company\t%s\n", orDash(s.CompanyName))
		fmt.Fprintf(tw, "tax-rate\t%s%%\n", decimal.NewFromFloat(s.TaxRate).String())
		fmt.Fprintf(tw, "currency\t%s\n", s.Currency)
		fmt.Fprintf(tw, "deadline\t%d days\n", s.PaymentDeadlineDays)
		fmt.Fprintf(tw, "prefix\t%s\n", domain.Settings(s).Prefix())
	})
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
