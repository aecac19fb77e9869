package domain

import "time"

// InvoiceStatus represents the status of an invoice.
type InvoiceStatus string

const (
	InvoiceStatusDraft   InvoiceStatus = "draft"
	InvoiceStatusSent    InvoiceStatus = "sent"
	InvoiceStatusPaid    InvoiceStatus = "paid"
	InvoiceStatusOverdue InvoiceStatus = "overdue"
)

// Valid reports whether s is one of the known statuses.
func (s InvoiceStatus) Valid() bool {
	switch s {
	case InvoiceStatusDraft, InvoiceStatusSent, InvoiceStatusPaid, InvoiceStatusOverdue:
		return true
	}
	return false
}

// Invoice is a bill sent to exactly one coachee.
//
// Subtotal, TaxAmount and Total are derived values. They are recomputed from
// Items and TaxRate before every write; values read from input are ignored.
type Invoice struct {
	ID            string        `json:"id"`
	InvoiceNumber string        `json:"invoiceNumber"`
	CoacheeID     string        `json:"coacheeId"`
	Date          time.Time     `json:"date"`
	DueDate       time.Time     `json:"dueDate"`
	Items         []InvoiceItem `json:"items"`
	TaxRate       float64       `json:"taxRate"`
	Subtotal      float64       `json:"subtotal"`
	TaxAmount     float64       `json:"taxAmount"`
	Total         float64       `json:"total"`
	Currency      string        `json:"currency,omitempty"`
	Status        InvoiceStatus `json:"status"`
	Notes         string        `json:"notes,omitempty"`
}

// InvoiceItem is a line on an invoice. SessionID links the line to the
// session it bills, if any.
type InvoiceItem struct {
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	Price       float64 `json:"price"`
	SessionID   *string `json:"sessionId,omitempty"`
}

// IsDraft returns true if the invoice is in draft status.
func (i Invoice) IsDraft() bool {
	return i.Status == InvoiceStatusDraft
}

// IsSettled returns true once the invoice has left draft status.
// Settled invoices lock their sessions as billed.
func (i Invoice) IsSettled() bool {
	return i.Status != "" && i.Status != InvoiceStatusDraft
}

// SessionIDs returns the ids of all sessions referenced by the items, in item order.
func (i Invoice) SessionIDs() []string {
	var ids []string
	for _, item := range i.Items {
		if item.SessionID != nil {
			ids = append(ids, *item.SessionID)
		}
	}
	return ids
}

// Clone returns a copy whose Items slice can be modified independently.
func (i Invoice) Clone() Invoice {
	out := i
	if i.Items != nil {
		out.Items = make([]InvoiceItem, len(i.Items))
		copy(out.Items, i.Items)
	}
	return out
}
