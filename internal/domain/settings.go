package domain

// Settings holds the company billing defaults. There is exactly one.
type Settings struct {
	CompanyName         string  `json:"companyName,omitempty"`
	TaxRate             float64 `json:"taxRate"`
	Currency            string  `json:"currency"`
	PaymentDeadlineDays int     `json:"paymentDeadlineDays"`
	InvoicePrefix       string  `json:"invoicePrefix"`
}

// DefaultInvoicePrefix prefixes invoice numbers when settings name none.
const DefaultInvoicePrefix = "CS"

// DefaultSettings is substituted whenever durable settings are absent or unreadable.
func DefaultSettings() Settings {
	return Settings{
		TaxRate:             19,
		Currency:            "EUR",
		PaymentDeadlineDays: 14,
		InvoicePrefix:       DefaultInvoicePrefix,
	}
}

// Prefix returns the configured invoice prefix or DefaultInvoicePrefix.
func (s Settings) Prefix() string {
	if s.InvoicePrefix == "" {
		return DefaultInvoicePrefix
	}
	return s.InvoicePrefix
}
