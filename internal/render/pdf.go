package render

import (
	"bytes"
	"context"
	"fmt"

	"github.com/phpdave11/gofpdf"
	"github.com/shopspring/decimal"

	"github.com/roach88/coachbook/internal/domain"
	"github.com/roach88/coachbook/internal/engine"
)

var _ engine.Renderer = (*PDFRenderer)(nil)

const (
	fontFamily = "Helvetica"
	lineHeight = 6.0
	pageWidth  = 180.0 // A4 minus 15mm margins
)

// PDFRenderer renders A4 documents with the core PDF fonts.
type PDFRenderer struct {
	compress bool
	author   string
}

// Option configures a PDFRenderer.
type Option func(*PDFRenderer)

// WithCompression toggles stream compression. Uncompressed output keeps text
// searchable in the raw bytes.
func WithCompression(on bool) Option {
	return func(r *PDFRenderer) { r.compress = on }
}

// WithAuthor sets the document author metadata.
func WithAuthor(author string) Option {
	return func(r *PDFRenderer) { r.author = author }
}

// New creates a renderer. Compression is on by default.
func New(opts ...Option) *PDFRenderer {
	r := &PDFRenderer{compress: true}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// document wraps a gofpdf document with the translator for non-ASCII text.
type document struct {
	pdf *gofpdf.Fpdf
	tr  func(string) string
}

func (r *PDFRenderer) newDocument(title string) *document {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(true, 20)
	pdf.SetCompression(r.compress)
	pdf.SetTitle(title, true)
	pdf.SetCreator("coachbook", true)
	if r.author != "" {
		pdf.SetAuthor(r.author, true)
	}
	pdf.AliasNbPages("")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont(fontFamily, "I", 8)
		pdf.CellFormat(0, 10, fmt.Sprintf("Page %d/{nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()
	return &document{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor("")}
}

func (d *document) heading(text string) {
	d.pdf.SetFont(fontFamily, "B", 16)
	d.pdf.CellFormat(0, 10, d.tr(text), "", 1, "L", false, 0, "")
	d.pdf.Ln(2)
}

func (d *document) line(style string, text string) {
	d.pdf.SetFont(fontFamily, style, 10)
	d.pdf.CellFormat(0, lineHeight, d.tr(text), "", 1, "L", false, 0, "")
}

func (d *document) paragraph(text string) {
	d.pdf.SetFont(fontFamily, "", 10)
	d.pdf.MultiCell(0, 5, d.tr(text), "", "L", false)
}

func (d *document) bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := d.pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// RenderConsent renders the policy text together with who agreed and when.
func (r *PDFRenderer) RenderConsent(ctx context.Context, data engine.ConsentData) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if data.PolicyText == "" {
		return nil, fmt.Errorf("consent %s for %s: empty policy text", data.Type, data.CoacheeID)
	}

	doc := r.newDocument(fmt.Sprintf("%s consent", data.Type))
	if data.CompanyName != "" {
		doc.line("B", data.CompanyName)
	}
	doc.heading(fmt.Sprintf("Consent: %s", data.Type))
	doc.line("", fmt.Sprintf("Coachee: %s (%s)", data.CoacheeName, data.CoacheeID))
	doc.line("", fmt.Sprintf("Granted: %s", data.GrantedAt.UTC().Format("2006-01-02 15:04 MST")))
	doc.pdf.Ln(4)
	doc.paragraph(data.PolicyText)

	return doc.bytes()
}

// RenderInvoice renders the invoice header, one row per item and the totals.
func (r *PDFRenderer) RenderInvoice(ctx context.Context, data engine.InvoiceData) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	inv := data.Invoice
	currency := inv.Currency
	if currency == "" {
		currency = data.Settings.Currency
	}

	doc := r.newDocument("Invoice " + inv.InvoiceNumber)
	if data.Settings.CompanyName != "" {
		doc.line("B", data.Settings.CompanyName)
	}
	doc.heading("Invoice " + inv.InvoiceNumber)
	doc.line("", "Bill to: "+data.CoacheeName)
	doc.line("", "Date: "+inv.Date.Format("2006-01-02"))
	doc.line("", "Due: "+inv.DueDate.Format("2006-01-02"))
	if inv.Status == domain.InvoiceStatusDraft {
		doc.line("B", "DRAFT")
	}
	doc.pdf.Ln(4)

	cols := []float64{100, 20, 30, 30}
	header := []string{"Description", "Qty", "Price", "Amount"}
	doc.pdf.SetFont(fontFamily, "B", 10)
	for i, h := range header {
		align := "R"
		if i == 0 {
			align = "L"
		}
		doc.pdf.CellFormat(cols[i], 7, h, "B", 0, align, false, 0, "")
	}
	doc.pdf.Ln(-1)

	doc.pdf.SetFont(fontFamily, "", 10)
	for _, item := range inv.Items {
		qty := decimal.NewFromFloat(item.Quantity)
		price := decimal.NewFromFloat(item.Price)
		doc.pdf.CellFormat(cols[0], lineHeight, doc.tr(item.Description), "", 0, "L", false, 0, "")
		doc.pdf.CellFormat(cols[1], lineHeight, qty.String(), "", 0, "R", false, 0, "")
		doc.pdf.CellFormat(cols[2], lineHeight, money(price, currency), "", 0, "R", false, 0, "")
		doc.pdf.CellFormat(cols[3], lineHeight, money(qty.Mul(price), currency), "", 1, "R", false, 0, "")
	}

	doc.pdf.Ln(2)
	totals := []struct {
		label string
		value float64
	}{
		{"Subtotal", inv.Subtotal},
		{fmt.Sprintf("Tax (%s%%)", decimal.NewFromFloat(inv.TaxRate).String()), inv.TaxAmount},
		{"Total", inv.Total},
	}
	for i, row := range totals {
		style := ""
		if i == len(totals)-1 {
			style = "B"
		}
		doc.pdf.SetFont(fontFamily, style, 10)
		doc.pdf.CellFormat(pageWidth-cols[3], lineHeight, row.label, "", 0, "R", false, 0, "")
		doc.pdf.CellFormat(cols[3], lineHeight, money(decimal.NewFromFloat(row.value), currency), "", 1, "R", false, 0, "")
	}

	if inv.Notes != "" {
		doc.pdf.Ln(4)
		doc.paragraph(inv.Notes)
	}

	return doc.bytes()
}

func money(v decimal.Decimal, currency string) string {
	s := v.StringFixed(2)
	if currency == "" {
		return s
	}
	return s + " " + currency
}
