// Package render produces PDF artifacts for consent records and invoices.
//
// PDFRenderer implements engine.Renderer. The engine hands it fully
// assembled data and stores whatever bytes come back without looking inside.
package render
