package engine

import (
	"context"
	"fmt"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/coachbook/internal/domain"
	"github.com/roach88/coachbook/internal/state"
)

// ConsentDocumentName returns the archival file name for a consent grant.
func ConsentDocumentName(t domain.ConsentType, coacheeID string) string {
	return norm.NFC.String(fmt.Sprintf("%s_consent_%s.pdf", t, coacheeID))
}

// GrantConsent renders the policy text the coachee agreed to and, only if
// rendering produced a payload, stores the consent document and sets the
// consent flag in one transition.
//
// Rendering runs without holding any lock. If two grants of the same consent
// overlap, the first to commit wins and the other fails with
// ALREADY_GRANTED; its artifact is discarded. On any error the store is
// unchanged.
func (e *Engine) GrantConsent(ctx context.Context, coacheeID string, t domain.ConsentType, policyText string) (domain.Document, error) {
	snap := e.store.GetState()
	coachee, ok := snap.Coachee(coacheeID)
	if !ok {
		return domain.Document{}, newRuleError(ErrCodeNotFound, coacheeID, "coachee not found")
	}
	if coachee.HasConsent(t) {
		return domain.Document{}, newRuleError(ErrCodeAlreadyGranted, coacheeID, "%s consent already granted", t)
	}

	if e.renderer == nil {
		return domain.Document{}, newRuleError(ErrCodeRenderFailed, coacheeID, "no renderer configured")
	}

	now := e.clock.Now()
	payload, err := e.renderer.RenderConsent(ctx, ConsentData{
		CompanyName: snap.Settings.CompanyName,
		CoacheeID:   coacheeID,
		CoacheeName: coachee.DisplayName(),
		Type:        t,
		PolicyText:  policyText,
		GrantedAt:   now,
	})
	if err != nil {
		e.logger.Warn("consent rendering failed", "coachee_id", coacheeID, "type", string(t), "error", err)
		return domain.Document{}, &RuleError{
			Code:     ErrCodeRenderFailed,
			Message:  "rendering consent document",
			EntityID: coacheeID,
			Err:      err,
		}
	}
	if len(payload) == 0 {
		e.logger.Warn("consent rendering returned no payload", "coachee_id", coacheeID, "type", string(t))
		return domain.Document{}, newRuleError(ErrCodeRenderFailed, coacheeID, "renderer returned no payload")
	}

	owner := coacheeID
	doc := domain.Document{
		ID:                e.ids.Generate(),
		Name:              ConsentDocumentName(t, coacheeID),
		Category:          domain.DocumentCategoryConsent,
		CoacheeID:         &owner,
		IsConsentDocument: true,
		MimeType:          "application/pdf",
		Payload:           payload,
		CreatedAt:         now,
	}

	change := e.store.Dispatch(state.AttachConsentDocument{
		Document:    doc,
		CoacheeID:   coacheeID,
		ConsentType: t,
	})
	if change.Empty() {
		// Another grant committed, or the coachee was removed, while the
		// artifact was rendering.
		if _, ok := e.store.GetState().Coachee(coacheeID); ok {
			e.logger.Warn("concurrent consent grant discarded", "coachee_id", coacheeID, "type", string(t))
			return domain.Document{}, newRuleError(ErrCodeAlreadyGranted, coacheeID, "%s consent already granted", t)
		}
		return domain.Document{}, newRuleError(ErrCodeNotFound, coacheeID, "coachee not found")
	}

	e.logger.Info("consent granted",
		"coachee_id", coacheeID,
		"type", string(t),
		"document_id", doc.ID,
		"bytes", len(payload))
	return doc, nil
}

// RenderInvoice renders a stored invoice. A dangling coachee reference is
// rendered with the unknown-coachee placeholder.
func (e *Engine) RenderInvoice(ctx context.Context, invoiceID string) ([]byte, error) {
	snap := e.store.GetState()
	inv, ok := snap.Invoice(invoiceID)
	if !ok {
		return nil, newRuleError(ErrCodeNotFound, invoiceID, "invoice not found")
	}
	if e.renderer == nil {
		return nil, newRuleError(ErrCodeRenderFailed, invoiceID, "no renderer configured")
	}

	payload, err := e.renderer.RenderInvoice(ctx, InvoiceData{
		Invoice:     WithTotals(inv),
		CoacheeName: snap.CoacheeDisplayName(inv.CoacheeID),
		Settings:    snap.Settings,
	})
	if err != nil {
		return nil, &RuleError{Code: ErrCodeRenderFailed, Message: "rendering invoice", EntityID: invoiceID, Err: err}
	}
	if len(payload) == 0 {
		return nil, newRuleError(ErrCodeRenderFailed, invoiceID, "renderer returned no payload")
	}
	return payload, nil
}
