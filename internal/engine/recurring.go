package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/coachbook/internal/domain"
	"github.com/roach88/coachbook/internal/state"
)

// ScheduleInput describes a new recurring schedule.
type ScheduleInput struct {
	CoacheeID   string
	RateID      string
	Quantity    float64
	Interval    domain.Interval
	NextDueDate time.Time
}

// CreateSchedule validates and stores a new active schedule. A zero
// NextDueDate means today; a zero Quantity means 1. The schedule is anchored
// on the day of month of its first due date.
func (e *Engine) CreateSchedule(in ScheduleInput) (domain.RecurringInvoiceSchedule, error) {
	snap := e.store.GetState()
	if err := validateSchedule(snap, in.CoacheeID, in.RateID, in.Interval); err != nil {
		return domain.RecurringInvoiceSchedule{}, err
	}

	qty := in.Quantity
	if qty <= 0 {
		qty = 1
	}
	due := in.NextDueDate
	if due.IsZero() {
		due = truncateDay(e.clock.Now())
	}

	sch := domain.RecurringInvoiceSchedule{
		ID:          e.ids.Generate(),
		CoacheeID:   in.CoacheeID,
		RateID:      in.RateID,
		Quantity:    qty,
		Interval:    in.Interval,
		NextDueDate: due,
		AnchorDay:   due.Day(),
		Status:      domain.ScheduleStatusActive,
	}
	e.store.Dispatch(state.AddRecurringInvoice{Schedule: sch})
	e.logger.Info("schedule created", "schedule_id", sch.ID, "interval", string(sch.Interval))
	return sch, nil
}

// UpdateSchedule replaces a schedule's definition. NextDueDate may be moved
// later but never earlier than the stored value. Moving it re-anchors the
// schedule on the new day of month unless AnchorDay is changed as well.
func (e *Engine) UpdateSchedule(sch domain.RecurringInvoiceSchedule) error {
	e.commitMu.Lock()
	defer e.commitMu.Unlock()

	snap := e.store.GetState()
	current, ok := snap.Schedule(sch.ID)
	if !ok {
		return newRuleError(ErrCodeNotFound, sch.ID, "schedule not found")
	}
	if err := validateSchedule(snap, sch.CoacheeID, sch.RateID, sch.Interval); err != nil {
		return err
	}
	if sch.NextDueDate.Before(current.NextDueDate) {
		return newRuleError(ErrCodeInvalidState, sch.ID, "next due date cannot move backward")
	}
	if sch.AnchorDay < 0 || sch.AnchorDay > 31 {
		return newRuleError(ErrCodeInvalidState, sch.ID, "anchor day %d out of range", sch.AnchorDay)
	}
	if sch.AnchorDay == 0 || (!sch.NextDueDate.Equal(current.NextDueDate) && sch.AnchorDay == current.AnchorDay) {
		sch.AnchorDay = sch.NextDueDate.Day()
	}
	if sch.Status != domain.ScheduleStatusActive && sch.Status != domain.ScheduleStatusPaused {
		sch.Status = current.Status
	}

	e.store.Dispatch(state.UpdateRecurringInvoice{Schedule: sch})
	return nil
}

// PauseSchedule stops a schedule from becoming due.
func (e *Engine) PauseSchedule(id string) error {
	return e.setScheduleStatus(id, domain.ScheduleStatusPaused)
}

// ResumeSchedule reactivates a paused schedule. Its due date is unchanged.
func (e *Engine) ResumeSchedule(id string) error {
	return e.setScheduleStatus(id, domain.ScheduleStatusActive)
}

func (e *Engine) setScheduleStatus(id string, status domain.ScheduleStatus) error {
	e.commitMu.Lock()
	defer e.commitMu.Unlock()

	sch, ok := e.store.GetState().Schedule(id)
	if !ok {
		return newRuleError(ErrCodeNotFound, id, "schedule not found")
	}
	sch.Status = status
	e.store.Dispatch(state.UpdateRecurringInvoice{Schedule: sch})
	return nil
}

// RemoveSchedule deletes a schedule definition. Issued invoices are kept.
func (e *Engine) RemoveSchedule(id string) error {
	if _, ok := e.store.GetState().Schedule(id); !ok {
		return newRuleError(ErrCodeNotFound, id, "schedule not found")
	}
	e.store.Dispatch(state.RemoveRecurringInvoice{ID: id})
	return nil
}

// AdvanceSchedule moves an active schedule's NextDueDate forward by one
// interval, clamped to the end of shorter months.
func (e *Engine) AdvanceSchedule(id string) (domain.RecurringInvoiceSchedule, error) {
	e.commitMu.Lock()
	defer e.commitMu.Unlock()

	sch, ok := e.store.GetState().Schedule(id)
	if !ok {
		return domain.RecurringInvoiceSchedule{}, newRuleError(ErrCodeNotFound, id, "schedule not found")
	}
	if sch.Status != domain.ScheduleStatusActive {
		return domain.RecurringInvoiceSchedule{}, newRuleError(ErrCodeInvalidState, id, "schedule is %s", sch.Status)
	}
	if !sch.Interval.Valid() {
		return domain.RecurringInvoiceSchedule{}, newRuleError(ErrCodeInvalidState, id, "unknown interval %q", sch.Interval)
	}

	sch.NextDueDate = sch.FollowingDueDate()
	e.store.Dispatch(state.UpdateRecurringInvoice{Schedule: sch})
	return sch, nil
}

// IssueDue creates one draft invoice for every active schedule due at the
// clock's current time and advances each of those schedules by one interval.
// Each invoice lands in the same transition as its schedule's advance.
// It runs only when called; there is no background scheduler. Schedules far
// behind need one call per missed cycle.
//
// Schedules whose coachee or rate no longer exists are skipped and logged.
func (e *Engine) IssueDue(ctx context.Context) ([]domain.Invoice, error) {
	now := e.clock.Now()
	var issued []domain.Invoice

	for _, candidate := range e.store.GetState().RecurringInvoices {
		if err := ctx.Err(); err != nil {
			return issued, err
		}
		if !candidate.Due(now) || !candidate.Interval.Valid() {
			continue
		}

		inv, ok := e.issueOne(candidate.ID, now)
		if ok {
			issued = append(issued, inv)
		}
	}

	return issued, nil
}

// issueOne issues the invoice for one schedule against the latest snapshot.
// It reports false when the schedule is no longer due or its references
// are gone.
func (e *Engine) issueOne(scheduleID string, now time.Time) (domain.Invoice, bool) {
	e.commitMu.Lock()
	defer e.commitMu.Unlock()

	snap := e.store.GetState()
	sch, ok := snap.Schedule(scheduleID)
	if !ok || !sch.Due(now) {
		return domain.Invoice{}, false
	}
	rate, ok := snap.Rate(sch.RateID)
	if !ok {
		e.logger.Warn("schedule skipped: rate missing", "schedule_id", sch.ID, "rate_id", sch.RateID)
		return domain.Invoice{}, false
	}
	if _, ok := snap.Coachee(sch.CoacheeID); !ok {
		e.logger.Warn("schedule skipped: coachee missing", "schedule_id", sch.ID, "coachee_id", sch.CoacheeID)
		return domain.Invoice{}, false
	}

	inv := domain.Invoice{
		ID:        e.ids.Generate(),
		CoacheeID: sch.CoacheeID,
		Date:      now,
		DueDate:   now.AddDate(0, 0, snap.Settings.PaymentDeadlineDays),
		Items: []domain.InvoiceItem{{
			Description: fmt.Sprintf("%s (%s)", rate.Name, sch.NextDueDate.Format("2006-01-02")),
			Quantity:    sch.Quantity,
			Price:       rate.Price,
		}},
		TaxRate:  snap.Settings.TaxRate,
		Currency: snap.Settings.Currency,
		Status:   domain.InvoiceStatusDraft,
		Notes:    "Recurring invoice",
	}
	inv = e.prepare(snap, inv, false)

	sch.NextDueDate = sch.FollowingDueDate()
	sch.LastIssuedInvoiceID = inv.ID
	e.store.Dispatch(state.IssueRecurringInvoice{Invoice: inv, Schedule: sch})

	e.logger.Info("recurring invoice issued",
		"schedule_id", sch.ID,
		"invoice_id", inv.ID,
		"number", inv.InvoiceNumber,
		"next_due", sch.NextDueDate.Format("2006-01-02"))
	return inv, true
}

func validateSchedule(snap domain.Snapshot, coacheeID, rateID string, interval domain.Interval) error {
	if coacheeID == "" {
		return newRuleError(ErrCodeMissingCoachee, "", "schedule has no coachee")
	}
	if _, ok := snap.Coachee(coacheeID); !ok {
		return newRuleError(ErrCodeNotFound, coacheeID, "coachee not found")
	}
	if _, ok := snap.Rate(rateID); !ok {
		return newRuleError(ErrCodeNotFound, rateID, "service rate not found")
	}
	if !interval.Valid() {
		return newRuleError(ErrCodeInvalidState, "", "unknown interval %q", interval)
	}
	return nil
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
