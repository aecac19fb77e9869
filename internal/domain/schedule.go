package domain

import "time"

// Interval is the billing cadence of a recurring schedule.
type Interval string

const (
	IntervalMonthly   Interval = "monthly"
	IntervalQuarterly Interval = "quarterly"
	IntervalYearly    Interval = "yearly"
)

// Valid reports whether i is one of the known intervals.
func (i Interval) Valid() bool {
	switch i {
	case IntervalMonthly, IntervalQuarterly, IntervalYearly:
		return true
	}
	return false
}

// months returns the length of one interval in calendar months.
func (i Interval) months() int {
	switch i {
	case IntervalMonthly:
		return 1
	case IntervalQuarterly:
		return 3
	case IntervalYearly:
		return 12
	}
	return 0
}

// After returns t moved forward by one interval, landing on anchorDay of the
// target month or on its last day when the month is shorter. An anchorDay
// outside 1..31 means t's own day.
//
// Unknown intervals return t unchanged so a corrupt schedule never moves backward.
func (i Interval) After(t time.Time, anchorDay int) time.Time {
	n := i.months()
	if n == 0 {
		return t
	}
	if anchorDay < 1 || anchorDay > 31 {
		anchorDay = t.Day()
	}

	// Day 1 never overflows, so the month arithmetic is exact.
	first := time.Date(t.Year(), t.Month()+time.Month(n), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	day := min(anchorDay, daysIn(first.Year(), first.Month(), t.Location()))
	return first.AddDate(0, 0, day-1)
}

func daysIn(year int, month time.Month, loc *time.Location) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
}

// ScheduleStatus is active or paused.
type ScheduleStatus string

const (
	ScheduleStatusActive ScheduleStatus = "active"
	ScheduleStatusPaused ScheduleStatus = "paused"
)

// RecurringInvoiceSchedule is the definition of a recurring billing arrangement.
// NextDueDate only moves forward, and only through an explicit advance.
//
// AnchorDay is the day of month the schedule bills on. A schedule anchored
// on the 31st falls due on the last day of shorter months and returns to
// the 31st when the month allows it. Zero means the day of NextDueDate.
type RecurringInvoiceSchedule struct {
	ID                  string         `json:"id"`
	CoacheeID           string         `json:"coacheeId"`
	RateID              string         `json:"rateId"`
	Quantity            float64        `json:"quantity"`
	Interval            Interval       `json:"interval"`
	NextDueDate         time.Time      `json:"nextDueDate"`
	AnchorDay           int            `json:"anchorDay,omitempty"`
	Status              ScheduleStatus `json:"status"`
	LastIssuedInvoiceID string         `json:"lastIssuedInvoiceId,omitempty"`
}

// FollowingDueDate returns the due date one interval after NextDueDate.
func (s RecurringInvoiceSchedule) FollowingDueDate() time.Time {
	return s.Interval.After(s.NextDueDate, s.AnchorDay)
}

// Due reports whether the schedule is active and its next due date is not after now.
func (s RecurringInvoiceSchedule) Due(now time.Time) bool {
	return s.Status == ScheduleStatusActive && !s.NextDueDate.After(now)
}
