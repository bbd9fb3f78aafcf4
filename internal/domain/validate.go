package domain

import "errors"

var (
	ErrNoAvailability      = errors.New("no availability window covers the appointment")
	ErrOverlap             = errors.New("appointment overlaps an existing appointment")
	ErrMisalignedStart     = errors.New("start date does not fall on the rule's weekday")
	ErrMisalignedException = errors.New("exception date does not fall on the rule's weekday")
	ErrInvalidTimeRange    = errors.New("start must be before end")
	ErrInvalidDateRange    = errors.New("end date must not be before start date")
	ErrInvalidWeekday      = errors.New("weekday must be between 0 (Sunday) and 6 (Saturday)")
	ErrUnknownType         = errors.New("unknown appointment type")
	ErrNotFound            = errors.New("not found")
)

// RejectionMessage is shown for every booking rejection. The cause stays
// available through errors.Is on the Rejection.
const RejectionMessage = "no availability or an appointment already exists in this period"

// Rejection is returned when a candidate appointment cannot be booked.
type Rejection struct {
	Reason error
}

func (r *Rejection) Error() string {
	return RejectionMessage
}

func (r *Rejection) Unwrap() error {
	return r.Reason
}

func reject(reason error) error {
	return &Rejection{Reason: reason}
}

// Candidate is an appointment proposed for booking.
type Candidate struct {
	Date     Date
	Start    Clock
	Duration int
}

func (c Candidate) End() Clock {
	return c.Start.Add(c.Duration)
}

// Validate accepts c when some availability interval fully contains
// [Start, Start+Duration) and no other appointment on the same date
// overlaps it. Intervals are half-open, so back-to-back bookings are fine.
// The appointment with excludeID (the one being edited) is ignored; pass 0
// when creating. A candidate running past midnight is never contained.
func Validate(c Candidate, excludeID ID, appointments []Appointment, availability []Interval) error {
	end := c.End()
	if end > MinutesPerDay {
		return reject(ErrNoAvailability)
	}

	contained := false
	for _, iv := range availability {
		if iv.Start <= c.Start && iv.End >= end {
			contained = true
			break
		}
	}
	if !contained {
		return reject(ErrNoAvailability)
	}

	for _, a := range appointments {
		if a.Date != c.Date || (excludeID != 0 && a.ID == excludeID) {
			continue
		}
		if c.Start < a.End() && end > a.Time {
			return reject(ErrOverlap)
		}
	}

	return nil
}
