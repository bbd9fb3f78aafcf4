package domain

import (
	"sort"
	"time"
)

// OneOffAvailability is a bookable window on a single date.
type OneOffAvailability struct {
	ID    ID    `json:"id"`
	Date  Date  `json:"date"`
	Start Clock `json:"start"`
	End   Clock `json:"end"`
}

type AvailabilityInput struct {
	ID    ID
	Date  Date
	Start Clock
	End   Clock
}

func NewAvailability(in AvailabilityInput) (OneOffAvailability, error) {
	if in.Date.IsZero() {
		return OneOffAvailability{}, errInvalidDate
	}
	if err := checkWindow(in.Start, in.End); err != nil {
		return OneOffAvailability{}, err
	}
	id, err := assignID(in.ID)
	if err != nil {
		return OneOffAvailability{}, err
	}
	return OneOffAvailability{ID: id, Date: in.Date, Start: in.Start, End: in.End}, nil
}

// RecurringRule repeats an availability window every week on Weekday
// (0=Sunday..6=Saturday), from StartDate through EndDate when set.
// Exceptions suppress single occurrences and are kept sorted without
// duplicates.
type RecurringRule struct {
	ID         ID           `json:"id"`
	Weekday    time.Weekday `json:"weekday"`
	Start      Clock        `json:"start"`
	End        Clock        `json:"end"`
	StartDate  Date         `json:"startDate"`
	EndDate    *Date        `json:"endDate,omitempty"`
	Exceptions []Date       `json:"exceptions,omitempty"`
}

type RecurringRuleInput struct {
	ID        ID
	Weekday   time.Weekday
	Start     Clock
	End       Clock
	StartDate Date
	EndDate   *Date
}

// NewRecurringRule validates the rule at creation time. Alignment of
// StartDate with Weekday is not re-checked afterwards.
func NewRecurringRule(in RecurringRuleInput) (RecurringRule, error) {
	if in.Weekday < time.Sunday || in.Weekday > time.Saturday {
		return RecurringRule{}, ErrInvalidWeekday
	}
	if err := checkWindow(in.Start, in.End); err != nil {
		return RecurringRule{}, err
	}
	if in.StartDate.IsZero() {
		return RecurringRule{}, errInvalidDate
	}
	if in.StartDate.Weekday() != in.Weekday {
		return RecurringRule{}, ErrMisalignedStart
	}

	var endDate *Date
	if in.EndDate != nil {
		if in.EndDate.Before(in.StartDate) {
			return RecurringRule{}, ErrInvalidDateRange
		}
		d := *in.EndDate
		endDate = &d
	}

	id, err := assignID(in.ID)
	if err != nil {
		return RecurringRule{}, err
	}

	return RecurringRule{
		ID:        id,
		Weekday:   in.Weekday,
		Start:     in.Start,
		End:       in.End,
		StartDate: in.StartDate,
		EndDate:   endDate,
	}, nil
}

func (r RecurringRule) HasException(d Date) bool {
	for _, ex := range r.Exceptions {
		if ex == d {
			return true
		}
	}
	return false
}

// WithException returns a copy of r whose exception set includes d.
func (r RecurringRule) WithException(d Date) RecurringRule {
	out := r.clone()
	if !out.HasException(d) {
		out.Exceptions = append(out.Exceptions, d)
	}
	sortDates(out.Exceptions)
	return out
}

// WithoutException returns a copy of r whose exception set excludes d.
func (r RecurringRule) WithoutException(d Date) RecurringRule {
	out := r.clone()
	kept := out.Exceptions[:0]
	for _, ex := range out.Exceptions {
		if ex != d {
			kept = append(kept, ex)
		}
	}
	if len(kept) == 0 {
		kept = nil
	}
	out.Exceptions = kept
	return out
}

func (r RecurringRule) clone() RecurringRule {
	out := r
	if r.EndDate != nil {
		d := *r.EndDate
		out.EndDate = &d
	}
	if r.Exceptions != nil {
		out.Exceptions = append([]Date(nil), r.Exceptions...)
	}
	return out
}

// Applies reports whether rule provides availability on d. It depends only
// on its arguments.
func Applies(rule RecurringRule, d Date) bool {
	if rule.HasException(d) {
		return false
	}
	if d.Weekday() != rule.Weekday {
		return false
	}
	if d.Before(rule.StartDate) {
		return false
	}
	if rule.EndDate != nil && d.After(*rule.EndDate) {
		return false
	}
	return true
}

// Interval is a resolved availability window [Start, End) on one date.
type Interval struct {
	Start     Clock `json:"start"`
	End       Clock `json:"end"`
	SourceID  ID    `json:"sourceId"`
	Recurring bool  `json:"recurring"`
}

// Resolve collects the availability windows in effect on d: one-off
// entries for that date followed by every applicable recurring rule.
// Overlapping windows are kept as they are.
func Resolve(d Date, oneOffs []OneOffAvailability, rules []RecurringRule) []Interval {
	var out []Interval
	for _, av := range oneOffs {
		if av.Date == d {
			out = append(out, Interval{Start: av.Start, End: av.End, SourceID: av.ID})
		}
	}
	for _, r := range rules {
		if Applies(r, d) {
			out = append(out, Interval{Start: r.Start, End: r.End, SourceID: r.ID, Recurring: true})
		}
	}
	return out
}

// SortIntervals orders intervals by start, then end, for display.
func SortIntervals(ivs []Interval) {
	sort.SliceStable(ivs, func(i, j int) bool {
		if ivs[i].Start != ivs[j].Start {
			return ivs[i].Start < ivs[j].Start
		}
		return ivs[i].End < ivs[j].End
	})
}

func checkWindow(start, end Clock) error {
	if start < 0 || end > MinutesPerDay || start >= end {
		return ErrInvalidTimeRange
	}
	return nil
}

func assignID(id ID) (ID, error) {
	if id != 0 {
		return id, nil
	}
	return NewID()
}

func sortDates(ds []Date) {
	sort.Slice(ds, func(i, j int) bool { return ds[i].Before(ds[j]) })
}
