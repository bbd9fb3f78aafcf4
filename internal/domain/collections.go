package domain

import (
	"sort"
	"time"
)

// Calendar is a snapshot of the three collections a scheduling decision
// works on. Functions in this package never modify the slices they are
// given; mutations return fresh slices.
type Calendar struct {
	Appointments   []Appointment
	Availabilities []OneOffAvailability
	Rules          []RecurringRule
}

// Resolve returns the availability intervals in effect on d.
func (c Calendar) Resolve(d Date) []Interval {
	return Resolve(d, c.Availabilities, c.Rules)
}

// Validate checks candidate against c's availability on its date and c's
// appointments.
func (c Calendar) Validate(candidate Candidate, excludeID ID) error {
	return Validate(candidate, excludeID, c.Appointments, c.Resolve(candidate.Date))
}

// Clone returns a deep copy of c.
func (c Calendar) Clone() Calendar {
	out := Calendar{
		Appointments:   make([]Appointment, len(c.Appointments)),
		Availabilities: append([]OneOffAvailability(nil), c.Availabilities...),
		Rules:          make([]RecurringRule, len(c.Rules)),
	}
	for i, a := range c.Appointments {
		if a.Duration != nil {
			d := *a.Duration
			a.Duration = &d
		}
		out.Appointments[i] = a
	}
	for i, r := range c.Rules {
		out.Rules[i] = r.clone()
	}
	return out
}

// UpsertAppointment replaces any appointment sharing a.ID, appends a and
// sorts by (date, time).
func UpsertAppointment(appts []Appointment, a Appointment) []Appointment {
	out := make([]Appointment, 0, len(appts)+1)
	for _, p := range appts {
		if p.ID != a.ID {
			out = append(out, p)
		}
	}
	out = append(out, a)
	sort.SliceStable(out, func(i, j int) bool {
		if c := out[i].Date.Compare(out[j].Date); c != 0 {
			return c < 0
		}
		return out[i].Time < out[j].Time
	})
	return out
}

func DeleteAppointment(appts []Appointment, id ID) ([]Appointment, bool) {
	out := make([]Appointment, 0, len(appts))
	found := false
	for _, p := range appts {
		if p.ID == id {
			found = true
			continue
		}
		out = append(out, p)
	}
	return out, found
}

// AppointmentsOn returns the appointments on d in collection order.
func AppointmentsOn(appts []Appointment, d Date) []Appointment {
	var out []Appointment
	for _, a := range appts {
		if a.Date == d {
			out = append(out, a)
		}
	}
	return out
}

// removeAppointmentsOn drops every appointment on d, returning the kept and
// removed sets.
func removeAppointmentsOn(appts []Appointment, d Date) (kept, removed []Appointment) {
	kept = make([]Appointment, 0, len(appts))
	for _, a := range appts {
		if a.Date == d {
			removed = append(removed, a)
			continue
		}
		kept = append(kept, a)
	}
	return kept, removed
}

// UpsertAvailability replaces any entry sharing av.ID, appends av and sorts
// by date.
func UpsertAvailability(avs []OneOffAvailability, av OneOffAvailability) []OneOffAvailability {
	out := make([]OneOffAvailability, 0, len(avs)+1)
	for _, p := range avs {
		if p.ID != av.ID {
			out = append(out, p)
		}
	}
	out = append(out, av)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date)
	})
	return out
}

// DeleteAvailability removes the entry with id and every appointment on
// its date, whichever window those appointments were booked in.
func DeleteAvailability(avs []OneOffAvailability, appts []Appointment, id ID) (Mutation, error) {
	var (
		target OneOffAvailability
		found  bool
	)
	out := make([]OneOffAvailability, 0, len(avs))
	for _, p := range avs {
		if p.ID == id {
			target, found = p, true
			continue
		}
		out = append(out, p)
	}
	if !found {
		return Mutation{}, ErrNotFound
	}

	kept, removed := removeAppointmentsOn(appts, target.Date)
	return Mutation{
		Availabilities: out,
		Appointments:   kept,
		Removed:        removed,
	}, nil
}

// UpsertRule replaces any rule sharing r.ID, appends r and sorts by
// (weekday, start).
func UpsertRule(rules []RecurringRule, r RecurringRule) []RecurringRule {
	out := make([]RecurringRule, 0, len(rules)+1)
	for _, p := range rules {
		if p.ID != r.ID {
			out = append(out, p)
		}
	}
	out = append(out, r)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Weekday != out[j].Weekday {
			return out[i].Weekday < out[j].Weekday
		}
		return out[i].Start < out[j].Start
	})
	return out
}

func DeleteRule(rules []RecurringRule, id ID) ([]RecurringRule, bool) {
	out := make([]RecurringRule, 0, len(rules))
	found := false
	for _, p := range rules {
		if p.ID == id {
			found = true
			continue
		}
		out = append(out, p)
	}
	return out, found
}

func FindRule(rules []RecurringRule, id ID) (RecurringRule, bool) {
	for _, r := range rules {
		if r.ID == id {
			return r, true
		}
	}
	return RecurringRule{}, false
}

// Mutation carries the collections produced by a cascading change. Nil
// fields were left untouched.
type Mutation struct {
	Appointments   []Appointment
	Availabilities []OneOffAvailability
	Rules          []RecurringRule
	Removed        []Appointment
}

// AddException suppresses rule ruleID on d and removes every appointment
// on d. The date must fall on the rule's weekday.
func AddException(rules []RecurringRule, appts []Appointment, ruleID ID, d Date) (Mutation, error) {
	rule, ok := FindRule(rules, ruleID)
	if !ok {
		return Mutation{}, ErrNotFound
	}
	if d.IsZero() {
		return Mutation{}, errInvalidDate
	}
	if d.Weekday() != rule.Weekday {
		return Mutation{}, ErrMisalignedException
	}

	kept, removed := removeAppointmentsOn(appts, d)
	return Mutation{
		Rules:        UpsertRule(rules, rule.WithException(d)),
		Appointments: kept,
		Removed:      removed,
	}, nil
}

// RemoveException restores rule ruleID on d. Removing a date that is not an
// exception leaves the rule unchanged.
func RemoveException(rules []RecurringRule, ruleID ID, d Date) ([]RecurringRule, error) {
	rule, ok := FindRule(rules, ruleID)
	if !ok {
		return nil, ErrNotFound
	}
	return UpsertRule(rules, rule.WithoutException(d)), nil
}

// Weekdays lists the days of the week in display order. Storage always
// uses 0=Sunday; Monday-first is a presentation choice.
func Weekdays(mondayFirst bool) []time.Weekday {
	out := make([]time.Weekday, 0, 7)
	first := time.Sunday
	if mondayFirst {
		first = time.Monday
	}
	for i := 0; i < 7; i++ {
		out = append(out, (first+time.Weekday(i))%7)
	}
	return out
}
