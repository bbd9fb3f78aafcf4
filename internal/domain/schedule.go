package domain

import (
	"sort"
	"time"
)

// SlotStep is the granularity of offered start times.
const SlotStep = 15

// BookableTimes lists every SlotStep-aligned start time on d at which an
// appointment of duration minutes would pass Validate.
func BookableTimes(c Calendar, d Date, duration int, excludeID ID) []Clock {
	availability := c.Resolve(d)
	if len(availability) == 0 {
		return nil
	}
	dayAppts := AppointmentsOn(c.Appointments, d)

	var out []Clock
	for t := Clock(0); t < MinutesPerDay; t += SlotStep {
		candidate := Candidate{Date: d, Start: t, Duration: duration}
		if Validate(candidate, excludeID, dayAppts, availability) == nil {
			out = append(out, t)
		}
	}
	return out
}

// Day is one cell of a month view.
type Day struct {
	Date         Date          `json:"date"`
	Availability []Interval    `json:"availability"`
	Appointments []Appointment `json:"appointments"`
}

func (d Day) HasAvailability() bool { return len(d.Availability) > 0 }

// MonthOverview resolves availability and collects appointments for every
// day of month, both sorted by start time.
func MonthOverview(c Calendar, year int, month time.Month) []Day {
	n := DaysInMonth(year, month)
	days := make([]Day, 0, n)
	for i := 1; i <= n; i++ {
		d := NewDate(year, month, i)
		ivs := c.Resolve(d)
		SortIntervals(ivs)
		appts := AppointmentsOn(c.Appointments, d)
		sort.SliceStable(appts, func(i, j int) bool { return appts[i].Time < appts[j].Time })
		days = append(days, Day{Date: d, Availability: ivs, Appointments: appts})
	}
	return days
}
