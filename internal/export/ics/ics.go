package ics

import (
	"fmt"
	"io"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/teambition/rrule-go"

	"agenda/internal/domain"
)

const (
	productID = "-//agenda//calendar export//EN"

	// Wall-clock times carry no zone, so they are exported as floating
	// local date-times.
	floatingLayout = "20060102T150405"
)

var byDay = [...]rrule.Weekday{rrule.SU, rrule.MO, rrule.TU, rrule.WE, rrule.TH, rrule.FR, rrule.SA}

// Build converts the collections into a calendar. Appointments become
// opaque events, one-off availability transparent events and recurring
// rules weekly events with their exceptions as EXDATEs.
func Build(cal domain.Calendar, now time.Time) *ical.Calendar {
	out := ical.NewCalendar()
	out.SetMethod(ical.MethodPublish)
	out.SetProductId(productID)

	stamp := now.UTC()

	for _, a := range cal.Appointments {
		ev := out.AddEvent(fmt.Sprintf("appointment-%d@agenda", a.ID))
		ev.SetDtStampTime(stamp)
		setSpan(ev, a.Date, a.Time, a.End())
		summary := string(a.Type)
		if info, ok := domain.LookupAppointmentType(a.Type); ok {
			summary = info.Label
			ev.SetProperty(ical.ComponentProperty("COLOR"), info.Color)
		}
		ev.SetSummary(summary)
		ev.SetProperty(ical.ComponentProperty("CATEGORIES"), string(a.Type))
	}

	for _, av := range cal.Availabilities {
		ev := out.AddEvent(fmt.Sprintf("availability-%d@agenda", av.ID))
		ev.SetDtStampTime(stamp)
		setSpan(ev, av.Date, av.Start, av.End)
		ev.SetSummary("Available")
		ev.SetProperty(ical.ComponentProperty("TRANSP"), "TRANSPARENT")
	}

	for _, r := range cal.Rules {
		if r.Weekday < time.Sunday || r.Weekday > time.Saturday {
			continue
		}
		ev := out.AddEvent(fmt.Sprintf("rule-%d@agenda", r.ID))
		ev.SetDtStampTime(stamp)
		setSpan(ev, r.StartDate, r.Start, r.End)
		ev.SetSummary("Available (weekly)")
		ev.SetProperty(ical.ComponentProperty("TRANSP"), "TRANSPARENT")
		ev.AddProperty(ical.ComponentPropertyRrule, weeklyRule(r))
		for _, ex := range r.Exceptions {
			ev.AddProperty(ical.ComponentPropertyExdate, floating(ex, r.Start))
		}
	}

	return out
}

// Write serializes Build's result to w.
func Write(w io.Writer, cal domain.Calendar, now time.Time) error {
	return Build(cal, now).SerializeTo(w)
}

func setSpan(ev *ical.VEvent, d domain.Date, start, end domain.Clock) {
	ev.SetProperty(ical.ComponentPropertyDtStart, floating(d, start))
	ev.SetProperty(ical.ComponentPropertyDtEnd, floating(d, end))
}

func floating(d domain.Date, c domain.Clock) string {
	return d.Time().Add(time.Duration(c.Minutes()) * time.Minute).Format(floatingLayout)
}

func weeklyRule(r domain.RecurringRule) string {
	opt := rrule.ROption{
		Freq:      rrule.WEEKLY,
		Byweekday: []rrule.Weekday{byDay[r.Weekday]},
	}
	out := opt.RRuleString()
	if r.EndDate != nil {
		// rrule-go always writes UNTIL in UTC. DTSTART is floating, so
		// UNTIL has to be floating too; the last occurrence starts on EndDate.
		out += ";UNTIL=" + floating(*r.EndDate, r.Start)
	}
	return out
}
