package main

import (
	"context"
	"errors"
	"time"

	"github.com/brianvoe/gofakeit/v7"

	"agenda/internal/domain"
	"agenda/internal/service/calendar"
)

var timeNow = time.Now

type seedStats struct {
	Rules          int
	Availabilities int
	Appointments   int
	Rejected       int
}

// seed fills svc with weekday rules, a few Saturday windows and
// appointments placed on offered slots, all within weeks of from.
// Everything goes through the service so each record passed validation.
func seed(ctx context.Context, svc *calendar.Service, f *gofakeit.Faker, from domain.Date, weeks, appointments int) (seedStats, error) {
	var stats seedStats
	if weeks <= 0 {
		return stats, nil
	}
	until := from.AddDays(weeks*7 - 1)

	weekdays := []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday}
	f.ShuffleAnySlice(weekdays)
	for _, wd := range weekdays[:f.Number(2, 4)] {
		start := f.Number(8, 10) * 60
		end := start + f.Number(3, 6)*60
		first := from.AddDays((int(wd) - int(from.Weekday()) + 7) % 7)
		if first.After(until) {
			continue
		}
		_, err := svc.SaveRule(ctx, calendar.RuleInput{
			Weekday:   int(wd),
			Start:     domain.Clock(start).String(),
			End:       domain.Clock(end).String(),
			StartDate: first.String(),
			EndDate:   until.String(),
		})
		if err != nil {
			return stats, err
		}
		stats.Rules++
	}

	for d := from; !d.After(until); d = d.AddDays(1) {
		if d.Weekday() != time.Saturday || !f.Bool() {
			continue
		}
		start := f.Number(9, 12) * 60
		_, err := svc.SaveAvailability(ctx, calendar.AvailabilityInput{
			Date:  d.String(),
			Start: domain.Clock(start).String(),
			End:   domain.Clock(start + 3*60).String(),
		})
		if err != nil {
			return stats, err
		}
		stats.Availabilities++
	}

	types := domain.AppointmentTypes()
	span := weeks * 7
	for attempt := 0; stats.Appointments < appointments && attempt < appointments*10; attempt++ {
		d := from.AddDays(f.Number(0, span-1))
		info := types[f.Number(0, len(types)-1)]

		slots, err := svc.BookableTimes(d.String(), info.Type, 0)
		if err != nil {
			return stats, err
		}
		if len(slots) == 0 {
			continue
		}
		at := slots[f.Number(0, len(slots)-1)]

		_, err = svc.SaveAppointment(ctx, calendar.AppointmentInput{
			Type: string(info.Type),
			Date: d.String(),
			Time: at.String(),
		})
		var rej *domain.Rejection
		switch {
		case errors.As(err, &rej):
			stats.Rejected++
		case err != nil:
			return stats, err
		default:
			stats.Appointments++
		}
	}

	return stats, nil
}
