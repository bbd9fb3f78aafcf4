package calendar

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"agenda/internal/domain"
	"agenda/internal/export/ics"
	"agenda/internal/store"
)

type ValidationError struct {
	msg string
	err error
}

func (e *ValidationError) Error() string {
	return e.msg
}

func (e *ValidationError) Unwrap() error {
	return e.err
}

func validationError(msg string, err error) error {
	return &ValidationError{msg: msg, err: err}
}

// Service owns the authoritative collections for one session. Every
// successful mutation is followed by a full save of each collection it
// touched. Save failures are logged, not returned; Flush reports them.
type Service struct {
	mu    sync.Mutex
	store store.BlobStore
	log   *slog.Logger
	cal   domain.Calendar
}

// Open loads the three collections from st. Missing or unreadable
// collections start out empty.
func Open(ctx context.Context, st store.BlobStore, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	s := &Service{
		store: st,
		log:   log.With(slog.String("component", "service.calendar")),
	}

	appts, err := store.LoadCollection[domain.Appointment](ctx, st, store.KeyAppointments)
	s.warnLoad(store.KeyAppointments, err)
	avs, err := store.LoadCollection[domain.OneOffAvailability](ctx, st, store.KeyAvailabilities)
	s.warnLoad(store.KeyAvailabilities, err)
	rules, err := store.LoadCollection[domain.RecurringRule](ctx, st, store.KeyRecurringRules)
	s.warnLoad(store.KeyRecurringRules, err)

	s.cal = domain.Calendar{Appointments: appts, Availabilities: avs, Rules: rules}
	s.log.Debug("calendar loaded",
		slog.Int("appointments", len(appts)),
		slog.Int("availabilities", len(avs)),
		slog.Int("rules", len(rules)),
	)
	return s
}

func (s *Service) warnLoad(key string, err error) {
	if err != nil {
		s.log.Warn("collection unreadable; starting empty", slog.String("key", key), slog.Any("err", err))
	}
}

// Snapshot returns a deep copy of the current collections.
func (s *Service) Snapshot() domain.Calendar {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cal.Clone()
}

// Availability resolves the bookable windows on date, ordered by start.
func (s *Service) Availability(date string) ([]domain.Interval, error) {
	d, err := parseDate("date", date)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	ivs := s.cal.Resolve(d)
	domain.SortIntervals(ivs)
	return ivs, nil
}

// BookableTimes lists the start times on date that would accept an
// appointment of type t. excludeID is the appointment being edited, or 0.
func (s *Service) BookableTimes(date string, t domain.AppointmentType, excludeID domain.ID) ([]domain.Clock, error) {
	d, err := parseDate("date", date)
	if err != nil {
		return nil, err
	}
	info, ok := domain.LookupAppointmentType(t)
	if !ok {
		return nil, validationError("unknown appointment type", domain.ErrUnknownType)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.BookableTimes(s.cal, d, info.Duration, excludeID), nil
}

func (s *Service) Month(year int, month time.Month) ([]domain.Day, error) {
	if month < time.January || month > time.December {
		return nil, validationError("month must be between 1 and 12", nil)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.MonthOverview(s.cal, year, month), nil
}

// ExportICS writes every appointment and availability as an iCalendar feed.
func (s *Service) ExportICS(w io.Writer) error {
	return ics.Write(w, s.Snapshot(), time.Now())
}

type AppointmentInput struct {
	ID       domain.ID
	Type     string
	Date     string
	Time     string
	Duration *int
}

// SaveAppointment validates and commits an appointment. A zero ID creates
// one; a non-zero ID edits the existing record and excludes it from the
// overlap check. Rejections leave the collections untouched.
func (s *Service) SaveAppointment(ctx context.Context, in AppointmentInput) (domain.Appointment, error) {
	d, err := parseDate("date", in.Date)
	if err != nil {
		return domain.Appointment{}, err
	}
	at, err := parseClock("time", in.Time)
	if err != nil {
		return domain.Appointment{}, err
	}
	typ := domain.AppointmentType(strings.TrimSpace(in.Type))

	appt, err := domain.NewAppointment(domain.AppointmentInput{
		ID:       in.ID,
		Type:     typ,
		Date:     d,
		Time:     at,
		Duration: in.Duration,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrUnknownType):
			return domain.Appointment{}, validationError("unknown appointment type", err)
		case errors.Is(err, domain.ErrInvalidTimeRange):
			return domain.Appointment{}, validationError("duration must be positive", err)
		default:
			return domain.Appointment{}, validationError("invalid appointment", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if in.ID != 0 && !containsAppointment(s.cal.Appointments, in.ID) {
		return domain.Appointment{}, fmt.Errorf("appointment %d: %w", in.ID, domain.ErrNotFound)
	}

	if err := s.cal.Validate(appt.Candidate(), in.ID); err != nil {
		var rej *domain.Rejection
		if errors.As(err, &rej) {
			s.log.Info("appointment rejected",
				slog.String("date", appt.Date.String()),
				slog.String("time", appt.Time.String()),
				slog.Int("duration", appt.Minutes()),
				slog.String("reason", rej.Reason.Error()),
			)
		}
		return domain.Appointment{}, err
	}

	s.cal.Appointments = domain.UpsertAppointment(s.cal.Appointments, appt)
	s.saveAppointments(ctx)
	return appt, nil
}

func (s *Service) DeleteAppointment(ctx context.Context, id domain.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	appts, found := domain.DeleteAppointment(s.cal.Appointments, id)
	if !found {
		return fmt.Errorf("appointment %d: %w", id, domain.ErrNotFound)
	}
	s.cal.Appointments = appts
	s.saveAppointments(ctx)
	return nil
}

type AvailabilityInput struct {
	ID    domain.ID
	Date  string
	Start string
	End   string
}

// SaveAvailability creates a one-off window, or replaces an existing one
// when ID is set. Editing never touches appointments.
func (s *Service) SaveAvailability(ctx context.Context, in AvailabilityInput) (domain.OneOffAvailability, error) {
	d, err := parseDate("date", in.Date)
	if err != nil {
		return domain.OneOffAvailability{}, err
	}
	start, err := parseClock("start", in.Start)
	if err != nil {
		return domain.OneOffAvailability{}, err
	}
	end, err := parseClock("end", in.End)
	if err != nil {
		return domain.OneOffAvailability{}, err
	}

	av, err := domain.NewAvailability(domain.AvailabilityInput{ID: in.ID, Date: d, Start: start, End: end})
	if err != nil {
		if errors.Is(err, domain.ErrInvalidTimeRange) {
			return domain.OneOffAvailability{}, validationError("start must be before end", err)
		}
		return domain.OneOffAvailability{}, validationError("invalid availability", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if in.ID != 0 && !containsAvailability(s.cal.Availabilities, in.ID) {
		return domain.OneOffAvailability{}, fmt.Errorf("availability %d: %w", in.ID, domain.ErrNotFound)
	}

	s.cal.Availabilities = domain.UpsertAvailability(s.cal.Availabilities, av)
	s.saveAvailabilities(ctx)
	return av, nil
}

// DeleteAvailability removes the window and every appointment on its
// date. The removed appointments are returned.
func (s *Service) DeleteAvailability(ctx context.Context, id domain.ID) ([]domain.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := domain.DeleteAvailability(s.cal.Availabilities, s.cal.Appointments, id)
	if err != nil {
		return nil, fmt.Errorf("availability %d: %w", id, err)
	}
	s.cal.Availabilities = m.Availabilities
	s.cal.Appointments = m.Appointments
	s.saveAvailabilities(ctx)
	s.saveAppointments(ctx)

	if len(m.Removed) > 0 {
		s.log.Info("appointments removed with availability",
			slog.Int64("availability_id", int64(id)),
			slog.Int("removed", len(m.Removed)),
		)
	}
	return m.Removed, nil
}

type RuleInput struct {
	ID        domain.ID
	Weekday   int
	Start     string
	End       string
	StartDate string
	// EndDate is optional; empty means open-ended.
	EndDate string
}

// SaveRule creates a recurring rule, or replaces an existing one when ID
// is set. Replacing keeps the existing exceptions.
func (s *Service) SaveRule(ctx context.Context, in RuleInput) (domain.RecurringRule, error) {
	start, err := parseClock("start", in.Start)
	if err != nil {
		return domain.RecurringRule{}, err
	}
	end, err := parseClock("end", in.End)
	if err != nil {
		return domain.RecurringRule{}, err
	}
	startDate, err := parseDate("start_date", in.StartDate)
	if err != nil {
		return domain.RecurringRule{}, err
	}
	var endDate *domain.Date
	if strings.TrimSpace(in.EndDate) != "" {
		d, err := parseDate("end_date", in.EndDate)
		if err != nil {
			return domain.RecurringRule{}, err
		}
		endDate = &d
	}

	rule, err := domain.NewRecurringRule(domain.RecurringRuleInput{
		ID:        in.ID,
		Weekday:   time.Weekday(in.Weekday),
		Start:     start,
		End:       end,
		StartDate: startDate,
		EndDate:   endDate,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidWeekday):
			return domain.RecurringRule{}, validationError("weekday must be between 0 and 6", err)
		case errors.Is(err, domain.ErrInvalidTimeRange):
			return domain.RecurringRule{}, validationError("start must be before end", err)
		case errors.Is(err, domain.ErrMisalignedStart):
			return domain.RecurringRule{}, validationError("start_date must fall on the rule's weekday", err)
		case errors.Is(err, domain.ErrInvalidDateRange):
			return domain.RecurringRule{}, validationError("end_date must not be before start_date", err)
		default:
			return domain.RecurringRule{}, validationError("invalid rule", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if in.ID != 0 {
		prev, ok := domain.FindRule(s.cal.Rules, in.ID)
		if !ok {
			return domain.RecurringRule{}, fmt.Errorf("rule %d: %w", in.ID, domain.ErrNotFound)
		}
		for _, ex := range prev.Exceptions {
			rule = rule.WithException(ex)
		}
	}
	s.cal.Rules = domain.UpsertRule(s.cal.Rules, rule)
	s.saveRules(ctx)
	return rule, nil
}

// DeleteRule removes the rule only. Appointments booked on its
// occurrences stay.
func (s *Service) DeleteRule(ctx context.Context, id domain.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rules, found := domain.DeleteRule(s.cal.Rules, id)
	if !found {
		return fmt.Errorf("rule %d: %w", id, domain.ErrNotFound)
	}
	s.cal.Rules = rules
	s.saveRules(ctx)
	return nil
}

// AddException suppresses one occurrence of a rule and removes every
// appointment on that date. The removed appointments are returned.
func (s *Service) AddException(ctx context.Context, ruleID domain.ID, date string) ([]domain.Appointment, error) {
	d, err := parseDate("date", date)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := domain.AddException(s.cal.Rules, s.cal.Appointments, ruleID, d)
	if err != nil {
		if errors.Is(err, domain.ErrMisalignedException) {
			return nil, validationError("date must fall on the rule's weekday", err)
		}
		return nil, fmt.Errorf("rule %d: %w", ruleID, err)
	}
	s.cal.Rules = m.Rules
	s.cal.Appointments = m.Appointments
	s.saveRules(ctx)
	s.saveAppointments(ctx)

	if len(m.Removed) > 0 {
		s.log.Info("appointments removed with exception",
			slog.Int64("rule_id", int64(ruleID)),
			slog.String("date", d.String()),
			slog.Int("removed", len(m.Removed)),
		)
	}
	return m.Removed, nil
}

func (s *Service) RemoveException(ctx context.Context, ruleID domain.ID, date string) error {
	d, err := parseDate("date", date)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rules, err := domain.RemoveException(s.cal.Rules, ruleID, d)
	if err != nil {
		return fmt.Errorf("rule %d: %w", ruleID, err)
	}
	s.cal.Rules = rules
	s.saveRules(ctx)
	return nil
}

// Flush rewrites all three collections and reports the first failure.
func (s *Service) Flush(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := store.SaveCollection(ctx, s.store, store.KeyAppointments, s.cal.Appointments); err != nil {
		return err
	}
	if err := store.SaveCollection(ctx, s.store, store.KeyAvailabilities, s.cal.Availabilities); err != nil {
		return err
	}
	return store.SaveCollection(ctx, s.store, store.KeyRecurringRules, s.cal.Rules)
}

func (s *Service) saveAppointments(ctx context.Context) {
	s.logSave(store.KeyAppointments, store.SaveCollection(ctx, s.store, store.KeyAppointments, s.cal.Appointments))
}

func (s *Service) saveAvailabilities(ctx context.Context) {
	s.logSave(store.KeyAvailabilities, store.SaveCollection(ctx, s.store, store.KeyAvailabilities, s.cal.Availabilities))
}

func (s *Service) saveRules(ctx context.Context) {
	s.logSave(store.KeyRecurringRules, store.SaveCollection(ctx, s.store, store.KeyRecurringRules, s.cal.Rules))
}

func (s *Service) logSave(key string, err error) {
	if err != nil {
		s.log.Error("collection save failed", slog.String("key", key), slog.Any("err", err))
	}
}

func containsAppointment(appts []domain.Appointment, id domain.ID) bool {
	for _, a := range appts {
		if a.ID == id {
			return true
		}
	}
	return false
}

func containsAvailability(avs []domain.OneOffAvailability, id domain.ID) bool {
	for _, av := range avs {
		if av.ID == id {
			return true
		}
	}
	return false
}

func parseDate(field, s string) (domain.Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return domain.Date{}, validationError(field+" is required", nil)
	}
	d, err := domain.ParseDate(s)
	if err != nil {
		return domain.Date{}, validationError(field+" must be YYYY-MM-DD", err)
	}
	return d, nil
}

func parseClock(field, s string) (domain.Clock, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, validationError(field+" is required", nil)
	}
	c, err := domain.ParseClock(s)
	if err != nil {
		return 0, validationError(field+" must be HH:MM", err)
	}
	return c, nil
}
