package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/teambition/rrule-go"
)

func mondayRule() RecurringRule {
	return RecurringRule{
		ID:        1,
		Weekday:   time.Monday,
		Start:     MustParseClock("09:00"),
		End:       MustParseClock("11:00"),
		StartDate: MustParseDate("2024-06-03"),
	}
}

func TestApplies_WeekdayAlignment(t *testing.T) {
	f := gofakeit.New(7)
	lo := time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC)
	hi := time.Date(2090, 12, 31, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 500; i++ {
		d := DateOf(f.DateRange(lo, hi))
		rule := RecurringRule{
			ID:      ID(i + 1),
			Weekday: d.Weekday(),
			Start:   MustParseClock("08:00"),
			End:     MustParseClock("12:00"),
		}
		if !Applies(rule, d) {
			t.Fatalf("Applies(weekday=%d, %s) = false, want true", rule.Weekday, d)
		}

		rule.Weekday = (d.Weekday() + time.Weekday(f.Number(1, 6))) % 7
		if Applies(rule, d) {
			t.Fatalf("Applies(weekday=%d, %s) = true, want false", rule.Weekday, d)
		}
	}
}

func TestApplies_ExceptionSuppressesSingleDate(t *testing.T) {
	rule := mondayRule()
	d := MustParseDate("2024-06-10")
	next := MustParseDate("2024-06-17")

	if !Applies(rule, d) {
		t.Fatalf("rule should apply on %s", d)
	}

	withEx := rule.WithException(d)
	if Applies(withEx, d) {
		t.Fatalf("rule with exception should not apply on %s", d)
	}
	if !Applies(withEx, next) {
		t.Fatalf("exception must only suppress %s, not %s", d, next)
	}
	if len(rule.Exceptions) != 0 {
		t.Fatalf("WithException modified the original rule: %v", rule.Exceptions)
	}

	restored := withEx.WithoutException(d)
	if !Applies(restored, d) {
		t.Fatalf("rule should apply again on %s after removing the exception", d)
	}
}

func TestApplies_Bounds(t *testing.T) {
	rule := mondayRule()

	if Applies(rule, MustParseDate("2024-05-27")) {
		t.Fatalf("rule must not apply before its start date")
	}
	if !Applies(rule, MustParseDate("2024-06-03")) {
		t.Fatalf("start date is inclusive")
	}
	if !Applies(rule, MustParseDate("2031-01-06")) {
		t.Fatalf("rule without end date must keep applying")
	}

	end := MustParseDate("2024-06-17")
	rule.EndDate = &end
	if !Applies(rule, end) {
		t.Fatalf("end date is inclusive")
	}
	if Applies(rule, MustParseDate("2024-06-24")) {
		t.Fatalf("rule must not apply after its end date")
	}
}

func TestApplies_MatchesRRuleExpansion(t *testing.T) {
	start := MustParseDate("2024-06-04")
	end := MustParseDate("2024-10-29")
	skipped := []Date{MustParseDate("2024-07-02"), MustParseDate("2024-08-27")}

	rule := RecurringRule{
		ID:        9,
		Weekday:   time.Tuesday,
		Start:     MustParseClock("13:00"),
		End:       MustParseClock("17:00"),
		StartDate: start,
		EndDate:   &end,
	}
	for _, d := range skipped {
		rule = rule.WithException(d)
	}

	r, err := rrule.NewRRule(rrule.ROption{
		Freq:      rrule.WEEKLY,
		Byweekday: []rrule.Weekday{rrule.TU},
		Dtstart:   start.Time(),
		Until:     end.Time(),
	})
	if err != nil {
		t.Fatalf("NewRRule error: %v", err)
	}
	var set rrule.Set
	set.RRule(r)
	for _, d := range skipped {
		set.ExDate(d.Time())
	}

	from := start.AddDays(-21)
	to := end.AddDays(21)
	want := make(map[Date]bool)
	for _, occ := range set.Between(from.Time(), to.Time(), true) {
		want[DateOf(occ)] = true
	}
	if len(want) == 0 {
		t.Fatalf("oracle produced no occurrences")
	}

	for d := from; !d.After(to); d = d.AddDays(1) {
		if got := Applies(rule, d); got != want[d] {
			t.Fatalf("Applies(%s) = %v, want %v", d, got, want[d])
		}
	}
}

func TestResolve_MergesOneOffAndRecurring(t *testing.T) {
	rule := mondayRule()
	oneOffs := []OneOffAvailability{
		{ID: 10, Date: MustParseDate("2024-06-10"), Start: MustParseClock("14:00"), End: MustParseClock("16:00")},
		{ID: 11, Date: MustParseDate("2024-06-11"), Start: MustParseClock("09:00"), End: MustParseClock("10:00")},
	}

	got := Resolve(MustParseDate("2024-06-10"), oneOffs, []RecurringRule{rule})
	if len(got) != 2 {
		t.Fatalf("len(intervals) = %d, want 2", len(got))
	}
	if got[0].SourceID != 10 || got[0].Recurring {
		t.Fatalf("first interval = %+v, want one-off 10", got[0])
	}
	if got[1].SourceID != rule.ID || !got[1].Recurring {
		t.Fatalf("second interval = %+v, want recurring %d", got[1], rule.ID)
	}
	if got[1].Start != rule.Start || got[1].End != rule.End {
		t.Fatalf("recurring interval = %s-%s, want %s-%s", got[1].Start, got[1].End, rule.Start, rule.End)
	}
}

func TestResolve_RecurringScenarios(t *testing.T) {
	rule := mondayRule()
	rules := []RecurringRule{rule}

	if got := Resolve(MustParseDate("2024-06-10"), nil, rules); len(got) != 1 || got[0].Start != MustParseClock("09:00") || got[0].End != MustParseClock("11:00") {
		t.Fatalf("2024-06-10 = %+v, want [09:00-11:00]", got)
	}
	if got := Resolve(MustParseDate("2024-06-11"), nil, rules); len(got) != 0 {
		t.Fatalf("2024-06-11 = %+v, want empty", got)
	}

	rules = []RecurringRule{rule.WithException(MustParseDate("2024-06-10"))}
	if got := Resolve(MustParseDate("2024-06-10"), nil, rules); len(got) != 0 {
		t.Fatalf("2024-06-10 with exception = %+v, want empty", got)
	}
	if got := Resolve(MustParseDate("2024-06-17"), nil, rules); len(got) != 1 {
		t.Fatalf("2024-06-17 = %+v, want one interval", got)
	}
}

func TestNewRecurringRule_Validation(t *testing.T) {
	before := MustParseDate("2024-05-27")
	base := RecurringRuleInput{
		Weekday:   time.Monday,
		Start:     MustParseClock("09:00"),
		End:       MustParseClock("11:00"),
		StartDate: MustParseDate("2024-06-03"),
	}

	tests := []struct {
		name    string
		in      func() RecurringRuleInput
		wantErr error
	}{
		{
			name: "misaligned start date",
			in: func() RecurringRuleInput {
				in := base
				in.StartDate = MustParseDate("2024-06-04")
				return in
			},
			wantErr: ErrMisalignedStart,
		},
		{
			name: "start equals end",
			in: func() RecurringRuleInput {
				in := base
				in.End = in.Start
				return in
			},
			wantErr: ErrInvalidTimeRange,
		},
		{
			name: "end before start",
			in: func() RecurringRuleInput {
				in := base
				in.Start, in.End = in.End, in.Start
				return in
			},
			wantErr: ErrInvalidTimeRange,
		},
		{
			name: "end date before start date",
			in: func() RecurringRuleInput {
				in := base
				in.EndDate = &before
				return in
			},
			wantErr: ErrInvalidDateRange,
		},
		{
			name: "weekday out of range",
			in: func() RecurringRuleInput {
				in := base
				in.Weekday = 7
				return in
			},
			wantErr: ErrInvalidWeekday,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRecurringRule(tt.in())
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}

	rule, err := NewRecurringRule(base)
	if err != nil {
		t.Fatalf("NewRecurringRule error: %v", err)
	}
	if rule.ID == 0 {
		t.Fatalf("expected an assigned id")
	}
	if rule.EndDate != nil || rule.Exceptions != nil {
		t.Fatalf("unexpected optional fields: %+v", rule)
	}
}

func TestWithException_KeepsSetSemantics(t *testing.T) {
	rule := mondayRule()
	a := MustParseDate("2024-06-17")
	b := MustParseDate("2024-06-10")

	rule = rule.WithException(a).WithException(b).WithException(a)
	if len(rule.Exceptions) != 2 {
		t.Fatalf("exceptions = %v, want 2 entries", rule.Exceptions)
	}
	if rule.Exceptions[0] != b || rule.Exceptions[1] != a {
		t.Fatalf("exceptions = %v, want sorted [%s %s]", rule.Exceptions, b, a)
	}

	rule = rule.WithoutException(MustParseDate("2030-01-07"))
	if len(rule.Exceptions) != 2 {
		t.Fatalf("removing a non-member changed the set: %v", rule.Exceptions)
	}
}
