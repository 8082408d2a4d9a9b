package astreinte_test

import (
	"testing"
	"time"

	"github.com/Mouadbouanani/Gestion-Astreinte-sub002/astreinte"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

// fixtureCalendar marks specific dates as holidays.
type fixtureCalendar map[string]bool

func (c fixtureCalendar) IsHoliday(d astreinte.Date) bool { return c[d.String()] }
func (c fixtureCalendar) Holidays(int) []astreinte.Holiday {
	return nil
}

func date(y int, m time.Month, d int) astreinte.Date { return astreinte.NewDate(y, m, d) }

// =============================================================================
// PERIOD TESTS
// =============================================================================

func TestPeriod_Validate_RejectsReversedRange(t *testing.T) {
	// GIVEN: A period whose end precedes its start
	// WHEN: Validating
	// THEN: ErrInvalidPeriod

	p := astreinte.Period{
		Debut: date(2026, time.March, 15),
		Fin:   date(2026, time.March, 2),
	}
	if err := p.Validate(); err != astreinte.ErrInvalidPeriod {
		t.Fatalf("expected ErrInvalidPeriod, got %v", err)
	}
}

func TestPeriod_Validate_AcceptsSingleDay(t *testing.T) {
	day := date(2026, time.March, 7)
	p := astreinte.Period{Debut: day, Fin: day}
	if err := p.Validate(); err != nil {
		t.Fatalf("single-day period should validate, got %v", err)
	}
	if !p.Contains(day) {
		t.Fatal("single-day period should contain its day")
	}
}

func TestPeriod_Contains_InclusiveBounds(t *testing.T) {
	p := astreinte.Period{
		Debut: date(2026, time.March, 2),
		Fin:   date(2026, time.March, 15),
	}

	if !p.Contains(p.Debut) || !p.Contains(p.Fin) {
		t.Fatal("bounds should be inclusive")
	}
	if p.Contains(date(2026, time.March, 1)) {
		t.Fatal("day before debut should be outside")
	}
	if p.Contains(date(2026, time.March, 16)) {
		t.Fatal("day after fin should be outside")
	}
}

func TestPeriod_Overlaps(t *testing.T) {
	base := astreinte.Period{Debut: date(2026, time.March, 2), Fin: date(2026, time.March, 15)}

	touching := astreinte.Period{Debut: date(2026, time.March, 15), Fin: date(2026, time.March, 20)}
	if !base.Overlaps(touching) {
		t.Fatal("periods sharing one day should overlap")
	}

	disjoint := astreinte.Period{Debut: date(2026, time.March, 16), Fin: date(2026, time.March, 20)}
	if base.Overlaps(disjoint) {
		t.Fatal("disjoint periods should not overlap")
	}
}

// =============================================================================
// MANDATORY COVERAGE DAYS
// =============================================================================

func TestMandatoryDays_WeekendsOnly(t *testing.T) {
	// GIVEN: Two full weeks in March 2026, no holidays
	// WHEN: Computing mandatory days
	// THEN: Exactly the two weekends, in order

	p := astreinte.Period{Debut: date(2026, time.March, 2), Fin: date(2026, time.March, 15)}
	days := astreinte.MandatoryDays(p, astreinte.EmptyCalendar{})

	want := []string{"2026-03-07", "2026-03-08", "2026-03-14", "2026-03-15"}
	if len(days) != len(want) {
		t.Fatalf("expected %d mandatory days, got %d: %v", len(want), len(days), days)
	}
	for i, d := range days {
		if d.String() != want[i] {
			t.Errorf("day %d: expected %s, got %s", i, want[i], d)
		}
	}
}

func TestMandatoryDays_IncludesHolidays(t *testing.T) {
	// GIVEN: A period containing a Monday holiday
	// WHEN: Computing mandatory days
	// THEN: The holiday appears between the weekends

	cal := fixtureCalendar{"2026-03-09": true}
	p := astreinte.Period{Debut: date(2026, time.March, 6), Fin: date(2026, time.March, 10)}

	days := astreinte.MandatoryDays(p, cal)
	want := []string{"2026-03-07", "2026-03-08", "2026-03-09"}
	if len(days) != len(want) {
		t.Fatalf("expected %d days, got %v", len(want), days)
	}
	for i, d := range days {
		if d.String() != want[i] {
			t.Errorf("day %d: expected %s, got %s", i, want[i], d)
		}
	}
}

func TestMandatoryDays_NilCalendar(t *testing.T) {
	p := astreinte.Period{Debut: date(2026, time.March, 9), Fin: date(2026, time.March, 13)}
	if days := astreinte.MandatoryDays(p, nil); len(days) != 0 {
		t.Fatalf("weekday-only period with nil calendar should have no mandatory days, got %v", days)
	}
}

func TestParseDate_RoundTrip(t *testing.T) {
	d, err := astreinte.ParseDate("2026-03-07")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if d.String() != "2026-03-07" {
		t.Fatalf("round trip mismatch: %s", d)
	}
	if !d.IsWeekend() {
		t.Fatal("2026-03-07 is a Saturday")
	}

	if _, err := astreinte.ParseDate("07/03/2026"); err == nil {
		t.Fatal("non-ISO format should fail")
	}
}
