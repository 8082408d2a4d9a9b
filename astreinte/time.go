package astreinte

import (
	"time"
)

// =============================================================================
// DATE - Day-granularity calendar point (astreinte is a per-day system)
// =============================================================================

// Date is a calendar day in UTC. Gardes, unavailability ranges and planning
// periods are all keyed by Date; there is no finer granularity in the core.
type Date struct {
	Time time.Time
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses YYYY-MM-DD.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, err
	}
	return Date{Time: t}, nil
}

func Today() Date {
	now := time.Now().UTC()
	return NewDate(now.Year(), now.Month(), now.Day())
}

func (d Date) normalize() time.Time {
	return time.Date(d.Time.Year(), d.Time.Month(), d.Time.Day(), 0, 0, 0, 0, time.UTC)
}

// Comparison
func (d Date) Before(other Date) bool        { return d.normalize().Before(other.normalize()) }
func (d Date) Equal(other Date) bool         { return d.normalize().Equal(other.normalize()) }
func (d Date) After(other Date) bool         { return d.normalize().After(other.normalize()) }
func (d Date) BeforeOrEqual(other Date) bool { return d.Before(other) || d.Equal(other) }
func (d Date) AfterOrEqual(other Date) bool  { return d.After(other) || d.Equal(other) }

// Arithmetic
func (d Date) AddDays(n int) Date { return Date{Time: d.Time.AddDate(0, 0, n)} }

// Properties
func (d Date) Year() int             { return d.Time.Year() }
func (d Date) Month() time.Month     { return d.Time.Month() }
func (d Date) Day() int              { return d.Time.Day() }
func (d Date) Weekday() time.Weekday { return d.Time.Weekday() }
func (d Date) IsZero() bool          { return d.Time.IsZero() }

func (d Date) IsWeekend() bool {
	wd := d.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

func (d Date) String() string { return d.normalize().Format("2006-01-02") }

// =============================================================================
// PERIOD - Inclusive date range [Debut, Fin]
// =============================================================================

type Period struct {
	Debut Date
	Fin   Date
}

// Validate rejects malformed periods before any state is read.
func (p Period) Validate() error {
	if p.Debut.IsZero() || p.Fin.IsZero() {
		return ErrInvalidPeriod
	}
	if p.Fin.Before(p.Debut) {
		return ErrInvalidPeriod
	}
	return nil
}

// Contains reports whether the date falls within [Debut, Fin].
func (p Period) Contains(d Date) bool {
	return d.AfterOrEqual(p.Debut) && d.BeforeOrEqual(p.Fin)
}

// Days returns every day of the period in chronological order.
func (p Period) Days() []Date {
	var days []Date
	for cur := p.Debut; cur.BeforeOrEqual(p.Fin); cur = cur.AddDays(1) {
		days = append(days, cur)
	}
	return days
}

// Overlaps reports whether two periods share at least one day.
func (p Period) Overlaps(other Period) bool {
	return p.Debut.BeforeOrEqual(other.Fin) && other.Debut.BeforeOrEqual(p.Fin)
}

func (p Period) String() string { return "[" + p.Debut.String() + ", " + p.Fin.String() + "]" }

// =============================================================================
// HOLIDAY CALENDAR - External calendar input to the scheduler
// =============================================================================

type HolidayType string

const (
	HolidayFixed    HolidayType = "fixed"    // same date every year
	HolidayIslamic  HolidayType = "islamic"  // lunar calendar, entered per year
	HolidayVariable HolidayType = "variable" // moveable (e.g. decreed bridges)
)

// Holiday marks a date that carries the same on-call obligation as a weekend.
type Holiday struct {
	ID    string
	Date  Date
	Nom   string
	Type  HolidayType
	Actif bool
}

// HolidayCalendar answers "is this a public holiday?".
type HolidayCalendar interface {
	IsHoliday(date Date) bool
	Holidays(year int) []Holiday
}

// EmptyCalendar is a no-op calendar: only weekends are mandatory.
type EmptyCalendar struct{}

func (EmptyCalendar) IsHoliday(Date) bool    { return false }
func (EmptyCalendar) Holidays(int) []Holiday { return nil }

// IsMandatoryCoverageDay reports whether the date requires astreinte staffing.
// The system staffs weekends and active public holidays; all other days are
// skipped entirely by the scheduler.
func IsMandatoryCoverageDay(d Date, cal HolidayCalendar) bool {
	if d.IsWeekend() {
		return true
	}
	return cal != nil && cal.IsHoliday(d)
}

// MandatoryDays filters a period down to its mandatory coverage days,
// preserving chronological order.
func MandatoryDays(p Period, cal HolidayCalendar) []Date {
	var days []Date
	for _, d := range p.Days() {
		if IsMandatoryCoverageDay(d, cal) {
			days = append(days, d)
		}
	}
	return days
}
