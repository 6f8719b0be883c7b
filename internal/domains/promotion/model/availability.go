package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

const dateLayout = "2006-01-02"

// -------------------------------------------------------------------
// DATE
// -------------------------------------------------------------------

// Date is a calendar day without a clock or zone
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// ParseDate parses YYYY-MM-DD
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return DateOf(t), nil
}

// DateOf returns the calendar day of t in t's own location
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

func (d Date) IsZero() bool {
	return d.Year == 0 && d.Month == 0 && d.Day == 0
}

// Compare returns -1, 0 or +1
func (d Date) Compare(o Date) int {
	switch {
	case d.Year != o.Year:
		return sign(d.Year - o.Year)
	case d.Month != o.Month:
		return sign(int(d.Month) - int(o.Month))
	default:
		return sign(d.Day - o.Day)
	}
}

// Time returns midnight UTC of d
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

func (d Date) Before(o Date) bool { return d.Compare(o) < 0 }
func (d Date) After(o Date) bool  { return d.Compare(o) > 0 }

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func sign(v int) int {
	switch {
	case v < 0:
		return -1
	case v > 0:
		return 1
	}
	return 0
}

// -------------------------------------------------------------------
// TIME OF DAY
// -------------------------------------------------------------------

// TimeOfDay is minutes since midnight
type TimeOfDay int

// NoTime marks an unset time (an empty string on the wire)
const NoTime TimeOfDay = -1

// ParseTimeOfDay parses HH:MM; "" yields NoTime
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	if s == "" {
		return NoTime, nil
	}
	t, err := time.Parse("15:04", s)
	if err != nil {
		return NoTime, fmt.Errorf("invalid time %q: %w", s, err)
	}
	return TimeOfDay(t.Hour()*60 + t.Minute()), nil
}

// TimeOfDayOf truncates t to the minute
func TimeOfDayOf(t time.Time) TimeOfDay {
	return TimeOfDay(t.Hour()*60 + t.Minute())
}

func (t TimeOfDay) IsSet() bool {
	return t >= 0 && t < 24*60
}

func (t TimeOfDay) String() string {
	if !t.IsSet() {
		return ""
	}
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

// -------------------------------------------------------------------
// WEEKDAY
// -------------------------------------------------------------------

// Weekday indexes the per-day availability table, Monday first
type Weekday int

const (
	Monday Weekday = iota
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

var weekdayKeys = [7]string{"mon", "tue", "wed", "thu", "fri", "sat", "sun"}

// Weekdays lists every weekday, Monday first
var Weekdays = [7]Weekday{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

// Key is the wire key used in customDayTime
func (w Weekday) Key() string {
	return weekdayKeys[w]
}

// WeekdayOf maps time.Weekday (Sunday = 0) onto the Monday-first table
func WeekdayOf(t time.Time) Weekday {
	return Weekday((int(t.Weekday()) + 6) % 7)
}

// ParseWeekday maps a wire key back to a Weekday
func ParseWeekday(key string) (Weekday, bool) {
	for i, k := range weekdayKeys {
		if k == key {
			return Weekday(i), true
		}
	}
	return 0, false
}

// -------------------------------------------------------------------
// AVAILABILITY WINDOW
// -------------------------------------------------------------------

// DayWindow is the opening slot of one weekday. Disabled days may still
// carry times so the admin form round-trips unchanged.
type DayWindow struct {
	Enabled bool      `json:"enabled"`
	Start   TimeOfDay `json:"start"`
	End     TimeOfDay `json:"end"`
}

// Validate checks endTime > startTime on enabled days
func (d DayWindow) Validate() error {
	if !d.Enabled {
		return nil
	}
	if !d.Start.IsSet() || !d.End.IsSet() {
		return errors.New("enabled day needs both startTime and endTime")
	}
	if d.End <= d.Start {
		return errors.New("endTime must be after startTime")
	}
	return nil
}

// AvailabilityWindow is an inclusive date range plus optional weekday slots
type AvailabilityWindow struct {
	StartDate Date         `json:"storeStartDate"`
	EndDate   Date         `json:"storeEndDate"`
	Days      [7]DayWindow `json:"customDayTime"`
}

// HasDayRestrictions reports whether any weekday is enabled
func (w AvailabilityWindow) HasDayRestrictions() bool {
	for _, d := range w.Days {
		if d.Enabled {
			return true
		}
	}
	return false
}

// Day returns the slot of a weekday
func (w AvailabilityWindow) Day(wd Weekday) DayWindow {
	return w.Days[wd]
}

// Validate validates AvailabilityWindow
func (w AvailabilityWindow) Validate() error {
	return validation.ValidateStruct(&w,
		validation.Field(&w.StartDate,
			validation.By(requiredDate("storeStartDate is required")),
		),
		validation.Field(&w.EndDate,
			validation.By(requiredDate("storeEndDate is required")),
			validation.By(func(interface{}) error {
				if !w.StartDate.IsZero() && w.EndDate.Before(w.StartDate) {
					return errors.New("storeEndDate must not be before storeStartDate")
				}
				return nil
			}),
		),
		validation.Field(&w.Days, validation.By(func(interface{}) error {
			errs := validation.Errors{}
			for _, wd := range Weekdays {
				if err := w.Days[wd].Validate(); err != nil {
					errs[wd.Key()] = err
				}
			}
			return errs.Filter()
		})),
	)
}

func requiredDate(msg string) validation.RuleFunc {
	return func(value interface{}) error {
		if d, ok := value.(Date); ok && d.IsZero() {
			return errors.New(msg)
		}
		return nil
	}
}
