package engine

import (
	"time"

	"restaurant-backoffice/internal/domains/promotion/model"
)

// InWindow reports whether now falls inside w.
//
// The date range is inclusive on both ends. When no weekday is enabled the
// whole day qualifies; otherwise today's slot must be enabled and the clock,
// truncated to the minute, must lie within [start, end].
//
// now is read in its own location; callers pass it in the outlet's zone.
func InWindow(w model.AvailabilityWindow, now time.Time) bool {
	today := model.DateOf(now)
	if !w.StartDate.IsZero() && today.Before(w.StartDate) {
		return false
	}
	if !w.EndDate.IsZero() && today.After(w.EndDate) {
		return false
	}

	if !w.HasDayRestrictions() {
		return true
	}

	slot := w.Day(model.WeekdayOf(now))
	if !slot.Enabled {
		return false
	}
	tod := model.TimeOfDayOf(now)
	return tod >= slot.Start && tod <= slot.End
}
