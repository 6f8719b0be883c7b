package lifecycle

import (
	"errors"
	"fmt"
	"time"
)

// MinimumLeadTime is the gap required between order creation and a
// scheduled pickup/delivery slot.
const MinimumLeadTime = 60 * time.Minute

// ErrScheduleTooSoon is matched by every *TooSoonError
var ErrScheduleTooSoon = errors.New("requested schedule is too soon")

// TooSoonError carries the earliest slot that would have been accepted
type TooSoonError struct {
	Requested time.Time
	Earliest  time.Time
}

func (e *TooSoonError) Error() string {
	return fmt.Sprintf("requested %s is before earliest allowed %s",
		e.Requested.Format(time.RFC3339), e.Earliest.Format(time.RFC3339))
}

func (e *TooSoonError) Is(target error) bool {
	return target == ErrScheduleTooSoon
}

// EarliestSchedule is createdAt + MinimumLeadTime
func EarliestSchedule(createdAt time.Time) time.Time {
	return createdAt.Add(MinimumLeadTime)
}

// ValidateSchedule measures the lead time from the order's creation, not
// from the wall clock.
func ValidateSchedule(createdAt, requested time.Time) error {
	earliest := EarliestSchedule(createdAt)
	if requested.Before(earliest) {
		return &TooSoonError{Requested: requested, Earliest: earliest}
	}
	return nil
}
