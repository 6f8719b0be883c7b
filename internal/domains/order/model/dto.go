package model

import (
	"regexp"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

var timeOfDayPattern = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

// UpdateOrderStatusRequest - body of PUT order/update-status/{id}
type UpdateOrderStatusRequest struct {
	Status  string `json:"status"`
	Version *int   `json:"version,omitempty"`
}

// Validate validates UpdateOrderStatusRequest
func (r UpdateOrderStatusRequest) Validate() error {
	vals := make([]interface{}, len(AllOrderStatuses))
	for i, s := range AllOrderStatuses {
		vals[i] = string(s)
	}
	return validation.ValidateStruct(&r,
		validation.Field(&r.Status,
			validation.Required.Error("status is required"),
			validation.In(vals...).Error("unknown order status"),
		),
		validation.Field(&r.Version,
			validation.When(r.Version != nil, validation.Min(0)),
		),
	)
}

// UpdateScheduleRequest - body of PUT order/update-schedule/{id}
type UpdateScheduleRequest struct {
	SelectedDate string `json:"selected_date"` // 2006-01-02
	SelectedTime string `json:"selected_time"` // 15:04
}

// Validate validates UpdateScheduleRequest
func (r UpdateScheduleRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.SelectedDate,
			validation.Required.Error("selected_date is required"),
			validation.Date("2006-01-02").Error("selected_date must be YYYY-MM-DD"),
		),
		validation.Field(&r.SelectedTime,
			validation.Required.Error("selected_time is required"),
			validation.Match(timeOfDayPattern).Error("selected_time must be HH:MM"),
		),
	)
}

// RequestedAt combines the date and time fields in loc
func (r UpdateScheduleRequest) RequestedAt(loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02 15:04", r.SelectedDate+" "+r.SelectedTime, loc)
	if err != nil {
		return time.Time{}, ErrInvalidSchedule
	}
	return t, nil
}

// NextStatusesResponse lists the statuses an order may move to
type NextStatusesResponse struct {
	OrderID string        `json:"order_id"`
	Channel Channel       `json:"order_type"`
	Current OrderStatus   `json:"current"`
	Allowed []OrderStatus `json:"allowed"`
}

// StatusChangedPayload is the queue payload emitted after a status update
type StatusChangedPayload struct {
	OrderID    string      `json:"order_id"`
	CustomerID string      `json:"customer_id,omitempty"`
	Channel    Channel     `json:"channel"`
	FromStatus OrderStatus `json:"from_status"`
	ToStatus   OrderStatus `json:"to_status"`
	ChangedBy  string      `json:"changed_by,omitempty"`
	ChangedAt  time.Time   `json:"changed_at"`
}
