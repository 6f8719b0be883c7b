package model

import (
	"errors"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// =====================================================
// CUSTOM ERROR CODES
// =====================================================
const (
	ErrCodeOrderNotFound     = "ORD001"
	ErrCodeVersionMismatch   = "ORD003"
	ErrCodeInvalidTransition = "ORD015"
	ErrCodeScheduleTooSoon   = "ORD018"
	ErrCodeInvalidSchedule   = "ORD019"
	ErrCodeInvalidRequest    = "ORD020"
)

// =====================================================
// ERROR DEFINITIONS
// =====================================================
var (
	ErrOrderNotFound      = errors.New("order not found")
	ErrVersionMismatch    = errors.New("version mismatch - concurrent modification detected")
	ErrInvalidStatus      = errors.New("invalid order status")
	ErrUnknownChannel     = errors.New("unknown order channel")
	ErrInvalidDeliveryFee = errors.New("delivery fee must be >= 0")
	ErrInvalidLineItem    = errors.New("line item needs an item id, quantity 1-999 and unit price >= 0")
	ErrInvalidSchedule    = errors.New("invalid schedule date or time")
)

// =====================================================
// CUSTOM ERROR TYPE
// =====================================================
type OrderError struct {
	Code    string
	Message string
	Err     error
	Details map[string]interface{}
}

func (e *OrderError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *OrderError) Unwrap() error {
	return e.Err
}

// NewOrderError creates a new OrderError
func NewOrderError(code, message string, err error) *OrderError {
	return &OrderError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// NewValidationError wraps a request validation failure; ozzo field
// errors are copied into Details.
func NewValidationError(err error) *OrderError {
	oe := NewOrderError(ErrCodeInvalidRequest, "invalid request", err)
	var verrs validation.Errors
	if errors.As(err, &verrs) {
		oe.Details = make(map[string]interface{}, len(verrs))
		for field, fe := range verrs {
			oe.Details[field] = fe.Error()
		}
	}
	return oe
}

// WithDetails attaches details and returns e
func (e *OrderError) WithDetails(details map[string]interface{}) *OrderError {
	e.Details = details
	return e
}

// StatusCode maps the error code to an HTTP status
func (e *OrderError) StatusCode() int {
	switch e.Code {
	case ErrCodeOrderNotFound:
		return http.StatusNotFound
	case ErrCodeVersionMismatch, ErrCodeInvalidTransition:
		return http.StatusConflict
	case ErrCodeScheduleTooSoon, ErrCodeInvalidSchedule:
		return http.StatusUnprocessableEntity
	case ErrCodeInvalidRequest:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (e *OrderError) ErrorCode() string { return e.Code }

func (e *OrderError) ErrorDetails() interface{} {
	if len(e.Details) == 0 {
		return nil
	}
	return e.Details
}
