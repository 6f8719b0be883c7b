package model

import (
	"errors"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

var (
	ErrInvalidScope        = errors.New("invalid scope selector")
	ErrInvalidPromoKind    = errors.New("invalid promo kind")
	ErrInvalidDiscountType = errors.New("invalid discount type")
	ErrInvalidUsageLimit   = errors.New("usageLimit must be 'one' or 'multiple'")
	ErrInvalidStatus       = errors.New("invalid promotion status")
	ErrInvalidPayload      = errors.New("invalid promotion payload")
)

type ErrorCode string

const (
	ErrCodePromoNotFound       ErrorCode = "PROMO_NOT_FOUND"        // 404
	ErrCodePromoDuplicateCode  ErrorCode = "VAL_DUPLICATE_CODE"     // 400
	ErrCodePromoUpdateConflict ErrorCode = "BIZ_UPDATE_CONFLICT"    // 409
	ErrCodePromoCannotDelete   ErrorCode = "BIZ_CANNOT_DELETE_USED" // 400
	ErrCodePromoAlreadyUsed    ErrorCode = "BIZ_ALREADY_REDEEMED"   // 409
	ErrCodePromoLimitReached   ErrorCode = "BIZ_LIMIT_REACHED"      // 409
	ErrCodeValidationFailed    ErrorCode = "VAL_INVALID_INPUT"      // 400
)

type AppError struct {
	Code       ErrorCode              `json:"code"`
	Message    string                 `json:"message"`
	Details    map[string]interface{} `json:"details,omitempty"`
	HTTPStatus int                    `json:"-"`
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) StatusCode() int   { return e.HTTPStatus }
func (e *AppError) ErrorCode() string { return string(e.Code) }

func (e *AppError) ErrorDetails() interface{} {
	if len(e.Details) == 0 {
		return nil
	}
	return e.Details
}

// Predefined errors
var (
	ErrPromotionNotFound = &AppError{
		Code:       ErrCodePromoNotFound,
		Message:    "promotion does not exist",
		HTTPStatus: http.StatusNotFound,
	}

	ErrDuplicateCode = &AppError{
		Code:       ErrCodePromoDuplicateCode,
		Message:    "promotion code is already used by another promotion",
		HTTPStatus: http.StatusBadRequest,
	}

	ErrUpdateConflict = &AppError{
		Code:       ErrCodePromoUpdateConflict,
		Message:    "promotion was modified concurrently, reload and retry",
		HTTPStatus: http.StatusConflict,
	}

	ErrAlreadyRedeemed = &AppError{
		Code:       ErrCodePromoAlreadyUsed,
		Message:    "promotion was already redeemed on this order",
		HTTPStatus: http.StatusConflict,
	}

	ErrCannotDeleteUsed = &AppError{
		Code:       ErrCodePromoCannotDelete,
		Message:    "promotion has redemptions and cannot be deleted, deactivate it instead",
		HTTPStatus: http.StatusBadRequest,
	}
)

// NewValidationError wraps a validation failure. ozzo field errors are
// copied into Details keyed by field.
func NewValidationError(err error) *AppError {
	appErr := &AppError{
		Code:       ErrCodeValidationFailed,
		Message:    err.Error(),
		HTTPStatus: http.StatusBadRequest,
	}

	var verrs validation.Errors
	if errors.As(err, &verrs) {
		appErr.Message = "invalid promotion"
		appErr.Details = make(map[string]interface{}, len(verrs))
		for field, fe := range verrs {
			appErr.Details[field] = fe.Error()
		}
	}
	return appErr
}

// NewLimitError reports an exhausted redemption limit
func NewLimitError(reason Reason) *AppError {
	msg := "promotion has reached its redemption limit"
	if reason == ReasonCustomerLimit {
		msg = "customer has already used this promotion the maximum number of times"
	}
	return &AppError{
		Code:       ErrCodePromoLimitReached,
		Message:    msg,
		Details:    map[string]interface{}{"reason": string(reason)},
		HTTPStatus: http.StatusConflict,
	}
}

// WithDetails returns a copy of e carrying details
func (e *AppError) WithDetails(details map[string]interface{}) *AppError {
	cp := *e
	cp.Details = details
	return &cp
}
