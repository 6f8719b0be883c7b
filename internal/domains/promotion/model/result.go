package model

import "github.com/shopspring/decimal"

// Reason explains why a promotion does not apply
type Reason string

const (
	ReasonNone       Reason = ""
	ReasonChannel    Reason = "channel"
	ReasonInactive   Reason = "inactive"
	ReasonWindow     Reason = "window"
	ReasonEmptyScope Reason = "empty-scope"
	ReasonThreshold  Reason = "threshold"

	// Set by the service after the engine, from persisted counters
	ReasonRedemptionLimit Reason = "redemption-limit"
	ReasonCustomerLimit   Reason = "customer-limit"
	ReasonNoneApplicable  Reason = "no-applicable-promotion"
)

// PromotionResult is the engine's answer for one promotion and one order
type PromotionResult struct {
	Applicable         bool            `json:"applicable"`
	Reason             Reason          `json:"reason,omitempty"`
	DiscountAmount     decimal.Decimal `json:"discountAmount"`
	FreeItemIDs        []string        `json:"freeItemIds"`
	DiscountUnits      int             `json:"discountUnits"`
	WaivesMinimumOrder bool            `json:"waivesMinimumOrder,omitempty"`
}

// Ineligible builds a non-applicable result
func Ineligible(reason Reason) PromotionResult {
	return PromotionResult{
		Applicable:     false,
		Reason:         reason,
		DiscountAmount: decimal.Zero,
		FreeItemIDs:    []string{},
	}
}
