package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PromotionRedemption records one accepted use of a promotion
type PromotionRedemption struct {
	ID             uuid.UUID       `db:"id" json:"id"`
	PromotionID    uuid.UUID       `db:"promotion_id" json:"promotion_id"`
	CustomerID     *uuid.UUID      `db:"customer_id" json:"customer_id,omitempty"`
	OrderID        uuid.UUID       `db:"order_id" json:"order_id"`
	Code           string          `db:"code" json:"code"`
	DiscountAmount decimal.Decimal `db:"discount_amount" json:"discount_amount"`
	RedeemedAt     time.Time       `db:"redeemed_at" json:"redeemed_at"`
}

// RedemptionCounts are the persisted counters the limit check reads
type RedemptionCounts struct {
	Total       int
	ForCustomer int
}

// CheckLimits applies the usage limits of p to counts. It returns
// ReasonNone when another redemption is allowed.
func (p *Promotion) CheckLimits(counts RedemptionCounts, hasCustomer bool) Reason {
	if p.TotalRedemptionLimit > 0 && counts.Total >= p.TotalRedemptionLimit {
		return ReasonRedemptionLimit
	}
	if !hasCustomer {
		return ReasonNone
	}
	if limit := p.PerCustomerLimit(); limit > 0 && counts.ForCustomer >= limit {
		return ReasonCustomerLimit
	}
	return ReasonNone
}
