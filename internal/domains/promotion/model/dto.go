package model

import (
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	order "restaurant-backoffice/internal/domains/order/model"
)

// -------------------------------------------------------------------
// EVALUATE
// -------------------------------------------------------------------

// EvaluateRequest asks whether a stored promotion applies to a cart.
// PromotionID or Code picks the promotion; with neither set the best
// active promotion for the cart is chosen.
type EvaluateRequest struct {
	PromotionID string        `json:"promotion_id"`
	Code        string        `json:"code"`
	Order       EvaluateOrder `json:"order"`
	At          *time.Time    `json:"at,omitempty"` // defaults to server time
}

// EvaluateOrder is the candidate order sent by the caller
type EvaluateOrder struct {
	Channel     string          `json:"order_type"`
	CustomerID  string          `json:"customer_id"`
	DeliveryFee decimal.Decimal `json:"delivery_fee"`
	LineItems   []EvaluateItem  `json:"line_items"`
}

// EvaluateItem is one cart line
type EvaluateItem struct {
	ItemID      string          `json:"item_id"`
	CategoryIDs []string        `json:"category_ids"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

// Validate validates EvaluateRequest
func (r EvaluateRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.PromotionID, is.UUID),
		validation.Field(&r.Code,
			validation.When(r.Code != "", validation.Length(3, 50)),
		),
		validation.Field(&r.Order),
	)
}

// Validate validates EvaluateOrder
func (o EvaluateOrder) Validate() error {
	return validation.ValidateStruct(&o,
		validation.Field(&o.Channel,
			validation.Required,
			validation.In("delivery", "pickup", "dinein").Error("order_type must be delivery, pickup or dinein"),
		),
		validation.Field(&o.CustomerID, is.UUID),
		validation.Field(&o.LineItems, validation.Required, validation.Length(1, 200)),
	)
}

// Validate validates EvaluateItem
func (i EvaluateItem) Validate() error {
	return validation.ValidateStruct(&i,
		validation.Field(&i.ItemID, validation.Required),
		validation.Field(&i.Quantity, validation.Required, validation.Min(1), validation.Max(order.MaxLineQuantity)),
	)
}

// NormalizeCode uppercases the redemption code
func (r *EvaluateRequest) NormalizeCode() {
	r.Code = strings.ToUpper(strings.TrimSpace(r.Code))
}

// ToOrder converts the request into the engine's order type
func (o EvaluateOrder) ToOrder() (*order.Order, error) {
	ch, err := order.ParseChannel(o.Channel)
	if err != nil {
		return nil, err
	}
	out := &order.Order{
		Channel:     ch,
		Status:      order.OrderStatusPending,
		DeliveryFee: o.DeliveryFee,
		LineItems:   make([]order.LineItem, 0, len(o.LineItems)),
	}
	if o.CustomerID != "" {
		id, err := uuid.Parse(o.CustomerID)
		if err != nil {
			return nil, err
		}
		out.CustomerID = &id
	}
	for _, it := range o.LineItems {
		out.LineItems = append(out.LineItems, order.LineItem{
			ItemID:      it.ItemID,
			CategoryIDs: it.CategoryIDs,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
		})
	}
	return out, out.Validate()
}

// EvaluateResponse is the evaluate endpoint's answer
type EvaluateResponse struct {
	PromotionID uuid.UUID       `json:"promotion_id"`
	Name        string          `json:"name"`
	Kind        PromoKind       `json:"promo_kind"`
	Result      PromotionResult `json:"result"`
	FinalAmount decimal.Decimal `json:"final_amount"`
}

// -------------------------------------------------------------------
// ADMIN REQUESTS
// -------------------------------------------------------------------

// ListPromotionsFilter - filter for the admin list
type ListPromotionsFilter struct {
	Status  string `form:"status"`  // active, inactive, expired, all
	Search  string `form:"search"`  // name or code
	Channel string `form:"channel"` // delivery, pickup, dinein
	Page    int    `form:"page"`
	Limit   int    `form:"limit"`
}

// Validate validates ListPromotionsFilter and applies defaults
func (f *ListPromotionsFilter) Validate() error {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 || f.Limit > 100 {
		f.Limit = 20
	}
	if f.Status == "" {
		f.Status = "all"
	}
	return validation.ValidateStruct(f,
		validation.Field(&f.Status, validation.In("active", "inactive", "expired", "all")),
		validation.Field(&f.Channel, validation.In("delivery", "pickup", "dinein")),
		validation.Field(&f.Search, validation.Length(0, 100)),
	)
}

// Offset returns the row offset of the requested page
func (f ListPromotionsFilter) Offset() int {
	return (f.Page - 1) * f.Limit
}

// UpdatePromotionRequest replaces a promotion. Version is the one the
// editor loaded; 0 skips the concurrency check.
type UpdatePromotionRequest struct {
	PromotionPayload
	Version int `json:"version"`
}

// UpdateStatusRequest toggles the admin switch
type UpdateStatusRequest struct {
	Status string `json:"status"`
}

// Validate validates UpdateStatusRequest
func (r UpdateStatusRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Status,
			validation.Required,
			validation.In(string(PromotionStatusActive), string(PromotionStatusInactive)),
		),
	)
}

// RecordRedemptionRequest is sent by checkout after an order is placed
type RecordRedemptionRequest struct {
	PromotionID    string          `json:"promotion_id"`
	OrderID        string          `json:"order_id"`
	CustomerID     string          `json:"customer_id"`
	Code           string          `json:"code"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
}

// Validate validates RecordRedemptionRequest
func (r RecordRedemptionRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.PromotionID, validation.Required, is.UUID),
		validation.Field(&r.OrderID, validation.Required, is.UUID),
		validation.Field(&r.CustomerID, is.UUID),
		validation.Field(&r.DiscountAmount, validation.By(func(interface{}) error {
			if r.DiscountAmount.IsNegative() {
				return validation.NewError("validation_negative", "discount_amount must be >= 0")
			}
			return nil
		})),
	)
}

// PromotionListItem - one row of the admin list
type PromotionListItem struct {
	ID              uuid.UUID       `json:"id"`
	Name            string          `json:"promotionName"`
	Codes           []string        `json:"codes"`
	Kind            PromoKind       `json:"promoType"`
	Status          PromotionStatus `json:"status"`
	Channels        []order.Channel `json:"applyToDeliveryPickup"`
	StoreStartDate  Date            `json:"storeStartDate"`
	StoreEndDate    Date            `json:"storeEndDate"`
	RedemptionCount int             `json:"redemptionCount"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// PromotionDetail is the admin read model: the form payload plus the
// version the editor must send back on update.
type PromotionDetail struct {
	PromotionPayload
	Version   int       `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewPromotionDetail builds the admin read model of p
func NewPromotionDetail(p *Promotion) *PromotionDetail {
	return &PromotionDetail{
		PromotionPayload: p.ToPayload(),
		Version:          p.Version,
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
	}
}
