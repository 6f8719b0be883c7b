package model

import (
	"errors"
	"regexp"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	order "restaurant-backoffice/internal/domains/order/model"
)

var codePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// UsageLimit says whether a customer may redeem a promotion more than once
type UsageLimit string

const (
	UsageLimitOne      UsageLimit = "one"
	UsageLimitMultiple UsageLimit = "multiple"
)

// PromotionStatus is the admin on/off switch
type PromotionStatus string

const (
	PromotionStatusActive   PromotionStatus = "active"
	PromotionStatusInactive PromotionStatus = "inactive"
)

// PromoKind is the persisted discriminant of what a promotion grants.
// It replaces any guessing from the display label.
type PromoKind string

const (
	PromoKindDiscount             PromoKind = "discount"
	PromoKindFreeItem             PromoKind = "freeItem"
	PromoKindDeliveryOverride     PromoKind = "deliveryOverride"
	PromoKindMinimumOrderOverride PromoKind = "minimumOrderOverride"
)

func (k PromoKind) IsValid() bool {
	switch k {
	case PromoKindDiscount, PromoKindFreeItem, PromoKindDeliveryOverride, PromoKindMinimumOrderOverride:
		return true
	}
	return false
}

// DiscountType represents valid discount types
type DiscountType string

const (
	DiscountTypePercentage DiscountType = "percentage"
	DiscountTypeFixed      DiscountType = "fixed"
)

func (dt DiscountType) IsValid() bool {
	switch dt {
	case DiscountTypePercentage, DiscountTypeFixed:
		return true
	}
	return false
}

func (dt DiscountType) String() string {
	return string(dt)
}

// DiscountRule holds the amounts and thresholds of a promotion
type DiscountRule struct {
	Type            DiscountType    `json:"discount_type"`
	Amount          decimal.Decimal `json:"discount_amount"`
	MinimumSpend    decimal.Decimal `json:"minimum_spend"`
	MinimumQuantity int             `json:"minimum_quantity"`
	EveryQuantity   int             `json:"every_quantity"`
	GetNumber       int             `json:"get_number"`
}

// Validate validates DiscountRule
func (r DiscountRule) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Type,
			validation.In(DiscountTypePercentage, DiscountTypeFixed).Error("discountType must be 'amount' or 'percentage'"),
		),
		validation.Field(&r.Amount, validation.By(func(interface{}) error {
			if r.Amount.IsNegative() {
				return errors.New("discountAmount must be >= 0")
			}
			if r.Type == DiscountTypePercentage && r.Amount.GreaterThan(decimal.NewFromInt(100)) {
				return errors.New("percentage discount cannot exceed 100")
			}
			return nil
		})),
		validation.Field(&r.MinimumSpend, validation.By(func(interface{}) error {
			if r.MinimumSpend.IsNegative() {
				return errors.New("minimumSpend must be >= 0")
			}
			return nil
		})),
		validation.Field(&r.MinimumQuantity, validation.Min(0)),
		validation.Field(&r.EveryQuantity, validation.Min(0)),
		validation.Field(&r.GetNumber, validation.Min(0)),
	)
}

// Promotion is a validated promotion definition. Build it with
// NewPromotion or FromPayload; the engine assumes Validate has passed.
type Promotion struct {
	ID    uuid.UUID `json:"id"`
	Label string    `json:"label"` // display only, never interpreted
	Name  string    `json:"name"`
	Codes []string  `json:"codes"`

	// Usage limits (enforced by the service, not the engine)
	UsageLimit              UsageLimit `json:"usage_limit"`
	TotalRedemptionLimit    int        `json:"total_redemption_limit"` // 0 = unlimited
	VoucherLimitPerCustomer int        `json:"voucher_limit_per_customer"`

	Status       PromotionStatus    `json:"status"`
	AvailableOn  string             `json:"available_on,omitempty"`
	Availability AvailabilityWindow `json:"availability"`
	Channels     []order.Channel    `json:"channels"`

	Kind   PromoKind     `json:"promo_kind"`
	Rule   DiscountRule  `json:"rule"`
	Scope1 ScopeSelector `json:"scope1"`
	Scope2 ScopeSelector `json:"scope2"`

	Version   int       `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewPromotion validates p and returns a copy with normalized codes
func NewPromotion(p Promotion) (*Promotion, error) {
	p.Codes = NormalizeCodes(p.Codes)
	if p.Status == "" {
		p.Status = PromotionStatusActive
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Validate validates Promotion
func (p Promotion) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Name,
			validation.Required.Error("promotionName is required"),
			validation.Length(1, 200),
		),
		validation.Field(&p.Codes,
			validation.Required.Error("at least one promotionCode is required"),
			validation.Each(
				validation.Length(3, 50).Error("each code must be 3-50 characters"),
				validation.Match(codePattern).Error("codes may only contain letters, digits, '-' and '_'"),
			),
		),
		validation.Field(&p.UsageLimit,
			validation.Required,
			validation.By(func(interface{}) error {
				if p.UsageLimit != UsageLimitOne && p.UsageLimit != UsageLimitMultiple {
					return ErrInvalidUsageLimit
				}
				return nil
			}),
		),
		validation.Field(&p.TotalRedemptionLimit, validation.Min(0)),
		validation.Field(&p.VoucherLimitPerCustomer, validation.Min(0)),
		validation.Field(&p.Status,
			validation.Required,
			validation.In(PromotionStatusActive, PromotionStatusInactive),
		),
		validation.Field(&p.Availability),
		validation.Field(&p.Channels,
			validation.Required.Error("at least one channel is required"),
			validation.By(validateChannels),
		),
		validation.Field(&p.Kind,
			validation.Required,
			validation.By(func(interface{}) error {
				if !p.Kind.IsValid() {
					return ErrInvalidPromoKind
				}
				return nil
			}),
		),
		validation.Field(&p.Rule, validation.By(func(interface{}) error {
			switch p.Kind {
			case PromoKindFreeItem:
				if p.Rule.GetNumber < 1 {
					return errors.New("getNumber must be >= 1 for free item promotions")
				}
			case PromoKindDiscount, PromoKindDeliveryOverride:
				if p.Rule.Type == "" {
					return errors.New("discountType is required")
				}
			}
			return nil
		})),
		validation.Field(&p.Scope1, validation.By(func(interface{}) error {
			if !p.Scope1.IsSet() {
				return errors.New("itemCategory1 is required")
			}
			return nil
		})),
		validation.Field(&p.Scope2),
	)
}

func validateChannels(value interface{}) error {
	channels, _ := value.([]order.Channel)
	seen := make(map[order.Channel]bool, len(channels))
	for _, c := range channels {
		if !c.IsValid() {
			return order.ErrUnknownChannel
		}
		if seen[c] {
			return errors.New("duplicate channel")
		}
		seen[c] = true
	}
	return nil
}

// HasChannel reports whether the promotion is offered on c
func (p *Promotion) HasChannel(c order.Channel) bool {
	for _, ch := range p.Channels {
		if ch == c {
			return true
		}
	}
	return false
}

// HasCode reports whether code redeems this promotion (case-insensitive)
func (p *Promotion) HasCode(code string) bool {
	code = strings.ToUpper(strings.TrimSpace(code))
	for _, c := range p.Codes {
		if c == code {
			return true
		}
	}
	return false
}

// IsActive reports the admin switch only; dates are checked by the engine
func (p *Promotion) IsActive() bool {
	return p.Status == PromotionStatusActive
}

// PerCustomerLimit returns how many times one customer may redeem, 0 = no cap
func (p *Promotion) PerCustomerLimit() int {
	if p.UsageLimit == UsageLimitOne {
		return 1
	}
	return p.VoucherLimitPerCustomer
}

// NormalizeCodes uppercases, trims and drops blank codes
func NormalizeCodes(codes []string) []string {
	var out []string
	for _, c := range codes {
		c = strings.ToUpper(strings.TrimSpace(c))
		if c != "" {
			out = append(out, c)
		}
	}
	return out
}

// SplitCodes splits the comma separated promotionCode field
func SplitCodes(s string) []string {
	return NormalizeCodes(strings.Split(s, ","))
}
