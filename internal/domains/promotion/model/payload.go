package model

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	order "restaurant-backoffice/internal/domains/order/model"
)

// Wire values of discountType
const (
	wireDiscountAmount     = "amount"
	wireDiscountPercentage = "percentage"
)

// DayTimePayload is one entry of customDayTime
type DayTimePayload struct {
	Enabled   bool   `json:"enabled"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
}

// PromotionPayload is the flattened shape the back-office form and the
// REST backend exchange. It converts to and from Promotion without loss.
type PromotionPayload struct {
	ID                      string                    `json:"id,omitempty"`
	Status                  string                    `json:"status,omitempty"`
	PromotionType           string                    `json:"promotionType"`
	PromotionName           string                    `json:"promotionName"`
	PromotionCode           string                    `json:"promotionCode"`
	UsageLimit              string                    `json:"usageLimit"`
	TotalRedemptionLimit    int                       `json:"totalRedemptionLimit"`
	AvailableOn             string                    `json:"availableOn"`
	VoucherLimitPerCustomer int                       `json:"voucherLimitPerCustomer"`
	StoreStartDate          string                    `json:"storeStartDate"`
	StoreEndDate            string                    `json:"storeEndDate"`
	CustomDayTime           map[string]DayTimePayload `json:"customDayTime"`
	ApplyToDeliveryPickup   []string                  `json:"applyToDeliveryPickup"`
	PromoType               string                    `json:"promoType"`
	DiscountAmount          decimal.Decimal           `json:"discountAmount"`
	DiscountType            string                    `json:"discountType"`
	GetNumber               int                       `json:"getNumber"`
	MinimumSpend            decimal.Decimal           `json:"minimumSpend"`
	MinimumQuantity         int                       `json:"minimumQuantity"`
	EveryQuantity           int                       `json:"everyQuantity"`
	ItemCategory1           string                    `json:"itemCategory1"`
	ItemCategory2           string                    `json:"itemCategory2"`
	ItemCategoryID1         []string                  `json:"itemCategoryID1"`
	ItemCategoryID2         []string                  `json:"itemCategoryID2"`
}

// FromPayload parses and validates a payload
func FromPayload(pl PromotionPayload) (*Promotion, error) {
	p, err := pl.toPromotion()
	if err != nil {
		return nil, err
	}
	return NewPromotion(*p)
}

// toPromotion parses without running domain validation
func (pl PromotionPayload) toPromotion() (*Promotion, error) {
	p := &Promotion{
		Label:                   pl.PromotionType,
		Name:                    strings.TrimSpace(pl.PromotionName),
		Codes:                   SplitCodes(pl.PromotionCode),
		UsageLimit:              UsageLimit(strings.ToLower(pl.UsageLimit)),
		TotalRedemptionLimit:    pl.TotalRedemptionLimit,
		VoucherLimitPerCustomer: pl.VoucherLimitPerCustomer,
		Status:                  PromotionStatus(strings.ToLower(pl.Status)),
		AvailableOn:             pl.AvailableOn,
		Kind:                    PromoKind(pl.PromoType),
	}

	if pl.ID != "" {
		id, err := uuid.Parse(pl.ID)
		if err != nil {
			return nil, fmt.Errorf("%w: id: %v", ErrInvalidPayload, err)
		}
		p.ID = id
	}

	var err error
	if p.Availability, err = parseAvailability(pl); err != nil {
		return nil, err
	}

	for _, raw := range pl.ApplyToDeliveryPickup {
		ch, err := order.ParseChannel(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: applyToDeliveryPickup: %v", ErrInvalidPayload, err)
		}
		p.Channels = append(p.Channels, ch)
	}

	switch strings.ToLower(pl.DiscountType) {
	case wireDiscountAmount, string(DiscountTypeFixed):
		p.Rule.Type = DiscountTypeFixed
	case wireDiscountPercentage:
		p.Rule.Type = DiscountTypePercentage
	case "":
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidDiscountType, pl.DiscountType)
	}
	p.Rule.Amount = pl.DiscountAmount
	p.Rule.MinimumSpend = pl.MinimumSpend
	p.Rule.MinimumQuantity = pl.MinimumQuantity
	p.Rule.EveryQuantity = pl.EveryQuantity
	p.Rule.GetNumber = pl.GetNumber

	if p.Scope1, err = parseScope(pl.ItemCategory1, pl.ItemCategoryID1); err != nil {
		return nil, fmt.Errorf("itemCategory1: %w", err)
	}
	if p.Scope2, err = parseScope(pl.ItemCategory2, pl.ItemCategoryID2); err != nil {
		return nil, fmt.Errorf("itemCategory2: %w", err)
	}

	return p, nil
}

func parseAvailability(pl PromotionPayload) (AvailabilityWindow, error) {
	var w AvailabilityWindow
	var err error

	if pl.StoreStartDate != "" {
		if w.StartDate, err = ParseDate(pl.StoreStartDate); err != nil {
			return w, fmt.Errorf("%w: storeStartDate: %v", ErrInvalidPayload, err)
		}
	}
	if pl.StoreEndDate != "" {
		if w.EndDate, err = ParseDate(pl.StoreEndDate); err != nil {
			return w, fmt.Errorf("%w: storeEndDate: %v", ErrInvalidPayload, err)
		}
	}

	for _, wd := range Weekdays {
		w.Days[wd] = DayWindow{Start: NoTime, End: NoTime}
	}
	for key, dt := range pl.CustomDayTime {
		wd, ok := ParseWeekday(strings.ToLower(key))
		if !ok {
			return w, fmt.Errorf("%w: customDayTime: unknown day %q", ErrInvalidPayload, key)
		}
		start, err := ParseTimeOfDay(dt.StartTime)
		if err != nil {
			return w, fmt.Errorf("%w: customDayTime.%s: %v", ErrInvalidPayload, key, err)
		}
		end, err := ParseTimeOfDay(dt.EndTime)
		if err != nil {
			return w, fmt.Errorf("%w: customDayTime.%s: %v", ErrInvalidPayload, key, err)
		}
		w.Days[wd] = DayWindow{Enabled: dt.Enabled, Start: start, End: end}
	}
	return w, nil
}

func parseScope(kind string, ids []string) (ScopeSelector, error) {
	k, err := ParseScopeKind(kind)
	if err != nil {
		return ScopeSelector{}, err
	}
	sel := ScopeSelector{Kind: k}
	if len(ids) > 0 {
		sel.IDs = append([]string(nil), ids...)
	}
	return sel, nil
}

// ToPayload flattens p back to the wire shape
func (p *Promotion) ToPayload() PromotionPayload {
	pl := PromotionPayload{
		Status:                  string(p.Status),
		PromotionType:           p.Label,
		PromotionName:           p.Name,
		PromotionCode:           strings.Join(p.Codes, ","),
		UsageLimit:              string(p.UsageLimit),
		TotalRedemptionLimit:    p.TotalRedemptionLimit,
		AvailableOn:             p.AvailableOn,
		VoucherLimitPerCustomer: p.VoucherLimitPerCustomer,
		StoreStartDate:          p.Availability.StartDate.String(),
		StoreEndDate:            p.Availability.EndDate.String(),
		CustomDayTime:           make(map[string]DayTimePayload, len(Weekdays)),
		ApplyToDeliveryPickup:   make([]string, 0, len(p.Channels)),
		PromoType:               string(p.Kind),
		DiscountAmount:          p.Rule.Amount,
		GetNumber:               p.Rule.GetNumber,
		MinimumSpend:            p.Rule.MinimumSpend,
		MinimumQuantity:         p.Rule.MinimumQuantity,
		EveryQuantity:           p.Rule.EveryQuantity,
		ItemCategory1:           string(p.Scope1.Kind),
		ItemCategory2:           string(p.Scope2.Kind),
		ItemCategoryID1:         append([]string{}, p.Scope1.IDs...),
		ItemCategoryID2:         append([]string{}, p.Scope2.IDs...),
	}

	if p.ID != uuid.Nil {
		pl.ID = p.ID.String()
	}

	switch p.Rule.Type {
	case DiscountTypeFixed:
		pl.DiscountType = wireDiscountAmount
	case DiscountTypePercentage:
		pl.DiscountType = wireDiscountPercentage
	}

	for _, wd := range Weekdays {
		d := p.Availability.Days[wd]
		pl.CustomDayTime[wd.Key()] = DayTimePayload{
			Enabled:   d.Enabled,
			StartTime: d.Start.String(),
			EndTime:   d.End.String(),
		}
	}

	for _, ch := range p.Channels {
		pl.ApplyToDeliveryPickup = append(pl.ApplyToDeliveryPickup, string(ch))
	}

	return pl
}
