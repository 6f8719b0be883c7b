package engine

import (
	"sort"

	"github.com/shopspring/decimal"

	order "restaurant-backoffice/internal/domains/order/model"
	"restaurant-backoffice/internal/domains/promotion/model"
)

var hundred = decimal.NewFromInt(100)

// DiscountCalculator turns a qualifying order into a discount
type DiscountCalculator struct{}

// NewDiscountCalculator creates a calculator
func NewDiscountCalculator() *DiscountCalculator {
	return &DiscountCalculator{}
}

// Units returns how many discount units scope-1 earns.
// Without everyQuantity the whole scope is one unit.
func (c *DiscountCalculator) Units(rule model.DiscountRule, scope1 Matched) int {
	if rule.EveryQuantity <= 0 {
		return 1
	}
	return scope1.Quantity / rule.EveryQuantity
}

// Calculate computes the result of an applicable promotion.
// Thresholds must already have been checked.
//
// Business logic:
//  1. discount: percentage or fixed on the scope-1 subtotal; with
//     everyQuantity, once per complete group, capped at the subtotal
//  2. freeItem: the cheapest scope-2 units become free
//  3. deliveryOverride: percentage or fixed on the delivery fee
//  4. minimumOrderOverride: no money off, waives the outlet minimum
//
// Amounts are rounded to 2 decimal places.
func (c *DiscountCalculator) Calculate(p *model.Promotion, o *order.Order, scope1, scope2 Matched) model.PromotionResult {
	res := model.PromotionResult{
		Applicable:     true,
		DiscountAmount: decimal.Zero,
		FreeItemIDs:    []string{},
	}

	switch p.Kind {
	case model.PromoKindMinimumOrderOverride:
		res.WaivesMinimumOrder = true

	case model.PromoKindDeliveryOverride:
		res.DiscountAmount = c.apply(p.Rule, o.DeliveryFee)
		res.DiscountUnits = 1

	case model.PromoKindFreeItem:
		count := p.Rule.GetNumber
		if p.Rule.EveryQuantity > 0 {
			count = c.Units(p.Rule, scope1) * p.Rule.GetNumber
		}
		pool := scope2
		if !p.Scope2.IsSet() {
			pool = scope1
		}
		for _, pk := range cheapestUnits(pool.Items, count) {
			for i := 0; i < pk.qty; i++ {
				res.FreeItemIDs = append(res.FreeItemIDs, pk.itemID)
			}
			res.DiscountAmount = res.DiscountAmount.Add(pk.total())
			res.DiscountUnits += pk.qty
		}

	default:
		units := c.Units(p.Rule, scope1)
		res.DiscountUnits = units
		if p.Rule.EveryQuantity <= 0 {
			res.DiscountAmount = c.apply(p.Rule, scope1.Subtotal)
			break
		}
		res.DiscountAmount = c.repeating(p.Rule, scope1, units)
	}

	res.DiscountAmount = res.DiscountAmount.Round(2)
	return res
}

// apply computes a single percentage or fixed discount on base,
// never negative and never above base.
func (c *DiscountCalculator) apply(rule model.DiscountRule, base decimal.Decimal) decimal.Decimal {
	if !base.IsPositive() {
		return decimal.Zero
	}

	var discount decimal.Decimal
	switch rule.Type {
	case model.DiscountTypePercentage:
		discount = base.Mul(rule.Amount).Div(hundred)
	case model.DiscountTypeFixed:
		discount = rule.Amount
	default:
		return decimal.Zero
	}
	return clamp(discount, base)
}

// repeating applies the rule once per earned unit. A percentage unit is
// priced at the cheapest qualifying item still available.
func (c *DiscountCalculator) repeating(rule model.DiscountRule, scope1 Matched, units int) decimal.Decimal {
	var discount decimal.Decimal
	switch rule.Type {
	case model.DiscountTypeFixed:
		discount = rule.Amount.Mul(decimal.NewFromInt(int64(units)))
	case model.DiscountTypePercentage:
		base := decimal.Zero
		for _, pk := range cheapestUnits(scope1.Items, units) {
			base = base.Add(pk.total())
		}
		discount = base.Mul(rule.Amount).Div(hundred)
	default:
		return decimal.Zero
	}
	return clamp(discount, scope1.Subtotal)
}

func clamp(discount, ceiling decimal.Decimal) decimal.Decimal {
	if discount.IsNegative() {
		return decimal.Zero
	}
	if discount.GreaterThan(ceiling) {
		return ceiling
	}
	return discount
}

// pick is a run of identical units taken from one line item
type pick struct {
	itemID string
	price  decimal.Decimal
	qty    int
}

func (p pick) total() decimal.Decimal {
	return p.price.Mul(decimal.NewFromInt(int64(p.qty)))
}

// cheapestUnits returns the n cheapest units, ordered by ascending price
// then lowest item id, grouped per line item.
func cheapestUnits(items []order.LineItem, n int) []pick {
	if n <= 0 {
		return nil
	}
	sorted := make([]order.LineItem, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		if cmp := sorted[i].UnitPrice.Cmp(sorted[j].UnitPrice); cmp != 0 {
			return cmp < 0
		}
		return sorted[i].ItemID < sorted[j].ItemID
	})

	var picks []pick
	for _, li := range sorted {
		if n == 0 {
			break
		}
		if li.Quantity <= 0 {
			continue
		}
		take := min(li.Quantity, n)
		picks = append(picks, pick{itemID: li.ItemID, price: li.UnitPrice, qty: take})
		n -= take
	}
	return picks
}
