// Package engine decides whether a promotion applies to an order and what
// it is worth. Every function is pure: the clock is passed in and nothing
// is read from or written to storage, so an Engine is safe for concurrent use.
package engine

import (
	"time"

	order "restaurant-backoffice/internal/domains/order/model"
	"restaurant-backoffice/internal/domains/promotion/model"
)

// Engine composes the window check, the scope matcher and the calculator
type Engine struct {
	calc *DiscountCalculator
}

// NewEngine creates an engine
func NewEngine() *Engine {
	return &Engine{calc: NewDiscountCalculator()}
}

// Evaluate answers "would p apply to o at now".
//
// Checks run in a fixed order and stop at the first failure:
// channel, admin status, availability window, scope, thresholds.
// Redemption limits are not checked here.
func (e *Engine) Evaluate(p *model.Promotion, o *order.Order, now time.Time) model.PromotionResult {
	// 1. Channel
	if !p.HasChannel(o.Channel) {
		return model.Ineligible(model.ReasonChannel)
	}

	// 2. Admin switch
	if !p.IsActive() {
		return model.Ineligible(model.ReasonInactive)
	}

	// 3. Date range and weekday slot
	if !InWindow(p.Availability, now) {
		return model.Ineligible(model.ReasonWindow)
	}

	// 4. Scope slots, resolved independently
	scope1 := MatchScope(p.Scope1, o.LineItems)
	if p.Scope1.Kind != model.ScopeTotal && scope1.Empty() {
		return model.Ineligible(model.ReasonEmptyScope)
	}
	var scope2 Matched
	if p.Scope2.IsSet() {
		scope2 = MatchScope(p.Scope2, o.LineItems)
		if p.Scope2.Kind != model.ScopeTotal && scope2.Empty() {
			return model.Ineligible(model.ReasonEmptyScope)
		}
	}

	// 5. Thresholds on scope 1
	if !e.meetsThresholds(p.Rule, scope1) {
		return model.Ineligible(model.ReasonThreshold)
	}

	// 6. Discount
	return e.calc.Calculate(p, o, scope1, scope2)
}

func (e *Engine) meetsThresholds(rule model.DiscountRule, scope1 Matched) bool {
	if rule.MinimumSpend.IsPositive() && scope1.Subtotal.LessThan(rule.MinimumSpend) {
		return false
	}
	if rule.MinimumQuantity > 0 && scope1.Quantity < rule.MinimumQuantity {
		return false
	}
	if rule.EveryQuantity > 0 && e.calc.Units(rule, scope1) == 0 {
		return false
	}
	return true
}

// Candidate pairs a promotion with its evaluation
type Candidate struct {
	Promotion *model.Promotion
	Result    model.PromotionResult
}

// Best evaluates every promotion and returns the applicable one worth the
// most. Ties keep the earlier promotion. ok is false when none applies.
func (e *Engine) Best(promos []*model.Promotion, o *order.Order, now time.Time) (best Candidate, ok bool) {
	for _, p := range promos {
		res := e.Evaluate(p, o, now)
		if !res.Applicable {
			continue
		}
		if !ok || res.DiscountAmount.GreaterThan(best.Result.DiscountAmount) {
			best = Candidate{Promotion: p, Result: res}
			ok = true
		}
	}
	return best, ok
}
