package engine

import (
	"github.com/shopspring/decimal"

	order "restaurant-backoffice/internal/domains/order/model"
	"restaurant-backoffice/internal/domains/promotion/model"
)

// Matched is the set of line items one scope slot resolved to
type Matched struct {
	Items    []order.LineItem
	Subtotal decimal.Decimal
	Quantity int
}

// Empty reports whether nothing matched
func (m Matched) Empty() bool {
	return len(m.Items) == 0
}

// MatchScope resolves sel against items.
//
//   - total    → every line item
//   - category → items whose categories intersect sel.IDs
//   - item     → items whose id is in sel.IDs
//
// An unset selector matches nothing.
func MatchScope(sel model.ScopeSelector, items []order.LineItem) Matched {
	m := Matched{Subtotal: decimal.Zero}

	var keep func(order.LineItem) bool
	switch sel.Kind {
	case model.ScopeTotal:
		keep = func(order.LineItem) bool { return true }
	case model.ScopeCategory:
		ids := toSet(sel.IDs)
		keep = func(li order.LineItem) bool {
			for _, c := range li.CategoryIDs {
				if ids[c] {
					return true
				}
			}
			return false
		}
	case model.ScopeItem:
		ids := toSet(sel.IDs)
		keep = func(li order.LineItem) bool { return ids[li.ItemID] }
	default:
		return m
	}

	for _, li := range items {
		if !keep(li) {
			continue
		}
		m.Items = append(m.Items, li)
		m.Subtotal = m.Subtotal.Add(li.Subtotal())
		m.Quantity += li.Quantity
	}
	return m
}

func toSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}
