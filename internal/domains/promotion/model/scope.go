package model

import (
	"errors"
	"fmt"
	"strings"
)

// ScopeKind discriminates what a scope slot selects
type ScopeKind string

const (
	ScopeNone     ScopeKind = ""
	ScopeTotal    ScopeKind = "total"
	ScopeCategory ScopeKind = "category"
	ScopeItem     ScopeKind = "item"
)

func (k ScopeKind) IsValid() bool {
	switch k {
	case ScopeTotal, ScopeCategory, ScopeItem:
		return true
	}
	return false
}

// ParseScopeKind accepts the canonical kinds and the labels the admin
// form has historically sent ("Total Order", "Categories", "Items").
func ParseScopeKind(s string) (ScopeKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return ScopeNone, nil
	case "total", "total order", "total_order", "order":
		return ScopeTotal, nil
	case "category", "categories":
		return ScopeCategory, nil
	case "item", "items":
		return ScopeItem, nil
	}
	return ScopeNone, fmt.Errorf("%w: %q", ErrInvalidScope, s)
}

// ScopeSelector is one scope slot: the whole order, a set of categories,
// or a set of items.
type ScopeSelector struct {
	Kind ScopeKind `json:"kind"`
	IDs  []string  `json:"ids,omitempty"`
}

// TotalScope selects every line item
func TotalScope() ScopeSelector {
	return ScopeSelector{Kind: ScopeTotal}
}

// CategoryScope selects line items in any of ids
func CategoryScope(ids ...string) ScopeSelector {
	return ScopeSelector{Kind: ScopeCategory, IDs: ids}
}

// ItemScope selects line items whose item id is in ids
func ItemScope(ids ...string) ScopeSelector {
	return ScopeSelector{Kind: ScopeItem, IDs: ids}
}

// IsSet reports whether the slot is configured
func (s ScopeSelector) IsSet() bool {
	return s.Kind != ScopeNone
}

// Validate validates ScopeSelector
func (s ScopeSelector) Validate() error {
	if !s.IsSet() {
		return nil
	}
	if !s.Kind.IsValid() {
		return ErrInvalidScope
	}
	if s.Kind == ScopeTotal {
		if len(s.IDs) > 0 {
			return errors.New("total scope takes no ids")
		}
		return nil
	}
	if len(s.IDs) == 0 {
		return fmt.Errorf("%s scope needs at least one id", s.Kind)
	}
	for _, id := range s.IDs {
		if strings.TrimSpace(id) == "" {
			return errors.New("scope ids must not be blank")
		}
	}
	return nil
}
