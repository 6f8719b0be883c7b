// Package auth holds the capability object handlers consult before acting.
// How the caller was authenticated is not this package's concern; the JWT
// middleware builds a Principal from verified claims.
package auth

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

// RoleAdmin bypasses the permission tree
const RoleAdmin = "admin"

// Modules and actions checked by the routes
const (
	ModulePromotion = "promotion"
	ModuleOrder     = "order"

	ActionView   = "view"
	ActionCreate = "create"
	ActionEdit   = "edit"
	ActionDelete = "delete"
)

// Permissions is the JSON permission tree {module: {action: allowed}}
type Permissions map[string]map[string]bool

// Principal is the authenticated caller
type Principal struct {
	UserID      uuid.UUID   `json:"user_id"`
	Role        string      `json:"role"`
	Permissions Permissions `json:"permissions"`
}

// IsAdmin compares the role case-insensitively
func (p *Principal) IsAdmin() bool {
	return p != nil && strings.EqualFold(strings.TrimSpace(p.Role), RoleAdmin)
}

// Can reports whether the principal may perform action on module.
// Admins may do everything; others need an explicit true in the tree.
func (p *Principal) Can(module, action string) bool {
	if p == nil {
		return false
	}
	if p.IsAdmin() {
		return true
	}
	actions, ok := p.Permissions[module]
	if !ok {
		return false
	}
	return actions[action]
}

type principalKey struct{}

// WithPrincipal returns a copy of ctx carrying p
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// FromContext returns the principal stored by WithPrincipal, or nil
func FromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalKey{}).(*Principal)
	return p
}
