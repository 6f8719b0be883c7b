package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	order "restaurant-backoffice/internal/domains/order/model"
	"restaurant-backoffice/internal/domains/promotion/model"
)

// PromotionRepository is the promotion data access contract.
// Methods taking a pgx.Tx run on the pool when tx is nil.
type PromotionRepository interface {
	// Read operations
	FindByID(ctx context.Context, id uuid.UUID) (*model.Promotion, error)
	FindByCode(ctx context.Context, code string) (*model.Promotion, error)
	List(ctx context.Context, filter *model.ListPromotionsFilter, today model.Date) ([]*model.PromotionListItem, int, error)
	CodesInUse(ctx context.Context, codes []string, excludeID *uuid.UUID) ([]string, error)
	FindActive(ctx context.Context, channel order.Channel, today model.Date) ([]*model.Promotion, error)

	// Write operations
	FindForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Promotion, error)
	Create(ctx context.Context, tx pgx.Tx, promo *model.Promotion) error
	Update(ctx context.Context, tx pgx.Tx, promo *model.Promotion) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.PromotionStatus) error
	Delete(ctx context.Context, id uuid.UUID) error
	DeactivateExpired(ctx context.Context, today model.Date) ([]uuid.UUID, error)
	Invalidate(ctx context.Context, id uuid.UUID)

	// Redemptions
	LockForRedemption(ctx context.Context, tx pgx.Tx, id uuid.UUID) error
	CountRedemptions(ctx context.Context, tx pgx.Tx, promoID uuid.UUID, customerID *uuid.UUID) (model.RedemptionCounts, error)
	CreateRedemption(ctx context.Context, tx pgx.Tx, r *model.PromotionRedemption) error
}
