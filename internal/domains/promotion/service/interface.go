package service

import (
	"context"

	"github.com/google/uuid"

	"restaurant-backoffice/internal/domains/promotion/model"
)

type ServiceInterface interface {
	// Admin
	CreatePromotion(ctx context.Context, payload model.PromotionPayload) (*model.Promotion, error)
	UpdatePromotion(ctx context.Context, id uuid.UUID, req *model.UpdatePromotionRequest) (*model.Promotion, error)
	GetPromotion(ctx context.Context, id uuid.UUID) (*model.Promotion, error)
	ListPromotions(ctx context.Context, filter *model.ListPromotionsFilter) ([]*model.PromotionListItem, int, error)
	UpdatePromotionStatus(ctx context.Context, id uuid.UUID, status model.PromotionStatus) error
	DeletePromotion(ctx context.Context, id uuid.UUID) error

	// Checkout
	Evaluate(ctx context.Context, req *model.EvaluateRequest) (*model.EvaluateResponse, error)
	RecordRedemption(ctx context.Context, req *model.RecordRedemptionRequest) (*model.PromotionRedemption, error)

	// Jobs
	DeactivateExpired(ctx context.Context) (int, error)
}
