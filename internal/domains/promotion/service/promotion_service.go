package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	order "restaurant-backoffice/internal/domains/order/model"
	"restaurant-backoffice/internal/domains/promotion/engine"
	"restaurant-backoffice/internal/domains/promotion/model"
	"restaurant-backoffice/internal/domains/promotion/repository"
	"restaurant-backoffice/pkg/database"
	"restaurant-backoffice/pkg/logger"
)

type promotionService struct {
	repo   repository.PromotionRepository
	engine *engine.Engine
	tx     database.TxManager
	loc    *time.Location
	now    func() time.Time
}

// NewPromotionService creates the service. loc is the outlet time zone
// used for availability windows.
func NewPromotionService(
	repo repository.PromotionRepository,
	tx database.TxManager,
	loc *time.Location,
) ServiceInterface {
	if loc == nil {
		loc = time.UTC
	}
	return &promotionService{
		repo:   repo,
		engine: engine.NewEngine(),
		tx:     tx,
		loc:    loc,
		now:    time.Now,
	}
}

// -------------------------------------------------------------------
// ADMIN
// -------------------------------------------------------------------

// CreatePromotion validates the payload and stores it under a new id
func (s *promotionService) CreatePromotion(ctx context.Context, payload model.PromotionPayload) (*model.Promotion, error) {
	// 1. Parse and validate
	p, err := model.FromPayload(payload)
	if err != nil {
		return nil, model.NewValidationError(err)
	}
	p.ID = uuid.New()

	// 2. Codes must be unique across promotions
	if err := s.ensureCodesFree(ctx, p.Codes, nil); err != nil {
		return nil, err
	}

	// 3. Insert promotion and codes together
	err = s.tx.WithTransaction(ctx, func(tx pgx.Tx) error {
		return s.repo.Create(ctx, tx, p)
	})
	if err != nil {
		return nil, fmt.Errorf("create promotion: %w", err)
	}

	logger.Info("promotion created", map[string]interface{}{
		"promotion_id": p.ID,
		"kind":         p.Kind,
		"codes":        p.Codes,
	})
	return p, nil
}

// UpdatePromotion replaces every field of an existing promotion.
// The version check reads the row under lock, never the cache.
func (s *promotionService) UpdatePromotion(
	ctx context.Context,
	id uuid.UUID,
	req *model.UpdatePromotionRequest,
) (*model.Promotion, error) {
	// 1. Parse and validate
	p, err := model.FromPayload(req.PromotionPayload)
	if err != nil {
		return nil, model.NewValidationError(err)
	}
	p.ID = id

	// 2. Codes must stay unique
	if err := s.ensureCodesFree(ctx, p.Codes, &id); err != nil {
		return nil, err
	}

	// 3. Version check and write against the locked row
	err = s.tx.WithTransaction(ctx, func(tx pgx.Tx) error {
		existing, err := s.repo.FindForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if req.Version != 0 && req.Version != existing.Version {
			return model.ErrUpdateConflict
		}
		p.CreatedAt = existing.CreatedAt
		p.Version = existing.Version
		return s.repo.Update(ctx, tx, p)
	})
	if err != nil {
		return nil, fmt.Errorf("update promotion: %w", err)
	}

	// 4. Only committed state may be re-cached
	s.repo.Invalidate(ctx, id)

	logger.Info("promotion updated", map[string]interface{}{
		"promotion_id": p.ID,
		"version":      p.Version,
	})
	return p, nil
}

func (s *promotionService) GetPromotion(ctx context.Context, id uuid.UUID) (*model.Promotion, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *promotionService) ListPromotions(
	ctx context.Context,
	filter *model.ListPromotionsFilter,
) ([]*model.PromotionListItem, int, error) {
	if err := filter.Validate(); err != nil {
		return nil, 0, model.NewValidationError(err)
	}
	return s.repo.List(ctx, filter, s.today())
}

func (s *promotionService) UpdatePromotionStatus(ctx context.Context, id uuid.UUID, status model.PromotionStatus) error {
	if status != model.PromotionStatusActive && status != model.PromotionStatusInactive {
		return model.NewValidationError(model.ErrInvalidStatus)
	}
	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		return err
	}

	logger.Info("promotion status changed", map[string]interface{}{
		"promotion_id": id,
		"status":       status,
	})
	return nil
}

// DeletePromotion deletes a promotion nobody has redeemed yet
func (s *promotionService) DeletePromotion(ctx context.Context, id uuid.UUID) error {
	counts, err := s.repo.CountRedemptions(ctx, nil, id, nil)
	if err != nil {
		return err
	}
	if counts.Total > 0 {
		return model.ErrCannotDeleteUsed
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	logger.Info("promotion deleted", map[string]interface{}{"promotion_id": id})
	return nil
}

// -------------------------------------------------------------------
// CHECKOUT
// -------------------------------------------------------------------

// Evaluate runs the engine on a stored promotion and then applies the
// persisted redemption limits. Without an id or code it evaluates every
// active promotion for the order's channel and returns the best one.
func (s *promotionService) Evaluate(ctx context.Context, req *model.EvaluateRequest) (*model.EvaluateResponse, error) {
	req.NormalizeCode()
	if err := req.Validate(); err != nil {
		return nil, model.NewValidationError(err)
	}

	// 1. Build the order
	o, err := req.Order.ToOrder()
	if err != nil {
		return nil, model.NewValidationError(err)
	}

	now := s.now()
	if req.At != nil {
		now = *req.At
	}
	now = now.In(s.loc)

	if req.PromotionID == "" && req.Code == "" {
		return s.evaluateBest(ctx, o, now)
	}

	// 2. Load the promotion
	p, err := s.lookup(ctx, req)
	if err != nil {
		return nil, err
	}

	// 3. Rules, then limits
	res := s.engine.Evaluate(p, o, now)
	if res.Applicable {
		if res, err = s.applyLimits(ctx, p, o, res); err != nil {
			return nil, err
		}
	}

	return s.respond(p, o, res), nil
}

// evaluateBest picks the applicable active promotion with the largest
// discount, skipping any whose redemption limits are used up.
func (s *promotionService) evaluateBest(ctx context.Context, o *order.Order, now time.Time) (*model.EvaluateResponse, error) {
	candidates, err := s.repo.FindActive(ctx, o.Channel, model.DateOf(now))
	if err != nil {
		return nil, err
	}

	for len(candidates) > 0 {
		best, ok := s.engine.Best(candidates, o, now)
		if !ok {
			break
		}
		res, err := s.applyLimits(ctx, best.Promotion, o, best.Result)
		if err != nil {
			return nil, err
		}
		if res.Applicable {
			return s.respond(best.Promotion, o, res), nil
		}
		candidates = without(candidates, best.Promotion.ID)
	}

	logger.Info("no applicable promotion", map[string]interface{}{
		"channel": o.Channel,
	})
	return s.respond(nil, o, model.Ineligible(model.ReasonNoneApplicable)), nil
}

// applyLimits turns an applicable result into an ineligible one when the
// persisted redemption counters are exhausted.
func (s *promotionService) applyLimits(
	ctx context.Context,
	p *model.Promotion,
	o *order.Order,
	res model.PromotionResult,
) (model.PromotionResult, error) {
	if !hasLimits(p, o.CustomerID != nil) {
		return res, nil
	}
	counts, err := s.repo.CountRedemptions(ctx, nil, p.ID, o.CustomerID)
	if err != nil {
		return res, err
	}
	if reason := p.CheckLimits(counts, o.CustomerID != nil); reason != model.ReasonNone {
		return model.Ineligible(reason), nil
	}
	return res, nil
}

func (s *promotionService) respond(p *model.Promotion, o *order.Order, res model.PromotionResult) *model.EvaluateResponse {
	final := o.ItemsSubtotal().Add(o.DeliveryFee).Sub(res.DiscountAmount)
	if final.IsNegative() {
		final = decimal.Zero
	}

	resp := &model.EvaluateResponse{
		Result:      res,
		FinalAmount: final.Round(2),
	}
	if p == nil {
		return resp
	}
	resp.PromotionID = p.ID
	resp.Name = p.Name
	resp.Kind = p.Kind

	logger.Info("promotion evaluated", map[string]interface{}{
		"promotion_id": p.ID,
		"channel":      o.Channel,
		"applicable":   res.Applicable,
		"reason":       res.Reason,
		"discount":     res.DiscountAmount.StringFixed(2),
	})
	return resp
}

func without(promos []*model.Promotion, id uuid.UUID) []*model.Promotion {
	out := make([]*model.Promotion, 0, len(promos))
	for _, p := range promos {
		if p.ID != id {
			out = append(out, p)
		}
	}
	return out
}

func (s *promotionService) lookup(ctx context.Context, req *model.EvaluateRequest) (*model.Promotion, error) {
	if req.PromotionID != "" {
		id, err := uuid.Parse(req.PromotionID)
		if err != nil {
			return nil, model.NewValidationError(err)
		}
		return s.repo.FindByID(ctx, id)
	}
	return s.repo.FindByCode(ctx, req.Code)
}

func hasLimits(p *model.Promotion, hasCustomer bool) bool {
	return p.TotalRedemptionLimit > 0 || (hasCustomer && p.PerCustomerLimit() > 0)
}

// RecordRedemption stores a redemption after re-checking the limits under
// a row lock on the promotion.
func (s *promotionService) RecordRedemption(
	ctx context.Context,
	req *model.RecordRedemptionRequest,
) (*model.PromotionRedemption, error) {
	if err := req.Validate(); err != nil {
		return nil, model.NewValidationError(err)
	}

	promoID := uuid.MustParse(req.PromotionID)
	red := &model.PromotionRedemption{
		ID:             uuid.New(),
		PromotionID:    promoID,
		OrderID:        uuid.MustParse(req.OrderID),
		DiscountAmount: req.DiscountAmount.Round(2),
	}
	if req.CustomerID != "" {
		cid := uuid.MustParse(req.CustomerID)
		red.CustomerID = &cid
	}

	p, err := s.repo.FindByID(ctx, promoID)
	if err != nil {
		return nil, err
	}
	if req.Code != "" {
		if !p.HasCode(req.Code) {
			return nil, model.NewValidationError(errors.New("code does not belong to this promotion"))
		}
		red.Code = model.NormalizeCodes([]string{req.Code})[0]
	}

	err = s.tx.WithTransaction(ctx, func(tx pgx.Tx) error {
		// 1. Serialize redemptions of this promotion
		if err := s.repo.LockForRedemption(ctx, tx, promoID); err != nil {
			return err
		}

		// 2. Limits against committed redemptions
		counts, err := s.repo.CountRedemptions(ctx, tx, promoID, red.CustomerID)
		if err != nil {
			return err
		}
		if reason := p.CheckLimits(counts, red.CustomerID != nil); reason != model.ReasonNone {
			return model.NewLimitError(reason)
		}

		// 3. Insert
		return s.repo.CreateRedemption(ctx, tx, red)
	})
	if err != nil {
		return nil, err
	}

	logger.Info("promotion redeemed", map[string]interface{}{
		"promotion_id": promoID,
		"order_id":     red.OrderID,
		"discount":     red.DiscountAmount.StringFixed(2),
	})
	return red, nil
}

// -------------------------------------------------------------------
// JOBS
// -------------------------------------------------------------------

// DeactivateExpired switches off promotions whose end date has passed
func (s *promotionService) DeactivateExpired(ctx context.Context) (int, error) {
	ids, err := s.repo.DeactivateExpired(ctx, s.today())
	if err != nil {
		return 0, err
	}

	if len(ids) > 0 {
		logger.Info("expired promotions deactivated", map[string]interface{}{
			"count": len(ids),
			"ids":   ids,
		})
	}
	return len(ids), nil
}

// -------------------------------------------------------------------
// HELPERS
// -------------------------------------------------------------------

func (s *promotionService) today() model.Date {
	return model.DateOf(s.now().In(s.loc))
}

func (s *promotionService) ensureCodesFree(ctx context.Context, codes []string, exclude *uuid.UUID) error {
	taken, err := s.repo.CodesInUse(ctx, codes, exclude)
	if err != nil {
		return err
	}
	if len(taken) > 0 {
		return model.ErrDuplicateCode.WithDetails(map[string]interface{}{"codes": taken})
	}
	return nil
}
