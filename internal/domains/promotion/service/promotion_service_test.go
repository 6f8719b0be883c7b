package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	order "restaurant-backoffice/internal/domains/order/model"
	"restaurant-backoffice/internal/domains/promotion/model"
	"restaurant-backoffice/pkg/database"
)

// ---------------------------------------------------------------------------
// Fakes
// ---------------------------------------------------------------------------

type fakeTx struct {
	calls  int
	events *[]string
}

func (f *fakeTx) WithTransaction(_ context.Context, fn database.TxFunc) error {
	f.calls++
	if err := fn(nil); err != nil {
		return err
	}
	if f.events != nil {
		*f.events = append(*f.events, "commit")
	}
	return nil
}

type fakeRepo struct {
	promos      map[uuid.UUID]*model.Promotion
	redemptions []*model.PromotionRedemption
	locked      []uuid.UUID
	countErr    error

	// cached stands in for redis; FindByID serves it first
	cached map[uuid.UUID]*model.Promotion
	events []string
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{promos: map[uuid.UUID]*model.Promotion{}, cached: map[uuid.UUID]*model.Promotion{}}
}

func (r *fakeRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Promotion, error) {
	if p, ok := r.cached[id]; ok {
		cp := *p
		return &cp, nil
	}
	p, ok := r.promos[id]
	if !ok {
		return nil, model.ErrPromotionNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *fakeRepo) FindByCode(ctx context.Context, code string) (*model.Promotion, error) {
	for id, p := range r.promos {
		if p.HasCode(code) {
			return r.FindByID(ctx, id)
		}
	}
	return nil, model.ErrPromotionNotFound
}

func (r *fakeRepo) List(_ context.Context, f *model.ListPromotionsFilter, _ model.Date) ([]*model.PromotionListItem, int, error) {
	var items []*model.PromotionListItem
	for _, p := range r.promos {
		items = append(items, &model.PromotionListItem{ID: p.ID, Name: p.Name})
	}
	return items, len(items), nil
}

func (r *fakeRepo) CodesInUse(_ context.Context, codes []string, exclude *uuid.UUID) ([]string, error) {
	var taken []string
	for id, p := range r.promos {
		if exclude != nil && *exclude == id {
			continue
		}
		for _, c := range codes {
			if p.HasCode(c) {
				taken = append(taken, c)
			}
		}
	}
	return taken, nil
}

func (r *fakeRepo) FindActive(_ context.Context, channel order.Channel, today model.Date) ([]*model.Promotion, error) {
	var out []*model.Promotion
	for _, p := range r.promos {
		w := p.Availability
		if p.IsActive() && p.HasChannel(channel) && !w.StartDate.After(today) && !w.EndDate.Before(today) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *fakeRepo) Create(_ context.Context, _ pgx.Tx, p *model.Promotion) error {
	p.Version = 1
	cp := *p
	r.promos[p.ID] = &cp
	return nil
}

func (r *fakeRepo) FindForUpdate(_ context.Context, _ pgx.Tx, id uuid.UUID) (*model.Promotion, error) {
	p, ok := r.promos[id]
	if !ok {
		return nil, model.ErrPromotionNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *fakeRepo) Invalidate(_ context.Context, id uuid.UUID) {
	delete(r.cached, id)
	r.events = append(r.events, "invalidate")
}

func (r *fakeRepo) Update(_ context.Context, _ pgx.Tx, p *model.Promotion) error {
	r.events = append(r.events, "update")
	cur, ok := r.promos[p.ID]
	if !ok {
		return model.ErrPromotionNotFound
	}
	if cur.Version != p.Version {
		return model.ErrUpdateConflict
	}
	p.Version++
	cp := *p
	r.promos[p.ID] = &cp
	return nil
}

func (r *fakeRepo) UpdateStatus(_ context.Context, id uuid.UUID, status model.PromotionStatus) error {
	p, ok := r.promos[id]
	if !ok {
		return model.ErrPromotionNotFound
	}
	p.Status = status
	return nil
}

func (r *fakeRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := r.promos[id]; !ok {
		return model.ErrPromotionNotFound
	}
	delete(r.promos, id)
	return nil
}

func (r *fakeRepo) DeactivateExpired(_ context.Context, today model.Date) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	for id, p := range r.promos {
		if p.IsActive() && p.Availability.EndDate.Before(today) {
			p.Status = model.PromotionStatusInactive
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (r *fakeRepo) LockForRedemption(_ context.Context, _ pgx.Tx, id uuid.UUID) error {
	r.locked = append(r.locked, id)
	return nil
}

func (r *fakeRepo) CountRedemptions(_ context.Context, _ pgx.Tx, promoID uuid.UUID, customerID *uuid.UUID) (model.RedemptionCounts, error) {
	var c model.RedemptionCounts
	if r.countErr != nil {
		return c, r.countErr
	}
	for _, red := range r.redemptions {
		if red.PromotionID != promoID {
			continue
		}
		c.Total++
		if customerID != nil && red.CustomerID != nil && *red.CustomerID == *customerID {
			c.ForCustomer++
		}
	}
	return c, nil
}

func (r *fakeRepo) CreateRedemption(_ context.Context, _ pgx.Tx, red *model.PromotionRedemption) error {
	r.redemptions = append(r.redemptions, red)
	return nil
}

// ---------------------------------------------------------------------------
// Fixtures
// ---------------------------------------------------------------------------

var fixedNow = time.Date(2024, 3, 4, 12, 0, 0, 0, time.UTC)

func newTestService(repo *fakeRepo) (*promotionService, *fakeTx) {
	tx := &fakeTx{events: &repo.events}
	svc := NewPromotionService(repo, tx, time.UTC).(*promotionService)
	svc.now = func() time.Time { return fixedNow }
	return svc, tx
}

func payload() model.PromotionPayload {
	return model.PromotionPayload{
		PromotionType:         "Discount",
		PromotionName:         "Spring sale",
		PromotionCode:         "SPRING10",
		UsageLimit:            "multiple",
		StoreStartDate:        "2024-03-01",
		StoreEndDate:          "2024-03-31",
		ApplyToDeliveryPickup: []string{"delivery", "pickup"},
		PromoType:             "discount",
		DiscountType:          "percentage",
		DiscountAmount:        decimal.NewFromInt(10),
		ItemCategory1:         "total",
	}
}

func seed(t *testing.T, repo *fakeRepo, edit func(*model.Promotion)) *model.Promotion {
	t.Helper()
	p, err := model.FromPayload(payload())
	require.NoError(t, err)
	p.ID = uuid.New()
	p.Version = 1
	if edit != nil {
		edit(p)
	}
	repo.promos[p.ID] = p
	return p
}

func evaluateRequest(promoID uuid.UUID) *model.EvaluateRequest {
	return &model.EvaluateRequest{
		PromotionID: promoID.String(),
		Order: model.EvaluateOrder{
			Channel:     "delivery",
			DeliveryFee: decimal.RequireFromString("5.00"),
			LineItems: []model.EvaluateItem{
				{ItemID: "burger", Quantity: 2, UnitPrice: decimal.RequireFromString("25.00")},
			},
		},
	}
}

// ---------------------------------------------------------------------------
// Admin
// ---------------------------------------------------------------------------

func TestCreatePromotion(t *testing.T) {
	repo := newFakeRepo()
	svc, tx := newTestService(repo)

	p, err := svc.CreatePromotion(context.Background(), payload())

	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, p.ID)
	assert.Equal(t, 1, tx.calls)
	assert.Contains(t, repo.promos, p.ID)
}

func TestCreatePromotion_Invalid(t *testing.T) {
	svc, _ := newTestService(newFakeRepo())
	pl := payload()
	pl.ApplyToDeliveryPickup = nil

	_, err := svc.CreatePromotion(context.Background(), pl)

	var appErr *model.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, model.ErrCodeValidationFailed, appErr.Code)
	assert.Contains(t, appErr.Details, "channels")
}

func TestCreatePromotion_DuplicateCode(t *testing.T) {
	repo := newFakeRepo()
	seed(t, repo, nil)
	svc, _ := newTestService(repo)

	_, err := svc.CreatePromotion(context.Background(), payload())

	var appErr *model.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, model.ErrCodePromoDuplicateCode, appErr.Code)
	assert.Equal(t, []string{"SPRING10"}, appErr.Details["codes"])
}

func TestUpdatePromotion(t *testing.T) {
	repo := newFakeRepo()
	existing := seed(t, repo, nil)
	svc, _ := newTestService(repo)

	req := &model.UpdatePromotionRequest{PromotionPayload: payload(), Version: 1}
	req.PromotionName = "Spring sale extended"
	req.StoreEndDate = "2024-04-30"

	p, err := svc.UpdatePromotion(context.Background(), existing.ID, req)

	require.NoError(t, err)
	assert.Equal(t, "Spring sale extended", p.Name)
	assert.Equal(t, 2, p.Version)
}

func TestUpdatePromotion_StaleVersion(t *testing.T) {
	repo := newFakeRepo()
	existing := seed(t, repo, func(p *model.Promotion) { p.Version = 3 })
	svc, _ := newTestService(repo)

	_, err := svc.UpdatePromotion(context.Background(), existing.ID,
		&model.UpdatePromotionRequest{PromotionPayload: payload(), Version: 2})

	assert.ErrorIs(t, err, model.ErrUpdateConflict)
}

func TestUpdatePromotion_VersionFromDatabase(t *testing.T) {
	repo := newFakeRepo()
	existing := seed(t, repo, func(p *model.Promotion) { p.Version = 2 })
	stale := *existing
	stale.Version = 1
	repo.cached[existing.ID] = &stale
	svc, _ := newTestService(repo)

	p, err := svc.UpdatePromotion(context.Background(), existing.ID,
		&model.UpdatePromotionRequest{PromotionPayload: payload(), Version: 2})

	require.NoError(t, err)
	assert.Equal(t, 3, p.Version)
	assert.Equal(t, []string{"update", "commit", "invalidate"}, repo.events)

	got, err := svc.GetPromotion(context.Background(), existing.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Version)
}

func TestUpdatePromotion_FailureKeepsCache(t *testing.T) {
	repo := newFakeRepo()
	existing := seed(t, repo, func(p *model.Promotion) { p.Version = 3 })
	repo.cached[existing.ID] = existing
	svc, _ := newTestService(repo)

	_, err := svc.UpdatePromotion(context.Background(), existing.ID,
		&model.UpdatePromotionRequest{PromotionPayload: payload(), Version: 2})

	assert.ErrorIs(t, err, model.ErrUpdateConflict)
	assert.NotContains(t, repo.events, "invalidate")
	assert.Contains(t, repo.cached, existing.ID)
}

func TestDeletePromotion(t *testing.T) {
	repo := newFakeRepo()
	used := seed(t, repo, nil)
	unused := seed(t, repo, func(p *model.Promotion) { p.Codes = []string{"OTHER"} })
	repo.redemptions = append(repo.redemptions, &model.PromotionRedemption{PromotionID: used.ID})
	svc, _ := newTestService(repo)

	assert.ErrorIs(t, svc.DeletePromotion(context.Background(), used.ID), model.ErrCannotDeleteUsed)
	assert.NoError(t, svc.DeletePromotion(context.Background(), unused.ID))
	assert.NotContains(t, repo.promos, unused.ID)
}

func TestUpdatePromotionStatus(t *testing.T) {
	repo := newFakeRepo()
	p := seed(t, repo, nil)
	svc, _ := newTestService(repo)

	require.NoError(t, svc.UpdatePromotionStatus(context.Background(), p.ID, model.PromotionStatusInactive))
	assert.Equal(t, model.PromotionStatusInactive, repo.promos[p.ID].Status)

	assert.Error(t, svc.UpdatePromotionStatus(context.Background(), p.ID, "paused"))
}

// ---------------------------------------------------------------------------
// Evaluate
// ---------------------------------------------------------------------------

func TestEvaluate(t *testing.T) {
	repo := newFakeRepo()
	p := seed(t, repo, nil)
	svc, _ := newTestService(repo)

	resp, err := svc.Evaluate(context.Background(), evaluateRequest(p.ID))

	require.NoError(t, err)
	assert.True(t, resp.Result.Applicable)
	assert.True(t, decimal.RequireFromString("5.00").Equal(resp.Result.DiscountAmount))
	assert.True(t, decimal.RequireFromString("50.00").Equal(resp.FinalAmount), resp.FinalAmount.String())
}

func TestEvaluate_ByCode(t *testing.T) {
	repo := newFakeRepo()
	p := seed(t, repo, nil)
	svc, _ := newTestService(repo)

	req := evaluateRequest(p.ID)
	req.PromotionID = ""
	req.Code = " spring10 "

	resp, err := svc.Evaluate(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, p.ID, resp.PromotionID)
}

func TestEvaluate_UsesRequestTime(t *testing.T) {
	repo := newFakeRepo()
	p := seed(t, repo, nil)
	svc, _ := newTestService(repo)

	req := evaluateRequest(p.ID)
	later := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	req.At = &later

	resp, err := svc.Evaluate(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, resp.Result.Applicable)
	assert.Equal(t, model.ReasonWindow, resp.Result.Reason)
}

func TestEvaluate_RedemptionLimits(t *testing.T) {
	customer := uuid.New()

	tests := []struct {
		name   string
		edit   func(*model.Promotion)
		prior  []*model.PromotionRedemption
		reason model.Reason
	}{
		{
			name:   "global limit exhausted",
			edit:   func(p *model.Promotion) { p.TotalRedemptionLimit = 1 },
			prior:  []*model.PromotionRedemption{{}},
			reason: model.ReasonRedemptionLimit,
		},
		{
			name:   "one per customer",
			edit:   func(p *model.Promotion) { p.UsageLimit = model.UsageLimitOne },
			prior:  []*model.PromotionRedemption{{CustomerID: &customer}},
			reason: model.ReasonCustomerLimit,
		},
		{
			name:   "other customers do not count",
			edit:   func(p *model.Promotion) { p.UsageLimit = model.UsageLimitOne },
			prior:  []*model.PromotionRedemption{{}},
			reason: model.ReasonNone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newFakeRepo()
			p := seed(t, repo, tt.edit)
			for _, red := range tt.prior {
				red.PromotionID = p.ID
			}
			repo.redemptions = tt.prior
			svc, _ := newTestService(repo)

			req := evaluateRequest(p.ID)
			req.Order.CustomerID = customer.String()

			resp, err := svc.Evaluate(context.Background(), req)
			require.NoError(t, err)
			assert.Equal(t, tt.reason, resp.Result.Reason)
			assert.Equal(t, tt.reason == model.ReasonNone, resp.Result.Applicable)
		})
	}
}

func TestEvaluate_SkipsCountingWithoutLimits(t *testing.T) {
	repo := newFakeRepo()
	p := seed(t, repo, nil)
	repo.countErr = errors.New("should not be called")
	svc, _ := newTestService(repo)

	_, err := svc.Evaluate(context.Background(), evaluateRequest(p.ID))
	assert.NoError(t, err)
}

func TestEvaluate_Errors(t *testing.T) {
	repo := newFakeRepo()
	p := seed(t, repo, nil)
	svc, _ := newTestService(repo)

	_, err := svc.Evaluate(context.Background(), evaluateRequest(uuid.New()))
	assert.ErrorIs(t, err, model.ErrPromotionNotFound)

	bad := evaluateRequest(p.ID)
	bad.Order.Channel = "drone"
	_, err = svc.Evaluate(context.Background(), bad)
	var appErr *model.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, model.ErrCodeValidationFailed, appErr.Code)

	badID := evaluateRequest(p.ID)
	badID.PromotionID = "not-a-uuid"
	_, err = svc.Evaluate(context.Background(), badID)
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, model.ErrCodeValidationFailed, appErr.Code)
}

func TestEvaluate_BestPromotion(t *testing.T) {
	repo := newFakeRepo()
	small := seed(t, repo, nil)
	large := seed(t, repo, func(p *model.Promotion) {
		p.Codes = []string{"BIG20"}
		p.Rule.Amount = decimal.NewFromInt(20)
	})
	seed(t, repo, func(p *model.Promotion) {
		p.Codes = []string{"OFF30"}
		p.Rule.Amount = decimal.NewFromInt(30)
		p.Status = model.PromotionStatusInactive
	})
	svc, _ := newTestService(repo)

	req := evaluateRequest(uuid.Nil)
	req.PromotionID = ""

	resp, err := svc.Evaluate(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, large.ID, resp.PromotionID)
	assert.True(t, decimal.RequireFromString("10.00").Equal(resp.Result.DiscountAmount))

	t.Run("exhausted winner falls back", func(t *testing.T) {
		large.TotalRedemptionLimit = 1
		repo.redemptions = []*model.PromotionRedemption{{PromotionID: large.ID}}

		resp, err := svc.Evaluate(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, small.ID, resp.PromotionID)
		assert.True(t, decimal.RequireFromString("5.00").Equal(resp.Result.DiscountAmount))
	})

	t.Run("nothing applies", func(t *testing.T) {
		dinein := evaluateRequest(uuid.Nil)
		dinein.PromotionID = ""
		dinein.Order.Channel = "dinein"

		resp, err := svc.Evaluate(context.Background(), dinein)
		require.NoError(t, err)
		assert.Equal(t, uuid.Nil, resp.PromotionID)
		assert.False(t, resp.Result.Applicable)
		assert.Equal(t, model.ReasonNoneApplicable, resp.Result.Reason)
		assert.True(t, decimal.RequireFromString("55.00").Equal(resp.FinalAmount))
	})
}

// ---------------------------------------------------------------------------
// Redemption
// ---------------------------------------------------------------------------

func TestRecordRedemption(t *testing.T) {
	repo := newFakeRepo()
	p := seed(t, repo, func(p *model.Promotion) { p.UsageLimit = model.UsageLimitOne })
	svc, tx := newTestService(repo)
	customer := uuid.New()

	req := &model.RecordRedemptionRequest{
		PromotionID:    p.ID.String(),
		OrderID:        uuid.NewString(),
		CustomerID:     customer.String(),
		Code:           "spring10",
		DiscountAmount: decimal.RequireFromString("5.004"),
	}

	red, err := svc.RecordRedemption(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "SPRING10", red.Code)
	assert.True(t, decimal.RequireFromString("5.00").Equal(red.DiscountAmount))
	assert.Equal(t, []uuid.UUID{p.ID}, repo.locked)
	assert.Equal(t, 1, tx.calls)

	// second use by the same customer is refused
	req.OrderID = uuid.NewString()
	_, err = svc.RecordRedemption(context.Background(), req)
	var appErr *model.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, model.ErrCodePromoLimitReached, appErr.Code)
	assert.Len(t, repo.redemptions, 1)
}

func TestRecordRedemption_WrongCode(t *testing.T) {
	repo := newFakeRepo()
	p := seed(t, repo, nil)
	svc, _ := newTestService(repo)

	_, err := svc.RecordRedemption(context.Background(), &model.RecordRedemptionRequest{
		PromotionID: p.ID.String(),
		OrderID:     uuid.NewString(),
		Code:        "WINTER",
	})
	assert.Error(t, err)
	assert.Empty(t, repo.redemptions)
}

// ---------------------------------------------------------------------------
// Jobs
// ---------------------------------------------------------------------------

func TestDeactivateExpired(t *testing.T) {
	repo := newFakeRepo()
	expired := seed(t, repo, func(p *model.Promotion) {
		p.Codes = []string{"OLD"}
		p.Availability.EndDate = model.Date{Year: 2024, Month: time.March, Day: 3}
	})
	current := seed(t, repo, nil)
	svc, _ := newTestService(repo)

	n, err := svc.DeactivateExpired(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.False(t, repo.promos[expired.ID].IsActive())
	assert.True(t, repo.promos[current.ID].IsActive())
}
