package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restaurant-backoffice/internal/domains/order/lifecycle"
	"restaurant-backoffice/internal/domains/order/model"
	"restaurant-backoffice/internal/shared"
	"restaurant-backoffice/pkg/database"
)

// =====================================================
// FAKES
// =====================================================

type fakeTx struct{}

func (fakeTx) WithTransaction(_ context.Context, fn database.TxFunc) error {
	return fn(nil)
}

type fakeOrderRepo struct {
	orders     map[uuid.UUID]*model.Order
	history    []*model.OrderStatusHistory
	historyErr error
}

func (r *fakeOrderRepo) GetOrderByID(_ context.Context, id uuid.UUID) (*model.Order, error) {
	o, ok := r.orders[id]
	if !ok {
		return nil, model.ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (r *fakeOrderRepo) UpdateOrderStatusWithTx(_ context.Context, _ pgx.Tx, id uuid.UUID, status model.OrderStatus, version int) error {
	o := r.orders[id]
	if o.Version != version {
		return model.ErrVersionMismatch
	}
	o.Status = status
	o.Version++
	return nil
}

func (r *fakeOrderRepo) UpdateOrderSchedule(_ context.Context, id uuid.UUID, at time.Time, version int) error {
	o := r.orders[id]
	if o.Version != version {
		return model.ErrVersionMismatch
	}
	o.ScheduledAt = &at
	o.Version++
	return nil
}

func (r *fakeOrderRepo) GetOrderItemsByOrderID(_ context.Context, id uuid.UUID) ([]model.LineItem, error) {
	return r.orders[id].LineItems, nil
}

func (r *fakeOrderRepo) CreateOrderStatusHistoryWithTx(_ context.Context, _ pgx.Tx, h *model.OrderStatusHistory) error {
	if r.historyErr != nil {
		return r.historyErr
	}
	h.ChangedAt = time.Now()
	r.history = append(r.history, h)
	return nil
}

func (r *fakeOrderRepo) GetOrderStatusHistory(_ context.Context, id uuid.UUID) ([]model.OrderStatusHistory, error) {
	var out []model.OrderStatusHistory
	for _, h := range r.history {
		if h.OrderID == id {
			out = append(out, *h)
		}
	}
	return out, nil
}

type fakeEnqueuer struct {
	tasks []*asynq.Task
	err   error
}

func (f *fakeEnqueuer) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.tasks = append(f.tasks, task)
	return &asynq.TaskInfo{}, nil
}

// =====================================================
// FIXTURES
// =====================================================

var createdAt = time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)

func newFixture(channel model.Channel, status model.OrderStatus, opts ...lifecycle.Option) (OrderService, *fakeOrderRepo, *fakeEnqueuer, uuid.UUID) {
	id := uuid.New()
	repo := &fakeOrderRepo{orders: map[uuid.UUID]*model.Order{
		id: {
			ID:        id,
			Channel:   channel,
			Status:    status,
			Version:   1,
			CreatedAt: createdAt,
		},
	}}
	q := &fakeEnqueuer{}
	svc := NewOrderService(repo, lifecycle.NewMachine(opts...), fakeTx{}, q, time.UTC)
	return svc, repo, q, id
}

func intPtr(v int) *int { return &v }

func orderCode(t *testing.T, err error) string {
	t.Helper()
	var oe *model.OrderError
	require.True(t, errors.As(err, &oe), "expected *OrderError, got %v", err)
	return oe.Code
}

// =====================================================
// STATUS
// =====================================================

func TestUpdateOrderStatus(t *testing.T) {
	svc, repo, q, id := newFixture(model.ChannelDelivery, model.OrderStatusPending)
	staff := uuid.New()

	order, err := svc.UpdateOrderStatus(context.Background(), id, &staff,
		model.UpdateOrderStatusRequest{Status: "on_the_way"})

	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusOnTheWay, order.Status)
	assert.Equal(t, 2, order.Version)
	assert.Equal(t, model.OrderStatusOnTheWay, repo.orders[id].Status)

	require.Len(t, repo.history, 1)
	assert.Equal(t, model.OrderStatusPending, repo.history[0].FromStatus)
	assert.Equal(t, model.OrderStatusOnTheWay, repo.history[0].ToStatus)
	assert.Equal(t, &staff, repo.history[0].ChangedBy)

	require.Len(t, q.tasks, 1)
	assert.Equal(t, shared.TypeOrderStatusChanged, q.tasks[0].Type())
	var payload model.StatusChangedPayload
	require.NoError(t, json.Unmarshal(q.tasks[0].Payload(), &payload))
	assert.Equal(t, id.String(), payload.OrderID)
	assert.Equal(t, model.OrderStatusOnTheWay, payload.ToStatus)
	assert.Equal(t, staff.String(), payload.ChangedBy)
}

func TestUpdateOrderStatus_Rejected(t *testing.T) {
	tests := []struct {
		name    string
		channel model.Channel
		status  model.OrderStatus
		req     model.UpdateOrderStatusRequest
		code    string
	}{
		{"pickup status on delivery", model.ChannelDelivery, model.OrderStatusPending,
			model.UpdateOrderStatusRequest{Status: "ready_to_pickup"}, model.ErrCodeInvalidTransition},
		{"skipping a step", model.ChannelDineIn, model.OrderStatusPending,
			model.UpdateOrderStatusRequest{Status: "preparing"}, model.ErrCodeInvalidTransition},
		{"same status", model.ChannelPickup, model.OrderStatusPending,
			model.UpdateOrderStatusRequest{Status: "pending"}, model.ErrCodeInvalidTransition},
		{"terminal", model.ChannelPickup, model.OrderStatusCompleted,
			model.UpdateOrderStatusRequest{Status: "cancelled"}, model.ErrCodeInvalidTransition},
		{"unknown status", model.ChannelPickup, model.OrderStatusPending,
			model.UpdateOrderStatusRequest{Status: "lost"}, model.ErrCodeInvalidRequest},
		{"stale version", model.ChannelPickup, model.OrderStatusPending,
			model.UpdateOrderStatusRequest{Status: "ready_to_pickup", Version: intPtr(0)}, model.ErrCodeVersionMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo, q, id := newFixture(tt.channel, tt.status)

			_, err := svc.UpdateOrderStatus(context.Background(), id, nil, tt.req)

			assert.Equal(t, tt.code, orderCode(t, err))
			assert.Equal(t, tt.status, repo.orders[id].Status)
			assert.Empty(t, repo.history)
			assert.Empty(t, q.tasks)
		})
	}
}

func TestUpdateOrderStatus_TransitionDetails(t *testing.T) {
	svc, _, _, id := newFixture(model.ChannelPickup, model.OrderStatusPending)

	_, err := svc.UpdateOrderStatus(context.Background(), id, nil, model.UpdateOrderStatusRequest{Status: "on_the_way"})

	var oe *model.OrderError
	require.True(t, errors.As(err, &oe))
	assert.ErrorIs(t, err, lifecycle.ErrInvalidTransition)
	assert.Equal(t, []model.OrderStatus{model.OrderStatusReadyToPickup, model.OrderStatusCancelled}, oe.Details["allowed"])
}

func TestUpdateOrderStatus_KitchenStages(t *testing.T) {
	svc, _, _, id := newFixture(model.ChannelDelivery, model.OrderStatusPending, lifecycle.WithKitchenStages())

	order, err := svc.UpdateOrderStatus(context.Background(), id, nil, model.UpdateOrderStatusRequest{Status: "confirmed"})
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusConfirmed, order.Status)
}

func TestUpdateOrderStatus_HistoryFailure(t *testing.T) {
	svc, repo, q, id := newFixture(model.ChannelPickup, model.OrderStatusPending)
	repo.historyErr = errors.New("insert failed")

	_, err := svc.UpdateOrderStatus(context.Background(), id, nil, model.UpdateOrderStatusRequest{Status: "ready_to_pickup"})

	assert.ErrorContains(t, err, "insert failed")
	assert.Empty(t, q.tasks)
}

func TestUpdateOrderStatus_EnqueueFailureIsNotFatal(t *testing.T) {
	svc, _, q, id := newFixture(model.ChannelPickup, model.OrderStatusPending)
	q.err = errors.New("redis down")

	_, err := svc.UpdateOrderStatus(context.Background(), id, nil, model.UpdateOrderStatusRequest{Status: "ready_to_pickup"})
	assert.NoError(t, err)
}

func TestGetOrder_NotFound(t *testing.T) {
	svc, _, _, _ := newFixture(model.ChannelPickup, model.OrderStatusPending)

	_, err := svc.GetOrder(context.Background(), uuid.New())

	assert.Equal(t, model.ErrCodeOrderNotFound, orderCode(t, err))
	assert.ErrorIs(t, err, model.ErrOrderNotFound)
}

func TestAllowedNextStatuses(t *testing.T) {
	svc, _, _, id := newFixture(model.ChannelDineIn, model.OrderStatusConfirmed)

	resp, err := svc.AllowedNextStatuses(context.Background(), id)

	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusConfirmed, resp.Current)
	assert.Equal(t, []model.OrderStatus{model.OrderStatusPreparing, model.OrderStatusCancelled}, resp.Allowed)
}

func TestGetOrderStatusHistory(t *testing.T) {
	svc, _, _, id := newFixture(model.ChannelPickup, model.OrderStatusPending)

	history, err := svc.GetOrderStatusHistory(context.Background(), id)
	require.NoError(t, err)
	assert.NotNil(t, history)
	assert.Empty(t, history)

	_, err = svc.UpdateOrderStatus(context.Background(), id, nil, model.UpdateOrderStatusRequest{Status: "ready_to_pickup"})
	require.NoError(t, err)

	history, err = svc.GetOrderStatusHistory(context.Background(), id)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

// =====================================================
// SCHEDULE
// =====================================================

func TestUpdateOrderSchedule(t *testing.T) {
	tests := []struct {
		name  string
		date  string
		clock string
		code  string
	}{
		{"exactly sixty minutes", "2024-03-04", "11:00", ""},
		{"later day", "2024-03-05", "09:30", ""},
		{"fifty nine minutes", "2024-03-04", "10:59", model.ErrCodeScheduleTooSoon},
		{"before creation", "2024-03-04", "09:00", model.ErrCodeScheduleTooSoon},
		{"bad date", "04/03/2024", "11:00", model.ErrCodeInvalidRequest},
		{"bad time", "2024-03-04", "25:00", model.ErrCodeInvalidRequest},
		{"impossible date", "2024-02-30", "11:00", model.ErrCodeInvalidRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo, _, id := newFixture(model.ChannelDelivery, model.OrderStatusPending)

			order, err := svc.UpdateOrderSchedule(context.Background(), id,
				model.UpdateScheduleRequest{SelectedDate: tt.date, SelectedTime: tt.clock})

			if tt.code == "" {
				require.NoError(t, err)
				require.NotNil(t, order.ScheduledAt)
				assert.Equal(t, repo.orders[id].ScheduledAt, order.ScheduledAt)
				return
			}
			assert.Equal(t, tt.code, orderCode(t, err))
			assert.Nil(t, repo.orders[id].ScheduledAt)
		})
	}
}

func TestUpdateOrderSchedule_TooSoonDetails(t *testing.T) {
	svc, _, _, id := newFixture(model.ChannelPickup, model.OrderStatusPending)

	_, err := svc.UpdateOrderSchedule(context.Background(), id,
		model.UpdateScheduleRequest{SelectedDate: "2024-03-04", SelectedTime: "10:30"})

	var oe *model.OrderError
	require.True(t, errors.As(err, &oe))
	assert.ErrorIs(t, err, lifecycle.ErrScheduleTooSoon)
	assert.Equal(t, "2024-03-04T11:00:00Z", oe.Details["earliest"])
}

func TestUpdateOrderSchedule_TerminalOrder(t *testing.T) {
	svc, _, _, id := newFixture(model.ChannelPickup, model.OrderStatusCancelled)

	_, err := svc.UpdateOrderSchedule(context.Background(), id,
		model.UpdateScheduleRequest{SelectedDate: "2024-03-05", SelectedTime: "12:00"})

	assert.Equal(t, model.ErrCodeInvalidSchedule, orderCode(t, err))
}
