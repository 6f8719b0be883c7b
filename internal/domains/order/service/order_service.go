package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5"

	"restaurant-backoffice/internal/domains/order/lifecycle"
	"restaurant-backoffice/internal/domains/order/model"
	"restaurant-backoffice/internal/domains/order/repository"
	"restaurant-backoffice/internal/shared"
	"restaurant-backoffice/internal/shared/utils"
	"restaurant-backoffice/pkg/database"
	"restaurant-backoffice/pkg/logger"
)

// =====================================================
// ORDER SERVICE IMPLEMENTATION
// =====================================================
type orderService struct {
	orderRepo repository.OrderRepository
	machine   *lifecycle.Machine
	tx        database.TxManager
	asynq     TaskEnqueuer
	loc       *time.Location
}

// NewOrderService creates a new order service. loc is the outlet time
// zone used to read selected_date/selected_time.
func NewOrderService(
	orderRepo repository.OrderRepository,
	machine *lifecycle.Machine,
	tx database.TxManager,
	asynq TaskEnqueuer,
	loc *time.Location,
) OrderService {
	if loc == nil {
		loc = time.UTC
	}
	return &orderService{
		orderRepo: orderRepo,
		machine:   machine,
		tx:        tx,
		asynq:     asynq,
		loc:       loc,
	}
}

// =====================================================
// READ
// =====================================================

func (s *orderService) GetOrder(ctx context.Context, orderID uuid.UUID) (*model.Order, error) {
	order, err := s.orderRepo.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, mapRepoError(err)
	}
	return order, nil
}

func (s *orderService) AllowedNextStatuses(ctx context.Context, orderID uuid.UUID) (*model.NextStatusesResponse, error) {
	order, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	return &model.NextStatusesResponse{
		OrderID: order.ID.String(),
		Channel: order.Channel,
		Current: order.Status,
		Allowed: s.machine.AllowedNextStatuses(order.Channel, order.Status),
	}, nil
}

func (s *orderService) GetOrderStatusHistory(ctx context.Context, orderID uuid.UUID) ([]model.OrderStatusHistory, error) {
	if _, err := s.GetOrder(ctx, orderID); err != nil {
		return nil, err
	}
	history, err := s.orderRepo.GetOrderStatusHistory(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if history == nil {
		history = []model.OrderStatusHistory{}
	}
	return history, nil
}

// =====================================================
// UPDATE ORDER STATUS
// =====================================================

func (s *orderService) UpdateOrderStatus(
	ctx context.Context,
	orderID uuid.UUID,
	changedBy *uuid.UUID,
	req model.UpdateOrderStatusRequest,
) (*model.Order, error) {
	// 1. Validate request
	if err := req.Validate(); err != nil {
		return nil, model.NewValidationError(err)
	}
	requested := model.OrderStatus(req.Status)

	// 2. Get current order
	order, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if req.Version != nil && *req.Version != order.Version {
		return nil, model.NewOrderError(model.ErrCodeVersionMismatch, "Order was modified, reload and retry", model.ErrVersionMismatch)
	}

	// 3. Validate status transition
	if err := s.machine.ValidateTransition(order.Channel, order.Status, requested); err != nil {
		return nil, model.NewOrderError(model.ErrCodeInvalidTransition, "Status change not allowed", err).
			WithDetails(map[string]interface{}{
				"current": order.Status,
				"allowed": s.machine.AllowedNextStatuses(order.Channel, order.Status),
			})
	}

	// 4. Update status + history in one transaction, optimistic on version
	history := &model.OrderStatusHistory{
		ID:         uuid.New(),
		OrderID:    orderID,
		FromStatus: order.Status,
		ToStatus:   requested,
		ChangedBy:  changedBy,
	}
	err = s.tx.WithTransaction(ctx, func(tx pgx.Tx) error {
		if err := s.orderRepo.UpdateOrderStatusWithTx(ctx, tx, orderID, requested, order.Version); err != nil {
			return err
		}
		if err := s.orderRepo.CreateOrderStatusHistoryWithTx(ctx, tx, history); err != nil {
			return fmt.Errorf("failed to create order status history: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, mapRepoError(err)
	}

	logger.Info("Order status updated", map[string]interface{}{
		"order_id": orderID,
		"channel":  order.Channel,
		"from":     order.Status,
		"to":       requested,
	})

	// 5. Enqueue status_changed after commit
	s.enqueueStatusChanged(ctx, order, history)

	order.Status = requested
	order.Version++
	return order, nil
}

func (s *orderService) enqueueStatusChanged(ctx context.Context, order *model.Order, history *model.OrderStatusHistory) {
	if s.asynq == nil {
		return
	}

	payload := model.StatusChangedPayload{
		OrderID:    order.ID.String(),
		Channel:    order.Channel,
		FromStatus: history.FromStatus,
		ToStatus:   history.ToStatus,
		ChangedAt:  history.ChangedAt,
	}
	if history.ChangedBy != nil {
		payload.ChangedBy = history.ChangedBy.String()
	}
	if order.CustomerID != nil {
		payload.CustomerID = order.CustomerID.String()
	}

	task, err := utils.NewJSONTask(shared.TypeOrderStatusChanged, payload)
	if err != nil {
		logger.Error("Failed to build status_changed task", err)
		return
	}
	if _, err := s.asynq.EnqueueContext(ctx, task, asynq.Queue(shared.QueueOrder), asynq.MaxRetry(5)); err != nil {
		logger.Error("Failed to enqueue status_changed task", err)
	}
}

// =====================================================
// UPDATE SCHEDULE
// =====================================================

func (s *orderService) UpdateOrderSchedule(
	ctx context.Context,
	orderID uuid.UUID,
	req model.UpdateScheduleRequest,
) (*model.Order, error) {
	// 1. Validate request
	if err := req.Validate(); err != nil {
		return nil, model.NewValidationError(err)
	}
	requested, err := req.RequestedAt(s.loc)
	if err != nil {
		return nil, model.NewOrderError(model.ErrCodeInvalidSchedule, "Invalid schedule", err)
	}

	// 2. Get current order
	order, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status.IsTerminal() {
		return nil, model.NewOrderError(model.ErrCodeInvalidSchedule, "Order is already "+order.Status.String(), model.ErrInvalidSchedule)
	}

	// 3. Lead time is measured from creation
	if err := lifecycle.ValidateSchedule(order.CreatedAt, requested); err != nil {
		return nil, model.NewOrderError(model.ErrCodeScheduleTooSoon, "Schedule is too soon", err).
			WithDetails(map[string]interface{}{
				"earliest": lifecycle.EarliestSchedule(order.CreatedAt).In(s.loc).Format(time.RFC3339),
			})
	}

	// 4. Save
	if err := s.orderRepo.UpdateOrderSchedule(ctx, orderID, requested, order.Version); err != nil {
		return nil, mapRepoError(err)
	}

	logger.Info("Order schedule updated", map[string]interface{}{
		"order_id":     orderID,
		"scheduled_at": requested,
	})

	order.ScheduledAt = &requested
	order.Version++
	return order, nil
}

// =====================================================
// HELPERS
// =====================================================

// mapRepoError turns repository sentinels into coded errors
func mapRepoError(err error) error {
	switch {
	case errors.Is(err, model.ErrOrderNotFound):
		return model.NewOrderError(model.ErrCodeOrderNotFound, "Order not found", err)
	case errors.Is(err, model.ErrVersionMismatch):
		return model.NewOrderError(model.ErrCodeVersionMismatch, "Order was modified, reload and retry", err)
	default:
		return err
	}
}
