package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"restaurant-backoffice/internal/domains/order/model"
)

// =====================================================
// ORDER SERVICE INTERFACE
// =====================================================
type OrderService interface {
	// Get order with its line items
	GetOrder(ctx context.Context, orderID uuid.UUID) (*model.Order, error)

	// Statuses the order may move to next, for the status picker
	AllowedNextStatuses(ctx context.Context, orderID uuid.UUID) (*model.NextStatusesResponse, error)

	// Update order status through the state machine (back-office staff)
	UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, changedBy *uuid.UUID, req model.UpdateOrderStatusRequest) (*model.Order, error)

	// Reschedule fulfilment, subject to the minimum lead time
	UpdateOrderSchedule(ctx context.Context, orderID uuid.UUID, req model.UpdateScheduleRequest) (*model.Order, error)

	// Status audit trail
	GetOrderStatusHistory(ctx context.Context, orderID uuid.UUID) ([]model.OrderStatusHistory, error)
}

// TaskEnqueuer is the part of *asynq.Client the service uses
type TaskEnqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}
