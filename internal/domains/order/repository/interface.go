package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"restaurant-backoffice/internal/domains/order/model"
)

// =====================================================
// ORDER REPOSITORY INTERFACE
// =====================================================
type OrderRepository interface {
	// Order operations
	GetOrderByID(ctx context.Context, orderID uuid.UUID) (*model.Order, error)
	UpdateOrderStatusWithTx(ctx context.Context, tx pgx.Tx, orderID uuid.UUID, status model.OrderStatus, version int) error
	UpdateOrderSchedule(ctx context.Context, orderID uuid.UUID, scheduledAt time.Time, version int) error

	// Order items operations
	GetOrderItemsByOrderID(ctx context.Context, orderID uuid.UUID) ([]model.LineItem, error)

	// Order status history
	CreateOrderStatusHistoryWithTx(ctx context.Context, tx pgx.Tx, history *model.OrderStatusHistory) error
	GetOrderStatusHistory(ctx context.Context, orderID uuid.UUID) ([]model.OrderStatusHistory, error)
}
