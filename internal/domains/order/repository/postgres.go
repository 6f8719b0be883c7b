package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"restaurant-backoffice/internal/domains/order/model"
)

// =====================================================
// POSTGRES REPOSITORY IMPLEMENTATION
// =====================================================
type postgresOrderRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresOrderRepository(pool *pgxpool.Pool) OrderRepository {
	return &postgresOrderRepository{
		pool: pool,
	}
}

// =====================================================
// GET ORDER
// =====================================================

// GetOrderByID loads the order together with its line items
func (r *postgresOrderRepository) GetOrderByID(ctx context.Context, orderID uuid.UUID) (*model.Order, error) {
	query := `
		SELECT
			id, order_number, customer_id, outlet_id, channel, status,
			delivery_fee, scheduled_at, version, created_at, updated_at
		FROM orders
		WHERE id = $1
	`

	var order model.Order
	err := r.pool.QueryRow(ctx, query, orderID).Scan(
		&order.ID,
		&order.OrderNumber,
		&order.CustomerID,
		&order.OutletID,
		&order.Channel,
		&order.Status,
		&order.DeliveryFee,
		&order.ScheduledAt,
		&order.Version,
		&order.CreatedAt,
		&order.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to get order by id: %w", err)
	}

	items, err := r.GetOrderItemsByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	order.LineItems = items

	return &order, nil
}

// =====================================================
// UPDATE ORDER
// =====================================================

func (r *postgresOrderRepository) UpdateOrderStatusWithTx(
	ctx context.Context,
	tx pgx.Tx,
	orderID uuid.UUID,
	status model.OrderStatus,
	version int,
) error {
	query := `
		UPDATE orders
		SET status = $1, version = version + 1, updated_at = NOW()
		WHERE id = $2 AND version = $3
	`

	result, err := tx.Exec(ctx, query, status, orderID, version)
	if err != nil {
		return fmt.Errorf("failed to update order status with tx: %w", err)
	}

	if result.RowsAffected() == 0 {
		return model.ErrVersionMismatch
	}

	return nil
}

func (r *postgresOrderRepository) UpdateOrderSchedule(ctx context.Context, orderID uuid.UUID, scheduledAt time.Time, version int) error {
	query := `
		UPDATE orders
		SET scheduled_at = $1, version = version + 1, updated_at = NOW()
		WHERE id = $2 AND version = $3
	`

	result, err := r.pool.Exec(ctx, query, scheduledAt, orderID, version)
	if err != nil {
		return fmt.Errorf("failed to update order schedule: %w", err)
	}

	if result.RowsAffected() == 0 {
		return model.ErrVersionMismatch
	}

	return nil
}

// =====================================================
// ORDER ITEMS
// =====================================================

func (r *postgresOrderRepository) GetOrderItemsByOrderID(ctx context.Context, orderID uuid.UUID) ([]model.LineItem, error) {
	query := `
		SELECT item_id, category_ids, quantity, unit_price
		FROM order_line_items
		WHERE order_id = $1
		ORDER BY position ASC
	`

	rows, err := r.pool.Query(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get order items: %w", err)
	}
	defer rows.Close()

	items := make([]model.LineItem, 0)
	for rows.Next() {
		var item model.LineItem
		if err := rows.Scan(&item.ItemID, &item.CategoryIDs, &item.Quantity, &item.UnitPrice); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		items = append(items, item)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("error iterating order items: %w", rows.Err())
	}

	return items, nil
}

// =====================================================
// ORDER STATUS HISTORY
// =====================================================

func (r *postgresOrderRepository) CreateOrderStatusHistoryWithTx(ctx context.Context, tx pgx.Tx, history *model.OrderStatusHistory) error {
	query := `
		INSERT INTO order_status_history (
			id, order_id, from_status, to_status, changed_by
		) VALUES ($1, $2, $3, $4, $5)
		RETURNING changed_at
	`

	err := tx.QueryRow(ctx, query,
		history.ID,
		history.OrderID,
		history.FromStatus,
		history.ToStatus,
		history.ChangedBy,
	).Scan(&history.ChangedAt)

	if err != nil {
		return fmt.Errorf("failed to create order status history with tx: %w", err)
	}

	return nil
}

func (r *postgresOrderRepository) GetOrderStatusHistory(ctx context.Context, orderID uuid.UUID) ([]model.OrderStatusHistory, error) {
	query := `
		SELECT
			id, order_id, from_status, to_status, changed_by, changed_at
		FROM order_status_history
		WHERE order_id = $1
		ORDER BY changed_at ASC
	`

	rows, err := r.pool.Query(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get order status history: %w", err)
	}
	defer rows.Close()

	histories, err := pgx.CollectRows(rows, pgx.RowToStructByPos[model.OrderStatusHistory])
	if err != nil {
		return nil, fmt.Errorf("failed to scan order status history: %w", err)
	}

	return histories, nil
}
