package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schema is idempotent; EnsureSchema runs it on start-up when
// DB_AUTO_MIGRATE is set.
const schema = `
CREATE TABLE IF NOT EXISTS promotions (
	id                         UUID PRIMARY KEY,
	label                      TEXT NOT NULL DEFAULT '',
	name                       TEXT NOT NULL,
	usage_limit                TEXT NOT NULL,
	total_redemption_limit     INT  NOT NULL DEFAULT 0 CHECK (total_redemption_limit >= 0),
	voucher_limit_per_customer INT  NOT NULL DEFAULT 0 CHECK (voucher_limit_per_customer >= 0),
	status                     TEXT NOT NULL DEFAULT 'active',
	available_on               TEXT NOT NULL DEFAULT '',
	start_date                 DATE NOT NULL,
	end_date                   DATE NOT NULL CHECK (end_date >= start_date),
	custom_day_time            JSONB NOT NULL DEFAULT '[]',
	channels                   TEXT[] NOT NULL,
	promo_kind                 TEXT NOT NULL,
	discount_type              TEXT NOT NULL DEFAULT '',
	discount_amount            NUMERIC(12,2) NOT NULL DEFAULT 0,
	minimum_spend              NUMERIC(12,2) NOT NULL DEFAULT 0,
	minimum_quantity           INT NOT NULL DEFAULT 0,
	every_quantity             INT NOT NULL DEFAULT 0,
	get_number                 INT NOT NULL DEFAULT 0,
	scope1_kind                TEXT NOT NULL,
	scope1_ids                 TEXT[] NOT NULL DEFAULT '{}',
	scope2_kind                TEXT NOT NULL DEFAULT '',
	scope2_ids                 TEXT[] NOT NULL DEFAULT '{}',
	version                    INT NOT NULL DEFAULT 1,
	created_at                 TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at                 TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS promotion_codes (
	code         TEXT PRIMARY KEY,
	promotion_id UUID NOT NULL REFERENCES promotions(id) ON DELETE CASCADE,
	position     INT  NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_promotion_codes_promotion ON promotion_codes(promotion_id);

CREATE TABLE IF NOT EXISTS promotion_redemptions (
	id              UUID PRIMARY KEY,
	promotion_id    UUID NOT NULL REFERENCES promotions(id),
	customer_id     UUID,
	order_id        UUID NOT NULL,
	code            TEXT NOT NULL DEFAULT '',
	discount_amount NUMERIC(12,2) NOT NULL DEFAULT 0,
	redeemed_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	UNIQUE (promotion_id, order_id)
);
CREATE INDEX IF NOT EXISTS idx_redemptions_customer ON promotion_redemptions(promotion_id, customer_id);

CREATE TABLE IF NOT EXISTS orders (
	id           UUID PRIMARY KEY,
	order_number TEXT NOT NULL UNIQUE,
	customer_id  UUID,
	outlet_id    UUID,
	channel      TEXT NOT NULL,
	status       TEXT NOT NULL,
	delivery_fee NUMERIC(12,2) NOT NULL DEFAULT 0,
	scheduled_at TIMESTAMPTZ,
	version      INT NOT NULL DEFAULT 1,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS order_line_items (
	order_id     UUID NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
	position     INT  NOT NULL,
	item_id      TEXT NOT NULL,
	category_ids TEXT[] NOT NULL DEFAULT '{}',
	quantity     INT  NOT NULL CHECK (quantity > 0),
	unit_price   NUMERIC(12,2) NOT NULL CHECK (unit_price >= 0),
	PRIMARY KEY (order_id, position)
);

CREATE TABLE IF NOT EXISTS order_status_history (
	id          UUID PRIMARY KEY,
	order_id    UUID NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
	from_status TEXT NOT NULL,
	to_status   TEXT NOT NULL,
	changed_by  UUID,
	changed_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_order_status_history_order ON order_status_history(order_id, changed_at);
`

// EnsureSchema creates the tables this service owns
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
