package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS customers (
    id          BIGSERIAL PRIMARY KEY,
    name        TEXT NOT NULL,
    phone       TEXT NOT NULL DEFAULT '',
    address     TEXT NOT NULL DEFAULT '',
    jug_tag     TEXT NOT NULL DEFAULT '',
    amount_due  NUMERIC(10,2) NOT NULL DEFAULT 0,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS staff (
    id         BIGSERIAL PRIMARY KEY,
    name       TEXT NOT NULL,
    phone      TEXT NOT NULL DEFAULT '',
    position   TEXT NOT NULL DEFAULT 'staff',
    is_active  BOOLEAN NOT NULL DEFAULT TRUE
);

CREATE TABLE IF NOT EXISTS orders (
    id              BIGSERIAL PRIMARY KEY,
    customer_id     BIGINT NOT NULL REFERENCES customers(id) ON DELETE CASCADE,
    order_date      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    amount          NUMERIC(10,2) NOT NULL CHECK (amount > 0),
    paid            BOOLEAN NOT NULL DEFAULT FALSE,
    jug_status      TEXT NOT NULL DEFAULT 'picked_up',
    assigned_driver BIGINT REFERENCES staff(id) ON DELETE SET NULL
);
CREATE INDEX IF NOT EXISTS idx_orders_order_date ON orders (order_date);
CREATE INDEX IF NOT EXISTS idx_orders_paid       ON orders (paid);
CREATE INDEX IF NOT EXISTS idx_orders_customer   ON orders (customer_id);

CREATE TABLE IF NOT EXISTS daily_sales (
    date        DATE PRIMARY KEY,
    daily_sales NUMERIC(10,2) NOT NULL DEFAULT 0 CHECK (daily_sales >= 0)
);

CREATE TABLE IF NOT EXISTS notifications (
    id          BIGSERIAL PRIMARY KEY,
    customer_id BIGINT NOT NULL REFERENCES customers(id) ON DELETE CASCADE,
    title       TEXT NOT NULL,
    message     TEXT NOT NULL,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

// InitSchema creates the tables when they do not exist yet.
func InitSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to init schema: %w", err)
	}
	return nil
}
