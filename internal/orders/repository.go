package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"water-delivery-system/internal/domain"
)

type Repository interface {
	// InTx runs fn inside one transaction; the order write, transition
	// detection and ledger updates all commit or roll back together.
	InTx(ctx context.Context, fn func(tx pgx.Tx) error) error

	Insert(ctx context.Context, tx pgx.Tx, o *domain.Order) error
	GetForUpdate(ctx context.Context, tx pgx.Tx, id int64) (*domain.Order, error)
	Update(ctx context.Context, tx pgx.Tx, o *domain.Order) error
	Delete(ctx context.Context, tx pgx.Tx, id int64) error

	Get(ctx context.Context, id int64) (*domain.Order, error)
	ListByCustomer(ctx context.Context, customerID int64, limit, offset int) ([]domain.Order, error)
	GetCustomer(ctx context.Context, id int64) (*domain.Customer, error)
	GetStaff(ctx context.Context, id int64) (*domain.Staff, error)
	SalesSummary(ctx context.Context, date time.Time) (domain.SalesSummary, error)
}

type PGRepo struct{ db *pgxpool.Pool }

func NewPGRepo(db *pgxpool.Pool) *PGRepo { return &PGRepo{db: db} }

func (r *PGRepo) InTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (r *PGRepo) Insert(ctx context.Context, tx pgx.Tx, o *domain.Order) error {
	err := tx.QueryRow(ctx, `
		INSERT INTO orders (customer_id, order_date, amount, paid, jug_status, assigned_driver)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, o.CustomerID, o.OrderDate, o.Amount, o.Paid, o.JugStatus, o.AssignedDriver).Scan(&o.ID)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}
	return nil
}

const orderColumns = `id, customer_id, order_date, amount::text, paid, jug_status, assigned_driver`

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var (
		o   domain.Order
		raw string
	)
	err := row.Scan(&o.ID, &o.CustomerID, &o.OrderDate, &raw, &o.Paid, &o.JugStatus, &o.AssignedDriver)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if o.Amount, err = decimal.NewFromString(raw); err != nil {
		return nil, fmt.Errorf("failed to parse order amount %q: %w", raw, err)
	}
	return &o, nil
}

func (r *PGRepo) GetForUpdate(ctx context.Context, tx pgx.Tx, id int64) (*domain.Order, error) {
	return scanOrder(tx.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, id))
}

func (r *PGRepo) Update(ctx context.Context, tx pgx.Tx, o *domain.Order) error {
	tag, err := tx.Exec(ctx, `
		UPDATE orders
		SET amount = $2, paid = $3, jug_status = $4, assigned_driver = $5
		WHERE id = $1
	`, o.ID, o.Amount, o.Paid, o.JugStatus, o.AssignedDriver)
	if err != nil {
		return fmt.Errorf("failed to update order %d: %w", o.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *PGRepo) Delete(ctx context.Context, tx pgx.Tx, id int64) error {
	tag, err := tx.Exec(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete order %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *PGRepo) Get(ctx context.Context, id int64) (*domain.Order, error) {
	return scanOrder(r.db.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
}

func (r *PGRepo) ListByCustomer(ctx context.Context, customerID int64, limit, offset int) ([]domain.Order, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := r.db.Query(ctx, `
		SELECT `+orderColumns+`
		FROM orders WHERE customer_id = $1
		ORDER BY order_date DESC LIMIT $2 OFFSET $3
	`, customerID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *o)
	}
	return out, rows.Err()
}

func (r *PGRepo) GetCustomer(ctx context.Context, id int64) (*domain.Customer, error) {
	var (
		c   domain.Customer
		raw string
	)
	err := r.db.QueryRow(ctx, `
		SELECT id, name, phone, address, jug_tag, amount_due::text, created_at
		FROM customers WHERE id = $1
	`, id).Scan(&c.ID, &c.Name, &c.Phone, &c.Address, &c.JugTag, &raw, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if c.AmountDue, err = decimal.NewFromString(raw); err != nil {
		return nil, fmt.Errorf("failed to parse amount_due %q: %w", raw, err)
	}
	return &c, nil
}

func (r *PGRepo) GetStaff(ctx context.Context, id int64) (*domain.Staff, error) {
	var s domain.Staff
	err := r.db.QueryRow(ctx, `
		SELECT id, name, phone, position, is_active
		FROM staff WHERE id = $1
	`, id).Scan(&s.ID, &s.Name, &s.Phone, &s.Position, &s.IsActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

// SalesSummary returns the daily figure for the date plus the weekly,
// monthly and yearly rollups over the daily_sales rows.
func (r *PGRepo) SalesSummary(ctx context.Context, date time.Time) (domain.SalesSummary, error) {
	day := date.UTC().Format("2006-01-02")
	var daily, weekly, monthly, yearly string
	err := r.db.QueryRow(ctx, `
		SELECT
			COALESCE((SELECT daily_sales FROM daily_sales WHERE date = $1), 0)::text,
			COALESCE((SELECT SUM(daily_sales) FROM daily_sales
				WHERE date_trunc('week', date::timestamp) = date_trunc('week', $1::timestamp)), 0)::text,
			COALESCE((SELECT SUM(daily_sales) FROM daily_sales
				WHERE date_trunc('month', date::timestamp) = date_trunc('month', $1::timestamp)), 0)::text,
			COALESCE((SELECT SUM(daily_sales) FROM daily_sales
				WHERE date_trunc('year', date::timestamp) = date_trunc('year', $1::timestamp)), 0)::text
	`, day).Scan(&daily, &weekly, &monthly, &yearly)
	if err != nil {
		return domain.SalesSummary{}, fmt.Errorf("failed to query sales summary for %s: %w", day, err)
	}

	sum := domain.SalesSummary{Date: day}
	for i, pair := range []struct {
		raw string
		dst *decimal.Decimal
	}{
		{daily, &sum.Daily}, {weekly, &sum.Weekly}, {monthly, &sum.Monthly}, {yearly, &sum.Yearly},
	} {
		v, err := decimal.NewFromString(pair.raw)
		if err != nil {
			return domain.SalesSummary{}, fmt.Errorf("failed to parse sales total %d %q: %w", i, pair.raw, err)
		}
		*pair.dst = v
	}
	return sum, nil
}
