// Package ledger keeps the derived aggregates — per-customer amount_due
// and per-date daily_sales — consistent with the order set. All writes
// run inside the caller's transaction, so a failed mutation rolls the
// aggregates back together with the order itself.
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"water-delivery-system/internal/common/logger"
	"water-delivery-system/internal/domain"
)

// Tx is the slice of pgx.Tx the ledger needs. Narrowed to an interface
// so the arithmetic can be exercised against a recording fake.
type Tx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Ledger struct {
	lg *logger.Logger
}

func New(lg *logger.Logger) *Ledger { return &Ledger{lg: lg} }

// Apply folds one detected event into the aggregates.
//
// amount_due moves incrementally under a customer row lock, clamped at
// zero. daily_sales is never adjusted incrementally: the affected date is
// recomputed by full resummation of paid orders, which is idempotent and
// self-heals any drift from earlier out-of-order writes.
func (l *Ledger) Apply(ctx context.Context, tx Tx, ev domain.Event) error {
	switch ev.Kind {
	case domain.EventOrderCreated:
		// A paid-at-creation order is settled by the paired
		// paid-status event; only unpaid creations owe anything.
		if ev.Order.Paid {
			return nil
		}
		return l.adjustAmountDue(ctx, tx, ev.Order.CustomerID, ev.Order.Amount)

	case domain.EventPaidStatusChanged:
		delta := ev.Order.Amount
		if ev.PaidTo {
			delta = delta.Neg()
		}
		if err := l.adjustAmountDue(ctx, tx, ev.Order.CustomerID, delta); err != nil {
			return err
		}
		return l.resumDailySales(ctx, tx, ev.Order.OrderDate)

	case domain.EventJugStatusChanged:
		// delivery progress has no monetary effect
		return nil

	case domain.EventOrderDeleted:
		if ev.Order.Paid {
			return l.resumDailySales(ctx, tx, ev.Order.OrderDate)
		}
		return l.adjustAmountDue(ctx, tx, ev.Order.CustomerID, ev.Order.Amount.Neg())
	}
	return fmt.Errorf("ledger: unknown event kind %q: %w", ev.Kind, domain.ErrPrecondition)
}

func (l *Ledger) adjustAmountDue(ctx context.Context, tx Tx, customerID int64, delta decimal.Decimal) error {
	var raw string
	err := tx.QueryRow(ctx,
		`SELECT amount_due::text FROM customers WHERE id = $1 FOR UPDATE`,
		customerID).Scan(&raw)
	if err != nil {
		return fmt.Errorf("failed to lock customer %d: %w", customerID, err)
	}
	due, err := decimal.NewFromString(raw)
	if err != nil {
		return fmt.Errorf("failed to parse amount_due %q: %w", raw, err)
	}

	due = due.Add(delta)
	if due.IsNegative() {
		due = decimal.Zero
	}
	if _, err := tx.Exec(ctx,
		`UPDATE customers SET amount_due = $2 WHERE id = $1`,
		customerID, due); err != nil {
		return fmt.Errorf("failed to update amount_due for customer %d: %w", customerID, err)
	}
	return nil
}

func (l *Ledger) resumDailySales(ctx context.Context, tx Tx, day time.Time) error {
	date := day.UTC().Format("2006-01-02")

	// Lock order matters: take the date row first, then resum. A
	// concurrent flip on the same date blocks here until this
	// transaction commits, and its own resummation then reads the
	// committed order rows — no lost update.
	if _, err := tx.Exec(ctx, `
		INSERT INTO daily_sales (date, daily_sales)
		VALUES ($1, 0)
		ON CONFLICT (date) DO NOTHING
	`, date); err != nil {
		return fmt.Errorf("failed to ensure daily_sales row for %s: %w", date, err)
	}
	var current string
	if err := tx.QueryRow(ctx,
		`SELECT daily_sales::text FROM daily_sales WHERE date = $1 FOR UPDATE`,
		date).Scan(&current); err != nil {
		return fmt.Errorf("failed to lock daily_sales row for %s: %w", date, err)
	}

	var total string
	if err := tx.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount), 0)::text
		FROM orders
		WHERE paid = TRUE AND order_date::date = $1
	`, date).Scan(&total); err != nil {
		return fmt.Errorf("failed to resum daily sales for %s: %w", date, err)
	}
	if _, err := tx.Exec(ctx,
		`UPDATE daily_sales SET daily_sales = $2 WHERE date = $1`,
		date, total); err != nil {
		return fmt.Errorf("failed to update daily_sales for %s: %w", date, err)
	}
	l.lg.Debug("daily_sales_recomputed", map[string]any{"date": date, "total": total})
	return nil
}
