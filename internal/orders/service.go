// Package orders owns the order mutations that feed the notification
// core: every create, update and delete runs transition detection and
// the ledger inside its own transaction, then fans the detected events
// out to subscribers after commit.
package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"water-delivery-system/internal/common/logger"
	"water-delivery-system/internal/domain"
	"water-delivery-system/internal/ledger"
	"water-delivery-system/internal/transition"
)

// notifyBudget bounds the detached dispatch of one event after commit.
const notifyBudget = 15 * time.Second

type Ledger interface {
	Apply(ctx context.Context, tx ledger.Tx, ev domain.Event) error
}

type Dispatcher interface {
	Dispatch(ctx context.Context, ev domain.Event) (domain.DeliveryReport, error)
}

type CreateOrderRequest struct {
	CustomerID     int64            `json:"customer_id"`
	Amount         decimal.Decimal  `json:"amount"`
	Paid           bool             `json:"paid"`
	JugStatus      domain.JugStatus `json:"jug_status"`
	AssignedDriver *int64           `json:"assigned_driver"`
}

// UpdateOrderRequest carries only the mutable fields; nil means "leave
// as is". The monetary amount is immutable after creation so the ledger
// contribution of an order never changes shape mid-life.
type UpdateOrderRequest struct {
	Paid           *bool             `json:"paid"`
	JugStatus      *domain.JugStatus `json:"jug_status"`
	AssignedDriver *int64            `json:"assigned_driver"`
}

type Service struct {
	repo   Repository
	ledger Ledger
	disp   Dispatcher
	lg     *logger.Logger
}

func NewService(repo Repository, led Ledger, disp Dispatcher, lg *logger.Logger) *Service {
	return &Service{repo: repo, ledger: led, disp: disp, lg: lg}
}

func (s *Service) Create(ctx context.Context, req CreateOrderRequest) (domain.Order, error) {
	if !req.Amount.IsPositive() {
		return domain.Order{}, fmt.Errorf("order amount must be greater than zero: %w", domain.ErrInvalid)
	}
	status := req.JugStatus
	if status == "" {
		status = domain.JugPickedUp
	}
	if !status.Valid() {
		return domain.Order{}, fmt.Errorf("unknown jug status %q: %w", req.JugStatus, domain.ErrInvalid)
	}
	if _, err := s.repo.GetCustomer(ctx, req.CustomerID); err != nil {
		return domain.Order{}, fmt.Errorf("customer %d: %w", req.CustomerID, err)
	}
	if err := s.checkDriver(ctx, req.AssignedDriver); err != nil {
		return domain.Order{}, err
	}

	o := domain.Order{
		CustomerID:     req.CustomerID,
		OrderDate:      time.Now().UTC(),
		Amount:         req.Amount,
		Paid:           req.Paid,
		JugStatus:      status,
		AssignedDriver: req.AssignedDriver,
	}

	var events []domain.Event
	err := s.repo.InTx(ctx, func(tx pgx.Tx) error {
		if err := s.repo.Insert(ctx, tx, &o); err != nil {
			return err
		}
		evs, err := transition.Detect(nil, &o)
		if err != nil {
			return err
		}
		for _, ev := range evs {
			if err := s.ledger.Apply(ctx, tx, ev); err != nil {
				return err
			}
		}
		events = evs
		return nil
	})
	if err != nil {
		return domain.Order{}, fmt.Errorf("failed to create order: %w", err)
	}

	s.notify(events)
	return o, nil
}

func (s *Service) Update(ctx context.Context, id int64, req UpdateOrderRequest) (domain.Order, error) {
	if req.JugStatus != nil && !req.JugStatus.Valid() {
		return domain.Order{}, fmt.Errorf("unknown jug status %q: %w", *req.JugStatus, domain.ErrInvalid)
	}
	if err := s.checkDriver(ctx, req.AssignedDriver); err != nil {
		return domain.Order{}, err
	}

	var (
		updated domain.Order
		events  []domain.Event
	)
	err := s.repo.InTx(ctx, func(tx pgx.Tx) error {
		old, err := s.repo.GetForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}

		updated = *old
		if req.Paid != nil {
			updated.Paid = *req.Paid
		}
		if req.JugStatus != nil {
			updated.JugStatus = *req.JugStatus
		}
		if req.AssignedDriver != nil {
			updated.AssignedDriver = req.AssignedDriver
		}

		if err := s.repo.Update(ctx, tx, &updated); err != nil {
			return err
		}
		evs, err := transition.Detect(old, &updated)
		if err != nil {
			return err
		}
		for _, ev := range evs {
			if err := s.ledger.Apply(ctx, tx, ev); err != nil {
				return err
			}
		}
		events = evs
		return nil
	})
	if err != nil {
		return domain.Order{}, fmt.Errorf("failed to update order %d: %w", id, err)
	}

	s.notify(events)
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	var events []domain.Event
	err := s.repo.InTx(ctx, func(tx pgx.Tx) error {
		old, err := s.repo.GetForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := s.repo.Delete(ctx, tx, id); err != nil {
			return err
		}
		evs, err := transition.Detect(old, nil)
		if err != nil {
			return err
		}
		for _, ev := range evs {
			if err := s.ledger.Apply(ctx, tx, ev); err != nil {
				return err
			}
		}
		events = evs
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete order %d: %w", id, err)
	}

	s.notify(events)
	return nil
}

func (s *Service) Get(ctx context.Context, id int64) (*domain.Order, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) ListByCustomer(ctx context.Context, customerID int64, limit, offset int) ([]domain.Order, error) {
	return s.repo.ListByCustomer(ctx, customerID, limit, offset)
}

func (s *Service) GetCustomer(ctx context.Context, id int64) (*domain.Customer, error) {
	return s.repo.GetCustomer(ctx, id)
}

func (s *Service) SalesSummary(ctx context.Context, date time.Time) (domain.SalesSummary, error) {
	return s.repo.SalesSummary(ctx, date)
}

// notify dispatches each event on its own goroutine, detached from the
// request context. Notification delivery is best-effort; it never fails
// the mutation that already committed.
func (s *Service) notify(events []domain.Event) {
	for _, ev := range events {
		ev := ev
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), notifyBudget)
			defer cancel()
			if _, err := s.disp.Dispatch(ctx, ev); err != nil {
				s.lg.Error("notify_dispatch_failed", err, map[string]any{
					"kind": string(ev.Kind), "order_id": ev.Order.ID,
				})
			}
		}()
	}
}

func (s *Service) checkDriver(ctx context.Context, driverID *int64) error {
	if driverID == nil {
		return nil
	}
	st, err := s.repo.GetStaff(ctx, *driverID)
	if err != nil {
		return fmt.Errorf("driver %d: %w", *driverID, err)
	}
	if !st.IsDriver() || !st.IsActive {
		return fmt.Errorf("staff %d is not an active driver: %w", *driverID, domain.ErrInvalid)
	}
	return nil
}
