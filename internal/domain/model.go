package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// JugStatus is the delivery-cycle state of a water-jug order.
type JugStatus string

const (
	JugPickedUp     JugStatus = "picked_up"
	JugTransporting JugStatus = "transporting"
	JugDelivered    JugStatus = "delivered"
	JugRefilling    JugStatus = "refilling"
)

func (s JugStatus) Valid() bool {
	switch s {
	case JugPickedUp, JugTransporting, JugDelivered, JugRefilling:
		return true
	}
	return false
}

func (s JugStatus) Label() string {
	switch s {
	case JugPickedUp:
		return "Picked Up"
	case JugTransporting:
		return "Transporting"
	case JugDelivered:
		return "Delivered"
	case JugRefilling:
		return "Refilling"
	}
	return string(s)
}

type Position string

const (
	PositionAdmin   Position = "admin"
	PositionManager Position = "manager"
	PositionStaff   Position = "staff"
	PositionDriver  Position = "driver"
)

func (p Position) Valid() bool {
	switch p {
	case PositionAdmin, PositionManager, PositionStaff, PositionDriver:
		return true
	}
	return false
}

type Customer struct {
	ID        int64           `json:"id"`
	Name      string          `json:"name"`
	Phone     string          `json:"phone"`
	Address   string          `json:"address"`
	JugTag    string          `json:"jug_tag"`
	AmountDue decimal.Decimal `json:"amount_due"`
	CreatedAt time.Time       `json:"created_at"`
}

type Staff struct {
	ID       int64    `json:"id"`
	Name     string   `json:"name"`
	Phone    string   `json:"phone"`
	Position Position `json:"position"`
	IsActive bool     `json:"is_active"`
}

func (s Staff) IsDriver() bool { return s.Position == PositionDriver }

type Order struct {
	ID             int64           `json:"id"`
	CustomerID     int64           `json:"customer_id"`
	OrderDate      time.Time       `json:"order_date"`
	Amount         decimal.Decimal `json:"amount"`
	Paid           bool            `json:"paid"`
	JugStatus      JugStatus       `json:"jug_status"`
	AssignedDriver *int64          `json:"assigned_driver,omitempty"`
}

// Sales holds the derived per-date total of paid orders.
type Sales struct {
	Date       time.Time       `json:"date"`
	DailySales decimal.Decimal `json:"daily_sales"`
}

type SalesSummary struct {
	Date    string          `json:"date"`
	Daily   decimal.Decimal `json:"daily_sales"`
	Weekly  decimal.Decimal `json:"weekly_sales"`
	Monthly decimal.Decimal `json:"monthly_sales"`
	Yearly  decimal.Decimal `json:"yearly_sales"`
}
