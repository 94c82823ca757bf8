package notification

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type Type string

const (
	TypeOrderConfirmation Type = "order_confirmation"
	TypeOrderUpdate       Type = "order_update"
	TypeAdminNotification Type = "admin_notification"
)

func (t Type) valid() bool {
	switch t {
	case TypeOrderConfirmation, TypeOrderUpdate, TypeAdminNotification:
		return true
	}
	return false
}

// Priority tiers dispatch in ascending order.
type Priority int

const (
	PriorityHigh Priority = iota
	PriorityNormal
	PriorityLow
)

func (p Priority) String() string {
	switch p {
	case PriorityHigh:
		return "high"
	case PriorityNormal:
		return "normal"
	case PriorityLow:
		return "low"
	}
	return fmt.Sprintf("priority(%d)", int(p))
}

func (p Priority) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

// Task is one pending delivery. It leaves the queue on success or once
// Attempts reaches MaxAttempts.
type Task struct {
	ID           string     `json:"id"`
	Type         Type       `json:"type"`
	Payload      any        `json:"payload"`
	Priority     Priority   `json:"priority"`
	Attempts     int        `json:"attempts"`
	MaxAttempts  int        `json:"maxAttempts"`
	ScheduledFor *time.Time `json:"scheduledFor,omitempty"`
	LastError    string     `json:"lastError,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`

	seq uint64
}

// visible reports whether the dispatcher may pick the task at now.
func (t *Task) visible(now time.Time) bool {
	if t.Attempts >= t.MaxAttempts {
		return false
	}
	return t.ScheduledFor == nil || !t.ScheduledFor.After(now)
}

// OrderConfirmation is sent to the customer once an order is committed.
type OrderConfirmation struct {
	OrderNumber   string          `json:"orderNumber"`
	CustomerEmail string          `json:"customerEmail"`
	CustomerName  string          `json:"customerName"`
	Items         []LineSummary   `json:"items"`
	Total         decimal.Decimal `json:"total"`
	Currency      string          `json:"currency"`
}

type LineSummary struct {
	Title     string          `json:"title"`
	Quantity  int             `json:"quantity"`
	LineTotal decimal.Decimal `json:"lineTotal"`
}

// OrderUpdate tells the customer about a fulfillment status change.
type OrderUpdate struct {
	OrderNumber   string `json:"orderNumber"`
	CustomerEmail string `json:"customerEmail"`
	Status        string `json:"status"`
}

// AdminNotification goes to the store administrator.
type AdminNotification struct {
	Subject string `json:"subject"`
	Message string `json:"message"`
}
