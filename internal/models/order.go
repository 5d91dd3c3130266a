package models

import (
	"time"
)

// Order status values
const (
	OrderInitiated = "initiated"
	OrderPending   = "pending"
	OrderSuccess   = "success"
	OrderFailed    = "failed"
	OrderRefunded  = "refunded"
)

var orderTransitions = map[string][]string{
	OrderInitiated: {OrderPending, OrderSuccess, OrderFailed},
	OrderPending:   {OrderSuccess, OrderFailed},
	OrderSuccess:   {OrderRefunded},
}

// CanTransition reports whether an order may move from one status to another.
// Progress is monotonic: terminal states never return to a non-terminal one.
func CanTransition(from, to string) bool {
	for _, next := range orderTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminalOrderStatus reports whether no further gateway outcome can change the order
func IsTerminalOrderStatus(status string) bool {
	return status == OrderSuccess || status == OrderFailed || status == OrderRefunded
}

// Order is one payment attempt
type Order struct {
	BaseModel
	UserID                uint       `json:"-" gorm:"not null;index"`
	MerchantTransactionID string     `json:"merchant_transaction_id" gorm:"size:100;uniqueIndex;not null"`
	Plan                  string     `json:"plan" gorm:"size:20;not null"`
	Amount                int        `json:"amount" gorm:"not null"` // rupees, from the plan catalogue
	MobileNumber          string     `json:"-" gorm:"size:20"`
	Status                string     `json:"status" gorm:"size:20;not null;index"`
	GatewayOrderID        string     `json:"gateway_order_id,omitempty" gorm:"size:100"`
	GatewayState          string     `json:"gateway_state,omitempty" gorm:"size:30"`
	FailureReason         string     `json:"failure_reason,omitempty" gorm:"type:text"`
	RedirectURL           string     `json:"-" gorm:"type:text"`
	LedgerAppliedAt       *time.Time `json:"ledger_applied_at,omitempty"`

	WebhookEvents []WebhookEvent `json:"-" gorm:"foreignKey:OrderID"`
}

// TableName avoids the reserved word "order"
func (Order) TableName() string {
	return "payment_order"
}

// WebhookEvent is the per-order idempotency log of gateway callbacks
type WebhookEvent struct {
	ID          uint       `json:"id" gorm:"primaryKey"`
	OrderID     uint       `json:"order_id" gorm:"not null;uniqueIndex:idx_webhook_order_event"`
	EventType   string     `json:"event_type" gorm:"size:50;not null;uniqueIndex:idx_webhook_order_event"`
	Processed   bool       `json:"processed"`
	ProcessedAt *time.Time `json:"processed_at"`
	Payload     string     `json:"-" gorm:"type:text"`
	CreatedAt   time.Time  `json:"created_at" gorm:"autoCreateTime"`
}
