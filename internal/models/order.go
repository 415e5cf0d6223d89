package models

import "time"

// Order payment states. Pending is the only non-terminal state.
const (
	OrderPending   = "pending"
	OrderPaid      = "paid"
	OrderCancelled = "cancelled"
)

// Payment methods accepted at settlement.
const (
	PaymentQRIS    = "qris"
	PaymentBalance = "balance"
)

// Order links a buyer to a purchase intent. Orders are never deleted; they
// only move pending -> paid or pending -> cancelled.
type Order struct {
	ID            string    `json:"id"`
	BuyerID       string    `json:"buyer_id"`
	BuyerName     string    `json:"buyer_name"`
	BuyerUsername string    `json:"buyer_username,omitempty"`
	PackageType   string    `json:"package_type"`
	Price         int64     `json:"price"`
	PaymentStatus string    `json:"payment_status"`
	AccountSent   bool      `json:"account_sent"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
