package models

import (
	"time"
)

// Status order dan pembayaran yang dikirim Remote Service
const (
	OrderStatusPending   = "PENDING"
	OrderStatusConfirmed = "CONFIRMED"
	OrderStatusPreparing = "PREPARING"
	OrderStatusReady     = "READY"
	OrderStatusCompleted = "COMPLETED"
	OrderStatusCancelled = "CANCELLED"

	PaymentStatusPending  = "PENDING"
	PaymentStatusPaid     = "PAID"
	PaymentStatusRejected = "REJECTED"
)

type Order struct {
	ID                string      `json:"id"`
	BusinessID        string      `json:"business_id"`
	Status            string      `json:"status"`
	PaymentStatus     string      `json:"payment_status"`
	PaymentReceiptURL string      `json:"payment_receipt_url,omitempty"`
	Items             []OrderItem `json:"items"`
	CreatedAt         time.Time   `json:"created_at"`
	UpdatedAt         time.Time   `json:"updated_at"`
}

// Clone -> salinan order dengan slice Items sendiri
func (o Order) Clone() Order {
	out := o
	if o.Items != nil {
		out.Items = make([]OrderItem, len(o.Items))
		copy(out.Items, o.Items)
	}
	return out
}
