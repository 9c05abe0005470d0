package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// TransactionStatus is the payment state of a transaction
type TransactionStatus string

const (
	StatusUnpaid    TransactionStatus = "unpaid"
	StatusPaid      TransactionStatus = "paid"
	StatusExpired   TransactionStatus = "expired"
	StatusCancelled TransactionStatus = "cancelled"
)

func ParseTransactionStatus(s string) (TransactionStatus, bool) {
	st := TransactionStatus(s)
	switch st {
	case StatusUnpaid, StatusPaid, StatusExpired, StatusCancelled:
		return st, true
	case "pending", "PENDING":
		return StatusUnpaid, true
	case "PAID":
		return StatusPaid, true
	case "EXPIRED":
		return StatusExpired, true
	case "CANCELLED":
		return StatusCancelled, true
	}
	return "", false
}

// Transaction is the purchase of a product by a member.
// TotalAmount is computed once at creation and never recomputed.
type Transaction struct {
	gorm.Model
	Code            string            `gorm:"uniqueIndex;not null" json:"code"`
	MemberID        uint              `gorm:"not null;index" json:"member_id"`
	Member          *User             `gorm:"foreignKey:MemberID" json:"member,omitempty"`
	ProductID       uint              `gorm:"not null;index" json:"product_id"`
	Product         *Product          `json:"product,omitempty"`
	PromoID         *uint             `json:"promo_id"`
	Promo           *Promo            `json:"promo,omitempty"`
	TrainerID       *uint             `json:"trainer_id"`
	Trainer         *User             `gorm:"foreignKey:TrainerID" json:"trainer,omitempty"`
	SlotID          *uint             `json:"slot_id"`
	Slot            *TrainerSlot      `gorm:"foreignKey:SlotID" json:"slot,omitempty"`
	BasePrice       decimal.Decimal   `gorm:"type:decimal(12,2);not null" json:"base_price"`
	DiscountPercent decimal.Decimal   `gorm:"type:decimal(5,2);not null;default:0" json:"discount_percent"`
	TotalAmount     decimal.Decimal   `gorm:"type:decimal(12,2);not null" json:"total_amount"`
	Status          TransactionStatus `gorm:"type:varchar(16);not null;index;default:unpaid" json:"status"`
	MembershipStart time.Time         `gorm:"not null" json:"membership_start"`
	MembershipEnd   time.Time         `gorm:"not null" json:"membership_end"`
	ExpiresAt       time.Time         `gorm:"index" json:"expires_at"`
	PaidAt          *time.Time        `json:"paid_at,omitempty"`

	PaymentProvider string `json:"payment_provider,omitempty"`
	PaymentQRID     string `gorm:"index" json:"payment_qr_id,omitempty"`
	PaymentQRString string `json:"payment_qr_string,omitempty"`
	PaymentQRURL    string `json:"payment_qr_url,omitempty"`
}

// HasQR reports whether a payment QR has been attached
func (t Transaction) HasQR() bool {
	return t.PaymentQRID != ""
}

// MembershipHistory is the realised membership window of a paid transaction
type MembershipHistory struct {
	ID            uint         `gorm:"primaryKey" json:"id"`
	MemberID      uint         `gorm:"not null;index" json:"member_id"`
	Member        *User        `gorm:"foreignKey:MemberID" json:"member,omitempty"`
	TransactionID uint         `gorm:"uniqueIndex;not null" json:"transaction_id"`
	Transaction   *Transaction `json:"transaction,omitempty"`
	StartDate     time.Time    `gorm:"not null" json:"start_date"`
	EndDate       time.Time    `gorm:"not null" json:"end_date"`
	IsActive      bool         `gorm:"not null" json:"is_active"`
	CreatedAt     time.Time    `json:"created_at"`
}
