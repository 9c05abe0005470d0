package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gymease/backend/config"
	"github.com/shopspring/decimal"
)

// ErrQRUnavailable wraps every failure to obtain a payment QR from a provider
var ErrQRUnavailable = errors.New("payment qr unavailable")

// QRRequest asks a provider for a single-use QR worth Amount
type QRRequest struct {
	ReferenceID string
	Amount      decimal.Decimal
	Description string
	ExpiresAt   time.Time
}

// QRCode is what a provider hands back for a QRRequest
type QRCode struct {
	ID        string
	QRString  string
	ImageURL  string
	Status    string
	ExpiresAt time.Time
}

// QRProvider mints payment QR codes
type QRProvider interface {
	Name() string
	CreateQR(ctx context.Context, req QRRequest) (*QRCode, error)
}

// NewQRProvider builds the provider selected by PAYMENT_PROVIDER
func NewQRProvider(cfg *config.Config) (QRProvider, error) {
	switch cfg.Payment.Provider {
	case "xendit":
		return NewXenditQRProvider(cfg.Payment.XenditBaseURL, cfg.Payment.XenditSecretKey, cfg.Payment.Timeout), nil
	case "razorpay":
		return NewRazorpayQRProvider(cfg.Payment.RazorpayKey, cfg.Payment.RazorpaySecret), nil
	}
	return nil, fmt.Errorf("unknown payment provider %q", cfg.Payment.Provider)
}

func qrError(provider string, format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s: %s", ErrQRUnavailable, provider, fmt.Sprintf(format, args...))
}
