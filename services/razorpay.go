package services

import (
	"context"
	"time"

	"github.com/razorpay/razorpay-go"
	"github.com/shopspring/decimal"
)

// RazorpayQRProvider creates single-use UPI QR codes with the Razorpay SDK
type RazorpayQRProvider struct {
	client *razorpay.Client
}

func NewRazorpayQRProvider(key, secret string) *RazorpayQRProvider {
	return &RazorpayQRProvider{client: razorpay.NewClient(key, secret)}
}

func (p *RazorpayQRProvider) Name() string {
	return "razorpay"
}

// toPaise converts a major-unit amount to the integer minor unit Razorpay expects
func toPaise(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// CreateQR runs the blocking SDK call in a goroutine so ctx can abandon it
func (p *RazorpayQRProvider) CreateQR(ctx context.Context, req QRRequest) (*QRCode, error) {
	data := map[string]interface{}{
		"type":           "upi_qr",
		"name":           req.ReferenceID,
		"usage":          "single_use",
		"fixed_amount":   true,
		"payment_amount": toPaise(req.Amount),
		"description":    req.Description,
		"notes": map[string]interface{}{
			"reference_id": req.ReferenceID,
		},
	}
	if !req.ExpiresAt.IsZero() {
		data["close_by"] = req.ExpiresAt.Unix()
	}

	type result struct {
		body map[string]interface{}
		err  error
	}
	done := make(chan result, 1)
	go func() {
		body, err := p.client.QrCode.Create(data, nil)
		done <- result{body, err}
	}()

	var res result
	select {
	case <-ctx.Done():
		return nil, qrError(p.Name(), "request abandoned: %v", ctx.Err())
	case res = <-done:
	}
	if res.err != nil {
		return nil, qrError(p.Name(), "create qr: %v", res.err)
	}

	id := stringField(res.body, "id")
	if id == "" {
		return nil, qrError(p.Name(), "response missing id")
	}
	qr := &QRCode{
		ID:       id,
		ImageURL: stringField(res.body, "image_url"),
		Status:   stringField(res.body, "status"),
	}
	if closeBy, ok := res.body["close_by"].(float64); ok && closeBy > 0 {
		qr.ExpiresAt = time.Unix(int64(closeBy), 0)
	}
	return qr, nil
}

func stringField(body map[string]interface{}, key string) string {
	s, _ := body[key].(string)
	return s
}
