package utils

import (
	"time"

	"github.com/gymease/backend/models"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// DiscountAmount is base * percent / 100, rounded half up to two decimal places
func DiscountAmount(base, percent decimal.Decimal) decimal.Decimal {
	return base.Mul(percent).Div(hundred).Round(2)
}

// EffectivePrice returns the price of base after applying promo. A nil promo leaves
// the price unchanged. The result is not clamped.
func EffectivePrice(base decimal.Decimal, promo *models.Promo) decimal.Decimal {
	if promo == nil {
		return base
	}
	return base.Sub(DiscountAmount(base, promo.DiscountPercent))
}

// RupiahAmount rounds a payable amount half up to whole rupiah. IDR has no minor
// unit and the QR providers only accept integral amounts.
func RupiahAmount(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(0)
}

// Window is a half-open range of calendar days [Start, End)
type Window struct {
	Start time.Time
	End   time.Time
}

// MembershipWindow starts on start's calendar day and ends durationDays later.
// A zero duration yields an empty window.
func MembershipWindow(start time.Time, durationDays int) Window {
	day := StartOfDay(start)
	return Window{Start: day, End: day.AddDate(0, 0, durationDays)}
}

// Contains reports whether t falls inside the window
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// Empty reports whether the window covers no time at all
func (w Window) Empty() bool {
	return !w.End.After(w.Start)
}

// Days is the window length in calendar days
func (w Window) Days() int {
	return int(w.End.Sub(w.Start).Hours() / 24)
}

// StartOfDay truncates t to midnight in its own location
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
