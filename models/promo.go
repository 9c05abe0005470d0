package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Promo is a percentage discount on one product, valid inside [StartDate, EndDate]
type Promo struct {
	gorm.Model
	Code            string          `gorm:"uniqueIndex;not null" json:"code"`
	Name            string          `gorm:"not null" json:"name"`
	Description     string          `json:"description"`
	DiscountPercent decimal.Decimal `gorm:"type:decimal(5,2);not null" json:"discount_percent"`
	StartDate       time.Time       `gorm:"not null" json:"start_date"`
	EndDate         time.Time       `gorm:"not null" json:"end_date"`
	ProductID       uint            `gorm:"not null;index" json:"product_id"`
	Product         *Product        `json:"product,omitempty"`
	IsActive        bool            `gorm:"not null" json:"is_active"`
}

// AppliesAt reports whether the promo is active and t falls on a day inside its window.
// Both window ends are inclusive calendar days in t's location.
func (p Promo) AppliesAt(t time.Time) bool {
	if !p.IsActive {
		return false
	}
	day := truncateDay(t)
	return !day.Before(truncateDay(p.StartDate.In(t.Location()))) &&
		!day.After(truncateDay(p.EndDate.In(t.Location())))
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
