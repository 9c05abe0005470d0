package models

import (
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// PackageTier is the fixed enumeration of membership packages
type PackageTier string

const (
	PackageBasic    PackageTier = "A"
	PackageStandard PackageTier = "B"
	PackagePremium  PackageTier = "C"
)

func (p PackageTier) Valid() bool {
	switch p {
	case PackageBasic, PackageStandard, PackagePremium:
		return true
	}
	return false
}

// Label returns the display name of the tier
func (p PackageTier) Label() string {
	switch p {
	case PackageBasic:
		return "Paket A - Basic"
	case PackageStandard:
		return "Paket B - Standard"
	case PackagePremium:
		return "Paket C - Premium"
	}
	return string(p)
}

// Product is a purchasable membership package
type Product struct {
	gorm.Model
	Tier         PackageTier                 `gorm:"type:varchar(1);not null" json:"tier"`
	Description  string                      `json:"description"`
	Price        decimal.Decimal             `gorm:"type:decimal(12,2);not null" json:"price"`
	DurationDays int                         `gorm:"not null" json:"duration_days"`
	IsActive     bool                        `gorm:"not null;index" json:"is_active"`
	Features     datatypes.JSONSlice[string] `json:"features"`
}
