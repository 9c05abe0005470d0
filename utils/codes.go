package utils

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Code prefixes of human readable identifiers
const (
	TransactionCodePrefix = "TRX"
	MemberCodePrefix      = "MBR"
	TrainerCodePrefix     = "PT"
	PromoCodePrefix       = "PROMO"

	maxCodeAttempts = 5
)

// ErrCodeExhausted is returned when every generated code collided with an existing row
var ErrCodeExhausted = errors.New("could not generate a unique code")

// GenerateCode returns prefix followed by n random upper-case hex characters
func GenerateCode(prefix string, n int) string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	if n > len(hex) {
		n = len(hex)
	}
	return prefix + strings.ToUpper(hex[:n])
}

var generateCode = GenerateCode

// UniqueCode generates codes until one is not present in table.column.
// The column must also carry a unique index; this only makes collisions rare.
func UniqueCode(db *gorm.DB, table, column, prefix string, n int) (string, error) {
	for i := 0; i < maxCodeAttempts; i++ {
		code := generateCode(prefix, n)

		var count int64
		if err := db.Table(table).Where(fmt.Sprintf("%s = ?", column), code).Count(&count).Error; err != nil {
			return "", err
		}
		if count == 0 {
			return code, nil
		}
		LogDebug("Code collision on %s.%s: %s", table, column, code)
	}
	return "", ErrCodeExhausted
}
