package services

import (
	"errors"
	"strings"

	"github.com/gymease/backend/utils"
	"gorm.io/gorm"
)

// lookupError turns a failed First into a 404 for missing rows and passes anything else through
func lookupError(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return utils.NotFoundError(what+" not found", nil)
	}
	return utils.WrapError(err, "failed to load "+strings.ToLower(what))
}

// isUniqueViolation recognises duplicate key errors from both postgres and sqlite
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "unique constraint")
}
