package utils

import (
	"fmt"
	"html"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// FieldValidationError represents a validation error for a specific field
type FieldValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// FieldValidationErrors represents multiple field validation errors
type FieldValidationErrors []FieldValidationError

// Error implements the error interface
func (e FieldValidationErrors) Error() string {
	var messages []string
	for _, err := range e {
		messages = append(messages, fmt.Sprintf("%s: %s", err.Field, err.Message))
	}
	return strings.Join(messages, "; ")
}

// Add appends a field error
func (e *FieldValidationErrors) Add(field, message string) {
	*e = append(*e, FieldValidationError{Field: field, Message: message})
}

// Required records an error for every blank value in fields, keyed by field name
func (e *FieldValidationErrors) Required(fields map[string]string) {
	for name, value := range fields {
		if strings.TrimSpace(value) == "" {
			e.Add(name, "is required")
		}
	}
}

// Err returns nil when no field failed, or a 422 AppError listing them
func (e FieldValidationErrors) Err() error {
	if len(e) == 0 {
		return nil
	}
	return ValidationFailedError("Validation failed", e)
}

var (
	usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_.]{3,30}$`)
	emailRegex    = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	htmlTagRegex  = regexp.MustCompile(`<[^>]*>`)
	clockRegex    = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)
)

// SanitizeString strips HTML tags and escapes what remains
func SanitizeString(input string) string {
	return html.EscapeString(htmlTagRegex.ReplaceAllString(strings.TrimSpace(input), ""))
}

// ValidateUsername checks if the username meets the requirements
func ValidateUsername(username string) (bool, string) {
	if !usernameRegex.MatchString(username) {
		return false, "Username must be 3-30 characters of letters, numbers, dots or underscores"
	}
	return true, ""
}

// ValidateEmail checks if the email is valid. Empty email is allowed.
func ValidateEmail(email string) (bool, string) {
	if email == "" {
		return true, ""
	}
	if !emailRegex.MatchString(email) {
		return false, "Invalid email format. Please enter a valid email address"
	}
	return true, ""
}

// NormalizePhone converts an Indonesian phone number to the 62xxxxxxxxx form
// the WhatsApp gateway expects
func NormalizePhone(phone string) (string, error) {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, phone)

	switch {
	case strings.HasPrefix(digits, "62"):
	case strings.HasPrefix(digits, "0"):
		digits = "62" + digits[1:]
	case strings.HasPrefix(digits, "8"):
		digits = "62" + digits
	default:
		return "", fmt.Errorf("phone number must start with 0, 8 or 62")
	}

	if len(digits) < 10 || len(digits) > 15 {
		return "", fmt.Errorf("phone number must have 10 to 15 digits")
	}
	return digits, nil
}

// ParseClock validates an HH:MM time of day
func ParseClock(s string) (time.Time, error) {
	if !clockRegex.MatchString(s) {
		return time.Time{}, fmt.Errorf("time must be in HH:MM format")
	}
	return time.Parse("15:04", s)
}

// ParseDate parses a YYYY-MM-DD date in loc
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02", s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("date must be in YYYY-MM-DD format")
	}
	return t, nil
}

// ValidatePrice rejects non-positive prices
func ValidatePrice(price decimal.Decimal) error {
	if !price.IsPositive() {
		return fmt.Errorf("price must be greater than 0")
	}
	return nil
}

// ValidateDiscountPercent accepts percentages in (0, 100]
func ValidateDiscountPercent(pct decimal.Decimal) error {
	if !pct.IsPositive() || pct.GreaterThan(decimal.NewFromInt(100)) {
		return fmt.Errorf("discount percentage must be between 0 and 100")
	}
	return nil
}

// ValidateStringLength validates string length
func ValidateStringLength(str string, min, max int) error {
	length := len(strings.TrimSpace(str))
	if length < min {
		return fmt.Errorf("must be at least %d characters long", min)
	}
	if length > max {
		return fmt.Errorf("must not exceed %d characters", max)
	}
	return nil
}
