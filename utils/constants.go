package utils

// Application constants
const (
	// Application name
	AppName = "GymEase"

	// API version
	APIVersion = "v1"

	// Default pagination limit
	DefaultPaginationLimit = 10

	// Maximum pagination limit
	MaxPaginationLimit = 100

	// Minimum password length
	MinPasswordLength = 6

	// bcrypt only reads the first 72 bytes
	MaxPasswordLength = 72

	// Transaction code suffix length
	TransactionCodeLength = 8

	// Member, trainer and promo code suffix length
	ProfileCodeLength = 6
)

// Error messages
const (
	ErrInvalidCredentials = "Invalid username or password"
	ErrAccountInactive    = "Your account is inactive"
	ErrInvalidToken       = "Invalid or expired token"
	ErrUnauthorized       = "Please login for access"
	MsgForbidden          = "Access forbidden"
	ErrInvalidID          = "Invalid ID"

	ErrRecordNotFound = "Record not found"
	ErrDuplicateEntry = "Duplicate entry"

	ErrInternalServer = "Internal server error"
)

// Success messages
const (
	MsgLoginSuccess    = "Login successful"
	MsgRegisterSuccess = "Registration successful"
	MsgCreateSuccess   = "Created successfully"
	MsgUpdateSuccess   = "Updated successfully"
	MsgDeleteSuccess   = "Deleted successfully"
	MsgFetchSuccess    = "Retrieved successfully"
)
