// Package testutil builds throwaway databases, fixtures and requests for package tests.
package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/gymease/backend/config"
	"github.com/gymease/backend/models"
	"github.com/gymease/backend/utils"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var dbCounter int64

// NewTestDB opens a private in-memory SQLite database with the full schema
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := fmt.Sprintf("file:gymease_test_%d?mode=memory&cache=shared", atomic.AddInt64(&dbCounter, 1))
	db, err := gorm.Open(sqlite.Open(name), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, config.Migrate(db))
	return db
}

// TestConfig returns a configuration suitable for tests: UTC, fast retries, no email
func TestConfig() *config.Config {
	return &config.Config{
		Env:            "test",
		TimeZone:       "UTC",
		JWTSecret:      "test-secret",
		TokenTTL:       time.Hour,
		AllowedOrigins: []string{"http://localhost:3000"},
		Payment: config.PaymentConfig{
			Provider:            "xendit",
			Timeout:             2 * time.Second,
			UnpaidTTL:           24 * time.Hour,
			XenditCallbackToken: "callback-token",
		},
		Jobs: config.JobsConfig{
			OutboxInterval:    time.Second,
			OutboxMaxAttempts: 3,
			OutboxBatchSize:   10,
			OutboxLease:       time.Minute,
			RetryAttempts:     1,
			RetryDelay:        time.Millisecond,
			RetryMaxDelay:     time.Millisecond,
			ExpiryInterval:    time.Minute,
		},
	}
}

// CreateUser stores an active user of role with password "secret123"
func CreateUser(t *testing.T, db *gorm.DB, username string, role models.Role) *models.User {
	t.Helper()

	hashed, err := utils.HashPassword("secret123")
	require.NoError(t, err)

	user := &models.User{
		Username:  username,
		Email:     username + "@example.com",
		Password:  hashed,
		FirstName: utils.Title(username),
		IsActive:  true,
		Profile: models.Profile{
			Role:    role,
			Phone:   "6281234567890",
			Address: "Jl. Merdeka 1",
			City:    "Bandung",
		},
	}
	switch role {
	case models.RoleMember:
		code := utils.GenerateCode(utils.MemberCodePrefix, utils.ProfileCodeLength)
		user.Profile.MemberCode = &code
	case models.RoleTrainer:
		code := utils.GenerateCode(utils.TrainerCodePrefix, utils.ProfileCodeLength)
		user.Profile.TrainerCode = &code
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

// CreateProduct stores an active package
func CreateProduct(t *testing.T, db *gorm.DB, tier models.PackageTier, price string, days int) *models.Product {
	t.Helper()

	product := &models.Product{
		Tier:         tier,
		Description:  tier.Label(),
		Price:        decimal.RequireFromString(price),
		DurationDays: days,
		IsActive:     true,
	}
	require.NoError(t, db.Create(product).Error)
	return product
}

// CreatePromo stores an active promo on product valid from start to end inclusive
func CreatePromo(t *testing.T, db *gorm.DB, product *models.Product, percent string, start, end time.Time) *models.Promo {
	t.Helper()

	promo := &models.Promo{
		Code:            utils.GenerateCode(utils.PromoCodePrefix, utils.ProfileCodeLength),
		Name:            "Promo " + percent + "%",
		DiscountPercent: decimal.RequireFromString(percent),
		StartDate:       start,
		EndDate:         end,
		ProductID:       product.ID,
		IsActive:        true,
	}
	require.NoError(t, db.Create(promo).Error)
	return promo
}

// CreateSlot stores an available slot for trainer
func CreateSlot(t *testing.T, db *gorm.DB, trainer *models.User, day models.Weekday, start, end string) *models.TrainerSlot {
	t.Helper()

	slot := &models.TrainerSlot{
		TrainerID:   trainer.ID,
		Day:         day,
		StartTime:   start,
		EndTime:     end,
		IsAvailable: true,
	}
	require.NoError(t, db.Create(slot).Error)
	return slot
}

// Token signs a bearer token for user
func Token(t *testing.T, cfg *config.Config, user *models.User) string {
	t.Helper()

	token, err := utils.GenerateToken(user, cfg.JWTSecret, cfg.TokenTTL)
	require.NoError(t, err)
	return token
}

// MakeTestRequest sends a JSON request through router. An empty token sends no Authorization header.
func MakeTestRequest(router http.Handler, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, _ := json.Marshal(b)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// Response is the decoded standard envelope
type Response struct {
	Status     string                 `json:"status"`
	Message    string                 `json:"message"`
	Data       json.RawMessage        `json:"data"`
	Pagination map[string]interface{} `json:"pagination"`
}

// Into decodes the data payload into v
func (r Response) Into(t *testing.T, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(r.Data, v), string(r.Data))
}

// DecodeResponse parses a recorder body as the standard envelope
func DecodeResponse(t *testing.T, w *httptest.ResponseRecorder) Response {
	t.Helper()

	var resp Response
	require.NoError(t, json.NewDecoder(strings.NewReader(w.Body.String())).Decode(&resp), w.Body.String())
	return resp
}

func init() {
	gin.SetMode(gin.TestMode)
}
