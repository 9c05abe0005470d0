package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/gymease/backend/models"
	"github.com/gymease/backend/testutil"
	"github.com/gymease/backend/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupAuthRouter(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	db := testutil.NewTestDB(t)
	cfg := testutil.TestConfig()

	r := gin.New()
	auth := AuthMiddleware(cfg.JWTSecret, db)
	r.GET("/me", auth, func(c *gin.Context) {
		user, ok := CurrentUser(c)
		require.True(t, ok)
		utils.Success(c, "ok", gin.H{"username": user.Username, "role": Claims(c).Role})
	})
	r.GET("/admin", auth, RequireRoles(models.RoleAdmin), func(c *gin.Context) {
		utils.Success(c, "ok", nil)
	})
	r.GET("/staff", auth, RequireRoles(models.RoleAdmin, models.RoleTrainer), func(c *gin.Context) {
		utils.Success(c, "ok", nil)
	})
	return r, db
}

func TestAuthMiddleware(t *testing.T) {
	r, db := setupAuthRouter(t)
	cfg := testutil.TestConfig()
	member := testutil.CreateUser(t, db, "budi", models.RoleMember)
	token := testutil.Token(t, cfg, member)

	w := testutil.MakeTestRequest(r, http.MethodGet, "/me", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = testutil.MakeTestRequest(r, http.MethodGet, "/me", nil, "not-a-jwt")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = testutil.MakeTestRequest(r, http.MethodGet, "/me", nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	var data struct {
		Username string      `json:"username"`
		Role     models.Role `json:"role"`
	}
	testutil.DecodeResponse(t, w).Into(t, &data)
	assert.Equal(t, "budi", data.Username)
	assert.Equal(t, models.RoleMember, data.Role)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Token "+token)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Basic "+token)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthMiddlewareRejectsInactiveAndDeletedUsers(t *testing.T) {
	r, db := setupAuthRouter(t)
	cfg := testutil.TestConfig()

	inactive := testutil.CreateUser(t, db, "siti", models.RoleMember)
	require.NoError(t, db.Model(inactive).Update("is_active", false).Error)
	w := testutil.MakeTestRequest(r, http.MethodGet, "/me", nil, testutil.Token(t, cfg, inactive))
	assert.Equal(t, http.StatusForbidden, w.Code)

	gone := testutil.CreateUser(t, db, "rudi", models.RoleMember)
	token := testutil.Token(t, cfg, gone)
	require.NoError(t, db.Delete(gone).Error)
	w = testutil.MakeTestRequest(r, http.MethodGet, "/me", nil, token)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireRoles(t *testing.T) {
	r, db := setupAuthRouter(t)
	cfg := testutil.TestConfig()

	admin := testutil.CreateUser(t, db, "boss", models.RoleAdmin)
	trainer := testutil.CreateUser(t, db, "coach", models.RoleTrainer)
	member := testutil.CreateUser(t, db, "budi", models.RoleMember)

	assert.Equal(t, http.StatusOK, testutil.MakeTestRequest(r, http.MethodGet, "/admin", nil, testutil.Token(t, cfg, admin)).Code)
	w := testutil.MakeTestRequest(r, http.MethodGet, "/admin", nil, testutil.Token(t, cfg, trainer))
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), utils.MsgForbidden)
	assert.Equal(t, http.StatusOK, testutil.MakeTestRequest(r, http.MethodGet, "/staff", nil, testutil.Token(t, cfg, trainer)).Code)
	assert.Equal(t, http.StatusForbidden, testutil.MakeTestRequest(r, http.MethodGet, "/staff", nil, testutil.Token(t, cfg, member)).Code)

	// a token claiming a stronger role than the stored one is not trusted
	forged := *member
	forged.Profile.Role = models.RoleAdmin
	assert.Equal(t, http.StatusForbidden, testutil.MakeTestRequest(r, http.MethodGet, "/admin", nil, testutil.Token(t, cfg, &forged)).Code)
}
