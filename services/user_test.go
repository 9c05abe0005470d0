package services

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/gymease/backend/models"
	"github.com/gymease/backend/testutil"
	"github.com/gymease/backend/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memberInput(username string) UserInput {
	return UserInput{
		Username:   username,
		Password:   "secret123",
		Email:      strings.ToUpper(username) + "@Example.com",
		FirstName:  "andi",
		LastName:   "wijaya",
		Phone:      "0812-3456-7890",
		Address:    "Jl. Asia Afrika 8",
		City:       "bandung",
		PostalCode: "40111",
		BirthPlace: "garut",
		BirthDate:  "1995-04-12",
	}
}

func newUserService(t *testing.T) (*UserService, *fakeNotifier) {
	t.Helper()
	db := testutil.NewTestDB(t)
	cfg := testutil.TestConfig()
	wa := &fakeNotifier{channel: models.ChannelWhatsApp}
	return NewUserService(db, cfg, NewOutbox(db, cfg.Jobs, wa)), wa
}

func TestRegisterMember(t *testing.T) {
	svc, wa := newUserService(t)

	user, err := svc.Register(context.Background(), memberInput("andi"))
	require.NoError(t, err)

	assert.Equal(t, models.RoleMember, user.Profile.Role)
	require.NotNil(t, user.Profile.MemberCode)
	assert.Regexp(t, `^MBR[0-9A-F]{6}$`, *user.Profile.MemberCode)
	assert.Nil(t, user.Profile.TrainerCode)
	assert.Equal(t, "6281234567890", user.Profile.Phone)
	assert.Equal(t, "andi@example.com", user.Email)
	assert.Equal(t, "Andi Wijaya", user.FullName())
	assert.Equal(t, "Bandung", user.Profile.City)
	assert.NotEqual(t, "secret123", user.Password)

	sent := wa.messages()
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0].Body, *user.Profile.MemberCode)
}

func TestRegisterRejections(t *testing.T) {
	svc, _ := newUserService(t)
	ctx := context.Background()
	_, err := svc.Register(ctx, memberInput("andi"))
	require.NoError(t, err)

	_, err = svc.Register(ctx, memberInput("andi"))
	assert.True(t, utils.IsConflictError(err))

	in := memberInput("rudi")
	in.Role = "admin"
	_, err = svc.Register(ctx, in)
	assert.True(t, errors.Is(err, utils.ErrForbidden))

	in = memberInput("rudi")
	in.Phone = ""
	in.BirthDate = "12-04-1995"
	_, err = svc.Register(ctx, in)
	require.True(t, utils.IsValidationError(err))
	assert.Contains(t, err.Error(), "phone")
	assert.Contains(t, err.Error(), "birth_date")

	in = memberInput("rudi")
	in.Password = "123"
	_, err = svc.Register(ctx, in)
	assert.True(t, utils.IsValidationError(err))

	in = memberInput("rudi")
	in.Password = strings.Repeat("x", utils.MaxPasswordLength+1)
	_, err = svc.Register(ctx, in)
	require.True(t, utils.IsValidationError(err))
	assert.Contains(t, err.Error(), "password")
}

func TestCreateTrainer(t *testing.T) {
	svc, wa := newUserService(t)

	user, err := svc.CreateUser(context.Background(), UserInput{
		Username:         "coach_rina",
		Password:         "secret123",
		FirstName:        "rina",
		Role:             "personal trainer",
		Certification:    "ACE CPT",
		ExperienceMonths: 36,
	})
	require.NoError(t, err)
	assert.Equal(t, models.RoleTrainer, user.Profile.Role)
	require.NotNil(t, user.Profile.TrainerCode)
	assert.True(t, strings.HasPrefix(*user.Profile.TrainerCode, "PT"))
	assert.Nil(t, user.Profile.MemberCode)
	assert.Empty(t, wa.messages())

	_, err = svc.CreateUser(context.Background(), UserInput{Username: "x_user", Password: "secret123", FirstName: "x", Role: "owner"})
	assert.True(t, utils.IsValidationError(err))
}

func TestLogin(t *testing.T) {
	svc, _ := newUserService(t)
	ctx := context.Background()
	registered, err := svc.Register(ctx, memberInput("andi"))
	require.NoError(t, err)

	token, user, err := svc.Login(ctx, "andi", "secret123")
	require.NoError(t, err)
	assert.Equal(t, registered.ID, user.ID)
	assert.NotNil(t, user.LastLoginAt)

	claims, err := utils.ValidateToken(token, svc.cfg.JWTSecret)
	require.NoError(t, err)
	assert.Equal(t, registered.ID, claims.UserID)
	assert.Equal(t, models.RoleMember, claims.Role)

	_, _, err = svc.Login(ctx, "andi", "wrong-pass")
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, utils.GetAppError(err).Code)

	_, _, err = svc.Login(ctx, "nobody", "secret123")
	assert.Equal(t, http.StatusUnauthorized, utils.GetAppError(err).Code)

	inactive := false
	_, err = svc.Update(ctx, registered.ID, ProfileUpdate{IsActive: &inactive}, true)
	require.NoError(t, err)
	_, _, err = svc.Login(ctx, "andi", "secret123")
	assert.True(t, errors.Is(err, utils.ErrForbidden))
}

func TestUpdateProfile(t *testing.T) {
	svc, _ := newUserService(t)
	ctx := context.Background()
	user, err := svc.Register(ctx, memberInput("andi"))
	require.NoError(t, err)

	city := "jakarta selatan"
	phone := "+62 857 1111 2222"
	updated, err := svc.Update(ctx, user.ID, ProfileUpdate{City: &city, Phone: &phone}, false)
	require.NoError(t, err)
	assert.Equal(t, "Jakarta Selatan", updated.Profile.City)
	assert.Equal(t, "6285711112222", updated.Profile.Phone)

	reloaded, err := svc.Get(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Jakarta Selatan", reloaded.Profile.City)
	assert.Equal(t, *user.Profile.MemberCode, *reloaded.Profile.MemberCode)

	active := false
	_, err = svc.Update(ctx, user.ID, ProfileUpdate{IsActive: &active}, false)
	assert.True(t, errors.Is(err, utils.ErrForbidden))

	bad := "123"
	_, err = svc.Update(ctx, user.ID, ProfileUpdate{Phone: &bad}, false)
	assert.True(t, utils.IsValidationError(err))
}

func TestListDeleteAndStatistics(t *testing.T) {
	svc, _ := newUserService(t)
	ctx := context.Background()

	andi, err := svc.Register(ctx, memberInput("andi"))
	require.NoError(t, err)
	_, err = svc.Register(ctx, memberInput("budi"))
	require.NoError(t, err)
	testutil.CreateUser(t, svc.db, "coach", models.RoleTrainer)

	p := &utils.Pagination{Page: 1, Limit: 10}
	members, err := svc.List(ctx, UserFilter{Role: models.RoleMember}, p)
	require.NoError(t, err)
	assert.Len(t, members, 2)
	assert.EqualValues(t, 2, p.Total)

	p = &utils.Pagination{Page: 1, Limit: 10}
	found, err := svc.List(ctx, UserFilter{Search: "BUD"}, p)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "budi", found[0].Username)

	trainers, err := svc.Trainers(ctx)
	require.NoError(t, err)
	require.Len(t, trainers, 1)
	assert.Equal(t, models.RoleTrainer, trainers[0].Profile.Role)

	inactive := false
	_, err = svc.Update(ctx, andi.ID, ProfileUpdate{IsActive: &inactive}, true)
	require.NoError(t, err)
	stats, err := svc.MemberStatistics(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, stats.Total)
	assert.EqualValues(t, 1, stats.Active)
	assert.EqualValues(t, 1, stats.Inactive)

	require.NoError(t, svc.Delete(ctx, andi.ID))
	_, err = svc.Get(ctx, andi.ID)
	assert.True(t, utils.IsNotFoundError(err))

	var profiles int64
	require.NoError(t, svc.db.Model(&models.Profile{}).Where("user_id = ?", andi.ID).Count(&profiles).Error)
	assert.Zero(t, profiles)

	// usernames of deleted accounts stay reserved
	_, err = svc.Register(ctx, memberInput("andi"))
	assert.True(t, utils.IsConflictError(err))
}

func TestEnsureAdmin(t *testing.T) {
	svc, _ := newUserService(t)
	ctx := context.Background()

	require.NoError(t, svc.EnsureAdmin(ctx))
	var count int64
	require.NoError(t, svc.db.Model(&models.Profile{}).Where("role = ?", models.RoleAdmin).Count(&count).Error)
	assert.Zero(t, count)

	svc.cfg.AdminUsername = "admin"
	svc.cfg.AdminPassword = "supersecret"
	require.NoError(t, svc.EnsureAdmin(ctx))
	require.NoError(t, svc.EnsureAdmin(ctx))
	require.NoError(t, svc.db.Model(&models.Profile{}).Where("role = ?", models.RoleAdmin).Count(&count).Error)
	assert.EqualValues(t, 1, count)

	_, admin, err := svc.Login(ctx, "admin", "supersecret")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, admin.Profile.Role)
}
