package services

import (
	"context"
	"strings"
	"time"

	"github.com/gymease/backend/config"
	"github.com/gymease/backend/models"
	"github.com/gymease/backend/utils"
	"gorm.io/gorm"
)

// UserInput carries the account and profile fields of a new user
type UserInput struct {
	Username         string
	Password         string
	Email            string
	FirstName        string
	LastName         string
	Role             string
	Phone            string
	Address          string
	City             string
	PostalCode       string
	BirthPlace       string
	BirthDate        string
	Gender           string
	Certification    string
	ExperienceMonths int
}

// ProfileUpdate changes the editable fields of a user. Nil fields are left alone.
type ProfileUpdate struct {
	Email            *string
	FirstName        *string
	LastName         *string
	Password         *string
	Phone            *string
	Address          *string
	City             *string
	PostalCode       *string
	BirthPlace       *string
	BirthDate        *string
	Gender           *string
	Certification    *string
	ExperienceMonths *int
	IsActive         *bool
}

type UserFilter struct {
	Search string
	Role   models.Role
	Active *bool
}

type MemberStatistics struct {
	Total    int64 `json:"total"`
	Active   int64 `json:"active"`
	Inactive int64 `json:"inactive"`
}

type UserService struct {
	db     *gorm.DB
	cfg    *config.Config
	outbox *Outbox
}

func NewUserService(db *gorm.DB, cfg *config.Config, outbox *Outbox) *UserService {
	return &UserService{db: db, cfg: cfg, outbox: outbox}
}

// Register is public self-registration, which only ever creates members
func (s *UserService) Register(ctx context.Context, in UserInput) (*models.User, error) {
	role := models.RoleMember
	if in.Role != "" {
		r, ok := models.ParseRole(in.Role)
		if !ok {
			return nil, utils.ValidationFailedError("Invalid role", nil)
		}
		if r != models.RoleMember {
			return nil, utils.ForbiddenError("Only member accounts can be registered publicly", nil)
		}
	}
	return s.create(ctx, in, role)
}

// CreateUser is the admin path and accepts every role
func (s *UserService) CreateUser(ctx context.Context, in UserInput) (*models.User, error) {
	role, ok := models.ParseRole(in.Role)
	if !ok {
		return nil, utils.ValidationFailedError("Invalid role", nil)
	}
	return s.create(ctx, in, role)
}

func validateUserInput(in *UserInput, role models.Role) error {
	var errs utils.FieldValidationErrors
	errs.Required(map[string]string{
		"username":   in.Username,
		"password":   in.Password,
		"first_name": in.FirstName,
	})
	if role == models.RoleMember {
		errs.Required(map[string]string{
			"phone":       in.Phone,
			"address":     in.Address,
			"city":        in.City,
			"postal_code": in.PostalCode,
			"birth_place": in.BirthPlace,
			"birth_date":  in.BirthDate,
		})
	}

	in.Username = strings.TrimSpace(in.Username)
	if in.Username != "" {
		if ok, msg := utils.ValidateUsername(in.Username); !ok {
			errs.Add("username", msg)
		}
	}
	if in.Password != "" {
		if err := utils.ValidateStringLength(in.Password, utils.MinPasswordLength, utils.MaxPasswordLength); err != nil {
			errs.Add("password", err.Error())
		}
	}
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if ok, msg := utils.ValidateEmail(in.Email); !ok {
		errs.Add("email", msg)
	}
	if in.Phone != "" {
		phone, err := utils.NormalizePhone(in.Phone)
		if err != nil {
			errs.Add("phone", err.Error())
		} else {
			in.Phone = phone
		}
	}
	if in.BirthDate != "" {
		if _, err := utils.ParseDate(in.BirthDate, time.UTC); err != nil {
			errs.Add("birth_date", err.Error())
		}
	}
	if in.ExperienceMonths < 0 {
		errs.Add("experience_months", "must not be negative")
	}
	return errs.Err()
}

func (s *UserService) create(ctx context.Context, in UserInput, role models.Role) (*models.User, error) {
	if err := validateUserInput(&in, role); err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	var count int64
	if err := db.Model(&models.User{}).Unscoped().Where("username = ?", in.Username).Count(&count).Error; err != nil {
		return nil, utils.WrapError(err, "failed to check username")
	}
	if count > 0 {
		return nil, utils.ConflictError("Username already taken", nil)
	}

	hashed, err := utils.HashPassword(in.Password)
	if err != nil {
		return nil, utils.WrapError(err, "failed to hash password")
	}

	user := models.User{
		Username:  in.Username,
		Email:     in.Email,
		Password:  hashed,
		FirstName: utils.Title(utils.SanitizeString(in.FirstName)),
		LastName:  utils.Title(utils.SanitizeString(in.LastName)),
		IsActive:  true,
		Profile: models.Profile{
			Role:             role,
			Phone:            in.Phone,
			Address:          utils.SanitizeString(in.Address),
			City:             utils.Title(utils.SanitizeString(in.City)),
			PostalCode:       strings.TrimSpace(in.PostalCode),
			BirthPlace:       utils.Title(utils.SanitizeString(in.BirthPlace)),
			BirthDate:        in.BirthDate,
			Gender:           in.Gender,
			Certification:    utils.SanitizeString(in.Certification),
			ExperienceMonths: in.ExperienceMonths,
		},
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		switch role {
		case models.RoleMember:
			code, err := utils.UniqueCode(tx, "profiles", "member_code", utils.MemberCodePrefix, utils.ProfileCodeLength)
			if err != nil {
				return err
			}
			user.Profile.MemberCode = &code
		case models.RoleTrainer:
			code, err := utils.UniqueCode(tx, "profiles", "trainer_code", utils.TrainerCodePrefix, utils.ProfileCodeLength)
			if err != nil {
				return err
			}
			user.Profile.TrainerCode = &code
		}
		return tx.Create(&user).Error
	})
	if err != nil {
		if isUniqueViolation(err) {
			return nil, utils.ConflictError("Username already taken", err)
		}
		return nil, utils.WrapError(err, "failed to create user")
	}
	utils.LogInfo("User %s created with role %s", user.Username, role)

	if role == models.RoleMember && s.outbox != nil {
		msg := Message{Channel: models.ChannelWhatsApp, Recipient: user.Profile.Phone, Body: welcomeMessage(&user)}
		if _, err := s.outbox.Enqueue(context.WithoutCancel(ctx), msg, "register:"+user.Username); err != nil {
			utils.LogError("Failed to enqueue welcome message for %s: %v", user.Username, err)
		}
	}
	return &user, nil
}

// Login checks credentials and returns a signed token for the user
func (s *UserService) Login(ctx context.Context, username, password string) (string, *models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Preload("Profile").Where("username = ?", strings.TrimSpace(username)).First(&user).Error
	if err != nil {
		utils.LogDebug("Login failed for %s: %v", username, err)
		return "", nil, utils.UnauthorizedError(utils.ErrInvalidCredentials, nil)
	}
	if !utils.CheckPassword(password, user.Password) {
		utils.LogDebug("Login failed for %s: wrong password", username)
		return "", nil, utils.UnauthorizedError(utils.ErrInvalidCredentials, nil)
	}
	if !user.IsActive {
		return "", nil, utils.ForbiddenError(utils.ErrAccountInactive, nil)
	}

	token, err := utils.GenerateToken(&user, s.cfg.JWTSecret, s.cfg.TokenTTL)
	if err != nil {
		return "", nil, utils.WrapError(err, "failed to generate token")
	}

	now := time.Now()
	if err := s.db.WithContext(ctx).Model(&user).Update("last_login_at", now).Error; err != nil {
		utils.LogError("Failed to record login of %s: %v", user.Username, err)
	}
	user.LastLoginAt = &now
	utils.LogInfo("User %s logged in", user.Username)
	return token, &user, nil
}

func (s *UserService) Get(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Preload("Profile").First(&user, id).Error; err != nil {
		return nil, lookupError(err, "User")
	}
	return &user, nil
}

// Update applies u to the user. allowStatus gates IsActive, which only admins may change.
func (s *UserService) Update(ctx context.Context, id uint, u ProfileUpdate, allowStatus bool) (*models.User, error) {
	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	var errs utils.FieldValidationErrors
	if u.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*u.Email))
		if ok, msg := utils.ValidateEmail(email); !ok {
			errs.Add("email", msg)
		}
		user.Email = email
	}
	if u.FirstName != nil {
		if strings.TrimSpace(*u.FirstName) == "" {
			errs.Add("first_name", "is required")
		}
		user.FirstName = utils.Title(utils.SanitizeString(*u.FirstName))
	}
	if u.LastName != nil {
		user.LastName = utils.Title(utils.SanitizeString(*u.LastName))
	}
	if u.Password != nil {
		if err := utils.ValidateStringLength(*u.Password, utils.MinPasswordLength, utils.MaxPasswordLength); err != nil {
			errs.Add("password", err.Error())
		} else {
			hashed, err := utils.HashPassword(*u.Password)
			if err != nil {
				return nil, utils.WrapError(err, "failed to hash password")
			}
			user.Password = hashed
		}
	}
	if u.Phone != nil {
		phone, err := utils.NormalizePhone(*u.Phone)
		if err != nil {
			errs.Add("phone", err.Error())
		}
		user.Profile.Phone = phone
	}
	if u.BirthDate != nil {
		if _, err := utils.ParseDate(*u.BirthDate, time.UTC); err != nil {
			errs.Add("birth_date", err.Error())
		}
		user.Profile.BirthDate = *u.BirthDate
	}
	if u.ExperienceMonths != nil {
		if *u.ExperienceMonths < 0 {
			errs.Add("experience_months", "must not be negative")
		}
		user.Profile.ExperienceMonths = *u.ExperienceMonths
	}
	if err := errs.Err(); err != nil {
		return nil, err
	}

	if u.Address != nil {
		user.Profile.Address = utils.SanitizeString(*u.Address)
	}
	if u.City != nil {
		user.Profile.City = utils.Title(utils.SanitizeString(*u.City))
	}
	if u.PostalCode != nil {
		user.Profile.PostalCode = strings.TrimSpace(*u.PostalCode)
	}
	if u.BirthPlace != nil {
		user.Profile.BirthPlace = utils.Title(utils.SanitizeString(*u.BirthPlace))
	}
	if u.Gender != nil {
		user.Profile.Gender = *u.Gender
	}
	if u.Certification != nil {
		user.Profile.Certification = utils.SanitizeString(*u.Certification)
	}
	if u.IsActive != nil {
		if !allowStatus {
			return nil, utils.ForbiddenError("Only admins can change account status", nil)
		}
		user.IsActive = *u.IsActive
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// explicit columns so false and empty values are written too
		if err := tx.Model(user).Select("email", "first_name", "last_name", "password", "is_active").Updates(user).Error; err != nil {
			return err
		}
		return tx.Save(&user.Profile).Error
	})
	if err != nil {
		return nil, utils.WrapError(err, "failed to update user")
	}
	utils.LogInfo("User %d updated", user.ID)
	return user, nil
}

// Delete removes the user together with its profile
func (s *UserService) Delete(ctx context.Context, id uint) error {
	user, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Select("Profile").Delete(user).Error; err != nil {
		return utils.WrapError(err, "failed to delete user")
	}
	utils.LogInfo("User %d (%s) deleted", user.ID, user.Username)
	return nil
}

func (s *UserService) List(ctx context.Context, f UserFilter, p *utils.Pagination) ([]models.User, error) {
	q := s.db.WithContext(ctx).Model(&models.User{}).Joins("JOIN profiles ON profiles.user_id = users.id")
	if f.Role != "" {
		q = q.Where("profiles.role = ?", f.Role)
	}
	if f.Active != nil {
		q = q.Where("users.is_active = ?", *f.Active)
	}
	if search := strings.ToLower(strings.TrimSpace(f.Search)); search != "" {
		like := "%" + search + "%"
		q = q.Where(
			"LOWER(users.username) LIKE ? OR LOWER(users.first_name) LIKE ? OR LOWER(users.last_name) LIKE ? OR LOWER(users.email) LIKE ? OR LOWER(profiles.member_code) LIKE ?",
			like, like, like, like, like,
		)
	}

	q, err := p.Paginate(q, &models.User{})
	if err != nil {
		return nil, utils.WrapError(err, "failed to count users")
	}

	var users []models.User
	if err := q.Select("users.*").Preload("Profile").Order("users.created_at DESC").Find(&users).Error; err != nil {
		return nil, utils.WrapError(err, "failed to list users")
	}
	return users, nil
}

// Trainers lists active personal trainers, used by the public schedule pages
func (s *UserService) Trainers(ctx context.Context) ([]models.User, error) {
	var trainers []models.User
	err := s.db.WithContext(ctx).
		Joins("JOIN profiles ON profiles.user_id = users.id").
		Where("profiles.role = ? AND users.is_active = ?", models.RoleTrainer, true).
		Select("users.*").
		Preload("Profile").
		Order("users.first_name ASC").
		Find(&trainers).Error
	if err != nil {
		return nil, utils.WrapError(err, "failed to list trainers")
	}
	return trainers, nil
}

func (s *UserService) MemberStatistics(ctx context.Context) (*MemberStatistics, error) {
	var rows []struct {
		IsActive bool
		Count    int64
	}
	err := s.db.WithContext(ctx).Model(&models.User{}).
		Joins("JOIN profiles ON profiles.user_id = users.id").
		Where("profiles.role = ?", models.RoleMember).
		Select("users.is_active AS is_active, COUNT(*) AS count").
		Group("users.is_active").
		Scan(&rows).Error
	if err != nil {
		return nil, utils.WrapError(err, "failed to count members")
	}

	stats := &MemberStatistics{}
	for _, r := range rows {
		if r.IsActive {
			stats.Active += r.Count
		} else {
			stats.Inactive += r.Count
		}
		stats.Total += r.Count
	}
	return stats, nil
}

// EnsureAdmin creates the bootstrap admin account when no admin exists yet
func (s *UserService) EnsureAdmin(ctx context.Context) error {
	if s.cfg.AdminPassword == "" {
		utils.LogInfo("ADMIN_PASSWORD not set, skipping admin bootstrap")
		return nil
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Profile{}).Where("role = ?", models.RoleAdmin).Count(&count).Error; err != nil {
		return utils.WrapError(err, "failed to count admins")
	}
	if count > 0 {
		return nil
	}

	_, err := s.CreateUser(ctx, UserInput{
		Username:  s.cfg.AdminUsername,
		Password:  s.cfg.AdminPassword,
		FirstName: "Admin",
		Role:      string(models.RoleAdmin),
	})
	if err != nil {
		return err
	}
	utils.LogInfo("Bootstrap admin %s created", s.cfg.AdminUsername)
	return nil
}
