package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// Role is the closed set of account roles
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleMember  Role = "member"
	RoleTrainer Role = "trainer"
)

// ParseRole maps user input onto a Role. "personal trainer" is accepted for trainers.
func ParseRole(s string) (Role, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "admin":
		return RoleAdmin, true
	case "member":
		return RoleMember, true
	case "trainer", "personal trainer", "personal_trainer", "pt":
		return RoleTrainer, true
	}
	return "", false
}

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleMember, RoleTrainer:
		return true
	}
	return false
}

// User is the login identity. Every user owns exactly one Profile.
type User struct {
	gorm.Model
	Username    string     `gorm:"uniqueIndex;not null" json:"username"`
	Email       string     `gorm:"index" json:"email"`
	Password    string     `json:"-"`
	FirstName   string     `json:"first_name"`
	LastName    string     `json:"last_name"`
	IsActive    bool       `gorm:"not null" json:"is_active"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	Profile     Profile    `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"profile"`
}

// FullName joins first and last name, falling back to the username
func (u User) FullName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Username
	}
	return name
}

// Profile carries the role and the contact details of a user
type Profile struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	UserID           uint      `gorm:"uniqueIndex;not null" json:"user_id"`
	Role             Role      `gorm:"type:varchar(16);index;not null" json:"role"`
	Phone            string    `json:"phone"`
	Address          string    `json:"address"`
	City             string    `json:"city"`
	PostalCode       string    `json:"postal_code"`
	BirthPlace       string    `json:"birth_place"`
	BirthDate        string    `json:"birth_date"`
	Gender           string    `json:"gender,omitempty"`
	MemberCode       *string   `gorm:"uniqueIndex" json:"member_code,omitempty"`
	TrainerCode      *string   `gorm:"uniqueIndex" json:"trainer_code,omitempty"`
	Certification    string    `json:"certification,omitempty"`
	ExperienceMonths int       `json:"experience_months,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}
