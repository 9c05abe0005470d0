package services

import (
	"context"
	"time"

	"github.com/gymease/backend/config"
	"github.com/gymease/backend/models"
	"github.com/gymease/backend/utils"
	"gorm.io/gorm"
)

// MembershipStatus answers whether a member currently holds a paid membership
type MembershipStatus struct {
	MemberID      uint                      `json:"member_id"`
	Active        bool                      `json:"active"`
	Current       *models.MembershipHistory `json:"current,omitempty"`
	DaysRemaining int                       `json:"days_remaining"`
	TotalPeriods  int64                     `json:"total_periods"`
}

type MembershipService struct {
	db  *gorm.DB
	cfg *config.Config
	now func() time.Time
}

func NewMembershipService(db *gorm.DB, cfg *config.Config) *MembershipService {
	loc := cfg.Location()
	return &MembershipService{
		db:  db,
		cfg: cfg,
		now: func() time.Time { return time.Now().In(loc) },
	}
}

func (s *MembershipService) ListForMember(ctx context.Context, memberID uint) ([]models.MembershipHistory, error) {
	var histories []models.MembershipHistory
	err := s.db.WithContext(ctx).Preload("Transaction.Product").
		Where("member_id = ?", memberID).
		Order("start_date DESC").
		Find(&histories).Error
	if err != nil {
		return nil, utils.WrapError(err, "failed to list memberships")
	}
	return histories, nil
}

// Current returns the active membership covering today with the latest end date
func (s *MembershipService) Current(ctx context.Context, memberID uint) (*models.MembershipHistory, error) {
	today := utils.StartOfDay(s.now())
	var history models.MembershipHistory
	err := s.db.WithContext(ctx).Preload("Transaction.Product").
		Where("member_id = ? AND is_active = ? AND start_date <= ? AND end_date > ?", memberID, true, today, today).
		Order("end_date DESC").
		First(&history).Error
	if err != nil {
		return nil, lookupError(err, "Active membership")
	}
	return &history, nil
}

func (s *MembershipService) Status(ctx context.Context, memberID uint) (*MembershipStatus, error) {
	var profile models.Profile
	if err := s.db.WithContext(ctx).Where("user_id = ?", memberID).First(&profile).Error; err != nil {
		return nil, lookupError(err, "Member")
	}
	if profile.Role != models.RoleMember {
		return nil, utils.ValidationFailedError("User is not a member", nil)
	}

	status := &MembershipStatus{MemberID: memberID}
	if err := s.db.WithContext(ctx).Model(&models.MembershipHistory{}).Where("member_id = ?", memberID).Count(&status.TotalPeriods).Error; err != nil {
		return nil, utils.WrapError(err, "failed to count memberships")
	}

	current, err := s.Current(ctx, memberID)
	if err != nil {
		if utils.IsNotFoundError(err) {
			return status, nil
		}
		return nil, err
	}
	status.Active = true
	status.Current = current
	status.DaysRemaining = utils.Window{Start: utils.StartOfDay(s.now()), End: current.EndDate.In(s.cfg.Location())}.Days()
	return status, nil
}

func (s *MembershipService) List(ctx context.Context, memberID *uint, p *utils.Pagination) ([]models.MembershipHistory, error) {
	q := s.db.WithContext(ctx).Model(&models.MembershipHistory{})
	if memberID != nil {
		q = q.Where("member_id = ?", *memberID)
	}
	q, err := p.Paginate(q, &models.MembershipHistory{})
	if err != nil {
		return nil, utils.WrapError(err, "failed to count memberships")
	}

	var histories []models.MembershipHistory
	if err := q.Preload("Member.Profile").Preload("Transaction.Product").Order("created_at DESC").Find(&histories).Error; err != nil {
		return nil, utils.WrapError(err, "failed to list memberships")
	}
	return histories, nil
}
