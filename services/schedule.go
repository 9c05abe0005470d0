package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gymease/backend/config"
	"github.com/gymease/backend/models"
	"github.com/gymease/backend/utils"
	"gorm.io/gorm"
)

type SlotInput struct {
	TrainerID   *uint
	Day         *string
	StartTime   *string
	EndTime     *string
	IsAvailable *bool
}

type SlotFilter struct {
	TrainerID *uint
	Day       models.Weekday
	// AvailableOnly hides slots the trainer switched off
	AvailableOnly bool
}

// ScheduleService manages trainer availability and the sessions booked on it
type ScheduleService struct {
	db  *gorm.DB
	cfg *config.Config
	now func() time.Time
}

func NewScheduleService(db *gorm.DB, cfg *config.Config) *ScheduleService {
	loc := cfg.Location()
	return &ScheduleService{
		db:  db,
		cfg: cfg,
		now: func() time.Time { return time.Now().In(loc) },
	}
}

func (s *ScheduleService) ListSlots(ctx context.Context, f SlotFilter) ([]models.TrainerSlot, error) {
	q := s.db.WithContext(ctx).Preload("Trainer.Profile")
	if f.TrainerID != nil {
		q = q.Where("trainer_id = ?", *f.TrainerID)
	}
	if f.Day != "" {
		q = q.Where("day = ?", f.Day)
	}
	if f.AvailableOnly {
		q = q.Where("is_available = ?", true)
	}

	var slots []models.TrainerSlot
	if err := q.Order("trainer_id ASC, day ASC, start_time ASC").Find(&slots).Error; err != nil {
		return nil, utils.WrapError(err, "failed to list schedules")
	}
	return slots, nil
}

// AvailableSlots lists open slots on date's weekday that nobody booked for that date
func (s *ScheduleService) AvailableSlots(ctx context.Context, trainerID *uint, date time.Time) ([]models.TrainerSlot, error) {
	day := utils.StartOfDay(date.In(s.cfg.Location()))
	slots, err := s.ListSlots(ctx, SlotFilter{TrainerID: trainerID, Day: models.WeekdayOf(day), AvailableOnly: true})
	if err != nil {
		return nil, err
	}

	var booked []uint
	err = s.db.WithContext(ctx).Model(&models.PTSession{}).
		Where("session_date = ? AND status IN ?", day, []models.SessionStatus{models.SessionScheduled, models.SessionCompleted}).
		Pluck("slot_id", &booked).Error
	if err != nil {
		return nil, utils.WrapError(err, "failed to load booked sessions")
	}
	taken := make(map[uint]bool, len(booked))
	for _, id := range booked {
		taken[id] = true
	}

	open := make([]models.TrainerSlot, 0, len(slots))
	for _, slot := range slots {
		if !taken[slot.ID] {
			open = append(open, slot)
		}
	}
	return open, nil
}

func (s *ScheduleService) GetSlot(ctx context.Context, id uint) (*models.TrainerSlot, error) {
	var slot models.TrainerSlot
	if err := s.db.WithContext(ctx).Preload("Trainer.Profile").First(&slot, id).Error; err != nil {
		return nil, lookupError(err, "Trainer schedule")
	}
	return &slot, nil
}

func (s *ScheduleService) applySlotInput(ctx context.Context, slot *models.TrainerSlot, in SlotInput) error {
	var errs utils.FieldValidationErrors
	if in.TrainerID != nil {
		var profile models.Profile
		err := s.db.WithContext(ctx).Where("user_id = ?", *in.TrainerID).First(&profile).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			errs.Add("trainer_id", "trainer does not exist")
		case err != nil:
			return utils.WrapError(err, "failed to load trainer")
		case profile.Role != models.RoleTrainer:
			errs.Add("trainer_id", "user is not a personal trainer")
		}
		slot.TrainerID = *in.TrainerID
	}
	if in.Day != nil {
		day, ok := models.ParseWeekday(*in.Day)
		if !ok {
			errs.Add("day", "must be one of SENIN, SELASA, RABU, KAMIS, JUMAT, SABTU, MINGGU")
		}
		slot.Day = day
	}
	if in.StartTime != nil {
		if _, err := utils.ParseClock(*in.StartTime); err != nil {
			errs.Add("start_time", err.Error())
		}
		slot.StartTime = *in.StartTime
	}
	if in.EndTime != nil {
		if _, err := utils.ParseClock(*in.EndTime); err != nil {
			errs.Add("end_time", err.Error())
		}
		slot.EndTime = *in.EndTime
	}
	if len(errs) == 0 && slot.StartTime >= slot.EndTime {
		errs.Add("end_time", "must be after start_time")
	}
	if in.IsAvailable != nil {
		slot.IsAvailable = *in.IsAvailable
	}
	return errs.Err()
}

func (s *ScheduleService) CreateSlot(ctx context.Context, in SlotInput) (*models.TrainerSlot, error) {
	var errs utils.FieldValidationErrors
	if in.TrainerID == nil {
		errs.Add("trainer_id", "is required")
	}
	if in.Day == nil {
		errs.Add("day", "is required")
	}
	if in.StartTime == nil {
		errs.Add("start_time", "is required")
	}
	if in.EndTime == nil {
		errs.Add("end_time", "is required")
	}
	if err := errs.Err(); err != nil {
		return nil, err
	}

	slot := models.TrainerSlot{IsAvailable: true}
	if err := s.applySlotInput(ctx, &slot, in); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Create(&slot).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, utils.ConflictError("Trainer already has a schedule starting at that time", err)
		}
		return nil, utils.WrapError(err, "failed to create schedule")
	}
	utils.LogInfo("Schedule %d created for trainer %d: %s %s-%s", slot.ID, slot.TrainerID, slot.Day, slot.StartTime, slot.EndTime)
	return s.GetSlot(ctx, slot.ID)
}

// UpdateSlot edits a slot. ownerID, when set, restricts the edit to that trainer's slots.
func (s *ScheduleService) UpdateSlot(ctx context.Context, id uint, in SlotInput, ownerID *uint) (*models.TrainerSlot, error) {
	slot, err := s.GetSlot(ctx, id)
	if err != nil {
		return nil, err
	}
	if ownerID != nil {
		if slot.TrainerID != *ownerID {
			return nil, utils.ForbiddenError("You can only manage your own schedule", nil)
		}
		in.TrainerID = nil
	}
	if err := s.applySlotInput(ctx, slot, in); err != nil {
		return nil, err
	}
	slot.Trainer = nil
	if err := s.db.WithContext(ctx).Save(slot).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, utils.ConflictError("Trainer already has a schedule starting at that time", err)
		}
		return nil, utils.WrapError(err, "failed to update schedule")
	}
	return s.GetSlot(ctx, id)
}

// DeleteSlot removes the row for good so the (trainer, day, start) index frees up
func (s *ScheduleService) DeleteSlot(ctx context.Context, id uint, ownerID *uint) error {
	slot, err := s.GetSlot(ctx, id)
	if err != nil {
		return err
	}
	if ownerID != nil && slot.TrainerID != *ownerID {
		return utils.ForbiddenError("You can only manage your own schedule", nil)
	}

	var upcoming int64
	err = s.db.WithContext(ctx).Model(&models.PTSession{}).
		Where("slot_id = ? AND status = ? AND session_date >= ?", id, models.SessionScheduled, utils.StartOfDay(s.now())).
		Count(&upcoming).Error
	if err != nil {
		return utils.WrapError(err, "failed to check booked sessions")
	}
	if upcoming > 0 {
		return utils.ConflictError(fmt.Sprintf("Schedule has %d upcoming sessions", upcoming), nil)
	}

	if err := s.db.WithContext(ctx).Unscoped().Delete(&models.TrainerSlot{}, id).Error; err != nil {
		return utils.WrapError(err, "failed to delete schedule")
	}
	utils.LogInfo("Schedule %d deleted", id)
	return nil
}

// BookSession reserves slotID on date for a member
func (s *ScheduleService) BookSession(ctx context.Context, memberID, slotID uint, date time.Time, notes string) (*models.PTSession, error) {
	slot, err := s.GetSlot(ctx, slotID)
	if err != nil {
		return nil, err
	}
	if !slot.IsAvailable {
		return nil, utils.ValidationFailedError("Trainer schedule is not available", nil)
	}

	day := utils.StartOfDay(date.In(s.cfg.Location()))
	if day.Before(utils.StartOfDay(s.now())) {
		return nil, utils.ValidationFailedError("Session date is in the past", nil)
	}
	if models.WeekdayOf(day) != slot.Day {
		return nil, utils.ValidationFailedError(fmt.Sprintf("Schedule runs on %s, not on %s", slot.Day, models.WeekdayOf(day)), nil)
	}

	var existing models.PTSession
	err = s.db.WithContext(ctx).
		Where("trainer_id = ? AND slot_id = ? AND session_date = ?", slot.TrainerID, slot.ID, day).
		First(&existing).Error
	switch {
	case err == nil:
		return s.rebook(ctx, &existing, memberID, notes)
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, utils.WrapError(err, "failed to check booking")
	}

	session := models.PTSession{
		MemberID:    memberID,
		TrainerID:   slot.TrainerID,
		SlotID:      slot.ID,
		SessionDate: day,
		Status:      models.SessionScheduled,
		Notes:       utils.SanitizeString(notes),
	}
	if err := s.db.WithContext(ctx).Create(&session).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, utils.ConflictError("This schedule is already booked on that date", err)
		}
		return nil, utils.WrapError(err, "failed to book session")
	}
	utils.LogInfo("Session %d booked: member %d, slot %d on %s", session.ID, memberID, slot.ID, day.Format("2006-01-02"))
	return s.getSession(ctx, session.ID)
}

// rebook reuses a cancelled booking row, which still holds the (trainer, slot, date) key
func (s *ScheduleService) rebook(ctx context.Context, existing *models.PTSession, memberID uint, notes string) (*models.PTSession, error) {
	if existing.Status != models.SessionCancelled {
		return nil, utils.ConflictError("This schedule is already booked on that date", nil)
	}
	res := s.db.WithContext(ctx).Model(&models.PTSession{}).
		Where("id = ? AND status = ?", existing.ID, models.SessionCancelled).
		Updates(map[string]interface{}{
			"member_id": memberID,
			"status":    models.SessionScheduled,
			"notes":     utils.SanitizeString(notes),
		})
	if res.Error != nil {
		return nil, utils.WrapError(res.Error, "failed to book session")
	}
	if res.RowsAffected == 0 {
		return nil, utils.ConflictError("This schedule is already booked on that date", nil)
	}
	utils.LogInfo("Session %d rebooked by member %d", existing.ID, memberID)
	return s.getSession(ctx, existing.ID)
}

func (s *ScheduleService) getSession(ctx context.Context, id uint) (*models.PTSession, error) {
	var session models.PTSession
	if err := s.db.WithContext(ctx).Preload("Member").Preload("Slot.Trainer").First(&session, id).Error; err != nil {
		return nil, lookupError(err, "Session")
	}
	return &session, nil
}

func (s *ScheduleService) MemberSessions(ctx context.Context, memberID uint) ([]models.PTSession, error) {
	var sessions []models.PTSession
	err := s.db.WithContext(ctx).Preload("Slot.Trainer").
		Where("member_id = ?", memberID).
		Order("session_date DESC").
		Find(&sessions).Error
	if err != nil {
		return nil, utils.WrapError(err, "failed to list sessions")
	}
	return sessions, nil
}

// TrainerSessionsOn lists a trainer's sessions on the given day ordered by start time
func (s *ScheduleService) TrainerSessionsOn(ctx context.Context, trainerID uint, date time.Time) ([]models.PTSession, error) {
	day := utils.StartOfDay(date.In(s.cfg.Location()))
	var sessions []models.PTSession
	err := s.db.WithContext(ctx).Preload("Member.Profile").Preload("Slot").
		Joins("JOIN trainer_slots ON trainer_slots.id = pt_sessions.slot_id").
		Where("pt_sessions.trainer_id = ? AND pt_sessions.session_date = ?", trainerID, day).
		Order("trainer_slots.start_time ASC").
		Select("pt_sessions.*").
		Find(&sessions).Error
	if err != nil {
		return nil, utils.WrapError(err, "failed to list sessions")
	}
	return sessions, nil
}

// TodaySessions is TrainerSessionsOn for the current business day
func (s *ScheduleService) TodaySessions(ctx context.Context, trainerID uint) ([]models.PTSession, error) {
	return s.TrainerSessionsOn(ctx, trainerID, s.now())
}

// CompleteSession closes a scheduled session as completed or no-show
func (s *ScheduleService) CompleteSession(ctx context.Context, trainerID, sessionID uint, status models.SessionStatus, notes string) (*models.PTSession, error) {
	if status != models.SessionCompleted && status != models.SessionNoShow {
		return nil, utils.ValidationFailedError("Invalid session outcome", nil)
	}

	session, err := s.getSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.TrainerID != trainerID {
		return nil, utils.ForbiddenError("This session belongs to another trainer", nil)
	}

	updates := map[string]interface{}{"status": status}
	if notes != "" {
		updates["notes"] = utils.SanitizeString(notes)
	}
	res := s.db.WithContext(ctx).Model(&models.PTSession{}).
		Where("id = ? AND status = ?", sessionID, models.SessionScheduled).
		Updates(updates)
	if res.Error != nil {
		return nil, utils.WrapError(res.Error, "failed to update session")
	}
	if res.RowsAffected == 0 {
		return nil, utils.ConflictError(fmt.Sprintf("Session is already %s", session.Status), nil)
	}
	utils.LogInfo("Session %d marked %s by trainer %d", sessionID, status, trainerID)
	return s.getSession(ctx, sessionID)
}

// CancelSession lets a member withdraw a scheduled booking
func (s *ScheduleService) CancelSession(ctx context.Context, memberID, sessionID uint) (*models.PTSession, error) {
	session, err := s.getSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.MemberID != memberID {
		return nil, utils.ForbiddenError("This session belongs to another member", nil)
	}
	res := s.db.WithContext(ctx).Model(&models.PTSession{}).
		Where("id = ? AND status = ?", sessionID, models.SessionScheduled).
		Update("status", models.SessionCancelled)
	if res.Error != nil {
		return nil, utils.WrapError(res.Error, "failed to cancel session")
	}
	if res.RowsAffected == 0 {
		return nil, utils.ConflictError(fmt.Sprintf("Session is already %s", session.Status), nil)
	}
	return s.getSession(ctx, sessionID)
}
