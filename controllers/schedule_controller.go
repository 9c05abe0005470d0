package controllers

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gymease/backend/config"
	"github.com/gymease/backend/middleware"
	"github.com/gymease/backend/models"
	"github.com/gymease/backend/services"
	"github.com/gymease/backend/utils"
)

// ScheduleController serves trainer slots and personal training sessions
type ScheduleController struct {
	schedules *services.ScheduleService
	cfg       *config.Config
}

func NewScheduleController(schedules *services.ScheduleService, cfg *config.Config) *ScheduleController {
	return &ScheduleController{schedules: schedules, cfg: cfg}
}

type SlotRequest struct {
	TrainerID   *uint   `json:"trainer_id"`
	Day         *string `json:"day"`
	StartTime   *string `json:"start_time"`
	EndTime     *string `json:"end_time"`
	IsAvailable *bool   `json:"is_available"`
}

func (r SlotRequest) input() services.SlotInput {
	return services.SlotInput{
		TrainerID:   r.TrainerID,
		Day:         r.Day,
		StartTime:   r.StartTime,
		EndTime:     r.EndTime,
		IsAvailable: r.IsAvailable,
	}
}

type BookSessionRequest struct {
	SlotID uint   `json:"slot_id" binding:"required"`
	Date   string `json:"date" binding:"required"`
	Notes  string `json:"notes"`
}

type SessionOutcomeRequest struct {
	Notes string `json:"notes"`
}

// List shows available slots, filtered by ?trainer_id= and ?day=
func (sc *ScheduleController) List(c *gin.Context) {
	trainerID, ok := queryUint(c, "trainer_id")
	if !ok {
		return
	}
	filter := services.SlotFilter{TrainerID: trainerID, AvailableOnly: c.Query("all") != "true"}
	if raw := c.Query("day"); raw != "" {
		day, valid := models.ParseWeekday(raw)
		if !valid {
			utils.BadRequest(c, "Invalid day", raw)
			return
		}
		filter.Day = day
	}

	slots, err := sc.schedules.ListSlots(c.Request.Context(), filter)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Schedules retrieved successfully", gin.H{"schedules": slots})
}

// Available lists the open slots on ?date=, defaulting to today
func (sc *ScheduleController) Available(c *gin.Context) {
	trainerID, ok := queryUint(c, "trainer_id")
	if !ok {
		return
	}
	date, ok := queryDate(c, "date", sc.cfg.Location())
	if !ok {
		return
	}
	day := time.Now()
	if date != nil {
		day = *date
	}

	slots, err := sc.schedules.AvailableSlots(c.Request.Context(), trainerID, day)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Available schedules retrieved successfully", gin.H{
		"date":      day.In(sc.cfg.Location()).Format("2006-01-02"),
		"schedules": slots,
	})
}

func (sc *ScheduleController) Get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	slot, err := sc.schedules.GetSlot(c.Request.Context(), id)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Schedule retrieved successfully", gin.H{"schedule": slot})
}

// ownerScope limits trainers to their own slots. Admins are unrestricted.
func ownerScope(c *gin.Context) *uint {
	claims := middleware.Claims(c)
	if claims == nil || claims.Role == models.RoleAdmin {
		return nil
	}
	id := claims.UserID
	return &id
}

func (sc *ScheduleController) Create(c *gin.Context) {
	var req SlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "Invalid request format", err.Error())
		return
	}
	if owner := ownerScope(c); owner != nil {
		req.TrainerID = owner
	}

	slot, err := sc.schedules.CreateSlot(c.Request.Context(), req.input())
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Created(c, "Schedule created successfully", gin.H{"schedule": slot})
}

func (sc *ScheduleController) Update(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req SlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "Invalid request format", err.Error())
		return
	}

	slot, err := sc.schedules.UpdateSlot(c.Request.Context(), id, req.input(), ownerScope(c))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Schedule updated successfully", gin.H{"schedule": slot})
}

func (sc *ScheduleController) Delete(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := sc.schedules.DeleteSlot(c.Request.Context(), id, ownerScope(c)); err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Schedule deleted successfully", nil)
}

// Mine lists the calling trainer's own slots
func (sc *ScheduleController) Mine(c *gin.Context) {
	claims := middleware.Claims(c)
	slots, err := sc.schedules.ListSlots(c.Request.Context(), services.SlotFilter{TrainerID: &claims.UserID})
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Schedules retrieved successfully", gin.H{"schedules": slots})
}

func (sc *ScheduleController) BookSession(c *gin.Context) {
	claims := middleware.Claims(c)
	var req BookSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "slot_id and date are required", err.Error())
		return
	}
	date, err := utils.ParseDate(req.Date, sc.cfg.Location())
	if err != nil {
		utils.ValidationError(c, "Invalid date", err.Error())
		return
	}

	session, err := sc.schedules.BookSession(c.Request.Context(), claims.UserID, req.SlotID, date, req.Notes)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Created(c, "Session booked successfully", gin.H{"session": session})
}

func (sc *ScheduleController) MySessions(c *gin.Context) {
	claims := middleware.Claims(c)
	sessions, err := sc.schedules.MemberSessions(c.Request.Context(), claims.UserID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Sessions retrieved successfully", gin.H{"sessions": sessions})
}

func (sc *ScheduleController) CancelSession(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	claims := middleware.Claims(c)
	session, err := sc.schedules.CancelSession(c.Request.Context(), claims.UserID, id)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Session cancelled successfully", gin.H{"session": session})
}

func (sc *ScheduleController) TodaySessions(c *gin.Context) {
	claims := middleware.Claims(c)
	sessions, err := sc.schedules.TodaySessions(c.Request.Context(), claims.UserID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Today's sessions retrieved successfully", gin.H{"sessions": sessions})
}

func (sc *ScheduleController) CompleteSession(c *gin.Context) {
	sc.closeSession(c, models.SessionCompleted)
}

func (sc *ScheduleController) NoShowSession(c *gin.Context) {
	sc.closeSession(c, models.SessionNoShow)
}

func (sc *ScheduleController) closeSession(c *gin.Context, outcome models.SessionStatus) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req SessionOutcomeRequest
	// body is optional
	_ = c.ShouldBindJSON(&req)

	claims := middleware.Claims(c)
	session, err := sc.schedules.CompleteSession(c.Request.Context(), claims.UserID, id, outcome, req.Notes)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Session updated successfully", gin.H{"session": session})
}
