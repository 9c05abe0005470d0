package controllers

import (
	"github.com/gin-gonic/gin"
	"github.com/gymease/backend/models"
	"github.com/gymease/backend/services"
	"github.com/gymease/backend/utils"
)

// UserController is the admin user management surface
type UserController struct {
	users       *services.UserService
	memberships *services.MembershipService
}

func NewUserController(users *services.UserService, memberships *services.MembershipService) *UserController {
	return &UserController{users: users, memberships: memberships}
}

type CreateUserRequest struct {
	RegisterRequest
	Certification    string `json:"certification"`
	ExperienceMonths int    `json:"experience_months"`
}

type AdminUpdateUserRequest struct {
	UpdateMeRequest
	Certification    *string `json:"certification"`
	ExperienceMonths *int    `json:"experience_months"`
	IsActive         *bool   `json:"is_active"`
}

func (uc *UserController) List(c *gin.Context) {
	filter := services.UserFilter{Search: c.Query("search")}
	if raw := c.Query("role"); raw != "" {
		role, ok := models.ParseRole(raw)
		if !ok {
			utils.BadRequest(c, "Invalid role", raw)
			return
		}
		filter.Role = role
	}
	switch c.Query("status") {
	case "":
	case "active":
		active := true
		filter.Active = &active
	case "inactive":
		active := false
		filter.Active = &active
	default:
		utils.BadRequest(c, "Invalid status", "status must be active or inactive")
		return
	}

	p := utils.NewPagination(c)
	users, err := uc.users.List(c.Request.Context(), filter, p)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.SuccessWithPagination(c, "Users retrieved successfully", users, p)
}

func (uc *UserController) Create(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "Invalid request format", err.Error())
		return
	}

	in := req.input()
	in.Certification = req.Certification
	in.ExperienceMonths = req.ExperienceMonths
	if in.Role == "" {
		in.Role = string(models.RoleMember)
	}

	user, err := uc.users.CreateUser(c.Request.Context(), in)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Created(c, "User created successfully", gin.H{"user": user})
}

func (uc *UserController) Get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	user, err := uc.users.Get(c.Request.Context(), id)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, utils.MsgFetchSuccess, gin.H{"user": user})
}

func (uc *UserController) Update(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req AdminUpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "Invalid request format", err.Error())
		return
	}

	u := req.update()
	u.Certification = req.Certification
	u.ExperienceMonths = req.ExperienceMonths
	u.IsActive = req.IsActive

	user, err := uc.users.Update(c.Request.Context(), id, u, true)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, utils.MsgUpdateSuccess, gin.H{"user": user})
}

func (uc *UserController) Delete(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := uc.users.Delete(c.Request.Context(), id); err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, utils.MsgDeleteSuccess, nil)
}

func (uc *UserController) MemberStatistics(c *gin.Context) {
	stats, err := uc.users.MemberStatistics(c.Request.Context())
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Member statistics retrieved successfully", stats)
}

func (uc *UserController) MembershipStatus(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	status, err := uc.memberships.Status(c.Request.Context(), id)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Membership status retrieved successfully", status)
}

// Trainers is public so members can pick a trainer before booking
func (uc *UserController) Trainers(c *gin.Context) {
	trainers, err := uc.users.Trainers(c.Request.Context())
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Trainers retrieved successfully", gin.H{"trainers": trainers})
}
