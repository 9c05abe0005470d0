package controllers

import (
	"github.com/gin-gonic/gin"
	"github.com/gymease/backend/middleware"
	"github.com/gymease/backend/services"
	"github.com/gymease/backend/utils"
)

type AuthController struct {
	users *services.UserService
}

func NewAuthController(users *services.UserService) *AuthController {
	return &AuthController{users: users}
}

// RegisterRequest is the public member sign-up form
type RegisterRequest struct {
	Username   string `json:"username"`
	Password   string `json:"password"`
	Email      string `json:"email"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Role       string `json:"role"`
	Phone      string `json:"phone"`
	Address    string `json:"address"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
	BirthPlace string `json:"birth_place"`
	BirthDate  string `json:"birth_date"`
	Gender     string `json:"gender"`
}

func (r RegisterRequest) input() services.UserInput {
	return services.UserInput{
		Username:   r.Username,
		Password:   r.Password,
		Email:      r.Email,
		FirstName:  r.FirstName,
		LastName:   r.LastName,
		Role:       r.Role,
		Phone:      r.Phone,
		Address:    r.Address,
		City:       r.City,
		PostalCode: r.PostalCode,
		BirthPlace: r.BirthPlace,
		BirthDate:  r.BirthDate,
		Gender:     r.Gender,
	}
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// UpdateMeRequest holds the fields a user may change on their own account
type UpdateMeRequest struct {
	Email      *string `json:"email"`
	FirstName  *string `json:"first_name"`
	LastName   *string `json:"last_name"`
	Password   *string `json:"password"`
	Phone      *string `json:"phone"`
	Address    *string `json:"address"`
	City       *string `json:"city"`
	PostalCode *string `json:"postal_code"`
	BirthPlace *string `json:"birth_place"`
	BirthDate  *string `json:"birth_date"`
	Gender     *string `json:"gender"`
}

func (r UpdateMeRequest) update() services.ProfileUpdate {
	return services.ProfileUpdate{
		Email:      r.Email,
		FirstName:  r.FirstName,
		LastName:   r.LastName,
		Password:   r.Password,
		Phone:      r.Phone,
		Address:    r.Address,
		City:       r.City,
		PostalCode: r.PostalCode,
		BirthPlace: r.BirthPlace,
		BirthDate:  r.BirthDate,
		Gender:     r.Gender,
	}
}

func (ac *AuthController) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.LogError("Registration failed - Invalid request format: %v", err)
		utils.BadRequest(c, "Invalid request format", err.Error())
		return
	}

	user, err := ac.users.Register(c.Request.Context(), req.input())
	if err != nil {
		utils.LogError("Registration failed for %s: %v", req.Username, err)
		utils.RespondError(c, err)
		return
	}

	utils.Created(c, utils.MsgRegisterSuccess, gin.H{"user": user})
}

func (ac *AuthController) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.LogError("Login attempt failed - Invalid request format: %v", err)
		utils.BadRequest(c, "Username and password are required", err.Error())
		return
	}

	token, user, err := ac.users.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		utils.LogError("Login attempt failed for %s: %v", req.Username, err)
		utils.RespondError(c, err)
		return
	}

	utils.Success(c, utils.MsgLoginSuccess, gin.H{
		"token": token,
		"user":  user,
	})
}

func (ac *AuthController) Me(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		utils.Unauthorized(c, utils.ErrUnauthorized)
		return
	}
	utils.Success(c, utils.MsgFetchSuccess, gin.H{"user": user})
}

func (ac *AuthController) UpdateMe(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		utils.Unauthorized(c, utils.ErrUnauthorized)
		return
	}

	var req UpdateMeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "Invalid request format", err.Error())
		return
	}

	updated, err := ac.users.Update(c.Request.Context(), user.ID, req.update(), false)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, utils.MsgUpdateSuccess, gin.H{"user": updated})
}
