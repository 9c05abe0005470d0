package controllers

import (
	"github.com/gin-gonic/gin"
	"github.com/gymease/backend/middleware"
	"github.com/gymease/backend/services"
	"github.com/gymease/backend/utils"
)

type MembershipController struct {
	memberships *services.MembershipService
}

func NewMembershipController(memberships *services.MembershipService) *MembershipController {
	return &MembershipController{memberships: memberships}
}

func (mc *MembershipController) Mine(c *gin.Context) {
	claims := middleware.Claims(c)
	histories, err := mc.memberships.ListForMember(c.Request.Context(), claims.UserID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Membership history retrieved successfully", gin.H{"memberships": histories})
}

func (mc *MembershipController) Current(c *gin.Context) {
	claims := middleware.Claims(c)
	history, err := mc.memberships.Current(c.Request.Context(), claims.UserID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Active membership retrieved successfully", gin.H{"membership": history})
}

func (mc *MembershipController) List(c *gin.Context) {
	memberID, ok := queryUint(c, "member_id")
	if !ok {
		return
	}
	p := utils.NewPagination(c)
	histories, err := mc.memberships.List(c.Request.Context(), memberID, p)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.SuccessWithPagination(c, "Membership history retrieved successfully", histories, p)
}
