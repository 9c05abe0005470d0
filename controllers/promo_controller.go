package controllers

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gymease/backend/services"
	"github.com/gymease/backend/utils"
	"github.com/shopspring/decimal"
)

type PromoController struct {
	catalog *services.CatalogService
}

func NewPromoController(catalog *services.CatalogService) *PromoController {
	return &PromoController{catalog: catalog}
}

// PromoRequest takes dates as YYYY-MM-DD in the gym's time zone
type PromoRequest struct {
	Code            *string          `json:"code"`
	Name            *string          `json:"name"`
	Description     *string          `json:"description"`
	DiscountPercent *decimal.Decimal `json:"discount_percent"`
	StartDate       *string          `json:"start_date"`
	EndDate         *string          `json:"end_date"`
	ProductID       *uint            `json:"product_id"`
	IsActive        *bool            `json:"is_active"`
}

func (r PromoRequest) input() services.PromoInput {
	return services.PromoInput{
		Code:            r.Code,
		Name:            r.Name,
		Description:     r.Description,
		DiscountPercent: r.DiscountPercent,
		StartDate:       r.StartDate,
		EndDate:         r.EndDate,
		ProductID:       r.ProductID,
		IsActive:        r.IsActive,
	}
}

func (pc *PromoController) List(c *gin.Context) {
	promos, err := pc.catalog.ListPromos(c.Request.Context())
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Promos retrieved successfully", gin.H{"promos": promos})
}

func (pc *PromoController) Active(c *gin.Context) {
	promos, err := pc.catalog.ActivePromos(c.Request.Context(), time.Now())
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Active promos retrieved successfully", gin.H{"promos": promos})
}

func (pc *PromoController) Get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	promo, err := pc.catalog.GetPromo(c.Request.Context(), id)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Promo retrieved successfully", gin.H{"promo": promo})
}

func (pc *PromoController) Create(c *gin.Context) {
	var req PromoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "Invalid request format", err.Error())
		return
	}
	promo, err := pc.catalog.CreatePromo(c.Request.Context(), req.input())
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Created(c, "Promo created successfully", gin.H{"promo": promo})
}

func (pc *PromoController) Update(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req PromoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "Invalid request format", err.Error())
		return
	}
	promo, err := pc.catalog.UpdatePromo(c.Request.Context(), id, req.input())
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Promo updated successfully", gin.H{"promo": promo})
}

func (pc *PromoController) Delete(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := pc.catalog.DeletePromo(c.Request.Context(), id); err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Promo deleted successfully", nil)
}
