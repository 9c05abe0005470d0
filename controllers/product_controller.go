package controllers

import (
	"github.com/gin-gonic/gin"
	"github.com/gymease/backend/services"
	"github.com/gymease/backend/utils"
	"github.com/shopspring/decimal"
)

type ProductController struct {
	catalog *services.CatalogService
}

func NewProductController(catalog *services.CatalogService) *ProductController {
	return &ProductController{catalog: catalog}
}

type ProductRequest struct {
	Tier         *string          `json:"tier"`
	Description  *string          `json:"description"`
	Price        *decimal.Decimal `json:"price"`
	DurationDays *int             `json:"duration_days"`
	IsActive     *bool            `json:"is_active"`
	Features     []string         `json:"features"`
}

func (r ProductRequest) input() services.ProductInput {
	return services.ProductInput{
		Tier:         r.Tier,
		Description:  r.Description,
		Price:        r.Price,
		DurationDays: r.DurationDays,
		IsActive:     r.IsActive,
		Features:     r.Features,
	}
}

// List shows active packages unless ?active= says otherwise
func (pc *ProductController) List(c *gin.Context) {
	active, ok := queryBool(c, "active")
	if !ok {
		return
	}
	if active == nil && c.Query("all") != "true" {
		t := true
		active = &t
	}

	products, err := pc.catalog.ListProducts(c.Request.Context(), active)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Products retrieved successfully", gin.H{"products": products})
}

func (pc *ProductController) Get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	product, err := pc.catalog.GetProduct(c.Request.Context(), id)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Product retrieved successfully", gin.H{"product": product})
}

func (pc *ProductController) Create(c *gin.Context) {
	var req ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "Invalid request format", err.Error())
		return
	}
	product, err := pc.catalog.CreateProduct(c.Request.Context(), req.input())
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Created(c, "Product created successfully", gin.H{"product": product})
}

func (pc *ProductController) Update(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "Invalid request format", err.Error())
		return
	}
	product, err := pc.catalog.UpdateProduct(c.Request.Context(), id, req.input())
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Product updated successfully", gin.H{"product": product})
}

func (pc *ProductController) Delete(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := pc.catalog.DeleteProduct(c.Request.Context(), id); err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Product deleted successfully", nil)
}
