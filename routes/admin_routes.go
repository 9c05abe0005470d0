package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/gymease/backend/middleware"
	"github.com/gymease/backend/models"
)

// initAdminRoutes initializes all admin-related routes
func initAdminRoutes(router *gin.RouterGroup, h handlers, auth gin.HandlerFunc) {
	admin := router.Group("/admin")
	admin.Use(auth, middleware.RequireRoles(models.RoleAdmin))
	{
		// User management
		admin.GET("/users", h.users.List)
		admin.POST("/users", h.users.Create)
		admin.GET("/users/:id", h.users.Get)
		admin.PUT("/users/:id", h.users.Update)
		admin.DELETE("/users/:id", h.users.Delete)
		admin.GET("/members/statistics", h.users.MemberStatistics)
		admin.GET("/members/:id/membership-status", h.users.MembershipStatus)

		// Catalog
		admin.GET("/products", h.products.List)
		admin.POST("/products", h.products.Create)
		admin.PUT("/products/:id", h.products.Update)
		admin.DELETE("/products/:id", h.products.Delete)
		admin.POST("/promos", h.promos.Create)
		admin.PUT("/promos/:id", h.promos.Update)
		admin.DELETE("/promos/:id", h.promos.Delete)

		// Trainer schedules
		admin.POST("/schedules", h.schedules.Create)
		admin.PUT("/schedules/:id", h.schedules.Update)
		admin.DELETE("/schedules/:id", h.schedules.Delete)

		// Transactions
		admin.GET("/transactions", h.transactions.List)
		admin.GET("/transactions/statistics", h.transactions.Statistics)
		admin.GET("/transactions/export", h.transactions.Export)
		admin.POST("/transactions/:code/confirm", h.transactions.Confirm)
		admin.POST("/transactions/:code/cancel", h.transactions.Cancel)

		admin.GET("/memberships", h.memberships.List)
	}
}
