package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/gymease/backend/middleware"
	"github.com/gymease/backend/models"
)

func initPublicRoutes(router *gin.RouterGroup, h handlers) {
	router.POST("/register", h.auth.Register)
	router.POST("/login", h.auth.Login)
	router.POST("/auth/token", h.auth.Login)

	router.GET("/products", h.products.List)
	router.GET("/products/:id", h.products.Get)
	router.GET("/promos", h.promos.List)
	router.GET("/promos/active", h.promos.Active)
	router.GET("/promos/:id", h.promos.Get)
	router.GET("/trainers", h.users.Trainers)
	router.GET("/schedules", h.schedules.List)
	router.GET("/schedules/available", h.schedules.Available)
	router.GET("/schedules/:id", h.schedules.Get)

	router.GET("/transactions/:code", h.transactions.GetByCode)
	router.POST("/payments/xendit/callback", h.payments.XenditCallback)
}

// initUserRoutes registers routes for any signed-in user; purchases are member only
func initUserRoutes(router *gin.RouterGroup, h handlers, auth gin.HandlerFunc) {
	user := router.Group("/user")
	user.Use(auth)
	{
		user.GET("/me", h.auth.Me)
		user.PUT("/me", h.auth.UpdateMe)

		user.GET("/transactions/:code/invoice", h.transactions.Invoice)

		member := user.Group("")
		member.Use(middleware.RequireRoles(models.RoleMember))
		{
			member.POST("/transactions", h.transactions.Create)
			member.GET("/transactions", h.transactions.Mine)
			member.POST("/transactions/:code/qr", h.transactions.IssueQR)
			member.POST("/transactions/:code/cancel", h.transactions.Cancel)

			member.GET("/memberships", h.memberships.Mine)
			member.GET("/memberships/current", h.memberships.Current)

			member.POST("/sessions", h.schedules.BookSession)
			member.GET("/sessions", h.schedules.MySessions)
			member.POST("/sessions/:id/cancel", h.schedules.CancelSession)
		}
	}
}

func initTrainerRoutes(router *gin.RouterGroup, h handlers, auth gin.HandlerFunc) {
	trainer := router.Group("/trainer")
	trainer.Use(auth, middleware.RequireRoles(models.RoleTrainer))
	{
		trainer.GET("/schedules", h.schedules.Mine)
		trainer.POST("/schedules", h.schedules.Create)
		trainer.PUT("/schedules/:id", h.schedules.Update)
		trainer.DELETE("/schedules/:id", h.schedules.Delete)

		trainer.GET("/sessions/today", h.schedules.TodaySessions)
		trainer.POST("/sessions/:id/complete", h.schedules.CompleteSession)
		trainer.POST("/sessions/:id/no-show", h.schedules.NoShowSession)
	}
}
