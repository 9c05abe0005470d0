package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/gymease/backend/config"
	"github.com/gymease/backend/controllers"
	"github.com/gymease/backend/middleware"
	"github.com/gymease/backend/services"
	"github.com/gymease/backend/utils"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

// Dependencies are the long-lived services the HTTP layer is built on
type Dependencies struct {
	DB           *gorm.DB
	Config       *config.Config
	Users        *services.UserService
	Catalog      *services.CatalogService
	Schedules    *services.ScheduleService
	Transactions *services.TransactionService
	Memberships  *services.MembershipService
}

type handlers struct {
	auth         *controllers.AuthController
	users        *controllers.UserController
	products     *controllers.ProductController
	promos       *controllers.PromoController
	schedules    *controllers.ScheduleController
	transactions *controllers.TransactionController
	payments     *controllers.PaymentController
	memberships  *controllers.MembershipController
}

// SetupRouter initializes and returns the Gin router with all routes
func SetupRouter(deps Dependencies) *gin.Engine {
	router := gin.New()
	router.Use(utils.RecoveryMiddleware())
	router.Use(utils.RequestIDMiddleware())
	router.Use(utils.LoggerMiddleware())
	router.Use(utils.MetricsMiddleware())
	router.Use(utils.CORSMiddleware(deps.Config.AllowedOrigins))
	router.Use(utils.SecurityHeadersMiddleware())

	h := handlers{
		auth:         controllers.NewAuthController(deps.Users),
		users:        controllers.NewUserController(deps.Users, deps.Memberships),
		products:     controllers.NewProductController(deps.Catalog),
		promos:       controllers.NewPromoController(deps.Catalog),
		schedules:    controllers.NewScheduleController(deps.Schedules, deps.Config),
		transactions: controllers.NewTransactionController(deps.Transactions, deps.Config),
		payments:     controllers.NewPaymentController(deps.Transactions, deps.Config),
		memberships:  controllers.NewMembershipController(deps.Memberships),
	}
	auth := middleware.AuthMiddleware(deps.Config.JWTSecret, deps.DB)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/health", func(c *gin.Context) {
		sqlDB, err := deps.DB.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			utils.RespondError(c, utils.ServiceUnavailableError("Database unavailable", err))
			return
		}
		utils.Success(c, "ok", gin.H{"app": utils.AppName, "version": utils.APIVersion})
	})
	router.NoRoute(func(c *gin.Context) {
		utils.NotFound(c, "Route not found")
	})

	api := router.Group("/" + utils.APIVersion)
	{
		initPublicRoutes(api, h)
		initUserRoutes(api, h, auth)
		initTrainerRoutes(api, h, auth)
		initAdminRoutes(api, h, auth)
	}

	return router
}
