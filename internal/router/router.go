package router

import (
	"net/http"

	"pickup-service/internal/handlers"
	"pickup-service/internal/middleware"
	"pickup-service/internal/service"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Services struct {
	Pickups    *service.PickupService
	Allowances *service.AllowanceService
	Settlement *service.SettlementService
	Wallets    *service.WalletService
}

func Router(svc Services, validator middleware.AccessValidator, db *gorm.DB, log *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))

	r.GET("/health", func(c *gin.Context) {
		status, code := "ok", http.StatusOK
		if db != nil {
			if sqlDB, err := db.DB(); err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
				status, code = "db_unavailable", http.StatusServiceUnavailable
			}
		}
		c.JSON(code, gin.H{"status": status})
	})

	pickups := handlers.NewPickupHandler(svc.Pickups, svc.Settlement, log)
	orders := handlers.NewOrderHandler(svc.Settlement, log)
	allowances := handlers.NewAllowanceHandler(svc.Allowances, log)
	wallets := handlers.NewWalletHandler(svc.Wallets, log)

	api := r.Group("/api/v1", middleware.AuthRequired(validator, log))
	{
		api.POST("/pickups", pickups.Create)
		api.GET("/pickups", pickups.List)
		api.GET("/pickups/:id", pickups.Get)
		api.POST("/pickups/:id/sell", pickups.Sell)
		api.POST("/pickups/:id/transfer", pickups.RequestTransfer)
		api.POST("/pickups/:id/transfer/accept", pickups.AcceptTransfer)
		api.POST("/pickups/:id/transfer/decline", pickups.DeclineTransfer)
		api.POST("/pickups/:id/return", pickups.RequestReturn)
		api.POST("/pickups/:id/return/confirm", pickups.ConfirmReturn)
		api.POST("/pickups/:id/return/reject", pickups.RejectReturn)

		api.GET("/orders", orders.List)
		api.GET("/orders/:id", orders.Get)

		api.GET("/allowances/:id", allowances.Get)
		api.POST("/allowance-requests", allowances.RequestExtra)
		api.GET("/allowance-requests", allowances.ListRequests)
		api.POST("/allowance-requests/:id/review", allowances.Review)

		api.GET("/wallets/:id", wallets.Summary)
		api.GET("/wallets/:id/ledger", wallets.Ledger)
		api.POST("/withdrawals", wallets.RequestWithdrawal)
		api.GET("/withdrawals", wallets.ListWithdrawals)
		api.POST("/withdrawals/:id/review", wallets.ReviewWithdrawal)
	}

	return r
}
