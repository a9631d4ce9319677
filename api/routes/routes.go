package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/ticketdesk/lottery-backoffice/internal/config"
	"github.com/ticketdesk/lottery-backoffice/internal/handlers"
	"github.com/ticketdesk/lottery-backoffice/internal/middleware"
)

// HandlerDependencies holds every handler the router mounts
type HandlerDependencies struct {
	LotteryHandler      *handlers.LotteryHandler
	SaleHandler         *handlers.SaleHandler
	WinnerHandler       *handlers.WinnerHandler
	NotificationHandler *handlers.NotificationHandler
	CommissionHandler   *handlers.CommissionHandler
}

// SetupRouter sets up the router
func SetupRouter(cfg *config.Config, deps HandlerDependencies) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggerMiddleware())
	router.Use(middleware.MetricsMiddleware())
	router.Use(middleware.CORSMiddleware(cfg.Server))

	public := router.Group("/api/v1")
	{
		public.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})
		public.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	protected := router.Group("/api/v1")
	protected.Use(middleware.JWTAuthMiddleware(cfg.JWT))
	{
		lotteries := protected.Group("/lotteries")
		{
			lotteries.POST("", deps.LotteryHandler.CreateLottery)
			lotteries.GET("", deps.LotteryHandler.ListLotteries)
			lotteries.GET("/:id", deps.LotteryHandler.GetLottery)
			lotteries.GET("/:id/tickets", deps.LotteryHandler.GetLotteryTickets)
			lotteries.POST("/:id/end", deps.LotteryHandler.EndLottery)
			lotteries.PUT("/:id/ticket-count", deps.LotteryHandler.ResizeLottery)

			lotteries.POST("/:id/tickets", deps.SaleHandler.SellTicket)
			lotteries.GET("/:id/sold-numbers", deps.SaleHandler.GetSoldNumbers)

			lotteries.POST("/:id/winners", deps.WinnerHandler.EnterWinners)
			lotteries.PUT("/:id/winners", deps.WinnerHandler.UpdateWinners)
		}

		tickets := protected.Group("/tickets")
		{
			tickets.GET("/:id/commission", deps.CommissionHandler.GetTicketCommission)
			tickets.PUT("/:id/sms-sent", deps.NotificationHandler.MarkSMSSent)
			tickets.PUT("/:id/winner-sms-sent", deps.NotificationHandler.MarkWinnerSMSSent)
			tickets.DELETE("/:id", middleware.RequireRole(middleware.RoleAdmin), deps.LotteryHandler.DeleteTicket)
		}

		protected.GET("/winners", deps.WinnerHandler.GetWinners)
		protected.GET("/commissions/report", deps.CommissionHandler.GetReport)

		notifications := protected.Group("/notifications")
		{
			notifications.GET("/pending-sms", deps.NotificationHandler.GetPendingSMS)
			notifications.GET("/pending-winner-sms", deps.NotificationHandler.GetPendingWinnerSMS)
		}
	}

	return router
}
