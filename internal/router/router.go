package router

import (
	"net/http"
	"time"

	"starktol/config"
	"starktol/internal/forwarder"
	"starktol/internal/handler"
	"starktol/internal/middleware"
	"starktol/internal/reconcile"
	"starktol/internal/repository"
	"starktol/internal/service"
	"starktol/internal/ws"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Deps are the externally-constructed collaborators the router wires in:
// the payment gateway client and the payment-events hub, both owned by
// main so their lifecycles outlive individual requests.
type Deps struct {
	Gateway interface {
		handler.GatewayInitiator
		handler.GatewayVerifier
	}
	Hub *ws.PaymentHub
}

// Setup assembles repositories, services and handlers and returns the
// engine plus the forwarder's job store for main to hand to the
// dispatcher.
func Setup(cfg *config.Config, db *gorm.DB, deps Deps) (*gin.Engine, forwarder.JobStore) {
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RateLimit(middleware.NewRateLimiter(100, 60*time.Second), middleware.ByClientIP))
	// The webhook contract promises 405 (not 404) on non-POST methods.
	r.HandleMethodNotAllowed = true
	r.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, gin.H{"status": "error", "message": "method not allowed"})
	})

	// Repositories
	userRepo := repository.NewUserRepository(db)
	walletRepo := repository.NewWalletRepository(db)
	intentRepo := repository.NewPaymentIntentRepository(db)
	purchaseRepo := repository.NewPurchaseRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	auditRepo := repository.NewAuditLogRepository(db)
	deadLetterRepo := repository.NewDeadLetterRepository(db)
	jobRepo := repository.NewLedgerJobRepository(db)
	reconcileStore := repository.NewReconcileStore(db)

	// Services
	authSvc := service.NewAuthService(cfg, userRepo)
	notifSvc := service.NewNotificationService(notificationRepo, deps.Hub)
	engine := reconcile.New(reconcileStore)

	// Handlers
	authHandler := handler.NewAuthHandler(authSvc)
	googleHandler := handler.NewGoogleOAuthHandler(cfg, authSvc, auditRepo)
	paymentHandler := handler.NewPaymentHandler(cfg, intentRepo, userRepo, deps.Gateway)
	webhookHandler := handler.NewFlutterwaveWebhookHandler(engine, auditRepo, notifSvc, cfg)
	verifyHandler := handler.NewVerifyHandler(engine, deps.Gateway, auditRepo, notifSvc)
	walletHandler := handler.NewWalletHandler(walletRepo)
	purchaseHandler := handler.NewPurchaseHandler(purchaseRepo, auditRepo, notifSvc)
	notificationHandler := handler.NewNotificationHandler(notificationRepo)
	adminHandler := handler.NewAdminHandler(deadLetterRepo, intentRepo, jobRepo, walletRepo, auditRepo)

	authMw := middleware.AuthRequired(&cfg.JWT)
	// The outer limit keys on IP; authenticated routes add a per-account
	// limit so one customer cannot starve a shared NAT.
	userRate := middleware.RateLimit(middleware.NewRateLimiter(300, time.Minute), middleware.ByUser)

	api := r.Group("/api/v1")
	{
		authGroup := api.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
			authGroup.POST("/refresh", authHandler.Refresh)
			authGroup.GET("/google", googleHandler.Redirect)
			authGroup.GET("/google/callback", googleHandler.Callback)
			authGroup.POST("/google/token", googleHandler.Token)
		}

		// Gateway-facing: authenticated by signature, not by JWT.
		api.POST("/webhooks/flutterwave", webhookHandler.Handle)

		// Poll path for the redirect landing page; no JWT so the page
		// works before the session is rehydrated. Rate limited above.
		api.POST("/payments/verify", verifyHandler.Verify)

		payments := api.Group("/payments")
		payments.Use(authMw, userRate)
		{
			payments.POST("/initiate", paymentHandler.Initiate)
			payments.GET("/history", paymentHandler.History)
		}

		wallet := api.Group("/wallet")
		wallet.Use(authMw, userRate)
		{
			wallet.GET("", walletHandler.GetBalance)
			wallet.GET("/transactions", walletHandler.GetTransactions)
		}

		purchases := api.Group("/purchases")
		purchases.Use(authMw, userRate)
		{
			purchases.POST("", purchaseHandler.Create)
			purchases.GET("", purchaseHandler.History)
		}

		notifications := api.Group("/notifications")
		notifications.Use(authMw, userRate)
		{
			notifications.GET("", notificationHandler.List)
			notifications.PATCH("/:id/read", notificationHandler.MarkRead)
		}

		admin := api.Group("/admin")
		admin.Use(authMw, middleware.AdminOnly())
		{
			admin.GET("/dead-letters", adminHandler.ListDeadLetters)
			admin.POST("/dead-letters/:id/requeue", adminHandler.RequeueDeadLetter)
			admin.GET("/flagged-payments", adminHandler.ListFlagged)
			admin.POST("/wallets/:user_id/adjust", adminHandler.AdjustWallet)
		}

		api.GET("/ws/payments", ws.UpgradePaymentWS(&cfg.JWT, deps.Hub))
	}

	return r, jobRepo
}
