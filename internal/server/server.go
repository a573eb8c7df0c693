package server

import (
	"context"
	"net/http"

	"github.com/zyadwael2009/gym/internal/attendance"
	"github.com/zyadwael2009/gym/internal/auth"
	"github.com/zyadwael2009/gym/internal/branch"
	"github.com/zyadwael2009/gym/internal/config"
	"github.com/zyadwael2009/gym/internal/customer"
	"github.com/zyadwael2009/gym/internal/notification"
	"github.com/zyadwael2009/gym/internal/payment"
	"github.com/zyadwael2009/gym/internal/paymob"
	"github.com/zyadwael2009/gym/internal/plan"
	"github.com/zyadwael2009/gym/internal/subscription"
	"github.com/zyadwael2009/gym/internal/user"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
)

type Server struct {
	router   *gin.Engine
	http     *http.Server
	db       *sqlx.DB
	config   *config.Config
	notifier *notification.Service
}

func New(db *sqlx.DB, cfg *config.Config, notifier *notification.Service) *Server {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestLoggingMiddleware())
	router.Use(MetricsMiddleware())
	router.Use(corsMiddleware())
	router.Use(RateLimitMiddleware(50, 100))

	userHandler := user.NewHandler(db, cfg.JWTSecret, cfg.JWTRefreshSecret)
	branchHandler := branch.NewHandler(db)
	planHandler := plan.NewHandler(db)
	customerHandler := customer.NewHandler(db)
	subscriptionHandler := subscription.NewHandler(db, notifier)
	paymentHandler := payment.NewHandler(db, notifier)
	attendanceHandler := attendance.NewHandler(db)
	paymobHandler := paymob.NewHandler(paymob.NewClient(cfg.Paymob), db, notifier)

	public := router.Group("/auth")
	{
		public.POST("/login", userHandler.Login)
		public.POST("/refresh", userHandler.RefreshToken)
	}

	// The gateway signs the callback; HMAC verification stands in for
	// bearer auth here.
	router.POST("/paymob/callback", paymobHandler.Callback)

	authMiddleware := auth.AuthMiddleware(cfg.JWTSecret)

	staff := router.Group("/")
	staff.Use(authMiddleware, auth.RequireStaff())
	{
		staff.GET("/me", userHandler.GetMe)

		staff.POST("/customers", customerHandler.Create)
		staff.GET("/customers", customerHandler.List)
		staff.GET("/customers/:customerID", customerHandler.Get)
		staff.PUT("/customers/:customerID", customerHandler.Update)
		staff.DELETE("/customers/:customerID", customerHandler.Deactivate)

		staff.GET("/plans", planHandler.List)
		staff.GET("/plans/:planID", planHandler.Get)

		staff.POST("/subscriptions", subscriptionHandler.Create)
		staff.GET("/subscriptions", subscriptionHandler.List)
		staff.GET("/subscriptions/expiring", subscriptionHandler.Expiring)
		staff.POST("/subscriptions/expiring/remind", subscriptionHandler.Remind)
		staff.GET("/subscriptions/:subscriptionID", subscriptionHandler.Get)
		staff.POST("/subscriptions/:subscriptionID/activate", subscriptionHandler.Activate)
		staff.POST("/subscriptions/:subscriptionID/freeze", subscriptionHandler.Freeze)
		staff.POST("/subscriptions/:subscriptionID/unfreeze", subscriptionHandler.Unfreeze)
		staff.POST("/subscriptions/:subscriptionID/cancel", subscriptionHandler.Cancel)
		staff.POST("/subscriptions/:subscriptionID/renew", subscriptionHandler.Renew)

		staff.POST("/payments", paymentHandler.Create)
		staff.GET("/payments", paymentHandler.List)
		staff.GET("/payments/:paymentID", paymentHandler.Get)
		staff.POST("/payments/:paymentID/complete", paymentHandler.Complete)
		staff.POST("/payments/:paymentID/fail", paymentHandler.MarkFailed)
		staff.POST("/payments/:paymentID/pay-online", paymobHandler.Initiate)

		staff.POST("/attendance/validate", attendanceHandler.Validate)
		staff.POST("/attendance/checkin", attendanceHandler.Checkin)
		staff.POST("/attendance/:recordID/checkout", attendanceHandler.Checkout)
		staff.GET("/attendance", attendanceHandler.List)
		staff.GET("/attendance/today", attendanceHandler.Today)
		staff.GET("/attendance/customers/:customerID", attendanceHandler.History)
	}

	// Money corrections stay with the owner and the accountant.
	finance := router.Group("/")
	finance.Use(authMiddleware, auth.RequireStaff(user.RoleOwner, user.RoleManager, user.RoleAccountant))
	{
		finance.GET("/payments/summary", paymentHandler.Summary)
		finance.POST("/payments/:paymentID/refund", paymentHandler.Refund)
	}

	owner := router.Group("/")
	owner.Use(authMiddleware, auth.RequireStaff(user.RoleOwner))
	{
		owner.POST("/auth/register", userHandler.Register)

		owner.POST("/branches", branchHandler.Create)
		owner.PUT("/branches/:branchID", branchHandler.Update)

		owner.POST("/plans", planHandler.Create)
		owner.PUT("/plans/:planID", planHandler.Update)
		owner.DELETE("/plans/:planID", planHandler.Deactivate)
	}

	branches := router.Group("/branches")
	branches.Use(authMiddleware, auth.RequireStaff())
	{
		branches.GET("", branchHandler.List)
		branches.GET("/:branchID", branchHandler.Get)
	}

	router.GET("/health", Health)
	router.GET("/metrics", Metrics())
	router.GET("/test-email", TestEmail(notifier))

	return &Server{
		router:   router,
		db:       db,
		config:   cfg,
		notifier: notifier,
	}
}

func (s *Server) Start(port string) error {
	s.http = &http.Server{
		Addr:    ":" + port,
		Handler: s.router,
	}
	return s.http.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
