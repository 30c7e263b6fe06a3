package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/cart-recovery-backend/config"
	"github.com/ikkim/cart-recovery-backend/internal/app/controller"
	"github.com/ikkim/cart-recovery-backend/internal/app/model"
	"github.com/ikkim/cart-recovery-backend/internal/middleware"
	"github.com/ikkim/cart-recovery-backend/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Router struct {
	captureController   *controller.CaptureController
	hookController      *controller.HookController
	cartController      *controller.CartController
	adminCartController *controller.AdminCartController
	authMiddleware      *middleware.AuthMiddleware
	sessionMiddleware   *middleware.CartSessionMiddleware
	registry            *prometheus.Registry
	config              *config.Config
}

func NewRouter(
	captureController *controller.CaptureController,
	hookController *controller.HookController,
	cartController *controller.CartController,
	adminCartController *controller.AdminCartController,
	authMiddleware *middleware.AuthMiddleware,
	sessionMiddleware *middleware.CartSessionMiddleware,
	registry *prometheus.Registry,
	cfg *config.Config,
) *Router {
	return &Router{
		captureController:   captureController,
		hookController:      hookController,
		cartController:      cartController,
		adminCartController: adminCartController,
		authMiddleware:      authMiddleware,
		sessionMiddleware:   sessionMiddleware,
		registry:            registry,
		config:              cfg,
	}
}

func (r *Router) Setup() *gin.Engine {
	gin.SetMode(r.config.Server.GinMode)

	router := gin.New()

	var httpMetrics *metrics.HTTPMetrics
	if r.registry != nil {
		httpMetrics = metrics.NewHTTPMetrics(r.registry)
	}

	router.Use(gin.Recovery())
	router.Use(middleware.LoggingMiddleware(httpMetrics))
	router.Use(corsMiddleware(r.config.CORS.AllowedOrigins))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"message": "Cart recovery API is running",
		})
	})
	if r.registry != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})))
	}

	v1 := router.Group("/api/v1")
	{
		// Storefront routes carry an optional shopper token and a cart session
		storefront := v1.Group("", r.authMiddleware.OptionalAuthenticate(), r.sessionMiddleware.Handle())
		{
			checkout := storefront.Group("/checkout")
			{
				checkout.GET("/nonce", r.captureController.IssueNonce)
				checkout.POST("/capture", r.captureController.Capture)
			}

			cart := storefront.Group("/cart")
			{
				cart.GET("", r.cartController.GetCart)
				cart.POST("", r.cartController.SetItem)
				cart.DELETE("", r.cartController.ClearCart)
				cart.DELETE("/:product_id", r.cartController.RemoveItem)
			}
		}

		hooks := v1.Group("/hooks", middleware.RequireHookToken(r.config.Capture.HookToken))
		{
			hooks.POST("/checkout", r.hookController.Checkout)
			hooks.POST("/order-completed", r.hookController.OrderCompleted)
		}

		admin := v1.Group("/admin/abandoned-carts",
			r.authMiddleware.Authenticate(),
			r.authMiddleware.RequireRole(model.RoleAdmin),
		)
		{
			admin.GET("", r.adminCartController.List)
			admin.GET("/unviewed-count", r.adminCartController.UnviewedCount)
			admin.GET("/export", r.adminCartController.Export)
			admin.GET("/feed", r.adminCartController.Feed)
			admin.GET("/:id", r.adminCartController.Get)
			admin.POST("/cleanup", r.adminCartController.Cleanup)
		}
	}

	return router
}

func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")

		allowed := false
		for _, allowedOrigin := range allowedOrigins {
			if origin == allowedOrigin || allowedOrigin == "*" {
				allowed = true
				break
			}
		}

		if allowed {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Cart-Session, X-Request-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, DELETE")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
