package route

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"qrmenu/auth"
	"qrmenu/config"
	"qrmenu/controller"
	"qrmenu/database"
	"qrmenu/events"
	"qrmenu/service"
	"qrmenu/utils"
)

type Dependencies struct {
	Config *config.Config
	Store  database.Store
	Broker events.Broker
	Tokens *utils.TokenManager
	Log    *zap.Logger
}

type handlers struct {
	auth      *auth.Handler
	menu      *controller.MenuController
	tables    *controller.TableController
	orders    *controller.OrderController
	analytics *controller.AnalyticsController
	events    *controller.EventsController
	health    *controller.HealthController
}

func newHandlers(d Dependencies) handlers {
	orders := service.NewOrderService(d.Store, d.Broker, d.Log, d.Config.Orders.StrictTransitions)
	analytics := service.NewAnalyticsService(d.Store)

	return handlers{
		auth:      auth.NewHandler(d.Store, d.Tokens, d.Log),
		menu:      controller.NewMenuController(d.Store, d.Log, d.Config.Server.UploadDir),
		tables:    controller.NewTableController(d.Store, orders, d.Log, d.Config.Server.ClientOrigin),
		orders:    controller.NewOrderController(orders, d.Log),
		analytics: controller.NewAnalyticsController(analytics, orders, d.Log),
		events:    controller.NewEventsController(d.Broker, d.Log),
		health:    controller.NewHealthController(d.Store, d.Log),
	}
}

// NewRouter builds the engine with middleware, API routes and the optional
// static frontend.
func NewRouter(d Dependencies) *gin.Engine {
	router := gin.New()
	router.Use(utils.Recovery(d.Log), utils.RequestLogger(d.Log), utils.SecurityHeaders())

	router.Use(cors.New(cors.Config{
		AllowOrigins:     d.Config.Server.Origins(),
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	h := newHandlers(d)
	limiter := utils.NewIPRateLimiter(d.Config.RateLimit.LoginRPS, d.Config.RateLimit.LoginBurst)
	loginLimit := utils.RateLimit(limiter, d.Log)

	router.GET("/health", h.health.Health)
	customerRoutes(router, h, d.Tokens, loginLimit)
	ownerRoutes(router, h, d.Tokens, loginLimit)

	if d.Config.Server.UploadDir != "" {
		router.Static("/uploads", d.Config.Server.UploadDir)
	}
	serveFrontend(router, d.Config.Server.FrontendDir, d.Log)
	return router
}

func customerRoutes(router *gin.Engine, h handlers, tokens *utils.TokenManager, loginLimit gin.HandlerFunc) {
	customer := router.Group("/api/customer")
	customer.POST("/table/verify", loginLimit, h.auth.VerifyTable)
	customer.GET("/menu", h.menu.PublicMenu)
	customer.GET("/events", utils.TableMiddleware(tokens, true), h.events.TableStream)

	table := customer.Group("")
	table.Use(utils.TableMiddleware(tokens, false))
	{
		table.POST("/orders", h.orders.PlaceOrder)
		table.GET("/orders", h.orders.TableOrders)
		table.POST("/call-waiter", h.orders.CallWaiter)
		table.POST("/feedback", h.orders.SubmitFeedback)
	}
}

func ownerRoutes(router *gin.Engine, h handlers, tokens *utils.TokenManager, loginLimit gin.HandlerFunc) {
	owner := router.Group("/api/owner")
	owner.POST("/login", loginLimit, h.auth.OwnerLogin)
	owner.GET("/events", utils.OwnerMiddleware(tokens, true), h.events.OwnerStream)

	protected := owner.Group("")
	protected.Use(utils.OwnerMiddleware(tokens, false))
	{
		protected.GET("/menu", h.menu.ListMenu)
		protected.POST("/menu", h.menu.CreateMenuItem)
		protected.POST("/menu/import", h.menu.ImportMenu)
		protected.PUT("/menu/:id", h.menu.UpdateMenuItem)
		protected.DELETE("/menu/:id", h.menu.DeleteMenuItem)
		protected.POST("/menu/:id/image", h.menu.UploadImage)

		protected.GET("/tables", h.tables.ListTables)
		protected.POST("/tables", h.tables.CreateTable)
		protected.PUT("/tables/:tableId", h.tables.UpdateTable)
		protected.DELETE("/tables/:tableId", h.tables.DeleteTable)
		protected.GET("/tables/:tableId/qr", h.tables.TableQR)
		protected.POST("/tables/:tableId/reset", h.tables.ResetTable)

		protected.GET("/orders", h.orders.AllOrders)
		protected.POST("/orders/:id/fulfill", h.orders.Fulfill)
		protected.POST("/orders/:id/status", h.orders.UpdateStatus)

		protected.GET("/analytics/summary", h.analytics.Summary)
		protected.GET("/analytics/export", h.analytics.Export)

		protected.GET("/feedback", h.orders.ListFeedback)

		protected.GET("/waiter-calls", h.orders.WaiterCalls)
		protected.POST("/waiter-calls/:id/ack", h.orders.AcknowledgeWaiterCall)
	}
}

// serveFrontend serves a built single page app from dir, falling back to
// index.html for unknown paths outside /api.
func serveFrontend(router *gin.Engine, dir string, log *zap.Logger) {
	notFound := func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	}

	if dir == "" {
		router.NoRoute(notFound)
		return
	}
	if _, err := os.Stat(dir); err != nil {
		log.Warn("Frontend build directory not found, static file serving disabled", zap.String("dir", dir))
		router.NoRoute(notFound)
		return
	}

	router.StaticFS("/static", http.Dir(filepath.Join(dir, "static")))
	index := filepath.Join(dir, "index.html")
	router.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api/") || c.Request.Method != http.MethodGet {
			notFound(c)
			return
		}
		c.File(index)
	})
	log.Info("Static file serving configured", zap.String("dir", dir))
}
