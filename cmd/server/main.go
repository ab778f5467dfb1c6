package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/franciscosanchezn/pizzeria/docs"
	"github.com/franciscosanchezn/pizzeria/internal/auth"
	"github.com/franciscosanchezn/pizzeria/internal/config"
	"github.com/franciscosanchezn/pizzeria/internal/controllers"
	"github.com/franciscosanchezn/pizzeria/internal/database"
	"github.com/franciscosanchezn/pizzeria/internal/middleware"
	"github.com/franciscosanchezn/pizzeria/internal/models"
	"github.com/franciscosanchezn/pizzeria/internal/notify"
	"github.com/franciscosanchezn/pizzeria/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"
)

//go:generate swag init -g cmd/server/main.go -d ../../ -o ../../docs

// @title Pizzeria Store API
// @version 1.0
// @description Menu, orders and settings for the pizzeria storefronts
// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	loadDotenvFile()
	configuration := loadConfig()
	setUpLogger(configuration)

	db := setupDatabase(configuration)
	router := setupRouter(db, configuration)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go purgeExpiredTokens(ctx, auth.NewGormTokenStore(db), time.Hour)

	srv := &http.Server{
		Addr:              fmt.Sprintf("%v:%d", configuration.Host, configuration.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Infof("Starting server on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("Server stopped unexpectedly")
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Graceful shutdown failed")
	}
}

// checkPanicErr checks if an error occurred and panics if it did
func checkPanicErr(err error) {
	if err != nil {
		panic(err)
	}
}

// loadDotenvFile loads environment variables from a .env file
// If the file is not found, it will log a warning and use system environment variables
func loadDotenvFile() {
	if err := godotenv.Load(); err != nil {
		log.Warn("No .env file found, using system environment variables")
	}
}

// setUpLogger uses JSON output. LOG_LEVEL wins over the APP_ENV default.
func setUpLogger(conf *config.Config) {
	log.SetFormatter(&log.JSONFormatter{})
	log.SetLevel(config.LevelForEnvironment(conf.Environment))
	if level, err := log.ParseLevel(conf.LogLevel); err == nil && os.Getenv("LOG_LEVEL") != "" {
		log.SetLevel(level)
	}
	if conf.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
}

// loadConfig loads the application configuration from environment variables
// It panics if there is an error
func loadConfig() *config.Config {
	conf, err := config.LoadConfig()
	checkPanicErr(err)
	return conf
}

// setupDatabase connects, migrates the schema and seeds the default menu
func setupDatabase(conf *config.Config) *gorm.DB {
	db, err := database.InitDatabase(conf.Database())
	checkPanicErr(err)
	checkPanicErr(database.Migrate(db))
	checkPanicErr(database.Seed(db))
	return db
}

// setupRouter wires services and controllers into a gin engine
func setupRouter(db *gorm.DB, conf *config.Config) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger())

	var botOpts []notify.BotOption
	if conf.TelegramAPIURL != "" {
		botOpts = append(botOpts, notify.WithAPIURL(conf.TelegramAPIURL))
	}

	orderService := services.NewOrderService(db)
	settingsService := services.NewSettingsService(db)

	setupRoutes(router, conf, routeHandlers{
		menu:     controllers.NewMenuController(services.NewPizzaService(db)),
		orders:   controllers.NewOrderController(orderService),
		settings: controllers.NewSettingsController(settingsService),
		auth:     controllers.NewAuthController(services.NewUserService(db), conf.JWTSecret),
		clients:  controllers.NewClientController(services.NewClientService(db)),
		telegram: controllers.NewTelegramController(orderService, settingsService, botOpts...),
		oauth:    auth.NewOAuthService(db, conf.JWTSecret),
	})
	return router
}

type routeHandlers struct {
	menu     *controllers.MenuController
	orders   *controllers.OrderController
	settings *controllers.SettingsController
	auth     *controllers.AuthController
	clients  *controllers.ClientController
	telegram *controllers.TelegramController
	oauth    *auth.OAuthService
}

// setupRoutes defines the routes for the Gin router
func setupRoutes(router *gin.Engine, conf *config.Config, h routeHandlers) {
	router.GET("/health", healthCheckHandler)
	router.POST("/oauth/token", h.oauth.HandleToken)

	v1 := router.Group("/api/v1")
	{
		publicApi := v1.Group("/public")
		{
			publicApi.GET("/settings", h.settings.GetPublicSettings)
			publicApi.GET("/pizzas", h.menu.GetAllPizzas)
			publicApi.GET("/pizzas/:id", h.menu.GetPizzaByID)
			publicApi.POST("/orders", h.orders.CreateOrder)
			publicApi.GET("/orders/:id", h.orders.GetOrder)
		}

		authApi := v1.Group("/auth")
		{
			authApi.POST("/login", h.auth.Login)
			authApi.POST("/register", h.auth.Register)
		}

		v1.POST("/telegram/webhook", middleware.TelegramSecret(conf.TelegramWebhookSecret), h.telegram.Webhook)

		protectedApi := v1.Group("/protected")
		protectedApi.Use(middleware.OAuth2Auth([]byte(conf.JWTSecret)))
		{
			protectedApi.GET("/me", h.auth.Me)
			protectedApi.POST("/clients", h.clients.CreateClient)
			protectedApi.GET("/clients", h.clients.ListClients)
			protectedApi.DELETE("/clients/:id", h.clients.DeleteClient)

			adminApi := protectedApi.Group("/admin")
			adminApi.Use(middleware.RequireRole(models.RoleAdmin))
			{
				adminApi.GET("/settings", h.settings.GetSettings)
				adminApi.POST("/settings", h.settings.SaveSettings)
				adminApi.POST("/pizzas", h.menu.ReplaceMenu)
				adminApi.GET("/orders", h.orders.ListOrders)
				adminApi.PATCH("/orders", h.orders.UpdateOrderStatus)
			}
		}
	}

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
}

// purgeExpiredTokens drops stale device token records until ctx is done
func purgeExpiredTokens(ctx context.Context, store *auth.GormTokenStore, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			removed, err := store.DeleteExpired(ctx, now)
			if err != nil {
				log.WithError(err).Warn("Failed to purge expired tokens")
				continue
			}
			if removed > 0 {
				log.WithField("removed", removed).Debug("Purged expired tokens")
			}
		}
	}
}

// healthCheckHandler handles the health check endpoint
// @Summary Health check
// @Description Check if the service is running
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func healthCheckHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"service":   "pizzeria-store",
	})
}
