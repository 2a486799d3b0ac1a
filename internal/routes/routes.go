// internal/routes/routes.go
package routes

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"printer-service/internal/config"
	"printer-service/internal/database"
	"printer-service/internal/handler"
	"printer-service/internal/middleware"
	"printer-service/internal/service"
	"printer-service/internal/utils"
)

// Router holds all dependencies for routing
type Router struct {
	config            *config.Config
	logger            *zap.Logger
	db                *database.DB
	connectionService *service.ConnectionService
	printService      *service.PrintService
	wsHandler         *handler.WebSocketHandler
}

// NewRouter creates a new router instance. db is nil when the file
// storage driver is configured.
func NewRouter(
	config *config.Config,
	logger *zap.Logger,
	db *database.DB,
	connectionService *service.ConnectionService,
	printService *service.PrintService,
) *Router {
	return &Router{
		config:            config,
		logger:            logger,
		db:                db,
		connectionService: connectionService,
		printService:      printService,
	}
}

// SetupRouter creates and configures the Gin router
func (r *Router) SetupRouter() *gin.Engine {
	if r.config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()

	r.addMiddleware(router)
	r.addRoutes(router)

	return router
}

// addMiddleware adds middleware to the router
func (r *Router) addMiddleware(router *gin.Engine) {
	router.Use(middleware.RecoveryMiddleware(r.logger))
	router.Use(middleware.RequestIDMiddleware())

	serviceLogger := utils.NewServiceLogger(r.logger, "http-server")
	router.Use(middleware.LoggingMiddleware(serviceLogger))

	router.Use(middleware.CORSMiddleware(&r.config.Security))

	r.logger.Info("Middleware configured")
}

// addRoutes sets up all application routes
func (r *Router) addRoutes(router *gin.Engine) {
	healthHandler := handler.NewHealthHandler(r.db, r.config, r.logger)
	printerHandler := handler.NewPrinterHandler(r.connectionService, r.config, r.logger)
	printHandler := handler.NewPrintHandler(r.printService, r.logger)
	r.wsHandler = handler.NewWebSocketHandler(r.logger)

	// Printer state changes and print outcomes flow to the frontend
	// over the events WebSocket.
	r.connectionService.SetListener(handler.NewPrinterEventHandler(r.wsHandler))

	healthHandler.RegisterRoutes(router.Group(""))

	apiV1 := router.Group("/api/v1")
	printerHandler.RegisterRoutes(apiV1)
	printHandler.RegisterRoutes(apiV1)

	r.wsHandler.RegisterRoutes(router.Group("/ws"))

	r.logger.Info("All routes configured successfully")
}

// Close stops the event bus behind the WebSocket handler. Called after
// the HTTP server has drained.
func (r *Router) Close() {
	if r.wsHandler != nil {
		r.wsHandler.Close()
	}
}
