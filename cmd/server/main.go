// cmd/server/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"printer-service/internal/config"
	"printer-service/internal/database"
	"printer-service/internal/repository"
	"printer-service/internal/routes"
	"printer-service/internal/service"
	"printer-service/internal/transport"
	"printer-service/internal/utils"
)

// Application represents the main application
type Application struct {
	config   *config.Config
	logger   *zap.Logger
	server   *http.Server
	router   *routes.Router
	database *database.DB

	printerRepo repository.PrinterRepository
	transports  []transport.Transport
	usb         *transport.USBTransport

	connectionService *service.ConnectionService
	printService      *service.PrintService
}

// @title Printer Service API
// @version 1.0.0
// @description Sidecar service driving Bluetooth, serial and USB thermal printers for the POS frontend
// @host localhost:8086
// @BasePath /api/v1
func main() {
	app, err := NewApplication()
	if err != nil {
		fmt.Printf("Failed to initialize application: %v\n", err)
		os.Exit(1)
	}

	if err := app.Start(); err != nil {
		app.logger.Fatal("Failed to start application", zap.Error(err))
	}
}

// NewApplication creates a new application instance
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := utils.NewLogger(&cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	serviceLogger := utils.NewServiceLogger(logger, "printer-service")
	serviceLogger.LogServiceStart(cfg.App.Version, cfg)

	app := &Application{
		config: cfg,
		logger: logger,
	}

	if err := app.initializeStorage(); err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	app.initializeTransports()

	if err := app.initializeServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	if err := app.initializeServer(); err != nil {
		return nil, fmt.Errorf("failed to initialize server: %w", err)
	}

	return app, nil
}

// initializeStorage sets up the printer repository. The file driver
// runs standalone; the postgres driver connects to the shared POS
// database and runs migrations.
func (app *Application) initializeStorage() error {
	switch app.config.Storage.Driver {
	case "postgres":
		db, err := database.NewConnection(&app.config.Storage.Database, app.logger)
		if err != nil {
			return fmt.Errorf("failed to create database connection: %w", err)
		}
		app.database = db

		migrator := database.NewMigrator(db, app.logger, &app.config.Storage.Database)
		if err := migrator.Up(); err != nil {
			return fmt.Errorf("failed to run database migrations: %w", err)
		}

		app.printerRepo = repository.NewPostgresRepository(db, app.logger)

	default:
		repo, err := repository.NewFileRepository(app.config.Storage.FilePath, app.logger)
		if err != nil {
			return fmt.Errorf("failed to open printer store: %w", err)
		}
		app.printerRepo = repo
	}

	app.logger.Info("Storage initialized successfully",
		zap.String("driver", app.config.Storage.Driver),
	)
	return nil
}

// initializeTransports builds the transport set for this host. All
// three are always registered; hosts missing the hardware report
// unsupported at scan time instead of failing startup.
func (app *Application) initializeTransports() {
	ble := transport.NewBluetooth(transport.BluetoothOptions{
		ConnectTimeout: app.config.Bluetooth.ConnectTimeout,
	}, app.logger)

	ser := transport.NewSerial(transport.SerialOptions{
		BaudRate:     app.config.Serial.BaudRate,
		DataBits:     app.config.Serial.DataBits,
		StopBits:     app.config.Serial.StopBits,
		Parity:       app.config.Serial.Parity,
		WriteTimeout: app.config.Serial.WriteTimeout,
	}, app.logger)

	app.usb = transport.NewUSB(transport.USBOptions{
		VendorID:  app.config.USB.VendorID,
		ProductID: app.config.USB.ProductID,
	}, app.logger)

	app.transports = []transport.Transport{ble, ser, app.usb}

	app.logger.Info("Transports initialized successfully",
		zap.Int("transports", len(app.transports)),
	)
}

// initializeServices creates service instances
func (app *Application) initializeServices() error {
	serviceLogger := utils.NewServiceLogger(app.logger, "connection-service")

	connectionService, err := service.NewConnectionService(
		app.config,
		app.printerRepo,
		app.transports,
		serviceLogger,
	)
	if err != nil {
		return fmt.Errorf("failed to create connection service: %w", err)
	}
	app.connectionService = connectionService

	app.printService = service.NewPrintService(
		app.config,
		app.connectionService,
		app.printerRepo,
		utils.NewServiceLogger(app.logger, "print-service"),
	)

	app.logger.Info("Services initialized successfully")
	return nil
}

// initializeServer sets up HTTP server and routes
func (app *Application) initializeServer() error {
	app.router = routes.NewRouter(
		app.config,
		app.logger,
		app.database,
		app.connectionService,
		app.printService,
	)

	router := app.router.SetupRouter()

	app.server = &http.Server{
		Addr:         app.config.GetServerAddr(),
		Handler:      router,
		ReadTimeout:  app.config.Server.ReadTimeout,
		WriteTimeout: app.config.Server.WriteTimeout,
		IdleTimeout:  app.config.Server.IdleTimeout,
	}

	app.logger.Info("HTTP server initialized",
		zap.String("address", app.config.GetServerAddr()),
	)

	return nil
}

// waitForShutdown waits for shutdown signal and performs graceful shutdown
func (app *Application) waitForShutdown() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	sig := <-quit
	app.logger.Info("Received shutdown signal", zap.String("signal", sig.String()))

	app.shutdown()
}

// shutdown performs graceful shutdown
func (app *Application) shutdown() {
	serviceLogger := utils.NewServiceLogger(app.logger, "printer-service")
	serviceLogger.LogServiceStop("shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("HTTP server shutdown error", zap.Error(err))
	} else {
		app.logger.Info("HTTP server stopped")
	}

	app.router.Close()

	// Disconnect printers before releasing the USB context their
	// links write through.
	app.connectionService.CancelScan()
	app.connectionService.Shutdown(ctx)

	if err := app.usb.Shutdown(); err != nil {
		app.logger.Error("USB shutdown error", zap.Error(err))
	}

	if err := app.printerRepo.Close(); err != nil {
		app.logger.Error("Printer store close error", zap.Error(err))
	}

	if app.database != nil {
		if err := app.database.Close(); err != nil {
			app.logger.Error("Database close error", zap.Error(err))
		} else {
			app.logger.Info("Database connection closed")
		}
	}

	if err := utils.CloseLogger(app.logger); err != nil {
		fmt.Printf("Logger close error: %v\n", err)
	}

	app.logger.Info("Application shutdown completed")
}

func (app *Application) Start() error {
	go func() {
		app.logger.Info("Starting HTTP server",
			zap.String("address", app.server.Addr),
		)

		if err := app.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			app.logger.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	}()

	app.waitForShutdown()

	return nil
}
