// internal/handler/printer_handler.go
package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"printer-service/internal/config"
	"printer-service/internal/model"
	"printer-service/internal/service"
	"printer-service/internal/utils"
)

// PrinterHandler handles printer discovery and connection requests
type PrinterHandler struct {
	connections *service.ConnectionService
	config      *config.Config
	logger      *utils.ServiceLogger
}

// NewPrinterHandler creates a new printer handler
func NewPrinterHandler(connections *service.ConnectionService, config *config.Config, logger *zap.Logger) *PrinterHandler {
	return &PrinterHandler{
		connections: connections,
		config:      config,
		logger:      utils.NewServiceLogger(logger, "printer-handler"),
	}
}

// RegisterRoutes registers printer-related routes
func (h *PrinterHandler) RegisterRoutes(router *gin.RouterGroup) {
	printers := router.Group("/printers")
	{
		printers.GET("", h.ListPrinters)
		printers.POST("/scan", h.ScanPrinters)

		printerRoutes := printers.Group("/:printer_id")
		{
			printerRoutes.POST("/connect", h.ConnectPrinter)
			printerRoutes.POST("/disconnect", h.DisconnectPrinter)
			printerRoutes.DELETE("", h.ForgetPrinter)
		}
	}

	router.GET("/status", h.GetStatus)
	router.POST("/status/clear-error", h.ClearLastError)
	router.GET("/settings", h.GetSettings)
}

// ScanRequest selects the transport to scan on
type ScanRequest struct {
	Transport model.TransportKind `json:"transport"`
}

// ListPrinters lists known printers
// @Summary List printers
// @Description Get all printers discovered this session or remembered from earlier ones
// @Tags Printers
// @Accept json
// @Produce json
// @Success 200 {object} utils.APIResponse{data=[]model.Printer} "Printers retrieved successfully"
// @Router /printers [get]
func (h *PrinterHandler) ListPrinters(c *gin.Context) {
	printers := h.connections.List()
	utils.SuccessResponse(c, http.StatusOK, "Printers retrieved successfully", printers)
}

// ScanPrinters scans a transport for nearby printers
// @Summary Scan for printers
// @Description Scan the selected transport for printers. A new scan cancels any scan already running.
// @Tags Printers
// @Accept json
// @Produce json
// @Param request body ScanRequest true "Scan request"
// @Success 200 {object} utils.APIResponse{data=[]model.Printer} "Scan completed"
// @Failure 400 {object} utils.APIResponse "Invalid request"
// @Failure 503 {object} utils.APIResponse "Transport unavailable"
// @Router /printers/scan [post]
func (h *PrinterHandler) ScanPrinters(c *gin.Context) {
	req := ScanRequest{Transport: model.TransportBluetooth}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
			return
		}
	}

	printers, err := h.connections.Scan(c.Request.Context(), req.Transport)
	if err != nil {
		h.logger.Error("Scan failed", zap.Error(err), zap.String("transport", string(req.Transport)))
		utils.ErrorResponse(c, http.StatusServiceUnavailable, "Scan failed", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Scan completed", printers)
}

// ConnectPrinter connects to a printer
// @Summary Connect to a printer
// @Description Establish a link to the printer. Connecting to an already connected printer is a no-op.
// @Tags Printers
// @Accept json
// @Produce json
// @Param printer_id path string true "Printer ID"
// @Success 200 {object} utils.APIResponse{data=model.Printer} "Printer connected"
// @Failure 404 {object} utils.APIResponse "Printer not found"
// @Failure 503 {object} utils.APIResponse "Connection failed"
// @Router /printers/{printer_id}/connect [post]
func (h *PrinterHandler) ConnectPrinter(c *gin.Context) {
	printerID := c.Param("printer_id")

	if err := h.connections.Connect(c.Request.Context(), printerID); err != nil {
		h.logger.Error("Connect failed", zap.Error(err), zap.String("printer_id", printerID))
		if errors.Is(err, service.ErrInvalidDevice) {
			utils.ErrorResponse(c, http.StatusNotFound, "Printer not found", err)
			return
		}
		utils.ErrorResponse(c, http.StatusServiceUnavailable, "Connection failed", err)
		return
	}

	printer, _ := h.connections.Get(printerID)
	utils.SuccessResponse(c, http.StatusOK, "Printer connected", printer)
}

// DisconnectPrinter disconnects from a printer
// @Summary Disconnect from a printer
// @Description Close the link to the printer. Disconnecting an already disconnected printer succeeds.
// @Tags Printers
// @Accept json
// @Produce json
// @Param printer_id path string true "Printer ID"
// @Success 200 {object} utils.APIResponse{data=model.Printer} "Printer disconnected"
// @Failure 404 {object} utils.APIResponse "Printer not found"
// @Router /printers/{printer_id}/disconnect [post]
func (h *PrinterHandler) DisconnectPrinter(c *gin.Context) {
	printerID := c.Param("printer_id")

	if err := h.connections.Disconnect(c.Request.Context(), printerID); err != nil {
		h.logger.Error("Disconnect failed", zap.Error(err), zap.String("printer_id", printerID))
		utils.ErrorResponse(c, http.StatusNotFound, "Printer not found", err)
		return
	}

	printer, _ := h.connections.Get(printerID)
	utils.SuccessResponse(c, http.StatusOK, "Printer disconnected", printer)
}

// ForgetPrinter removes a printer from the known list
// @Summary Forget a printer
// @Description Disconnect the printer if connected and remove its stored record
// @Tags Printers
// @Accept json
// @Produce json
// @Param printer_id path string true "Printer ID"
// @Success 200 {object} utils.APIResponse "Printer removed"
// @Failure 404 {object} utils.APIResponse "Printer not found"
// @Router /printers/{printer_id} [delete]
func (h *PrinterHandler) ForgetPrinter(c *gin.Context) {
	printerID := c.Param("printer_id")

	if err := h.connections.Forget(c.Request.Context(), printerID); err != nil {
		h.logger.Error("Forget failed", zap.Error(err), zap.String("printer_id", printerID))
		utils.ErrorResponse(c, http.StatusNotFound, "Printer not found", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Printer removed", nil)
}

// GetStatus reports transport availability and the last recorded error
// @Summary Service status
// @Description Report which transports this host supports, connected printers, and the last error
// @Tags Printers
// @Accept json
// @Produce json
// @Success 200 {object} utils.APIResponse "Status retrieved successfully"
// @Router /status [get]
func (h *PrinterHandler) GetStatus(c *gin.Context) {
	printers := h.connections.List()

	connected := make([]model.Printer, 0)
	for _, p := range printers {
		if p.IsConnected() {
			connected = append(connected, p)
		}
	}

	status := gin.H{
		"transports": gin.H{
			"bluetooth": h.connections.TransportSupported(model.TransportBluetooth),
			"serial":    h.connections.TransportSupported(model.TransportSerial),
			"usb":       h.connections.TransportSupported(model.TransportUSB),
		},
		"printers":  len(printers),
		"connected": connected,
	}

	if lastErr := h.connections.LastError(); lastErr != "" {
		status["last_error"] = lastErr
	}

	utils.SuccessResponse(c, http.StatusOK, "Status retrieved successfully", status)
}

// ClearLastError clears the stored last error
// @Summary Clear last error
// @Description Clear the last recorded transport or connection error
// @Tags Printers
// @Accept json
// @Produce json
// @Success 200 {object} utils.APIResponse "Error cleared"
// @Router /status/clear-error [post]
func (h *PrinterHandler) ClearLastError(c *gin.Context) {
	h.connections.ClearLastError()
	utils.SuccessResponse(c, http.StatusOK, "Error cleared", nil)
}

// GetSettings echoes the configured print defaults
// @Summary Get print settings
// @Description Get the rendering defaults applied to every document
// @Tags Printers
// @Accept json
// @Produce json
// @Success 200 {object} utils.APIResponse "Settings retrieved successfully"
// @Router /settings [get]
func (h *PrinterHandler) GetSettings(c *gin.Context) {
	p := h.config.Printer
	settings := gin.H{
		"paper_width":   p.PaperWidth,
		"density":       p.Density,
		"cut_paper":     p.CutPaper,
		"partial_cut":   p.PartialCut,
		"open_drawer":   p.OpenDrawer,
		"feed_lines":    p.FeedLines,
		"exchange_rate": p.ExchangeRate,
	}
	utils.SuccessResponse(c, http.StatusOK, "Settings retrieved successfully", settings)
}
