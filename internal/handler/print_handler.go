// internal/handler/print_handler.go
package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"printer-service/internal/model"
	"printer-service/internal/service"
	"printer-service/internal/utils"
)

// PrintHandler handles document printing and preview requests
type PrintHandler struct {
	prints *service.PrintService
	logger *utils.ServiceLogger
}

// NewPrintHandler creates a new print handler
func NewPrintHandler(prints *service.PrintService, logger *zap.Logger) *PrintHandler {
	return &PrintHandler{
		prints: prints,
		logger: utils.NewServiceLogger(logger, "print-handler"),
	}
}

// RegisterRoutes registers print-related routes
func (h *PrintHandler) RegisterRoutes(router *gin.RouterGroup) {
	print := router.Group("/print")
	{
		print.POST("/receipt", h.PrintReceipt)
		print.POST("/receipt/preview", h.PreviewReceipt)
		print.POST("/closure", h.PrintClosure)
		print.POST("/closure/preview", h.PreviewClosure)
	}

	router.POST("/printers/:printer_id/test", h.PrintTest)
}

// PrintReceiptRequest wraps a receipt with its target printer. An empty
// printer_id routes the job to the first connected printer.
type PrintReceiptRequest struct {
	PrinterID string                `json:"printer_id"`
	Document  model.ReceiptDocument `json:"document" binding:"required"`
}

// PrintClosureRequest wraps a closure report with its target printer.
type PrintClosureRequest struct {
	PrinterID     string                `json:"printer_id"`
	Document      model.ClosureDocument `json:"document" binding:"required"`
	IncludeOrders bool                  `json:"include_orders"`
}

// PreviewResponse carries rendered screen text.
type PreviewResponse struct {
	Preview       string `json:"preview"`
	ReceiptNumber int64  `json:"receipt_number,omitempty"`
}

// PrintReceipt renders and prints a customer receipt
// @Summary Print a receipt
// @Description Render the receipt and send it to the printer. Assigns the next receipt number when the document carries none.
// @Tags Print
// @Accept json
// @Produce json
// @Param request body PrintReceiptRequest true "Print request"
// @Success 200 {object} utils.APIResponse{data=service.PrintResult} "Receipt printed"
// @Failure 400 {object} utils.APIResponse "Invalid request"
// @Failure 409 {object} utils.APIResponse "No printer connected"
// @Failure 503 {object} utils.APIResponse "Print failed"
// @Router /print/receipt [post]
func (h *PrintHandler) PrintReceipt(c *gin.Context) {
	var req PrintReceiptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	result, err := h.prints.PrintReceipt(c.Request.Context(), req.PrinterID, &req.Document)
	if err != nil {
		h.respondPrintError(c, "Receipt print failed", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Receipt printed", result)
}

// PreviewReceipt renders a receipt as screen text
// @Summary Preview a receipt
// @Description Render the receipt as plain text without printing or consuming a receipt number
// @Tags Print
// @Accept json
// @Produce json
// @Param request body PrintReceiptRequest true "Preview request"
// @Success 200 {object} utils.APIResponse{data=PreviewResponse} "Preview rendered"
// @Failure 400 {object} utils.APIResponse "Invalid request"
// @Router /print/receipt/preview [post]
func (h *PrintHandler) PreviewReceipt(c *gin.Context) {
	var req PrintReceiptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	preview, err := h.prints.PreviewReceipt(c.Request.Context(), &req.Document)
	if err != nil {
		h.logger.Error("Receipt preview failed", zap.Error(err))
		utils.ErrorResponse(c, http.StatusInternalServerError, "Preview failed", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Preview rendered", PreviewResponse{
		Preview:       preview,
		ReceiptNumber: req.Document.ReceiptNumber,
	})
}

// PrintClosure renders and prints a daily closure report
// @Summary Print a closure report
// @Description Render the end-of-day cash reconciliation report and send it to the printer
// @Tags Print
// @Accept json
// @Produce json
// @Param request body PrintClosureRequest true "Print request"
// @Success 200 {object} utils.APIResponse{data=service.PrintResult} "Closure printed"
// @Failure 400 {object} utils.APIResponse "Invalid request"
// @Failure 409 {object} utils.APIResponse "No printer connected"
// @Failure 503 {object} utils.APIResponse "Print failed"
// @Router /print/closure [post]
func (h *PrintHandler) PrintClosure(c *gin.Context) {
	var req PrintClosureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	result, err := h.prints.PrintClosure(c.Request.Context(), req.PrinterID, &req.Document, req.IncludeOrders)
	if err != nil {
		h.respondPrintError(c, "Closure print failed", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Closure printed", result)
}

// PreviewClosure renders a closure report as screen text
// @Summary Preview a closure report
// @Description Render the closure report as plain text without printing
// @Tags Print
// @Accept json
// @Produce json
// @Param request body PrintClosureRequest true "Preview request"
// @Success 200 {object} utils.APIResponse{data=PreviewResponse} "Preview rendered"
// @Failure 400 {object} utils.APIResponse "Invalid request"
// @Router /print/closure/preview [post]
func (h *PrintHandler) PreviewClosure(c *gin.Context) {
	var req PrintClosureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	preview := h.prints.PreviewClosure(c.Request.Context(), &req.Document, req.IncludeOrders)

	utils.SuccessResponse(c, http.StatusOK, "Preview rendered", PreviewResponse{
		Preview: preview,
	})
}

// PrintTest prints a test page
// @Summary Print a test page
// @Description Send a short test page to verify the printer link and character encoding
// @Tags Print
// @Accept json
// @Produce json
// @Param printer_id path string true "Printer ID"
// @Success 200 {object} utils.APIResponse{data=service.PrintResult} "Test page printed"
// @Failure 404 {object} utils.APIResponse "Printer not found"
// @Failure 503 {object} utils.APIResponse "Print failed"
// @Router /printers/{printer_id}/test [post]
func (h *PrintHandler) PrintTest(c *gin.Context) {
	printerID := c.Param("printer_id")

	result, err := h.prints.PrintTest(c.Request.Context(), printerID)
	if err != nil {
		h.respondPrintError(c, "Test print failed", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Test page printed", result)
}

// respondPrintError maps service errors onto HTTP statuses
func (h *PrintHandler) respondPrintError(c *gin.Context, message string, err error) {
	h.logger.Error(message, zap.Error(err))

	switch {
	case errors.Is(err, service.ErrInvalidDevice):
		utils.ErrorResponse(c, http.StatusNotFound, "Printer not found", err)
	case errors.Is(err, service.ErrNoPrinter), errors.Is(err, service.ErrNotConnected):
		utils.ErrorResponse(c, http.StatusConflict, "No printer connected", err)
	default:
		utils.ErrorResponse(c, http.StatusServiceUnavailable, message, err)
	}
}
