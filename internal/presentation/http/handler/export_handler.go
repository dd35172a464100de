package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sangkips/pharmacy-invoice/internal/application/service"
	"github.com/sangkips/pharmacy-invoice/internal/presentation/http/dto/response"
)

// ExportHandler handles PDF and receipt exports and printer status.
type ExportHandler struct {
	exportService *service.ExportService
}

// NewExportHandler creates a new export handler.
func NewExportHandler(exportService *service.ExportService) *ExportHandler {
	return &ExportHandler{exportService: exportService}
}

// PDF streams the invoice as a PDF attachment.
func (h *ExportHandler) PDF(c *gin.Context) {
	doc, err := h.exportService.RenderPDF(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+doc.Filename+`"`)
	c.Data(http.StatusOK, "application/pdf", doc.Data)
}

// PrintReceipt prints the invoice on the thermal printer.
func (h *ExportHandler) PrintReceipt(c *gin.Context) {
	receipt, err := h.exportService.PrintReceipt(c.Request.Context(), c.Param("id"))
	if err != nil {
		// If receipt was built but printing failed, return receipt with warning
		if receipt != nil {
			response.OK(c, "Receipt generated but printing failed", gin.H{
				"receipt": receipt,
				"warning": err.Error(),
			})
			return
		}
		response.Error(c, err)
		return
	}

	response.OK(c, "Receipt printed successfully", gin.H{
		"receipt": receipt,
	})
}

// GetStatus returns the current printer connection status.
func (h *ExportHandler) GetStatus(c *gin.Context) {
	response.OK(c, "Printer status retrieved", h.exportService.GetPrinterStatus())
}

// TestPrint sends a test page to the printer.
func (h *ExportHandler) TestPrint(c *gin.Context) {
	receipt, err := h.exportService.TestPrint(c.Request.Context())
	if err != nil {
		// Return the receipt data anyway (useful when printer type is "none")
		response.OK(c, "Test print completed (printer may be disabled)", gin.H{
			"receipt": receipt,
			"warning": err.Error(),
		})
		return
	}

	response.OK(c, "Test page sent to printer", gin.H{
		"receipt": receipt,
	})
}
