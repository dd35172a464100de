package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/sangkips/pharmacy-invoice/internal/application/service"
	"github.com/sangkips/pharmacy-invoice/internal/presentation/http/dto/request"
	"github.com/sangkips/pharmacy-invoice/internal/presentation/http/dto/response"
)

// InvoiceHandler handles the invoice workspace
type InvoiceHandler struct {
	invoiceService *service.InvoiceService
}

// NewInvoiceHandler creates a new invoice handler
func NewInvoiceHandler(invoiceService *service.InvoiceService) *InvoiceHandler {
	return &InvoiceHandler{invoiceService: invoiceService}
}

// Open starts a new invoice
func (h *InvoiceHandler) Open(c *gin.Context) {
	response.Created(c, "Invoice opened", h.invoiceService.Open(c.Request.Context()))
}

// Get returns an invoice with its totals
func (h *InvoiceHandler) Get(c *gin.Context) {
	inv, err := h.invoiceService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Invoice retrieved successfully", inv)
}

// Totals returns only the totals
func (h *InvoiceHandler) Totals(c *gin.Context) {
	totals, err := h.invoiceService.Totals(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Totals computed", totals)
}

// Close discards an invoice
func (h *InvoiceHandler) Close(c *gin.Context) {
	if err := h.invoiceService.Close(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Invoice closed", nil)
}

// SelectPatient rebuilds the invoice for a patient, the whole catalog or nothing
func (h *InvoiceHandler) SelectPatient(c *gin.Context) {
	var req request.SelectPatientRequest
	if !bindJSON(c, &req) {
		return
	}

	inv, err := h.invoiceService.SelectPatient(c.Request.Context(), c.Param("id"), *req.PatientID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Patient selected", inv)
}

// AddItem adds a product line
func (h *InvoiceHandler) AddItem(c *gin.Context) {
	var req request.AddItemRequest
	if !bindJSON(c, &req) {
		return
	}

	inv, err := h.invoiceService.AddProduct(c.Request.Context(), c.Param("id"), req.ProductID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Item added", inv)
}

// UpdateItem edits a line's quantity and/or discount
func (h *InvoiceHandler) UpdateItem(c *gin.Context) {
	var req request.UpdateItemRequest
	if !bindJSON(c, &req) {
		return
	}

	inv, err := h.invoiceService.UpdateItem(c.Request.Context(), &service.UpdateItemInput{
		InvoiceID: c.Param("id"),
		ProductID: c.Param("product_id"),
		Quantity:  req.Quantity,
		Discount:  req.Discount,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Item updated", inv)
}

// RemoveItem drops a line
func (h *InvoiceHandler) RemoveItem(c *gin.Context) {
	inv, err := h.invoiceService.RemoveItem(c.Request.Context(), c.Param("id"), c.Param("product_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Item removed", inv)
}

// Save stores the invoice lines as the patient's standing order
func (h *InvoiceHandler) Save(c *gin.Context) {
	inv, err := h.invoiceService.SaveBack(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Standing order saved", inv)
}

// Resync refreshes line names and prices from the catalog
func (h *InvoiceHandler) Resync(c *gin.Context) {
	inv, err := h.invoiceService.Resync(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Invoice re-synced", inv)
}
