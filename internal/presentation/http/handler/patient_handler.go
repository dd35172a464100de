package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/sangkips/pharmacy-invoice/internal/application/service"
	"github.com/sangkips/pharmacy-invoice/internal/presentation/http/dto/request"
	"github.com/sangkips/pharmacy-invoice/internal/presentation/http/dto/response"
)

// PatientHandler handles patient-related HTTP requests
type PatientHandler struct {
	catalogService *service.CatalogService
}

// NewPatientHandler creates a new patient handler
func NewPatientHandler(catalogService *service.CatalogService) *PatientHandler {
	return &PatientHandler{catalogService: catalogService}
}

// List handles listing patients
func (h *PatientHandler) List(c *gin.Context) {
	search, params, ok := bindList(c)
	if !ok {
		return
	}

	result, err := h.catalogService.ListPatients(c.Request.Context(), search, params)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithPagination(c, 200, "Patients retrieved successfully", result)
}

// Get handles getting a single patient
func (h *PatientHandler) Get(c *gin.Context) {
	patient, err := h.catalogService.GetPatient(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Patient retrieved successfully", patient)
}

// Create handles creating a patient
func (h *PatientHandler) Create(c *gin.Context) {
	var req request.PatientRequest
	if !bindJSON(c, &req) {
		return
	}

	patient, err := h.catalogService.CreatePatient(c.Request.Context(), req.Name)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, "Patient created successfully", patient)
}

// Update handles renaming a patient
func (h *PatientHandler) Update(c *gin.Context) {
	var req request.PatientRequest
	if !bindJSON(c, &req) {
		return
	}

	patient, err := h.catalogService.UpdatePatient(c.Request.Context(), c.Param("id"), req.Name)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Patient updated successfully", patient)
}

// Delete handles deleting a patient and their standing order
func (h *PatientHandler) Delete(c *gin.Context) {
	if err := h.catalogService.DeletePatient(c.Request.Context(), c.Param("id"), IsDeleteConfirmed(c)); err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Patient deleted successfully", nil)
}

// Medications lists a patient's standing order
func (h *PatientHandler) Medications(c *gin.Context) {
	meds, err := h.catalogService.ListMedications(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Medications retrieved successfully", meds)
}
