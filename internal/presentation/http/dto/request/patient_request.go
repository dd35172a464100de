package request

// PatientRequest represents a patient create or rename request
type PatientRequest struct {
	Name string `json:"name" binding:"required,max=255"`
}
