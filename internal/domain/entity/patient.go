package entity

// Patient represents a pharmacy patient
type Patient struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// PatientMedication is a patient's standing order for one product.
// It is unique per (PatientID, ProductID).
type PatientMedication struct {
	PatientID string  `json:"patient_id"`
	ProductID string  `json:"product_id"`
	Quantity  int     `json:"quantity"`
	Discount  float64 `json:"discount"`
}

// PatientMedicationView is a standing order row resolved against the product catalog
type PatientMedicationView struct {
	PatientMedication
	ProductName  string  `json:"product_name,omitempty"`
	ProductPrice float64 `json:"product_price,omitempty"`
	Missing      bool    `json:"missing,omitempty"`
}
