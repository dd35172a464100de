package request

// SelectPatientRequest selects whose standing order builds the invoice.
// "all" selects the whole catalog and "" clears the selection.
type SelectPatientRequest struct {
	PatientID *string `json:"patient_id" binding:"required"`
}

// AddItemRequest adds a product line
type AddItemRequest struct {
	ProductID string `json:"product_id" binding:"required"`
}

// UpdateItemRequest edits a line. Values may be numbers or numeric strings;
// omitted fields are left unchanged.
type UpdateItemRequest struct {
	Quantity any `json:"quantity"`
	Discount any `json:"discount"`
}
