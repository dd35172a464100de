package entity

import "time"

// AllPatients is the selection sentinel that builds an invoice from the whole catalog
const AllPatients = "all"

// InvoiceItem is a working invoice line. Name and Price are a snapshot of the
// product taken when the line was created.
type InvoiceItem struct {
	ProductID string  `json:"product_id"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity"`
	Discount  float64 `json:"discount"`
}

// Totals holds the derived amounts of an invoice
type Totals struct {
	Subtotal      float64 `json:"subtotal"`
	DiscountTotal float64 `json:"discount_total"`
	GrandTotal    float64 `json:"grand_total"`
}

// InvoiceSnapshot is a read-only copy of an invoice session
type InvoiceSnapshot struct {
	ID                string        `json:"id"`
	Reference         string        `json:"reference"`
	SelectedPatientID string        `json:"selected_patient_id"`
	Items             []InvoiceItem `json:"items"`
	Totals            Totals        `json:"totals"`
	OpenedAt          time.Time     `json:"opened_at"`
	UpdatedAt         time.Time     `json:"updated_at"`
}
