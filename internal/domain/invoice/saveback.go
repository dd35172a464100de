package invoice

import (
	"errors"

	"github.com/sangkips/pharmacy-invoice/internal/domain/entity"
)

// ErrNoPatientSelected is returned when saving without a concrete patient
var ErrNoPatientSelected = errors.New("invoice: no patient selected")

// IsConcretePatient reports whether id names a real patient rather than a sentinel
func IsConcretePatient(id string) bool {
	return id != "" && id != entity.AllPatients
}

// SaveBack replaces every standing-order row of the selected patient with one
// row per invoice line. Rows of other patients are kept in their original order.
func SaveBack(selectedPatientID string, items []entity.InvoiceItem, medications []entity.PatientMedication) ([]entity.PatientMedication, error) {
	if !IsConcretePatient(selectedPatientID) {
		return nil, ErrNoPatientSelected
	}

	out := make([]entity.PatientMedication, 0, len(medications)+len(items))
	for _, m := range medications {
		if m.PatientID != selectedPatientID {
			out = append(out, m)
		}
	}
	for _, it := range items {
		out = append(out, entity.PatientMedication{
			PatientID: selectedPatientID,
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			Discount:  it.Discount,
		})
	}
	return out, nil
}
