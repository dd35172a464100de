package enum

// Collection names one of the durable catalog collections
type Collection string

const (
	CollectionPatients           Collection = "patients"
	CollectionProducts           Collection = "products"
	CollectionPatientMedications Collection = "patient_medications"
)

// Collections returns every catalog collection in persistence order
func Collections() []Collection {
	return []Collection{CollectionPatients, CollectionProducts, CollectionPatientMedications}
}

func (c Collection) String() string {
	return string(c)
}

// IsValid reports whether c is a known collection
func (c Collection) IsValid() bool {
	switch c {
	case CollectionPatients, CollectionProducts, CollectionPatientMedications:
		return true
	}
	return false
}
