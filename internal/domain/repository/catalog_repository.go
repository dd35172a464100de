package repository

import (
	"context"

	"github.com/sangkips/pharmacy-invoice/internal/domain/entity"
)

// CatalogRepository defines whole-collection access to the pharmacy catalog.
// Malformed stored data is returned as an empty collection.
type CatalogRepository interface {
	GetPatients(ctx context.Context) ([]entity.Patient, error)
	SavePatients(ctx context.Context, patients []entity.Patient) error

	GetProducts(ctx context.Context) ([]entity.Product, error)
	SaveProducts(ctx context.Context, products []entity.Product) error

	GetMedications(ctx context.Context) ([]entity.PatientMedication, error)
	SaveMedications(ctx context.Context, medications []entity.PatientMedication) error
}
