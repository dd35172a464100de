package service

import (
	"context"
	"math"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/sangkips/pharmacy-invoice/internal/domain/entity"
	"github.com/sangkips/pharmacy-invoice/internal/domain/repository"
	"github.com/sangkips/pharmacy-invoice/pkg/apperror"
	"github.com/sangkips/pharmacy-invoice/pkg/metrics"
	"github.com/sangkips/pharmacy-invoice/pkg/pagination"
	"github.com/sangkips/pharmacy-invoice/pkg/utils"
)

// CatalogListener is told about deletions after they are persisted
type CatalogListener interface {
	PatientDeleted(ctx context.Context, patientID string)
	ProductDeleted(ctx context.Context, productID string)
}

// Catalog is a consistent read of all three collections
type Catalog struct {
	Patients    []entity.Patient
	Products    []entity.Product
	Medications []entity.PatientMedication
}

// CatalogService handles patient and product maintenance. Every
// read-modify-write cycle runs under one mutex.
type CatalogService struct {
	repo     repository.CatalogRepository
	validate *validator.Validate
	metrics  *metrics.Metrics
	logger   zerolog.Logger

	mu        sync.Mutex
	listeners []CatalogListener
}

// NewCatalogService creates a new catalog service
func NewCatalogService(repo repository.CatalogRepository, m *metrics.Metrics, logger zerolog.Logger) *CatalogService {
	return &CatalogService{
		repo:     repo,
		validate: validator.New(),
		metrics:  m,
		logger:   logger,
	}
}

// Subscribe registers a listener for cascade notifications
func (s *CatalogService) Subscribe(l CatalogListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

func (s *CatalogService) subscribers() []CatalogListener {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]CatalogListener(nil), s.listeners...)
}

// Snapshot reads the whole catalog
func (s *CatalogService) Snapshot(ctx context.Context) (*Catalog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

func (s *CatalogService) load(ctx context.Context) (*Catalog, error) {
	patients, err := s.repo.GetPatients(ctx)
	if err != nil {
		return nil, apperror.NewInternalError("Failed to read patients", err)
	}
	products, err := s.repo.GetProducts(ctx)
	if err != nil {
		return nil, apperror.NewInternalError("Failed to read products", err)
	}
	meds, err := s.repo.GetMedications(ctx)
	if err != nil {
		return nil, apperror.NewInternalError("Failed to read medications", err)
	}
	return &Catalog{Patients: patients, Products: products, Medications: meds}, nil
}

// PatientInput represents the create/rename patient input
type PatientInput struct {
	Name string `validate:"required,max=255"`
}

// ProductInput represents the create/update product input
type ProductInput struct {
	Name  string  `validate:"required,max=255"`
	Price float64 `validate:"gte=0,lte=1000000000"`
}

func (s *CatalogService) check(input any) error {
	if err := s.validate.Struct(input); err != nil {
		return apperror.FromValidator(err)
	}
	return nil
}

// --- Patients ---

// ListPatients lists patients in stored order, optionally filtered by a
// case-insensitive name search
func (s *CatalogService) ListPatients(ctx context.Context, search string, params *pagination.PaginationParams) (*pagination.PaginatedResult[entity.Patient], error) {
	s.mu.Lock()
	patients, err := s.repo.GetPatients(ctx)
	s.mu.Unlock()
	if err != nil {
		return nil, apperror.NewInternalError("Failed to read patients", err)
	}
	return pagination.Paginate(filterByName(patients, search, func(p entity.Patient) string { return p.Name }), params), nil
}

// GetPatient retrieves a patient by ID
func (s *CatalogService) GetPatient(ctx context.Context, id string) (*entity.Patient, error) {
	s.mu.Lock()
	patients, err := s.repo.GetPatients(ctx)
	s.mu.Unlock()
	if err != nil {
		return nil, apperror.NewInternalError("Failed to read patients", err)
	}
	if i := indexOfPatient(patients, id); i >= 0 {
		p := patients[i]
		return &p, nil
	}
	return nil, apperror.NewNotFoundError("Patient")
}

// CreatePatient adds a patient with a trimmed, non-empty name
func (s *CatalogService) CreatePatient(ctx context.Context, name string) (*entity.Patient, error) {
	patient, err := s.createPatient(ctx, name)
	s.metrics.CatalogMutation("patient", "create", err)
	return patient, err
}

func (s *CatalogService) createPatient(ctx context.Context, name string) (*entity.Patient, error) {
	input := PatientInput{Name: strings.TrimSpace(name)}
	if err := s.check(input); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	patients, err := s.repo.GetPatients(ctx)
	if err != nil {
		return nil, apperror.NewInternalError("Failed to read patients", err)
	}
	patient := entity.Patient{ID: utils.NewID(), Name: input.Name}
	if err := s.repo.SavePatients(ctx, append(patients, patient)); err != nil {
		return nil, apperror.NewInternalError("Failed to save patients", err)
	}

	s.logger.Info().Str("patient_id", patient.ID).Msg("patient created")
	return &patient, nil
}

// UpdatePatient renames a patient
func (s *CatalogService) UpdatePatient(ctx context.Context, id, name string) (*entity.Patient, error) {
	patient, err := s.updatePatient(ctx, id, name)
	s.metrics.CatalogMutation("patient", "update", err)
	return patient, err
}

func (s *CatalogService) updatePatient(ctx context.Context, id, name string) (*entity.Patient, error) {
	input := PatientInput{Name: strings.TrimSpace(name)}
	if err := s.check(input); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	patients, err := s.repo.GetPatients(ctx)
	if err != nil {
		return nil, apperror.NewInternalError("Failed to read patients", err)
	}
	i := indexOfPatient(patients, id)
	if i < 0 {
		return nil, apperror.NewNotFoundError("Patient")
	}
	patients[i].Name = input.Name
	if err := s.repo.SavePatients(ctx, patients); err != nil {
		return nil, apperror.NewInternalError("Failed to save patients", err)
	}

	patient := patients[i]
	return &patient, nil
}

// DeletePatient removes a patient and their standing order. Open invoices
// that have the patient selected are told after the catalog is saved.
func (s *CatalogService) DeletePatient(ctx context.Context, id string, confirmed bool) error {
	err := s.deletePatient(ctx, id, confirmed)
	s.metrics.CatalogMutation("patient", "delete", err)
	if err != nil {
		return err
	}

	for _, l := range s.subscribers() {
		l.PatientDeleted(ctx, id)
	}
	return nil
}

func (s *CatalogService) deletePatient(ctx context.Context, id string, confirmed bool) error {
	if !confirmed {
		return apperror.ErrConfirmationRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	patients, err := s.repo.GetPatients(ctx)
	if err != nil {
		return apperror.NewInternalError("Failed to read patients", err)
	}
	i := indexOfPatient(patients, id)
	if i < 0 {
		return apperror.NewNotFoundError("Patient")
	}
	meds, err := s.repo.GetMedications(ctx)
	if err != nil {
		return apperror.NewInternalError("Failed to read medications", err)
	}

	kept := make([]entity.PatientMedication, 0, len(meds))
	for _, m := range meds {
		if m.PatientID != id {
			kept = append(kept, m)
		}
	}
	// parent first: a leftover medication row is skipped on read, a lost one is not recoverable
	if err := s.repo.SavePatients(ctx, append(patients[:i:i], patients[i+1:]...)); err != nil {
		return apperror.NewInternalError("Failed to save patients", err)
	}
	if err := s.repo.SaveMedications(ctx, kept); err != nil {
		if rerr := s.repo.SavePatients(ctx, patients); rerr != nil {
			s.logger.Error().Err(rerr).Str("patient_id", id).Msg("failed to restore patients after aborted delete")
		}
		return apperror.NewInternalError("Failed to save medications", err)
	}

	s.logger.Info().Str("patient_id", id).Int("medications_removed", len(meds)-len(kept)).Msg("patient deleted")
	return nil
}

// ListMedications returns a patient's standing order resolved against the
// product catalog
func (s *CatalogService) ListMedications(ctx context.Context, patientID string) ([]entity.PatientMedicationView, error) {
	catalog, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	if indexOfPatient(catalog.Patients, patientID) < 0 {
		return nil, apperror.NewNotFoundError("Patient")
	}

	products := make(map[string]entity.Product, len(catalog.Products))
	for _, p := range catalog.Products {
		products[p.ID] = p
	}

	views := []entity.PatientMedicationView{}
	for _, m := range catalog.Medications {
		if m.PatientID != patientID {
			continue
		}
		view := entity.PatientMedicationView{PatientMedication: m}
		if p, ok := products[m.ProductID]; ok {
			view.ProductName = p.Name
			view.ProductPrice = p.Price
		} else {
			view.Missing = true
		}
		views = append(views, view)
	}
	return views, nil
}

// ReplaceMedications runs fn over a consistent catalog read and persists the
// medications it returns, provided the patient still exists
func (s *CatalogService) ReplaceMedications(ctx context.Context, patientID string, fn func(*Catalog) ([]entity.PatientMedication, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	catalog, err := s.load(ctx)
	if err != nil {
		return err
	}
	if indexOfPatient(catalog.Patients, patientID) < 0 {
		return apperror.NewNotFoundError("Patient")
	}
	updated, err := fn(catalog)
	if err != nil {
		return err
	}
	if err := s.repo.SaveMedications(ctx, updated); err != nil {
		return apperror.NewInternalError("Failed to save medications", err)
	}
	return nil
}

// --- Products ---

// ListProducts lists products in stored order
func (s *CatalogService) ListProducts(ctx context.Context, search string, params *pagination.PaginationParams) (*pagination.PaginatedResult[entity.Product], error) {
	s.mu.Lock()
	products, err := s.repo.GetProducts(ctx)
	s.mu.Unlock()
	if err != nil {
		return nil, apperror.NewInternalError("Failed to read products", err)
	}
	return pagination.Paginate(filterByName(products, search, func(p entity.Product) string { return p.Name }), params), nil
}

// GetProduct retrieves a product by ID
func (s *CatalogService) GetProduct(ctx context.Context, id string) (*entity.Product, error) {
	s.mu.Lock()
	products, err := s.repo.GetProducts(ctx)
	s.mu.Unlock()
	if err != nil {
		return nil, apperror.NewInternalError("Failed to read products", err)
	}
	if i := indexOfProduct(products, id); i >= 0 {
		p := products[i]
		return &p, nil
	}
	return nil, apperror.NewNotFoundError("Product")
}

// CreateProduct adds a product
func (s *CatalogService) CreateProduct(ctx context.Context, name string, price float64) (*entity.Product, error) {
	product, err := s.createProduct(ctx, name, price)
	s.metrics.CatalogMutation("product", "create", err)
	return product, err
}

func (s *CatalogService) createProduct(ctx context.Context, name string, price float64) (*entity.Product, error) {
	input := ProductInput{Name: strings.TrimSpace(name), Price: price}
	if err := s.checkProduct(input); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	products, err := s.repo.GetProducts(ctx)
	if err != nil {
		return nil, apperror.NewInternalError("Failed to read products", err)
	}
	product := entity.Product{ID: utils.NewID(), Name: input.Name, Price: input.Price}
	if err := s.repo.SaveProducts(ctx, append(products, product)); err != nil {
		return nil, apperror.NewInternalError("Failed to save products", err)
	}

	s.logger.Info().Str("product_id", product.ID).Msg("product created")
	return &product, nil
}

// UpdateProductInput represents the update product input. Nil fields keep
// their current value.
type UpdateProductInput struct {
	ID    string
	Name  *string
	Price *float64
}

// UpdateProduct edits a product. Open invoices keep the name and price they
// were built with until re-synced.
func (s *CatalogService) UpdateProduct(ctx context.Context, input *UpdateProductInput) (*entity.Product, error) {
	product, err := s.updateProduct(ctx, input)
	s.metrics.CatalogMutation("product", "update", err)
	return product, err
}

func (s *CatalogService) updateProduct(ctx context.Context, input *UpdateProductInput) (*entity.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	products, err := s.repo.GetProducts(ctx)
	if err != nil {
		return nil, apperror.NewInternalError("Failed to read products", err)
	}
	i := indexOfProduct(products, input.ID)
	if i < 0 {
		return nil, apperror.NewNotFoundError("Product")
	}

	next := ProductInput{Name: products[i].Name, Price: products[i].Price}
	if input.Name != nil {
		next.Name = strings.TrimSpace(*input.Name)
	}
	if input.Price != nil {
		next.Price = *input.Price
	}
	if err := s.checkProduct(next); err != nil {
		return nil, err
	}

	products[i].Name = next.Name
	products[i].Price = next.Price
	if err := s.repo.SaveProducts(ctx, products); err != nil {
		return nil, apperror.NewInternalError("Failed to save products", err)
	}

	product := products[i]
	return &product, nil
}

// DeleteProduct removes a product, every standing order row that references
// it and, once saved, its lines in open invoices
func (s *CatalogService) DeleteProduct(ctx context.Context, id string, confirmed bool) error {
	err := s.deleteProduct(ctx, id, confirmed)
	s.metrics.CatalogMutation("product", "delete", err)
	if err != nil {
		return err
	}

	for _, l := range s.subscribers() {
		l.ProductDeleted(ctx, id)
	}
	return nil
}

func (s *CatalogService) deleteProduct(ctx context.Context, id string, confirmed bool) error {
	if !confirmed {
		return apperror.ErrConfirmationRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	products, err := s.repo.GetProducts(ctx)
	if err != nil {
		return apperror.NewInternalError("Failed to read products", err)
	}
	i := indexOfProduct(products, id)
	if i < 0 {
		return apperror.NewNotFoundError("Product")
	}
	meds, err := s.repo.GetMedications(ctx)
	if err != nil {
		return apperror.NewInternalError("Failed to read medications", err)
	}

	kept := make([]entity.PatientMedication, 0, len(meds))
	for _, m := range meds {
		if m.ProductID != id {
			kept = append(kept, m)
		}
	}
	if err := s.repo.SaveProducts(ctx, append(products[:i:i], products[i+1:]...)); err != nil {
		return apperror.NewInternalError("Failed to save products", err)
	}
	if err := s.repo.SaveMedications(ctx, kept); err != nil {
		if rerr := s.repo.SaveProducts(ctx, products); rerr != nil {
			s.logger.Error().Err(rerr).Str("product_id", id).Msg("failed to restore products after aborted delete")
		}
		return apperror.NewInternalError("Failed to save medications", err)
	}

	s.logger.Info().Str("product_id", id).Int("medications_removed", len(meds)-len(kept)).Msg("product deleted")
	return nil
}

func (s *CatalogService) checkProduct(input ProductInput) error {
	if math.IsInf(input.Price, 0) {
		return apperror.NewFieldError("price", "must be a finite number")
	}
	return s.check(input)
}

func indexOfPatient(patients []entity.Patient, id string) int {
	for i, p := range patients {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func indexOfProduct(products []entity.Product, id string) int {
	for i, p := range products {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func filterByName[T any](items []T, search string, name func(T) string) []T {
	search = strings.ToLower(strings.TrimSpace(search))
	if search == "" {
		return items
	}
	out := make([]T, 0, len(items))
	for _, it := range items {
		if strings.Contains(strings.ToLower(name(it)), search) {
			out = append(out, it)
		}
	}
	return out
}
