package repository

import (
	"context"
	"fmt"

	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog"
	"github.com/sangkips/pharmacy-invoice/internal/domain/entity"
	"github.com/sangkips/pharmacy-invoice/internal/domain/enum"
	domainRepo "github.com/sangkips/pharmacy-invoice/internal/domain/repository"
	"github.com/sangkips/pharmacy-invoice/pkg/metrics"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type catalogRepository struct {
	store   domainRepo.CollectionStore
	logger  zerolog.Logger
	metrics *metrics.Metrics
}

// NewCatalogRepository creates a catalog repository over a collection store
func NewCatalogRepository(store domainRepo.CollectionStore, logger zerolog.Logger, m *metrics.Metrics) domainRepo.CatalogRepository {
	return &catalogRepository{store: store, logger: logger, metrics: m}
}

func (r *catalogRepository) GetPatients(ctx context.Context) ([]entity.Patient, error) {
	return load[entity.Patient](ctx, r, enum.CollectionPatients)
}

func (r *catalogRepository) SavePatients(ctx context.Context, patients []entity.Patient) error {
	return save(ctx, r, enum.CollectionPatients, patients)
}

func (r *catalogRepository) GetProducts(ctx context.Context) ([]entity.Product, error) {
	return load[entity.Product](ctx, r, enum.CollectionProducts)
}

func (r *catalogRepository) SaveProducts(ctx context.Context, products []entity.Product) error {
	return save(ctx, r, enum.CollectionProducts, products)
}

func (r *catalogRepository) GetMedications(ctx context.Context) ([]entity.PatientMedication, error) {
	return load[entity.PatientMedication](ctx, r, enum.CollectionPatientMedications)
}

func (r *catalogRepository) SaveMedications(ctx context.Context, medications []entity.PatientMedication) error {
	return save(ctx, r, enum.CollectionPatientMedications, medications)
}

// load reads a collection. Absent or malformed data yields an empty slice;
// only store failures are returned as errors.
func load[T any](ctx context.Context, r *catalogRepository, key enum.Collection) ([]T, error) {
	raw, err := r.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	out := []T{}
	if len(raw) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		r.logger.Warn().Err(err).Str("collection", key.String()).Msg("stored collection is malformed, treating as empty")
		r.metrics.CollectionFailure(key.String())
		return []T{}, nil
	}
	if out == nil {
		// a stored JSON null
		out = []T{}
	}
	return out, nil
}

func save[T any](ctx context.Context, r *catalogRepository, key enum.Collection, items []T) error {
	if items == nil {
		items = []T{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return r.store.Set(ctx, key, data)
}
