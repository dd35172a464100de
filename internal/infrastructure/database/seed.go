package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sangkips/pharmacy-invoice/internal/domain/entity"
	domainRepo "github.com/sangkips/pharmacy-invoice/internal/domain/repository"
)

// demoProducts is a small starter catalog for fresh installs
var demoProducts = []struct {
	Name  string
	Price float64
}{
	{"باراسيتامول 500 مجم", 12.5},
	{"أموكسيسيلين 250 مجم", 35},
	{"أوميبرازول 20 مجم", 28.75},
	{"ميتفورمين 850 مجم", 18},
	{"فيتامين د 1000 وحدة", 45},
}

// SeedDemoCatalog fills an empty product catalog with demo products.
// An existing catalog is never touched.
func SeedDemoCatalog(ctx context.Context, repo domainRepo.CatalogRepository, log zerolog.Logger) error {
	existing, err := repo.GetProducts(ctx)
	if err != nil {
		return fmt.Errorf("failed to read products: %w", err)
	}
	if len(existing) > 0 {
		log.Info().Int("products", len(existing)).Msg("catalog already populated, skipping demo seed")
		return nil
	}

	products := make([]entity.Product, 0, len(demoProducts))
	for _, p := range demoProducts {
		products = append(products, entity.Product{
			ID:    uuid.New().String(),
			Name:  p.Name,
			Price: p.Price,
		})
	}
	if err := repo.SaveProducts(ctx, products); err != nil {
		return fmt.Errorf("failed to seed products: %w", err)
	}

	log.Info().Int("products", len(products)).Msg("demo catalog seeded")
	return nil
}
