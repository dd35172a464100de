package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sangkips/pharmacy-invoice/internal/domain/entity"
	"github.com/sangkips/pharmacy-invoice/internal/domain/enum"
	domainRepo "github.com/sangkips/pharmacy-invoice/internal/domain/repository"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a collection store backed by the collections table
func NewGormStore(db *gorm.DB) domainRepo.CollectionStore {
	return &gormStore{db: db}
}

func (s *gormStore) Get(ctx context.Context, key enum.Collection) ([]byte, error) {
	var rec entity.CollectionRecord
	err := s.db.WithContext(ctx).Where(map[string]any{"key": key.String()}).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", key, err)
	}
	return []byte(rec.Data), nil
}

func (s *gormStore) Set(ctx context.Context, key enum.Collection, data []byte) error {
	rec := entity.CollectionRecord{
		Key:       key.String(),
		Data:      string(data),
		UpdatedAt: time.Now().UTC(),
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"data", "updated_at"}),
		}).
		Create(&rec).Error
	if err != nil {
		return fmt.Errorf("storage: write %s: %w", key, err)
	}
	return nil
}

func (s *gormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
