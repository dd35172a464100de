package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/sangkips/pharmacy-invoice/internal/domain/enum"
	"github.com/sangkips/pharmacy-invoice/internal/domain/repository"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// BackupResult describes one backup run
type BackupResult struct {
	Dir         string         `json:"dir"`
	CreatedAt   time.Time      `json:"created_at"`
	Collections map[string]int `json:"collections"` // bytes written per collection
	Skipped     []string       `json:"skipped,omitempty"`
}

// BackupService copies the raw catalog collections to timestamped
// directories, on demand or on a cron schedule
type BackupService struct {
	store  repository.CollectionStore
	dir    string
	logger zerolog.Logger

	mu    sync.Mutex
	sched *cron.Cron
}

// NewBackupService creates a new backup service
func NewBackupService(store repository.CollectionStore, dir string, logger zerolog.Logger) *BackupService {
	return &BackupService{store: store, dir: dir, logger: logger}
}

// Run writes one JSON file per collection plus a manifest. Malformed
// collections are skipped and reported.
func (s *BackupService) Run(ctx context.Context) (*BackupResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	dir := filepath.Join(s.dir, now.Format("20060102T150405.000000000Z"))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("backup: create directory: %w", err)
	}

	result := &BackupResult{Dir: dir, CreatedAt: now, Collections: map[string]int{}}
	for _, key := range enum.Collections() {
		data, err := s.store.Get(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("backup: read %s: %w", key, err)
		}
		if data == nil {
			data = []byte("[]")
		}
		if !json.Valid(data) {
			s.logger.Warn().Str("collection", key.String()).Msg("skipping malformed collection in backup")
			result.Skipped = append(result.Skipped, key.String())
			continue
		}
		if err := os.WriteFile(filepath.Join(dir, key.String()+".json"), data, 0o644); err != nil {
			return nil, fmt.Errorf("backup: write %s: %w", key, err)
		}
		result.Collections[key.String()] = len(data)
	}

	manifest, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("backup: encode manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "manifest.json"), manifest, 0o644); err != nil {
		return nil, fmt.Errorf("backup: write manifest: %w", err)
	}

	s.logger.Info().Str("dir", dir).Int("collections", len(result.Collections)).Msg("backup written")
	return result, nil
}

// Start schedules Run with a cron expression. An empty schedule disables
// scheduled backups.
func (s *BackupService) Start(schedule string) error {
	if schedule == "" {
		return nil
	}

	sched := cron.New(cron.WithParser(cronParser))
	_, err := sched.AddFunc(schedule, func() {
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error().Interface("panic", r).Msg("backup job panicked")
			}
		}()
		if _, err := s.Run(context.Background()); err != nil {
			s.logger.Error().Err(err).Msg("scheduled backup failed")
		}
	})
	if err != nil {
		return fmt.Errorf("backup: invalid schedule %q: %w", schedule, err)
	}

	s.sched = sched
	sched.Start()
	s.logger.Info().Str("schedule", schedule).Msg("backup scheduler started")
	return nil
}

// Stop halts the scheduler and waits for a running job to finish
func (s *BackupService) Stop() {
	if s.sched == nil {
		return
	}
	<-s.sched.Stop().Done()
}
