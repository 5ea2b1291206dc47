// Package cleanup expires file records in bounded batches.
//
// Each run is a short pipeline: scan expired keys, delete them from the
// remote upload service when configured, then delete the local records.
// The remote effect always happens before the irrevocable local delete,
// so a failed or cancelled run leaves every local record in place for a
// full retry of the batch.
package cleanup

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"uploadtrack-backend/internal/domain"
	"uploadtrack-backend/pkg/logger"
)

// defaultBatchSize applies when neither the caller nor the stored config
// supplies one
const defaultBatchSize = 100

// FileStore is the record store surface used by the engine
type FileStore interface {
	ExpiredBatch(ctx context.Context, nowMs int64, limit int) ([]string, error)
	DeleteByKeys(ctx context.Context, keys []string) (int, error)
}

// ConfigReader loads the stored tracker configuration
type ConfigReader interface {
	Get(ctx context.Context) (*domain.TrackerConfig, error)
}

// RemoteDeleter removes files from the upload service
type RemoteDeleter interface {
	DeleteFiles(ctx context.Context, apiKey string, keys []string) error
}

// Service runs expiry cleanup
type Service struct {
	files  FileStore
	config ConfigReader
	remote RemoteDeleter
	nowMs  func() int64
}

// NewService creates a new cleanup service
func NewService(files FileStore, config ConfigReader, remote RemoteDeleter) *Service {
	return &Service{
		files:  files,
		config: config,
		remote: remote,
		nowMs:  func() int64 { return time.Now().UnixMilli() },
	}
}

// WithClock overrides the service clock, for tests
func (s *Service) WithClock(nowMs func() int64) *Service {
	s.nowMs = nowMs
	return s
}

// Options control one cleanup invocation
type Options struct {
	BatchSize *int `json:"batch_size,omitempty"`
	DryRun    bool `json:"dry_run,omitempty"`
}

// Run executes one cleanup batch and reports the outcome.
// DryRun returns the candidate keys without mutating anything. When
// remote deletion is enabled and any chunk fails, no local record is
// deleted for the entire batch, so the next run retries it wholesale
func (s *Service) Run(ctx context.Context, opts Options) (*domain.CleanupReport, error) {
	cfg, err := s.config.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load tracker config: %w", err)
	}

	// Non-positive batch sizes are treated as unset; a limit below 1
	// would report hasMore on an empty scan
	limit := defaultBatchSize
	if cfg.DeleteBatchSize != nil && *cfg.DeleteBatchSize > 0 {
		limit = *cfg.DeleteBatchSize
	}
	if opts.BatchSize != nil && *opts.BatchSize > 0 {
		limit = *opts.BatchSize
	}

	keys, err := s.files.ExpiredBatch(ctx, s.nowMs(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to scan expired records: %w", err)
	}

	if keys == nil {
		keys = []string{}
	}
	report := &domain.CleanupReport{
		Keys:    keys,
		HasMore: len(keys) >= limit,
	}

	if opts.DryRun || len(keys) == 0 {
		return report, nil
	}

	if cfg.RemoteDeleteEnabled() {
		if cfg.UploadthingAPIKey == nil || *cfg.UploadthingAPIKey == "" {
			// Configuration error: keep every local record for a retry
			// once the key is in place
			report.RemoteDeleteFailed = true
			report.RemoteDeleteError = "delete_remote_on_expire is enabled but no uploadthing_api_key is configured"
			logger.Error("cleanup aborted", zap.String("reason", report.RemoteDeleteError))
			return report, nil
		}

		if err := s.remote.DeleteFiles(ctx, *cfg.UploadthingAPIKey, keys); err != nil {
			zero := 0
			report.RemoteDeletedCount = &zero
			report.RemoteDeleteFailed = true
			report.RemoteDeleteError = err.Error()
			logger.Warn("remote delete failed, local records preserved",
				zap.Int("batch", len(keys)),
				zap.Error(err),
			)
			return report, nil
		}

		remoteDeleted := len(keys)
		report.RemoteDeletedCount = &remoteDeleted
	}

	deleted, err := s.files.DeleteByKeys(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("failed to delete local records: %w", err)
	}
	report.DeletedCount = deleted

	logger.Info("cleanup batch finished",
		zap.Int("deleted", deleted),
		zap.Bool("has_more", report.HasMore),
	)
	return report, nil
}
