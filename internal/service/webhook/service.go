// Package webhook ingests UploadThing upload callbacks: verify the HMAC
// signature over the raw body, normalize the loosely-structured payload,
// and upsert the file record by key. Replayed callbacks are harmless,
// the upsert is idempotent.
package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"uploadtrack-backend/internal/domain"
	apperrors "uploadtrack-backend/pkg/errors"
	"uploadtrack-backend/pkg/logger"
	"uploadtrack-backend/pkg/signature"
)

// FileUpserter performs the upsert-by-key, typically the files service
type FileUpserter interface {
	UpsertFile(ctx context.Context, file domain.FileInfo, userID string, opts domain.UpsertOptions) (uuid.UUID, bool, error)
}

// ConfigReader loads the stored tracker configuration
type ConfigReader interface {
	Get(ctx context.Context) (*domain.TrackerConfig, error)
}

// Service handles webhook callbacks
type Service struct {
	files  FileUpserter
	config ConfigReader
}

// NewService creates a new webhook service
func NewService(files FileUpserter, config ConfigReader) *Service {
	return &Service{files: files, config: config}
}

// HandleCallback verifies and ingests one callback.
//
// Sender-correctable failures (bad signature, bad JSON, missing fields)
// come back as a CallbackResult with ok=false and a stable error tag, so
// the HTTP layer can answer 400. A missing signing key is a deployment
// problem the sender cannot fix and is returned as a Go error instead.
// No state is mutated on any failure branch
func (s *Service) HandleCallback(ctx context.Context, rawBody []byte, sig, hook string, apiKey *string) (*domain.CallbackResult, error) {
	key, err := s.resolveSigningKey(ctx, apiKey)
	if err != nil {
		return nil, err
	}

	if !signature.Verify(key, rawBody, sig) {
		logger.Warn("webhook signature rejected", zap.String("hook", hook))
		return failure(hook, domain.CallbackErrInvalidSignature), nil
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(rawBody, &payload); err != nil {
		return failure(hook, domain.CallbackErrInvalidJSON), nil
	}

	norm, errTag := normalizeCallback(payload)
	if errTag != "" {
		logger.Warn("webhook payload rejected",
			zap.String("hook", hook),
			zap.String("reason", errTag),
		)
		return failure(hook, errTag), nil
	}

	fileID, created, err := s.files.UpsertFile(ctx, norm.File, norm.UserID, norm.Options)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert callback file: %w", err)
	}

	logger.Info("webhook callback ingested",
		zap.String("hook", hook),
		zap.String("key", norm.File.Key),
		zap.Bool("created", created),
	)
	return &domain.CallbackResult{
		OK:     true,
		FileID: fileID.String(),
		Hook:   hook,
	}, nil
}

// resolveSigningKey prefers the explicit key over the stored one
func (s *Service) resolveSigningKey(ctx context.Context, apiKey *string) (string, error) {
	if apiKey != nil && *apiKey != "" {
		return *apiKey, nil
	}

	cfg, err := s.config.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to load tracker config: %w", err)
	}
	if cfg.UploadthingAPIKey == nil || *cfg.UploadthingAPIKey == "" {
		return "", apperrors.New(apperrors.ErrCodeMissingAPIKey,
			"no uploadthing API key configured for webhook verification",
			http.StatusInternalServerError)
	}
	return *cfg.UploadthingAPIKey, nil
}

func failure(hook, errTag string) *domain.CallbackResult {
	return &domain.CallbackResult{OK: false, Hook: hook, Error: errTag}
}
