package files

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"uploadtrack-backend/internal/access"
	"uploadtrack-backend/internal/domain"
	"uploadtrack-backend/internal/ttl"
	"uploadtrack-backend/pkg/logger"
)

// listPageSize bounds one store read while filling a listing
const listPageSize = 100

// defaultListLimit applies when a listing supplies no limit
const defaultListLimit = 50

// FileStore is the record store surface used by the service
type FileStore interface {
	Upsert(ctx context.Context, write domain.FileWrite, computeExpiry func(uploadedAtMs int64) *int64) (uuid.UUID, bool, error)
	GetByKey(ctx context.Context, key string) (*domain.FileRecord, error)
	ListByOwner(ctx context.Context, userID string, limit int, cursor *domain.ListCursor) ([]*domain.FileRecord, error)
	DeleteByKeys(ctx context.Context, keys []string) (int, error)
	SetAccess(ctx context.Context, key string, rule *domain.AccessRule) (bool, error)
	UsageStats(ctx context.Context, userID string) (*domain.UsageStats, error)
}

// FolderRuleStore is the folder-rule surface used by the service
type FolderRuleStore interface {
	GetByFolder(ctx context.Context, folder string) (*domain.FolderRule, error)
	Set(ctx context.Context, folder string, access domain.AccessRule, nowMs int64) (string, error)
	Delete(ctx context.Context, folder string) error
}

// ConfigStore is the tracker-config surface used by the service
type ConfigStore interface {
	Get(ctx context.Context) (*domain.TrackerConfig, error)
	Set(ctx context.Context, update *domain.TrackerConfig, replace bool) (bool, error)
}

// Service handles file record operations
type Service struct {
	files       FileStore
	folderRules FolderRuleStore
	config      ConfigStore
	nowMs       func() int64
}

// NewService creates a new files service
func NewService(files FileStore, folderRules FolderRuleStore, config ConfigStore) *Service {
	return &Service{
		files:       files,
		folderRules: folderRules,
		config:      config,
		nowMs:       func() int64 { return time.Now().UnixMilli() },
	}
}

// WithClock overrides the service clock, for tests
func (s *Service) WithClock(nowMs func() int64) *Service {
	s.nowMs = nowMs
	return s
}

// UpsertFile inserts or replaces the record for file.Key.
// Returns the record id and whether a new record was created
func (s *Service) UpsertFile(ctx context.Context, file domain.FileInfo, userID string, opts domain.UpsertOptions) (uuid.UUID, bool, error) {
	cfg, err := s.config.Get(ctx)
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("failed to load tracker config: %w", err)
	}

	opts.Access = access.SanitizeRule(opts.Access)

	fileType := file.FileType
	if opts.FileType != nil {
		fileType = opts.FileType
	}

	mimeType := file.MimeType
	computeExpiry := func(uploadedAtMs int64) *int64 {
		return ttl.ComputeExpiresAt(ttl.Params{
			NowMs:     uploadedAtMs,
			MimeType:  &mimeType,
			FileType:  fileType,
			ExpiresAt: opts.ExpiresAt,
			TTLMs:     opts.TTLMs,
			Config:    cfg,
		})
	}

	write := domain.FileWrite{
		File:    file,
		UserID:  userID,
		Options: opts,
		NowMs:   s.nowMs(),
	}

	id, created, err := s.files.Upsert(ctx, write, computeExpiry)
	if err != nil {
		return uuid.Nil, false, err
	}

	logger.Debug("file record upserted",
		zap.String("key", file.Key),
		zap.String("user_id", userID),
		zap.Bool("created", created),
	)
	return id, created, nil
}

// GetFileByKey retrieves one record, enforcing access rules.
// Absent records and denied viewers both yield nil
func (s *Service) GetFileByKey(ctx context.Context, key string, viewerID *string) (*domain.FileRecord, error) {
	record, err := s.files.GetByKey(ctx, key)
	if err != nil || record == nil {
		return nil, err
	}

	folderRule, err := s.folderRuleFor(ctx, record.Folder, nil)
	if err != nil {
		return nil, err
	}

	if !access.CanAccess(record.UserID, viewerID, record.Access, folderRule) {
		return nil, nil
	}
	return record, nil
}

// ListFiles returns an owner's records, newest upload first, applying
// filters and access rules. Folder-rule lookups are memoized for the
// duration of this one call; rules may change between calls
func (s *Service) ListFiles(ctx context.Context, q domain.ListFilesQuery) ([]*domain.FileRecord, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	now := s.nowMs()
	folderCache := make(map[string]*domain.AccessRule)
	results := make([]*domain.FileRecord, 0, limit)

	var cursor *domain.ListCursor
	for len(results) < limit {
		page, err := s.files.ListByOwner(ctx, q.OwnerUserID, listPageSize, cursor)
		if err != nil {
			return nil, err
		}

		for _, record := range page {
			if !q.IncludeExpired && record.Expired(now) {
				continue
			}
			if q.MimeType != nil && record.MimeType != *q.MimeType {
				continue
			}
			if q.Tag != nil && !record.HasTag(*q.Tag) {
				continue
			}
			if q.Folder != nil && (record.Folder == nil || *record.Folder != *q.Folder) {
				continue
			}

			folderRule, err := s.folderRuleFor(ctx, record.Folder, folderCache)
			if err != nil {
				return nil, err
			}
			if !access.CanAccess(record.UserID, q.ViewerUserID, record.Access, folderRule) {
				continue
			}

			results = append(results, record)
			if len(results) >= limit {
				break
			}
		}

		if len(page) < listPageSize {
			break
		}
		last := page[len(page)-1]
		cursor = &domain.ListCursor{UploadedAt: last.UploadedAt, ID: last.ID}
	}

	return results, nil
}

// SetFileAccess updates the file-level rule for a key; a nil rule clears
// it. Returns false when no record exists
func (s *Service) SetFileAccess(ctx context.Context, key string, rule *domain.AccessRule) (bool, error) {
	return s.files.SetAccess(ctx, key, access.SanitizeRule(rule))
}

// SetFolderAccess creates or replaces the rule for a folder. A nil rule
// deletes the rule. Returns the rule id, empty when cleared
func (s *Service) SetFolderAccess(ctx context.Context, folder string, rule *domain.AccessRule) (string, error) {
	if rule == nil {
		return "", s.folderRules.Delete(ctx, folder)
	}

	sanitized := access.SanitizeRule(rule)
	return s.folderRules.Set(ctx, folder, *sanitized, s.nowMs())
}

// DeleteFiles removes records by key and reports how many existed
func (s *Service) DeleteFiles(ctx context.Context, keys []string) (int, error) {
	return s.files.DeleteByKeys(ctx, keys)
}

// GetUsageStats sums a user's tracked uploads
func (s *Service) GetUsageStats(ctx context.Context, userID string) (*domain.UsageStats, error) {
	return s.files.UsageStats(ctx, userID)
}

// GetConfig returns the stored tracker configuration with the API key
// reduced to a presence flag
func (s *Service) GetConfig(ctx context.Context) (*domain.RedactedConfig, error) {
	cfg, err := s.config.Get(ctx)
	if err != nil {
		return nil, err
	}
	return cfg.Redact(), nil
}

// SetConfig writes the tracker configuration with merge-vs-replace
// semantics. Returns true when the singleton was created
func (s *Service) SetConfig(ctx context.Context, update *domain.TrackerConfig, replace bool) (bool, error) {
	return s.config.Set(ctx, update, replace)
}

// folderRuleFor resolves the folder-level rule for a record, consulting
// the per-call cache when one is supplied. Folders without a rule are
// cached as nil so each folder is looked up at most once
func (s *Service) folderRuleFor(ctx context.Context, folder *string, cache map[string]*domain.AccessRule) (*domain.AccessRule, error) {
	if folder == nil {
		return nil, nil
	}

	if cache != nil {
		if rule, ok := cache[*folder]; ok {
			return rule, nil
		}
	}

	folderRule, err := s.folderRules.GetByFolder(ctx, *folder)
	if err != nil {
		return nil, err
	}

	var rule *domain.AccessRule
	if folderRule != nil {
		rule = &folderRule.Access
	}
	if cache != nil {
		cache[*folder] = rule
	}
	return rule, nil
}
