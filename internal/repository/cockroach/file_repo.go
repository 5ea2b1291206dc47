package cockroach

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"uploadtrack-backend/internal/domain"
)

// FileRepository handles file record operations
type FileRepository struct {
	pool *pgxpool.Pool
}

// NewFileRepository creates a new file repository
func NewFileRepository(pool *pgxpool.Pool) *FileRepository {
	return &FileRepository{pool: pool}
}

const fileColumns = `
	id, key, url, name, size, mime_type, uploaded_at, user_id,
	tags, folder, access, metadata, expires_at, replaced_at, custom_id, file_type
`

// Upsert inserts or replaces the record for write.File.Key inside a single
// transaction. On replace the record id and uploaded_at are preserved and
// replaced_at is set to the write time.
//
// computeExpiry receives the effective upload timestamp (supplied uploadedAt,
// else the stored one, else the write time) so that replacing a record keeps
// its original TTL basis. A nil result leaves expires_at untouched.
func (r *FileRepository) Upsert(ctx context.Context, write domain.FileWrite, computeExpiry func(uploadedAtMs int64) *int64) (uuid.UUID, bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("failed to begin upsert: %w", err)
	}
	defer tx.Rollback(ctx)

	var (
		existingID         uuid.UUID
		existingUploadedAt int64
	)
	err = tx.QueryRow(ctx,
		`SELECT id, uploaded_at FROM files WHERE key = $1 FOR UPDATE`,
		write.File.Key,
	).Scan(&existingID, &existingUploadedAt)

	switch {
	case errors.Is(err, pgx.ErrNoRows):
		id, insertErr := r.insert(ctx, tx, write, computeExpiry)
		if insertErr != nil {
			return uuid.Nil, false, insertErr
		}
		if err := tx.Commit(ctx); err != nil {
			return uuid.Nil, false, fmt.Errorf("failed to commit insert: %w", err)
		}
		return id, true, nil

	case err != nil:
		return uuid.Nil, false, fmt.Errorf("failed to lock file record: %w", err)
	}

	if err := r.replace(ctx, tx, existingID, existingUploadedAt, write, computeExpiry); err != nil {
		return uuid.Nil, false, err
	}
	if err := tx.Commit(ctx); err != nil {
		return uuid.Nil, false, fmt.Errorf("failed to commit replace: %w", err)
	}
	return existingID, false, nil
}

func (r *FileRepository) insert(ctx context.Context, tx pgx.Tx, write domain.FileWrite, computeExpiry func(int64) *int64) (uuid.UUID, error) {
	uploadedAt := write.NowMs
	if write.File.UploadedAt != nil {
		uploadedAt = *write.File.UploadedAt
	}
	expiresAt := computeExpiry(uploadedAt)

	fileType := write.File.FileType
	if write.Options.FileType != nil {
		fileType = write.Options.FileType
	}

	accessJSON, err := marshalAccess(write.Options.Access)
	if err != nil {
		return uuid.Nil, err
	}
	metadataJSON, err := marshalMetadata(write.Options.Metadata)
	if err != nil {
		return uuid.Nil, err
	}

	id := uuid.New()
	_, err = tx.Exec(ctx, `
		INSERT INTO files (
			id, key, url, name, size, mime_type, uploaded_at, user_id,
			tags, folder, access, metadata, expires_at, custom_id, file_type
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`,
		id,
		write.File.Key,
		write.File.URL,
		write.File.Name,
		write.File.Size,
		write.File.MimeType,
		uploadedAt,
		write.UserID,
		write.Options.Tags,
		write.Options.Folder,
		accessJSON,
		metadataJSON,
		expiresAt,
		write.File.CustomID,
		fileType,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to insert file record: %w", err)
	}
	return id, nil
}

func (r *FileRepository) replace(ctx context.Context, tx pgx.Tx, id uuid.UUID, existingUploadedAt int64, write domain.FileWrite, computeExpiry func(int64) *int64) error {
	basis := existingUploadedAt
	if write.File.UploadedAt != nil {
		basis = *write.File.UploadedAt
	}

	columns, values, err := replaceColumns(write, computeExpiry(basis))
	if err != nil {
		return err
	}

	setClauses := make([]string, len(columns))
	args := append([]interface{}{id}, values...)
	for i, column := range columns {
		setClauses[i] = fmt.Sprintf("%s = $%d", column, i+2)
	}

	query := fmt.Sprintf("UPDATE files SET %s WHERE id = $1", strings.Join(setClauses, ", "))
	if _, err := tx.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to replace file record: %w", err)
	}
	return nil
}

// replaceColumns builds the column/value lists one replace overwrites.
// id, key and uploaded_at are never in the list: a replace keeps the
// record's identity and original upload timestamp. Optional fields are
// included only when explicitly supplied, so an omitted field leaves the
// stored value unchanged
func replaceColumns(write domain.FileWrite, expiresAt *int64) ([]string, []interface{}, error) {
	// Content fields are always overwritten
	columns := []string{"url", "name", "size", "mime_type", "user_id", "replaced_at"}
	values := []interface{}{
		write.File.URL,
		write.File.Name,
		write.File.Size,
		write.File.MimeType,
		write.UserID,
		write.NowMs,
	}

	add := func(column string, value interface{}) {
		columns = append(columns, column)
		values = append(values, value)
	}

	if write.File.CustomID != nil {
		add("custom_id", *write.File.CustomID)
	}
	fileType := write.File.FileType
	if write.Options.FileType != nil {
		fileType = write.Options.FileType
	}
	if fileType != nil {
		add("file_type", *fileType)
	}

	if write.Options.Tags != nil {
		add("tags", write.Options.Tags)
	}
	if write.Options.Folder != nil {
		add("folder", *write.Options.Folder)
	}
	if write.Options.Access != nil {
		accessJSON, err := marshalAccess(write.Options.Access)
		if err != nil {
			return nil, nil, err
		}
		add("access", accessJSON)
	}
	if write.Options.Metadata != nil {
		metadataJSON, err := marshalMetadata(write.Options.Metadata)
		if err != nil {
			return nil, nil, err
		}
		add("metadata", metadataJSON)
	}
	if expiresAt != nil {
		add("expires_at", *expiresAt)
	}

	return columns, values, nil
}

// GetByKey retrieves a file record by key, nil when absent
func (r *FileRepository) GetByKey(ctx context.Context, key string) (*domain.FileRecord, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+fileColumns+` FROM files WHERE key = $1`, key)

	record, err := scanFileRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get file by key: %w", err)
	}
	return record, nil
}

// ListByOwner retrieves one page of an owner's records, newest upload
// first with record id as the tiebreak. A nil cursor starts at the top;
// otherwise the page resumes strictly after the cursor position, so
// paging never skips or repeats records on timestamp ties
func (r *FileRepository) ListByOwner(ctx context.Context, userID string, limit int, cursor *domain.ListCursor) ([]*domain.FileRecord, error) {
	query := `SELECT ` + fileColumns + ` FROM files
		 WHERE user_id = $1
		 ORDER BY uploaded_at DESC, id DESC
		 LIMIT $2`
	args := []interface{}{userID, limit}
	if cursor != nil {
		query = `SELECT ` + fileColumns + ` FROM files
		 WHERE user_id = $1 AND (uploaded_at, id) < ($3, $4)
		 ORDER BY uploaded_at DESC, id DESC
		 LIMIT $2`
		args = append(args, cursor.UploadedAt, cursor.ID)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}
	defer rows.Close()

	var records []*domain.FileRecord
	for rows.Next() {
		record, err := scanFileRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan file record: %w", err)
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// ExpiredBatch returns the keys of up to limit records with
// expires_at <= nowMs, oldest expiration first
func (r *FileRepository) ExpiredBatch(ctx context.Context, nowMs int64, limit int) ([]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT key FROM files
		 WHERE expires_at IS NOT NULL AND expires_at <= $1
		 ORDER BY expires_at ASC
		 LIMIT $2`,
		nowMs, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to scan expired batch: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("failed to scan expired key: %w", err)
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// DeleteByKeys deletes records by key and returns the number actually
// removed. Keys already absent are skipped, not errors
func (r *FileRepository) DeleteByKeys(ctx context.Context, keys []string) (int, error) {
	if len(keys) == 0 {
		return 0, nil
	}
	tag, err := r.pool.Exec(ctx, `DELETE FROM files WHERE key = ANY($1)`, keys)
	if err != nil {
		return 0, fmt.Errorf("failed to delete files: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// SetAccess updates the file-level access rule; a nil rule clears it.
// Returns false when no record exists for the key
func (r *FileRepository) SetAccess(ctx context.Context, key string, rule *domain.AccessRule) (bool, error) {
	accessJSON, err := marshalAccess(rule)
	if err != nil {
		return false, err
	}
	tag, err := r.pool.Exec(ctx,
		`UPDATE files SET access = $2 WHERE key = $1`, key, accessJSON)
	if err != nil {
		return false, fmt.Errorf("failed to set file access: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// UsageStats sums a user's tracked uploads
func (r *FileRepository) UsageStats(ctx context.Context, userID string) (*domain.UsageStats, error) {
	stats := &domain.UsageStats{}
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*), COALESCE(SUM(size), 0) FROM files WHERE user_id = $1`,
		userID,
	).Scan(&stats.TotalFiles, &stats.TotalBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to get usage stats: %w", err)
	}
	return stats, nil
}

// rowScanner covers pgx.Row and pgx.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanFileRecord(row rowScanner) (*domain.FileRecord, error) {
	record := &domain.FileRecord{}
	var (
		accessJSON   []byte
		metadataJSON []byte
	)
	err := row.Scan(
		&record.ID,
		&record.Key,
		&record.URL,
		&record.Name,
		&record.Size,
		&record.MimeType,
		&record.UploadedAt,
		&record.UserID,
		&record.Tags,
		&record.Folder,
		&accessJSON,
		&metadataJSON,
		&record.ExpiresAt,
		&record.ReplacedAt,
		&record.CustomID,
		&record.FileType,
	)
	if err != nil {
		return nil, err
	}

	if len(accessJSON) > 0 {
		rule := &domain.AccessRule{}
		if err := json.Unmarshal(accessJSON, rule); err != nil {
			return nil, fmt.Errorf("failed to decode access rule: %w", err)
		}
		record.Access = rule
	}
	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &record.Metadata); err != nil {
			return nil, fmt.Errorf("failed to decode metadata: %w", err)
		}
	}
	return record, nil
}

func marshalAccess(rule *domain.AccessRule) ([]byte, error) {
	if rule == nil {
		return nil, nil
	}
	data, err := json.Marshal(rule)
	if err != nil {
		return nil, fmt.Errorf("failed to encode access rule: %w", err)
	}
	return data, nil
}

func marshalMetadata(metadata map[string]interface{}) ([]byte, error) {
	if metadata == nil {
		return nil, nil
	}
	data, err := json.Marshal(metadata)
	if err != nil {
		return nil, fmt.Errorf("failed to encode metadata: %w", err)
	}
	return data, nil
}
