package cockroach

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"uploadtrack-backend/internal/domain"
)

// configSingletonID keys the single tracker_config row
const configSingletonID = "globals"

// ConfigRepository handles the stored tracker configuration
type ConfigRepository struct {
	pool *pgxpool.Pool
}

// NewConfigRepository creates a new config repository
func NewConfigRepository(pool *pgxpool.Pool) *ConfigRepository {
	return &ConfigRepository{pool: pool}
}

// Get loads the tracker configuration; an empty config when none is stored
func (r *ConfigRepository) Get(ctx context.Context) (*domain.TrackerConfig, error) {
	cfg, err := readConfig(ctx, r.pool, false)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return &domain.TrackerConfig{}, nil
	}
	return cfg, nil
}

// Set writes the configuration inside one transaction.
// merge (replace=false): only supplied fields overwrite the stored ones.
// replace=true: the singleton becomes exactly the supplied fields.
// Returns true when the singleton row was created
func (r *ConfigRepository) Set(ctx context.Context, update *domain.TrackerConfig, replace bool) (bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to begin config write: %w", err)
	}
	defer tx.Rollback(ctx)

	existing, err := readConfig(ctx, tx, true)
	if err != nil {
		return false, err
	}

	created := existing == nil
	next := update
	if !created && !replace {
		merged := *existing
		merged.Merge(update)
		next = &merged
	}

	if err := writeConfig(ctx, tx, next); err != nil {
		return false, err
	}
	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("failed to commit config write: %w", err)
	}
	return created, nil
}

func readConfig(ctx context.Context, q interface {
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}, forUpdate bool) (*domain.TrackerConfig, error) {
	query := `
		SELECT uploadthing_api_key, default_ttl_ms, ttl_by_mime_type,
		       ttl_by_file_type, delete_remote_on_expire, delete_batch_size
		FROM tracker_config WHERE id = $1`
	if forUpdate {
		query += " FOR UPDATE"
	}

	cfg := &domain.TrackerConfig{}
	var (
		mimeJSON []byte
		typeJSON []byte
	)
	err := q.QueryRow(ctx, query, configSingletonID).Scan(
		&cfg.UploadthingAPIKey,
		&cfg.DefaultTTLMs,
		&mimeJSON,
		&typeJSON,
		&cfg.DeleteRemoteOnExpire,
		&cfg.DeleteBatchSize,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read tracker config: %w", err)
	}

	if len(mimeJSON) > 0 {
		if err := json.Unmarshal(mimeJSON, &cfg.TTLByMimeType); err != nil {
			return nil, fmt.Errorf("failed to decode ttl_by_mime_type: %w", err)
		}
	}
	if len(typeJSON) > 0 {
		if err := json.Unmarshal(typeJSON, &cfg.TTLByFileType); err != nil {
			return nil, fmt.Errorf("failed to decode ttl_by_file_type: %w", err)
		}
	}
	return cfg, nil
}

func writeConfig(ctx context.Context, tx pgx.Tx, cfg *domain.TrackerConfig) error {
	mimeJSON, err := marshalTTLTable(cfg.TTLByMimeType)
	if err != nil {
		return err
	}
	typeJSON, err := marshalTTLTable(cfg.TTLByFileType)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO tracker_config (
			id, uploadthing_api_key, default_ttl_ms, ttl_by_mime_type,
			ttl_by_file_type, delete_remote_on_expire, delete_batch_size
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			uploadthing_api_key = EXCLUDED.uploadthing_api_key,
			default_ttl_ms = EXCLUDED.default_ttl_ms,
			ttl_by_mime_type = EXCLUDED.ttl_by_mime_type,
			ttl_by_file_type = EXCLUDED.ttl_by_file_type,
			delete_remote_on_expire = EXCLUDED.delete_remote_on_expire,
			delete_batch_size = EXCLUDED.delete_batch_size
	`,
		configSingletonID,
		cfg.UploadthingAPIKey,
		cfg.DefaultTTLMs,
		mimeJSON,
		typeJSON,
		cfg.DeleteRemoteOnExpire,
		cfg.DeleteBatchSize,
	)
	if err != nil {
		return fmt.Errorf("failed to write tracker config: %w", err)
	}
	return nil
}

func marshalTTLTable(table map[string]int64) ([]byte, error) {
	if table == nil {
		return nil, nil
	}
	data, err := json.Marshal(table)
	if err != nil {
		return nil, fmt.Errorf("failed to encode ttl table: %w", err)
	}
	return data, nil
}
