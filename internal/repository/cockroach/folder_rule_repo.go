package cockroach

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"uploadtrack-backend/internal/domain"
)

// FolderRuleRepository handles folder-level access rules
type FolderRuleRepository struct {
	pool *pgxpool.Pool
}

// NewFolderRuleRepository creates a new folder rule repository
func NewFolderRuleRepository(pool *pgxpool.Pool) *FolderRuleRepository {
	return &FolderRuleRepository{pool: pool}
}

// GetByFolder retrieves the rule for a folder, nil when absent
func (r *FolderRuleRepository) GetByFolder(ctx context.Context, folder string) (*domain.FolderRule, error) {
	rule := &domain.FolderRule{}
	var accessJSON []byte

	err := r.pool.QueryRow(ctx,
		`SELECT id, folder, access, updated_at FROM folder_rules WHERE folder = $1`,
		folder,
	).Scan(&rule.ID, &rule.Folder, &accessJSON, &rule.UpdatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get folder rule: %w", err)
	}

	if err := json.Unmarshal(accessJSON, &rule.Access); err != nil {
		return nil, fmt.Errorf("failed to decode folder rule: %w", err)
	}
	return rule, nil
}

// Set creates or replaces the rule for a folder and returns its id
func (r *FolderRuleRepository) Set(ctx context.Context, folder string, access domain.AccessRule, nowMs int64) (string, error) {
	accessJSON, err := json.Marshal(access)
	if err != nil {
		return "", fmt.Errorf("failed to encode folder rule: %w", err)
	}

	var id string
	err = r.pool.QueryRow(ctx, `
		INSERT INTO folder_rules (id, folder, access, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (folder)
		DO UPDATE SET access = EXCLUDED.access, updated_at = EXCLUDED.updated_at
		RETURNING id
	`, uuid.New().String(), folder, accessJSON, nowMs).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("failed to set folder rule: %w", err)
	}
	return id, nil
}

// Delete removes the rule for a folder; deleting an absent rule is a no-op
func (r *FolderRuleRepository) Delete(ctx context.Context, folder string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM folder_rules WHERE folder = $1`, folder)
	if err != nil {
		return fmt.Errorf("failed to delete folder rule: %w", err)
	}
	return nil
}
