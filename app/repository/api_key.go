package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/depin-orcha/orcha/app/entity"
)

type APIKeyRepository struct {
	db DBTX
}

func NewAPIKeyRepository(db DBTX) *APIKeyRepository {
	return &APIKeyRepository{db: db}
}

func (r *APIKeyRepository) Create(ctx context.Context, key *entity.APIKey) error {
	permissions, err := json.Marshal(key.Permissions)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO api_keys (
			key_hash, name, description, created_at, expires_at, last_used_at, is_active, rate_limit_per_minute, permissions
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	result, err := r.db.ExecContext(ctx, query,
		key.KeyHash,
		key.Name,
		key.Description,
		key.CreatedAt,
		key.ExpiresAt,
		key.LastUsedAt,
		key.IsActive,
		key.RateLimitPerMinute,
		string(permissions),
	)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	key.ID = id
	return nil
}

func (r *APIKeyRepository) FindByID(ctx context.Context, id int64) (*entity.APIKey, error) {
	query := `
		SELECT id, key_hash, name, description, created_at, expires_at, last_used_at, is_active, rate_limit_per_minute, permissions
		FROM api_keys WHERE id = ?
	`
	row := r.db.QueryRowContext(ctx, query, id)
	key, err := scanAPIKey(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	return key, nil
}

func (r *APIKeyRepository) FindAll(ctx context.Context) ([]*entity.APIKey, error) {
	query := `
		SELECT id, key_hash, name, description, created_at, expires_at, last_used_at, is_active, rate_limit_per_minute, permissions
		FROM api_keys
		ORDER BY created_at DESC
	`
	return r.findMany(ctx, query)
}

func (r *APIKeyRepository) FindActive(ctx context.Context) ([]*entity.APIKey, error) {
	query := `
		SELECT id, key_hash, name, description, created_at, expires_at, last_used_at, is_active, rate_limit_per_minute, permissions
		FROM api_keys
		WHERE is_active = 1
		ORDER BY created_at DESC
	`
	return r.findMany(ctx, query)
}

func (r *APIKeyRepository) Update(ctx context.Context, key *entity.APIKey) error {
	permissions, err := json.Marshal(key.Permissions)
	if err != nil {
		return err
	}

	query := `
		UPDATE api_keys SET
			name = ?,
			description = ?,
			expires_at = ?,
			is_active = ?,
			rate_limit_per_minute = ?,
			permissions = ?
		WHERE id = ?
	`
	_, err = r.db.ExecContext(ctx, query,
		key.Name,
		key.Description,
		key.ExpiresAt,
		key.IsActive,
		key.RateLimitPerMinute,
		string(permissions),
		key.ID,
	)
	return err
}

func (r *APIKeyRepository) TouchLastUsed(ctx context.Context, id int64, usedAt time.Time) error {
	query := `UPDATE api_keys SET last_used_at = ? WHERE id = ?`
	_, err := r.db.ExecContext(ctx, query, usedAt, id)
	return err
}

func (r *APIKeyRepository) Delete(ctx context.Context, id int64) (bool, error) {
	query := `DELETE FROM api_keys WHERE id = ?`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (r *APIKeyRepository) findMany(ctx context.Context, query string, args ...interface{}) ([]*entity.APIKey, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	keys := make([]*entity.APIKey, 0)
	for rows.Next() {
		key, err := scanAPIKey(rows.Scan)
		if err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return keys, nil
}

func scanAPIKey(scan rowScanner) (*entity.APIKey, error) {
	key := &entity.APIKey{}
	var permissionsJSON string
	if err := scan(
		&key.ID,
		&key.KeyHash,
		&key.Name,
		&key.Description,
		&key.CreatedAt,
		&key.ExpiresAt,
		&key.LastUsedAt,
		&key.IsActive,
		&key.RateLimitPerMinute,
		&permissionsJSON,
	); err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(permissionsJSON), &key.Permissions); err != nil {
		return nil, err
	}

	return key, nil
}
