package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/storefront/internal/apperr"
	"github.com/mmeshcher/storefront/internal/model"
)

// GetConfig возвращает параметр по ключу.
func (r *PostgresRepository) GetConfig(ctx context.Context, key string) (*model.SystemConfig, error) {
	var c model.SystemConfig
	err := r.q(ctx).QueryRow(ctx,
		`SELECT config_key, config_value, description FROM system_config WHERE config_key = $1`,
		key,
	).Scan(&c.Key, &c.Value, &c.Description)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.ErrConfigKeyNotFound
		}
		return nil, fmt.Errorf("get config: %w", err)
	}
	return &c, nil
}

// UpdateConfig меняет значение существующего параметра.
func (r *PostgresRepository) UpdateConfig(ctx context.Context, key, value string) (*model.SystemConfig, error) {
	var c model.SystemConfig
	err := r.q(ctx).QueryRow(ctx,
		`UPDATE system_config SET config_value = $2, updated_at = NOW()
		 WHERE config_key = $1
		 RETURNING config_key, config_value, description`,
		key, value,
	).Scan(&c.Key, &c.Value, &c.Description)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.ErrConfigKeyNotFound
		}
		return nil, fmt.Errorf("update config: %w", err)
	}
	return &c, nil
}

// InsertConfigDefaults добавляет отсутствующие параметры, не трогая существующие.
func (r *PostgresRepository) InsertConfigDefaults(ctx context.Context, defaults []model.SystemConfig) error {
	batch := &pgx.Batch{}
	for _, d := range defaults {
		batch.Queue(
			`INSERT INTO system_config (config_key, config_value, description)
			 VALUES ($1, $2, $3)
			 ON CONFLICT (config_key) DO NOTHING`,
			d.Key, d.Value, d.Description,
		)
	}
	if err := r.q(ctx).SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert config defaults: %w", err)
	}
	return nil
}
