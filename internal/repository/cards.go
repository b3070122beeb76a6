package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/storefront/internal/apperr"
	"github.com/mmeshcher/storefront/internal/model"
)

const cardColumns = `id, uuid, customer_id, token, last_four, brand, holder_name,
	exp_month, exp_year, active, is_default, created_at`

func scanCard(row pgx.Row) (*model.TokenizedCard, error) {
	var c model.TokenizedCard
	err := row.Scan(&c.ID, &c.UUID, &c.CustomerID, &c.Token, &c.LastFour, &c.Brand, &c.HolderName,
		&c.ExpMonthCipher, &c.ExpYearCipher, &c.Active, &c.Default, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// CreateCard сохраняет токенизированную карту.
func (r *PostgresRepository) CreateCard(ctx context.Context, c *model.TokenizedCard) error {
	err := r.q(ctx).QueryRow(ctx,
		`INSERT INTO tokenized_cards (uuid, customer_id, token, last_four, brand, holder_name,
			exp_month, exp_year, active, is_default)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING id, created_at`,
		c.UUID, c.CustomerID, c.Token, c.LastFour, c.Brand, c.HolderName,
		c.ExpMonthCipher, c.ExpYearCipher, c.Active, c.Default,
	).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		return fmt.Errorf("create card: %w", err)
	}
	return nil
}

// FindCard возвращает активную карту покупателя по публичному идентификатору.
func (r *PostgresRepository) FindCard(ctx context.Context, cardUUID uuid.UUID, customerID int64) (*model.TokenizedCard, error) {
	c, err := scanCard(r.q(ctx).QueryRow(ctx,
		`SELECT `+cardColumns+` FROM tokenized_cards WHERE uuid = $1 AND customer_id = $2 AND active`,
		cardUUID, customerID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.ErrCardNotFound
		}
		return nil, fmt.Errorf("get card: %w", err)
	}
	return c, nil
}

// FindCardByID возвращает карту по внутреннему идентификатору.
func (r *PostgresRepository) FindCardByID(ctx context.Context, id int64) (*model.TokenizedCard, error) {
	c, err := scanCard(r.q(ctx).QueryRow(ctx,
		`SELECT `+cardColumns+` FROM tokenized_cards WHERE id = $1`,
		id,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.ErrCardNotFound
		}
		return nil, fmt.Errorf("get card: %w", err)
	}
	return c, nil
}

// CardExists сообщает, зарегистрирована ли у покупателя карта с такими последними цифрами и брендом.
func (r *PostgresRepository) CardExists(ctx context.Context, customerID int64, lastFour, brand string) (bool, error) {
	var exists bool
	err := r.q(ctx).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM tokenized_cards WHERE customer_id = $1 AND last_four = $2 AND brand = $3)`,
		customerID, lastFour, brand,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check card: %w", err)
	}
	return exists, nil
}

// ListCards возвращает активные карты покупателя.
func (r *PostgresRepository) ListCards(ctx context.Context, customerID int64) ([]model.TokenizedCard, error) {
	rows, err := r.q(ctx).Query(ctx,
		`SELECT `+cardColumns+`
		 FROM tokenized_cards
		 WHERE customer_id = $1 AND active
		 ORDER BY created_at DESC`,
		customerID,
	)
	if err != nil {
		return nil, fmt.Errorf("select cards: %w", err)
	}
	defer rows.Close()

	var res []model.TokenizedCard
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, fmt.Errorf("scan card: %w", err)
		}
		res = append(res, *c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}
