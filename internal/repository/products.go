package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/storefront/internal/apperr"
	"github.com/mmeshcher/storefront/internal/model"
)

const productColumns = `id, uuid, sku, name, description, price, stock, category, brand, image_url, active`

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern строит шаблон LIKE для поиска подстроки; спецсимволы
// запроса экранируются и сравниваются буквально.
func containsPattern(query string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(query)) + "%"
}

func scanProduct(row pgx.Row) (*model.Product, error) {
	var p model.Product
	err := row.Scan(&p.ID, &p.UUID, &p.SKU, &p.Name, &p.Description, &p.Price,
		&p.Stock, &p.Category, &p.Brand, &p.ImageURL, &p.Active)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// SearchProducts возвращает активные товары, название которых содержит query,
// с остатком больше minStock.
func (r *PostgresRepository) SearchProducts(ctx context.Context, query string, minStock int) ([]model.Product, error) {
	rows, err := r.q(ctx).Query(ctx,
		`SELECT `+productColumns+`
		 FROM products
		 WHERE active AND stock > $2 AND LOWER(name) LIKE $1 ESCAPE '\'
		 ORDER BY name`,
		containsPattern(query), minStock,
	)
	if err != nil {
		return nil, fmt.Errorf("search products: %w", err)
	}
	defer rows.Close()

	var res []model.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		res = append(res, *p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// FindActiveProduct возвращает активный товар без блокировки строки.
func (r *PostgresRepository) FindActiveProduct(ctx context.Context, id int64) (*model.Product, error) {
	p, err := scanProduct(r.q(ctx).QueryRow(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = $1 AND active`,
		id,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.ErrProductNotFound
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

// FindProductForUpdate возвращает товар, блокируя его строку до конца транзакции.
func (r *PostgresRepository) FindProductForUpdate(ctx context.Context, id int64) (*model.Product, error) {
	p, err := scanProduct(r.q(ctx).QueryRow(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = $1 FOR UPDATE`,
		id,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.ErrProductNotFound
		}
		return nil, fmt.Errorf("lock product: %w", err)
	}
	return p, nil
}

// UpdateProductStock устанавливает остаток товара.
func (r *PostgresRepository) UpdateProductStock(ctx context.Context, id int64, stock int) error {
	tag, err := r.q(ctx).Exec(ctx,
		`UPDATE products SET stock = $2 WHERE id = $1`,
		id, stock,
	)
	if err != nil {
		return fmt.Errorf("update stock: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.ErrProductNotFound
	}
	return nil
}
