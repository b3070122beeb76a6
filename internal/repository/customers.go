package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/storefront/internal/apperr"
	"github.com/mmeshcher/storefront/internal/model"
)

const customerColumns = `id, uuid, email, password_hash, phone, first_name, last_name,
	address_line1, address_line2, city, state, postal_code, country, active, created_at`

// CreateCustomer создаёт нового покупателя.
func (r *PostgresRepository) CreateCustomer(ctx context.Context, c *model.Customer) error {
	err := r.q(ctx).QueryRow(ctx,
		`INSERT INTO customers (uuid, email, password_hash, phone, first_name, last_name,
			address_line1, address_line2, city, state, postal_code, country, active)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		 RETURNING id, created_at`,
		c.UUID, c.Email, c.PasswordHash, c.Phone, c.FirstName, c.LastName,
		c.Address.Line1, c.Address.Line2, c.Address.City, c.Address.State,
		c.Address.PostalCode, c.Address.Country, c.Active,
	).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		if constraint, ok := uniqueViolation(err); ok {
			if constraint == "customers_phone_key" {
				return apperr.New(apperr.ErrCustomerAlreadyExists, "El telefono ya existe.")
			}
			return apperr.New(apperr.ErrCustomerAlreadyExists, "El email ya existe.")
		}
		return fmt.Errorf("create customer: %w", err)
	}
	return nil
}

// FindCustomerByID возвращает покупателя по идентификатору.
func (r *PostgresRepository) FindCustomerByID(ctx context.Context, id int64) (*model.Customer, error) {
	return r.findCustomer(ctx, `id = $1`, id)
}

// FindCustomerByEmail возвращает покупателя по email.
func (r *PostgresRepository) FindCustomerByEmail(ctx context.Context, email string) (*model.Customer, error) {
	return r.findCustomer(ctx, `email = $1`, email)
}

// FindCustomerByPhone возвращает покупателя по телефону.
func (r *PostgresRepository) FindCustomerByPhone(ctx context.Context, phone string) (*model.Customer, error) {
	return r.findCustomer(ctx, `phone = $1`, phone)
}

func (r *PostgresRepository) findCustomer(ctx context.Context, where string, arg any) (*model.Customer, error) {
	row := r.q(ctx).QueryRow(ctx,
		`SELECT `+customerColumns+` FROM customers WHERE `+where,
		arg,
	)

	var c model.Customer
	err := row.Scan(&c.ID, &c.UUID, &c.Email, &c.PasswordHash, &c.Phone, &c.FirstName, &c.LastName,
		&c.Address.Line1, &c.Address.Line2, &c.Address.City, &c.Address.State,
		&c.Address.PostalCode, &c.Address.Country, &c.Active, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.ErrCustomerNotFound
		}
		return nil, fmt.Errorf("get customer: %w", err)
	}
	return &c, nil
}
