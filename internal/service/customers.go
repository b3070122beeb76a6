package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/mmeshcher/storefront/internal/apperr"
	"github.com/mmeshcher/storefront/internal/model"
)

var phonePattern = regexp.MustCompile(`^\+?[0-9]{10,15}$`)

const minPasswordLength = 8

// RegisterCustomerRequest содержит данные регистрации покупателя.
type RegisterCustomerRequest struct {
	Email     string
	Password  string
	Phone     string
	FirstName string
	LastName  string
	Address   model.Address
}

// RegisterCustomer регистрирует нового покупателя.
func (s *Service) RegisterCustomer(ctx context.Context, req RegisterCustomerRequest) (*model.Customer, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Phone = strings.TrimSpace(req.Phone)
	if req.Address.Country == "" {
		req.Address.Country = "VE"
	}

	if err := validateRegistration(req); err != nil {
		return nil, err
	}

	if _, err := s.repo.FindCustomerByEmail(ctx, req.Email); err == nil {
		return nil, apperr.New(apperr.ErrCustomerAlreadyExists, "El email ya existe.")
	} else if !errors.Is(err, apperr.ErrCustomerNotFound) {
		return nil, err
	}
	if _, err := s.repo.FindCustomerByPhone(ctx, req.Phone); err == nil {
		return nil, apperr.New(apperr.ErrCustomerAlreadyExists, "El telefono ya existe.")
	} else if !errors.Is(err, apperr.ErrCustomerNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	c := &model.Customer{
		UUID:         uuid.New(),
		Email:        req.Email,
		PasswordHash: hash,
		Phone:        req.Phone,
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		Address:      req.Address,
		Active:       true,
	}
	if err := s.repo.CreateCustomer(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func validateRegistration(req RegisterCustomerRequest) error {
	if addr, err := mail.ParseAddress(req.Email); err != nil || addr.Address != req.Email {
		return apperr.New(apperr.ErrInvalidInput, "Email inválido.")
	}
	if len(req.Password) < minPasswordLength {
		return apperr.New(apperr.ErrInvalidInput, "La contraseña debe tener al menos %d caracteres.", minPasswordLength)
	}
	if !phonePattern.MatchString(req.Phone) {
		return apperr.New(apperr.ErrInvalidInput, "Formato de teléfono inválido.")
	}
	if strings.TrimSpace(req.FirstName) == "" || strings.TrimSpace(req.LastName) == "" {
		return apperr.New(apperr.ErrInvalidInput, "Nombre y apellido son requeridos.")
	}
	return validateAddress(req.Address)
}

func validateAddress(a model.Address) error {
	if strings.TrimSpace(a.Line1) == "" || strings.TrimSpace(a.City) == "" ||
		strings.TrimSpace(a.State) == "" || strings.TrimSpace(a.PostalCode) == "" {
		return apperr.New(apperr.ErrInvalidInput, "La dirección está incompleta.")
	}
	if len(a.Country) != 2 {
		return apperr.New(apperr.ErrInvalidInput, "El código de país debe tener 2 caracteres.")
	}
	return nil
}

// AuthenticateCustomer проверяет email и пароль покупателя.
func (s *Service) AuthenticateCustomer(ctx context.Context, email, password string) (*model.Customer, error) {
	c, err := s.repo.FindCustomerByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, apperr.ErrCustomerNotFound) {
			return nil, apperr.New(apperr.ErrInvalidCredentials, "Credenciales inválidas.")
		}
		return nil, err
	}

	if !c.Active || bcrypt.CompareHashAndPassword(c.PasswordHash, []byte(password)) != nil {
		return nil, apperr.New(apperr.ErrInvalidCredentials, "Credenciales inválidas.")
	}
	return c, nil
}
