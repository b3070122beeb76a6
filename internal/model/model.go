// Package model содержит доменные сущности интернет-магазина.
package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Customer представляет зарегистрированного покупателя.
type Customer struct {
	ID           int64
	UUID         uuid.UUID
	Email        string
	PasswordHash []byte
	Phone        string
	FirstName    string
	LastName     string
	Address      Address
	Active       bool
	CreatedAt    time.Time
}

// Address описывает почтовый адрес покупателя или доставки.
type Address struct {
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

// Product описывает товар каталога. Наличие определяется только полем Stock.
type Product struct {
	ID          int64
	UUID        uuid.UUID
	SKU         string
	Name        string
	Description string
	Price       decimal.Decimal
	Stock       int
	Category    string
	Brand       string
	ImageURL    string
	Active      bool
}

// TokenizedCard описывает сохранённую токенизированную карту покупателя.
// Срок действия хранится только в зашифрованном виде.
type TokenizedCard struct {
	ID             int64
	UUID           uuid.UUID
	CustomerID     int64
	Token          string
	LastFour       string
	Brand          string
	HolderName     string
	ExpMonthCipher string
	ExpYearCipher  string
	Active         bool
	Default        bool
	CreatedAt      time.Time
}

// SystemConfig описывает запись хранилища бизнес-параметров.
type SystemConfig struct {
	Key         string `json:"config_key"`
	Value       string `json:"config_value"`
	Description string `json:"description,omitempty"`
}

// TransactionLog описывает запись журнала обращений к API.
type TransactionLog struct {
	Method       string
	Endpoint     string
	StatusCode   int
	CustomerID   *int64
	IPAddress    string
	UserAgent    string
	DurationMs   int64
	Success      bool
	ErrorMessage string
	CreatedAt    time.Time
}

// ProductSearch описывает запись журнала поисковых запросов.
type ProductSearch struct {
	CustomerID   *int64
	Query        string
	ResultsCount int
	IPAddress    string
	UserAgent    string
	SearchedAt   time.Time
}
