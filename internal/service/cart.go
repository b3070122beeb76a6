package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mmeshcher/storefront/internal/apperr"
	"github.com/mmeshcher/storefront/internal/model"
)

func lockKey(owner model.CartOwner) string {
	if owner.Anonymous() {
		return "session:" + owner.SessionID
	}
	return "customer:" + strconv.FormatInt(owner.CustomerID, 10)
}

// AddItem добавляет товар в активную корзину владельца, создавая корзину при необходимости.
// Анонимному владельцу без подходящей корзины выдаётся новый идентификатор сессии,
// он возвращается в поле Cart.SessionID.
//
// Остаток товара проверяется без блокировки строки товара: окончательная
// проверка выполняется при оформлении заказа.
func (s *Service) AddItem(ctx context.Context, owner model.CartOwner, productID int64, quantity int, client ClientInfo) (*model.Cart, error) {
	if quantity <= 0 {
		return nil, apperr.New(apperr.ErrInvalidInput, "La cantidad debe ser mayor que cero.")
	}
	if owner.Anonymous() && owner.SessionID == "" {
		owner.SessionID = uuid.NewString()
	}

	unlock, err := s.locker.Lock(ctx, lockKey(owner))
	if err != nil {
		return nil, fmt.Errorf("lock cart: %w", err)
	}
	defer unlock()

	expiration := s.settings.CartExpiration(ctx)

	var cart *model.Cart
	err = s.repo.WithTx(ctx, func(ctx context.Context) error {
		var err error
		cart, err = s.resolveCart(ctx, owner)
		if errors.Is(err, apperr.ErrCartNotFound) {
			cart, err = s.createCart(ctx, owner, client, expiration)
		}
		if err != nil {
			return err
		}

		product, err := s.repo.FindActiveProduct(ctx, productID)
		if err != nil {
			if errors.Is(err, apperr.ErrProductNotFound) {
				return apperr.New(apperr.ErrProductNotFound,
					"Producto no encontrado o no está activo. ID: %d", productID)
			}
			return err
		}

		item, ok := cart.Item(product.ID)
		if ok {
			newQuantity := item.Quantity + quantity
			if product.Stock < newQuantity {
				return apperr.New(apperr.ErrInsufficientStock,
					"Stock insuficiente para '%s'. Solicitado: %d, Ya en carrito: %d, Stock: %d",
					product.Name, quantity, item.Quantity, product.Stock)
			}
			item.Quantity = newQuantity
		} else {
			if product.Stock < quantity {
				return apperr.New(apperr.ErrInsufficientStock,
					"Stock insuficiente para '%s'. Solicitado: %d, Stock: %d",
					product.Name, quantity, product.Stock)
			}
			cart.Items = append(cart.Items, model.CartItem{
				UUID:        uuid.New(),
				CartID:      cart.ID,
				ProductID:   product.ID,
				ProductName: product.Name,
				ProductSKU:  product.SKU,
				Quantity:    quantity,
				UnitPrice:   product.Price,
			})
			item = &cart.Items[len(cart.Items)-1]
		}

		cart.Recalculate()

		if err := s.repo.SaveCartItem(ctx, item); err != nil {
			return err
		}
		return s.repo.UpdateCartTotals(ctx, cart)
	})
	if err != nil {
		return nil, err
	}

	return cart, nil
}

// GetCart возвращает активную корзину владельца.
func (s *Service) GetCart(ctx context.Context, owner model.CartOwner) (*model.Cart, error) {
	if owner.Anonymous() && owner.SessionID == "" {
		return nil, apperr.New(apperr.ErrCartNotFound, "No se encontró un carrito activo.")
	}

	var cart *model.Cart
	err := s.repo.WithTx(ctx, func(ctx context.Context) error {
		var err error
		cart, err = s.resolveCart(ctx, owner)
		if errors.Is(err, apperr.ErrCartNotFound) {
			// Пометка EXPIRED должна сохраниться.
			return nil
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	if cart == nil {
		return nil, apperr.New(apperr.ErrCartNotFound, "No se encontró un carrito activo.")
	}
	return cart, nil
}

// resolveCart возвращает активную корзину владельца. Корзина с истёкшим
// сроком помечается EXPIRED и считается отсутствующей.
func (s *Service) resolveCart(ctx context.Context, owner model.CartOwner) (*model.Cart, error) {
	cart, err := s.repo.FindActiveCart(ctx, owner, true)
	if err != nil {
		return nil, err
	}
	if !cart.Expired(s.now()) {
		return cart, nil
	}

	if err := s.repo.UpdateCartStatus(ctx, cart.ID, model.CartStatusExpired); err != nil {
		return nil, err
	}
	s.logger.Info("cart expired", zap.Int64("cartID", cart.ID))
	return nil, apperr.ErrCartNotFound
}

func (s *Service) createCart(ctx context.Context, owner model.CartOwner, client ClientInfo, expiration time.Duration) (*model.Cart, error) {
	now := s.now()
	cart := &model.Cart{
		UUID:      uuid.New(),
		Status:    model.CartStatusActive,
		IPAddress: client.IPAddress,
		UserAgent: client.UserAgent,
		ExpiresAt: now.Add(expiration),
		CreatedAt: now,
	}

	if owner.Anonymous() {
		// Предъявленная сессия не найдена, поэтому выдаётся новая.
		sessionID := uuid.NewString()
		cart.SessionID = &sessionID
	} else {
		customerID := owner.CustomerID
		cart.CustomerID = &customerID
	}
	cart.Recalculate()

	if err := s.repo.CreateCart(ctx, cart); err != nil {
		return nil, err
	}
	return cart, nil
}
