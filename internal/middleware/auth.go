// Package middleware содержит HTTP middleware интернет-магазина.
package middleware

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strconv"
	"strings"
	"time"
)

type contextKey string

const customerIDKey contextKey = "customerID"

const (
	authCookieName = "auth_token"
	authCookieTTL  = 30 * 24 * time.Hour
	bearerPrefix   = "Bearer "
)

// AuthMiddleware выполняет проверку аутентификации покупателя по подписанному токену.
// Токен принимается из cookie или из заголовка Authorization и действует
// authCookieTTL с момента выдачи.
type AuthMiddleware struct {
	secretKey []byte
	now       func() time.Time
}

// NewAuthMiddleware создаёт новый экземпляр AuthMiddleware с указанным секретным ключом.
func NewAuthMiddleware(secret string) *AuthMiddleware {
	key := []byte(secret)
	if len(key) == 0 {
		randomKey := make([]byte, 32)
		if _, err := rand.Read(randomKey); err == nil {
			key = randomKey
		} else {
			key = []byte("default-secret-key")
		}
	}

	return &AuthMiddleware{
		secretKey: key,
		now:       time.Now,
	}
}

// Middleware пропускает только аутентифицированные запросы и добавляет
// идентификатор покупателя в контекст запроса.
func (a *AuthMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		customerID, ok := a.customerID(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "Se requiere autenticación.")
			return
		}

		next.ServeHTTP(w, r.WithContext(withCustomer(r.Context(), customerID)))
	})
}

// Optional добавляет идентификатор покупателя в контекст, если запрос
// аутентифицирован, и пропускает анонимные запросы.
func (a *AuthMiddleware) Optional(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if customerID, ok := a.customerID(r); ok {
			r = r.WithContext(withCustomer(r.Context(), customerID))
		}
		next.ServeHTTP(w, r)
	})
}

func withCustomer(ctx context.Context, customerID int64) context.Context {
	if info := requestInfoFrom(ctx); info != nil {
		info.customerID = &customerID
	}
	return context.WithValue(ctx, customerIDKey, customerID)
}

func (a *AuthMiddleware) customerID(r *http.Request) (int64, bool) {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, bearerPrefix) {
		return a.parseToken(strings.TrimPrefix(h, bearerPrefix))
	}

	cookie, err := r.Cookie(authCookieName)
	if err != nil {
		return 0, false
	}
	return a.parseToken(cookie.Value)
}

// Token возвращает подписанный токен вида id.issuedAt.signature.
func (a *AuthMiddleware) Token(customerID int64) string {
	payload := strconv.FormatInt(customerID, 10) + "." + strconv.FormatInt(a.now().Unix(), 10)
	return payload + "." + a.sign(payload)
}

// SetAuthCookie устанавливает cookie авторизации для указанного покупателя.
func (a *AuthMiddleware) SetAuthCookie(w http.ResponseWriter, customerID int64) {
	cookie := &http.Cookie{
		Name:     authCookieName,
		Value:    a.Token(customerID),
		Path:     "/",
		Expires:  a.now().Add(authCookieTTL),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}

	http.SetCookie(w, cookie)
}

func (a *AuthMiddleware) sign(payload string) string {
	mac := hmac.New(sha256.New, a.secretKey)
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

func (a *AuthMiddleware) parseToken(token string) (int64, bool) {
	sep := strings.LastIndexByte(token, '.')
	if sep < 0 {
		return 0, false
	}
	payload, signature := token[:sep], token[sep+1:]

	if !hmac.Equal([]byte(signature), []byte(a.sign(payload))) {
		return 0, false
	}

	idStr, issuedStr, found := strings.Cut(payload, ".")
	if !found {
		return 0, false
	}

	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}

	issued, err := strconv.ParseInt(issuedStr, 10, 64)
	if err != nil {
		return 0, false
	}
	age := a.now().Sub(time.Unix(issued, 0))
	if age < -time.Minute || age > authCookieTTL {
		return 0, false
	}

	return id, true
}

// GetCustomerIDFromContext извлекает идентификатор покупателя из контекста запроса.
func GetCustomerIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(customerIDKey).(int64)
	return id, ok
}
