package middleware

import (
	"crypto/subtle"
	"net/http"
)

const apiKeyHeader = "X-API-KEY"

// APIKey пропускает только запросы с заголовком X-API-KEY, равным key.
// Пустой key закрывает доступ ко всем защищённым маршрутам.
func APIKey(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := r.Header.Get(apiKeyHeader)
			if key == "" || subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
				writeError(w, http.StatusUnauthorized, "APIKEY invalida. Por favor revise el formato.")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
