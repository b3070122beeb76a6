package middleware

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/mmeshcher/storefront/internal/events"
)

const requestInfoKey contextKey = "requestInfo"

// requestInfo собирает сведения о запросе, которые становятся известны
// во вложенных обработчиках.
type requestInfo struct {
	customerID *int64
	errMessage string
}

func requestInfoFrom(ctx context.Context) *requestInfo {
	info, _ := ctx.Value(requestInfoKey).(*requestInfo)
	return info
}

// RecordError сохраняет сообщение об ошибке для журнала обращений.
func RecordError(ctx context.Context, message string) {
	if info := requestInfoFrom(ctx); info != nil {
		info.errMessage = message
	}
}

// ClientIP возвращает адрес клиента без порта.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Logger журналирует каждый запрос и публикует событие RequestCompleted.
func Logger(logger *zap.Logger, publisher events.Publisher) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			info := &requestInfo{}
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r.WithContext(context.WithValue(r.Context(), requestInfoKey, info)))

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			duration := time.Since(start)

			logger.Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", status),
				zap.Int("size", ww.BytesWritten()),
				zap.Duration("duration", duration),
				zap.String("requestID", chimw.GetReqID(r.Context())),
			)

			if publisher != nil {
				publisher.Publish(events.RequestCompleted{
					Method:       r.Method,
					Endpoint:     r.URL.Path,
					StatusCode:   status,
					CustomerID:   info.customerID,
					IPAddress:    ClientIP(r),
					UserAgent:    r.UserAgent(),
					Duration:     duration,
					ErrorMessage: info.errMessage,
					CompletedAt:  time.Now(),
				})
			}
		})
	}
}

type errorEnvelope struct {
	Status string `json:"status"`
	Code   int    `json:"code"`
	Error  string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorEnvelope{Status: "error", Code: status, Error: message})
}
