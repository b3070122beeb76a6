package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mmeshcher/storefront/internal/apperr"
	"github.com/mmeshcher/storefront/internal/middleware"
)

const (
	msgInvalidBody  = "Cuerpo de la solicitud inválido."
	msgInvalidUUID  = "El UUID proporcionado tiene un formato inválido."
	msgAuthRequired = "Se requiere autenticación."
)

// envelope задаёт общий формат ответа API.
type envelope struct {
	Status string `json:"status"`
	Code   int    `json:"code"`
	Data   any    `json:"data,omitempty"`
	Error  string `json:"error,omitempty"`
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("encode response", zap.Error(err))
	}
}

func (h *Handler) writeSuccess(w http.ResponseWriter, status int, data any) {
	h.writeJSON(w, status, envelope{Status: "success", Code: status, Data: data})
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	middleware.RecordError(r.Context(), message)
	h.writeJSON(w, status, envelope{Status: "error", Code: status, Error: message})
}

// fail отвечает клиенту по виду ошибки предметной области.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	kind := apperr.KindOf(err)
	if kind == apperr.KindInternal {
		h.logger.Error(op+" error", zap.Error(err), zap.String("path", r.URL.Path))
	}
	h.writeError(w, r, statusFor(kind), apperr.Message(err))
}

func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindRejected:
		return http.StatusUnprocessableEntity
	case apperr.KindUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	defer r.Body.Close()

	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		h.writeError(w, r, http.StatusBadRequest, msgInvalidBody)
		return false
	}
	return true
}

func (h *Handler) orderUUID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "orderID"))
	if err != nil {
		h.writeError(w, r, http.StatusBadRequest, msgInvalidUUID)
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) customerID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, ok := middleware.GetCustomerIDFromContext(r.Context())
	if !ok {
		h.writeError(w, r, http.StatusUnauthorized, msgAuthRequired)
		return 0, false
	}
	return id, true
}
