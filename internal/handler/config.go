package handler

import "net/http"

type configRequest struct {
	Key   string `json:"config_key"`
	Value string `json:"config_value"`
}

// UpdateConfig изменяет бизнес-параметр.
func (h *Handler) UpdateConfig(w http.ResponseWriter, r *http.Request) {
	var req configRequest
	if !h.decode(w, r, &req) {
		return
	}

	if req.Key == "" {
		h.writeError(w, r, http.StatusBadRequest, "La clave de configuración es requerida.")
		return
	}

	cfg, err := h.config.Update(r.Context(), req.Key, req.Value)
	if err != nil {
		h.fail(w, r, "update config", err)
		return
	}

	h.writeSuccess(w, http.StatusOK, cfg)
}
