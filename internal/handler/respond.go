package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"storefront/internal/model"
)

type response struct {
	Success bool          `json:"success"`
	Message string        `json:"message,omitempty"`
	Order   *model.Order  `json:"order,omitempty"`
	Token   string        `json:"token,omitempty"`
	Orders  []model.Order `json:"orders,omitempty"`
}

type listResponse struct {
	Success bool          `json:"success"`
	Orders  []model.Order `json:"orders"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response failed", "error", err)
	}
}

func writeFail(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, response{Success: false, Message: message})
}
