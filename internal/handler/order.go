package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"storefront/internal/database"
	"storefront/internal/lifecycle"
	"storefront/internal/mw"
	"storefront/internal/service"
)

// ListOrdersHandler serves every order; mount it behind mw.RequireRole(admin).
func ListOrdersHandler(orderSvc *service.OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orders, err := orderSvc.List(r.Context())
		if err != nil {
			slog.Error("list orders failed", "error", err)
			writeFail(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, listResponse{Success: true, Orders: orders})
	}
}

func ListMyOrdersHandler(orderSvc *service.OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, _, ok := mw.Caller(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		orders, err := orderSvc.ListByUser(r.Context(), userID)
		if err != nil {
			slog.Error("list my orders failed", "user", userID, "error", err)
			writeFail(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, listResponse{Success: true, Orders: orders})
	}
}

func CreateOrderHandler(orderSvc *service.OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, _, ok := mw.Caller(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req service.NewOrder
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
			writeFail(w, http.StatusBadRequest, "invalid json")
			return
		}

		o, err := orderSvc.Create(r.Context(), userID, req)
		if err != nil {
			if errors.Is(err, service.ErrInvalidOrder) {
				writeFail(w, http.StatusUnprocessableEntity, err.Error())
				return
			}
			slog.Error("order create failed", "error", err)
			writeFail(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusCreated, response{Success: true, Order: &o})
	}
}

// TransitionHandler serves PUT /orders/{id}/<action>.
func TransitionHandler(orderSvc *service.OrderService, action lifecycle.Action) http.HandlerFunc {
	t, _ := lifecycle.Lookup(action)

	return func(w http.ResponseWriter, r *http.Request) {
		userID, role, ok := mw.Caller(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var text string
		if t.Input.Required() {
			body := map[string]string{}
			if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
				writeFail(w, http.StatusBadRequest, "invalid json")
				return
			}
			text = body[t.Input.Field]
		}

		o, err := orderSvc.Transition(r.Context(), userID, role, chi.URLParam(r, "id"), action, text)
		if err != nil {
			status, msg := transitionFailure(err)
			if status == http.StatusInternalServerError {
				slog.Error("order transition failed", "action", action, "error", err)
			}
			writeFail(w, status, msg)
			return
		}

		writeJSON(w, http.StatusOK, response{Success: true, Message: "order " + string(o.OrderStatus), Order: &o})
	}
}

func transitionFailure(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrOrderNotFound):
		return http.StatusNotFound, "order not found"
	case errors.Is(err, service.ErrNotOwner), errors.Is(err, lifecycle.ErrActorNotAllowed):
		return http.StatusForbidden, "not allowed to change this order"
	case errors.Is(err, lifecycle.ErrInputRequired):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, lifecycle.ErrIllegalTransition):
		return http.StatusConflict, err.Error()
	case errors.Is(err, database.ErrStatusChanged):
		return http.StatusConflict, "order status changed, please refresh"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}
