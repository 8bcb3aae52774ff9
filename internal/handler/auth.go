package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"storefront/internal/database"
	"storefront/internal/model"
	"storefront/internal/mw"
	"storefront/internal/service"
)

const tokenTTL = 24 * time.Hour

type credentials struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

// RegisterHandler signs up customers. Administrators are seeded at startup.
func RegisterHandler(authSvc *service.AuthService, secret string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req credentials
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeFail(w, http.StatusBadRequest, "invalid json")
			return
		}

		if req.Login == "" || req.Password == "" {
			writeFail(w, http.StatusBadRequest, "login and password required")
			return
		}

		user, err := authSvc.Register(r.Context(), req.Login, req.Password, model.RoleCustomer)
		if err != nil {
			if errors.Is(err, database.ErrLoginTaken) {
				writeFail(w, http.StatusConflict, "login already exists")
				return
			}
			slog.Error("register failed", "error", err)
			writeFail(w, http.StatusInternalServerError, "internal error")
			return
		}

		issue(w, user, secret)
	}
}

func LoginHandler(authSvc *service.AuthService, secret string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req credentials
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeFail(w, http.StatusBadRequest, "invalid json")
			return
		}

		user, err := authSvc.Authenticate(r.Context(), req.Login, req.Password)
		if err != nil {
			if errors.Is(err, service.ErrInvalidCredentials) {
				writeFail(w, http.StatusUnauthorized, "invalid login or password")
				return
			}
			slog.Error("login failed", "error", err)
			writeFail(w, http.StatusInternalServerError, "internal error")
			return
		}

		issue(w, user, secret)
	}
}

func issue(w http.ResponseWriter, user *model.User, secret string) {
	token, err := mw.IssueToken(secret, user.ID, user.Role, tokenTTL)
	if err != nil {
		writeFail(w, http.StatusInternalServerError, "token generation failed")
		return
	}

	w.Header().Set("Authorization", "Bearer "+token)
	writeJSON(w, http.StatusOK, response{Success: true, Token: token})
}
